// Package htmlclean implements cleanAbstractHTML: the pure, idempotent
// function applied to every scraped abstract. The rule table itself lives in
// data/rules.yaml, embedded at build time, so the rule list stays reviewable
// and testable independently of the Go code that applies it.
package htmlclean

import (
	"embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/rules.yaml
var rulesFS embed.FS

type ruleKind string

const (
	kindLiteral ruleKind = "literal"
	kindRegex   ruleKind = "regex"
)

type rawRule struct {
	Kind   ruleKind `yaml:"kind"`
	Before string   `yaml:"before"`
	After  string   `yaml:"after"`
}

// Rule is one compiled step of the cleaner, in application order.
type Rule struct {
	Kind    ruleKind
	Literal string
	Regex   *regexp.Regexp
	After   string
}

// DefaultRules is loaded once from the embedded rule table.
var DefaultRules = mustLoadRules()

func mustLoadRules() []Rule {
	rules, err := loadRules()
	if err != nil {
		panic(fmt.Sprintf("htmlclean: embedded rule table is invalid: %v", err))
	}
	return rules
}

func loadRules() ([]Rule, error) {
	data, err := rulesFS.ReadFile("data/rules.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded rules: %w", err)
	}
	var raw []rawRule
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse embedded rules: %w", err)
	}

	rules := make([]Rule, 0, len(raw))
	for i, r := range raw {
		switch r.Kind {
		case kindLiteral:
			rules = append(rules, Rule{Kind: kindLiteral, Literal: r.Before, After: r.After})
		case kindRegex:
			re, err := regexp.Compile(r.Before)
			if err != nil {
				return nil, fmt.Errorf("rule %d: compile regex %q: %w", i, r.Before, err)
			}
			rules = append(rules, Rule{Kind: kindRegex, Regex: re, After: r.After})
		default:
			return nil, fmt.Errorf("rule %d: unknown kind %q", i, r.Kind)
		}
	}
	return rules, nil
}

// Clean applies the ordered rule table to abstract HTML and trims the
// result. Every rule is idempotent: applying Clean to its own output
// returns the same string.
func Clean(html string) string {
	return apply(html, DefaultRules)
}

func apply(html string, rules []Rule) string {
	s := html
	for _, r := range rules {
		switch r.Kind {
		case kindLiteral:
			s = strings.ReplaceAll(s, r.Literal, r.After)
		case kindRegex:
			s = r.Regex.ReplaceAllString(s, r.After)
		}
	}
	return strings.TrimSpace(s)
}
