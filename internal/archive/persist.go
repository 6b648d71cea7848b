package archive

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// storedEntry is the on-disk form of Entry: State is serialized as its
// string name so the database file stays human-reviewable.
type storedEntry struct {
	URL         string `yaml:"url"`
	State       string `yaml:"state"`
	LocalPath   string `yaml:"localPath"`
	LastAttempt string `yaml:"lastAttempt,omitempty"`
}

func loadEntries(path string) (map[string]Entry, error) {
	entries := make(map[string]Entry)
	if path == "" {
		return entries, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return entries, nil
		}
		return nil, fmt.Errorf("read archive database: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return entries, nil
	}

	var stored []storedEntry
	if err := yaml.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("parse archive database: %w", err)
	}
	for _, se := range stored {
		st, err := parseState(se.State)
		if err != nil {
			return nil, fmt.Errorf("archive database: %w", err)
		}
		entries[withoutFragment(se.URL)] = Entry{
			URL:       se.URL,
			State:     st,
			LocalPath: se.LocalPath,
		}
	}
	return entries, nil
}

func marshalEntries(entries []Entry) ([]byte, error) {
	stored := make([]storedEntry, 0, len(entries))
	for _, e := range entries {
		se := storedEntry{URL: e.URL, State: e.State.String(), LocalPath: e.LocalPath}
		if !e.LastAttempt.IsZero() {
			se.LastAttempt = e.LastAttempt.Format("2006-01-02T15:04:05Z07:00")
		}
		stored = append(stored, se)
	}
	return yaml.Marshal(stored)
}

func parseState(s string) (State, error) {
	switch s {
	case "", "pending-never":
		return PendingNever, nil
	case "pending-retry":
		return PendingRetry, nil
	case "succeeded":
		return Succeeded, nil
	case "permanent-failure":
		return PermanentFailure, nil
	default:
		return PendingNever, fmt.Errorf("unknown state %q", s)
	}
}
