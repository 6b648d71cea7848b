package scrape

import (
	"errors"
	"fmt"
)

// errFatal marks a scrape result that must abort the entire build rather
// than merely fail this one URL: currently, only a Wikipedia disambiguation
// page reached where a specific article was expected.
var errFatal = errors.New("fatal scrape condition")

// IsFatal reports whether err wraps errFatal.
func IsFatal(err error) bool {
	return errors.Is(err, errFatal)
}

// Kind classifies a scrape failure per the dispatcher's contract: permanent
// failures are cached as a negative entry, temporary failures are not cached
// and retried on the next build.
type Kind int

const (
	// Temporary marks a failure that should not be cached: network error,
	// timeout, rate limit, or an unimplemented scraper.
	Temporary Kind = iota
	// Permanent marks a failure that should be cached as a negative entry:
	// malformed response, 403/404, or a URL this dispatcher will never be
	// able to scrape.
	Permanent
)

func (k Kind) String() string {
	if k == Permanent {
		return "permanent"
	}
	return "temporary"
}

// Error wraps a scrape failure with its classification.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("scrape: %s failure: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func temporary(format string, args ...any) error {
	return &Error{Kind: Temporary, Err: fmt.Errorf(format, args...)}
}

func permanent(format string, args ...any) error {
	return &Error{Kind: Permanent, Err: fmt.Errorf(format, args...)}
}

// IsPermanent reports whether err is a permanent scrape failure.
func IsPermanent(err error) bool {
	var e *Error
	return asError(err, &e) && e.Kind == Permanent
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
