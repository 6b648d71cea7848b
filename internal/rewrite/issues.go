package rewrite

import (
	"fmt"
	"log/slog"
	"sync"
)

// FatalError marks a rewrite-pass failure that must abort the build: data in
// the corpus the author must fix, not a transient condition.
type FatalError struct {
	Pass   string
	Reason string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("rewrite: fatal in pass %q: %s", e.Pass, e.Reason)
}

// Warning is a non-fatal, logged-and-continue condition: filename
// truncation, a header ID that changed under sanitization, an unusual
// author/creator heuristic hit.
type Warning struct {
	Pass    string
	Message string
}

// IssueSink collects fatal errors and warnings raised by rewrite passes
// while walking a single document. One IssueSink is created per document;
// the first fatal error wins and aborts that document's (and the build's)
// processing once the driver observes it.
type IssueSink struct {
	mu       sync.Mutex
	fatal    *FatalError
	warnings []Warning
}

// NewIssueSink constructs an empty sink.
func NewIssueSink() *IssueSink {
	return &IssueSink{}
}

// ReportFatal records a fatal error. Only the first call has effect; later
// calls are dropped so the original diagnostic is preserved.
func (s *IssueSink) ReportFatal(pass, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fatal == nil {
		s.fatal = &FatalError{Pass: pass, Reason: reason}
	}
}

// Warn records a non-fatal warning.
func (s *IssueSink) Warn(pass, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = append(s.warnings, Warning{Pass: pass, Message: message})
}

// Fatal returns the first fatal error reported, or nil.
func (s *IssueSink) Fatal() *FatalError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fatal
}

// Warnings returns every warning reported, in order.
func (s *IssueSink) Warnings() []Warning {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Warning(nil), s.warnings...)
}

// LogWarnings writes every warning to logger at Warn level.
func (s *IssueSink) LogWarnings(logger *slog.Logger) {
	for _, w := range s.Warnings() {
		logger.Warn("rewrite: "+w.Message, "pass", w.Pass)
	}
}
