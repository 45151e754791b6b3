// Package stdlogadapter implements ratelimiter.Logger on the standard library log package.
package stdlogadapter

import (
	"log"
)

// StdLogger implements ratelimiter.Logger using Go standard library log.
// Levels are rendered as a "[LEVEL] " prefix; Debug output can be switched off.
type StdLogger struct {
	logger *log.Logger
	debug  bool
}

// New creates a new StdLogger with debug output enabled.
// If nil is passed, uses the default logger.
func New(l *log.Logger) *StdLogger {
	if l == nil {
		l = log.Default()
	}
	return &StdLogger{
		logger: l,
		debug:  true,
	}
}

// WithDebug returns a copy of s with debug messages enabled or suppressed.
func (s *StdLogger) WithDebug(enabled bool) *StdLogger {
	c := *s
	c.debug = enabled
	return &c
}

// Debugf logs a debug-level message
func (s *StdLogger) Debugf(format string, args ...interface{}) {
	if !s.debug {
		return
	}
	s.logger.Printf("[DEBUG] "+format, args...)
}

// Warnf logs a warning-level message
func (s *StdLogger) Warnf(format string, args ...interface{}) {
	s.logger.Printf("[WARN] "+format, args...)
}

// Errorf logs an error-level message
func (s *StdLogger) Errorf(format string, args ...interface{}) {
	s.logger.Printf("[ERROR] "+format, args...)
}
