// Package logging is a thin seam over the standard library's log package.
// The teacher repo has no logging dependency of its own — its examples call
// log.Fatalf directly from main — so pf routes its one diagnostic (a
// degenerate-weights warning logged just before the error is returned)
// through this package rather than a heavier structured logger.
package logging

import "log"

// Logger is satisfied by *log.Logger; callers needing a no-op sink can
// supply their own implementation (e.g. in tests).
type Logger interface {
	Printf(format string, args ...interface{})
}

var std Logger = log.Default()

// SetOutput replaces the package-level logger, letting a driver redirect or
// silence diagnostics.
func SetOutput(l Logger) {
	if l == nil {
		return
	}
	std = l
}

// Warnf logs a diagnostic at warning level. The standard library has no
// level concept, so this simply prefixes the message, matching the
// teacher's own "Failed to ...: %v" phrasing.
func Warnf(format string, args ...interface{}) {
	std.Printf("warn: "+format, args...)
}
