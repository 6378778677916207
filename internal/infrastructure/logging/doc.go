// Package logging provides structured logging for hublink.
//
// It wraps the standard library's log/slog with configuration-driven
// level filtering, JSON or text output, and default service fields.
// Packages that need a logger but should not depend on this package
// declare a minimal local Logger interface instead; this package's
// Logger satisfies all of them.
package logging
