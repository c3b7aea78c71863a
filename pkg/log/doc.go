// Package log provides the structured logging facade used across filings.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// Field type for structured context. Internally records go through a
// log/slog handler that feeds the facade's formatters and outputs, so
// libraries that want a *slog.Logger can be handed BaseLogger.Slog().
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("dispatcher"))
//	l.Info("dispatcher started", log.Int("max_queued", 0))
//
// # Configuration
//
// ApplyConfig builds a logger from a declarative Config: text or JSON
// formatting, console/file/null outputs, key redaction and per-message
// sampling.
//
// # Interop
//
// RedirectStdLog routes the standard library logger (used by pebble) into a
// Logger; ToStdLogger wraps one for APIs that take *log.Logger.
package log
