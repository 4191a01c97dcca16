// Package log configures the process-wide structured logger.
package log

import (
	"log/slog"
	"os"
)

// Setup installs the default text logger at the named level. The name is
// parsed the way slog spells levels ("debug", "WARN", "info-4"); anything
// unrecognized falls back to info.
func Setup(logLevel string) {
	level := slog.LevelInfo
	_ = level.UnmarshalText([]byte(logLevel))

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// WithModule returns the default logger tagged with the owning module.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
