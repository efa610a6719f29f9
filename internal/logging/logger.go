// Package logging builds the slog loggers shared across the engine and its
// adapters.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// New returns the application logger. Output goes to stderr so stdout stays
// clean for the chat transcript and the MCP stdio framing. Attributes logged
// under "error" are rewritten to "err" so the key is uniform across packages.
func New(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}))
}

// NewNop returns a logger that discards everything. Components default to it
// when no logger is injected.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
