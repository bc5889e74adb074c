package main

import (
	"io"
	"log/slog"
)

// discardLogger returns a logger that drops every record, for
// commands (like "doctor") that wire the full gateway but only care
// about its return value, not its log output.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
