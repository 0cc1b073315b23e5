package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/beanboi7/chyp8/config"
)

// newLogger builds the process logger. The returned func closes the log
// file, if one was opened.
func newLogger(s *config.Settings) (*slog.Logger, func() error, error) {
	level, err := s.Level()
	if err != nil {
		return nil, nil, err
	}

	var out io.Writer = os.Stderr
	closer := func() error { return nil }

	switch {
	case s.Log.File != "":
		f, err := os.OpenFile(s.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		out, closer = f, f.Close
	case s.Frontend == config.FrontendTerminal:
		// termbox owns the screen
		out = io.Discard
	}

	l := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	return l, closer, nil
}
