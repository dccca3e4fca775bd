// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// isTerminal reports whether w is a terminal file.
func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

// newLogger writes human-readable records to a terminal and JSON
// records otherwise.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	options := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		options.Level = slog.LevelDebug
	}
	if isTerminal(w) {
		return slog.New(slog.NewTextHandler(w, options))
	}
	return slog.New(slog.NewJSONHandler(w, options))
}

// replyPrinter writes one line per reply. Origins are colored when
// writing to a terminal.
type replyPrinter struct {
	w      io.Writer
	output *termenv.Output
}

func newReplyPrinter(w io.Writer) *replyPrinter {
	if isTerminal(w) {
		return &replyPrinter{w: w, output: termenv.NewOutput(w)}
	}
	return &replyPrinter{w: w, output: termenv.NewOutput(w, termenv.WithProfile(termenv.Ascii))}
}

func (p *replyPrinter) reply(sequence int, origin, message string) {
	styledOrigin := p.output.String(origin).Foreground(p.output.Color("6")).String()
	fmt.Fprintf(p.w, "reply %d from %s: %s\n", sequence, styledOrigin, message)
}
