// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// newLogger builds the operational logger. Logs go to stderr so command
// output on stdout stays clean.
func newLogger(level string, json bool) zerolog.Logger {
	return newLoggerTo(os.Stderr, level, json)
}

func newLoggerTo(w io.Writer, level string, json bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if !json {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
