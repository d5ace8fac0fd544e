// Copyright 2020-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logging wraps charmbracelet/log for the parser and the command
// line tool.
//
// Libraries in this module never log unless given a logger; the default
// logger discards everything.
package logging

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

// Keys used for structured fields, so that log lines from different
// packages agree.
const (
	KeyOffset   = "offset"
	KeyState    = "state"
	KeySymbol   = "symbol"
	KeyVersions = "versions"
	KeyStrategy = "strategy"
	KeyReused   = "reused"
	KeyDuration = "duration"
	KeyPath     = "path"
)

type contextKey struct{}

var discard = log.New(io.Discard)

// New returns a logger writing to w at the given level, one of "debug",
// "info", "warn" or "error". Unknown levels mean "info".
func New(w io.Writer, level string) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: false,
		ReportCaller:    false,
	})
	logger.SetLevel(ParseLevel(level))
	return logger
}

// ParseLevel converts a level name into a [log.Level].
func ParseLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return discard
}

// FromContext returns the logger attached to ctx, or [Discard].
func FromContext(ctx context.Context) *log.Logger {
	if ctx == nil {
		return discard
	}
	if logger, ok := ctx.Value(contextKey{}).(*log.Logger); ok && logger != nil {
		return logger
	}
	return discard
}

// WithLogger returns a context carrying logger.
func WithLogger(ctx context.Context, logger *log.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, contextKey{}, logger)
}
