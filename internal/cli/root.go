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

// Package cli implements the polyparse command.
package cli

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/bufbuild/polytope/internal/config"
	"github.com/bufbuild/polytope/internal/logging"
)

// ErrDiagnostics is returned when a command ran to completion but found
// syntax errors. The errors have already been printed.
var ErrDiagnostics = errors.New("syntax errors found")

// BuildInfo holds build-time version information.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// app is the state shared by every subcommand, set up before any of them
// runs.
type app struct {
	configPath string
	logLevel   string
	color      string

	cfg    *config.Config
	logger *log.Logger
}

// NewRootCommand creates the polyparse command with all subcommands.
func NewRootCommand(info BuildInfo) *cobra.Command {
	a := new(app)
	root := &cobra.Command{
		Use:   "polyparse",
		Short: "Parse, check and incrementally reparse Polytope files",
		Long: `polyparse drives the incremental GLR parser over Polytope source files.

It prints syntax trees, reports syntax errors, replays edit scripts through
the incremental reparser, and dumps the compiled parse tables.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to config file (default "+config.FileName+")")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&a.color, "color", "", "colorize output: auto, always, never")

	root.AddCommand(
		newParseCommand(a),
		newCheckCommand(a),
		newEditCommand(a),
		newTablesCommand(a),
		newVersionCommand(info),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.color != "" {
		cfg.Color = a.color
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	a.logger = logging.New(cmd.ErrOrStderr(), cfg.LogLevel)
	if cfg.Path != "" {
		a.logger.Debug("loaded configuration", logging.KeyPath, cfg.Path)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logging.WithLogger(ctx, a.logger))
	return nil
}

// colorize returns whether output written to w should be colored.
func (a *app) colorize(w io.Writer) bool {
	switch a.cfg.Color {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
