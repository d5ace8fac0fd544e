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

// Package config loads the YAML configuration file of the polyparse tool.
//
// A configuration file looks like this; every key is optional.
//
//	log_level: debug
//	color: never
//	jobs: 4
//	exclude:
//	  - "**/testdata/**"
//	limits:
//	  max_stacks: 16
//	  timeout: 2s
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/bufbuild/polytope/parser"
)

// FileName is the configuration file looked for in the working directory
// when no path is given explicitly.
const FileName = ".polyparse.yaml"

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

var (
	levels = []string{"debug", "info", "warn", "warning", "error"}
	colors = []string{ColorAuto, ColorAlways, ColorNever}
)

// Config is the tool's configuration.
type Config struct {
	LogLevel string `yaml:"log_level"`
	Color    string `yaml:"color"`
	// The number of files parsed in parallel. Zero means GOMAXPROCS.
	Jobs int `yaml:"jobs"`
	// Glob patterns of paths to skip when expanding directories and globs.
	Exclude []string `yaml:"exclude"`
	Limits  Limits   `yaml:"limits"`

	// The file this configuration was read from, if any.
	Path string `yaml:"-"`
}

// Limits mirrors [parser.Limits]. Zero fields take the parser's defaults.
type Limits struct {
	MaxStacks      int           `yaml:"max_stacks"`
	MaxOperations  int           `yaml:"max_operations"`
	MaxDepth       int           `yaml:"max_depth"`
	MaxBytes       int           `yaml:"max_bytes"`
	Timeout        time.Duration `yaml:"timeout"`
	RecoveryWindow int           `yaml:"recovery_window"`
}

// Default returns the configuration used when there is no file.
func Default() *Config {
	return &Config{LogLevel: "info", Color: ColorAuto}
}

// Load reads the configuration at path.
//
// If path is empty, [FileName] is read from the working directory if it
// exists, and the default configuration is returned otherwise.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = FileName
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return Default(), nil
	} else if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Parse decodes and validates a configuration. Unknown keys are an error.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every value is in range.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(levels, c.LogLevel) {
		errs = append(errs, fmt.Errorf("log_level: unknown level %q", c.LogLevel))
	}
	if !slices.Contains(colors, c.Color) {
		errs = append(errs, fmt.Errorf("color: want one of %q, got %q", colors, c.Color))
	}
	if c.Jobs < 0 {
		errs = append(errs, fmt.Errorf("jobs: must not be negative, got %d", c.Jobs))
	}
	for _, pattern := range c.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			errs = append(errs, fmt.Errorf("exclude: invalid pattern %q", pattern))
		}
	}

	l := c.Limits
	for _, limit := range []struct {
		name  string
		value int
	}{
		{"max_stacks", l.MaxStacks},
		{"max_operations", l.MaxOperations},
		{"max_depth", l.MaxDepth},
		{"max_bytes", l.MaxBytes},
		{"recovery_window", l.RecoveryWindow},
		{"timeout", int(l.Timeout)},
	} {
		if limit.value < 0 {
			errs = append(errs, fmt.Errorf("limits.%s: must not be negative", limit.name))
		}
	}
	return errors.Join(errs...)
}

// Excluded returns whether path matches one of the exclude patterns. path
// uses forward slashes.
func (c *Config) Excluded(path string) bool {
	for _, pattern := range c.Exclude {
		if doublestar.MatchUnvalidated(pattern, path) {
			return true
		}
	}
	return false
}

// ParserOptions returns the parser options this configuration asks for.
func (c *Config) ParserOptions() []parser.Option {
	return []parser.Option{parser.WithLimits(parser.Limits{
		MaxStacks:      c.Limits.MaxStacks,
		MaxOperations:  c.Limits.MaxOperations,
		MaxDepth:       c.Limits.MaxDepth,
		MaxBytes:       c.Limits.MaxBytes,
		Timeout:        c.Limits.Timeout,
		RecoveryWindow: c.Limits.RecoveryWindow,
	})}
}
