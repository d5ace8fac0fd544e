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

package parser

import (
	"time"

	"github.com/charmbracelet/log"
)

// Limits bounds the resources a single parse may use. Zero fields take the
// value from [DefaultLimits].
type Limits struct {
	// The maximum number of stack versions alive at once. Beyond this, the
	// parser stops forking and takes the preferred action.
	MaxStacks int
	// The maximum number of parse actions, counting the actions simulated
	// during error recovery.
	MaxOperations int
	// The maximum height of a stack.
	MaxDepth int
	// The maximum input length.
	MaxBytes int
	// Wall-clock limit for the parse. Zero means none, beyond the deadline of
	// the context.
	Timeout time.Duration
	// The number of tokens that must parse after an error for a recovery
	// strategy to be accepted.
	RecoveryWindow int
}

// DefaultLimits are the limits used for zero fields in [Limits].
var DefaultLimits = Limits{
	MaxStacks:      8,
	MaxOperations:  1 << 28,
	MaxDepth:       1 << 16,
	MaxBytes:       1 << 30,
	RecoveryWindow: 3,
}

func (l Limits) withDefaults() Limits {
	if l.MaxStacks <= 0 {
		l.MaxStacks = DefaultLimits.MaxStacks
	}
	if l.MaxOperations <= 0 {
		l.MaxOperations = DefaultLimits.MaxOperations
	}
	if l.MaxDepth <= 0 {
		l.MaxDepth = DefaultLimits.MaxDepth
	}
	if l.MaxBytes <= 0 {
		l.MaxBytes = DefaultLimits.MaxBytes
	}
	if l.Timeout < 0 {
		l.Timeout = 0
	}
	if l.RecoveryWindow <= 0 {
		l.RecoveryWindow = DefaultLimits.RecoveryWindow
	}
	return l
}

// Option configures a [Parser].
type Option func(*Parser)

// WithLimits sets the parser's resource limits.
func WithLimits(limits Limits) Option {
	return func(p *Parser) {
		p.limits = limits.withDefaults()
	}
}

// WithLogger sets the logger that parse decisions are reported to, at debug
// level. By default, the logger attached to the context passed to
// [Parser.Parse] is used, if any.
func WithLogger(logger *log.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}
