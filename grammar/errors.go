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

package grammar

import (
	"errors"
	"fmt"
)

var (
	// ErrIncompatible is returned when tables were produced for a table
	// format this package does not understand.
	ErrIncompatible = errors.New("grammar: incompatible table version")

	// ErrCorrupt is returned when tables are internally inconsistent, or
	// when a bundle cannot be decoded.
	ErrCorrupt = errors.New("grammar: corrupt tables")
)

// ConfigError is a configuration failure: the tables handed to [New] or
// [Decode] cannot be used.
//
// The value of Unwrap() is either [ErrIncompatible] or [ErrCorrupt].
type ConfigError struct {
	// The grammar's name, if known.
	Grammar string
	// What is wrong, e.g. "rule 4: RHS references symbol 99".
	Reason string

	kind error
}

func corrupt(name, format string, args ...any) *ConfigError {
	return &ConfigError{Grammar: name, Reason: fmt.Sprintf(format, args...), kind: ErrCorrupt}
}

func incompatible(name, format string, args ...any) *ConfigError {
	return &ConfigError{Grammar: name, Reason: fmt.Sprintf(format, args...), kind: ErrIncompatible}
}

// Error implements [error].
func (e *ConfigError) Error() string {
	if e.Grammar == "" {
		return fmt.Sprintf("%v: %s", e.kind, e.Reason)
	}
	return fmt.Sprintf("%v: %s: %s", e.kind, e.Grammar, e.Reason)
}

// Unwrap returns the sentinel this error is an instance of.
func (e *ConfigError) Unwrap() error {
	return e.kind
}
