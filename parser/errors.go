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
	"errors"
	"fmt"
)

var (
	// ErrResourceExhausted is returned when a parse exceeds its [Limits] or
	// its context is done. No tree is produced.
	ErrResourceExhausted = errors.New("parser: resource limit exceeded")

	// ErrLanguageMismatch is returned when the old tree given to a parse was
	// produced with a different language.
	ErrLanguageMismatch = errors.New("parser: old tree has a different language")

	// ErrEditMismatch is returned when the old tree given to a parse does
	// not describe the new text, because it was not edited, or was edited
	// incorrectly.
	ErrEditMismatch = errors.New("parser: old tree does not match the text")

	// ErrConcurrentUse is returned when a [Parser] is used by two goroutines
	// at once.
	ErrConcurrentUse = errors.New("parser: concurrent use of a parser")
)

// LimitError describes which limit a parse exceeded. It wraps
// [ErrResourceExhausted].
type LimitError struct {
	// The name of the field of [Limits] that was exceeded.
	Limit string
	// The configured value of the limit.
	Value int
	// The offset the parser had reached.
	Offset int
}

// Error implements [error].
func (e *LimitError) Error() string {
	return fmt.Sprintf("parser: exceeded %s (%d) at offset %d", e.Limit, e.Value, e.Offset)
}

// Unwrap implements [errors.Unwrap].
func (e *LimitError) Unwrap() error {
	return ErrResourceExhausted
}
