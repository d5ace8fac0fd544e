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
	"fmt"
	"math"
)

// Symbol is a grammar symbol: a terminal or a non-terminal.
//
// Terminals are numbered first, starting with [End]; non-terminals follow.
type Symbol uint16

const (
	// End is the end-of-input terminal. It is always symbol zero.
	End Symbol = 0

	// Error is the symbol of error nodes and of lexical error tokens. It is
	// never present in a table.
	Error Symbol = math.MaxUint16
)

// StateID is a parse state.
type StateID uint16

// NoState is a sentinel for "no state": a missing goto entry, or a token that
// was not lexed in any particular parse state.
const NoState StateID = math.MaxUint16

// RuleID indexes [Tables.Rules].
type RuleID uint16

// NoRule is the rule of nodes that were not produced by a reduction, such as
// error nodes.
const NoRule RuleID = math.MaxUint16

// FieldID indexes [Tables.FieldNames]. Zero means "no field".
type FieldID uint16

// SymbolKind classifies a [Symbol].
type SymbolKind uint8

const (
	Terminal SymbolKind = iota
	NonTerminal
	// Auxiliary symbols are non-terminals introduced by grammar compilation,
	// such as the helper rules behind a repetition. They are never visible.
	Auxiliary
)

// String implements [fmt.Stringer].
func (k SymbolKind) String() string {
	switch k {
	case Terminal:
		return "terminal"
	case NonTerminal:
		return "non-terminal"
	case Auxiliary:
		return "auxiliary"
	default:
		return fmt.Sprintf("SymbolKind(%d)", int(k))
	}
}

// SymbolInfo is the metadata for one symbol.
type SymbolInfo struct {
	Name string
	Kind SymbolKind

	// Named symbols are those defined by name in the grammar, as opposed to
	// anonymous string literals.
	Named bool
	// Visible symbols appear in the navigable tree. Hidden and auxiliary
	// rules, and whitespace, are not visible.
	Visible bool
	// Extra terminals may appear between any two tokens without being
	// mentioned by any rule.
	Extra bool
	// Sync terminals are synchronization points for error recovery.
	Sync bool
	// External terminals are produced by an [ExternalScanner] rather than the
	// lexer automaton.
	External bool
}

// Assoc is the associativity of a rule, used to resolve conflicts.
type Assoc uint8

const (
	AssocNone Assoc = iota
	AssocLeft
	AssocRight
)

// String implements [fmt.Stringer].
func (a Assoc) String() string {
	switch a {
	case AssocNone:
		return "none"
	case AssocLeft:
		return "left"
	case AssocRight:
		return "right"
	default:
		return fmt.Sprintf("Assoc(%d)", int(a))
	}
}
