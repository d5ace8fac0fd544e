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

import "fmt"

// Version is the table format version produced by this package.
//
// Tables with a version outside [MinVersion, Version] are rejected by [New].
const (
	Version    uint32 = 1
	MinVersion uint32 = 1
)

// Tables is the raw, serializable form of a compiled grammar.
//
// Tables are produced by a grammar compiler (see package builder) or decoded
// from a bundle. They must be passed through [New] before use; nothing in this
// module reads a Tables that has not been validated.
type Tables struct {
	// Format version; see [Version].
	Version uint32
	// The grammar's name, e.g. "polytope".
	Name string

	// Symbol metadata, indexed by [Symbol]. Symbols[0] is [End].
	Symbols []SymbolInfo
	// The number of terminals, including [End]. Terminals are the symbols
	// [0, TokenCount); the rest are non-terminals.
	TokenCount int
	// Field names, indexed by [FieldID]. FieldNames[0] is always "".
	FieldNames []string

	Rules []Rule
	// The start non-terminal. Accepting means reducing the whole input to it.
	Start Symbol

	StateCount   int
	InitialState StateID

	// ActionIndex[state*TokenCount + token] indexes ActionSets. Index zero
	// is the empty set, meaning a syntax error.
	ActionIndex []uint32
	ActionSets  [][]Action

	// Gotos[state*(len(Symbols)-TokenCount) + (nt-TokenCount)] is the state
	// entered after reducing to nt in state, or [NoState].
	Gotos []StateID

	Lex Lex
}

// Rule is a production LHS → RHS.
type Rule struct {
	LHS Symbol
	RHS []Symbol
	// Fields[i] is the field of RHS[i], or zero. May be nil if the rule has no
	// fields at all.
	Fields []FieldID

	Precedence int
	Assoc      Assoc
}

// ActionKind is the kind of an [Action].
type ActionKind uint8

const (
	Shift ActionKind = iota + 1
	Reduce
	Accept
)

// String implements [fmt.Stringer].
func (k ActionKind) String() string {
	switch k {
	case Shift:
		return "shift"
	case Reduce:
		return "reduce"
	case Accept:
		return "accept"
	default:
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
}

// Action is a single parse action.
//
// When a table cell holds several actions the grammar is ambiguous there and
// the parser forks. The actions are ordered by preference: the first one is
// the one taken when forking is not possible.
type Action struct {
	Kind ActionKind
	// The state to enter, for [Shift].
	State StateID
	// The rule to reduce by, for [Reduce].
	Rule RuleID
}

// String implements [fmt.Stringer].
func (a Action) String() string {
	switch a.Kind {
	case Shift:
		return fmt.Sprintf("shift(%d)", a.State)
	case Reduce:
		return fmt.Sprintf("reduce(%d)", a.Rule)
	default:
		return a.Kind.String()
	}
}

// Lex is a deterministic automaton over bytes.
//
// In order to keep the transition table small, bytes are first mapped to
// equivalence classes.
type Lex struct {
	// Classes maps each byte to its class.
	Classes [256]uint8
	// The number of byte classes; every entry of Classes is below this.
	ClassCount int

	// Next[state*ClassCount + class] is the next automaton state, or -1 if
	// there is no transition. State 0 is the start state.
	Next []int32

	// Accept[state] lists the terminals recognized on reaching state, in
	// declaration order.
	Accept [][]Symbol
}

// States returns the number of automaton states.
func (l *Lex) States() int {
	return len(l.Accept)
}

// Step performs one transition, returning -1 if there is none.
func (l *Lex) Step(state int32, b byte) int32 {
	return l.Next[int(state)*l.ClassCount+int(l.Classes[b])]
}
