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
	"math/bits"
	"slices"
)

// ExternalScanner is a contextual tokenizer that runs before the lexer
// automaton.
//
// Implementations must be stateless: the result may only depend on the
// arguments, since the incremental parser restarts lexing at arbitrary
// offsets.
type ExternalScanner interface {
	// Scan attempts to recognize an external terminal at src[pos:]. valid
	// reports which terminals the parser can currently accept.
	//
	// On success, returns the terminal, the end offset of the token, and one
	// past the furthest byte that was examined.
	Scan(src []byte, pos int, valid func(Symbol) bool) (sym Symbol, end, lexEnd int, ok bool)
}

// Option configures a [Language] in [New].
type Option func(*Language)

// WithExternalScanner installs an external scanner.
func WithExternalScanner(scanner ExternalScanner) Option {
	return func(l *Language) { l.external = scanner }
}

// Language is a validated, immutable grammar.
type Language struct {
	tables     Tables
	ntCount    int
	stateWords int

	valid    []uint64 // stateWords words per state.
	expected [][]Symbol
	extras   []Symbol

	byName  map[string]Symbol
	anon    map[string]Symbol
	fields  map[string]FieldID
	errInfo SymbolInfo

	external ExternalScanner
}

// New validates t and builds a [Language] from it.
//
// On failure returns a [*ConfigError]; no partially initialized value is ever
// returned. t must not be modified afterwards.
func New(t *Tables, opts ...Option) (*Language, error) {
	if t == nil {
		return nil, corrupt("", "nil tables")
	}
	if err := validate(t); err != nil {
		return nil, err
	}

	l := &Language{
		tables:  *t,
		ntCount: len(t.Symbols) - t.TokenCount,
		byName:  make(map[string]Symbol, len(t.Symbols)),
		anon:    make(map[string]Symbol),
		fields:  make(map[string]FieldID, len(t.FieldNames)),
		errInfo: SymbolInfo{Name: "ERROR", Kind: NonTerminal, Named: true, Visible: true},
	}
	for _, opt := range opts {
		opt(l)
	}

	for i, info := range t.Symbols {
		sym := Symbol(i)
		if _, ok := l.byName[info.Name]; !ok || (info.Named && !l.tables.Symbols[l.byName[info.Name]].Named) {
			l.byName[info.Name] = sym
		}
		if _, ok := l.anon[info.Name]; !ok && !info.Named {
			l.anon[info.Name] = sym
		}
		if info.Extra {
			l.extras = append(l.extras, sym)
		}
	}
	for i, name := range t.FieldNames[1:] {
		l.fields[name] = FieldID(i + 1)
	}

	l.stateWords = (t.TokenCount + 63) / 64
	l.valid = make([]uint64, l.stateWords*t.StateCount)
	l.expected = make([][]Symbol, t.StateCount)
	for state := range t.StateCount {
		words := l.valid[state*l.stateWords : (state+1)*l.stateWords]
		for tok := range t.TokenCount {
			if t.Symbols[tok].Extra || t.ActionIndex[state*t.TokenCount+tok] != 0 {
				words[tok/64] |= 1 << (tok % 64)
			}
			if !t.Symbols[tok].Extra && t.ActionIndex[state*t.TokenCount+tok] != 0 {
				l.expected[state] = append(l.expected[state], Symbol(tok))
			}
		}
	}

	return l, nil
}

// Name returns the grammar's name.
func (l *Language) Name() string {
	return l.tables.Name
}

// Version returns the table format version the grammar was encoded with.
func (l *Language) Version() uint32 {
	return l.tables.Version
}

// Start returns the start symbol.
func (l *Language) Start() Symbol {
	return l.tables.Start
}

// InitialState returns the parse state at the beginning of input.
func (l *Language) InitialState() StateID {
	return l.tables.InitialState
}

// StateCount returns the number of parse states.
func (l *Language) StateCount() int {
	return l.tables.StateCount
}

// TokenCount returns the number of terminals, including [End].
func (l *Language) TokenCount() int {
	return l.tables.TokenCount
}

// SymbolCount returns the number of symbols, excluding [Error].
func (l *Language) SymbolCount() int {
	return len(l.tables.Symbols)
}

// IsTerminal returns whether sym is a terminal. [Error] is not.
func (l *Language) IsTerminal(sym Symbol) bool {
	return int(sym) < l.tables.TokenCount
}

// Info returns the metadata for sym. [Error] is a visible, named symbol called
// "ERROR".
func (l *Language) Info(sym Symbol) SymbolInfo {
	if int(sym) >= len(l.tables.Symbols) {
		return l.errInfo
	}
	return l.tables.Symbols[sym]
}

// SymbolName returns the name of sym.
func (l *Language) SymbolName(sym Symbol) string {
	return l.Info(sym).Name
}

// SymbolByName looks up a symbol by name. Named symbols take precedence over
// anonymous ones with the same spelling.
func (l *Language) SymbolByName(name string) (Symbol, bool) {
	if name == l.errInfo.Name {
		return Error, true
	}
	sym, ok := l.byName[name]
	return sym, ok
}

// SymbolForName looks up a symbol by name and namedness. This finds the
// anonymous terminal for a keyword that is spelled like a rule.
func (l *Language) SymbolForName(name string, named bool) (Symbol, bool) {
	if !named {
		sym, ok := l.anon[name]
		return sym, ok
	}
	sym, ok := l.SymbolByName(name)
	if !ok || !l.Info(sym).Named {
		return 0, false
	}
	return sym, true
}

// Extras returns the extra terminals.
func (l *Language) Extras() []Symbol {
	return l.extras
}

// RuleCount returns the number of rules.
func (l *Language) RuleCount() int {
	return len(l.tables.Rules)
}

// Rule returns a rule. The returned value shares memory with l and must not be
// modified.
func (l *Language) Rule(id RuleID) Rule {
	return l.tables.Rules[id]
}

// Field returns the field for the index-th RHS position of a rule.
func (l *Language) Field(rule RuleID, index int) FieldID {
	if int(rule) >= len(l.tables.Rules) {
		return 0
	}
	fields := l.tables.Rules[rule].Fields
	if index < 0 || index >= len(fields) {
		return 0
	}
	return fields[index]
}

// FieldName returns the name of a field. Field zero is "".
func (l *Language) FieldName(id FieldID) string {
	if int(id) >= len(l.tables.FieldNames) {
		return ""
	}
	return l.tables.FieldNames[id]
}

// FieldByName looks up a field.
func (l *Language) FieldByName(name string) (FieldID, bool) {
	id, ok := l.fields[name]
	return id, ok
}

// Actions returns the actions for the given state and lookahead terminal. The
// result must not be modified.
//
// Returns nil on a syntax error, including for any non-terminal lookahead.
func (l *Language) Actions(state StateID, sym Symbol) []Action {
	if int(state) >= l.tables.StateCount || int(sym) >= l.tables.TokenCount {
		return nil
	}
	return l.tables.ActionSets[l.tables.ActionIndex[int(state)*l.tables.TokenCount+int(sym)]]
}

// Goto returns the state entered after reducing to nt in state.
func (l *Language) Goto(state StateID, nt Symbol) (StateID, bool) {
	idx := int(nt) - l.tables.TokenCount
	if int(state) >= l.tables.StateCount || idx < 0 || idx >= l.ntCount {
		return NoState, false
	}
	next := l.tables.Gotos[int(state)*l.ntCount+idx]
	return next, next != NoState
}

// Valid returns whether sym may be lexed in state: either the state has an
// action for it, or it is an extra.
func (l *Language) Valid(state StateID, sym Symbol) bool {
	if int(state) >= l.tables.StateCount || int(sym) >= l.tables.TokenCount {
		return false
	}
	return l.valid[int(state)*l.stateWords+int(sym)/64]&(1<<(sym%64)) != 0
}

// ValidCount returns how many terminals are valid in state.
func (l *Language) ValidCount(state StateID) int {
	if int(state) >= l.tables.StateCount {
		return 0
	}
	var n int
	for _, w := range l.valid[int(state)*l.stateWords : int(state+1)*l.stateWords] {
		n += bits.OnesCount64(w)
	}
	return n
}

// Expected returns the non-extra terminals state has actions for, in
// ascending order. The result must not be modified.
func (l *Language) Expected(state StateID) []Symbol {
	if int(state) >= l.tables.StateCount {
		return nil
	}
	return l.expected[state]
}

// IsSync returns whether sym is a synchronizing terminal. [End] always is.
func (l *Language) IsSync(sym Symbol) bool {
	return sym == End || (l.IsTerminal(sym) && l.tables.Symbols[sym].Sync)
}

// Lex returns the lexer automaton. It must not be modified.
func (l *Language) Lex() *Lex {
	return &l.tables.Lex
}

// External returns the external scanner, if any.
func (l *Language) External() ExternalScanner {
	return l.external
}

// Conflicts returns the number of table cells with more than one action.
func (l *Language) Conflicts() int {
	var n int
	for _, idx := range l.tables.ActionIndex {
		if len(l.tables.ActionSets[idx]) > 1 {
			n++
		}
	}
	return n
}

// Symbols returns the symbols of every kind in symbol order.
func (l *Language) Symbols() []SymbolInfo {
	return slices.Clone(l.tables.Symbols)
}
