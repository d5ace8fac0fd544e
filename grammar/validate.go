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

import "math"

// validate checks every cross-reference in t, so that the lexer and parser
// never need to bounds-check table contents.
func validate(t *Tables) *ConfigError {
	name := t.Name
	if t.Version < MinVersion || t.Version > Version {
		return incompatible(name, "table version %d, want %d through %d", t.Version, MinVersion, Version)
	}

	symbols := len(t.Symbols)
	switch {
	case symbols == 0:
		return corrupt(name, "no symbols")
	case symbols >= int(Error):
		return corrupt(name, "too many symbols: %d", symbols)
	case t.TokenCount <= 0 || t.TokenCount >= symbols:
		return corrupt(name, "token count %d out of range for %d symbols", t.TokenCount, symbols)
	case t.Symbols[End].Kind != Terminal:
		return corrupt(name, "symbol 0 is not the end-of-input terminal")
	}
	for i, info := range t.Symbols {
		terminal := i < t.TokenCount
		if terminal != (info.Kind == Terminal) {
			return corrupt(name, "symbol %d (%q) has kind %v", i, info.Name, info.Kind)
		}
		if !terminal && (info.Extra || info.Sync || info.External) {
			return corrupt(name, "non-terminal %d (%q) has terminal flags", i, info.Name)
		}
	}
	if len(t.FieldNames) == 0 || t.FieldNames[0] != "" {
		return corrupt(name, "field zero must be unnamed")
	}
	if int(t.Start) < t.TokenCount || int(t.Start) >= symbols {
		return corrupt(name, "start symbol %d is not a non-terminal", t.Start)
	}

	if len(t.Rules) == 0 || len(t.Rules) > math.MaxUint16 {
		return corrupt(name, "rule count %d out of range", len(t.Rules))
	}
	for i, rule := range t.Rules {
		if int(rule.LHS) < t.TokenCount || int(rule.LHS) >= symbols {
			return corrupt(name, "rule %d: LHS %d is not a non-terminal", i, rule.LHS)
		}
		for _, sym := range rule.RHS {
			if int(sym) >= symbols {
				return corrupt(name, "rule %d: RHS references symbol %d", i, sym)
			}
		}
		if rule.Fields != nil && len(rule.Fields) != len(rule.RHS) {
			return corrupt(name, "rule %d: %d fields for %d RHS symbols", i, len(rule.Fields), len(rule.RHS))
		}
		for _, f := range rule.Fields {
			if int(f) >= len(t.FieldNames) {
				return corrupt(name, "rule %d: field %d out of range", i, f)
			}
		}
		if rule.Assoc > AssocRight {
			return corrupt(name, "rule %d: invalid associativity %d", i, rule.Assoc)
		}
	}

	if t.StateCount <= 0 || t.StateCount >= int(NoState) {
		return corrupt(name, "state count %d out of range", t.StateCount)
	}
	if int(t.InitialState) >= t.StateCount {
		return corrupt(name, "initial state %d out of range", t.InitialState)
	}
	if len(t.ActionIndex) != t.StateCount*t.TokenCount {
		return corrupt(name, "action table has %d cells, want %d", len(t.ActionIndex), t.StateCount*t.TokenCount)
	}
	if len(t.ActionSets) == 0 || len(t.ActionSets[0]) != 0 {
		return corrupt(name, "action set zero must be empty")
	}
	for i, idx := range t.ActionIndex {
		if int(idx) >= len(t.ActionSets) {
			return corrupt(name, "action cell %d references set %d", i, idx)
		}
	}
	for i, set := range t.ActionSets {
		for _, act := range set {
			switch act.Kind {
			case Shift:
				if int(act.State) >= t.StateCount {
					return corrupt(name, "action set %d: shift to state %d", i, act.State)
				}
			case Reduce:
				if int(act.Rule) >= len(t.Rules) {
					return corrupt(name, "action set %d: reduce by rule %d", i, act.Rule)
				}
			case Accept:
			default:
				return corrupt(name, "action set %d: invalid action kind %d", i, act.Kind)
			}
		}
	}
	if len(t.Gotos) != t.StateCount*(symbols-t.TokenCount) {
		return corrupt(name, "goto table has %d cells, want %d", len(t.Gotos), t.StateCount*(symbols-t.TokenCount))
	}
	for i, next := range t.Gotos {
		if next != NoState && int(next) >= t.StateCount {
			return corrupt(name, "goto cell %d references state %d", i, next)
		}
	}

	lex := &t.Lex
	if lex.ClassCount <= 0 || lex.ClassCount > 256 {
		return corrupt(name, "lexer class count %d out of range", lex.ClassCount)
	}
	for b, class := range lex.Classes {
		if int(class) >= lex.ClassCount {
			return corrupt(name, "lexer: byte %#02x maps to class %d", b, class)
		}
	}
	if len(lex.Accept) == 0 {
		return corrupt(name, "lexer has no states")
	}
	if len(lex.Next) != len(lex.Accept)*lex.ClassCount {
		return corrupt(name, "lexer transition table has %d cells, want %d", len(lex.Next), len(lex.Accept)*lex.ClassCount)
	}
	for i, next := range lex.Next {
		if next < -1 || int(next) >= len(lex.Accept) {
			return corrupt(name, "lexer transition %d targets state %d", i, next)
		}
	}
	for i, accept := range lex.Accept {
		for _, sym := range accept {
			if int(sym) >= t.TokenCount || sym == End {
				return corrupt(name, "lexer state %d accepts non-token symbol %d", i, sym)
			}
		}
	}

	return nil
}
