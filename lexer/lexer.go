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

// Package lexer converts bytes into tokens using a grammar's lexer
// automaton.
//
// The lexer is driven by the parser: each call to [Lexer.Next] is given the
// set of terminals the parser can accept at that point, and tokens that are
// valid there are preferred over tokens that are not. This is what allows
// keywords to double as identifiers where the grammar permits it.
//
// A [Lexer] holds no state between calls, so it can be restarted at any
// offset.
package lexer

import (
	"fmt"

	"github.com/bufbuild/polytope/grammar"
)

// Token is a lexed token.
type Token struct {
	Symbol     grammar.Symbol
	Start, End int

	// LexEnd is one past the last byte the lexer examined to produce this
	// token; it is len(src)+1 if the lexer observed the end of input. An edit
	// anywhere before LexEnd may change this token.
	LexEnd int

	// Extra is set for tokens that may appear between any two tokens, such as
	// whitespace.
	Extra bool
}

// IsError returns whether this is a lexical error token, i.e., a single byte
// that no token matches.
func (t Token) IsError() bool {
	return t.Symbol == grammar.Error
}

// Len returns the length of the token in bytes.
func (t Token) Len() int {
	return t.End - t.Start
}

// String implements [fmt.Stringer].
func (t Token) String() string {
	return fmt.Sprintf("%d[%d:%d]", t.Symbol, t.Start, t.End)
}

// Lexer tokenizes a fixed input.
type Lexer struct {
	lang *grammar.Language
	lex  *grammar.Lex
	src  []byte
	live []bool
}

// New returns a lexer over src.
func New(lang *grammar.Language, src []byte) *Lexer {
	lex := lang.Lex()
	live := make([]bool, lex.States())
	for state := range live {
		row := lex.Next[state*lex.ClassCount : (state+1)*lex.ClassCount]
		for _, next := range row {
			if next >= 0 {
				live[state] = true
				break
			}
		}
	}
	return &Lexer{lang: lang, lex: lex, src: src, live: live}
}

// Source returns the text being tokenized.
func (l *Lexer) Source() []byte {
	return l.src
}

// InState lexes the token at pos, using the terminals valid in the given
// parse state as hints.
func (l *Lexer) InState(pos int, state grammar.StateID) Token {
	return l.Next(pos, func(sym grammar.Symbol) bool { return l.lang.Valid(state, sym) })
}

// Next lexes the token at pos.
//
// valid reports which terminals the parser can accept; a nil valid accepts
// everything. Among the matches, those for valid terminals are considered
// first; then the longest match wins, and among equally long matches the
// terminal declared first. With no match at all, a one-byte error token is
// returned.
//
// At the end of input, returns a zero-width [grammar.End] token.
func (l *Lexer) Next(pos int, valid func(grammar.Symbol) bool) Token {
	if pos >= len(l.src) {
		return Token{Symbol: grammar.End, Start: len(l.src), End: len(l.src), LexEnd: len(l.src) + 1}
	}
	if valid == nil {
		valid = func(grammar.Symbol) bool { return true }
	}

	if ext := l.lang.External(); ext != nil {
		sym, end, lexEnd, ok := ext.Scan(l.src, pos, valid)
		if ok && end > pos && l.lang.IsTerminal(sym) {
			return Token{
				Symbol: sym,
				Start:  pos,
				End:    end,
				LexEnd: max(lexEnd, end),
				Extra:  l.lang.Info(sym).Extra,
			}
		}
	}

	type match struct {
		sym grammar.Symbol
		end int
	}
	best, fallback := match{end: -1}, match{end: -1}

	var examined int
	state := int32(0)
	for i := pos; ; {
		if i == len(l.src) {
			examined = i + 1
			break
		}
		next := l.lex.Step(state, l.src[i])
		if next < 0 {
			examined = i + 1
			break
		}
		state = next
		i++

		if accept := l.lex.Accept[state]; len(accept) > 0 {
			fallback = match{accept[0], i}
			for _, sym := range accept {
				if valid(sym) {
					best = match{sym, i}
					break
				}
			}
		}
		if !l.live[state] {
			examined = i
			break
		}
	}

	if best.end < 0 {
		best = fallback
	}
	if best.end < 0 {
		return Token{Symbol: grammar.Error, Start: pos, End: pos + 1, LexEnd: max(examined, pos+1)}
	}
	return Token{
		Symbol: best.sym,
		Start:  pos,
		End:    best.end,
		LexEnd: examined,
		Extra:  l.lang.Info(best.sym).Extra,
	}
}
