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

package builder

import (
	"encoding/binary"
	"fmt"
	"regexp"
	"regexp/syntax"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bufbuild/polytope/grammar"
)

// maxLexStates bounds the size of the generated automaton.
const maxLexStates = 1 << 15

// lexDef is one token to be recognized by the automaton.
type lexDef struct {
	sym     grammar.Symbol
	name    string
	pattern string
	literal bool
}

type nfaEdge struct {
	lo, hi byte
	to     int
}

type nfaState struct {
	eps    []int
	edges  []nfaEdge
	accept grammar.Symbol // Zero for none; End is never a token.
}

// nfa is a Thompson automaton over bytes. State 0 is the start state.
type nfa struct {
	states []nfaState
}

func (n *nfa) add() int {
	n.states = append(n.states, nfaState{})
	return len(n.states) - 1
}

func (n *nfa) eps(from, to int) {
	n.states[from].eps = append(n.states[from].eps, to)
}

func (n *nfa) edge(from int, lo, hi byte, to int) {
	n.states[from].edges = append(n.states[from].edges, nfaEdge{lo, hi, to})
}

// bytes adds a chain of transitions matching b exactly.
func (n *nfa) bytes(from int, b []byte) int {
	for _, c := range b {
		next := n.add()
		n.edge(from, c, c, next)
		from = next
	}
	return from
}

// multibyte adds transitions matching any UTF-8 encoded rune outside of
// ASCII. Rune ranges beyond ASCII are approximated by this.
func (n *nfa) multibyte(from, to int) {
	cont := func(from, count int) int {
		for range count {
			next := n.add()
			n.edge(from, 0x80, 0xbf, next)
			from = next
		}
		return from
	}
	for _, lead := range []struct {
		lo, hi byte
		conts  int
	}{{0xc2, 0xdf, 1}, {0xe0, 0xef, 2}, {0xf0, 0xf4, 3}} {
		s := n.add()
		n.edge(from, lead.lo, lead.hi, s)
		n.eps(cont(s, lead.conts), to)
	}
}

// compile adds re to the automaton starting at from, returning its final
// state.
func (n *nfa) compile(re *syntax.Regexp, from int) (int, error) {
	switch re.Op {
	case syntax.OpEmptyMatch:
		return from, nil

	case syntax.OpNoMatch:
		return n.add(), nil

	case syntax.OpLiteral:
		for _, r := range re.Rune {
			if re.Flags&syntax.FoldCase == 0 {
				from = n.bytes(from, utf8.AppendRune(nil, r))
				continue
			}
			end := n.add()
			for f := r; ; {
				n.eps(n.bytes(from, utf8.AppendRune(nil, f)), end)
				if f = unicode.SimpleFold(f); f == r {
					break
				}
			}
			from = end
		}
		return from, nil

	case syntax.OpCharClass:
		end := n.add()
		var wide bool
		for i := 0; i+1 < len(re.Rune); i += 2 {
			lo, hi := re.Rune[i], re.Rune[i+1]
			if lo < utf8.RuneSelf {
				n.edge(from, byte(lo), byte(min(hi, utf8.RuneSelf-1)), end)
			}
			if hi >= utf8.RuneSelf {
				wide = true
			}
		}
		if wide {
			n.multibyte(from, end)
		}
		return end, nil

	case syntax.OpAnyCharNotNL, syntax.OpAnyChar:
		end := n.add()
		if re.Op == syntax.OpAnyChar {
			n.edge(from, 0, utf8.RuneSelf-1, end)
		} else {
			n.edge(from, 0, '\n'-1, end)
			n.edge(from, '\n'+1, utf8.RuneSelf-1, end)
		}
		n.multibyte(from, end)
		return end, nil

	case syntax.OpCapture:
		return n.compile(re.Sub[0], from)

	case syntax.OpConcat:
		for _, sub := range re.Sub {
			var err error
			if from, err = n.compile(sub, from); err != nil {
				return 0, err
			}
		}
		return from, nil

	case syntax.OpAlternate:
		end := n.add()
		for _, sub := range re.Sub {
			s := n.add()
			n.eps(from, s)
			e, err := n.compile(sub, s)
			if err != nil {
				return 0, err
			}
			n.eps(e, end)
		}
		return end, nil

	case syntax.OpStar, syntax.OpPlus, syntax.OpQuest:
		s := n.add()
		n.eps(from, s)
		e, err := n.compile(re.Sub[0], s)
		if err != nil {
			return 0, err
		}
		switch re.Op {
		case syntax.OpStar:
			n.eps(e, s)
			return s, nil
		case syntax.OpPlus:
			n.eps(e, s)
			return e, nil
		default:
			end := n.add()
			n.eps(s, end)
			n.eps(e, end)
			return end, nil
		}

	case syntax.OpRepeat:
		for range re.Min {
			var err error
			if from, err = n.compile(re.Sub[0], from); err != nil {
				return 0, err
			}
		}
		if re.Max == -1 {
			return n.compile(&syntax.Regexp{Op: syntax.OpStar, Sub: re.Sub}, from)
		}
		for range re.Max - re.Min {
			var err error
			if from, err = n.compile(&syntax.Regexp{Op: syntax.OpQuest, Sub: re.Sub}, from); err != nil {
				return 0, err
			}
		}
		return from, nil

	default:
		return 0, fmt.Errorf("unsupported regular expression operator %v", re.Op)
	}
}

// closure expands a set of NFA states along epsilon transitions. The result
// is sorted.
func (n *nfa) closure(set []int) []int {
	seen := make(map[int]bool, len(set))
	out := make([]int, 0, len(set))
	work := slices.Clone(set)
	for len(work) > 0 {
		s := work[len(work)-1]
		work = work[:len(work)-1]
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
		work = append(work, n.states[s].eps...)
	}
	slices.Sort(out)
	return out
}

func setKey(set []int) string {
	var b strings.Builder
	var buf [4]byte
	for _, s := range set {
		binary.LittleEndian.PutUint32(buf[:], uint32(s))
		b.Write(buf[:])
	}
	return b.String()
}

// buildLex compiles the token definitions into a deterministic automaton.
//
// defs must be in declaration order: when two tokens accept the same text,
// the earlier one is listed first in the accepting state.
func buildLex(defs []lexDef) (grammar.Lex, error) {
	var lex grammar.Lex
	n := &nfa{}
	start := n.add()
	for _, def := range defs {
		pattern := def.pattern
		if def.literal {
			pattern = regexp.QuoteMeta(pattern)
		}
		re, err := syntax.Parse(pattern, syntax.Perl)
		if err != nil {
			return lex, fmt.Errorf("token %s: %w", def.name, err)
		}
		s := n.add()
		n.eps(start, s)
		e, err := n.compile(re.Simplify(), s)
		if err != nil {
			return lex, fmt.Errorf("token %s: %w", def.name, err)
		}
		if e == s {
			return lex, fmt.Errorf("token %s matches the empty string", def.name)
		}
		accept := n.add()
		n.eps(e, accept)
		n.states[accept].accept = def.sym
	}

	// Partition the bytes into classes that no transition distinguishes.
	var cut [257]bool
	for _, st := range n.states {
		for _, e := range st.edges {
			cut[e.lo] = true
			cut[int(e.hi)+1] = true
		}
	}
	var reps []byte
	class := -1
	for b := range 256 {
		if b == 0 || cut[b] {
			class++
			reps = append(reps, byte(b))
		}
		lex.Classes[b] = uint8(class)
	}
	lex.ClassCount = class + 1

	// Subset construction.
	var sets [][]int
	index := make(map[string]int)
	intern := func(set []int) int {
		key := setKey(set)
		if idx, ok := index[key]; ok {
			return idx
		}
		index[key] = len(sets)
		sets = append(sets, set)

		var accept []grammar.Symbol
		for _, s := range set {
			if sym := n.states[s].accept; sym != 0 {
				accept = append(accept, sym)
			}
		}
		slices.Sort(accept)
		lex.Accept = append(lex.Accept, slices.Compact(accept))
		return len(sets) - 1
	}

	intern(n.closure([]int{start}))
	if len(lex.Accept[0]) > 0 {
		return lex, fmt.Errorf("token %d matches the empty string", lex.Accept[0][0])
	}
	for i := 0; i < len(sets); i++ {
		if len(sets) > maxLexStates {
			return lex, fmt.Errorf("lexer automaton exceeds %d states", maxLexStates)
		}
		row := make([]int32, lex.ClassCount)
		for c, rep := range reps {
			var moved []int
			for _, s := range sets[i] {
				for _, e := range n.states[s].edges {
					if e.lo <= rep && rep <= e.hi {
						moved = append(moved, e.to)
					}
				}
			}
			if len(moved) == 0 {
				row[c] = -1
				continue
			}
			row[c] = int32(intern(n.closure(moved)))
		}
		lex.Next = append(lex.Next, row...)
	}
	return lex, nil
}
