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
	"math"
	"math/bits"
	"slices"
	"strings"

	"github.com/bufbuild/polytope/grammar"
)

// termSet is a bitset of terminals.
type termSet []uint64

func newTermSet(tokens int) termSet {
	return make(termSet, (tokens+63)/64)
}

func (s termSet) add(t grammar.Symbol) {
	s[t/64] |= 1 << (t % 64)
}

// union adds every member of t to s, returning whether s changed.
func (s termSet) union(t termSet) bool {
	var changed bool
	for i, w := range t {
		if s[i]|w != s[i] {
			s[i] |= w
			changed = true
		}
	}
	return changed
}

func (s termSet) clone() termSet {
	return slices.Clone(s)
}

// each calls yield for every member, in ascending order.
func (s termSet) each(yield func(grammar.Symbol)) {
	for i, w := range s {
		for w != 0 {
			bit := bits.TrailingZeros64(w)
			yield(grammar.Symbol(i*64 + bit))
			w &^= 1 << bit
		}
	}
}

type lrItem struct {
	prod, dot int32
}

type lrState struct {
	kernel []lrItem
	la     []termSet
	trans  map[grammar.Symbol]int
}

type lprod struct {
	lhs   grammar.Symbol
	rhs   []grammar.Symbol
	prec  int
	assoc grammar.Assoc
}

// lalr builds LALR(1) tables by constructing LR(1) item sets and merging
// those with identical cores, re-propagating lookaheads until a fixpoint is
// reached.
type lalr struct {
	tokens  int
	symbols int
	prods   []lprod // The final production is the augmented start rule.
	aug     int32

	prodsOf  [][]int32 // Indexed by non-terminal minus tokens.
	nullable []bool
	first    []termSet

	firstCache map[lrItem]firstEntry

	states []*lrState
	byCore map[string]int
}

type firstEntry struct {
	set      termSet
	nullable bool
}

func newLALR(tokens, symbols int, rules []grammar.Rule, start grammar.Symbol) *lalr {
	g := &lalr{
		tokens:     tokens,
		symbols:    symbols,
		prodsOf:    make([][]int32, symbols-tokens),
		nullable:   make([]bool, symbols-tokens),
		first:      make([]termSet, symbols-tokens),
		firstCache: make(map[lrItem]firstEntry),
		byCore:     make(map[string]int),
	}
	for i, r := range rules {
		g.prods = append(g.prods, lprod{r.LHS, r.RHS, r.Precedence, r.Assoc})
		g.prodsOf[int(r.LHS)-tokens] = append(g.prodsOf[int(r.LHS)-tokens], int32(i))
	}
	g.aug = int32(len(g.prods))
	g.prods = append(g.prods, lprod{lhs: grammar.Symbol(symbols), rhs: []grammar.Symbol{start}})

	for i := range g.first {
		g.first[i] = newTermSet(tokens)
	}
	for changed := true; changed; {
		changed = false
		for _, p := range g.prods[:g.aug] {
			nt := int(p.lhs) - tokens
			nullable := true
			for _, sym := range p.rhs {
				if int(sym) < tokens {
					if g.first[nt][sym/64]&(1<<(sym%64)) == 0 {
						g.first[nt].add(sym)
						changed = true
					}
					nullable = false
					break
				}
				if g.first[nt].union(g.first[int(sym)-tokens]) {
					changed = true
				}
				if !g.nullable[int(sym)-tokens] {
					nullable = false
					break
				}
			}
			if nullable && !g.nullable[nt] {
				g.nullable[nt] = true
				changed = true
			}
		}
	}
	return g
}

// firstAfter returns FIRST of the symbols following the dot of it, and
// whether they are all nullable.
func (g *lalr) firstAfter(it lrItem) (termSet, bool) {
	if e, ok := g.firstCache[it]; ok {
		return e.set, e.nullable
	}
	set := newTermSet(g.tokens)
	nullable := true
	for _, sym := range g.prods[it.prod].rhs[it.dot:] {
		if int(sym) < g.tokens {
			set.add(sym)
			nullable = false
			break
		}
		set.union(g.first[int(sym)-g.tokens])
		if !g.nullable[int(sym)-g.tokens] {
			nullable = false
			break
		}
	}
	g.firstCache[it] = firstEntry{set, nullable}
	return set, nullable
}

func (g *lalr) closure(kernel []lrItem, kla []termSet) ([]lrItem, []termSet) {
	items := slices.Clone(kernel)
	las := make([]termSet, len(kla))
	index := make(map[lrItem]int, len(kernel))
	work := make([]int, 0, len(kernel))
	for i, it := range kernel {
		las[i] = kla[i].clone()
		index[it] = i
		work = append(work, i)
	}

	for len(work) > 0 {
		i := work[len(work)-1]
		work = work[:len(work)-1]

		it := items[i]
		rhs := g.prods[it.prod].rhs
		if int(it.dot) >= len(rhs) || int(rhs[it.dot]) < g.tokens {
			continue
		}
		first, nullable := g.firstAfter(lrItem{it.prod, it.dot + 1})
		la := first.clone()
		if nullable {
			la.union(las[i])
		}

		for _, p := range g.prodsOf[int(rhs[it.dot])-g.tokens] {
			next := lrItem{p, 0}
			if j, ok := index[next]; ok {
				if las[j].union(la) {
					work = append(work, j)
				}
				continue
			}
			index[next] = len(items)
			items = append(items, next)
			las = append(las, la.clone())
			work = append(work, len(items)-1)
		}
	}
	return items, las
}

func coreKey(kernel []lrItem) string {
	var b strings.Builder
	var buf [8]byte
	for _, it := range kernel {
		binary.LittleEndian.PutUint32(buf[:4], uint32(it.prod))
		binary.LittleEndian.PutUint32(buf[4:], uint32(it.dot))
		b.Write(buf[:])
	}
	return b.String()
}

func (g *lalr) build() error {
	endSet := newTermSet(g.tokens)
	endSet.add(grammar.End)
	g.addState([]lrItem{{g.aug, 0}}, []termSet{endSet})

	queued := []bool{true}
	queue := []int{0}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		queued[s] = false

		items, las := g.closure(g.states[s].kernel, g.states[s].la)

		type group struct {
			kernel []lrItem
			la     []termSet
		}
		groups := make(map[grammar.Symbol]*group)
		var order []grammar.Symbol
		for i, it := range items {
			rhs := g.prods[it.prod].rhs
			if int(it.dot) >= len(rhs) {
				continue
			}
			sym := rhs[it.dot]
			gr := groups[sym]
			if gr == nil {
				gr = new(group)
				groups[sym] = gr
				order = append(order, sym)
			}
			gr.kernel = append(gr.kernel, lrItem{it.prod, it.dot + 1})
			gr.la = append(gr.la, las[i])
		}
		slices.Sort(order)

		for _, sym := range order {
			gr := groups[sym]
			perm := make([]int, len(gr.kernel))
			for i := range perm {
				perm[i] = i
			}
			slices.SortFunc(perm, func(a, b int) int {
				x, y := gr.kernel[a], gr.kernel[b]
				if x.prod != y.prod {
					return int(x.prod - y.prod)
				}
				return int(x.dot - y.dot)
			})
			kernel := make([]lrItem, len(perm))
			la := make([]termSet, len(perm))
			for i, j := range perm {
				kernel[i] = gr.kernel[j]
				la[i] = gr.la[j]
			}

			t, changed := g.addState(kernel, la)
			if t >= len(queued) {
				queued = append(queued, false)
			}
			if changed && !queued[t] {
				queued[t] = true
				queue = append(queue, t)
			}
			g.states[s].trans[sym] = t
		}

		if len(g.states) >= int(grammar.NoState) {
			return fmt.Errorf("too many parse states (%d)", len(g.states))
		}
	}
	return nil
}

// addState finds or creates the state with the given kernel, merging in
// lookaheads. Returns whether the state is new or its lookaheads grew.
func (g *lalr) addState(kernel []lrItem, la []termSet) (int, bool) {
	key := coreKey(kernel)
	if idx, ok := g.byCore[key]; ok {
		st := g.states[idx]
		var changed bool
		for i := range st.la {
			if st.la[i].union(la[i]) {
				changed = true
			}
		}
		return idx, changed
	}

	st := &lrState{kernel: kernel, trans: make(map[grammar.Symbol]int)}
	for _, set := range la {
		st.la = append(st.la, set.clone())
	}
	g.byCore[key] = len(g.states)
	g.states = append(g.states, st)
	return len(g.states) - 1, true
}

// Conflict is a table cell the grammar's precedences did not resolve. The
// parser explores every action in such a cell in parallel.
type Conflict struct {
	State   grammar.StateID
	Token   grammar.Symbol
	Actions []grammar.Action
}

// tables fills the action and goto tables of t, returning unresolved
// conflicts.
func (g *lalr) tables(t *grammar.Tables) []Conflict {
	sets := map[string]uint32{"": 0}
	t.ActionSets = [][]grammar.Action{nil}
	t.ActionIndex = make([]uint32, len(g.states)*g.tokens)
	nts := g.symbols - g.tokens
	t.Gotos = make([]grammar.StateID, len(g.states)*nts)
	for i := range t.Gotos {
		t.Gotos[i] = grammar.NoState
	}
	t.StateCount = len(g.states)
	t.InitialState = 0

	var conflicts []Conflict
	shiftPrec := make([]int, g.tokens)
	for s, st := range g.states {
		items, las := g.closure(st.kernel, st.la)
		cells := make([][]grammar.Action, g.tokens)

		for i := range shiftPrec {
			shiftPrec[i] = math.MinInt
		}
		for _, it := range items {
			rhs := g.prods[it.prod].rhs
			if int(it.dot) < len(rhs) && int(rhs[it.dot]) < g.tokens {
				sym := rhs[it.dot]
				shiftPrec[sym] = max(shiftPrec[sym], g.prods[it.prod].prec)
			}
		}

		for sym, next := range st.trans {
			if int(sym) < g.tokens {
				cells[sym] = append(cells[sym], grammar.Action{Kind: grammar.Shift, State: grammar.StateID(next)})
			} else {
				t.Gotos[s*nts+int(sym)-g.tokens] = grammar.StateID(next)
			}
		}
		for i, it := range items {
			if int(it.dot) != len(g.prods[it.prod].rhs) {
				continue
			}
			if it.prod == g.aug {
				cells[grammar.End] = append([]grammar.Action{{Kind: grammar.Accept}}, cells[grammar.End]...)
				continue
			}
			las[i].each(func(tok grammar.Symbol) {
				cells[tok] = append(cells[tok], grammar.Action{Kind: grammar.Reduce, Rule: grammar.RuleID(it.prod)})
			})
		}

		for tok, cell := range cells {
			if len(cell) > 1 {
				cell = g.resolve(cell, shiftPrec[tok])
				if len(cell) > 1 {
					conflicts = append(conflicts, Conflict{
						State:   grammar.StateID(s),
						Token:   grammar.Symbol(tok),
						Actions: cell,
					})
				}
			}
			if len(cell) == 0 {
				continue
			}

			key := actionKey(cell)
			idx, ok := sets[key]
			if !ok {
				idx = uint32(len(t.ActionSets))
				sets[key] = idx
				t.ActionSets = append(t.ActionSets, cell)
			}
			t.ActionIndex[s*g.tokens+tok] = idx
		}
	}
	return conflicts
}

// resolve applies precedence and associativity to a cell with several
// actions. Whatever remains is ordered by preference: shift (or accept)
// first, then reductions in rule order.
func (g *lalr) resolve(cell []grammar.Action, shiftPrec int) []grammar.Action {
	var shift []grammar.Action
	var reduces []grammar.Action
	for _, act := range cell {
		if act.Kind == grammar.Reduce {
			reduces = append(reduces, act)
		} else {
			shift = append(shift, act)
		}
	}
	slices.SortFunc(reduces, func(a, b grammar.Action) int { return int(a.Rule) - int(b.Rule) })

	var kept []grammar.Action
	dropShift := false
	for _, r := range reduces {
		if len(shift) == 0 || shift[0].Kind == grammar.Accept {
			kept = append(kept, r)
			continue
		}
		p := g.prods[r.Rule]
		switch {
		case p.prec > shiftPrec:
			dropShift = true
			kept = append(kept, r)
		case p.prec < shiftPrec:
		case p.assoc == grammar.AssocLeft:
			dropShift = true
			kept = append(kept, r)
		case p.assoc == grammar.AssocRight:
		default:
			kept = append(kept, r)
		}
	}

	if len(kept) > 1 {
		best := math.MinInt
		for _, r := range kept {
			best = max(best, g.prods[r.Rule].prec)
		}
		kept = slices.DeleteFunc(kept, func(r grammar.Action) bool {
			return g.prods[r.Rule].prec != best
		})
	}

	if dropShift {
		return kept
	}
	return append(shift, kept...)
}

func actionKey(cell []grammar.Action) string {
	var b strings.Builder
	for _, act := range cell {
		fmt.Fprintf(&b, "%d:%d:%d;", act.Kind, act.State, act.Rule)
	}
	return b.String()
}
