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
	"github.com/bufbuild/polytope/grammar"
	"github.com/bufbuild/polytope/internal/arena"
	"github.com/bufbuild/polytope/internal/logging"
	"github.com/bufbuild/polytope/lexer"
	"github.com/bufbuild/polytope/syntax"
)

// recover resumes parsing after every version failed on la.
//
// The strategies are tried in this order, and the first one after which the
// next [Limits.RecoveryWindow] tokens parse is taken:
//
//  1. Delete la, wrapping it in an ERROR node.
//  2. Insert a MISSING token that the state expects before la. At the end
//     of input, only synchronizing tokens are inserted.
//  3. Wrap the top of the stack and the tokens up to the next synchronizing
//     token in an ERROR node.
//
// If nothing works and the end of input has been reached, the whole input
// becomes an ERROR node, which is returned as the root.
func (r *run) recover(v version, la lookahead) (*syntax.Subtree, error) {
	r.versions = []version{v}
	state := r.stack.state(v)
	r.log.Debug("syntax error",
		logging.KeyOffset, la.Start,
		logging.KeyState, state,
		logging.KeySymbol, r.lang.SymbolName(la.Symbol),
	)

	w := r.limits.RecoveryWindow
	ahead := &tokens{lexer: r.lexer, lang: r.lang, first: la, all: []lexer.Token{la.Token}, solid: []int{0}}
	atEnd := la.Symbol == grammar.End
	if !atEnd {
		ok, err := r.simulate(v.top, ahead.symbols(1, w))
		if err != nil {
			return nil, err
		}
		if ok {
			return nil, r.delete(v, la)
		}
	}

	if r.lastInsert != la.Start {
		syms := append([]grammar.Symbol{0}, ahead.symbols(0, w)...)
		for _, sym := range r.lang.Expected(state) {
			if atEnd && !r.lang.IsSync(sym) {
				continue
			}
			syms[0] = sym
			ok, err := r.simulate(v.top, syms)
			if err != nil {
				return nil, err
			}
			if ok {
				return nil, r.insert(v, la, sym)
			}
		}
	}
	return r.wrap(v, la, ahead)
}

// delete skips la. A lexical error token is kept as is; any other token is
// wrapped in an ERROR node.
func (r *run) delete(v version, la lookahead) error {
	state := r.stack.state(v)
	var sub *syntax.Subtree
	if la.IsError() {
		la.Extra = true
		sub = r.leaf(la, state, state)
	} else {
		sub = syntax.NewNode(r.lang, syntax.NodeParams{
			Symbol:   grammar.Error,
			Children: []*syntax.Subtree{r.leaf(la, state, state)},
			Extra:    true,
		})
	}
	r.log.Debug("recovered", logging.KeyStrategy, "delete", logging.KeyOffset, la.Start)
	return r.pushError(v.top, sub, la.End)
}

// insert shifts a missing token of kind sym in front of la.
func (r *run) insert(v version, la lookahead, sym grammar.Symbol) error {
	r.log.Debug("recovered",
		logging.KeyStrategy, "insert",
		logging.KeyOffset, la.Start,
		logging.KeySymbol, r.lang.SymbolName(sym),
	)
	r.lastInsert = la.Start
	r.fragile = 2

	missing := lookahead{
		Token:    lexer.Token{Symbol: sym, Start: la.Start, End: la.Start, LexEnd: la.Start},
		lexState: grammar.NoState,
		missing:  true,
	}
	shifted, _, _, err := r.step([]version{v}, missing)
	if err != nil {
		return err
	}
	if len(shifted) > 0 {
		r.advance(shifted, missing)
	}
	return nil
}

// wrap recovers by moving subtrees from the top of the stack, and tokens
// from the input, into an ERROR node.
//
// This tries, in order: popping at least one subtree and skipping nothing;
// skipping to the next synchronizing token; and skipping past it. Smaller
// pops are preferred. If none of these leave a stack on which the input
// parses, everything through the synchronizing token is skipped, and the
// parser tries again from there.
func (r *run) wrap(v version, la lookahead, ahead *tokens) (*syntax.Subtree, error) {
	w := r.limits.RecoveryWindow

	sync := 0
	for !r.lang.IsSync(ahead.get(sync).Symbol) {
		sync++
	}

	// bases[k] is the top of the stack after popping k subtrees.
	bases := []arena.Pointer[frame]{v.top}
	for p := v.top; ; {
		f := r.stack.at(p)
		if f.tree == nil {
			break
		}
		p = f.prev
		if !f.tree.Extra() {
			bases = append(bases, p)
		}
	}

	try := func(minPop, skip int) (bool, error) {
		syms := ahead.symbols(skip, w)
		for k := minPop; k < len(bases); k++ {
			ok, err := r.simulate(bases[k], syms)
			if err != nil {
				return false, err
			}
			if ok {
				return true, r.wrapAt(v, k, skip, ahead)
			}
		}
		return false, nil
	}

	ok, err := try(1, 0)
	if ok || err != nil {
		return nil, err
	}
	if sync > 0 {
		if ok, err := try(0, sync); ok || err != nil {
			return nil, err
		}
	}
	if ahead.get(sync).Symbol != grammar.End {
		if ok, err := try(0, sync+1); ok || err != nil {
			return nil, err
		}
		return nil, r.wrapAt(v, 0, sync+1, ahead)
	}

	r.log.Debug("recovered", logging.KeyStrategy, "give up", logging.KeyOffset, la.Start)
	children := r.stack.subtrees(v.top)
	children = append(children, r.skipped(ahead, sync, r.stack.state(v))...)
	return syntax.NewNode(r.lang, syntax.NodeParams{
		Symbol:   grammar.Error,
		Children: children,
	}), nil
}

// wrapAt pops k subtrees, skips the tokens before the skip-th non-extra
// token, and pushes an ERROR node holding all of them.
func (r *run) wrapAt(v version, k, skip int, ahead *tokens) error {
	base, children, trailing, _ := r.stack.pop(v.top, k)
	children = append(children, trailing...)
	children = append(children, r.skipped(ahead, skip, r.stack.at(base).state)...)

	end := ahead.get(skip).Start
	r.log.Debug("recovered",
		logging.KeyStrategy, "wrap",
		logging.KeyOffset, ahead.all[0].Start,
		"popped", k,
		"skipped", skip,
	)
	sub := syntax.NewNode(r.lang, syntax.NodeParams{
		Symbol:   grammar.Error,
		Children: children,
		Extra:    true,
	})
	return r.pushError(base, sub, end)
}

// skipped builds leaves for the tokens before the n-th non-extra token of
// ahead.
func (r *run) skipped(ahead *tokens, n int, state grammar.StateID) []*syntax.Subtree {
	stop := ahead.index(n)
	leaves := make([]*syntax.Subtree, 0, stop)
	for i, tok := range ahead.all[:stop] {
		la := lookahead{Token: tok, lexState: grammar.NoState}
		if i == 0 {
			la = ahead.first
		}
		leaves = append(leaves, r.leaf(la, state, state))
	}
	return leaves
}

// pushError pushes an ERROR node on base and resumes parsing at end.
func (r *run) pushError(base arena.Pointer[frame], sub *syntax.Subtree, end int) error {
	state := r.stack.at(base).state
	top, ok := r.stack.push(base, state, sub)
	if !ok {
		return r.depthError()
	}
	r.versions = []version{{top: top, lexState: state}}
	r.pos = end
	r.fragile = 1
	return nil
}

// simulate returns whether syms would parse on the stack with the given top,
// taking the preferred action wherever there is a conflict. Nothing is
// pushed; the simulation keeps its own states above the real stack.
//
// Reaching an accept counts as success even if syms is not exhausted.
func (r *run) simulate(top arena.Pointer[frame], syms []grammar.Symbol) (bool, error) {
	base := top
	var pushed []grammar.StateID
	state := func() grammar.StateID {
		if len(pushed) > 0 {
			return pushed[len(pushed)-1]
		}
		return r.stack.at(base).state
	}
	pop := func(n int) bool {
		for ; n > 0; n-- {
			if len(pushed) > 0 {
				pushed = pushed[:len(pushed)-1]
				continue
			}
			f := r.stack.at(base)
			for f.tree != nil && f.tree.Extra() {
				base = f.prev
				f = r.stack.at(base)
			}
			if f.tree == nil {
				return false
			}
			base = f.prev
		}
		return true
	}

	budget := r.limits.MaxDepth + 64
	for _, sym := range syms {
		for steps := 0; ; steps++ {
			if steps > budget {
				return false, nil
			}
			if err := r.tick(); err != nil {
				return false, err
			}

			acts := r.lang.Actions(state(), sym)
			if len(acts) == 0 {
				return false, nil
			}
			act := acts[0]
			if act.Kind == grammar.Accept {
				return true, nil
			}
			if act.Kind == grammar.Shift {
				pushed = append(pushed, act.State)
				break
			}

			rule := r.lang.Rule(act.Rule)
			if !pop(len(rule.RHS)) {
				return false, nil
			}
			next, ok := r.lang.Goto(state(), rule.LHS)
			if !ok {
				return false, nil
			}
			pushed = append(pushed, next)
		}
	}
	return true, nil
}

// tokens lexes ahead of a syntax error, without regard to parse state.
type tokens struct {
	lexer *lexer.Lexer
	lang  *grammar.Language
	first lookahead
	// all[0] is the token the error occurred on.
	all []lexer.Token
	// Indices of the non-extra tokens in all.
	solid []int
}

// extra makes the lexer prefer extras, since no parse state is known for the
// tokens ahead of an error.
func (t *tokens) extra(sym grammar.Symbol) bool {
	return t.lang.Info(sym).Extra
}

// get returns the i-th non-extra token. Past the end of input, this is the
// end token.
func (t *tokens) get(i int) lexer.Token {
	for len(t.solid) <= i {
		last := t.all[len(t.all)-1]
		if last.Symbol == grammar.End {
			return last
		}
		tok := t.lexer.Next(last.End, t.extra)
		t.all = append(t.all, tok)
		if !tok.Extra {
			t.solid = append(t.solid, len(t.all)-1)
		}
	}
	return t.all[t.solid[i]]
}

// index returns the index in all of the i-th non-extra token.
func (t *tokens) index(i int) int {
	t.get(i)
	return t.solid[min(i, len(t.solid)-1)]
}

// symbols returns the symbols of up to n non-extra tokens starting at the
// i-th, stopping after the end token.
func (t *tokens) symbols(i, n int) []grammar.Symbol {
	var syms []grammar.Symbol
	for j := i; j < i+n; j++ {
		tok := t.get(j)
		syms = append(syms, tok.Symbol)
		if tok.Symbol == grammar.End {
			break
		}
	}
	return syms
}
