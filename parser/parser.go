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
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/petermattis/goid"

	"github.com/bufbuild/polytope/grammar"
	"github.com/bufbuild/polytope/internal/logging"
	"github.com/bufbuild/polytope/lexer"
	"github.com/bufbuild/polytope/syntax"
)

// Parser parses text in one language.
//
// A Parser may be reused for any number of parses, but only by one goroutine
// at a time; a parse started while another is running fails with
// [ErrConcurrentUse]. Use one Parser per goroutine, or see [ParseAll].
type Parser struct {
	lang   *grammar.Language
	limits Limits
	logger *log.Logger

	// The goroutine currently parsing, or zero.
	owner atomic.Int64
	stack stack
}

// New returns a parser for lang.
func New(lang *grammar.Language, opts ...Option) *Parser {
	p := &Parser{lang: lang, limits: DefaultLimits}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Language returns the language this parser parses.
func (p *Parser) Language() *grammar.Language {
	return p.lang
}

// Limits returns the limits this parser enforces.
func (p *Parser) Limits() Limits {
	return p.limits
}

// Parse parses src.
//
// If old is not nil, it must be a tree of the same language that has been
// edited to match src with [syntax.Tree.Edit]; subtrees of old that the
// edits did not touch are reused. The result is the same as parsing without
// old, except that it shares subtrees with it, and belongs to its lineage.
//
// The parser does not retain src after returning, but the tree does; src
// must not be modified while the tree is in use.
func (p *Parser) Parse(ctx context.Context, src []byte, old *syntax.Tree) (*syntax.Tree, error) {
	me := goid.Get()
	if !p.owner.CompareAndSwap(0, me) {
		return nil, fmt.Errorf("%w: parser is in use by goroutine %d", ErrConcurrentUse, p.owner.Load())
	}
	defer p.owner.Store(0)

	if old != nil {
		if old.Language() != p.lang {
			return nil, fmt.Errorf("%w: got %q, want %q", ErrLanguageMismatch, old.Language().Name(), p.lang.Name())
		}
		if size := old.Subtree().Size(); size != len(src) {
			return nil, fmt.Errorf("%w: tree spans %d bytes, but the text has %d", ErrEditMismatch, size, len(src))
		}
	}
	if len(src) > p.limits.MaxBytes {
		return nil, &LimitError{Limit: "MaxBytes", Value: p.limits.MaxBytes}
	}

	logger := p.logger
	if logger == nil {
		logger = logging.FromContext(ctx)
	}
	r := &run{
		Parser:     p,
		ctx:        ctx,
		log:        logger,
		src:        src,
		lexer:      lexer.New(p.lang, src),
		lastInsert: -1,
	}
	if p.limits.Timeout > 0 {
		r.deadline = time.Now().Add(p.limits.Timeout)
	}
	if old != nil {
		r.reuse = newCursor(old.Subtree())
	}

	p.stack.maxDepth = p.limits.MaxDepth
	defer p.stack.frames.Reset()

	start := time.Now()
	root, err := r.parse()
	if err != nil {
		logger.Debug("parse failed", logging.KeyOffset, r.pos, "error", err)
		return nil, err
	}
	logger.Debug("parsed",
		"bytes", len(src),
		"operations", r.ops,
		logging.KeyReused, r.reused,
		logging.KeyDuration, time.Since(start),
	)
	return syntax.NewTree(p.lang, root, src, old), nil
}

// Reparse applies edit to old and parses src, which must be the text after
// the edit, reusing what it can from old.
func (p *Parser) Reparse(ctx context.Context, old *syntax.Tree, edit syntax.InputEdit, src []byte) (*syntax.Tree, error) {
	if old == nil {
		return p.Parse(ctx, src, nil)
	}
	edited, err := old.Edit(edit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEditMismatch, err)
	}
	return p.Parse(ctx, src, edited)
}

// run is the state of a single parse.
type run struct {
	*Parser
	ctx      context.Context
	deadline time.Time
	log      *log.Logger

	src   []byte
	lexer *lexer.Lexer
	reuse *cursor

	versions []version
	pos      int

	ops, reused int
	// Nodes built while this is positive are fragile. It is set by error
	// recovery, and counts down as tokens are shifted.
	fragile int
	// Whether the current step has forked.
	forked bool
	// The offset of the last recovery that inserted a missing token.
	lastInsert int
	// The end of the subtree reused by the current step, if any.
	reusedEnd int
}

// lookahead is the token the parser is deciding on.
type lookahead struct {
	lexer.Token
	// The state the token was lexed in, or NoState if it was lexed for
	// several versions at once.
	lexState grammar.StateID
	// An old token being reused, if any.
	leaf    *syntax.Subtree
	missing bool
}

// task is an action that a version is about to take.
type task struct {
	v   version
	act grammar.Action
}

func (r *run) parse() (*syntax.Subtree, error) {
	if err := r.checkTime(); err != nil {
		return nil, err
	}
	r.versions = []version{r.stack.bottom(r.lang.InitialState())}
	mp := r.mustProgress()
	for {
		mp.check()

		la := r.next()
		if la.Extra {
			if err := r.shiftExtra(la); err != nil {
				return nil, err
			}
			continue
		}

		shifted, accepted, failed, err := r.step(r.versions, la)
		switch {
		case err != nil:
			return nil, err
		case accepted != nil:
			return r.accept(*accepted), nil
		case len(shifted) == 0:
			root, err := r.recover(failed[0], la)
			if err != nil || root != nil {
				return root, err
			}
		default:
			r.advance(shifted, la)
		}
	}
}

// next lexes the next token, or finds an old one to reuse.
func (r *run) next() lookahead {
	if len(r.versions) == 1 {
		state := r.versions[0].lexState
		if r.reuse != nil {
			if leaf := r.reuse.leaf(r.pos, state); leaf != nil {
				end := r.pos + leaf.Size()
				return lookahead{
					Token: lexer.Token{
						Symbol: leaf.Symbol(),
						Start:  r.pos,
						End:    end,
						LexEnd: end + leaf.Lookahead(),
						Extra:  leaf.Extra(),
					},
					lexState: state,
					leaf:     leaf,
				}
			}
		}
		return lookahead{Token: r.lexer.InState(r.pos, state), lexState: state}
	}

	// Lex for all versions at once.
	tok := r.lexer.Next(r.pos, func(sym grammar.Symbol) bool {
		for _, v := range r.versions {
			if r.lang.Valid(v.lexState, sym) {
				return true
			}
		}
		return false
	})
	return lookahead{Token: tok, lexState: grammar.NoState}
}

// step runs the actions of every version on a lookahead, up to and including
// a shift or an accept.
//
// Returns the versions that shifted, in order of preference, the first
// version that accepted, and the versions that hit a syntax error.
func (r *run) step(versions []version, la lookahead) (shifted []version, accepted *version, failed []version, err error) {
	r.forked = false
	var work []task
	for i, v := range versions {
		var ok bool
		live := len(shifted) + len(versions) - i
		if work, ok = r.plan(work, v, la.Symbol, live); !ok {
			failed = append(failed, v)
		}

		for len(work) > 0 {
			t := work[len(work)-1]
			work = work[:len(work)-1]
			if err := r.tick(); err != nil {
				return nil, nil, nil, err
			}

			switch t.act.Kind {
			case grammar.Shift:
				if len(versions) == 1 && !r.forked {
					reused, ok, err := r.reuseNode(t.v, la)
					if err != nil {
						return nil, nil, nil, err
					}
					if ok {
						shifted = append(shifted, reused)
						continue
					}
				}
				leaf := r.leaf(la, r.stack.state(t.v), t.act.State)
				top, ok := r.stack.push(t.v.top, t.act.State, leaf)
				if !ok {
					return nil, nil, nil, r.depthError()
				}
				shifted = append(shifted, version{top: top, lexState: t.act.State})

			case grammar.Accept:
				return nil, &t.v, nil, nil

			case grammar.Reduce:
				next, ok, err := r.reduce(t.v, t.act.Rule, la.Symbol)
				if err != nil {
					return nil, nil, nil, err
				}
				if !ok {
					failed = append(failed, t.v)
					continue
				}
				live := len(shifted) + len(work) + len(versions) - i
				if work, ok = r.plan(work, next, la.Symbol, live); !ok {
					failed = append(failed, next)
				}
			}
		}
	}
	return shifted, nil, failed, nil
}

// plan queues v's actions on sym. The preferred action is queued last, so
// that it runs first.
//
// live is the number of versions that exist, including v; the actions of a
// conflict are only all taken if that would not exceed the stack limit.
func (r *run) plan(work []task, v version, sym grammar.Symbol, live int) ([]task, bool) {
	acts := r.lang.Actions(r.stack.state(v), sym)
	if len(acts) == 0 {
		return work, false
	}
	if len(acts) > 1 {
		if live-1+len(acts) <= r.limits.MaxStacks {
			r.forked = true
			r.log.Debug("forking",
				logging.KeyOffset, r.pos,
				logging.KeyState, r.stack.state(v),
				logging.KeySymbol, r.lang.SymbolName(sym),
				logging.KeyVersions, live-1+len(acts),
			)
		} else {
			acts = acts[:1]
		}
	}
	for i := len(acts) - 1; i >= 0; i-- {
		work = append(work, task{v: v, act: acts[i]})
	}
	return work, true
}

// reduce pops the right-hand side of a rule off of v and pushes the node
// built from it.
//
// Extras on top of the stack stay there, above the new node. A rule with an
// empty right-hand side produces a node on top of everything.
func (r *run) reduce(v version, id grammar.RuleID, follow grammar.Symbol) (version, bool, error) {
	rule := r.lang.Rule(id)
	base, children, trailing, ok := r.stack.pop(v.top, len(rule.RHS))
	if !ok {
		return v, false, nil
	}
	state := r.stack.at(base).state
	next, ok := r.lang.Goto(state, rule.LHS)
	if !ok {
		return v, false, nil
	}

	node := syntax.NewNode(r.lang, syntax.NodeParams{
		Symbol:    rule.LHS,
		Rule:      id,
		Children:  children,
		PreState:  state,
		PostState: v.lexState,
		Follow:    follow,
		Fragile:   r.isFragile(),
	})
	top, ok := r.stack.push(base, next, node)
	for _, extra := range trailing {
		if !ok {
			break
		}
		top, ok = r.stack.push(top, next, extra)
	}
	if !ok {
		return v, false, r.depthError()
	}
	return version{top: top, lexState: v.lexState}, true, nil
}

// advance moves past a token that was shifted.
func (r *run) advance(shifted []version, la lookahead) {
	versions := r.stack.merge(shifted)
	if len(versions) > r.limits.MaxStacks {
		versions = versions[:r.limits.MaxStacks]
	}
	if len(versions) != len(r.versions) {
		r.log.Debug("versions changed", logging.KeyOffset, la.Start, logging.KeyVersions, len(versions))
	}
	r.versions = versions
	r.pos = max(la.End, r.reusedEnd)
	r.reusedEnd = 0
	if r.fragile > 0 {
		r.fragile--
	}
}

// shiftExtra pushes an extra token onto every version. The versions share
// one leaf.
func (r *run) shiftExtra(la lookahead) error {
	state := r.stack.state(r.versions[0])
	leaf := r.leaf(la, state, state)
	for i, v := range r.versions {
		top, ok := r.stack.push(v.top, r.stack.state(v), leaf)
		if !ok {
			return r.depthError()
		}
		r.versions[i].top = top
	}
	r.pos = la.End
	return r.tick()
}

// reuseNode tries to shift a subtree of the old tree that begins with the
// token in la, in place of parsing its text again.
func (r *run) reuseNode(v version, la lookahead) (version, bool, error) {
	if r.reuse == nil || la.leaf == nil || r.fragile > 0 {
		return v, false, nil
	}
	state := r.stack.state(v)

	var found *syntax.Subtree
	var next grammar.StateID
	r.reuse.ancestors(la.Start, func(sub *syntax.Subtree) bool {
		var ok bool
		next, ok = r.reusable(sub, la, state, v.lexState)
		if ok {
			found = sub
		}
		return ok
	})
	if found == nil {
		return v, false, nil
	}

	top, ok := r.stack.push(v.top, next, found)
	if !ok {
		return v, false, r.depthError()
	}
	r.log.Debug("reusing subtree",
		logging.KeyOffset, la.Start,
		logging.KeySymbol, r.lang.SymbolName(found.Symbol()),
	)
	r.reusedEnd = la.Start + found.Size()
	r.reused++
	return version{top: top, lexState: found.PostState()}, true, nil
}

// reusable returns whether pushing sub in state gives the same stack that
// parsing its text would, and if so, the state to push it with.
//
// A parse that starts in the same state with the same first token, and sees
// the same tokens up to and including the token that caused sub to be
// reduced, builds sub again. The tokens inside sub are unchanged, so only
// the first and the following token need checking. Nodes built while the
// parser was forked or recovering from an error are excluded, since their
// shape depended on more than this.
func (r *run) reusable(sub *syntax.Subtree, la lookahead, state, lexState grammar.StateID) (grammar.StateID, bool) {
	if sub.Changed() || sub.HasError() || sub.Fragile() || sub.Extra() ||
		sub.Size() == 0 || sub.PreState() != state {
		return grammar.NoState, false
	}

	first := sub.FirstLeaf()
	if first != la.leaf || lexState == grammar.NoState || first.LexState() != lexState {
		return grammar.NoState, false
	}
	acts := r.lang.Actions(state, first.Symbol())
	if len(acts) != 1 || acts[0].Kind != grammar.Shift {
		return grammar.NoState, false
	}
	next, ok := r.lang.Goto(state, sub.Symbol())
	if !ok {
		return grammar.NoState, false
	}

	pos := la.Start + sub.Size()
	for {
		tok := r.lexer.InState(pos, sub.PostState())
		if !tok.Extra {
			return next, tok.Symbol == sub.Follow()
		}
		pos = tok.End
	}
}

// accept builds the root from the accepting version.
//
// The stack holds the start node, with any leading and trailing extras
// around it; the extras become children of the root.
func (r *run) accept(v version) *syntax.Subtree {
	trees := r.stack.subtrees(v.top)
	var start *syntax.Subtree
	var children []*syntax.Subtree
	for _, sub := range trees {
		if start == nil && !sub.Extra() {
			start = sub
			children = append(children, sub.Children()...)
			continue
		}
		children = append(children, sub)
	}
	if start == nil {
		return syntax.NewNode(r.lang, syntax.NodeParams{Symbol: grammar.Error, Children: trees})
	}
	if len(trees) == 1 {
		return start
	}
	return syntax.NewNode(r.lang, syntax.NodeParams{
		Symbol:    start.Symbol(),
		Rule:      start.Rule(),
		Children:  children,
		PreState:  start.PreState(),
		PostState: start.PostState(),
		Follow:    grammar.End,
		Fragile:   start.Fragile(),
	})
}

// leaf builds the subtree for a token. A reused extra is returned as is; the
// states of extras are never compared.
func (r *run) leaf(la lookahead, pre, post grammar.StateID) *syntax.Subtree {
	if la.leaf != nil {
		if la.leaf.Extra() && la.Extra {
			return la.leaf
		}
		return la.leaf.WithStates(pre, post)
	}
	return syntax.NewLeaf(r.lang, syntax.LeafParams{
		Symbol:    la.Symbol,
		Text:      r.src[la.Start:la.End],
		Lookahead: la.LexEnd - la.End,
		LexState:  la.lexState,
		PreState:  pre,
		PostState: post,
		Extra:     la.Extra,
		Missing:   la.missing,
		Fragile:   r.isFragile(),
	})
}

func (r *run) isFragile() bool {
	return r.fragile > 0 || r.forked || len(r.versions) > 1
}

// tick counts an operation against the limits.
func (r *run) tick() error {
	r.ops++
	if r.ops > r.limits.MaxOperations {
		return &LimitError{Limit: "MaxOperations", Value: r.limits.MaxOperations, Offset: r.pos}
	}
	if r.ops%256 != 0 {
		return nil
	}
	return r.checkTime()
}

// checkTime checks the deadline and the context.
func (r *run) checkTime() error {
	if !r.deadline.IsZero() && time.Now().After(r.deadline) {
		return &LimitError{Limit: "Timeout", Value: int(r.limits.Timeout), Offset: r.pos}
	}
	if err := r.ctx.Err(); err != nil {
		cause := context.Cause(r.ctx)
		if errors.Is(cause, ErrResourceExhausted) {
			return cause
		}
		return fmt.Errorf("%w: %w", ErrResourceExhausted, cause)
	}
	return nil
}

func (r *run) depthError() error {
	return &LimitError{Limit: "MaxDepth", Value: r.limits.MaxDepth, Offset: r.pos}
}

// mustProgress returns a progress checker for this parse.
func (r *run) mustProgress() mustProgress {
	return mustProgress{r: r, pos: -1, ops: -1}
}

// mustProgress is a helper for ensuring that the parser either consumes input
// or performs an operation in each loop iteration. Operations are bounded by
// the limits, so this turns infinite loops into panics.
type mustProgress struct {
	r        *run
	pos, ops int
}

// check panics if the parser has done nothing since it was last called.
func (mp *mustProgress) check() {
	if mp.pos == mp.r.pos && mp.ops == mp.r.ops {
		panic(fmt.Sprintf("parser failed to make progress at offset %d; this is a bug in polytope", mp.pos))
	}
	mp.pos, mp.ops = mp.r.pos, mp.r.ops
}
