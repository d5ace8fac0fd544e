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

package syntax

import (
	"github.com/bufbuild/polytope/grammar"
)

type flags uint16

const (
	flagVisible flags = 1 << iota
	flagNamed
	flagExtra
	flagMissing
	flagError
	flagHasError
	flagFragile
	flagChanged
	flagTerminal
)

// Subtree is an immutable node of a syntax tree.
//
// A Subtree does not know its absolute position, only its size in bytes and
// its extent in rows and columns. This is what allows a subtree to be shared
// by trees in which it sits at different offsets. Absolute positions are
// computed by [Node] during navigation.
//
// Subtrees are created by the parser; every tree holding a pointer to a
// subtree keeps it alive.
type Subtree struct {
	symbol grammar.Symbol
	rule   grammar.RuleID
	flags  flags

	preState, lexState, postState grammar.StateID
	// The lookahead that caused this node to be reduced.
	follow grammar.Symbol

	size   int
	extent Point
	// Bytes past the end of this subtree that the lexer examined while
	// producing it.
	lookahead int

	children []*Subtree
	// Number of visible and named children once invisible children are
	// flattened out.
	visible, named int
}

// LeafParams are the arguments to [NewLeaf].
type LeafParams struct {
	Symbol grammar.Symbol
	// The text of the token. Ignored for missing leaves.
	Text []byte
	// The number of bytes past the end of Text examined by the lexer.
	Lookahead int

	// The parse state the token was lexed in, or [grammar.NoState] if the
	// lexer was not given a particular state.
	LexState grammar.StateID
	// The states before and after the token was shifted.
	PreState, PostState grammar.StateID

	Extra, Missing, Fragile bool
}

// NewLeaf creates a leaf subtree.
func NewLeaf(lang *grammar.Language, p LeafParams) *Subtree {
	info := lang.Info(p.Symbol)
	s := &Subtree{
		symbol:    p.Symbol,
		rule:      grammar.NoRule,
		preState:  p.PreState,
		lexState:  p.LexState,
		postState: p.PostState,
		lookahead: max(p.Lookahead, 0),
	}
	if !p.Missing {
		s.size = len(p.Text)
		s.extent = PointOf(p.Text)
	}
	s.flags |= flagTerminal
	s.setInfo(info)
	if p.Extra || info.Extra {
		s.flags |= flagExtra
	}
	if p.Missing {
		s.flags |= flagMissing | flagHasError
	}
	if p.Fragile {
		s.flags |= flagFragile
	}
	return s
}

// NodeParams are the arguments to [NewNode].
type NodeParams struct {
	Symbol grammar.Symbol
	// The rule that produced the node, or [grammar.NoRule].
	Rule     grammar.RuleID
	Children []*Subtree

	// The states before and after the node. These are only used for nodes
	// without children; otherwise they are taken from the first and last
	// child.
	PreState, PostState grammar.StateID
	// The non-extra terminal that was the lookahead when the node was
	// reduced; see [Subtree.Follow].
	Follow grammar.Symbol

	Extra, Fragile bool
}

// NewNode creates an interior subtree.
func NewNode(lang *grammar.Language, p NodeParams) *Subtree {
	s := &Subtree{
		symbol:    p.Symbol,
		rule:      p.Rule,
		preState:  p.PreState,
		lexState:  grammar.NoState,
		postState: p.PostState,
		follow:    p.Follow,
		children:  p.Children,
	}
	if s.symbol == grammar.Error {
		s.rule = grammar.NoRule
	}
	s.setInfo(lang.Info(p.Symbol))
	if p.Extra {
		s.flags |= flagExtra
	}
	if p.Fragile {
		s.flags |= flagFragile
	}
	if n := len(p.Children); n > 0 {
		s.preState = p.Children[0].preState
		s.postState = p.Children[n-1].postState
	}
	s.summarize()
	return s
}

func (s *Subtree) setInfo(info grammar.SymbolInfo) {
	if info.Visible {
		s.flags |= flagVisible
	}
	if info.Named {
		s.flags |= flagNamed
	}
	if s.symbol == grammar.Error {
		s.flags |= flagError | flagHasError
	}
}

// summarize recomputes the values of s that are derived from its children.
func (s *Subtree) summarize() {
	if len(s.children) == 0 {
		return
	}
	s.size, s.extent, s.lookahead = 0, Point{}, 0
	s.visible, s.named = 0, 0
	for _, child := range s.children {
		s.size += child.size
		s.extent = s.extent.Add(child.extent)
		// Lookahead relative to the end of s: any earlier child's lookahead
		// would have to reach past the children that follow it.
		end := s.size + child.lookahead
		s.lookahead = max(s.lookahead, end)

		if child.flags&flagHasError != 0 {
			s.flags |= flagHasError
		}
		if child.flags&flagFragile != 0 {
			s.flags |= flagFragile
		}
		switch {
		case child.Visible():
			s.visible++
			if child.Named() {
				s.named++
			}
		case !child.IsLeaf():
			s.visible += child.visible
			s.named += child.named
		}
	}
	s.lookahead = max(s.lookahead-s.size, 0)
}

// Symbol returns the grammar symbol of this subtree.
func (s *Subtree) Symbol() grammar.Symbol { return s.symbol }

// Rule returns the rule that produced this subtree. Leaves and error nodes
// return [grammar.NoRule].
func (s *Subtree) Rule() grammar.RuleID { return s.rule }

// Size returns the length of this subtree's text in bytes.
func (s *Subtree) Size() int { return s.size }

// Extent returns the rows and columns spanned by this subtree's text.
func (s *Subtree) Extent() Point { return s.extent }

// Lookahead returns the number of bytes past the end of this subtree that
// were examined to produce it. An edit within the subtree or its lookahead
// invalidates it.
func (s *Subtree) Lookahead() int { return s.lookahead }

// Children returns the children of this subtree. The result must not be
// modified.
func (s *Subtree) Children() []*Subtree { return s.children }

// IsLeaf returns whether this subtree has no children. This includes empty
// interior nodes.
func (s *Subtree) IsLeaf() bool { return len(s.children) == 0 }

// IsTerminal returns whether this is a token, as opposed to an interior node.
// Lexical error tokens are terminals; error nodes are not.
func (s *Subtree) IsTerminal() bool { return s.flags&flagTerminal != 0 }

func (s *Subtree) Visible() bool  { return s.flags&flagVisible != 0 }
func (s *Subtree) Named() bool    { return s.flags&flagNamed != 0 }
func (s *Subtree) Extra() bool    { return s.flags&flagExtra != 0 }
func (s *Subtree) Missing() bool  { return s.flags&flagMissing != 0 }
func (s *Subtree) IsError() bool  { return s.flags&flagError != 0 }
func (s *Subtree) HasError() bool { return s.flags&flagHasError != 0 }

// Fragile subtrees were built while the parser was unsure of the parse, and
// are never reused by an incremental parse.
func (s *Subtree) Fragile() bool { return s.flags&flagFragile != 0 }

// Changed subtrees were touched by an edit.
func (s *Subtree) Changed() bool { return s.flags&flagChanged != 0 }

// PreState returns the parse state this subtree was pushed onto.
func (s *Subtree) PreState() grammar.StateID { return s.preState }

// PostState returns the parse state after the last token of this subtree was
// shifted, which is the state the following token was lexed in.
func (s *Subtree) PostState() grammar.StateID { return s.postState }

// Follow returns the terminal that followed an interior node when it was
// reduced. Leaves return [grammar.End].
func (s *Subtree) Follow() grammar.Symbol { return s.follow }

// LexState returns the parse state a leaf was lexed in.
func (s *Subtree) LexState() grammar.StateID { return s.lexState }

// FirstLeaf returns the leftmost leaf of this subtree.
func (s *Subtree) FirstLeaf() *Subtree {
	for len(s.children) > 0 {
		s = s.children[0]
	}
	return s
}

// WithStates returns a leaf with its parse states replaced. If they already
// match, returns s.
func (s *Subtree) WithStates(pre, post grammar.StateID) *Subtree {
	if s.preState == pre && s.postState == post {
		return s
	}
	c := *s
	c.preState, c.postState = pre, post
	return &c
}

// edited returns a copy of s marked as changed, with a new size and
// extent.
func (s *Subtree) edited(size int, extent Point, children []*Subtree) *Subtree {
	c := *s
	c.flags |= flagChanged
	if len(children) > 0 {
		c.children = children
		c.summarize()
	} else {
		c.size, c.extent = size, extent
	}
	return &c
}

// Count returns the number of subtrees reachable from s, including s.
// Shared subtrees are counted once per occurrence.
func (s *Subtree) Count() int {
	n := 1
	for _, child := range s.children {
		n += child.Count()
	}
	return n
}
