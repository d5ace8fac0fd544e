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
	"slices"

	"github.com/bufbuild/polytope/grammar"
	"github.com/bufbuild/polytope/internal/arena"
	"github.com/bufbuild/polytope/syntax"
)

// frame is an entry of a graph-structured stack.
//
// Frames are immutable once allocated, and point to the frame below them;
// versions that fork share the frames below the fork point.
type frame struct {
	// The state after pushing tree.
	state grammar.StateID
	// nil for the bottom frame.
	tree  *syntax.Subtree
	prev  arena.Pointer[frame]
	depth int
}

// version is one head of the stack.
type version struct {
	top arena.Pointer[frame]
	// The state the next token is lexed in. This is the top state, except
	// after a reused subtree, where it is the state the old parse lexed the
	// following token in.
	lexState grammar.StateID
}

// stack owns the frames of all versions during a parse.
type stack struct {
	frames   arena.Arena[frame]
	maxDepth int
}

func (s *stack) bottom(state grammar.StateID) version {
	top := s.frames.New(frame{state: state})
	return version{top: top, lexState: state}
}

func (s *stack) at(p arena.Pointer[frame]) *frame {
	return p.In(&s.frames)
}

func (s *stack) state(v version) grammar.StateID {
	return s.at(v.top).state
}

// push pushes tree on top of prev. Returns false if this would exceed the
// depth limit.
func (s *stack) push(prev arena.Pointer[frame], state grammar.StateID, tree *syntax.Subtree) (arena.Pointer[frame], bool) {
	depth := s.at(prev).depth + 1
	if depth > s.maxDepth {
		return 0, false
	}
	return s.frames.New(frame{state: state, tree: tree, prev: prev, depth: depth}), true
}

// pop removes n non-extra subtrees from the top of a version, along with the
// extras between them. Extras above the topmost non-extra subtree are
// returned separately, in stack order, when n > 0.
//
// Returns false if the stack does not hold n subtrees.
func (s *stack) pop(top arena.Pointer[frame], n int) (base arena.Pointer[frame], popped, trailing []*syntax.Subtree, ok bool) {
	if n > 0 {
		for f := s.at(top); f.tree != nil && f.tree.Extra(); f = s.at(top) {
			trailing = append(trailing, f.tree)
			top = f.prev
		}
		slices.Reverse(trailing)
	}
	for n > 0 {
		f := s.at(top)
		if f.tree == nil {
			return 0, nil, nil, false
		}
		popped = append(popped, f.tree)
		if !f.tree.Extra() {
			n--
		}
		top = f.prev
	}
	slices.Reverse(popped)
	return top, popped, trailing, true
}

// subtrees returns every subtree on a version, bottom first.
func (s *stack) subtrees(top arena.Pointer[frame]) []*syntax.Subtree {
	var out []*syntax.Subtree
	for f := s.at(top); f.tree != nil; f = s.at(f.prev) {
		out = append(out, f.tree)
	}
	slices.Reverse(out)
	return out
}

// mergeable returns whether two versions have the same states all the way
// down to a frame they share. Such versions behave identically from here on.
func (s *stack) mergeable(a, b version) bool {
	if a.lexState != b.lexState {
		return false
	}
	p, q := a.top, b.top
	for p != q {
		f, g := s.at(p), s.at(q)
		if f.state != g.state || f.depth != g.depth || f.prev.Nil() || g.prev.Nil() {
			return false
		}
		p, q = f.prev, g.prev
	}
	return true
}

// merge removes versions that are mergeable with an earlier one.
func (s *stack) merge(versions []version) []version {
	out := versions[:0]
outer:
	for _, v := range versions {
		for _, w := range out {
			if s.mergeable(w, v) {
				continue outer
			}
		}
		out = append(out, v)
	}
	return out
}
