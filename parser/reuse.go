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
	"github.com/bufbuild/polytope/syntax"
)

// cursor walks the subtrees of an edited tree from left to right, offering
// them for reuse.
//
// Offsets are in the coordinates of the new text; the edit has already
// shifted the old tree into place. The cursor only moves forward.
type cursor struct {
	path []cursorEntry
}

type cursorEntry struct {
	sub   *syntax.Subtree
	start int
	// The index of sub in its parent.
	index int
}

func newCursor(root *syntax.Subtree) *cursor {
	return &cursor{path: []cursorEntry{{sub: root}}}
}

// current returns the subtree the cursor is at.
func (c *cursor) current() (*syntax.Subtree, int, bool) {
	if len(c.path) == 0 {
		return nil, 0, false
	}
	top := c.path[len(c.path)-1]
	return top.sub, top.start, true
}

// descend moves to the first child of the current subtree.
func (c *cursor) descend() bool {
	sub, start, ok := c.current()
	if !ok || sub.IsLeaf() {
		return false
	}
	c.path = append(c.path, cursorEntry{sub: sub.Children()[0], start: start})
	return true
}

// skip moves past the current subtree.
func (c *cursor) skip() {
	for len(c.path) > 0 {
		top := c.path[len(c.path)-1]
		c.path = c.path[:len(c.path)-1]
		if len(c.path) == 0 {
			return
		}
		siblings := c.path[len(c.path)-1].sub.Children()
		if next := top.index + 1; next < len(siblings) {
			c.path = append(c.path, cursorEntry{
				sub:   siblings[next],
				start: top.start + top.sub.Size(),
				index: next,
			})
			return
		}
	}
}

// seek moves to the first non-empty subtree that starts at or after pos.
func (c *cursor) seek(pos int) {
	for {
		sub, start, ok := c.current()
		if !ok {
			return
		}
		end := start + sub.Size()
		switch {
		case end <= pos:
			c.skip()
		case start >= pos:
			return
		case !c.descend():
			c.skip()
		}
	}
}

// leaf returns the old token at pos, if it can stand in for lexing there in
// the given state.
//
// A token is reusable if the edit did not touch it or the text the lexer
// examined past it, and it was lexed in the same state: the lexer is a pure
// function of the text it examines and the state's valid terminals.
func (c *cursor) leaf(pos int, lexState grammar.StateID) *syntax.Subtree {
	for {
		c.seek(pos)
		sub, start, ok := c.current()
		if !ok || start != pos {
			return nil
		}
		if sub.IsTerminal() {
			if sub.Changed() || sub.Missing() || sub.IsError() || sub.Fragile() ||
				lexState == grammar.NoState || sub.LexState() != lexState {
				return nil
			}
			return sub
		}
		if !c.descend() {
			return nil
		}
	}
}

// ancestors yields the interior subtrees above the token found by the last
// call to [cursor.leaf] that start at the same offset, widest first. If
// yield returns true, the cursor moves past that subtree.
func (c *cursor) ancestors(pos int, yield func(*syntax.Subtree) bool) {
	for i, entry := range c.path[:max(len(c.path)-1, 0)] {
		if entry.start != pos {
			continue
		}
		if yield(entry.sub) {
			c.path = c.path[:i+1]
			c.skip()
			return
		}
	}
}
