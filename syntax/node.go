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
	"iter"

	"github.com/bufbuild/polytope/grammar"
)

// Node is a position in a [Tree]: a subtree, together with where it sits.
//
// Navigation only visits visible nodes. The children of hidden rules,
// auxiliary rules and whitespace are spliced into their parent's children
// in their place.
//
// Nodes are values; the zero Node represents no node, and is returned by
// navigation methods that have nothing to return. See [Node.IsZero].
type Node struct {
	tree  *Tree
	sub   *Subtree
	start int
	point Point

	// The node this one was reached from. This is only used for navigation;
	// subtrees never refer to their parents.
	parent *Node
	index  int
	field  grammar.FieldID
}

// IsZero returns whether this is the zero Node.
func (n Node) IsZero() bool {
	return n.sub == nil
}

// Tree returns the tree this node belongs to.
func (n Node) Tree() *Tree {
	return n.tree
}

// Subtree returns the underlying subtree.
func (n Node) Subtree() *Subtree {
	return n.sub
}

// Symbol returns this node's grammar symbol.
func (n Node) Symbol() grammar.Symbol {
	if n.IsZero() {
		return 0
	}
	return n.sub.symbol
}

// Type returns the name of this node's symbol.
func (n Node) Type() string {
	if n.IsZero() {
		return ""
	}
	return n.tree.lang.SymbolName(n.sub.symbol)
}

// IsNamed returns whether this node is named, which is the case for nodes of
// named rules and tokens, as opposed to string literals.
func (n Node) IsNamed() bool {
	return !n.IsZero() && n.sub.Named()
}

// IsError returns whether this is an error node.
func (n Node) IsError() bool {
	return !n.IsZero() && n.sub.IsError()
}

// IsMissing returns whether this is a zero-width token inserted by error
// recovery.
func (n Node) IsMissing() bool {
	return !n.IsZero() && n.sub.Missing()
}

// IsExtra returns whether this node is not part of the grammar's rules, such
// as an error node interrupting a production.
func (n Node) IsExtra() bool {
	return !n.IsZero() && n.sub.Extra()
}

// HasError returns whether this node is or contains an error or missing node.
func (n Node) HasError() bool {
	return !n.IsZero() && n.sub.HasError()
}

// StartByte returns the offset this node starts at.
func (n Node) StartByte() int {
	return n.start
}

// EndByte returns the offset after this node's last byte.
func (n Node) EndByte() int {
	if n.IsZero() {
		return n.start
	}
	return n.start + n.sub.size
}

// StartPoint returns the position this node starts at.
func (n Node) StartPoint() Point {
	return n.point
}

// EndPoint returns the position after this node's last byte.
func (n Node) EndPoint() Point {
	if n.IsZero() {
		return n.point
	}
	return n.point.Add(n.sub.extent)
}

// Range returns the span of this node.
func (n Node) Range() Range {
	return Range{
		StartByte:  n.StartByte(),
		EndByte:    n.EndByte(),
		StartPoint: n.StartPoint(),
		EndPoint:   n.EndPoint(),
	}
}

// Text returns this node's text, if the tree has a source buffer.
func (n Node) Text() string {
	if n.IsZero() || n.tree.src == nil || n.EndByte() > len(n.tree.src) {
		return ""
	}
	return string(n.tree.src[n.StartByte():n.EndByte()])
}

// Same returns whether two nodes are backed by the same subtree. This is the
// case for nodes that an edit and reparse reused unchanged.
func (n Node) Same(m Node) bool {
	return n.sub != nil && n.sub == m.sub
}

// Parent returns this node's parent.
func (n Node) Parent() Node {
	if n.parent == nil {
		return Node{}
	}
	return *n.parent
}

// FieldName returns the name of the field this node occupies in its parent,
// or "" if it is not in a field.
func (n Node) FieldName() string {
	if n.IsZero() {
		return ""
	}
	return n.tree.lang.FieldName(n.field)
}

// ChildCount returns the number of children.
func (n Node) ChildCount() int {
	if n.IsZero() {
		return 0
	}
	return n.sub.visible
}

// NamedChildCount returns the number of named children.
func (n Node) NamedChildCount() int {
	if n.IsZero() {
		return 0
	}
	return n.sub.named
}

// Children returns an iterator over this node's children.
func (n Node) Children() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		if n.IsZero() {
			return
		}
		parent := &n
		var index int
		var walk func(*Subtree, int, Point, grammar.FieldID) bool
		walk = func(s *Subtree, start int, point Point, inherited grammar.FieldID) bool {
			var k int
			for _, child := range s.children {
				var field grammar.FieldID
				if !child.Extra() {
					field = n.tree.lang.Field(s.rule, k)
					if field == 0 {
						field = inherited
					}
					k++
				}
				switch {
				case child.Visible():
					if !yield(Node{
						tree:   n.tree,
						sub:    child,
						start:  start,
						point:  point,
						parent: parent,
						index:  index,
						field:  field,
					}) {
						return false
					}
					index++
				case !child.IsLeaf():
					if !walk(child, start, point, field) {
						return false
					}
				}
				start += child.size
				point = point.Add(child.extent)
			}
			return true
		}
		walk(n.sub, n.start, n.point, 0)
	}
}

// NamedChildren returns an iterator over this node's named children.
func (n Node) NamedChildren() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for child := range n.Children() {
			if child.IsNamed() && !yield(child) {
				return
			}
		}
	}
}

// Child returns the i-th child.
func (n Node) Child(i int) Node {
	if i < 0 || i >= n.ChildCount() {
		return Node{}
	}
	for child := range n.Children() {
		if child.index == i {
			return child
		}
	}
	return Node{}
}

// NamedChild returns the i-th named child.
func (n Node) NamedChild(i int) Node {
	if i < 0 || i >= n.NamedChildCount() {
		return Node{}
	}
	for child := range n.NamedChildren() {
		if i == 0 {
			return child
		}
		i--
	}
	return Node{}
}

// ChildByFieldName returns the first child in the named field.
func (n Node) ChildByFieldName(name string) Node {
	if n.IsZero() {
		return Node{}
	}
	id, ok := n.tree.lang.FieldByName(name)
	if !ok {
		return Node{}
	}
	for child := range n.Children() {
		if child.field == id {
			return child
		}
	}
	return Node{}
}

// NextSibling returns the child of this node's parent that follows it.
func (n Node) NextSibling() Node {
	return n.Parent().Child(n.index + 1)
}

// PrevSibling returns the child of this node's parent that precedes it.
func (n Node) PrevSibling() Node {
	if n.parent == nil {
		return Node{}
	}
	return n.Parent().Child(n.index - 1)
}

// NextNamedSibling returns the next named sibling.
func (n Node) NextNamedSibling() Node {
	if n.parent == nil {
		return Node{}
	}
	for sib := range n.Parent().Children() {
		if sib.index > n.index && sib.IsNamed() {
			return sib
		}
	}
	return Node{}
}

// PrevNamedSibling returns the previous named sibling.
func (n Node) PrevNamedSibling() Node {
	if n.parent == nil {
		return Node{}
	}
	var prev Node
	for sib := range n.Parent().Children() {
		if sib.index >= n.index {
			break
		}
		if sib.IsNamed() {
			prev = sib
		}
	}
	return prev
}

// DescendantForByteRange returns the smallest node within this one that
// spans [start, end).
//
// This descends from n using span containment, so it takes time
// proportional to the depth of the result.
func (n Node) DescendantForByteRange(start, end int) Node {
	return n.descendant(start, end, false)
}

// NamedDescendantForByteRange is like [Node.DescendantForByteRange], but
// only returns named nodes.
func (n Node) NamedDescendantForByteRange(start, end int) Node {
	return n.descendant(start, end, true)
}

// NodeAt returns the smallest node containing the byte at offset.
func (n Node) NodeAt(offset int) Node {
	return n.descendant(offset, offset, false)
}

func (n Node) descendant(start, end int, named bool) Node {
	if n.IsZero() {
		return n
	}
	if end < start {
		start, end = end, start
	}

	found, node := n, n
descend:
	for {
		for child := range node.Children() {
			cs, ce := child.StartByte(), child.EndByte()
			if cs > start {
				break
			}
			if ce < end || ce <= start {
				continue
			}
			node = child
			if !named || child.IsNamed() {
				found = child
			}
			continue descend
		}
		return found
	}
}

// Walk traverses this node and its descendants in pre-order. If visit
// returns false, the children of that node are skipped.
func (n Node) Walk(visit func(Node) bool) {
	if n.IsZero() || !visit(n) {
		return
	}
	for child := range n.Children() {
		child.Walk(visit)
	}
}
