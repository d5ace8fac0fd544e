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
	"slices"
	"sync"
	"sync/atomic"

	"github.com/bufbuild/polytope/grammar"
	"github.com/bufbuild/polytope/source"
)

// lineage is shared by a tree and every tree derived from it by editing and
// reparsing.
type lineage struct {
	versions atomic.Uint64
}

// Tree is one version of a syntax tree.
//
// Trees are immutable and safe for concurrent use. Editing or reparsing a
// tree produces a new tree that shares as many subtrees with the old one as
// possible; the old tree remains valid.
type Tree struct {
	lang *grammar.Language
	root *Subtree
	src  []byte

	lineage *lineage
	version uint64

	// Trees produced by Edit have not been parsed since base, and record the
	// edits applied since then. Parsed trees record the edits that the parse
	// incorporated.
	parsed bool
	base   uint64
	edits  []InputEdit

	fileOnce sync.Once
	file     *source.File
}

// NewTree wraps the result of a parse.
//
// prev is the tree the parse was seeded with, if any; the new tree belongs to
// its lineage. src must not be modified afterwards.
func NewTree(lang *grammar.Language, root *Subtree, src []byte, prev *Tree) *Tree {
	t := &Tree{
		lang:   lang,
		root:   root,
		src:    src,
		parsed: true,
	}
	if prev == nil {
		t.lineage = new(lineage)
	} else {
		t.lineage = prev.lineage
		t.base, t.edits = prev.base, prev.edits
		if prev.parsed {
			t.base, t.edits = prev.version, nil
		}
	}
	t.version = t.lineage.versions.Add(1)
	return t
}

// Language returns the language this tree was parsed with.
func (t *Tree) Language() *grammar.Language {
	return t.lang
}

// Root returns the root node.
func (t *Tree) Root() Node {
	return Node{tree: t, sub: t.root}
}

// Subtree returns the root subtree.
func (t *Tree) Subtree() *Subtree {
	return t.root
}

// Source returns the text this tree was parsed from. Trees produced by
// [Tree.Edit] have no source until they are reparsed.
func (t *Tree) Source() []byte {
	return t.src
}

// File returns a [source.File] for resolving locations in this tree's source.
func (t *Tree) File() *source.File {
	t.fileOnce.Do(func() {
		t.file = source.NewFile("", t.src)
	})
	return t.file
}

// Version returns this tree's version. Versions increase monotonically across
// all trees derived from the same parse.
func (t *Tree) Version() uint64 {
	return t.version
}

// Base returns the version of the parsed tree that [Tree.Edits] apply to.
func (t *Tree) Base() uint64 {
	return t.base
}

// Edits returns the edits that separate this tree from [Tree.Base], in the
// order they were applied.
func (t *Tree) Edits() []InputEdit {
	return slices.Clip(t.edits)
}

// IsEdited returns whether this tree was edited and not yet reparsed.
func (t *Tree) IsEdited() bool {
	return !t.parsed
}

// SameLineage returns whether t and u derive from the same parse.
func (t *Tree) SameLineage(u *Tree) bool {
	return t.lineage == u.lineage
}

// Edit returns a new tree reflecting an edit to the source buffer.
//
// The subtrees touched by the edit are copied and marked as changed; all
// others are shared with t. t itself is not modified. An error is returned if
// the edit does not fit within t.
func (t *Tree) Edit(e InputEdit) (*Tree, error) {
	if err := e.validate(t.root.size); err != nil {
		return nil, err
	}

	u := &Tree{
		lang:    t.lang,
		root:    t.root,
		lineage: t.lineage,
		base:    t.version,
	}
	if !t.parsed {
		u.base, u.edits = t.base, t.edits
	}
	if !e.IsNull() {
		u.root = e.edit(t.root, 0, Point{}, true)
		u.edits = append(slices.Clip(u.edits), e)
	} else {
		u.src = t.src
	}
	u.version = u.lineage.versions.Add(1)
	return u, nil
}
