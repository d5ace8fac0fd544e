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
	"errors"
	"fmt"

	"github.com/bufbuild/polytope/internal/interval"
)

// ErrUnrelatedTrees is returned by [ChangedRanges] for trees that are not
// versions of one another.
var ErrUnrelatedTrees = errors.New("trees are not related")

// ChangedRanges returns the ranges of new whose syntactic structure differs
// from old. new must be a later version of old, as produced by [Tree.Edit]
// and reparsing.
//
// A range is reported for every token of new that is not shared with old,
// and for every interior node whose children are all shared but that is not
// shared itself. If new was derived from old by edits, the text written by
// those edits is also reported. The ranges are sorted and disjoint, and are
// in the coordinates of new.
func ChangedRanges(old, new *Tree) ([]Range, error) {
	if !old.SameLineage(new) || old.version > new.version {
		return nil, fmt.Errorf("%w: version %d is not an ancestor of version %d", ErrUnrelatedTrees, old.version, new.version)
	}

	shared := make(map[*Subtree]struct{})
	var collect func(*Subtree)
	collect = func(s *Subtree) {
		if _, ok := shared[s]; ok {
			return
		}
		shared[s] = struct{}{}
		for _, child := range s.children {
			collect(child)
		}
	}
	collect(old.root)

	var set interval.Set[int]
	var diff func(*Subtree, int) bool
	diff = func(s *Subtree, offset int) bool {
		if _, ok := shared[s]; ok {
			return false
		}
		var found bool
		start := offset
		for _, child := range s.children {
			if diff(child, start) {
				found = true
			}
			start += child.size
		}
		if !found {
			set.Insert(offset, offset+s.size)
		}
		return true
	}
	diff(new.root, 0)

	if new.base == old.version {
		for i, e := range new.edits {
			start, end := e.StartByte, e.NewEndByte
			for _, later := range new.edits[i+1:] {
				start, _ = later.mapOffset(start, Point{})
				end, _ = later.mapOffset(end, Point{})
			}
			set.Insert(start, max(start, end))
		}
	}

	file := new.File()
	var ranges []Range
	for r := range set.All() {
		ranges = append(ranges, Range{
			StartByte:  r.Start,
			EndByte:    r.End,
			StartPoint: pointAt(file.Text(), r.Start),
			EndPoint:   pointAt(file.Text(), r.End),
		})
	}
	return ranges, nil
}

// pointAt returns the point at offset in text. Offsets not covered by text
// are measured as if text continued with non-newline bytes.
func pointAt(text []byte, offset int) Point {
	if offset <= len(text) {
		return PointOf(text[:offset])
	}
	p := PointOf(text)
	p.Column += offset - len(text)
	return p
}
