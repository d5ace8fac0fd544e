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
	"slices"

	"github.com/bufbuild/polytope/internal/mathx"
)

// ErrInvalidEdit is returned by [Tree.Edit] for an edit that does not fit the
// tree.
var ErrInvalidEdit = errors.New("invalid edit")

// InputEdit describes a change to a source buffer: the bytes in
// [StartByte, OldEndByte) were replaced with the bytes in
// [StartByte, NewEndByte) of the new buffer.
type InputEdit struct {
	StartByte, OldEndByte, NewEndByte    int
	StartPoint, OldEndPoint, NewEndPoint Point
}

// NewEdit builds the edit that replaces removed bytes at start in src with
// inserted, and returns it along with the new buffer. src is not modified.
//
// Offsets are clamped to src.
func NewEdit(src []byte, start, removed int, inserted []byte) (InputEdit, []byte) {
	start = mathx.Clamp(start, 0, len(src))
	end := mathx.Clamp(start+removed, start, len(src))

	startPoint := PointOf(src[:start])
	e := InputEdit{
		StartByte:   start,
		OldEndByte:  end,
		NewEndByte:  start + len(inserted),
		StartPoint:  startPoint,
		OldEndPoint: startPoint.Add(PointOf(src[start:end])),
		NewEndPoint: startPoint.Add(PointOf(inserted)),
	}
	out := slices.Concat(src[:start], inserted, src[end:])
	return e, out
}

// IsNull returns whether this edit changes nothing.
func (e InputEdit) IsNull() bool {
	return e.StartByte == e.OldEndByte && e.OldEndByte == e.NewEndByte
}

// Delta returns the change in length.
func (e InputEdit) Delta() int {
	return e.NewEndByte - e.OldEndByte
}

// Range returns the range of the new buffer written by the edit.
func (e InputEdit) Range() Range {
	return Range{
		StartByte:  e.StartByte,
		EndByte:    e.NewEndByte,
		StartPoint: e.StartPoint,
		EndPoint:   e.NewEndPoint,
	}
}

// String implements [fmt.Stringer].
func (e InputEdit) String() string {
	return fmt.Sprintf("[%d, %d) -> [%d, %d)", e.StartByte, e.OldEndByte, e.StartByte, e.NewEndByte)
}

func (e InputEdit) validate(size int) error {
	switch {
	case e.StartByte < 0 || e.StartByte > e.OldEndByte || e.OldEndByte > size:
		return fmt.Errorf("%w: %v does not fit in %d bytes", ErrInvalidEdit, e, size)
	case e.NewEndByte < e.StartByte:
		return fmt.Errorf("%w: %v ends before it starts", ErrInvalidEdit, e)
	}
	return nil
}

// mapOffset maps an offset in the old buffer to the new one. Offsets inside
// the removed range collapse to the end of the inserted text.
func (e InputEdit) mapOffset(offset int, point Point) (int, Point) {
	switch {
	case offset <= e.StartByte:
		return offset, point
	case offset >= e.OldEndByte:
		return offset + e.Delta(), e.NewEndPoint.Add(point.Sub(e.OldEndPoint))
	default:
		return e.NewEndByte, e.NewEndPoint
	}
}

// edit applies e to the subtree s, which starts at offset and point in the
// old buffer. last is set for the subtrees that end the buffer; text
// inserted at the very end belongs to them.
func (e InputEdit) edit(s *Subtree, offset int, point Point, last bool) *Subtree {
	end, endPoint := offset+s.size, point.Add(s.extent)
	newStart, newStartPoint := e.mapOffset(offset, point)
	newEnd, newEndPoint := e.mapOffset(end, endPoint)
	appended := last && end == e.StartByte
	if appended {
		newEnd, newEndPoint = e.NewEndByte, e.NewEndPoint
	}

	if s.IsLeaf() {
		return s.edited(newEnd-newStart, newEndPoint.Sub(newStartPoint), nil)
	}

	children := slices.Clone(s.children)
	childStart, childPoint := offset, point
	for i, child := range children {
		childEnd, childEndPoint := childStart+child.size, childPoint.Add(child.extent)
		lastChild := appended && i == len(children)-1
		switch {
		case childEnd+child.lookahead <= e.StartByte && !lastChild:
			// Entirely before the edit.
		case childStart >= e.OldEndByte && childStart > e.StartByte:
			// Entirely after the edit; only its offset changes, which a
			// subtree does not record.
		default:
			children[i] = e.edit(child, childStart, childPoint, lastChild)
		}
		childStart, childPoint = childEnd, childEndPoint
	}
	return s.edited(0, Point{}, children)
}
