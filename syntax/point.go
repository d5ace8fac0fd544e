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
	"bytes"
	"cmp"
	"fmt"
)

// Point is a zero-indexed row and byte column in a source buffer.
//
// A Point is also used as an extent: the rows and columns spanned by some
// text. See [Point.Add].
type Point struct {
	Row, Column int
}

// PointOf returns the extent of text.
func PointOf(text []byte) Point {
	rows := bytes.Count(text, []byte("\n"))
	if rows == 0 {
		return Point{Column: len(text)}
	}
	return Point{Row: rows, Column: len(text) - bytes.LastIndexByte(text, '\n') - 1}
}

// Add advances p by an extent.
func (p Point) Add(extent Point) Point {
	if extent.Row > 0 {
		return Point{Row: p.Row + extent.Row, Column: extent.Column}
	}
	return Point{Row: p.Row, Column: p.Column + extent.Column}
}

// Sub returns the extent from q to p. q must not be after p.
func (p Point) Sub(q Point) Point {
	if p.Row > q.Row {
		return Point{Row: p.Row - q.Row, Column: p.Column}
	}
	return Point{Column: p.Column - q.Column}
}

// Compare orders points.
func (p Point) Compare(q Point) int {
	if c := cmp.Compare(p.Row, q.Row); c != 0 {
		return c
	}
	return cmp.Compare(p.Column, q.Column)
}

// String implements [fmt.Stringer].
func (p Point) String() string {
	return fmt.Sprintf("%d:%d", p.Row, p.Column)
}

// Range is a span of source text.
type Range struct {
	StartByte, EndByte   int
	StartPoint, EndPoint Point
}

// Len returns the length of the range in bytes.
func (r Range) Len() int {
	return r.EndByte - r.StartByte
}

// String implements [fmt.Stringer].
func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.StartByte, r.EndByte)
}
