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

// Package source resolves byte offsets in a source buffer into user-facing
// line and column locations.
package source

import (
	"bytes"
	"fmt"
	"slices"
	"sync"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// Unit is a unit for measuring columns.
type Unit int

const (
	Bytes Unit = iota
	Runes
	UTF16
	// TermWidth measures columns in terminal cells.
	TermWidth
)

// TabStop is the tab width used when measuring [TermWidth] columns.
const TabStop = 4

// Location is a resolved position in a [File].
type Location struct {
	// The byte offset.
	Offset int
	// 1-indexed line and column.
	Line, Column int
}

// String implements [fmt.Stringer].
func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// File is a source buffer with a lazily built line index.
//
// A nil *File behaves like an empty file with the path name "".
type File struct {
	path string
	text []byte

	once sync.Once
	// The index after each \n in text, preceded by zero. Given a byte offset,
	// the line containing it is found by binary search.
	lineIndex []int
}

// NewFile constructs a new source file. text must not be modified afterwards.
func NewFile(path string, text []byte) *File {
	return &File{path: path, text: text}
}

// Path returns this file's path.
func (f *File) Path() string {
	if f == nil {
		return ""
	}
	return f.path
}

// Text returns this file's contents.
func (f *File) Text() []byte {
	if f == nil {
		return nil
	}
	return f.text
}

// LineCount returns the number of lines. A file always has at least one.
func (f *File) LineCount() int {
	return max(len(f.lines()), 1)
}

// LineByOffset returns the zero-indexed line containing offset.
//
// This operation is O(log n).
func (f *File) LineByOffset(offset int) int {
	lines := f.lines()
	line, exact := slices.BinarySearch(lines, offset)
	if !exact {
		line--
	}
	return max(line, 0)
}

// Location builds full location information for the given byte offset.
//
// This operation is O(log n).
func (f *File) Location(offset int, units Unit) Location {
	if f == nil || offset <= 0 {
		return Location{Offset: 0, Line: 1, Column: 1}
	}
	offset = min(offset, len(f.text))

	line := f.LineByOffset(offset)
	chunk := f.text[f.lines()[line]:offset]
	var column int
	switch units {
	case Bytes:
		column = len(chunk)
	case Runes:
		column = utf8.RuneCount(chunk)
	case UTF16:
		for _, r := range string(chunk) {
			column += utf16.RuneLen(r)
		}
	case TermWidth:
		column = Width(chunk)
	}

	return Location{
		Offset: offset,
		Line:   line + 1,
		Column: column + 1,
	}
}

// Line returns the given 1-indexed line, including its trailing newline.
func (f *File) Line(line int) []byte {
	start, end := f.LineOffsets(line)
	return f.text[start:end]
}

// LineOffsets returns the offsets for the given 1-indexed line, including its
// trailing newline.
func (f *File) LineOffsets(line int) (start, end int) {
	lines := f.lines()
	if len(lines) == 0 {
		return 0, 0
	}
	if len(lines) == line {
		return lines[line-1], len(f.text)
	}
	return lines[line-1], lines[line]
}

func (f *File) lines() []int {
	if f == nil {
		return nil
	}

	f.once.Do(func() {
		f.lineIndex = append(f.lineIndex, 0)
		for next, text := 0, f.text; ; {
			newline := bytes.IndexByte(text, '\n') + 1
			if newline == 0 {
				break
			}
			text = text[newline:]
			next += newline
			f.lineIndex = append(f.lineIndex, next)
		}
	})
	return f.lineIndex
}

// Width returns the number of terminal cells text occupies, expanding tabs to
// [TabStop].
func Width(text []byte) int {
	var column int
	for len(text) > 0 {
		tab := bytes.IndexByte(text, '\t')
		if tab < 0 {
			tab = len(text)
		}
		column += uniseg.StringWidth(string(text[:tab]))
		if tab == len(text) {
			break
		}
		column += TabStop - column%TabStop
		text = text[tab+1:]
	}
	return column
}
