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

// Package report turns the errors recorded in a syntax tree into
// diagnostics, and renders them for people.
//
// Parsing never fails on bad input; it produces a tree with error and
// missing nodes in it instead. [Collect] finds those nodes, and a [Renderer]
// prints them along with the source they point to.
package report

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"

	"github.com/bufbuild/polytope/source"
	"github.com/bufbuild/polytope/syntax"
)

// Level is the severity of a diagnostic.
type Level int8

const (
	Error Level = 1 + iota
	Warning
	Remark
)

// String implements [fmt.Stringer].
func (l Level) String() string {
	switch l {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Remark:
		return "remark"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Tag identifies the kind of a diagnostic, for machines.
type Tag string

// Tags for diagnostics produced by [Collect].
const (
	TagUnexpected Tag = "unexpected-token"
	TagInvalid    Tag = "invalid-character"
	TagMissing    Tag = "missing-token"
)

// Diagnostic is a problem at some span of a file.
type Diagnostic struct {
	Level   Level
	Tag     Tag
	Message string
	Span    syntax.Range
	Notes   []string
}

// Report is the diagnostics for one file.
type Report struct {
	Path        string
	File        *source.File
	Diagnostics []Diagnostic
}

// DiagnosticOption is an option that can be applied to a [Diagnostic].
type DiagnosticOption func(*Diagnostic)

// WithTag sets a diagnostic's tag.
func WithTag(tag Tag) DiagnosticOption {
	return func(d *Diagnostic) { d.Tag = tag }
}

// Note adds some context to a diagnostic.
func Note(format string, args ...any) DiagnosticOption {
	return func(d *Diagnostic) {
		d.Notes = append(d.Notes, fmt.Sprintf(format, args...))
	}
}

// Error adds an error at span.
func (r *Report) Error(span syntax.Range, message string, opts ...DiagnosticOption) {
	r.push(Error, span, message, opts)
}

// Warn adds a warning at span.
func (r *Report) Warn(span syntax.Range, message string, opts ...DiagnosticOption) {
	r.push(Warning, span, message, opts)
}

func (r *Report) push(level Level, span syntax.Range, message string, opts []DiagnosticOption) {
	d := Diagnostic{Level: level, Message: message, Span: span}
	for _, opt := range opts {
		opt(&d)
	}
	r.Diagnostics = append(r.Diagnostics, d)
}

// Sort sorts the diagnostics by position. Diagnostics at the same position
// keep their order.
func (r *Report) Sort() {
	slices.SortStableFunc(r.Diagnostics, func(a, b Diagnostic) int {
		return cmp.Or(
			cmp.Compare(a.Span.StartByte, b.Span.StartByte),
			cmp.Compare(a.Span.EndByte, b.Span.EndByte),
		)
	})
}

// Count returns the number of diagnostics at the given level.
func (r *Report) Count(level Level) int {
	var n int
	for _, d := range r.Diagnostics {
		if d.Level == level {
			n++
		}
	}
	return n
}

// Collect reports the error and missing nodes of tree. The file is named
// path in diagnostics.
func Collect(path string, tree *syntax.Tree) *Report {
	r := &Report{Path: path, File: source.NewFile(path, tree.Source())}
	tree.Root().Walk(func(n syntax.Node) bool {
		switch {
		case n.IsMissing():
			r.Error(n.Range(), "missing "+describe(n, false), WithTag(TagMissing))
		case n.IsError() && n.Subtree().IsLeaf() && n.EndByte() > n.StartByte():
			r.Error(n.Range(), "invalid character "+strconv.Quote(n.Text()), WithTag(TagInvalid))
		case n.IsError():
			r.unexpected(n)
			return false
		}
		return true
	})
	r.Sort()
	return r
}

// unexpected reports an error node by the first token in it.
func (r *Report) unexpected(n syntax.Node) {
	if n.StartByte() == n.EndByte() {
		r.Error(n.Range(), "unexpected end of input", WithTag(TagUnexpected))
		return
	}

	first := n
	for {
		var next syntax.Node
		for child := range first.Children() {
			if child.EndByte() > child.StartByte() {
				next = child
				break
			}
		}
		if next.IsZero() {
			break
		}
		first = next
	}

	var opts []DiagnosticOption
	opts = append(opts, WithTag(TagUnexpected))
	if skipped := n.EndByte() - first.EndByte(); skipped > 0 {
		opts = append(opts, Note("skipped %d more %s", skipped, plural(skipped, "byte")))
	}
	r.Error(n.Range(), "unexpected "+describe(first, true), opts...)
}

// describe names a token for a message.
func describe(n syntax.Node, text bool) string {
	switch {
	case n.IsError() || n.IsZero():
		return strconv.Quote(n.Text())
	case !n.IsNamed():
		return strconv.Quote(n.Type())
	case text && n.Text() != "":
		return n.Type() + " " + strconv.Quote(n.Text())
	default:
		return n.Type()
	}
}

func plural(n int, what string) string {
	if n == 1 {
		return what
	}
	return what + "s"
}
