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
	"fmt"
	"strconv"
	"strings"

	"github.com/bufbuild/polytope/grammar"
)

// String returns an S-expression for the named nodes under n, such as
//
//	(expr (number) (ERROR))
//
// Fields are printed as "name: " prefixes, and missing tokens as
// (MISSING name).
func (n Node) String() string {
	if n.IsZero() {
		return "()"
	}
	var b strings.Builder
	n.sexpr(&b, true)
	return b.String()
}

func (n Node) sexpr(b *strings.Builder, top bool) {
	if !top {
		if !n.IsNamed() && !n.IsMissing() {
			return
		}
		b.WriteByte(' ')
		if name := n.FieldName(); name != "" {
			b.WriteString(name)
			b.WriteString(": ")
		}
	}

	b.WriteByte('(')
	switch {
	case n.IsMissing():
		b.WriteString("MISSING ")
		if n.IsNamed() {
			b.WriteString(n.Type())
		} else {
			b.WriteString(strconv.Quote(n.Type()))
		}
	case n.IsNamed():
		b.WriteString(n.Type())
	default:
		b.WriteString(strconv.Quote(n.Type()))
	}
	for child := range n.Children() {
		child.sexpr(b, false)
	}
	b.WriteByte(')')
}

// Dump returns a description of every subtree under root, including the
// invisible ones, one per line.
//
// Each line is the symbol, its byte range and any flags; tokens are
// followed by their text if src is not nil.
func Dump(lang *grammar.Language, root *Subtree, src []byte) string {
	var b strings.Builder
	var dump func(s *Subtree, depth, offset int)
	dump = func(s *Subtree, depth, offset int) {
		for range depth {
			b.WriteString("  ")
		}
		name := lang.SymbolName(s.symbol)
		if !s.Named() {
			name = strconv.Quote(name)
		}
		fmt.Fprintf(&b, "%s [%d, %d)", name, offset, offset+s.size)
		for _, flag := range []struct {
			set  bool
			name string
		}{
			{s.Extra(), "extra"},
			{s.Missing(), "missing"},
			{s.HasError() && !s.IsError() && !s.Missing(), "has-error"},
		} {
			if flag.set {
				b.WriteString(" ")
				b.WriteString(flag.name)
			}
		}
		if s.IsTerminal() && src != nil && offset+s.size <= len(src) {
			fmt.Fprintf(&b, " %q", src[offset:offset+s.size])
		}
		b.WriteByte('\n')
		for _, child := range s.children {
			dump(child, depth+1, offset)
			offset += child.size
		}
	}
	dump(root, 0, 0)
	return b.String()
}

// Dump describes the whole tree. See the [Dump] function.
func (t *Tree) Dump() string {
	return Dump(t.lang, t.root, t.src)
}
