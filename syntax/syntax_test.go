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

package syntax_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bufbuild/polytope/grammar"
	. "github.com/bufbuild/polytope/grammar/builder" //nolint:revive // DSL.
	"github.com/bufbuild/polytope/parser"
	"github.com/bufbuild/polytope/syntax"
)

func statements(t testing.TB) *grammar.Language {
	t.Helper()
	lang, err := New("statements").
		Token("id", Pat(`[a-z]+`)).
		Token("number", Pat(`[0-9]+`)).
		Rule("program", Repeat(Sym("stmt"))).
		Rule("stmt", Seq(
			Field("name", Sym("id")),
			Str("="),
			Field("value", Sym("expr")),
			Str(";"),
		)).
		Rule("expr", Choice(
			Sym("id"),
			Sym("number"),
			Seq(Str("("), Sym("expr"), Str(")")),
		)).
		Extra(`[ \t\r\n]+`).
		Sync(";").
		Language()
	require.NoError(t, err)
	return lang
}

func parse(t testing.TB, lang *grammar.Language, src string) *syntax.Tree {
	t.Helper()
	tree, err := parser.New(lang).Parse(context.Background(), []byte(src), nil)
	require.NoError(t, err)
	return tree
}

func TestNewEdit(t *testing.T) {
	t.Parallel()

	e, src := syntax.NewEdit([]byte("ab\ncd"), 3, 1, []byte("xy\nz"))
	assert.Equal(t, "ab\nxy\nzd", string(src))
	assert.Equal(t, syntax.InputEdit{
		StartByte:   3,
		OldEndByte:  4,
		NewEndByte:  7,
		StartPoint:  syntax.Point{Row: 1, Column: 0},
		OldEndPoint: syntax.Point{Row: 1, Column: 1},
		NewEndPoint: syntax.Point{Row: 2, Column: 1},
	}, e)
	assert.Equal(t, 3, e.Delta())
	assert.False(t, e.IsNull())

	// Out of range offsets are clamped.
	e, src = syntax.NewEdit([]byte("ab"), 10, 5, []byte("c"))
	assert.Equal(t, "abc", string(src))
	assert.Equal(t, 2, e.StartByte)
	assert.Equal(t, 2, e.OldEndByte)

	e, _ = syntax.NewEdit([]byte("ab"), 1, 0, nil)
	assert.True(t, e.IsNull())
}

func TestEdit(t *testing.T) {
	t.Parallel()
	lang := statements(t)

	old := parse(t, lang, "a = 1; b = 2;")
	e, _ := syntax.NewEdit(old.Source(), 11, 1, []byte("33"))
	edited, err := old.Edit(e)
	require.NoError(t, err)

	assert.True(t, edited.IsEdited())
	assert.False(t, old.IsEdited())
	assert.Nil(t, edited.Source())
	assert.Equal(t, []syntax.InputEdit{e}, edited.Edits())
	assert.Equal(t, old.Version(), edited.Base())
	assert.Greater(t, edited.Version(), old.Version())
	assert.True(t, old.SameLineage(edited))

	// The path to the edit is copied, and the rest is shared.
	assert.NotSame(t, old.Subtree(), edited.Subtree())
	assert.True(t, edited.Subtree().Changed())
	assert.False(t, old.Subtree().Changed())
	assert.Equal(t, 14, edited.Subtree().Size())
	assert.Equal(t, 13, old.Subtree().Size())
	assert.True(t, old.Root().NamedChild(0).Same(edited.Root().NamedChild(0)))
	assert.False(t, old.Root().NamedChild(1).Same(edited.Root().NamedChild(1)))

	// Edits accumulate until the tree is reparsed.
	e2, _ := syntax.NewEdit(make([]byte, 14), 0, 0, []byte("c = 0; "))
	twice, err := edited.Edit(e2)
	require.NoError(t, err)
	assert.Equal(t, []syntax.InputEdit{e, e2}, twice.Edits())
	assert.Equal(t, old.Version(), twice.Base())

	// Text appended at the end of the buffer grows the last statement.
	e3, _ := syntax.NewEdit(old.Source(), 13, 0, []byte(" c = 3;"))
	appended, err := old.Edit(e3)
	require.NoError(t, err)
	assert.Equal(t, 20, appended.Subtree().Size())
	assert.True(t, old.Root().NamedChild(0).Same(appended.Root().NamedChild(0)))
	assert.False(t, old.Root().NamedChild(1).Same(appended.Root().NamedChild(1)))
	assert.Equal(t, 20, appended.Root().NamedChild(1).EndByte())

	_, err = old.Edit(syntax.InputEdit{StartByte: 5, OldEndByte: 4, NewEndByte: 5})
	require.ErrorIs(t, err, syntax.ErrInvalidEdit)
	_, err = old.Edit(syntax.InputEdit{StartByte: 5, OldEndByte: 20, NewEndByte: 5})
	require.ErrorIs(t, err, syntax.ErrInvalidEdit)
	_, err = old.Edit(syntax.InputEdit{StartByte: 5, OldEndByte: 6, NewEndByte: 4})
	require.ErrorIs(t, err, syntax.ErrInvalidEdit)
}

func TestNavigation(t *testing.T) {
	t.Parallel()
	lang := statements(t)

	tree := parse(t, lang, "a = 1;\nb = (c);")
	root := tree.Root()
	assert.Equal(t, "program", root.Type())
	assert.True(t, root.Parent().IsZero())
	require.Equal(t, 2, root.NamedChildCount())

	first := root.NamedChild(0)
	assert.Equal(t, "stmt", first.Type())
	assert.True(t, first.Parent().Same(root))
	assert.Equal(t, 4, first.ChildCount())
	assert.Equal(t, 2, first.NamedChildCount())

	name := first.ChildByFieldName("name")
	assert.Equal(t, "a", name.Text())
	assert.Equal(t, "name", name.FieldName())
	assert.True(t, name.Same(first.Child(0)))

	eq := name.NextSibling()
	assert.Equal(t, "=", eq.Type())
	assert.False(t, eq.IsNamed())
	assert.Empty(t, eq.FieldName())
	assert.True(t, eq.PrevSibling().Same(name))

	value := name.NextNamedSibling()
	assert.Equal(t, "value", value.FieldName())
	assert.Equal(t, "1", value.Text())
	assert.True(t, value.PrevNamedSibling().Same(name))
	assert.True(t, first.ChildByFieldName("nope").IsZero())
	assert.True(t, first.Child(4).IsZero())
	assert.True(t, first.Child(-1).IsZero())

	second := first.NextNamedSibling()
	assert.Equal(t, "b = (c);", second.Text())
	assert.Equal(t, syntax.Point{Row: 1, Column: 0}, second.StartPoint())
	assert.Equal(t, syntax.Point{Row: 1, Column: 8}, second.EndPoint())
	assert.Equal(t, 7, second.StartByte())
	assert.Equal(t, 15, second.EndByte())
	assert.True(t, second.NextSibling().IsZero())
	assert.True(t, second.NextNamedSibling().IsZero())

	paren := second.ChildByFieldName("value")
	assert.Equal(t, "(expr (expr (id)))", paren.String())
	assert.Equal(t, 3, paren.ChildCount())
}

func TestDescendants(t *testing.T) {
	t.Parallel()
	lang := statements(t)

	tree := parse(t, lang, "a = 1; b = (c);")
	root := tree.Root()

	tests := []struct {
		start, end int
		named      bool
		want       string
	}{
		{12, 13, false, "c"},
		{12, 13, true, "c"},
		{11, 14, true, "(c)"},
		{11, 13, false, "(c)"},
		{4, 5, false, "1"},
		{4, 5, true, "1"},
		{0, 15, false, "a = 1; b = (c);"},
		{3, 9, true, "a = 1; b = (c);"},
	}
	for _, tt := range tests {
		var n syntax.Node
		if tt.named {
			n = root.NamedDescendantForByteRange(tt.start, tt.end)
		} else {
			n = root.DescendantForByteRange(tt.start, tt.end)
		}
		assert.Equal(t, tt.want, n.Text(), "[%d, %d) named=%v", tt.start, tt.end, tt.named)
	}

	assert.Equal(t, ";", root.NodeAt(5).Type())
	assert.Equal(t, "id", root.NodeAt(7).Type())
	assert.Equal(t, "(", root.NodeAt(11).Type())
}

func TestWalk(t *testing.T) {
	t.Parallel()
	lang := statements(t)

	tree := parse(t, lang, "a = 1; b = c;")
	var types []string
	tree.Root().Walk(func(n syntax.Node) bool {
		if !n.IsNamed() {
			return true
		}
		types = append(types, n.Type())
		// Skip the second statement's insides.
		return n.Type() != "stmt" || n.StartByte() == 0
	})
	assert.Equal(t, []string{"program", "stmt", "id", "expr", "number", "stmt"}, types)
}

func TestPrint(t *testing.T) {
	t.Parallel()
	lang := statements(t)

	tree := parse(t, lang, "a = 1;")
	assert.Equal(t, "(program (stmt name: (id) value: (expr (number))))", tree.Root().String())
	assert.Equal(t, "()", syntax.Node{}.String())

	want := `program [0, 6)
  "_program_repeat1" [0, 6)
    stmt [0, 6)
      id [0, 1) "a"
      "_extra1" [1, 2) extra " "
      "=" [2, 3) "="
      "_extra1" [3, 4) extra " "
      expr [4, 5)
        number [4, 5) "1"
      ";" [5, 6) ";"
`
	if diff := cmp.Diff(want, tree.Dump()); diff != "" {
		t.Errorf("Dump() mismatch (-want +got):\n%s", diff)
	}
}

func TestChangedRanges(t *testing.T) {
	t.Parallel()
	lang := statements(t)
	p := parser.New(lang)
	ctx := context.Background()

	old := parse(t, lang, "a = 1; b = 2; c = 3;")
	e, src := syntax.NewEdit(old.Source(), 11, 1, []byte("22"))
	tree, err := p.Reparse(ctx, old, e, src)
	require.NoError(t, err)

	ranges, err := syntax.ChangedRanges(old, tree)
	require.NoError(t, err)
	require.NotEmpty(t, ranges)
	for _, r := range ranges {
		// Everything that changed lies within the second statement.
		assert.GreaterOrEqual(t, r.StartByte, 7, "%v", r)
		assert.LessOrEqual(t, r.EndByte, 14, "%v", r)
		assert.Equal(t, syntax.Point{Column: r.StartByte}, r.StartPoint)
	}
	var covered bool
	for _, r := range ranges {
		covered = covered || (r.StartByte <= 11 && r.EndByte >= 13)
	}
	assert.True(t, covered, "the edited text is not reported: %v", ranges)

	// Nothing changed.
	same, err := p.Reparse(ctx, tree, syntax.InputEdit{StartByte: 3, OldEndByte: 3, NewEndByte: 3}, tree.Source())
	require.NoError(t, err)
	ranges, err = syntax.ChangedRanges(tree, same)
	require.NoError(t, err)
	assert.Empty(t, ranges)

	_, err = syntax.ChangedRanges(tree, old)
	require.ErrorIs(t, err, syntax.ErrUnrelatedTrees)
	_, err = syntax.ChangedRanges(old, parse(t, lang, "a = 1; b = 2; c = 3;"))
	require.ErrorIs(t, err, syntax.ErrUnrelatedTrees)
}

func TestChangedTokens(t *testing.T) {
	t.Parallel()
	lang, err := New("sum").
		Token("NUMBER", Pat(`[0-9]+`)).
		Rule("expr", Seq(Sym("NUMBER"), Repeat(Seq(Str("+"), Sym("NUMBER"))))).
		Language()
	require.NoError(t, err)

	old := parse(t, lang, "1+2+3")
	e, src := syntax.NewEdit(old.Source(), 3, 0, []byte("0"))
	tree, err := parser.New(lang).Reparse(context.Background(), old, e, src)
	require.NoError(t, err)

	ranges, err := syntax.ChangedRanges(old, tree)
	require.NoError(t, err)
	want := []syntax.Range{{
		StartByte:  2,
		EndByte:    5,
		StartPoint: syntax.Point{Column: 2},
		EndPoint:   syntax.Point{Column: 5},
	}}
	if diff := cmp.Diff(want, ranges); diff != "" {
		t.Errorf("ChangedRanges() mismatch (-want +got):\n%s", diff)
	}
}
