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

package parser_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bufbuild/polytope/grammar"
	. "github.com/bufbuild/polytope/grammar/builder" //nolint:revive // DSL.
	"github.com/bufbuild/polytope/parser"
	"github.com/bufbuild/polytope/syntax"
)

// sum is a list of numbers separated by plus signs.
func sum(t testing.TB) *grammar.Language {
	t.Helper()
	lang, err := New("sum").
		Token("NUMBER", Pat(`[0-9]+`)).
		Rule("expr", Seq(Sym("NUMBER"), Repeat(Seq(Str("+"), Sym("NUMBER"))))).
		Extra(`[ \t\r\n]+`).
		Language()
	require.NoError(t, err)
	return lang
}

// statements is a list of assignments terminated by semicolons.
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

// ambiguous is an expression grammar with no precedence, so that every
// operator is a shift/reduce conflict.
func ambiguous(t testing.TB) *grammar.Language {
	t.Helper()
	b := New("ambiguous").
		Token("number", Pat(`[0-9]+`)).
		Rule("expr", Choice(
			Seq(Sym("expr"), Str("+"), Sym("expr")),
			Sym("number"),
		)).
		Extra(`[ ]+`)
	lang, err := b.Language()
	require.NoError(t, err)
	require.NotEmpty(t, b.Conflicts())
	return lang
}

func parse(t testing.TB, p *parser.Parser, src string) *syntax.Tree {
	t.Helper()
	tree, err := p.Parse(context.Background(), []byte(src), nil)
	require.NoError(t, err)
	return tree
}

// edit replaces removed bytes at start with inserted, and reparses. It also
// parses the result from scratch and checks that the two agree.
func edit(t testing.TB, p *parser.Parser, old *syntax.Tree, start, removed int, inserted string) *syntax.Tree {
	t.Helper()
	e, src := syntax.NewEdit(old.Source(), start, removed, []byte(inserted))
	tree, err := p.Reparse(context.Background(), old, e, src)
	require.NoError(t, err)

	scratch := parse(t, p, string(src))
	require.Equal(t, scratch.Dump(), tree.Dump(), "incremental parse of %q differs from a fresh one", src)
	return tree
}
