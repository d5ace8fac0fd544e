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

package polytope_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bufbuild/polytope/grammar"
	"github.com/bufbuild/polytope/internal/golden"
	"github.com/bufbuild/polytope/polytope"
	"github.com/bufbuild/polytope/report"
	"github.com/bufbuild/polytope/syntax"
)

func TestLanguage(t *testing.T) {
	t.Parallel()

	lang := polytope.Language()
	assert.Same(t, lang, polytope.Language())
	assert.Equal(t, polytope.Name, lang.Name())
	assert.Equal(t, polytope.Version, lang.Version())
	assert.Equal(t, "source_file", lang.SymbolName(lang.Start()))

	for _, kw := range polytope.Keywords {
		sym, ok := lang.SymbolForName(kw, false)
		require.True(t, ok, kw)
		assert.True(t, lang.IsTerminal(sym), kw)
		assert.False(t, lang.Info(sym).Named, kw)
	}
	for _, name := range []string{"id", "int_literal", "string_literal", "binary_op", "for_stmt"} {
		sym, ok := lang.SymbolByName(name)
		require.True(t, ok, name)
		assert.True(t, lang.Info(sym).Visible, name)
	}
	for _, name := range []string{"_stmt", "_expr", "_type"} {
		sym, ok := lang.SymbolByName(name)
		require.True(t, ok, name)
		assert.False(t, lang.Info(sym).Visible, name)
	}
	for _, name := range []string{";", "}"} {
		sym, _ := lang.SymbolByName(name)
		assert.True(t, lang.IsSync(sym), name)
	}

	// The tables survive a round trip through the bundle format.
	decoded, err := grammar.Decode(lang.Encode())
	require.NoError(t, err)
	assert.Equal(t, lang.SymbolCount(), decoded.SymbolCount())
	assert.Equal(t, lang.Encode(), decoded.Encode())
}

// program wraps statements in a file with empty input and output sections.
func program(stmts string) string {
	return "input {} satisfies {} output {} solution {\n" + stmts + "\n}\n"
}

// statement parses a single statement and returns it.
func statement(t *testing.T, stmt string) syntax.Node {
	t.Helper()
	tree, err := polytope.Parse(context.Background(), []byte(program(stmt)))
	require.NoError(t, err)
	require.False(t, tree.Root().HasError(), "%s", tree.Root())
	solution := tree.Root().ChildByFieldName("solution")
	require.Equal(t, 1, solution.NamedChildCount())
	return solution.NamedChild(0)
}

func TestStatements(t *testing.T) {
	t.Parallel()

	tests := []struct{ stmt, want string }{
		{
			"x = 1 + 2 * 3;",
			"(assign_stmt (id) (binary_op (addition_op (int_literal) (binary_op (multiplication_op (int_literal) (int_literal))))))",
		},
		{
			"x = 1 - 2 - 3;",
			"(assign_stmt (id) (binary_op (addition_op (binary_op (addition_op (int_literal) (int_literal))) (int_literal))))",
		},
		{
			"x = -a * b;",
			"(assign_stmt (id) (unary_op (binary_op (multiplication_op (refer_expr (id)) (refer_expr (id))))))",
		},
		{
			"a || b && c;",
			"(expr_stmt (binary_op (logical_op (binary_op (logical_op (refer_expr (id)) (refer_expr (id)))) (refer_expr (id)))))",
		},
		{
			"a < b == c;",
			"(expr_stmt (binary_op (comparison_op (binary_op (comparison_op (refer_expr (id)) (refer_expr (id)))) (refer_expr (id)))))",
		},
		{
			"if (a) { b; } else { c; }",
			"(if_stmt cond: (refer_expr (id)) then: (expr_stmt (refer_expr (id))) else: (expr_stmt (refer_expr (id))))",
		},
		{
			"if (a) { }",
			"(if_stmt cond: (refer_expr (id)))",
		},
		{
			"for (1 <= i <= n) { s = s + i; }",
			"(for_stmt lb: (int_literal) id: (id) ub: (refer_expr (id)) body: (assign_stmt (id) (binary_op (addition_op (refer_expr (id)) (refer_expr (id))))))",
		},
		{
			`print("a \"b\" c");`,
			"(print_stmt expr: (string_literal))",
		},
		{
			"var a: int = 1, b: string;",
			"(decl_stmt (var_decl (single_var_decl id: (id) value: (int_literal)) (single_var_decl id: (id))))",
		},
		{
			"print(f(1, g()));",
			"(print_stmt expr: (call_expr callee: (id) argument: (int_literal) argument: (call_expr callee: (id))))",
		},
		{
			"!~x;",
			"(expr_stmt (unary_op (unary_op (refer_expr (id)))))",
		},
	}
	for _, tt := range tests {
		t.Run(tt.stmt, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, statement(t, tt.stmt).String())
		})
	}
}

func TestKeywordsAsNames(t *testing.T) {
	t.Parallel()

	// Keywords that cannot appear somewhere are identifiers there.
	n := statement(t, "input = output;")
	assert.Equal(t, "(assign_stmt (id) (refer_expr (id)))", n.String())
	assert.Equal(t, "input", n.NamedChild(0).Text())

	n = statement(t, "print(int);")
	assert.Equal(t, "(print_stmt expr: (refer_expr (id)))", n.String())
}

func TestStringContents(t *testing.T) {
	t.Parallel()

	n := statement(t, `print("日本 🙂");`)
	lit := n.ChildByFieldName("expr")
	assert.Equal(t, "string_literal", lit.Type())
	assert.Equal(t, `"日本 🙂"`, lit.Text())
}

func TestRecovery(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	inputs := []string{
		program("x = ;"),
		program("x = 1 y = 2;"),
		program("if (a { b; }"),
		program("for (i <= n) { }"),
		program("print(;"),
		"input { n: int } satisfies { } output { } solution { }",
		"solution { x = 1; }",
		"",
		"}}}}",
		strings.Repeat("((((", 20),
		"input {\x00\x01} satisfies {} output {} solution {}",
	}
	for _, src := range inputs {
		tree, err := polytope.Parse(ctx, []byte(src))
		require.NoError(t, err, "%q", src)
		root := tree.Root()
		assert.True(t, root.HasError(), "%q: %s", src, root)
		assert.Equal(t, len(src), root.EndByte(), "%q", src)

		rep := report.Collect("test.poly", tree)
		assert.NotEmpty(t, rep.Diagnostics, "%q", src)
	}
}

func TestMissingTerminator(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// Trailing whitespace must not keep the missing ";" from being inserted.
	for _, src := range []string{
		"input {} satisfies {} output {} solution { x = 1 }",
		"input {} satisfies {} output {} solution { x = 1 }\n",
		"input {} satisfies {} output {} solution { x = 1 }\n\n  ",
	} {
		tree, err := polytope.Parse(ctx, []byte(src))
		require.NoError(t, err, "%q", src)
		root := tree.Root()
		assert.False(t, root.IsError(), "%q: %s", src, root)
		solution := root.ChildByFieldName("solution")
		require.Equal(t, 1, solution.NamedChildCount(), "%q: %s", src, root)
		assert.Equal(t, `(assign_stmt (id) (int_literal) (MISSING ";"))`, solution.NamedChild(0).String(), "%q", src)
	}
}

func TestIncremental(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := polytope.NewParser()

	src := program("var total: int = 0;\nfor (1 <= i <= n) { total = total + i; }\nprint(total);")
	old, err := p.Parse(ctx, []byte(src), nil)
	require.NoError(t, err)
	require.False(t, old.Root().HasError())

	at := strings.Index(src, "0;")
	e, next := syntax.NewEdit(old.Source(), at, 1, []byte("42"))
	tree, err := p.Reparse(ctx, old, e, next)
	require.NoError(t, err)

	scratch, err := p.Parse(ctx, next, nil)
	require.NoError(t, err)
	assert.Equal(t, scratch.Dump(), tree.Dump())

	field := func(tree *syntax.Tree, name string) syntax.Node {
		return tree.Root().ChildByFieldName(name)
	}
	assert.True(t, field(old, "input").Same(field(tree, "input")))
	assert.True(t, field(old, "output").Same(field(tree, "output")))
	assert.False(t, field(old, "solution").Same(field(tree, "solution")))

	ranges, err := syntax.ChangedRanges(old, tree)
	require.NoError(t, err)
	require.NotEmpty(t, ranges)
	for _, r := range ranges {
		assert.GreaterOrEqual(t, r.StartByte, at-len("var total: int = "), "%v", r)
		assert.LessOrEqual(t, r.EndByte, at+len("42;"), "%v", r)
	}
}

func TestCorpus(t *testing.T) {
	t.Parallel()

	golden.Corpus{
		Root:      "testdata",
		Refresh:   "POLYTOPE_REFRESH",
		Extension: "poly",
		Outputs: []golden.Output{
			{Extension: "tree"},
			{Extension: "diagnostics"},
		},
		Test: func(t *testing.T, path, text string) []string {
			tree, err := polytope.Parse(context.Background(), []byte(text))
			require.NoError(t, err)
			require.Equal(t, len(text), tree.Root().EndByte())

			rep := report.Collect(path, tree)
			return []string{
				fmt.Sprintln(tree.Root()),
				report.Renderer{Compact: true}.RenderString(rep),
			}
		},
	}.Run(t)
}
