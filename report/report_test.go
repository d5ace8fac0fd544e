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

package report_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bufbuild/polytope/grammar"
	. "github.com/bufbuild/polytope/grammar/builder" //nolint:revive // DSL.
	"github.com/bufbuild/polytope/parser"
	"github.com/bufbuild/polytope/report"
	"github.com/bufbuild/polytope/syntax"
)

func sum(t *testing.T) *grammar.Language {
	t.Helper()
	lang, err := New("sum").
		Token("NUMBER", Pat(`[0-9]+`)).
		Rule("expr", Seq(Sym("NUMBER"), Repeat(Seq(Str("+"), Sym("NUMBER"))))).
		Extra(`[ \t\r\n]+`).
		Language()
	require.NoError(t, err)
	return lang
}

func statements(t *testing.T) *grammar.Language {
	t.Helper()
	lang, err := New("statements").
		Token("id", Pat(`[a-z]+`)).
		Token("number", Pat(`[0-9]+`)).
		Rule("program", Repeat(Sym("stmt"))).
		Rule("stmt", Seq(Sym("id"), Str("="), Sym("number"), Str(";"))).
		Extra(`[ \t\r\n]+`).
		Sync(";").
		Language()
	require.NoError(t, err)
	return lang
}

func parse(t *testing.T, lang *grammar.Language, src string) *syntax.Tree {
	t.Helper()
	tree, err := parser.New(lang).Parse(context.Background(), []byte(src), nil)
	require.NoError(t, err)
	return tree
}

func TestCollect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		lang func(*testing.T) *grammar.Language
		src  string
		want string
	}{
		{"clean", sum, "1 + 2", ""},
		{"unexpected", sum, "1+", "test:1:2: error: unexpected \"+\"\n"},
		{"invalid", sum, "1+?2", "test:1:3: error: invalid character \"?\"\n"},
		{"missing", statements, "a = 1 b = 2;", "test:1:7: error: missing \";\"\n"},
		{"empty", sum, "", "test:1:1: error: unexpected end of input\n"},
		{"missing at end", statements, "a = 1", "test:1:6: error: missing \";\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rep := report.Collect("test", parse(t, tt.lang(t), tt.src))
			assert.Equal(t, tt.want, report.Renderer{Compact: true}.RenderString(rep))
		})
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	rep := report.Collect("sum.txt", parse(t, sum(t), "1 +\n2 +"))
	require.Len(t, rep.Diagnostics, 1)
	d := rep.Diagnostics[0]
	assert.Equal(t, report.Error, d.Level)
	assert.Equal(t, report.TagUnexpected, d.Tag)
	assert.Equal(t, 1, rep.Count(report.Error))
	assert.Equal(t, 0, rep.Count(report.Warning))

	want := `error: unexpected "+"
 --> sum.txt:2:3
  |
2 | 2 +
  |   ^

encountered 1 error
`
	assert.Equal(t, want, report.Renderer{}.RenderString(rep))
}

func TestSort(t *testing.T) {
	t.Parallel()

	var rep report.Report
	rep.Warn(syntax.Range{StartByte: 5, EndByte: 6}, "b")
	rep.Error(syntax.Range{StartByte: 1, EndByte: 2}, "a", report.Note("x"), report.WithTag("tag"))
	rep.Error(syntax.Range{StartByte: 5, EndByte: 6}, "c")
	rep.Sort()

	var messages []string
	for _, d := range rep.Diagnostics {
		messages = append(messages, d.Message)
	}
	assert.Equal(t, []string{"a", "b", "c"}, messages)
	assert.Equal(t, []string{"x"}, rep.Diagnostics[0].Notes)
	assert.Equal(t, report.Tag("tag"), rep.Diagnostics[0].Tag)
	assert.Equal(t, "warning", rep.Diagnostics[1].Level.String())
}
