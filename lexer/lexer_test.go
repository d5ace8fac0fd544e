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

package lexer_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bufbuild/polytope/grammar"
	"github.com/bufbuild/polytope/grammar/builder"
	"github.com/bufbuild/polytope/lexer"
)

func language(t *testing.T, opts ...grammar.Option) *grammar.Language {
	t.Helper()
	lang, err := builder.New("test").
		Token("id", builder.Pat(`[a-z]+`)).
		Token("number", builder.Pat(`[0-9]+`)).
		External("heredoc").
		Rule("stmt", builder.Choice(
			builder.Seq(builder.Str("int"), builder.Sym("id")),
			builder.Seq(builder.Sym("id"), builder.Str("+"), builder.Sym("number")),
			builder.Seq(builder.Str("<<"), builder.Sym("heredoc")),
		)).
		Extra(`[ \t\n]+`).
		Language(opts...)
	require.NoError(t, err)
	return lang
}

func sym(t *testing.T, lang *grammar.Language, name string) grammar.Symbol {
	t.Helper()
	s, ok := lang.SymbolByName(name)
	require.True(t, ok, name)
	return s
}

func TestLongestMatch(t *testing.T) {
	t.Parallel()
	lang := language(t)

	l := lexer.New(lang, []byte("intx + 12"))
	tok := l.Next(0, nil)
	assert.Equal(t, sym(t, lang, "id"), tok.Symbol)
	assert.Equal(t, 4, tok.End)
	assert.Equal(t, 5, tok.LexEnd) // The space was examined.

	tok = l.Next(4, nil)
	assert.True(t, tok.Extra)
	assert.Equal(t, 5, tok.End)

	tok = l.Next(5, nil)
	assert.Equal(t, sym(t, lang, "+"), tok.Symbol)
	assert.Equal(t, 6, tok.LexEnd) // Nothing can follow a "+".

	tok = l.Next(7, nil)
	assert.Equal(t, sym(t, lang, "number"), tok.Symbol)
	assert.Equal(t, 9, tok.End)
	assert.Equal(t, 10, tok.LexEnd) // End of input was observed.

	tok = l.Next(9, nil)
	assert.Equal(t, grammar.End, tok.Symbol)
	assert.Equal(t, 9, tok.Start)
	assert.Equal(t, 0, tok.Len())
	assert.Equal(t, 10, tok.LexEnd)
}

func TestValidHints(t *testing.T) {
	t.Parallel()
	lang := language(t)
	kw := sym(t, lang, "int")
	id := sym(t, lang, "id")

	l := lexer.New(lang, []byte("int"))
	assert.Equal(t, kw, l.Next(0, nil).Symbol)
	assert.Equal(t, id, l.Next(0, func(s grammar.Symbol) bool { return s == id }).Symbol)
	assert.Equal(t, kw, l.Next(0, func(s grammar.Symbol) bool { return s == kw }).Symbol)

	// With no valid candidate, fall back to the longest match.
	assert.Equal(t, kw, l.Next(0, func(grammar.Symbol) bool { return false }).Symbol)

	// The initial state accepts the keyword and identifiers.
	tok := l.InState(0, lang.InitialState())
	assert.Equal(t, kw, tok.Symbol)
}

func TestErrorToken(t *testing.T) {
	t.Parallel()
	lang := language(t)

	l := lexer.New(lang, []byte("a?b"))
	tok := l.Next(1, nil)
	assert.True(t, tok.IsError())
	assert.Equal(t, 1, tok.Start)
	assert.Equal(t, 2, tok.End)
	assert.Equal(t, 2, tok.LexEnd)

	// A partial match that never accepts is also an error.
	l = lexer.New(lang, []byte("<x"))
	tok = l.Next(0, nil)
	assert.True(t, tok.IsError())
	assert.Equal(t, 1, tok.End)
	assert.Equal(t, 2, tok.LexEnd)
}

type heredoc struct {
	sym grammar.Symbol
}

func (h *heredoc) Scan(src []byte, pos int, valid func(grammar.Symbol) bool) (grammar.Symbol, int, int, bool) {
	if !valid(h.sym) || !bytes.HasPrefix(src[pos:], []byte("EOF\n")) {
		return 0, 0, 0, false
	}
	end := bytes.Index(src[pos+4:], []byte("\nEOF"))
	if end < 0 {
		return 0, 0, 0, false
	}
	end += pos + 4 + len("\nEOF")
	return h.sym, end, end, true
}

func TestExternalScanner(t *testing.T) {
	t.Parallel()
	h := &heredoc{}
	lang := language(t, grammar.WithExternalScanner(h))
	h.sym = sym(t, lang, "heredoc")
	assert.True(t, lang.Info(h.sym).External)

	src := []byte("<<EOF\nsome text\nEOF")
	l := lexer.New(lang, src)
	tok := l.Next(0, nil)
	assert.Equal(t, sym(t, lang, "<<"), tok.Symbol)

	tok = l.Next(2, func(s grammar.Symbol) bool { return s == h.sym })
	assert.Equal(t, h.sym, tok.Symbol)
	assert.Equal(t, len(src), tok.End)

	// Where the external token is not valid, the automaton takes over.
	tok = l.Next(2, func(s grammar.Symbol) bool { return s != h.sym })
	assert.True(t, tok.IsError())
}
