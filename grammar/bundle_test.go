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

package grammar_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/bufbuild/polytope/grammar"
	. "github.com/bufbuild/polytope/grammar/builder" //nolint:revive // DSL.
)

func sum(t *testing.T) *grammar.Language {
	t.Helper()
	lang, err := New("sum").
		Token("NUMBER", Pat(`[0-9]+`)).
		Rule("expr", Seq(Field("first", Sym("NUMBER")), Repeat(Seq(Str("+"), Sym("NUMBER"))))).
		Extra(`[ ]+`).
		Sync("+").
		Language()
	require.NoError(t, err)
	return lang
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	lang := sum(t)
	bundle := lang.Encode()
	decoded, err := grammar.Decode(bundle)
	require.NoError(t, err)

	assert.Equal(t, lang.Name(), decoded.Name())
	assert.Equal(t, lang.Version(), decoded.Version())
	assert.Equal(t, lang.Symbols(), decoded.Symbols())
	assert.Equal(t, lang.StateCount(), decoded.StateCount())
	assert.Equal(t, lang.RuleCount(), decoded.RuleCount())
	assert.Equal(t, bundle, decoded.Encode())

	for state := range lang.StateCount() {
		id := grammar.StateID(state)
		assert.Equal(t, lang.Expected(id), decoded.Expected(id))
		for sym := range lang.TokenCount() {
			assert.Equal(t, lang.Actions(id, grammar.Symbol(sym)), decoded.Actions(id, grammar.Symbol(sym)))
		}
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	lang := sum(t)
	number, ok := lang.SymbolByName("NUMBER")
	require.True(t, ok)
	assert.True(t, lang.IsTerminal(number))
	assert.Equal(t, "NUMBER", lang.SymbolName(number))

	plus, ok := lang.SymbolByName("+")
	require.True(t, ok)
	assert.True(t, lang.IsSync(plus))
	assert.False(t, lang.IsSync(number))

	expr, ok := lang.SymbolByName("expr")
	require.True(t, ok)
	assert.Equal(t, expr, lang.Start())
	assert.False(t, lang.IsTerminal(expr))

	assert.Equal(t, "ERROR", lang.SymbolName(grammar.Error))
	assert.True(t, lang.Info(grammar.Error).Visible)
	assert.Equal(t, "end", lang.SymbolName(grammar.End))

	_, ok = lang.SymbolByName("nope")
	assert.False(t, ok)

	first, ok := lang.FieldByName("first")
	require.True(t, ok)
	assert.Equal(t, "first", lang.FieldName(first))
	assert.Empty(t, lang.FieldName(0))

	// Only NUMBER can start an expression.
	assert.Equal(t, []grammar.Symbol{number}, lang.Expected(lang.InitialState()))
	assert.True(t, lang.Valid(lang.InitialState(), number))
	assert.False(t, lang.Valid(lang.InitialState(), plus))
	acts := lang.Actions(lang.InitialState(), number)
	require.Len(t, acts, 1)
	assert.Equal(t, grammar.Shift, acts[0].Kind)
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	bundle := sum(t).Encode()

	_, err := grammar.Decode(bundle[:len(bundle)-3])
	require.ErrorIs(t, err, grammar.ErrCorrupt)

	_, err = grammar.Decode([]byte{0xff})
	require.ErrorIs(t, err, grammar.ErrCorrupt)

	// A later version field overrides an earlier one.
	future := protowire.AppendTag(slices.Clone(bundle), 1, protowire.VarintType)
	future = protowire.AppendVarint(future, uint64(grammar.Version)+1)
	_, err = grammar.Decode(future)
	require.ErrorIs(t, err, grammar.ErrIncompatible)

	var cfg *grammar.ConfigError
	require.ErrorAs(t, err, &cfg)
	assert.Contains(t, cfg.Error(), "bundle version")

	_, err = grammar.New(nil)
	require.ErrorIs(t, err, grammar.ErrCorrupt)
}
