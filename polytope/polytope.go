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

// Package polytope is the binding for the Polytope problem description
// language.
//
// A Polytope file has three sections: an input section declaring the
// variables a problem is given along with the restrictions they satisfy, an
// output section declaring what a solution produces, and a solution written
// in a small imperative language.
//
//	input { n: int; } satisfies { n > 0; }
//	output { total: int; }
//	solution {
//	  var total: int = 0;
//	  for (1 <= i <= n) { total = total + i; }
//	  print(total);
//	}
//
// [Language] returns the compiled grammar, which is what a [parser.Parser]
// needs.
package polytope

import (
	"context"
	"fmt"
	"sync"

	"github.com/bufbuild/polytope/grammar"
	"github.com/bufbuild/polytope/parser"
	"github.com/bufbuild/polytope/syntax"
)

// Name is the name of the language.
const Name = "polytope"

// Version is the table format this binding produces. It must lie within the
// range the grammar package accepts.
const Version uint32 = 1

var language = sync.OnceValues(func() (*grammar.Language, error) {
	if Version < grammar.MinVersion || Version > grammar.Version {
		return nil, fmt.Errorf("polytope: table version %d is not supported; want %d through %d",
			Version, grammar.MinVersion, grammar.Version)
	}
	lang, err := define().Language()
	if err != nil {
		return nil, fmt.Errorf("polytope: %w", err)
	}
	if lang.Version() != Version {
		return nil, fmt.Errorf("polytope: built tables have version %d, want %d", lang.Version(), Version)
	}
	return lang, nil
})

// Language returns the Polytope grammar.
//
// The grammar is compiled on first use. The same value is returned on every
// call, and may be shared by any number of parsers.
func Language() *grammar.Language {
	lang, err := language()
	if err != nil {
		panic(err)
	}
	return lang
}

// NewParser returns a parser for Polytope.
func NewParser(opts ...parser.Option) *parser.Parser {
	return parser.New(Language(), opts...)
}

// Parse parses a Polytope file.
func Parse(ctx context.Context, src []byte, opts ...parser.Option) (*syntax.Tree, error) {
	return NewParser(opts...).Parse(ctx, src, nil)
}
