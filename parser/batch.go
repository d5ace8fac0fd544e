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

package parser

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bufbuild/polytope/grammar"
	"github.com/bufbuild/polytope/syntax"
)

// ParseAll parses several documents in parallel, with one parser per
// goroutine.
//
// Setting parallelism to zero or negative will default to GOMAXPROCS. The
// trees are returned in the order of docs. If any parse fails, the first
// error is returned and the remaining parses are cancelled.
func ParseAll(ctx context.Context, lang *grammar.Language, docs [][]byte, parallelism int, opts ...Option) ([]*syntax.Tree, error) {
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}

	pool := sync.Pool{New: func() any { return New(lang, opts...) }}
	trees := make([]*syntax.Tree, len(docs))
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(parallelism)
	for i, doc := range docs {
		group.Go(func() error {
			p := pool.Get().(*Parser) //nolint:errcheck // The pool only holds parsers.
			defer pool.Put(p)

			tree, err := p.Parse(ctx, doc, nil)
			if err != nil {
				return err
			}
			trees[i] = tree
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return trees, nil
}
