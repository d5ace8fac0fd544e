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

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/bufbuild/polytope/internal/logging"
	"github.com/bufbuild/polytope/parser"
	"github.com/bufbuild/polytope/polytope"
	"github.com/bufbuild/polytope/syntax"
)

// Extension is the file extension of Polytope files.
const Extension = ".poly"

// document is a file named on the command line.
type document struct {
	path string
	text []byte
}

// expand resolves command line arguments into files. Each argument is a
// file, a directory that is searched for Polytope files, or a glob pattern.
func (a *app) expand(args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}

	var paths []string
	for _, arg := range args {
		var matches []string
		switch info, err := os.Stat(arg); {
		case err == nil && info.IsDir():
			found, err := doublestar.Glob(os.DirFS(arg), "**/*"+Extension, doublestar.WithFilesOnly())
			if err != nil {
				return nil, err
			}
			for _, path := range found {
				// Patterns may be relative to the directory being searched.
				if a.cfg.Excluded(path) {
					a.logger.Debug("excluded", logging.KeyPath, path)
					continue
				}
				matches = append(matches, filepath.Join(arg, filepath.FromSlash(path)))
			}
		case err == nil:
			paths = append(paths, arg)
			continue
		case !errors.Is(err, os.ErrNotExist) || !strings.ContainsAny(arg, "*?[{"):
			return nil, err
		default:
			if !doublestar.ValidatePattern(filepath.ToSlash(arg)) {
				return nil, fmt.Errorf("invalid pattern %q", arg)
			}
			matches, err = doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
			if err != nil {
				return nil, err
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("no files match %q", arg)
			}
		}

		for _, path := range matches {
			if a.cfg.Excluded(filepath.ToSlash(path)) {
				a.logger.Debug("excluded", logging.KeyPath, path)
				continue
			}
			paths = append(paths, path)
		}
	}

	slices.Sort(paths)
	paths = slices.Compact(paths)
	if len(paths) == 0 {
		return nil, errors.New("no Polytope files found")
	}
	return paths, nil
}

// read loads files in parallel.
func (a *app) read(ctx context.Context, paths []string) ([]document, error) {
	docs := make([]document, len(paths))
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(max(a.cfg.Jobs, 1) * 4)
	for i, path := range paths {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			text, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			docs[i] = document{path: path, text: text}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

// parse parses every document with the configured limits.
func (a *app) parse(ctx context.Context, docs []document) ([]*syntax.Tree, error) {
	texts := make([][]byte, len(docs))
	for i, doc := range docs {
		texts[i] = doc.text
	}

	opts := append(a.cfg.ParserOptions(), parser.WithLogger(a.logger))
	trees, err := parser.ParseAll(ctx, polytope.Language(), texts, a.cfg.Jobs, opts...)
	if err != nil {
		return nil, err
	}
	for i, tree := range trees {
		a.logger.Debug("parsed", logging.KeyPath, docs[i].path, "nodes", tree.Subtree().Count())
	}
	return trees, nil
}

// load expands, reads and parses the files named by args.
func (a *app) load(ctx context.Context, args []string) ([]document, []*syntax.Tree, error) {
	paths, err := a.expand(args)
	if err != nil {
		return nil, nil, err
	}
	docs, err := a.read(ctx, paths)
	if err != nil {
		return nil, nil, err
	}
	trees, err := a.parse(ctx, docs)
	if err != nil {
		return nil, nil, err
	}
	return docs, trees, nil
}
