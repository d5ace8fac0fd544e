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
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bufbuild/polytope/internal/logging"
	"github.com/bufbuild/polytope/parser"
	"github.com/bufbuild/polytope/polytope"
	"github.com/bufbuild/polytope/source"
	"github.com/bufbuild/polytope/syntax"
)

// script is an edit script: a file and the edits to apply to it, in order.
type script struct {
	// Relative paths are resolved against the script's directory.
	File string `yaml:"file"`
	// Whether to check each reparse against a parse from scratch.
	Verify bool        `yaml:"verify"`
	Edits  []scriptEdit `yaml:"edits"`
}

// scriptEdit is one edit. The position is either a byte offset or a 1-based
// line and byte column in the text as it is after the previous edits.
type scriptEdit struct {
	Offset *int   `yaml:"offset"`
	Line   int    `yaml:"line"`
	Column int    `yaml:"column"`
	Delete int    `yaml:"delete"`
	Insert string `yaml:"insert"`
}

func newEditCommand(a *app) *cobra.Command {
	var verify, dump bool
	cmd := &cobra.Command{
		Use:   "edit <script.yaml>",
		Short: "Replay an edit script through the incremental parser",
		Long: `Parse a file, then apply a sequence of edits to it, reparsing
incrementally after each one and printing the ranges whose syntax changed.

An edit script is a YAML file:

  file: example.poly
  edits:
    - offset: 17
      delete: 1
      insert: "42"
    - line: 3
      column: 5
      insert: "x = 1; "

With --verify, each incremental parse is compared with a parse of the same
text from scratch, and the command fails if they differ.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadScript(args[0])
			if err != nil {
				return err
			}
			s.Verify = s.Verify || verify
			return a.replay(cmd, s, dump)
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "compare each reparse with a fresh parse")
	cmd.Flags().BoolVar(&dump, "dump", false, "print every node of the final tree with its byte range")
	return cmd
}

func loadScript(path string) (*script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := new(script)
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.File == "" {
		return nil, fmt.Errorf("%s: no file to edit", path)
	}
	if !filepath.IsAbs(s.File) {
		s.File = filepath.Join(filepath.Dir(path), s.File)
	}
	return s, nil
}

func (a *app) replay(cmd *cobra.Command, s *script, dump bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	text, err := os.ReadFile(s.File)
	if err != nil {
		return err
	}

	p := polytope.NewParser(append(a.cfg.ParserOptions(), parser.WithLogger(a.logger))...)
	tree, err := p.Parse(ctx, text, nil)
	if err != nil {
		return err
	}

	for i, step := range s.Edits {
		start, err := step.offset(tree.File())
		if err != nil {
			return fmt.Errorf("edit %d: %w", i+1, err)
		}
		e, next := syntax.NewEdit(tree.Source(), start, step.Delete, []byte(step.Insert))
		edited, err := p.Reparse(ctx, tree, e, next)
		if err != nil {
			return fmt.Errorf("edit %d: %w", i+1, err)
		}
		ranges, err := syntax.ChangedRanges(tree, edited)
		if err != nil {
			return fmt.Errorf("edit %d: %w", i+1, err)
		}

		fmt.Fprintf(out, "edit %d: %v\n", i+1, e)
		for _, r := range ranges {
			fmt.Fprintf(out, "  changed %v %v-%v\n", r, r.StartPoint, r.EndPoint)
		}
		a.logger.Debug("reparsed", "edit", i+1, "changed", len(ranges), logging.KeyPath, s.File)

		if s.Verify {
			if err := verifyReparse(ctx, p, edited); err != nil {
				return fmt.Errorf("edit %d: %w", i+1, err)
			}
		}
		tree = edited
	}
	return printTree(out, tree, dump)
}

// offset resolves the position of an edit in f.
func (e scriptEdit) offset(f *source.File) (int, error) {
	size := len(f.Text())
	switch {
	case e.Offset != nil:
		if *e.Offset < 0 || *e.Offset > size {
			return 0, fmt.Errorf("offset %d out of range for %d bytes", *e.Offset, size)
		}
		return *e.Offset, nil
	case e.Line > 0:
		if e.Line > f.LineCount() {
			return 0, fmt.Errorf("line %d out of range for %d lines", e.Line, f.LineCount())
		}
		start, end := f.LineOffsets(e.Line)
		offset := start + max(e.Column, 1) - 1
		if offset > end {
			return 0, fmt.Errorf("column %d out of range on line %d", e.Column, e.Line)
		}
		return offset, nil
	default:
		return 0, errors.New("edit has neither an offset nor a line")
	}
}

// errMismatch is returned by --verify.
var errMismatch = errors.New("incremental parse differs from a fresh parse")

// verifyReparse parses the text of tree from scratch and compares the
// result with tree.
func verifyReparse(ctx context.Context, p *parser.Parser, tree *syntax.Tree) error {
	fresh, err := p.Parse(ctx, tree.Source(), nil)
	if err != nil {
		return err
	}
	got, want := tree.Dump(), fresh.Dump()
	if got == want {
		return nil
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "fresh",
		ToFile:   "incremental",
		Context:  2,
	})
	return fmt.Errorf("%w:\n%s", errMismatch, diff)
}
