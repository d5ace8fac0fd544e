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
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/bufbuild/polytope/syntax"
)

func newParseCommand(a *app) *cobra.Command {
	var dump bool
	cmd := &cobra.Command{
		Use:   "parse [paths...]",
		Short: "Print the syntax trees of Polytope files",
		Long: `Print the syntax tree of each file.

By default, trees are printed as S-expressions of their named nodes, with
field names. With --dump, every node is printed with its byte range,
including anonymous tokens, whitespace and hidden rules.

Arguments may be files, directories to search for .poly files, or
doublestar glob patterns such as "examples/**/*.poly".`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, trees, err := a.load(cmd.Context(), args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, tree := range trees {
				if len(trees) > 1 {
					if i > 0 {
						fmt.Fprintln(out)
					}
					fmt.Fprintf(out, "==> %s <==\n", docs[i].path)
				}
				if err := printTree(out, tree, dump); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dump, "dump", false, "print every node with its byte range")
	return cmd
}

func printTree(out io.Writer, tree *syntax.Tree, dump bool) error {
	var err error
	if dump {
		_, err = io.WriteString(out, tree.Dump())
	} else {
		_, err = fmt.Fprintln(out, tree.Root())
	}
	return err
}
