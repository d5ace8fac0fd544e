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

	"github.com/spf13/cobra"

	"github.com/bufbuild/polytope/report"
)

func newCheckCommand(a *app) *cobra.Command {
	var compact bool
	cmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Report syntax errors in Polytope files",
		Long: `Parse each file and report every syntax error the parser recovered from.

The command fails if any file has an error.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, trees, err := a.load(cmd.Context(), args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			r := report.Renderer{Compact: compact, Colorize: a.colorize(out)}
			var errors, files int
			for i, tree := range trees {
				rep := report.Collect(docs[i].path, tree)
				n, err := r.Render(rep, out)
				if err != nil {
					return err
				}
				if n > 0 {
					errors += n
					files++
				}
			}

			a.logger.Info("checked", "files", len(trees), "errors", errors)
			if errors > 0 {
				if !compact && len(trees) > 1 {
					fmt.Fprintf(out, "%d of %d files have errors\n", files, len(trees))
				}
				return ErrDiagnostics
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&compact, "compact", false, "print one line per diagnostic")
	return cmd
}
