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
	"io"

	"github.com/protocolbuffers/protoscope"
	"github.com/spf13/cobra"

	"github.com/bufbuild/polytope/polytope"
)

func newTablesCommand(a *app) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Dump the compiled Polytope parse tables",
		Long: `Dump the parse tables of the Polytope grammar in their bundle encoding.

The bundle is a protobuf message; by default it is printed in protoscope
text format. With --raw, the binary bundle itself is written, which can be
loaded back with grammar.Decode.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lang := polytope.Language()
			a.logger.Info("tables",
				"grammar", lang.Name(),
				"symbols", lang.SymbolCount(),
				"tokens", lang.TokenCount(),
				"rules", lang.RuleCount(),
				"states", lang.StateCount(),
				"conflicts", lang.Conflicts(),
			)

			bundle := lang.Encode()
			out := cmd.OutOrStdout()
			if raw {
				_, err := out.Write(bundle)
				return err
			}
			_, err := io.WriteString(out, protoscope.Write(bundle, protoscope.WriterOptions{}))
			return err
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "write the binary bundle")
	return cmd
}
