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

package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bufbuild/polytope/grammar"
	"github.com/bufbuild/polytope/internal/cli"
	"github.com/bufbuild/polytope/polytope"
)

const (
	valid   = "input {} satisfies {} output {} solution { x = 1; }\n"
	invalid = "input {} satisfies {} output {} solution { x = 1 }\n"
)

// run executes polyparse with args and returns what it printed.
func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	root := cli.NewRootCommand(cli.BuildInfo{Version: "test", Commit: "abc", Date: "today"})
	var out, errs bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errs)
	root.SetArgs(append([]string{"--color=never"}, args...))
	err = root.Execute()
	return out.String(), errs.String(), err
}

// files writes a directory of files and returns its path.
func files(t *testing.T, contents map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, text := range contents {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(text), 0o600))
	}
	return dir
}

func TestSubcommands(t *testing.T) {
	t.Parallel()

	root := cli.NewRootCommand(cli.BuildInfo{})
	assert.Equal(t, "polyparse", root.Use)
	for _, name := range []string{"parse", "check", "edit", "tables", "version"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
	for _, name := range []string{"config", "log-level", "color"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), name)
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	path := filepath.Join("..", "..", "polytope", "testdata", "basic.poly")
	want, err := os.ReadFile(path + ".tree")
	require.NoError(t, err)

	out, _, err := run(t, "parse", path)
	require.NoError(t, err)
	assert.Equal(t, string(want), out)

	out, _, err = run(t, "parse", "--dump", path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "source_file [0, "), out)
	assert.Contains(t, out, `"solution"`)
}

func TestParseDirectory(t *testing.T) {
	t.Parallel()

	dir := files(t, map[string]string{
		"a.poly":          valid,
		"sub/b.poly":      valid,
		"sub/skip.poly":   valid,
		"notes.txt":       "not polytope",
		"sub/deep/c.poly": invalid,
	})
	cfg := filepath.Join(dir, "polyparse.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("exclude: ['**/skip.poly']\n"), 0o600))

	out, _, err := run(t, "--config", cfg, "parse", dir)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "==> "), out)
	assert.Contains(t, out, filepath.Join(dir, "sub", "b.poly"))
	assert.Contains(t, out, filepath.Join(dir, "sub", "deep", "c.poly"))
	assert.NotContains(t, out, "skip.poly")
	assert.NotContains(t, out, "notes.txt")
	assert.Contains(t, out, `(MISSING ";")`)

	out, _, err = run(t, "parse", filepath.Join(dir, "**", "b.poly"))
	require.NoError(t, err)
	assert.Equal(t, "(source_file input: (input) output: (output) solution: (solution body: (assign_stmt (id) (int_literal))))\n", out)

	_, _, err = run(t, "parse", filepath.Join(dir, "*.nope"))
	require.Error(t, err)
	_, _, err = run(t, "parse", filepath.Join(dir, "missing.poly"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCheck(t *testing.T) {
	t.Parallel()

	dir := files(t, map[string]string{"good.poly": valid, "bad.poly": invalid})

	out, _, err := run(t, "check", filepath.Join(dir, "good.poly"))
	require.NoError(t, err)
	assert.Empty(t, out)

	bad := filepath.Join(dir, "bad.poly")
	out, _, err = run(t, "check", "--compact", bad)
	require.ErrorIs(t, err, cli.ErrDiagnostics)
	assert.Equal(t, bad+`:1:50: error: missing ";"`+"\n", out)

	out, _, err = run(t, "check", dir)
	require.ErrorIs(t, err, cli.ErrDiagnostics)
	assert.Contains(t, out, `error: missing ";"`)
	assert.Contains(t, out, "encountered 1 error")
	assert.Contains(t, out, "1 of 2 files have errors")
}

func TestEdit(t *testing.T) {
	t.Parallel()

	dir := files(t, map[string]string{
		"a.poly": valid,
		"edits.yaml": `file: a.poly
edits:
  - offset: 47
    delete: 1
    insert: "42"
  - line: 1
    column: 44
    insert: "print(x); "
`,
		"bad.yaml": "file: a.poly\nedits:\n  - offset: 1000\n",
	})

	out, _, err := run(t, "edit", "--verify", filepath.Join(dir, "edits.yaml"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.NotEmpty(t, lines)
	assert.Equal(t, "edit 1: [47, 48) -> [47, 49)", lines[0])
	assert.Contains(t, out, "edit 2: [43, 43) -> [43, 53)")
	assert.Contains(t, out, "  changed [")
	assert.Equal(t,
		"(source_file input: (input) output: (output) solution: (solution body: (print_stmt expr: (refer_expr (id))) body: (assign_stmt (id) (int_literal))))",
		lines[len(lines)-1],
	)

	_, _, err = run(t, "edit", filepath.Join(dir, "bad.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestTables(t *testing.T) {
	t.Parallel()

	out, _, err := run(t, "tables")
	require.NoError(t, err)
	assert.Contains(t, out, `"polytope"`)

	out, _, err = run(t, "tables", "--raw")
	require.NoError(t, err)
	lang, err := grammar.Decode([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, polytope.Language().Symbols(), lang.Symbols())
}

func TestVersion(t *testing.T) {
	t.Parallel()

	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "polyparse")
	assert.Contains(t, out, "version=test")
}

func TestBadConfig(t *testing.T) {
	t.Parallel()

	dir := files(t, map[string]string{"c.yaml": "jobs: -2\n"})
	_, _, err := run(t, "--config", filepath.Join(dir, "c.yaml"), "tables")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jobs")

	_, _, err = run(t, "--log-level", "loud", "tables")
	require.Error(t, err)
}
