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

// Package golden runs tests whose expected outputs live in files next to
// their inputs.
package golden

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/lipgloss"
	"github.com/pmezard/go-difflib/difflib"
)

// Corpus is a directory of test cases. This is a table-driven test where the
// table is the file system.
//
// A test case is a file with the corpus's extension. Each of its outputs is
// stored in a file named after it with the output's extension appended; for
// an input foo.poly and an output "tree", that is foo.poly.tree. A missing
// output file expects the output to be empty.
type Corpus struct {
	// The directory holding the test cases, relative to the file that calls
	// [Corpus.Run].
	Root string

	// An environment variable holding a glob of test cases whose outputs
	// should be rewritten rather than checked, e.g. "**/*.poly".
	Refresh string

	// The extension, without a dot, of the files that define test cases.
	Extension string
	// The outputs of each test case.
	Outputs []Output

	// Test runs one test case, and returns one string per element of Outputs.
	Test func(t *testing.T, path, text string) []string
}

// Output is one of the outputs of a test case.
type Output struct {
	// The suffix added to the name of the test case's file.
	Extension string

	// Compares outputs. If nil, they are compared byte for byte.
	Compare Compare
}

// Compare compares an output with its expected value, and returns a
// description of the difference, or "" if they match.
type Compare func(got, want string) string

// Run runs every test case in the corpus as a subtest.
func (c Corpus) Run(t *testing.T) {
	t.Helper()
	root := filepath.Join(callerDir(), c.Root)

	tests, err := doublestar.Glob(os.DirFS(root), "**/*."+c.Extension, doublestar.WithFilesOnly())
	if err != nil {
		t.Fatalf("golden: searching %q: %v", root, err)
	}
	if len(tests) == 0 {
		t.Fatalf("golden: no *.%s files in %q", c.Extension, root)
	}

	var refresh string
	if c.Refresh != "" {
		refresh = os.Getenv(c.Refresh)
		if refresh != "" && !doublestar.ValidatePattern(refresh) {
			t.Fatalf("golden: %s=%q is not a valid glob", c.Refresh, refresh)
		}
	}
	if refresh != "" {
		// Refreshing never counts as passing.
		t.Logf("golden: refreshing outputs matching %s=%s", c.Refresh, refresh)
		t.Fail()
	}

	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(root, filepath.FromSlash(name))
			text, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("golden: reading %q: %v", path, err)
			}

			results := c.Test(t, name, string(text))
			if len(results) != len(c.Outputs) {
				t.Fatalf("golden: got %d outputs, want %d", len(results), len(c.Outputs))
			}

			rewrite := refresh != "" && doublestar.MatchUnvalidated(refresh, name)
			for i, output := range c.Outputs {
				path := path + "." + output.Extension
				if rewrite {
					if err := write(path, results[i]); err != nil {
						t.Errorf("golden: %v", err)
					}
					continue
				}

				want, err := os.ReadFile(path)
				if err != nil && !errors.Is(err, fs.ErrNotExist) {
					t.Errorf("golden: reading %q: %v", path, err)
					continue
				}
				compare := output.Compare
				if compare == nil {
					compare = Diff
				}
				if diff := compare(results[i], string(want)); diff != "" {
					t.Errorf("output mismatch for %q:\n%s", path, diff)
				}
			}
		})
	}
}

// write replaces an output file, or deletes it for an empty output.
func write(path, text string) error {
	if text == "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}
	return os.WriteFile(path, []byte(text), 0o644)
}

var (
	added   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	removed = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

// Diff is the default [Compare]: a unified diff, with added and removed lines
// colored when the test output is a terminal.
func Diff(got, want string) string {
	if got == want {
		return ""
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	})
	if err != nil {
		return err.Error()
	}

	lines := strings.Split(diff, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+"):
			lines[i] = added.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = removed.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

// callerDir returns the directory of the file that called [Corpus.Run].
func callerDir() string {
	_, file, _, ok := runtime.Caller(2)
	if !ok {
		panic("golden: could not determine the test file's directory")
	}
	return filepath.Dir(file)
}
