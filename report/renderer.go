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

package report

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bufbuild/polytope/source"
)

// Renderer configures how reports are printed.
type Renderer struct {
	// If set, prints each diagnostic on one line, without source.
	Compact bool

	// If set, output is colored.
	Colorize bool
}

// Render prints a report to out, followed by a summary line unless the
// renderer is compact. Returns the number of errors in the report.
func (r Renderer) Render(rep *Report, out io.Writer) (errors int, err error) {
	c := r.styles(out)
	var buf bytes.Buffer
	for _, d := range rep.Diagnostics {
		r.diagnostic(&buf, c, rep, d)
		if d.Level == Error {
			errors++
		}
	}
	if !r.Compact && errors > 0 {
		fmt.Fprintln(&buf, c.paint(c.err, "encountered "+strconv.Itoa(errors)+" "+plural(errors, "error")))
	}
	_, err = out.Write(buf.Bytes())
	return errors, err
}

// RenderString is a helper for calling [Renderer.Render] with a
// [strings.Builder].
func (r Renderer) RenderString(rep *Report) string {
	var buf strings.Builder
	_, _ = r.Render(rep, &buf)
	return buf.String()
}

func (r Renderer) diagnostic(buf *bytes.Buffer, c styleSheet, rep *Report, d Diagnostic) {
	start := rep.File.Location(d.Span.StartByte, source.Bytes)
	level := c.paint(c.level(d.Level), d.Level.String())

	if r.Compact {
		fmt.Fprintf(buf, "%s:%v: %s: %s\n", rep.Path, start, level, d.Message)
		return
	}

	fmt.Fprintf(buf, "%s: %s\n", level, c.paint(c.bold, d.Message))

	gutter := len(strconv.Itoa(start.Line))
	pad := strings.Repeat(" ", gutter)
	bar := c.paint(c.accent, "|")
	fmt.Fprintf(buf, "%s%s %s:%v\n", pad, c.paint(c.accent, "-->"), rep.Path, start)
	fmt.Fprintf(buf, "%s %s\n", pad, bar)

	// Underline the part of the span on its first line.
	lineStart, lineEnd := rep.File.LineOffsets(start.Line)
	line := bytes.TrimRight(rep.File.Text()[lineStart:lineEnd], "\r\n")
	from := min(d.Span.StartByte-lineStart, len(line))
	to := min(max(d.Span.EndByte-lineStart, from), len(line))
	indent := source.Width(line[:from])
	width := max(source.Width(line[:to])-indent, 1)

	fmt.Fprintf(buf, "%s %s %s\n", c.paint(c.accent, strconv.Itoa(start.Line)), bar, expandTabs(line))
	fmt.Fprintf(buf, "%s %s %s%s\n", pad, bar, strings.Repeat(" ", indent),
		c.paint(c.level(d.Level), strings.Repeat("^", width)))

	for _, note := range d.Notes {
		fmt.Fprintf(buf, "%s %s note: %s\n", pad, c.paint(c.accent, "="), note)
	}
	buf.WriteByte('\n')
}

// expandTabs replaces tabs the way [source.Width] measures them.
func expandTabs(line []byte) string {
	if !bytes.ContainsRune(line, '\t') {
		return string(line)
	}
	var out strings.Builder
	for i, chunk := range bytes.Split(line, []byte("\t")) {
		if i > 0 {
			width := source.Width([]byte(out.String()))
			out.WriteString(strings.Repeat(" ", source.TabStop-width%source.TabStop))
		}
		out.Write(chunk)
	}
	return out.String()
}

// styleSheet is the colors used for rendering.
type styleSheet struct {
	on                                 bool
	err, warning, remark, accent, bold lipgloss.Style
}

func (r Renderer) styles(out io.Writer) styleSheet {
	if !r.Colorize {
		return styleSheet{}
	}
	lg := lipgloss.NewRenderer(out)
	return styleSheet{
		on:      true,
		err:     lg.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
		warning: lg.NewStyle().Bold(true).Foreground(lipgloss.Color("3")),
		remark:  lg.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		accent:  lg.NewStyle().Bold(true).Foreground(lipgloss.Color("4")),
		bold:    lg.NewStyle().Bold(true),
	}
}

func (c styleSheet) level(l Level) lipgloss.Style {
	switch l {
	case Error:
		return c.err
	case Warning:
		return c.warning
	default:
		return c.remark
	}
}

func (c styleSheet) paint(style lipgloss.Style, text string) string {
	if !c.on {
		return text
	}
	return style.Render(text)
}
