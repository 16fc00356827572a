// Copyright (c) 2024 John Millikin <john@john-millikin.com>
//
// Permission to use, copy, modify, and/or distribute this software for any
// purpose with or without fee is hereby granted.
//
// THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH
// REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY
// AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT,
// INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM
// LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR
// OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR
// PERFORMANCE OF THIS SOFTWARE.
//
// SPDX-License-Identifier: 0BSD

package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/spf13/afero"

	"github.com/opwvhk/intellij-plugin-avro-idl/project"
	"github.com/opwvhk/intellij-plugin-avro-idl/syntax"
)

// readFile returns the absolute path of a file, which is also its document
// URI, and its contents.
func (g *globals) readFile(path string) (string, string, error) {
	uri, err := filepath.Abs(path)
	if err != nil {
		return "", "", err
	}
	data, err := afero.ReadFile(g.fs, uri)
	if err != nil {
		return "", "", err
	}
	return uri, string(data), nil
}

// lineCol returns the 1-based line and column of a byte offset. Columns
// count characters.
func lineCol(text string, offset uint32) (int, int) {
	if int(offset) > len(text) {
		offset = uint32(len(text))
	}
	before := text[:offset]
	line := strings.Count(before, "\n") + 1
	lineStart := strings.LastIndexByte(before, '\n') + 1
	return line, utf8.RuneCountInString(before[lineStart:]) + 1
}

// parsePosition reads a position given either as a byte offset or as
// LINE:COL.
func parsePosition(text string, pos string) (uint32, error) {
	lineStr, colStr, ok := strings.Cut(pos, ":")
	if !ok {
		offset, err := strconv.ParseUint(pos, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid position %q", pos)
		}
		if offset > uint64(len(text)) {
			return 0, fmt.Errorf("position %d is past the end of the file", offset)
		}
		return uint32(offset), nil
	}
	line, err1 := strconv.Atoi(lineStr)
	col, err2 := strconv.Atoi(colStr)
	if err1 != nil || err2 != nil || line < 1 || col < 1 {
		return 0, fmt.Errorf("invalid position %q", pos)
	}

	offset := 0
	for ; line > 1; line-- {
		next := strings.IndexByte(text[offset:], '\n')
		if next < 0 {
			return 0, fmt.Errorf("position %q is past the end of the file", pos)
		}
		offset += next + 1
	}
	for ; col > 1; col-- {
		if offset >= len(text) || text[offset] == '\n' {
			return 0, fmt.Errorf("position %q is past the end of the line", pos)
		}
		_, size := utf8.DecodeRuneInString(text[offset:])
		offset += size
	}
	return uint32(offset), nil
}

type printer struct {
	w     io.Writer
	texts func(uri string) string

	location *color.Color
	errors   *color.Color
	warnings *color.Color
	notes    *color.Color
}

// snapshotTexts returns the text of documents loaded in a snapshot.
func snapshotTexts(snapshot *project.Snapshot) func(string) string {
	return func(uri string) string {
		if doc, ok := snapshot.Document(uri); ok {
			return doc.Text
		}
		return ""
	}
}

func newPrinter(w io.Writer, noColor bool, texts func(uri string) string) *printer {
	p := &printer{
		w:        w,
		texts:    texts,
		location: color.New(color.Bold),
		errors:   color.New(color.FgRed, color.Bold),
		warnings: color.New(color.FgYellow, color.Bold),
		notes:    color.New(color.FgCyan),
	}
	if noColor {
		for _, c := range []*color.Color{p.location, p.errors, p.warnings, p.notes} {
			c.DisableColor()
		}
	}
	return p
}

func (p *printer) position(uri string, span syntax.Span) string {
	line, col := lineCol(p.texts(uri), span.Start())
	return fmt.Sprintf("%s:%d:%d", uri, line, col)
}

// diagnostic prints one diagnostic as
//
//	path:line:col: error E3100: message
//	  path:line:col: note: related message
func (p *printer) diagnostic(diag *syntax.Diagnostic) {
	p.location.Fprint(p.w, p.position(diag.URI(), diag.Span())+":")
	if diag.Severity() == syntax.SeverityError {
		p.errors.Fprintf(p.w, " error E%d:", diag.Code())
	} else {
		p.warnings.Fprintf(p.w, " warning W%d:", diag.Code())
	}
	fmt.Fprintf(p.w, " %s\n", diag.Message())
	for _, related := range diag.Related() {
		uri := related.URI
		if uri == "" {
			uri = diag.URI()
		}
		fmt.Fprintf(p.w, "  %s: ", p.position(uri, related.Span))
		p.notes.Fprint(p.w, "note:")
		fmt.Fprintf(p.w, " %s\n", related.Message)
	}
}
