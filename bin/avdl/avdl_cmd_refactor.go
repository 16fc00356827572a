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
	"context"
	"fmt"
	"slices"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"

	"github.com/opwvhk/intellij-plugin-avro-idl/project"
	"github.com/opwvhk/intellij-plugin-avro-idl/refactor"
	"github.com/opwvhk/intellij-plugin-avro-idl/symbols"
)

type cmdRename struct {
	*globals
	write bool
}

func (*cmdRename) help() *commandHelp {
	return &commandHelp{
		usage:   "rename FILE POSITION NEW_NAME",
		summary: "Rename the type declared at a position (offset or LINE:COL)",
	}
}

func (cmd *cmdRename) flags(flags *pflag.FlagSet) {
	flags.BoolVarP(&cmd.write, "write", "w", false, "write the changes instead of printing them")
}

func (cmd *cmdRename) run(ctx context.Context, argv []string) int {
	if len(argv) != 3 {
		fmt.Fprintln(cmd.stderr, "usage: avdl rename FILE POSITION NEW_NAME")
		return 1
	}
	p, snapshot, sym, err := cmd.symbolAt(ctx, argv[0], argv[1])
	if err != nil {
		return cmd.fail(err)
	}
	defer p.Close()

	result, err := refactor.Rename(snapshot, sym, argv[2])
	if err != nil {
		return cmd.fail(err)
	}
	out := newPrinter(cmd.stderr, cmd.noColor, snapshotTexts(snapshot))
	for _, warning := range result.Warnings {
		out.diagnostic(warning)
	}
	if err := cmd.apply(snapshot, result.Edits, cmd.write); err != nil {
		return cmd.fail(err)
	}
	return 0
}

type cmdDelete struct {
	*globals
	write bool
}

func (*cmdDelete) help() *commandHelp {
	return &commandHelp{
		usage:   "delete FILE POSITION",
		summary: "Delete the type declared at a position, unless it is still used",
	}
}

func (cmd *cmdDelete) flags(flags *pflag.FlagSet) {
	flags.BoolVarP(&cmd.write, "write", "w", false, "write the changes instead of printing them")
}

func (cmd *cmdDelete) run(ctx context.Context, argv []string) int {
	if len(argv) != 2 {
		fmt.Fprintln(cmd.stderr, "usage: avdl delete FILE POSITION")
		return 1
	}
	p, snapshot, sym, err := cmd.symbolAt(ctx, argv[0], argv[1])
	if err != nil {
		return cmd.fail(err)
	}
	defer p.Close()

	result, err := refactor.SafeDelete(snapshot, sym)
	if err != nil {
		return cmd.fail(err)
	}
	if result.Blocked {
		texts := snapshotTexts(snapshot)
		fmt.Fprintf(cmd.stderr, "%s is still used:\n", sym)
		for _, usage := range result.Usages {
			line, col := lineCol(texts(usage.URI), usage.Span.Start())
			fmt.Fprintf(cmd.stderr, "  %s:%d:%d\n", usage.URI, line, col)
		}
		return 1
	}
	if err := cmd.apply(snapshot, result.Edits, cmd.write); err != nil {
		return cmd.fail(err)
	}
	return 0
}

// symbolAt opens a file and finds the type declared at a position. The
// caller must close the returned project.
func (g *globals) symbolAt(ctx context.Context, path string, pos string) (*project.Project, *project.Snapshot, *symbols.Symbol, error) {
	p, uris, err := g.openProject(ctx, []string{path})
	if err != nil {
		return nil, nil, nil, err
	}
	snapshot, doc, err := documentOf(p, uris[0])
	if err != nil {
		p.Close()
		return nil, nil, nil, err
	}
	offset, err := parsePosition(doc.Text, pos)
	if err != nil {
		p.Close()
		return nil, nil, nil, err
	}
	sym := snapshot.SymbolAt(doc.URI, offset)
	if sym == nil {
		p.Close()
		return nil, nil, nil, fmt.Errorf("%s:%s: no type is declared or referenced here", path, pos)
	}
	return p, snapshot, sym, nil
}

// apply prints edits, or writes them to the edited files.
func (g *globals) apply(snapshot *project.Snapshot, edits []refactor.TextEdit, write bool) error {
	if !write {
		texts := snapshotTexts(snapshot)
		for _, edit := range edits {
			line, col := lineCol(texts(edit.URI), edit.Span.Start())
			fmt.Fprintf(g.stdout, "%s:%d:%d: replace %d bytes with %q\n", edit.URI, line, col, edit.Span.Len(), edit.NewText)
		}
		return nil
	}

	byURI := make(map[string][]refactor.TextEdit)
	for _, edit := range edits {
		byURI[edit.URI] = append(byURI[edit.URI], edit)
	}
	uris := make([]string, 0, len(byURI))
	for uri := range byURI {
		uris = append(uris, uri)
	}
	slices.Sort(uris)

	for _, uri := range uris {
		doc, ok := snapshot.Document(uri)
		if !ok {
			return fmt.Errorf("%w: %s", project.ErrUnknownDocument, uri)
		}
		text, err := refactor.ApplyEdits(doc.Text, byURI[uri])
		if err != nil {
			return err
		}
		if err := afero.WriteFile(g.fs, uri, []byte(text), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(g.stderr, "Wrote %s\n", uri)
	}
	return nil
}
