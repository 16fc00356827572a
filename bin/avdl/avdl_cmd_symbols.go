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

	"github.com/spf13/pflag"

	"github.com/opwvhk/intellij-plugin-avro-idl/completion"
)

type cmdSymbols struct {
	*globals
	visible bool
}

func (*cmdSymbols) help() *commandHelp {
	return &commandHelp{
		usage:   "symbols FILE",
		summary: "List the types declared in an IDL file",
	}
}

func (cmd *cmdSymbols) flags(flags *pflag.FlagSet) {
	flags.BoolVar(&cmd.visible, "visible", false, "also list the types visible through imports")
}

func (cmd *cmdSymbols) run(ctx context.Context, argv []string) int {
	if len(argv) != 1 {
		fmt.Fprintln(cmd.stderr, "usage: avdl symbols FILE")
		return 1
	}
	p, uris, err := cmd.openProject(ctx, argv)
	if err != nil {
		return cmd.fail(err)
	}
	defer p.Close()
	snapshot := p.Snapshot()
	texts := snapshotTexts(snapshot)

	for _, sym := range snapshot.Symbols(uris[0]) {
		line, col := lineCol(texts(sym.URI), sym.NameSpan.Start())
		fmt.Fprintf(cmd.stdout, "%d:%d %s %s\n", line, col, sym.Kind, sym.Name)
	}
	if !cmd.visible {
		return 0
	}

	scope, _, err := snapshot.Scope(uris[0])
	if err != nil {
		return cmd.fail(err)
	}
	for _, table := range scope.Imports {
		for _, sym := range table.Types() {
			fmt.Fprintf(cmd.stdout, "%s %s %s\n", sym.URI, sym.Kind, sym.Name)
		}
	}
	return 0
}

type cmdComplete struct {
	*globals
}

func (*cmdComplete) help() *commandHelp {
	return &commandHelp{
		usage:   "complete FILE POSITION",
		summary: "List the type names that can be written at a position (offset or LINE:COL)",
	}
}

func (cmd *cmdComplete) flags(flags *pflag.FlagSet) {}

func (cmd *cmdComplete) run(ctx context.Context, argv []string) int {
	if len(argv) != 2 {
		fmt.Fprintln(cmd.stderr, "usage: avdl complete FILE POSITION")
		return 1
	}
	p, uris, err := cmd.openProject(ctx, argv[:1])
	if err != nil {
		return cmd.fail(err)
	}
	defer p.Close()
	snapshot, doc, err := documentOf(p, uris[0])
	if err != nil {
		return cmd.fail(err)
	}
	offset, err := parsePosition(doc.Text, argv[1])
	if err != nil {
		return cmd.fail(err)
	}

	result, err := completion.Complete(snapshot, doc.URI, offset)
	if err != nil {
		return cmd.fail(err)
	}
	for _, candidate := range result.Candidates {
		fmt.Fprintf(cmd.stdout, "%s\t%s", candidate.Label, candidate.Kind)
		if candidate.Detail != "" {
			fmt.Fprintf(cmd.stdout, "\t%s", candidate.Detail)
		}
		fmt.Fprintln(cmd.stdout)
	}
	return 0
}
