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
	"io"
	"strings"

	"github.com/spf13/pflag"

	"github.com/opwvhk/intellij-plugin-avro-idl/syntax"
)

type cmdTokens struct {
	*globals
	trivia bool
}

func (*cmdTokens) help() *commandHelp {
	return &commandHelp{
		usage:   "tokens FILE",
		summary: "Print the tokens of an IDL file",
	}
}

func (cmd *cmdTokens) flags(flags *pflag.FlagSet) {
	flags.BoolVar(&cmd.trivia, "trivia", false, "include whitespace and comments")
}

func (cmd *cmdTokens) run(ctx context.Context, argv []string) int {
	if len(argv) != 1 {
		fmt.Fprintln(cmd.stderr, "usage: avdl tokens FILE")
		return 1
	}
	_, text, err := cmd.readFile(argv[0])
	if err != nil {
		return cmd.fail(err)
	}

	exitCode := 0
	for token := range syntax.Tokenize(text) {
		if token.Kind.IsTrivia() && !cmd.trivia {
			continue
		}
		line, col := lineCol(text, token.Start)
		fmt.Fprintf(cmd.stdout, "%d:%d %s %q", line, col, token.Kind, token.Text)
		if err := token.Err(); err != nil {
			fmt.Fprintf(cmd.stdout, " %s", err)
			exitCode = 1
		}
		fmt.Fprintln(cmd.stdout)
	}
	return exitCode
}

type cmdTree struct {
	*globals
}

func (*cmdTree) help() *commandHelp {
	return &commandHelp{
		usage:   "tree FILE",
		summary: "Print the syntax tree of an IDL file",
	}
}

func (cmd *cmdTree) flags(flags *pflag.FlagSet) {}

func (cmd *cmdTree) run(ctx context.Context, argv []string) int {
	if len(argv) != 1 {
		fmt.Fprintln(cmd.stderr, "usage: avdl tree FILE")
		return 1
	}
	cfg, _, err := cmd.load()
	if err != nil {
		return cmd.fail(err)
	}
	uri, text, err := cmd.readFile(argv[0])
	if err != nil {
		return cmd.fail(err)
	}

	var opts []syntax.ParseOption
	if cfg.MaxFileSize > 0 {
		opts = append(opts, syntax.WithMaxSize(cfg.MaxFileSize))
	}
	tree := syntax.Parse(text, opts...)
	dumpTree(cmd.stdout, text, tree.Root(), 0)

	diags := tree.Diagnostics()
	out := newPrinter(cmd.stderr, cmd.noColor, func(string) string { return text })
	for _, diag := range diags {
		out.diagnostic(diag.WithURI(uri))
	}
	if len(diags) > 0 {
		return 1
	}
	return 0
}

// dumpTree prints one node per line, indented by depth, with its position
// and name.
func dumpTree(w io.Writer, text string, node syntax.Node, depth int) {
	line, col := lineCol(text, node.Span().Start())
	fmt.Fprintf(w, "%s%s %d:%d", strings.Repeat("  ", depth), node.Kind(), line, col)
	if name := node.Name(); name.IsValid() {
		fmt.Fprintf(w, " %s", name.Text())
	}
	if err := node.Err(); err != nil {
		fmt.Fprintf(w, " !%s", err)
	}
	fmt.Fprintln(w)
	for child := range node.ChildNodes() {
		dumpTree(w, text, child, depth+1)
	}
}
