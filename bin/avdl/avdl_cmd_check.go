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
	"runtime"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/opwvhk/intellij-plugin-avro-idl/project"
	"github.com/opwvhk/intellij-plugin-avro-idl/syntax"
)

type cmdCheck struct {
	*globals
	skipImports bool
}

func (*cmdCheck) help() *commandHelp {
	return &commandHelp{
		usage:   "check FILE...",
		summary: "Report problems in IDL files and the files they import",
	}
}

func (cmd *cmdCheck) flags(flags *pflag.FlagSet) {
	flags.BoolVar(&cmd.skipImports, "skip-imports", false, "only report problems in the named files")
}

func (cmd *cmdCheck) run(ctx context.Context, argv []string) int {
	if len(argv) < 1 {
		fmt.Fprintln(cmd.stderr, "usage: avdl check FILE...")
		return 1
	}
	p, uris, err := cmd.openProject(ctx, argv)
	if err != nil {
		return cmd.fail(err)
	}
	defer p.Close()

	snapshot := p.Snapshot()
	if !cmd.skipImports {
		uris = uris[:0]
		for _, doc := range snapshot.Documents() {
			uris = append(uris, doc.URI)
		}
	}

	results := make([][]*syntax.Diagnostic, len(uris))
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(runtime.GOMAXPROCS(0))
	for i, uri := range uris {
		group.Go(func() error {
			analysis, err := p.Analyze(ctx, uri)
			if err != nil {
				return fmt.Errorf("%s: %w", uri, err)
			}
			results[i] = analysis.Diagnostics
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return cmd.fail(err)
	}

	out := newPrinter(cmd.stdout, cmd.noColor, snapshotTexts(snapshot))
	errors, warnings := 0, 0
	for _, diags := range results {
		for _, diag := range diags {
			out.diagnostic(diag)
			if diag.Severity() == syntax.SeverityError {
				errors++
			} else {
				warnings++
			}
		}
	}
	if errors+warnings > 0 {
		fmt.Fprintf(cmd.stderr, "%s, %s\n", plural(errors, "error"), plural(warnings, "warning"))
	}
	if errors > 0 {
		return 1
	}
	return 0
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// documentOf returns the document of a file opened in p.
func documentOf(p *project.Project, uri string) (*project.Snapshot, *project.Document, error) {
	snapshot := p.Snapshot()
	doc, ok := snapshot.Document(uri)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", project.ErrUnknownDocument, uri)
	}
	return snapshot, doc, nil
}
