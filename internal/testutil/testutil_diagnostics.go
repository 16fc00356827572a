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

package testutil

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/opwvhk/intellij-plugin-avro-idl/syntax"
)

// SortDiagnostics orders diagnostics by URI, position, and code.
func SortDiagnostics(diags []*syntax.Diagnostic) {
	slices.SortStableFunc(diags, func(a, b *syntax.Diagnostic) int {
		if x := cmp.Compare(a.URI(), b.URI()); x != 0 {
			return x
		}
		if x := cmp.Compare(a.Span().Start(), b.Span().Start()); x != 0 {
			return x
		}
		if x := cmp.Compare(a.Span().Len(), b.Span().Len()); x != 0 {
			return x
		}
		return cmp.Compare(a.Code(), b.Code())
	})
}

// FormatDiagnostics renders diagnostics in a stable order, one per line, with
// the source text each one points at.
func FormatDiagnostics(text string, diags []*syntax.Diagnostic) string {
	sorted := slices.Clone(diags)
	SortDiagnostics(sorted)
	var buf strings.Builder
	for _, diag := range sorted {
		span := diag.Span()
		snippet := ""
		if int(span.End()) <= len(text) {
			snippet = text[span.Start():span.End()]
		}
		if uri := diag.URI(); uri != "" {
			fmt.Fprintf(&buf, "%s:", uri)
		}
		fmt.Fprintf(&buf, "%s %q %s\n", span, snippet, diag.Error())
	}
	return buf.String()
}

// DiagnosticCodes returns the codes of diags in a stable order.
func DiagnosticCodes(diags []*syntax.Diagnostic) []uint32 {
	sorted := slices.Clone(diags)
	SortDiagnostics(sorted)
	codes := make([]uint32, 0, len(sorted))
	for _, diag := range sorted {
		codes = append(codes, diag.Code())
	}
	return codes
}
