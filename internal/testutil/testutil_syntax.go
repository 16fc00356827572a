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
	"fmt"
	"strings"

	"github.com/opwvhk/intellij-plugin-avro-idl/syntax"
)

// DumpTree renders the nodes of a syntax tree, one per line, indented by
// depth. Named nodes show their name, error nodes their diagnostic code.
func DumpTree(node syntax.Node) string {
	var buf strings.Builder
	dumpTree(&buf, node, 0)
	return buf.String()
}

func dumpTree(buf *strings.Builder, node syntax.Node, indent int) {
	buf.WriteString(strings.Repeat("  ", indent))
	fmt.Fprintf(buf, "%s %s", node.Kind(), node.Span())
	if name := node.Name(); name.IsValid() {
		fmt.Fprintf(buf, " %q", name.Text())
	}
	if err := node.Err(); err != nil {
		fmt.Fprintf(buf, " E%d", err.Code())
	}
	buf.WriteString("\n")
	for child := range node.ChildNodes() {
		dumpTree(buf, child, indent+1)
	}
}

// DumpTokens renders tokens as KIND "text" lines.
func DumpTokens(tokens []syntax.Token) string {
	var buf strings.Builder
	for _, token := range tokens {
		fmt.Fprintf(&buf, "%s %q\n", token.Kind, token.Text)
	}
	return buf.String()
}
