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

package symbols

import (
	"fmt"
	"strings"

	"github.com/opwvhk/intellij-plugin-avro-idl/syntax"
)

const (
	codeDuplicateDeclaration = 3000
	codeImportUnreadable     = 3002
)

func errDuplicateDeclaration(sym *Symbol, others []*Symbol) *syntax.Diagnostic {
	related := make([]syntax.Related, 0, len(others))
	for _, other := range others {
		related = append(related, syntax.Related{
			URI:     other.URI,
			Span:    other.NameSpan,
			Message: fmt.Sprintf("%s %s is also declared here", other.Kind, other.Name),
		})
	}
	return syntax.NewDiagnostic(
		syntax.SeverityError,
		codeDuplicateDeclaration,
		fmt.Sprintf("Duplicate declaration of %s", sym.Name),
		sym.NameSpan,
	).WithURI(sym.URI).WithRelated(related...)
}

func errImportUnreadable(uri string, reason string) *syntax.Diagnostic {
	return syntax.NewDiagnostic(
		syntax.SeverityError,
		codeImportUnreadable,
		fmt.Sprintf("Cannot read %s: %s", uri, strings.TrimSpace(reason)),
		syntax.NewSpan(0, 0),
	).WithURI(uri)
}
