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

package refactor

import (
	"errors"
	"fmt"

	"github.com/opwvhk/intellij-plugin-avro-idl/symbols"
	"github.com/opwvhk/intellij-plugin-avro-idl/syntax"
)

var (
	ErrInvalidName = errors.New("invalid name")

	// ErrReadOnly is returned for symbols declared by JSON schemas and
	// protocols, which are never edited.
	ErrReadOnly = errors.New("symbol is declared in a JSON file")
)

const (
	codeReferenceNotRenamed = 4100
	codeNameTaken           = 4101
)

func errInvalidName(name string, reason string) error {
	return fmt.Errorf("%w %q: %s", ErrInvalidName, name, reason)
}

func errReadOnly(sym *symbols.Symbol) error {
	return fmt.Errorf("%w: %s in %s", ErrReadOnly, sym.Name, sym.URI)
}

func warnReferenceNotRenamed(uri string, ref *symbols.Reference, why string) *syntax.Diagnostic {
	return syntax.NewDiagnostic(
		syntax.SeverityWarning,
		codeReferenceNotRenamed,
		fmt.Sprintf("Reference %s is %s and is not renamed", ref.Name, why),
		ref.Span,
	).WithURI(uri)
}

func warnNameTaken(name string, existing *symbols.Symbol) *syntax.Diagnostic {
	return syntax.NewDiagnostic(
		syntax.SeverityWarning,
		codeNameTaken,
		fmt.Sprintf("%s is already declared", name),
		existing.NameSpan,
	).WithURI(existing.URI)
}
