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

package validator

import (
	"fmt"
	"strings"

	"github.com/opwvhk/intellij-plugin-avro-idl/symbols"
	"github.com/opwvhk/intellij-plugin-avro-idl/syntax"
)

const (
	codeDuplicateDeclaration = 3000
	codeImportNotFound       = 3001
	codeImportUnreadable     = 3002
	codeImportCycle          = 3003

	codeUnresolvedReference = 3100
	codeAmbiguousReference  = 3101

	codeDefaultMismatch     = 3200
	codeEnumDefaultUnknown  = 3201
	codeDuplicateField      = 3202
	codeDuplicateEnumSymbol = 3203
	codeThrowsNonError      = 3204
	codeOnewayResult        = 3205

	codeImportPending = 4000
)

func errDuplicateImported(sym *symbols.Symbol, others []*symbols.Symbol) *syntax.Diagnostic {
	return syntax.NewDiagnostic(
		syntax.SeverityError,
		codeDuplicateDeclaration,
		fmt.Sprintf("Duplicate declaration of %s, also declared by an import", sym.Name),
		sym.NameSpan,
	).WithRelated(declaredHere(others)...)
}

func errDuplicateBetweenImports(name string, span syntax.Span, others []*symbols.Symbol) *syntax.Diagnostic {
	return syntax.NewDiagnostic(
		syntax.SeverityError,
		codeDuplicateDeclaration,
		fmt.Sprintf("%s is declared by more than one import", name),
		span,
	).WithRelated(declaredHere(others)...)
}

func declaredHere(syms []*symbols.Symbol) []syntax.Related {
	related := make([]syntax.Related, 0, len(syms))
	for _, sym := range syms {
		related = append(related, syntax.Related{
			URI:     sym.URI,
			Span:    sym.NameSpan,
			Message: fmt.Sprintf("%s %s is declared here", sym.Kind, sym.Name),
		})
	}
	return related
}

func errImportNotFound(path string, span syntax.Span) *syntax.Diagnostic {
	return syntax.NewDiagnostic(
		syntax.SeverityError,
		codeImportNotFound,
		fmt.Sprintf("Import %q not found", path),
		span,
	)
}

func errImportUnreadable(path string, reason string, span syntax.Span) *syntax.Diagnostic {
	return syntax.NewDiagnostic(
		syntax.SeverityError,
		codeImportUnreadable,
		fmt.Sprintf("Cannot read import %q: %s", path, reason),
		span,
	)
}

func errImportCycle(cycle []string, span syntax.Span, related []syntax.Related) *syntax.Diagnostic {
	return syntax.NewDiagnostic(
		syntax.SeverityError,
		codeImportCycle,
		fmt.Sprintf("Import cycle: %s", strings.Join(cycle, " -> ")),
		span,
	).WithRelated(related...)
}

func errUnresolvedReference(name string, span syntax.Span) *syntax.Diagnostic {
	return syntax.NewDiagnostic(
		syntax.SeverityError,
		codeUnresolvedReference,
		fmt.Sprintf("Unknown type %s", name),
		span,
	)
}

func errAmbiguousReference(name string, candidates []*symbols.Symbol, span syntax.Span) *syntax.Diagnostic {
	names := make([]string, 0, len(candidates))
	for _, sym := range candidates {
		names = append(names, sym.Name)
	}
	return syntax.NewDiagnostic(
		syntax.SeverityError,
		codeAmbiguousReference,
		fmt.Sprintf("Type %s is ambiguous, candidates: %s", name, strings.Join(names, ", ")),
		span,
	).WithRelated(declaredHere(candidates)...)
}

func errDefaultMismatch(typeName string, value string, span syntax.Span) *syntax.Diagnostic {
	return syntax.NewDiagnostic(
		syntax.SeverityError,
		codeDefaultMismatch,
		fmt.Sprintf("Default value %s is not a valid %s", value, typeName),
		span,
	)
}

func errEnumDefaultUnknown(symbol string, enum string, span syntax.Span) *syntax.Diagnostic {
	return syntax.NewDiagnostic(
		syntax.SeverityError,
		codeEnumDefaultUnknown,
		fmt.Sprintf("Default %s is not a symbol of enum %s", symbol, enum),
		span,
	)
}

func errDuplicateField(name string, span syntax.Span) *syntax.Diagnostic {
	return syntax.NewDiagnostic(
		syntax.SeverityError,
		codeDuplicateField,
		fmt.Sprintf("Duplicate field %s", name),
		span,
	)
}

func errDuplicateEnumSymbol(name string, span syntax.Span) *syntax.Diagnostic {
	return syntax.NewDiagnostic(
		syntax.SeverityError,
		codeDuplicateEnumSymbol,
		fmt.Sprintf("Duplicate enum symbol %s", name),
		span,
	)
}

func errThrowsNonError(name string, kind string, span syntax.Span) *syntax.Diagnostic {
	return syntax.NewDiagnostic(
		syntax.SeverityError,
		codeThrowsNonError,
		fmt.Sprintf("Cannot throw %s %s, only error types can be thrown", kind, name),
		span,
	)
}

func errOnewayResult(message string, span syntax.Span) *syntax.Diagnostic {
	return syntax.NewDiagnostic(
		syntax.SeverityError,
		codeOnewayResult,
		fmt.Sprintf("One-way message %s must return void", message),
		span,
	)
}

func warnImportPending(path string, span syntax.Span) *syntax.Diagnostic {
	return syntax.NewDiagnostic(
		syntax.SeverityWarning,
		codeImportPending,
		fmt.Sprintf("Import %q is still loading, references are not checked yet", path),
		span,
	)
}
