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

package syntax

import (
	"fmt"
)

type Severity uint8

const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return fmt.Sprintf("Severity(%d)", uint8(s))
	}
}

// Related points at a second location involved in a diagnostic, such as the
// earlier of two conflicting declarations.
type Related struct {
	URI     string
	Span    Span
	Message string
}

// Diagnostic is a problem found in a document. Every layer of the analysis
// (lexer, parser, symbol table, resolver, validator) reports problems as
// diagnostics; none of them is fatal.
type Diagnostic struct {
	code     uint32
	severity Severity
	message  string
	span     Span
	uri      string
	related  []Related
}

var _ error = (*Diagnostic)(nil)

func NewDiagnostic(severity Severity, code uint32, message string, span Span) *Diagnostic {
	return &Diagnostic{
		code:     code,
		severity: severity,
		message:  message,
		span:     span,
	}
}

func (d *Diagnostic) Error() string {
	if d.severity == SeverityError {
		return fmt.Sprintf("E%d: %s", d.code, d.message)
	}
	return fmt.Sprintf("W%d: %s", d.code, d.message)
}

func (d *Diagnostic) Code() uint32 {
	return d.code
}

func (d *Diagnostic) Severity() Severity {
	return d.severity
}

func (d *Diagnostic) Message() string {
	return d.message
}

func (d *Diagnostic) Span() Span {
	return d.span
}

func (d *Diagnostic) URI() string {
	return d.uri
}

func (d *Diagnostic) Related() []Related {
	return d.related
}

// WithURI returns a copy of d attributed to the document at uri.
func (d *Diagnostic) WithURI(uri string) *Diagnostic {
	cp := *d
	cp.uri = uri
	return &cp
}

// WithSeverity returns a copy of d with a different severity.
func (d *Diagnostic) WithSeverity(severity Severity) *Diagnostic {
	cp := *d
	cp.severity = severity
	return &cp
}

func (d *Diagnostic) WithRelated(related ...Related) *Diagnostic {
	cp := *d
	cp.related = append(append([]Related(nil), d.related...), related...)
	return &cp
}

// Key identifies a diagnostic by content, ignoring identity.
func (d *Diagnostic) Key() string {
	return fmt.Sprintf("%s|%d|%d:%d|%s", d.uri, d.code, d.span.start, d.span.len, d.message)
}

const (
	codeInvalidUtf8               = 1001
	codeUnexpectedCharacter       = 1002
	codeForbiddenControlCharacter = 1003
	codeSourceTooLong             = 1004
	codeStringLitUnterminated     = 1005
	codeCommentUnterminated       = 1006
	codeNumberLitInvalid          = 1007
	codeIdentInvalid              = 1008
)

func lexDiagnostic(code uint32, token string, span Span) *Diagnostic {
	var message string
	switch code {
	case codeInvalidUtf8:
		message = "Source contains invalid UTF-8"
	case codeUnexpectedCharacter:
		message = fmt.Sprintf("Unexpected character %q", token)
	case codeForbiddenControlCharacter:
		message = fmt.Sprintf("Forbidden control character U+%04X", []rune(token)[0])
	case codeStringLitUnterminated:
		message = "Unterminated string literal"
	case codeCommentUnterminated:
		message = "Unterminated block comment"
	case codeNumberLitInvalid:
		message = fmt.Sprintf("Invalid number literal %q", token)
	case codeIdentInvalid:
		message = fmt.Sprintf("Invalid quoted identifier %q", token)
	case codeSourceTooLong:
		message = errSourceTooLong(len(token), MaxSourceLen).Message()
	default:
		message = fmt.Sprintf("Invalid token %q", token)
	}
	return NewDiagnostic(SeverityError, code, message, span)
}

func errSourceTooLong(srcLen int, maxLen uint64) *Diagnostic {
	return NewDiagnostic(
		SeverityError,
		codeSourceTooLong,
		fmt.Sprintf(
			"Source size (%d bytes) exceeds maximum (%d bytes)",
			srcLen, maxLen,
		),
		Span{0, 0},
	)
}

// Grammar errors are stored in the tree (see errorInfo) and become
// diagnostics with the span of the error node that carries them.

type errorInfo struct {
	code    uint32
	message string
}

const (
	codeExpectedToken       = 2000
	codeExpectedIdent       = 2001
	codeExpectedType        = 2002
	codeExpectedDeclaration = 2003
	codeExpectedJSONValue   = 2004
	codeUnexpectedToken     = 2005
	codeExpectedStringLit   = 2006
	codeExpectedIntLit      = 2007
	codeExpectedImportKind  = 2008
	codeExpectedMessage     = 2009
	codeExpectedEnumSymbol  = 2010
	codeDanglingAnnotation  = 2011
)

func describeToken(kind TokenKind, text string) string {
	if kind == T_EOF {
		return "end of file"
	}
	return fmt.Sprintf("(%s %q)", kind, text)
}

func errExpectedToken(want string, gotKind TokenKind, gotText string) *errorInfo {
	return &errorInfo{
		code:    codeExpectedToken,
		message: fmt.Sprintf("Expected '%s', got %s", want, describeToken(gotKind, gotText)),
	}
}

func errExpectedIdent(gotKind TokenKind, gotText string) *errorInfo {
	return &errorInfo{
		code:    codeExpectedIdent,
		message: fmt.Sprintf("Expected identifier, got %s", describeToken(gotKind, gotText)),
	}
}

func errExpectedType(gotKind TokenKind, gotText string) *errorInfo {
	return &errorInfo{
		code:    codeExpectedType,
		message: fmt.Sprintf("Expected type, got %s", describeToken(gotKind, gotText)),
	}
}

func errExpectedDeclaration(gotKind TokenKind, gotText string) *errorInfo {
	return &errorInfo{
		code:    codeExpectedDeclaration,
		message: fmt.Sprintf("Expected declaration, got %s", describeToken(gotKind, gotText)),
	}
}

func errExpectedJSONValue(gotKind TokenKind, gotText string) *errorInfo {
	return &errorInfo{
		code:    codeExpectedJSONValue,
		message: fmt.Sprintf("Expected JSON value, got %s", describeToken(gotKind, gotText)),
	}
}

func errUnexpectedToken(gotKind TokenKind, gotText string) *errorInfo {
	return &errorInfo{
		code:    codeUnexpectedToken,
		message: fmt.Sprintf("Unexpected %s", describeToken(gotKind, gotText)),
	}
}

func errExpectedStringLit(gotKind TokenKind, gotText string) *errorInfo {
	return &errorInfo{
		code:    codeExpectedStringLit,
		message: fmt.Sprintf("Expected string literal, got %s", describeToken(gotKind, gotText)),
	}
}

func errExpectedIntLit(gotKind TokenKind, gotText string) *errorInfo {
	return &errorInfo{
		code:    codeExpectedIntLit,
		message: fmt.Sprintf("Expected integer literal, got %s", describeToken(gotKind, gotText)),
	}
}

func errExpectedImportKind(gotKind TokenKind, gotText string) *errorInfo {
	return &errorInfo{
		code: codeExpectedImportKind,
		message: fmt.Sprintf(
			"Expected import kind 'idl', 'protocol' or 'schema', got %s",
			describeToken(gotKind, gotText),
		),
	}
}

func errExpectedMessage(gotKind TokenKind, gotText string) *errorInfo {
	return &errorInfo{
		code:    codeExpectedMessage,
		message: fmt.Sprintf("Expected declaration or message, got %s", describeToken(gotKind, gotText)),
	}
}

func errExpectedEnumSymbol(gotKind TokenKind, gotText string) *errorInfo {
	return &errorInfo{
		code:    codeExpectedEnumSymbol,
		message: fmt.Sprintf("Expected enum symbol, got %s", describeToken(gotKind, gotText)),
	}
}

func errDanglingAnnotation(gotKind TokenKind, gotText string) *errorInfo {
	return &errorInfo{
		code:    codeDanglingAnnotation,
		message: fmt.Sprintf("Annotation is not followed by a declaration, got %s", describeToken(gotKind, gotText)),
	}
}
