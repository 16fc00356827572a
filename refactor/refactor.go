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

// Package refactor computes the text edits of rename and safe delete
// refactorings from a project snapshot. Edits are returned to the caller,
// never applied to documents.
package refactor

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/opwvhk/intellij-plugin-avro-idl/project"
	"github.com/opwvhk/intellij-plugin-avro-idl/resolver"
	"github.com/opwvhk/intellij-plugin-avro-idl/symbols"
	"github.com/opwvhk/intellij-plugin-avro-idl/syntax"
)

// TextEdit replaces the text of a span in a document.
type TextEdit struct {
	URI     string
	Span    syntax.Span
	NewText string
}

func (e TextEdit) String() string {
	return fmt.Sprintf("%s:%s %q", e.URI, e.Span, e.NewText)
}

type Location struct {
	URI  string
	Span syntax.Span
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%s", l.URI, l.Span)
}

type RenameResult struct {
	Edits []TextEdit

	// Warnings lists references that may name the symbol but were left
	// unchanged, because they are unresolved or ambiguous.
	Warnings []*syntax.Diagnostic
}

// Rename computes the edits that rename a named type: its declaration and
// every reference that resolves to it. newName replaces the simple name
// only; the namespace is kept. Quoted names stay quoted.
func Rename(snapshot *project.Snapshot, sym *symbols.Symbol, newName string) (*RenameResult, error) {
	if err := checkName(newName); err != nil {
		return nil, err
	}
	if sym.FromJSON() {
		return nil, errReadOnly(sym)
	}
	if _, ok := snapshot.Document(sym.URI); !ok {
		return nil, fmt.Errorf("%w: %s", project.ErrUnknownDocument, sym.URI)
	}

	result := &RenameResult{}
	result.Edits = append(result.Edits, TextEdit{
		URI:     sym.URI,
		Span:    sym.NameSpan,
		NewText: newName,
	})

	oldSimple := sym.SimpleName()
	for _, usage := range snapshot.References() {
		ref := usage.Reference
		switch usage.Result.Status {
		case resolver.Resolved:
			if !project.SameSymbol(usage.Result.Symbol, sym) {
				continue
			}
			result.Edits = append(result.Edits, TextEdit{
				URI:     usage.URI,
				Span:    ref.NameSpan,
				NewText: newName,
			})
		case resolver.Ambiguous:
			if slices.ContainsFunc(usage.Result.Candidates, func(candidate *symbols.Symbol) bool {
				return project.SameSymbol(candidate, sym)
			}) {
				result.Warnings = append(result.Warnings, warnReferenceNotRenamed(usage.URI, ref, "ambiguous"))
			}
		case resolver.Unresolved:
			if simpleName(ref.Name) == oldSimple {
				result.Warnings = append(result.Warnings, warnReferenceNotRenamed(usage.URI, ref, "unresolved"))
			}
		}
	}

	newFullName := newName
	if sym.Namespace != "" {
		newFullName = sym.Namespace + "." + newName
	}
	if newFullName != sym.Name {
		for _, existing := range snapshot.Lookup(newFullName) {
			result.Warnings = append(result.Warnings, warnNameTaken(newFullName, existing))
		}
	}

	sortEdits(result.Edits)
	return result, nil
}

type DeleteResult struct {
	// Blocked is set when references to the symbol remain. Usages then
	// lists them and Edits is empty.
	Blocked bool
	Usages  []Location
	Edits   []TextEdit
}

// SafeDelete computes the edit that removes a declaration, unless it is
// still referenced from outside the declaration itself.
func SafeDelete(snapshot *project.Snapshot, sym *symbols.Symbol) (*DeleteResult, error) {
	if sym.FromJSON() {
		return nil, errReadOnly(sym)
	}
	doc, ok := snapshot.Document(sym.URI)
	if !ok {
		return nil, fmt.Errorf("%w: %s", project.ErrUnknownDocument, sym.URI)
	}

	result := &DeleteResult{}
	for _, usage := range snapshot.Usages(sym) {
		if usage.URI == sym.URI && sym.Span.Covers(usage.Reference.Span) {
			continue
		}
		result.Usages = append(result.Usages, Location{
			URI:  usage.URI,
			Span: usage.Reference.Span,
		})
	}
	if len(result.Usages) > 0 {
		result.Blocked = true
		return result, nil
	}
	result.Edits = []TextEdit{{
		URI:  sym.URI,
		Span: deletionSpan(doc.Tree, sym.Span),
	}}
	return result, nil
}

// deletionSpan extends the span of a declaration back over the doc comment
// that documents it, and the indentation of that comment.
func deletionSpan(tree *syntax.Tree, span syntax.Span) syntax.Span {
	start := span.Start()
	pos := start
	for pos > 0 {
		leaf := tree.LeafAt(pos - 1)
		if !leaf.IsValid() {
			break
		}
		kind := leaf.Kind()
		if kind == syntax.T_SPACE || kind == syntax.T_NEWLINE {
			pos = leaf.Span().Start()
			continue
		}
		if kind != syntax.T_DOC_COMMENT {
			break
		}
		start = leaf.Span().Start()
		if start > 0 {
			if indent := tree.LeafAt(start - 1); indent.IsValid() && indent.Kind() == syntax.T_SPACE {
				before := indent.Span().Start()
				if before == 0 || startsLine(tree.LeafAt(before-1)) {
					start = before
				}
			}
		}
		break
	}
	return syntax.NewSpan(start, span.End()-start)
}

func startsLine(prev syntax.Leaf) bool {
	return prev.IsValid() && prev.Kind() == syntax.T_NEWLINE
}

// ApplyEdits applies the edits of one document to its text.
func ApplyEdits(text string, edits []TextEdit) (string, error) {
	sorted := slices.Clone(edits)
	sortEdits(sorted)
	var buf strings.Builder
	last := uint32(0)
	for _, edit := range sorted {
		if edit.Span.Start() < last || edit.Span.End() > uint32(len(text)) {
			return "", fmt.Errorf("edit %s overlaps another edit or the end of the text", edit)
		}
		buf.WriteString(text[last:edit.Span.Start()])
		buf.WriteString(edit.NewText)
		last = edit.Span.End()
	}
	buf.WriteString(text[last:])
	return buf.String(), nil
}

func sortEdits(edits []TextEdit) {
	slices.SortFunc(edits, func(a, b TextEdit) int {
		return cmp.Or(
			strings.Compare(a.URI, b.URI),
			cmp.Compare(a.Span.Start(), b.Span.Start()),
		)
	})
}

func checkName(name string) error {
	if name == "" {
		return errInvalidName(name, "empty")
	}
	if strings.ContainsAny(name, ".`-") {
		return errInvalidName(name, "must be a simple name")
	}
	// Reserved words would need quoting, which qualified references
	// cannot express.
	if syntax.IsKeyword(name) || resolver.IsPrimitive(name) {
		return errInvalidName(name, "reserved word")
	}
	for token := range syntax.Tokenize(name) {
		if token.Kind != syntax.T_IDENT && token.Kind != syntax.T_KEYWORD || token.Len() != uint32(len(name)) {
			return errInvalidName(name, "not an identifier")
		}
	}
	return nil
}

func simpleName(name string) string {
	if dot := strings.LastIndexByte(name, '.'); dot >= 0 {
		return name[dot+1:]
	}
	return name
}
