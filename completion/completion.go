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

// Package completion lists the type names that can be written at a position
// of a document.
package completion

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

type Candidate struct {
	// Label is the text to insert: the simple name of types in the
	// namespace of the position, and the full name of other types.
	Label string
	Kind  string

	// Detail is the encoding of logical types, or the declaring document.
	Detail string

	// Symbol is nil for builtin types.
	Symbol *symbols.Symbol
}

type Result struct {
	// Replace covers the partial name before the position.
	Replace    syntax.Span
	Candidates []Candidate
}

// Complete returns the candidates for the name being typed at offset.
func Complete(snapshot *project.Snapshot, uri string, offset uint32) (*Result, error) {
	doc, ok := snapshot.Document(uri)
	if !ok {
		return nil, fmt.Errorf("%w: %s", project.ErrUnknownDocument, uri)
	}
	if doc.Tree == nil {
		return nil, fmt.Errorf("completion is not supported for %s documents", doc.Kind)
	}
	if int(offset) > len(doc.Text) {
		return nil, fmt.Errorf("offset %d is past the end of %s", offset, uri)
	}
	scope, _, err := snapshot.Scope(uri)
	if err != nil {
		return nil, err
	}

	result := &Result{Replace: syntax.NewSpan(offset, 0)}
	prefix := ""
	errorsOnly := false
	namespace := doc.Symbols.Namespace
	if offset > 0 {
		leaf := doc.Tree.LeafAt(offset - 1)
		if leaf.IsValid() {
			if kind := leaf.Kind(); kind == syntax.T_IDENT || kind == syntax.T_KEYWORD {
				start := leaf.Span().Start()
				prefix = syntax.IdentText(leaf.Text()[:offset-start])
				prefix = strings.TrimPrefix(prefix, "`")
				result.Replace = syntax.NewSpan(start, offset-start)
			}
			errorsOnly, namespace = position(doc, leaf, namespace)
		}
	}

	if !errorsOnly {
		for _, name := range resolver.Primitives() {
			if !strings.HasPrefix(name, prefix) {
				continue
			}
			candidate := Candidate{Label: name, Kind: "primitive"}
			if underlying := resolver.Underlying(name); underlying != name {
				candidate.Detail = underlying
			}
			result.Candidates = append(result.Candidates, candidate)
		}
	}

	var named []Candidate
	seen := make(map[*symbols.Symbol]bool)
	for _, table := range scope.Visible() {
		for _, sym := range table.Types() {
			if seen[sym] || errorsOnly && sym.Kind != symbols.KindError {
				continue
			}
			seen[sym] = true
			label := sym.Name
			if sym.Namespace == namespace {
				label = sym.SimpleName()
			}
			if !strings.HasPrefix(label, prefix) && !strings.HasPrefix(sym.Name, prefix) {
				continue
			}
			named = append(named, Candidate{
				Label:  label,
				Kind:   sym.Kind.String(),
				Detail: sym.URI,
				Symbol: sym,
			})
		}
	}
	slices.SortStableFunc(named, func(a, b Candidate) int {
		return cmp.Or(
			strings.Compare(a.Label, b.Label),
			strings.Compare(a.Detail, b.Detail),
		)
	})
	result.Candidates = append(result.Candidates, named...)
	return result, nil
}

// position returns whether a leaf is part of a throws clause, and the
// namespace that unqualified names written there are relative to.
func position(doc *project.Document, leaf syntax.Leaf, namespace string) (bool, string) {
	errorsOnly := false
	for node := leaf.Parent(); node.IsValid(); node = node.Parent() {
		switch node.Kind() {
		case syntax.N_THROWS_CLAUSE:
			errorsOnly = true
		case syntax.N_RECORD_DECL, syntax.N_ERROR_DECL:
			for _, sym := range doc.Symbols.Symbols {
				if sym.Decl == node.ID() {
					return errorsOnly, sym.Namespace
				}
			}
		case syntax.N_PROTOCOL_DECL:
			if doc.Symbols.Protocol != nil {
				return errorsOnly, doc.Symbols.Protocol.Namespace
			}
		}
	}
	return errorsOnly, namespace
}
