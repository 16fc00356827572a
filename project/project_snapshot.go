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

package project

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/opwvhk/intellij-plugin-avro-idl/resolver"
	"github.com/opwvhk/intellij-plugin-avro-idl/symbols"
	"github.com/opwvhk/intellij-plugin-avro-idl/syntax"
	"github.com/opwvhk/intellij-plugin-avro-idl/validator"
)

func fmtUnknown(uri string) error {
	return fmt.Errorf("%w: %s", ErrUnknownDocument, uri)
}

// Snapshot is a consistent view of every loaded document. Edits made after
// the snapshot was taken are not visible through it.
type Snapshot struct {
	project *Project
	version uint64
	docs    map[string]*Document
	open    map[string]bool
	links   map[linkKey]link
}

func (p *Project) Snapshot() *Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshotLocked()
}

func (p *Project) snapshotLocked() *Snapshot {
	s := &Snapshot{
		project: p,
		version: p.version,
		docs:    make(map[string]*Document, len(p.docs)),
		open:    make(map[string]bool, len(p.open)),
		links:   make(map[linkKey]link, len(p.links)),
	}
	for uri, open := range p.open {
		s.open[uri] = open
	}
	for uri, doc := range p.docs {
		s.docs[uri] = doc
	}
	for key, l := range p.links {
		s.links[key] = *l
	}
	return s
}

// Version increases whenever a document is published or an import finishes
// loading.
func (s *Snapshot) Version() uint64 {
	return s.version
}

func (s *Snapshot) Document(uri string) (*Document, bool) {
	doc, ok := s.docs[uri]
	return doc, ok
}

// Documents returns the loaded documents ordered by URI.
func (s *Snapshot) Documents() []*Document {
	docs := make([]*Document, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc)
	}
	slices.SortFunc(docs, func(a, b *Document) int {
		return strings.Compare(a.URI, b.URI)
	})
	return docs
}

// Pending reports whether some import is still being loaded.
func (s *Snapshot) Pending() bool {
	for _, l := range s.links {
		if l.state == validator.ImportPending {
			return true
		}
	}
	return false
}

// Scope returns the symbols visible from a document, with the targets of
// its import statements.
func (s *Snapshot) Scope(uri string) (*resolver.Scope, []validator.ImportTarget, error) {
	doc, ok := s.docs[uri]
	if !ok {
		return nil, nil, fmtUnknown(uri)
	}
	scope := &resolver.Scope{Local: doc.Symbols}
	tables, pending := s.reach(uri)
	scope.Imports = tables
	scope.Pending = pending

	targets := make([]validator.ImportTarget, 0, len(doc.Symbols.Imports))
	for _, imp := range doc.Symbols.Imports {
		l, ok := s.links[keyOf(uri, imp)]
		if !ok {
			targets = append(targets, validator.ImportTarget{State: validator.ImportPending})
			continue
		}
		target := validator.ImportTarget{
			State: l.state,
			URI:   l.uri,
			Err:   l.err,
		}
		if l.state == validator.ImportLoaded {
			if targetDoc, ok := s.docs[l.uri]; ok {
				target.Table = targetDoc.Symbols
				rest, _ := s.reach(l.uri)
				target.Tables = append([]*symbols.Table{targetDoc.Symbols}, rest...)
			}
		}
		targets = append(targets, target)
	}
	return scope, targets, nil
}

// reach returns the tables of the documents imported by uri, transitively,
// in breadth first order, and whether some of them are still loading.
func (s *Snapshot) reach(uri string) ([]*symbols.Table, bool) {
	var tables []*symbols.Table
	pending := false
	seen := map[string]bool{uri: true}
	queue := []string{uri}
	for len(queue) > 0 {
		doc := s.docs[queue[0]]
		queue = queue[1:]
		for _, imp := range doc.Symbols.Imports {
			l, ok := s.links[keyOf(doc.URI, imp)]
			if !ok || l.state == validator.ImportPending {
				pending = true
				continue
			}
			if l.state != validator.ImportLoaded || seen[l.uri] {
				continue
			}
			seen[l.uri] = true
			if target, ok := s.docs[l.uri]; ok {
				tables = append(tables, target.Symbols)
				queue = append(queue, l.uri)
			}
		}
	}
	return tables, pending
}

// Graph returns the resolved import statements of every loaded document.
func (s *Snapshot) Graph() validator.ImportGraph {
	graph := make(validator.ImportGraph, len(s.docs))
	for uri, doc := range s.docs {
		for _, imp := range doc.Symbols.Imports {
			l, ok := s.links[keyOf(uri, imp)]
			if ok && l.state == validator.ImportLoaded {
				graph[uri] = append(graph[uri], validator.ImportEdge{
					Target: l.uri,
					Span:   imp.PathSpan,
				})
			}
		}
	}
	return graph
}

// Resolve returns the resolution of every reference in a document, in the
// order of its symbol table.
func (s *Snapshot) Resolve(uri string) ([]resolver.Result, error) {
	scope, _, err := s.Scope(uri)
	if err != nil {
		return nil, err
	}
	return s.project.cache.Resolve(scope), nil
}

// Diagnostics runs every check on a document. Work is abandoned as soon as
// ctx is cancelled, and no diagnostics are returned for it.
func (s *Snapshot) Diagnostics(ctx context.Context, uri string) ([]*syntax.Diagnostic, error) {
	doc, ok := s.docs[uri]
	if !ok {
		return nil, fmtUnknown(uri)
	}
	if doc.Tree == nil {
		return slices.Clone(doc.Symbols.Diagnostics), nil
	}

	var diags []*syntax.Diagnostic
	for _, diag := range doc.Tree.Diagnostics() {
		diags = append(diags, diag.WithURI(uri))
	}
	if ctx.Err() != nil {
		return nil, context.Cause(ctx)
	}

	scope, imports, err := s.Scope(uri)
	if err != nil {
		return nil, err
	}
	results := s.project.cache.Resolve(scope)
	if ctx.Err() != nil {
		return nil, context.Cause(ctx)
	}

	diags = append(diags, validator.Validate(&validator.Input{
		Scope:     scope,
		Results:   results,
		Imports:   imports,
		Graph:     s.Graph(),
		Reporters: s.open,
	}, s.project.opts.validate...)...)
	if ctx.Err() != nil {
		return nil, context.Cause(ctx)
	}
	return diags, nil
}

// Symbols returns the declarations of a document, for outline views.
func (s *Snapshot) Symbols(uri string) []*symbols.Symbol {
	doc, ok := s.docs[uri]
	if !ok {
		return nil
	}
	return slices.Clone(doc.Symbols.Symbols)
}

// Lookup returns the named types declared with a full name by any loaded
// document.
func (s *Snapshot) Lookup(fullName string) []*symbols.Symbol {
	var found []*symbols.Symbol
	for _, doc := range s.Documents() {
		found = append(found, doc.Symbols.Lookup(fullName)...)
	}
	return found
}

// SymbolAt returns the symbol declared or referenced at an offset of a
// document.
func (s *Snapshot) SymbolAt(uri string, offset uint32) *symbols.Symbol {
	doc, ok := s.docs[uri]
	if !ok {
		return nil
	}
	if sym := doc.Symbols.SymbolAt(offset); sym != nil {
		return sym
	}
	ref := doc.Symbols.ReferenceAt(offset)
	if ref == nil {
		return nil
	}
	scope, _, err := s.Scope(uri)
	if err != nil {
		return nil
	}
	if result := resolver.Resolve(ref, scope); result.Status == resolver.Resolved {
		return result.Symbol
	}
	return nil
}

// Usage is a reference together with its resolution.
type Usage struct {
	URI       string
	Reference *symbols.Reference
	Result    resolver.Result
}

// References returns every reference of every loaded IDL document, ordered
// by document and position.
func (s *Snapshot) References() []Usage {
	var usages []Usage
	for _, doc := range s.Documents() {
		if doc.Tree == nil {
			continue
		}
		results, err := s.Resolve(doc.URI)
		if err != nil {
			continue
		}
		for ii := range doc.Symbols.References {
			usages = append(usages, Usage{
				URI:       doc.URI,
				Reference: &doc.Symbols.References[ii],
				Result:    results[ii],
			})
		}
	}
	return usages
}

// Usages returns the references that resolve to sym.
func (s *Snapshot) Usages(sym *symbols.Symbol) []Usage {
	var usages []Usage
	for _, usage := range s.References() {
		if usage.Result.Status == resolver.Resolved && SameSymbol(usage.Result.Symbol, sym) {
			usages = append(usages, usage)
		}
	}
	return usages
}

// SameSymbol reports whether two symbols are the same declaration of the
// same document generation.
func SameSymbol(a, b *symbols.Symbol) bool {
	if a == b {
		return true
	}
	return a != nil && b != nil &&
		a.URI == b.URI &&
		a.Name == b.Name &&
		a.Kind == b.Kind &&
		a.Generation == b.Generation &&
		a.NameSpan == b.NameSpan
}

// Analysis is the outcome of validating one document generation.
type Analysis struct {
	Document    *Document
	Diagnostics []*syntax.Diagnostic
}

// Analyze validates the current generation of a document. It fails with
// ErrStale when the document is edited, or analyzed again, before the pass
// completes.
func (p *Project) Analyze(ctx context.Context, uri string) (*Analysis, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	run := &analysisRun{cancel: cancel}

	p.mu.Lock()
	p.cancelRunningLocked(uri)
	p.running[uri] = run
	snapshot := p.snapshotLocked()
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		if p.running[uri] == run {
			delete(p.running, uri)
		}
		p.mu.Unlock()
	}()

	if p.testHookAnalyze != nil {
		p.testHookAnalyze(uri)
	}
	diags, err := snapshot.Diagnostics(ctx, uri)
	if err != nil {
		return nil, err
	}

	p.mu.RLock()
	current := p.docs[uri]
	p.mu.RUnlock()
	if current != snapshot.docs[uri] {
		return nil, ErrStale
	}
	return &Analysis{
		Document:    current,
		Diagnostics: diags,
	}, nil
}
