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

// Package project tracks the documents open in an editor together with the
// files they import, and keeps their analysis current as they are edited.
//
// Every edit publishes a new immutable Document. Readers take a Snapshot,
// a point in time view of all loaded documents, so they never observe an
// edit half applied. Import targets are loaded in the background: until a
// target is available, references it might declare are reported as pending
// instead of unresolved.
package project

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/opwvhk/intellij-plugin-avro-idl/resolver"
	"github.com/opwvhk/intellij-plugin-avro-idl/symbols"
	"github.com/opwvhk/intellij-plugin-avro-idl/syntax"
	"github.com/opwvhk/intellij-plugin-avro-idl/validator"
)

type Kind uint8

const (
	KindIDL Kind = iota + 1
	KindProtocol
	KindSchema
)

func (k Kind) String() string {
	switch k {
	case KindIDL:
		return "idl"
	case KindProtocol:
		return "protocol"
	case KindSchema:
		return "schema"
	}
	return "unknown"
}

// KindOf guesses the kind of a document from its file extension.
func KindOf(uri string) Kind {
	switch filepath.Ext(uri) {
	case ".avpr":
		return KindProtocol
	case ".avsc":
		return KindSchema
	}
	return KindIDL
}

func importedKind(uri string, kind symbols.ImportKind) Kind {
	switch kind {
	case symbols.ImportProtocol:
		return KindProtocol
	case symbols.ImportSchema:
		return KindSchema
	}
	return KindOf(uri)
}

// Document is one generation of a parsed file. It is never modified after
// it has been published.
type Document struct {
	URI        string
	Kind       Kind
	Text       string
	Generation uint64

	// Tree is nil for JSON documents.
	Tree    *syntax.Tree
	Symbols *symbols.Table
}

type ProjectOption interface {
	apply(*ProjectOptions)
}

type projectOption func(*ProjectOptions)

func (f projectOption) apply(opts *ProjectOptions) { f(opts) }

type ProjectOptions struct {
	logger   logrus.FieldLogger
	parse    []syntax.ParseOption
	validate []validator.ValidateOption
	maxLoads int64
}

func WithLogger(logger logrus.FieldLogger) ProjectOption {
	return projectOption(func(opts *ProjectOptions) {
		opts.logger = logger
	})
}

func WithMaxFileSize(maxSize uint32) ProjectOption {
	return projectOption(func(opts *ProjectOptions) {
		opts.parse = append(opts.parse, syntax.WithMaxSize(maxSize))
	})
}

func WithValidateOptions(validateOpts ...validator.ValidateOption) ProjectOption {
	return projectOption(func(opts *ProjectOptions) {
		opts.validate = append(opts.validate, validateOpts...)
	})
}

// WithMaxConcurrentLoads limits the number of imports read at the same time.
func WithMaxConcurrentLoads(limit int) ProjectOption {
	return projectOption(func(opts *ProjectOptions) {
		if limit < 1 {
			limit = 1
		}
		opts.maxLoads = int64(limit)
	})
}

func NewProjectOptions(opts ...ProjectOption) *ProjectOptions {
	projectOptions := &ProjectOptions{
		maxLoads: 8,
	}
	for _, opt := range opts {
		opt.apply(projectOptions)
	}
	if projectOptions.logger == nil {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		projectOptions.logger = logger
	}
	return projectOptions
}

// Project is the index of every document open in an editor session and
// every document they import, transitively.
type Project struct {
	opts     *ProjectOptions
	log      logrus.FieldLogger
	resolver ImportResolver
	cache    *resolver.Cache
	loads    singleflight.Group
	sem      *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	closed   bool
	version  uint64
	docs     map[string]*Document
	open     map[string]bool
	links    map[linkKey]*link
	writers  map[string]*sync.Mutex
	running  map[string]*analysisRun
	inflight int
	idle     chan struct{}

	testHookAnalyze func(uri string)
}

type linkKey struct {
	from string
	path string
	kind symbols.ImportKind
}

func keyOf(from string, imp symbols.Import) linkKey {
	return linkKey{from, imp.Path, imp.Kind}
}

func (k linkKey) String() string {
	return k.kind.String() + ":" + k.from + "\x00" + k.path
}

// link is the resolution state of one import statement.
type link struct {
	state validator.ImportState
	uri   string
	err   error
}

type analysisRun struct {
	cancel context.CancelCauseFunc
}

func New(importResolver ImportResolver, opts ...ProjectOption) *Project {
	return NewProjectOptions(opts...).New(importResolver)
}

func (opts *ProjectOptions) New(importResolver ImportResolver) *Project {
	ctx, cancel := context.WithCancel(context.Background())
	return &Project{
		opts:     opts,
		log:      opts.logger,
		resolver: importResolver,
		cache:    resolver.NewCache(),
		sem:      semaphore.NewWeighted(opts.maxLoads),
		ctx:      ctx,
		cancel:   cancel,
		docs:     make(map[string]*Document),
		open:     make(map[string]bool),
		links:    make(map[linkKey]*link),
		writers:  make(map[string]*sync.Mutex),
		running:  make(map[string]*analysisRun),
	}
}

// Open publishes the full text of an editor document. Opening a document
// that is already loaded replaces its text with a new generation.
func (p *Project) Open(uri string, text string) *Document {
	unlock := p.lockDocument(uri)
	defer unlock()

	p.mu.Lock()
	prev := p.docs[uri]
	p.cancelRunningLocked(uri)
	p.mu.Unlock()

	generation := uint64(1)
	kind := KindOf(uri)
	if prev != nil {
		generation = prev.Generation + 1
		kind = prev.Kind
	}
	doc := p.parseDocument(uri, kind, text, generation)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.open[uri] = true
	p.publishLocked(doc)
	p.log.WithFields(logrus.Fields{
		"uri":        uri,
		"generation": generation,
	}).Debug("Opened document")
	return doc
}

// Update applies an edit to an open document, reparsing only the smallest
// declaration that contains it when possible.
func (p *Project) Update(uri string, edit syntax.Edit) (*Document, error) {
	unlock := p.lockDocument(uri)
	defer unlock()

	p.mu.Lock()
	prev, ok := p.docs[uri]
	if ok {
		p.cancelRunningLocked(uri)
	}
	p.mu.Unlock()
	if !ok {
		return nil, fmtUnknown(uri)
	}

	var doc *Document
	if prev.Tree == nil {
		text, err := edit.Apply(prev.Text)
		if err != nil {
			return nil, err
		}
		doc = p.parseDocument(uri, prev.Kind, text, prev.Generation+1)
	} else {
		result, err := syntax.Reparse(prev.Tree, edit, p.opts.parse...)
		if err != nil {
			return nil, err
		}
		p.log.WithFields(logrus.Fields{
			"uri":       uri,
			"full":      result.Full,
			"kind":      result.Kind,
			"span":      result.Span,
			"compacted": result.Compacted,
		}).Debug("Reparsed document")
		doc = &Document{
			URI:        uri,
			Kind:       prev.Kind,
			Text:       result.Tree.Text(),
			Generation: result.Tree.Generation(),
			Tree:       result.Tree,
			Symbols:    symbols.Index(uri, result.Tree),
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.publishLocked(doc)
	return doc, nil
}

// CloseDocument marks a document closed. It stays loaded while another
// loaded document imports it.
func (p *Project) CloseDocument(uri string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.open, uri)
	p.cancelRunningLocked(uri)
	p.gcLocked()
	p.version++
}

// Close abandons pending analysis passes and waits for background import
// loads to finish.
func (p *Project) Close() {
	p.mu.Lock()
	p.closed = true
	p.cancel()
	for uri := range p.running {
		p.cancelRunningLocked(uri)
	}
	p.mu.Unlock()
	_ = p.WaitIdle(context.Background())
}

// WaitIdle blocks until no import is being loaded.
func (p *Project) WaitIdle(ctx context.Context) error {
	for {
		p.mu.RLock()
		if p.inflight == 0 {
			p.mu.RUnlock()
			return nil
		}
		idle := p.idle
		p.mu.RUnlock()
		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Refresh retries imports that were not found or could not be read.
func (p *Project) Refresh() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, l := range p.links {
		if l.state == validator.ImportNotFound || l.state == validator.ImportFailed {
			delete(p.links, key)
		}
	}
	for uri := range p.docs {
		p.scheduleImportsLocked(p.docs[uri])
	}
	p.version++
}

func (p *Project) lockDocument(uri string) func() {
	p.mu.Lock()
	writer, ok := p.writers[uri]
	if !ok {
		writer = &sync.Mutex{}
		p.writers[uri] = writer
	}
	p.mu.Unlock()
	writer.Lock()
	return writer.Unlock
}

func (p *Project) cancelRunningLocked(uri string) {
	if run, ok := p.running[uri]; ok {
		run.cancel(ErrStale)
		delete(p.running, uri)
		p.log.WithField("uri", uri).Debug("Abandoned analysis of edited document")
	}
}

func (p *Project) parseDocument(uri string, kind Kind, text string, generation uint64) *Document {
	doc := &Document{
		URI:        uri,
		Kind:       kind,
		Text:       text,
		Generation: generation,
	}
	if kind == KindIDL {
		parseOpts := append([]syntax.ParseOption{syntax.WithGeneration(generation)}, p.opts.parse...)
		doc.Tree = syntax.Parse(text, parseOpts...)
		doc.Symbols = symbols.Index(uri, doc.Tree)
	} else {
		doc.Symbols = symbols.IndexJSON(uri, text, generation)
	}
	return doc
}

func (p *Project) publishLocked(doc *Document) {
	p.docs[doc.URI] = doc
	p.cache.Invalidate(doc.URI)
	p.scheduleImportsLocked(doc)
	p.gcLocked()
	p.version++
}

func (p *Project) scheduleImportsLocked(doc *Document) {
	if p.closed {
		return
	}
	for _, imp := range doc.Symbols.Imports {
		key := keyOf(doc.URI, imp)
		if _, ok := p.links[key]; ok {
			continue
		}
		p.links[key] = &link{state: validator.ImportPending}
		if p.inflight == 0 {
			p.idle = make(chan struct{})
		}
		p.inflight++
		go p.load(key)
	}
}

func (p *Project) load(key linkKey) {
	defer p.loadDone()
	log := p.log.WithFields(logrus.Fields{
		"from": key.from,
		"path": key.path,
	})

	type loaded struct {
		uri  string
		text string
	}
	value, err, _ := p.loads.Do(key.String(), func() (any, error) {
		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			return nil, err
		}
		defer p.sem.Release(1)
		log.Debug("Loading import")
		uri, text, err := p.resolver.Load(p.ctx, key.from, key.path)
		return loaded{uri, text}, err
	})

	var doc *Document
	if err == nil {
		target := value.(loaded)
		p.mu.RLock()
		_, exists := p.docs[target.uri]
		p.mu.RUnlock()
		if !exists {
			doc = p.parseDocument(target.uri, importedKind(target.uri, key.kind), target.text, 1)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.links[key]
	if !ok || p.closed {
		log.Debug("Discarding import that is no longer needed")
		return
	}
	switch {
	case err == nil:
		l.state = validator.ImportLoaded
		l.uri = value.(loaded).uri
		if doc != nil {
			if _, exists := p.docs[doc.URI]; !exists {
				p.publishLocked(doc)
			}
		}
		log.WithField("uri", l.uri).Debug("Loaded import")
	case errors.Is(err, ErrImportNotFound):
		l.state = validator.ImportNotFound
		l.err = err
		log.Debug("Import not found")
	default:
		l.state = validator.ImportFailed
		l.err = err
		log.WithError(err).Warn("Cannot load import")
	}
	p.version++
}

func (p *Project) loadDone() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inflight--
	if p.inflight == 0 {
		close(p.idle)
	}
}

// gcLocked drops the documents that are neither open nor imported by an
// open document, and the import links of dropped or edited documents.
func (p *Project) gcLocked() {
	live := make(map[string]bool, len(p.docs))
	var queue []string
	for uri := range p.open {
		if _, ok := p.docs[uri]; ok {
			live[uri] = true
			queue = append(queue, uri)
		}
	}
	for len(queue) > 0 {
		uri := queue[0]
		queue = queue[1:]
		for _, imp := range p.docs[uri].Symbols.Imports {
			l, ok := p.links[keyOf(uri, imp)]
			if !ok || l.state != validator.ImportLoaded || live[l.uri] {
				continue
			}
			if _, loaded := p.docs[l.uri]; loaded {
				live[l.uri] = true
				queue = append(queue, l.uri)
			}
		}
	}

	for uri := range p.docs {
		if !live[uri] {
			delete(p.docs, uri)
			p.cache.Invalidate(uri)
			p.log.WithField("uri", uri).Debug("Unloaded document")
		}
	}
	for key := range p.links {
		doc, ok := p.docs[key.from]
		if !ok || !hasImport(doc, key) {
			delete(p.links, key)
		}
	}
}

func hasImport(doc *Document, key linkKey) bool {
	for _, imp := range doc.Symbols.Imports {
		if keyOf(doc.URI, imp) == key {
			return true
		}
	}
	return false
}
