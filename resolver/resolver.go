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

// Package resolver binds type references to the symbols visible from a
// document.
package resolver

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/opwvhk/intellij-plugin-avro-idl/symbols"
)

// Builtin type names, with the primitive type that logical types are encoded
// as.
var primitives = map[string]string{
	"null":               "null",
	"boolean":            "boolean",
	"int":                "int",
	"long":               "long",
	"float":              "float",
	"double":             "double",
	"bytes":              "bytes",
	"string":             "string",
	"date":               "int",
	"time_ms":            "int",
	"timestamp_ms":       "long",
	"local_timestamp_ms": "long",
	"uuid":               "string",
}

func IsPrimitive(name string) bool {
	_, ok := primitives[name]
	return ok
}

// Underlying returns the primitive type a builtin type is encoded as.
func Underlying(name string) string {
	return primitives[name]
}

// Primitives returns the builtin type names in a stable order.
func Primitives() []string {
	names := make([]string, 0, len(primitives))
	for name := range primitives {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

type Status uint8

const (
	Unresolved Status = iota
	Primitive
	Resolved
	Ambiguous
)

func (s Status) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Primitive:
		return "primitive"
	case Resolved:
		return "resolved"
	case Ambiguous:
		return "ambiguous"
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

type Result struct {
	Status Status

	// Primitive is the builtin type name of a Primitive result.
	Primitive string

	// Symbol is the target of a Resolved result.
	Symbol *symbols.Symbol

	// Candidates lists the matches of an Ambiguous result.
	Candidates []*symbols.Symbol
}

// Scope is a consistent view of the symbols visible from one document: its
// own table and the tables of every document it imports, transitively.
type Scope struct {
	Local   *symbols.Table
	Imports []*symbols.Table

	// Pending is set while some import target is still being loaded.
	Pending bool
}

// Visible returns the local and imported tables, local first.
func (s *Scope) Visible() []*symbols.Table {
	tables := make([]*symbols.Table, 0, len(s.Imports)+1)
	tables = append(tables, s.Local)
	return append(tables, s.Imports...)
}

func (s *Scope) stamp() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "%s@%d", s.Local.URI, s.Local.Generation)
	for _, table := range s.Imports {
		fmt.Fprintf(&buf, ";%s@%d", table.URI, table.Generation)
	}
	if s.Pending {
		buf.WriteString(";pending")
	}
	return buf.String()
}

// Resolve looks up a reference: builtin types first, then exact full names
// declared locally, then in imports, and finally unqualified names by simple
// name. A lookup step matching several symbols yields an ambiguous result.
func Resolve(ref *symbols.Reference, scope *Scope) Result {
	if !ref.Qualified() && IsPrimitive(ref.Name) {
		return Result{Status: Primitive, Primitive: ref.Name}
	}

	var fullNames []string
	if ref.Qualified() {
		fullNames = []string{ref.Name}
	} else if ref.Namespace != "" {
		fullNames = []string{ref.Namespace + "." + ref.Name, ref.Name}
	} else {
		fullNames = []string{ref.Name}
	}

	for _, fullName := range fullNames {
		if result, ok := pick(scope.Local.Lookup(fullName)); ok {
			return result
		}
		var imported []*symbols.Symbol
		for _, table := range scope.Imports {
			imported = appendUnique(imported, table.Lookup(fullName))
		}
		if result, ok := pick(imported); ok {
			return result
		}
	}

	if !ref.Qualified() {
		if result, ok := pick(scope.Local.LookupSimple(ref.Name)); ok {
			return result
		}
		var imported []*symbols.Symbol
		for _, table := range scope.Imports {
			imported = appendUnique(imported, table.LookupSimple(ref.Name))
		}
		if result, ok := pick(imported); ok {
			return result
		}
	}
	return Result{Status: Unresolved}
}

func pick(matches []*symbols.Symbol) (Result, bool) {
	switch len(matches) {
	case 0:
		return Result{}, false
	case 1:
		return Result{Status: Resolved, Symbol: matches[0]}, true
	}
	return Result{Status: Ambiguous, Candidates: slices.Clone(matches)}, true
}

func appendUnique(dst []*symbols.Symbol, syms []*symbols.Symbol) []*symbols.Symbol {
	for _, sym := range syms {
		if !slices.Contains(dst, sym) {
			dst = append(dst, sym)
		}
	}
	return dst
}

// ResolveAll resolves every reference of the local table, in order.
func ResolveAll(scope *Scope) []Result {
	results := make([]Result, len(scope.Local.References))
	for ii := range scope.Local.References {
		results[ii] = Resolve(&scope.Local.References[ii], scope)
	}
	return results
}

// Cache keeps the resolved references of each document for as long as the
// generations of the document and everything it imports are unchanged.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	hits    uint64
	misses  uint64
}

type cacheEntry struct {
	stamp   string
	results []Result
}

func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
	}
}

// Resolve returns the resolved references of scope.Local, reusing a previous
// result only when it was computed from the same generations.
func (c *Cache) Resolve(scope *Scope) []Result {
	stamp := scope.stamp()
	uri := scope.Local.URI

	c.mu.Lock()
	if entry, ok := c.entries[uri]; ok && entry.stamp == stamp {
		c.hits++
		c.mu.Unlock()
		return entry.results
	}
	c.misses++
	c.mu.Unlock()

	results := ResolveAll(scope)

	c.mu.Lock()
	c.entries[uri] = cacheEntry{stamp, results}
	c.mu.Unlock()
	return results
}

// Invalidate drops the entry of a document.
func (c *Cache) Invalidate(uri string) {
	c.mu.Lock()
	delete(c.entries, uri)
	c.mu.Unlock()
}

// Stats returns the number of cache hits and misses.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
