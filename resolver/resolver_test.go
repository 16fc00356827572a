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

package resolver_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opwvhk/intellij-plugin-avro-idl/resolver"
	"github.com/opwvhk/intellij-plugin-avro-idl/symbols"
	"github.com/opwvhk/intellij-plugin-avro-idl/syntax"
)

func table(t *testing.T, uri, src string) *symbols.Table {
	t.Helper()
	tree := syntax.Parse(src)
	require.Empty(t, tree.Diagnostics())
	return symbols.Index(uri, tree)
}

func refNamed(t *testing.T, table *symbols.Table, name string) *symbols.Reference {
	t.Helper()
	for ii := range table.References {
		if table.References[ii].Name == name {
			return &table.References[ii]
		}
	}
	t.Fatalf("no reference to %q", name)
	return nil
}

func TestResolve(t *testing.T) {
	t.Parallel()

	local := table(t, "file:///main.avdl", `@namespace("org.main")
protocol Main {
  record Local { int a; }
  record User {
    Local local;
    org.lib.Shared shared;
    Shared short;
    Clash clash;
    Missing missing;
    timestamp_ms created;
    null nothing;
  }
}`)
	lib := table(t, "file:///lib.avdl", `@namespace("org.lib") protocol Lib { record Shared {} record Clash {} }`)
	other := table(t, "file:///other.avdl", `@namespace("org.other") protocol Other { record Clash {} }`)
	scope := &resolver.Scope{Local: local, Imports: []*symbols.Table{lib, other}}

	result := resolver.Resolve(refNamed(t, local, "Local"), scope)
	require.Equal(t, resolver.Resolved, result.Status)
	assert.Equal(t, "org.main.Local", result.Symbol.Name)

	result = resolver.Resolve(refNamed(t, local, "org.lib.Shared"), scope)
	require.Equal(t, resolver.Resolved, result.Status)
	assert.Equal(t, "file:///lib.avdl", result.Symbol.URI)

	result = resolver.Resolve(refNamed(t, local, "Shared"), scope)
	require.Equal(t, resolver.Resolved, result.Status)
	assert.Equal(t, "org.lib.Shared", result.Symbol.Name)

	result = resolver.Resolve(refNamed(t, local, "Clash"), scope)
	require.Equal(t, resolver.Ambiguous, result.Status)
	require.Len(t, result.Candidates, 2)
	assert.Equal(t, "org.lib.Clash", result.Candidates[0].Name)
	assert.Equal(t, "org.other.Clash", result.Candidates[1].Name)

	result = resolver.Resolve(refNamed(t, local, "Missing"), scope)
	assert.Equal(t, resolver.Unresolved, result.Status)

	result = resolver.Resolve(refNamed(t, local, "timestamp_ms"), scope)
	assert.Equal(t, resolver.Primitive, result.Status)
	assert.Equal(t, "long", resolver.Underlying(result.Primitive))

	result = resolver.Resolve(refNamed(t, local, "null"), scope)
	assert.Equal(t, resolver.Primitive, result.Status)
}

func TestResolveLocalBeforeImports(t *testing.T) {
	t.Parallel()

	local := table(t, "file:///main.avdl", "namespace org.x; record Foo {} record Bar { Foo foo; }")
	lib := table(t, "file:///lib.avdl", "namespace org.y; record Foo {}")
	scope := &resolver.Scope{Local: local, Imports: []*symbols.Table{lib}}

	result := resolver.Resolve(refNamed(t, local, "Foo"), scope)
	require.Equal(t, resolver.Resolved, result.Status)
	assert.Equal(t, "org.x.Foo", result.Symbol.Name)
}

func TestResolveLocalDuplicateIsAmbiguous(t *testing.T) {
	t.Parallel()

	tree := syntax.Parse("record Foo {} record Foo {} record Bar { Foo foo; }")
	local := symbols.Index("file:///main.avdl", tree)
	scope := &resolver.Scope{Local: local}

	result := resolver.Resolve(refNamed(t, local, "Foo"), scope)
	assert.Equal(t, resolver.Ambiguous, result.Status)
	assert.Len(t, result.Candidates, 2)
}

func TestResolveDeterministic(t *testing.T) {
	t.Parallel()

	local := table(t, "file:///main.avdl", "record A { B b; C c; D d; }")
	lib := table(t, "file:///lib.avdl", "namespace p; record B {} record C {}")
	other := table(t, "file:///other.avdl", "namespace q; record C {}")
	scope := &resolver.Scope{Local: local, Imports: []*symbols.Table{lib, other}}

	first := resolver.ResolveAll(scope)
	second := resolver.ResolveAll(scope)
	require.Len(t, first, 3)
	assert.Equal(t, first, second)
	assert.Equal(t, []resolver.Status{resolver.Resolved, resolver.Ambiguous, resolver.Unresolved},
		[]resolver.Status{first[0].Status, first[1].Status, first[2].Status})
}

func TestCache(t *testing.T) {
	t.Parallel()

	local := table(t, "file:///main.avdl", "record A { B b; }")
	lib := table(t, "file:///lib.avdl", "record B {}")
	cache := resolver.NewCache()

	scope := &resolver.Scope{Local: local, Imports: []*symbols.Table{lib}}
	results := cache.Resolve(scope)
	assert.Equal(t, resolver.Resolved, results[0].Status)
	cache.Resolve(scope)
	cache.Resolve(scope)
	hits, misses := cache.Stats()
	assert.Equal(t, uint64(2), hits)
	assert.Equal(t, uint64(1), misses)

	// A new generation of an import is never served from the cache.
	libTree := syntax.Parse("record C {}", syntax.WithGeneration(2))
	scope = &resolver.Scope{Local: local, Imports: []*symbols.Table{symbols.Index("file:///lib.avdl", libTree)}}
	results = cache.Resolve(scope)
	assert.Equal(t, resolver.Unresolved, results[0].Status)
	_, misses = cache.Stats()
	assert.Equal(t, uint64(2), misses)

	cache.Invalidate("file:///main.avdl")
	cache.Resolve(scope)
	_, misses = cache.Stats()
	assert.Equal(t, uint64(3), misses)
}

func TestPrimitives(t *testing.T) {
	t.Parallel()

	assert.True(t, resolver.IsPrimitive("string"))
	assert.True(t, resolver.IsPrimitive("uuid"))
	assert.False(t, resolver.IsPrimitive("Foo"))
	assert.Contains(t, resolver.Primitives(), "bytes")
}
