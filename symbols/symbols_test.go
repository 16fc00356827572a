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

package symbols_test

import (
	"strings"
	"testing"

	"github.com/opwvhk/intellij-plugin-avro-idl/internal/testutil"
	"github.com/opwvhk/intellij-plugin-avro-idl/symbols"
	"github.com/opwvhk/intellij-plugin-avro-idl/syntax"
)

func index(src string) *symbols.Table {
	return symbols.Index("file:///test.avdl", syntax.Parse(src))
}

func symbolNames(syms []*symbols.Symbol) []string {
	var names []string
	for _, sym := range syms {
		names = append(names, sym.Kind.String()+" "+sym.Name)
	}
	return names
}

func TestIndexProtocol(t *testing.T) {
	t.Parallel()

	src := `@namespace("org.example")
protocol Shop {
  import idl "common.avdl";
  import protocol "remote.avpr";
  import schema "money.avsc";

  record Item { Money price; org.other.Tag tag; }
  @namespace("org.errors") error NotFound { string message; }
  enum Color { RED, GREEN } = GREEN;
  fixed com.acme.Hash(16);

  Item lookup(string name) throws NotFound;
}`
	table := index(src)
	testutil.ExpectEq(t, 0, len(table.Diagnostics))
	testutil.ExpectEq(t, "org.example", table.Namespace)
	testutil.ExpectEq(t, "org.example.Shop", table.Protocol.Name)
	testutil.ExpectSliceEq(t, []string{
		"protocol org.example.Shop",
		"record org.example.Item",
		"error org.errors.NotFound",
		"enum org.example.Color",
		"fixed com.acme.Hash",
	}, symbolNames(table.Symbols))

	color := table.Lookup("org.example.Color")[0]
	testutil.ExpectSliceEq(t, []string{"RED", "GREEN"}, color.EnumSymbols)
	testutil.ExpectEq(t, "GREEN", color.EnumDefault)

	hash := table.Lookup("com.acme.Hash")[0]
	testutil.ExpectEq(t, "com.acme", hash.Namespace)
	testutil.ExpectEq(t, "Hash", src[hash.NameSpan.Start():hash.NameSpan.End()])
	testutil.ExpectEq(t, 1, len(table.LookupSimple("Hash")))

	var imports []string
	for _, imp := range table.Imports {
		imports = append(imports, imp.Kind.String()+" "+imp.Path)
	}
	testutil.ExpectSliceEq(t, []string{
		"idl common.avdl",
		"protocol remote.avpr",
		"schema money.avsc",
	}, imports)

	var refs []string
	for _, ref := range table.References {
		entry := ref.Name + " in " + ref.Namespace
		if ref.ErrorsOnly {
			entry += " (errors)"
		}
		refs = append(refs, entry)
	}
	testutil.ExpectSliceEq(t, []string{
		"Money in org.example",
		"org.other.Tag in org.example",
		"string in org.errors",
		"Item in org.example",
		"string in org.example",
		"NotFound in org.example (errors)",
	}, refs)

	tag := table.References[1]
	testutil.ExpectTrue(t, tag.Qualified())
	testutil.ExpectEq(t, "org.other.Tag", src[tag.Span.Start():tag.Span.End()])
	testutil.ExpectEq(t, "Tag", src[tag.NameSpan.Start():tag.NameSpan.End()])
}

func TestIndexSchemaMode(t *testing.T) {
	t.Parallel()

	table := index("namespace org.example;\nschema Foo;\nrecord Foo { `Bar` bar; }\n")
	testutil.ExpectEq(t, "org.example", table.Namespace)
	testutil.ExpectEq(t, (*symbols.Symbol)(nil), table.Protocol)
	testutil.ExpectSliceEq(t, []string{"record org.example.Foo"}, symbolNames(table.Symbols))
	testutil.ExpectEq(t, 2, len(table.References))
	testutil.ExpectEq(t, "Bar", table.References[1].Name)
}

func TestIndexDuplicates(t *testing.T) {
	t.Parallel()

	src := "record Foo { int bar; } record Foo { string baz; }"
	table := index(src)
	testutil.ExpectEq(t, 2, len(table.Diagnostics))
	testutil.ExpectEq(t, 2, len(table.Lookup("Foo")))

	first := strings.Index(src, "Foo")
	second := strings.LastIndex(src, "Foo")
	testutil.ExpectNoDiff(t, `7+3 "Foo" E3000: Duplicate declaration of Foo
31+3 "Foo" E3000: Duplicate declaration of Foo
`, strings.ReplaceAll(testutil.FormatDiagnostics(src, table.Diagnostics), "file:///test.avdl:", ""))
	testutil.ExpectEq(t, uint32(second), table.Diagnostics[0].Related()[0].Span.Start())
	testutil.ExpectEq(t, uint32(first), table.Diagnostics[1].Related()[0].Span.Start())
}

func TestIndexAt(t *testing.T) {
	t.Parallel()

	src := "record Foo { Bar bar; } record Bar {}"
	table := index(src)
	sym := table.SymbolAt(uint32(strings.LastIndex(src, "Bar")))
	testutil.ExpectEq(t, "Bar", sym.Name)
	ref := table.ReferenceAt(uint32(strings.Index(src, "Bar") + 1))
	testutil.ExpectEq(t, "Bar", ref.Name)
	testutil.ExpectEq(t, (*symbols.Reference)(nil), table.ReferenceAt(0))
}

func TestIndexJSONProtocol(t *testing.T) {
	t.Parallel()

	src := `{
  "protocol": "Remote",
  "namespace": "org.remote",
  "types": [
    {"type": "record", "name": "Call", "fields": [
      {"name": "status", "type": {"type": "enum", "name": "Status", "symbols": ["OK", "FAILED"], "default": "OK"}},
      {"name": "hash", "type": ["null", {"type": "fixed", "name": "org.hash.MD5", "size": 16}]},
      {"name": "tags", "type": {"type": "array", "items": {"type": "record", "name": "Tag", "namespace": "org.tags", "fields": []}}}
    ]},
    {"type": "error", "name": "Failure", "fields": []}
  ],
  "messages": {}
}`
	table := symbols.IndexJSON("file:///remote.avpr", src, 3)
	testutil.ExpectEq(t, 0, len(table.Diagnostics))
	testutil.ExpectSliceEq(t, []string{
		"protocol org.remote.Remote",
		"record org.remote.Call",
		"enum org.remote.Status",
		"fixed org.hash.MD5",
		"record org.tags.Tag",
		"error org.remote.Failure",
	}, symbolNames(table.Symbols))

	status := table.Lookup("org.remote.Status")[0]
	testutil.ExpectTrue(t, status.FromJSON())
	testutil.ExpectEq(t, uint64(3), status.Generation)
	testutil.ExpectSliceEq(t, []string{"OK", "FAILED"}, status.EnumSymbols)
	testutil.ExpectEq(t, "OK", status.EnumDefault)
	testutil.ExpectEq(t, "Status", src[status.NameSpan.Start():status.NameSpan.End()])
}

func TestIndexJSONSchema(t *testing.T) {
	t.Parallel()

	src := `{"type": "record", "name": "Money", "namespace": "org.money", "fields": [
  {"name": "currency", "type": {"type": "enum", "name": "Currency", "symbols": ["EUR", "USD"]}},
  {"name": "rates", "type": {"type": "map", "values": {"type": "record", "name": "Rate", "fields": []}}}
]}`
	table := symbols.IndexJSON("file:///money.avsc", src, 1)
	testutil.ExpectSliceEq(t, []string{
		"record org.money.Money",
		"enum org.money.Currency",
		"record org.money.Rate",
	}, symbolNames(table.Symbols))
}

func TestIndexJSONInvalid(t *testing.T) {
	t.Parallel()

	table := symbols.IndexJSON("file:///broken.avsc", `{"type": "record",`, 1)
	testutil.ExpectDiagnosticCodes(t, []uint32{3002}, table.Diagnostics)
	testutil.ExpectEq(t, 0, len(table.Symbols))
}

func TestJSONString(t *testing.T) {
	t.Parallel()

	s, ok := symbols.JSONString(`"a\"bA"`)
	testutil.ExpectTrue(t, ok)
	testutil.ExpectEq(t, `a"bA`, s)
	_, ok = symbols.JSONString(`12`)
	testutil.ExpectFalse(t, ok)
}
