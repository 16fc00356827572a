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

package symbols

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/opwvhk/intellij-plugin-avro-idl/syntax"
)

// IndexJSON collects the named types of a JSON protocol (.avpr) or schema
// (.avsc). A protocol contributes the types it declares; a schema contributes
// every named type it contains. Unreadable input yields an empty table with a
// diagnostic.
func IndexJSON(uri string, text string, generation uint64) *Table {
	t := newTable(uri, generation)
	if !gjson.Valid(text) {
		t.Diagnostics = append(t.Diagnostics, errImportUnreadable(uri, "invalid JSON"))
		return t
	}
	root := gjson.Parse(text)
	if root.IsObject() && root.Get("protocol").Exists() {
		namespace := root.Get("namespace").String()
		t.Namespace = namespace
		name := root.Get("protocol")
		t.add(&Symbol{
			Name:       qualify(namespace, name.String()),
			Namespace:  namespace,
			Kind:       KindProtocol,
			URI:        uri,
			Generation: generation,
			Span:       syntax.NewSpan(0, uint32(len(text))),
			NameSpan:   jsonStringSpan(text, name),
		})
		root.Get("types").ForEach(func(_, value gjson.Result) bool {
			t.walkJSONSchema(text, value, namespace)
			return true
		})
	} else {
		t.walkJSONSchema(text, root, "")
	}
	t.reportDuplicates()
	return t
}

func (t *Table) walkJSONSchema(text string, value gjson.Result, namespace string) {
	switch {
	case value.IsArray():
		value.ForEach(func(_, branch gjson.Result) bool {
			t.walkJSONSchema(text, branch, namespace)
			return true
		})
		return
	case !value.IsObject():
		return
	}

	typ := value.Get("type")
	if typ.IsObject() || typ.IsArray() {
		t.walkJSONSchema(text, typ, namespace)
		return
	}

	var kind Kind
	switch typ.String() {
	case "record":
		kind = KindRecord
	case "error":
		kind = KindError
	case "enum":
		kind = KindEnum
	case "fixed":
		kind = KindFixed
	case "array":
		t.walkJSONSchema(text, value.Get("items"), namespace)
		return
	case "map":
		t.walkJSONSchema(text, value.Get("values"), namespace)
		return
	default:
		return
	}

	name := value.Get("name")
	if name.Type != gjson.String || name.String() == "" {
		return
	}
	simple := name.String()
	ns := namespace
	if dot := strings.LastIndexByte(simple, '.'); dot >= 0 {
		ns = simple[:dot]
	} else if declared := value.Get("namespace"); declared.Exists() {
		ns = declared.String()
	}
	sym := &Symbol{
		Name:       qualify(ns, simple),
		Namespace:  ns,
		Kind:       kind,
		URI:        t.URI,
		Generation: t.Generation,
		Span:       syntax.NewSpan(jsonOffset(text, value), uint32(len(value.Raw))),
		NameSpan:   jsonStringSpan(text, name),
	}
	if kind == KindEnum {
		value.Get("symbols").ForEach(func(_, symbol gjson.Result) bool {
			sym.EnumSymbols = append(sym.EnumSymbols, symbol.String())
			return true
		})
		sym.EnumDefault = value.Get("default").String()
	}
	t.add(sym)

	if kind == KindRecord || kind == KindError {
		value.Get("fields").ForEach(func(_, field gjson.Result) bool {
			t.walkJSONSchema(text, field.Get("type"), ns)
			return true
		})
	}
}

// jsonOffset returns the offset of a value within text. Values whose index
// is unknown are located by their first occurrence.
func jsonOffset(text string, value gjson.Result) uint32 {
	end := value.Index + len(value.Raw)
	if value.Index > 0 && end <= len(text) && text[value.Index:end] == value.Raw {
		return uint32(value.Index)
	}
	if offset := strings.Index(text, value.Raw); offset >= 0 {
		return uint32(offset)
	}
	return 0
}

// jsonStringSpan returns the span of the contents of a JSON string value.
func jsonStringSpan(text string, value gjson.Result) syntax.Span {
	if len(value.Raw) < 2 {
		return syntax.NewSpan(0, 0)
	}
	return syntax.NewSpan(jsonOffset(text, value)+1, uint32(len(value.Raw)-2))
}
