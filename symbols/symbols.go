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

// Package symbols indexes the named types declared by a document, the
// documents it imports, and the type references it contains.
package symbols

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/opwvhk/intellij-plugin-avro-idl/syntax"
)

type Kind uint8

const (
	KindRecord Kind = iota + 1
	KindError
	KindEnum
	KindFixed
	KindProtocol
)

func (k Kind) String() string {
	switch k {
	case KindRecord:
		return "record"
	case KindError:
		return "error"
	case KindEnum:
		return "enum"
	case KindFixed:
		return "fixed"
	case KindProtocol:
		return "protocol"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Symbol is a named type or protocol declaration.
type Symbol struct {
	Name      string
	Namespace string
	Kind      Kind

	URI        string
	Generation uint64

	// Decl is the declaring node in the document's tree, or syntax.NoNode
	// for types read from JSON schemas and protocols.
	Decl syntax.NodeID
	Span syntax.Span

	// NameSpan covers the simple name within the declared name.
	NameSpan syntax.Span

	// Enum symbols and the enum's default symbol, if any.
	EnumSymbols []string
	EnumDefault string
}

func (s *Symbol) SimpleName() string {
	if dot := strings.LastIndexByte(s.Name, '.'); dot >= 0 {
		return s.Name[dot+1:]
	}
	return s.Name
}

// FromJSON reports whether the symbol was read from a JSON schema or
// protocol rather than declared in IDL.
func (s *Symbol) FromJSON() bool {
	return s.Decl == syntax.NoNode
}

func (s *Symbol) String() string {
	return fmt.Sprintf("%s %s", s.Kind, s.Name)
}

type ImportKind uint8

const (
	ImportIDL ImportKind = iota + 1
	ImportProtocol
	ImportSchema
)

func (k ImportKind) String() string {
	switch k {
	case ImportIDL:
		return "idl"
	case ImportProtocol:
		return "protocol"
	case ImportSchema:
		return "schema"
	}
	return fmt.Sprintf("ImportKind(%d)", uint8(k))
}

type Import struct {
	Kind     ImportKind
	Path     string
	Node     syntax.NodeID
	Span     syntax.Span
	PathSpan syntax.Span
}

// Reference is a usage of a type name.
type Reference struct {
	// Name as written, without quoting.
	Name string

	// Namespace that an unqualified Name is relative to.
	Namespace string

	Node     syntax.NodeID
	Span     syntax.Span
	NameSpan syntax.Span

	// ErrorsOnly is set for references in a throws clause.
	ErrorsOnly bool
}

func (r *Reference) Qualified() bool {
	return strings.IndexByte(r.Name, '.') >= 0
}

// Table holds the symbols, imports, and references of one document
// generation.
type Table struct {
	URI        string
	Generation uint64

	// Namespace is the default namespace of the document.
	Namespace string

	// Tree is nil for JSON documents.
	Tree *syntax.Tree

	Protocol   *Symbol
	Symbols    []*Symbol
	Imports    []Import
	References []Reference

	Diagnostics []*syntax.Diagnostic

	byName   map[string][]*Symbol
	bySimple map[string][]*Symbol
}

func newTable(uri string, generation uint64) *Table {
	return &Table{
		URI:        uri,
		Generation: generation,
		byName:     make(map[string][]*Symbol),
		bySimple:   make(map[string][]*Symbol),
	}
}

// Lookup returns the named types declared with the given full name.
func (t *Table) Lookup(fullName string) []*Symbol {
	return t.byName[fullName]
}

// LookupSimple returns the named types whose simple name is simpleName.
func (t *Table) LookupSimple(simpleName string) []*Symbol {
	return t.bySimple[simpleName]
}

// Types returns the declared named types, in declaration order.
func (t *Table) Types() []*Symbol {
	types := make([]*Symbol, 0, len(t.Symbols))
	for _, sym := range t.Symbols {
		if sym.Kind != KindProtocol {
			types = append(types, sym)
		}
	}
	return types
}

// SymbolAt returns the symbol whose name covers offset.
func (t *Table) SymbolAt(offset uint32) *Symbol {
	for _, sym := range t.Symbols {
		if !sym.FromJSON() && sym.NameSpan.Start() <= offset && offset <= sym.NameSpan.End() {
			return sym
		}
	}
	return nil
}

// ReferenceAt returns the reference covering offset.
func (t *Table) ReferenceAt(offset uint32) *Reference {
	for ii := range t.References {
		ref := &t.References[ii]
		if ref.Span.Start() <= offset && offset <= ref.Span.End() {
			return ref
		}
	}
	return nil
}

func (t *Table) add(sym *Symbol) {
	t.Symbols = append(t.Symbols, sym)
	if sym.Kind == KindProtocol {
		if t.Protocol == nil {
			t.Protocol = sym
		}
		return
	}
	t.byName[sym.Name] = append(t.byName[sym.Name], sym)
	simple := sym.SimpleName()
	t.bySimple[simple] = append(t.bySimple[simple], sym)
}

// reportDuplicates flags every declaration of a name declared more than once.
func (t *Table) reportDuplicates() {
	for _, sym := range t.Symbols {
		same := t.byName[sym.Name]
		if sym.Kind == KindProtocol || len(same) < 2 {
			continue
		}
		others := make([]*Symbol, 0, len(same)-1)
		for _, other := range same {
			if other != sym {
				others = append(others, other)
			}
		}
		t.Diagnostics = append(t.Diagnostics, errDuplicateDeclaration(sym, others))
	}
}

// Index collects the declarations, imports, and references of an IDL
// document.
func Index(uri string, tree *syntax.Tree) *Table {
	t := newTable(uri, tree.Generation())
	t.Tree = tree
	root := tree.Root()

	for child := range root.ChildrenOf(syntax.N_NAMESPACE_DECL) {
		if name := child.Name(); name.IsValid() {
			t.Namespace = syntax.IdentText(name.Text())
			break
		}
	}

	for child := range root.ChildNodes() {
		switch child.Kind() {
		case syntax.N_IMPORT_STMT:
			t.addImport(child)
		case syntax.N_PROTOCOL_DECL:
			t.indexProtocol(child)
		case syntax.N_RECORD_DECL, syntax.N_ERROR_DECL, syntax.N_ENUM_DECL, syntax.N_FIXED_DECL:
			t.declare(child, t.Namespace)
		}
	}
	t.collectReferences(root, t.Namespace, false)
	t.reportDuplicates()
	return t
}

func (t *Table) indexProtocol(node syntax.Node) {
	namespace := annotationString(node, "namespace")
	if t.Protocol == nil {
		t.Namespace = namespace
	}
	if name := node.Name(); name.IsValid() {
		simple := syntax.IdentText(name.Text())
		t.add(&Symbol{
			Name:       qualify(namespace, simple),
			Namespace:  namespace,
			Kind:       KindProtocol,
			URI:        t.URI,
			Generation: t.Generation,
			Decl:       node.ID(),
			Span:       node.Span(),
			NameSpan:   syntax.SimpleNameSpan(name),
		})
	}
	for child := range node.ChildNodes() {
		switch child.Kind() {
		case syntax.N_IMPORT_STMT:
			t.addImport(child)
		case syntax.N_RECORD_DECL, syntax.N_ERROR_DECL, syntax.N_ENUM_DECL, syntax.N_FIXED_DECL:
			t.declare(child, namespace)
		}
	}
}

func (t *Table) declare(node syntax.Node, defaultNamespace string) {
	name := node.Name()
	if !name.IsValid() {
		return
	}
	fullName, namespace := declaredName(node, defaultNamespace)
	sym := &Symbol{
		Name:       fullName,
		Namespace:  namespace,
		URI:        t.URI,
		Generation: t.Generation,
		Decl:       node.ID(),
		Span:       node.Span(),
		NameSpan:   syntax.SimpleNameSpan(name),
	}
	switch node.Kind() {
	case syntax.N_RECORD_DECL:
		sym.Kind = KindRecord
	case syntax.N_ERROR_DECL:
		sym.Kind = KindError
	case syntax.N_ENUM_DECL:
		sym.Kind = KindEnum
		for symbol := range node.ChildrenOf(syntax.N_ENUM_SYMBOL) {
			sym.EnumSymbols = append(sym.EnumSymbols, syntax.IdentText(symbol.Name().Text()))
		}
		if def := node.Child(syntax.N_ENUM_DEFAULT); def.IsValid() && def.Name().IsValid() {
			sym.EnumDefault = syntax.IdentText(def.Name().Text())
		}
	case syntax.N_FIXED_DECL:
		sym.Kind = KindFixed
	}
	t.add(sym)
}

// declaredName returns the full name and namespace of a named type
// declaration. A dotted name overrides a namespace annotation, which overrides
// the enclosing namespace.
func declaredName(node syntax.Node, defaultNamespace string) (string, string) {
	simple := syntax.IdentText(node.Name().Text())
	if dot := strings.LastIndexByte(simple, '.'); dot >= 0 {
		return simple, simple[:dot]
	}
	namespace := defaultNamespace
	if annotated, ok := findAnnotation(node, "namespace"); ok {
		namespace = annotated
	}
	return qualify(namespace, simple), namespace
}

func qualify(namespace, name string) string {
	if namespace == "" || strings.IndexByte(name, '.') >= 0 {
		return name
	}
	return namespace + "." + name
}

func (t *Table) addImport(node syntax.Node) {
	imp := Import{
		Node: node.ID(),
		Span: node.Span(),
	}
	// The first keyword is "import" itself.
	first := true
	for leaf := range node.Leaves() {
		if leaf.Kind() != syntax.T_KEYWORD {
			continue
		}
		if first {
			first = false
			continue
		}
		switch leaf.Text() {
		case "idl":
			imp.Kind = ImportIDL
		case "protocol":
			imp.Kind = ImportProtocol
		case "schema":
			imp.Kind = ImportSchema
		}
		break
	}
	if path := node.Name(); path.IsValid() {
		imp.PathSpan = path.Span()
		imp.Path, _ = JSONString(path.Text())
	}
	if imp.Kind == 0 || imp.Path == "" {
		return
	}
	t.Imports = append(t.Imports, imp)
}

func (t *Table) collectReferences(node syntax.Node, namespace string, errorsOnly bool) {
	for child := range node.ChildNodes() {
		switch child.Kind() {
		case syntax.N_PROTOCOL_DECL:
			t.collectReferences(child, annotationString(child, "namespace"), false)
		case syntax.N_RECORD_DECL, syntax.N_ERROR_DECL:
			if child.Name().IsValid() {
				_, recordNamespace := declaredName(child, namespace)
				t.collectReferences(child, recordNamespace, false)
			} else {
				t.collectReferences(child, namespace, false)
			}
		case syntax.N_THROWS_CLAUSE:
			t.collectReferences(child, namespace, true)
		case syntax.N_TYPE_REF:
			name := child.Name()
			t.References = append(t.References, Reference{
				Name:       syntax.IdentText(name.Text()),
				Namespace:  namespace,
				Node:       child.ID(),
				Span:       name.Span(),
				NameSpan:   syntax.SimpleNameSpan(name),
				ErrorsOnly: errorsOnly,
			})
		case syntax.N_ANNOTATION, syntax.N_JSON_OBJECT, syntax.N_JSON_ARRAY, syntax.N_JSON_LITERAL:
		default:
			t.collectReferences(child, namespace, errorsOnly)
		}
	}
}

func findAnnotation(node syntax.Node, name string) (string, bool) {
	for annotation := range node.ChildrenOf(syntax.N_ANNOTATION) {
		if annotation.Name().Text() != name {
			continue
		}
		value := annotation.Child(syntax.N_JSON_LITERAL)
		if !value.IsValid() {
			continue
		}
		if s, ok := JSONString(value.FirstLeaf(syntax.T_STRING_LIT).Text()); ok {
			return s, true
		}
	}
	return "", false
}

func annotationString(node syntax.Node, name string) string {
	value, _ := findAnnotation(node, name)
	return value
}

// JSONString decodes a JSON string literal.
func JSONString(literal string) (string, bool) {
	value := gjson.Parse(literal)
	if value.Type != gjson.String {
		return "", false
	}
	return value.String(), true
}
