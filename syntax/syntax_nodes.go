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
	"bytes"
	"fmt"
	"iter"
	"strings"
)

type Span struct {
	start, len uint32
}

func NewSpan(start, len uint32) Span {
	return Span{start, len}
}

func (s Span) Start() uint32 {
	return s.start
}

func (s Span) End() uint32 {
	return s.start + s.len
}

func (s Span) Len() uint32 {
	return s.len
}

// Contains reports whether offset lies within s. The end offset of a span is
// contained only by empty spans.
func (s Span) Contains(offset uint32) bool {
	return offset >= s.start && (offset < s.End() || (s.len == 0 && offset == s.start))
}

// Covers reports whether other lies entirely within s.
func (s Span) Covers(other Span) bool {
	return other.start >= s.start && other.End() <= s.End()
}

func (s Span) String() string {
	return fmt.Sprintf("%d+%d", s.start, s.len)
}

type NodeKind uint8

const (
	N_INVALID NodeKind = iota
	N_DOCUMENT
	N_ERROR

	N_PROTOCOL_DECL
	N_NAMESPACE_DECL
	N_SCHEMA_DECL
	N_IMPORT_STMT

	N_RECORD_DECL
	N_ERROR_DECL
	N_FIELD_DECL
	N_VARIABLE
	N_ENUM_DECL
	N_ENUM_SYMBOL
	N_ENUM_DEFAULT
	N_FIXED_DECL

	N_MESSAGE_DECL
	N_FORMAL_PARAM
	N_THROWS_CLAUSE
	N_ANNOTATION

	N_TYPE_REF
	N_VOID_TYPE
	N_NULLABLE_TYPE
	N_ARRAY_TYPE
	N_MAP_TYPE
	N_UNION_TYPE
	N_DECIMAL_TYPE

	N_JSON_OBJECT
	N_JSON_MEMBER
	N_JSON_ARRAY
	N_JSON_LITERAL

	NodeKindCount
)

var nodeKindNames = [...]string{
	N_INVALID:        "Invalid",
	N_DOCUMENT:       "Document",
	N_ERROR:          "Error",
	N_PROTOCOL_DECL:  "ProtocolDecl",
	N_NAMESPACE_DECL: "NamespaceDecl",
	N_SCHEMA_DECL:    "SchemaDecl",
	N_IMPORT_STMT:    "ImportStmt",
	N_RECORD_DECL:    "RecordDecl",
	N_ERROR_DECL:     "ErrorDecl",
	N_FIELD_DECL:     "FieldDecl",
	N_VARIABLE:       "Variable",
	N_ENUM_DECL:      "EnumDecl",
	N_ENUM_SYMBOL:    "EnumSymbol",
	N_ENUM_DEFAULT:   "EnumDefault",
	N_FIXED_DECL:     "FixedDecl",
	N_MESSAGE_DECL:   "MessageDecl",
	N_FORMAL_PARAM:   "FormalParam",
	N_THROWS_CLAUSE:  "ThrowsClause",
	N_ANNOTATION:     "Annotation",
	N_TYPE_REF:       "TypeRef",
	N_VOID_TYPE:      "VoidType",
	N_NULLABLE_TYPE:  "NullableType",
	N_ARRAY_TYPE:     "ArrayType",
	N_MAP_TYPE:       "MapType",
	N_UNION_TYPE:     "UnionType",
	N_DECIMAL_TYPE:   "DecimalType",
	N_JSON_OBJECT:    "JsonObject",
	N_JSON_MEMBER:    "JsonMember",
	N_JSON_ARRAY:     "JsonArray",
	N_JSON_LITERAL:   "JsonLiteral",
}

func (k NodeKind) String() string {
	if int(k) < len(nodeKindNames) && nodeKindNames[k] != "" {
		return nodeKindNames[k]
	}
	return fmt.Sprintf("NodeKind(%d)", uint8(k))
}

// IsNamedDecl reports whether nodes of this kind declare a named type.
func (k NodeKind) IsNamedDecl() bool {
	switch k {
	case N_PROTOCOL_DECL, N_RECORD_DECL, N_ERROR_DECL, N_ENUM_DECL, N_FIXED_DECL:
		return true
	}
	return false
}

// IsType reports whether nodes of this kind denote a schema type.
func (k NodeKind) IsType() bool {
	switch k {
	case N_TYPE_REF, N_VOID_TYPE, N_NULLABLE_TYPE, N_ARRAY_TYPE, N_MAP_TYPE,
		N_UNION_TYPE, N_DECIMAL_TYPE:
		return true
	}
	return false
}

// NodeID addresses a node within an Arena. Zero is never a valid node.
type NodeID uint32

const NoNode NodeID = 0

// ChildRef references either a leaf (token) or a node child.
type ChildRef struct {
	IsLeaf bool
	Index  uint32
}

type nodeFlags uint8

const (
	// The node is an error node, or has one among its descendants.
	flagHasError nodeFlags = 1 << iota
)

type nodeData struct {
	kind     NodeKind
	flags    nodeFlags
	name     int32
	width    uint32
	gen      uint64
	children []ChildRef
	err      *errorInfo
}

type leafData struct {
	kind    TokenKind
	text    string
	errCode uint32
}

// Arena stores the nodes and leaves of one or more generations of a
// document's tree. Nodes only ever reference nodes and leaves of the same
// arena, and are never modified once added, so a subtree can be shared by
// every Tree that reaches it.
//
// An Arena has a single writer; Trees built from it may be read concurrently.
type Arena struct {
	nodes  []nodeData
	leaves []leafData
}

func NewArena() *Arena {
	return &Arena{
		nodes: []nodeData{{}},
	}
}

func (a *Arena) Len() int {
	return len(a.nodes) + len(a.leaves) - 1
}

func (a *Arena) addLeaf(kind TokenKind, text string, errCode uint32) uint32 {
	a.leaves = append(a.leaves, leafData{
		kind:    kind,
		text:    text,
		errCode: errCode,
	})
	return uint32(len(a.leaves) - 1)
}

func (a *Arena) addNode(node nodeData) NodeID {
	a.nodes = append(a.nodes, node)
	return NodeID(len(a.nodes) - 1)
}

func (a *Arena) childWidth(ref ChildRef) uint32 {
	if ref.IsLeaf {
		return uint32(len(a.leaves[ref.Index].text))
	}
	return a.nodes[ref.Index].width
}

func (a *Arena) childFlags(ref ChildRef) nodeFlags {
	if ref.IsLeaf {
		if a.leaves[ref.Index].kind == T_ERROR {
			return flagHasError
		}
		return 0
	}
	return a.nodes[ref.Index].flags
}

// Tree is one immutable generation of a document's syntax tree. Parent links
// and absolute offsets are kept in side tables owned by the Tree, so nodes
// shared with other generations never point back into them.
type Tree struct {
	arena  *Arena
	nodes  []nodeData
	leaves []leafData
	root   NodeID
	gen    uint64
	text   string

	nodeStart  []uint32
	nodeParent []NodeID
	leafStart  []uint32
	leafParent []NodeID
	reachable  int
}

func newTree(arena *Arena, root NodeID, text string, gen uint64) *Tree {
	t := &Tree{
		arena:      arena,
		nodes:      arena.nodes,
		leaves:     arena.leaves,
		root:       root,
		gen:        gen,
		text:       text,
		nodeStart:  make([]uint32, len(arena.nodes)),
		nodeParent: make([]NodeID, len(arena.nodes)),
		leafStart:  make([]uint32, len(arena.leaves)),
		leafParent: make([]NodeID, len(arena.leaves)),
	}

	type item struct {
		id    NodeID
		start uint32
	}
	stack := []item{{root, 0}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		t.nodeStart[it.id] = it.start
		t.reachable++

		offset := it.start
		for _, child := range t.nodes[it.id].children {
			if child.IsLeaf {
				t.leafStart[child.Index] = offset
				t.leafParent[child.Index] = it.id
				offset += uint32(len(t.leaves[child.Index].text))
				continue
			}
			t.nodeParent[child.Index] = it.id
			stack = append(stack, item{NodeID(child.Index), offset})
			offset += t.nodes[child.Index].width
		}
	}
	return t
}

func (t *Tree) Text() string {
	return t.text
}

// Generation is the structural version of the document this tree belongs to.
func (t *Tree) Generation() uint64 {
	return t.gen
}

func (t *Tree) Arena() *Arena {
	return t.arena
}

func (t *Tree) Root() Node {
	return Node{t, t.root}
}

func (t *Tree) Node(id NodeID) Node {
	if id == NoNode || int(id) >= len(t.nodes) {
		return Node{}
	}
	return Node{t, id}
}

// Reachable returns the number of nodes in this generation of the tree.
func (t *Tree) Reachable() int {
	return t.reachable
}

// Diagnostics returns the lexical and grammatical errors recorded in the tree,
// in source order.
func (t *Tree) Diagnostics() []*Diagnostic {
	var diags []*Diagnostic
	var visit func(id NodeID)
	visit = func(id NodeID) {
		node := &t.nodes[id]
		if node.flags&flagHasError == 0 {
			return
		}
		if node.kind == N_ERROR && node.err != nil {
			diags = append(diags, NewDiagnostic(
				SeverityError,
				node.err.code,
				node.err.message,
				Span{t.nodeStart[id], node.width},
			))
		}
		for _, child := range node.children {
			if !child.IsLeaf {
				visit(NodeID(child.Index))
			}
		}
	}
	visit(t.root)
	return diags
}

// NodeAt returns the innermost node whose span contains offset.
func (t *Tree) NodeAt(offset uint32) Node {
	node := t.Root()
	for {
		next := Node{}
		for child := range node.ChildNodes() {
			span := child.Span()
			if span.len > 0 && offset >= span.start && offset < span.End() {
				next = child
				break
			}
		}
		if !next.IsValid() {
			return node
		}
		node = next
	}
}

// LeafAt returns the leaf containing offset. At the end of the text, the last
// leaf is returned.
func (t *Tree) LeafAt(offset uint32) Leaf {
	node := t.NodeAt(offset)
	var last Leaf
	for leaf := range node.AllLeaves() {
		span := leaf.Span()
		if offset >= span.start && offset < span.End() {
			return leaf
		}
		last = leaf
	}
	if offset >= uint32(len(t.text)) {
		return last
	}
	return Leaf{}
}

// Node is a cursor on an interior node of a Tree.
type Node struct {
	tree *Tree
	id   NodeID
}

func (n Node) IsValid() bool {
	return n.tree != nil && n.id != NoNode
}

func (n Node) ID() NodeID {
	return n.id
}

func (n Node) Tree() *Tree {
	return n.tree
}

func (n Node) data() *nodeData {
	return &n.tree.nodes[n.id]
}

func (n Node) Kind() NodeKind {
	if !n.IsValid() {
		return N_INVALID
	}
	return n.data().kind
}

func (n Node) Span() Span {
	return Span{
		start: n.tree.nodeStart[n.id],
		len:   n.data().width,
	}
}

// Generation is the generation in which this node was created.
func (n Node) Generation() uint64 {
	return n.data().gen
}

func (n Node) HasError() bool {
	return n.data().flags&flagHasError != 0
}

// Parent returns the parent of n, or an invalid Node for the root.
func (n Node) Parent() Node {
	if n.id == n.tree.root {
		return Node{}
	}
	return Node{n.tree, n.tree.nodeParent[n.id]}
}

func (n Node) Ancestors() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for p := n.Parent(); p.IsValid(); p = p.Parent() {
			if !yield(p) {
				return
			}
		}
	}
}

// Element is a child of a node: either a node or a leaf.
type Element struct {
	Node Node
	Leaf Leaf
}

func (e Element) IsLeaf() bool {
	return e.Leaf.IsValid()
}

func (n Node) Elements() iter.Seq[Element] {
	return func(yield func(Element) bool) {
		for _, child := range n.data().children {
			var elem Element
			if child.IsLeaf {
				elem.Leaf = Leaf{n.tree, child.Index}
			} else {
				elem.Node = Node{n.tree, NodeID(child.Index)}
			}
			if !yield(elem) {
				return
			}
		}
	}
}

func (n Node) ChildNodes() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for _, child := range n.data().children {
			if child.IsLeaf {
				continue
			}
			if !yield(Node{n.tree, NodeID(child.Index)}) {
				return
			}
		}
	}
}

// Leaves returns the direct leaf children of n.
func (n Node) Leaves() iter.Seq[Leaf] {
	return func(yield func(Leaf) bool) {
		for _, child := range n.data().children {
			if child.IsLeaf && !yield(Leaf{n.tree, child.Index}) {
				return
			}
		}
	}
}

// AllLeaves returns every leaf in the subtree of n, in source order.
func (n Node) AllLeaves() iter.Seq[Leaf] {
	return func(yield func(Leaf) bool) {
		n.allLeaves(yield)
	}
}

func (n Node) allLeaves(yield func(Leaf) bool) bool {
	for _, child := range n.data().children {
		if child.IsLeaf {
			if !yield(Leaf{n.tree, child.Index}) {
				return false
			}
			continue
		}
		if !(Node{n.tree, NodeID(child.Index)}).allLeaves(yield) {
			return false
		}
	}
	return true
}

// Child returns the first child node of the given kind.
func (n Node) Child(kind NodeKind) Node {
	for child := range n.ChildNodes() {
		if child.Kind() == kind {
			return child
		}
	}
	return Node{}
}

func (n Node) ChildrenOf(kind NodeKind) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for child := range n.ChildNodes() {
			if child.Kind() == kind && !yield(child) {
				return
			}
		}
	}
}

// TypeChild returns the first child node that denotes a type.
func (n Node) TypeChild() Node {
	for child := range n.ChildNodes() {
		if child.Kind().IsType() {
			return child
		}
	}
	return Node{}
}

// Name returns the leaf naming this node: the declared name of declarations,
// fields variables and enum symbols, or the referenced name of a TypeRef.
func (n Node) Name() Leaf {
	data := n.data()
	if data.name < 0 || int(data.name) >= len(data.children) {
		return Leaf{}
	}
	ref := data.children[data.name]
	if !ref.IsLeaf {
		return Leaf{}
	}
	return Leaf{n.tree, ref.Index}
}

// Keyword returns the first keyword leaf of n, or "".
func (n Node) Keyword() string {
	for leaf := range n.Leaves() {
		if leaf.Kind() == T_KEYWORD {
			return leaf.Text()
		}
	}
	return ""
}

// FirstLeaf returns the first direct leaf child of the given kind.
func (n Node) FirstLeaf(kind TokenKind) Leaf {
	for leaf := range n.Leaves() {
		if leaf.Kind() == kind {
			return leaf
		}
	}
	return Leaf{}
}

func (n Node) UnparseTo(buf *bytes.Buffer) {
	for leaf := range n.AllLeaves() {
		buf.WriteString(leaf.Text())
	}
}

func (n Node) Text() string {
	var buf bytes.Buffer
	n.UnparseTo(&buf)
	return buf.String()
}

// Err returns the diagnostic carried by an error node.
func (n Node) Err() *Diagnostic {
	data := n.data()
	if data.kind != N_ERROR || data.err == nil {
		return nil
	}
	return NewDiagnostic(SeverityError, data.err.code, data.err.message, n.Span())
}

func Unparse(node Node) string {
	return node.Text()
}

// Walk visits node and its descendants in pre-order. Children of a node are
// skipped when walkFn returns false for it.
func Walk(node Node, walkFn func(Node) bool) {
	if !node.IsValid() || !walkFn(node) {
		return
	}
	for child := range node.ChildNodes() {
		Walk(child, walkFn)
	}
}

// Leaf is a cursor on a token stored in a Tree.
type Leaf struct {
	tree *Tree
	idx  uint32
}

func (l Leaf) IsValid() bool {
	return l.tree != nil
}

func (l Leaf) data() *leafData {
	return &l.tree.leaves[l.idx]
}

func (l Leaf) Kind() TokenKind {
	return l.data().kind
}

func (l Leaf) Text() string {
	if !l.IsValid() {
		return ""
	}
	return l.data().text
}

func (l Leaf) Span() Span {
	return Span{
		start: l.tree.leafStart[l.idx],
		len:   uint32(len(l.data().text)),
	}
}

func (l Leaf) Parent() Node {
	return Node{l.tree, l.tree.leafParent[l.idx]}
}

func (l Leaf) Token() Token {
	data := l.data()
	return Token{
		Kind:    data.kind,
		Start:   l.tree.leafStart[l.idx],
		Text:    data.text,
		errCode: data.errCode,
	}
}

// IdentText returns the text of an identifier with any quoting backticks
// removed.
func IdentText(text string) string {
	if len(text) >= 2 && text[0] == '`' && text[len(text)-1] == '`' {
		return text[1 : len(text)-1]
	}
	return text
}

// SimpleNameSpan returns the span of the last dot-separated part of an
// identifier leaf, excluding quoting backticks.
func SimpleNameSpan(leaf Leaf) Span {
	span := leaf.Span()
	text := leaf.Text()
	if len(text) >= 2 && text[0] == '`' {
		return Span{span.start + 1, span.len - 2}
	}
	if dot := strings.LastIndexByte(text, '.'); dot >= 0 {
		return Span{span.start + uint32(dot) + 1, span.len - uint32(dot) - 1}
	}
	return span
}
