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

// Avro IDL grammar, as accepted by this parser:
//
//	document  = item* EOF
//	item      = import | "namespace" name ";" | "schema" type ";"
//	          | annotation* ( protocol | record | enum | fixed )
//	protocol  = "protocol" name "{" ( import | annotation* ( record | enum | fixed | message ) )* "}"
//	record    = ( "record" | "error" ) name "{" field* "}"
//	field     = type variable ( "," variable )* ";"
//	variable  = annotation* name ( "=" json )?
//	enum      = "enum" name "{" ( name ( "," name )* )? "}" ( "=" name ";" )?
//	fixed     = "fixed" name "(" INT ")" ";"
//	message   = ( type | "void" ) name "(" ( type variable ( "," type variable )* )? ")"
//	            ( "oneway" | "throws" name ( "," name )* )? ";"
//	import    = "import" ( "idl" | "protocol" | "schema" ) STRING ";"
//	type      = annotation* ( name | "null" | "array" "<" type ">" | "map" "<" type ">"
//	          | "union" "{" type ( "," type )* "}" | "decimal" "(" INT "," INT ")" ) "?"?
//	annotation = "@" name "(" json ")"

import (
	"math"
)

type ParseOption interface {
	apply(*ParseOptions)
}

type parseOption func(*ParseOptions)

func (f parseOption) apply(opts *ParseOptions) { f(opts) }

type ParseOptions struct {
	generation uint64
	maxSize    uint32
	arena      *Arena
}

// WithGeneration tags the nodes created by the parser.
func WithGeneration(generation uint64) ParseOption {
	return parseOption(func(opts *ParseOptions) {
		opts.generation = generation
	})
}

// WithMaxSize limits the size of the parsed source. Longer sources produce a
// tree holding a single error node.
func WithMaxSize(maxSize uint32) ParseOption {
	return parseOption(func(opts *ParseOptions) {
		opts.maxSize = maxSize
	})
}

// WithArena makes the parser allocate into an existing arena.
func WithArena(arena *Arena) ParseOption {
	return parseOption(func(opts *ParseOptions) {
		opts.arena = arena
	})
}

func NewParseOptions(opts ...ParseOption) *ParseOptions {
	parseOpts := &ParseOptions{
		generation: 1,
		maxSize:    MaxSourceLen,
	}
	for _, opt := range opts {
		opt.apply(parseOpts)
	}
	return parseOpts
}

func Parse(src string, opts ...ParseOption) *Tree {
	return NewParseOptions(opts...).Parse(src)
}

// Parse builds the syntax tree of src. It never fails: malformed input is
// represented by error nodes in the returned tree.
func (opts *ParseOptions) Parse(src string) *Tree {
	arena := opts.arena
	if arena == nil {
		arena = NewArena()
	}

	if uint64(len(src)) > uint64(opts.maxSize) || uint64(len(src)) > math.MaxUint32 {
		return tooLongTree(arena, src, opts.maxSize, opts.generation)
	}

	p := newParser(arena, src, 0, opts.generation)
	p.open(N_DOCUMENT)
	p.advance()
	for range p.loop {
		if p.at(T_EOF) {
			break
		}
		p.parseTopLevelItem()
	}
	for !p.at(T_EOF) {
		p.errorBump(errUnexpectedToken(p.tok.Kind, p.tok.Text))
	}
	p.flush()
	root := p.close()
	return newTree(arena, root, src, opts.generation)
}

// tooLongTree holds all of src in a single error leaf. Spans of such a tree
// are clamped to MaxSourceLen, but Unparse still returns src.
func tooLongTree(arena *Arena, src string, maxSize uint32, generation uint64) *Tree {
	diag := errSourceTooLong(len(src), uint64(maxSize))
	width := uint32(min(uint64(len(src)), math.MaxUint32))
	leaf := arena.addLeaf(T_ERROR, src, codeSourceTooLong)
	errNode := arena.addNode(nodeData{
		kind:     N_ERROR,
		flags:    flagHasError,
		name:     -1,
		width:    width,
		gen:      generation,
		children: []ChildRef{{IsLeaf: true, Index: leaf}},
		err:      &errorInfo{diag.Code(), diag.Message()},
	})
	root := arena.addNode(nodeData{
		kind:     N_DOCUMENT,
		flags:    flagHasError,
		name:     -1,
		width:    width,
		gen:      generation,
		children: []ChildRef{{Index: uint32(errNode)}},
	})
	return newTree(arena, root, src, generation)
}

type frame struct {
	kind     NodeKind
	name     int32
	err      *errorInfo
	children []ChildRef
}

type parser struct {
	arena  *Arena
	gen    uint64
	tokens *Tokens

	// Lookahead: the next significant token, and the trivia and lexical
	// error nodes read before it.
	tok     Token
	pending []ChildRef

	frames   []frame
	consumed uint32

	// Number of enclosing protocol and record bodies. A '}' found while
	// recovering inside a body belongs to that body.
	blocks int
}

func newParser(arena *Arena, src string, offset uint32, generation uint64) *parser {
	return &parser{
		arena:  arena,
		gen:    generation,
		tokens: NewTokensAt(src, offset),
	}
}

func (p *parser) loop(yield func(struct{}) bool) {
	for {
		consumed := p.consumed
		if !yield(struct{}{}) {
			return
		}
		if consumed == p.consumed {
			return
		}
	}
}

func (p *parser) advance() {
	for {
		p.tokens.Next(&p.tok)
		switch {
		case p.tok.Kind.IsTrivia():
			leaf := p.arena.addLeaf(p.tok.Kind, p.tok.Text, 0)
			p.pending = append(p.pending, ChildRef{IsLeaf: true, Index: leaf})
		case p.tok.Kind == T_ERROR:
			diag := p.tok.Err()
			leaf := p.arena.addLeaf(T_ERROR, p.tok.Text, p.tok.errCode)
			node := p.arena.addNode(nodeData{
				kind:     N_ERROR,
				flags:    flagHasError,
				name:     -1,
				width:    p.tok.Len(),
				gen:      p.gen,
				children: []ChildRef{{IsLeaf: true, Index: leaf}},
				err:      &errorInfo{diag.Code(), diag.Message()},
			})
			p.pending = append(p.pending, ChildRef{Index: uint32(node)})
		default:
			return
		}
	}
}

func (p *parser) top() *frame {
	return &p.frames[len(p.frames)-1]
}

func (p *parser) flush() {
	if len(p.pending) == 0 {
		return
	}
	top := p.top()
	top.children = append(top.children, p.pending...)
	p.pending = p.pending[:0]
}

func (p *parser) open(kind NodeKind) {
	if len(p.frames) > 0 {
		p.flush()
	}
	p.frames = append(p.frames, frame{
		kind: kind,
		name: -1,
	})
}

// wrapLast moves the most recently closed child node into a new frame.
func (p *parser) wrapLast(kind NodeKind) {
	top := p.top()
	last := top.children[len(top.children)-1]
	top.children = top.children[:len(top.children)-1]
	p.frames = append(p.frames, frame{
		kind:     kind,
		name:     -1,
		children: []ChildRef{last},
	})
}

func (p *parser) setKind(kind NodeKind) {
	p.top().kind = kind
}

func (p *parser) setError(err *errorInfo) {
	top := p.top()
	top.kind = N_ERROR
	top.err = err
}

func (p *parser) close() NodeID {
	f := p.frames[len(p.frames)-1]
	p.frames = p.frames[:len(p.frames)-1]

	var width uint32
	var flags nodeFlags
	for _, child := range f.children {
		width += p.arena.childWidth(child)
		flags |= p.arena.childFlags(child)
	}
	if f.kind == N_ERROR {
		flags |= flagHasError
	}
	id := p.arena.addNode(nodeData{
		kind:     f.kind,
		flags:    flags,
		name:     f.name,
		width:    width,
		gen:      p.gen,
		children: f.children,
		err:      f.err,
	})
	if len(p.frames) > 0 {
		top := p.top()
		top.children = append(top.children, ChildRef{Index: uint32(id)})
	}
	return id
}

func (p *parser) bump() {
	p.flush()
	leaf := p.arena.addLeaf(p.tok.Kind, p.tok.Text, 0)
	top := p.top()
	top.children = append(top.children, ChildRef{IsLeaf: true, Index: leaf})
	p.consumed++
	p.advance()
}

// bumpName consumes the current token as the name of the open node.
func (p *parser) bumpName() {
	p.flush()
	top := p.top()
	top.name = int32(len(top.children))
	p.bump()
}

func (p *parser) at(kind TokenKind) bool {
	return p.tok.Kind == kind
}

func (p *parser) atKeyword(keyword string) bool {
	return p.tok.IsKeyword(keyword)
}

func (p *parser) atName() bool {
	return p.tok.Kind == T_IDENT || p.tok.Kind == T_KEYWORD
}

func (p *parser) atDeclKeyword() bool {
	if p.tok.Kind != T_KEYWORD {
		return false
	}
	switch p.tok.Text {
	case "protocol", "namespace", "schema", "import", "record", "error", "enum", "fixed":
		return true
	}
	return false
}

// errorHere inserts an empty error node before the current token.
func (p *parser) errorHere(err *errorInfo) {
	p.open(N_ERROR)
	p.top().err = err
	p.close()
}

// errorBump wraps the current token in an error node.
func (p *parser) errorBump(err *errorInfo) {
	p.open(N_ERROR)
	p.top().err = err
	p.bump()
	p.close()
}

func (p *parser) expect(kind TokenKind, want string) bool {
	if p.tok.Kind == kind {
		p.bump()
		return true
	}
	p.errorHere(errExpectedToken(want, p.tok.Kind, p.tok.Text))
	return false
}

func (p *parser) name() bool {
	if p.atName() {
		p.bumpName()
		return true
	}
	p.errorHere(errExpectedIdent(p.tok.Kind, p.tok.Text))
	return false
}

// skipStatement skips the rest of a malformed statement. It stops after a ';'
// or a balanced '{ ... }' group, and before a '}' closing the enclosing body.
// Once it has consumed anything, it also stops before a token that starts a
// new declaration. Skipped tokens are wrapped in an error node carrying err;
// with a nil err, nothing is recorded when there is nothing to skip.
func (p *parser) skipStatement(err *errorInfo) {
	if err == nil && p.atStatementEnd(0) {
		return
	}
	p.open(N_ERROR)
	p.top().err = err
	var skipped int
	for !p.atStatementEnd(skipped) {
		switch p.tok.Kind {
		case T_SEMI:
			p.bump()
			p.close()
			return
		case T_OPEN_CURL:
			if p.skipGroup() {
				p.close()
				return
			}
		case T_OPEN_PAREN, T_OPEN_SQUARE, T_LT:
			p.skipGroup()
		default:
			p.bump()
		}
		skipped++
	}
	p.close()
}

func (p *parser) atStatementEnd(skipped int) bool {
	switch {
	case p.at(T_EOF):
		return true
	case p.at(T_CLOSE_CURL):
		return p.blocks > 0
	case p.at(T_AT), p.atDeclKeyword():
		return skipped > 0
	}
	return false
}

// skipGroup consumes a bracketed group, including nested groups. It stops
// early before a '}' that does not match an open '{'. The result reports
// whether the group was closed.
func (p *parser) skipGroup() bool {
	var open []TokenKind
	for !p.at(T_EOF) {
		switch p.tok.Kind {
		case T_OPEN_CURL:
			open = append(open, T_CLOSE_CURL)
		case T_OPEN_PAREN:
			open = append(open, T_CLOSE_PAREN)
		case T_OPEN_SQUARE:
			open = append(open, T_CLOSE_SQUARE)
		case T_LT:
			open = append(open, T_GT)
		case T_CLOSE_CURL, T_CLOSE_PAREN, T_CLOSE_SQUARE, T_GT:
			if p.tok.Kind == open[len(open)-1] {
				open = open[:len(open)-1]
			} else if p.tok.Kind == T_CLOSE_CURL {
				return false
			}
		}
		p.bump()
		if len(open) == 0 {
			return true
		}
	}
	return false
}

func (p *parser) parseTopLevelItem() {
	switch {
	case p.atKeyword("import"):
		p.parseImport()
	case p.atKeyword("namespace"):
		p.parseNamespace()
	case p.atKeyword("schema"):
		p.parseSchema()
	case p.at(T_AT), p.atDeclKeyword():
		p.open(N_INVALID)
		p.annotations()
		switch {
		case p.atKeyword("protocol"):
			p.setKind(N_PROTOCOL_DECL)
			p.parseProtocolBody()
		case p.atKeyword("record"), p.atKeyword("error"), p.atKeyword("enum"), p.atKeyword("fixed"):
			p.parseNamedType()
		default:
			p.setError(nil)
			p.errorHere(errDanglingAnnotation(p.tok.Kind, p.tok.Text))
			p.skipStatement(nil)
		}
		p.close()
	default:
		p.skipStatement(errExpectedDeclaration(p.tok.Kind, p.tok.Text))
	}
}

func (p *parser) parseProtocolItem() {
	if p.atKeyword("import") {
		p.parseImport()
		return
	}
	if !p.at(T_AT) && !p.atTypeStart() && !p.atKeyword("void") &&
		!p.atKeyword("record") && !p.atKeyword("error") &&
		!p.atKeyword("enum") && !p.atKeyword("fixed") {
		p.skipStatement(errExpectedMessage(p.tok.Kind, p.tok.Text))
		return
	}

	p.open(N_INVALID)
	p.annotations()
	switch {
	case p.atKeyword("record"), p.atKeyword("error"), p.atKeyword("enum"), p.atKeyword("fixed"):
		p.parseNamedType()
	case p.atTypeStart(), p.atKeyword("void"):
		p.setKind(N_MESSAGE_DECL)
		p.parseMessage()
	default:
		p.setError(nil)
		p.errorHere(errDanglingAnnotation(p.tok.Kind, p.tok.Text))
		p.skipStatement(nil)
	}
	p.close()
}

func (p *parser) parseImport() {
	p.open(N_IMPORT_STMT)
	p.bump()
	ok := true
	if p.atKeyword("idl") || p.atKeyword("protocol") || p.atKeyword("schema") {
		p.bump()
	} else {
		p.errorHere(errExpectedImportKind(p.tok.Kind, p.tok.Text))
		ok = p.at(T_STRING_LIT)
	}
	if ok {
		if p.at(T_STRING_LIT) {
			p.bumpName()
			ok = p.expect(T_SEMI, ";")
		} else {
			p.errorHere(errExpectedStringLit(p.tok.Kind, p.tok.Text))
			ok = false
		}
	}
	if !ok {
		p.skipStatement(nil)
	}
	p.close()
}

func (p *parser) parseNamespace() {
	p.open(N_NAMESPACE_DECL)
	p.bump()
	if !p.name() || !p.expect(T_SEMI, ";") {
		p.skipStatement(nil)
	}
	p.close()
}

func (p *parser) parseSchema() {
	p.open(N_SCHEMA_DECL)
	p.bump()
	if !p.parseType() || !p.expect(T_SEMI, ";") {
		p.skipStatement(nil)
	}
	p.close()
}

// parseProtocolBody continues an open frame at the "protocol" keyword.
func (p *parser) parseProtocolBody() {
	p.bump()
	p.name()
	if !p.expect(T_OPEN_CURL, "{") {
		p.skipStatement(nil)
		return
	}
	p.blocks++
	for range p.loop {
		if p.at(T_CLOSE_CURL) || p.at(T_EOF) {
			break
		}
		p.parseProtocolItem()
	}
	p.blocks--
	p.expect(T_CLOSE_CURL, "}")
}

// parseNamedType continues an open frame at a record, error, enum, or fixed
// keyword.
func (p *parser) parseNamedType() {
	switch p.tok.Text {
	case "record":
		p.setKind(N_RECORD_DECL)
		p.parseRecordBody()
	case "error":
		p.setKind(N_ERROR_DECL)
		p.parseRecordBody()
	case "enum":
		p.setKind(N_ENUM_DECL)
		p.parseEnumBody()
	case "fixed":
		p.setKind(N_FIXED_DECL)
		p.parseFixedBody()
	}
}

func (p *parser) parseRecordBody() {
	p.bump()
	p.name()
	if !p.expect(T_OPEN_CURL, "{") {
		p.skipStatement(nil)
		return
	}
	p.blocks++
	for range p.loop {
		if p.at(T_CLOSE_CURL) || p.at(T_EOF) {
			break
		}
		p.parseField()
	}
	p.blocks--
	p.expect(T_CLOSE_CURL, "}")
}

func (p *parser) parseField() {
	p.open(N_FIELD_DECL)
	ok := p.parseType()
	for ok {
		ok = p.parseVariable()
		if !ok || !p.at(T_COMMA) {
			break
		}
		p.bump()
	}
	if ok {
		ok = p.expect(T_SEMI, ";")
	}
	if !ok {
		p.skipStatement(nil)
	}
	p.close()
}

func (p *parser) parseVariable() bool {
	p.open(N_VARIABLE)
	p.annotations()
	ok := p.name()
	if ok && p.at(T_EQ) {
		p.bump()
		ok = p.parseJSON()
	}
	p.close()
	return ok
}

func (p *parser) parseEnumBody() {
	p.bump()
	p.name()
	if !p.expect(T_OPEN_CURL, "{") {
		p.skipStatement(nil)
		return
	}
	for range p.loop {
		if p.at(T_CLOSE_CURL) || p.at(T_EOF) || p.atDeclKeyword() && !p.atEnumSymbol() {
			break
		}
		if p.atName() {
			p.open(N_ENUM_SYMBOL)
			p.bumpName()
			p.close()
		} else {
			p.errorBump(errExpectedEnumSymbol(p.tok.Kind, p.tok.Text))
			continue
		}
		if p.at(T_COMMA) {
			p.bump()
		} else if !p.at(T_CLOSE_CURL) {
			p.errorHere(errExpectedToken(",", p.tok.Kind, p.tok.Text))
		}
	}
	if !p.expect(T_CLOSE_CURL, "}") {
		return
	}
	if p.at(T_EQ) {
		p.open(N_ENUM_DEFAULT)
		p.bump()
		if !p.name() || !p.expect(T_SEMI, ";") {
			p.skipStatement(nil)
		}
		p.close()
	}
}

// atEnumSymbol reports whether a declaration keyword inside an enum body is
// more likely a symbol than the start of the next declaration.
func (p *parser) atEnumSymbol() bool {
	top := p.top()
	if len(top.children) == 0 {
		return false
	}
	last := top.children[len(top.children)-1]
	return last.IsLeaf && p.arena.leaves[last.Index].kind == T_COMMA
}

func (p *parser) parseFixedBody() {
	p.bump()
	p.name()
	ok := p.expect(T_OPEN_PAREN, "(")
	if ok {
		if p.at(T_INT_LIT) {
			p.bump()
		} else {
			p.errorHere(errExpectedIntLit(p.tok.Kind, p.tok.Text))
			ok = false
		}
	}
	ok = ok && p.expect(T_CLOSE_PAREN, ")") && p.expect(T_SEMI, ";")
	if !ok {
		p.skipStatement(nil)
	}
}

// parseMessage continues an open message frame at its result type.
func (p *parser) parseMessage() {
	ok := true
	if p.atKeyword("void") {
		p.open(N_VOID_TYPE)
		p.bump()
		p.close()
	} else {
		ok = p.parseType()
	}
	ok = ok && p.name() && p.expect(T_OPEN_PAREN, "(")
	if ok {
		for range p.loop {
			if p.at(T_CLOSE_PAREN) || p.at(T_EOF) {
				break
			}
			if ok = p.parseFormalParam(); !ok {
				break
			}
			if !p.at(T_COMMA) {
				break
			}
			p.bump()
		}
		ok = ok && p.expect(T_CLOSE_PAREN, ")")
	}
	if ok {
		switch {
		case p.atKeyword("oneway"):
			p.bump()
		case p.atKeyword("throws"):
			ok = p.parseThrows()
		}
	}
	ok = ok && p.expect(T_SEMI, ";")
	if !ok {
		p.skipStatement(nil)
	}
}

func (p *parser) parseFormalParam() bool {
	p.open(N_FORMAL_PARAM)
	ok := p.parseType() && p.parseVariable()
	p.close()
	return ok
}

func (p *parser) parseThrows() bool {
	p.open(N_THROWS_CLAUSE)
	p.bump()
	ok := true
	for {
		if !p.at(T_IDENT) {
			p.errorHere(errExpectedIdent(p.tok.Kind, p.tok.Text))
			ok = false
			break
		}
		p.open(N_TYPE_REF)
		p.bumpName()
		p.close()
		if !p.at(T_COMMA) {
			break
		}
		p.bump()
	}
	p.close()
	return ok
}

func (p *parser) atTypeStart() bool {
	switch p.tok.Kind {
	case T_AT, T_IDENT:
		return true
	case T_KEYWORD:
		switch p.tok.Text {
		case "array", "map", "union", "decimal", "null":
			return true
		}
	}
	return false
}

func (p *parser) parseType() bool {
	if !p.atTypeStart() {
		p.errorHere(errExpectedType(p.tok.Kind, p.tok.Text))
		return false
	}

	p.open(N_INVALID)
	p.annotations()
	ok := true
	switch {
	case p.atKeyword("array"), p.atKeyword("map"):
		if p.atKeyword("array") {
			p.setKind(N_ARRAY_TYPE)
		} else {
			p.setKind(N_MAP_TYPE)
		}
		p.bump()
		ok = p.expect(T_LT, "<") && p.parseType() && p.expect(T_GT, ">")
	case p.atKeyword("union"):
		p.setKind(N_UNION_TYPE)
		ok = p.parseUnionBody()
	case p.atKeyword("decimal"):
		p.setKind(N_DECIMAL_TYPE)
		p.bump()
		ok = p.expect(T_OPEN_PAREN, "(") &&
			p.intLit() &&
			p.expect(T_COMMA, ",") &&
			p.intLit() &&
			p.expect(T_CLOSE_PAREN, ")")
	case p.at(T_IDENT), p.atKeyword("null"):
		p.setKind(N_TYPE_REF)
		p.bumpName()
	default:
		p.setError(errExpectedType(p.tok.Kind, p.tok.Text))
		ok = false
	}
	p.close()

	if ok && p.at(T_QUESTION) {
		p.wrapLast(N_NULLABLE_TYPE)
		p.bump()
		p.close()
	}
	return ok
}

func (p *parser) parseUnionBody() bool {
	p.bump()
	if !p.expect(T_OPEN_CURL, "{") {
		return false
	}
	for range p.loop {
		if p.at(T_CLOSE_CURL) || p.at(T_EOF) {
			break
		}
		if !p.parseType() {
			p.skipListItem()
		}
		if p.at(T_COMMA) {
			p.bump()
		} else if !p.at(T_CLOSE_CURL) {
			p.errorHere(errExpectedToken(",", p.tok.Kind, p.tok.Text))
			break
		}
	}
	return p.expect(T_CLOSE_CURL, "}")
}

// skipListItem consumes tokens up to the next ',' or closing bracket of a
// comma separated list.
func (p *parser) skipListItem() {
	switch p.tok.Kind {
	case T_COMMA, T_CLOSE_CURL, T_CLOSE_SQUARE, T_CLOSE_PAREN, T_SEMI, T_EOF:
		return
	}
	p.open(N_ERROR)
	for range p.loop {
		switch p.tok.Kind {
		case T_COMMA, T_CLOSE_CURL, T_CLOSE_SQUARE, T_CLOSE_PAREN, T_SEMI, T_EOF:
		case T_OPEN_CURL, T_OPEN_PAREN, T_OPEN_SQUARE, T_LT:
			p.skipGroup()
			continue
		default:
			p.bump()
			continue
		}
		break
	}
	p.close()
}

func (p *parser) intLit() bool {
	if p.at(T_INT_LIT) {
		p.bump()
		return true
	}
	p.errorHere(errExpectedIntLit(p.tok.Kind, p.tok.Text))
	return false
}

func (p *parser) annotations() {
	for p.at(T_AT) {
		p.open(N_ANNOTATION)
		p.bump()
		_ = p.name() &&
			p.expect(T_OPEN_PAREN, "(") &&
			p.parseJSON() &&
			p.expect(T_CLOSE_PAREN, ")")
		p.close()
	}
}

func (p *parser) parseJSON() bool {
	switch p.tok.Kind {
	case T_OPEN_CURL:
		p.open(N_JSON_OBJECT)
		p.bump()
		for range p.loop {
			if p.at(T_CLOSE_CURL) || p.at(T_EOF) {
				break
			}
			p.open(N_JSON_MEMBER)
			ok := true
			if p.at(T_STRING_LIT) {
				p.bumpName()
				ok = p.expect(T_COLON, ":") && p.parseJSON()
			} else {
				p.errorHere(errExpectedStringLit(p.tok.Kind, p.tok.Text))
				ok = false
			}
			p.close()
			if !ok {
				p.skipListItem()
			}
			if !p.at(T_COMMA) {
				break
			}
			p.bump()
		}
		ok := p.expect(T_CLOSE_CURL, "}")
		p.close()
		return ok
	case T_OPEN_SQUARE:
		p.open(N_JSON_ARRAY)
		p.bump()
		for range p.loop {
			if p.at(T_CLOSE_SQUARE) || p.at(T_EOF) {
				break
			}
			if !p.parseJSON() {
				p.skipListItem()
			}
			if !p.at(T_COMMA) {
				break
			}
			p.bump()
		}
		ok := p.expect(T_CLOSE_SQUARE, "]")
		p.close()
		return ok
	case T_STRING_LIT, T_INT_LIT, T_FLOAT_LIT, T_BOOL_LIT:
		p.open(N_JSON_LITERAL)
		p.bump()
		p.close()
		return true
	case T_KEYWORD:
		if p.tok.Text == "null" {
			p.open(N_JSON_LITERAL)
			p.bump()
			p.close()
			return true
		}
	}
	p.errorHere(errExpectedJSONValue(p.tok.Kind, p.tok.Text))
	return false
}
