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
	"fmt"
	"iter"
	"math"
	"unicode/utf8"
)

// MaxSourceLen is the largest source that is tokenized. A longer source is
// read as one T_ERROR token holding all of it, so that concatenated token
// text still equals the source.
const (
	MaxSourceLen = math.MaxUint32
)

// Token is a lexical token with its absolute position in the source it was
// read from.
type Token struct {
	Kind  TokenKind
	Start uint32
	Text  string

	errCode uint32
}

type TokenKind uint8

const (
	T_EOF TokenKind = iota

	T_SPACE
	T_NEWLINE
	T_COMMENT
	T_BLOCK_COMMENT
	T_DOC_COMMENT

	T_AT
	T_COLON
	T_COMMA
	T_SEMI
	T_DOT
	T_EQ
	T_QUESTION
	T_LT
	T_GT

	T_OPEN_CURL
	T_CLOSE_CURL
	T_OPEN_PAREN
	T_CLOSE_PAREN
	T_OPEN_SQUARE
	T_CLOSE_SQUARE

	T_INT_LIT
	T_FLOAT_LIT
	T_STRING_LIT
	T_BOOL_LIT

	T_KEYWORD
	T_IDENT

	T_ERROR
)

var tokenKindNames = [...]string{
	T_EOF:           "EOF",
	T_SPACE:         "SPACE",
	T_NEWLINE:       "NEWLINE",
	T_COMMENT:       "COMMENT",
	T_BLOCK_COMMENT: "BLOCK_COMMENT",
	T_DOC_COMMENT:   "DOC_COMMENT",
	T_AT:            "AT",
	T_COLON:         "COLON",
	T_COMMA:         "COMMA",
	T_SEMI:          "SEMI",
	T_DOT:           "DOT",
	T_EQ:            "EQ",
	T_QUESTION:      "QUESTION",
	T_LT:            "LT",
	T_GT:            "GT",
	T_OPEN_CURL:     "OPEN_CURL",
	T_CLOSE_CURL:    "CLOSE_CURL",
	T_OPEN_PAREN:    "OPEN_PAREN",
	T_CLOSE_PAREN:   "CLOSE_PAREN",
	T_OPEN_SQUARE:   "OPEN_SQUARE",
	T_CLOSE_SQUARE:  "CLOSE_SQUARE",
	T_INT_LIT:       "INT_LIT",
	T_FLOAT_LIT:     "FLOAT_LIT",
	T_STRING_LIT:    "STRING_LIT",
	T_BOOL_LIT:      "BOOL_LIT",
	T_KEYWORD:       "KEYWORD",
	T_IDENT:         "IDENT",
	T_ERROR:         "ERROR",
}

func (k TokenKind) String() string {
	if int(k) < len(tokenKindNames) {
		return tokenKindNames[k]
	}
	return fmt.Sprintf("TokenKind(%d)", uint8(k))
}

// IsTrivia reports whether tokens of this kind carry no grammatical meaning.
func (k TokenKind) IsTrivia() bool {
	switch k {
	case T_SPACE, T_NEWLINE, T_COMMENT, T_BLOCK_COMMENT, T_DOC_COMMENT:
		return true
	}
	return false
}

// Keywords of the Avro IDL. Primitive type names (int, string, ...) are
// identifiers; they are resolved as builtin types, not recognized here.
var keywords = map[string]struct{}{
	"protocol":  {},
	"namespace": {},
	"import":    {},
	"idl":       {},
	"schema":    {},
	"record":    {},
	"error":     {},
	"enum":      {},
	"fixed":     {},
	"array":     {},
	"map":       {},
	"union":     {},
	"void":      {},
	"oneway":    {},
	"throws":    {},
	"decimal":   {},
	"null":      {},
}

func IsKeyword(word string) bool {
	_, ok := keywords[word]
	return ok
}

func (t Token) Span() Span {
	return Span{
		start: t.Start,
		len:   t.Len(),
	}
}

func (t Token) Len() uint32 {
	return uint32(min(uint64(len(t.Text)), math.MaxUint32))
}

func (t Token) IsKeyword(keyword string) bool {
	return t.Kind == T_KEYWORD && t.Text == keyword
}

// Err returns the lexical diagnostic of a T_ERROR token.
func (t Token) Err() *Diagnostic {
	if t.Kind != T_ERROR {
		return nil
	}
	return lexDiagnostic(t.errCode, t.Text, t.Span())
}

type Tokens struct {
	src     string
	offset  uint32
	tooLong bool
}

func NewTokens(src string) *Tokens {
	return NewTokensAt(src, 0)
}

// NewTokensAt restarts tokenization at offset, which must be aligned to a
// token boundary of a previous tokenization of src.
func NewTokensAt(src string, offset uint32) *Tokens {
	return newTokens(src, offset, MaxSourceLen)
}

func newTokens(src string, offset uint32, maxLen uint64) *Tokens {
	if uint64(len(src)) > maxLen {
		return &Tokens{src: src, tooLong: true}
	}
	if offset > uint32(len(src)) {
		offset = uint32(len(src))
	}
	return &Tokens{
		src:    src,
		offset: offset,
	}
}

func (t *Tokens) Offset() uint32 {
	return t.offset
}

// Tokenize returns the tokens of src, not including the final T_EOF.
func Tokenize(src string) iter.Seq[Token] {
	return TokenizeFrom(src, 0)
}

func TokenizeFrom(src string, offset uint32) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		tokens := NewTokensAt(src, offset)
		var token Token
		for {
			tokens.Next(&token)
			if token.Kind == T_EOF || !yield(token) {
				return
			}
		}
	}
}

// Next reads one token. Malformed input produces T_ERROR tokens; the lexer
// never stops before the end of its input.
func (t *Tokens) Next(token *Token) {
	if t.tooLong {
		t.nextTooLong(token)
		return
	}
	rest := t.src[t.offset:]
	if len(rest) == 0 {
		*token = Token{
			Kind:  T_EOF,
			Start: t.offset,
		}
		return
	}

	c := rest[0]
	var kind TokenKind
	switch c {
	case ' ', '\t', '\f':
		t.emit(token, T_SPACE, t.spaceLen(rest), 0)
		return
	case '\n':
		t.emit(token, T_NEWLINE, 1, 0)
		return
	case '\r':
		if len(rest) > 1 && rest[1] == '\n' {
			t.emit(token, T_NEWLINE, 2, 0)
		} else {
			t.emit(token, T_NEWLINE, 1, 0)
		}
		return
	case '/':
		t.nextComment(token, rest)
		return
	case '"':
		t.nextStringLit(token, rest)
		return
	case '`':
		t.nextQuotedIdent(token, rest)
		return
	case '@':
		kind = T_AT
	case ':':
		kind = T_COLON
	case ',':
		kind = T_COMMA
	case ';':
		kind = T_SEMI
	case '.':
		kind = T_DOT
	case '=':
		kind = T_EQ
	case '?':
		kind = T_QUESTION
	case '<':
		kind = T_LT
	case '>':
		kind = T_GT
	case '{':
		kind = T_OPEN_CURL
	case '}':
		kind = T_CLOSE_CURL
	case '(':
		kind = T_OPEN_PAREN
	case ')':
		kind = T_CLOSE_PAREN
	case '[':
		kind = T_OPEN_SQUARE
	case ']':
		kind = T_CLOSE_SQUARE
	default:
		goto big
	}
	t.emit(token, kind, 1, 0)
	return

big:
	if isDigit(c) || c == '-' {
		t.nextNumLit(token, rest)
		return
	}
	if isIdentStart(c) {
		t.nextIdent(token, rest)
		return
	}

	r, size := utf8.DecodeRuneInString(rest)
	switch {
	case r == utf8.RuneError && size <= 1:
		t.emit(token, T_ERROR, 1, codeInvalidUtf8)
	case r == '\u00A0' || r == '\uFEFF':
		t.emit(token, T_SPACE, uint32(size), 0)
	case r < 0x20 || r == 0x7F:
		t.emit(token, T_ERROR, uint32(size), codeForbiddenControlCharacter)
	default:
		t.emit(token, T_ERROR, uint32(size), codeUnexpectedCharacter)
	}
}

func (t *Tokens) nextTooLong(token *Token) {
	if t.src == "" {
		*token = Token{Kind: T_EOF, Start: t.offset}
		return
	}
	*token = Token{
		Kind:    T_ERROR,
		Text:    t.src,
		errCode: codeSourceTooLong,
	}
	t.offset = uint32(min(uint64(len(t.src)), math.MaxUint32))
	t.src = ""
}

func (t *Tokens) emit(token *Token, kind TokenKind, tokenLen uint32, errCode uint32) {
	text := t.src[t.offset : t.offset+tokenLen]
	if kind == T_IDENT {
		if _, ok := keywords[text]; ok {
			kind = T_KEYWORD
		} else if text == "true" || text == "false" {
			kind = T_BOOL_LIT
		}
	}
	*token = Token{
		Kind:    kind,
		Start:   t.offset,
		Text:    text,
		errCode: errCode,
	}
	t.offset += tokenLen
}

func (t *Tokens) spaceLen(src string) uint32 {
	n := 0
	for n < len(src) {
		switch src[n] {
		case ' ', '\t', '\f':
			n++
			continue
		}
		break
	}
	return uint32(n)
}

func (t *Tokens) nextComment(token *Token, src string) {
	if len(src) < 2 || (src[1] != '/' && src[1] != '*') {
		t.emit(token, T_ERROR, 1, codeUnexpectedCharacter)
		return
	}

	if src[1] == '/' {
		n := len(src)
		for ii := 2; ii < len(src); ii++ {
			if src[ii] == '\n' || src[ii] == '\r' {
				n = ii
				break
			}
		}
		t.emit(token, T_COMMENT, uint32(n), 0)
		return
	}

	kind := T_BLOCK_COMMENT
	if len(src) > 4 && src[2] == '*' && src[3] != '/' {
		kind = T_DOC_COMMENT
	}
	for ii := 2; ii+1 < len(src); ii++ {
		if src[ii] == '*' && src[ii+1] == '/' {
			t.emit(token, kind, uint32(ii+2), 0)
			return
		}
	}
	t.emit(token, T_ERROR, uint32(len(src)), codeCommentUnterminated)
}

func (t *Tokens) nextStringLit(token *Token, src string) {
	escaped := false
	for ii := 1; ii < len(src); ii++ {
		c := src[ii]
		if c == '\n' || c == '\r' {
			t.emit(token, T_ERROR, uint32(ii), codeStringLitUnterminated)
			return
		}
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c == '"' {
			t.emit(token, T_STRING_LIT, uint32(ii+1), 0)
			return
		}
	}
	t.emit(token, T_ERROR, uint32(len(src)), codeStringLitUnterminated)
}

func (t *Tokens) nextQuotedIdent(token *Token, src string) {
	ii := 1
	for ii < len(src) && isIdentPart(src[ii]) {
		ii++
	}
	if ii > 1 && ii < len(src) && src[ii] == '`' && isIdentStart(src[1]) {
		*token = Token{
			Kind:  T_IDENT,
			Start: t.offset,
			Text:  src[:ii+1],
		}
		t.offset += uint32(ii + 1)
		return
	}
	t.emit(token, T_ERROR, uint32(ii), codeIdentInvalid)
}

func (t *Tokens) nextNumLit(token *Token, src string) {
	n := 0
	if src[0] == '-' {
		n++
		if len(src) > n && src[n] == 'I' && hasWord(src[n:], "Infinity") {
			t.emit(token, T_FLOAT_LIT, uint32(n+len("Infinity")), 0)
			return
		}
		if len(src) == n || !isDigit(src[n]) {
			t.emit(token, T_ERROR, 1, codeUnexpectedCharacter)
			return
		}
	}

	kind := T_INT_LIT
	if src[n] == '0' && len(src) > n+1 && (src[n+1] == 'x' || src[n+1] == 'X') {
		n += 2
		start := n
		for n < len(src) && isHexDigit(src[n]) {
			n++
		}
		if n == start {
			kind = T_ERROR
		}
	} else {
		for n < len(src) && isDigit(src[n]) {
			n++
		}
		if n+1 < len(src) && src[n] == '.' && isDigit(src[n+1]) {
			kind = T_FLOAT_LIT
			n++
			for n < len(src) && isDigit(src[n]) {
				n++
			}
		}
		if n < len(src) && (src[n] == 'e' || src[n] == 'E') {
			exp := n + 1
			if exp < len(src) && (src[exp] == '+' || src[exp] == '-') {
				exp++
			}
			if exp < len(src) && isDigit(src[exp]) {
				kind = T_FLOAT_LIT
				n = exp
				for n < len(src) && isDigit(src[n]) {
					n++
				}
			}
		}
		if n < len(src) && (src[n] == 'L' || src[n] == 'l' || src[n] == 'f' || src[n] == 'F' || src[n] == 'd' || src[n] == 'D') {
			if n+1 >= len(src) || !isIdentPart(src[n+1]) {
				n++
			}
		}
	}

	// Trailing identifier characters make the whole run invalid.
	for n < len(src) && isIdentPart(src[n]) {
		kind = T_ERROR
		n++
	}
	if kind == T_ERROR {
		t.emit(token, T_ERROR, uint32(n), codeNumberLitInvalid)
		return
	}
	t.emit(token, kind, uint32(n), 0)
}

// nextIdent reads an identifier. Dots and dashes join identifier parts, so
// "org.example.Foo" and "java-class" are single tokens.
func (t *Tokens) nextIdent(token *Token, src string) {
	n := 1
	for {
		for n < len(src) && isIdentPart(src[n]) {
			n++
		}
		if n+1 < len(src) && (src[n] == '.' || src[n] == '-') && isIdentStart(src[n+1]) {
			n++
			continue
		}
		break
	}
	t.emit(token, T_IDENT, uint32(n), 0)
}

func hasWord(src, word string) bool {
	if len(src) < len(word) || src[:len(word)] != word {
		return false
	}
	return len(src) == len(word) || !isIdentPart(src[len(word)])
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == '_'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
