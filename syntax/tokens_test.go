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

package syntax_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/opwvhk/intellij-plugin-avro-idl/internal/testutil"
	"github.com/opwvhk/intellij-plugin-avro-idl/syntax"
)

func tokenize(src string) []syntax.Token {
	return slices.Collect(syntax.Tokenize(src))
}

func TestTokens(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		src    string
		expect string
	}{
		{
			name: "record",
			src:  "record Foo { int bar; }",
			expect: `KEYWORD "record"
SPACE " "
IDENT "Foo"
SPACE " "
OPEN_CURL "{"
SPACE " "
IDENT "int"
SPACE " "
IDENT "bar"
SEMI ";"
SPACE " "
CLOSE_CURL "}"
`,
		},
		{
			name: "dotted and dashed identifiers",
			src:  "org.example.Foo java-class `error`",
			expect: "IDENT \"org.example.Foo\"\n" +
				"SPACE \" \"\n" +
				"IDENT \"java-class\"\n" +
				"SPACE \" \"\n" +
				"IDENT \"`error`\"\n",
		},
		{
			name: "numbers",
			src:  "1 -2 3.5 1e10 0x1F 12L -Infinity",
			expect: `INT_LIT "1"
SPACE " "
INT_LIT "-2"
SPACE " "
FLOAT_LIT "3.5"
SPACE " "
FLOAT_LIT "1e10"
SPACE " "
INT_LIT "0x1F"
SPACE " "
INT_LIT "12L"
SPACE " "
FLOAT_LIT "-Infinity"
`,
		},
		{
			name: "literals",
			src:  `true null "a\"b"`,
			expect: `BOOL_LIT "true"
SPACE " "
KEYWORD "null"
SPACE " "
STRING_LIT "\"a\\\"b\""
`,
		},
		{
			name: "comments",
			src:  "// c\r\n/** doc */ /* b */ /**/",
			expect: `COMMENT "// c"
NEWLINE "\r\n"
DOC_COMMENT "/** doc */"
SPACE " "
BLOCK_COMMENT "/* b */"
SPACE " "
BLOCK_COMMENT "/**/"
`,
		},
		{
			name: "punctuation",
			src:  "@:,;.=?<>{}()[]",
			expect: `AT "@"
COLON ":"
COMMA ","
SEMI ";"
DOT "."
EQ "="
QUESTION "?"
LT "<"
GT ">"
OPEN_CURL "{"
CLOSE_CURL "}"
OPEN_PAREN "("
CLOSE_PAREN ")"
OPEN_SQUARE "["
CLOSE_SQUARE "]"
`,
		},
		{
			name: "unterminated string",
			src:  "\"abc\nx",
			expect: `ERROR "\"abc"
NEWLINE "\n"
IDENT "x"
`,
		},
		{
			name: "unterminated comment",
			src:  "x /* open",
			expect: `IDENT "x"
SPACE " "
ERROR "/* open"
`,
		},
		{
			name: "invalid characters",
			src:  "# 12ab",
			expect: `ERROR "#"
SPACE " "
ERROR "12ab"
`,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			tokens := tokenize(test.src)
			testutil.ExpectNoDiff(t, test.expect, testutil.DumpTokens(tokens))
		})
	}
}

func TestTokenErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src  string
		code uint32
	}{
		{"#", 1002},
		{"\x01", 1003},
		{"\xff", 1001},
		{"\"abc", 1005},
		{"/* abc", 1006},
		{"12ab", 1007},
		{"`1a`", 1008},
	}
	for _, test := range tests {
		tokens := tokenize(test.src)
		if len(tokens) == 0 {
			t.Errorf("%q: no tokens", test.src)
			continue
		}
		token := tokens[0]
		testutil.ExpectEq(t, syntax.T_ERROR, token.Kind)
		if err := token.Err(); err == nil {
			t.Errorf("%q: expected diagnostic", test.src)
		} else {
			testutil.ExpectEq(t, test.code, err.Code())
			testutil.ExpectEq(t, uint32(0), err.Span().Start())
		}
	}
}

func TestTokensRoundTrip(t *testing.T) {
	t.Parallel()

	srcs := []string{
		"",
		"protocol P { record R { union { null, string } u = null; } }",
		"\"unterminated\n/* comment",
		"\x00\xfe\u00a0\ufeff record `x",
		"- -x 0x 1.e5 a..b a- -Infinityx",
	}
	for _, src := range srcs {
		var buf strings.Builder
		var end uint32
		for token := range syntax.Tokenize(src) {
			testutil.ExpectEq(t, end, token.Start)
			buf.WriteString(token.Text)
			end = token.Span().End()
		}
		testutil.ExpectEq(t, src, buf.String())
	}
}

func TestTokenizeFrom(t *testing.T) {
	t.Parallel()

	src := "record Foo { int bar; /* x */ string baz; }"
	all := tokenize(src)
	for ii, token := range all {
		rest := slices.Collect(syntax.TokenizeFrom(src, token.Start))
		testutil.ExpectSliceEq(t, all[ii:], rest)
	}
}

func TestKeywords(t *testing.T) {
	t.Parallel()

	for _, word := range []string{"protocol", "record", "enum", "fixed", "error", "union", "array", "map", "import", "schema", "idl"} {
		testutil.ExpectTrue(t, syntax.IsKeyword(word))
	}
	for _, word := range []string{"int", "string", "Foo", "true", "date"} {
		testutil.ExpectFalse(t, syntax.IsKeyword(word))
	}
}
