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
	"testing"
)

func TestTokensTooLong(t *testing.T) {
	t.Parallel()

	src := "record Foo {}"
	tokens := newTokens(src, 4, uint64(len(src)-1))
	var token Token
	tokens.Next(&token)
	if token.Kind != T_ERROR || token.Text != src || token.Start != 0 {
		t.Fatalf("expected one error token holding the source, got %v %q at %d", token.Kind, token.Text, token.Start)
	}
	if diag := token.Err(); diag.Code() != codeSourceTooLong {
		t.Errorf("expected diagnostic code %d, got %d", codeSourceTooLong, diag.Code())
	}
	tokens.Next(&token)
	if token.Kind != T_EOF || token.Start != uint32(len(src)) {
		t.Errorf("expected T_EOF at %d, got %v at %d", len(src), token.Kind, token.Start)
	}

	var text string
	for token := range Tokenize(src) {
		text += token.Text
	}
	if text != src {
		t.Errorf("expected tokens of %q to cover it, got %q", src, text)
	}
}
