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

package refactor_test

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opwvhk/intellij-plugin-avro-idl/project"
	"github.com/opwvhk/intellij-plugin-avro-idl/refactor"
	"github.com/opwvhk/intellij-plugin-avro-idl/symbols"
	"github.com/opwvhk/intellij-plugin-avro-idl/syntax"
)

const fooSrc = `record Foo { int x; }
record Unused { union { null, Unused } next; }
`

func setup(t *testing.T, open map[string]string) *project.Snapshot {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/proj/foo.avdl", []byte(fooSrc), 0o644))
	p := project.New(project.NewFSResolver(fs))
	t.Cleanup(p.Close)
	for uri, text := range open {
		p.Open(uri, text)
	}
	require.NoError(t, p.WaitIdle(context.Background()))
	return p.Snapshot()
}

func lookup(t *testing.T, snapshot *project.Snapshot, name string) *symbols.Symbol {
	t.Helper()
	found := snapshot.Lookup(name)
	require.Len(t, found, 1)
	return found[0]
}

func edits(edits []refactor.TextEdit) []string {
	var out []string
	for _, edit := range edits {
		out = append(out, edit.String())
	}
	return out
}

func TestRename(t *testing.T) {
	t.Parallel()

	snapshot := setup(t, map[string]string{
		"/proj/a.avdl": `import idl "foo.avdl"; record A { Foo foo; }`,
		"/proj/b.avdl": `import idl "foo.avdl"; record B { Foo foo; }`,
	})
	result, err := refactor.Rename(snapshot, lookup(t, snapshot, "Foo"), "Baz")
	require.NoError(t, err)
	assert.Equal(t, []string{
		`/proj/a.avdl:34+3 "Baz"`,
		`/proj/b.avdl:34+3 "Baz"`,
		`/proj/foo.avdl:7+3 "Baz"`,
	}, edits(result.Edits))
	assert.Empty(t, result.Warnings)

	var fooEdits []refactor.TextEdit
	for _, edit := range result.Edits {
		if edit.URI == "/proj/foo.avdl" {
			fooEdits = append(fooEdits, edit)
		}
	}
	renamed, err := refactor.ApplyEdits(fooSrc, fooEdits)
	require.NoError(t, err)
	assert.Equal(t, `record Baz { int x; }
record Unused { union { null, Unused } next; }
`, renamed)
}

func TestRenameQualified(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/proj/types.avdl", []byte(`namespace org.example; record Foo {}`), 0o644))
	p := project.New(project.NewFSResolver(fs))
	t.Cleanup(p.Close)
	src := "import idl \"types.avdl\"; record A { org.example.Foo foo; `Foo` quoted; }"
	p.Open("/proj/main.avdl", src)
	require.NoError(t, p.WaitIdle(context.Background()))
	snapshot := p.Snapshot()

	result, err := refactor.Rename(snapshot, lookup(t, snapshot, "org.example.Foo"), "Bar")
	require.NoError(t, err)

	var mainEdits []refactor.TextEdit
	for _, edit := range result.Edits {
		if edit.URI == "/proj/main.avdl" {
			mainEdits = append(mainEdits, edit)
		}
	}
	renamed, err := refactor.ApplyEdits(src, mainEdits)
	require.NoError(t, err)
	assert.Equal(t, "import idl \"types.avdl\"; record A { org.example.Bar foo; `Bar` quoted; }", renamed)
	assert.Empty(t, result.Warnings)
}

func TestRenameWarnings(t *testing.T) {
	t.Parallel()

	snapshot := setup(t, map[string]string{
		"/proj/a.avdl": `import idl "foo.avdl"; record A { Foo foo; }`,
		"/proj/c.avdl": `record C { Foo foo; }`,
	})
	result, err := refactor.Rename(snapshot, lookup(t, snapshot, "Foo"), "A")
	require.NoError(t, err)
	assert.Len(t, result.Edits, 2)

	require.Len(t, result.Warnings, 2)
	assert.Equal(t, uint32(4100), result.Warnings[0].Code())
	assert.Equal(t, "/proj/c.avdl", result.Warnings[0].URI())
	assert.Equal(t, "Reference Foo is unresolved and is not renamed", result.Warnings[0].Message())
	assert.Equal(t, uint32(4101), result.Warnings[1].Code())
	assert.Equal(t, "/proj/a.avdl", result.Warnings[1].URI())
	assert.Equal(t, syntax.SeverityWarning, result.Warnings[1].Severity())
}

func TestRenameInvalid(t *testing.T) {
	t.Parallel()

	snapshot := setup(t, map[string]string{
		"/proj/a.avdl": `import idl "foo.avdl"; record A { Foo foo; }`,
	})
	foo := lookup(t, snapshot, "Foo")
	for _, name := range []string{"", "a.b", "1x", "a b", "a-b", "`a`", "a\"", "record", "int", "timestamp_ms"} {
		_, err := refactor.Rename(snapshot, foo, name)
		assert.ErrorIs(t, err, refactor.ErrInvalidName, "name %q", name)
	}

	jsonSym := symbols.IndexJSON("/proj/x.avsc", `{"type": "fixed", "name": "X", "size": 1}`, 1).Types()[0]
	_, err := refactor.Rename(snapshot, jsonSym, "Y")
	assert.ErrorIs(t, err, refactor.ErrReadOnly)
	_, err = refactor.SafeDelete(snapshot, jsonSym)
	assert.ErrorIs(t, err, refactor.ErrReadOnly)
}

func TestSafeDeleteBlocked(t *testing.T) {
	t.Parallel()

	snapshot := setup(t, map[string]string{
		"/proj/a.avdl": `import idl "foo.avdl"; record A { Foo foo; }`,
	})
	result, err := refactor.SafeDelete(snapshot, lookup(t, snapshot, "Foo"))
	require.NoError(t, err)
	assert.True(t, result.Blocked)
	assert.Equal(t, []refactor.Location{{URI: "/proj/a.avdl", Span: syntax.NewSpan(34, 3)}}, result.Usages)
	assert.Empty(t, result.Edits)
}

func TestSafeDelete(t *testing.T) {
	t.Parallel()

	snapshot := setup(t, map[string]string{
		"/proj/a.avdl": `import idl "foo.avdl"; record A { Foo foo; }`,
	})
	// References from inside the declaration do not block its deletion.
	result, err := refactor.SafeDelete(snapshot, lookup(t, snapshot, "Unused"))
	require.NoError(t, err)
	assert.False(t, result.Blocked)
	require.Len(t, result.Edits, 1)

	deleted, err := refactor.ApplyEdits(fooSrc, result.Edits)
	require.NoError(t, err)
	assert.Equal(t, "record Foo { int x; }\n\n", deleted)
}

func TestSafeDeleteDocComment(t *testing.T) {
	t.Parallel()

	src := `protocol P {
  record Kept { int x; }

  /** Removed along with its record. */
  @namespace("org.old")
  record Gone { int y; }
}
`
	snapshot := setup(t, map[string]string{"/proj/p.avdl": src})
	result, err := refactor.SafeDelete(snapshot, lookup(t, snapshot, "org.old.Gone"))
	require.NoError(t, err)
	require.False(t, result.Blocked)

	deleted, err := refactor.ApplyEdits(src, result.Edits)
	require.NoError(t, err)
	assert.Equal(t, `protocol P {
  record Kept { int x; }


}
`, deleted)

	// A block comment that is not a doc comment is kept.
	src = "/* header */\nrecord Gone {}\n"
	snapshot = setup(t, map[string]string{"/proj/q.avdl": src})
	result, err = refactor.SafeDelete(snapshot, lookup(t, snapshot, "Gone"))
	require.NoError(t, err)
	deleted, err = refactor.ApplyEdits(src, result.Edits)
	require.NoError(t, err)
	assert.Equal(t, "/* header */\n\n", deleted)
}

func TestApplyEditsOverlap(t *testing.T) {
	t.Parallel()

	_, err := refactor.ApplyEdits("abcdef", []refactor.TextEdit{
		{Span: syntax.NewSpan(1, 3), NewText: "x"},
		{Span: syntax.NewSpan(2, 1), NewText: "y"},
	})
	assert.Error(t, err)

	_, err = refactor.ApplyEdits("abc", []refactor.TextEdit{{Span: syntax.NewSpan(2, 5)}})
	assert.Error(t, err)
}
