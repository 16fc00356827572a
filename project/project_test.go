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

package project_test

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/opwvhk/intellij-plugin-avro-idl/internal/testutil"
	"github.com/opwvhk/intellij-plugin-avro-idl/project"
	"github.com/opwvhk/intellij-plugin-avro-idl/resolver"
	"github.com/opwvhk/intellij-plugin-avro-idl/syntax"
	"github.com/opwvhk/intellij-plugin-avro-idl/validator"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, text := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(text), 0o644))
	}
	return fs
}

func newProject(t *testing.T, importResolver project.ImportResolver, opts ...project.ProjectOption) *project.Project {
	t.Helper()
	p := project.New(importResolver, opts...)
	t.Cleanup(p.Close)
	return p
}

func analyze(t *testing.T, p *project.Project, uri string) []*syntax.Diagnostic {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, p.WaitIdle(ctx))
	analysis, err := p.Analyze(ctx, uri)
	require.NoError(t, err)
	return analysis.Diagnostics
}

func keys(diags []*syntax.Diagnostic) []string {
	keys := make([]string, 0, len(diags))
	for _, diag := range diags {
		keys = append(keys, diag.Key())
	}
	slices.Sort(keys)
	return keys
}

// gatedResolver holds every load until its gate is closed.
type gatedResolver struct {
	gate chan struct{}
	next project.ImportResolver
}

func (r *gatedResolver) Load(ctx context.Context, from string, path string) (string, string, error) {
	select {
	case <-r.gate:
	case <-ctx.Done():
		return "", "", ctx.Err()
	}
	return r.next.Load(ctx, from, path)
}

const mainSrc = `@namespace("org.example")
protocol Main {
  import idl "lib.avdl";
  import schema "shared.avsc";

  record User {
    Address address;
    org.shared.Tag tag;
    Color color = "RED";
  }
}`

func TestOpenLoadsImports(t *testing.T) {
	t.Parallel()

	fs := newFs(t, map[string]string{
		"/proj/lib.avdl": `namespace org.example;
import protocol "colors.avpr";
record Address { string street; }`,
		"/proj/colors.avpr": `{"protocol": "Colors", "namespace": "org.example",
 "types": [{"type": "enum", "name": "Color", "symbols": ["RED", "GREEN"]}]}`,
		"/shared/shared.avsc": `{"type": "record", "name": "Tag", "namespace": "org.shared", "fields": []}`,
	})
	p := newProject(t, project.NewFSResolver(fs, "/shared"))

	doc := p.Open("/proj/main.avdl", mainSrc)
	assert.Equal(t, uint64(1), doc.Generation)
	assert.Equal(t, project.KindIDL, doc.Kind)

	assert.Empty(t, analyze(t, p, "/proj/main.avdl"))

	snapshot := p.Snapshot()
	var uris []string
	for _, doc := range snapshot.Documents() {
		uris = append(uris, doc.URI)
	}
	assert.Equal(t, []string{
		"/proj/colors.avpr",
		"/proj/lib.avdl",
		"/proj/main.avdl",
		"/shared/shared.avsc",
	}, uris)
	assert.False(t, snapshot.Pending())

	colors, ok := snapshot.Document("/proj/colors.avpr")
	require.True(t, ok)
	assert.Equal(t, project.KindProtocol, colors.Kind)
	assert.Nil(t, colors.Tree)

	results, err := snapshot.Resolve("/proj/main.avdl")
	require.NoError(t, err)
	for _, result := range results {
		assert.Equal(t, resolver.Resolved, result.Status)
	}
}

func TestImportNotFound(t *testing.T) {
	t.Parallel()

	p := newProject(t, project.NewFSResolver(afero.NewMemMapFs()))
	src := `import idl "missing.avdl"; record Foo { Bar b; }`
	p.Open("/proj/main.avdl", src)

	diags := analyze(t, p, "/proj/main.avdl")
	want := "" +
		"/proj/main.avdl:11+14 \"\\\"missing.avdl\\\"\" E3001: Import \"missing.avdl\" not found\n" +
		"/proj/main.avdl:40+3 \"Bar\" E3100: Unknown type Bar\n"
	assert.Equal(t, want, testutil.FormatDiagnostics(src, diags))
}

func TestImportUnreadable(t *testing.T) {
	t.Parallel()

	fs := newFs(t, map[string]string{
		"/proj/big.avdl": strings.Repeat("record A {}\n", 100),
	})
	fsResolver := project.NewFSResolver(fs)
	fsResolver.MaxSize = 100
	p := newProject(t, fsResolver)
	p.Open("/proj/main.avdl", `import idl "big.avdl";`)

	testutil.ExpectDiagnosticCodes(t, []uint32{3002}, analyze(t, p, "/proj/main.avdl"))
}

func TestPendingImport(t *testing.T) {
	t.Parallel()

	fs := newFs(t, map[string]string{
		"/proj/lib.avdl": `record Lib {}`,
	})
	gate := make(chan struct{})
	p := newProject(t, &gatedResolver{gate, project.NewFSResolver(fs)})
	p.Open("/proj/main.avdl", `import idl "lib.avdl"; record Main { Lib lib; }`)

	// References are not reported unresolved while an import is loading.
	analysis, err := p.Analyze(context.Background(), "/proj/main.avdl")
	require.NoError(t, err)
	testutil.ExpectDiagnosticCodes(t, []uint32{4000}, analysis.Diagnostics)
	assert.True(t, p.Snapshot().Pending())

	close(gate)
	assert.Empty(t, analyze(t, p, "/proj/main.avdl"))
}

func TestImportCycle(t *testing.T) {
	t.Parallel()

	a := `import idl "b.avdl"; record A { union { null, B } b; }`
	fs := newFs(t, map[string]string{
		"/proj/a.avdl": a,
		"/proj/b.avdl": `import idl "a.avdl"; record B { A a; }`,
	})
	p := newProject(t, project.NewFSResolver(fs))
	p.Open("/proj/a.avdl", a)

	diagsA := analyze(t, p, "/proj/a.avdl")
	diagsB := analyze(t, p, "/proj/b.avdl")
	require.Len(t, diagsA, 1)
	assert.Empty(t, diagsB)

	cycle := diagsA[0]
	assert.Equal(t, uint32(3003), cycle.Code())
	assert.Equal(t, "/proj/a.avdl", cycle.URI())
	assert.Equal(t, "Import cycle: /proj/a.avdl -> /proj/b.avdl -> /proj/a.avdl", cycle.Message())
	require.Len(t, cycle.Related(), 1)
	assert.Equal(t, "/proj/b.avdl", cycle.Related()[0].URI)
}

func TestImportCycleOpenedFromLargerURI(t *testing.T) {
	t.Parallel()

	b := `import idl "a.avdl"; record B { A a; }`
	fs := newFs(t, map[string]string{
		"/proj/a.avdl": `import idl "b.avdl"; record A { B b; }`,
		"/proj/b.avdl": b,
	})
	p := newProject(t, project.NewFSResolver(fs))
	p.Open("/proj/b.avdl", b)

	diagsB := analyze(t, p, "/proj/b.avdl")
	require.Len(t, diagsB, 1)
	assert.Equal(t, uint32(3003), diagsB[0].Code())
	assert.Equal(t, "/proj/b.avdl", diagsB[0].URI())
	assert.Equal(t, "Import cycle: /proj/b.avdl -> /proj/a.avdl -> /proj/b.avdl", diagsB[0].Message())
	assert.Empty(t, analyze(t, p, "/proj/a.avdl"))
}

func TestUpdate(t *testing.T) {
	t.Parallel()

	p := newProject(t, project.NewFSResolver(afero.NewMemMapFs()))
	src := `protocol P {
  record A { int x; }
  record B { A a; }
}`
	p.Open("/proj/main.avdl", src)
	assert.Empty(t, analyze(t, p, "/proj/main.avdl"))

	offset := uint32(strings.Index(src, "A a;"))
	doc, err := p.Update("/proj/main.avdl", syntax.Edit{Start: offset, OldLen: 1, NewText: "C"})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), doc.Generation)
	assert.Equal(t, strings.Replace(src, "A a;", "C a;", 1), doc.Text)
	testutil.ExpectDiagnosticCodes(t, []uint32{3100}, analyze(t, p, "/proj/main.avdl"))

	// The unchanged record is shared with the previous generation.
	a := doc.Symbols.Lookup("A")
	require.Len(t, a, 1)
	assert.Equal(t, uint64(1), doc.Tree.Node(a[0].Decl).Generation())

	_, err = p.Update("/proj/other.avdl", syntax.Edit{})
	assert.ErrorIs(t, err, project.ErrUnknownDocument)

	_, err = p.Update("/proj/main.avdl", syntax.Edit{Start: 1000, OldLen: 1})
	assert.Error(t, err)
}

func TestReopenReplacesText(t *testing.T) {
	t.Parallel()

	p := newProject(t, project.NewFSResolver(afero.NewMemMapFs()))
	p.Open("/proj/main.avdl", `record A { B b; }`)
	doc := p.Open("/proj/main.avdl", `record A { int b; }`)
	assert.Equal(t, uint64(2), doc.Generation)
	assert.Empty(t, analyze(t, p, "/proj/main.avdl"))
}

func TestUpdateJSONDocument(t *testing.T) {
	t.Parallel()

	p := newProject(t, project.NewFSResolver(afero.NewMemMapFs()))
	src := `{"type": "fixed", "name": "MD5", "size": 16}`
	p.Open("/proj/md5.avsc", src)
	offset := uint32(strings.Index(src, "MD5"))
	doc, err := p.Update("/proj/md5.avsc", syntax.Edit{Start: offset, OldLen: 3, NewText: "SHA"})
	require.NoError(t, err)
	assert.Equal(t, project.KindSchema, doc.Kind)
	require.Len(t, doc.Symbols.Types(), 1)
	assert.Equal(t, "SHA", doc.Symbols.Types()[0].Name)
}

func TestCloseDocumentUnloadsImports(t *testing.T) {
	t.Parallel()

	fs := newFs(t, map[string]string{
		"/proj/lib.avdl": `record Lib {}`,
	})
	p := newProject(t, project.NewFSResolver(fs))
	src := `import idl "lib.avdl"; record Main { Lib lib; }`
	p.Open("/proj/main.avdl", src)
	require.Empty(t, analyze(t, p, "/proj/main.avdl"))
	assert.Len(t, p.Snapshot().Documents(), 2)

	// Removing the import statement unloads its target.
	_, err := p.Update("/proj/main.avdl", syntax.Edit{OldLen: uint32(strings.Index(src, "record"))})
	require.NoError(t, err)
	assert.Len(t, p.Snapshot().Documents(), 1)
	testutil.ExpectDiagnosticCodes(t, []uint32{3100}, analyze(t, p, "/proj/main.avdl"))

	p.CloseDocument("/proj/main.avdl")
	assert.Empty(t, p.Snapshot().Documents())
}

func TestOpenImportedDocument(t *testing.T) {
	t.Parallel()

	fs := newFs(t, map[string]string{
		"/proj/lib.avdl": `record Lib {}`,
	})
	p := newProject(t, project.NewFSResolver(fs))
	p.Open("/proj/main.avdl", `import idl "lib.avdl"; record Main { Lib lib; }`)
	require.Empty(t, analyze(t, p, "/proj/main.avdl"))

	// Edits to an open import are visible to the documents importing it.
	p.Open("/proj/lib.avdl", `record Library {}`)
	testutil.ExpectDiagnosticCodes(t, []uint32{3100}, analyze(t, p, "/proj/main.avdl"))

	// Closing the import keeps it loaded while it is imported.
	p.CloseDocument("/proj/lib.avdl")
	_, ok := p.Snapshot().Document("/proj/lib.avdl")
	assert.True(t, ok)
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	p := newProject(t, project.NewFSResolver(fs))
	p.Open("/proj/main.avdl", `import idl "lib.avdl"; record Main { Lib lib; }`)
	testutil.ExpectDiagnosticCodes(t, []uint32{3001, 3100}, analyze(t, p, "/proj/main.avdl"))

	require.NoError(t, afero.WriteFile(fs, "/proj/lib.avdl", []byte(`record Lib {}`), 0o644))
	p.Refresh()
	assert.Empty(t, analyze(t, p, "/proj/main.avdl"))
}

func TestUsages(t *testing.T) {
	t.Parallel()

	fs := newFs(t, map[string]string{
		"/proj/foo.avdl": `namespace org.example; record Foo {}`,
	})
	p := newProject(t, project.NewFSResolver(fs))
	p.Open("/proj/a.avdl", `import idl "foo.avdl"; record A { org.example.Foo foo; }`)
	p.Open("/proj/b.avdl", `namespace org.example; import idl "foo.avdl"; record B { Foo foo; array<Foo> foos; }`)
	require.NoError(t, p.WaitIdle(context.Background()))

	snapshot := p.Snapshot()
	foo := snapshot.Lookup("org.example.Foo")
	require.Len(t, foo, 1)
	assert.Equal(t, foo[0], snapshot.SymbolAt("/proj/foo.avdl", foo[0].NameSpan.Start()))

	var found []string
	for _, usage := range snapshot.Usages(foo[0]) {
		found = append(found, fmt.Sprintf("%s:%s", usage.URI, usage.Reference.Span))
	}
	assert.Equal(t, []string{"/proj/a.avdl:34+15", "/proj/b.avdl:57+3", "/proj/b.avdl:72+3"}, found)

	offset := uint32(strings.Index(`import idl "foo.avdl"; record A { org.example.Foo foo; }`, "Foo"))
	assert.Equal(t, foo[0], snapshot.SymbolAt("/proj/a.avdl", offset))
	assert.Len(t, snapshot.Symbols("/proj/b.avdl"), 1)
}

func TestAnalyzeCancelled(t *testing.T) {
	t.Parallel()

	p := newProject(t, project.NewFSResolver(afero.NewMemMapFs()))
	p.Open("/proj/main.avdl", `record A {}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Analyze(ctx, "/proj/main.avdl")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = p.Analyze(context.Background(), "/proj/missing.avdl")
	assert.ErrorIs(t, err, project.ErrUnknownDocument)
}

func TestValidateOptions(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	p := newProject(t,
		&gatedResolver{gate, project.NewFSResolver(afero.NewMemMapFs())},
		project.WithValidateOptions(
			validator.WithDisabledChecks(3100),
			validator.WithWarningsAsErrors(true),
		))
	p.Open("/proj/main.avdl", `import idl "lib.avdl"; record A { B b; }`)

	analysis, err := p.Analyze(context.Background(), "/proj/main.avdl")
	require.NoError(t, err)
	require.Len(t, analysis.Diagnostics, 1)
	assert.Equal(t, syntax.SeverityError, analysis.Diagnostics[0].Severity())

	close(gate)
	testutil.ExpectDiagnosticCodes(t, []uint32{3001}, analyze(t, p, "/proj/main.avdl"))
}

func TestIncrementalEquivalence(t *testing.T) {
	t.Parallel()

	const src = `@namespace("org.example")
protocol P {
  enum Color { RED, GREEN } = RED;
  fixed MD5(16);
  record User {
    string name = "x";
    Color color = "RED";
    union { null, MD5 } hash = null;
    array<int> numbers = [1, 2];
  }
  error Failure { string message; }
  User get(string name) throws Failure;
}`
	snippets := []string{
		"{", "}", ";", ",", "x", "int ", "Missing ", "record R {}", "\"", "= 1",
		" ", "\n", "Color", "enum E { A, A }", "/*", "User",
	}
	rng := rand.New(rand.NewSource(7))
	incremental := newProject(t, project.NewFSResolver(afero.NewMemMapFs()))
	text := src
	incremental.Open("/proj/main.avdl", text)
	for step := 0; step < 60; step++ {
		start := rng.Intn(len(text) + 1)
		edit := syntax.Edit{Start: uint32(start), NewText: snippets[rng.Intn(len(snippets))]}
		if rng.Intn(3) == 0 && start < len(text) {
			edit = syntax.Edit{Start: uint32(start), OldLen: uint32(1 + rng.Intn(min(6, len(text)-start)))}
		}
		doc, err := incremental.Update("/proj/main.avdl", edit)
		require.NoError(t, err)
		text, err = edit.Apply(text)
		require.NoError(t, err)
		require.Equal(t, text, syntax.Unparse(doc.Tree.Root()))

		fresh := project.New(project.NewFSResolver(afero.NewMemMapFs()))
		fresh.Open("/proj/main.avdl", text)
		want := keys(analyze(t, fresh, "/proj/main.avdl"))
		fresh.Close()

		got := keys(analyze(t, incremental, "/proj/main.avdl"))
		require.Equal(t, want, got, "step %d, text:\n%s", step, text)
	}
}
