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

// Package validator runs the semantic checks of a document against the
// symbols visible from it. Every check reports independently: a violation
// found by one check never stops the others.
package validator

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/opwvhk/intellij-plugin-avro-idl/resolver"
	"github.com/opwvhk/intellij-plugin-avro-idl/symbols"
	"github.com/opwvhk/intellij-plugin-avro-idl/syntax"
)

type ValidateOption interface {
	apply(*ValidateOptions)
}

type validateOption func(*ValidateOptions)

func (f validateOption) apply(opts *ValidateOptions) { f(opts) }

type ValidateOptions struct {
	disabled         map[uint32]struct{}
	warningsAsErrors bool
}

// WithDisabledChecks suppresses the diagnostics with the given codes.
func WithDisabledChecks(codes ...uint32) ValidateOption {
	return validateOption(func(opts *ValidateOptions) {
		for _, code := range codes {
			opts.disabled[code] = struct{}{}
		}
	})
}

func WithWarningsAsErrors(enabled bool) ValidateOption {
	return validateOption(func(opts *ValidateOptions) {
		opts.warningsAsErrors = enabled
	})
}

func NewValidateOptions(opts ...ValidateOption) *ValidateOptions {
	validateOptions := &ValidateOptions{
		disabled: make(map[uint32]struct{}),
	}
	for _, opt := range opts {
		opt.apply(validateOptions)
	}
	return validateOptions
}

type ImportState uint8

const (
	ImportLoaded ImportState = iota + 1
	ImportPending
	ImportNotFound
	ImportFailed
)

// ImportTarget is what one import statement of the validated document
// resolved to.
type ImportTarget struct {
	State ImportState
	URI   string

	// Table of a loaded target.
	Table *symbols.Table

	// Tables contributed through the import: the target and everything it
	// imports.
	Tables []*symbols.Table

	// Err is set for failed imports.
	Err error
}

type ImportEdge struct {
	Target string
	Span   syntax.Span
}

// ImportGraph maps the URI of each loaded document to its resolved import
// statements, in statement order.
type ImportGraph map[string][]ImportEdge

type Input struct {
	Scope *resolver.Scope

	// Results of resolving Scope.Local.References, computed when nil.
	Results []resolver.Result

	// Imports parallels Scope.Local.Imports.
	Imports []ImportTarget

	Graph ImportGraph

	// Reporters are the documents a problem shared by several documents,
	// such as an import cycle, is reported on; typically the documents open
	// in an editor. The member with the smallest URI among them reports it,
	// or the smallest member overall when none of them is a reporter.
	Reporters map[string]bool
}

func Validate(in *Input, opts ...ValidateOption) []*syntax.Diagnostic {
	return NewValidateOptions(opts...).Validate(in)
}

func (opts *ValidateOptions) Validate(in *Input) []*syntax.Diagnostic {
	local := in.Scope.Local
	results := in.Results
	if len(results) != len(local.References) {
		results = resolver.ResolveAll(in.Scope)
	}
	v := &validator{
		opts:    opts,
		in:      in,
		local:   local,
		results: results,
		refs:    make(map[syntax.NodeID]resolver.Result, len(results)),
	}
	for ii := range local.References {
		v.refs[local.References[ii].Node] = results[ii]
	}

	v.diags = append(v.diags, local.Diagnostics...)
	v.checkImports()
	v.checkImportCycle()
	v.checkImportedDuplicates()
	v.checkReferences()
	if local.Tree != nil {
		syntax.Walk(local.Tree.Root(), func(node syntax.Node) bool {
			if check := nodeChecks[node.Kind()]; check != nil {
				check(v, node)
			}
			switch node.Kind() {
			case syntax.N_JSON_OBJECT, syntax.N_JSON_ARRAY, syntax.N_ANNOTATION:
				return false
			}
			return true
		})
	}
	return v.finish()
}

type validator struct {
	opts    *ValidateOptions
	in      *Input
	local   *symbols.Table
	results []resolver.Result
	refs    map[syntax.NodeID]resolver.Result
	diags   []*syntax.Diagnostic
}

var nodeChecks = [syntax.NodeKindCount]func(*validator, syntax.Node){
	syntax.N_RECORD_DECL:  (*validator).checkFields,
	syntax.N_ERROR_DECL:   (*validator).checkFields,
	syntax.N_FIELD_DECL:   (*validator).checkDefaults,
	syntax.N_FORMAL_PARAM: (*validator).checkDefaults,
	syntax.N_ENUM_DECL:    (*validator).checkEnum,
	syntax.N_MESSAGE_DECL: (*validator).checkMessage,
}

func (v *validator) report(diag *syntax.Diagnostic) {
	v.diags = append(v.diags, diag)
}

func (v *validator) finish() []*syntax.Diagnostic {
	out := make([]*syntax.Diagnostic, 0, len(v.diags))
	for _, diag := range v.diags {
		if _, disabled := v.opts.disabled[diag.Code()]; disabled {
			continue
		}
		if v.opts.warningsAsErrors && diag.Severity() == syntax.SeverityWarning {
			diag = diag.WithSeverity(syntax.SeverityError)
		}
		if diag.URI() == "" {
			diag = diag.WithURI(v.local.URI)
		}
		out = append(out, diag)
	}
	slices.SortStableFunc(out, func(a, b *syntax.Diagnostic) int {
		return cmp.Or(
			cmp.Compare(a.Span().Start(), b.Span().Start()),
			cmp.Compare(a.Span().Len(), b.Span().Len()),
			cmp.Compare(a.Code(), b.Code()),
			strings.Compare(a.Message(), b.Message()),
		)
	})
	return out
}

func (v *validator) checkImports() {
	for ii, imp := range v.local.Imports {
		if ii >= len(v.in.Imports) {
			break
		}
		target := v.in.Imports[ii]
		switch target.State {
		case ImportNotFound:
			v.report(errImportNotFound(imp.Path, imp.PathSpan))
		case ImportFailed:
			reason := "unknown error"
			if target.Err != nil {
				reason = target.Err.Error()
			}
			v.report(errImportUnreadable(imp.Path, reason, imp.PathSpan))
		case ImportPending:
			v.report(warnImportPending(imp.Path, imp.PathSpan))
		case ImportLoaded:
			if target.Table == nil {
				continue
			}
			for _, diag := range target.Table.Diagnostics {
				if diag.Code() == codeImportUnreadable {
					v.report(errImportUnreadable(imp.Path, "not a valid schema or protocol", imp.PathSpan))
					break
				}
			}
		}
	}
}

// checkImportCycle reports an import cycle through the validated document.
// A cycle is reported once, by the member chosen by reporterOf.
func (v *validator) checkImportCycle() {
	start := v.local.URI
	graph := v.in.Graph
	forward := reachable(start, func(uri string, yield func(string)) {
		for _, edge := range graph[uri] {
			yield(edge.Target)
		}
	})
	if _, ok := forward[start]; !ok {
		return
	}
	reverse := make(map[string][]string)
	for uri, edges := range graph {
		for _, edge := range edges {
			reverse[edge.Target] = append(reverse[edge.Target], uri)
		}
	}
	backward := reachable(start, func(uri string, yield func(string)) {
		for _, source := range reverse[uri] {
			yield(source)
		}
	})
	members := make(map[string]struct{})
	for uri := range forward {
		if _, ok := backward[uri]; ok {
			members[uri] = struct{}{}
		}
	}
	if reporterOf(members, v.in.Reporters) != start {
		return
	}

	cycle := shortestCycle(graph, start, members)
	if len(cycle) < 2 {
		return
	}
	span, _ := edgeSpan(graph, cycle[0], cycle[1])
	var related []syntax.Related
	for ii := 1; ii+1 < len(cycle); ii++ {
		if edge, ok := edgeSpan(graph, cycle[ii], cycle[ii+1]); ok {
			related = append(related, syntax.Related{
				URI:     cycle[ii],
				Span:    edge,
				Message: "imports " + cycle[ii+1],
			})
		}
	}
	v.report(errImportCycle(cycle, span, related))
}

func reporterOf(members map[string]struct{}, reporters map[string]bool) string {
	smallest, smallestReporter := "", ""
	for uri := range members {
		if smallest == "" || uri < smallest {
			smallest = uri
		}
		if reporters[uri] && (smallestReporter == "" || uri < smallestReporter) {
			smallestReporter = uri
		}
	}
	if smallestReporter != "" {
		return smallestReporter
	}
	return smallest
}

// reachable returns the nodes reachable from start by one or more steps.
func reachable(start string, next func(string, func(string))) map[string]struct{} {
	seen := make(map[string]struct{})
	queue := []string{start}
	for len(queue) > 0 {
		uri := queue[0]
		queue = queue[1:]
		next(uri, func(target string) {
			if _, ok := seen[target]; !ok {
				seen[target] = struct{}{}
				queue = append(queue, target)
			}
		})
	}
	return seen
}

// shortestCycle returns the shortest import path from start back to itself,
// starting and ending with start.
func shortestCycle(graph ImportGraph, start string, members map[string]struct{}) []string {
	prev := map[string]string{}
	seen := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		uri := queue[0]
		queue = queue[1:]
		for _, edge := range graph[uri] {
			if _, ok := members[edge.Target]; !ok {
				continue
			}
			if edge.Target == start {
				var path []string
				for node := uri; node != start; node = prev[node] {
					path = append(path, node)
				}
				path = append(path, start)
				slices.Reverse(path)
				return append(path, start)
			}
			if !seen[edge.Target] {
				seen[edge.Target] = true
				prev[edge.Target] = uri
				queue = append(queue, edge.Target)
			}
		}
	}
	return nil
}

func edgeSpan(graph ImportGraph, from, to string) (syntax.Span, bool) {
	for _, edge := range graph[from] {
		if edge.Target == to {
			return edge.Span, true
		}
	}
	return syntax.Span{}, false
}

// checkImportedDuplicates reports local declarations that an import also
// declares, and names declared by more than one import of the document.
func (v *validator) checkImportedDuplicates() {
	imported := func(yield func(*symbols.Table) bool) {
		for _, table := range v.in.Scope.Imports {
			if table.URI == v.local.URI {
				continue
			}
			if !yield(table) {
				return
			}
		}
	}

	for _, sym := range v.local.Types() {
		var others []*symbols.Symbol
		for table := range imported {
			others = append(others, table.Lookup(sym.Name)...)
		}
		if len(others) > 0 {
			v.report(errDuplicateImported(sym, others))
		}
	}

	var names []string
	declared := make(map[string][]*symbols.Symbol)
	for table := range imported {
		for _, sym := range table.Types() {
			if len(v.local.Lookup(sym.Name)) > 0 {
				continue
			}
			if _, ok := declared[sym.Name]; !ok {
				names = append(names, sym.Name)
			}
			declared[sym.Name] = append(declared[sym.Name], sym)
		}
	}
	for _, name := range names {
		syms := declared[name]
		if len(syms) < 2 {
			continue
		}
		var through []int
		for ii, target := range v.in.Imports {
			if ii >= len(v.local.Imports) {
				break
			}
			if slices.ContainsFunc(syms, func(sym *symbols.Symbol) bool {
				return slices.ContainsFunc(target.Tables, func(table *symbols.Table) bool {
					return table.URI == sym.URI
				})
			}) {
				through = append(through, ii)
			}
		}
		if len(through) < 2 {
			continue
		}
		for _, ii := range through {
			v.report(errDuplicateBetweenImports(name, v.local.Imports[ii].PathSpan, syms))
		}
	}
}

func (v *validator) checkReferences() {
	for ii := range v.local.References {
		ref := &v.local.References[ii]
		result := v.results[ii]
		switch result.Status {
		case resolver.Unresolved:
			// An unresolved name may still be declared by an import that
			// has not been loaded yet.
			if !v.in.Scope.Pending {
				v.report(errUnresolvedReference(ref.Name, ref.Span))
			}
		case resolver.Ambiguous:
			v.report(errAmbiguousReference(ref.Name, result.Candidates, ref.Span))
		case resolver.Primitive:
			if ref.ErrorsOnly {
				v.report(errThrowsNonError(ref.Name, "primitive", ref.Span))
			}
		case resolver.Resolved:
			if ref.ErrorsOnly && result.Symbol.Kind != symbols.KindError {
				v.report(errThrowsNonError(result.Symbol.Name, result.Symbol.Kind.String(), ref.Span))
			}
		}
	}
}

func (v *validator) checkFields(node syntax.Node) {
	var names []syntax.Leaf
	for field := range node.ChildrenOf(syntax.N_FIELD_DECL) {
		for variable := range field.ChildrenOf(syntax.N_VARIABLE) {
			names = append(names, variable.Name())
		}
	}
	for _, leaf := range duplicates(names) {
		v.report(errDuplicateField(syntax.IdentText(leaf.Text()), leaf.Span()))
	}
}

func (v *validator) checkEnum(node syntax.Node) {
	var names []syntax.Leaf
	declared := make(map[string]struct{})
	for symbol := range node.ChildrenOf(syntax.N_ENUM_SYMBOL) {
		name := symbol.Name()
		names = append(names, name)
		if name.IsValid() {
			declared[syntax.IdentText(name.Text())] = struct{}{}
		}
	}
	for _, leaf := range duplicates(names) {
		v.report(errDuplicateEnumSymbol(syntax.IdentText(leaf.Text()), leaf.Span()))
	}

	def := node.Child(syntax.N_ENUM_DEFAULT)
	if !def.IsValid() || !def.Name().IsValid() {
		return
	}
	value := syntax.IdentText(def.Name().Text())
	if _, ok := declared[value]; !ok {
		enum := ""
		if name := node.Name(); name.IsValid() {
			enum = syntax.IdentText(name.Text())
		}
		v.report(errEnumDefaultUnknown(value, enum, def.Name().Span()))
	}
}

func (v *validator) checkMessage(node syntax.Node) {
	var names []syntax.Leaf
	for param := range node.ChildrenOf(syntax.N_FORMAL_PARAM) {
		if variable := param.Child(syntax.N_VARIABLE); variable.IsValid() {
			names = append(names, variable.Name())
		}
	}
	for _, leaf := range duplicates(names) {
		v.report(errDuplicateField(syntax.IdentText(leaf.Text()), leaf.Span()))
	}

	oneway := false
	for leaf := range node.Leaves() {
		if leaf.Token().IsKeyword("oneway") {
			oneway = true
			break
		}
	}
	result := node.TypeChild()
	if oneway && result.IsValid() && result.Kind() != syntax.N_VOID_TYPE {
		name := ""
		if leaf := node.Name(); leaf.IsValid() {
			name = syntax.IdentText(leaf.Text())
		}
		v.report(errOnewayResult(name, result.Span()))
	}
}

// duplicates returns every valid leaf whose name occurs more than once.
func duplicates(leaves []syntax.Leaf) []syntax.Leaf {
	counts := make(map[string]int, len(leaves))
	for _, leaf := range leaves {
		if leaf.IsValid() {
			counts[syntax.IdentText(leaf.Text())]++
		}
	}
	var dups []syntax.Leaf
	for _, leaf := range leaves {
		if leaf.IsValid() && counts[syntax.IdentText(leaf.Text())] > 1 {
			dups = append(dups, leaf)
		}
	}
	return dups
}

func (v *validator) checkDefaults(node syntax.Node) {
	typ := node.TypeChild()
	if !typ.IsValid() || typ.HasError() {
		return
	}
	for variable := range node.ChildrenOf(syntax.N_VARIABLE) {
		value := jsonValue(variable)
		if !value.IsValid() || value.HasError() {
			continue
		}
		if !v.matches(typ, value) {
			v.report(errDefaultMismatch(describeType(typ), describeValue(value), value.Span()))
		}
	}
}

func jsonValue(node syntax.Node) syntax.Node {
	for child := range node.ChildNodes() {
		switch child.Kind() {
		case syntax.N_JSON_OBJECT, syntax.N_JSON_ARRAY, syntax.N_JSON_LITERAL:
			return child
		}
	}
	return syntax.Node{}
}

// matches reports whether a JSON value is a valid default for a type.
// Types that cannot be resolved accept any value.
func (v *validator) matches(typ syntax.Node, value syntax.Node) bool {
	switch typ.Kind() {
	case syntax.N_NULLABLE_TYPE:
		return literalKind(value) == syntax.T_KEYWORD || v.matches(typ.TypeChild(), value)
	case syntax.N_UNION_TYPE:
		// Avro checks union defaults against the first branch only.
		first := typ.TypeChild()
		return !first.IsValid() || v.matches(first, value)
	case syntax.N_ARRAY_TYPE:
		if value.Kind() != syntax.N_JSON_ARRAY {
			return false
		}
		items := typ.TypeChild()
		for element := range value.ChildNodes() {
			if !v.matches(items, element) {
				return false
			}
		}
		return true
	case syntax.N_MAP_TYPE:
		if value.Kind() != syntax.N_JSON_OBJECT {
			return false
		}
		values := typ.TypeChild()
		for member := range value.ChildrenOf(syntax.N_JSON_MEMBER) {
			if memberValue := jsonValue(member); memberValue.IsValid() && !v.matches(values, memberValue) {
				return false
			}
		}
		return true
	case syntax.N_DECIMAL_TYPE:
		return literalKind(value) == syntax.T_STRING_LIT
	case syntax.N_TYPE_REF:
		result, ok := v.refs[typ.ID()]
		if !ok {
			return true
		}
		switch result.Status {
		case resolver.Primitive:
			return matchesPrimitive(resolver.Underlying(result.Primitive), value)
		case resolver.Resolved:
			return matchesNamed(result.Symbol, value)
		}
	}
	return true
}

func matchesPrimitive(primitive string, value syntax.Node) bool {
	kind := literalKind(value)
	switch primitive {
	case "null":
		return kind == syntax.T_KEYWORD
	case "boolean":
		return kind == syntax.T_BOOL_LIT
	case "int":
		_, err := strconv.ParseInt(literalText(value), 10, 32)
		return kind == syntax.T_INT_LIT && err == nil
	case "long":
		_, err := strconv.ParseInt(literalText(value), 10, 64)
		return kind == syntax.T_INT_LIT && err == nil
	case "float", "double":
		return kind == syntax.T_INT_LIT || kind == syntax.T_FLOAT_LIT
	case "bytes", "string":
		return kind == syntax.T_STRING_LIT
	}
	return true
}

func matchesNamed(sym *symbols.Symbol, value syntax.Node) bool {
	switch sym.Kind {
	case symbols.KindRecord, symbols.KindError:
		return value.Kind() == syntax.N_JSON_OBJECT
	case symbols.KindFixed:
		return literalKind(value) == syntax.T_STRING_LIT
	case symbols.KindEnum:
		if literalKind(value) != syntax.T_STRING_LIT {
			return false
		}
		if len(sym.EnumSymbols) == 0 {
			return true
		}
		symbol, _ := symbols.JSONString(literalText(value))
		return slices.Contains(sym.EnumSymbols, symbol)
	}
	return true
}

// literalKind returns the token kind of a JSON literal, T_KEYWORD for null,
// or T_EOF for objects and arrays.
func literalKind(value syntax.Node) syntax.TokenKind {
	if value.Kind() != syntax.N_JSON_LITERAL {
		return syntax.T_EOF
	}
	for leaf := range value.Leaves() {
		switch leaf.Kind() {
		case syntax.T_STRING_LIT, syntax.T_INT_LIT, syntax.T_FLOAT_LIT, syntax.T_BOOL_LIT, syntax.T_KEYWORD:
			return leaf.Kind()
		}
	}
	return syntax.T_EOF
}

func literalText(value syntax.Node) string {
	for leaf := range value.Leaves() {
		if leaf.Kind() == literalKind(value) {
			return leaf.Text()
		}
	}
	return ""
}

func describeType(typ syntax.Node) string {
	switch typ.Kind() {
	case syntax.N_TYPE_REF:
		if name := typ.Name(); name.IsValid() {
			return syntax.IdentText(name.Text())
		}
	case syntax.N_NULLABLE_TYPE:
		return describeType(typ.TypeChild()) + "?"
	case syntax.N_ARRAY_TYPE:
		return "array<" + describeType(typ.TypeChild()) + ">"
	case syntax.N_MAP_TYPE:
		return "map<" + describeType(typ.TypeChild()) + ">"
	case syntax.N_UNION_TYPE:
		return "union"
	case syntax.N_DECIMAL_TYPE:
		return "decimal"
	}
	return typ.Kind().String()
}

func describeValue(value syntax.Node) string {
	switch value.Kind() {
	case syntax.N_JSON_OBJECT:
		return "object"
	case syntax.N_JSON_ARRAY:
		return "array"
	}
	return literalText(value)
}
