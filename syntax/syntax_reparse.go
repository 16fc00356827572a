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
)

// Edit replaces OldLen bytes at Start with NewText.
type Edit struct {
	Start   uint32
	OldLen  uint32
	NewText string
}

func (e Edit) OldSpan() Span {
	return Span{e.Start, e.OldLen}
}

func (e Edit) NewLen() uint32 {
	return uint32(len(e.NewText))
}

func (e Edit) Delta() int64 {
	return int64(len(e.NewText)) - int64(e.OldLen)
}

// Apply returns text with the edit applied.
func (e Edit) Apply(text string) (string, error) {
	if uint64(e.Start)+uint64(e.OldLen) > uint64(len(text)) {
		return "", fmt.Errorf(
			"edit %d+%d out of range for text of %d bytes",
			e.Start, e.OldLen, len(text),
		)
	}
	return text[:e.Start] + e.NewText + text[e.Start+e.OldLen:], nil
}

// ReparseResult describes how an edited tree was rebuilt.
type ReparseResult struct {
	Tree *Tree

	// Full is set when the whole text was parsed again. Otherwise Kind and
	// Span describe the single node that replaced its previous version.
	Full bool
	Kind NodeKind
	Span Span

	// Compacted is set when the tree was copied into a fresh arena,
	// releasing nodes that are no longer reachable.
	Compacted bool
}

// Reparse applies edit to the text of tree, and parses again the innermost
// declaration, statement, or field enclosing the edit. The rest of the tree is
// shared with the previous generation. The resulting tree is identical to the
// result of parsing the new text from scratch, except for the generation
// stamps of shared nodes.
//
// Reparse appends to the arena of tree, and so must not be called concurrently
// for trees sharing an arena.
func Reparse(tree *Tree, edit Edit, opts ...ParseOption) (*ReparseResult, error) {
	text, err := edit.Apply(tree.text)
	if err != nil {
		return nil, err
	}
	parseOpts := NewParseOptions(opts...)
	if parseOpts.generation <= tree.gen {
		parseOpts.generation = tree.gen + 1
	}
	parseOpts.arena = tree.arena

	if uint64(len(text)) <= uint64(parseOpts.maxSize) {
		for candidate := tree.NodeAt(edit.Start); candidate.IsValid(); candidate = candidate.Parent() {
			if !reparsable(candidate, edit) {
				continue
			}
			newTree, ok := reparseNode(parseOpts, candidate, text, edit)
			if !ok {
				continue
			}
			result := &ReparseResult{
				Tree: newTree,
				Kind: candidate.Kind(),
				Span: Span{
					start: candidate.Span().start,
					len:   uint32(int64(candidate.Span().len) + edit.Delta()),
				},
			}
			result.Tree, result.Compacted = maybeCompact(result.Tree)
			return result, nil
		}
	}

	parseOpts.arena = NewArena()
	return &ReparseResult{
		Tree:      parseOpts.Parse(text),
		Full:      true,
		Kind:      N_DOCUMENT,
		Span:      Span{0, uint32(len(text))},
		Compacted: true,
	}, nil
}

// reparsable reports whether node can be parsed on its own and strictly
// contains the edited range, so that its first and last tokens survive.
func reparsable(node Node, edit Edit) bool {
	switch node.Kind() {
	case N_PROTOCOL_DECL, N_NAMESPACE_DECL, N_SCHEMA_DECL, N_IMPORT_STMT,
		N_RECORD_DECL, N_ERROR_DECL, N_ENUM_DECL, N_FIXED_DECL,
		N_MESSAGE_DECL, N_FIELD_DECL:
	default:
		return false
	}
	switch node.Parent().Kind() {
	case N_DOCUMENT, N_PROTOCOL_DECL, N_RECORD_DECL, N_ERROR_DECL:
	default:
		return false
	}
	span := node.Span()
	return edit.Start > span.start && edit.Start+edit.OldLen < span.End()
}

func reparseNode(opts *ParseOptions, node Node, text string, edit Edit) (*Tree, bool) {
	span := node.Span()
	newLen := uint32(int64(span.len) + edit.Delta())
	parent := node.Parent()

	p := newParser(opts.arena, text, span.start, opts.generation)
	for ancestor := range node.Ancestors() {
		switch ancestor.Kind() {
		case N_PROTOCOL_DECL, N_RECORD_DECL, N_ERROR_DECL:
			p.blocks++
		}
	}
	p.open(N_DOCUMENT)
	p.advance()
	switch parent.Kind() {
	case N_DOCUMENT:
		p.parseTopLevelItem()
	case N_PROTOCOL_DECL:
		p.parseProtocolItem()
	default:
		p.parseField()
	}

	children := p.frames[0].children
	if len(children) != 1 || children[0].IsLeaf {
		return nil, false
	}
	replacement := NodeID(children[0].Index)
	data := &opts.arena.nodes[replacement]
	if data.kind != node.Kind() || data.width != newLen {
		return nil, false
	}
	if !endsStatement(opts.arena, replacement) {
		return nil, false
	}

	root := spliceNode(opts.arena, node, replacement, edit.Delta(), opts.generation)
	return newTree(opts.arena, root, text, opts.generation), true
}

// endsStatement reports whether the last leaf of a node is a token that
// cannot be extended by the text following it.
func endsStatement(arena *Arena, id NodeID) bool {
	for {
		children := arena.nodes[id].children
		if len(children) == 0 {
			return false
		}
		last := children[len(children)-1]
		if last.IsLeaf {
			switch arena.leaves[last.Index].kind {
			case T_CLOSE_CURL, T_SEMI, T_CLOSE_PAREN:
				return true
			}
			return false
		}
		id = NodeID(last.Index)
	}
}

// spliceNode replaces old with replacement by copying each ancestor of old,
// and returns the new root.
func spliceNode(arena *Arena, old Node, replacement NodeID, delta int64, generation uint64) NodeID {
	prevID, newID := old.ID(), replacement
	for ancestor := range old.Ancestors() {
		data := arena.nodes[ancestor.ID()]
		children := make([]ChildRef, len(data.children))
		copy(children, data.children)
		var flags nodeFlags
		for ii, child := range children {
			if !child.IsLeaf && NodeID(child.Index) == prevID {
				children[ii].Index = uint32(newID)
			}
			flags |= arena.childFlags(children[ii])
		}
		if data.kind == N_ERROR {
			flags |= flagHasError
		}
		data.children = children
		data.flags = flags
		data.width = uint32(int64(data.width) + delta)
		data.gen = generation
		prevID, newID = ancestor.ID(), arena.addNode(data)
	}
	return newID
}

// Compaction runs once the arena holds more than this many times the nodes
// reachable from the newest tree.
const compactRatio = 4

func maybeCompact(tree *Tree) (*Tree, bool) {
	if len(tree.nodes) < 1024 || len(tree.nodes) < compactRatio*tree.reachable {
		return tree, false
	}
	return tree.Compact(), true
}

// Compact copies the nodes and leaves reachable from the tree's root into a
// new arena. Trees of earlier generations keep the old arena alive until they
// are released.
func (t *Tree) Compact() *Tree {
	arena := &Arena{
		nodes:  make([]nodeData, 1, t.reachable+1),
		leaves: make([]leafData, 0, len(t.leaves)/2),
	}
	var copyNode func(id NodeID) NodeID
	copyNode = func(id NodeID) NodeID {
		data := t.nodes[id]
		children := make([]ChildRef, len(data.children))
		for ii, child := range data.children {
			if child.IsLeaf {
				leaf := t.leaves[child.Index]
				children[ii] = ChildRef{IsLeaf: true, Index: arena.addLeaf(leaf.kind, leaf.text, leaf.errCode)}
			} else {
				children[ii] = ChildRef{Index: uint32(copyNode(NodeID(child.Index)))}
			}
		}
		data.children = children
		return arena.addNode(data)
	}
	root := copyNode(t.root)
	return newTree(arena, root, t.text, t.gen)
}
