// Span hierarchy reconstruction from flat hit lists
// Links children to parents via span IDs, handling jaeger reference
// semantics and data-prepper single-parent semantics
package chart

import (
	"fmt"
	"io"
)

// SpanNode wraps a Span with its children in the reconstructed tree.
// A node is owned by at most one parent: when a span carries multiple
// CHILD_OF references, the first resolvable one wins.
type SpanNode struct {
	Span     Span
	Children []*SpanNode
}

// Forest is the result of hierarchy reconstruction. Every input span
// with a span ID appears exactly once in the forest, either as a root
// or as a transitive child — except spans whose every reference was
// unresolvable, which are dropped and counted in Orphans.
type Forest struct {
	Roots   []*SpanNode
	Orphans int
}

// BuildForest links spans into parent/child trees.
// Unresolvable references are ignored with a warning written to w (may
// be nil). A span attached as a CHILD_OF descendant is never also
// registered as a root, even when it carries FOLLOWS_FROM references;
// root candidacy is decided only for unattached spans.
func BuildForest(spans []Span, w io.Writer) Forest {
	nodes := make(map[string]*SpanNode, len(spans))
	order := make([]*SpanNode, 0, len(spans))
	dropped := 0
	for _, s := range spans {
		if s.SpanID == "" {
			// Undecodable hit, nothing to anchor it by
			dropped++
			continue
		}
		if _, dup := nodes[s.SpanID]; dup {
			warnf(w, "warning: duplicate span id %s, keeping first occurrence\n", s.SpanID)
			continue
		}
		node := &SpanNode{Span: s}
		nodes[s.SpanID] = node
		order = append(order, node)
	}

	attached := make(map[string]bool, len(order))
	rootSet := make(map[string]bool, len(order))
	var roots []*SpanNode

	addRoot := func(node *SpanNode) {
		if rootSet[node.Span.SpanID] {
			return
		}
		rootSet[node.Span.SpanID] = true
		roots = append(roots, node)
	}

	for _, node := range order {
		s := node.Span
		switch {
		case len(s.References) > 0:
			linkByReferences(node, nodes, attached, addRoot, w)
		case s.ParentSpanID != "":
			parent, ok := nodes[s.ParentSpanID]
			if !ok || parent == node {
				warnf(w, "warning: span %s has parent %s not found in hit set, treating as root\n", s.SpanID, s.ParentSpanID)
				addRoot(node)
				continue
			}
			parent.Children = append(parent.Children, node)
			attached[s.SpanID] = true
		default:
			addRoot(node)
		}
	}

	// Spans that carried only unresolvable CHILD_OF references end up
	// neither attached nor rooted; they are dropped from the hierarchy.
	for _, node := range order {
		if !attached[node.Span.SpanID] && !rootSet[node.Span.SpanID] {
			warnf(w, "warning: span %s has no resolvable parent, dropping from hierarchy\n", node.Span.SpanID)
			dropped++
		}
	}

	return Forest{Roots: roots, Orphans: dropped}
}

// linkByReferences applies jaeger reference semantics to one span:
// attach via the first resolvable CHILD_OF, fall back to root
// registration for FOLLOWS_FROM-only or reference-free spans.
func linkByReferences(node *SpanNode, nodes map[string]*SpanNode, attached map[string]bool, addRoot func(*SpanNode), w io.Writer) {
	s := node.Span
	hasChildOf := false
	hasFollowsFrom := false

	for _, ref := range s.References {
		if ref.Kind != RefChildOf {
			if ref.Kind == RefFollowsFrom {
				hasFollowsFrom = true
			}
			continue
		}
		hasChildOf = true
		parent, ok := nodes[ref.SpanID]
		if !ok || parent == node {
			warnf(w, "warning: span %s references %s not found in hit set, ignoring reference\n", s.SpanID, ref.SpanID)
			continue
		}
		if attached[s.SpanID] {
			continue
		}
		parent.Children = append(parent.Children, node)
		attached[s.SpanID] = true
	}

	if attached[s.SpanID] {
		return
	}
	if hasFollowsFrom || !hasChildOf {
		addRoot(node)
	}
}

func warnf(w io.Writer, format string, args ...any) {
	if w != nil {
		_, _ = fmt.Fprintf(w, format, args...)
	}
}
