// Unit tests for span hierarchy reconstruction
// Covers both reference semantics, orphan handling, and the
// root-vs-child registration rule
package chart

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildForest_SingleParent(t *testing.T) {
	spans := []Span{
		{SpanID: "root", Service: "svc", Operation: "op1"},
		{SpanID: "child1", ParentSpanID: "root", Service: "svc", Operation: "op2"},
		{SpanID: "child2", ParentSpanID: "root", Service: "svc", Operation: "op3"},
	}

	forest := BuildForest(spans, nil)
	require.Len(t, forest.Roots, 1)
	assert.Equal(t, "root", forest.Roots[0].Span.SpanID)
	assert.Len(t, forest.Roots[0].Children, 2)
	assert.Zero(t, forest.Orphans)
}

func TestBuildForest_DanglingParentBecomesRoot(t *testing.T) {
	var warnings bytes.Buffer
	spans := []Span{
		{SpanID: "root"},
		{SpanID: "stray", ParentSpanID: "missing"},
	}

	forest := BuildForest(spans, &warnings)
	assert.Len(t, forest.Roots, 2, "span with unresolvable parentSpanId should become a root")
	assert.Contains(t, warnings.String(), "not found in hit set")
	assert.Zero(t, forest.Orphans)
}

func TestBuildForest_ChildOfAttachment(t *testing.T) {
	spans := []Span{
		{SpanID: "r"},
		{SpanID: "c", References: []Reference{{Kind: RefChildOf, SpanID: "r"}}},
	}

	forest := BuildForest(spans, nil)
	require.Len(t, forest.Roots, 1)
	require.Len(t, forest.Roots[0].Children, 1)
	assert.Equal(t, "c", forest.Roots[0].Children[0].Span.SpanID)
}

func TestBuildForest_FirstChildOfWins(t *testing.T) {
	spans := []Span{
		{SpanID: "p1"},
		{SpanID: "p2"},
		{SpanID: "c", References: []Reference{
			{Kind: RefChildOf, SpanID: "p1"},
			{Kind: RefChildOf, SpanID: "p2"},
		}},
	}

	forest := BuildForest(spans, nil)
	require.Len(t, forest.Roots, 2)
	assert.Len(t, forest.Roots[0].Children, 1, "first CHILD_OF reference should own the span")
	assert.Empty(t, forest.Roots[1].Children, "second CHILD_OF reference should be ignored")
}

func TestBuildForest_FirstResolvableChildOfWins(t *testing.T) {
	var warnings bytes.Buffer
	spans := []Span{
		{SpanID: "p2"},
		{SpanID: "c", References: []Reference{
			{Kind: RefChildOf, SpanID: "ghost"},
			{Kind: RefChildOf, SpanID: "p2"},
		}},
	}

	forest := BuildForest(spans, &warnings)
	require.Len(t, forest.Roots, 1)
	assert.Len(t, forest.Roots[0].Children, 1, "unresolvable first reference should fall through to the second")
	assert.Contains(t, warnings.String(), "ignoring reference")
}

func TestBuildForest_FollowsFromOnlyIsRoot(t *testing.T) {
	spans := []Span{
		{SpanID: "a"},
		{SpanID: "b", References: []Reference{
			{Kind: RefFollowsFrom, SpanID: "a"},
			{Kind: RefFollowsFrom, SpanID: "a"},
		}},
	}

	forest := BuildForest(spans, nil)
	assert.Len(t, forest.Roots, 2, "FOLLOWS_FROM-only span should be registered as a root exactly once")
}

// A span attached via CHILD_OF must not also register as a root through
// its FOLLOWS_FROM references.
func TestBuildForest_AttachedSpanIsNeverRoot(t *testing.T) {
	spans := []Span{
		{SpanID: "p"},
		{SpanID: "q"},
		{SpanID: "c", References: []Reference{
			{Kind: RefChildOf, SpanID: "p"},
			{Kind: RefFollowsFrom, SpanID: "q"},
		}},
	}

	forest := BuildForest(spans, nil)
	require.Len(t, forest.Roots, 2)
	for _, root := range forest.Roots {
		assert.NotEqual(t, "c", root.Span.SpanID)
	}
	var p *SpanNode
	for _, root := range forest.Roots {
		if root.Span.SpanID == "p" {
			p = root
		}
	}
	require.NotNil(t, p)
	assert.Len(t, p.Children, 1)
}

func TestBuildForest_UnresolvableChildOfOnlyIsDropped(t *testing.T) {
	var warnings bytes.Buffer
	spans := []Span{
		{SpanID: "root"},
		{SpanID: "lost", References: []Reference{{Kind: RefChildOf, SpanID: "nowhere"}}},
	}

	forest := BuildForest(spans, &warnings)
	assert.Len(t, forest.Roots, 1)
	assert.Equal(t, 1, forest.Orphans, "span with only unresolvable CHILD_OF references should be dropped and counted")
	assert.Contains(t, warnings.String(), "dropping from hierarchy")
}

func TestBuildForest_EmptySpanIDDropped(t *testing.T) {
	spans := []Span{
		{SpanID: "root"},
		{SpanID: ""},
	}

	forest := BuildForest(spans, nil)
	assert.Len(t, forest.Roots, 1)
	assert.Equal(t, 1, forest.Orphans)
}

func TestBuildForest_SelfReference(t *testing.T) {
	var warnings bytes.Buffer
	spans := []Span{
		{SpanID: "loop", ParentSpanID: "loop"},
	}

	forest := BuildForest(spans, &warnings)
	require.Len(t, forest.Roots, 1, "self-referencing span should become a root, not a cycle")
	assert.Empty(t, forest.Roots[0].Children)
}

func TestBuildForest_Empty(t *testing.T) {
	forest := BuildForest(nil, nil)
	assert.Empty(t, forest.Roots)
	assert.Zero(t, forest.Orphans)
}

// Every input span appears exactly once across the forest, except
// counted orphans.
func TestBuildForest_Completeness(t *testing.T) {
	spans := []Span{
		{SpanID: "r1"},
		{SpanID: "a", ParentSpanID: "r1"},
		{SpanID: "b", ParentSpanID: "a"},
		{SpanID: "r2", References: []Reference{{Kind: RefFollowsFrom, SpanID: "r1"}}},
		{SpanID: "c", References: []Reference{{Kind: RefChildOf, SpanID: "r2"}}},
	}

	forest := BuildForest(spans, nil)
	seen := map[string]int{}
	var walk func(n *SpanNode)
	walk = func(n *SpanNode) {
		seen[n.Span.SpanID]++
		for _, child := range n.Children {
			walk(child)
		}
	}
	for _, root := range forest.Roots {
		walk(root)
	}

	require.Len(t, seen, len(spans))
	for id, count := range seen {
		assert.Equal(t, 1, count, "span %s should appear exactly once", id)
	}
}
