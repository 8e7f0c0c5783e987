// Timeline layout: flattens a span forest into time-ordered Gantt rows
package chart

import (
	"fmt"
	"sort"
)

// Segment is one Gantt bar: a span positioned relative to the earliest
// start time in the dataset. Offsets and durations carry full float
// precision; rounding happens only in annotation text.
type Segment struct {
	SpanID     string  `json:"spanId"`
	OffsetMs   float64 `json:"offsetMs"`
	DurationMs float64 `json:"durationMs"`
	Service    string  `json:"serviceName"`
	Operation  string  `json:"operationName"`
	IsError    bool    `json:"error"`
}

// Annotation is the text label for one segment, anchored at the
// segment's start offset.
type Annotation struct {
	SpanID   string  `json:"spanId"`
	OffsetMs float64 `json:"offsetMs"`
	Label    string  `json:"label"`
}

// errorMarker prefixes labels of errored spans.
const errorMarker = "⚠  "

// LayoutForest walks the forest in stable pre-order, siblings sorted by
// ascending start time, and emits one segment and one annotation per
// span. Returns the segments, the annotations, and the maximum extent
// in milliseconds (the furthest segment end).
//
// startMs is the earliest start time across the whole dataset in
// milliseconds; offsets are computed relative to it.
func LayoutForest(roots []*SpanNode, startMs float64) ([]Segment, []Annotation, float64) {
	segments := []Segment{}
	annotations := []Annotation{}
	maxExtentMs := 0.0

	sortByStart(roots)
	var visit func(node *SpanNode)
	visit = func(node *SpanNode) {
		s := node.Span
		offset := nanosToMs(s.StartNanos) - startMs
		segments = append(segments, Segment{
			SpanID:     s.SpanID,
			OffsetMs:   offset,
			DurationMs: s.DurationMs,
			Service:    s.Service,
			Operation:  s.Operation,
			IsError:    s.IsError,
		})
		annotations = append(annotations, Annotation{
			SpanID:   s.SpanID,
			OffsetMs: offset,
			Label:    annotationLabel(s),
		})
		if end := offset + s.DurationMs; end > maxExtentMs {
			maxExtentMs = end
		}

		sortByStart(node.Children)
		for _, child := range node.Children {
			visit(child)
		}
	}
	for _, root := range roots {
		visit(root)
	}

	return segments, annotations, maxExtentMs
}

func annotationLabel(s Span) string {
	marker := ""
	if s.IsError {
		marker = errorMarker
	}
	return fmt.Sprintf("%s%s: %s - %.2fms", marker, s.Service, s.Operation, s.DurationMs)
}

// sortByStart orders siblings by ascending start time, preserving input
// order for equal starts so the layout stays deterministic.
func sortByStart(nodes []*SpanNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Span.StartNanos < nodes[j].Span.StartNanos
	})
}
