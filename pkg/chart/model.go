// Package chart builds Gantt chart models from flat lists of trace spans.
// The pipeline decodes raw search-backend hits into normalised spans,
// reconstructs the parent/child hierarchy, and flattens it into
// time-ordered segments with text annotations and a maximum extent.
// All derivations are pure and recomputed in full on every input change.
package chart

import "io"

// ChartModel is the complete derived state for one trace panel.
type ChartModel struct {
	Segments    []Segment    `json:"segments"`
	Annotations []Annotation `json:"annotations"`
	MaxExtentMs float64      `json:"maxExtentMs"`
	Orphans     int          `json:"orphans,omitempty"`
}

// BuildChartModel decodes raw hits in the given mode and derives the
// chart model. Deterministic for identical input; an empty hit list
// yields an empty model. The only error is an unknown mode.
// Warnings about unresolvable references are written to w (may be nil).
func BuildChartModel(hits []RawHit, mode Mode, w io.Writer) (ChartModel, error) {
	dec, err := decoderFor(mode)
	if err != nil {
		return ChartModel{}, err
	}
	spans := make([]Span, 0, len(hits))
	for _, hit := range hits {
		spans = append(spans, dec.decode(hit))
	}
	return ModelFromSpans(spans, w), nil
}

// ModelFromSpans derives the chart model from already-normalised spans,
// shared by the hit-decoding path and the OTLP import path.
func ModelFromSpans(spans []Span, w io.Writer) ChartModel {
	forest := BuildForest(spans, w)
	if len(forest.Roots) == 0 {
		return ChartModel{Segments: []Segment{}, Annotations: []Annotation{}, Orphans: forest.Orphans}
	}

	segments, annotations, maxExtent := LayoutForest(forest.Roots, minStartMs(spans))
	return ChartModel{
		Segments:    segments,
		Annotations: annotations,
		MaxExtentMs: maxExtent,
		Orphans:     forest.Orphans,
	}
}

// minStartMs returns the earliest start time across the dataset in
// milliseconds. Spans later dropped from the hierarchy still count:
// offsets are relative to the whole hit set, not the surviving forest.
func minStartMs(spans []Span) float64 {
	first := true
	var min int64
	for _, s := range spans {
		if s.SpanID == "" {
			continue
		}
		if first || s.StartNanos < min {
			min = s.StartNanos
			first = false
		}
	}
	return nanosToMs(min)
}
