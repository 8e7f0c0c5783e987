// Visible-window state shared by the detail timeline and the minimap
package chart

// ExtentPadding widens the full range beyond the furthest segment end
// so the last bar never touches the chart edge.
const ExtentPadding = 1.1

// Viewport maintains the user-adjustable visible time sub-range over
// the full chart extent. The zero value is an empty window; use
// NewViewport to start at the full padded range.
type Viewport struct {
	Start float64 `json:"visibleStart"`
	End   float64 `json:"visibleEnd"`

	maxExtentMs float64
}

// NewViewport creates a viewport over the given extent, reset to the
// full padded range.
func NewViewport(maxExtentMs float64) *Viewport {
	v := &Viewport{maxExtentMs: maxExtentMs}
	v.Reset()
	return v
}

// Reset restores the canonical full-range view [0, maxExtent*1.1].
func (v *Viewport) Reset() {
	v.Start = 0
	v.End = v.maxExtentMs * ExtentPadding
}

// SetRange accepts any externally selected sub-range, e.g. a
// drag-select on the minimap. No clamping: transient out-of-bounds or
// inverted ranges are the caller's to swap or reject, and Reset is the
// recovery path.
func (v *Viewport) SetRange(start, end float64) {
	v.Start = start
	v.End = end
}

// SetMaxExtent updates the full range after the model was recomputed
// for the same trace, leaving the visible window untouched.
func (v *Viewport) SetMaxExtent(maxExtentMs float64) {
	v.maxExtentMs = maxExtentMs
}

// FullRange returns the padded full range [0, maxExtent*1.1].
func (v *Viewport) FullRange() (float64, float64) {
	return 0, v.maxExtentMs * ExtentPadding
}

// ProjectAnnotations re-anchors labels for the current window: an
// annotation whose nominal position scrolled off the left edge, but
// whose segment still extends past it, moves to the window start so
// in-progress-span labels stay visible. Annotations for segments
// entirely outside the window are left unmodified; clipping those is
// the renderer's concern. The input slices are not mutated.
func (v *Viewport) ProjectAnnotations(annotations []Annotation, segments []Segment) []Annotation {
	ends := make(map[string]float64, len(segments))
	for _, s := range segments {
		ends[s.SpanID] = s.OffsetMs + s.DurationMs
	}

	out := make([]Annotation, len(annotations))
	copy(out, annotations)
	for i := range out {
		if out[i].OffsetMs < v.Start && ends[out[i].SpanID] > v.Start {
			out[i].OffsetMs = v.Start
		}
	}
	return out
}
