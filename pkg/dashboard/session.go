// Session state: current chart model, viewport, and the last-write-wins
// fetch discipline
package dashboard

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/andrewh/spanview/pkg/chart"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Snapshot is the externally visible session state, served over the
// HTTP API and pushed over websocket.
type Snapshot struct {
	TraceID  string           `json:"traceId"`
	Model    chart.ChartModel `json:"model"`
	Viewport ViewportState    `json:"viewport"`
}

// ViewportState mirrors the viewport's visible window for transport.
type ViewportState struct {
	VisibleStart float64 `json:"visibleStart"`
	VisibleEnd   float64 `json:"visibleEnd"`
}

// Session holds the derived state for one dashboard panel. Loads race
// under last-write-wins: each load takes a fresh generation token, and
// a response bearing a stale token is discarded rather than
// overwriting newer state.
type Session struct {
	fetcher  HitFetcher
	mode     chart.Mode
	warnings io.Writer
	metrics  *Metrics
	tracer   trace.Tracer
	onChange func(Snapshot)

	mu       sync.Mutex
	traceID  string
	model    chart.ChartModel
	viewport *chart.Viewport
	pending  string
}

// NewSession creates an empty session. warnings, metrics, tp, and
// onChange may each be nil.
func NewSession(fetcher HitFetcher, mode chart.Mode, warnings io.Writer, metrics *Metrics, tp trace.TracerProvider, onChange func(Snapshot)) *Session {
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	return &Session{
		fetcher:  fetcher,
		mode:     mode,
		warnings: warnings,
		metrics:  metrics,
		tracer:   tp.Tracer("spanview/dashboard"),
		onChange: onChange,
		viewport: chart.NewViewport(0),
	}
}

// Load fetches the trace's hits and recomputes the chart model.
// Loading a different trace resets the viewport to the full range;
// reloading the same trace (a filter change) keeps the visible window
// and only updates the extent.
func (s *Session) Load(ctx context.Context, traceID string) error {
	ctx, span := s.tracer.Start(ctx, "session.load",
		trace.WithAttributes(attribute.String("spanview.trace_id", traceID)))
	defer span.End()

	gen := uuid.NewString()
	s.mu.Lock()
	s.pending = gen
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.FetchesTotal.Inc()
	}
	hits, err := s.fetcher.FetchHits(ctx, traceID)
	if err != nil {
		if s.metrics != nil {
			s.metrics.FetchFailures.Inc()
		}
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	buildStart := time.Now()
	model, err := chart.BuildChartModel(hits, s.mode, s.warnings)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if s.metrics != nil {
		s.metrics.BuildSeconds.Observe(time.Since(buildStart).Seconds())
		s.metrics.SpansPerBuild.Observe(float64(len(model.Segments)))
	}
	span.SetAttributes(attribute.Int("spanview.segment_count", len(model.Segments)))

	s.mu.Lock()
	if s.pending != gen {
		// A newer load superseded this response while it was in flight
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.StaleDropped.Inc()
		}
		span.SetAttributes(attribute.Bool("spanview.stale", true))
		return nil
	}
	s.model = model
	if traceID != s.traceID {
		s.viewport = chart.NewViewport(model.MaxExtentMs)
		s.traceID = traceID
	} else {
		s.viewport.SetMaxExtent(model.MaxExtentMs)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		TraceID: s.traceID,
		Model:   s.model,
		Viewport: ViewportState{
			VisibleStart: s.viewport.Start,
			VisibleEnd:   s.viewport.End,
		},
	}
}

// SetRange adjusts the visible window, e.g. from a minimap drag-select.
func (s *Session) SetRange(start, end float64) {
	s.mu.Lock()
	s.viewport.SetRange(start, end)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// ResetViewport restores the full padded range.
func (s *Session) ResetViewport() {
	s.mu.Lock()
	s.viewport.Reset()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// ProjectedAnnotations returns the model's annotations re-anchored for
// the current visible window.
func (s *Session) ProjectedAnnotations() []chart.Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport.ProjectAnnotations(s.model.Annotations, s.model.Segments)
}

func (s *Session) notify(snap Snapshot) {
	if s.onChange != nil {
		s.onChange(snap)
	}
}
