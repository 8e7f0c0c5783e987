// Search-backend client returning raw hit records for a trace
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andrewh/spanview/pkg/chart"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// maxResponseSize bounds backend responses to prevent OOM on
// pathological hit sets.
const maxResponseSize = 64 * 1024 * 1024 // 64 MB

// HitFetcher is the narrow data-source interface the session consumes.
// Query construction and transport live behind it.
type HitFetcher interface {
	FetchHits(ctx context.Context, traceID string) ([]chart.RawHit, error)
}

// Client fetches raw hits over HTTP. Errors are surfaced to the
// caller and never retried here.
type Client struct {
	base   string
	http   *http.Client
	tracer trace.Tracer
}

// NewClient creates a backend client. tp may be nil for an
// uninstrumented client.
func NewClient(base string, timeout time.Duration, tp trace.TracerProvider) *Client {
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	return &Client{
		base:   strings.TrimRight(base, "/"),
		http:   &http.Client{Timeout: timeout},
		tracer: tp.Tracer("spanview/dashboard"),
	}
}

// hitsResponse is the backend's envelope for one trace's hit set.
type hitsResponse struct {
	Hits []chart.RawHit `json:"hits"`
}

// FetchHits returns the raw hit records for one trace id.
func (c *Client) FetchHits(ctx context.Context, traceID string) ([]chart.RawHit, error) {
	ctx, span := c.tracer.Start(ctx, "fetch.hits",
		trace.WithAttributes(attribute.String("spanview.trace_id", traceID)))
	defer span.End()

	endpoint := c.base + "/traces/" + url.PathEscape(traceID) + "/hits"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("fetching hits: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close on read-only body

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		span.SetStatus(codes.Error, resp.Status)
		return nil, fmt.Errorf("backend returned HTTP %d for trace %s", resp.StatusCode, traceID)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if len(body) > maxResponseSize {
		return nil, fmt.Errorf("response exceeds maximum size of %d MB", maxResponseSize/(1024*1024))
	}

	var parsed hitsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	span.SetAttributes(attribute.Int("spanview.hit_count", len(parsed.Hits)))
	return parsed.Hits, nil
}
