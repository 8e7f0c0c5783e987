// OTLP protobuf-JSON trace import, for reading span exports from files
package chart

import (
	"encoding/hex"
	"fmt"

	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"
	"google.golang.org/protobuf/encoding/protojson"
)

// ParseOTLP decodes an OTLP ExportTraceServiceRequest in protobuf-JSON
// form into normalised spans. Parent linkage maps onto the single
// ParentSpanID field, so the resulting spans flow through the same
// hierarchy rules as data-prepper hits.
func ParseOTLP(data []byte) ([]Span, error) {
	var req coltracepb.ExportTraceServiceRequest
	opts := protojson.UnmarshalOptions{DiscardUnknown: true}
	if err := opts.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parsing OTLP: %w", err)
	}

	var spans []Span
	for _, rs := range req.ResourceSpans {
		serviceName := ""
		for _, attr := range rs.Resource.GetAttributes() {
			if attr.Key == "service.name" {
				serviceName = attr.Value.GetStringValue()
			}
		}

		for _, ss := range rs.ScopeSpans {
			svc := serviceName
			if svc == "" {
				svc = ss.Scope.GetName()
			}

			for _, span := range ss.Spans {
				parentID := hex.EncodeToString(span.ParentSpanId)
				if isZeroID(parentID) || len(span.ParentSpanId) == 0 {
					parentID = ""
				}

				// Clamp negative durations from bad data to zero
				durationMs := 0.0
				if span.EndTimeUnixNano > span.StartTimeUnixNano {
					durationMs = float64(span.EndTimeUnixNano-span.StartTimeUnixNano) / 1e6
				}

				spans = append(spans, Span{
					SpanID:       hex.EncodeToString(span.SpanId),
					ParentSpanID: parentID,
					Service:      svc,
					Operation:    span.Name,
					StartNanos:   int64(span.StartTimeUnixNano), //nolint:gosec // nanosecond timestamps are always positive
					DurationMs:   durationMs,
					IsError:      span.Status != nil && span.Status.Code == tracepb.Status_STATUS_CODE_ERROR,
				})
			}
		}
	}

	if len(spans) == 0 {
		return nil, fmt.Errorf("no spans found in OTLP input")
	}
	return spans, nil
}

// isZeroID checks if a hex-encoded ID is all zeros.
func isZeroID(id string) bool {
	for _, c := range id {
		if c != '0' {
			return false
		}
	}
	return len(id) > 0
}
