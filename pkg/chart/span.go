// Normalised span type and per-mode decoders for search-backend hit records
// Handles jaeger-style and data-prepper-style index schemas
package chart

import (
	"encoding/json"
	"fmt"
	"time"
)

// Mode identifies the index schema the search backend serves hits in.
type Mode string

const (
	ModeJaeger            Mode = "jaeger"
	ModeDataPrepper       Mode = "data_prepper"
	ModeCustomDataPrepper Mode = "custom_data_prepper"
)

// ParseMode validates a mode string from config or flags.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeJaeger, ModeDataPrepper, ModeCustomDataPrepper:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q, valid modes: jaeger, data_prepper, custom_data_prepper", s)
	}
}

// RawHit is one record as returned by the search backend, uninterpreted
// beyond field extraction.
type RawHit = json.RawMessage

// RefKind is a jaeger span reference kind.
type RefKind string

const (
	RefChildOf     RefKind = "CHILD_OF"
	RefFollowsFrom RefKind = "FOLLOWS_FROM"
)

// Reference points at another span within the same hit set.
type Reference struct {
	Kind   RefKind
	SpanID string
}

// Span is the schema-independent representation of one trace span.
// Start times are kept in nanoseconds regardless of source resolution;
// durations are converted to milliseconds at decode time.
type Span struct {
	SpanID       string
	StartNanos   int64
	DurationMs   float64
	Service      string
	Operation    string
	IsError      bool
	ParentSpanID string      // data-prepper schemas carry a single parent
	References   []Reference // jaeger schemas carry typed references
}

// decoder extracts a normalised Span from one raw hit. Implementations
// never fail: fields missing from the record stay at their zero values,
// and a hit that does not decode at all yields a Span with an empty
// SpanID, which the hierarchy builder drops.
type decoder interface {
	decode(hit RawHit) Span
}

func decoderFor(mode Mode) (decoder, error) {
	switch mode {
	case ModeJaeger:
		return jaegerDecoder{}, nil
	case ModeDataPrepper, ModeCustomDataPrepper:
		return dataPrepperDecoder{}, nil
	default:
		return nil, fmt.Errorf("unknown mode %q, valid modes: jaeger, data_prepper, custom_data_prepper", mode)
	}
}

// jaegerHit mirrors the span document shape of a jaeger index.
// Start times and durations are stored in microseconds.
type jaegerHit struct {
	SpanID        string  `json:"spanID"`
	OperationName string  `json:"operationName"`
	StartTime     int64   `json:"startTime"`
	Duration      float64 `json:"duration"`
	Process       struct {
		ServiceName string `json:"serviceName"`
	} `json:"process"`
	Tag struct {
		Error bool `json:"error"`
	} `json:"tag"`
	References []struct {
		RefType string `json:"refType"`
		SpanID  string `json:"spanID"`
	} `json:"references"`
}

type jaegerDecoder struct{}

func (jaegerDecoder) decode(hit RawHit) Span {
	var h jaegerHit
	// Lenient by contract: a partial or failed unmarshal leaves fields zero
	_ = json.Unmarshal(hit, &h)

	s := Span{
		SpanID:     h.SpanID,
		StartNanos: h.StartTime * 1000,
		DurationMs: h.Duration / 1000,
		Service:    h.Process.ServiceName,
		Operation:  h.OperationName,
		IsError:    h.Tag.Error,
	}
	for _, ref := range h.References {
		s.References = append(s.References, Reference{Kind: RefKind(ref.RefType), SpanID: ref.SpanID})
	}
	return s
}

// dataPrepperHit mirrors the span document shape written by the
// data-prepper trace pipeline. Durations are stored in nanoseconds;
// start times appear either as startTimeInNanos or as an RFC3339 string.
type dataPrepperHit struct {
	SpanID         string  `json:"spanId"`
	ParentSpanID   string  `json:"parentSpanId"`
	Name           string  `json:"name"`
	ServiceName    string  `json:"serviceName"`
	StartTime      string  `json:"startTime"`
	StartTimeNanos int64   `json:"startTimeInNanos"`
	DurationNanos  float64 `json:"durationInNanos"`
	StatusCode     int     `json:"status.code"`
}

type dataPrepperDecoder struct{}

// statusCodeError is the OTel status code for an errored span.
const statusCodeError = 2

func (dataPrepperDecoder) decode(hit RawHit) Span {
	var h dataPrepperHit
	_ = json.Unmarshal(hit, &h)

	start := h.StartTimeNanos
	if start == 0 && h.StartTime != "" {
		if t, err := time.Parse(time.RFC3339Nano, h.StartTime); err == nil {
			start = t.UnixNano()
		}
	}

	return Span{
		SpanID:       h.SpanID,
		StartNanos:   start,
		DurationMs:   h.DurationNanos / 1e6,
		Service:      h.ServiceName,
		Operation:    h.Name,
		IsError:      h.StatusCode == statusCodeError,
		ParentSpanID: h.ParentSpanID,
	}
}

// nanosToMs converts a nanosecond timestamp or duration to milliseconds.
func nanosToMs(n int64) float64 {
	return float64(n) / 1e6
}
