// Endpoint tests against an in-process server
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewh/spanview/pkg/chart"
)

func stubFetcher() fetcherFunc {
	return func(ctx context.Context, traceID string) ([]chart.RawHit, error) {
		return []chart.RawHit{
			dpHit("r", "", 0, 10_000_000),
			dpHit("c", "r", 2_000_000, 5_000_000),
		}, nil
	}
}

func getJSON(t *testing.T, ts *httptest.Server, path string, out any) {
	t.Helper()
	resp, err := ts.Client().Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestServer_ChartEndpoint(t *testing.T) {
	ts := httptest.NewServer(newTestServer(stubFetcher(), chart.ModeDataPrepper))
	defer ts.Close()

	var snap Snapshot
	getJSON(t, ts, "/api/traces/t1/chart", &snap)

	assert.Equal(t, "t1", snap.TraceID)
	require.Len(t, snap.Model.Segments, 2)
	assert.Equal(t, "r", snap.Model.Segments[0].SpanID)
	assert.Equal(t, 10.0, snap.Model.MaxExtentMs)
	assert.Equal(t, 11.0, snap.Viewport.VisibleEnd)
}

func TestServer_ChartEndpoint_BackendError(t *testing.T) {
	failing := fetcherFunc(func(ctx context.Context, traceID string) ([]chart.RawHit, error) {
		return nil, fmt.Errorf("search unavailable")
	})
	ts := httptest.NewServer(newTestServer(failing, chart.ModeDataPrepper))
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/traces/t1/chart")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "search unavailable")
}

func TestServer_ViewportRoundTrip(t *testing.T) {
	ts := httptest.NewServer(newTestServer(stubFetcher(), chart.ModeDataPrepper))
	defer ts.Close()

	var snap Snapshot
	getJSON(t, ts, "/api/traces/t1/chart", &snap)

	resp, err := ts.Client().Post(ts.URL+"/api/viewport", "application/json",
		bytes.NewBufferString(`{"visibleStart":2,"visibleEnd":5}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var vp ViewportState
	getJSON(t, ts, "/api/viewport", &vp)
	assert.Equal(t, 2.0, vp.VisibleStart)
	assert.Equal(t, 5.0, vp.VisibleEnd)

	resp, err = ts.Client().Post(ts.URL+"/api/viewport/reset", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()

	getJSON(t, ts, "/api/viewport", &vp)
	assert.Equal(t, 0.0, vp.VisibleStart)
	assert.InDelta(t, 11.0, vp.VisibleEnd, 1e-9)
}

func TestServer_SetViewport_RejectsInvertedRange(t *testing.T) {
	ts := httptest.NewServer(newTestServer(stubFetcher(), chart.ModeDataPrepper))
	defer ts.Close()

	resp, err := ts.Client().Post(ts.URL+"/api/viewport", "application/json",
		bytes.NewBufferString(`{"visibleStart":9,"visibleEnd":3}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "invalid range")
}

func TestServer_SetViewport_RejectsBadPayload(t *testing.T) {
	ts := httptest.NewServer(newTestServer(stubFetcher(), chart.ModeDataPrepper))
	defer ts.Close()

	resp, err := ts.Client().Post(ts.URL+"/api/viewport", "application/json",
		bytes.NewBufferString(`{garbage`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Annotations(t *testing.T) {
	ts := httptest.NewServer(newTestServer(stubFetcher(), chart.ModeDataPrepper))
	defer ts.Close()

	var snap Snapshot
	getJSON(t, ts, "/api/traces/t1/chart", &snap)

	var anns []chart.Annotation
	getJSON(t, ts, "/api/annotations", &anns)
	require.Len(t, anns, 2)
	assert.Contains(t, anns[0].Label, "svc: op")
}

func TestServer_Healthz(t *testing.T) {
	ts := httptest.NewServer(newTestServer(stubFetcher(), chart.ModeDataPrepper))
	defer ts.Close()

	var status map[string]string
	getJSON(t, ts, "/healthz", &status)
	assert.Equal(t, "ok", status["status"])
}

func TestServer_Metrics(t *testing.T) {
	ts := httptest.NewServer(newTestServer(stubFetcher(), chart.ModeDataPrepper))
	defer ts.Close()

	var snap Snapshot
	getJSON(t, ts, "/api/traces/t1/chart", &snap)

	resp, err := ts.Client().Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "spanview_fetches_total 1")
}

func TestServer_Websocket(t *testing.T) {
	ts := httptest.NewServer(newTestServer(stubFetcher(), chart.ModeDataPrepper))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// First frame is the current snapshot, empty before any load
	var snap Snapshot
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Empty(t, snap.TraceID)

	var loaded Snapshot
	getJSON(t, ts, "/api/traces/t1/chart", &loaded)

	// The load broadcasts a fresh snapshot to connected clients
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, "t1", snap.TraceID)
	require.Len(t, snap.Model.Segments, 2)
}
