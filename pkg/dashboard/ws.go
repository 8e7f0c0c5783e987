// Websocket push of chart snapshots to connected panels
package dashboard

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsSendBuffer   = 8
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(strings.TrimSpace(r.Host), strings.TrimSpace(u.Host))
	},
}

// hub fans snapshots out to connected websocket clients. A slow client
// misses intermediate snapshots rather than blocking the broadcaster.
type hub struct {
	mu   sync.Mutex
	subs map[chan Snapshot]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[chan Snapshot]struct{})}
}

func (h *hub) subscribe() chan Snapshot {
	ch := make(chan Snapshot, wsSendBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *hub) unsubscribe(ch chan Snapshot) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

func (h *hub) broadcast(snap Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- snap:
		default:
			// Buffer full: drop, the client catches up on the next push
		}
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.serveWSConnection(conn)
}

func (s *Server) serveWSConnection(conn *websocket.Conn) {
	defer conn.Close() //nolint:errcheck // best-effort close on teardown

	if err := writeSnapshot(conn, s.session.Snapshot()); err != nil {
		return
	}

	sub := s.hub.subscribe()
	defer s.hub.unsubscribe(sub)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snap := <-sub:
			if err := writeSnapshot(conn, snap); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func writeSnapshot(conn *websocket.Conn, snap Snapshot) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(snap)
}
