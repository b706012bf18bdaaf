package monitor

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vk/tensorsched/internal/ctxlog"
	"github.com/vk/tensorsched/internal/scheduler"
)

// Hub tracks connected websocket clients and periodically pushes a
// Snapshot to each of them.
type Hub struct {
	reg      *scheduler.DeviceRegistry
	interval time.Duration
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewHub creates a Hub that polls reg every interval. ctx carries the
// logger the hub logs through for its whole lifetime — incoming requests'
// own contexts are never assumed to carry one, since they come from
// net/http with no BaseContext wiring.
func NewHub(ctx context.Context, reg *scheduler.DeviceRegistry, interval time.Duration) *Hub {
	return &Hub{
		reg:      reg,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: ctxlog.FromContext(ctx),
		conns:  make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the request to a websocket connection and registers it
// for future snapshot pushes. The connection is read in a background
// goroutine solely to detect client-initiated close; clients never send
// this hub anything meaningful.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("monitor: websocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	go h.drain(conn)
}

// drain discards inbound frames until the connection closes, then
// deregisters it.
func (h *Hub) drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	conn.Close()
}

// broadcast writes snapshot to every connected client, dropping any
// connection that fails to accept the write.
func (h *Hub) broadcast(snapshot Snapshot) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(snapshot); err != nil {
			h.mu.Lock()
			delete(h.conns, conn)
			h.mu.Unlock()
			conn.Close()
		}
	}
}

// ClientCount returns the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Run polls the registry every h.interval and broadcasts a snapshot to
// every connected client, until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			h.broadcast(BuildSnapshot(h.reg, now))
		}
	}
}
