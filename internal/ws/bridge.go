package ws

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"github.com/user/remotemouse/internal/server"
)

// Handler bridges WebSocket clients onto the TCP command pipeline. Each
// accepted socket is adapted to a net.Conn and handed to the same
// session machinery that serves raw TCP connections, so framing,
// ordering and teardown behave identically on both transports.
type Handler struct {
	srv *server.Server
	log *slog.Logger
}

func NewHandler(srv *server.Server, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{srv: srv, log: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.srv.Running() {
		http.Error(w, "server not running", http.StatusServiceUnavailable)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Error("websocket accept failed", "error", err)
		return
	}

	h.srv.HandleConn(wsConn{websocket.NetConn(context.Background(), c, websocket.MessageText)})
}

// wsConn swallows read deadlines. NetConn closes the websocket when a
// deadline fires during an active read, which would kill any client
// idle longer than the session's poll interval. Shutdown stays prompt
// without the deadline: Stop closes the conn, unblocking the read.
type wsConn struct {
	net.Conn
}

func (wsConn) SetReadDeadline(time.Time) error { return nil }
