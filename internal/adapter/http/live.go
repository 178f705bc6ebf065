package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/couchcryptid/anm-alert-map/internal/card"
)

// clientMessage is a navigation or keepalive request from a viewer.
type clientMessage struct {
	Type string `json:"type"` // "next", "prev", "ping"
	ID   string `json:"id,omitempty"`
}

// serverMessage carries a frame, a navigation result or an error.
type serverMessage struct {
	Type      string `json:"type"` // "frame", "nav", "pong", "error"
	RequestID string `json:"request_id,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// liveHandler streams rendered frames to a viewer and applies the
// navigation it sends back.
type liveHandler struct {
	card   CardService
	logger *slog.Logger
}

// ServeHTTP upgrades to WebSocket, pushes every new frame and runs the
// message loop.
func (h *liveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// The server-wide deadlines would cut long-lived viewers.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	frames, unsubscribe := h.card.Subscribe()
	defer unsubscribe()

	go h.pushFrames(ctx, cancel, conn, frames)

	for {
		var msg clientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if status := websocket.CloseStatus(err); status != -1 {
				h.logger.Debug("viewer disconnected", "status", status)
			}
			return
		}

		switch msg.Type {
		case "next":
			h.send(ctx, conn, serverMessage{Type: "nav", RequestID: msg.ID, Data: navigateResponse{Changed: h.card.Next(), Status: h.card.Status()}})
		case "prev":
			h.send(ctx, conn, serverMessage{Type: "nav", RequestID: msg.ID, Data: navigateResponse{Changed: h.card.Prev(), Status: h.card.Status()}})
		case "ping":
			h.send(ctx, conn, serverMessage{Type: "pong", RequestID: msg.ID})
		default:
			h.send(ctx, conn, serverMessage{Type: "error", RequestID: msg.ID, Data: fmt.Sprintf("unknown message type: %s", msg.Type)})
		}
	}
}

// pushFrames forwards frames until the subscription or the connection ends.
func (h *liveHandler) pushFrames(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, frames <-chan *card.Frame) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-frames:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "card closed")
				return
			}
			if err := wsjson.Write(ctx, conn, serverMessage{Type: "frame", Data: f}); err != nil {
				return
			}
		}
	}
}

func (h *liveHandler) send(ctx context.Context, conn *websocket.Conn, msg serverMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		h.logger.Debug("websocket write failed", "error", err)
	}
}
