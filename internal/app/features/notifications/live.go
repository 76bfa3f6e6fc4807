// internal/app/features/notifications/live.go
package notifications

import (
	"net/http"
	"time"

	"github.com/dalemusser/dormhub/internal/app/system/respond"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// ServeLive handles GET /notifications/live. The connection is upgraded
// to a websocket that receives each new notification of the signed-in
// user as a JSON text message. Client messages are ignored.
func (h *Handler) ServeLive(w http.ResponseWriter, r *http.Request) {
	me, ok := recipient(w, r)
	if !ok {
		return
	}
	if h.Hub == nil {
		respond.Error(w, http.StatusServiceUnavailable, "live notifications are disabled")
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	sub := h.Hub.Subscribe(me)
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()
	defer func() {
		conn.Close()
		<-done
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-done:
			return
		case n, ok := <-sub.C():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := conn.WriteJSON(n); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
