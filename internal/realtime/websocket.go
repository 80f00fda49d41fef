package realtime

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

const writeWait = 10 * time.Second

// WebSocketConn is the transport side of a Client: it drains the client's
// outbound queue and surfaces inbound frames to a callback.
type WebSocketConn struct {
	Conn *websocket.Conn
}

func NewWebSocketConn(c *websocket.Conn) *WebSocketConn {
	return &WebSocketConn{Conn: c}
}

// WritePump writes queued payloads until send is closed or a write fails.
func (w *WebSocketConn) WritePump(send <-chan []byte) error {
	for msg := range send {
		_ = w.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := w.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return err
		}
	}
	return w.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// ReadLoop decodes JSON frames and hands each one to fn. It returns when the
// peer goes away.
func (w *WebSocketConn) ReadLoop(fn func(map[string]interface{})) error {
	for {
		var payload map[string]interface{}
		if err := w.Conn.ReadJSON(&payload); err != nil {
			return err
		}
		fn(payload)
	}
}
