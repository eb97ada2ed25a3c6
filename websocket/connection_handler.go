// websocket/connection_handler.go
package websocket

import (
	"net/http"

	"github.com/google/uuid"
)

// HandleConnections обрабатывает WebSocket-соединения ленты
func (h *Hub) HandleConnections(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Ошибка при установке WebSocket-соединения: %v", err)
		return
	}

	client := newClient(uuid.NewString(), conn)

	select {
	case h.Register <- client:
	case <-h.done:
		conn.Close()
		return
	}
	h.logger.Info("Клиент %s подключился с адреса %s", client.ID, r.RemoteAddr)

	go client.readPump(h)
	go client.writePump(h)
}
