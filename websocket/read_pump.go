// websocket/read_pump.go
package websocket

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

type clientMessage struct {
	Type string `json:"type"`
}

// readPump читает сообщения клиента. Лента односторонняя, клиент
// может прислать только ping.
func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.Unregister <- c:
		case <-h.done:
		}
		c.Socket.Close()
	}()

	c.Socket.SetReadLimit(maxMessageSize)
	c.Socket.SetReadDeadline(time.Now().Add(pongWait))
	c.Socket.SetPongHandler(func(string) error {
		c.Socket.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("Ошибка чтения от клиента %s: %v", c.ID, err)
			}
			break
		}

		var msg clientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			h.logger.Debug("Ошибка декодирования сообщения клиента %s: %v", c.ID, err)
			continue
		}

		if msg.Type == "ping" {
			if pong, err := json.Marshal(Event{Type: EventPong, Timestamp: time.Now().UTC()}); err == nil {
				// Ответ уходит через writePump; если прошлый pong еще не отправлен, новый не нужен
				select {
				case c.pong <- pong:
				default:
				}
			}
		}
	}
}
