// websocket/write_pump.go
package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// writePump отвечает за отправку сообщений клиенту
func (c *Client) writePump(h *Hub) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Socket.Close()
		h.logger.Debug("Завершение writePump для клиента %s", c.ID)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Канал закрыт хабом
				c.Socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// Каждое событие отдельным фреймом, чтобы клиент парсил JSON целиком
			if err := c.Socket.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			n := len(c.Send)
			for i := 0; i < n; i++ {
				if err := c.Socket.WriteMessage(websocket.TextMessage, <-c.Send); err != nil {
					return
				}
			}
		case pong := <-c.pong:
			c.Socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Socket.WriteMessage(websocket.TextMessage, pong); err != nil {
				return
			}
		case <-ticker.C:
			c.Socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
