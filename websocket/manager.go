// websocket/manager.go
package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/LilVoxy/virality_metrics/ETL/utils"
)

// NewHub создает новый хаб WebSocket-соединений
func NewHub(logger *utils.ETLLogger) *Hub {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Hub{
		Broadcast:  make(chan []byte),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Clients:    make(map[string]*Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run обслуживает регистрацию и рассылку до отмены контекста
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for id, client := range h.Clients {
				delete(h.Clients, id)
				close(client.Send)
			}
			return

		case client := <-h.Register:
			h.Clients[client.ID] = client
			h.logger.Debug("Клиент %s подключился (всего: %d)", client.ID, len(h.Clients))

		case client := <-h.Unregister:
			if _, ok := h.Clients[client.ID]; ok {
				delete(h.Clients, client.ID)
				close(client.Send)
				h.logger.Debug("Клиент %s отключился", client.ID)
			}

		case message := <-h.Broadcast:
			h.broadcast(message)
		}
	}
}

// broadcast отправляет сообщение всем подключенным клиентам.
// Клиент с переполненным буфером отключается.
func (h *Hub) broadcast(message []byte) {
	for id, client := range h.Clients {
		select {
		case client.Send <- message:
		default:
			close(client.Send)
			delete(h.Clients, id)
			h.logger.Warn("Клиент %s не успевает читать ленту и отключен", id)
		}
	}
}

// Publish сериализует событие и передает его на рассылку
func (h *Hub) Publish(ctx context.Context, eventType string, data interface{}) error {
	payload, err := json.Marshal(Event{Type: eventType, Timestamp: time.Now().UTC(), Data: data})
	if err != nil {
		return err
	}

	select {
	case h.Broadcast <- payload:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
