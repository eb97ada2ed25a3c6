// websocket/types.go
package websocket

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/LilVoxy/virality_metrics/ETL/utils"
)

// Event сообщение живой ленты
type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// Клиент WebSocket. Send закрывает хаб, pong принадлежит клиенту
// и не закрывается никогда.
type Client struct {
	ID     string
	Socket *websocket.Conn
	Send   chan []byte
	pong   chan []byte
}

func newClient(id string, conn *websocket.Conn) *Client {
	return &Client{
		ID:     id,
		Socket: conn,
		Send:   make(chan []byte, sendBufferSize),
		pong:   make(chan []byte, 1),
	}
}

// Hub рассылает события всем подключенным клиентам
type Hub struct {
	Clients    map[string]*Client
	Broadcast  chan []byte
	Register   chan *Client
	Unregister chan *Client
	done       chan struct{}
	logger     *utils.ETLLogger
}

// Конфигурация WebSocket-соединения
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // дашборд может открываться с другого origin
	},
}
