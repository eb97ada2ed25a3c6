// websocket/constants.go
package websocket

import (
	"time"
)

// Константы для WebSocket-соединения
const (
	// Время ожидания записи сообщения клиенту
	writeWait = 10 * time.Second

	// Время ожидания сообщения от клиента
	pongWait = 60 * time.Second

	// Период отправки пинг-сообщений
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер входящего сообщения: клиент шлет только ping
	maxMessageSize = 4 * 1024

	// Размер буфера исходящих сообщений клиента
	sendBufferSize = 256
)

// Типы событий ленты
const (
	EventPipelineRun  = "pipeline_run"
	EventFundingRound = "funding_round"
	EventPong         = "pong"
)
