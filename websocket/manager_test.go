package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub(nil)
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h, cancel
}

func receive(t *testing.T, ch <-chan []byte) ([]byte, bool) {
	t.Helper()
	select {
	case msg, ok := <-ch:
		return msg, ok
	case <-time.After(2 * time.Second):
		t.Fatal("сообщение не получено")
		return nil, false
	}
}

func TestHubBroadcast(t *testing.T) {
	h, _ := startHub(t)

	a := &Client{ID: "a", Send: make(chan []byte, 4)}
	b := &Client{ID: "b", Send: make(chan []byte, 4)}
	h.Register <- a
	h.Register <- b

	require.NoError(t, h.Publish(context.Background(), EventFundingRound, map[string]string{"round_type": "Series A"}))

	for _, c := range []*Client{a, b} {
		msg, ok := receive(t, c.Send)
		require.True(t, ok)

		var ev Event
		require.NoError(t, json.Unmarshal(msg, &ev))
		assert.Equal(t, EventFundingRound, ev.Type)
		assert.False(t, ev.Timestamp.IsZero())
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	h, _ := startHub(t)

	slow := &Client{ID: "slow", Send: make(chan []byte)}
	h.Register <- slow

	require.NoError(t, h.Publish(context.Background(), EventPipelineRun, nil))

	_, ok := receive(t, slow.Send)
	assert.False(t, ok, "канал медленного клиента должен быть закрыт")
}

func TestHubUnregister(t *testing.T) {
	h, _ := startHub(t)

	c := &Client{ID: "c", Send: make(chan []byte, 1)}
	h.Register <- c
	h.Unregister <- c

	_, ok := receive(t, c.Send)
	assert.False(t, ok)
}

func TestHubShutdown(t *testing.T) {
	h, cancel := startHub(t)

	c := &Client{ID: "c", Send: make(chan []byte, 1)}
	h.Register <- c
	cancel()

	_, ok := receive(t, c.Send)
	assert.False(t, ok)

	// после остановки хаба публикация не блокируется
	assert.NoError(t, h.Publish(context.Background(), EventPipelineRun, nil))
}

func TestPublishRespectsContext(t *testing.T) {
	h := NewHub(nil) // Run не запущен, рассылку никто не читает

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := h.Publish(ctx, EventPipelineRun, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHandleConnections(t *testing.T) {
	h, _ := startHub(t)

	server := httptest.NewServer(http.HandlerFunc(h.HandleConnections))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// ответ на ping приходит только после регистрации клиента
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, EventPong, ev.Type)

	require.NoError(t, h.Publish(context.Background(), EventPipelineRun, map[string]int{"count": 3}))
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, EventPipelineRun, ev.Type)
	assert.Equal(t, map[string]interface{}{"count": 3.0}, ev.Data)
}

func TestReadPumpPingAfterHubShutdown(t *testing.T) {
	h, cancel := startHub(t)

	clients := make(chan *Client, 1)
	finished := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := newClient("late", conn)
		h.Register <- c

		// хаб останавливается и закрывает Send до того, как клиент пришлет ping
		cancel()
		<-h.done

		clients <- c
		c.readPump(h)
		close(finished)
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	var c *Client
	select {
	case c = <-clients:
	case <-time.After(2 * time.Second):
		t.Fatal("клиент не зарегистрирован")
	}
	_, ok := receive(t, c.Send)
	require.False(t, ok)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))

	msg, ok := receive(t, c.pong)
	require.True(t, ok)
	var ev Event
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, EventPong, ev.Type)

	conn.Close()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("readPump не завершился")
	}
}
