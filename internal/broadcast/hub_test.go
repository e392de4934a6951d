package broadcast

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

	"github.com/duskline/biasengine/internal/domain"
)

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_NewClientReceivesHistoryThenLiveEvents(t *testing.T) {
	hub := NewHub(10)
	require.NoError(t, hub.Publish(context.Background(), evt("BIAS_UPDATE")))

	// give the hub loop a moment to process the publish before the client connects
	time.Sleep(20 * time.Millisecond)

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	conn := dial(t, server)

	var historyEvent domain.Event
	require.NoError(t, conn.ReadJSON(&historyEvent))
	assert.Equal(t, domain.EventType("BIAS_UPDATE"), historyEvent.Type)

	require.NoError(t, hub.Publish(context.Background(), evt("NEW_SIGNAL")))

	var liveEvent domain.Event
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&liveEvent))
	assert.Equal(t, domain.EventType("NEW_SIGNAL"), liveEvent.Type)
}

func TestHub_PublishFansOutToMultipleClients(t *testing.T) {
	hub := NewHub(10)
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	connA := dial(t, server)
	connB := dial(t, server)
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), evt("HEALTH_ALERT")))

	for _, conn := range []*websocket.Conn{connA, connB} {
		var e domain.Event
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		require.NoError(t, conn.ReadJSON(&e))
		assert.Equal(t, domain.EventType("HEALTH_ALERT"), e.Type)
	}
}

func TestHub_PublishRespectsContextCancellation(t *testing.T) {
	hub := &Hub{publish: make(chan domain.Event)} // unbuffered, no run() draining it
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := hub.Publish(ctx, evt("NEW_SIGNAL"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_DeliverDropsOldestWhenQueueFull(t *testing.T) {
	c := newClient(nil, nil)
	for i := 0; i < clientSendBuffer+10; i++ {
		msg, _ := json.Marshal(map[string]int{"i": i})
		c.deliver(msg)
	}

	queued := c.drain()
	assert.Len(t, queued, clientSendBuffer)

	var first map[string]int
	require.NoError(t, json.Unmarshal(queued[0], &first))
	assert.Equal(t, 10, first["i"], "the oldest 10 messages should have been evicted")
}
