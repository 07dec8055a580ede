package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskboard/taskboard/internal/events"
)

func newTestHub(t *testing.T) (*Hub, *events.MemoryBus, *httptest.Server) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	hub := NewHub(logger)
	bus := events.NewMemoryBus()
	unbind := hub.Bind(bus)
	t.Cleanup(unbind)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		hub.Wait()
	})

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		NewClient(hub, conn).Start()
	}))
	t.Cleanup(srv.Close)

	return hub, bus, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) events.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev events.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestEverySessionReceivesEveryEvent(t *testing.T) {
	_, bus, srv := newTestHub(t)

	a := dial(t, srv)
	b := dial(t, srv)
	// let both registrations land before broadcasting
	time.Sleep(50 * time.Millisecond)

	ev, err := events.New(events.TaskDeleted, events.DeletedPayload{ID: "t1"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), ev))

	for _, conn := range []*websocket.Conn{a, b} {
		got := readEvent(t, conn)
		assert.Equal(t, events.TaskDeleted, got.Type)
		assert.JSONEq(t, `{"id":"t1"}`, string(got.Payload))
	}
}

func TestDisconnectedClientDoesNotBlockBroadcast(t *testing.T) {
	_, bus, srv := newTestHub(t)

	a := dial(t, srv)
	b := dial(t, srv)
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, b.Close())
	time.Sleep(50 * time.Millisecond)

	ev, err := events.New(events.TaskCreated, map[string]string{"id": "t2"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), ev))

	got := readEvent(t, a)
	assert.Equal(t, events.TaskCreated, got.Type)
}
