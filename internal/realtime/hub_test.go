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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T, opts Options) *Hub {
	t.Helper()
	hub := NewHub(opts)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

func dial(t *testing.T, srv *httptest.Server, userID string, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?user=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var event Event
	require.NoError(t, json.Unmarshal(data, &event))
	return event
}

func newServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeClient(w, r, r.URL.Query().Get("user"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHub_DeliversToTargetedUsers(t *testing.T) {
	t.Parallel()
	hub := startHub(t, Options{})
	srv := newServer(t, hub)

	alice := dial(t, srv, "alice", nil)
	bob := dial(t, srv, "bob", nil)
	assert.Equal(t, "connected", readEvent(t, alice).Type)
	assert.Equal(t, "connected", readEvent(t, bob).Type)
	require.Eventually(t, func() bool { return hub.ConnectedClients() == 2 }, time.Second, 10*time.Millisecond)

	hub.Publish([]string{"alice", "alice"}, "message.created", map[string]string{"body": "hi"})
	hub.Publish(nil, "presence.updated", map[string]string{"userId": "bob"})

	first := readEvent(t, alice)
	assert.Equal(t, "message.created", first.Type)
	assert.Equal(t, map[string]any{"body": "hi"}, first.Payload)
	assert.Equal(t, "presence.updated", readEvent(t, alice).Type)

	// bob only sees the broadcast.
	assert.Equal(t, "presence.updated", readEvent(t, bob).Type)
}

func TestHub_DropsSlowClients(t *testing.T) {
	t.Parallel()
	hub := startHub(t, Options{SendBuffer: 1})

	slow := &Client{id: "slow", userID: "carol", hub: hub, send: make(chan []byte, 1)}
	hub.register <- slow
	require.Eventually(t, func() bool { return hub.ConnectedClients() == 1 }, time.Second, 10*time.Millisecond)

	// The welcome event fills the buffer, so the next event overflows it.
	hub.Publish([]string{"carol"}, "notification.created", nil)
	require.Eventually(t, func() bool { return hub.ConnectedClients() == 0 }, time.Second, 10*time.Millisecond)

	_, ok := <-slow.send
	assert.True(t, ok, "queued welcome is still readable")
	_, ok = <-slow.send
	assert.False(t, ok, "send channel is closed once dropped")
}

func TestHub_StopDisconnectsClients(t *testing.T) {
	t.Parallel()
	hub := startHub(t, Options{})
	srv := newServer(t, hub)

	conn := dial(t, srv, "alice", nil)
	readEvent(t, conn)

	hub.Stop()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error %v", err)

	// Publishing after stop must not block.
	hub.Publish(nil, "presence.updated", nil)
}

func TestOriginChecker(t *testing.T) {
	t.Parallel()

	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "http://api.acme.com/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	sameHost := originChecker(nil)
	assert.True(t, sameHost(req("")))
	assert.True(t, sameHost(req("http://api.acme.com")))
	assert.False(t, sameHost(req("http://evil.example")))

	listed := originChecker([]string{"https://app.acme.com/", " "})
	assert.True(t, listed(req("https://APP.acme.com")))
	assert.False(t, listed(req("http://api.acme.com")))

	assert.True(t, originChecker([]string{"*"})(req("http://anything.example")))
}
