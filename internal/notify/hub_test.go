package notify

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return websocket.DefaultDialer.Dial(url, header)
}

func TestHub_BroadcastsToClients(t *testing.T) {
	hub := NewHub("*")
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	conn, _, err := dial(t, srv, "")
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Notify("article-updated", map[string]any{"id": 7, "version": 2})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg struct {
		Event   string         `json:"event"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "article-updated", msg.Event)
	assert.Equal(t, float64(7), msg.Payload["id"])
	assert.Equal(t, float64(2), msg.Payload["version"])
}

func TestHub_ForgetsClosedClients(t *testing.T) {
	hub := NewHub("")
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	conn, _, err := dial(t, srv, "")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)

	hub.Notify("article-deleted", nil)
}

func TestHub_NotifyNeverBlocks(t *testing.T) {
	hub := NewHub("")
	c := &client{id: "slow", send: make(chan Message, 1)}
	hub.clients[c] = struct{}{}

	done := make(chan struct{})
	go func() {
		for i := 0; i < sendBuffer*4; i++ {
			hub.Notify("article-created", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked on a slow client")
	}
	assert.Len(t, c.send, 1)
}

func TestHub_ChecksOrigin(t *testing.T) {
	hub := NewHub("https://wiki.example.com")
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	_, resp, err := dial(t, srv, "https://evil.example.com")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := dial(t, srv, "https://wiki.example.com")
	require.NoError(t, err)
	conn.Close()
}
