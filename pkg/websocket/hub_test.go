package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://shop.example.com"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, check(req), "no Origin header is allowed")

	req.Header.Set("Origin", "https://shop.example.com")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))

	assert.True(t, originChecker([]string{"*"})(req))
}

func TestClientAccepts(t *testing.T) {
	c := &Client{entityType: "product"}
	assert.True(t, c.accepts(Message{EntityType: "product"}))
	assert.False(t, c.accepts(Message{EntityType: "banner"}))
	assert.True(t, c.accepts(Message{}))

	all := &Client{}
	assert.True(t, all.accepts(Message{EntityType: "banner"}))
}

func TestHub_BroadcastsToConnectedClient(t *testing.T) {
	gin.SetMode(gin.TestMode)

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	router := gin.New()
	router.GET("/live", NewHandler(hub, nil).HandleLiveFeed)
	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/live?entityType=product"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	readMessage := func() Message {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	}

	assert.Equal(t, "welcome", readMessage().Type)

	hub.Publish("event", "banner", map[string]string{"id": "b1"})
	hub.Publish("event", "product", map[string]string{"id": "p1"})

	msg := readMessage()
	assert.Equal(t, "event", msg.Type)
	assert.Equal(t, "product", msg.EntityType)
}

func TestHub_StoppedHubReleasesClients(t *testing.T) {
	gin.SetMode(gin.TestMode)

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	router := gin.New()
	router.GET("/live", NewHandler(hub, nil).HandleLiveFeed)
	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	require.NoError(t, err, "welcome")

	cancel()
	<-stopped

	// The server closes the connection once the hub stops.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		assert.False(t, netErr.Timeout(), "connection should be closed, not idle")
	}

	left := make(chan struct{})
	go func() {
		hub.leave(&Client{hub: hub})
		close(left)
	}()
	select {
	case <-left:
	case <-time.After(time.Second):
		t.Fatal("leave blocked on a stopped hub")
	}

	assert.False(t, hub.join(&Client{hub: hub}))
	assert.Equal(t, 0, hub.ClientCount())
}
