package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/servimatch/servimatch/internal/middleware"
	"github.com/servimatch/servimatch/internal/realtime"
)

func newRealtimeServer(t *testing.T, hub *realtime.Hub) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	handler := NewRealtimeHandler(hub, realtime.StreamMatches, realtime.StreamNotifications)

	r := gin.New()
	r.Use(middleware.Identity())
	r.GET("/ws", handler.Stream)
	r.GET("/ws/:stream", handler.Stream)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func dialRealtime(t *testing.T, server *httptest.Server, path, userID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + path
	header := http.Header{}
	if userID != "" {
		header.Set(middleware.HeaderUserID, userID)
	}

	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestRealtimeStreamRequiresIdentity(t *testing.T) {
	server := newRealtimeServer(t, realtime.NewHub())

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRealtimeStreamRejectsUnknownStream(t *testing.T) {
	server := newRealtimeServer(t, realtime.NewHub())

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/terminal"
	header := http.Header{}
	header.Set(middleware.HeaderUserID, uuid.NewString())

	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRealtimeStreamDeliversBroadcast(t *testing.T) {
	hub := realtime.NewHub()
	server := newRealtimeServer(t, hub)

	userID := uuid.NewString()
	conn := dialRealtime(t, server, "/ws/matches", userID)

	require.Eventually(t, func() bool {
		return hub.SubscriberCount(realtime.StreamMatches, userID) == 1
	}, time.Second, 10*time.Millisecond)

	hub.BroadcastToUser(realtime.StreamMatches, userID, realtime.Message{
		Event: "match.new",
		Data:  map[string]any{"request_id": "r-1"},
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var message realtime.Message
	require.NoError(t, conn.ReadJSON(&message))
	require.Equal(t, realtime.StreamMatches, message.Stream)
	require.Equal(t, "match.new", message.Event)
}

func TestRealtimeStreamDefaultsToNotifications(t *testing.T) {
	hub := realtime.NewHub()
	server := newRealtimeServer(t, hub)

	userID := uuid.NewString()
	_ = dialRealtime(t, server, "/ws", userID)

	require.Eventually(t, func() bool {
		return hub.SubscriberCount(realtime.StreamNotifications, userID) == 1
	}, time.Second, 10*time.Millisecond)
}
