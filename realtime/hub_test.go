package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Attach(conn, RoomForTournament(r.URL.Query().Get("t")))
	}))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, tournamentID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?t=" + tournamentID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestPublishReachesRoomSubscribers(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "t1")

	require.Eventually(t, func() bool { return hub.RoomSize("tournament_t1") == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish("t1", EventRegistrationReceived, map[string]string{"id": "r1"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg WebSocketMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, EventRegistrationReceived, msg.Type)
	assert.Equal(t, "tournament_t1", msg.RoomID)
}

func TestPublishIgnoresOtherRooms(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "t2")
	require.Eventually(t, func() bool { return hub.RoomSize("tournament_t2") == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish("t1", EventMatchUpdated, nil)

	conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestClientLeavesRoomOnDisconnect(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "t3")
	require.Eventually(t, func() bool { return hub.RoomSize("tournament_t3") == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.RoomSize("tournament_t3") == 0 }, 2*time.Second, 10*time.Millisecond)
}
