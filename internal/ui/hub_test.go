package ui

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn
}

func TestHubSendsSnapshotOnConnect(t *testing.T) {
	hub := NewHub(12, 2, zerolog.Nop())
	defer hub.Close()

	hub.PlaceCard(7, 3)
	hub.SetScore(1, 4)

	conn := dialHub(t, hub)

	var snap map[string]any
	require.NoError(t, conn.ReadJSON(&snap))

	assert.Equal(t, "snapshot", snap["type"])
	grid, ok := snap["grid"].([]any)
	require.True(t, ok)
	require.Len(t, grid, 12)
	assert.Equal(t, float64(7), grid[3])

	scores, ok := snap["scores"].([]any)
	require.True(t, ok)
	assert.Equal(t, float64(4), scores[1])
}

func TestHubBroadcastsFrames(t *testing.T) {
	hub := NewHub(12, 2, zerolog.Nop())
	defer hub.Close()

	conn := dialHub(t, hub)

	// Discard the snapshot
	var snap map[string]any
	require.NoError(t, conn.ReadJSON(&snap))

	hub.PlaceToken(1, 5)

	var frame map[string]any
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "place_token", frame["type"])
	assert.Equal(t, float64(1), frame["player"])
	assert.Equal(t, float64(5), frame["slot"])
}

func TestHubTracksTokensInSnapshot(t *testing.T) {
	hub := NewHub(12, 2, zerolog.Nop())
	defer hub.Close()

	hub.PlaceCard(1, 2)
	hub.PlaceToken(0, 2)
	hub.PlaceToken(0, 4)
	hub.RemoveToken(0, 4)

	conn := dialHub(t, hub)

	var snap struct {
		Type   string           `json:"type"`
		Tokens map[string][]int `json:"tokens"`
	}
	require.NoError(t, conn.ReadJSON(&snap))

	require.Contains(t, snap.Tokens, "0")
	assert.Equal(t, []int{2}, snap.Tokens["0"])
}

func TestHubCountdownState(t *testing.T) {
	hub := NewHub(12, 2, zerolog.Nop())
	defer hub.Close()

	hub.SetCountdown(42*time.Second, true)

	conn := dialHub(t, hub)

	var snap map[string]any
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, float64(42000), snap["countdown_millis"])
	assert.Equal(t, true, snap["warn"])
}
