package ui

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// frame is one UI update pushed to every connected client
type frame struct {
	Type      string `json:"type"`
	Card      int    `json:"card,omitempty"`
	Slot      int    `json:"slot,omitempty"`
	Player    int    `json:"player,omitempty"`
	Score     int    `json:"score,omitempty"`
	Millis    int64  `json:"millis,omitempty"`
	Warn      bool   `json:"warn,omitempty"`
	Winners   []int  `json:"winners,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// snapshot is the current display state, replayed to newly connected clients
type snapshot struct {
	Type      string        `json:"type"`
	Grid      []int         `json:"grid"`
	Scores    []int         `json:"scores"`
	Countdown int64         `json:"countdown_millis"`
	Warn      bool          `json:"warn"`
	Elapsed   int64         `json:"elapsed_millis"`
	Tokens    map[int][]int `json:"tokens"`
}

// Hub is a WebSocket broadcast surface implementing the game's UserInterface.
// Every UI callback becomes a JSON frame; clients that cannot keep up are
// dropped.
type Hub struct {
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}

	grid      []int
	scores    []int
	tokens    map[int]map[int]bool
	countdown int64
	warn      bool
	elapsed   int64
}

type client struct {
	conn *websocket.Conn
	send chan any
}

// NewHub creates a hub for a grid of tableSize slots and the given seats
func NewHub(tableSize, players int, logger zerolog.Logger) *Hub {
	grid := make([]int, tableSize)
	for i := range grid {
		grid[i] = -1
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins in development
			},
		},
		logger:  logger.With().Str("component", "ui_hub").Logger(),
		clients: make(map[*client]struct{}),
		grid:    grid,
		scores:  make([]int, players),
		tokens:  make(map[int]map[int]bool),
	}
}

// HandleWebSocket upgrades the request and streams UI frames until the client
// disconnects
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan any, 256)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	snap := h.snapshotLocked()
	h.mu.Unlock()

	c.send <- snap

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) writeLoop(c *client) {
	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			h.drop(c)
			return
		}
	}
}

// readLoop discards client messages; input arrives over the REST API
func (h *Hub) readLoop(c *client) {
	defer h.drop(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug().Err(err).Msg("websocket error")
			}
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	c.conn.Close()
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
		c.conn.Close()
	}
	h.mu.Unlock()
}

func (h *Hub) snapshotLocked() snapshot {
	snap := snapshot{
		Type:      "snapshot",
		Grid:      append([]int(nil), h.grid...),
		Scores:    append([]int(nil), h.scores...),
		Countdown: h.countdown,
		Warn:      h.warn,
		Elapsed:   h.elapsed,
		Tokens:    make(map[int][]int),
	}
	for player, slots := range h.tokens {
		for slot, marked := range slots {
			if marked {
				snap.Tokens[player] = append(snap.Tokens[player], slot)
			}
		}
	}
	return snap
}

// broadcast sends a frame to every connected client, dropping slow ones
func (h *Hub) broadcast(f frame) {
	f.Timestamp = time.Now().UnixMilli()

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- f:
		default:
			delete(h.clients, c)
			close(c.send)
			c.conn.Close()
			h.logger.Warn().Msg("dropped slow websocket client")
		}
	}
}

// PlaceCard implements the game's UserInterface
func (h *Hub) PlaceCard(card, slot int) {
	h.mu.Lock()
	h.grid[slot] = card
	h.mu.Unlock()
	h.broadcast(frame{Type: "place_card", Card: card, Slot: slot})
}

// RemoveCard implements the game's UserInterface
func (h *Hub) RemoveCard(slot int) {
	h.mu.Lock()
	h.grid[slot] = -1
	h.mu.Unlock()
	h.broadcast(frame{Type: "remove_card", Slot: slot})
}

// PlaceToken implements the game's UserInterface
func (h *Hub) PlaceToken(player, slot int) {
	h.mu.Lock()
	if h.tokens[player] == nil {
		h.tokens[player] = make(map[int]bool)
	}
	h.tokens[player][slot] = true
	h.mu.Unlock()
	h.broadcast(frame{Type: "place_token", Player: player, Slot: slot})
}

// RemoveToken implements the game's UserInterface
func (h *Hub) RemoveToken(player, slot int) {
	h.mu.Lock()
	if h.tokens[player] != nil {
		delete(h.tokens[player], slot)
	}
	h.mu.Unlock()
	h.broadcast(frame{Type: "remove_token", Player: player, Slot: slot})
}

// RemoveTokens implements the game's UserInterface for one slot
func (h *Hub) RemoveTokens(slot int) {
	h.mu.Lock()
	for _, slots := range h.tokens {
		delete(slots, slot)
	}
	h.mu.Unlock()
	h.broadcast(frame{Type: "remove_tokens", Slot: slot})
}

// RemoveAllTokens implements the game's UserInterface
func (h *Hub) RemoveAllTokens() {
	h.mu.Lock()
	h.tokens = make(map[int]map[int]bool)
	h.mu.Unlock()
	h.broadcast(frame{Type: "remove_all_tokens"})
}

// SetScore implements the game's UserInterface
func (h *Hub) SetScore(player int, score int) {
	h.mu.Lock()
	if player >= 0 && player < len(h.scores) {
		h.scores[player] = score
	}
	h.mu.Unlock()
	h.broadcast(frame{Type: "score", Player: player, Score: score})
}

// SetFreeze implements the game's UserInterface
func (h *Hub) SetFreeze(player int, remaining time.Duration) {
	h.broadcast(frame{Type: "freeze", Player: player, Millis: remaining.Milliseconds()})
}

// SetCountdown implements the game's UserInterface
func (h *Hub) SetCountdown(remaining time.Duration, warn bool) {
	h.mu.Lock()
	h.countdown = remaining.Milliseconds()
	h.warn = warn
	h.mu.Unlock()
	h.broadcast(frame{Type: "countdown", Millis: remaining.Milliseconds(), Warn: warn})
}

// SetElapsed implements the game's UserInterface
func (h *Hub) SetElapsed(elapsed time.Duration) {
	h.mu.Lock()
	h.elapsed = elapsed.Milliseconds()
	h.mu.Unlock()
	h.broadcast(frame{Type: "elapsed", Millis: elapsed.Milliseconds()})
}

// AnnounceWinners implements the game's UserInterface
func (h *Hub) AnnounceWinners(players []int) {
	h.broadcast(frame{Type: "winners", Winners: players})
}
