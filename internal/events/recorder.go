package events

import (
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the dealer
const (
	TypeGameStarted     = "game_started"
	TypeCardsDealt      = "cards_dealt"
	TypeClaimAccepted   = "claim_accepted"
	TypeClaimRejected   = "claim_rejected"
	TypeClaimDiscarded  = "claim_discarded"
	TypeRoundReshuffled = "round_reshuffled"
	TypeGameFinished    = "game_finished"
)

// GameEvent is one observable game occurrence, published to the analytics
// sinks and the event bus
type GameEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	GameID    string    `json:"game_id"`
	Player    int       `json:"player"`
	Slots     []int     `json:"slots,omitempty"`
	Cards     []int     `json:"cards,omitempty"`
	Score     int       `json:"score"`
	Winners   []int     `json:"winners,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewGameEvent stamps a fresh event with id and timestamp
func NewGameEvent(eventType, gameID string) GameEvent {
	return GameEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		GameID:    gameID,
		Player:    -1,
		Timestamp: time.Now().UTC(),
	}
}

// Recorder accepts game events. Record must not block the caller; sinks that
// can stall belong behind a Pipeline.
type Recorder interface {
	Record(event GameEvent)
}

// Nop discards every event
type Nop struct{}

// Record implements Recorder
func (Nop) Record(GameEvent) {}
