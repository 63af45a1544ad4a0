package game

import "time"

// UserInterface receives every outward-facing change of the game state.
// Implementations render cards, tokens, timers and scores; the core never
// depends on how.
type UserInterface interface {
	PlaceCard(card, slot int)
	RemoveCard(slot int)
	PlaceToken(player, slot int)
	RemoveToken(player, slot int)
	RemoveTokens(slot int)
	RemoveAllTokens()
	SetScore(player int, score int)
	SetFreeze(player int, remaining time.Duration)
	SetCountdown(remaining time.Duration, warn bool)
	SetElapsed(elapsed time.Duration)
	AnnounceWinners(players []int)
}

// NopUI discards every notification. Used by tests and headless runs.
type NopUI struct{}

func (NopUI) PlaceCard(card, slot int) {}

func (NopUI) RemoveCard(slot int) {}

func (NopUI) PlaceToken(player, slot int) {}

func (NopUI) RemoveToken(player, slot int) {}

func (NopUI) RemoveTokens(slot int) {}

func (NopUI) RemoveAllTokens() {}

func (NopUI) SetScore(player int, score int) {}

func (NopUI) SetFreeze(player int, remaining time.Duration) {}

func (NopUI) SetCountdown(remaining time.Duration, warn bool) {}

func (NopUI) SetElapsed(elapsed time.Duration) {}

func (NopUI) AnnounceWinners(players []int) {}
