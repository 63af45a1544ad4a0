package game

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"set-platform/internal/config"
	"set-platform/pkg/rng"
	"set-platform/pkg/setdeck"
)

// recordUI captures UI notifications for assertions
type recordUI struct {
	mu        sync.Mutex
	scores    map[int]int
	freezes   map[int]time.Duration
	countdown []time.Duration
	warns     []bool
	elapsed   []time.Duration
	winners   [][]int
	placed    int
	removed   int
}

func newRecordUI() *recordUI {
	return &recordUI{
		scores:  make(map[int]int),
		freezes: make(map[int]time.Duration),
	}
}

func (u *recordUI) PlaceCard(card, slot int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.placed++
}

func (u *recordUI) RemoveCard(slot int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.removed++
}

func (u *recordUI) PlaceToken(player, slot int)  {}
func (u *recordUI) RemoveToken(player, slot int) {}
func (u *recordUI) RemoveTokens(slot int)        {}
func (u *recordUI) RemoveAllTokens()             {}

func (u *recordUI) SetScore(player int, score int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.scores[player] = score
}

func (u *recordUI) SetFreeze(player int, remaining time.Duration) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.freezes[player] = remaining
}

func (u *recordUI) SetCountdown(remaining time.Duration, warn bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.countdown = append(u.countdown, remaining)
	u.warns = append(u.warns, warn)
}

func (u *recordUI) SetElapsed(elapsed time.Duration) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.elapsed = append(u.elapsed, elapsed)
}

func (u *recordUI) AnnounceWinners(players []int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.winners = append(u.winners, players)
}

func (u *recordUI) scoreOf(player int) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.scores[player]
}

// testConfig returns a free-play configuration with no freezes or delays
func testConfig() *config.GameConfig {
	cfg := config.Default()
	cfg.HumanPlayers = 2
	cfg.ComputerPlayers = 0
	cfg.TurnTimeoutMillis = -1
	cfg.PointFreezeMillis = 0
	cfg.PenaltyFreezeMillis = 0
	cfg.TableDelayMillis = 0
	return cfg
}

func newTestDealer(t *testing.T, cfg *config.GameConfig, ui UserInterface) *Dealer {
	t.Helper()

	judge, err := setdeck.NewJudge(cfg.FeatureSize, cfg.FeatureCount)
	if err != nil {
		t.Fatalf("Failed to create judge: %v", err)
	}

	rngSystem, err := rng.NewSystemWithSeed([]byte("dealer-test-seed"), nil)
	if err != nil {
		t.Fatalf("Failed to create RNG: %v", err)
	}

	dealer, err := NewDealer(cfg, judge, rngSystem, ui, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to create dealer: %v", err)
	}
	return dealer
}

// dealCards places the given cards in the given slots and removes them from
// the dealer's deck, bypassing the shuffled deal
func dealCards(t *testing.T, d *Dealer, cards, slots []int) {
	t.Helper()
	if len(cards) != len(slots) {
		t.Fatalf("cards and slots length mismatch")
	}

	remove := make(map[int]bool, len(cards))
	for _, c := range cards {
		remove[c] = true
	}

	d.deckMu.Lock()
	var kept []int
	for _, c := range d.deck {
		if !remove[c] {
			kept = append(kept, c)
		}
	}
	d.deck = kept
	d.deckMu.Unlock()

	for i := range cards {
		d.table.PlaceCard(cards[i], slots[i])
	}
	d.table.SetReady(true)
}

// deckLen returns the current deck length
func deckLen(d *Dealer) int {
	d.deckMu.Lock()
	defer d.deckMu.Unlock()
	return len(d.deck)
}

// deckContains reports whether the deck holds the card
func deckContains(d *Dealer, card int) bool {
	d.deckMu.Lock()
	defer d.deckMu.Unlock()
	for _, c := range d.deck {
		if c == card {
			return true
		}
	}
	return false
}
