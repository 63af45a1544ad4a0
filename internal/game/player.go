package game

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"set-platform/pkg/rng"
)

// generatorDelay is how long a computer generator yields after emitting a
// key press, so a full queue is not hammered
const generatorDelay = 2 * time.Millisecond

// TokenToggler is the dealer surface a player agent calls back into. Keeping
// the reference this narrow avoids a cyclic dealer-player dependency.
type TokenToggler interface {
	ToggleToken(player, slot int)
}

// Player is one seat at the table. It owns a bounded queue of pending key
// presses and an action loop that turns them into token toggles. Non-human
// players additionally run a random key generator.
type Player struct {
	id    int
	human bool

	table  *Table
	dealer TokenToggler
	ui     UserInterface
	logger zerolog.Logger
	rng    *rng.System

	// keys is the bounded chosen-slots queue; its capacity is the number
	// of cards in a set
	keys chan int
	quit chan struct{}

	score       atomic.Int64
	freezeUntil atomic.Int64 // unix milliseconds; -1 means not frozen
	examined    atomic.Bool
	terminated  atomic.Bool
	claimedAt   atomic.Int64 // unix nanoseconds of the last claim submission

	pointFreeze   time.Duration
	penaltyFreeze time.Duration

	stopOnce sync.Once
	wg       sync.WaitGroup
}

// PlayerConfig holds the per-seat parameters the dealer wires in
type PlayerConfig struct {
	ID            int
	Human         bool
	FeatureSize   int
	PointFreeze   time.Duration
	PenaltyFreeze time.Duration
}

// NewPlayer creates a player agent. The dealer reference may be set later via
// SetDealer to break the construction cycle.
func NewPlayer(cfg PlayerConfig, table *Table, ui UserInterface, rngSystem *rng.System, logger zerolog.Logger) *Player {
	p := &Player{
		id:            cfg.ID,
		human:         cfg.Human,
		table:         table,
		ui:            ui,
		logger:        logger.With().Int("player", cfg.ID).Bool("human", cfg.Human).Logger(),
		rng:           rngSystem,
		keys:          make(chan int, cfg.FeatureSize),
		quit:          make(chan struct{}),
		pointFreeze:   cfg.PointFreeze,
		penaltyFreeze: cfg.PenaltyFreeze,
	}
	p.freezeUntil.Store(-1)
	return p
}

// SetDealer wires the non-owning back reference to the dealer
func (p *Player) SetDealer(dealer TokenToggler) {
	p.dealer = dealer
}

// ID returns the player's seat number
func (p *Player) ID() int {
	return p.id
}

// Human reports whether this seat is keyboard-driven
func (p *Player) Human() bool {
	return p.human
}

// Score returns the player's current score
func (p *Player) Score() int {
	return int(p.score.Load())
}

// Terminated reports whether the agent has been told to stop
func (p *Player) Terminated() bool {
	return p.terminated.Load()
}

// Frozen reports whether the player's key presses are currently dropped
func (p *Player) Frozen(now time.Time) bool {
	return p.freezeUntil.Load() >= now.UnixMilli()
}

// FreezeRemaining returns how much freeze time is left, or zero
func (p *Player) FreezeRemaining(now time.Time) time.Duration {
	until := p.freezeUntil.Load()
	if until < 0 {
		return 0
	}
	remaining := time.Duration(until-now.UnixMilli()) * time.Millisecond
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ClearFreeze drops any active freeze. The dealer calls this on countdown reset.
func (p *Player) ClearFreeze() {
	p.freezeUntil.Store(-1)
}

// Examined reports whether a claim by this player is queued or under evaluation
func (p *Player) Examined() bool {
	return p.examined.Load()
}

func (p *Player) setExamined(examined bool) {
	p.examined.Store(examined)
}

// KeyPressed admits a key press into the pending queue. Presses are silently
// dropped while a claim is pending, the table is not ready, the player is
// frozen, the queue is full, or the agent is terminating.
func (p *Player) KeyPressed(slot int) {
	if slot < 0 || slot >= p.table.Size() {
		return
	}
	if p.terminated.Load() || p.examined.Load() || !p.table.Ready() || p.Frozen(time.Now()) {
		RecordKeyPress("dropped")
		return
	}
	select {
	case p.keys <- slot:
		RecordKeyPress("admitted")
	default:
		RecordKeyPress("dropped")
	}
}

// Point rewards the player for a legal set: score rises by one and a short
// freeze is applied. Only the dealer calls this.
func (p *Player) Point() {
	score := p.score.Add(1)
	p.freezeUntil.Store(time.Now().Add(p.pointFreeze).UnixMilli())
	p.setExamined(false)
	p.clearChosen()

	p.ui.SetScore(p.id, int(score))
	p.ui.SetFreeze(p.id, p.pointFreeze)
	RecordScore(p.id, int(score))
	RecordFreeze("point")
	p.logger.Debug().Int64("score", score).Msg("point awarded")
}

// Penalty freezes the player for claiming an illegal set. Only the dealer
// calls this.
func (p *Player) Penalty() {
	p.freezeUntil.Store(time.Now().Add(p.penaltyFreeze).UnixMilli())
	p.setExamined(false)
	p.clearChosen()

	p.ui.SetFreeze(p.id, p.penaltyFreeze)
	RecordFreeze("penalty")
	p.logger.Debug().Msg("penalty applied")
}

// clearChosen drains the pending key-press queue
func (p *Player) clearChosen() {
	for {
		select {
		case <-p.keys:
		default:
			return
		}
	}
}

// Start launches the player's action loop, and the key generator for
// non-human seats
func (p *Player) Start() {
	p.wg.Add(1)
	go p.run()

	if !p.human {
		p.wg.Add(1)
		go p.generate()
	}
}

// Terminate tells the agent to stop and wakes it
func (p *Player) Terminate() {
	p.terminated.Store(true)
	p.stopOnce.Do(func() { close(p.quit) })
}

// Join blocks until the agent's goroutines have exited
func (p *Player) Join() {
	p.wg.Wait()
}

// run is the action loop: dequeue a pending slot, and with the slot's writer
// lock held ask the dealer to toggle the token if the slot still shows a card.
func (p *Player) run() {
	defer p.wg.Done()
	p.logger.Debug().Msg("player loop started")

	for {
		select {
		case <-p.quit:
			p.logger.Debug().Msg("player loop stopped")
			return
		case slot := <-p.keys:
			p.table.LockSlot(slot, true)
			if p.table.Ready() && p.table.CardAt(slot) != NoCard {
				p.dealer.ToggleToken(p.id, slot)
			}
			p.table.UnlockSlot(slot, true)
		}
	}
}

// generate emits uniformly random slot presses until termination. The bounded
// queue and the admission predicate throttle it; the short sleep keeps a full
// queue from being hammered.
func (p *Player) generate() {
	defer p.wg.Done()
	p.logger.Debug().Msg("key generator started")

	for {
		select {
		case <-p.quit:
			p.logger.Debug().Msg("key generator stopped")
			return
		case <-time.After(generatorDelay):
			p.KeyPressed(p.rng.RandomInt(p.table.Size()))
		}
	}
}
