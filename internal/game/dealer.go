package game

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"set-platform/internal/config"
	"set-platform/internal/events"
	"set-platform/pkg/rng"
)

const (
	// interStartDelay spaces out player startup and shutdown
	interStartDelay = 10 * time.Millisecond

	// sleepPeriod is the dealer's idle poll interval
	sleepPeriod = time.Second

	// warningSleepPeriod is the poll interval inside the countdown warning window
	warningSleepPeriod = 10 * time.Millisecond
)

// SetJudge is the pure collaborator that owns card semantics. The dealer only
// ever asks it to test a combination or to find one.
type SetJudge interface {
	FeatureSize() int
	DeckSize() int
	TestSet(cards []int) bool
	FindSets(cards []int, limit int) [][]int
}

// Dealer is the single coordinator: it owns the deck, the claim queue, the
// round timer and the player agents. It validates claims, replenishes the
// table and announces the winners.
type Dealer struct {
	cfg    *config.GameConfig
	judge  SetJudge
	rng    *rng.System
	ui     UserInterface
	logger zerolog.Logger

	recorder events.Recorder
	gameID   string

	table   *Table
	players []*Player
	clock   *gameClock

	// deck is written only by the dealer under deckMu, which is ordered
	// after any slot locks
	deckMu sync.Mutex
	deck   []int

	// claims is the FIFO of players awaiting set evaluation; a send both
	// enqueues and wakes the dealer from its interruptible sleep
	claims chan int

	// pendingRemovals is touched only from the dealer goroutine
	pendingRemovals [][]int

	terminated atomic.Bool
	quit       chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

// NewDealer creates the dealer, its table and its player agents
func NewDealer(cfg *config.GameConfig, judge SetJudge, rngSystem *rng.System, ui UserInterface, recorder events.Recorder, logger zerolog.Logger) (*Dealer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid game config: %w", err)
	}
	if judge.FeatureSize() != cfg.FeatureSize {
		return nil, fmt.Errorf("judge feature size %d does not match config %d", judge.FeatureSize(), cfg.FeatureSize)
	}
	if ui == nil {
		ui = NopUI{}
	}
	if recorder == nil {
		recorder = events.Nop{}
	}

	d := &Dealer{
		cfg:      cfg,
		judge:    judge,
		rng:      rngSystem,
		ui:       ui,
		logger:   logger.With().Str("component", "dealer").Logger(),
		recorder: recorder,
		gameID:   uuid.NewString(),
		clock:    newGameClock(cfg),
		claims:   make(chan int, cfg.Players()*(cfg.FeatureSize+1)),
		quit:     make(chan struct{}),
	}

	d.table = NewTable(cfg.Rows, cfg.Columns, cfg.Players(), judge.DeckSize(), ui)

	d.deck = make([]int, judge.DeckSize())
	for i := range d.deck {
		d.deck[i] = i
	}

	d.players = make([]*Player, cfg.Players())
	for i := range d.players {
		p := NewPlayer(PlayerConfig{
			ID:            i,
			Human:         i < cfg.HumanPlayers,
			FeatureSize:   cfg.FeatureSize,
			PointFreeze:   time.Duration(cfg.PointFreezeMillis) * time.Millisecond,
			PenaltyFreeze: time.Duration(cfg.PenaltyFreezeMillis) * time.Millisecond,
		}, d.table, ui, rngSystem, logger)
		p.SetDealer(d)
		d.players[i] = p
	}

	return d, nil
}

// GameID returns the unique identifier of this game
func (d *Dealer) GameID() string {
	return d.gameID
}

// Table returns the shared table
func (d *Dealer) Table() *Table {
	return d.table
}

// Player returns the agent in the given seat, or nil
func (d *Dealer) Player(id int) *Player {
	if id < 0 || id >= len(d.players) {
		return nil
	}
	return d.players[id]
}

// Players returns all seats
func (d *Dealer) Players() []*Player {
	return d.players
}

// Terminated reports whether the dealer has been told to stop
func (d *Dealer) Terminated() bool {
	return d.terminated.Load()
}

// Start runs the dealer loop in its own goroutine
func (d *Dealer) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.Run()
	}()
}

// Stop terminates the game and waits for the dealer goroutine started by
// Start to exit
func (d *Dealer) Stop() {
	d.Terminate()
	d.wg.Wait()
}

// Terminate tells the dealer to stop and wakes it from its sleep. The dealer
// finishes its current phase, then shuts the players down in descending id
// order.
func (d *Dealer) Terminate() {
	d.terminated.Store(true)
	d.stopOnce.Do(func() { close(d.quit) })
}

// Run is the dealer's top-level loop. It blocks until the game is over and
// every player agent has been joined.
func (d *Dealer) Run() {
	d.logger.Info().Str("game_id", d.gameID).Str("mode", d.cfg.Mode().String()).Msg("game starting")
	d.recorder.Record(events.NewGameEvent(events.TypeGameStarted, d.gameID))

	d.startPlayers()

	for !d.shouldFinish() {
		d.placeCardsOnTable()
		d.timerLoop()
		d.removeAllCardsFromTable()
	}

	d.announceWinners()
	d.terminatePlayers()
	d.joinPlayers()

	event := events.NewGameEvent(events.TypeGameFinished, d.gameID)
	event.Winners = d.winners()
	d.recorder.Record(event)
	d.logger.Info().Ints("winners", event.Winners).Msg("game over")
}

// startPlayers launches the agents in ascending id order with a small delay
func (d *Dealer) startPlayers() {
	for _, p := range d.players {
		p.Start()
		time.Sleep(interStartDelay)
	}
}

// terminatePlayers flags the agents in descending id order with a small delay
func (d *Dealer) terminatePlayers() {
	for i := len(d.players) - 1; i >= 0; i-- {
		d.players[i].Terminate()
		time.Sleep(interStartDelay)
	}
	d.terminated.Store(true)
}

// joinPlayers waits for the agents in descending id order
func (d *Dealer) joinPlayers() {
	for i := len(d.players) - 1; i >= 0; i-- {
		d.players[i].Join()
	}
}

// shouldFinish reports whether the game is over: the dealer was terminated,
// or no legal set can be drawn from the deck and the table combined
func (d *Dealer) shouldFinish() bool {
	if d.terminated.Load() {
		return true
	}
	d.deckMu.Lock()
	remaining := append(append([]int(nil), d.deck...), d.table.CardsOnTable()...)
	d.deckMu.Unlock()
	return len(d.judge.FindSets(remaining, 1)) == 0
}

// timerLoop is one round: sleep until woken or timed out, examine claims,
// refresh the timer display, apply pending removals and refill the table,
// until the reshuffle deadline passes or the dealer is terminated.
func (d *Dealer) timerLoop() {
	roundStart := time.Now()

	for !d.terminated.Load() && time.Now().Before(d.clock.deadline()) {
		first := d.sleepUntilWokenOrTimeout()
		d.examineClaims(first)
		d.clock.update(false, time.Now(), d.ui, d.players)
		d.applyPendingRemovals()
		d.placeCardsOnTable()
	}

	RecordRound(time.Since(roundStart).Seconds())
}

// sleepUntilWokenOrTimeout parks the dealer for one poll period. A claim
// submission wakes it immediately; the woken claim is returned, or -1.
func (d *Dealer) sleepUntilWokenOrTimeout() int {
	period := sleepPeriod
	if d.clock.inWarning(time.Now()) {
		period = warningSleepPeriod
	}

	timer := time.NewTimer(period)
	defer timer.Stop()

	select {
	case player := <-d.claims:
		return player
	case <-timer.C:
	case <-d.quit:
	}
	return -1
}

// ToggleToken handles a player's token request for a slot. The calling player
// agent holds the slot's writer lock. A third token completes a claim: the
// player is enqueued and the dealer woken.
func (d *Dealer) ToggleToken(player, slot int) {
	if d.table.RemoveToken(player, slot) {
		return
	}

	count := d.table.TokenCount(player)
	if count >= d.judge.FeatureSize() {
		// Cannot mark beyond a full set
		return
	}
	if !d.table.PlaceToken(player, slot) {
		return
	}
	if count+1 == d.judge.FeatureSize() {
		p := d.players[player]
		p.setExamined(true)
		p.claimedAt.Store(time.Now().UnixNano())
		// Must not block: the caller holds a slot writer lock the
		// dealer may be waiting on
		select {
		case d.claims <- player:
		default:
			p.setExamined(false)
		}
	}
}

// examineClaims drains the claim queue in FIFO order, then gates the table
// while the dealer mutates it
func (d *Dealer) examineClaims(first int) {
	if first >= 0 {
		d.examineClaim(first)
	}
	for {
		select {
		case player := <-d.claims:
			d.examineClaim(player)
		default:
			d.table.SetReady(false)
			return
		}
	}
}

// examineClaim evaluates one player's claim under reader locks across the
// whole grid
func (d *Dealer) examineClaim(player int) {
	p := d.players[player]
	snapshot := d.table.TokensOf(player)
	latency := time.Duration(time.Now().UnixNano()-p.claimedAt.Load()).Seconds()

	d.table.LockAllSlots(false)
	defer d.table.UnlockAllSlots(false)

	if len(snapshot) != d.judge.FeatureSize() {
		// Tokens were lost to a prior removal; discard without penalty
		p.setExamined(false)
		RecordClaim("discarded", latency)
		event := events.NewGameEvent(events.TypeClaimDiscarded, d.gameID)
		event.Player = player
		event.Slots = snapshot
		d.recorder.Record(event)
		return
	}

	cards := make([]int, 0, len(snapshot))
	for _, slot := range snapshot {
		cards = append(cards, d.table.CardAt(slot))
	}

	if d.judge.TestSet(cards) {
		d.pendingRemovals = append(d.pendingRemovals, snapshot)
		for _, q := range d.players {
			for _, slot := range snapshot {
				if d.table.RemoveToken(q.ID(), slot) {
					q.setExamined(false)
				}
			}
		}
		p.Point()
		RecordClaim("accepted", latency)

		event := events.NewGameEvent(events.TypeClaimAccepted, d.gameID)
		event.Player = player
		event.Slots = snapshot
		event.Cards = cards
		event.Score = p.Score()
		d.recorder.Record(event)
		d.logger.Info().Int("player", player).Ints("cards", cards).Msg("legal set claimed")
	} else {
		p.Penalty()
		RecordClaim("rejected", latency)

		event := events.NewGameEvent(events.TypeClaimRejected, d.gameID)
		event.Player = player
		event.Slots = snapshot
		event.Cards = cards
		d.recorder.Record(event)
		d.logger.Info().Int("player", player).Ints("cards", cards).Msg("illegal set claimed")
	}
}

// applyPendingRemovals clears claimed slot triples from the table under
// writer locks and returns their cards to the deck. Cards go back to the deck
// in every mode; in countdown mode the round ends by timeout regardless.
func (d *Dealer) applyPendingRemovals() {
	for len(d.pendingRemovals) > 0 {
		slots := d.pendingRemovals[0]
		d.pendingRemovals = d.pendingRemovals[1:]

		ordered := d.table.LockSlots(slots, true)
		d.deckMu.Lock()
		for _, slot := range ordered {
			card := d.table.CardAt(slot)
			if card != NoCard {
				d.table.RemoveCard(slot)
				d.deck = append(d.deck, card)
			}
		}
		d.deckMu.Unlock()
		d.table.UnlockSlots(ordered, true)
	}

	CardsOnTable.Set(float64(d.table.CountCards()))
}

// placeCardsOnTable fills every empty slot from the deck under writer locks.
// Placement order and the deck itself are shuffled. In free-play and elapsed
// modes a table without a legal set forces an immediate reshuffle.
func (d *Dealer) placeCardsOnTable() {
	d.table.SetReady(false)

	empty := d.table.EmptySlots()
	ordered := d.table.LockSlots(empty, true)
	d.deckMu.Lock()

	shuffledSlots := append([]int(nil), ordered...)
	d.rng.Shuffle(shuffledSlots)
	d.rng.Shuffle(d.deck)

	placed := make([]int, 0, len(shuffledSlots))
	for _, slot := range shuffledSlots {
		if len(d.deck) == 0 {
			break
		}
		card := d.deck[0]
		d.deck = d.deck[1:]
		d.table.PlaceCard(card, slot)
		placed = append(placed, card)
	}

	DeckRemaining.Set(float64(len(d.deck)))
	d.deckMu.Unlock()
	d.table.UnlockSlots(ordered, true)

	CardsOnTable.Set(float64(d.table.CountCards()))

	if d.cfg.Mode() != config.ModeCountdown {
		if len(d.judge.FindSets(d.table.CardsOnTable(), 1)) == 0 {
			d.clock.forceReshuffle(time.Now())
		} else {
			d.clock.clearDeadline()
		}
	}

	if len(placed) > 0 && !d.shouldFinish() {
		d.clock.update(true, time.Now(), d.ui, d.players)
		if d.cfg.Hints {
			d.renderHints()
		}
		event := events.NewGameEvent(events.TypeCardsDealt, d.gameID)
		event.Cards = placed
		d.recorder.Record(event)
	}

	if delay := time.Duration(d.cfg.TableDelayMillis) * time.Millisecond; delay > 0 && len(placed) > 0 && !d.terminated.Load() {
		time.Sleep(delay)
	}

	d.table.SetReady(true)
}

// renderHints logs one legal set currently on the table
func (d *Dealer) renderHints() {
	sets := d.judge.FindSets(d.table.CardsOnTable(), 1)
	if len(sets) > 0 {
		d.logger.Info().Ints("cards", sets[0]).Msg("hint")
	}
}

// removeAllCardsFromTable clears the grid at round end under full-table
// writer locks, returning every card to the deck and flushing player queues
func (d *Dealer) removeAllCardsFromTable() {
	d.table.SetReady(false)

	d.table.LockAllSlots(true)
	d.deckMu.Lock()
	for slot := 0; slot < d.table.Size(); slot++ {
		card := d.table.CardAt(slot)
		if card != NoCard {
			d.table.RemoveCard(slot)
			d.deck = append(d.deck, card)
		}
	}
	d.deckMu.Unlock()
	d.table.UnlockAllSlots(true)

	d.ui.RemoveAllTokens()
	for _, p := range d.players {
		p.clearChosen()
	}

	CardsOnTable.Set(0)
	d.recorder.Record(events.NewGameEvent(events.TypeRoundReshuffled, d.gameID))
	d.logger.Debug().Msg("table cleared")
}

// winners returns every player whose score equals the maximum
func (d *Dealer) winners() []int {
	max := 0
	for _, p := range d.players {
		if p.Score() > max {
			max = p.Score()
		}
	}
	var ids []int
	for _, p := range d.players {
		if p.Score() == max {
			ids = append(ids, p.ID())
		}
	}
	return ids
}

// announceWinners pushes the final standings to the UI
func (d *Dealer) announceWinners() {
	winners := d.winners()
	d.ui.AnnounceWinners(winners)
	d.logger.Info().Ints("winners", winners).Msg("winners announced")
}
