package game

import (
	"sort"
	"sync"
	"sync/atomic"
)

// NoCard marks an empty slot or an undealt card
const NoCard = -1

// Table is the authoritative store of the slot-card bijection and of player
// tokens. Card-level mutations happen under per-slot writer locks; claim
// examination takes reader locks across the whole grid.
type Table struct {
	rows    int
	columns int

	slotLocks  []sync.RWMutex
	slotToCard []int
	cardToSlot []int

	// tokens[player][slot]; guarded by tokensMu so token counts stay
	// consistent while only a single slot lock is held
	tokensMu sync.Mutex
	tokens   [][]bool
	counts   []int

	ready atomic.Bool

	ui UserInterface
}

// NewTable creates an empty table for the given grid, player count and deck size
func NewTable(rows, columns, players, deckSize int, ui UserInterface) *Table {
	size := rows * columns
	t := &Table{
		rows:       rows,
		columns:    columns,
		slotLocks:  make([]sync.RWMutex, size),
		slotToCard: make([]int, size),
		cardToSlot: make([]int, deckSize),
		tokens:     make([][]bool, players),
		counts:     make([]int, players),
		ui:         ui,
	}
	for i := range t.slotToCard {
		t.slotToCard[i] = NoCard
	}
	for i := range t.cardToSlot {
		t.cardToSlot[i] = NoCard
	}
	for p := range t.tokens {
		t.tokens[p] = make([]bool, size)
	}
	return t
}

// Size returns the number of slots on the table
func (t *Table) Size() int {
	return len(t.slotToCard)
}

// Ready reports whether key presses may currently translate into token actions
func (t *Table) Ready() bool {
	return t.ready.Load()
}

// SetReady gates or ungates key-press handling. Only the dealer writes this.
func (t *Table) SetReady(ready bool) {
	t.ready.Store(ready)
}

// PlaceCard establishes the slot-card mapping. The slot and the card must both
// be unmapped; callers hold the slot's writer lock.
func (t *Table) PlaceCard(card, slot int) {
	t.slotToCard[slot] = card
	t.cardToSlot[card] = slot
	t.ui.PlaceCard(card, slot)
}

// RemoveCard clears the slot-card mapping and every token on the slot.
// Callers hold the slot's writer lock. Removing an empty slot is a no-op.
func (t *Table) RemoveCard(slot int) {
	card := t.slotToCard[slot]
	if card == NoCard {
		return
	}
	t.slotToCard[slot] = NoCard
	t.cardToSlot[card] = NoCard

	t.tokensMu.Lock()
	for p := range t.tokens {
		if t.tokens[p][slot] {
			t.tokens[p][slot] = false
			t.counts[p]--
		}
	}
	t.tokensMu.Unlock()

	t.ui.RemoveTokens(slot)
	t.ui.RemoveCard(slot)
}

// CardAt returns the card in the slot, or NoCard
func (t *Table) CardAt(slot int) int {
	return t.slotToCard[slot]
}

// SlotOf returns the slot holding the card, or NoCard
func (t *Table) SlotOf(card int) int {
	return t.cardToSlot[card]
}

// PlaceToken marks the slot for the player. Placing on an empty slot or an
// already-marked slot is a no-op; reports whether a token was placed.
func (t *Table) PlaceToken(player, slot int) bool {
	if t.slotToCard[slot] == NoCard {
		return false
	}
	t.tokensMu.Lock()
	if t.tokens[player][slot] {
		t.tokensMu.Unlock()
		return false
	}
	t.tokens[player][slot] = true
	t.counts[player]++
	t.tokensMu.Unlock()

	t.ui.PlaceToken(player, slot)
	return true
}

// RemoveToken clears the player's token from the slot; no-op if absent.
// Reports whether a token was removed.
func (t *Table) RemoveToken(player, slot int) bool {
	t.tokensMu.Lock()
	if !t.tokens[player][slot] {
		t.tokensMu.Unlock()
		return false
	}
	t.tokens[player][slot] = false
	t.counts[player]--
	t.tokensMu.Unlock()

	t.ui.RemoveToken(player, slot)
	return true
}

// HasToken reports whether the player has a token on the slot
func (t *Table) HasToken(player, slot int) bool {
	t.tokensMu.Lock()
	defer t.tokensMu.Unlock()
	return t.tokens[player][slot]
}

// TokenCount returns the number of tokens the player currently holds
func (t *Table) TokenCount(player int) int {
	t.tokensMu.Lock()
	defer t.tokensMu.Unlock()
	return t.counts[player]
}

// TokensOf returns the slots marked by the player, ascending
func (t *Table) TokensOf(player int) []int {
	t.tokensMu.Lock()
	defer t.tokensMu.Unlock()

	var slots []int
	for slot, marked := range t.tokens[player] {
		if marked {
			slots = append(slots, slot)
		}
	}
	return slots
}

// CountCards returns the number of non-empty slots
func (t *Table) CountCards() int {
	count := 0
	for _, card := range t.slotToCard {
		if card != NoCard {
			count++
		}
	}
	return count
}

// EmptySlots returns the slots holding no card, ascending
func (t *Table) EmptySlots() []int {
	var slots []int
	for slot, card := range t.slotToCard {
		if card == NoCard {
			slots = append(slots, slot)
		}
	}
	return slots
}

// CardsOnTable returns every card currently placed, in slot order
func (t *Table) CardsOnTable() []int {
	var cards []int
	for _, card := range t.slotToCard {
		if card != NoCard {
			cards = append(cards, card)
		}
	}
	return cards
}

// LockSlot acquires a single slot lock
func (t *Table) LockSlot(slot int, writer bool) {
	if writer {
		t.slotLocks[slot].Lock()
	} else {
		t.slotLocks[slot].RLock()
	}
}

// UnlockSlot releases a single slot lock
func (t *Table) UnlockSlot(slot int, writer bool) {
	if writer {
		t.slotLocks[slot].Unlock()
	} else {
		t.slotLocks[slot].RUnlock()
	}
}

// LockSlots acquires the given slot locks in ascending slot order. Duplicate
// slots collapse. Returns the ordered distinct slots for the matching unlock.
func (t *Table) LockSlots(slots []int, writer bool) []int {
	ordered := distinctAscending(slots)
	for _, slot := range ordered {
		t.LockSlot(slot, writer)
	}
	return ordered
}

// UnlockSlots releases locks acquired by LockSlots, in descending order
func (t *Table) UnlockSlots(ordered []int, writer bool) {
	for i := len(ordered) - 1; i >= 0; i-- {
		t.UnlockSlot(ordered[i], writer)
	}
}

// LockAllSlots acquires every slot lock, ascending
func (t *Table) LockAllSlots(writer bool) {
	for slot := range t.slotLocks {
		t.LockSlot(slot, writer)
	}
}

// UnlockAllSlots releases every slot lock, descending
func (t *Table) UnlockAllSlots(writer bool) {
	for slot := len(t.slotLocks) - 1; slot >= 0; slot-- {
		t.UnlockSlot(slot, writer)
	}
}

func distinctAscending(slots []int) []int {
	seen := make(map[int]bool, len(slots))
	var ordered []int
	for _, s := range slots {
		if !seen[s] {
			seen[s] = true
			ordered = append(ordered, s)
		}
	}
	sort.Ints(ordered)
	return ordered
}
