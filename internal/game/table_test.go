package game

import (
	"sync"
	"testing"
	"time"
)

func newTestTable() *Table {
	return NewTable(3, 4, 2, 81, NopUI{})
}

func TestPlaceCardBijection(t *testing.T) {
	table := newTestTable()

	table.PlaceCard(7, 3)

	if table.CardAt(3) != 7 {
		t.Errorf("Expected card 7 at slot 3, got %d", table.CardAt(3))
	}
	if table.SlotOf(7) != 3 {
		t.Errorf("Expected card 7 in slot 3, got %d", table.SlotOf(7))
	}
	if table.CountCards() != 1 {
		t.Errorf("Expected 1 card on table, got %d", table.CountCards())
	}
}

func TestRemoveCardClearsBothMappings(t *testing.T) {
	table := newTestTable()

	table.PlaceCard(7, 3)
	table.RemoveCard(3)

	if table.CardAt(3) != NoCard {
		t.Errorf("Expected empty slot 3, got card %d", table.CardAt(3))
	}
	if table.SlotOf(7) != NoCard {
		t.Errorf("Expected card 7 off the table, got slot %d", table.SlotOf(7))
	}
}

func TestRemoveCardEmptySlotIsNoop(t *testing.T) {
	table := newTestTable()
	table.RemoveCard(5)

	if table.CountCards() != 0 {
		t.Errorf("Expected empty table, got %d cards", table.CountCards())
	}
}

func TestRemoveCardClearsTokens(t *testing.T) {
	table := newTestTable()

	table.PlaceCard(7, 3)
	table.PlaceToken(0, 3)
	table.PlaceToken(1, 3)

	table.RemoveCard(3)

	if table.TokenCount(0) != 0 || table.TokenCount(1) != 0 {
		t.Errorf("Expected tokens cleared, got %d and %d", table.TokenCount(0), table.TokenCount(1))
	}
}

func TestTokenRoundTrip(t *testing.T) {
	table := newTestTable()
	table.PlaceCard(7, 3)

	if !table.PlaceToken(0, 3) {
		t.Fatal("Expected token to be placed")
	}
	if !table.HasToken(0, 3) {
		t.Error("Expected token on slot 3")
	}
	if !table.RemoveToken(0, 3) {
		t.Fatal("Expected token to be removed")
	}
	if table.HasToken(0, 3) {
		t.Error("Expected no token on slot 3")
	}
	if table.TokenCount(0) != 0 {
		t.Errorf("Expected 0 tokens, got %d", table.TokenCount(0))
	}
}

func TestPlaceTokenOnEmptySlotRejected(t *testing.T) {
	table := newTestTable()

	if table.PlaceToken(0, 3) {
		t.Error("Expected token on empty slot to be rejected")
	}
}

func TestRemoveAbsentTokenIsNoop(t *testing.T) {
	table := newTestTable()
	table.PlaceCard(7, 3)

	if table.RemoveToken(0, 3) {
		t.Error("Expected removal of absent token to report false")
	}
}

func TestTokensOfAscending(t *testing.T) {
	table := newTestTable()
	table.PlaceCard(1, 5)
	table.PlaceCard(2, 2)
	table.PlaceCard(3, 9)

	table.PlaceToken(0, 9)
	table.PlaceToken(0, 2)
	table.PlaceToken(0, 5)

	slots := table.TokensOf(0)
	expected := []int{2, 5, 9}
	if len(slots) != len(expected) {
		t.Fatalf("Expected %d tokens, got %d", len(expected), len(slots))
	}
	for i := range expected {
		if slots[i] != expected[i] {
			t.Errorf("Expected slot %d at %d, got %d", expected[i], i, slots[i])
		}
	}
}

func TestEmptySlots(t *testing.T) {
	table := newTestTable()
	table.PlaceCard(1, 0)
	table.PlaceCard(2, 11)

	empty := table.EmptySlots()
	if len(empty) != 10 {
		t.Errorf("Expected 10 empty slots, got %d", len(empty))
	}
	for _, s := range empty {
		if s == 0 || s == 11 {
			t.Errorf("Slot %d should not be empty", s)
		}
	}
}

func TestLockSlotsCollapsesDuplicates(t *testing.T) {
	table := newTestTable()

	ordered := table.LockSlots([]int{5, 2, 5, 9, 2}, true)
	defer table.UnlockSlots(ordered, true)

	expected := []int{2, 5, 9}
	if len(ordered) != len(expected) {
		t.Fatalf("Expected %d slots, got %d", len(expected), len(ordered))
	}
	for i := range expected {
		if ordered[i] != expected[i] {
			t.Errorf("Expected slot %d at %d, got %d", expected[i], i, ordered[i])
		}
	}
}

func TestLockSlotsNoDeadlockUnderContention(t *testing.T) {
	table := newTestTable()

	sets := [][]int{
		{0, 1, 2},
		{2, 1, 0},
		{1, 5, 2},
		{5, 0, 11},
		{11, 2, 0},
	}

	var wg sync.WaitGroup
	done := make(chan struct{})

	for _, slots := range sets {
		wg.Add(1)
		go func(slots []int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				ordered := table.LockSlots(slots, true)
				table.UnlockSlots(ordered, true)
			}
		}(slots)
	}

	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Lock contention did not resolve; likely deadlock")
	}
}

func TestReaderLocksAllowConcurrency(t *testing.T) {
	table := newTestTable()

	table.LockSlot(0, false)
	acquired := make(chan struct{})
	go func() {
		table.LockSlot(0, false)
		close(acquired)
		table.UnlockSlot(0, false)
	}()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("Second reader could not acquire slot lock")
	}
	table.UnlockSlot(0, false)
}

func TestReadyGate(t *testing.T) {
	table := newTestTable()

	if table.Ready() {
		t.Error("Table should start not ready")
	}
	table.SetReady(true)
	if !table.Ready() {
		t.Error("Table should be ready")
	}
	table.SetReady(false)
	if table.Ready() {
		t.Error("Table should not be ready")
	}
}
