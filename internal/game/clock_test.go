package game

import (
	"testing"
	"time"

	"set-platform/internal/config"
)

func countdownConfig() *config.GameConfig {
	cfg := config.Default()
	cfg.TurnTimeoutMillis = 60000
	cfg.TurnTimeoutWarningMillis = 5000
	return cfg
}

func TestClockCountdownReset(t *testing.T) {
	clock := newGameClock(countdownConfig())
	ui := newRecordUI()
	now := time.Now()

	clock.update(true, now, ui, nil)

	expected := now.Add(60 * time.Second)
	if !clock.deadline().Equal(expected) {
		t.Errorf("Expected deadline %v, got %v", expected, clock.deadline())
	}
	if len(ui.countdown) != 1 {
		t.Fatalf("Expected one countdown emission, got %d", len(ui.countdown))
	}
	if ui.warns[0] {
		t.Error("Fresh countdown should not warn")
	}
}

func TestClockCountdownResetClearsFreezes(t *testing.T) {
	clock := newGameClock(countdownConfig())
	p, _ := newTestPlayer(t, NopUI{})
	p.freezeUntil.Store(time.Now().Add(time.Hour).UnixMilli())

	clock.update(true, time.Now(), NopUI{}, []*Player{p})

	if p.Frozen(time.Now()) {
		t.Error("Countdown reset should clear player freezes")
	}
}

func TestClockWarningWindow(t *testing.T) {
	clock := newGameClock(countdownConfig())
	ui := newRecordUI()
	now := time.Now()

	clock.reshuffleAt = now.Add(3 * time.Second)

	if !clock.inWarning(now) {
		t.Error("Expected warning window at 3s remaining")
	}

	clock.update(false, now, ui, nil)
	if len(ui.warns) != 1 || !ui.warns[0] {
		t.Error("Expected countdown emission with warn flag")
	}
}

func TestClockCountdownNeverNegative(t *testing.T) {
	clock := newGameClock(countdownConfig())
	ui := newRecordUI()
	now := time.Now()

	clock.reshuffleAt = now.Add(-time.Second)
	clock.update(false, now, ui, nil)

	if ui.countdown[0] != 0 {
		t.Errorf("Expected countdown clamped at zero, got %v", ui.countdown[0])
	}
}

func TestClockElapsed(t *testing.T) {
	cfg := config.Default()
	cfg.TurnTimeoutMillis = 0
	clock := newGameClock(cfg)
	ui := newRecordUI()
	now := time.Now()

	clock.update(true, now, ui, nil)
	clock.update(false, now.Add(7*time.Second), ui, nil)

	if len(ui.elapsed) != 2 {
		t.Fatalf("Expected two elapsed emissions, got %d", len(ui.elapsed))
	}
	if ui.elapsed[0] != 0 {
		t.Errorf("Expected zero elapsed on reset, got %v", ui.elapsed[0])
	}
	if ui.elapsed[1] != 7*time.Second {
		t.Errorf("Expected 7s elapsed, got %v", ui.elapsed[1])
	}
	if len(ui.countdown) != 0 {
		t.Error("Elapsed mode should not emit a countdown")
	}
}

func TestClockFreePlayEmitsNoTimer(t *testing.T) {
	cfg := config.Default()
	cfg.TurnTimeoutMillis = -1
	clock := newGameClock(cfg)
	ui := newRecordUI()

	clock.update(true, time.Now(), ui, nil)

	if len(ui.countdown) != 0 || len(ui.elapsed) != 0 {
		t.Error("Free play should emit neither countdown nor elapsed")
	}
}

func TestClockForceReshuffle(t *testing.T) {
	cfg := config.Default()
	cfg.TurnTimeoutMillis = -1
	clock := newGameClock(cfg)
	now := time.Now()

	if !clock.deadline().After(now.Add(time.Hour)) {
		t.Error("Expected no deadline initially")
	}

	clock.forceReshuffle(now)
	if clock.deadline().After(now) {
		t.Error("Expected deadline moved to now")
	}

	clock.clearDeadline()
	if !clock.deadline().After(now.Add(time.Hour)) {
		t.Error("Expected deadline cleared")
	}
}

func TestClockFreezeDisplayRoundsUp(t *testing.T) {
	clock := newGameClock(countdownConfig())
	ui := newRecordUI()
	p, _ := newTestPlayer(t, NopUI{})
	now := time.Now()

	// 6.5 seconds of freeze is outside the 5s warning window
	p.freezeUntil.Store(now.Add(6500 * time.Millisecond).UnixMilli())
	clock.update(false, now, ui, []*Player{p})

	ui.mu.Lock()
	shown := ui.freezes[0]
	ui.mu.Unlock()

	if shown%time.Second != 0 {
		t.Errorf("Expected whole-second freeze display, got %v", shown)
	}
	if shown < 6500*time.Millisecond {
		t.Errorf("Expected freeze rounded up, got %v", shown)
	}
}
