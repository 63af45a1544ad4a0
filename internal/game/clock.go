package game

import (
	"time"

	"set-platform/internal/config"
)

// farFuture stands in for "no reshuffle deadline"
var farFuture = time.Now().Add(100 * 365 * 24 * time.Hour)

// gameClock is the dealer's round timer. It owns the reshuffle deadline and
// pushes countdown, elapsed-time and freeze displays to the UI. Only the
// dealer goroutine touches it.
type gameClock struct {
	mode        config.Mode
	turnTimeout time.Duration
	warning     time.Duration

	reshuffleAt time.Time
	elapsedBase time.Time
}

func newGameClock(cfg *config.GameConfig) *gameClock {
	return &gameClock{
		mode:        cfg.Mode(),
		turnTimeout: cfg.TurnTimeout(),
		warning:     time.Duration(cfg.TurnTimeoutWarningMillis) * time.Millisecond,
		reshuffleAt: farFuture,
		elapsedBase: time.Now(),
	}
}

// deadline returns the current reshuffle deadline
func (c *gameClock) deadline() time.Time {
	return c.reshuffleAt
}

// forceReshuffle moves the deadline to now, ending the round
func (c *gameClock) forceReshuffle(now time.Time) {
	c.reshuffleAt = now
}

// clearDeadline removes the reshuffle deadline
func (c *gameClock) clearDeadline() {
	c.reshuffleAt = farFuture
}

// inWarning reports whether the countdown is inside the warning window, where
// the dealer polls every 10ms instead of every second
func (c *gameClock) inWarning(now time.Time) bool {
	if c.mode != config.ModeCountdown {
		return false
	}
	return c.reshuffleAt.Sub(now) <= c.warning
}

// update pushes freeze displays for every player and the mode's timer to the
// UI. With reset, the countdown restarts (clearing freezes) or the elapsed
// base moves to now.
func (c *gameClock) update(reset bool, now time.Time, ui UserInterface, players []*Player) {
	for _, p := range players {
		remaining := p.FreezeRemaining(now)
		if remaining > c.warning {
			// Round up to whole seconds outside the warning window
			remaining = (remaining + time.Second - 1).Truncate(time.Second)
		}
		ui.SetFreeze(p.ID(), remaining)
	}

	switch c.mode {
	case config.ModeCountdown:
		if reset {
			c.reshuffleAt = now.Add(c.turnTimeout)
			for _, p := range players {
				p.ClearFreeze()
			}
		}
		remaining := c.reshuffleAt.Sub(now)
		if remaining < 0 {
			remaining = 0
		}
		ui.SetCountdown(remaining, remaining <= c.warning)
	case config.ModeElapsed:
		if reset {
			c.elapsedBase = now
		}
		ui.SetElapsed(now.Sub(c.elapsedBase))
	case config.ModeFreePlay:
		// No timer display
	}
}
