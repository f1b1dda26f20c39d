package game

import (
	"time"

	"github.com/hailam/chesslink/internal/board"
)

// Clock tracks per-side remaining time for games created with a time
// control. Timestamps record when both seats first became occupied and
// when the last move landed.
type Clock struct {
	BothSeatedAt     *time.Time `json:"bothPlayersLastConnectedAt,omitempty"`
	LastMoveAt       *time.Time `json:"lastMoveAt,omitempty"`
	WhiteSecondsLeft int        `json:"whiteSecondsLeft"`
	BlackSecondsLeft int        `json:"blackSecondsLeft"`
}

// NewClock returns a clock with both counters at the given allowance.
func NewClock(secondsPerPlayer int) *Clock {
	return &Clock{
		WhiteSecondsLeft: secondsPerPlayer,
		BlackSecondsLeft: secondsPerPlayer,
	}
}

// Clone returns a deep copy.
func (c *Clock) Clone() *Clock {
	if c == nil {
		return nil
	}
	cp := *c
	if c.BothSeatedAt != nil {
		t := *c.BothSeatedAt
		cp.BothSeatedAt = &t
	}
	if c.LastMoveAt != nil {
		t := *c.LastMoveAt
		cp.LastMoveAt = &t
	}
	return &cp
}

// SecondsLeft returns the remaining seconds for a side.
func (c *Clock) SecondsLeft(side board.Color) int {
	if side == board.White {
		return c.WhiteSecondsLeft
	}
	return c.BlackSecondsLeft
}

// Zero empties a side's counter.
func (c *Clock) Zero(side board.Color) {
	c.setSeconds(side, 0)
}

func (c *Clock) setSeconds(side board.Color, seconds int) {
	if side == board.White {
		c.WhiteSecondsLeft = seconds
	} else {
		c.BlackSecondsLeft = seconds
	}
}

// Decrement charges the side to move for the time elapsed since the
// later of both-seated and last-move, saturating at zero. It reports
// whether the side's flag fell; on survival the last-move timestamp
// advances to now.
func (c *Clock) Decrement(side board.Color, now time.Time) bool {
	anchor := c.BothSeatedAt
	if c.LastMoveAt != nil && (anchor == nil || c.LastMoveAt.After(*anchor)) {
		anchor = c.LastMoveAt
	}
	if anchor == nil {
		return false
	}

	elapsed := int(now.Sub(*anchor).Seconds())
	if elapsed < 0 {
		elapsed = 0
	}

	remaining := c.SecondsLeft(side) - elapsed
	if remaining <= 0 {
		c.setSeconds(side, 0)
		return true
	}

	c.setSeconds(side, remaining)
	moveAt := now
	c.LastMoveAt = &moveAt
	return false
}

// DecrementBy charges a side a fixed number of seconds, saturating at
// zero, without touching the timestamps. Used to bill the engine for
// its search time.
func (c *Clock) DecrementBy(side board.Color, seconds int) bool {
	remaining := c.SecondsLeft(side) - seconds
	if remaining <= 0 {
		c.setSeconds(side, 0)
		return true
	}
	c.setSeconds(side, remaining)
	return false
}
