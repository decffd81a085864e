package flows

import (
	"fmt"
	"sync"
	"time"
)

// Countdown decrements a remaining-seconds value once per tick until it
// reaches zero. Starting a new countdown cancels the previous one; ticks of
// a cancelled run are ignored.
type Countdown struct {
	clock Clock
	tick  time.Duration

	mu        sync.Mutex
	gen       uint64
	total     int
	remaining int
	stop      func()
}

func NewCountdown(clock Clock, tick time.Duration) *Countdown {
	if clock == nil {
		clock = SystemClock{}
	}
	if tick <= 0 {
		tick = time.Second
	}
	return &Countdown{clock: clock, tick: tick}
}

// Start seeds the countdown with seconds. A non-positive value leaves it
// expired.
func (c *Countdown) Start(seconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLocked()
	if seconds < 0 {
		seconds = 0
	}
	c.total = seconds
	c.remaining = seconds
	if seconds == 0 {
		return
	}

	gen := c.gen
	c.stop = c.clock.Every(c.tick, func() { c.onTick(gen) })
}

func (c *Countdown) onTick(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || c.remaining <= 0 {
		return
	}
	c.remaining--
	if c.remaining == 0 {
		c.cancelLocked()
	}
}

// Stop cancels the running countdown and resets it to zero.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
	c.total = 0
	c.remaining = 0
}

func (c *Countdown) cancelLocked() {
	c.gen++
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
}

func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

func (c *Countdown) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Expired reports whether the countdown has reached zero.
func (c *Countdown) Expired() bool {
	return c.Remaining() == 0
}

// Running reports whether ticks are still scheduled.
func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop != nil
}

// FormatRemaining renders seconds as mm:ss, or "expired" at zero.
func FormatRemaining(seconds int) string {
	if seconds <= 0 {
		return "expired"
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
