package flows

import (
	"sort"
	"sync"
	"time"
)

// Clock schedules the countdown ticks and error auto-clear timers.
//
// Every runs f each d until stop is called. AfterFunc runs f once after d;
// its stop reports whether the call was prevented. Neither stop blocks.
type Clock interface {
	Now() time.Time
	Every(d time.Duration, f func()) (stop func())
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

// SystemClock is the wall-clock Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) Every(d time.Duration, f func()) func() {
	ticker := time.NewTicker(d)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case <-done:
					return
				default:
				}
				f()
			case <-done:
				return
			}
		}
	}()

	return func() {
		once.Do(func() { close(done) })
	}
}

func (SystemClock) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// ManualClock is a Clock driven by Advance. Callbacks run synchronously on
// the goroutine calling Advance, in deadline order.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	nextID uint64
	timers map[uint64]*manualTimer
}

type manualTimer struct {
	id     uint64
	at     time.Time
	period time.Duration
	f      func()
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{
		now:    start,
		timers: make(map[uint64]*manualTimer),
	}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Every(d time.Duration, f func()) func() {
	id := c.add(d, d, f)
	return func() { c.remove(id) }
}

func (c *ManualClock) AfterFunc(d time.Duration, f func()) func() bool {
	id := c.add(d, 0, f)
	return func() bool { return c.remove(id) }
}

// Pending returns the number of scheduled timers.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *ManualClock) add(after, period time.Duration, f func()) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.timers[c.nextID] = &manualTimer{
		id:     c.nextID,
		at:     c.now.Add(after),
		period: period,
		f:      f,
	}
	return c.nextID
}

func (c *ManualClock) remove(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.timers[id]; !ok {
		return false
	}
	delete(c.timers, id)
	return true
}

// Advance moves time forward by d, firing every timer that comes due.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDue(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.at
		if next.period > 0 {
			next.at = next.at.Add(next.period)
		} else {
			delete(c.timers, next.id)
		}
		f := next.f
		c.mu.Unlock()

		f()
	}
}

func (c *ManualClock) nextDue(target time.Time) *manualTimer {
	due := make([]*manualTimer, 0, len(c.timers))
	for _, t := range c.timers {
		if !t.at.After(target) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].at.Equal(due[j].at) {
			return due[i].id < due[j].id
		}
		return due[i].at.Before(due[j].at)
	})
	return due[0]
}
