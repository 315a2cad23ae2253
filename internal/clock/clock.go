// Package clock abstracts delayed callbacks so timed UI behaviour (banners
// that hide themselves, notifications that expire) can be driven by tests.
package clock

import (
	"sort"
	"sync"
	"time"
)

// Timer is the part of *time.Timer the application uses.
type Timer interface {
	Stop() bool
}

// Clock schedules f to run once after d.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Real is backed by time.AfterFunc.
type Real struct{}

func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Manual is a Clock whose time only moves when Advance is called.
// Callbacks run synchronously inside Advance, in deadline order.
type Manual struct {
	mu      sync.Mutex
	now     time.Duration
	pending []*manualTimer
}

type manualTimer struct {
	c        *Manual
	deadline time.Duration
	f        func()
	stopped  bool
}

func (t *manualTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func NewManual() *Manual {
	return &Manual{}
}

func (c *Manual) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{c: c, deadline: c.now + d, f: f}
	c.pending = append(c.pending, t)
	return t
}

// Advance moves time forward by d and fires every timer that came due.
func (c *Manual) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due, rest []*manualTimer
	for _, t := range c.pending {
		switch {
		case t.stopped:
		case t.deadline <= c.now:
			t.stopped = true
			due = append(due, t)
		default:
			rest = append(rest, t)
		}
	}
	c.pending = rest
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].deadline < due[j].deadline })
	for _, t := range due {
		t.f()
	}
}

// Pending reports how many timers are still waiting to fire.
func (c *Manual) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.pending {
		if !t.stopped {
			n++
		}
	}
	return n
}
