package session

import (
	"sync"
	"time"
)

// Countdown is a cancellable one-second-resolution countdown with a single
// expiration callback. It knows nothing about exam semantics.
//
// At most one run is active per Countdown: Start always cancels the previous
// run before scheduling a new one, so callers cannot end up with two tickers
// decrementing (and auto-submitting) concurrently.
type Countdown struct {
	mu        sync.Mutex
	interval  time.Duration
	remaining int
	stop      chan struct{}
	running   bool
}

// NewCountdown creates an idle Countdown ticking once per second.
func NewCountdown() *Countdown {
	return &Countdown{interval: time.Second}
}

// newCountdownInterval is used by tests to run the clock faster.
func newCountdownInterval(interval time.Duration) *Countdown {
	return &Countdown{interval: interval}
}

// Start begins a countdown of the given number of seconds. Any previous run
// is cancelled first. onTick is invoked after every elapsed interval with the
// remaining count; onExpire is invoked exactly once when the count reaches
// zero, after which the countdown stops itself. Either callback may be nil.
// Starting with zero or negative seconds fires onExpire immediately.
func (c *Countdown) Start(seconds int, onTick func(remaining int), onExpire func()) {
	c.mu.Lock()
	c.cancelLocked()

	if seconds <= 0 {
		c.remaining = 0
		c.mu.Unlock()
		// Fire asynchronously so a caller holding its own lock while
		// starting an already-expired countdown cannot deadlock on the
		// expiration callback.
		if onExpire != nil {
			go onExpire()
		}
		return
	}

	stop := make(chan struct{})
	c.stop = stop
	c.running = true
	c.remaining = seconds
	c.mu.Unlock()

	go c.run(stop, onTick, onExpire)
}

func (c *Countdown) run(stop chan struct{}, onTick func(int), onExpire func()) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			// A Cancel or restart may have raced the tick.
			if c.stop != stop {
				c.mu.Unlock()
				return
			}
			c.remaining--
			remaining := c.remaining
			if remaining <= 0 {
				c.remaining = 0
				c.running = false
				c.stop = nil
				c.mu.Unlock()
				if onTick != nil {
					onTick(0)
				}
				if onExpire != nil {
					onExpire()
				}
				return
			}
			c.mu.Unlock()
			if onTick != nil {
				onTick(remaining)
			}
		}
	}
}

// Cancel stops the active run, if any. No callbacks fire after Cancel returns
// observable effect (a tick racing Cancel is discarded by the run loop).
func (c *Countdown) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
}

func (c *Countdown) cancelLocked() {
	if c.running {
		close(c.stop)
		c.stop = nil
		c.running = false
	}
}

// Remaining returns the seconds left in the current or last run. Never
// negative.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Active reports whether a run is currently in progress.
func (c *Countdown) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
