package sequencer

import (
	"sync"
	"time"

	"github.com/Paree24/efflux-tracker/debug"
)

// Clock is the tick source driving the lookahead loop. It runs in its own
// goroutine so scheduling is never bound to a render cadence, and holds no
// musical state. Ticks are posted onto a buffered channel of capacity one:
// at most one tick is ever in flight, and a tick arriving while the previous
// one is unserviced coalesces into it. The next collect pass drains the full
// horizon either way.
type Clock struct {
	mu      sync.Mutex
	ticks   chan struct{}
	stop    chan struct{}
	running bool
}

// NewClock creates a stopped clock.
func NewClock() *Clock {
	return &Clock{
		ticks: make(chan struct{}, 1),
	}
}

// Ticks returns the channel tick notifications arrive on.
func (c *Clock) Ticks() <-chan struct{} {
	return c.ticks
}

// Start begins firing ticks at the given period. Starting a running clock
// restarts it with the new interval.
func (c *Clock) Start(interval time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		close(c.stop)
	}
	c.stop = make(chan struct{})
	c.running = true

	debug.Log(debug.Clock, "start interval=%s", interval)

	go func(stop chan struct{}) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				select {
				case c.ticks <- struct{}{}:
				default:
					// coalesce: a tick is already pending
				}
			}
		}
	}(c.stop)
}

// Stop ceases firing. Pending ticks already posted are left for the consumer
// to drain or ignore.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}
	close(c.stop)
	c.running = false
	debug.Log(debug.Clock, "stop")
}

// TickInterval derives the clock period from the schedule horizon so that
// roughly four ticks fit inside one horizon, guaranteeing it is refilled
// before draining.
func TickInterval(scheduleAheadTime float64) time.Duration {
	return time.Duration(scheduleAheadTime * 1000 / 4 * float64(time.Millisecond))
}
