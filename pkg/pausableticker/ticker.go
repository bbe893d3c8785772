package pausableticker

import (
	"time"

	"github.com/sasha-s/go-deadlock"
	"go.uber.org/atomic"
)

// Ticker behaves like a time.Ticker that can be paused. Ticks that arrive
// while paused, or while the consumer has not yet received the previous
// tick, are dropped.
type Ticker struct {
	C <-chan time.Time // The channel on which the ticks are delivered.

	mutex   deadlock.Mutex
	period  time.Duration
	paused  atomic.Bool
	stopped bool
	stop    chan struct{}
	done    chan struct{}
	ticker  *time.Ticker
}

func New(d time.Duration) *Ticker {
	c := make(chan time.Time, 1)

	t := &Ticker{
		C:      c,
		period: d,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		ticker: time.NewTicker(d),
	}

	go t.run(c)

	return t
}

func (t *Ticker) run(c chan<- time.Time) {
	defer close(t.done)

	for {
		select {
		case now := <-t.ticker.C:
			if t.paused.Load() {
				continue
			}

			select {
			case c <- now:
			default:
			}
		case <-t.stop:
			return
		}
	}
}

func (t *Ticker) Period() time.Duration {
	return t.period
}

func (t *Ticker) Pause() {
	t.paused.Store(true)
}

func (t *Ticker) Paused() bool {
	return t.paused.Load()
}

// Resume restarts ticking with a full period before the next tick.
func (t *Ticker) Resume() {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.stopped || !t.paused.Load() {
		return
	}

	t.ticker.Reset(t.period)
	t.paused.Store(false)
}

// Stop waits for the delivery goroutine to exit. It is safe to call more than
// once.
func (t *Ticker) Stop() {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.stopped {
		return
	}

	t.stopped = true
	close(t.stop)
	<-t.done
	t.ticker.Stop()
}

func (t *Ticker) Stopped() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.stopped
}
