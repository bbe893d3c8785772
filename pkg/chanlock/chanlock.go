package chanlock

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sasha-s/go-deadlock"
)

// Chanlock reports event loops that stop draining their channels. The loop
// selects on the channel returned by Poll; if a health tick is not received
// within the timeout the last mark is logged.
type Chanlock struct {
	log      zerolog.Logger
	timeout  time.Duration
	interval time.Duration
	lastMark string
	mutex    deadlock.RWMutex
}

const (
	TIMEOUT_DURATION      = 15 * time.Second
	HEALTH_CHECK_DURATION = 1 * time.Second
)

func New(logger zerolog.Logger) *Chanlock {
	return NewWithTimeout(logger, HEALTH_CHECK_DURATION, TIMEOUT_DURATION)
}

func NewWithTimeout(logger zerolog.Logger, interval, timeout time.Duration) *Chanlock {
	return &Chanlock{
		log:      logger,
		interval: interval,
		timeout:  timeout,
	}
}

// Mark records what the loop is about to do.
func (c *Chanlock) Mark(name string) {
	c.mutex.Lock()
	c.lastMark = name
	c.mutex.Unlock()
}

func (c *Chanlock) LastMark() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.lastMark
}

func (c *Chanlock) Poll(ctx context.Context) <-chan time.Time {
	out := make(chan time.Time)

	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case t := <-ticker.C:
				ok := make(chan struct{})
				go c.watch(ctx, ok)

				select {
				case out <- t:
					close(ok)
				case <-ctx.Done():
					close(ok)
					return
				}
				c.Mark("")
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

func (c *Chanlock) watch(ctx context.Context, ok <-chan struct{}) {
	timeout := time.NewTimer(c.timeout)
	defer timeout.Stop()

	select {
	case <-ctx.Done():
	case <-ok:
	case <-timeout.C:
		c.log.Error().Msg("event loop no longer healthy")

		if mark := c.LastMark(); mark != "" {
			c.log.Error().Msgf("last mark: %s", mark)
		}
	}
}
