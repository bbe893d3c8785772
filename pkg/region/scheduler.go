package region

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/atomic"

	"github.com/periscope-sim/periscope/pkg/agent"
	"github.com/periscope-sim/periscope/pkg/locomotion"
	"github.com/periscope-sim/periscope/pkg/pausableticker"
	"github.com/periscope-sim/periscope/pkg/scene"
)

// Clock returns monotonic milliseconds.
type Clock func() int64

func monotonicClock() Clock {
	start := time.Now()
	return func() int64 {
		// Offset so that the first reading is never zero.
		return time.Since(start).Milliseconds() + 1
	}
}

// Scheduler runs the locomotion step for every eligible agent once per tick.
type Scheduler struct {
	store      *agent.Store
	scene      scene.Scene
	tuning     locomotion.Tuning
	regionSize float32
	clock      Clock
	lastTick   atomic.Int64
	ticks      atomic.Int64

	mutex   deadlock.Mutex
	master  uuid.UUID
	ticker  *pausableticker.Ticker
	stop    chan struct{}
	done    chan struct{}
	err     error
	started bool
	stopped bool

	log zerolog.Logger
}

func NewScheduler(store *agent.Store, scene scene.Scene, tuning locomotion.Tuning, regionSize float32) *Scheduler {
	s := &Scheduler{
		store:      store,
		scene:      scene,
		tuning:     tuning,
		regionSize: regionSize,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		log:        log.With().Str("component", "scheduler").Logger(),
	}
	s.SetClock(monotonicClock())
	return s
}

// SetClock replaces the clock and restarts elapsed time measurement from its
// current reading. It must be called before Start.
func (s *Scheduler) SetClock(clock Clock) {
	s.clock = clock
	s.lastTick.Store(clock())
}

func (s *Scheduler) SetMaster(id uuid.UUID) {
	s.mutex.Lock()
	s.master = id
	s.mutex.Unlock()
}

func (s *Scheduler) Master() uuid.UUID {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.master
}

func (s *Scheduler) Tuning() locomotion.Tuning {
	return s.tuning
}

// Ticks is the number of completed firings.
func (s *Scheduler) Ticks() int64 {
	return s.ticks.Load()
}

// Fire runs a single tick. Only one firing may be in progress at a time; once
// Start was called the scheduler's own goroutine is the only caller.
func (s *Scheduler) Fire() {
	now := s.clock()
	last := s.lastTick.Swap(now)

	elapsed := float32(now-last) / 1000
	if elapsed < 0 {
		elapsed = 0
	}

	input := locomotion.Input{
		Elapsed:    elapsed,
		Now:        now,
		RegionSize: s.regionSize,
		Env:        s.scene,
	}

	master := s.Master()
	for _, handle := range s.store.Snapshot() {
		s.stepAgent(handle, master, input)
	}

	s.ticks.Inc()
}

func (s *Scheduler) stepAgent(handle agent.Handle, master uuid.UUID, input locomotion.Input) {
	var identity agent.Identity

	defer func() {
		if r := recover(); r != nil {
			s.log.Error().
				Str("agent", identity.String()).
				Str("handle", handle.String()).
				Msgf("locomotion step panicked: %v", r)
		}
	}()

	var (
		stepped bool
		result  locomotion.Result
		body    agent.Body
	)

	err := s.store.Simulate(handle, func(id agent.Identity, control agent.Control, b *agent.Body) {
		identity = id
		if id.Foreign() || id.ID == master {
			return
		}

		result = locomotion.Step(s.tuning, control, b, input)
		body = *b
		stepped = true
	})
	if err != nil {
		// Detached since the snapshot was taken.
		return
	}

	if !stepped {
		return
	}

	if result.Aborted {
		s.log.Debug().Str("agent", identity.String()).Msg("jump aborted")
	}

	if result.Animation != uuid.Nil && s.scene.SetDefaultAnimation(identity.ID, result.Animation) {
		s.scene.FlushAnimations(identity.ID)
	}

	// A no-op if the agent was detached after Simulate released it.
	s.scene.UpdateObject(scene.Object{
		ID:           identity.ID,
		Position:     body.Position,
		Velocity:     body.Velocity,
		Acceleration: body.Acceleration,
	}, scene.UpdateKinematic)
}

// Start begins firing on the tuning's tick period. The scheduler stops when ctx
// is cancelled, Stop is called or the loop crashes.
func (s *Scheduler) Start(ctx context.Context) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.started {
		return
	}
	s.started = true

	period := s.tuning.TickPeriod
	if period <= 0 {
		period = locomotion.DefaultTuning().TickPeriod
	}

	s.ticker = pausableticker.New(period)
	s.lastTick.Store(s.clock())

	go s.run(ctx, s.ticker)
}

func (s *Scheduler) run(ctx context.Context, ticker *pausableticker.Ticker) {
	defer close(s.done)
	defer ticker.Stop()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("scheduler crashed: %v", r)
			s.log.Error().Err(err).Msg("region simulation stopped")

			hub := sentry.CurrentHub().Clone()
			hub.ConfigureScope(func(scope *sentry.Scope) {
				scope.SetTag("component", "scheduler")
			})
			hub.Recover(err)
			hub.Flush(time.Second * 5)

			s.mutex.Lock()
			s.err = err
			s.mutex.Unlock()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			if ticker.Paused() {
				continue
			}
			s.Fire()
		}
	}
}

// Pause suspends firing. Agents keep their state.
func (s *Scheduler) Pause() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.ticker != nil {
		s.ticker.Pause()
	}
}

// Resume continues firing. The paused interval is not integrated: the next
// firing measures elapsed time from now.
func (s *Scheduler) Resume() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.ticker == nil {
		return
	}

	s.lastTick.Store(s.clock())
	s.ticker.Resume()
}

func (s *Scheduler) Paused() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.ticker != nil && s.ticker.Paused()
}

// Stop ends the loop and waits for an in-flight firing to finish.
func (s *Scheduler) Stop() {
	s.mutex.Lock()
	if !s.started {
		s.started = true
		s.stopped = true
		close(s.stop)
		close(s.done)
		s.mutex.Unlock()
		return
	}
	if !s.stopped {
		s.stopped = true
		close(s.stop)
	}
	s.mutex.Unlock()

	<-s.done
}

// Done is closed once the loop has exited.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Err is non-nil if the loop exited because it crashed.
func (s *Scheduler) Err() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.err
}
