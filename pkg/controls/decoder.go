package controls

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/repeale/fp-go/option"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"

	"github.com/periscope-sim/periscope/pkg/agent"
	"github.com/periscope-sim/periscope/pkg/chanlock"
	"github.com/periscope-sim/periscope/pkg/locomotion"
	"github.com/periscope-sim/periscope/pkg/scene"
)

const DEFAULT_QUEUE_CAPACITY = 1024

// Decoder applies inbound control events to the agent store. Events are
// queued by Submit and consumed by a single Poll goroutine, so updates for one
// agent are applied in the order they were submitted.
type Decoder struct {
	store  *agent.Store
	scene  scene.Scene
	events chan Event

	dropped     atomic.Int64
	dropWarning *rate.Limiter
	log         zerolog.Logger
}

// NewDecoder creates a decoder. scene may be nil, in which case rotations are
// not mirrored.
func NewDecoder(store *agent.Store, scene scene.Scene, capacity int) *Decoder {
	if capacity <= 0 {
		capacity = DEFAULT_QUEUE_CAPACITY
	}

	return &Decoder{
		store:       store,
		scene:       scene,
		events:      make(chan Event, capacity),
		dropWarning: rate.NewLimiter(rate.Every(time.Second), 1),
		log:         log.With().Str("component", "controls").Logger(),
	}
}

// Submit queues an event without blocking. It returns false if the queue was
// full and the event was dropped.
func (d *Decoder) Submit(event Event) bool {
	select {
	case d.events <- event:
		return true
	default:
	}

	dropped := d.dropped.Inc()
	if d.dropWarning.Allow() {
		d.log.Warn().
			Int64("dropped", dropped).
			Str("event", event.String()).
			Msg("control queue full, dropping events")
	}
	return false
}

// Dropped is the number of events Submit has discarded.
func (d *Decoder) Dropped() int64 {
	return d.dropped.Load()
}

func (d *Decoder) Pending() int {
	return len(d.events)
}

func (d *Decoder) Poll(ctx context.Context) {
	chanLock := chanlock.New(d.log)
	health := chanLock.Poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-health:
			continue
		case event := <-d.events:
			chanLock.Mark(event.String())
			err := d.Apply(event)
			if errors.Is(err, agent.ErrNotFound) || errors.Is(err, agent.ErrStaleHandle) {
				d.log.Debug().Str("event", event.String()).Msg("control for unknown agent")
				continue
			}
			if err != nil {
				d.log.Warn().Err(err).Str("event", event.String()).Msg("could not apply control")
			}
		}
	}
}

// Apply updates the agent's control block synchronously.
func (d *Decoder) Apply(event Event) error {
	id := event.target()

	switch event := event.(type) {
	case AgentUpdate:
		rotation := locomotion.SanitizeRotation(event.BodyRotation)
		err := d.store.UpdateControlByID(id, func(control *agent.Control) {
			control.Rotation = rotation
			control.Flags = agent.ControlFlags(event.ControlFlags)
			control.State = event.State
			control.HideTitle = event.Flags != 0
		})
		if err != nil {
			return err
		}

		d.mirrorRotation(event, rotation)
		return nil
	case SetAlwaysRun:
		return d.store.UpdateControlByID(id, func(control *agent.Control) {
			control.Running = event.AlwaysRun
		})
	}

	return fmt.Errorf("unsupported control event %T", event)
}

func (d *Decoder) mirrorRotation(event AgentUpdate, rotation mgl32.Quat) {
	if d.scene == nil {
		return
	}

	found := d.scene.FindObject(event.AgentID)
	if opt.IsNone(found) {
		return
	}

	// The agent may be detached between the lookup and the update, in which
	// case UpdateObject does nothing.
	object := found.Value
	object.Rotation = rotation
	d.scene.UpdateObject(object, scene.UpdateRotation)
}
