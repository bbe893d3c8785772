package region

import (
	"context"
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/periscope-sim/periscope/pkg/agent"
	"github.com/periscope-sim/periscope/pkg/controls"
	"github.com/periscope-sim/periscope/pkg/locomotion"
	"github.com/periscope-sim/periscope/pkg/scene"
	"github.com/periscope-sim/periscope/pkg/utils"
)

// DefaultScale is the bounding size given to avatars attached without one.
var DefaultScale = mgl32.Vec3{0.45, 0.6, 1.9}

type Options struct {
	Size          float32
	Tuning        locomotion.Tuning
	QueueCapacity int
	Master        uuid.UUID
}

// Region wires an agent store, a control decoder and a tick scheduler to a
// scene.
type Region struct {
	utils.Session

	Store     *agent.Store
	Scene     scene.Scene
	Decoder   *controls.Decoder
	Scheduler *Scheduler

	size float32
}

func New(ctx context.Context, world scene.Scene, options Options) *Region {
	store := agent.NewStore()
	scheduler := NewScheduler(store, world, options.Tuning, options.Size)
	scheduler.SetMaster(options.Master)

	return &Region{
		Session:   utils.NewSession(ctx),
		Store:     store,
		Scene:     world,
		Decoder:   controls.NewDecoder(store, world, options.QueueCapacity),
		Scheduler: scheduler,
		size:      options.Size,
	}
}

func (r *Region) Size() float32 {
	return r.size
}

// Start launches the decoder and the scheduler.
func (r *Region) Start() {
	go r.Decoder.Poll(r.Ctx())
	r.Scheduler.Start(r.Ctx())
}

// Shutdown stops the simulation and waits for the current tick to finish.
func (r *Region) Shutdown() {
	r.Cancel()
	r.Scheduler.Stop()
	log.Info().
		Int64("ticks", r.Scheduler.Ticks()).
		Str("uptime", r.Uptime().String()).
		Msg("region stopped")
}

// Submit queues a control event for the decoder.
func (r *Region) Submit(event controls.Event) bool {
	return r.Decoder.Submit(event)
}

func (r *Region) SetMaster(id uuid.UUID) {
	r.Scheduler.SetMaster(id)
}

func (r *Region) Master() uuid.UUID {
	return r.Scheduler.Master()
}

// Attach adds an agent standing at position and gives it a scene object. A
// zero scale is replaced by DefaultScale.
func (r *Region) Attach(identity agent.Identity, position, scale mgl32.Vec3) (agent.Handle, error) {
	if identity.ID == uuid.Nil {
		return agent.Handle{}, errors.New("agent id must not be nil")
	}

	if scale == (mgl32.Vec3{}) {
		scale = DefaultScale
	}

	position = locomotion.ClampToRegion(position, r.size, math32.Inf(-1))
	lowerLimit := r.Scene.TerrainHeight(position.X(), position.Y()) + scale.Z()/2
	position = locomotion.ClampToRegion(position, r.size, lowerLimit)

	handle, err := r.Store.Attach(identity, agent.Body{
		Position: position,
		Scale:    scale,
		State:    agent.StateStanding,
	})
	if err != nil {
		return agent.Handle{}, fmt.Errorf("could not attach %s: %w", identity, err)
	}

	r.Scene.ObjectAddOrUpdate(scene.Object{
		ID:       identity.ID,
		Position: position,
		Rotation: mgl32.QuatIdent(),
		Scale:    scale,
	}, scene.UpdateFull)

	log.Info().
		Str("agent", identity.String()).
		Bool("foreign", identity.Foreign()).
		Msg("agent attached")
	return handle, nil
}

func (r *Region) Detach(id uuid.UUID) error {
	if err := r.Store.Detach(id); err != nil {
		return fmt.Errorf("could not detach %s: %w", id, err)
	}

	r.Scene.RemoveAgent(id)
	log.Info().Str("agent", id.String()).Msg("agent detached")
	return nil
}
