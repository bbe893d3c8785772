package scene

import (
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/repeale/fp-go/option"
)

// UpdateFlags selects which fields of an Object an update carries.
type UpdateFlags uint8

const (
	UpdatePosition UpdateFlags = 1 << iota
	UpdateRotation
	UpdateVelocity
	UpdateAcceleration
	UpdateScale

	UpdateKinematic = UpdatePosition | UpdateVelocity | UpdateAcceleration
	UpdateFull      = UpdateKinematic | UpdateRotation | UpdateScale
)

func (f UpdateFlags) Has(flag UpdateFlags) bool {
	return f&flag == flag
}

func (f UpdateFlags) String() string {
	if f == 0 {
		return "NONE"
	}

	names := []struct {
		flag UpdateFlags
		name string
	}{
		{UpdatePosition, "POSITION"},
		{UpdateRotation, "ROTATION"},
		{UpdateVelocity, "VELOCITY"},
		{UpdateAcceleration, "ACCELERATION"},
		{UpdateScale, "SCALE"},
	}

	var parts []string
	for _, entry := range names {
		if f.Has(entry.flag) {
			parts = append(parts, entry.name)
		}
	}
	return strings.Join(parts, "|")
}

// Object is a visible entity in the scene. Avatars share their agent's ID.
type Object struct {
	ID           uuid.UUID
	Position     mgl32.Vec3
	Rotation     mgl32.Quat
	Velocity     mgl32.Vec3
	Acceleration mgl32.Vec3
	Scale        mgl32.Vec3
}

// merge copies the fields selected by flags from update.
func (o Object) merge(update Object, flags UpdateFlags) Object {
	if flags.Has(UpdatePosition) {
		o.Position = update.Position
	}
	if flags.Has(UpdateRotation) {
		o.Rotation = update.Rotation
	}
	if flags.Has(UpdateVelocity) {
		o.Velocity = update.Velocity
	}
	if flags.Has(UpdateAcceleration) {
		o.Acceleration = update.Acceleration
	}
	if flags.Has(UpdateScale) {
		o.Scale = update.Scale
	}
	return o
}

type ObjectUpdate struct {
	Object Object
	Flags  UpdateFlags
}

type AnimationUpdate struct {
	Agent     uuid.UUID
	Animation uuid.UUID
}

// Scene is everything the simulation needs from the world it runs in.
type Scene interface {
	// TerrainHeight returns 0 outside the region.
	TerrainHeight(x, y float32) float32
	WaterHeight() float32

	// SetDefaultAnimation reports whether the agent's default animation
	// changed. Agents without an object in the scene are ignored.
	SetDefaultAnimation(agent, animation uuid.UUID) bool
	// FlushAnimations broadcasts pending animation changes for an agent.
	FlushAnimations(agent uuid.UUID)

	FindObject(id uuid.UUID) opt.Option[Object]
	ObjectAddOrUpdate(object Object, flags UpdateFlags)
	// UpdateObject merges into an existing object and reports whether there
	// was one. It never inserts.
	UpdateObject(object Object, flags UpdateFlags) bool
	// RemoveAgent drops the agent's object and animation state.
	RemoveAgent(agent uuid.UUID)
}
