package scene

import (
	"github.com/chewxy/math32"
	"github.com/elliotchance/orderedmap/v2"
	"github.com/google/uuid"
	"github.com/repeale/fp-go/option"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"

	"github.com/periscope-sim/periscope/pkg/utils"
)

const topicBuffer = 256

type animationState struct {
	current uuid.UUID
	pending bool
}

// Region is an in-memory Scene for a single square region.
type Region struct {
	Terrain *Heightmap

	// Animations receives every flushed default animation change.
	Animations *utils.Topic[AnimationUpdate]
	// Objects receives every object addition or update.
	Objects *utils.Topic[ObjectUpdate]

	mutex       deadlock.RWMutex
	waterHeight float32
	animations  map[uuid.UUID]*animationState
	objects     *orderedmap.OrderedMap[uuid.UUID, Object]
}

var _ Scene = (*Region)(nil)

func NewRegion(size int, terrainHeight, waterHeight float32) *Region {
	return &Region{
		Terrain:     NewHeightmap(size, terrainHeight),
		Animations:  utils.NewTopic[AnimationUpdate](topicBuffer),
		Objects:     utils.NewTopic[ObjectUpdate](topicBuffer),
		waterHeight: waterHeight,
		animations:  make(map[uuid.UUID]*animationState),
		objects:     orderedmap.NewOrderedMap[uuid.UUID, Object](),
	}
}

func (r *Region) Size() int {
	return r.Terrain.Size()
}

func (r *Region) TerrainHeight(x, y float32) float32 {
	return r.Terrain.At(x, y)
}

func (r *Region) WaterHeight() float32 {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if math32.IsNaN(r.waterHeight) || math32.IsInf(r.waterHeight, 0) {
		return 0
	}
	return r.waterHeight
}

func (r *Region) SetWaterHeight(height float32) {
	r.mutex.Lock()
	r.waterHeight = height
	r.mutex.Unlock()
}

func (r *Region) SetDefaultAnimation(agent, animation uuid.UUID) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.objects.Get(agent); !ok {
		return false
	}

	state, ok := r.animations[agent]
	if !ok {
		state = &animationState{}
		r.animations[agent] = state
	}

	if state.current == animation {
		return false
	}

	state.current = animation
	state.pending = true
	return true
}

func (r *Region) FlushAnimations(agent uuid.UUID) {
	r.mutex.Lock()
	state, ok := r.animations[agent]
	if !ok || !state.pending {
		r.mutex.Unlock()
		return
	}
	state.pending = false
	update := AnimationUpdate{
		Agent:     agent,
		Animation: state.current,
	}
	r.mutex.Unlock()

	r.Animations.Publish(update)
}

// DefaultAnimation returns the agent's current default animation, or
// uuid.Nil if none was ever set.
func (r *Region) DefaultAnimation(agent uuid.UUID) uuid.UUID {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if state, ok := r.animations[agent]; ok {
		return state.current
	}
	return uuid.Nil
}

func (r *Region) FindObject(id uuid.UUID) opt.Option[Object] {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	object, ok := r.objects.Get(id)
	if !ok {
		return opt.None[Object]()
	}
	return opt.Some(object)
}

// ObjectAddOrUpdate inserts a new object whole, or merges the fields selected
// by flags into an existing one. Either way an update is broadcast.
func (r *Region) ObjectAddOrUpdate(object Object, flags UpdateFlags) {
	r.mutex.Lock()
	existing, ok := r.objects.Get(object.ID)
	if ok {
		object = existing.merge(object, flags)
	} else {
		flags = UpdateFull
	}
	r.objects.Set(object.ID, object)
	r.mutex.Unlock()

	r.Objects.Publish(ObjectUpdate{
		Object: object,
		Flags:  flags,
	})
}

func (r *Region) UpdateObject(object Object, flags UpdateFlags) bool {
	r.mutex.Lock()
	existing, ok := r.objects.Get(object.ID)
	if !ok {
		r.mutex.Unlock()
		return false
	}
	object = existing.merge(object, flags)
	r.objects.Set(object.ID, object)
	r.mutex.Unlock()

	r.Objects.Publish(ObjectUpdate{
		Object: object,
		Flags:  flags,
	})
	return true
}

func (r *Region) RemoveAgent(agent uuid.UUID) {
	r.mutex.Lock()
	r.objects.Delete(agent)
	delete(r.animations, agent)
	r.mutex.Unlock()

	log.Debug().Str("agent", agent.String()).Msg("removed from scene")
}

// ObjectList returns every object in insertion order.
func (r *Region) ObjectList() []Object {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	objects := make([]Object, 0, r.objects.Len())
	for el := r.objects.Front(); el != nil; el = el.Next() {
		objects = append(objects, el.Value)
	}
	return objects
}
