package scene

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/repeale/fp-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerrainHeight(t *testing.T) {
	region := NewRegion(16, 20, 0)
	region.Terrain.Set(3, 4, 25)
	region.Terrain.Set(100, 100, 99)

	assert.Equal(t, float32(20), region.TerrainHeight(0, 0))
	assert.Equal(t, float32(25), region.TerrainHeight(3.5, 4.9))
	assert.Equal(t, float32(20), region.TerrainHeight(15.99, 15.99))

	// Outside the region or not finite.
	assert.Equal(t, float32(0), region.TerrainHeight(-0.5, 3))
	assert.Equal(t, float32(0), region.TerrainHeight(16, 3))
	assert.Equal(t, float32(0), region.TerrainHeight(math32.NaN(), 3))
	assert.Equal(t, float32(0), region.TerrainHeight(3, math32.Inf(1)))

	region.Terrain.Set(1, 1, math32.NaN())
	assert.Equal(t, float32(0), region.TerrainHeight(1, 1))
}

func TestWaterHeight(t *testing.T) {
	region := NewRegion(16, 0, 12)
	assert.Equal(t, float32(12), region.WaterHeight())

	region.SetWaterHeight(math32.NaN())
	assert.Equal(t, float32(0), region.WaterHeight())
}

func TestAnimations(t *testing.T) {
	region := NewRegion(16, 0, 0)
	sub := region.Animations.Subscribe()
	defer sub.Done()

	agent := uuid.New()
	walk := uuid.New()
	run := uuid.New()

	// No avatar yet.
	require.False(t, region.SetDefaultAnimation(agent, walk))
	assert.Equal(t, uuid.Nil, region.DefaultAnimation(agent))

	region.ObjectAddOrUpdate(Object{ID: agent, Rotation: mgl32.QuatIdent()}, UpdateFull)
	require.True(t, region.SetDefaultAnimation(agent, walk))
	require.False(t, region.SetDefaultAnimation(agent, walk))

	region.FlushAnimations(agent)
	update := <-sub.Recv()
	assert.Equal(t, agent, update.Agent)
	assert.Equal(t, walk, update.Animation)

	// Nothing pending.
	region.FlushAnimations(agent)
	region.FlushAnimations(uuid.New())
	assert.Len(t, sub.Recv(), 0)

	require.True(t, region.SetDefaultAnimation(agent, run))
	region.FlushAnimations(agent)
	assert.Equal(t, run, (<-sub.Recv()).Animation)
	assert.Equal(t, run, region.DefaultAnimation(agent))

	region.RemoveAgent(agent)
	require.False(t, region.SetDefaultAnimation(agent, walk))
	assert.Equal(t, uuid.Nil, region.DefaultAnimation(agent))
}

func TestUpdateObject(t *testing.T) {
	region := NewRegion(16, 0, 0)
	sub := region.Objects.Subscribe()
	defer sub.Done()

	id := uuid.New()
	require.False(t, region.UpdateObject(Object{ID: id, Position: mgl32.Vec3{1, 1, 1}}, UpdateKinematic))
	assert.True(t, opt.IsNone(region.FindObject(id)))
	assert.Len(t, sub.Recv(), 0)

	region.ObjectAddOrUpdate(Object{
		ID:       id,
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{0.5, 0.5, 2},
	}, UpdateFull)
	<-sub.Recv()

	require.True(t, region.UpdateObject(Object{
		ID:       id,
		Position: mgl32.Vec3{4, 5, 6},
		Velocity: mgl32.Vec3{1, 0, 0},
	}, UpdateKinematic))

	update := <-sub.Recv()
	assert.Equal(t, UpdateKinematic, update.Flags)
	assert.Equal(t, mgl32.Vec3{4, 5, 6}, update.Object.Position)
	assert.Equal(t, mgl32.Vec3{0.5, 0.5, 2}, update.Object.Scale)
	assert.Equal(t, mgl32.QuatIdent(), update.Object.Rotation)

	region.RemoveAgent(id)
	require.False(t, region.UpdateObject(Object{ID: id}, UpdateKinematic))
	assert.Empty(t, region.ObjectList())
}

func TestObjects(t *testing.T) {
	region := NewRegion(16, 0, 0)
	sub := region.Objects.Subscribe()
	defer sub.Done()

	id := uuid.New()
	require.True(t, opt.IsNone(region.FindObject(id)))

	region.ObjectAddOrUpdate(Object{
		ID:       id,
		Position: mgl32.Vec3{1, 2, 3},
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{0.5, 0.5, 2},
	}, UpdateRotation)

	added := <-sub.Recv()
	assert.Equal(t, UpdateFull, added.Flags)

	rotation := mgl32.QuatRotate(1, mgl32.Vec3{0, 0, 1})
	region.ObjectAddOrUpdate(Object{
		ID:       id,
		Position: mgl32.Vec3{9, 9, 9},
		Rotation: rotation,
	}, UpdateRotation)

	update := <-sub.Recv()
	assert.Equal(t, UpdateRotation, update.Flags)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, update.Object.Position)
	assert.Equal(t, rotation, update.Object.Rotation)

	found := region.FindObject(id)
	require.True(t, opt.IsSome(found))
	assert.Equal(t, mgl32.Vec3{0.5, 0.5, 2}, found.Value.Scale)
	assert.Len(t, region.ObjectList(), 1)

	region.RemoveAgent(id)
	assert.True(t, opt.IsNone(region.FindObject(id)))
	assert.Empty(t, region.ObjectList())
}

func TestUpdateFlags(t *testing.T) {
	assert.Equal(t, "NONE", UpdateFlags(0).String())
	assert.Equal(t, "POSITION|VELOCITY|ACCELERATION", UpdateKinematic.String())
	assert.True(t, UpdateFull.Has(UpdateRotation))
	assert.False(t, UpdateKinematic.Has(UpdateRotation))
}
