package controls

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/periscope-sim/periscope/pkg/agent"
	"github.com/periscope-sim/periscope/pkg/scene"
)

func attach(t *testing.T, store *agent.Store) uuid.UUID {
	identity := agent.Identity{ID: uuid.New(), Session: uuid.New()}
	body := agent.Body{
		Position: mgl32.Vec3{10, 10, 21},
		Velocity: mgl32.Vec3{1, 2, 3},
		Scale:    mgl32.Vec3{0.5, 0.5, 2},
	}
	_, err := store.Attach(identity, body)
	require.NoError(t, err)
	return identity.ID
}

func TestApplyAgentUpdate(t *testing.T) {
	store := agent.NewStore()
	id := attach(t, store)
	decoder := NewDecoder(store, nil, 4)

	rotation := mgl32.QuatRotate(0.5, mgl32.Vec3{0, 0, 1})
	err := decoder.Apply(AgentUpdate{
		AgentID:      id,
		BodyRotation: rotation,
		ControlFlags: uint32(agent.ControlForward | agent.ControlFly),
		State:        3,
		Flags:        1,
	})
	require.NoError(t, err)

	record, err := store.ReadByID(id)
	require.NoError(t, err)
	assert.Equal(t, rotation, record.Control.Rotation)
	assert.True(t, record.Control.Flags.Has(agent.ControlForward))
	assert.True(t, record.Control.Flags.Has(agent.ControlFly))
	assert.Equal(t, uint8(3), record.Control.State)
	assert.True(t, record.Control.HideTitle)

	// Kinematics are untouched.
	assert.Equal(t, mgl32.Vec3{10, 10, 21}, record.Body.Position)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, record.Body.Velocity)

	require.NoError(t, decoder.Apply(AgentUpdate{AgentID: id, BodyRotation: rotation}))
	record, err = store.ReadByID(id)
	require.NoError(t, err)
	assert.False(t, record.Control.HideTitle)
	assert.Equal(t, agent.ControlFlags(0), record.Control.Flags)
}

func TestApplyNonFiniteRotation(t *testing.T) {
	store := agent.NewStore()
	id := attach(t, store)
	decoder := NewDecoder(store, nil, 4)

	nan := float32(math.NaN())
	require.NoError(t, decoder.Apply(AgentUpdate{
		AgentID:      id,
		BodyRotation: mgl32.Quat{W: nan, V: mgl32.Vec3{nan, 0, 0}},
	}))

	record, err := store.ReadByID(id)
	require.NoError(t, err)
	assert.Equal(t, mgl32.QuatIdent(), record.Control.Rotation)

	require.NoError(t, decoder.Apply(AgentUpdate{AgentID: id}))
	record, err = store.ReadByID(id)
	require.NoError(t, err)
	assert.Equal(t, mgl32.QuatIdent(), record.Control.Rotation)
}

func TestApplyAlwaysRun(t *testing.T) {
	store := agent.NewStore()
	id := attach(t, store)
	decoder := NewDecoder(store, nil, 4)

	require.NoError(t, decoder.Apply(SetAlwaysRun{AgentID: id, AlwaysRun: true}))
	record, err := store.ReadByID(id)
	require.NoError(t, err)
	assert.True(t, record.Control.Running)

	require.NoError(t, decoder.Apply(SetAlwaysRun{AgentID: id}))
	record, err = store.ReadByID(id)
	require.NoError(t, err)
	assert.False(t, record.Control.Running)
}

func TestApplyUnknownAgent(t *testing.T) {
	decoder := NewDecoder(agent.NewStore(), nil, 4)
	err := decoder.Apply(SetAlwaysRun{AgentID: uuid.New(), AlwaysRun: true})
	require.ErrorIs(t, err, agent.ErrNotFound)
}

func TestMirrorRotation(t *testing.T) {
	store := agent.NewStore()
	id := attach(t, store)
	world := scene.NewRegion(16, 0, 0)
	world.ObjectAddOrUpdate(scene.Object{
		ID:       id,
		Position: mgl32.Vec3{10, 10, 21},
		Rotation: mgl32.QuatIdent(),
	}, scene.UpdateFull)

	sub := world.Objects.Subscribe()
	defer sub.Done()

	decoder := NewDecoder(store, world, 4)
	rotation := mgl32.QuatRotate(1, mgl32.Vec3{0, 0, 1})
	require.NoError(t, decoder.Apply(AgentUpdate{AgentID: id, BodyRotation: rotation}))

	update := <-sub.Recv()
	assert.Equal(t, scene.UpdateRotation, update.Flags)
	assert.Equal(t, rotation, update.Object.Rotation)
	assert.Equal(t, mgl32.Vec3{10, 10, 21}, update.Object.Position)

	// Agents without a scene object are still updated.
	other := attach(t, store)
	require.NoError(t, decoder.Apply(AgentUpdate{AgentID: other, BodyRotation: rotation}))
	assert.Len(t, sub.Recv(), 0)
}

func TestSubmitDropsWhenFull(t *testing.T) {
	store := agent.NewStore()
	id := attach(t, store)
	decoder := NewDecoder(store, nil, 2)

	assert.True(t, decoder.Submit(SetAlwaysRun{AgentID: id}))
	assert.True(t, decoder.Submit(SetAlwaysRun{AgentID: id}))
	assert.False(t, decoder.Submit(SetAlwaysRun{AgentID: id}))
	assert.False(t, decoder.Submit(SetAlwaysRun{AgentID: id}))

	assert.Equal(t, int64(2), decoder.Dropped())
	assert.Equal(t, 2, decoder.Pending())
}

func TestPollPreservesOrder(t *testing.T) {
	store := agent.NewStore()
	id := attach(t, store)
	decoder := NewDecoder(store, nil, 64)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		decoder.Poll(ctx)
		close(done)
	}()

	for i := 0; i < 50; i++ {
		require.True(t, decoder.Submit(SetAlwaysRun{AgentID: id, AlwaysRun: i%2 == 0}))
	}
	require.True(t, decoder.Submit(AgentUpdate{AgentID: id, State: 7}))
	// Unknown agents are skipped.
	require.True(t, decoder.Submit(AgentUpdate{AgentID: uuid.New(), State: 9}))

	require.Eventually(t, func() bool {
		record, err := store.ReadByID(id)
		return err == nil && record.Control.State == 7 && decoder.Pending() == 0
	}, time.Second, time.Millisecond)

	record, err := store.ReadByID(id)
	require.NoError(t, err)
	// The last SetAlwaysRun had i == 49.
	assert.False(t, record.Control.Running)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Poll did not stop")
	}
}
