package ingress

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"nhooyr.io/websocket"

	"github.com/periscope-sim/periscope/pkg/agent"
	"github.com/periscope-sim/periscope/pkg/locomotion"
	"github.com/periscope-sim/periscope/pkg/region"
	"github.com/periscope-sim/periscope/pkg/scene"
)

type harness struct {
	region *region.Region
	conn   *websocket.Conn
	clock  *atomic.Int64
	url    string
}

func newHarness(t *testing.T) *harness {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	world := scene.NewRegion(256, 20, 0)
	r := region.New(ctx, world, region.Options{
		Size:   256,
		Tuning: locomotion.DefaultTuning(),
	})

	clock := atomic.NewInt64(1000)
	r.Scheduler.SetClock(clock.Load)
	go r.Decoder.Poll(ctx)

	ingress := NewWSIngress(r)
	go ingress.Watch(ctx, world.Animations.Subscribe(), world.Objects.Subscribe())

	server := httptest.NewServer(ingress)
	t.Cleanup(server.Close)

	h := &harness{
		region: r,
		clock:  clock,
		url:    "ws" + strings.TrimPrefix(server.URL, "http"),
	}
	h.conn = h.dial(t)
	return h
}

// dial opens another connection to the same ingress and waits for its
// greeting.
func (h *harness) dial(t *testing.T) *websocket.Conn {
	conn, _, err := websocket.Dial(context.Background(), h.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Close(websocket.StatusNormalClosure, "")
	})

	peer := &harness{conn: conn}
	var connected ConnectedMessage
	peer.readOp(t, ConnectedOp, &connected)
	assert.Equal(t, float32(256), connected.RegionSize)
	assert.Equal(t, uuid.Nil.String(), connected.Master)
	return conn
}

func (h *harness) send(t *testing.T, msg any) {
	bytes, err := cbor.Marshal(msg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.conn.Write(ctx, websocket.MessageBinary, bytes))
}

// readOp discards messages until one with the given op arrives.
func (h *harness) readOp(t *testing.T, op int, out any) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for {
		_, bytes, err := h.conn.Read(ctx)
		require.NoError(t, err)

		var generic GenericMessage
		require.NoError(t, cbor.Unmarshal(bytes, &generic))
		if generic.Op != op {
			continue
		}

		require.NoError(t, cbor.Unmarshal(bytes, out))
		return
	}
}

func TestAttachAndControl(t *testing.T) {
	h := newHarness(t)
	id := uuid.New()

	h.send(t, AttachMessage{
		Op:       AttachOp,
		Id:       1,
		Agent:    id.String(),
		Session:  uuid.New().String(),
		Position: [3]float32{10, 10, 0},
	})

	var response ResponseMessage
	h.readOp(t, ResponseOp, &response)
	require.True(t, response.Success, response.Response)
	assert.Equal(t, 1, response.Id)

	h.send(t, AgentUpdateMessage{
		Op:           AgentUpdateOp,
		Agent:        id.String(),
		Rotation:     [4]float32{0, 0, 0, 1},
		ControlFlags: uint32(agent.ControlForward),
	})
	h.send(t, AlwaysRunMessage{
		Op:        AlwaysRunOp,
		Agent:     id.String(),
		AlwaysRun: true,
	})

	require.Eventually(t, func() bool {
		record, err := h.region.Store.ReadByID(id)
		return err == nil &&
			record.Control.Flags.Has(agent.ControlForward) &&
			record.Control.Running
	}, time.Second, time.Millisecond)

	h.clock.Add(100)
	h.region.Scheduler.Fire()

	var animation AnimationMessage
	h.readOp(t, AnimationOp, &animation)
	assert.Equal(t, id.String(), animation.Agent)
	assert.Equal(t, "RUN", animation.Name)

	// Skip the update sent when the agent was attached.
	var object ObjectMessage
	for object.Flags != uint8(scene.UpdateKinematic) {
		h.readOp(t, ObjectOp, &object)
	}
	assert.Equal(t, id.String(), object.ID)
	assert.Equal(t, uint8(scene.UpdateKinematic), object.Flags)
	assert.InDelta(t, 10.5, object.Position[0], 1e-4)
}

func TestAttachErrors(t *testing.T) {
	h := newHarness(t)

	h.send(t, AttachMessage{Op: AttachOp, Id: 7, Agent: "not a uuid"})
	var response ResponseMessage
	h.readOp(t, ResponseOp, &response)
	assert.False(t, response.Success)
	assert.Equal(t, 7, response.Id)

	h.send(t, DetachMessage{Op: DetachOp, Id: 8, Agent: uuid.New().String()})
	h.readOp(t, ResponseOp, &response)
	assert.False(t, response.Success)
	assert.Equal(t, 8, response.Id)
}

func TestDisconnectDetaches(t *testing.T) {
	h := newHarness(t)
	id := uuid.New()

	h.send(t, AttachMessage{
		Op:       AttachOp,
		Id:       1,
		Agent:    id.String(),
		Position: [3]float32{10, 10, 0},
	})

	var response ResponseMessage
	h.readOp(t, ResponseOp, &response)
	require.True(t, response.Success, response.Response)

	record, err := h.region.Store.ReadByID(id)
	require.NoError(t, err)
	assert.True(t, record.Foreign())

	h.conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool {
		return h.region.Store.Len() == 0
	}, time.Second, time.Millisecond)
}

func TestDetachOnlyOwnAgents(t *testing.T) {
	h := newHarness(t)
	id := uuid.New()

	h.send(t, AttachMessage{
		Op:       AttachOp,
		Id:       1,
		Agent:    id.String(),
		Position: [3]float32{10, 10, 0},
	})
	var response ResponseMessage
	h.readOp(t, ResponseOp, &response)
	require.True(t, response.Success, response.Response)

	other := &harness{region: h.region, conn: h.dial(t)}
	other.send(t, DetachMessage{Op: DetachOp, Id: 2, Agent: id.String()})
	other.readOp(t, ResponseOp, &response)
	assert.False(t, response.Success)
	assert.Equal(t, 2, response.Id)
	assert.Contains(t, response.Response, "not attached by this connection")

	_, err := h.region.Store.ReadByID(id)
	assert.NoError(t, err)

	h.send(t, DetachMessage{Op: DetachOp, Id: 3, Agent: id.String()})
	h.readOp(t, ResponseOp, &response)
	assert.True(t, response.Success, response.Response)
	assert.Equal(t, 0, h.region.Store.Len())
}
