package controls

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/periscope-sim/periscope/pkg/agent"
)

// Event is an inbound control message for one agent.
type Event interface {
	target() uuid.UUID
	fmt.Stringer
}

// AgentUpdate carries the viewer's per-frame control state.
type AgentUpdate struct {
	AgentID      uuid.UUID
	BodyRotation mgl32.Quat
	ControlFlags uint32
	State        uint8
	Flags        uint8
}

func (a AgentUpdate) target() uuid.UUID { return a.AgentID }

func (a AgentUpdate) String() string {
	return fmt.Sprintf("AgentUpdate(%s, %s)", a.AgentID, agent.ControlFlags(a.ControlFlags))
}

type SetAlwaysRun struct {
	AgentID   uuid.UUID
	AlwaysRun bool
}

func (s SetAlwaysRun) target() uuid.UUID { return s.AgentID }

func (s SetAlwaysRun) String() string {
	return fmt.Sprintf("SetAlwaysRun(%s, %t)", s.AgentID, s.AlwaysRun)
}
