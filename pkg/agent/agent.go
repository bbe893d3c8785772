package agent

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Identity is fixed for the lifetime of an attached agent.
type Identity struct {
	ID      uuid.UUID
	Session uuid.UUID
}

// Foreign agents are simulated somewhere else and only mirrored here.
func (i Identity) Foreign() bool {
	return i.Session == uuid.Nil
}

func (i Identity) String() string {
	return fmt.Sprintf("%s (session %s)", i.ID, i.Session)
}

// Control is written exclusively by the control input path.
type Control struct {
	Flags     ControlFlags
	Rotation  mgl32.Quat
	Running   bool
	State     uint8
	HideTitle bool
}

func NewControl() Control {
	return Control{Rotation: mgl32.QuatIdent()}
}

// Body is written exclusively by the locomotion step.
type Body struct {
	Position     mgl32.Vec3
	Velocity     mgl32.Vec3
	Acceleration mgl32.Vec3
	Scale        mgl32.Vec3

	Fall      FallTimer
	Jump      JumpPhase
	State     State
	Animation uuid.UUID
}

// Record is a consistent copy of every block of one agent.
type Record struct {
	Identity
	Control Control
	Body    Body
}

// FallTimer tracks when the current fall began, in monotonic milliseconds.
type FallTimer struct {
	Active bool
	Since  int64
}

func (f *FallTimer) Start(now int64) {
	f.Active = true
	f.Since = now
}

func (f *FallTimer) Reset() {
	*f = FallTimer{}
}

// Elapsed returns the fall duration in seconds.
func (f FallTimer) Elapsed(now int64) float32 {
	if !f.Active {
		return 0
	}
	return float32(now-f.Since) / 1000
}

type jumpKind uint8

const (
	jumpNone jumpKind = iota
	jumpPre
	jumpInFlight
)

// JumpPhase is one of NotJumping, PreJump(since) or InFlight.
type JumpPhase struct {
	kind  jumpKind
	since int64
}

func NotJumping() JumpPhase {
	return JumpPhase{}
}

func PreJump(since int64) JumpPhase {
	return JumpPhase{kind: jumpPre, since: since}
}

func InFlight() JumpPhase {
	return JumpPhase{kind: jumpInFlight}
}

// Active is true for any phase other than NotJumping.
func (j JumpPhase) Active() bool {
	return j.kind != jumpNone
}

func (j JumpPhase) IsPreJump() bool {
	return j.kind == jumpPre
}

func (j JumpPhase) IsInFlight() bool {
	return j.kind == jumpInFlight
}

// Ready reports whether the pre-jump hold has lasted longer than delay
// milliseconds. A jump already in flight is always past the hold.
func (j JumpPhase) Ready(now int64, delay int64) bool {
	switch j.kind {
	case jumpInFlight:
		return true
	case jumpPre:
		return now-j.since > delay
	default:
		return false
	}
}

func (j JumpPhase) String() string {
	switch j.kind {
	case jumpPre:
		return fmt.Sprintf("PreJump(%d)", j.since)
	case jumpInFlight:
		return "InFlight"
	default:
		return "NotJumping"
	}
}
