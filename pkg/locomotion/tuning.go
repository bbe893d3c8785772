package locomotion

import (
	"math"
	"time"
)

// Tuning holds every constant of the locomotion model. Speeds are in meters
// per second, delays in seconds.
type Tuning struct {
	TickPeriod time.Duration

	Gravity   float32
	WalkSpeed float32
	RunSpeed  float32
	FlySpeed  float32

	// Time spent falling before the falling animation is selected.
	FallDelay float32
	// Height above the lower limit that still counts as standing.
	FallForgiveness float32

	JumpImpulseVertical   float32
	JumpImpulseHorizontal float32
	HoverImpulse          float32
	PreJumpDelay          float32
	TerminalVelocity      float32

	// Divides planar speed when two orthogonal directions are held, and scales
	// the slope penalty.
	Diagonal float32
	// Fraction of the avatar height that may be submerged before it floats.
	ChestDepth float32

	FlyDragHorizontal float32
	FlyDragVertical   float32
	AirDrift          float32
	GroundFriction    float32
}

func DefaultTuning() Tuning {
	return Tuning{
		TickPeriod:            100 * time.Millisecond,
		Gravity:               9.8,
		WalkSpeed:             3,
		RunSpeed:              5,
		FlySpeed:              10,
		FallDelay:             0.33,
		FallForgiveness:       0.25,
		JumpImpulseVertical:   8.5,
		JumpImpulseHorizontal: 10,
		HoverImpulse:          2,
		PreJumpDelay:          0.25,
		TerminalVelocity:      54,
		Diagonal:              math.Sqrt2,
		ChestDepth:            0.33,
		FlyDragHorizontal:     0.66,
		FlyDragVertical:       0.33,
		AirDrift:              0.95,
		GroundFriction:        0.2,
	}
}

func (t Tuning) speed(flying, running bool) float32 {
	switch {
	case flying:
		return t.FlySpeed
	case running:
		return t.RunSpeed
	default:
		return t.WalkSpeed
	}
}

func (t Tuning) preJumpMillis() int64 {
	return int64(t.PreJumpDelay * 1000)
}
