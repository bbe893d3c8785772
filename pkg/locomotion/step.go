package locomotion

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/periscope-sim/periscope/pkg/agent"
)

// Environment is the part of the scene the step samples.
type Environment interface {
	TerrainHeight(x, y float32) float32
	WaterHeight() float32
}

// Input is recomputed for every tick.
type Input struct {
	// Seconds since the previous tick.
	Elapsed float32
	// Monotonic clock in milliseconds.
	Now        int64
	RegionSize float32
	Env        Environment
}

type Result struct {
	State agent.State
	// uuid.Nil if this tick selected no animation.
	Animation  uuid.UUID
	LowerLimit float32
	// Set when a repeated jump ended the previous one. Integration and bounds
	// enforcement were skipped for this tick, and State is the body's state
	// from the previous tick, which is left as it was.
	Aborted bool
}

var (
	unitX = mgl32.Vec3{1, 0, 0}
	unitY = mgl32.Vec3{0, 1, 0}
)

// Step advances one agent by one tick.
func Step(t Tuning, control agent.Control, body *agent.Body, in Input) Result {
	rotation := SanitizeRotation(control.Rotation)
	fwd := rotation.Rotate(unitX)
	left := rotation.Rotate(unitY)

	flags := control.Flags
	heldForward := flags.Has(agent.ControlForward)
	heldBack := flags.Has(agent.ControlBack)
	heldLeft := flags.Has(agent.ControlLeft)
	heldRight := flags.Has(agent.ControlRight)
	heldUp := flags.Has(agent.ControlUp)
	heldDown := flags.Has(agent.ControlDown)
	flying := flags.Has(agent.ControlFly)

	var move mgl32.Vec3
	if heldForward {
		move[0] += fwd[0]
		move[1] += fwd[1]
	}
	if heldBack {
		move[0] -= fwd[0]
		move[1] -= fwd[1]
	}
	if heldLeft {
		move[0] += left[0]
		move[1] += left[1]
	}
	if heldRight {
		move[0] -= left[0]
		move[1] -= left[1]
	}
	if heldUp {
		move[2] += 1
	}
	if heldDown {
		move[2] -= 1
	}

	// A non-finite vector would otherwise survive friction forever.
	body.Velocity = finiteOrZero(body.Velocity)
	body.Acceleration = finiteOrZero(body.Acceleration)

	moving := move != mgl32.Vec3{}
	jumping := body.Jump.Active()

	speed := in.Elapsed * t.speed(flying, control.Running && !jumping)
	if (heldForward || heldBack) && (heldLeft || heldRight) {
		speed /= t.Diagonal
	}

	position := body.Position
	oldFloor := in.Env.TerrainHeight(position.X(), position.Y())
	tentative := position.Add(move.Mul(speed))
	newFloor := in.Env.TerrainHeight(tentative.X(), tentative.Y())

	if !flying && newFloor != oldFloor {
		speed /= 1 + t.Diagonal*math32.Abs(newFloor-oldFloor)
	}

	height := body.Scale.Z()
	lowerLimit := newFloor + height/2

	waterHeight := in.Env.WaterHeight()
	waterChestHeight := waterHeight - height*t.ChestDepth

	var (
		gravity float32
		state   agent.State
		animate bool
	)

	switch {
	case flying:
		body.Fall.Reset()
		body.Jump = agent.NotJumping()

		body.Velocity[0] *= t.FlyDragHorizontal
		body.Velocity[1] *= t.FlyDragHorizontal
		body.Velocity[2] *= t.FlyDragVertical

		if body.Position.Z() == lowerLimit {
			body.Velocity[2] += t.HoverImpulse
		}

		switch {
		case move.X() != 0 || move.Y() != 0:
			state = agent.StateFlyingHorizontal
		case move.Z() > 0:
			state = agent.StateFlyingUp
		case move.Z() < 0:
			state = agent.StateFlyingDown
		default:
			state = agent.StateHover
		}
		animate = true

	case body.Position.Z() > lowerLimit+t.FallForgiveness || body.Position.Z() <= waterChestHeight:
		if body.Position.Z() <= waterHeight {
			state = agent.StateFloating
			break
		}

		// No control while drifting.
		move = mgl32.Vec3{}
		body.Velocity = body.Velocity.Mul(t.AirDrift)

		state = agent.StateFalling
		if jumping {
			state = agent.StateLanding
		}

		fallElapsed := body.Fall.Elapsed(in.Now)
		if !body.Fall.Active || (fallElapsed > t.FallDelay && body.Velocity.Z() >= 0) {
			body.Fall.Start(in.Now)
			break
		}

		gravity = t.Gravity * fallElapsed * in.Elapsed
		if !jumping && fallElapsed > t.FallDelay {
			animate = true
		}

	default:
		body.Fall.Reset()

		body.Acceleration = body.Acceleration.Mul(t.GroundFriction)
		body.Velocity = body.Velocity.Mul(t.GroundFriction)
		body.Position[2] = lowerLimit

		if move.Z() > 0 {
			switch {
			case !jumping:
				move[2] = 0
				body.Jump = agent.PreJump(in.Now)
				state = agent.StatePreJump
				animate = true
			case body.Jump.Ready(in.Now, t.preJumpMillis()):
				if body.Jump.IsInFlight() {
					body.Jump = agent.NotJumping()
					return Result{
						State:      body.State,
						LowerLimit: lowerLimit,
						Aborted:    true,
					}
				}

				body.Velocity[0] += body.Acceleration.X() * t.JumpImpulseHorizontal
				body.Velocity[1] += body.Acceleration.Y() * t.JumpImpulseHorizontal
				body.Velocity[2] = t.JumpImpulseVertical * in.Elapsed
				body.Jump = agent.InFlight()
				state = agent.StateJumping
				animate = true
			default:
				move[2] = 0
				state = agent.StatePreJump
			}
			break
		}

		body.Jump = agent.NotJumping()
		animate = true

		switch {
		case move.X() != 0 || move.Y() != 0:
			switch {
			case move.Z() < 0:
				state = agent.StateCrouchWalking
			case control.Running:
				state = agent.StateRunning
			default:
				state = agent.StateWalking
			}
		case move.Z() < 0:
			state = agent.StateCrouching
		default:
			state = agent.StateStanding
		}
	}

	result := Result{State: state, LowerLimit: lowerLimit}
	body.State = state
	if animate {
		result.Animation = stateAnimations[state]
		body.Animation = result.Animation
	}

	maxVel := t.TerminalVelocity * in.Elapsed

	if moving {
		body.Acceleration = move.Mul(speed)
		body.Acceleration[2] = mgl32.Clamp(body.Acceleration[2], -maxVel, maxVel)
	} else {
		body.Acceleration = mgl32.Vec3{}
	}

	body.Velocity = body.Velocity.Add(body.Acceleration).Sub(mgl32.Vec3{0, 0, gravity})
	body.Velocity[2] = mgl32.Clamp(body.Velocity[2], -maxVel, maxVel)

	body.Position = ClampToRegion(body.Position.Add(body.Velocity), in.RegionSize, lowerLimit)
	return result
}

// ClampToRegion keeps a position inside the horizontal extent of a region and
// no lower than lowerLimit.
func ClampToRegion(position mgl32.Vec3, regionSize, lowerLimit float32) mgl32.Vec3 {
	edge := regionSize - 1
	for axis := 0; axis < 2; axis++ {
		if position[axis] < 0 || math32.IsNaN(position[axis]) {
			position[axis] = 0
		} else if position[axis] > edge {
			position[axis] = edge
		}
	}

	if position[2] < lowerLimit || !finite(position[2]) {
		position[2] = lowerLimit
	}
	return position
}

// SanitizeRotation normalizes q, or returns the identity when q is zero or not
// finite.
func SanitizeRotation(q mgl32.Quat) mgl32.Quat {
	if !finite(q.W) || !finite(q.V[0]) || !finite(q.V[1]) || !finite(q.V[2]) {
		return mgl32.QuatIdent()
	}
	if q.Len() < 1e-6 {
		return mgl32.QuatIdent()
	}
	return q.Normalize()
}

func finiteOrZero(v mgl32.Vec3) mgl32.Vec3 {
	for axis := range v {
		if !finite(v[axis]) {
			v[axis] = 0
		}
	}
	return v
}

func finite(v float32) bool {
	return !math32.IsNaN(v) && !math32.IsInf(v, 0)
}
