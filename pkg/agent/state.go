package agent

// Class is the coarse locomotion classification. Exactly one holds per tick.
type Class uint8

const (
	ClassNone Class = iota
	ClassFlying
	ClassAirborne
	ClassGrounded
)

func (c Class) String() string {
	switch c {
	case ClassFlying:
		return "Flying"
	case ClassAirborne:
		return "Airborne"
	case ClassGrounded:
		return "Grounded"
	default:
		return "None"
	}
}

// State is the discrete locomotion state of an agent.
type State uint8

const (
	StateNone State = iota

	StateFlyingHorizontal
	StateFlyingUp
	StateFlyingDown
	StateHover

	StateFalling
	StateLanding
	// Submerged below the water line; no drift or ground snap applies.
	StateFloating

	StateStanding
	StateWalking
	StateRunning
	StateCrouching
	StateCrouchWalking
	StatePreJump
	StateJumping
)

var stateNames = map[State]string{
	StateNone:             "None",
	StateFlyingHorizontal: "Flying",
	StateFlyingUp:         "FlyingUp",
	StateFlyingDown:       "FlyingDown",
	StateHover:            "Hover",
	StateFalling:          "Falling",
	StateLanding:          "Landing",
	StateFloating:         "Floating",
	StateStanding:         "Standing",
	StateWalking:          "Walking",
	StateRunning:          "Running",
	StateCrouching:        "Crouching",
	StateCrouchWalking:    "CrouchWalking",
	StatePreJump:          "PreJump",
	StateJumping:          "Jumping",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}

func (s State) Class() Class {
	switch {
	case s >= StateFlyingHorizontal && s <= StateHover:
		return ClassFlying
	case s >= StateFalling && s <= StateFloating:
		return ClassAirborne
	case s >= StateStanding && s <= StateJumping:
		return ClassGrounded
	default:
		return ClassNone
	}
}
