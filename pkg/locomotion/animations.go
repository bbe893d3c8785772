package locomotion

import (
	"github.com/google/uuid"

	"github.com/periscope-sim/periscope/pkg/agent"
)

// Built-in default animations understood by every viewer.
var (
	AnimStand      = uuid.MustParse("2408fe9e-df1d-1d7d-f4ff-1384fa7b350f")
	AnimWalk       = uuid.MustParse("6ed24bd8-91aa-4b12-ccc7-c97c857ab4e0")
	AnimRun        = uuid.MustParse("05ddbff8-aaa9-92a1-2b74-8fe77a29b445")
	AnimFly        = uuid.MustParse("aec4610c-757f-bc4e-c092-c6e9caf18daf")
	AnimHover      = uuid.MustParse("4ae8016b-31b9-03bb-c401-b1ea941db41d")
	AnimHoverUp    = uuid.MustParse("62c5de58-cb33-5743-3d07-9e4cd4352864")
	AnimHoverDown  = uuid.MustParse("20f063ea-8306-2562-0b07-5c853b37b31e")
	AnimJump       = uuid.MustParse("2305bd75-1ca9-b03b-1faa-b176b8a8c49e")
	AnimPreJump    = uuid.MustParse("7a4e87fe-de39-6fcb-6223-024b00893244")
	AnimFallDown   = uuid.MustParse("666307d9-a860-572d-6fd4-c3ab8865c094")
	AnimCrouch     = uuid.MustParse("201f3fdf-cb1f-dbec-201f-7333e328ae7c")
	AnimCrouchWalk = uuid.MustParse("47f5f6fb-22e5-ae44-f871-73aaaf4a6022")
)

// Viewers play LAND on their own when a fall ends; it is only named here so
// logs and clients can display it.
var animLand = uuid.MustParse("7a17b059-12b2-41b1-570a-186368b6aa6f")

var animationNames = map[uuid.UUID]string{
	AnimStand:      "STAND",
	AnimWalk:       "WALK",
	AnimRun:        "RUN",
	AnimFly:        "FLY",
	AnimHover:      "HOVER",
	AnimHoverUp:    "HOVER_UP",
	AnimHoverDown:  "HOVER_DOWN",
	AnimJump:       "JUMP",
	AnimPreJump:    "PRE_JUMP",
	AnimFallDown:   "FALLDOWN",
	AnimCrouch:     "CROUCH",
	AnimCrouchWalk: "CROUCHWALK",
	animLand:       "LAND",
}

var stateAnimations = map[agent.State]uuid.UUID{
	agent.StateFlyingHorizontal: AnimFly,
	agent.StateFlyingUp:         AnimHoverUp,
	agent.StateFlyingDown:       AnimHoverDown,
	agent.StateHover:            AnimHover,
	agent.StateFalling:          AnimFallDown,
	agent.StateStanding:         AnimStand,
	agent.StateWalking:          AnimWalk,
	agent.StateRunning:          AnimRun,
	agent.StateCrouching:        AnimCrouch,
	agent.StateCrouchWalking:    AnimCrouchWalk,
	agent.StatePreJump:          AnimPreJump,
	agent.StateJumping:          AnimJump,
}

func AnimationName(id uuid.UUID) string {
	if name, ok := animationNames[id]; ok {
		return name
	}
	return id.String()
}
