package agent

import "strings"

// ControlFlags uses the viewer's AGENT_CONTROL_* bit layout.
type ControlFlags uint32

const (
	ControlAtPos ControlFlags = 1 << iota
	ControlAtNeg
	ControlLeftPos
	ControlLeftNeg
	ControlUpPos
	ControlUpNeg
	ControlPitchPos
	ControlPitchNeg
	ControlYawPos
	ControlYawNeg
	ControlFastAt
	ControlFastLeft
	ControlFastUp
	ControlFly
	ControlStop
	ControlFinishAnim
	ControlStandUp
	ControlSitOnGround
	ControlMouselook
	ControlNudgeAtPos
	ControlNudgeAtNeg
	ControlNudgeLeftPos
	ControlNudgeLeftNeg
	ControlNudgeUpPos
	ControlNudgeUpNeg
	ControlTurnLeft
	ControlTurnRight
	ControlAway
	ControlLButtonDown
	ControlLButtonUp
	ControlMLLButtonDown
	ControlMLLButtonUp
)

// Aliases used by the locomotion step.
const (
	ControlForward = ControlAtPos
	ControlBack    = ControlAtNeg
	ControlLeft    = ControlLeftPos
	ControlRight   = ControlLeftNeg
	ControlUp      = ControlUpPos
	ControlDown    = ControlUpNeg
)

var flagNames = []string{
	"AT_POS", "AT_NEG", "LEFT_POS", "LEFT_NEG", "UP_POS", "UP_NEG",
	"PITCH_POS", "PITCH_NEG", "YAW_POS", "YAW_NEG",
	"FAST_AT", "FAST_LEFT", "FAST_UP", "FLY", "STOP", "FINISH_ANIM",
	"STAND_UP", "SIT_ON_GROUND", "MOUSELOOK",
	"NUDGE_AT_POS", "NUDGE_AT_NEG", "NUDGE_LEFT_POS", "NUDGE_LEFT_NEG",
	"NUDGE_UP_POS", "NUDGE_UP_NEG", "TURN_LEFT", "TURN_RIGHT", "AWAY",
	"LBUTTON_DOWN", "LBUTTON_UP", "ML_LBUTTON_DOWN", "ML_LBUTTON_UP",
}

func (f ControlFlags) Has(flag ControlFlags) bool {
	return f&flag == flag
}

func (f ControlFlags) String() string {
	if f == 0 {
		return "NONE"
	}

	names := make([]string, 0)
	for i, name := range flagNames {
		if f&(1<<uint(i)) != 0 {
			names = append(names, name)
		}
	}
	return strings.Join(names, "|")
}
