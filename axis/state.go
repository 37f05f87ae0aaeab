package axis

// State is the motion safety state of the axis
type State uint8

const (
	StateInit State = iota
	StateHomingMin
	StateHomingMax
	StateReady
	StateErrorDetected
	StateWaitReset
	StateAutoRehome
)

var stateNames = [...]string{
	StateInit:          "init",
	StateHomingMin:     "homing_min",
	StateHomingMax:     "homing_max",
	StateReady:         "ready",
	StateErrorDetected: "error_detected",
	StateWaitReset:     "wait_reset",
	StateAutoRehome:    "auto_rehome",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Homing reports whether the state belongs to the homing sequence
func (s State) Homing() bool {
	return s == StateHomingMin || s == StateHomingMax
}
