package axis

import "errors"

var ErrInvalidRange = errors.New("invalid range, min must be below max")

// Limit identifies which soft bound a target was clamped to
type Limit uint8

const (
	LimitNone Limit = iota
	LimitMin
	LimitMax
)

func (l Limit) String() string {
	switch l {
	case LimitMin:
		return "min"
	case LimitMax:
		return "max"
	}
	return "none"
}

// SoftEndstops is the software travel window inside the homed range.
// Invariant once configured: 0 <= Min < Max <= travel.
type SoftEndstops struct {
	Min     int32
	Max     int32
	Enabled bool

	travel int32 // maxPosition recorded by the last homing
}

// NewSoftEndstops returns the pre-homing window: enabled, [0, 0]
func NewSoftEndstops() SoftEndstops {
	return SoftEndstops{Enabled: true}
}

// Reset opens the window to the full homed travel and enables it
func (s *SoftEndstops) Reset(maxPosition int32) {
	s.travel = maxPosition
	s.Min = 0
	s.Max = maxPosition
	s.Enabled = true
}

// Travel returns the homed travel the window is bounded by
func (s *SoftEndstops) Travel() int32 {
	return s.travel
}

// Validate reports whether target lies inside the window. A disabled
// window accepts everything.
func (s *SoftEndstops) Validate(target int32) bool {
	if !s.Enabled {
		return true
	}
	return target >= s.Min && target <= s.Max
}

// Clamp returns the target to command: the target itself when valid,
// otherwise the bound it crossed.
func (s *SoftEndstops) Clamp(target int32) (int32, Limit) {
	if s.Validate(target) {
		return target, LimitNone
	}
	if target < s.Min {
		return s.Min, LimitMin
	}
	return s.Max, LimitMax
}

// Configure sets a new window. min is raised to 0 and max lowered to the
// homed travel before checking min < max; on error nothing changes.
func (s *SoftEndstops) Configure(min, max int32) error {
	if min < 0 {
		min = 0
	}
	if max > s.travel {
		max = s.travel
	}
	if min >= max {
		return ErrInvalidRange
	}
	s.Min = min
	s.Max = max
	return nil
}

// Enable turns clamping on
func (s *SoftEndstops) Enable() {
	s.Enabled = true
}

// Disable turns clamping off
func (s *SoftEndstops) Disable() {
	s.Enabled = false
}
