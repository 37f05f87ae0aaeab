package axis

import (
	"errors"
	"time"

	"axisctl/core"
)

var ErrInvalidConfig = errors.New("invalid axis config")

// Config holds the motion and safety parameters of one axis
type Config struct {
	MaxSpeed     float32 // Operating speed in Ready, steps/s
	Acceleration float32 // steps/s^2
	HomingSpeed  float32 // Speed for both homing legs, steps/s

	// HomingTravel is the distance commanded for each homing leg. It only
	// has to exceed the physical travel; the switch stops the leg.
	HomingTravel int32

	SettleTime   time.Duration // Pause after each homing leg
	ResetTimeout time.Duration // WaitReset rehomes by itself after this

	StallThreshold uint8  // StallGuard sensitivity written at driver init
	StallPollEvery uint16 // Poll the driver every Nth Ready cycle

	// StrictSwitchCheck disables the back-off exemption: a switch already
	// pressed when a move starts counts as a contradiction while the axis
	// leaves it.
	StrictSwitchCheck bool

	// DepartTravel bounds the back-off exemption. A switch still pressed
	// after the axis has moved this many steps away from it is stuck and
	// faults like any other contradiction.
	DepartTravel int32
}

// DefaultConfig returns the firmware defaults
func DefaultConfig() Config {
	return Config{
		MaxSpeed:       400,
		Acceleration:   1000,
		HomingSpeed:    200,
		HomingTravel:   100000,
		SettleTime:     500 * time.Millisecond,
		ResetTimeout:   10 * time.Minute,
		StallThreshold: core.DefaultStallThreshold,
		StallPollEvery: 1,
		DepartTravel:   200,
	}
}

// Validate checks that every speed and distance is usable
func (c Config) Validate() error {
	if c.MaxSpeed <= 0 || c.Acceleration <= 0 || c.HomingSpeed <= 0 {
		return ErrInvalidConfig
	}
	if c.HomingTravel <= 0 || c.SettleTime < 0 || c.ResetTimeout <= 0 {
		return ErrInvalidConfig
	}
	if c.DepartTravel <= 0 && !c.StrictSwitchCheck {
		return ErrInvalidConfig
	}
	return nil
}

// ticks converts a millisecond-granular duration to timer ticks
func ticks(d time.Duration) uint64 {
	return core.TimerFromMS(uint32(d / time.Millisecond))
}
