package core

// Accelerating absolute-position stepper.
// Step intervals follow the constant-acceleration recurrence
// c(n) = c(n-1) - 2c(n-1)/(4n+1), which avoids a square root per step.

import (
	"errors"
	"math"
)

// ErrNoBackend is returned when a stepper is created without hardware
var ErrNoBackend = errors.New("stepper backend missing")

// Stepper represents a single stepper motor axis
type Stepper struct {
	// Configuration
	StepPin    uint8 // Step pulse output pin
	DirPin     uint8 // Direction output pin
	InvertStep bool  // Invert step signal polarity
	InvertDir  bool  // Invert direction signal polarity

	// State
	position int32
	target   int32
	speed    float32 // steps/s, negative when moving toward lower positions
	maxSpeed float32
	accel    float32

	// Profile state
	n            int32   // step index within the ramp, negative while decelerating
	c0           float32 // first step interval (us)
	cn           float32 // last step interval (us)
	cmin         float32 // interval at max speed (us)
	stepInterval uint64  // 0 when stopped
	lastStepTime uint64
	forward      bool
	dirApplied   bool
	dirKnown     bool

	// Hardware backend
	Backend StepperBackend

	now func() uint64
}

// NewStepper creates a stepper and initializes its backend
func NewStepper(backend StepperBackend, stepPin, dirPin uint8, invertStep, invertDir bool) (*Stepper, error) {
	if backend == nil {
		return nil, ErrNoBackend
	}
	s := &Stepper{
		StepPin:    stepPin,
		DirPin:     dirPin,
		InvertStep: invertStep,
		InvertDir:  invertDir,
		Backend:    backend,
		maxSpeed:   1,
		cmin:       1000000,
		forward:    true,
		now:        GetTime,
	}
	if err := backend.Init(stepPin, dirPin, invertStep, invertDir); err != nil {
		return nil, err
	}
	s.SetAcceleration(1)
	return s, nil
}

// SetMaxSpeed sets the cruise speed in steps/second
func (s *Stepper) SetMaxSpeed(speed float32) {
	if speed < 0 {
		speed = -speed
	}
	if speed == 0 || s.maxSpeed == speed {
		return
	}
	s.maxSpeed = speed
	s.cmin = 1000000.0 / speed
	// Already accelerating: recompute where on the ramp we are
	if s.n > 0 {
		s.n = int32((s.speed * s.speed) / (2.0 * s.accel))
		s.computeNewSpeed()
	}
}

// MaxSpeed returns the configured cruise speed
func (s *Stepper) MaxSpeed() float32 {
	return s.maxSpeed
}

// SetAcceleration sets the ramp acceleration in steps/second^2
func (s *Stepper) SetAcceleration(accel float32) {
	if accel < 0 {
		accel = -accel
	}
	if accel == 0 || s.accel == accel {
		return
	}
	if s.accel != 0 {
		s.n = int32(float32(s.n) * (s.accel / accel))
	}
	// Equation 15 of the Austin ramp paper, with the 0.676 correction
	s.c0 = float32(0.676 * math.Sqrt(2.0/float64(accel)) * 1000000.0)
	s.accel = accel
	s.computeNewSpeed()
}

// MoveTo sets a new absolute target position
func (s *Stepper) MoveTo(position int32) {
	if s.target != position {
		s.target = position
		s.computeNewSpeed()
	}
}

// Move sets a target relative to the current position
func (s *Stepper) Move(relative int32) {
	s.MoveTo(s.position + relative)
}

// Target returns the absolute target position
func (s *Stepper) Target() int32 {
	return s.target
}

// DistanceToGo returns target minus current position
func (s *Stepper) DistanceToGo() int32 {
	return s.target - s.position
}

// CurrentPosition returns the current position in steps
func (s *Stepper) CurrentPosition() int32 {
	return s.position
}

// SetCurrentPosition redefines the current position. Speed drops to zero
// and the target becomes the new position.
func (s *Stepper) SetCurrentPosition(position int32) {
	s.position = position
	s.target = position
	s.n = 0
	s.stepInterval = 0
	s.speed = 0
}

// Speed returns the signed speed in steps/second
func (s *Stepper) Speed() float32 {
	return s.speed
}

// IsRunning reports whether motion is still in progress
func (s *Stepper) IsRunning() bool {
	return !(s.speed == 0 && s.target == s.position)
}

// Stop retargets to the nearest position reachable under full deceleration
func (s *Stepper) Stop() {
	if s.speed == 0 {
		return
	}
	stepsToStop := int32((s.speed*s.speed)/(2.0*s.accel)) + 1
	if s.speed > 0 {
		s.Move(stepsToStop)
	} else {
		s.Move(-stepsToStop)
	}
}

// Run emits a step if one is due and updates the speed profile.
// Returns true while the stepper has not reached its target.
func (s *Stepper) Run() bool {
	if s.runSpeed() {
		s.computeNewSpeed()
	}
	return s.speed != 0 || s.DistanceToGo() != 0
}

// runSpeed emits one step when the current interval has elapsed
func (s *Stepper) runSpeed() bool {
	if s.stepInterval == 0 {
		return false
	}
	t := s.now()
	if t-s.lastStepTime < s.stepInterval {
		return false
	}
	if !s.dirKnown || s.dirApplied != s.forward {
		// Backend takes true for reverse
		s.Backend.SetDirection(!s.forward)
		s.dirApplied = s.forward
		s.dirKnown = true
	}
	if s.forward {
		s.position++
	} else {
		s.position--
	}
	s.Backend.Step()
	s.lastStepTime = t
	return true
}

// computeNewSpeed works out the next step interval from the distance to
// go and the steps needed to stop at the current speed.
func (s *Stepper) computeNewSpeed() {
	distanceTo := s.DistanceToGo()
	stepsToStop := int32((s.speed * s.speed) / (2.0 * s.accel))

	if distanceTo == 0 && stepsToStop <= 1 {
		// At target and slow enough to stop here
		s.stepInterval = 0
		s.speed = 0
		s.n = 0
		return
	}

	if distanceTo > 0 {
		// Target is ahead
		if s.n > 0 {
			if stepsToStop >= distanceTo || !s.forward {
				s.n = -stepsToStop
			}
		} else if s.n < 0 {
			if stepsToStop < distanceTo && s.forward {
				s.n = -s.n
			}
		}
	} else if distanceTo < 0 {
		// Target is behind
		if s.n > 0 {
			if stepsToStop >= -distanceTo || s.forward {
				s.n = -stepsToStop
			}
		} else if s.n < 0 {
			if stepsToStop < -distanceTo && !s.forward {
				s.n = -s.n
			}
		}
	}

	if s.n == 0 {
		// First step from rest
		s.cn = s.c0
		s.forward = distanceTo > 0
	} else {
		s.cn = s.cn - (2.0*s.cn)/(4.0*float32(s.n)+1.0)
		if s.cn < s.cmin {
			s.cn = s.cmin
		}
	}
	s.n++
	s.stepInterval = uint64(s.cn)
	if s.stepInterval == 0 {
		s.stepInterval = 1
	}
	s.speed = 1000000.0 / s.cn
	if !s.forward {
		s.speed = -s.speed
	}
}
