package core

// StepperBackend defines the hardware abstraction for step/dir output
// Implementations can use GPIO, PIO, or other methods
type StepperBackend interface {
	// Init initializes the stepper hardware
	// stepPin: GPIO pin for step pulses
	// dirPin: GPIO pin for direction signal
	// invertStep: invert step pin polarity
	// invertDir: invert direction pin polarity
	Init(stepPin, dirPin uint8, invertStep, invertDir bool) error

	// Step generates a single step pulse
	// Must handle pulse width timing internally
	Step()

	// SetDirection sets the direction output
	// dir: true = reverse, false = forward
	// Must ensure proper dir-to-step setup time
	SetDirection(dir bool)

	// Stop immediately halts stepping
	Stop()

	// GetName returns backend implementation name
	GetName() string
}

// MotionPrimitive is an absolute-position stepper with a trapezoidal
// velocity profile. Run never blocks and emits at most one step per call.
type MotionPrimitive interface {
	SetMaxSpeed(stepsPerSec float32)
	SetAcceleration(stepsPerSec2 float32)
	MoveTo(position int32)
	// Run advances the profile; returns true while motion remains
	Run() bool
	// Stop decelerates to rest as fast as the acceleration allows
	Stop()
	// SetCurrentPosition redefines the current position and zeroes speed
	SetCurrentPosition(position int32)
	CurrentPosition() int32
	// Speed is the signed instantaneous speed in steps/second
	Speed() float32
}
