//go:build rp2040 || rp2350

package pio

import (
	"device/arm"
	"device/rp"
	"machine"
)

// GPIOStepperBackend toggles step/dir through the single-cycle IO block.
// It is the fallback when no PIO state machine is free.
type GPIOStepperBackend struct {
	stepMask   uint32
	dirMask    uint32
	invertStep bool
	invertDir  bool
}

// NewGPIOStepperBackend creates a new GPIO-based stepper backend
func NewGPIOStepperBackend() *GPIOStepperBackend {
	return &GPIOStepperBackend{}
}

func (b *GPIOStepperBackend) Init(stepPin, dirPin uint8, invertStep, invertDir bool) error {
	b.stepMask = 1 << stepPin
	b.dirMask = 1 << dirPin
	b.invertStep = invertStep
	b.invertDir = invertDir

	for _, p := range []machine.Pin{machine.Pin(stepPin), machine.Pin(dirPin)} {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	}
	b.setStep(false)
	b.SetDirection(false)
	return nil
}

func (b *GPIOStepperBackend) setStep(active bool) {
	if active != b.invertStep {
		rp.SIO.GPIO_OUT_SET.Set(b.stepMask)
	} else {
		rp.SIO.GPIO_OUT_CLR.Set(b.stepMask)
	}
}

// Step emits one pulse of roughly 100ns at 125MHz, the TMC2209 minimum
func (b *GPIOStepperBackend) Step() {
	b.setStep(true)
	arm.Asm("nop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop")
	b.setStep(false)
}

// SetDirection drives the dir pin and waits out the 20ns dir-to-step setup
func (b *GPIOStepperBackend) SetDirection(reverse bool) {
	if reverse != b.invertDir {
		rp.SIO.GPIO_OUT_SET.Set(b.dirMask)
	} else {
		rp.SIO.GPIO_OUT_CLR.Set(b.dirMask)
	}
	arm.Asm("nop\nnop\nnop")
}

// Stop leaves the step line inactive
func (b *GPIOStepperBackend) Stop() {
	b.setStep(false)
}

func (b *GPIOStepperBackend) GetName() string {
	return "GPIO"
}
