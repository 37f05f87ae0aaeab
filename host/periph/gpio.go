// Package periph drives the axis from a Linux single-board computer through
// the periph.io GPIO registry.
package periph

import (
	"errors"
	"fmt"
	"math"
	"time"

	"axisctl/core"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

var (
	ErrUnknownPin = errors.New("pin not bound")
	ErrPinRange   = errors.New("pin number does not fit a stepper backend")
)

// GPIO implements core.GPIODriver over periph pins. Pins are identified by
// their periph number once bound.
type GPIO struct {
	pins map[core.GPIOPin]gpio.PinIO
}

// NewGPIO returns a driver with no pins bound
func NewGPIO() *GPIO {
	return &GPIO{pins: make(map[core.GPIOPin]gpio.PinIO)}
}

// Bind looks name up in the GPIO registry ("GPIO17", "P1_11", ...)
func (g *GPIO) Bind(name string) (core.GPIOPin, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return 0, fmt.Errorf("failed to find pin %s", name)
	}
	return g.Add(p), nil
}

// Add binds an already resolved pin
func (g *GPIO) Add(p gpio.PinIO) core.GPIOPin {
	id := core.GPIOPin(p.Number())
	g.pins[id] = p
	return id
}

// StepperPin narrows id to the 8-bit pin number core.NewStepper takes
func StepperPin(id core.GPIOPin) (uint8, error) {
	if id > math.MaxUint8 {
		return 0, fmt.Errorf("%w: %d", ErrPinRange, id)
	}
	return uint8(id), nil
}

func (g *GPIO) pin(id core.GPIOPin) (gpio.PinIO, error) {
	p, ok := g.pins[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPin, id)
	}
	return p, nil
}

func (g *GPIO) ConfigureOutput(id core.GPIOPin, initial bool) error {
	p, err := g.pin(id)
	if err != nil {
		return err
	}
	return p.Out(gpio.Level(initial))
}

func (g *GPIO) ConfigureInputPullUp(id core.GPIOPin) error {
	p, err := g.pin(id)
	if err != nil {
		return err
	}
	return p.In(gpio.PullUp, gpio.NoEdge)
}

func (g *GPIO) ConfigureInputPullDown(id core.GPIOPin) error {
	p, err := g.pin(id)
	if err != nil {
		return err
	}
	return p.In(gpio.PullDown, gpio.NoEdge)
}

func (g *GPIO) SetPin(id core.GPIOPin, value bool) error {
	p, err := g.pin(id)
	if err != nil {
		return err
	}
	return p.Out(gpio.Level(value))
}

func (g *GPIO) GetPin(id core.GPIOPin) (bool, error) {
	p, err := g.pin(id)
	if err != nil {
		return false, err
	}
	return p.Read() == gpio.High, nil
}

// ReadPin reads the pin, treating an unbound pin as low
func (g *GPIO) ReadPin(id core.GPIOPin) bool {
	v, _ := g.GetPin(id)
	return v
}

// StepperBackend generates step pulses by writing periph pins. A sysfs or
// register write already takes longer than the driver's minimum pulse
// width, so PulseWidth is normally zero.
type StepperBackend struct {
	gpio *GPIO

	step, dir  gpio.PinIO
	invertStep bool
	invertDir  bool

	PulseWidth time.Duration
}

// NewStepperBackend creates a backend over pins bound in g
func NewStepperBackend(g *GPIO) *StepperBackend {
	return &StepperBackend{gpio: g}
}

func (b *StepperBackend) Init(stepPin, dirPin uint8, invertStep, invertDir bool) error {
	var err error
	if b.step, err = b.gpio.pin(core.GPIOPin(stepPin)); err != nil {
		return err
	}
	if b.dir, err = b.gpio.pin(core.GPIOPin(dirPin)); err != nil {
		return err
	}
	b.invertStep = invertStep
	b.invertDir = invertDir

	if err := b.step.Out(gpio.Level(invertStep)); err != nil {
		return err
	}
	return b.dir.Out(gpio.Level(invertDir))
}

func (b *StepperBackend) Step() {
	b.step.Out(gpio.Level(!b.invertStep))
	if b.PulseWidth > 0 {
		time.Sleep(b.PulseWidth)
	}
	b.step.Out(gpio.Level(b.invertStep))
}

func (b *StepperBackend) SetDirection(reverse bool) {
	b.dir.Out(gpio.Level(reverse != b.invertDir))
}

func (b *StepperBackend) Stop() {
	b.step.Out(gpio.Level(b.invertStep))
}

func (b *StepperBackend) GetName() string {
	return "periph"
}
