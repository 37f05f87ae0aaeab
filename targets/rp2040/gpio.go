//go:build rp2040 || rp2350

package main

import (
	"errors"

	"machine"

	"axisctl/core"
)

var errPinNotConfigured = errors.New("pin not configured")

// RPGPIODriver implements core.GPIODriver with machine pins. GPIO numbers
// map directly: GPIO0 = 0, GPIO1 = 1.
type RPGPIODriver struct {
	configured map[core.GPIOPin]machine.Pin
}

// NewRPGPIODriver creates an empty driver
func NewRPGPIODriver() *RPGPIODriver {
	return &RPGPIODriver{
		configured: make(map[core.GPIOPin]machine.Pin),
	}
}

func (d *RPGPIODriver) configure(pin core.GPIOPin, mode machine.PinMode) {
	p := machine.Pin(pin)
	p.Configure(machine.PinConfig{Mode: mode})
	d.configured[pin] = p
}

// ConfigureOutput latches initial before enabling the output driver
func (d *RPGPIODriver) ConfigureOutput(pin core.GPIOPin, initial bool) error {
	machine.Pin(pin).Set(initial)
	d.configure(pin, machine.PinOutput)
	return nil
}

func (d *RPGPIODriver) ConfigureInputPullUp(pin core.GPIOPin) error {
	d.configure(pin, machine.PinInputPullup)
	return nil
}

func (d *RPGPIODriver) ConfigureInputPullDown(pin core.GPIOPin) error {
	d.configure(pin, machine.PinInputPulldown)
	return nil
}

// SetPin drives a configured output
func (d *RPGPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	p, ok := d.configured[pin]
	if !ok {
		return errPinNotConfigured
	}
	p.Set(value)
	return nil
}

// GetPin reads a configured pin
func (d *RPGPIODriver) GetPin(pin core.GPIOPin) (bool, error) {
	p, ok := d.configured[pin]
	if !ok {
		return false, errPinNotConfigured
	}
	return p.Get(), nil
}

func (d *RPGPIODriver) ReadPin(pin core.GPIOPin) bool {
	v, _ := d.GetPin(pin)
	return v
}
