//go:build rp2040 || rp2350

package main

// Wiring bring-up: jogs the axis back and forth at increasing speeds and
// prints limit switch states. Run with the carriage mid-travel; the jog
// stops short of any switch that reads triggered.

import (
	"machine"
	"time"

	"axisctl/core"
	"axisctl/targets/pio"
)

const (
	stepPin   = 2
	dirPin    = 3
	enablePin = 4
	minPin    = 5
	maxPin    = 6

	jogSteps = 800
)

var speeds = []float32{100, 200, 400, 800}

type pinDriver struct{}

func (pinDriver) ConfigureOutput(p core.GPIOPin, initial bool) error {
	machine.Pin(p).Set(initial)
	machine.Pin(p).Configure(machine.PinConfig{Mode: machine.PinOutput})
	return nil
}
func (pinDriver) ConfigureInputPullUp(p core.GPIOPin) error {
	machine.Pin(p).Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	return nil
}
func (pinDriver) ConfigureInputPullDown(p core.GPIOPin) error {
	machine.Pin(p).Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
	return nil
}
func (pinDriver) SetPin(p core.GPIOPin, v bool) error { machine.Pin(p).Set(v); return nil }
func (pinDriver) GetPin(p core.GPIOPin) (bool, error) { return machine.Pin(p).Get(), nil }
func (pinDriver) ReadPin(p core.GPIOPin) bool         { return machine.Pin(p).Get() }

func main() {
	time.Sleep(3 * time.Second)

	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})

	println("=== axisctl bring-up ===")
	println("Step: GP2, Dir: GP3, Enable: GP4, Min: GP5, Max: GP6")

	gpio := pinDriver{}
	backend := pio.NewBackend()
	stepper, err := core.NewStepper(backend, stepPin, dirPin, false, false)
	must(led, err)
	minSwitch, err := core.NewEndstop(gpio, minPin, false, 2)
	must(led, err)
	maxSwitch, err := core.NewEndstop(gpio, maxPin, false, 2)
	must(led, err)
	enable, err := core.NewEnableOutput(gpio, enablePin)
	must(led, err)
	println("Backend:", backend.GetName())

	enable.Enable()
	stepper.SetAcceleration(1000)

	start := time.Now()
	for cycle := 1; ; cycle++ {
		println("\n=== Cycle", cycle, "===")
		for _, speed := range speeds {
			stepper.SetMaxSpeed(speed)
			for _, dir := range []int32{jogSteps, -jogSteps} {
				stepper.Move(dir)
				led.High()
				for {
					core.SetTime(uint64(time.Since(start) / time.Microsecond))
					if !stepper.Run() {
						break
					}
					if dir > 0 && maxSwitch.Triggered() || dir < 0 && minSwitch.Triggered() {
						println("  switch hit, stopping")
						stepper.SetCurrentPosition(stepper.CurrentPosition())
						break
					}
				}
				led.Low()
				println("  speed", int(speed), "pos", stepper.CurrentPosition(),
					"min", minSwitch.Triggered(), "max", maxSwitch.Triggered())
				time.Sleep(300 * time.Millisecond)
			}
		}
	}
}

// must blinks the LED forever on a setup error
func must(led machine.Pin, err error) {
	if err == nil {
		return
	}
	println("Init error:", err.Error())
	for {
		led.High()
		time.Sleep(100 * time.Millisecond)
		led.Low()
		time.Sleep(100 * time.Millisecond)
	}
}
