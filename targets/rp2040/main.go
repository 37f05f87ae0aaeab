//go:build rp2040 || rp2350

package main

import (
	"machine"
	"time"

	"axisctl/axis"
	"axisctl/core"
	"axisctl/protocol"
	"axisctl/targets/pio"
)

// Board wiring
const (
	stepPin   = 2
	dirPin    = 3
	enablePin = 4
	minPin    = 5
	maxPin    = 6

	switchSamples = 2
)

var (
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput
	lines        *protocol.LineReader

	// Debug counters
	msgerrors uint32

	// USB connection state tracking
	usbWasDisconnected       bool
	consecutiveWriteFailures uint32
)

func main() {
	// Disable a watchdog left running by a previous image
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	InitUSB()
	InitDebugUART()
	InitClock()

	gpio := NewRPGPIODriver()
	core.SetGPIODriver(gpio)

	inputBuffer = protocol.NewFifoBuffer(protocol.InputFifoSize)
	outputBuffer = protocol.NewScratchOutput()
	lines = protocol.NewLineReader(inputBuffer)
	out := protocol.NewLineWriter(outputBuffer)

	out.Reply(protocol.KindInfo, "axisctl "+protocol.Version+" started")

	cfg := axis.DefaultConfig()
	var driver axis.StallSensor
	if link, err := initDriverLink(cfg.StallThreshold); err != nil {
		out.Reply(protocol.KindError, "driver link "+err.Error())
	} else {
		driver = link
		out.Reply(protocol.KindInfo, "driver configured")
	}

	ctrl, err := buildController(cfg, gpio, driver)
	if err != nil {
		// Nothing can move without the motion hardware; keep reporting why
		for {
			out.Reply(protocol.KindFault, err.Error())
			writeUSB()
			time.Sleep(time.Second)
		}
	}

	go usbReaderLoop()

	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					msgerrors++
					inputBuffer.Reset()
					outputBuffer.Reset()
				}
			}()

			UpdateSystemTime()
			ctrl.Cycle(lines)
			writeUSB()
		}()

		// Yield to the USB reader goroutine
		time.Sleep(10 * time.Microsecond)
	}
}

// initDriverLink configures UART1 (TX GPIO8, RX GPIO9) and the TMC2209
// behind it
func initDriverLink(threshold uint8) (*core.TMCLink, error) {
	uart := machine.UART1
	err := uart.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GPIO8,
		RX:       machine.GPIO9,
	})
	if err != nil {
		return nil, err
	}
	link := core.NewTMCLink(uart)
	if err := link.Init(threshold); err != nil {
		return nil, err
	}
	return link, nil
}

func buildController(cfg axis.Config, gpio core.GPIODriver, driver axis.StallSensor) (*axis.Controller, error) {
	stepper, err := core.NewStepper(pio.NewBackend(), stepPin, dirPin, false, false)
	if err != nil {
		return nil, err
	}
	minSwitch, err := core.NewEndstop(gpio, minPin, false, switchSamples)
	if err != nil {
		return nil, err
	}
	maxSwitch, err := core.NewEndstop(gpio, maxPin, false, switchSamples)
	if err != nil {
		return nil, err
	}
	enable, err := core.NewEnableOutput(gpio, enablePin)
	if err != nil {
		return nil, err
	}

	return axis.New(cfg, axis.Hardware{
		Motion: stepper,
		Min:    minSwitch,
		Max:    maxSwitch,
		Enable: enable,
		Driver: driver,
	}, outputBuffer)
}

// usbReaderLoop moves received bytes into the input FIFO
func usbReaderLoop() {
	defer func() {
		if r := recover(); r != nil {
			msgerrors++
			time.Sleep(100 * time.Millisecond)
			go usbReaderLoop()
		}
	}()

	for {
		// Bytes stay in the CDC buffer until the line reader frees space
		if USBAvailable() > 0 && inputBuffer.Free() > 0 {
			data, err := USBRead()
			if err != nil {
				msgerrors++
				time.Sleep(time.Millisecond)
				continue
			}

			// A host reconnecting should not see a half line from before
			if usbWasDisconnected {
				usbWasDisconnected = false
				consecutiveWriteFailures = 0
				inputBuffer.Reset()
				outputBuffer.Reset()
			}

			if inputBuffer.Write([]byte{data}) == 0 {
				msgerrors++
			}
			continue
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// writeUSB flushes the reply buffer. Repeated failures mark the host as
// gone and discard stale output.
func writeUSB() {
	result := outputBuffer.Result()
	if len(result) == 0 {
		return
	}

	written := 0
	for written < len(result) {
		n, err := USBWriteBytes(result[written:])
		if err != nil || n == 0 {
			consecutiveWriteFailures++
			if consecutiveWriteFailures > 10 {
				usbWasDisconnected = true
				consecutiveWriteFailures = 0
				outputBuffer.Reset()
				inputBuffer.Reset()
			}
			return
		}
		written += n
	}
	consecutiveWriteFailures = 0
	outputBuffer.Reset()
}
