//go:build rp2040

package pio

import (
	"errors"
	"machine"

	"axisctl/core"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

var errInvertedStep = errors.New("PIO backend cannot invert the step pin")

// buildStepperProgram consumes one command word per burst; the layout is
// in stepcmd.go
func buildStepperProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		asm.Pull(false, true).Encode(),          // 0: pull block
		asm.Out(rp2pio.OutDestX, 16).Encode(),   // 1: out x, 16 (pulses - 1)
		asm.Out(rp2pio.OutDestY, 8).Encode(),    // 2: out y, 8 (delay cycles)
		asm.Out(rp2pio.OutDestPins, 1).Encode(), // 3: out pins, 1 (direction)
		// step_loop:
		asm.Set(rp2pio.SetDestPins, 1).Delay(7).Encode(), // 4: set pins, 1 [7]
		asm.Set(rp2pio.SetDestPins, 0).Encode(),          // 5: set pins, 0
		// delay_loop:
		asm.Jmp(6, rp2pio.JmpYNZeroDec).Encode(), // 6: jmp y--, 6
		asm.Jmp(4, rp2pio.JmpXNZeroDec).Encode(), // 7: jmp x--, 4
		// .wrap
	}
}

const stepperPIOOrigin = 0 // Jump addresses above assume offset 0

// PIOStepperBackend hands each step to a PIO state machine as a one-pulse
// command, so pulse width does not depend on loop timing
type PIOStepperBackend struct {
	pio       *rp2pio.PIO
	sm        rp2pio.StateMachine
	stepPin   machine.Pin
	dirPin    machine.Pin
	dirLevel  bool
	invertDir bool
}

func createPIOBackend() core.StepperBackend {
	pioNum, smNum, ok := allocatePIO()
	if !ok {
		return nil
	}
	return NewPIOStepperBackend(pioNum, smNum)
}

// NewPIOStepperBackend binds PIO block pioNum (0 or 1), state machine smNum
func NewPIOStepperBackend(pioNum, smNum uint8) *PIOStepperBackend {
	pioHW := rp2pio.PIO0
	if pioNum != 0 {
		pioHW = rp2pio.PIO1
	}
	return &PIOStepperBackend{
		pio: pioHW,
		sm:  pioHW.StateMachine(smNum),
	}
}

func (b *PIOStepperBackend) Init(stepPin, dirPin uint8, invertStep, invertDir bool) error {
	if invertStep {
		return errInvertedStep
	}
	b.stepPin = machine.Pin(stepPin)
	b.dirPin = machine.Pin(dirPin)
	b.invertDir = invertDir
	b.dirLevel = invertDir

	// The state machine must be claimed before the program is loaded
	b.sm.TryClaim()

	program := buildStepperProgram()
	offset, err := b.pio.AddProgram(program, stepperPIOOrigin)
	if err != nil {
		return err
	}

	b.stepPin.Configure(machine.PinConfig{Mode: b.pio.PinMode()})
	b.dirPin.Configure(machine.PinConfig{Mode: b.pio.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetSetPins(b.stepPin, 1)
	cfg.SetOutPins(b.dirPin, 1)
	// Shift right, explicit PULL, 32-bit threshold
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)
	cfg.SetClkDivIntFrac(1000, 0)

	b.sm.Init(offset, cfg)

	// Pin directions only stick after Init
	b.sm.SetPindirsConsecutive(b.stepPin, 1, true)
	b.sm.SetPindirsConsecutive(b.dirPin, 1, true)
	b.sm.SetPinsConsecutive(b.stepPin, 1, false)
	b.sm.SetPinsConsecutive(b.dirPin, 1, b.dirLevel)

	b.sm.SetEnabled(true)
	return nil
}

// Step queues a single pulse carrying the current direction level
func (b *PIOStepperBackend) Step() {
	cmd := encodeStepCommand(1, 1, b.dirLevel)
	for b.sm.IsTxFIFOFull() {
	}
	b.sm.TxPut(cmd)
}

// SetDirection takes effect with the next queued pulse
func (b *PIOStepperBackend) SetDirection(reverse bool) {
	b.dirLevel = reverse != b.invertDir
}

// Stop drops queued pulses and restarts the program
func (b *PIOStepperBackend) Stop() {
	b.sm.SetEnabled(false)
	b.sm.ClearFIFOs()
	b.sm.Restart()
	b.sm.SetEnabled(true)
}

func (b *PIOStepperBackend) GetName() string {
	return "PIO"
}
