//go:build rp2040 || rp2350

package pio

import (
	"axisctl/core"
)

var (
	// RP2040 has 2 PIO blocks (PIO0, PIO1) with 4 state machines each
	pioAllocations = [2][4]bool{} // [pioNum][smNum]
	nextPIONum     = uint8(0)
	nextSMNum      = uint8(0)
)

// NewBackend returns a PIO backend when the chip has a free state machine
// and the GPIO backend otherwise
func NewBackend() core.StepperBackend {
	if b := createPIOBackend(); b != nil {
		return b
	}
	return NewGPIOStepperBackend()
}

// allocatePIO hands out state machines round-robin. ok is false once all
// eight are taken.
func allocatePIO() (pioNum, smNum uint8, ok bool) {
	for i := 0; i < 8; i++ {
		pioNum, smNum = nextPIONum, nextSMNum

		nextSMNum++
		if nextSMNum >= 4 {
			nextSMNum = 0
			nextPIONum = (nextPIONum + 1) % 2
		}

		if !pioAllocations[pioNum][smNum] {
			pioAllocations[pioNum][smNum] = true
			return pioNum, smNum, true
		}
	}
	return 0, 0, false
}
