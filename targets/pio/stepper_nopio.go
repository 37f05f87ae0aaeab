//go:build rp2350

package pio

import "axisctl/core"

// The PIO program is only validated on RP2040; RP2350 boards step by GPIO.
func createPIOBackend() core.StepperBackend {
	return nil
}
