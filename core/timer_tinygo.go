//go:build tinygo

package core

var systemTicks uint64

// 64-bit loads are not atomic on Cortex-M0+, so guard against a tick
// update landing between the two halves.
func getSystemTicks() uint64 {
	state := disableInterrupts()
	t := systemTicks
	restoreInterrupts(state)
	return t
}

func setSystemTicks(ticks uint64) {
	state := disableInterrupts()
	systemTicks = ticks
	restoreInterrupts(state)
}
