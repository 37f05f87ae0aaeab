//go:build rp2040 || rp2350

package main

import (
	"runtime/volatile"
	"unsafe"

	"axisctl/core"
)

// Timer peripheral register offsets, identical on both chips
const (
	timerTIMERAWH = timerBase + 0x24 // Raw timer high word, no latching
	timerTIMERAWL = timerBase + 0x28 // Raw timer low word, no latching
)

var (
	timerRAWH = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWH)))
	timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
)

// InitClock seeds the core clock. The hardware timer is a free-running
// 64-bit microsecond counter, matching core.TimerFreq.
func InitClock() {
	UpdateSystemTime()
	core.TimerInit()
}

// GetHardwareUptime reads the full 64-bit hardware timer
func GetHardwareUptime() uint64 {
	// Read high, low, high again to detect rollover of the low word
	for {
		high1 := timerRAWH.Get()
		low := timerRAWL.Get()
		high2 := timerRAWH.Get()
		if high1 == high2 {
			return (uint64(high1) << 32) | uint64(low)
		}
	}
}

// UpdateSystemTime copies hardware time into the core clock. Called once
// per control cycle.
func UpdateSystemTime() {
	core.SetTime(GetHardwareUptime())
}
