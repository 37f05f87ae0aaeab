package core

// The system clock counts microseconds since boot in 64 bits so that
// timeouts measured in minutes never wrap.
const (
	TimerFreq = 1000000 // 1MHz, matches the RP2040 TIMER peripheral
)

var bootTime uint64

// GetTime returns the current system time in timer ticks (microseconds)
func GetTime() uint64 {
	return getSystemTicks()
}

// SetTime sets the current system time (for testing/hardware integration)
func SetTime(ticks uint64) {
	setSystemTicks(ticks)
}

// GetUptime returns ticks elapsed since TimerInit
func GetUptime() uint64 {
	return GetTime() - bootTime
}

// TimerFromMS converts milliseconds to timer ticks
func TimerFromMS(ms uint32) uint64 {
	return uint64(ms) * (TimerFreq / 1000)
}

// TimerToMS converts timer ticks to milliseconds
func TimerToMS(ticks uint64) uint64 {
	return ticks / (TimerFreq / 1000)
}

// TimerInit records the boot reference for GetUptime
func TimerInit() {
	bootTime = GetTime()
}
