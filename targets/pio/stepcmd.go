package pio

// Step command word pulled by the PIO program. With right shift the
// program consumes bits low to high: out x,16 then out y,8 then
// out pins,1, so the direction level sits in bit 24.
//
//	Bits 0-15:  pulse count minus one (jmp x-- runs the loop x+1 times)
//	Bits 16-23: delay cycles between pulses
//	Bit 24:     direction level
const (
	cmdDelayShift = 16
	cmdDirBit     = 24
)

// encodeStepCommand builds a command for pulses (>= 1) step pulses
func encodeStepCommand(pulses uint16, delay uint8, dirLevel bool) uint32 {
	if pulses == 0 {
		pulses = 1
	}
	cmd := uint32(pulses-1) | uint32(delay)<<cmdDelayShift
	if dirLevel {
		cmd |= 1 << cmdDirBit
	}
	return cmd
}

// decodeStepCommand splits a command word the way the program consumes it
func decodeStepCommand(cmd uint32) (pulses uint16, delay uint8, dirLevel bool) {
	return uint16(cmd) + 1, uint8(cmd >> cmdDelayShift), cmd>>cmdDirBit&1 == 1
}
