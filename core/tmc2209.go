package core

// TMC2209 single-wire UART link used for stall detection.
// Frames are three bytes: sync, register address, value.

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"
)

// TMC2209 register addresses and flags
const (
	TMC2209_SYNC = 0x05 // Frame sync byte

	TMC2209_GCONF      = 0x03 // Written 0 to reset the global configuration
	TMC2209_COOLCONF   = 0x6C // CoolStep control, written 0 to disable
	TMC2209_SGTHRS     = 0x40 // StallGuard threshold
	TMC2209_DRV_STATUS = 0x6F // Driver status read request

	TMC2209_STATUS_STALL = 0x10 // Stall flag in the status byte

	// DefaultStallThreshold is the StallGuard sensitivity written at init
	DefaultStallThreshold = 100
)

var ErrShortWrite = errors.New("driver link short write")

// TMCLink talks to a TMC2209 over a UART
type TMCLink struct {
	uart drivers.UART

	// ResetSettle is the pause after the reset write before the driver
	// accepts further configuration
	ResetSettle time.Duration

	status uint8
	frame [3]byte
	rx    [1]byte
}

// NewTMCLink wraps a UART connected to the driver
func NewTMCLink(uart drivers.UART) *TMCLink {
	return &TMCLink{
		uart:        uart,
		ResetSettle: 10 * time.Millisecond,
	}
}

// WriteRegister sends one sync/address/value frame
func (l *TMCLink) WriteRegister(addr, value uint8) error {
	l.frame[0] = TMC2209_SYNC
	l.frame[1] = addr
	l.frame[2] = value
	n, err := l.uart.Write(l.frame[:])
	if err != nil {
		return err
	}
	if n != len(l.frame) {
		return ErrShortWrite
	}
	return nil
}

// Init resets the driver configuration, disables CoolStep and sets the
// StallGuard threshold
func (l *TMCLink) Init(threshold uint8) error {
	if err := l.WriteRegister(TMC2209_GCONF, 0); err != nil {
		return err
	}
	if l.ResetSettle > 0 {
		time.Sleep(l.ResetSettle)
	}
	if err := l.WriteRegister(TMC2209_COOLCONF, 0); err != nil {
		return err
	}
	return l.WriteRegister(TMC2209_SGTHRS, threshold)
}

// PollStall requests the driver status and consumes one pending status
// byte if the driver has answered. It never blocks waiting for a reply;
// an unanswered poll reports no stall.
func (l *TMCLink) PollStall() (bool, error) {
	l.frame[0] = TMC2209_SYNC
	l.frame[1] = TMC2209_DRV_STATUS
	n, err := l.uart.Write(l.frame[:2])
	if err != nil {
		return false, err
	}
	if n != 2 {
		return false, ErrShortWrite
	}

	if l.uart.Buffered() == 0 {
		return false, nil
	}
	n, err = l.uart.Read(l.rx[:])
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	l.status = l.rx[0]
	return l.status&TMC2209_STATUS_STALL != 0, nil
}

// Status returns the most recent status byte read back. An unanswered
// poll leaves it unchanged.
func (l *TMCLink) Status() uint8 {
	return l.status
}
