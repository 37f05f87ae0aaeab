//go:build rp2350

package main

const timerBase = 0x400b0000 // TIMER0
