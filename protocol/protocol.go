// Package protocol implements the line-oriented operator protocol: CR/LF
// terminated ASCII commands in, single-line classified replies out.
package protocol

import "strings"

// Version represents the axisctl firmware version
const Version = "0.1.0"

// Protocol constants
const (
	MaxLineLength = 64  // Longest accepted command line, terminator excluded
	OutputMax     = 512 // Reply buffer flushed once per control cycle
	InputFifoSize = 256 // Receive FIFO between the serial reader and the loop
)

// Reply kinds prefix every line sent to the operator
const (
	KindOK    = "ok"
	KindError = "error"
	KindInfo  = "info"
	KindFault = "fault"
)

// FormatReply renders a reply line without terminator
func FormatReply(kind, msg string) string {
	if msg == "" {
		return kind
	}
	return kind + " " + msg
}

// ParseReply splits a reply line into its kind and message. ok is false for
// lines without a known prefix.
func ParseReply(line string) (kind, msg string, ok bool) {
	line = strings.TrimSpace(line)
	kind, msg, _ = strings.Cut(line, " ")
	switch kind {
	case KindOK, KindError, KindInfo, KindFault:
		return kind, strings.TrimSpace(msg), true
	}
	return "", line, false
}

// IsFinal reports whether a reply kind completes a command exchange
func IsFinal(kind string) bool {
	return kind == KindOK || kind == KindError
}
