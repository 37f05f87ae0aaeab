//go:build linux && !tinygo

package main

import (
	"bufio"
	"io"
	"strings"

	"axisctl/protocol"
)

// lineFeed reads command lines on a goroutine and hands them to the
// control loop without blocking it
type lineFeed struct {
	lines   chan string
	dropped int
	eof     bool
}

func newLineFeed(r io.Reader) *lineFeed {
	f := &lineFeed{lines: make(chan string, 16)}
	go f.read(r)
	return f
}

func (f *lineFeed) read(r io.Reader) {
	defer close(f.lines)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		f.lines <- line
	}
}

// EOF reports whether input has ended and every line was consumed
func (f *lineFeed) EOF() bool {
	return f.eof
}

// ReadLine returns the next queued line. Lines longer than the firmware
// accepts are discarded.
func (f *lineFeed) ReadLine() (string, bool) {
	for {
		select {
		case line, ok := <-f.lines:
			if !ok {
				f.eof = true
				return "", false
			}
			if len(line) > protocol.MaxLineLength {
				f.dropped++
				continue
			}
			return line, true
		default:
			return "", false
		}
	}
}
