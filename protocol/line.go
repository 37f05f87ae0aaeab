package protocol

import (
	"io"
	"strings"
)

// LineReader assembles terminated lines from a FIFO. Either CR or LF ends
// a line, so CRLF yields one line and an empty one that is skipped. Lines
// longer than MaxLineLength are discarded whole.
type LineReader struct {
	fifo     *FifoBuffer
	line     [MaxLineLength]byte
	n        int
	overflow bool
	dropped  int
}

// NewLineReader reads lines from fifo
func NewLineReader(fifo *FifoBuffer) *LineReader {
	return &LineReader{fifo: fifo}
}

// ReadLine returns the next complete non-empty line with surrounding
// whitespace removed. ok is false when no full line is buffered yet.
func (r *LineReader) ReadLine() (line string, ok bool) {
	for {
		b, more := r.fifo.ReadByte()
		if !more {
			return "", false
		}

		if b == '\n' || b == '\r' {
			if r.overflow {
				r.overflow = false
				r.n = 0
				r.dropped++
				continue
			}
			s := strings.TrimSpace(string(r.line[:r.n]))
			r.n = 0
			if s == "" {
				continue
			}
			return s, true
		}

		if r.overflow {
			continue
		}
		if r.n == len(r.line) {
			r.overflow = true
			continue
		}
		r.line[r.n] = b
		r.n++
	}
}

// Dropped returns the number of overlong lines discarded
func (r *LineReader) Dropped() int {
	return r.dropped
}

// LineWriter emits classified reply lines terminated by CRLF
type LineWriter struct {
	w io.Writer
}

// NewLineWriter writes replies to w
func NewLineWriter(w io.Writer) *LineWriter {
	return &LineWriter{w: w}
}

// Reply writes one line of the given kind
func (lw *LineWriter) Reply(kind, msg string) error {
	_, err := io.WriteString(lw.w, FormatReply(kind, msg)+"\r\n")
	return err
}
