package serial

import (
	"io"
	"sync"
)

// UART adapts a blocking Port to the non-blocking read model of a
// microcontroller UART: a background reader fills a buffer that Read
// drains without waiting.
type UART struct {
	port io.ReadWriter

	mu   sync.Mutex
	buf  []byte
	err  error
	done chan struct{}
}

// NewUART starts the background reader on port
func NewUART(port io.ReadWriter) *UART {
	u := &UART{
		port: port,
		done: make(chan struct{}),
	}
	go u.readLoop()
	return u
}

func (u *UART) readLoop() {
	defer close(u.done)
	var chunk [64]byte
	for {
		n, err := u.port.Read(chunk[:])
		u.mu.Lock()
		if n > 0 {
			u.buf = append(u.buf, chunk[:n]...)
		}
		if err != nil {
			u.err = err
			u.mu.Unlock()
			return
		}
		u.mu.Unlock()
	}
}

// Read copies out whatever has arrived. It returns 0, nil when nothing is
// buffered and the reader is still running.
func (u *UART) Read(p []byte) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.buf) == 0 {
		return 0, u.err
	}
	n := copy(p, u.buf)
	u.buf = u.buf[n:]
	return n, nil
}

// Write passes straight through to the port
func (u *UART) Write(p []byte) (int, error) {
	return u.port.Write(p)
}

// Buffered returns the number of bytes ready to Read
func (u *UART) Buffered() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.buf)
}

// Done is closed once the background reader has stopped
func (u *UART) Done() <-chan struct{} {
	return u.done
}
