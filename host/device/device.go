// Package device runs a line-protocol session with an axis controller over
// a serial port.
package device

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"axisctl/protocol"
)

var (
	ErrClosed      = errors.New("device session closed")
	ErrCommandLine = errors.New("command must be a single non-empty line")
)

// Reply is one classified line received from the controller
type Reply struct {
	Kind string
	Msg  string
}

// String renders the reply the way it appeared on the wire
func (r Reply) String() string {
	return protocol.FormatReply(r.Kind, r.Msg)
}

// Final reports whether the reply completes a command exchange
func (r Reply) Final() bool {
	return protocol.IsFinal(r.Kind)
}

// Options configures a session
type Options struct {
	// OnEvent receives lines that arrive while no command is outstanding
	// (startup banner, homing progress, faults)
	OnEvent func(Reply)

	Logger *slog.Logger
}

// Device is a session with one controller. Send is safe for concurrent use;
// commands are serialized.
type Device struct {
	port    io.ReadWriteCloser
	onEvent func(Reply)
	logger  *slog.Logger

	cmdMu sync.Mutex

	mu      sync.Mutex
	pending chan Reply
	err     error

	done chan struct{}
}

// New starts a session on port
func New(port io.ReadWriteCloser, opts Options) *Device {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	d := &Device{
		port:    port,
		onEvent: opts.OnEvent,
		logger:  logger.With("component", "device"),
		done:    make(chan struct{}),
	}
	go d.readLoop()
	return d
}

func (d *Device) readLoop() {
	defer close(d.done)
	scanner := bufio.NewScanner(d.port)
	scanner.Split(scanLines)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		kind, msg, ok := protocol.ParseReply(line)
		if !ok {
			d.logger.Warn("Unclassified line from controller", "line", line)
			kind = protocol.KindInfo
		}
		d.deliver(Reply{Kind: kind, Msg: msg})
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	d.mu.Lock()
	d.err = err
	if d.pending != nil {
		close(d.pending)
		d.pending = nil
	}
	d.mu.Unlock()
}

func (d *Device) deliver(r Reply) {
	d.mu.Lock()
	pending := d.pending
	d.mu.Unlock()

	if pending != nil {
		select {
		case pending <- r:
		default:
			d.logger.Warn("Reply dropped, command queue full", "line", r.String())
		}
		return
	}
	d.logger.Debug("Controller event", "kind", r.Kind, "msg", r.Msg)
	if d.onEvent != nil {
		d.onEvent(r)
	}
}

// Send writes one command line and collects replies up to and including
// the final ok or error line.
func (d *Device) Send(ctx context.Context, line string) ([]Reply, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.ContainsAny(line, "\r\n") {
		return nil, ErrCommandLine
	}

	d.cmdMu.Lock()
	defer d.cmdMu.Unlock()

	ch := make(chan Reply, 16)
	d.mu.Lock()
	if d.err != nil {
		d.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrClosed, d.err)
	}
	d.pending = ch
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		if d.pending == ch {
			d.pending = nil
		}
		d.mu.Unlock()
		// Drain anything the reader queued before it saw pending cleared.
		for {
			select {
			case r, ok := <-ch:
				if !ok {
					return
				}
				if d.onEvent != nil {
					d.onEvent(r)
				}
			default:
				return
			}
		}
	}()

	d.logger.Debug("Sending command", "line", line)
	if _, err := io.WriteString(d.port, line+"\r\n"); err != nil {
		return nil, fmt.Errorf("failed to write command: %w", err)
	}

	var replies []Reply
	for {
		select {
		case r, ok := <-ch:
			if !ok {
				return replies, ErrClosed
			}
			replies = append(replies, r)
			if r.Final() {
				return replies, nil
			}
		case <-ctx.Done():
			return replies, ctx.Err()
		}
	}
}

// Close closes the port and waits for the reader to stop
func (d *Device) Close() error {
	err := d.port.Close()
	<-d.done
	return err
}

// scanLines splits on CR, LF or CRLF
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i, b := range data {
		if b == '\r' || b == '\n' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}
