// Package bridge relays controller commands and replies over MQTT.
//
// Topics, under a configurable prefix:
//
//	<prefix>/command  command lines to forward to the controller
//	<prefix>/reply    every reply line, in order
//	<prefix>/fault    fault lines only
package bridge

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"axisctl/host/device"
	"axisctl/protocol"
)

// Client is the subset of an MQTT client the bridge needs
type Client interface {
	Publish(topic string, payload []byte) error
	Subscribe(topic string, handler func(payload []byte)) error
}

// Sender forwards one command line to the controller
type Sender interface {
	Send(ctx context.Context, line string) ([]device.Reply, error)
}

// QueueSize is the number of command payloads waiting for the worker
const QueueSize = 16

// Bridge connects a controller session to MQTT topics. Payloads received on
// the command topic are queued and forwarded by one worker goroutine, so
// the MQTT client's message handler never blocks and commands keep their
// arrival order.
type Bridge struct {
	client  Client
	dev     Sender
	prefix  string
	timeout time.Duration
	logger  *slog.Logger

	queue   chan []byte
	done    chan struct{}
	mu      sync.Mutex
	stopped bool
}

// New creates a bridge. timeout bounds each forwarded command.
func New(client Client, dev Sender, prefix string, timeout time.Duration, logger *slog.Logger) *Bridge {
	return &Bridge{
		client:  client,
		dev:     dev,
		prefix:  strings.TrimSuffix(prefix, "/"),
		timeout: timeout,
		logger:  logger.With("component", "bridge"),
		queue:   make(chan []byte, QueueSize),
		done:    make(chan struct{}),
	}
}

func (b *Bridge) CommandTopic() string { return b.prefix + "/command" }
func (b *Bridge) ReplyTopic() string   { return b.prefix + "/reply" }
func (b *Bridge) FaultTopic() string   { return b.prefix + "/fault" }

// Start launches the worker and subscribes to the command topic
func (b *Bridge) Start() error {
	go b.worker()
	return b.client.Subscribe(b.CommandTopic(), b.enqueue)
}

// Stop lets the worker finish the queued commands and waits for it.
// Payloads arriving afterwards are dropped. Call only after Start.
func (b *Bridge) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	close(b.queue)
	b.mu.Unlock()
	<-b.done
}

// enqueue is the MQTT message handler; it returns immediately
func (b *Bridge) enqueue(payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	select {
	case b.queue <- append([]byte(nil), payload...):
	default:
		b.logger.Error("Command dropped, queue full", "payload", string(payload))
	}
}

func (b *Bridge) worker() {
	defer close(b.done)
	for payload := range b.queue {
		b.HandleCommand(payload)
	}
}

// HandleCommand forwards each line of payload and publishes the replies
func (b *Bridge) HandleCommand(payload []byte) {
	for _, line := range strings.FieldsFunc(string(payload), func(r rune) bool {
		return r == '\r' || r == '\n'
	}) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		b.forward(line)
	}
}

func (b *Bridge) forward(line string) {
	logger := b.logger.With("command", line)
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	replies, err := b.dev.Send(ctx, line)
	for _, r := range replies {
		b.HandleEvent(r)
	}
	if err != nil {
		logger.Error("Command failed", slog.Any("error", err))
		b.publish(b.ReplyTopic(), protocol.FormatReply(protocol.KindError, "link "+err.Error()))
	}
}

// HandleEvent publishes one controller line; faults also go to the fault
// topic
func (b *Bridge) HandleEvent(r device.Reply) {
	text := r.String()
	b.publish(b.ReplyTopic(), text)
	if r.Kind == protocol.KindFault {
		b.publish(b.FaultTopic(), text)
	}
}

func (b *Bridge) publish(topic, text string) {
	if err := b.client.Publish(topic, []byte(text)); err != nil {
		b.logger.Error("Failed to publish", "topic", topic, slog.Any("error", err))
	}
}
