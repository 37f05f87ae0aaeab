package bridge

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"axisctl/host/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const qos = 1

// PahoClient wraps the PAHO MQTT client and restores subscriptions after a
// reconnect
type PahoClient struct {
	client mqtt.Client
	logger *slog.Logger

	mu   sync.Mutex
	subs map[string]func([]byte)
}

// NewPahoClient creates and connects a new MQTT client
func NewPahoClient(cfg *config.Config, logger *slog.Logger) (*PahoClient, error) {
	c := &PahoClient{
		logger: logger.With("component", "mqtt_client"),
		subs:   make(map[string]func([]byte)),
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID).
		SetUsername(cfg.MQTTUsername).
		SetPassword(cfg.MQTTPassword).
		SetKeepAlive(60 * time.Second).
		SetPingTimeout(1 * time.Second).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(10 * time.Second).
		SetCleanSession(true)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)

	c.client = mqtt.NewClient(opts)
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return c, nil
}

// Publish sends payload with QoS 1 and waits for the broker
func (c *PahoClient) Publish(topic string, payload []byte) error {
	token := c.client.Publish(topic, qos, false, payload)
	token.Wait()
	return token.Error()
}

// Subscribe registers handler for topic
func (c *PahoClient) Subscribe(topic string, handler func([]byte)) error {
	c.mu.Lock()
	c.subs[topic] = handler
	c.mu.Unlock()
	return c.subscribe(topic, handler)
}

func (c *PahoClient) subscribe(topic string, handler func([]byte)) error {
	token := c.client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		c.logger.Error("Failed to subscribe to topic", "topic", topic, slog.Any("error", token.Error()))
		return token.Error()
	}
	c.logger.Info("Successfully subscribed to topic", "topic", topic)
	return nil
}

// Disconnect gracefully disconnects the client
func (c *PahoClient) Disconnect() {
	if c.client.IsConnected() {
		c.client.Disconnect(250)
		c.logger.Info("MQTT Client disconnected")
	}
}

func (c *PahoClient) onConnect(mqtt.Client) {
	c.mu.Lock()
	subs := make(map[string]func([]byte), len(c.subs))
	for t, h := range c.subs {
		subs[t] = h
	}
	c.mu.Unlock()

	c.logger.Info("Connected to MQTT broker", "subscriptions", len(subs))
	for t, h := range subs {
		c.subscribe(t, h)
	}
}

func (c *PahoClient) onConnectionLost(_ mqtt.Client, err error) {
	c.logger.Error("Connection lost. Reconnecting...", slog.Any("error", err))
}
