package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"axisctl/host/bridge"
	"axisctl/host/config"
	"axisctl/host/device"
	"axisctl/host/logging"
	"axisctl/host/serial"
)

var (
	envFile  = flag.String("env", "", "Optional .env file")
	devPath  = flag.String("device", "", "Serial device path (overrides AXIS_DEVICE)")
	mqttMode = flag.Bool("mqtt", false, "Relay commands over MQTT instead of the console")
)

func main() {
	flag.Parse()

	var cfg *config.Config
	if *envFile != "" {
		cfg = config.LoadConfig(*envFile)
	} else {
		cfg = config.LoadConfig()
	}
	if *devPath != "" {
		cfg.Device = *devPath
	}
	logger := logging.NewLogger(cfg.LogLevel, os.Stderr)

	scfg := serial.DefaultConfig(cfg.Device)
	scfg.Baud = cfg.Baud
	scfg.ReadTimeout = 0
	port, err := serial.Open(scfg)
	if err != nil {
		logger.Error("Failed to open controller link", "device", cfg.Device, slog.Any("error", err))
		os.Exit(1)
	}

	events := make(chan device.Reply, 32)
	dev := device.New(port, device.Options{
		Logger: logger,
		OnEvent: func(r device.Reply) {
			select {
			case events <- r:
			default:
				logger.Warn("Event dropped", "line", r.String())
			}
		},
	})
	// Closing the port is enough on exit; the blocking reader dies with
	// the process.
	defer port.Close()
	logger.Info("Connected to controller", "device", cfg.Device, "baud", cfg.Baud)

	if *mqttMode {
		runBridge(cfg, dev, events, logger)
		return
	}
	runConsole(cfg, dev, events)
}

func runBridge(cfg *config.Config, dev *device.Device, events <-chan device.Reply, logger *slog.Logger) {
	client, err := bridge.NewPahoClient(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize MQTT client", slog.Any("error", err))
		os.Exit(1)
	}
	defer client.Disconnect()

	b := bridge.New(client, dev, cfg.MQTTTopicPrefix, cfg.Timeout, logger)
	if err := b.Start(); err != nil {
		logger.Error("Failed to start bridge", slog.Any("error", err))
		os.Exit(1)
	}
	defer b.Stop()
	logger.Info("Bridge running", "command_topic", b.CommandTopic(), "reply_topic", b.ReplyTopic())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case r := <-events:
			b.HandleEvent(r)
		case <-quit:
			logger.Info("Shutting down bridge")
			return
		}
	}
}

func runConsole(cfg *config.Config, dev *device.Device, events <-chan device.Reply) {
	go func() {
		for r := range events {
			fmt.Printf("\r< %s\n> ", r)
		}
	}()

	fmt.Println("axis-host console")
	fmt.Println("Enter controller commands (HELP lists them, 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch strings.ToLower(line) {
		case "quit", "exit", "q":
			fmt.Println("Goodbye!")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		replies, err := dev.Send(ctx, line)
		cancel()
		for _, r := range replies {
			fmt.Printf("< %s\n", r)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}
