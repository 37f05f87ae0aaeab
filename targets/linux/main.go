//go:build linux && !tinygo

// Command axisd runs the axis controller on a Linux single-board computer.
// Commands are read from stdin and replies written to stdout, so the
// process can sit behind a pty, socat or ser2net.
package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"axisctl/axis"
	"axisctl/config"
	"axisctl/core"
	"axisctl/host/logging"
	"axisctl/host/periph"
	"axisctl/host/serial"
	"axisctl/protocol"

	"periph.io/x/host/v3"
)

var (
	configPath = flag.String("config", "", "Machine configuration JSON file")
	logLevel   = flag.String("log-level", "info", "Log level for stderr")
	cycle      = flag.Duration("cycle", 100*time.Microsecond, "Control loop period")
)

func main() {
	flag.Parse()
	logger := logging.NewLogger(*logLevel, os.Stderr)

	cfg, err := loadMachineConfig(*configPath)
	if err != nil {
		logger.Error("Failed to load configuration", "path", *configPath, slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.Debug {
		core.SetDebugWriter(func(s string) { logger.Debug(s) })
		core.SetDebugEnabled(true)
	}

	if _, err := host.Init(); err != nil {
		logger.Error("Failed to initialize periph host drivers", slog.Any("error", err))
		os.Exit(1)
	}

	gpio := periph.NewGPIO()
	core.SetGPIODriver(gpio)

	ctrl, enable, err := buildController(cfg, gpio, logger)
	if err != nil {
		logger.Error("Failed to build controller", slog.Any("error", err))
		os.Exit(1)
	}

	protocol.NewLineWriter(os.Stdout).Reply(protocol.KindInfo, "axisctl "+protocol.Version+" started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	feed := newLineFeed(os.Stdin)
	start := time.Now()
	ticker := time.NewTicker(*cycle)
	defer ticker.Stop()
	inputOpen := true

	logger.Info("Controller running", "cycle", cycle.String())
	for {
		select {
		case <-quit:
			enable.Disable()
			logger.Info("Driver disabled, exiting")
			return
		case <-ticker.C:
		}

		core.SetTime(uint64(time.Since(start) / time.Microsecond))
		ctrl.Cycle(feed)

		if inputOpen && feed.EOF() {
			inputOpen = false
			logger.Warn("Command input closed, axis keeps running")
		}
	}
}

func loadMachineConfig(path string) (*config.MachineConfig, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return config.LoadConfig(data)
}

func buildController(cfg *config.MachineConfig, gpio *periph.GPIO, logger *slog.Logger) (*axis.Controller, *core.EnableOutput, error) {
	pins := cfg.Pins
	ids := make(map[string]core.GPIOPin, 5)
	for _, name := range []string{pins.Step, pins.Dir, pins.Enable, pins.MinSwitch, pins.MaxSwitch} {
		id, err := gpio.Bind(name)
		if err != nil {
			return nil, nil, err
		}
		ids[name] = id
	}

	stepPin, err := periph.StepperPin(ids[pins.Step])
	if err != nil {
		return nil, nil, err
	}
	dirPin, err := periph.StepperPin(ids[pins.Dir])
	if err != nil {
		return nil, nil, err
	}
	stepper, err := core.NewStepper(periph.NewStepperBackend(gpio),
		stepPin, dirPin, pins.InvertStep, pins.InvertDir)
	if err != nil {
		return nil, nil, err
	}
	minSwitch, err := core.NewEndstop(gpio, ids[pins.MinSwitch], pins.SwitchActiveHigh, pins.SwitchSamples)
	if err != nil {
		return nil, nil, err
	}
	maxSwitch, err := core.NewEndstop(gpio, ids[pins.MaxSwitch], pins.SwitchActiveHigh, pins.SwitchSamples)
	if err != nil {
		return nil, nil, err
	}
	enable, err := core.NewEnableOutput(gpio, ids[pins.Enable])
	if err != nil {
		return nil, nil, err
	}

	hw := axis.Hardware{
		Motion: stepper,
		Min:    minSwitch,
		Max:    maxSwitch,
		Enable: enable,
	}
	if cfg.Driver.Port != "" {
		link, err := openDriverLink(cfg.Driver, logger)
		if err != nil {
			logger.Warn("Stall detection disabled", "port", cfg.Driver.Port, slog.Any("error", err))
		} else {
			hw.Driver = link
		}
	}

	ctrl, err := axis.New(cfg.AxisConfig(), hw, os.Stdout)
	if err != nil {
		return nil, nil, err
	}
	return ctrl, enable, nil
}

func openDriverLink(dc config.DriverConfig, logger *slog.Logger) (*core.TMCLink, error) {
	scfg := serial.DefaultConfig(dc.Port)
	scfg.Baud = dc.Baud
	scfg.ReadTimeout = 0
	port, err := serial.Open(scfg)
	if err != nil {
		return nil, err
	}
	link := core.NewTMCLink(serial.NewUART(port))
	if err := link.Init(dc.StallThreshold); err != nil {
		port.Close()
		return nil, err
	}
	logger.Info("Driver configured", "port", dc.Port, "stall_threshold", dc.StallThreshold)
	return link, nil
}
