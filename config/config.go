// Package config loads the machine description used by the Linux target.
package config

import (
	"encoding/json"
	"time"

	"axisctl/axis"
)

// MachineConfig describes the wiring and motion limits of one axis
type MachineConfig struct {
	Pins   PinConfig    `json:"pins"`
	Driver DriverConfig `json:"driver"`
	Motion MotionConfig `json:"motion"`
	Debug  bool         `json:"debug"`
}

// PinConfig names GPIO lines as the host GPIO registry knows them
type PinConfig struct {
	Step             string `json:"step"`
	Dir              string `json:"dir"`
	Enable           string `json:"enable"`
	MinSwitch        string `json:"min_switch"`
	MaxSwitch        string `json:"max_switch"`
	InvertStep       bool   `json:"invert_step"`
	InvertDir        bool   `json:"invert_dir"`
	SwitchActiveHigh bool   `json:"switch_active_high"`
	SwitchSamples    uint8  `json:"switch_samples"`
}

// DriverConfig is the TMC2209 UART link. An empty Port disables stall
// detection.
type DriverConfig struct {
	Port           string `json:"port"`
	Baud           int    `json:"baud"`
	StallThreshold uint8  `json:"stall_threshold"`
	StallPollEvery uint16 `json:"stall_poll_every"`
}

// MotionConfig holds speeds in steps/s and distances in steps
type MotionConfig struct {
	MaxSpeed          float32 `json:"max_speed"`
	Acceleration      float32 `json:"acceleration"`
	HomingSpeed       float32 `json:"homing_speed"`
	HomingTravel      int32   `json:"homing_travel"`
	SettleMS          int     `json:"settle_ms"`
	ResetTimeoutS     int     `json:"reset_timeout_s"`
	StrictSwitchCheck bool    `json:"strict_switch_check"`
	DepartSteps       int32   `json:"depart_steps"`
}

// LoadConfig parses a JSON configuration string and returns a MachineConfig
func LoadConfig(jsonData []byte) (*MachineConfig, error) {
	var config MachineConfig

	err := json.Unmarshal(jsonData, &config)
	if err != nil {
		return nil, err
	}

	// Apply defaults
	applyDefaults(&config)

	return &config, nil
}

// applyDefaults fills in missing configuration values with sensible defaults
func applyDefaults(config *MachineConfig) {
	def := DefaultConfig()

	// Pins
	if config.Pins.Step == "" {
		config.Pins.Step = def.Pins.Step
	}
	if config.Pins.Dir == "" {
		config.Pins.Dir = def.Pins.Dir
	}
	if config.Pins.Enable == "" {
		config.Pins.Enable = def.Pins.Enable
	}
	if config.Pins.MinSwitch == "" {
		config.Pins.MinSwitch = def.Pins.MinSwitch
	}
	if config.Pins.MaxSwitch == "" {
		config.Pins.MaxSwitch = def.Pins.MaxSwitch
	}
	if config.Pins.SwitchSamples == 0 {
		config.Pins.SwitchSamples = def.Pins.SwitchSamples
	}

	// Driver link
	if config.Driver.Baud == 0 {
		config.Driver.Baud = def.Driver.Baud
	}
	if config.Driver.StallThreshold == 0 {
		config.Driver.StallThreshold = def.Driver.StallThreshold
	}
	if config.Driver.StallPollEvery == 0 {
		config.Driver.StallPollEvery = def.Driver.StallPollEvery
	}

	// Motion parameters
	if config.Motion.MaxSpeed == 0 {
		config.Motion.MaxSpeed = def.Motion.MaxSpeed
	}
	if config.Motion.Acceleration == 0 {
		config.Motion.Acceleration = def.Motion.Acceleration
	}
	if config.Motion.HomingSpeed == 0 {
		config.Motion.HomingSpeed = def.Motion.HomingSpeed
	}
	if config.Motion.HomingTravel == 0 {
		config.Motion.HomingTravel = def.Motion.HomingTravel
	}
	if config.Motion.SettleMS == 0 {
		config.Motion.SettleMS = def.Motion.SettleMS
	}
	if config.Motion.ResetTimeoutS == 0 {
		config.Motion.ResetTimeoutS = def.Motion.ResetTimeoutS
	}
	if config.Motion.DepartSteps == 0 {
		config.Motion.DepartSteps = def.Motion.DepartSteps
	}
}

// DefaultConfig returns the Raspberry Pi header wiring with the firmware
// motion defaults
func DefaultConfig() *MachineConfig {
	ax := axis.DefaultConfig()
	return &MachineConfig{
		Pins: PinConfig{
			Step:          "GPIO17",
			Dir:           "GPIO27",
			Enable:        "GPIO22",
			MinSwitch:     "GPIO5",
			MaxSwitch:     "GPIO6",
			SwitchSamples: 2,
		},
		Driver: DriverConfig{
			Port:           "/dev/serial0",
			Baud:           115200,
			StallThreshold: ax.StallThreshold,
			StallPollEvery: ax.StallPollEvery,
		},
		Motion: MotionConfig{
			MaxSpeed:      ax.MaxSpeed,
			Acceleration:  ax.Acceleration,
			HomingSpeed:   ax.HomingSpeed,
			HomingTravel:  ax.HomingTravel,
			SettleMS:      int(ax.SettleTime / time.Millisecond),
			ResetTimeoutS: int(ax.ResetTimeout / time.Second),
			DepartSteps:   ax.DepartTravel,
		},
	}
}

// AxisConfig converts the motion and driver settings for the controller
func (m *MachineConfig) AxisConfig() axis.Config {
	return axis.Config{
		MaxSpeed:          m.Motion.MaxSpeed,
		Acceleration:      m.Motion.Acceleration,
		HomingSpeed:       m.Motion.HomingSpeed,
		HomingTravel:      m.Motion.HomingTravel,
		SettleTime:        time.Duration(m.Motion.SettleMS) * time.Millisecond,
		ResetTimeout:      time.Duration(m.Motion.ResetTimeoutS) * time.Second,
		StallThreshold:    m.Driver.StallThreshold,
		StallPollEvery:    m.Driver.StallPollEvery,
		StrictSwitchCheck: m.Motion.StrictSwitchCheck,
		DepartTravel:      m.Motion.DepartSteps,
	}
}
