package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the host tools' settings, read from the environment and an
// optional .env file
type Config struct {
	// Serial link to the controller
	Device string
	Baud   int

	// MQTT
	MQTTBroker      string
	MQTTClientID    string
	MQTTUsername    string
	MQTTPassword    string
	MQTTTopicPrefix string

	// Application
	LogLevel string
	Timeout  time.Duration
}

// LoadConfig loads .env files (if any) into the environment and builds the
// configuration from it
func LoadConfig(files ...string) *Config {
	if err := godotenv.Load(files...); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only
func FromEnv() *Config {
	baud, err := strconv.Atoi(getEnv("AXIS_BAUD", "115200"))
	if err != nil || baud <= 0 {
		baud = 115200
	}
	timeoutSec, err := strconv.Atoi(getEnv("TIMEOUT_SECONDS", "5"))
	if err != nil || timeoutSec <= 0 {
		timeoutSec = 5
	}

	return &Config{
		Device: getEnv("AXIS_DEVICE", "/dev/ttyACM0"),
		Baud:   baud,

		MQTTBroker:      getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID:    getEnv("MQTT_CLIENT_ID", "axis-host"),
		MQTTUsername:    getEnv("MQTT_USERNAME", ""),
		MQTTPassword:    getEnv("MQTT_PASSWORD", ""),
		MQTTTopicPrefix: getEnv("MQTT_TOPIC_PREFIX", "axisctl"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		Timeout:  time.Duration(timeoutSec) * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
