// Package config loads the flat KEY=VALUE configuration file described in
// SPEC_FULL.md §4.7, the same line format the rest of the retrieved pack
// uses for deployment configuration.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds every setting the service reads at startup.
type Config struct {
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string

	TopicPosition string
	TopicCommand  string
	TopicResult   string
	TopicStatus   string

	ControllerA int
	ControllerB int

	SampleRateHz  int
	BatchMax      int
	BatchPeriodMs int
	RingCapacity  int

	LogLevel string
}

// Default returns a Config populated with the defaults from SPEC_FULL.md
// §4.7, used for any key a file omits.
func Default() Config {
	return Config{
		MQTTBroker:    "tcp://localhost:1883",
		MQTTClientID:  "stagecored",
		TopicPosition: "microscope/stage/position",
		TopicCommand:  "microscope/stage/command",
		TopicResult:   "microscope/stage/result",
		TopicStatus:   "microscope/stage/status",
		ControllerA:   4,
		ControllerB:   2222,
		SampleRateHz:  1000,
		BatchMax:      100,
		BatchPeriodMs: 50,
		RingCapacity:  4096,
		LogLevel:      "info",
	}
}

var (
	global     *Config
	globalOnce sync.Once
	globalMu   sync.RWMutex
)

// Load reads configPath and overlays it on Default(), matching the pack's
// "comments and blank lines skipped, KEY=VALUE per line" format.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setValue(key, value string) error {
	switch key {
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "MQTT_USERNAME":
		c.MQTTUsername = value
	case "MQTT_PASSWORD":
		c.MQTTPassword = value
	case "TOPIC_POSITION":
		c.TopicPosition = value
	case "TOPIC_COMMAND":
		c.TopicCommand = value
	case "TOPIC_RESULT":
		c.TopicResult = value
	case "TOPIC_STATUS":
		c.TopicStatus = value
	case "CONTROLLER_A":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid CONTROLLER_A %q: %w", value, err)
		}
		c.ControllerA = v
	case "CONTROLLER_B":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid CONTROLLER_B %q: %w", value, err)
		}
		c.ControllerB = v
	case "SAMPLE_RATE_HZ":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SAMPLE_RATE_HZ %q: %w", value, err)
		}
		c.SampleRateHz = v
	case "BATCH_MAX":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid BATCH_MAX %q: %w", value, err)
		}
		c.BatchMax = v
	case "BATCH_PERIOD_MS":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid BATCH_PERIOD_MS %q: %w", value, err)
		}
		c.BatchPeriodMs = v
	case "RING_CAPACITY":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid RING_CAPACITY %q: %w", value, err)
		}
		c.RingCapacity = v
	case "LOG_LEVEL":
		c.LogLevel = value
	default:
		return fmt.Errorf("unknown config key: %q", key)
	}
	return nil
}

func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.ControllerA == c.ControllerB {
		return fmt.Errorf("CONTROLLER_A and CONTROLLER_B must differ, got %d for both", c.ControllerA)
	}
	if c.SampleRateHz < 100 || c.SampleRateHz > 15000 {
		return fmt.Errorf("SAMPLE_RATE_HZ must be 100-15000, got %d", c.SampleRateHz)
	}
	if c.RingCapacity <= 0 || c.RingCapacity&(c.RingCapacity-1) != 0 {
		return fmt.Errorf("RING_CAPACITY must be a power of two, got %d", c.RingCapacity)
	}
	if c.RingCapacity < 4*c.BatchMax {
		return fmt.Errorf("RING_CAPACITY (%d) must be at least 4x BATCH_MAX (%d)", c.RingCapacity, c.BatchMax)
	}
	return nil
}

// InitGlobal loads configPath into the package-level singleton. Only the
// first call takes effect; later calls are no-ops, matching the pack's
// sync.Once-guarded global config pattern.
func InitGlobal(configPath string) error {
	var err error
	globalOnce.Do(func() {
		globalMu.Lock()
		defer globalMu.Unlock()
		global, err = Load(configPath)
	})
	return err
}

// Get returns the global Config. InitGlobal must run first; otherwise Get
// returns nil.
func Get() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}
