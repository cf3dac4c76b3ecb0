// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/relabs-tech/dekk_tester/internal/capture"
	"github.com/relabs-tech/dekk_tester/internal/kinematics"
	"github.com/relabs-tech/dekk_tester/internal/plot"
	"github.com/relabs-tech/dekk_tester/internal/protocol"
	"github.com/relabs-tech/dekk_tester/internal/trial"
)

// Config holds all application configuration values. It is built once at
// startup and passed to whatever needs it.
type Config struct {
	// Serial
	SerialPort     string
	SerialBaudRate int

	// Protocol variant: legacy, tagged, tagged_extended
	Protocol string

	// Trials
	NumTrials    int
	SettleDelay  int // milliseconds
	TrialRetries int

	// Timeouts
	LineTimeout    int // milliseconds
	CaptureTimeout int // milliseconds
	DrainIdle      int // milliseconds

	// Pipeline
	SmoothingWindow int
	AggregatePolicy string // strict or truncate
	VelocityScale   float64
	AccelScale      float64

	// Plot
	PlotOffsetPos   float64 // milliseconds
	PlotOffsetSpeed float64 // milliseconds
	PlotOffsetAccel float64 // milliseconds
	PlotOutputDir   string
	PlotWidth       int
	PlotHeight      int

	// MQTT (empty broker disables publishing)
	MQTTBroker          string
	MQTTClientIDHarness string
	MQTTClientIDWeb     string
	MQTTClientIDConsole string
	MQTTClientIDDisplay string

	// Topics
	TopicStatus string
	TopicSample string
	TopicResult string

	// Web Server
	WebServerPort int

	// Display
	DisplayI2CAddr        uint16
	DisplayUpdateInterval int // milliseconds

	// Optional YAML rig profile
	RigProfile string
}

// Default returns a configuration that works against a rig on the default
// firmware with no broker.
func Default() *Config {
	return &Config{
		SerialBaudRate: 115200,
		Protocol:       protocol.Legacy.Name,

		NumTrials:    1,
		SettleDelay:  1000,
		TrialRetries: 1,

		LineTimeout:    1000,
		CaptureTimeout: 60000,
		DrainIdle:      1500,

		SmoothingWindow: 1,
		AggregatePolicy: trial.Strict.String(),
		VelocityScale:   kinematics.DefaultVelocityScale,
		AccelScale:      kinematics.DefaultAccelScale,

		PlotOffsetPos:   0,
		PlotOffsetSpeed: 50,
		PlotOffsetAccel: 100,
		PlotOutputDir:   "plots",
		PlotWidth:       1000,
		PlotHeight:      1200,

		MQTTClientIDHarness: "dekk-harness",
		MQTTClientIDWeb:     "dekk-web",
		MQTTClientIDConsole: "dekk-console",
		MQTTClientIDDisplay: "dekk-display",

		TopicStatus: "dekk/status",
		TopicSample: "dekk/sample",
		TopicResult: "dekk/result",

		WebServerPort: 8080,

		DisplayI2CAddr:        0x3C,
		DisplayUpdateInterval: 500,
	}
}

// Load reads the configuration file on top of the defaults.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()
	return Parse(file)
}

// Parse reads KEY=VALUE lines from r on top of the defaults.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
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
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseInt(key, value string, lo, hi int) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%s must be %d-%d, got %d", key, lo, hi, v)
	}
	return v, nil
}

func parseFloat(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

const maxInt = int(^uint(0) >> 1)

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// Serial
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		c.SerialBaudRate, err = parseInt(key, value, 1, maxInt)

	// Protocol
	case "PROTOCOL":
		if _, err := protocol.VariantByName(value); err != nil {
			return err
		}
		c.Protocol = value

	// Trials
	case "NUM_TRIALS":
		c.NumTrials, err = parseInt(key, value, 1, 1000)
	case "SETTLE_DELAY_MS":
		c.SettleDelay, err = parseInt(key, value, 0, maxInt)
	case "TRIAL_RETRIES":
		c.TrialRetries, err = parseInt(key, value, 0, 100)

	// Timeouts
	case "LINE_TIMEOUT_MS":
		c.LineTimeout, err = parseInt(key, value, 1, maxInt)
	case "CAPTURE_TIMEOUT_MS":
		c.CaptureTimeout, err = parseInt(key, value, 0, maxInt)
	case "DRAIN_IDLE_MS":
		c.DrainIdle, err = parseInt(key, value, 1, maxInt)

	// Pipeline
	case "SMOOTHING_WINDOW":
		c.SmoothingWindow, err = parseInt(key, value, 1, 1000)
	case "AGGREGATE_POLICY":
		if _, err := trial.ParsePolicy(value); err != nil {
			return err
		}
		c.AggregatePolicy = value
	case "VELOCITY_SCALE":
		c.VelocityScale, err = parseFloat(key, value)
	case "ACCEL_SCALE":
		c.AccelScale, err = parseFloat(key, value)

	// Plot
	case "PLOT_OFFSET_POS_MS":
		c.PlotOffsetPos, err = parseFloat(key, value)
	case "PLOT_OFFSET_SPEED_MS":
		c.PlotOffsetSpeed, err = parseFloat(key, value)
	case "PLOT_OFFSET_ACCEL_MS":
		c.PlotOffsetAccel, err = parseFloat(key, value)
	case "PLOT_OUTPUT_DIR":
		c.PlotOutputDir = value
	case "PLOT_WIDTH":
		c.PlotWidth, err = parseInt(key, value, 200, 10000)
	case "PLOT_HEIGHT":
		c.PlotHeight, err = parseInt(key, value, 200, 10000)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_HARNESS":
		c.MQTTClientIDHarness = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_STATUS":
		c.TopicStatus = value
	case "TOPIC_SAMPLE":
		c.TopicSample = value
	case "TOPIC_RESULT":
		c.TopicResult = value

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value, 1, 65535)

	// Display
	case "DISPLAY_I2C_ADDR":
		addr, perr := strconv.ParseUint(value, 0, 16)
		if perr != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, perr)
		}
		c.DisplayI2CAddr = uint16(addr)
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = parseInt(key, value, 1, maxInt)

	// Rig
	case "RIG_PROFILE":
		c.RigProfile = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// validate checks cross-field constraints.
func (c *Config) validate() error {
	if c.VelocityScale == 0 {
		return fmt.Errorf("VELOCITY_SCALE must be non-zero")
	}
	if c.AccelScale == 0 {
		return fmt.Errorf("ACCEL_SCALE must be non-zero")
	}
	if c.MQTTBroker != "" {
		if c.TopicStatus == "" || c.TopicSample == "" || c.TopicResult == "" {
			return fmt.Errorf("TOPIC_STATUS, TOPIC_SAMPLE and TOPIC_RESULT are required when MQTT_BROKER is set")
		}
	}
	return nil
}

// Variant resolves the configured protocol.
func (c *Config) Variant() (protocol.Variant, error) {
	return protocol.VariantByName(c.Protocol)
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// CaptureOptions builds the runner options for the configured rig.
func (c *Config) CaptureOptions() (capture.Options, error) {
	v, err := c.Variant()
	if err != nil {
		return capture.Options{}, err
	}
	policy, err := trial.ParsePolicy(c.AggregatePolicy)
	if err != nil {
		return capture.Options{}, err
	}
	return capture.Options{
		Variant:        v,
		Trials:         c.NumTrials,
		Retries:        c.TrialRetries,
		SettleDelay:    ms(c.SettleDelay),
		LineTimeout:    ms(c.LineTimeout),
		CaptureTimeout: ms(c.CaptureTimeout),
		DrainIdle:      ms(c.DrainIdle),
		Pipeline: kinematics.Pipeline{
			Window:        c.SmoothingWindow,
			VelocityScale: c.VelocityScale,
			AccelScale:    c.AccelScale,
		},
		Policy: policy,
	}, nil
}

// PlotOffsets returns the display time shifts for the three panels.
func (c *Config) PlotOffsets() plot.Offsets {
	return plot.Offsets{
		Position:     c.PlotOffsetPos,
		Velocity:     c.PlotOffsetSpeed,
		Acceleration: c.PlotOffsetAccel,
	}
}
