// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"

	"github.com/relabs-tech/dekk_tester/internal/protocol"
)

// Profile holds the rig's mechanical calibration and default test settings.
// Zero values mean "leave the firmware default alone".
type Profile struct {
	WheelDiameterMM   float64 `yaml:"wheel_diameter_mm"`
	CenterToWheelMM   float64 `yaml:"center_to_wheel_mm"`
	MotorVoltage      float64 `yaml:"motor_voltage"`
	SpeedPercent      float64 `yaml:"speed_percent"`
	AccelerationTimeS int     `yaml:"acceleration_time_s"`
}

// LoadProfile reads a YAML rig profile.
func LoadProfile(path string) (Profile, error) {
	var p Profile
	raw, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("failed to read rig profile: %w", err)
	}
	if err := yaml.UnmarshalStrict(raw, &p); err != nil {
		return p, fmt.Errorf("failed to parse rig profile %s: %w", path, err)
	}
	if p.SpeedPercent < 0 || p.SpeedPercent > 100 {
		return p, fmt.Errorf("rig profile: speed_percent must be 0-100, got %g", p.SpeedPercent)
	}
	return p, nil
}

// Commands returns the calibration commands to send before testing.
func (p Profile) Commands() []string {
	var cmds []string
	if p.WheelDiameterMM > 0 {
		cmds = append(cmds, protocol.SetWheelDiameter(p.WheelDiameterMM))
	}
	if p.CenterToWheelMM > 0 {
		cmds = append(cmds, protocol.SetCenterToWheel(p.CenterToWheelMM))
	}
	if p.MotorVoltage > 0 {
		cmds = append(cmds, protocol.SetMotorVoltage(p.MotorVoltage))
	}
	return cmds
}

// TestCommand is the "run test" command using the profile's defaults.
func (p Profile) TestCommand() string {
	return protocol.RunTestCommand(p.SpeedPercent, p.AccelerationTimeS)
}

// Marshal renders the profile as YAML, e.g. to echo what is in use.
func (p Profile) Marshal() ([]byte, error) {
	return yaml.Marshal(&p)
}
