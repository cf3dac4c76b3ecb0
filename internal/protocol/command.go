// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package protocol

import (
	"strconv"
	"strings"
)

// Host to device commands. The transport adds the trailing newline.

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// RunTestCommand builds "run test <speed%> <accel_time>". A zero speed sends
// the bare command so the firmware falls back to its defaults.
func RunTestCommand(speedPercent float64, accelSeconds int) string {
	if speedPercent == 0 {
		return "run test"
	}
	return "run test " + formatFloat(speedPercent) + " " + strconv.Itoa(accelSeconds)
}

func SetWheelDiameter(mm float64) string {
	return "set_wheel_diameter " + formatFloat(mm)
}

func SetCenterToWheel(mm float64) string {
	return "set_distance_center_to_wheel " + formatFloat(mm)
}

func SetMotorVoltage(volts float64) string {
	return "set_motor_voltage " + formatFloat(volts)
}

// IsTrigger reports whether cmd starts a capture on firmware speaking v.
func IsTrigger(cmd string, v Variant) bool {
	cmd = strings.TrimSpace(cmd)
	if cmd == v.Trigger {
		return true
	}
	return strings.HasPrefix(cmd, "run test")
}
