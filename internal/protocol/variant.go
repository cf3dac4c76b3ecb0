// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel lines printed by the rig firmware.
const (
	LegacyStart  = "---------------start---------------"
	LegacyEnd    = "---------------end---------------"
	LegacyHeader = "Timestamp (ms),Wheel Position (m),Swivel Position (m)"
	ReadyMarker  = "READY_FOR_DATA_COLLECTION"
	EndTestToken = "END_TEST"
	DataTag      = "Data: "
)

// Channel names.
const (
	WheelPosition      = "wheel_position"
	SwivelPosition     = "swivel_position"
	WheelSpeed         = "wheel_speed"
	WheelDistance      = "wheel_distance"
	WheelAcceleration  = "wheel_acceleration"
	SwivelSpeed        = "swivel_speed"
	SwivelDistance     = "swivel_distance"
	SwivelAcceleration = "swivel_acceleration"
)

var ErrUnknownVariant = errors.New("unknown protocol variant")

// Axis ties a position channel to the velocity/acceleration channels the
// firmware reports for the same axis, if any.
type Axis struct {
	Label        string
	Position     string
	Velocity     string
	Acceleration string
}

// Variant describes one firmware revision's framing and record layout.
type Variant struct {
	Name string

	// StartMarkers match whole lines.
	StartMarkers []string
	// EndMarkers match whole lines; EndContains matches anywhere in a line.
	EndMarkers  []string
	EndContains string

	// Exactly one of Header and Tag is set. Header is a line that opens the
	// data section; Tag prefixes every data line.
	Header string
	Tag    string

	Channels         []string
	Axes             []Axis
	IntegerTimestamp bool

	// DataAfterEnd marks firmware that prints its end token before dumping
	// the buffered records. The block then closes when the link goes idle.
	DataAfterEnd bool

	// Trigger is the command that starts a test on this firmware.
	Trigger string
}

// Arity is the number of comma separated fields in a data record.
func (v Variant) Arity() int { return 1 + len(v.Channels) }

func (v Variant) isStart(line string) bool {
	for _, m := range v.StartMarkers {
		if line == m {
			return true
		}
	}
	return false
}

func (v Variant) isEnd(line string) bool {
	for _, m := range v.EndMarkers {
		if line == m {
			return true
		}
	}
	return v.EndContains != "" && strings.Contains(line, v.EndContains)
}

func (v Variant) isTagged(line string) bool {
	return v.Tag != "" && strings.HasPrefix(line, v.Tag)
}

var (
	Legacy = Variant{
		Name:             "legacy",
		StartMarkers:     []string{LegacyStart},
		EndMarkers:       []string{LegacyEnd},
		EndContains:      EndTestToken,
		Header:           LegacyHeader,
		Channels:         []string{WheelPosition, SwivelPosition},
		Axes:             []Axis{{Label: "Wheel", Position: WheelPosition}, {Label: "Swivel", Position: SwivelPosition}},
		IntegerTimestamp: true,
		Trigger:          "t",
	}

	Tagged = Variant{
		Name:         "tagged",
		StartMarkers: []string{ReadyMarker},
		EndContains:  EndTestToken,
		Tag:          DataTag,
		Channels:     []string{WheelPosition, SwivelPosition},
		Axes:         []Axis{{Label: "Wheel", Position: WheelPosition}, {Label: "Swivel", Position: SwivelPosition}},
		DataAfterEnd: true,
		Trigger:      "run test",
	}

	TaggedExtended = Variant{
		Name:         "tagged_extended",
		StartMarkers: []string{ReadyMarker},
		EndContains:  EndTestToken,
		Tag:          DataTag,
		Channels: []string{
			WheelSpeed, WheelDistance, WheelAcceleration,
			SwivelSpeed, SwivelDistance, SwivelAcceleration,
		},
		Axes: []Axis{
			{Label: "Wheel", Position: WheelDistance, Velocity: WheelSpeed, Acceleration: WheelAcceleration},
			{Label: "Swivel", Position: SwivelDistance, Velocity: SwivelSpeed, Acceleration: SwivelAcceleration},
		},
		DataAfterEnd: true,
		Trigger:      "run test",
	}
)

// VariantByName looks up a built-in variant.
func VariantByName(name string) (Variant, error) {
	switch name {
	case Legacy.Name:
		return Legacy, nil
	case Tagged.Name:
		return Tagged, nil
	case TaggedExtended.Name:
		return TaggedExtended, nil
	default:
		return Variant{}, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
	}
}
