// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package feed defines the JSON payloads the harness publishes over MQTT
// and the subscribers (web, console, display) decode.
package feed

import (
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/relabs-tech/dekk_tester/internal/capture"
	"github.com/relabs-tech/dekk_tester/internal/kinematics"
	"github.com/relabs-tech/dekk_tester/internal/telemetry"
	"github.com/relabs-tech/dekk_tester/internal/trial"
)

// Status is a runner progress update.
type Status struct {
	capture.Status
	Time string `json:"time"` // RFC3339
}

// Sample is one accepted data record, keyed by channel name.
type Sample struct {
	TrialID string             `json:"trial_id"`
	TimeMs  float64            `json:"t_ms"`
	Values  map[string]float64 `json:"values"`
}

// Peak summarises one axis of a result for small screens.
type Peak struct {
	Axis     string  `json:"axis"`
	Distance float64 `json:"distance_m"`
	MaxSpeed float64 `json:"max_speed_mps"`
	MaxAccel float64 `json:"max_accel_mps2"`
}

// Result is a finished multi-trial aggregate.
type Result struct {
	Time     string                  `json:"time"`
	Trials   int                     `json:"trials"`
	TrialIDs []string                `json:"trial_ids"`
	Params   telemetry.Parameters    `json:"params"`
	Peaks    []Peak                  `json:"peaks"`
	Axes     []kinematics.Kinematics `json:"axes"`
}

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func NewStatus(s capture.Status, at time.Time) Status {
	return Status{Status: s, Time: stamp(at)}
}

// NewSample names the values of s after channels. Extra values without a
// channel name are dropped.
func NewSample(trialID string, channels []string, s telemetry.Sample) Sample {
	out := Sample{TrialID: trialID, TimeMs: s.Timestamp, Values: make(map[string]float64, len(s.Values))}
	for i, v := range s.Values {
		if i >= len(channels) {
			break
		}
		out.Values[channels[i]] = v
	}
	return out
}

func NewResult(res trial.Result, at time.Time) Result {
	peaks := make([]Peak, 0, len(res.Axes))
	for _, ax := range res.Axes {
		peaks = append(peaks, peakOf(ax))
	}
	return Result{
		Time:     stamp(at),
		Trials:   res.Trials,
		TrialIDs: res.TrialIDs,
		Params:   res.Params,
		Peaks:    peaks,
		Axes:     res.Axes,
	}
}

func peakOf(k kinematics.Kinematics) Peak {
	p := Peak{Axis: k.Axis}
	if pos := k.Position.Values; len(pos) > 0 {
		p.Distance = pos[len(pos)-1] - pos[0]
	}
	if v := k.Velocity.Scaled(); len(v) > 0 {
		p.MaxSpeed = floats.Max(v)
	}
	if a := k.Acceleration.Scaled(); len(a) > 0 {
		p.MaxAccel = floats.Max(a)
	}
	return p
}
