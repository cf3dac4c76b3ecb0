// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package kinematics

import (
	"github.com/relabs-tech/dekk_tester/internal/protocol"
	"github.com/relabs-tech/dekk_tester/internal/telemetry"
)

// Order is the derivative order of a series.
type Order int

const (
	Position     Order = 0
	Velocity     Order = 1
	Acceleration Order = 2
)

func (o Order) String() string {
	switch o {
	case Position:
		return "position"
	case Velocity:
		return "velocity"
	case Acceleration:
		return "acceleration"
	default:
		return "unknown"
	}
}

// Default display scales. Timestamps are in milliseconds, so m/ms becomes m/s
// and m/ms² becomes m/s².
const (
	DefaultVelocityScale = 1000.0
	DefaultAccelScale    = 1000000.0
)

// Derived is a series tagged with its derivative order. Values are stored
// unscaled; Scale is applied only by Scaled.
type Derived struct {
	telemetry.Series
	Order Order   `json:"order"`
	Scale float64 `json:"scale"`
}

// Scaled returns the values multiplied by Scale.
func (d Derived) Scaled() []float64 {
	out := make([]float64, len(d.Values))
	for i, v := range d.Values {
		out[i] = v * d.Scale
	}
	return out
}

// Kinematics is the processed result for one axis. Reported series hold the
// firmware's own speed and acceleration where the protocol carries them and
// are empty otherwise.
type Kinematics struct {
	Axis                 string  `json:"axis"`
	Position             Derived `json:"position"`
	Velocity             Derived `json:"velocity"`
	Acceleration         Derived `json:"acceleration"`
	ReportedVelocity     Derived `json:"reported_velocity"`
	ReportedAcceleration Derived `json:"reported_acceleration"`
}

// Vectors lists every array of k in a fixed order, so that runs can be folded
// together element by element.
func (k *Kinematics) Vectors() []*[]float64 {
	return []*[]float64{
		&k.Position.Times, &k.Position.Values,
		&k.Velocity.Times, &k.Velocity.Values,
		&k.Acceleration.Times, &k.Acceleration.Values,
		&k.ReportedVelocity.Times, &k.ReportedVelocity.Values,
		&k.ReportedAcceleration.Times, &k.ReportedAcceleration.Values,
	}
}

// Pipeline turns a captured trial into per-axis kinematics: smooth the
// positions, then differentiate twice against the smoothed timestamps.
type Pipeline struct {
	Window        int
	VelocityScale float64
	AccelScale    float64
}

func DefaultPipeline() Pipeline {
	return Pipeline{
		Window:        1,
		VelocityScale: DefaultVelocityScale,
		AccelScale:    DefaultAccelScale,
	}
}

// Process runs the pipeline on every axis of v. An empty trial produces empty
// series.
func (p Pipeline) Process(tr *telemetry.Trial, v protocol.Variant) []Kinematics {
	out := make([]Kinematics, 0, len(v.Axes))
	for _, ax := range v.Axes {
		pos, _ := tr.Series(ax.Position)
		pos = Smooth(pos, p.Window)

		vel := Derivative(pos.Times, pos.Values)
		acc := Derivative(pos.Times, vel)

		k := Kinematics{
			Axis:     ax.Label,
			Position: Derived{Series: pos, Order: Position, Scale: 1},
			Velocity: Derived{
				Series: telemetry.Series{Name: ax.Label + " velocity", Times: append([]float64{}, pos.Times...), Values: vel},
				Order:  Velocity,
				Scale:  p.VelocityScale,
			},
			Acceleration: Derived{
				Series: telemetry.Series{Name: ax.Label + " acceleration", Times: append([]float64{}, pos.Times...), Values: acc},
				Order:  Acceleration,
				Scale:  p.AccelScale,
			},
			ReportedVelocity:     p.reported(tr, ax.Velocity, Velocity),
			ReportedAcceleration: p.reported(tr, ax.Acceleration, Acceleration),
		}
		out = append(out, k)
	}
	return out
}

func (p Pipeline) reported(tr *telemetry.Trial, channel string, o Order) Derived {
	d := Derived{Order: o, Scale: 1, Series: telemetry.Series{Name: channel, Times: []float64{}, Values: []float64{}}}
	if channel == "" {
		return d
	}
	s, ok := tr.Series(channel)
	if !ok {
		return d
	}
	d.Series = Smooth(s, p.Window)
	return d
}
