// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package plot

import (
	"fmt"

	"github.com/relabs-tech/dekk_tester/internal/kinematics"
	"github.com/relabs-tech/dekk_tester/internal/trial"
)

// Offsets shift each panel's abscissa, in milliseconds, so overlapping
// curves can be told apart. They never touch the data itself.
type Offsets struct {
	Position     float64
	Velocity     float64
	Acceleration float64
}

// Line is one labelled curve ready to draw.
type Line struct {
	Label  string
	X      []float64
	Y      []float64
	Dashed bool
}

type Panel struct {
	Title  string
	YLabel string
	Lines  []Line
}

// Figure is everything the renderer needs.
type Figure struct {
	Panels      []Panel
	Annotations []string
	Caption     string
}

func shifted(times []float64, offset float64) []float64 {
	out := make([]float64, len(times))
	for i, t := range times {
		out[i] = t + offset
	}
	return out
}

// Build lays out position, speed and acceleration panels from an aggregate.
// Derived series are scaled for display; res is not modified.
func Build(res trial.Result, off Offsets) Figure {
	pos := Panel{Title: "Average Position over Time", YLabel: "Position (m)"}
	vel := Panel{Title: "Average Speed over Time", YLabel: "Speed (m/s)"}
	acc := Panel{Title: "Average Acceleration over Time", YLabel: "Acceleration (m/s^2)"}

	for _, ax := range res.Axes {
		pos.Lines = append(pos.Lines, Line{
			Label: ax.Axis + " Pos.",
			X:     shifted(ax.Position.Times, off.Position),
			Y:     append([]float64{}, ax.Position.Values...),
		})
		vel.Lines = append(vel.Lines, Line{
			Label: ax.Axis + " Spd.",
			X:     shifted(ax.Velocity.Times, off.Velocity),
			Y:     ax.Velocity.Scaled(),
		})
		acc.Lines = append(acc.Lines, Line{
			Label: ax.Axis + " Accel.",
			X:     shifted(ax.Acceleration.Times, off.Acceleration),
			Y:     ax.Acceleration.Scaled(),
		})
		if r := reported(ax.ReportedVelocity, ax.Axis+" Spd. (reported)", off.Velocity); r != nil {
			vel.Lines = append(vel.Lines, *r)
		}
		if r := reported(ax.ReportedAcceleration, ax.Axis+" Accel. (reported)", off.Acceleration); r != nil {
			acc.Lines = append(acc.Lines, *r)
		}
	}

	return Figure{
		Panels:      []Panel{pos, vel, acc},
		Annotations: res.Params.Lines(),
		Caption:     fmt.Sprintf("Number of tests conducted: %d", res.Trials),
	}
}

func reported(d kinematics.Derived, label string, offset float64) *Line {
	if len(d.Values) == 0 {
		return nil
	}
	return &Line{Label: label, X: shifted(d.Times, offset), Y: d.Scaled(), Dashed: true}
}
