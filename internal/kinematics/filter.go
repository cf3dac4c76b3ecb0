// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package kinematics

import "github.com/relabs-tech/dekk_tester/internal/telemetry"

// DefaultWindow is the suggested moving average width when smoothing is
// turned on. Pipelines do not smooth unless asked to.
const DefaultWindow = 5

// Smooth applies a trailing moving average of width w. Output i is the mean
// of inputs i..i+w-1 and carries the time of input i+w-1, so the result lags
// the input. A series shorter than w yields an empty series; w <= 1 returns a
// copy of the input.
func Smooth(s telemetry.Series, w int) telemetry.Series {
	out := telemetry.Series{Name: s.Name}
	n := len(s.Values)
	if w <= 1 {
		out.Times = append([]float64{}, s.Times...)
		out.Values = append([]float64{}, s.Values...)
		return out
	}
	if n < w {
		out.Times = []float64{}
		out.Values = []float64{}
		return out
	}

	out.Times = make([]float64, 0, n-w+1)
	out.Values = make([]float64, 0, n-w+1)
	for i := 0; i+w <= n; i++ {
		var sum float64
		for _, v := range s.Values[i : i+w] {
			sum += v
		}
		out.Values = append(out.Values, sum/float64(w))
		out.Times = append(out.Times, s.Times[i+w-1])
	}
	return out
}
