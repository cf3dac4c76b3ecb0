// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package kinematics

// Derivative differentiates values with respect to times and returns a slice
// of the same length:
//
//	i = 0        (v[1]-v[0]) / (t[1]-t[0])
//	0 < i < n-1  (v[i+1]-v[i-1]) / (t[i+1]-t[i-1])
//	i = n-1      (v[n-1]-v[n-2]) / (t[n-1]-t[n-2])
//
// Any index whose time difference is exactly zero yields 0. Fewer than two
// points cannot be differenced; the result is all zeros.
func Derivative(times, values []float64) []float64 {
	n := len(values)
	if len(times) < n {
		n = len(times)
	}
	out := make([]float64, n)
	if n < 2 {
		return out
	}

	out[0] = quotient(values[1]-values[0], times[1]-times[0])
	for i := 1; i < n-1; i++ {
		out[i] = quotient(values[i+1]-values[i-1], times[i+1]-times[i-1])
	}
	out[n-1] = quotient(values[n-1]-values[n-2], times[n-1]-times[n-2])
	return out
}

func quotient(dv, dt float64) float64 {
	if dt == 0 {
		return 0
	}
	return dv / dt
}
