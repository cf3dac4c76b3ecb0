// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package kinematics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/dekk_tester/internal/protocol"
	"github.com/relabs-tech/dekk_tester/internal/telemetry"
)

func series(times, values []float64) telemetry.Series {
	return telemetry.Series{Name: "x", Times: times, Values: values}
}

func TestSmoothLengthAndAlignment(t *testing.T) {
	in := series([]float64{0, 10, 20, 30, 40, 50, 60}, []float64{1, 2, 3, 4, 5, 6, 7})

	out := Smooth(in, 5)
	require.Len(t, out.Values, 3)
	assert.Equal(t, 3.0, out.Values[0])
	assert.Equal(t, []float64{4, 5}, out.Values[1:])
	assert.Equal(t, []float64{40, 50, 60}, out.Times)

	assert.Empty(t, Smooth(series([]float64{0, 1}, []float64{1, 2}), 5).Values)
	assert.Equal(t, in.Values, Smooth(in, 1).Values)
	assert.Len(t, Smooth(series(in.Times[:5], in.Values[:5]), 5).Values, 1)
}

func TestDerivativeRules(t *testing.T) {
	times := []float64{0, 10, 20}
	wheel := []float64{0.0, 0.1, 0.2}

	d := Derivative(times, wheel)
	require.Len(t, d, 3)
	assert.InDelta(t, 0.01, d[0], 1e-12)
	assert.InDelta(t, 0.01, d[1], 1e-12)
	assert.InDelta(t, 0.01, d[2], 1e-12)

	// non-uniform spacing exercises the wide interior rule
	d = Derivative([]float64{0, 10, 40}, []float64{0, 1, 5})
	assert.InDelta(t, 0.1, d[0], 1e-12)
	assert.InDelta(t, 5.0/40.0, d[1], 1e-12)
	assert.InDelta(t, 4.0/30.0, d[2], 1e-12)
}

func TestDerivativeZeroTimeStep(t *testing.T) {
	d := Derivative([]float64{5, 5, 5}, []float64{1, 2, 3})
	assert.Equal(t, []float64{0, 0, 0}, d)

	d = Derivative([]float64{0, 0, 10}, []float64{0, 1, 3})
	assert.Equal(t, 0.0, d[0])
	assert.InDelta(t, 0.3, d[1], 1e-12)
	assert.InDelta(t, 0.2, d[2], 1e-12)
}

func TestDerivativeShortInputs(t *testing.T) {
	assert.Empty(t, Derivative(nil, nil))
	assert.Equal(t, []float64{0}, Derivative([]float64{3}, []float64{7}))
}

func TestDerivativeIsDeterministic(t *testing.T) {
	times := []float64{0, 7, 15, 22, 31}
	vals := []float64{0, 0.3, 0.2, 0.9, 1.4}
	assert.Equal(t, Derivative(times, vals), Derivative(times, vals))
}

func TestPipelineLegacyTrial(t *testing.T) {
	tr := telemetry.NewTrial(protocol.Legacy.Name, protocol.Legacy.Channels)
	require.NoError(t, tr.Append(telemetry.Sample{Timestamp: 0, Values: []float64{0, 0}}))
	require.NoError(t, tr.Append(telemetry.Sample{Timestamp: 10, Values: []float64{0.1, 0.05}}))
	require.NoError(t, tr.Append(telemetry.Sample{Timestamp: 20, Values: []float64{0.2, 0.10}}))

	// no smoothing by default
	ks := DefaultPipeline().Process(tr, protocol.Legacy)
	require.Len(t, ks, 2)

	wheel := ks[0]
	assert.Equal(t, "Wheel", wheel.Axis)
	assert.InDelta(t, 0.01, wheel.Velocity.Values[1], 1e-12)
	assert.InDelta(t, 0.01, wheel.Velocity.Values[0], 1e-12)
	assert.InDelta(t, 10.0, wheel.Velocity.Scaled()[1], 1e-9)
	require.Len(t, wheel.Acceleration.Values, 3)
	for _, a := range wheel.Acceleration.Values {
		assert.InDelta(t, 0, a, 1e-12)
	}
	assert.Empty(t, wheel.ReportedVelocity.Values)
}

func TestPipelineEmptyTrial(t *testing.T) {
	tr := telemetry.NewTrial(protocol.Legacy.Name, protocol.Legacy.Channels)
	ks := DefaultPipeline().Process(tr, protocol.Legacy)
	require.Len(t, ks, 2)
	for _, k := range ks {
		assert.Empty(t, k.Position.Values)
		assert.Empty(t, k.Velocity.Values)
		assert.Empty(t, k.Acceleration.Values)
	}
}

func TestPipelineCarriesReportedSeries(t *testing.T) {
	v := protocol.TaggedExtended
	tr := telemetry.NewTrial(v.Name, v.Channels)
	for i := 0; i < 6; i++ {
		f := float64(i)
		require.NoError(t, tr.Append(telemetry.Sample{Timestamp: f * 100, Values: []float64{f, f / 10, 1, 2 * f, f / 20, 2}}))
	}
	p := DefaultPipeline()
	p.Window = 2
	ks := p.Process(tr, v)
	require.Len(t, ks, 2)
	assert.Len(t, ks[0].Position.Values, 5)
	assert.Len(t, ks[0].ReportedVelocity.Values, 5)
	assert.Equal(t, ks[0].Position.Times, ks[0].ReportedVelocity.Times)
	assert.InDelta(t, 0.5, ks[0].ReportedVelocity.Values[0], 1e-12)
}
