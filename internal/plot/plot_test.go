// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package plot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/dekk_tester/internal/kinematics"
	"github.com/relabs-tech/dekk_tester/internal/telemetry"
	"github.com/relabs-tech/dekk_tester/internal/trial"
)

func series(times, values []float64) telemetry.Series {
	return telemetry.Series{Times: times, Values: values}
}

func sampleResult() trial.Result {
	var params telemetry.Parameters
	params.Set("Speed", "80")
	params.Set("Wheel Diameter", "74")

	empty := kinematics.Derived{Series: series([]float64{}, []float64{})}
	ax := kinematics.Kinematics{
		Axis:                 "Wheel",
		Position:             kinematics.Derived{Series: series([]float64{0, 100}, []float64{0, 0.1}), Scale: 1},
		Velocity:             kinematics.Derived{Series: series([]float64{0, 100}, []float64{0.001, 0.001}), Scale: 1000},
		Acceleration:         kinematics.Derived{Series: series([]float64{0, 100}, []float64{0, 0}), Scale: 1e6},
		ReportedVelocity:     kinematics.Derived{Series: series([]float64{0, 100}, []float64{1, 1}), Scale: 1},
		ReportedAcceleration: empty,
	}
	return trial.Result{Trials: 3, Params: params, Axes: []kinematics.Kinematics{ax}}
}

func TestBuildScalesAndShifts(t *testing.T) {
	res := sampleResult()
	fig := Build(res, Offsets{Position: 0, Velocity: 50, Acceleration: 100})

	require.Len(t, fig.Panels, 3)
	pos, vel, acc := fig.Panels[0], fig.Panels[1], fig.Panels[2]

	require.Len(t, pos.Lines, 1)
	assert.Equal(t, "Wheel Pos.", pos.Lines[0].Label)
	assert.Equal(t, []float64{0, 100}, pos.Lines[0].X)

	require.Len(t, vel.Lines, 2)
	assert.Equal(t, []float64{50, 150}, vel.Lines[0].X)
	assert.InDeltaSlice(t, []float64{1, 1}, vel.Lines[0].Y, 1e-12)
	assert.True(t, vel.Lines[1].Dashed)
	assert.Equal(t, "Wheel Spd. (reported)", vel.Lines[1].Label)

	// no reported acceleration on this axis
	require.Len(t, acc.Lines, 1)
	assert.Equal(t, []float64{100, 200}, acc.Lines[0].X)

	assert.Equal(t, []string{"Speed: 80", "Wheel Diameter: 74"}, fig.Annotations)
	assert.Equal(t, "Number of tests conducted: 3", fig.Caption)

	// input untouched
	assert.Equal(t, []float64{0, 100}, res.Axes[0].Velocity.Times)
	assert.Equal(t, []float64{0.001, 0.001}, res.Axes[0].Velocity.Values)
}

func TestBuildEmptyResult(t *testing.T) {
	fig := Build(trial.Result{}, Offsets{})
	require.Len(t, fig.Panels, 3)
	for _, p := range fig.Panels {
		assert.Empty(t, p.Lines)
	}
	assert.Equal(t, "Number of tests conducted: 0", fig.Caption)
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "result.png")
	fig := Build(sampleResult(), Offsets{Velocity: 50})

	require.NoError(t, SavePNG(fig, path, 400, 600))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	img := Render(fig, 400, 600)
	assert.Equal(t, 400, img.Bounds().Dx())
	assert.Equal(t, 600, img.Bounds().Dy())
}
