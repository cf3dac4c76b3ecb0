// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParametersKeepOrderAndOverwrite(t *testing.T) {
	var p Parameters
	p.Set("Wheel Diameter", "50")
	p.Set("Motor Voltage", "12")
	p.Set("Wheel Diameter", "74")

	assert.Equal(t, []string{"Wheel Diameter", "Motor Voltage"}, p.Keys())
	v, ok := p.Get("Wheel Diameter")
	require.True(t, ok)
	assert.Equal(t, "74", v)
	assert.Equal(t, []string{"Wheel Diameter: 74", "Motor Voltage: 12"}, p.Lines())
}

func TestParametersJSONOrder(t *testing.T) {
	var p Parameters
	p.Set("b", "2")
	p.Set("a", "1")

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, `{"b":"2","a":"1"}`, string(raw))

	var back Parameters
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, []string{"b", "a"}, back.Keys())
}

func TestTrialAppendRejectsArityMismatch(t *testing.T) {
	tr := NewTrial("legacy", []string{"wheel_position", "swivel_position"})
	require.NoError(t, tr.Append(Sample{Timestamp: 0, Values: []float64{0, 0}}))
	require.Error(t, tr.Append(Sample{Timestamp: 10, Values: []float64{0.1}}))
	require.NoError(t, tr.Append(Sample{Timestamp: 10, Values: []float64{0.1, 0.05}}))

	assert.Equal(t, 2, tr.Len())
	wheel, ok := tr.Series("wheel_position")
	require.True(t, ok)
	assert.Equal(t, []float64{0, 10}, wheel.Times)
	assert.Equal(t, []float64{0, 0.1}, wheel.Values)

	_, ok = tr.Series("missing")
	assert.False(t, ok)
	assert.NotEmpty(t, tr.ID)
}
