// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/dekk_tester/internal/capture"
	"github.com/relabs-tech/dekk_tester/internal/config"
	"github.com/relabs-tech/dekk_tester/internal/protocol"
	"github.com/relabs-tech/dekk_tester/internal/rig"
)

func TestDefaultTestCommand(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, protocol.Legacy.Trigger, defaultTestCommand(cfg, nil))

	cfg.Protocol = protocol.Tagged.Name
	assert.Equal(t, "run test", defaultTestCommand(cfg, nil))

	assert.Equal(t, "run test 70 3", defaultTestCommand(cfg, &config.Profile{SpeedPercent: 70, AccelerationTimeS: 3}))
}

func TestProduceWithProfile(t *testing.T) {
	cfg := harnessConfig(t, protocol.Legacy)
	cfg.NumTrials = 1

	port, mock := rig.OpenMock(protocol.Legacy)
	mock.Samples = 15
	defer port.Close()

	var out bytes.Buffer
	h := newHarness(cfg, port, capture.MultiObserver{&consoleObserver{out: &out}}, nil, &out)
	profile := &config.Profile{WheelDiameterMM: 90, SpeedPercent: 40, AccelerationTimeS: 1}

	require.NoError(t, produce(context.Background(), h, profile, ""))
	assert.Contains(t, out.String(), "Wheel Diameter: 90")
	assert.Contains(t, out.String(), "Speed: 40")

	pngs, err := filepath.Glob(filepath.Join(cfg.PlotOutputDir, "*.png"))
	require.NoError(t, err)
	assert.Len(t, pngs, 1)
}
