// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/dekk_tester/internal/capture"
	"github.com/relabs-tech/dekk_tester/internal/config"
	"github.com/relabs-tech/dekk_tester/internal/protocol"
	"github.com/relabs-tech/dekk_tester/internal/rig"
)

func harnessConfig(t *testing.T, v protocol.Variant) *config.Config {
	cfg := config.Default()
	cfg.Protocol = v.Name
	cfg.PlotOutputDir = t.TempDir()
	cfg.PlotWidth, cfg.PlotHeight = 400, 600
	cfg.NumTrials = 2
	cfg.SettleDelay = 0
	cfg.LineTimeout = 200
	cfg.DrainIdle = 200
	cfg.CaptureTimeout = 5000
	return cfg
}

func newMockHarness(t *testing.T, cfg *config.Config, input string) (*Harness, *bytes.Buffer) {
	v, err := cfg.Variant()
	require.NoError(t, err)
	port, mock := rig.OpenMock(v)
	mock.Samples = 20
	t.Cleanup(func() { port.Close() })

	var out bytes.Buffer
	obs := capture.MultiObserver{&consoleObserver{out: &out}}
	return newHarness(cfg, port, obs, scanLines(strings.NewReader(input)), &out), &out
}

func TestHarnessRunsTestAndSavesPlot(t *testing.T) {
	cfg := harnessConfig(t, protocol.Legacy)
	h, out := newMockHarness(t, cfg, "n\nset_wheel_diameter 80\nrun test 60 2\nexit\n")

	ctx := context.Background()
	require.NoError(t, h.Calibrate(ctx, nil))
	require.NoError(t, h.Loop(ctx))

	text := out.String()
	assert.Contains(t, text, "< Wheel diameter set.")
	assert.Contains(t, text, "Speed: 60")
	assert.Contains(t, text, "Wheel Diameter: 80")
	assert.Contains(t, text, "[trial 2/2] trial_done")
	assert.Contains(t, text, "Plot saved to")

	pngs, err := filepath.Glob(filepath.Join(cfg.PlotOutputDir, "*.png"))
	require.NoError(t, err)
	require.Len(t, pngs, 1)
	info, err := os.Stat(pngs[0])
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestHarnessTaggedRig(t *testing.T) {
	cfg := harnessConfig(t, protocol.Tagged)
	cfg.NumTrials = 1
	h, out := newMockHarness(t, cfg, "run test\n")

	require.NoError(t, h.Loop(context.Background()))
	assert.Contains(t, out.String(), "motion_end")
	assert.Contains(t, out.String(), "Plot saved to")
}

func TestHarnessPromptCalibration(t *testing.T) {
	cfg := harnessConfig(t, protocol.Legacy)
	h, out := newMockHarness(t, cfg, "y\n74\n\nabc\nfoo\nexit\n")

	ctx := context.Background()
	require.NoError(t, h.Calibrate(ctx, nil))
	require.NoError(t, h.Loop(ctx))

	text := out.String()
	assert.Contains(t, text, "< Wheel diameter set.")
	assert.NotContains(t, text, "Distance from center to wheel set.")
	assert.Contains(t, text, `"abc" is not a positive number`)
	assert.Contains(t, text, "< Unknown command received: foo")
}

func TestHarnessProfileCalibration(t *testing.T) {
	cfg := harnessConfig(t, protocol.Legacy)
	h, out := newMockHarness(t, cfg, "")

	profile := &config.Profile{WheelDiameterMM: 74, MotorVoltage: 12}
	require.NoError(t, h.Calibrate(context.Background(), profile))
	assert.Contains(t, out.String(), "< Wheel diameter set.")
	assert.Contains(t, out.String(), "< Motor voltage set.")

	// end of input leaves the loop cleanly
	require.NoError(t, h.Loop(context.Background()))
}

func TestHarnessFailedTestKeepsRunning(t *testing.T) {
	cfg := harnessConfig(t, protocol.Legacy)
	cfg.NumTrials = 1
	cfg.TrialRetries = 0
	cfg.CaptureTimeout = 300

	dev := &silentDevice{}
	var out bytes.Buffer
	h := newHarness(cfg, dev, capture.NopObserver{}, scanLines(strings.NewReader("t\nexit\n")), &out)

	require.NoError(t, h.Loop(context.Background()))
	assert.Contains(t, out.String(), "Test failed:")
	assert.Equal(t, []string{"t"}, dev.sent)
}

// silentDevice accepts commands and never answers.
type silentDevice struct {
	sent []string
}

func (d *silentDevice) Send(cmd string) error {
	d.sent = append(d.sent, cmd)
	return nil
}

func (d *silentDevice) ReadLine(ctx context.Context, idle time.Duration) (string, error) {
	t := time.NewTimer(idle)
	defer t.Stop()
	select {
	case <-t.C:
		return "", rig.ErrLineTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
