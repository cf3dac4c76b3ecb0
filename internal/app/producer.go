// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/multierr"

	"github.com/relabs-tech/dekk_tester/internal/capture"
	"github.com/relabs-tech/dekk_tester/internal/config"
	"github.com/relabs-tech/dekk_tester/internal/protocol"
)

// RunProducer runs one multi-trial test without prompting, publishes it and
// saves the figure. An empty cmd uses the rig profile's test command, or
// the protocol's plain trigger.
func RunProducer(cfg *config.Config, cmd string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SerialPort == "" {
		return fmt.Errorf("SERIAL_PORT is required (use \"mock\" for the simulated rig)")
	}
	v, err := cfg.Variant()
	if err != nil {
		return err
	}

	var profile *config.Profile
	if cfg.RigProfile != "" {
		p, err := config.LoadProfile(cfg.RigProfile)
		if err != nil {
			return err
		}
		profile = &p
	}

	port, err := openRig(cfg.SerialPort, cfg.SerialBaudRate, v)
	if err != nil {
		return err
	}
	pub, err := NewPublisher(cfg, v)
	if err != nil {
		port.Close()
		return fmt.Errorf("failed to connect publisher: %w", err)
	}

	obs := capture.MultiObserver{&consoleObserver{out: os.Stdout}, pub}
	err = produce(ctx, newHarness(cfg, port, obs, nil, os.Stdout), profile, cmd)
	return multierr.Combine(err, port.Close(), pub.Close())
}

func produce(ctx context.Context, h *Harness, profile *config.Profile, cmd string) error {
	if profile != nil {
		if err := h.Calibrate(ctx, profile); err != nil {
			return err
		}
	}
	if cmd == "" {
		cmd = defaultTestCommand(h.cfg, profile)
	}
	log.Printf("producer: running %q", cmd)
	return h.runTest(ctx, cmd)
}

func defaultTestCommand(cfg *config.Config, profile *config.Profile) string {
	if profile != nil {
		return profile.TestCommand()
	}
	v, err := cfg.Variant()
	if err != nil {
		return protocol.Legacy.Trigger
	}
	return v.Trigger
}
