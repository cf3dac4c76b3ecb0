// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/multierr"

	"github.com/relabs-tech/dekk_tester/internal/capture"
	"github.com/relabs-tech/dekk_tester/internal/config"
	"github.com/relabs-tech/dekk_tester/internal/feed"
	"github.com/relabs-tech/dekk_tester/internal/plot"
	"github.com/relabs-tech/dekk_tester/internal/protocol"
	"github.com/relabs-tech/dekk_tester/internal/rig"
	"github.com/relabs-tech/dekk_tester/internal/telemetry"
)

var errExit = errors.New("exit requested")

// RunConsole is the interactive test harness: pick a port, optionally
// calibrate, then run tests or pass commands through to the rig.
func RunConsole(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	v, err := cfg.Variant()
	if err != nil {
		return err
	}

	lines := scanLines(os.Stdin)
	out := os.Stdout

	name := cfg.SerialPort
	if name == "" {
		name, err = askPort(ctx, lines, out)
		if err != nil {
			return nil
		}
	}

	port, err := openRig(name, cfg.SerialBaudRate, v)
	if err != nil {
		return err
	}

	pub, err := NewPublisher(cfg, v)
	if err != nil {
		port.Close()
		return fmt.Errorf("failed to connect publisher: %w", err)
	}
	defer func() {
		if err := multierr.Combine(port.Close(), pub.Close()); err != nil {
			log.Printf("console: shutdown: %v", err)
		}
	}()

	var profile *config.Profile
	if cfg.RigProfile != "" {
		p, err := config.LoadProfile(cfg.RigProfile)
		if err != nil {
			return err
		}
		profile = &p
	}

	obs := capture.MultiObserver{&consoleObserver{out: out}, pub}
	h := newHarness(cfg, port, obs, lines, out)
	if err := h.Calibrate(ctx, profile); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	return h.Loop(ctx)
}

func openRig(name string, baud int, v protocol.Variant) (*rig.Port, error) {
	if name == rig.MockPortName {
		port, _ := rig.OpenMock(v)
		log.Printf("console: using simulated %s rig", v.Name)
		return port, nil
	}
	return rig.Open(name, baud)
}

func askPort(ctx context.Context, lines <-chan string, out io.Writer) (string, error) {
	ports, err := rig.ListPorts()
	if err != nil {
		log.Printf("console: could not list serial ports: %v", err)
	}
	if len(ports) == 0 {
		fmt.Fprintln(out, "No serial ports found.")
	} else {
		fmt.Fprintln(out, "Available ports:")
		for _, p := range ports {
			fmt.Fprintf(out, "  %s\n", p)
		}
	}
	for {
		name, err := ask(ctx, lines, out, "Enter the serial port (or 'mock'): ")
		if err != nil {
			return "", err
		}
		if name == "" && len(ports) == 1 {
			name = ports[0]
		}
		if name != "" {
			return name, nil
		}
	}
}

// scanLines feeds r line by line into a channel that is closed at EOF.
func scanLines(r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			ch <- strings.TrimSpace(scanner.Text())
		}
	}()
	return ch
}

func ask(ctx context.Context, lines <-chan string, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	}
}

// Harness runs operator commands against one rig.
type Harness struct {
	cfg   *config.Config
	dev   capture.Device
	obs   capture.Observer
	lines <-chan string
	out   io.Writer
	now   func() time.Time
}

func newHarness(cfg *config.Config, dev capture.Device, obs capture.Observer, lines <-chan string, out io.Writer) *Harness {
	return &Harness{cfg: cfg, dev: dev, obs: obs, lines: lines, out: out, now: time.Now}
}

func (h *Harness) ask(ctx context.Context, prompt string) (string, error) {
	return ask(ctx, h.lines, h.out, prompt)
}

// Calibrate sends the profile's calibration commands, or asks the operator
// for them when there is no profile.
func (h *Harness) Calibrate(ctx context.Context, profile *config.Profile) error {
	if profile != nil {
		for _, cmd := range profile.Commands() {
			if err := h.passthrough(ctx, cmd); err != nil {
				return err
			}
		}
		return nil
	}

	ans, err := h.ask(ctx, "Do you want to calibrate the device? (y/n): ")
	if err != nil {
		return err
	}
	if !strings.EqualFold(ans, "y") && !strings.EqualFold(ans, "yes") {
		return nil
	}

	steps := []struct {
		prompt string
		cmd    func(float64) string
	}{
		{"Wheel diameter in mm (blank to skip): ", protocol.SetWheelDiameter},
		{"Distance from center to wheel in mm (blank to skip): ", protocol.SetCenterToWheel},
		{"Motor voltage (blank to skip): ", protocol.SetMotorVoltage},
	}
	for _, s := range steps {
		raw, err := h.ask(ctx, s.prompt)
		if err != nil {
			return err
		}
		if raw == "" {
			continue
		}
		val, err := strconv.ParseFloat(raw, 64)
		if err != nil || val <= 0 {
			fmt.Fprintf(h.out, "%q is not a positive number, skipped.\n", raw)
			continue
		}
		if err := h.passthrough(ctx, s.cmd(val)); err != nil {
			return err
		}
	}
	return nil
}

// Loop reads commands until exit, end of input or cancellation.
func (h *Harness) Loop(ctx context.Context) error {
	for {
		cmd, err := h.ask(ctx, "Enter command (run test [speed accel], exit): ")
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := h.Execute(ctx, cmd); err != nil {
			if errors.Is(err, errExit) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}

// Execute handles one operator command.
func (h *Harness) Execute(ctx context.Context, cmd string) error {
	cmd = strings.TrimSpace(cmd)
	v, err := h.cfg.Variant()
	if err != nil {
		return err
	}
	switch {
	case cmd == "":
		return nil
	case cmd == "exit" || cmd == "quit":
		return errExit
	case protocol.IsTrigger(cmd, v):
		if err := h.runTest(ctx, cmd); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("console: test failed: %v", err)
			fmt.Fprintf(h.out, "Test failed: %v\n", err)
		}
		return nil
	default:
		return h.passthrough(ctx, cmd)
	}
}

// passthrough sends cmd as-is and echoes replies until the rig goes quiet.
func (h *Harness) passthrough(ctx context.Context, cmd string) error {
	if err := h.dev.Send(cmd); err != nil {
		return err
	}
	idle := time.Duration(h.cfg.LineTimeout) * time.Millisecond
	for {
		line, err := h.dev.ReadLine(ctx, idle)
		if err != nil {
			if errors.Is(err, rig.ErrLineTimeout) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("reading reply to %q: %w", cmd, err)
		}
		fmt.Fprintf(h.out, "< %s\n", line)
	}
}

func (h *Harness) runTest(ctx context.Context, cmd string) error {
	opts, err := h.cfg.CaptureOptions()
	if err != nil {
		return err
	}
	fmt.Fprintf(h.out, "Running %d trial(s) of %q...\n", opts.Trials, cmd)

	res, err := capture.NewRunner(h.dev, opts, h.obs).Run(ctx, cmd)
	if err != nil {
		return err
	}

	for _, l := range res.Params.Lines() {
		fmt.Fprintf(h.out, "  %s\n", l)
	}
	for _, p := range feed.NewResult(res, h.now()).Peaks {
		fmt.Fprintf(h.out, "  %s: distance %.3f m, max speed %.3f m/s, max accel %.3f m/s^2\n",
			p.Axis, p.Distance, p.MaxSpeed, p.MaxAccel)
	}

	path := filepath.Join(h.cfg.PlotOutputDir, "test_"+h.now().Format("20060102_150405")+".png")
	fig := plot.Build(res, h.cfg.PlotOffsets())
	if err := plot.SavePNG(fig, path, h.cfg.PlotWidth, h.cfg.PlotHeight); err != nil {
		return err
	}
	log.Printf("console: plot saved to %s", path)
	fmt.Fprintf(h.out, "Plot saved to %s\n", path)
	return nil
}

// consoleObserver narrates runner progress to the operator.
type consoleObserver struct {
	capture.NopObserver
	out io.Writer
}

func (c *consoleObserver) OnStatus(s capture.Status) {
	switch s.Phase {
	case capture.PhaseStarted, capture.PhaseMotionEnd:
		fmt.Fprintf(c.out, "  %s\n", s.Phase)
	default:
		msg := ""
		if s.Message != "" {
			msg = ": " + s.Message
		}
		fmt.Fprintf(c.out, "[trial %d/%d] %s%s\n", s.Trial, s.Trials, s.Phase, msg)
	}
}

func (c *consoleObserver) OnSkip(_ string, line string, r protocol.ParseResult) {
	fmt.Fprintf(c.out, "  skipped %q (%s)\n", line, r.Skip)
}

func (c *consoleObserver) OnTrial(i int, tr *telemetry.Trial) {
	fmt.Fprintf(c.out, "  trial %d captured %d samples\n", i+1, tr.Len())
}
