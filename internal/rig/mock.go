// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package rig

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/relabs-tech/dekk_tester/internal/protocol"
)

// MockPortName selects the simulated rig instead of a serial device.
const MockPortName = "mock"

// Mock is an in-memory stand-in for the rig firmware. It answers the same
// commands and prints a synthetic ramp-then-cruise run in the framing of
// the chosen variant.
type Mock struct {
	variant protocol.Variant

	// Samples is the number of data records per test, one every IntervalMs.
	Samples    int
	IntervalMs int
	// Noise adds a corrupted record in the middle of every block.
	Noise bool

	pr *io.PipeReader
	pw *io.PipeWriter

	mu        sync.Mutex // guards pending
	pending   bytes.Buffer
	replyMu   sync.Mutex // serialises replies
	wheelDiam float64
	closeOnce sync.Once
}

func NewMock(v protocol.Variant) *Mock {
	pr, pw := io.Pipe()
	return &Mock{
		variant:    v,
		Samples:    50,
		IntervalMs: 100,
		pr:         pr,
		pw:         pw,
		wheelDiam:  74,
	}
}

// OpenMock returns a Port backed by a Mock.
func OpenMock(v protocol.Variant) (*Port, *Mock) {
	m := NewMock(v)
	return NewPort(MockPortName, m), m
}

func (m *Mock) Read(p []byte) (int, error) { return m.pr.Read(p) }

// Write accepts host commands; each complete line is answered asynchronously.
func (m *Mock) Write(p []byte) (int, error) {
	m.mu.Lock()
	m.pending.Write(p)
	var cmds []string
	for {
		line, err := m.pending.ReadString('\n')
		if err != nil {
			// incomplete; put it back
			m.pending.Reset()
			m.pending.WriteString(line)
			break
		}
		cmds = append(cmds, strings.TrimSpace(line))
	}
	m.mu.Unlock()

	for _, c := range cmds {
		go m.reply(c)
	}
	return len(p), nil
}

func (m *Mock) Close() error {
	m.closeOnce.Do(func() {
		m.pw.Close()
	})
	return nil
}

func (m *Mock) println(lines ...string) {
	for _, l := range lines {
		if _, err := io.WriteString(m.pw, l+"\n"); err != nil {
			return
		}
	}
}

func (m *Mock) reply(cmd string) {
	m.replyMu.Lock()
	defer m.replyMu.Unlock()

	switch {
	case strings.HasPrefix(cmd, "set_motor_voltage "):
		m.println("Motor voltage set.")
	case strings.HasPrefix(cmd, "set_wheel_diameter "):
		if d, err := strconv.ParseFloat(strings.TrimPrefix(cmd, "set_wheel_diameter "), 64); err == nil {
			m.wheelDiam = d
		}
		m.println("Wheel diameter set.")
	case strings.HasPrefix(cmd, "set_distance_center_to_wheel "):
		m.println("Distance from center to wheel set.")
	case protocol.IsTrigger(cmd, m.variant):
		speed, accel := 50.0, 2
		if args := strings.Fields(strings.TrimPrefix(cmd, "run test")); len(args) > 0 && strings.HasPrefix(cmd, "run test") {
			if v, err := strconv.ParseFloat(args[0], 64); err == nil {
				speed = v
			}
			if len(args) > 1 {
				if v, err := strconv.Atoi(args[1]); err == nil {
					accel = v
				}
			}
			m.println("Running test with custom parameters...")
		}
		m.runTest(speed, accel)
	default:
		m.println("Unknown command received: " + cmd)
	}
}

// position of an axis that ramps to top speed over accelS seconds, in metres.
func rampPosition(tMs, topSpeed float64, accelS int) float64 {
	ts := tMs / 1000
	ta := float64(accelS)
	if ta <= 0 {
		return topSpeed * ts
	}
	if ts <= ta {
		return 0.5 * (topSpeed / ta) * ts * ts
	}
	return 0.5*topSpeed*ta + topSpeed*(ts-ta)
}

func (m *Mock) runTest(speedPercent float64, accelS int) {
	wheelTop := speedPercent / 100 // m/s at 100%
	swivelTop := wheelTop / 2
	params := []string{
		"Speed: " + strconv.FormatFloat(speedPercent, 'f', -1, 64),
		"Acceleration Time: " + strconv.Itoa(accelS),
		"Wheel Diameter: " + strconv.FormatFloat(m.wheelDiam, 'f', -1, 64),
	}

	records := make([]string, 0, m.Samples)
	for i := 0; i < m.Samples; i++ {
		t := float64(i * m.IntervalMs)
		wp := rampPosition(t, wheelTop, accelS)
		sp := rampPosition(t, swivelTop, accelS)
		var rec string
		switch len(m.variant.Channels) {
		case 6:
			rec = fmt.Sprintf("%d,%.4f,%.4f,%.4f,%.4f,%.4f,%.4f", i*m.IntervalMs,
				wheelTop, wp, wheelTop/float64(max(accelS, 1)),
				swivelTop, sp, swivelTop/float64(max(accelS, 1)))
		default:
			rec = fmt.Sprintf("%d,%.4f,%.4f", i*m.IntervalMs, wp, sp)
		}
		records = append(records, m.variant.Tag+rec)
		if m.Noise && i == m.Samples/2 {
			records = append(records, m.variant.Tag+"12,#,0")
		}
	}

	if m.variant.Header != "" {
		m.println("RUN_CALIBRATION")
		m.println(m.variant.StartMarkers[0])
		m.println(params...)
		m.println(m.variant.Header)
		m.println(records...)
		m.println(protocol.LegacyEnd)
		return
	}

	m.println("RUN_CALIBRATION", m.variant.StartMarkers[0], "START_TEST")
	m.println(params...)
	m.println(protocol.EndTestToken)
	m.println(records...)
}
