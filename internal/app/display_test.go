// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/dekk_tester/internal/capture"
	"github.com/relabs-tech/dekk_tester/internal/feed"
)

func TestDisplayLines(t *testing.T) {
	assert.Equal(t, []string{"DEKK tester", "Waiting..."}, displayLines(displaySnapshot{}))

	s := displaySnapshot{
		status:     feed.Status{Status: capture.Status{Phase: capture.PhaseSettling, Trial: 2, Trials: 3}},
		haveStatus: true,
		result:     feed.Result{Peaks: []feed.Peak{{Axis: "Wheel", MaxSpeed: 0.8, Distance: 1.25}}},
		haveResult: true,
	}
	assert.Equal(t, []string{"settling", "Trial 2/3", "V: 0.80m/s", "D: 1.25m"}, displayLines(s))
}

func TestRenderLinesDrawsText(t *testing.T) {
	blank := renderLines()
	img := renderLines("Trial 1/3")

	lit := 0
	for y := 0; y < 64; y++ {
		for x := 0; x < 128; x++ {
			assert.Equal(t, image1bit.Off, blank.BitAt(x, y))
			if img.BitAt(x, y) == image1bit.On {
				lit++
			}
		}
	}
	assert.Greater(t, lit, 0)
}

// recordingBus remembers the address of each transaction.
type recordingBus struct {
	i2c.Bus
	addrs []uint16
}

func (b *recordingBus) Tx(addr uint16, w, r []byte) error {
	b.addrs = append(b.addrs, addr)
	return nil
}

func TestAddrBusRewritesAddress(t *testing.T) {
	rec := &recordingBus{}
	bus := &addrBus{Bus: rec, addr: 0x3D}

	require.NoError(t, bus.Tx(0x3C, []byte{0x00, 0xAE}, nil))
	require.NoError(t, bus.Tx(0x3C, []byte{0x40}, nil))
	assert.Equal(t, []uint16{0x3D, 0x3D}, rec.addrs)
}
