// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package rig

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/dekk_tester/internal/protocol"
)

type scripted struct {
	io.Reader
	written bytes.Buffer
}

func (s *scripted) Write(p []byte) (int, error) { return s.written.Write(p) }
func (s *scripted) Close() error                { return nil }

func TestPortReadsDecodedLines(t *testing.T) {
	src := &scripted{Reader: strings.NewReader("hello\r\n  bad\xffbyte  \nlast")}
	p := NewPort("test", src)
	defer p.Close()

	ctx := context.Background()
	for _, want := range []string{"hello", "badbyte", "last"} {
		line, err := p.ReadLine(ctx, time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, line)
	}
	_, err := p.ReadLine(ctx, time.Second)
	assert.ErrorIs(t, err, io.EOF)
	_, err = p.ReadLine(ctx, time.Second)
	assert.ErrorIs(t, err, io.EOF)
}

func TestPortIdleTimeout(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	p := NewPort("test", &scripted{Reader: pr})
	defer p.Close()

	_, err := p.ReadLine(context.Background(), 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrLineTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.ReadLine(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPortSendAppendsNewline(t *testing.T) {
	src := &scripted{Reader: strings.NewReader("")}
	p := NewPort("test", src)
	defer p.Close()

	require.NoError(t, p.Send("t"))
	require.NoError(t, p.Send("run test 50 2\n"))
	assert.Equal(t, "t\nrun test 50 2\n", src.written.String())
}

func readUntil(t *testing.T, p *Port, want string) []string {
	t.Helper()
	var seen []string
	for {
		line, err := p.ReadLine(context.Background(), 2*time.Second)
		require.NoError(t, err)
		seen = append(seen, line)
		if line == want {
			return seen
		}
	}
}

func TestMockLegacyBlock(t *testing.T) {
	p, m := OpenMock(protocol.Legacy)
	defer p.Close()
	m.Samples = 5

	require.NoError(t, p.Send("t"))
	lines := readUntil(t, p, protocol.LegacyEnd)
	assert.Contains(t, lines, protocol.LegacyStart)
	assert.Contains(t, lines, protocol.LegacyHeader)
	assert.Contains(t, lines, "0,0.0000,0.0000")
}

func TestMockCommandReplies(t *testing.T) {
	p, _ := OpenMock(protocol.Tagged)
	defer p.Close()

	require.NoError(t, p.Send(protocol.SetWheelDiameter(80)))
	readUntil(t, p, "Wheel diameter set.")
	require.NoError(t, p.Send("hello"))
	readUntil(t, p, "Unknown command received: hello")
}
