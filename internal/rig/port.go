// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package rig

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	serial "github.com/jacobsa/go-serial/serial"
	bugst "go.bug.st/serial"
)

var (
	// ErrLineTimeout means no complete line arrived within the idle window.
	ErrLineTimeout = errors.New("no line received before timeout")
	ErrClosed      = errors.New("port closed")
)

// Port is a line-oriented view of a serial link. A single goroutine reads
// the underlying stream and hands complete lines to ReadLine, so a caller can
// give up waiting without leaving a read half done.
type Port struct {
	name string
	rw   io.ReadWriteCloser

	lines chan string
	done  chan struct{}
	// err is written by pump before it closes lines.
	err error

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Open opens a serial device at baud, 8N1, as the rig firmware expects.
func Open(name string, baud int) (*Port, error) {
	opts := serial.OpenOptions{
		PortName:              name,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	rw, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	log.Printf("rig: serial port opened on %s at %d baud", name, baud)
	return NewPort(name, rw), nil
}

// NewPort wraps an already open stream.
func NewPort(name string, rw io.ReadWriteCloser) *Port {
	p := &Port{
		name:  name,
		rw:    rw,
		lines: make(chan string, 256),
		done:  make(chan struct{}),
	}
	go p.pump()
	return p
}

func (p *Port) Name() string { return p.name }

func (p *Port) pump() {
	defer close(p.lines)
	reader := bufio.NewReader(p.rw)
	for {
		raw, err := reader.ReadString('\n')
		if raw != "" {
			select {
			case p.lines <- decode(raw):
			case <-p.done:
				p.err = ErrClosed
				return
			}
		}
		if err != nil {
			p.err = err
			return
		}
	}
}

// decode drops invalid UTF-8 and surrounding whitespace, so a corrupted byte
// costs at most the characters it touched.
func decode(raw string) string {
	return strings.TrimSpace(strings.ToValidUTF8(raw, ""))
}

// ReadLine returns the next line. It fails with ErrLineTimeout if idle
// passes first (idle <= 0 waits indefinitely), with ctx's error if ctx ends,
// and with the stream's terminal error (usually io.EOF) once it is exhausted.
func (p *Port) ReadLine(ctx context.Context, idle time.Duration) (string, error) {
	var timeout <-chan time.Time
	if idle > 0 {
		timer := time.NewTimer(idle)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case line, ok := <-p.lines:
		if !ok {
			return "", p.err
		}
		return line, nil
	case <-timeout:
		return "", ErrLineTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	case <-p.done:
		return "", ErrClosed
	}
}

// Send writes cmd followed by a newline.
func (p *Port) Send(cmd string) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if _, err := io.WriteString(p.rw, strings.TrimRight(cmd, "\r\n")+"\n"); err != nil {
		return fmt.Errorf("write %q to %s: %w", cmd, p.name, err)
	}
	return nil
}

// Discard drops any lines already buffered, such as replies to earlier
// commands.
func (p *Port) Discard() int {
	n := 0
	for {
		select {
		case _, ok := <-p.lines:
			if !ok {
				return n
			}
			n++
		default:
			return n
		}
	}
}

func (p *Port) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		err = p.rw.Close()
	})
	return err
}

// ListPorts returns the serial devices present on this host.
func ListPorts() ([]string, error) {
	ports, err := bugst.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}
