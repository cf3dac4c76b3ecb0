// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"fmt"

	"github.com/google/uuid"
)

// Sample is one data record: a timestamp in milliseconds followed by one value
// per channel.
type Sample struct {
	Timestamp float64   `json:"t_ms"`
	Values    []float64 `json:"values"`
}

// Series is an ordered run of (time, value) pairs for one named channel.
type Series struct {
	Name   string    `json:"name"`
	Times  []float64 `json:"times"`
	Values []float64 `json:"values"`
}

func (s Series) Len() int { return len(s.Values) }

// Trial is one capture block, stored column-wise.
type Trial struct {
	ID       string     `json:"id"`
	Variant  string     `json:"variant"`
	Params   Parameters `json:"params"`
	Times    []float64  `json:"times"`
	Skipped  int        `json:"skipped"`
	channels []string
	columns  [][]float64
}

// NewTrial starts an empty trial for the given channel layout.
func NewTrial(variant string, channels []string) *Trial {
	names := make([]string, len(channels))
	copy(names, channels)
	return &Trial{
		ID:       uuid.NewString(),
		Variant:  variant,
		channels: names,
		columns:  make([][]float64, len(channels)),
	}
}

// Channels returns the channel names in record order.
func (t *Trial) Channels() []string {
	out := make([]string, len(t.channels))
	copy(out, t.channels)
	return out
}

// Len is the number of accepted samples.
func (t *Trial) Len() int { return len(t.Times) }

// Append adds s to the trial. A sample whose value count differs from the
// channel count is rejected and the trial is left unchanged.
func (t *Trial) Append(s Sample) error {
	if len(s.Values) != len(t.channels) {
		return fmt.Errorf("sample has %d values, trial has %d channels", len(s.Values), len(t.channels))
	}
	t.Times = append(t.Times, s.Timestamp)
	for i, v := range s.Values {
		t.columns[i] = append(t.columns[i], v)
	}
	return nil
}

// Samples rebuilds the row view of the trial.
func (t *Trial) Samples() []Sample {
	out := make([]Sample, len(t.Times))
	for i, ts := range t.Times {
		vals := make([]float64, len(t.columns))
		for c := range t.columns {
			vals[c] = t.columns[c][i]
		}
		out[i] = Sample{Timestamp: ts, Values: vals}
	}
	return out
}

// Series returns the named channel. The slices are copies.
func (t *Trial) Series(name string) (Series, bool) {
	for i, c := range t.channels {
		if c != name {
			continue
		}
		s := Series{
			Name:   name,
			Times:  append([]float64(nil), t.Times...),
			Values: append([]float64(nil), t.columns[i]...),
		}
		return s, true
	}
	return Series{}, false
}
