// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package trial

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/relabs-tech/dekk_tester/internal/kinematics"
	"github.com/relabs-tech/dekk_tester/internal/telemetry"
)

var (
	ErrLengthMismatch = errors.New("trial arrays are not aligned")
	ErrNoTrials       = errors.New("no trials aggregated")
	ErrUnknownPolicy  = errors.New("unknown aggregate policy")
)

// Policy decides what happens when a trial does not line up with the ones
// already folded in.
type Policy int

const (
	// Strict rejects a misaligned trial.
	Strict Policy = iota
	// Truncate shortens every accumulator to the shortest trial.
	Truncate
)

func (p Policy) String() string {
	if p == Truncate {
		return "truncate"
	}
	return "strict"
}

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "strict", "":
		return Strict, nil
	case "truncate":
		return Truncate, nil
	default:
		return Strict, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// Run is one finished trial after the kinematics pipeline.
type Run struct {
	Trial *telemetry.Trial
	Axes  []kinematics.Kinematics
}

// Result is the element-wise mean over all folded runs.
type Result struct {
	Trials   int                     `json:"trials"`
	TrialIDs []string                `json:"trial_ids"`
	Params   telemetry.Parameters    `json:"params"`
	Axes     []kinematics.Kinematics `json:"axes"`
}

// Aggregator keeps running sums across trials. It is not safe for
// concurrent use; trials are folded one at a time as they finish.
type Aggregator struct {
	policy Policy
	n      int
	ids    []string
	params telemetry.Parameters
	sums   []kinematics.Kinematics
}

func NewAggregator(p Policy) *Aggregator {
	return &Aggregator{policy: p}
}

// Count is the number of trials folded so far.
func (a *Aggregator) Count() int { return a.n }

// Add folds r into the running sums. Under Strict a misaligned run returns
// ErrLengthMismatch and leaves the sums unchanged.
func (a *Aggregator) Add(r Run) error {
	if a.n == 0 {
		a.sums = cloneAxes(r.Axes)
		if r.Trial != nil {
			a.params = r.Trial.Params.Clone()
		}
		a.n = 1
		a.remember(r)
		return nil
	}

	if len(r.Axes) != len(a.sums) {
		return fmt.Errorf("%w: %d axes, expected %d", ErrLengthMismatch, len(r.Axes), len(a.sums))
	}
	for i := range r.Axes {
		if r.Axes[i].Axis != a.sums[i].Axis {
			return fmt.Errorf("%w: axis %q, expected %q", ErrLengthMismatch, r.Axes[i].Axis, a.sums[i].Axis)
		}
	}

	incoming := cloneAxes(r.Axes)
	for i := range a.sums {
		acc := a.sums[i].Vectors()
		in := incoming[i].Vectors()
		for j := range acc {
			if len(*acc[j]) == len(*in[j]) {
				continue
			}
			if a.policy == Strict {
				return fmt.Errorf("%w: %s has %d points, expected %d",
					ErrLengthMismatch, a.sums[i].Axis, len(*in[j]), len(*acc[j]))
			}
		}
	}

	for i := range a.sums {
		acc := a.sums[i].Vectors()
		in := incoming[i].Vectors()
		for j := range acc {
			n := min(len(*acc[j]), len(*in[j]))
			*acc[j] = (*acc[j])[:n]
			floats.Add(*acc[j], (*in[j])[:n])
		}
	}
	a.n++
	a.remember(r)
	return nil
}

func (a *Aggregator) remember(r Run) {
	if r.Trial != nil {
		a.ids = append(a.ids, r.Trial.ID)
	}
}

// Result divides the running sums by the number of trials.
func (a *Aggregator) Result() (Result, error) {
	if a.n == 0 {
		return Result{}, ErrNoTrials
	}
	axes := cloneAxes(a.sums)
	inv := 1 / float64(a.n)
	for i := range axes {
		for _, v := range axes[i].Vectors() {
			if a.n > 1 {
				floats.Scale(inv, *v)
			}
		}
	}
	return Result{
		Trials:   a.n,
		TrialIDs: append([]string(nil), a.ids...),
		Params:   a.params.Clone(),
		Axes:     axes,
	}, nil
}

func cloneAxes(in []kinematics.Kinematics) []kinematics.Kinematics {
	out := make([]kinematics.Kinematics, len(in))
	copy(out, in)
	for i := range out {
		for _, v := range out[i].Vectors() {
			*v = append([]float64{}, (*v)...)
		}
	}
	return out
}
