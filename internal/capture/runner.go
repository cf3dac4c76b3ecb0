// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/relabs-tech/dekk_tester/internal/kinematics"
	"github.com/relabs-tech/dekk_tester/internal/protocol"
	"github.com/relabs-tech/dekk_tester/internal/rig"
	"github.com/relabs-tech/dekk_tester/internal/telemetry"
	"github.com/relabs-tech/dekk_tester/internal/trial"
)

// ErrCaptureIncomplete means a block was not closed before the capture
// deadline or the end of the stream.
var ErrCaptureIncomplete = errors.New("capture incomplete")

// Device is the rig as seen by the runner: a line source that accepts
// commands.
type Device interface {
	ReadLine(ctx context.Context, idle time.Duration) (string, error)
	Send(cmd string) error
}

// discarder is implemented by devices that can drop stale buffered lines.
type discarder interface {
	Discard() int
}

type Options struct {
	Variant protocol.Variant
	Trials  int
	// Retries is how many times an incomplete trial is attempted again.
	Retries int

	SettleDelay    time.Duration
	LineTimeout    time.Duration
	CaptureTimeout time.Duration
	DrainIdle      time.Duration

	Pipeline kinematics.Pipeline
	Policy   trial.Policy
}

// Runner drives trials one after another on a single device.
type Runner struct {
	dev  Device
	opts Options
	obs  Observer
}

func NewRunner(dev Device, opts Options, obs Observer) *Runner {
	if obs == nil {
		obs = NopObserver{}
	}
	if opts.Trials < 1 {
		opts.Trials = 1
	}
	return &Runner{dev: dev, opts: opts, obs: obs}
}

// Run sends cmd once per trial, averages the processed trials and returns
// the aggregate.
func (r *Runner) Run(ctx context.Context, cmd string) (trial.Result, error) {
	agg := trial.NewAggregator(r.opts.Policy)
	n := r.opts.Trials

	for i := 0; i < n; i++ {
		if i > 0 {
			if err := r.settle(ctx, i, n); err != nil {
				return trial.Result{}, err
			}
		}

		tr, err := r.captureWithRetry(ctx, cmd, i, n)
		if err != nil {
			r.obs.OnStatus(Status{Phase: PhaseFailed, Trial: i + 1, Trials: n, Message: err.Error()})
			return trial.Result{}, fmt.Errorf("trial %d/%d: %w", i+1, n, err)
		}
		r.obs.OnTrial(i, tr)

		run := trial.Run{Trial: tr, Axes: r.opts.Pipeline.Process(tr, r.opts.Variant)}
		if err := agg.Add(run); err != nil {
			r.obs.OnStatus(Status{Phase: PhaseFailed, Trial: i + 1, Trials: n, TrialID: tr.ID, Message: err.Error()})
			return trial.Result{}, fmt.Errorf("trial %d/%d: %w", i+1, n, err)
		}
		r.obs.OnStatus(Status{
			Phase: PhaseTrialDone, Trial: i + 1, Trials: n, TrialID: tr.ID,
			Message: fmt.Sprintf("%d samples, %d skipped", tr.Len(), tr.Skipped),
		})
	}

	res, err := agg.Result()
	if err != nil {
		return trial.Result{}, err
	}
	r.obs.OnResult(res)
	r.obs.OnStatus(Status{Phase: PhaseDone, Trial: n, Trials: n})
	return res, nil
}

func (r *Runner) settle(ctx context.Context, i, n int) error {
	if r.opts.SettleDelay <= 0 {
		return nil
	}
	r.obs.OnStatus(Status{Phase: PhaseSettling, Trial: i + 1, Trials: n})
	t := time.NewTimer(r.opts.SettleDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) captureWithRetry(ctx context.Context, cmd string, i, n int) (*telemetry.Trial, error) {
	var lastErr error
	for attempt := 0; attempt <= r.opts.Retries; attempt++ {
		if attempt > 0 {
			log.Printf("capture: trial %d/%d attempt %d failed: %v", i+1, n, attempt, lastErr)
			r.obs.OnStatus(Status{Phase: PhaseRetry, Trial: i + 1, Trials: n, Message: lastErr.Error()})
			if err := r.settle(ctx, i, n); err != nil {
				return nil, err
			}
		}
		r.obs.OnStatus(Status{Phase: PhaseCommand, Trial: i + 1, Trials: n, Message: cmd})
		tr, err := r.CaptureTrial(ctx, cmd)
		if err == nil {
			return tr, nil
		}
		if !errors.Is(err, ErrCaptureIncomplete) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// CaptureTrial sends cmd and collects one block. Malformed records are
// counted and reported to the observer; they never end the capture.
func (r *Runner) CaptureTrial(ctx context.Context, cmd string) (*telemetry.Trial, error) {
	if r.opts.CaptureTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.CaptureTimeout)
		defer cancel()
	}

	if d, ok := r.dev.(discarder); ok {
		if n := d.Discard(); n > 0 {
			log.Printf("capture: discarded %d stale lines", n)
		}
	}
	if err := r.dev.Send(cmd); err != nil {
		return nil, err
	}

	v := r.opts.Variant
	x := protocol.NewExtractor(v)
	var tr *telemetry.Trial
	var lastTS float64
	warnedOrder := false

	for !x.Done() {
		idle := r.opts.LineTimeout
		if x.Draining() {
			idle = r.opts.DrainIdle
		}

		line, err := r.dev.ReadLine(ctx, idle)
		if err != nil {
			switch {
			case errors.Is(err, rig.ErrLineTimeout):
				x.Idle()
				continue
			case errors.Is(err, io.EOF) && x.Draining():
				x.Idle()
				continue
			case errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil:
				return nil, fmt.Errorf("%w: no end of block within %s", ErrCaptureIncomplete, r.opts.CaptureTimeout)
			case errors.Is(err, context.Canceled):
				return nil, err
			default:
				return nil, fmt.Errorf("%w: %w", ErrCaptureIncomplete, err)
			}
		}

		ev := x.Feed(line)
		switch ev.Kind {
		case protocol.EventStart:
			if tr != nil {
				log.Printf("capture: start marker repeated, dropping %d samples", tr.Len())
			}
			tr = telemetry.NewTrial(v.Name, v.Channels)
			lastTS, warnedOrder = 0, false
			r.obs.OnStatus(Status{Phase: PhaseStarted, TrialID: tr.ID})

		case protocol.EventParameter:
			tr.Params.Set(ev.Key, ev.Value)

		case protocol.EventRecord:
			res := protocol.Parse(ev.Line, v)
			if !res.OK() {
				tr.Skipped++
				log.Printf("capture: skipped record %q: %s (%s)", ev.Line, res.Skip, res.Detail)
				r.obs.OnSkip(tr.ID, ev.Line, res)
				continue
			}
			if tr.Len() > 0 && res.Sample.Timestamp < lastTS && !warnedOrder {
				log.Printf("capture: timestamp went backwards (%g after %g), keeping arrival order", res.Sample.Timestamp, lastTS)
				warnedOrder = true
			}
			lastTS = res.Sample.Timestamp
			if err := tr.Append(res.Sample); err != nil {
				tr.Skipped++
				log.Printf("capture: %v", err)
				continue
			}
			r.obs.OnSample(tr.ID, res.Sample)

		case protocol.EventMotionEnd:
			r.obs.OnStatus(Status{Phase: PhaseMotionEnd, TrialID: tr.ID})
		}
	}

	return tr, nil
}
