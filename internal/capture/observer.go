// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package capture

import (
	"github.com/relabs-tech/dekk_tester/internal/protocol"
	"github.com/relabs-tech/dekk_tester/internal/telemetry"
	"github.com/relabs-tech/dekk_tester/internal/trial"
)

// Observer receives progress from a Runner. Calls happen on the runner's
// goroutine, in order.
type Observer interface {
	OnStatus(s Status)
	OnSample(trialID string, s telemetry.Sample)
	OnSkip(trialID, line string, r protocol.ParseResult)
	OnTrial(index int, tr *telemetry.Trial)
	OnResult(res trial.Result)
}

// Phase names reported in Status.
const (
	PhaseCommand   = "command"
	PhaseStarted   = "started"
	PhaseMotionEnd = "motion_end"
	PhaseTrialDone = "trial_done"
	PhaseRetry     = "retry"
	PhaseSettling  = "settling"
	PhaseDone      = "done"
	PhaseFailed    = "failed"
)

type Status struct {
	Phase   string `json:"phase"`
	Trial   int    `json:"trial"`
	Trials  int    `json:"trials"`
	TrialID string `json:"trial_id,omitempty"`
	Message string `json:"message,omitempty"`
}

// NopObserver ignores everything.
type NopObserver struct{}

func (NopObserver) OnStatus(Status) {}
func (NopObserver) OnSample(string, telemetry.Sample) {}
func (NopObserver) OnSkip(string, string, protocol.ParseResult) {}
func (NopObserver) OnTrial(int, *telemetry.Trial) {}
func (NopObserver) OnResult(trial.Result) {}

// MultiObserver fans out to several observers.
type MultiObserver []Observer

func (m MultiObserver) OnStatus(s Status) {
	for _, o := range m {
		o.OnStatus(s)
	}
}

func (m MultiObserver) OnSample(id string, s telemetry.Sample) {
	for _, o := range m {
		o.OnSample(id, s)
	}
}

func (m MultiObserver) OnSkip(id, line string, r protocol.ParseResult) {
	for _, o := range m {
		o.OnSkip(id, line, r)
	}
}

func (m MultiObserver) OnTrial(i int, tr *telemetry.Trial) {
	for _, o := range m {
		o.OnTrial(i, tr)
	}
}

func (m MultiObserver) OnResult(res trial.Result) {
	for _, o := range m {
		o.OnResult(res)
	}
}
