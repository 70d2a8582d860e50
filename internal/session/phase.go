// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"

	"github.com/qmuntal/stateless"

	"github.com/calmistry/assistant-tui/internal/logging"
)

// Phase is the observable mode of a chat view.
type Phase string

const (
	// PhaseIdle accepts a new submit.
	PhaseIdle Phase = "idle"
	// PhaseLoading means the request was sent and no output has arrived.
	PhaseLoading Phase = "loading"
	// PhaseGenerating means output is arriving and can be stopped.
	PhaseGenerating Phase = "generating"
)

// String returns the phase name.
func (p Phase) String() string {
	return string(p)
}

type trigger string

const (
	triggerSubmit       trigger = "submit"
	triggerFirstContent trigger = "first_content"
	triggerFinish       trigger = "finish"
	triggerStop         trigger = "stop"
)

// newPhaseMachine builds the idle -> loading -> generating -> idle machine.
// Submit is only permitted from idle, so firing it elsewhere returns an error.
func newPhaseMachine() *stateless.StateMachine {
	sm := stateless.NewStateMachine(PhaseIdle)

	sm.Configure(PhaseIdle).
		Permit(triggerSubmit, PhaseLoading).
		Ignore(triggerFirstContent).
		Ignore(triggerFinish).
		Ignore(triggerStop)

	sm.Configure(PhaseLoading).
		Permit(triggerFirstContent, PhaseGenerating).
		Permit(triggerFinish, PhaseIdle).
		Permit(triggerStop, PhaseIdle)

	sm.Configure(PhaseGenerating).
		Ignore(triggerFirstContent).
		Permit(triggerFinish, PhaseIdle).
		Permit(triggerStop, PhaseIdle)

	sm.OnTransitioned(func(_ context.Context, t stateless.Transition) {
		logging.L.Debug("phase changed", "from", t.Source, "to", t.Destination, "trigger", t.Trigger)
	})

	return sm
}

// currentPhase reads the machine state. Caller holds mu.
func (s *State) currentPhase() Phase {
	if p, ok := s.phase.MustState().(Phase); ok {
		return p
	}
	return PhaseIdle
}
