package orchestrator

import (
	"fmt"

	"github.com/google/uuid"
)

// Phase is the state of an update cycle.
type Phase string

const (
	// PhaseIdle is the initial state before the manifest is loaded.
	PhaseIdle Phase = "Idle"

	// PhaseLoaded indicates the manifest has been loaded or created.
	PhaseLoaded Phase = "Loaded"

	// PhaseAnalyzed indicates the change detector has run.
	PhaseAnalyzed Phase = "Analyzed"

	// PhasePlanDecided indicates the strategy decision has been made.
	PhasePlanDecided Phase = "PlanDecided"

	// PhaseNoUpdateNeeded is the terminal state when no update is required.
	PhaseNoUpdateNeeded Phase = "NoUpdateNeeded"

	// PhasePlanning indicates the update plan is being built.
	PhasePlanning Phase = "Planning"

	// PhaseExecuting indicates backup, generation and validation are running.
	PhaseExecuting Phase = "Executing"

	// PhaseSucceeded is the terminal state of a completed cycle.
	PhaseSucceeded Phase = "Succeeded"

	// PhaseFailed is the terminal state of an aborted cycle.
	PhaseFailed Phase = "Failed"
)

// validTransitions maps each phase to the phases it may advance to. Every
// non-terminal phase may also fail.
var validTransitions = map[Phase][]Phase{
	PhaseIdle:        {PhaseLoaded, PhaseFailed},
	PhaseLoaded:      {PhaseAnalyzed, PhaseFailed},
	PhaseAnalyzed:    {PhasePlanDecided, PhaseFailed},
	PhasePlanDecided: {PhaseNoUpdateNeeded, PhasePlanning, PhaseFailed},
	PhasePlanning:    {PhaseExecuting, PhaseFailed},
	PhaseExecuting:   {PhaseSucceeded, PhaseFailed},

	// Terminal states have no transitions.
	PhaseNoUpdateNeeded: {},
	PhaseSucceeded:      {},
	PhaseFailed:         {},
}

// cycle tracks one update run. Illegal phase transitions are refused, so a
// cycle cannot execute before planning or succeed after failing.
type cycle struct {
	id    string
	phase Phase
}

func newCycle() *cycle {
	return &cycle{
		id:    uuid.NewString(),
		phase: PhaseIdle,
	}
}

// advance moves the cycle to a new phase, validating the transition.
func (c *cycle) advance(to Phase) error {
	allowed, found := validTransitions[c.phase]
	if !found {
		return fmt.Errorf("unknown phase: %s", c.phase)
	}

	for _, phase := range allowed {
		if phase == to {
			c.phase = to
			return nil
		}
	}

	return fmt.Errorf("cannot transition from %s to %s", c.phase, to)
}
