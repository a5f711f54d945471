package engine

import (
	"errors"
	"fmt"
)

// ============================================================================
// CONVERSATION PHASE STATE MACHINE
// ============================================================================
// A pure transition function over a closed phase enumeration. The caller
// persists the returned phase into the session; nothing here mutates shared
// state. ENDED is terminal and absorbing.

// Phase is the conversation's current engagement stage.
type Phase string

const (
	PhaseInitial          Phase = "INITIAL"
	PhaseGreeting         Phase = "GREETING"
	PhaseBuildingRapport  Phase = "BUILDING_RAPPORT"
	PhaseFinancialContext Phase = "FINANCIAL_CONTEXT"
	PhaseRequest          Phase = "REQUEST"
	PhaseExtraction       Phase = "EXTRACTION"
	PhaseSuspicious       Phase = "SUSPICIOUS"
	PhaseClosing          Phase = "CLOSING"
	PhaseEnded            Phase = "ENDED"
)

// ErrUnknownPhase is returned when a phase value outside the enumeration
// reaches the state machine. It is a configuration error and is never
// silently coerced.
var ErrUnknownPhase = errors.New("unknown conversation phase")

// phaseCaps are the hard per-phase turn caps. When a phase's own turn
// counter reaches its cap and no guard fired, the machine forces CLOSING -
// the safety valve against stalling forever in one phase.
var phaseCaps = map[Phase]int{
	PhaseInitial:          1,
	PhaseGreeting:         3,
	PhaseBuildingRapport:  5,
	PhaseFinancialContext: 5,
	PhaseRequest:          3,
	PhaseExtraction:       15,
	PhaseSuspicious:       3,
	PhaseClosing:          2,
	PhaseEnded:            0,
}

// ValidPhase reports whether p is in the closed enumeration.
func ValidPhase(p Phase) bool {
	_, ok := phaseCaps[p]
	return ok
}

// PhaseContext is the immutable evidence a transition decision reads.
type PhaseContext struct {
	TurnCount            int     // global scammer turn count
	PhaseTurns           int     // turns spent in the current phase
	HasFinancialContext  bool    // scorer flag for the current message
	HasDirectRequest     bool    // scorer flag for the current message
	ExtractionProgress   float64 // distinct high-value types / 5, capped at 1
	ConsecutiveDelays    int     // consecutive stalling replies
	ExternallyTerminated bool    // counterpart disconnected / external stop
}

// Transition is the state machine's decision for one turn.
type Transition struct {
	Next      Phase
	ShouldEnd bool
	Reason    string
}

// NextPhase evaluates the transition guards for the current phase against
// the context. Guards are evaluated in priority order; if none fires and
// the phase's hard turn cap is reached, the machine forces CLOSING.
func NextPhase(phase Phase, ctx PhaseContext) (Transition, error) {
	if !ValidPhase(phase) {
		return Transition{}, fmt.Errorf("%w: %q", ErrUnknownPhase, phase)
	}

	// Terminal absorption: ENDED stays ENDED.
	if phase == PhaseEnded {
		return Transition{Next: PhaseEnded, ShouldEnd: true, Reason: "conversation already ended"}, nil
	}

	// External termination overrides every guard.
	if ctx.ExternallyTerminated {
		return Transition{Next: PhaseEnded, ShouldEnd: true, Reason: "counterpart terminated the conversation"}, nil
	}

	tr := evalGuards(phase, ctx)

	// Safety valve: a phase that did not move on its own is forced out
	// once its turn cap is hit.
	if tr.Next == phase && ctx.PhaseTurns >= phaseCaps[phase] {
		tr = Transition{Next: PhaseClosing, Reason: fmt.Sprintf("%s turn cap reached", phase)}
	}

	return tr, nil
}

func evalGuards(phase Phase, ctx PhaseContext) Transition {
	stay := Transition{Next: phase, Reason: "holding phase"}

	switch phase {
	case PhaseInitial:
		return Transition{Next: PhaseGreeting, Reason: "conversation opened"}

	case PhaseGreeting:
		if ctx.PhaseTurns >= 3 || ctx.HasFinancialContext {
			return Transition{Next: PhaseBuildingRapport, Reason: "greeting exhausted"}
		}
		return stay

	case PhaseBuildingRapport:
		if ctx.HasFinancialContext {
			return Transition{Next: PhaseFinancialContext, Reason: "financial topic raised"}
		}
		if ctx.PhaseTurns >= 5 || ctx.HasDirectRequest {
			return Transition{Next: PhaseFinancialContext, Reason: "rapport phase complete"}
		}
		return stay

	case PhaseFinancialContext:
		if ctx.PhaseTurns >= 5 || ctx.HasDirectRequest {
			return Transition{Next: PhaseRequest, Reason: "direct request received"}
		}
		return stay

	case PhaseRequest:
		if ctx.PhaseTurns >= 2 {
			return Transition{Next: PhaseExtraction, Reason: "request phase complete"}
		}
		return stay

	case PhaseExtraction:
		if ctx.ExtractionProgress >= 0.9 && ctx.TurnCount >= 12 {
			return Transition{Next: PhaseClosing, Reason: "extraction targets met"}
		}
		if ctx.TurnCount >= 15 {
			return Transition{Next: PhaseClosing, Reason: "extraction turn cap reached"}
		}
		if ctx.ConsecutiveDelays >= 4 {
			return Transition{Next: PhaseSuspicious, Reason: "stalled without new intelligence"}
		}
		return stay

	case PhaseSuspicious:
		if ctx.ConsecutiveDelays >= 3 {
			return Transition{Next: PhaseClosing, Reason: "could not recover from suspicion"}
		}
		return Transition{Next: PhaseExtraction, Reason: "recovery attempt"}

	case PhaseClosing:
		return Transition{Next: PhaseEnded, ShouldEnd: true, Reason: "closing complete"}
	}

	return stay
}
