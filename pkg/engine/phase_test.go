package engine

import (
	"errors"
	"strings"
	"testing"
)

func TestInitialAlwaysGreets(t *testing.T) {
	tr, err := NextPhase(PhaseInitial, PhaseContext{TurnCount: 1, PhaseTurns: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Next != PhaseGreeting {
		t.Errorf("INITIAL should transition to GREETING, got %s", tr.Next)
	}
	if tr.ShouldEnd {
		t.Error("INITIAL transition must not end the conversation")
	}
}

func TestGuardTable(t *testing.T) {
	testCases := []struct {
		name    string
		phase   Phase
		ctx     PhaseContext
		want    Phase
		wantEnd bool
	}{
		{
			name:  "greeting holds early",
			phase: PhaseGreeting,
			ctx:   PhaseContext{TurnCount: 2, PhaseTurns: 1},
			want:  PhaseGreeting,
		},
		{
			name:  "greeting exits on turn count",
			phase: PhaseGreeting,
			ctx:   PhaseContext{TurnCount: 4, PhaseTurns: 3},
			want:  PhaseBuildingRapport,
		},
		{
			name:  "greeting exits early on financial context",
			phase: PhaseGreeting,
			ctx:   PhaseContext{TurnCount: 2, PhaseTurns: 1, HasFinancialContext: true},
			want:  PhaseBuildingRapport,
		},
		{
			name:  "rapport jumps on financial context",
			phase: PhaseBuildingRapport,
			ctx:   PhaseContext{TurnCount: 5, PhaseTurns: 2, HasFinancialContext: true},
			want:  PhaseFinancialContext,
		},
		{
			name:  "rapport exits on direct request",
			phase: PhaseBuildingRapport,
			ctx:   PhaseContext{TurnCount: 5, PhaseTurns: 2, HasDirectRequest: true},
			want:  PhaseFinancialContext,
		},
		{
			name:  "financial context holds",
			phase: PhaseFinancialContext,
			ctx:   PhaseContext{TurnCount: 6, PhaseTurns: 2},
			want:  PhaseFinancialContext,
		},
		{
			name:  "financial context exits on direct request",
			phase: PhaseFinancialContext,
			ctx:   PhaseContext{TurnCount: 6, PhaseTurns: 2, HasDirectRequest: true},
			want:  PhaseRequest,
		},
		{
			name:  "request exits after two turns",
			phase: PhaseRequest,
			ctx:   PhaseContext{TurnCount: 8, PhaseTurns: 2},
			want:  PhaseExtraction,
		},
		{
			name:  "extraction holds while productive",
			phase: PhaseExtraction,
			ctx:   PhaseContext{TurnCount: 10, PhaseTurns: 3, ExtractionProgress: 0.4},
			want:  PhaseExtraction,
		},
		{
			name:  "extraction closes when targets met",
			phase: PhaseExtraction,
			ctx:   PhaseContext{TurnCount: 12, PhaseTurns: 6, ExtractionProgress: 1.0},
			want:  PhaseClosing,
		},
		{
			name:  "extraction goes suspicious on stalls",
			phase: PhaseExtraction,
			ctx:   PhaseContext{TurnCount: 10, PhaseTurns: 4, ConsecutiveDelays: 4},
			want:  PhaseSuspicious,
		},
		{
			name:  "suspicious recovers",
			phase: PhaseSuspicious,
			ctx:   PhaseContext{TurnCount: 11, PhaseTurns: 1, ConsecutiveDelays: 1},
			want:  PhaseExtraction,
		},
		{
			name:    "closing always ends",
			phase:   PhaseClosing,
			ctx:     PhaseContext{TurnCount: 16, PhaseTurns: 1},
			want:    PhaseEnded,
			wantEnd: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tr, err := NextPhase(tc.phase, tc.ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tr.Next != tc.want {
				t.Errorf("%s: want next %s, got %s (%s)", tc.phase, tc.want, tr.Next, tr.Reason)
			}
			if tr.ShouldEnd != tc.wantEnd {
				t.Errorf("%s: want shouldEnd=%v, got %v", tc.phase, tc.wantEnd, tr.ShouldEnd)
			}
		})
	}
}

// EXTRACTION at turn 15 closes with a turn-cap reason and shouldEnd=false.
func TestExtractionTurnCap(t *testing.T) {
	tr, err := NextPhase(PhaseExtraction, PhaseContext{TurnCount: 15, PhaseTurns: 7, ExtractionProgress: 0.4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Next != PhaseClosing {
		t.Fatalf("want CLOSING, got %s", tr.Next)
	}
	if tr.ShouldEnd {
		t.Error("closing via turn cap must not set shouldEnd")
	}
	if !strings.Contains(tr.Reason, "turn cap") {
		t.Errorf("reason should cite the turn cap, got %q", tr.Reason)
	}
}

// SUSPICIOUS with three consecutive delays gives up and closes.
func TestSuspiciousGivesUp(t *testing.T) {
	tr, err := NextPhase(PhaseSuspicious, PhaseContext{TurnCount: 12, PhaseTurns: 2, ConsecutiveDelays: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Next != PhaseClosing {
		t.Errorf("want CLOSING, got %s", tr.Next)
	}
}

func TestPhaseCapSafetyValve(t *testing.T) {
	// Every non-terminal phase must leave within its cap even when no
	// guard fires.
	testCases := []struct {
		phase Phase
		cap   int
	}{
		{PhaseGreeting, 3},
		{PhaseBuildingRapport, 5},
		{PhaseFinancialContext, 5},
		{PhaseRequest, 3},
		{PhaseExtraction, 15},
		{PhaseSuspicious, 3},
	}

	for _, tc := range testCases {
		t.Run(string(tc.phase), func(t *testing.T) {
			tr, err := NextPhase(tc.phase, PhaseContext{TurnCount: 9, PhaseTurns: tc.cap})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tr.Next == tc.phase {
				t.Errorf("%s stayed put at its turn cap (%d)", tc.phase, tc.cap)
			}
		})
	}
}

func TestTerminalAbsorption(t *testing.T) {
	for i := 0; i < 3; i++ {
		tr, err := NextPhase(PhaseEnded, PhaseContext{TurnCount: 20 + i, PhaseTurns: i})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tr.Next != PhaseEnded {
			t.Fatalf("ENDED must absorb, got %s", tr.Next)
		}
		if !tr.ShouldEnd {
			t.Fatal("ENDED must always report shouldEnd")
		}
	}
}

func TestExternalTermination(t *testing.T) {
	for _, phase := range []Phase{PhaseGreeting, PhaseExtraction, PhaseSuspicious, PhaseClosing} {
		tr, err := NextPhase(phase, PhaseContext{TurnCount: 5, PhaseTurns: 1, ExternallyTerminated: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tr.Next != PhaseEnded || !tr.ShouldEnd {
			t.Errorf("external termination from %s should force ENDED, got %s", phase, tr.Next)
		}
	}
}

func TestUnknownPhaseIsFatal(t *testing.T) {
	_, err := NextPhase(Phase("LIMBO"), PhaseContext{})
	if err == nil {
		t.Fatal("unknown phase must return an error")
	}
	if !errors.Is(err, ErrUnknownPhase) {
		t.Errorf("error should wrap ErrUnknownPhase, got %v", err)
	}
}
