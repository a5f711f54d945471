package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// TURN ORCHESTRATOR
// ============================================================================
// Wires the pipeline for one turn: score -> extract -> transition -> select
// reply -> persist. The components themselves are pure; all mutation happens
// here on the locked session.

// GlobalFallbackReply is the single reply substituted by the boundary when
// the pipeline signals an error. It must satisfy the one-question invariant.
const GlobalFallbackReply = "Sorry, the line is breaking up. Can you say that once more?"

// urgencyRank orders urgency levels so the session keeps the highest seen.
var urgencyRank = map[string]int{
	UrgencyNone: 0, UrgencyMedium: 1, UrgencyHigh: 2, UrgencyCritical: 3,
}

// TurnResult is everything the boundary consumes for one processed turn.
type TurnResult struct {
	SessionID string      `json:"session_id"`
	Reply     string      `json:"reply"`
	Score     ScoreResult `json:"score"`

	Phase     Phase  `json:"phase"` // phase after this turn
	ShouldEnd bool   `json:"should_end"`
	Reason    string `json:"reason"`

	NewIdentifiers []Identifier `json:"new_identifiers,omitempty"`

	// Session-level rollups after the turn.
	Confidence        float64  `json:"confidence"` // monotonic session confidence
	ScamType          string   `json:"scam_type,omitempty"`
	TurnCount         int      `json:"turn_count"`
	RedFlags          []string `json:"red_flags,omitempty"`
	EngagementSeconds int      `json:"engagement_seconds"`

	// Session is a deep-copied snapshot taken while the per-session lock
	// was still held. A concurrent turn for the same session mutates the
	// live maps and slices, so the boundary must read this copy, never the
	// stored session.
	Session *Session `json:"-"`
}

// Engine runs the engagement decision pipeline over an injected store.
type Engine struct {
	store     SessionStore
	scorer    *Scorer
	extractor *Extractor
	responder *Responder
}

// Option configures an Engine.
type Option func(*Engine)

// WithResponder swaps the reply source. A pluggable external responder
// (e.g. LLM-backed) can drop in here; the pool-based default is a complete
// implementation on its own.
func WithResponder(r *Responder) Option {
	return func(e *Engine) {
		e.responder = r
	}
}

// New builds an engine around the given session store.
func New(store SessionStore, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		scorer:    NewScorer(),
		extractor: NewExtractor(),
		responder: NewResponder(DefaultResponderConfig(), nil),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ProcessTurn runs the full pipeline for one inbound message. A blank
// sessionID starts a new session. Turns for the same session are serialized
// via the store's per-session lock.
func (e *Engine) ProcessTurn(sessionID, text string) (*TurnResult, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	unlock := e.store.Lock(sessionID)
	defer unlock()

	sess, err := e.store.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	if sess == nil {
		sess = NewSession(sessionID)
	}

	sess.TurnCount++
	sess.PhaseTurns++

	history := sess.Messages
	sess.AppendMessage(RoleScammer, text)

	// Scorer and extractor are independent reads of the same text.
	score := e.scorer.Score(text, history)
	current := e.extractor.Scan(text)

	var newIDs []Identifier
	for _, id := range current {
		if sess.AddIdentifier(id) {
			newIDs = append(newIDs, id)
		}
	}

	e.accumulate(sess, text, score)

	tr, err := NextPhase(sess.Phase, PhaseContext{
		TurnCount:           sess.TurnCount,
		PhaseTurns:          sess.PhaseTurns,
		HasFinancialContext: score.HasFinancialContext,
		HasDirectRequest:    score.HasDirectRequest,
		ExtractionProgress:  sess.ExtractionProgress(),
		ConsecutiveDelays:   sess.ConsecutiveStalls,
	})
	if err != nil {
		return nil, err
	}
	if tr.Next != sess.Phase {
		sess.Phase = tr.Next
		sess.PhaseTurns = 0
	}

	sel := e.responder.Select(text, sess.Phase, sess, current)

	if sel.Stalling {
		sess.ConsecutiveStalls++
	} else {
		sess.ConsecutiveStalls = 0
	}
	if sel.Fallback {
		sess.ConsecutiveFallbacks++
	} else {
		sess.ConsecutiveFallbacks = 0
	}

	sess.AppendMessage(RoleAgent, sel.Text)
	sess.RememberReply(sel.Text, e.responder.Memory())
	sess.LastActivityAt = time.Now()

	if tr.ShouldEnd {
		sess.Ended = true
		sess.EndReason = tr.Reason
	}

	if err := e.store.Save(sess); err != nil {
		return nil, fmt.Errorf("save session %s: %w", sessionID, err)
	}

	snap := sess.Snapshot()
	return &TurnResult{
		SessionID:         sessionID,
		Reply:             sel.Text,
		Score:             score,
		Phase:             snap.Phase,
		ShouldEnd:         tr.ShouldEnd,
		Reason:            tr.Reason,
		NewIdentifiers:    newIDs,
		Confidence:        snap.Confidence,
		ScamType:          snap.ScamType,
		TurnCount:         snap.TurnCount,
		RedFlags:          snap.RedFlags,
		EngagementSeconds: snap.EngagementSeconds(),
		Session:           snap,
	}, nil
}

// accumulate folds the turn's score into the session's monotonic rollups.
func (e *Engine) accumulate(sess *Session, text string, score ScoreResult) {
	// Once scam evidence appears it is never forgotten.
	if score.Confidence > sess.Confidence {
		sess.Confidence = score.Confidence
	}

	// First confident classification sticks.
	if sess.ScamType == "" && score.IsScam && score.ScamType != "unknown" {
		sess.ScamType = score.ScamType
	}

	if urgencyRank[score.UrgencyLevel] > urgencyRank[sess.UrgencyLevel] {
		sess.UrgencyLevel = score.UrgencyLevel
	}

	for _, flag := range MatchRedFlags(text) {
		sess.AddRedFlag(flag)
	}
}

// EndSession forces a session into ENDED (external termination) and returns
// a deep-copied final snapshot for archival. Returns nil, nil for an unknown
// session.
func (e *Engine) EndSession(sessionID, reason string) (*Session, error) {
	unlock := e.store.Lock(sessionID)
	defer unlock()

	sess, err := e.store.Get(sessionID)
	if err != nil || sess == nil {
		return nil, err
	}

	tr, err := NextPhase(sess.Phase, PhaseContext{ExternallyTerminated: true})
	if err != nil {
		return nil, err
	}

	sess.Phase = tr.Next
	sess.Ended = true
	if reason == "" {
		reason = tr.Reason
	}
	sess.EndReason = reason
	sess.LastActivityAt = time.Now()

	if err := e.store.Save(sess); err != nil {
		return nil, fmt.Errorf("save session %s: %w", sessionID, err)
	}
	return sess.Snapshot(), nil
}

// Stats exposes the underlying store's statistics.
func (e *Engine) Stats() StoreStats {
	return e.store.Stats()
}
