package engine

import (
	"strings"
	"testing"
)

func newTestEngine(t *testing.T) (*Engine, *InMemoryStore) {
	t.Helper()
	store := NewInMemoryStore()
	t.Cleanup(store.Close)
	return New(store), store
}

func TestProcessTurnAssignsSessionID(t *testing.T) {
	e, _ := newTestEngine(t)

	res, err := e.ProcessTurn("", "hello sir")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if res.SessionID == "" {
		t.Fatal("blank session ID must be replaced with a generated one")
	}
	if res.TurnCount != 1 {
		t.Errorf("first turn should count as 1, got %d", res.TurnCount)
	}
	if res.Phase != PhaseGreeting {
		t.Errorf("first turn should land in GREETING, got %s", res.Phase)
	}
}

func TestMonotonicConfidence(t *testing.T) {
	e, _ := newTestEngine(t)

	turns := []string{
		"share your otp immediately or account will be blocked",
		"hello, how is the weather today",
		"nice talking to you",
	}

	var prev float64
	for i, text := range turns {
		res, err := e.ProcessTurn("mono", text)
		if err != nil {
			t.Fatalf("turn %d failed: %v", i+1, err)
		}
		if res.Confidence < prev {
			t.Errorf("turn %d: confidence regressed %.2f -> %.2f", i+1, prev, res.Confidence)
		}
		prev = res.Confidence
	}

	if prev < 0.7 {
		t.Errorf("scam evidence from turn 1 should persist, final confidence %.2f", prev)
	}
}

func TestIdentifierUniquenessAcrossTurns(t *testing.T) {
	e, store := newTestEngine(t)

	first, err := e.ProcessTurn("dedup", "send the fee to scammer@ybl now")
	if err != nil {
		t.Fatal(err)
	}
	if len(first.NewIdentifiers) == 0 {
		t.Fatal("expected a new identifier on the first mention")
	}

	second, err := e.ProcessTurn("dedup", "I said send it to scammer@ybl")
	if err != nil {
		t.Fatal(err)
	}
	if len(second.NewIdentifiers) != 0 {
		t.Errorf("repeated identifier reported as new: %v", second.NewIdentifiers)
	}

	sess, err := store.Get("dedup")
	if err != nil || sess == nil {
		t.Fatalf("session lookup failed: %v", err)
	}
	if sess.IdentifierCount() != 1 {
		t.Errorf("want exactly 1 stored identifier, got %d", sess.IdentifierCount())
	}
}

// A full scripted conversation: the pipeline must walk forward through the
// phases, accumulate intelligence, and wind the session down on its own.
func TestConversationWalk(t *testing.T) {
	e, store := newTestEngine(t)

	script := []string{
		"hello sir good morning",
		"I am calling from your bank head office",
		"there is a problem with your account, verification is pending",
		"you must pay the kyc fee today or account will be blocked",
		"send rs 500 to verify@paytm immediately",
		"share the otp immediately or your account will be blocked",
		"hurry up, do it now",
		"my number is 98765 43210 call me",
		"transfer to account 123456789012 if upi fails",
		"click https://kyc-verify.example.in/form to finish",
	}

	var last *TurnResult
	for i, text := range script {
		res, err := e.ProcessTurn("walk", text)
		if err != nil {
			t.Fatalf("turn %d failed: %v", i+1, err)
		}
		if res.Reply == "" || !strings.HasSuffix(res.Reply, "?") {
			t.Fatalf("turn %d reply breaks the question invariant: %q", i+1, res.Reply)
		}
		last = res
		t.Logf("turn %2d phase=%-17s conf=%.2f new=%d reply=%q",
			i+1, res.Phase, res.Confidence, len(res.NewIdentifiers), res.Reply)
	}

	if last.Confidence < 0.7 {
		t.Errorf("scripted scam should be confidently detected, got %.2f", last.Confidence)
	}
	if last.ScamType == "" || last.ScamType == "unknown" {
		t.Errorf("scam type should have been classified, got %q", last.ScamType)
	}

	sess, err := store.Get("walk")
	if err != nil || sess == nil {
		t.Fatalf("session lookup failed: %v", err)
	}
	if sess.Phase == PhaseInitial || sess.Phase == PhaseGreeting {
		t.Errorf("ten turns in, conversation is still stuck at %s", sess.Phase)
	}
	if sess.ExtractionProgress() < 0.8 {
		t.Errorf("script carries upi, phone, account and url; progress %.2f", sess.ExtractionProgress())
	}
	if len(sess.RedFlags) == 0 {
		t.Error("expected accumulated red flags")
	}
	if sess.EngagementSeconds() < 300 {
		t.Errorf("twenty messages should floor engagement at 300s, got %d", sess.EngagementSeconds())
	}
}

func TestEndSession(t *testing.T) {
	e, store := newTestEngine(t)

	if _, err := e.ProcessTurn("bye", "hello"); err != nil {
		t.Fatal(err)
	}

	sess, err := e.EndSession("bye", "operator stop")
	if err != nil {
		t.Fatalf("end failed: %v", err)
	}
	if sess.Phase != PhaseEnded || !sess.Ended {
		t.Errorf("session should be ENDED, got phase=%s ended=%v", sess.Phase, sess.Ended)
	}
	if sess.EndReason != "operator stop" {
		t.Errorf("end reason not recorded: %q", sess.EndReason)
	}

	// The stored copy reflects the termination.
	stored, err := store.Get("bye")
	if err != nil || stored == nil {
		t.Fatalf("session lookup failed: %v", err)
	}
	if stored.Phase != PhaseEnded {
		t.Errorf("stored session not terminated: %s", stored.Phase)
	}
}

func TestEndSessionUnknownIsNoop(t *testing.T) {
	e, _ := newTestEngine(t)

	sess, err := e.EndSession("ghost", "whatever")
	if err != nil {
		t.Fatalf("unknown session must not error: %v", err)
	}
	if sess != nil {
		t.Fatalf("unknown session must return nil, got %+v", sess)
	}
}

func TestEndedSessionStaysEnded(t *testing.T) {
	e, _ := newTestEngine(t)

	if _, err := e.ProcessTurn("final", "hello"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.EndSession("final", "done"); err != nil {
		t.Fatal(err)
	}

	res, err := e.ProcessTurn("final", "are you still there")
	if err != nil {
		t.Fatalf("turn after termination failed: %v", err)
	}
	if res.Phase != PhaseEnded || !res.ShouldEnd {
		t.Errorf("ENDED must absorb further turns, got phase=%s shouldEnd=%v", res.Phase, res.ShouldEnd)
	}
}

func TestEngineStats(t *testing.T) {
	e, _ := newTestEngine(t)

	if _, err := e.ProcessTurn("s1", "hello"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.ProcessTurn("s2", "hello"); err != nil {
		t.Fatal(err)
	}

	stats := e.Stats()
	if stats.SessionCount != 2 {
		t.Errorf("want 2 sessions, got %d", stats.SessionCount)
	}
	if stats.TotalMessages != 4 {
		t.Errorf("each turn stores a message pair, want 4 got %d", stats.TotalMessages)
	}
}

func BenchmarkProcessTurn(b *testing.B) {
	store := NewInMemoryStore()
	defer store.Close()
	e := New(store)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.ProcessTurn("bench", "urgent: share your otp or account will be blocked")
	}
}

func TestTurnResultCarriesDetachedSnapshot(t *testing.T) {
	e, _ := newTestEngine(t)

	first, err := e.ProcessTurn("snap", "send the fee to scammer@ybl")
	if err != nil {
		t.Fatal(err)
	}
	if first.Session == nil {
		t.Fatal("turn result must carry a session snapshot")
	}
	ids := first.Session.IdentifierCount()
	msgs := len(first.Session.Messages)

	if _, err := e.ProcessTurn("snap", "or call 9876543210, account 123456789012"); err != nil {
		t.Fatal(err)
	}

	if first.Session.IdentifierCount() != ids {
		t.Errorf("later turn leaked into the snapshot: %d -> %d identifiers",
			ids, first.Session.IdentifierCount())
	}
	if len(first.Session.Messages) != msgs {
		t.Errorf("later turn appended to the snapshot: %d -> %d messages",
			msgs, len(first.Session.Messages))
	}
}

// Walking a result's identifier maps while another goroutine keeps
// processing turns for the same session must be safe: the result holds a
// deep copy, not the live session.
func TestSnapshotReadsSafeDuringConcurrentTurns(t *testing.T) {
	e, _ := newTestEngine(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_, _ = e.ProcessTurn("burst", "send the fee to scammer@ybl or call 9876543210")
		}
	}()

	for i := 0; i < 100; i++ {
		res, err := e.ProcessTurn("burst", "transfer to account 123456789012 immediately")
		if err != nil {
			t.Fatal(err)
		}
		total := 0
		for _, byValue := range res.Session.Identifiers {
			total += len(byValue)
		}
		if total == 0 {
			t.Fatal("snapshot lost the session's identifiers")
		}
	}
	<-done
}

func TestEndSessionReturnsDetachedSnapshot(t *testing.T) {
	e, _ := newTestEngine(t)

	if _, err := e.ProcessTurn("fin", "hello"); err != nil {
		t.Fatal(err)
	}
	final, err := e.EndSession("fin", "done")
	if err != nil {
		t.Fatal(err)
	}
	msgs := len(final.Messages)

	if _, err := e.ProcessTurn("fin", "are you there"); err != nil {
		t.Fatal(err)
	}
	if len(final.Messages) != msgs {
		t.Errorf("post-termination turn mutated the final snapshot: %d -> %d",
			msgs, len(final.Messages))
	}
}
