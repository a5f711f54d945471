package store

import (
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/jaalnet/jaal/pkg/engine"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	s, err := NewRedisStore(mr.Addr(), "", 0, 30*time.Minute)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	t.Cleanup(s.Close)
	return s, mr
}

func TestRedisRoundTrip(t *testing.T) {
	s, _ := newTestRedisStore(t)

	sess := engine.NewSession("r1")
	sess.TurnCount = 4
	sess.Confidence = 0.82
	sess.ScamType = "otp_fraud"
	sess.AppendMessage(engine.RoleScammer, "share the otp")
	sess.AddIdentifier(engine.Identifier{Type: "upi", Value: "scammer@ybl", Confidence: 0.95})

	if err := s.Save(sess); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := s.Get("r1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got == nil {
		t.Fatal("session not found after save")
	}
	if got.TurnCount != 4 || got.Confidence != 0.82 || got.ScamType != "otp_fraud" {
		t.Errorf("round trip lost state: %+v", got)
	}
	if !got.HasIdentifier("upi", "scammer@ybl") {
		t.Error("identifiers lost in round trip")
	}
	if len(got.Messages) != 1 {
		t.Errorf("messages lost in round trip: %d", len(got.Messages))
	}
}

func TestRedisMissIsNotAnError(t *testing.T) {
	s, _ := newTestRedisStore(t)

	got, err := s.Get("nope")
	if err != nil {
		t.Fatalf("miss must not error: %v", err)
	}
	if got != nil {
		t.Fatalf("miss must return nil session, got %+v", got)
	}
}

func TestRedisSaveValidation(t *testing.T) {
	s, _ := newTestRedisStore(t)

	if err := s.Save(nil); err == nil {
		t.Error("nil session must be rejected")
	}
	if err := s.Save(&engine.Session{}); err == nil {
		t.Error("empty session ID must be rejected")
	}
}

func TestRedisTTLExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(mr.Addr(), "", 0, time.Minute)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer s.Close()

	if err := s.Save(engine.NewSession("stale")); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	got, err := s.Get("stale")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != nil {
		t.Error("session should expire server-side")
	}
}

func TestRedisTTLRefreshOnSave(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(mr.Addr(), "", 0, time.Minute)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer s.Close()

	sess := engine.NewSession("alive")
	if err := s.Save(sess); err != nil {
		t.Fatal(err)
	}

	// Keep saving within the window; the key must survive past the
	// original deadline.
	mr.FastForward(40 * time.Second)
	if err := s.Save(sess); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(40 * time.Second)

	got, err := s.Get("alive")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Error("save should refresh the TTL")
	}
}

func TestRedisDelete(t *testing.T) {
	s, _ := newTestRedisStore(t)

	if err := s.Save(engine.NewSession("gone")); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("gone"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	got, err := s.Get("gone")
	if err != nil || got != nil {
		t.Errorf("deleted session should read as a miss, got %+v err=%v", got, err)
	}
}

func TestRedisStats(t *testing.T) {
	s, _ := newTestRedisStore(t)

	a := engine.NewSession("a")
	a.TurnCount = 2
	a.AppendMessage(engine.RoleScammer, "hi")
	b := engine.NewSession("b")
	b.TurnCount = 3
	b.AppendMessage(engine.RoleScammer, "hello")
	b.AppendMessage(engine.RoleAgent, "Hello, who is this?")

	if err := s.Save(a); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(b); err != nil {
		t.Fatal(err)
	}

	stats := s.Stats()
	if stats.SessionCount != 2 {
		t.Errorf("want 2 sessions, got %d", stats.SessionCount)
	}
	if stats.TotalTurns != 5 {
		t.Errorf("want 5 turns, got %d", stats.TotalTurns)
	}
	if stats.TotalMessages != 3 {
		t.Errorf("want 3 messages, got %d", stats.TotalMessages)
	}
}

func TestRedisLockSerializes(t *testing.T) {
	s, _ := newTestRedisStore(t)

	var (
		active  int
		maxSeen int
		mu      sync.Mutex
		wg      sync.WaitGroup
	)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := s.Lock("same")
			defer unlock()

			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Errorf("same-session critical sections overlapped: max concurrency %d", maxSeen)
	}
}

// The engine runs unchanged on the Redis backend.
func TestEngineOnRedisStore(t *testing.T) {
	s, _ := newTestRedisStore(t)
	e := engine.New(s)

	res, err := e.ProcessTurn("red", "share your otp now or account will be blocked")
	if err != nil {
		t.Fatalf("turn failed: %v", err)
	}
	if res.Confidence < 0.7 {
		t.Errorf("expected confident detection, got %.2f", res.Confidence)
	}

	again, err := e.ProcessTurn("red", "hello are you there")
	if err != nil {
		t.Fatalf("second turn failed: %v", err)
	}
	if again.TurnCount != 2 {
		t.Errorf("state not persisted across turns: turn=%d", again.TurnCount)
	}
	if again.Confidence < res.Confidence {
		t.Errorf("confidence regressed across the store: %.2f -> %.2f", res.Confidence, again.Confidence)
	}
}
