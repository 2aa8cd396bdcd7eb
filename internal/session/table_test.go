package session

import (
	"testing"
	"time"

	"github.com/realflats/relay/internal/model"
)

// fixedClock pins the table's clock to a mutable instant so tests advance
// time instead of sleeping.
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) now() time.Time          { return c.t }
func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTable(ttl time.Duration) (*Table, *fixedClock) {
	clk := &fixedClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	tbl := NewTable(ttl)
	tbl.now = clk.now
	return tbl, clk
}

func TestTouch_CreatesAndRefreshes(t *testing.T) {
	tbl, clk := newTestTable(time.Hour)

	key := tbl.Touch("author-1", "agent-1", "R001")
	exp, ok := tbl.ExpiresAt(key)
	if !ok {
		t.Fatal("session missing after touch")
	}
	if want := clk.t.Add(time.Hour); !exp.Equal(want) {
		t.Fatalf("expiry = %v, want %v", exp, want)
	}

	// A second touch is idempotent on identity and refreshes the TTL.
	clk.advance(30 * time.Minute)
	again := tbl.Touch("author-1", "agent-1", "R001")
	if again != key {
		t.Fatalf("touch returned different key: %+v vs %+v", again, key)
	}
	if tbl.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", tbl.Len())
	}
	exp, _ = tbl.ExpiresAt(key)
	if want := clk.t.Add(time.Hour); !exp.Equal(want) {
		t.Fatalf("refreshed expiry = %v, want %v", exp, want)
	}
}

func TestSweep_RemovesExpired(t *testing.T) {
	tbl, clk := newTestTable(time.Hour)

	var ended []model.SessionKey
	var reasons []EndReason
	tbl.SetOnEnd(func(key model.SessionKey, reason EndReason) {
		ended = append(ended, key)
		reasons = append(reasons, reason)
	})

	key := tbl.Touch("author-1", "agent-1", "R001")
	tbl.Touch("author-2", "agent-2", "R002")

	// Only the first session ages past its TTL.
	clk.advance(30 * time.Minute)
	tbl.Touch("author-2", "agent-2", "R002")
	clk.advance(31 * time.Minute)

	removed := tbl.Sweep(clk.t)
	if len(removed) != 1 || removed[0] != key {
		t.Fatalf("sweep removed %+v", removed)
	}
	if tbl.Len() != 1 {
		t.Fatalf("expected 1 surviving session, got %d", tbl.Len())
	}
	if len(ended) != 1 || ended[0] != key || reasons[0] != EndReasonExpired {
		t.Fatalf("onEnd got %+v / %+v", ended, reasons)
	}

	// expires_at == now counts as expired.
	key2 := model.SessionKey{RequestID: "R002", AuthorID: "author-2", AgentID: "agent-2"}
	exp, _ := tbl.ExpiresAt(key2)
	removed = tbl.Sweep(exp)
	if len(removed) != 1 || removed[0] != key2 {
		t.Fatalf("boundary sweep removed %+v", removed)
	}
}

func TestCurrentSelection(t *testing.T) {
	tbl, clk := newTestTable(time.Hour)

	key := tbl.Touch("author-1", "agent-1", "R001")

	if _, ok := tbl.Current("agent-1"); ok {
		t.Fatal("no selection should exist yet")
	}
	if tbl.SetCurrent("stranger", key) {
		t.Fatal("stranger must not select a session they are not part of")
	}
	if !tbl.SetCurrent("agent-1", key) {
		t.Fatal("SetCurrent failed for endpoint")
	}
	if cur, ok := tbl.Current("agent-1"); !ok || cur != key {
		t.Fatalf("Current = %+v, %v", cur, ok)
	}

	// Expired sessions drop out of Current lazily.
	clk.advance(2 * time.Hour)
	if _, ok := tbl.Current("agent-1"); ok {
		t.Fatal("expired session still selected")
	}
}

func TestCandidates_OrderAndExpiry(t *testing.T) {
	tbl, clk := newTestTable(time.Hour)

	tbl.Touch("author-1", "agent-9", "R001")
	clk.advance(10 * time.Minute)
	tbl.Touch("author-2", "agent-9", "R002")
	clk.advance(10 * time.Minute)
	tbl.Touch("author-3", "agent-9", "R003")

	cands := tbl.Candidates("agent-9")
	if len(cands) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(cands))
	}
	// Newest expiry first.
	if cands[0].RequestID != "R003" || cands[2].RequestID != "R001" {
		t.Fatalf("unexpected order: %+v", cands)
	}

	// Unrelated users see nothing.
	if got := tbl.Candidates("author-9"); len(got) != 0 {
		t.Fatalf("expected no candidates, got %+v", got)
	}

	// Expired sessions are excluded even before the sweep runs.
	clk.advance(41 * time.Minute) // R001 is now past its TTL
	cands = tbl.Candidates("agent-9")
	if len(cands) != 2 {
		t.Fatalf("expected 2 live candidates, got %+v", cands)
	}
}

func TestEnd_ClearsSelections(t *testing.T) {
	tbl, _ := newTestTable(time.Hour)

	var ended []model.SessionKey
	tbl.SetOnEnd(func(key model.SessionKey, _ EndReason) { ended = append(ended, key) })

	key := tbl.Touch("author-1", "agent-1", "R001")
	tbl.SetCurrent("author-1", key)
	tbl.SetCurrent("agent-1", key)

	if !tbl.End(key, EndReasonLeft) {
		t.Fatal("End returned false for live session")
	}
	if tbl.End(key, EndReasonLeft) {
		t.Fatal("End returned true for missing session")
	}
	if len(ended) != 1 {
		t.Fatalf("onEnd fired %d times", len(ended))
	}
	if _, ok := tbl.Current("author-1"); ok {
		t.Error("author selection not cleared")
	}
	if _, ok := tbl.Current("agent-1"); ok {
		t.Error("agent selection not cleared")
	}
}

func TestEndForRequest(t *testing.T) {
	tbl, _ := newTestTable(time.Hour)

	var reasons []EndReason
	tbl.SetOnEnd(func(_ model.SessionKey, reason EndReason) { reasons = append(reasons, reason) })

	tbl.Touch("author-1", "agent-1", "R001")
	tbl.Touch("author-1", "agent-2", "R001")
	survivor := tbl.Touch("author-1", "agent-1", "R002")

	removed := tbl.EndForRequest("R001", EndReasonRequestClosed)
	if len(removed) != 2 {
		t.Fatalf("removed %d sessions, want 2", len(removed))
	}
	for _, r := range reasons {
		if r != EndReasonRequestClosed {
			t.Errorf("reason = %q", r)
		}
	}
	if _, ok := tbl.ExpiresAt(survivor); !ok {
		t.Error("session for other request was removed")
	}
}
