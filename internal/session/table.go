// Package session tracks live relay channels between request authors and
// agents.
//
// The Table maintains an in-memory map of TTL-bounded sessions plus each
// user's "current" selection, the session their next message routes through.
// A session exists only while its expiry is in the future; existence implies
// both endpoints may exchange messages for that request without re-proving
// capability. The maintenance scheduler calls Sweep on a fixed interval.
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/realflats/relay/internal/model"
)

// EndReason explains why a session was removed.
type EndReason string

const (
	EndReasonExpired       EndReason = "expired"
	EndReasonRequestClosed EndReason = "request_closed"
	EndReasonLeft          EndReason = "left"
)

// DefaultTTL is the inactivity timeout applied when none is configured.
const DefaultTTL = time.Hour

// Table is the session table. Safe for concurrent use.
type Table struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[model.SessionKey]time.Time // key -> expires_at
	current  map[string]model.SessionKey    // user id -> selected session

	// onEnd, when set, is called for every removed session.
	// Called outside the lock -- safe to make blocking calls.
	onEnd func(key model.SessionKey, reason EndReason)
}

// NewTable creates a session table with the given inactivity TTL.
func NewTable(ttl time.Duration) *Table {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Table{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[model.SessionKey]time.Time),
		current:  make(map[string]model.SessionKey),
	}
}

// SetOnEnd registers the callback invoked for every session removal.
func (t *Table) SetOnEnd(fn func(key model.SessionKey, reason EndReason)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onEnd = fn
}

// Touch creates the session if absent, otherwise refreshes its expiry to
// now + TTL. Idempotent; returns the session key either way.
func (t *Table) Touch(authorID, agentID, requestID string) model.SessionKey {
	key := model.SessionKey{RequestID: requestID, AuthorID: authorID, AgentID: agentID}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[key] = t.now().Add(t.ttl)
	return key
}

// ExpiresAt returns the session's expiry time, or false when the session
// does not exist (expired entries not yet swept count as absent).
func (t *Table) ExpiresAt(key model.SessionKey) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	exp, ok := t.sessions[key]
	if !ok || !exp.After(t.now()) {
		return time.Time{}, false
	}
	return exp, true
}

// Current returns the user's explicitly selected session, if it is still
// alive. A stale selection is cleared lazily.
func (t *Table) Current(userID string) (model.SessionKey, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key, ok := t.current[userID]
	if !ok {
		return model.SessionKey{}, false
	}
	exp, ok := t.sessions[key]
	if !ok || !exp.After(t.now()) {
		delete(t.current, userID)
		return model.SessionKey{}, false
	}
	return key, true
}

// SetCurrent records the user's session selection. The session must exist,
// be unexpired, and involve the user.
func (t *Table) SetCurrent(userID string, key model.SessionKey) bool {
	if !key.Involves(userID) {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	exp, ok := t.sessions[key]
	if !ok || !exp.After(t.now()) {
		return false
	}
	t.current[userID] = key
	return true
}

// ClearCurrent drops the user's selection, if any.
func (t *Table) ClearCurrent(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.current, userID)
}

// Candidates returns every unexpired session involving the user, newest
// expiry first (ties broken by request id for stable prompts).
func (t *Table) Candidates(userID string) []model.SessionKey {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	type cand struct {
		key model.SessionKey
		exp time.Time
	}
	var cands []cand
	for key, exp := range t.sessions {
		if !exp.After(now) || !key.Involves(userID) {
			continue
		}
		cands = append(cands, cand{key, exp})
	}

	sort.Slice(cands, func(i, j int) bool {
		if !cands[i].exp.Equal(cands[j].exp) {
			return cands[i].exp.After(cands[j].exp)
		}
		return cands[i].key.RequestID < cands[j].key.RequestID
	})

	keys := make([]model.SessionKey, len(cands))
	for i, c := range cands {
		keys[i] = c.key
	}
	return keys
}

// End removes the session and clears either endpoint's selection if it
// referenced it. Returns false when the session did not exist.
func (t *Table) End(key model.SessionKey, reason EndReason) bool {
	t.mu.Lock()
	_, ok := t.sessions[key]
	if ok {
		t.removeLocked(key)
	}
	onEnd := t.onEnd
	t.mu.Unlock()

	if ok && onEnd != nil {
		onEnd(key, reason)
	}
	return ok
}

// EndForRequest removes every session scoped to the request. Used when a
// request closes.
func (t *Table) EndForRequest(requestID string, reason EndReason) []model.SessionKey {
	t.mu.Lock()
	var removed []model.SessionKey
	for key := range t.sessions {
		if key.RequestID == requestID {
			removed = append(removed, key)
		}
	}
	for _, key := range removed {
		t.removeLocked(key)
	}
	onEnd := t.onEnd
	t.mu.Unlock()

	if onEnd != nil {
		for _, key := range removed {
			onEnd(key, reason)
		}
	}
	return removed
}

// Sweep removes every session whose expiry is at or before now. Each removal
// triggers the onEnd callback with EndReasonExpired.
func (t *Table) Sweep(now time.Time) []model.SessionKey {
	t.mu.Lock()
	var removed []model.SessionKey
	for key, exp := range t.sessions {
		if !exp.After(now) {
			removed = append(removed, key)
		}
	}
	for _, key := range removed {
		t.removeLocked(key)
	}
	onEnd := t.onEnd
	t.mu.Unlock()

	if onEnd != nil {
		for _, key := range removed {
			onEnd(key, EndReasonExpired)
		}
	}
	return removed
}

// Len returns the number of sessions, including expired ones not yet swept.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// removeLocked deletes the session and any selections pointing at it.
// Caller holds t.mu.
func (t *Table) removeLocked(key model.SessionKey) {
	delete(t.sessions, key)
	for _, user := range []string{key.AuthorID, key.AgentID} {
		if cur, ok := t.current[user]; ok && cur == key {
			delete(t.current, user)
		}
	}
}
