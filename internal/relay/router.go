package relay

import (
	"context"
	"fmt"
	"strings"

	"github.com/realflats/relay/internal/deeplink"
	"github.com/realflats/relay/internal/events"
	"github.com/realflats/relay/internal/model"
	"github.com/realflats/relay/internal/publish"
)

// OpenLink handles a deep-link open event: it decodes the payload and acts on
// the recovered grant. Malformed payloads surface deeplink.ErrParse, which
// the boundary translates to "link expired or invalid".
func (e *Engine) OpenLink(ctx context.Context, openerID, payload string) error {
	grant, err := deeplink.Decode(payload)
	if err != nil {
		return err
	}

	switch grant.Mode {
	case model.ModeOffer:
		return e.openOffer(ctx, openerID, grant.RequestID)
	case model.ModeReply:
		return e.openReply(ctx, openerID, grant)
	case model.ModeView:
		return e.openView(ctx, openerID, grant.RequestID)
	}
	return fmt.Errorf("%w: unhandled grant mode %q", deeplink.ErrParse, grant.Mode)
}

// openOffer puts the opener into offer-mode for the request. The grant only
// recovered intent; active-status and allowlist checks happen here.
func (e *Engine) openOffer(ctx context.Context, openerID, requestID string) error {
	req, err := e.lookupActive(ctx, requestID)
	if err != nil {
		return err
	}
	if !e.agentAllowed(openerID) {
		return ErrForbidden
	}
	if openerID == req.AuthorID {
		// Authors don't offer against their own request.
		return ErrForbidden
	}

	e.mu.Lock()
	e.offers[openerID] = requestID
	e.mu.Unlock()

	e.notify(ctx, publish.ToUser(openerID), publish.OfferPrompt(requestID))
	return nil
}

// openReply establishes a session between the opener and the counterpart
// named in the grant, and selects it as the opener's current session.
func (e *Engine) openReply(ctx context.Context, openerID string, grant model.Grant) error {
	req, err := e.lookupActive(ctx, grant.RequestID)
	if err != nil {
		return err
	}

	// The session is always keyed author-side/agent-side; figure out which
	// side the opener is on.
	var agentID string
	switch {
	case openerID == req.AuthorID:
		agentID = grant.CounterpartID
	case grant.CounterpartID == req.AuthorID:
		agentID = openerID
	default:
		return ErrForbidden
	}
	if agentID == req.AuthorID {
		return ErrForbidden
	}

	key := e.sessions.Touch(req.AuthorID, agentID, req.ID)
	e.sessions.SetCurrent(openerID, key)

	e.emit(ctx, events.TopicSessionStarted, events.SessionStarted{Key: key})
	e.notify(ctx, publish.ToUser(openerID), publish.ReplyOpened(req.ID))
	return nil
}

// openView delivers a read-only rendering of the request. No state mutates.
func (e *Engine) openView(ctx context.Context, openerID, requestID string) error {
	req, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req == nil {
		return ErrNotFound
	}
	msg, err := publish.Post(req, e.links)
	if err != nil {
		return err
	}
	// A view never grants capabilities; strip the board controls.
	msg.Controls = nil
	_, err = e.deliver(ctx, publish.ToUser(openerID), msg)
	return err
}

// HandleMessage routes one inbound message from sender. The decision
// procedure, in order: current session, single-candidate auto-select,
// offer-mode, disambiguation, no destination.
func (e *Engine) HandleMessage(ctx context.Context, senderID, text string) error {
	// The end keyword from an offer-mode sender always means "finish the
	// offer", even once a session exists that would otherwise relay it as
	// literal text.
	if _, ok := e.OfferModeFor(senderID); ok && strings.EqualFold(strings.TrimSpace(text), endOfferKeyword) {
		e.EndOffer(ctx, senderID)
		return nil
	}

	// Step 1: an unexpired current selection is the common path.
	if key, ok := e.sessions.Current(senderID); ok {
		e.dropPending(senderID)
		return e.relayVia(ctx, key, senderID, text)
	}

	// Step 2: exactly one candidate -- ambiguity is impossible, adopt it.
	candidates := e.sessions.Candidates(senderID)
	if len(candidates) == 1 {
		key := candidates[0]
		e.sessions.SetCurrent(senderID, key)
		e.dropPending(senderID)
		return e.relayVia(ctx, key, senderID, text)
	}

	// Step 3: agent offer-mode.
	e.mu.Lock()
	requestID, inOfferMode := e.offers[senderID]
	e.mu.Unlock()
	if inOfferMode {
		e.dropPending(senderID)
		return e.submitOffer(ctx, senderID, requestID, text)
	}

	// Step 4: several candidates and no selection -- hold the message and
	// ask. A newer message supersedes the held one; only the last is ever
	// delivered.
	if len(candidates) >= 2 {
		e.mu.Lock()
		e.pending[senderID] = text
		e.mu.Unlock()
		e.notify(ctx, publish.ToUser(senderID), publish.Disambiguation(senderID, candidates))
		return nil
	}

	// Step 5: nowhere to send. No state mutated.
	return ErrNoDestination
}

// relayVia refreshes the session and delivers the message to the sender's
// counterpart. The send happens after the touch, outside all locks; a
// failure is surfaced once and nothing is rolled back.
func (e *Engine) relayVia(ctx context.Context, key model.SessionKey, senderID, text string) error {
	e.sessions.Touch(key.AuthorID, key.AgentID, key.RequestID)

	counterpart, ok := key.Counterpart(senderID)
	if !ok {
		return ErrForbidden
	}
	msg := publish.Relayed(key, key.RoleOf(senderID), text)
	_, err := e.deliver(ctx, publish.ToUser(counterpart), msg)
	return err
}

// submitOffer handles an offer-mode message: verifies the request is still
// active, creates the session, and delivers the content to the author with a
// reply capability.
func (e *Engine) submitOffer(ctx context.Context, agentID, requestID, text string) error {
	req, err := e.lookupActive(ctx, requestID)
	if err != nil {
		// A dead target makes the mode useless; drop it so the agent is
		// not stuck resubmitting into a closed request.
		e.mu.Lock()
		delete(e.offers, agentID)
		e.mu.Unlock()
		return err
	}

	key := e.sessions.Touch(req.AuthorID, agentID, req.ID)
	e.emit(ctx, events.TopicSessionStarted, events.SessionStarted{Key: key})
	e.emit(ctx, events.TopicOfferSubmitted, events.OfferSubmitted{RequestID: req.ID, AgentID: agentID})

	msg, err := publish.OfferReceived(key, text, e.links)
	if err != nil {
		return err
	}
	if _, err := e.deliver(ctx, publish.ToUser(req.AuthorID), msg); err != nil {
		// Session state stays touched: at-most-once, no rollback.
		return err
	}

	if e.cfg.BroadcastOffers {
		e.notify(ctx, publish.ToSurface(e.cfg.BoardSurface), publish.OfferBroadcast(req.ID))
	}
	return nil
}

// SelectSession resolves a disambiguation prompt: it records the sender's
// choice and, if a message is held for them, delivers it through the chosen
// session and clears the hold.
func (e *Engine) SelectSession(ctx context.Context, senderID string, key model.SessionKey) error {
	if !e.sessions.SetCurrent(senderID, key) {
		return ErrNotFound
	}

	e.mu.Lock()
	text, held := e.pending[senderID]
	delete(e.pending, senderID)
	e.mu.Unlock()

	if !held {
		return nil
	}
	return e.relayVia(ctx, key, senderID, text)
}

// dropPending discards the sender's held message, if any. Any message that
// routes supersedes the hold; only the newest text may ever be delivered.
func (e *Engine) dropPending(senderID string) {
	e.mu.Lock()
	delete(e.pending, senderID)
	e.mu.Unlock()
}

// EndOffer clears the sender's offer-mode, if set.
func (e *Engine) EndOffer(ctx context.Context, senderID string) bool {
	e.mu.Lock()
	_, ok := e.offers[senderID]
	delete(e.offers, senderID)
	e.mu.Unlock()

	if ok {
		e.notify(ctx, publish.ToUser(senderID), publish.OfferModeEnded())
	}
	return ok
}

// OfferModeFor reports the request the sender may submit offers against.
func (e *Engine) OfferModeFor(senderID string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, ok := e.offers[senderID]
	return id, ok
}
