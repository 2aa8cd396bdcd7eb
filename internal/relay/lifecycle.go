package relay

import (
	"context"
	"errors"
	"time"

	"github.com/realflats/relay/internal/events"
	"github.com/realflats/relay/internal/model"
	"github.com/realflats/relay/internal/publish"
	"github.com/realflats/relay/internal/session"
	"github.com/realflats/relay/internal/store"
)

// closeReasonDeclined is used when the author answers "no" to a liveness
// prompt; closeReasonTimeout when the prompt goes unanswered past the
// interval.
const (
	closeReasonDeclined = "author declined continued interest"
	closeReasonTimeout  = "liveness prompt timed out"
)

// Finalize is the questionnaire boundary: it allocates an id, stores the
// request as active, and publishes it to the board exactly once. A failed
// publication leaves the request active and unpublished; the author is
// warned and the PublicationError is returned alongside the created request.
// Publication is never retried automatically.
func (e *Engine) Finalize(ctx context.Context, authorID string, attrs model.Attributes) (*model.Request, error) {
	now := e.now().UTC()
	req := &model.Request{
		ID:                  e.seq.Next(),
		AuthorID:            authorID,
		Attrs:               attrs,
		Status:              model.StatusActive,
		CreatedAt:           now,
		LastLivenessCheckAt: now,
	}
	if err := e.store.CreateRequest(ctx, req); err != nil {
		return nil, err
	}
	e.emit(ctx, events.TopicRequestCreated, events.RequestCreated{Request: req})

	msg, err := publish.Post(req, e.links)
	if err != nil {
		return req, &PublicationError{RequestID: req.ID, Err: err}
	}
	handle, err := e.deliver(ctx, publish.ToSurface(e.cfg.BoardSurface), msg)
	if err != nil {
		e.notify(ctx, publish.ToUser(authorID), publish.PublicationFailed(req.ID))
		return req, &PublicationError{RequestID: req.ID, Err: err}
	}

	req.Publication = &model.PublicationHandle{
		Surface:   e.cfg.BoardSurface,
		MessageID: string(handle),
	}
	if err := e.store.UpdateRequest(ctx, req); err != nil {
		// A concurrent close beat us; the post is already out, keep going.
		e.logger.Warn("recording publication handle failed", "request", req.ID, "err", err)
	}
	e.emit(ctx, events.TopicRequestPublished, events.RequestPublished{RequestID: req.ID, Handle: req.Publication})
	return req, nil
}

// Get returns a request by id, or ErrNotFound.
func (e *Engine) Get(ctx context.Context, requestID string) (*model.Request, error) {
	req, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrNotFound
	}
	return req, nil
}

// List returns requests matching the filter, oldest first.
func (e *Engine) List(ctx context.Context, filter model.RequestFilter) ([]*model.Request, error) {
	return e.store.ListRequests(ctx, filter)
}

// Close transitions a request to closed. Only the author may close their own
// request; the maintenance sweep closes as SystemActor. Closing an
// already-closed request is a no-op. On success the board post is retracted
// best-effort, every session scoped to the request is destroyed, and the
// author is notified.
func (e *Engine) Close(ctx context.Context, requestID, actorID, reason string) (*model.Request, error) {
	req, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrNotFound
	}
	if actorID != SystemActor && actorID != req.AuthorID {
		return nil, ErrForbidden
	}
	if !req.Active() {
		return req, nil
	}

	// CloseRequest is idempotent, so racing the maintenance sweep is safe:
	// whichever close lands second gets the already-closed record back.
	closed, err := e.store.CloseRequest(ctx, requestID, reason, e.now().UTC())
	if err != nil {
		return nil, err
	}

	// Tear down every channel scoped to this request. The table's end
	// callback notifies both endpoints. Offer-modes targeting the request
	// stay set: the agent's next submission is rejected with
	// ErrRequestInactive, and that rejection clears the mode.
	e.sessions.EndForRequest(requestID, session.EndReasonRequestClosed)

	if closed.Publication != nil {
		target := publish.ToSurface(closed.Publication.Surface)
		handle := publish.Handle(closed.Publication.MessageID)
		if err := e.deliverer.Retract(ctx, target, handle); err != nil {
			e.logger.Warn("retracting board post failed", "request", requestID, "err", err)
		}
	}

	e.notify(ctx, publish.ToUser(closed.AuthorID), publish.Closed(closed))
	e.emit(ctx, events.TopicRequestClosed, events.RequestClosed{Request: closed, Reason: reason, Actor: actorID})
	return closed, nil
}

// AnswerLiveness records the author's yes/no answer to a liveness prompt.
// With an empty requestID the answer routes to the author's newest awaiting
// request. "Yes" restarts the liveness interval; "no" closes the request.
func (e *Engine) AnswerLiveness(ctx context.Context, authorID, requestID string, keep bool) (*model.Request, error) {
	var req *model.Request
	if requestID != "" {
		found, err := e.store.GetRequest(ctx, requestID)
		if err != nil {
			return nil, err
		}
		if found == nil {
			return nil, ErrNotFound
		}
		if found.AuthorID != authorID {
			return nil, ErrForbidden
		}
		req = found
	} else {
		found, err := e.newestAwaiting(ctx, authorID)
		if err != nil {
			return nil, err
		}
		req = found
	}

	if !keep {
		closed, err := e.Close(ctx, req.ID, authorID, closeReasonDeclined)
		if err != nil {
			return nil, err
		}
		e.emit(ctx, events.TopicLivenessAnswered, events.LivenessAnswered{RequestID: req.ID, Keep: false})
		return closed, nil
	}

	if !req.Active() {
		return nil, ErrRequestInactive
	}
	req.AwaitingLiveness = false
	req.LastLivenessCheckAt = e.now().UTC()
	if err := e.store.UpdateRequest(ctx, req); err != nil {
		return nil, err
	}
	e.emit(ctx, events.TopicLivenessAnswered, events.LivenessAnswered{RequestID: req.ID, Keep: true})
	e.notify(ctx, publish.ToUser(authorID), publish.LivenessExtended(req.ID))
	return req, nil
}

// newestAwaiting returns the author's newest active request with an open
// liveness prompt. Ids are monotonic, so the list's last match is newest.
func (e *Engine) newestAwaiting(ctx context.Context, authorID string) (*model.Request, error) {
	reqs, err := e.store.ListRequests(ctx, model.RequestFilter{
		AuthorID: authorID,
		Status:   []model.Status{model.StatusActive},
	})
	if err != nil {
		return nil, err
	}
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].AwaitingLiveness {
			return reqs[i], nil
		}
	}
	return nil, ErrNotFound
}

// RunMaintenance performs one sweep: expired sessions are removed, then
// every active request gets the liveness check. A failure on one request is
// logged and does not abort the sweep for the others. Safe to race with a
// concurrent close: whichever completes second observes closed and no-ops.
func (e *Engine) RunMaintenance(ctx context.Context, now time.Time) {
	swept := e.sessions.Sweep(now)
	if len(swept) > 0 {
		e.logger.Info("session sweep", "expired", len(swept))
	}

	reqs, err := e.store.ListRequests(ctx, model.RequestFilter{Status: []model.Status{model.StatusActive}})
	if err != nil {
		e.logger.Error("maintenance list failed", "err", err)
		return
	}
	for _, req := range reqs {
		if err := e.livenessCheck(ctx, req, now); err != nil {
			e.logger.Warn("liveness check failed", "request", req.ID, "err", err)
		}
	}
}

// livenessCheck advances one request through the liveness protocol: prompt
// when aged and due, auto-close when a prompt timed out. A prompt that could
// not be delivered resets the awaiting flag so the request is never stuck
// waiting for an answer that cannot arrive.
func (e *Engine) livenessCheck(ctx context.Context, req *model.Request, now time.Time) error {
	if req.AwaitingLiveness {
		if now.Sub(req.LastLivenessCheckAt) >= e.cfg.LivenessInterval {
			_, err := e.Close(ctx, req.ID, SystemActor, closeReasonTimeout)
			return err
		}
		return nil
	}

	if now.Sub(req.CreatedAt) < e.cfg.LivenessAge {
		return nil
	}
	if now.Sub(req.LastLivenessCheckAt) < e.cfg.LivenessInterval {
		return nil
	}

	req.AwaitingLiveness = true
	req.LastLivenessCheckAt = now.UTC()
	if err := e.store.UpdateRequest(ctx, req); err != nil {
		if errors.Is(err, store.ErrClosed) {
			return nil
		}
		return err
	}

	if _, err := e.deliver(ctx, publish.ToUser(req.AuthorID), publish.LivenessPrompt(req)); err != nil {
		// Keep last_liveness_check_at so an unreachable author is not
		// re-prompted every tick; just stop waiting for an answer.
		req.AwaitingLiveness = false
		if uerr := e.store.UpdateRequest(ctx, req); uerr != nil && !errors.Is(uerr, store.ErrClosed) {
			e.logger.Warn("resetting liveness flag failed", "request", req.ID, "err", uerr)
		}
		return err
	}
	e.emit(ctx, events.TopicLivenessPrompted, events.LivenessPrompted{RequestID: req.ID, AuthorID: req.AuthorID})
	return nil
}
