// Package ingress consumes inbound transport events from the bus and feeds
// them to the relay engine. Transport workers publish raw message and
// link-open events; everything here is translation and error reporting, the
// routing itself lives in the engine.
package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/realflats/relay/internal/deeplink"
	"github.com/realflats/relay/internal/events"
	"github.com/realflats/relay/internal/model"
	"github.com/realflats/relay/internal/publish"
	"github.com/realflats/relay/internal/relay"
)

// Chat kinds on inbound messages. Only private messages are routed; the
// public board is write-only for the engine.
const (
	ChatPrivate = "private"
	ChatPublic  = "public"
)

// InboundMessage is the payload of relay.inbound.message. Action carries an
// echoed control token (e.g. "pick|R001|u-1|a-1") instead of text when the
// user tapped a control.
type InboundMessage struct {
	SenderID string `json:"sender_id"`
	ChatKind string `json:"chat_kind,omitempty"`
	Text     string `json:"text,omitempty"`
	Action   string `json:"action,omitempty"`
}

// LinkOpen is the payload of relay.inbound.link.
type LinkOpen struct {
	OpenerID string `json:"opener_id"`
	Payload  string `json:"payload"`
}

// Handler dispatches inbound events to the engine and reports engine errors
// back to the acting party as plain messages. Nothing here is fatal.
type Handler struct {
	engine    *relay.Engine
	deliverer relay.Deliverer
	logger    *slog.Logger
}

// NewHandler creates an ingress handler.
func NewHandler(engine *relay.Engine, deliverer relay.Deliverer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{engine: engine, deliverer: deliverer, logger: logger}
}

// HandleMessage routes one inbound message event.
func (h *Handler) HandleMessage(ctx context.Context, event InboundMessage) {
	if event.SenderID == "" {
		return
	}
	if event.ChatKind == ChatPublic {
		// Board chatter is not relay traffic.
		return
	}
	if event.Action != "" {
		h.handleAction(ctx, event.SenderID, event.Action)
		return
	}

	err := h.engine.HandleMessage(ctx, event.SenderID, event.Text)
	h.report(ctx, event.SenderID, err)
}

// HandleLinkOpen routes one deep-link open event.
func (h *Handler) HandleLinkOpen(ctx context.Context, event LinkOpen) {
	if event.OpenerID == "" {
		return
	}
	err := h.engine.OpenLink(ctx, event.OpenerID, event.Payload)
	h.report(ctx, event.OpenerID, err)
}

// handleAction dispatches an echoed control token.
func (h *Handler) handleAction(ctx context.Context, senderID, action string) {
	parts := strings.Split(action, publish.ActionSep)
	var err error
	switch {
	case len(parts) == 2 && parts[0] == publish.ActionClose:
		_, err = h.engine.Close(ctx, parts[1], senderID, "author closed")
	case len(parts) == 4 && parts[0] == publish.ActionPickSession:
		key := model.SessionKey{RequestID: parts[1], AuthorID: parts[2], AgentID: parts[3]}
		err = h.engine.SelectSession(ctx, senderID, key)
	case len(parts) == 2 && parts[0] == publish.ActionLivenessKeep:
		_, err = h.engine.AnswerLiveness(ctx, senderID, parts[1], true)
	case len(parts) == 2 && parts[0] == publish.ActionLivenessDrop:
		_, err = h.engine.AnswerLiveness(ctx, senderID, parts[1], false)
	default:
		h.logger.Warn("ingress: unknown action token", "action", action)
		return
	}
	h.report(ctx, senderID, err)
}

// report translates an engine error into a user-visible notice. Engine
// errors are expected outcomes, not failures: they are logged at Info and
// never escalate.
func (h *Handler) report(ctx context.Context, userID string, err error) {
	if err == nil {
		return
	}

	var text string
	var derr *relay.DeliveryError
	switch {
	case errors.Is(err, deeplink.ErrParse):
		text = "That link is expired or invalid."
	case errors.Is(err, relay.ErrNoDestination):
		text = "There is nowhere to send that right now. Open a request link first."
	case errors.Is(err, relay.ErrRequestInactive):
		text = "That request is no longer active."
	case errors.Is(err, relay.ErrForbidden):
		text = "You can't do that."
	case errors.Is(err, relay.ErrNotFound):
		text = "That request or chat no longer exists."
	case errors.As(err, &derr):
		text = "Your message could not be delivered. It will not be retried."
	default:
		h.logger.Error("ingress: unexpected engine error", "user", userID, "err", err)
		return
	}

	h.logger.Info("ingress: rejected", "user", userID, "err", err)
	if _, derr := h.deliverer.Deliver(ctx, publish.ToUser(userID), publish.Message{Text: text}); derr != nil {
		h.logger.Warn("ingress: error notice undeliverable", "user", userID, "err", derr)
	}
}

// StartSubscriber consumes relay.inbound.> from the bus and dispatches each
// event. It blocks until ctx is cancelled.
func (h *Handler) StartSubscriber(ctx context.Context, sub events.Subscriber) error {
	ch, cancel, err := sub.Subscribe("relay.inbound.>")
	if err != nil {
		return fmt.Errorf("ingress: subscribe: %w", err)
	}
	defer cancel()

	h.logger.Info("ingress: subscriber started")

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("ingress: subscriber stopping")
			return nil
		case raw, ok := <-ch:
			if !ok {
				h.logger.Info("ingress: subscription channel closed")
				return nil
			}
			h.dispatch(ctx, raw)
		}
	}
}

// dispatch sniffs the payload shape: link opens carry an opener_id, messages
// a sender_id.
func (h *Handler) dispatch(ctx context.Context, raw []byte) {
	var probe struct {
		SenderID string `json:"sender_id"`
		OpenerID string `json:"opener_id"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		h.logger.Warn("ingress: bad event payload", "err", err)
		return
	}

	switch {
	case probe.OpenerID != "":
		var event LinkOpen
		if err := json.Unmarshal(raw, &event); err != nil {
			h.logger.Warn("ingress: bad link payload", "err", err)
			return
		}
		h.HandleLinkOpen(ctx, event)
	case probe.SenderID != "":
		var event InboundMessage
		if err := json.Unmarshal(raw, &event); err != nil {
			h.logger.Warn("ingress: bad message payload", "err", err)
			return
		}
		h.HandleMessage(ctx, event)
	default:
		h.logger.Warn("ingress: event without sender or opener")
	}
}
