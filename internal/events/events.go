package events

import (
	"context"

	"github.com/realflats/relay/internal/model"
)

// Event topic constants.
const (
	TopicRequestCreated   = "relay.request.created"
	TopicRequestPublished = "relay.request.published"
	TopicRequestClosed    = "relay.request.closed"

	TopicSessionStarted = "relay.session.started"
	TopicSessionEnded   = "relay.session.ended"

	TopicOfferSubmitted = "relay.offer.submitted"

	TopicLivenessPrompted = "relay.liveness.prompted"
	TopicLivenessAnswered = "relay.liveness.answered"

	// Inbound topics: published by transport adapters, consumed by the
	// ingress subscriber.
	TopicInboundMessage  = "relay.inbound.message"
	TopicInboundLinkOpen = "relay.inbound.link"
)

// Event types

type RequestCreated struct {
	Request *model.Request `json:"request"`
}

type RequestPublished struct {
	RequestID string                   `json:"request_id"`
	Handle    *model.PublicationHandle `json:"handle"`
}

type RequestClosed struct {
	Request *model.Request `json:"request"`
	Reason  string         `json:"reason,omitempty"`
	Actor   string         `json:"actor,omitempty"`
}

type SessionStarted struct {
	Key model.SessionKey `json:"key"`
}

type SessionEnded struct {
	Key    model.SessionKey `json:"key"`
	Reason string           `json:"reason"`
}

type OfferSubmitted struct {
	RequestID string `json:"request_id"`
	AgentID   string `json:"agent_id"`
}

type LivenessPrompted struct {
	RequestID string `json:"request_id"`
	AuthorID  string `json:"author_id"`
}

type LivenessAnswered struct {
	RequestID string `json:"request_id"`
	Keep      bool   `json:"keep"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
