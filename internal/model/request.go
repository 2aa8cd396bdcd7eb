package model

import (
	"time"
)

// Status represents the lifecycle state of a request.
// The transition is one-way: active -> closed. There is no resurrection.
type Status string

const (
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid checks whether the status is a known value.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusClosed:
		return true
	}
	return false
}

// Attribute is one named field of a housing-search request. The engine treats
// the set as an opaque bag supplied by the questionnaire; order is preserved
// so the publication formatter renders fields the way the wizard asked them.
type Attribute struct {
	Key   string `json:"key"`
	Label string `json:"label,omitempty"`
	Value string `json:"value"`
}

// Attributes is the ordered attribute set of a request.
type Attributes []Attribute

// Get returns the value for key, or "" when the key is absent.
func (a Attributes) Get(key string) string {
	for _, attr := range a {
		if attr.Key == key {
			return attr.Value
		}
	}
	return ""
}

// PublicationHandle references the post produced when a request was published
// to the public board. It is what close uses to retract the post.
type PublicationHandle struct {
	Surface   string `json:"surface"`
	MessageID string `json:"message_id"`
}

// Request is one housing-search ask: attributes, owner, and lifecycle status.
type Request struct {
	ID       string     `json:"id"`
	AuthorID string     `json:"author_id"`
	Attrs    Attributes `json:"attrs,omitempty"`
	Status   Status     `json:"status"`

	CreatedAt           time.Time `json:"created_at"`
	LastLivenessCheckAt time.Time `json:"last_liveness_check_at"`
	AwaitingLiveness    bool      `json:"awaiting_liveness,omitempty"`

	Publication *PublicationHandle `json:"publication,omitempty"`

	ClosedAt     *time.Time `json:"closed_at,omitempty"`
	ClosedReason string     `json:"closed_reason,omitempty"`
}

// Active reports whether the request still accepts relay traffic.
func (r *Request) Active() bool {
	return r.Status == StatusActive
}

// Clone returns a deep copy of the request. Stores hand out clones so no
// caller mutates entity fields behind the store's lock.
func (r *Request) Clone() *Request {
	c := *r
	if r.Attrs != nil {
		c.Attrs = make(Attributes, len(r.Attrs))
		copy(c.Attrs, r.Attrs)
	}
	if r.Publication != nil {
		p := *r.Publication
		c.Publication = &p
	}
	if r.ClosedAt != nil {
		t := *r.ClosedAt
		c.ClosedAt = &t
	}
	return &c
}
