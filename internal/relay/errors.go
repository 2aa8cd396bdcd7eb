package relay

import (
	"errors"
	"fmt"

	"github.com/realflats/relay/internal/publish"
)

// Engine error taxonomy. Everything here is recovered at the boundary that
// produced it and translated into a user-visible message; nothing crashes
// the router or the scheduler.
var (
	// ErrNotFound means an unknown request or session was referenced.
	ErrNotFound = errors.New("relay: not found")

	// ErrForbidden means the actor lacks the capability for the operation,
	// e.g. a non-author attempting close.
	ErrForbidden = errors.New("relay: forbidden")

	// ErrRequestInactive means the operation targeted a closed request.
	ErrRequestInactive = errors.New("relay: request is not active")

	// ErrNoDestination means the router found no valid route for an inbound
	// message. No state is mutated.
	ErrNoDestination = errors.New("relay: no destination for message")
)

// DeliveryError reports a failed outbound delivery. Deliveries are
// best-effort and at-most-once: the error is surfaced once to the sender and
// never retried, and session state touched before the send is not rolled
// back.
type DeliveryError struct {
	Target publish.Target
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("relay: delivery to %s failed: %v", e.Target, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// PublicationError reports a failed board posting. The request stays active
// and unpublished; publication is at-most-once, so callers warn the author
// instead of retrying.
type PublicationError struct {
	RequestID string
	Err       error
}

func (e *PublicationError) Error() string {
	return fmt.Sprintf("relay: publishing %s failed: %v", e.RequestID, e.Err)
}

func (e *PublicationError) Unwrap() error { return e.Err }
