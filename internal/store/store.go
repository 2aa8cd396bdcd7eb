// Package store defines the persistence interface for requests.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/realflats/relay/internal/model"
)

// ErrNotFound is returned by mutations that reference an unknown request id.
// GetRequest follows the (nil, nil) convention for missing records instead.
var ErrNotFound = errors.New("store: request not found")

// ErrClosed is returned when a mutation would alter a closed request.
// Closed requests are retained for audit but never change again.
var ErrClosed = errors.New("store: request is closed")

// Store is the system of record for request lifecycle state. Implementations
// must be safe for concurrent use and must hand out copies: no caller mutates
// entity fields behind the store's back.
type Store interface {
	// CreateRequest persists a new request. The id must be unique.
	CreateRequest(ctx context.Context, req *model.Request) error

	// GetRequest returns the request with the given id, or (nil, nil) when
	// it does not exist.
	GetRequest(ctx context.Context, id string) (*model.Request, error)

	// ListRequests returns requests matching the filter, ordered by id
	// (which is also creation order).
	ListRequests(ctx context.Context, filter model.RequestFilter) ([]*model.Request, error)

	// UpdateRequest replaces the stored request with the same id. It fails
	// with ErrNotFound for unknown ids and ErrClosed when the stored record
	// is already closed: status is monotonic.
	UpdateRequest(ctx context.Context, req *model.Request) error

	// CloseRequest marks the request closed with the given reason and
	// returns the updated record. Closing an already-closed request is a
	// no-op that returns the stored record unchanged.
	CloseRequest(ctx context.Context, id, reason string, now time.Time) (*model.Request, error)

	// Lifecycle
	Close() error
}
