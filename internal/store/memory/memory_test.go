package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/realflats/relay/internal/model"
	"github.com/realflats/relay/internal/store"
)

func newRequest(id, author string) *model.Request {
	now := time.Now().UTC()
	return &model.Request{
		ID:                  id,
		AuthorID:            author,
		Status:              model.StatusActive,
		CreatedAt:           now,
		LastLivenessCheckAt: now,
		Attrs:               model.Attributes{{Key: "district", Value: "Vake"}},
	}
}

func TestCreateGet(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.CreateRequest(ctx, newRequest("R001", "u-1")); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	got, err := s.GetRequest(ctx, "R001")
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if got == nil || got.ID != "R001" || got.AuthorID != "u-1" {
		t.Fatalf("GetRequest returned %+v", got)
	}

	// Missing ids follow the (nil, nil) convention.
	missing, err := s.GetRequest(ctx, "R999")
	if err != nil || missing != nil {
		t.Fatalf("expected (nil, nil) for missing id, got (%+v, %v)", missing, err)
	}
}

func TestCreate_DuplicateID(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.CreateRequest(ctx, newRequest("R001", "u-1")); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if err := s.CreateRequest(ctx, newRequest("R001", "u-2")); err == nil {
		t.Fatal("expected duplicate id to fail")
	}
}

func TestGet_ReturnsClone(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.CreateRequest(ctx, newRequest("R001", "u-1")); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	first, _ := s.GetRequest(ctx, "R001")
	first.Attrs[0].Value = "mutated"
	first.Status = model.StatusClosed

	second, _ := s.GetRequest(ctx, "R001")
	if second.Attrs[0].Value != "Vake" || second.Status != model.StatusActive {
		t.Error("mutating a returned request leaked into the store")
	}
}

func TestList_FilterAndOrder(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, r := range []*model.Request{
		newRequest("R002", "u-1"),
		newRequest("R001", "u-1"),
		newRequest("R003", "u-2"),
	} {
		if err := s.CreateRequest(ctx, r); err != nil {
			t.Fatalf("CreateRequest(%s): %v", r.ID, err)
		}
	}
	if _, err := s.CloseRequest(ctx, "R002", "done", time.Now()); err != nil {
		t.Fatalf("CloseRequest: %v", err)
	}

	all, err := s.ListRequests(ctx, model.RequestFilter{})
	if err != nil {
		t.Fatalf("ListRequests: %v", err)
	}
	if len(all) != 3 || all[0].ID != "R001" || all[2].ID != "R003" {
		t.Fatalf("unexpected order: %+v", all)
	}

	active, err := s.ListRequests(ctx, model.RequestFilter{
		AuthorID: "u-1",
		Status:   []model.Status{model.StatusActive},
	})
	if err != nil {
		t.Fatalf("ListRequests: %v", err)
	}
	if len(active) != 1 || active[0].ID != "R001" {
		t.Fatalf("filter returned %+v", active)
	}

	limited, err := s.ListRequests(ctx, model.RequestFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("ListRequests: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "R002" {
		t.Fatalf("limit/offset returned %+v", limited)
	}
}

func TestClose_IdempotentAndMonotonic(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()

	if err := s.CreateRequest(ctx, newRequest("R001", "u-1")); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	closed, err := s.CloseRequest(ctx, "R001", "author closed", now)
	if err != nil {
		t.Fatalf("CloseRequest: %v", err)
	}
	if closed.Status != model.StatusClosed || closed.ClosedReason != "author closed" {
		t.Fatalf("close produced %+v", closed)
	}
	if closed.ClosedAt == nil || !closed.ClosedAt.Equal(now) {
		t.Fatalf("close timestamp = %v, want %v", closed.ClosedAt, now)
	}

	// Closing again is a no-op and keeps the original reason.
	again, err := s.CloseRequest(ctx, "R001", "other reason", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("second CloseRequest: %v", err)
	}
	if again.ClosedReason != "author closed" || !again.ClosedAt.Equal(now) {
		t.Fatalf("second close mutated the record: %+v", again)
	}

	// Once closed, updates are rejected: no resurrection.
	zombie := again.Clone()
	zombie.Status = model.StatusActive
	zombie.ClosedAt = nil
	zombie.ClosedReason = ""
	if err := s.UpdateRequest(ctx, zombie); !errors.Is(err, store.ErrClosed) {
		t.Fatalf("UpdateRequest on closed = %v, want ErrClosed", err)
	}

	if _, err := s.CloseRequest(ctx, "R404", "x", now); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("CloseRequest unknown = %v, want ErrNotFound", err)
	}
}

func TestUpdate(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.UpdateRequest(ctx, newRequest("R001", "u-1")); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("UpdateRequest unknown = %v, want ErrNotFound", err)
	}

	if err := s.CreateRequest(ctx, newRequest("R001", "u-1")); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	req, _ := s.GetRequest(ctx, "R001")
	req.AwaitingLiveness = true
	req.LastLivenessCheckAt = req.LastLivenessCheckAt.Add(time.Hour)
	if err := s.UpdateRequest(ctx, req); err != nil {
		t.Fatalf("UpdateRequest: %v", err)
	}

	got, _ := s.GetRequest(ctx, "R001")
	if !got.AwaitingLiveness {
		t.Error("update not persisted")
	}
}
