package outbox

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/realflats/relay/internal/publish"
)

// newMockDB creates a sqlmock database with automatic cleanup and
// expectation checking.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

func TestDeliver_ToUser(t *testing.T) {
	db, mock := newMockDB(t)
	ob := NewWithDB(db)

	mock.ExpectExec("INSERT INTO outbox_events").
		WithArgs(
			sqlmock.AnyArg(), // token
			kindDeliver,
			sql.NullString{String: "u-1", Valid: true},
			sql.NullString{},
			"hello",
			nil,
			nil,
			sqlmock.AnyArg(), // created_at
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	handle, err := ob.Deliver(context.Background(), publish.ToUser("u-1"), publish.Message{Text: "hello"})
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(handle) < 4 || handle[:3] != "ob_" {
		t.Errorf("handle = %q, want ob_ token", handle)
	}
}

func TestDeliver_SurfaceWithControls(t *testing.T) {
	db, mock := newMockDB(t)
	ob := NewWithDB(db)

	mock.ExpectExec("INSERT INTO outbox_events").
		WithArgs(
			sqlmock.AnyArg(),
			kindDeliver,
			sql.NullString{},
			sql.NullString{String: "board-1", Valid: true},
			"REQUEST #R001",
			[]byte(`[{"label":"Send an option","url":"https://t.me/bot?start=x"}]`),
			nil,
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	msg := publish.Message{
		Text: "REQUEST #R001",
		Controls: []publish.Control{
			{Label: "Send an option", URL: "https://t.me/bot?start=x"},
		},
	}
	if _, err := ob.Deliver(context.Background(), publish.ToSurface("board-1"), msg); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
}

func TestDeliver_InsertFailure(t *testing.T) {
	db, mock := newMockDB(t)
	ob := NewWithDB(db)

	mock.ExpectExec("INSERT INTO outbox_events").
		WillReturnError(errors.New("connection reset"))

	_, err := ob.Deliver(context.Background(), publish.ToUser("u-1"), publish.Message{Text: "hello"})
	if err == nil {
		t.Fatal("expected error from failed insert")
	}
}

func TestRetract_ReferencesHandle(t *testing.T) {
	db, mock := newMockDB(t)
	ob := NewWithDB(db)

	mock.ExpectExec("INSERT INTO outbox_events").
		WithArgs(
			sqlmock.AnyArg(),
			kindRetract,
			sql.NullString{},
			sql.NullString{String: "board-1", Valid: true},
			"",
			nil,
			"ob_abc123",
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := ob.Retract(context.Background(), publish.ToSurface("board-1"), publish.Handle("ob_abc123"))
	if err != nil {
		t.Fatalf("Retract: %v", err)
	}
}
