// Package outbox implements the delivery capability as a PostgreSQL outbox:
// every outbound message becomes a row that a transport worker drains and
// sends on the chat platform. Retractions are rows too, referencing the
// handle of the row they undo.
package outbox

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/realflats/relay/internal/idgen"
	"github.com/realflats/relay/internal/publish"
	"github.com/realflats/relay/internal/relay"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Row kinds.
const (
	kindDeliver = "deliver"
	kindRetract = "retract"
)

// Outbox implements relay.Deliverer backed by an outbox_events table.
type Outbox struct {
	db *sql.DB
}

// Compile-time check that Outbox implements relay.Deliverer.
var _ relay.Deliverer = (*Outbox)(nil)

// New opens the database, configures the pool, and runs pending migrations.
func New(databaseURL string) (*Outbox, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Outbox{db: db}, nil
}

// NewWithDB wraps an existing connection without running migrations.
// Used by tests.
func NewWithDB(db *sql.DB) *Outbox {
	return &Outbox{db: db}
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (o *Outbox) Close() error {
	return o.db.Close()
}

const insertEvent = `
INSERT INTO outbox_events (token, kind, target_user, target_surface, body, controls, ref_token, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// Deliver enqueues one outbound message. The returned handle is the row's
// token; the transport worker records the platform message id against it
// after the send.
func (o *Outbox) Deliver(ctx context.Context, target publish.Target, msg publish.Message) (publish.Handle, error) {
	token, err := idgen.Token("ob_")
	if err != nil {
		return "", err
	}

	var controls []byte
	if len(msg.Controls) > 0 {
		controls, err = json.Marshal(msg.Controls)
		if err != nil {
			return "", fmt.Errorf("outbox: encode controls: %w", err)
		}
	}

	_, err = o.db.ExecContext(ctx, insertEvent,
		token, kindDeliver,
		nullString(target.UserID), nullString(target.Surface),
		msg.Text, nullBytes(controls), nil, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("outbox: enqueue: %w", err)
	}
	return publish.Handle(token), nil
}

// Retract enqueues a retraction referencing a previously delivered handle.
func (o *Outbox) Retract(ctx context.Context, target publish.Target, handle publish.Handle) error {
	token, err := idgen.Token("ob_")
	if err != nil {
		return err
	}

	_, err = o.db.ExecContext(ctx, insertEvent,
		token, kindRetract,
		nullString(target.UserID), nullString(target.Surface),
		"", nil, string(handle), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("outbox: enqueue retract: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
