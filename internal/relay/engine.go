// Package relay is the core of the daemon: the request lifecycle operations,
// the inbound message router, and the periodic maintenance sweep. All shared
// mutable state (the request store, the session table, per-sender mode flags
// and pending deliveries) is mutated only under locks; the actual message
// sends happen outside every lock, from a snapshot of the routing decision.
package relay

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/realflats/relay/internal/events"
	"github.com/realflats/relay/internal/idgen"
	"github.com/realflats/relay/internal/model"
	"github.com/realflats/relay/internal/publish"
	"github.com/realflats/relay/internal/session"
	"github.com/realflats/relay/internal/store"
)

// SystemActor is the actor id used by the maintenance sweep for auto-closes.
// It is exempt from the author-only check on close.
const SystemActor = "system"

// endOfferKeyword ends offer-mode when an agent sends it as a message.
const endOfferKeyword = "done"

// Config holds the engine's tunables.
type Config struct {
	// BoardSurface is the public posting surface requests are published to.
	BoardSurface string

	// LivenessAge is how old a request must be before the first liveness
	// prompt. LivenessInterval spaces re-prompts, and doubles as the answer
	// timeout: an unanswered prompt older than the interval auto-closes the
	// request.
	LivenessAge      time.Duration
	LivenessInterval time.Duration

	// BroadcastOffers posts a confirmation to the board when an agent
	// submits an offer. Off by default: offers are silent.
	BroadcastOffers bool

	// Allowlist, when non-empty, restricts offer-mode to the listed agent
	// identities. Empty means open access.
	Allowlist []string
}

// DefaultLivenessAge and DefaultLivenessInterval apply when unset.
const (
	DefaultLivenessAge      = 48 * time.Hour
	DefaultLivenessInterval = 48 * time.Hour
)

// Engine wires the store, session table, deliverer and event bus into the
// operations the transport adapters call. Safe for concurrent use.
type Engine struct {
	store     store.Store
	sessions  *session.Table
	deliverer Deliverer
	events    events.Publisher
	links     publish.LinkBuilder
	seq       *idgen.Sequence
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time

	mu sync.Mutex
	// offers maps a sender in offer-mode to the request they may submit
	// against. At most one mode per sender; distinct from sessions.
	offers map[string]string
	// pending holds the latest undelivered message per sender awaiting a
	// disambiguation choice. Last write wins.
	pending map[string]string
	allow   map[string]struct{}
}

// NewEngine creates the engine. The session table's end callback is claimed
// by the engine to notify session endpoints on every removal.
func NewEngine(s store.Store, sessions *session.Table, d Deliverer, pub events.Publisher, links publish.LinkBuilder, seq *idgen.Sequence, cfg Config, logger *slog.Logger) *Engine {
	if pub == nil {
		pub = &events.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.LivenessAge <= 0 {
		cfg.LivenessAge = DefaultLivenessAge
	}
	if cfg.LivenessInterval <= 0 {
		cfg.LivenessInterval = DefaultLivenessInterval
	}

	e := &Engine{
		store:     s,
		sessions:  sessions,
		deliverer: d,
		events:    pub,
		links:     links,
		seq:       seq,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
		offers:    make(map[string]string),
		pending:   make(map[string]string),
	}
	if len(cfg.Allowlist) > 0 {
		e.allow = make(map[string]struct{}, len(cfg.Allowlist))
		for _, id := range cfg.Allowlist {
			e.allow[strings.TrimSpace(id)] = struct{}{}
		}
	}
	sessions.SetOnEnd(e.onSessionEnd)
	return e
}

// agentAllowed reports whether the identity may enter offer-mode.
func (e *Engine) agentAllowed(id string) bool {
	if e.allow == nil {
		return true
	}
	_, ok := e.allow[id]
	return ok
}

// deliver sends outside any engine lock and wraps failures as DeliveryError.
func (e *Engine) deliver(ctx context.Context, target publish.Target, msg publish.Message) (publish.Handle, error) {
	handle, err := e.deliverer.Deliver(ctx, target, msg)
	if err != nil {
		return "", &DeliveryError{Target: target, Err: err}
	}
	return handle, nil
}

// notify is a best-effort deliver: failures are logged and swallowed.
func (e *Engine) notify(ctx context.Context, target publish.Target, msg publish.Message) {
	if _, err := e.deliver(ctx, target, msg); err != nil {
		e.logger.Warn("notification failed", "target", target.String(), "err", err)
	}
}

// emit publishes a bus event best-effort.
func (e *Engine) emit(ctx context.Context, topic string, event any) {
	if err := e.events.Publish(ctx, topic, event); err != nil {
		e.logger.Warn("event publish failed", "topic", topic, "err", err)
	}
}

// onSessionEnd notifies both endpoints that their channel is gone. The table
// invokes it outside its lock, so the sends are safe here.
func (e *Engine) onSessionEnd(key model.SessionKey, reason session.EndReason) {
	ctx := context.Background()
	msg := publish.SessionEnded(key, reason)
	e.notify(ctx, publish.ToUser(key.AuthorID), msg)
	e.notify(ctx, publish.ToUser(key.AgentID), msg)
	e.emit(ctx, events.TopicSessionEnded, events.SessionEnded{Key: key, Reason: string(reason)})
}

// lookupActive fetches a request, mapping absence and closure to the engine's
// error taxonomy.
func (e *Engine) lookupActive(ctx context.Context, id string) (*model.Request, error) {
	req, err := e.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrNotFound
	}
	if !req.Active() {
		return nil, ErrRequestInactive
	}
	return req, nil
}
