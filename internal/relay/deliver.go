package relay

import (
	"context"
	"log/slog"

	"github.com/realflats/relay/internal/publish"
)

// Deliverer is the injected transport capability: it sends a message to a
// user or posting surface and can retract a previous posting. The engine
// never talks to a chat platform directly.
type Deliverer interface {
	// Deliver sends msg to target and returns a handle referencing the
	// delivered message on its surface.
	Deliver(ctx context.Context, target publish.Target, msg publish.Message) (publish.Handle, error)

	// Retract removes a previously delivered message. Best-effort; callers
	// swallow the error after logging it.
	Retract(ctx context.Context, target publish.Target, handle publish.Handle) error
}

// LogDeliverer writes every outbound message to the log instead of a
// transport. Used when no outbox database is configured, and in development.
type LogDeliverer struct {
	Logger *slog.Logger
}

func (d *LogDeliverer) Deliver(_ context.Context, target publish.Target, msg publish.Message) (publish.Handle, error) {
	d.Logger.Info("deliver", "target", target.String(), "text", msg.Text, "controls", len(msg.Controls))
	return "logged", nil
}

func (d *LogDeliverer) Retract(_ context.Context, target publish.Target, handle publish.Handle) error {
	d.Logger.Info("retract", "target", target.String(), "handle", string(handle))
	return nil
}
