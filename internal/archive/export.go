// Package archive periodically exports the request board as JSONL to one or
// more destinations (S3 or compatible) for audit. Closed requests are
// retained in the store, so the export is a complete history.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/realflats/relay/internal/model"
	"github.com/realflats/relay/internal/store"
)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version      string    `json:"version"`
	Type         string    `json:"type"`
	Timestamp    time.Time `json:"timestamp"`
	RequestCount int       `json:"request_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ExportJSONL writes every request from the store as JSONL to w, ordered by
// id (creation order).
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer) error {
	reqs, err := s.ListRequests(ctx, model.RequestFilter{})
	if err != nil {
		return fmt.Errorf("list requests: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:      "1",
		Type:         "header",
		Timestamp:    time.Now().UTC(),
		RequestCount: len(reqs),
	}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, req := range reqs {
		if err := enc.Encode(record{Type: "request", Data: req}); err != nil {
			return fmt.Errorf("write request %s: %w", req.ID, err)
		}
	}
	return nil
}
