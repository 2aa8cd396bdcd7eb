// Package httpapi is the HTTP boundary for the engine's external
// collaborators: the questionnaire wizard finalizes requests here, transport
// workers without bus access post inbound events, and operators query state.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/realflats/relay/internal/model"
	"github.com/realflats/relay/internal/relay"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

// writeEngineError maps the engine's error taxonomy onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, relay.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, relay.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, relay.ErrRequestInactive):
		writeError(w, http.StatusConflict, "request is not active")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// requestDTO is the wire form of a request.
type requestDTO struct {
	ID           string                   `json:"id"`
	AuthorID     string                   `json:"author_id"`
	Attrs        model.Attributes         `json:"attrs,omitempty"`
	Status       string                   `json:"status"`
	CreatedAt    string                   `json:"created_at"`
	Publication  *model.PublicationHandle `json:"publication,omitempty"`
	ClosedAt     string                   `json:"closed_at,omitempty"`
	ClosedReason string                   `json:"closed_reason,omitempty"`
}

func toDTO(req *model.Request) requestDTO {
	dto := requestDTO{
		ID:           req.ID,
		AuthorID:     req.AuthorID,
		Attrs:        req.Attrs,
		Status:       req.Status.String(),
		CreatedAt:    req.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		Publication:  req.Publication,
		ClosedReason: req.ClosedReason,
	}
	if req.ClosedAt != nil {
		dto.ClosedAt = req.ClosedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return dto
}
