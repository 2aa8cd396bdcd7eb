package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/realflats/relay/internal/ingress"
	"github.com/realflats/relay/internal/model"
	"github.com/realflats/relay/internal/relay"
)

// Deps carries everything the router needs.
type Deps struct {
	Engine  *relay.Engine
	Ingress *ingress.Handler
	Logger  *slog.Logger
}

type server struct {
	engine  *relay.Engine
	ingress *ingress.Handler
	logger  *slog.Logger
}

// NewRouter builds the HTTP handler.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := server{engine: d.Engine, ingress: d.Ingress, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/healthz"))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/requests", s.handleFinalize)
		r.Get("/requests", s.handleList)
		r.Get("/requests/{requestID}", s.handleGet)
		r.Post("/requests/{requestID}/close", s.handleClose)

		// Transport workers without bus access post inbound events here.
		r.Post("/inbound/message", s.handleInboundMessage)
		r.Post("/inbound/link", s.handleInboundLink)
	})

	return r
}

type finalizeRequest struct {
	AuthorID string           `json:"author_id"`
	Attrs    model.Attributes `json:"attrs"`
}

type finalizeResponse struct {
	Request requestDTO `json:"request"`
	// Warning is set when the request was created but could not be posted
	// to the board. Publication is never retried.
	Warning string `json:"warning,omitempty"`
}

func (s server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	var body finalizeRequest
	if !readJSON(w, r, &body) {
		return
	}
	if body.AuthorID == "" {
		writeError(w, http.StatusBadRequest, "author_id is required")
		return
	}

	req, err := s.engine.Finalize(r.Context(), body.AuthorID, body.Attrs)
	if err != nil {
		var perr *relay.PublicationError
		if errors.As(err, &perr) {
			writeJSON(w, http.StatusCreated, finalizeResponse{
				Request: toDTO(req),
				Warning: "request created but not published to the board",
			})
			return
		}
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, finalizeResponse{Request: toDTO(req)})
}

func (s server) handleList(w http.ResponseWriter, r *http.Request) {
	filter := model.RequestFilter{AuthorID: r.URL.Query().Get("author")}
	if status := r.URL.Query().Get("status"); status != "" {
		st := model.Status(status)
		if !st.IsValid() {
			writeError(w, http.StatusBadRequest, "unknown status")
			return
		}
		filter.Status = []model.Status{st}
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}

	reqs, err := s.engine.List(r.Context(), filter)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	dtos := make([]requestDTO, 0, len(reqs))
	for _, req := range reqs {
		dtos = append(dtos, toDTO(req))
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": dtos})
}

func (s server) handleGet(w http.ResponseWriter, r *http.Request) {
	req, err := s.engine.Get(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDTO(req))
}

type closeRequest struct {
	ActorID string `json:"actor_id"`
	Reason  string `json:"reason,omitempty"`
}

func (s server) handleClose(w http.ResponseWriter, r *http.Request) {
	var body closeRequest
	if !readJSON(w, r, &body) {
		return
	}
	if body.ActorID == "" {
		writeError(w, http.StatusBadRequest, "actor_id is required")
		return
	}

	req, err := s.engine.Close(r.Context(), chi.URLParam(r, "requestID"), body.ActorID, body.Reason)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDTO(req))
}

func (s server) handleInboundMessage(w http.ResponseWriter, r *http.Request) {
	var event ingress.InboundMessage
	if !readJSON(w, r, &event) {
		return
	}
	if event.SenderID == "" {
		writeError(w, http.StatusBadRequest, "sender_id is required")
		return
	}
	// Routing outcomes (no destination, inactive request, ...) are reported
	// to the acting party by the ingress handler, not to this caller.
	s.ingress.HandleMessage(r.Context(), event)
	w.WriteHeader(http.StatusAccepted)
}

func (s server) handleInboundLink(w http.ResponseWriter, r *http.Request) {
	var event ingress.LinkOpen
	if !readJSON(w, r, &event) {
		return
	}
	if event.OpenerID == "" {
		writeError(w, http.StatusBadRequest, "opener_id is required")
		return
	}
	s.ingress.HandleLinkOpen(r.Context(), event)
	w.WriteHeader(http.StatusAccepted)
}
