package monitor

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/finchhealth/denialwatch/pkg/handlers"
	"github.com/finchhealth/denialwatch/pkg/routes"
)

// Handler provides HTTP endpoints for cycle operations.
type Handler struct {
	sys    System
	logger *slog.Logger
}

func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "cycles"),
	}
}

// Routes returns the route group definition for cycle endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/cycles",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Run},
			{Method: "GET", Pattern: "/{id}", Handler: h.Status},
		},
	}
}

// Run starts a monitoring cycle and returns its initial snapshot; workers
// continue in the background and Status reports their progress.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	cycle, err := h.sys.Run(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusAccepted, cycle)
}

// Status returns per-payer health and stage failure counts for a cycle.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
		return
	}

	cycle, err := h.sys.Status(id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, cycle)
}
