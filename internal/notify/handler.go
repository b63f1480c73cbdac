package notify

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/finchhealth/denialwatch/pkg/handlers"
	"github.com/finchhealth/denialwatch/pkg/routes"
)

// Handler provides HTTP endpoints for notification operations.
type Handler struct {
	sys    System
	logger *slog.Logger
}

func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "notifications"),
	}
}

// Routes returns the route group definition for notification endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/notifications",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.ForAnalysis},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
		},
	}
}

// ForAnalysis lists the notifications dispatched for the analysis_id query
// parameter, one per configured channel.
func (h *Handler) ForAnalysis(w http.ResponseWriter, r *http.Request) {
	analysisID, err := uuid.Parse(r.URL.Query().Get("analysis_id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
		return
	}

	ns, err := h.sys.ForAnalysis(r.Context(), analysisID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, ns)
}

// Find returns a single notification by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
		return
	}

	n, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, n)
}
