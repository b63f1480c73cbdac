package analyzer

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/finchhealth/denialwatch/pkg/handlers"
	"github.com/finchhealth/denialwatch/pkg/routes"
)

// Handler provides HTTP endpoints for analysis operations.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// GenerateRequest is the JSON body for the generate endpoint.
type GenerateRequest struct {
	BranchID    string    `json:"branch_id"`
	PayerID     string    `json:"payer_id"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
}

func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "analyses"),
	}
}

// Routes returns the route group definition for analysis endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/analyses",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.Latest},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "POST", Pattern: "", Handler: h.Generate},
		},
	}
}

// Latest returns the highest analysis version for the scope given by
// branch_id, payer_id, window_start, and window_end query parameters.
func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	branchID, payerID, start, end, err := scopeFromQuery(r.URL.Query())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
		return
	}

	a, err := h.sys.Latest(r.Context(), branchID, payerID, start, end)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, a)
}

// Find returns a single analysis version by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
		return
	}

	a, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, a)
}

// Generate computes and persists a fresh analysis version for the requested
// scope. Repeated requests over the same scope produce new versions rather
// than overwriting earlier ones.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
		return
	}

	a, err := h.sys.Generate(r.Context(), req.BranchID, req.PayerID, req.WindowStart, req.WindowEnd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, a)
}

func scopeFromQuery(values url.Values) (branchID, payerID string, start, end time.Time, err error) {
	branchID = values.Get("branch_id")
	payerID = values.Get("payer_id")

	start, err = time.Parse(time.RFC3339, values.Get("window_start"))
	if err != nil {
		return "", "", time.Time{}, time.Time{}, err
	}
	end, err = time.Parse(time.RFC3339, values.Get("window_end"))
	if err != nil {
		return "", "", time.Time{}, time.Time{}, err
	}

	return branchID, payerID, start, end, nil
}
