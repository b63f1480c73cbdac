package tracker

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/finchhealth/denialwatch/pkg/handlers"
	"github.com/finchhealth/denialwatch/pkg/routes"
)

// Handler provides HTTP endpoints for acknowledgments and the resubmission
// queue.
type Handler struct {
	sys    System
	logger *slog.Logger
}

func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "tracker"),
	}
}

// Routes returns the route group definitions for tracker endpoints. The
// handler spans two resource prefixes, acknowledgments and resubmissions.
func (h *Handler) Routes() []routes.Group {
	return []routes.Group{
		{
			Prefix: "/acknowledgments",
			Routes: []routes.Route{
				{Method: "POST", Pattern: "", Handler: h.Acknowledge},
			},
		},
		{
			Prefix: "/resubmissions",
			Routes: []routes.Route{
				{Method: "GET", Pattern: "", Handler: h.Queue},
				{Method: "GET", Pattern: "/{record_id}", Handler: h.ForRecord},
				{Method: "POST", Pattern: "/{record_id}/corrected", Handler: h.Correct},
				{Method: "POST", Pattern: "/{record_id}/ready", Handler: h.Ready},
				{Method: "POST", Pattern: "/{record_id}/close", Handler: h.Close},
				{Method: "POST", Pattern: "/escalate", Handler: h.Escalate},
			},
		},
	}
}

// Acknowledge records a branch response to a notification. Duplicate
// submissions return the stored acknowledgment with 200 instead of 201.
func (h *Handler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	var cmd AcknowledgeCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
		return
	}

	ack, err := h.sys.Acknowledge(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, ack)
}

// Queue lists a branch's open resubmission items.
func (h *Handler) Queue(w http.ResponseWriter, r *http.Request) {
	branchID := r.URL.Query().Get("branch_id")

	items, err := h.sys.Queue(r.Context(), branchID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, items)
}

// ForRecord returns the workflow item tracking a record.
func (h *Handler) ForRecord(w http.ResponseWriter, r *http.Request) {
	h.respondItem(w, r, h.sys.ForRecord)
}

// Correct marks a record's claim as fixed by the branch.
func (h *Handler) Correct(w http.ResponseWriter, r *http.Request) {
	h.respondItem(w, r, h.sys.Correct)
}

// Ready advances a corrected record to resubmitted.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	h.respondItem(w, r, h.sys.Ready)
}

// Close finishes a resubmitted record.
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	h.respondItem(w, r, h.sys.Close)
}

// Escalate flags unacknowledged items past their SLA deadline.
func (h *Handler) Escalate(w http.ResponseWriter, r *http.Request) {
	n, err := h.sys.EscalateOverdue(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, map[string]int{"escalated": n})
}

func (h *Handler) respondItem(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, recordID uuid.UUID) (*Item, error),
) {
	recordID, err := uuid.Parse(r.PathValue("record_id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
		return
	}

	item, err := op(r.Context(), recordID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, item)
}
