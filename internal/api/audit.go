package api

import (
	"log/slog"
	"net/http"

	"github.com/finchhealth/denialwatch/internal/audit"
	"github.com/finchhealth/denialwatch/pkg/handlers"
	"github.com/finchhealth/denialwatch/pkg/routes"
)

// auditHandler exposes read-only access to the audit ledger for compliance
// review. Writes only happen through domain operations.
type auditHandler struct {
	sys    audit.System
	logger *slog.Logger
}

func newAuditHandler(sys audit.System, logger *slog.Logger) *auditHandler {
	return &auditHandler{
		sys:    sys,
		logger: logger.With("handler", "audit"),
	}
}

func (h *auditHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/audit",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{entity_type}/{entity_id}", Handler: h.forEntity},
		},
	}
}

func (h *auditHandler) forEntity(w http.ResponseWriter, r *http.Request) {
	entityType := r.PathValue("entity_type")
	entityID := r.PathValue("entity_id")

	entries, err := h.sys.ForEntity(r.Context(), entityType, entityID)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, entries)
}
