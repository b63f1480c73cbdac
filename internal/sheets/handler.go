package sheets

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/finchhealth/denialwatch/pkg/formatting"
	"github.com/finchhealth/denialwatch/pkg/handlers"
	"github.com/finchhealth/denialwatch/pkg/pagination"
	"github.com/finchhealth/denialwatch/pkg/routes"
)

// Ingestor runs the full ingestion pipeline for manually uploaded sheets:
// registration, audit, and normalization. Implemented by the monitor service;
// the upload endpoint bypasses portal polling but not the pipeline.
type Ingestor interface {
	Ingest(ctx context.Context, cmd CreateCommand) (*Sheet, error)
}

// Handler provides HTTP endpoints for sheet operations.
type Handler struct {
	sys           System
	ingestor      Ingestor
	logger        *slog.Logger
	pagination    pagination.Config
	maxUploadSize int64
}

// SearchRequest combines pagination and filter criteria for the search endpoint.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

// NewHandler creates a Handler with the given system, ingestor, logger,
// pagination config, and upload size limit.
func NewHandler(
	sys System,
	logger *slog.Logger,
	pagination pagination.Config,
	maxUploadSize int64,
) *Handler {
	return &Handler{
		sys:           sys,
		logger:        logger.With("handler", "sheets"),
		pagination:    pagination,
		maxUploadSize: maxUploadSize,
	}
}

// WithIngestor wires the manual-upload ingestion pipeline into the handler.
func (h *Handler) WithIngestor(ing Ingestor) *Handler {
	h.ingestor = ing
	return h
}

// Routes returns the route group definition for sheet endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/sheets",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "POST", Pattern: "", Handler: h.Upload},
			{Method: "POST", Pattern: "/search", Handler: h.Search},
			{Method: "POST", Pattern: "/archive", Handler: h.Archive},
		},
	}
}

// List returns a paginated list of sheets with optional query parameter filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns a single sheet by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
		return
	}

	sh, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, sh)
}

// Search accepts a JSON body with pagination and filter criteria and returns
// matching sheets.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
		return
	}

	req.PageRequest.Normalize(h.pagination)

	result, err := h.sys.List(r.Context(), req.PageRequest, req.Filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Upload is the manual ingestion path. It accepts a multipart form with the
// sheet file plus payer_id and branch_id, then runs the same pipeline portal
// downloads go through: register, audit, normalize.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, ErrFileTooLarge)
		return
	}

	payerID := r.FormValue("payer_id")
	if payerID == "" {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
		return
	}
	branchID := r.FormValue("branch_id")

	file, header, err := r.FormFile("file")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
		return
	}
	if int64(len(data)) > h.maxUploadSize {
		h.logger.Warn("upload rejected",
			"filename", header.Filename,
			"size", formatting.FormatBytes(int64(len(data)), 1),
			"limit", formatting.FormatBytes(h.maxUploadSize, 1),
		)
		handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, ErrFileTooLarge)
		return
	}

	cmd := CreateCommand{
		Data:        data,
		PayerID:     payerID,
		BranchID:    branchID,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}

	if h.ingestor == nil {
		handlers.RespondError(w, h.logger, http.StatusServiceUnavailable, ErrInvalidInput)
		return
	}

	sh, err := h.ingestor.Ingest(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, sh)
}

// Archive transitions terminal sheets past the retention window to archived.
func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	days, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil || days < 1 {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
		return
	}

	n, err := h.sys.ArchiveOlderThan(r.Context(), days)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, map[string]int{"archived": n})
}
