package batches

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/JaimeStill/appart/pkg/handlers"
	"github.com/JaimeStill/appart/pkg/pagination"
	"github.com/JaimeStill/appart/pkg/routes"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler provides HTTP endpoints for batch operations.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// SearchRequest combines pagination and filter criteria for the search endpoint.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(
	sys System,
	logger *slog.Logger,
	pagination pagination.Config,
) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "batches"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for batch endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/batches",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "POST", Pattern: "", Handler: h.Create},
			{Method: "POST", Pattern: "/search", Handler: h.Search},
			{Method: "POST", Pattern: "/{id}/run", Handler: h.Run},
			{Method: "GET", Pattern: "/{id}/results", Handler: h.Results},
			{Method: "GET", Pattern: "/{id}/export", Handler: h.Export},
		},
	}
}

// AnalyzeRoutes returns the route group for the single-document workflow.
func (h *Handler) AnalyzeRoutes() routes.Group {
	return routes.Group{
		Prefix: "/analyze",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/{documentId}", Handler: h.Analyze},
		},
	}
}

// List returns a paginated list of batches with optional query parameter filters.
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

// Find returns a single batch by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	b, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, b)
}

// Search accepts a JSON body with pagination and filter criteria and returns matching batches.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
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

// Create registers a batch from a CreateCommand JSON body.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var cmd CreateCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidBatch)
		return
	}

	b, err := h.sys.Create(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, b)
}

// Run executes the batch workflow and returns the batch with its summary
// or failure reason.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	b, err := h.sys.Run(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, b)
}

// Results returns the stored result records of a batch's documents.
func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	results, err := h.sys.Results(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, results)
}

// Export streams the batch report as an XLSX workbook.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	data, err := h.sys.Export(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set(
		"Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "batch-"+id.String()+".xlsx"),
	)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Analyze runs the single-document workflow for the documentId path
// parameter. The optional category query parameter skips classification.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "documentId")
	if !ok {
		return
	}

	record, err := h.sys.Analyze(r.Context(), id, r.URL.Query().Get("category"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, record)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: %s", ErrInvalidBatch, name))
		return uuid.Nil, false
	}
	return id, true
}
