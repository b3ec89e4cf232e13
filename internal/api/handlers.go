package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/mdlforge/internal/checksum"
	"github.com/starford/mdlforge/internal/exportservice"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *exportservice.Service
}

func NewHandler(svc *exportservice.Service) *Handler {
	return &Handler{svc: svc}
}

// modelPath returns the wildcard tail of the URL. Encoded slashes
// (props%2Fcrate.model.yaml) are accepted.
func modelPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListModels handles GET /api/models.
//
//	@Summary	List catalogued models
//	@Tags		models
//	@Produce	json
//	@Param		limit	query		int		false	"Page size"
//	@Param		offset	query		int		false	"Page offset"
//	@Param		sort	query		string	false	"Sort field"	Enums(path, name, updated, helpers)
//	@Success	200		{object}	ModelListResponse
//	@Failure	400		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/models [get]
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListModels(r.Context(), limit, offset, q.Get("sort"))
	if err != nil {
		writeError(w, "list models", "", err)
		return
	}
	writeJSON(w, http.StatusOK, ModelListResponse{Models: items, Total: total})
}

// GetModel handles GET /api/models/*.
//
//	@Summary	Get a model source with its parsed scene graph
//	@Tags		models
//	@Produce	json
//	@Param		path	path		string	true	"Source path"
//	@Success	200		{object}	ModelDetail
//	@Failure	404		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/models/{path} [get]
func (h *Handler) GetModel(w http.ResponseWriter, r *http.Request) {
	path := modelPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	m, err := h.svc.GetModel(r.Context(), path)
	if err != nil {
		writeError(w, "get model", path, err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(m.Checksum))
	writeJSON(w, http.StatusOK, m)
}

// CreateModel handles POST /api/models.
//
//	@Summary	Create a model source
//	@Tags		models
//	@Accept		json
//	@Produce	json
//	@Param		body	body		CreateModelRequest	true	"Source to create"
//	@Success	201		{object}	ModelDetail
//	@Failure	400		{object}	errResponse
//	@Failure	409		{object}	errResponse
//	@Failure	422		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/models [post]
func (h *Handler) CreateModel(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req CreateModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" || req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and content are required"))
		return
	}
	m, err := h.svc.CreateModel(r.Context(), req.Path, []byte(req.Content))
	if err != nil {
		writeError(w, "create model", req.Path, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// UpdateModel handles PUT /api/models/*.
//
//	@Summary	Replace a model source with optimistic concurrency
//	@Tags		models
//	@Accept		json
//	@Produce	json
//	@Param		path		path		string				true	"Source path"
//	@Param		If-Match	header		string				false	"SHA-256 checksum of the current source"
//	@Param		body		body		UpdateModelRequest	true	"New content"
//	@Success	200			{object}	ModelDetail
//	@Failure	404			{object}	errResponse
//	@Failure	409			{object}	errResponse
//	@Failure	422			{object}	errResponse
//	@Security	BearerAuth
//	@Router		/models/{path} [put]
func (h *Handler) UpdateModel(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	path := modelPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req UpdateModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}
	ifMatch := checksum.FromETag(r.Header.Get("If-Match"))

	m, err := h.svc.UpdateModel(r.Context(), path, []byte(req.Content), ifMatch)
	if err != nil {
		writeError(w, "update model", path, err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(m.Checksum))
	writeJSON(w, http.StatusOK, m)
}

// DeleteModel handles DELETE /api/models/*.
//
//	@Summary	Delete a model source and its export
//	@Tags		models
//	@Param		path	path	string	true	"Source path"
//	@Success	204		"Model deleted"
//	@Failure	404		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/models/{path} [delete]
func (h *Handler) DeleteModel(w http.ResponseWriter, r *http.Request) {
	path := modelPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.DeleteModel(r.Context(), path); err != nil {
		writeError(w, "delete model", path, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Graph handles GET /api/graph/*.
//
//	@Summary	Node hierarchy of one model
//	@Tags		graph
//	@Produce	json
//	@Param		path	path		string	true	"Source path"
//	@Success	200		{object}	catalog.Graph
//	@Failure	404		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/graph/{path} [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	path := modelPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	g, err := h.svc.Graph(r.Context(), path)
	if err != nil {
		writeError(w, "graph", path, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// Export handles POST /api/exports/*.
//
//	@Summary	Export one model source to MDL
//	@Tags		exports
//	@Produce	json
//	@Param		path	path		string	true	"Source path"
//	@Success	200		{object}	exportservice.Result
//	@Failure	404		{object}	errResponse
//	@Failure	422		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/exports/{path} [post]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	path := modelPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	res, err := h.svc.Export(r.Context(), path)
	if err != nil {
		writeError(w, "export", path, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ExportAll handles POST /api/exports.
//
//	@Summary	Export several sources, or the whole workspace
//	@Tags		exports
//	@Accept		json
//	@Produce	json
//	@Param		body	body		ExportAllRequest	false	"Sources to export"
//	@Success	200		{object}	ExportAllResponse
//	@Security	BearerAuth
//	@Router		/exports [post]
func (h *Handler) ExportAll(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req ExportAllRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	results, err := h.svc.ExportAll(r.Context(), req.Paths)
	if results == nil && err != nil {
		writeError(w, "export all", "", err)
		return
	}
	resp := ExportAllResponse{Results: results}
	for _, res := range results {
		if res.Error != "" {
			resp.Failed++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetExport handles GET /api/exports/*.
//
//	@Summary	Exported MDL text of a source
//	@Tags		exports
//	@Produce	plain
//	@Param		path	path		string	true	"Source path"
//	@Success	200		{string}	string	"MDL text"
//	@Failure	404		{object}	errResponse
//	@Failure	422		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/exports/{path} [get]
func (h *Handler) GetExport(w http.ResponseWriter, r *http.Request) {
	path := modelPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	row, text, err := h.svc.GetExport(r.Context(), path)
	if err != nil {
		writeError(w, "get export", path, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(text)))
	w.Header().Set("ETag", checksum.ETag(row.Checksum))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(text)
}

// Search handles GET /api/search.
//
//	@Summary	Search model names, paths and node names
//	@Tags		search
//	@Produce	json
//	@Param		q		query		string	true	"Search query"
//	@Param		limit	query		int		false	"Max results"
//	@Success	200		{object}	SearchResponse
//	@Failure	400		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", "", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
