package api

import (
	"github.com/starford/mdlforge/internal/catalog"
	"github.com/starford/mdlforge/internal/exportservice"
)

// CreateModelRequest is the body of POST /models.
type CreateModelRequest struct {
	Path    string `json:"path" example:"props/crate.model.yaml" validate:"required"`
	Content string `json:"content" example:"name: Crate" validate:"required"`
}

// UpdateModelRequest is the body of PUT /models/{path}.
type UpdateModelRequest struct {
	Content string `json:"content" example:"name: Crate" validate:"required"`
}

// ExportAllRequest is the optional body of POST /exports. An empty list
// exports the whole workspace.
type ExportAllRequest struct {
	Paths []string `json:"paths"`
}

// ModelDetail is the full model response.
type ModelDetail = exportservice.ModelDetail

// ModelListResponse wraps one page of models.
type ModelListResponse struct {
	Models []catalog.ModelRow `json:"models" validate:"required"`
	Total  int                `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search hits.
type SearchResponse struct {
	Results []catalog.SearchResult `json:"results" validate:"required"`
}

// ExportAllResponse lists per-source outcomes of a batch export.
type ExportAllResponse struct {
	Results []exportservice.Result `json:"results" validate:"required"`
	Failed  int                    `json:"failed"`
}
