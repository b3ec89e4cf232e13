package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/starford/mdlforge/internal/exportservice"
)

// NewRouter mounts every API route behind the auth middleware. events, when
// non-nil, is served at GET /events.
func NewRouter(svc *exportservice.Service, authEnabled bool, token string, events http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/models", func(r chi.Router) {
		r.Get("/", h.ListModels)
		r.With(middleware.AllowContentType("application/json")).Post("/", h.CreateModel)
		r.Get("/*", h.GetModel)
		r.Put("/*", h.UpdateModel)
		r.Delete("/*", h.DeleteModel)
	})

	r.Post("/exports", h.ExportAll)
	r.Post("/exports/*", h.Export)
	r.Get("/exports/*", h.GetExport)

	r.Get("/graph/*", h.Graph)
	r.Get("/search", h.Search)

	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}
	return r
}
