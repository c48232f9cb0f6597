package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/veldt-labs/corpora/internal/api"
	"github.com/veldt-labs/corpora/internal/api/handlers"
	"github.com/veldt-labs/corpora/internal/api/middleware"
)

type RouterConfig struct {
	GroupHandler    *handlers.GroupHandler
	SnapshotHandler *handlers.SnapshotHandler
	QueryHandler    *handlers.QueryHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/groups", func(r chi.Router) {
		r.Post("/", cfg.GroupHandler.Create)
		r.Get("/", cfg.GroupHandler.List)
		r.Get("/{groupID}", cfg.GroupHandler.Get)
		r.Post("/{groupID}/sources", cfg.GroupHandler.AddSource)
		r.Post("/{groupID}/ingest", cfg.SnapshotHandler.TriggerIngest)
		r.Get("/{groupID}/snapshots", cfg.SnapshotHandler.ListByGroup)
		r.Post("/{groupID}/query", cfg.QueryHandler.Query)
	})

	r.Route("/snapshots", func(r chi.Router) {
		r.Get("/{snapshotID}", cfg.SnapshotHandler.Get)
		r.Post("/{snapshotID}/activate", cfg.SnapshotHandler.Activate)
	})

	return r
}
