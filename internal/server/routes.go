package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/playperu/tabletop/internal/handler/health"
	"github.com/playperu/tabletop/internal/hub"
)

func addRoutes(r chi.Router, logger *slog.Logger, h *hub.Hub, state Reader, opts Options) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Tabletop API", "/openapi.json", "/docs"))
	r.Mount("/healthz", health.NewHandler(logger, opts.Checks).Routes())
	r.Get("/ws", handleWS(logger, h, opts))

	r.Route("/api/playground", func(r chi.Router) {
		r.Get("/", handleGetPlayground(state))
		r.Get("/elements", handleListElements(state))
		r.Get("/elements/{id}", handleGetElement(state))
		r.Get("/templates", handleListTemplates(state))
	})

	if opts.StaticDir != "" {
		r.Get("/*", handleStatic(opts.StaticDir))
	}
}
