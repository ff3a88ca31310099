package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/shelfline/shelfline/internal/catalog"
	"github.com/shelfline/shelfline/internal/cogs"
	"github.com/shelfline/shelfline/internal/dashboard"
	"github.com/shelfline/shelfline/internal/items"
	"github.com/shelfline/shelfline/internal/lots"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	ItemsHandler     *items.Handler
	LotsHandler      *lots.Handler
	COGSHandler      *cogs.Handler
	DashboardHandler *dashboard.Handler
	CatalogHandler   *catalog.Handler
}

// NewRouter constructs the chi.Router with Shelfline defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(params.Config) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Post("/intake", params.ItemsHandler.HandleIntake)
	r.Route("/items", params.ItemsHandler.MountRoutes)
	r.Route("/lots", params.LotsHandler.MountRoutes)
	r.Route("/cogs", params.COGSHandler.MountRoutes)
	r.Route("/dashboard", params.DashboardHandler.MountRoutes)
	r.Route("/catalog", params.CatalogHandler.MountRoutes)

	return r
}
