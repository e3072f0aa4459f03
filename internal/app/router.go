package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-erp/meridian-erp/internal/catalog"
	"github.com/meridian-erp/meridian-erp/internal/issue"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/product"
	"github.com/meridian-erp/meridian-erp/internal/purchase"
	"github.com/meridian-erp/meridian-erp/internal/reporting"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Sessions         *shared.SessionStore
	CatalogHandler   *catalog.Handler
	ProductHandler   *product.Handler
	LedgerHandler    *ledger.Handler
	PurchaseHandler  *purchase.Handler
	IssueHandler     *issue.Handler
	ReportingHandler *reporting.Handler
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:   params.Logger,
		Config:   params.Config,
		Sessions: params.Sessions,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(IdentityMiddleware(params.Sessions, params.Logger))

		params.CatalogHandler.MountRoutes(api)
		params.ProductHandler.MountRoutes(api)
		params.LedgerHandler.MountRoutes(api)
		params.PurchaseHandler.MountRoutes(api)
		params.IssueHandler.MountRoutes(api)
		params.ReportingHandler.MountRoutes(api)
	})

	return r
}
