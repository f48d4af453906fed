package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rgi-trading/procure/internal/delivery"
	"github.com/rgi-trading/procure/internal/invoice"
	"github.com/rgi-trading/procure/internal/masterdata"
	"github.com/rgi-trading/procure/internal/observability"
	"github.com/rgi-trading/procure/internal/order"
	"github.com/rgi-trading/procure/internal/quotation"
	"github.com/rgi-trading/procure/internal/rfq"
	"github.com/rgi-trading/procure/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	RFQHandler        *rfq.Handler
	QuotationHandler  *quotation.Handler
	OrderHandler      *order.Handler
	DeliveryHandler   *delivery.Handler
	InvoiceHandler    *invoice.Handler
	MasterDataHandler *masterdata.Handler
	JobsHandler       *jobs.Handler
	Pool              *pgxpool.Pool
	Metrics           *observability.Metrics
}

// NewRouter assembles the chi router with the full middleware chain and
// every module's routes.
func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  p.Logger,
		Config:  p.Config,
		Metrics: p.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if p.Pool != nil {
			if err := p.Pool.Ping(req.Context()); err != nil {
				p.Logger.Error("health check", slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", p.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		if p.RFQHandler != nil {
			p.RFQHandler.MountRoutes(r)
		}
		if p.QuotationHandler != nil {
			p.QuotationHandler.MountRoutes(r)
		}
		if p.OrderHandler != nil {
			p.OrderHandler.MountRoutes(r)
		}
		if p.DeliveryHandler != nil {
			p.DeliveryHandler.MountRoutes(r)
		}
		if p.InvoiceHandler != nil {
			p.InvoiceHandler.MountRoutes(r)
		}
		if p.MasterDataHandler != nil {
			p.MasterDataHandler.MountRoutes(r)
		}
		if p.JobsHandler != nil {
			r.Route("/jobs", func(r chi.Router) {
				p.JobsHandler.MountRoutes(r)
			})
		}
	})

	return r
}
