package cartapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/nsridhar76/go-ordersync/internal/api/middleware"
)

// RouterOptions holds the optional collaborators of the router.
type RouterOptions struct {
	// Redis enables the idempotency middleware on write routes when set.
	Redis redis.Cmdable
	// IdempotencyLockTTL must exceed the slowest publish; see
	// config.Cart.IdempotencyLockTTL.
	IdempotencyLockTTL time.Duration
	Gatherer           prometheus.Gatherer
	Logger             *slog.Logger
}

// NewRouter wires the writer routes.
func NewRouter(h *Handlers, opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		if opts.Redis != nil {
			r.Use(middleware.Idempotency(opts.Redis, middleware.IdempotencyOptions{
				LockTTL: opts.IdempotencyLockTTL,
				Logger:  logger,
			}))
		}
		r.Post("/create-order", h.CreateOrder)
		r.Put("/update-order", h.UpdateOrder)
	})

	return r
}
