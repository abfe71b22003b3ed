package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/notifyhub/notification-dispatch/internal/api/handler"
	apimw "github.com/notifyhub/notification-dispatch/internal/api/middleware"
	"github.com/notifyhub/notification-dispatch/internal/service"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	svc *service.NotificationService,
	checks map[string]handler.Check,
	reg prometheus.Gatherer,
	jwtSecret string,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestSize(1 << 20))
	r.Use(apimw.CorrelationID)
	r.Use(apimw.RequestLogger(logger))

	nh := handler.NewNotificationHandler(svc, validator.New(), logger)
	hh := handler.NewHealthHandler(checks)

	r.Get("/health", hh.Health)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/notifications", func(r chi.Router) {
		r.Use(apimw.JWTAuth(jwtSecret))

		// literal paths before /{id}
		r.Post("/send", nh.Send)
		r.Get("/history", nh.History)
		r.Get("/admin/stats", nh.Stats)
		r.Get("/{id}", nh.GetByID)
	})

	return r
}
