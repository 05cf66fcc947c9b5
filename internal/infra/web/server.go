package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"viraliza-billing/internal/domain/ports/repository"
	"viraliza-billing/internal/infra/logging"
	red "viraliza-billing/internal/infra/redis"
	"viraliza-billing/internal/usecase"
)

// Server exposes the webhook endpoint, the checkout API and the admin API.
type Server struct {
	webhookUC   usecase.WebhookUseCase
	checkoutUC  usecase.CheckoutUseCase
	affiliateUC usecase.AffiliateUseCase

	events   repository.WebhookEventRepository
	subs     repository.SubscriptionRepository
	settings repository.AffiliateSettingsRepository

	webhookSecret string
	adminPassword string
	auth          *AuthManager
	limiter       *red.RateLimiter
	log           *zerolog.Logger
}

func NewServer(
	webhookUC usecase.WebhookUseCase,
	checkoutUC usecase.CheckoutUseCase,
	affiliateUC usecase.AffiliateUseCase,
	events repository.WebhookEventRepository,
	subs repository.SubscriptionRepository,
	settings repository.AffiliateSettingsRepository,
	webhookSecret, adminPassword string,
	auth *AuthManager,
	limiter *red.RateLimiter,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		webhookUC:     webhookUC,
		checkoutUC:    checkoutUC,
		affiliateUC:   affiliateUC,
		events:        events,
		subs:          subs,
		settings:      settings,
		webhookSecret: webhookSecret,
		adminPassword: adminPassword,
		auth:          auth,
		limiter:       limiter,
		log:           &l,
	}
}

// Router assembles all routes. The webhook route stays outside every auth
// middleware: the signature is its authentication.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.traceID)
	r.Use(s.requestLog)

	r.Post("/webhooks/stripe", s.handleStripeWebhook)
	r.Get("/health", s.handleHealth)

	r.Post("/api/v1/checkout/plan", s.handlePlanCheckout)
	r.Post("/api/v1/checkout/tool", s.handleToolCheckout)

	r.Post("/admin/login", s.handleAdminLogin)
	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(s.auth.Middleware)
		r.Get("/stats", s.handleStats)
		r.Get("/affiliates/{id}/stats", s.handleAffiliateStats)
		r.Get("/affiliates/{id}/commissions", s.handleAffiliateCommissions)
		r.Get("/events/{id}", s.handleEventGet)
		r.Put("/settings", s.handleSettingsUpdate)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// ===== middleware =====

func (s *Server) traceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithTraceID(r.Context(), uuid.NewString())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := logging.With(r.Context(), s.log)
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		l.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http_request")
	})
}
