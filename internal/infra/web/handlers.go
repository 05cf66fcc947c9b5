package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"viraliza-billing/internal/domain"
	"viraliza-billing/internal/domain/model"
	"viraliza-billing/internal/domain/ports/repository"
	"viraliza-billing/internal/infra/logging"
	red "viraliza-billing/internal/infra/redis"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// mapDomainError turns sentinel errors into HTTP statuses; anything
// unrecognized is a 500.
func mapDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidPayload):
		writeError(w, http.StatusBadRequest, "invalid request")
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already exists")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// ===== checkout =====

type planCheckoutRequest struct {
	UserID string `json:"user_id"`
	PlanID string `json:"plan_id"`
}

func (s *Server) handlePlanCheckout(w http.ResponseWriter, r *http.Request) {
	var req planCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	redirect, err := s.checkoutUC.StartPlanCheckout(r.Context(), req.UserID, req.PlanID)
	if err != nil {
		logging.With(r.Context(), s.log).Error().Err(err).Str("plan_id", req.PlanID).Msg("plan checkout failed")
		mapDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"checkout_url": redirect})
}

type toolCheckoutRequest struct {
	UserID     string `json:"user_id"`
	ToolID     string `json:"tool_id"`
	ToolName   string `json:"tool_name"`
	PriceCents int64  `json:"price_cents"`
	Currency   string `json:"currency"`
}

func (s *Server) handleToolCheckout(w http.ResponseWriter, r *http.Request) {
	var req toolCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	redirect, err := s.checkoutUC.StartToolCheckout(r.Context(), req.UserID, req.ToolID, req.ToolName, req.PriceCents, req.Currency)
	if err != nil {
		logging.With(r.Context(), s.log).Error().Err(err).Str("tool_id", req.ToolID).Msg("tool checkout failed")
		mapDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"checkout_url": redirect})
}

// ===== admin =====

const (
	loginAttemptLimit  = 5
	loginAttemptWindow = 15 * time.Minute
)

type adminLoginRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	log := logging.With(r.Context(), s.log)

	if s.limiter != nil {
		ok, err := s.limiter.Allow(r.Context(), red.LoginKey(r.RemoteAddr), loginAttemptLimit, loginAttemptWindow)
		if err != nil {
			// Limiter outage must not lock admins out; log and continue.
			log.Warn().Err(err).Msg("login rate limiter unavailable")
		} else if !ok {
			writeError(w, http.StatusTooManyRequests, "too many attempts")
			return
		}
	}

	var req adminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if !PasswordMatch(s.adminPassword, req.Password) {
		log.Warn().Str("remote", r.RemoteAddr).Msg("admin login rejected")
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if _, err := s.auth.Mint(w); err != nil {
		writeError(w, http.StatusInternalServerError, "session creation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.subs.CountByStatus(r.Context(), repository.NoTX)
	if err != nil {
		mapDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"subscriptions_by_status": counts,
	})
}

func (s *Server) handleAffiliateStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	stats, err := s.affiliateUC.Stats(r.Context(), id)
	if err != nil {
		mapDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleAffiliateCommissions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	list, err := s.affiliateUC.ListCommissions(r.Context(), id, limit, offset)
	if err != nil {
		mapDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"commissions": list})
}

func (s *Server) handleEventGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ev, err := s.events.FindByID(r.Context(), repository.NoTX, id)
	if err != nil {
		mapDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

type settingsUpdateRequest struct {
	DefaultRate     float64 `json:"default_rate"`
	MaxCommission   int64   `json:"max_commission"`
	PayoutDelayDays int     `json:"payout_delay_days"`
}

func (s *Server) handleSettingsUpdate(w http.ResponseWriter, r *http.Request) {
	var req settingsUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	cfg := &model.AffiliateSettings{
		DefaultRate:     req.DefaultRate,
		MaxCommission:   req.MaxCommission,
		PayoutDelayDays: req.PayoutDelayDays,
		UpdatedAt:       time.Now().UTC(),
	}
	if err := cfg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid settings")
		return
	}

	if err := s.settings.Update(r.Context(), repository.NoTX, cfg); err != nil {
		mapDomainError(w, err)
		return
	}
	logging.With(r.Context(), s.log).Info().
		Float64("default_rate", cfg.DefaultRate).
		Int64("max_commission", cfg.MaxCommission).
		Int("payout_delay_days", cfg.PayoutDelayDays).
		Msg("affiliate settings updated")
	writeJSON(w, http.StatusOK, cfg)
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
