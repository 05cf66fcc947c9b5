//go:build !integration

package web

import (
	"context"
	"io"
	"sync"
	"time"

	"encoding/json"

	"github.com/rs/zerolog"

	"viraliza-billing/internal/domain"
	"viraliza-billing/internal/domain/model"
	"viraliza-billing/internal/domain/ports/repository"
	"viraliza-billing/internal/usecase"
)

// newTestLogger creates a silent logger for tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// ---- mock WebhookUseCase ----

type mockWebhookUC struct {
	mu     sync.Mutex
	Events []*model.WebhookEvent

	ProcessFunc func(ctx context.Context, ev *model.WebhookEvent) (usecase.Outcome, error)
}

var _ usecase.WebhookUseCase = (*mockWebhookUC)(nil)

func (m *mockWebhookUC) Process(ctx context.Context, ev *model.WebhookEvent) (usecase.Outcome, error) {
	m.mu.Lock()
	m.Events = append(m.Events, ev)
	m.mu.Unlock()
	if m.ProcessFunc != nil {
		return m.ProcessFunc(ctx, ev)
	}
	return usecase.OutcomeProcessed, nil
}

func (m *mockWebhookUC) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Events)
}

// ---- mock CheckoutUseCase ----

type mockCheckoutUC struct {
	StartPlanCheckoutFunc func(ctx context.Context, userID, planID string) (string, error)
	StartToolCheckoutFunc func(ctx context.Context, userID, toolID, toolName string, priceCents int64, currency string) (string, error)
}

var _ usecase.CheckoutUseCase = (*mockCheckoutUC)(nil)

func (m *mockCheckoutUC) StartPlanCheckout(ctx context.Context, userID, planID string) (string, error) {
	if m.StartPlanCheckoutFunc != nil {
		return m.StartPlanCheckoutFunc(ctx, userID, planID)
	}
	return "https://checkout.example/session", nil
}

func (m *mockCheckoutUC) StartToolCheckout(ctx context.Context, userID, toolID, toolName string, priceCents int64, currency string) (string, error) {
	if m.StartToolCheckoutFunc != nil {
		return m.StartToolCheckoutFunc(ctx, userID, toolID, toolName, priceCents, currency)
	}
	return "https://checkout.example/session", nil
}

// ---- mock AffiliateUseCase ----

type mockAffiliateUC struct {
	StatsFunc func(ctx context.Context, affiliateID string) (*usecase.AffiliateStats, error)
}

var _ usecase.AffiliateUseCase = (*mockAffiliateUC)(nil)

func (m *mockAffiliateUC) Stats(ctx context.Context, affiliateID string) (*usecase.AffiliateStats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx, affiliateID)
	}
	return &usecase.AffiliateStats{Affiliate: &model.Affiliate{ID: affiliateID}}, nil
}

func (m *mockAffiliateUC) ListCommissions(ctx context.Context, affiliateID string, limit, offset int) ([]*model.Commission, error) {
	return nil, nil
}

func (m *mockAffiliateUC) SettlePayable(ctx context.Context, asOf time.Time, limit int) (int, error) {
	return 0, nil
}

// ---- mock repositories ----

type mockEventRepo struct {
	FindByIDFunc func(ctx context.Context, tx repository.Tx, eventID string) (*model.WebhookEvent, error)
}

var _ repository.WebhookEventRepository = (*mockEventRepo)(nil)

func (m *mockEventRepo) Claim(ctx context.Context, tx repository.Tx, ev *model.WebhookEvent) (bool, error) {
	return true, nil
}

func (m *mockEventRepo) MarkProcessed(ctx context.Context, tx repository.Tx, eventID string, result json.RawMessage, at time.Time) error {
	return nil
}

func (m *mockEventRepo) FindByID(ctx context.Context, tx repository.Tx, eventID string) (*model.WebhookEvent, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, eventID)
	}
	return nil, domain.ErrNotFound
}

func (m *mockEventRepo) ListUnprocessed(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.WebhookEvent, error) {
	return nil, nil
}

type mockSubRepo struct {
	counts map[string]int
}

var _ repository.SubscriptionRepository = (*mockSubRepo)(nil)

func (m *mockSubRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	return nil
}

func (m *mockSubRepo) FindByExternalID(ctx context.Context, tx repository.Tx, externalID string) (*model.Subscription, error) {
	return nil, domain.ErrNotFound
}

func (m *mockSubRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	return nil, domain.ErrNotFound
}

func (m *mockSubRepo) UpdateStatus(ctx context.Context, tx repository.Tx, externalID string, status model.SubscriptionStatus) error {
	return nil
}

func (m *mockSubRepo) CancelOtherActive(ctx context.Context, tx repository.Tx, userID, keepExternalID string) (int, error) {
	return 0, nil
}

func (m *mockSubRepo) ListExpiring(ctx context.Context, tx repository.Tx, before time.Time, limit int) ([]*model.Subscription, error) {
	return nil, nil
}

func (m *mockSubRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[string]int, error) {
	if m.counts != nil {
		return m.counts, nil
	}
	return map[string]int{}, nil
}

type mockSettingsRepo struct {
	settings *model.AffiliateSettings
}

var _ repository.AffiliateSettingsRepository = (*mockSettingsRepo)(nil)

func (m *mockSettingsRepo) Get(ctx context.Context, tx repository.Tx) (*model.AffiliateSettings, error) {
	if m.settings == nil {
		return nil, domain.ErrNotFound
	}
	return m.settings, nil
}

func (m *mockSettingsRepo) Update(ctx context.Context, tx repository.Tx, s *model.AffiliateSettings) error {
	m.settings = s
	return nil
}
