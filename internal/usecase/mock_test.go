//go:build !integration

package usecase_test

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"viraliza-billing/internal/domain"
	"viraliza-billing/internal/domain/model"
	"viraliza-billing/internal/domain/ports/adapter"
	"viraliza-billing/internal/domain/ports/repository"
)

// -----------------------------
// Utilities
// -----------------------------

// newTestLogger creates a silent zerolog.Logger so test output stays clean.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn immediately with NoTX by default; tests that need to observe
// rollback behavior assign WithTxFunc.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// ---- Mock WebhookEventRepository ----

type MockWebhookEventRepo struct {
	mu    sync.Mutex
	store map[string]*model.WebhookEvent

	ClaimFunc         func(ctx context.Context, tx repository.Tx, ev *model.WebhookEvent) (bool, error)
	MarkProcessedFunc func(ctx context.Context, tx repository.Tx, eventID string, result json.RawMessage, at time.Time) error
}

func NewMockWebhookEventRepo() *MockWebhookEventRepo {
	return &MockWebhookEventRepo{store: make(map[string]*model.WebhookEvent)}
}

var _ repository.WebhookEventRepository = (*MockWebhookEventRepo)(nil)

func (m *MockWebhookEventRepo) Claim(ctx context.Context, tx repository.Tx, ev *model.WebhookEvent) (bool, error) {
	if m.ClaimFunc != nil {
		return m.ClaimFunc(ctx, tx, ev)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[ev.ID]; ok {
		return false, nil
	}
	cp := *ev
	m.store[ev.ID] = &cp
	return true, nil
}

func (m *MockWebhookEventRepo) MarkProcessed(ctx context.Context, tx repository.Tx, eventID string, result json.RawMessage, at time.Time) error {
	if m.MarkProcessedFunc != nil {
		return m.MarkProcessedFunc(ctx, tx, eventID, result, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.store[eventID]
	if !ok {
		return domain.ErrNotFound
	}
	ev.Processed = true
	ev.Result = result
	ev.ProcessedAt = &at
	return nil
}

func (m *MockWebhookEventRepo) FindByID(ctx context.Context, tx repository.Tx, eventID string) (*model.WebhookEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.store[eventID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *ev
	return &cp, nil
}

func (m *MockWebhookEventRepo) ListUnprocessed(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.WebhookEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.WebhookEvent
	for _, ev := range m.store {
		if !ev.Processed && ev.ReceivedAt.Before(olderThan) {
			cp := *ev
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Forget drops a claimed event, simulating the rollback of a failed
// transaction.
func (m *MockWebhookEventRepo) Forget(eventID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, eventID)
}

// ---- Mock SubscriptionRepository ----

type MockSubscriptionRepo struct {
	mu    sync.Mutex
	store map[string]*model.Subscription // by external id

	SaveFunc             func(ctx context.Context, tx repository.Tx, s *model.Subscription) error
	FindByExternalIDFunc func(ctx context.Context, tx repository.Tx, externalID string) (*model.Subscription, error)
	UpdateStatusFunc     func(ctx context.Context, tx repository.Tx, externalID string, status model.SubscriptionStatus) error
}

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{store: make(map[string]*model.Subscription)}
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func (m *MockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.store[s.ExternalID] = &cp
	return nil
}

func (m *MockSubscriptionRepo) FindByExternalID(ctx context.Context, tx repository.Tx, externalID string) (*model.Subscription, error) {
	if m.FindByExternalIDFunc != nil {
		return m.FindByExternalIDFunc(ctx, tx, externalID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[externalID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockSubscriptionRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.store {
		if s.UserID == userID && s.Status == model.SubscriptionStatusActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockSubscriptionRepo) UpdateStatus(ctx context.Context, tx repository.Tx, externalID string, status model.SubscriptionStatus) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, tx, externalID, status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[externalID]
	if !ok {
		return domain.ErrNotFound
	}
	s.Status = status
	s.UpdatedAt = time.Now()
	return nil
}

func (m *MockSubscriptionRepo) CancelOtherActive(ctx context.Context, tx repository.Tx, userID, keepExternalID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.store {
		if s.UserID == userID && s.ExternalID != keepExternalID && s.Status == model.SubscriptionStatusActive {
			s.Status = model.SubscriptionStatusCanceled
			n++
		}
	}
	return n, nil
}

func (m *MockSubscriptionRepo) ListExpiring(ctx context.Context, tx repository.Tx, before time.Time, limit int) ([]*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Subscription
	for _, s := range m.store {
		if s.Status == model.SubscriptionStatusActive && s.PeriodEnd != nil && s.PeriodEnd.Before(before) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockSubscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int)
	for _, s := range m.store {
		out[string(s.Status)]++
	}
	return out, nil
}

// ---- Mock AffiliateRepository ----

type MockAffiliateRepo struct {
	mu    sync.Mutex
	store map[string]*model.Affiliate // by affiliate id

	CreditFunc func(ctx context.Context, tx repository.Tx, affiliateID string, delta int64) error
}

func NewMockAffiliateRepo() *MockAffiliateRepo {
	return &MockAffiliateRepo{store: make(map[string]*model.Affiliate)}
}

var _ repository.AffiliateRepository = (*MockAffiliateRepo)(nil)

func (m *MockAffiliateRepo) Save(ctx context.Context, tx repository.Tx, a *model.Affiliate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *MockAffiliateRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Affiliate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MockAffiliateRepo) FindByUserID(ctx context.Context, tx repository.Tx, userID string) (*model.Affiliate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.store {
		if a.UserID == userID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockAffiliateRepo) FindByReferralCode(ctx context.Context, tx repository.Tx, code string) (*model.Affiliate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.store {
		if a.ReferralCode == code {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockAffiliateRepo) Credit(ctx context.Context, tx repository.Tx, affiliateID string, delta int64) error {
	if m.CreditFunc != nil {
		return m.CreditFunc(ctx, tx, affiliateID, delta)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.store[affiliateID]
	if !ok {
		return domain.ErrNotFound
	}
	a.TotalEarnings += delta
	a.PendingBalance += delta
	return nil
}

func (m *MockAffiliateRepo) DebitPending(ctx context.Context, tx repository.Tx, affiliateID string, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.store[affiliateID]
	if !ok {
		return domain.ErrNotFound
	}
	if a.PendingBalance < delta {
		return domain.ErrOperationFailed
	}
	a.PendingBalance -= delta
	return nil
}

// ---- Mock ReferralRepository ----

type MockReferralRepo struct {
	mu    sync.Mutex
	store []*model.Referral
}

func NewMockReferralRepo() *MockReferralRepo { return &MockReferralRepo{} }

var _ repository.ReferralRepository = (*MockReferralRepo)(nil)

func (m *MockReferralRepo) Save(ctx context.Context, tx repository.Tx, r *model.Referral) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.store = append(m.store, &cp)
	return nil
}

func (m *MockReferralRepo) FindSignupByReferredUser(ctx context.Context, tx repository.Tx, referredUserID string) (*model.Referral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.store) - 1; i >= 0; i-- {
		r := m.store[i]
		if r.ReferredUserID == referredUserID && r.Type == model.ReferralTypeSignup {
			cp := *r
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ---- Mock CommissionRepository ----

type MockCommissionRepo struct {
	mu    sync.Mutex
	store []*model.Commission

	SaveFunc     func(ctx context.Context, tx repository.Tx, c *model.Commission) error
	MarkPaidFunc func(ctx context.Context, tx repository.Tx, id string, at time.Time) (bool, error)
}

func NewMockCommissionRepo() *MockCommissionRepo { return &MockCommissionRepo{} }

var _ repository.CommissionRepository = (*MockCommissionRepo)(nil)

func (m *MockCommissionRepo) Save(ctx context.Context, tx repository.Tx, c *model.Commission) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, c)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.store = append(m.store, &cp)
	return nil
}

func (m *MockCommissionRepo) FindBySaleID(ctx context.Context, tx repository.Tx, saleID string) (*model.Commission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.store {
		if c.SaleID == saleID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockCommissionRepo) ListByAffiliate(ctx context.Context, tx repository.Tx, affiliateID string, limit, offset int) ([]*model.Commission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Commission
	for _, c := range m.store {
		if c.AffiliateID == affiliateID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockCommissionRepo) ListPayable(ctx context.Context, tx repository.Tx, asOf time.Time, limit int) ([]*model.Commission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Commission
	for _, c := range m.store {
		if c.Status == model.CommissionStatusPending && !c.EligibleAt.After(asOf) {
			cp := *c
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MockCommissionRepo) MarkPaid(ctx context.Context, tx repository.Tx, id string, at time.Time) (bool, error) {
	if m.MarkPaidFunc != nil {
		return m.MarkPaidFunc(ctx, tx, id, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.store {
		if c.ID == id && c.Status == model.CommissionStatusPending {
			c.Status = model.CommissionStatusPaid
			return true, nil
		}
	}
	return false, nil
}

func (m *MockCommissionRepo) SumPendingByAffiliate(ctx context.Context, tx repository.Tx, affiliateID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, c := range m.store {
		if c.AffiliateID == affiliateID && c.Status == model.CommissionStatusPending {
			sum += c.Value
		}
	}
	return sum, nil
}

// All returns copies of every stored commission.
func (m *MockCommissionRepo) All() []*model.Commission {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Commission, 0, len(m.store))
	for _, c := range m.store {
		cp := *c
		out = append(out, &cp)
	}
	return out
}

// ---- Mock AffiliateSettingsRepository ----

type MockSettingsRepo struct {
	mu       sync.Mutex
	settings *model.AffiliateSettings
}

func NewMockSettingsRepo(s *model.AffiliateSettings) *MockSettingsRepo {
	return &MockSettingsRepo{settings: s}
}

var _ repository.AffiliateSettingsRepository = (*MockSettingsRepo)(nil)

func (m *MockSettingsRepo) Get(ctx context.Context, tx repository.Tx) (*model.AffiliateSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settings == nil {
		return nil, domain.ErrNotFound
	}
	cp := *m.settings
	return &cp, nil
}

func (m *MockSettingsRepo) Update(ctx context.Context, tx repository.Tx, s *model.AffiliateSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.settings = &cp
	return nil
}

// ---- Mock PlanRepository ----

type MockPlanRepo struct {
	mu    sync.Mutex
	store map[string]*model.Plan
}

func NewMockPlanRepo() *MockPlanRepo { return &MockPlanRepo{store: make(map[string]*model.Plan)} }

var _ repository.PlanRepository = (*MockPlanRepo)(nil)

func (m *MockPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *MockPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPlanRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Plan
	for _, p := range m.store {
		if p.Active {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Mock ToolAccessRepository ----

type MockToolAccessRepo struct {
	mu    sync.Mutex
	store []*model.ToolAccess
}

func NewMockToolAccessRepo() *MockToolAccessRepo { return &MockToolAccessRepo{} }

var _ repository.ToolAccessRepository = (*MockToolAccessRepo)(nil)

func (m *MockToolAccessRepo) Save(ctx context.Context, tx repository.Tx, t *model.ToolAccess) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.store = append(m.store, &cp)
	return nil
}

func (m *MockToolAccessRepo) HasAccess(ctx context.Context, tx repository.Tx, userID, toolID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.store {
		if t.UserID == userID && t.ToolID == toolID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockToolAccessRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.ToolAccess, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ToolAccess
	for _, t := range m.store {
		if t.UserID == userID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Mock ActivityRepository ----

type MockActivityRepo struct {
	mu    sync.Mutex
	store []*model.Activity
}

func NewMockActivityRepo() *MockActivityRepo { return &MockActivityRepo{} }

var _ repository.ActivityRepository = (*MockActivityRepo)(nil)

func (m *MockActivityRepo) Append(ctx context.Context, tx repository.Tx, a *model.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.store = append(m.store, &cp)
	return nil
}

func (m *MockActivityRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, since time.Time, limit int) ([]*model.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Activity
	for _, a := range m.store {
		if a.UserID == userID && !a.CreatedAt.Before(since) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

// All returns copies of every stored activity.
func (m *MockActivityRepo) All() []*model.Activity {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Activity, 0, len(m.store))
	for _, a := range m.store {
		cp := *a
		out = append(out, &cp)
	}
	return out
}

// ---- Mock CheckoutGateway ----

type MockCheckoutGateway struct {
	mu    sync.Mutex
	Calls []adapter.CheckoutParams

	CreateSessionFunc func(ctx context.Context, p adapter.CheckoutParams) (string, string, error)
}

var _ adapter.CheckoutGateway = (*MockCheckoutGateway)(nil)

func (m *MockCheckoutGateway) Name() string { return "mock" }

func (m *MockCheckoutGateway) CreateSession(ctx context.Context, p adapter.CheckoutParams) (string, string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, p)
	m.mu.Unlock()
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, p)
	}
	return "cs_test_123", "https://checkout.example/cs_test_123", nil
}
