//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"viraliza-billing/internal/domain"
	"viraliza-billing/internal/domain/model"
	"viraliza-billing/internal/domain/ports/adapter"
	"viraliza-billing/internal/domain/ports/repository"
	"viraliza-billing/internal/usecase"
)

func TestStartPlanCheckout(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*MockPlanRepo, *MockCheckoutGateway, usecase.CheckoutUseCase) {
		plans := NewMockPlanRepo()
		gw := &MockCheckoutGateway{}
		uc := usecase.NewCheckoutUseCase(plans, gw, "https://app.example/ok", "https://app.example/cancel", newTestLogger())
		return plans, gw, uc
	}

	t.Run("builds a subscription session carrying pipeline metadata", func(t *testing.T) {
		plans, gw, uc := setup(t)
		p, _ := model.NewPlan("pro", "ViralizaAI Pro", 9_990, "brl", 30)
		if err := plans.Save(ctx, repository.NoTX, p); err != nil {
			t.Fatal(err)
		}

		url, err := uc.StartPlanCheckout(ctx, "user-1", "pro")
		if err != nil {
			t.Fatal(err)
		}
		if url == "" {
			t.Fatal("expected a redirect url")
		}
		if len(gw.Calls) != 1 {
			t.Fatalf("gateway calls = %d", len(gw.Calls))
		}
		call := gw.Calls[0]
		if call.Mode != "subscription" || call.AmountCents != 9_990 {
			t.Errorf("call = %+v", call)
		}
		// The webhook handlers read these back when the session completes.
		if call.Metadata["user_id"] != "user-1" || call.Metadata["plan_id"] != "pro" {
			t.Errorf("metadata = %v", call.Metadata)
		}
	})

	t.Run("unknown or retired plan is rejected", func(t *testing.T) {
		plans, _, uc := setup(t)
		if _, err := uc.StartPlanCheckout(ctx, "user-1", "ghost"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}

		retired, _ := model.NewPlan("old", "Old", 1_000, "brl", 30)
		retired.Active = false
		if err := plans.Save(ctx, repository.NoTX, retired); err != nil {
			t.Fatal(err)
		}
		if _, err := uc.StartPlanCheckout(ctx, "user-1", "old"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound for retired plan", err)
		}
	})

	t.Run("gateway failure surfaces", func(t *testing.T) {
		plans, gw, uc := setup(t)
		p, _ := model.NewPlan("pro", "Pro", 9_990, "brl", 30)
		_ = plans.Save(ctx, repository.NoTX, p)

		boom := errors.New("stripe down")
		gw.CreateSessionFunc = func(ctx context.Context, _ adapter.CheckoutParams) (string, string, error) {
			return "", "", boom
		}
		if _, err := uc.StartPlanCheckout(ctx, "user-1", "pro"); !errors.Is(err, boom) {
			t.Fatalf("err = %v, want gateway failure", err)
		}
	})
}

func TestStartToolCheckout(t *testing.T) {
	ctx := context.Background()
	gw := &MockCheckoutGateway{}
	uc := usecase.NewCheckoutUseCase(NewMockPlanRepo(), gw, "https://app.example/ok", "https://app.example/cancel", newTestLogger())

	t.Run("builds a one-off payment session", func(t *testing.T) {
		url, err := uc.StartToolCheckout(ctx, "user-1", "hashtag-gen", "Gerador de Hashtags", 4_990, "")
		if err != nil {
			t.Fatal(err)
		}
		if url == "" {
			t.Fatal("expected a redirect url")
		}
		call := gw.Calls[len(gw.Calls)-1]
		if call.Mode != "payment" || call.Currency != "brl" {
			t.Errorf("call = %+v", call)
		}
		if call.Metadata["product_type"] != "tool" || call.Metadata["product_id"] != "hashtag-gen" {
			t.Errorf("metadata = %v", call.Metadata)
		}
	})

	t.Run("rejects a non-positive price", func(t *testing.T) {
		if _, err := uc.StartToolCheckout(ctx, "user-1", "tool", "Tool", 0, "brl"); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("err = %v, want ErrInvalidArgument", err)
		}
	})
}
