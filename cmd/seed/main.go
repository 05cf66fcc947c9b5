package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"viraliza-billing/internal/config"
	"viraliza-billing/internal/domain/model"
	"viraliza-billing/internal/domain/ports/repository"
	pg "viraliza-billing/internal/infra/db/postgres"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	planRepo := pg.NewPlanRepo(pool)
	settingsRepo := pg.NewSettingsRepo(pool)

	// Settings row first: the commission pipeline cannot resolve rates
	// without it.
	if _, err := settingsRepo.Get(ctx, repository.NoTX); err != nil {
		s := &model.AffiliateSettings{
			DefaultRate:     cfg.Affiliate.DefaultRate,
			MaxCommission:   cfg.Affiliate.MaxCommission,
			PayoutDelayDays: cfg.Affiliate.PayoutDelayDays,
			UpdatedAt:       time.Now().UTC(),
		}
		if err := s.Validate(); err != nil {
			log.Fatalf("affiliate settings invalid: %v", err)
		}
		if err := settingsRepo.Update(ctx, repository.NoTX, s); err != nil {
			log.Fatalf("seed settings: %v", err)
		}
		fmt.Printf("seeded settings: rate=%.1f%% cap=%d delay=%dd\n", s.DefaultRate, s.MaxCommission, s.PayoutDelayDays)
	} else {
		fmt.Println("settings already present. No changes.")
	}

	// If plans already exist, do nothing
	plans, err := planRepo.ListActive(ctx, repository.NoTX)
	if err != nil {
		log.Fatalf("list plans: %v", err)
	}
	if len(plans) > 0 {
		fmt.Printf("%d plans already present. No changes.\n", len(plans))
		for _, p := range plans {
			fmt.Printf("  - %s (%s, %d %s / %dd)\n", p.ID, p.Name, p.PriceCents, p.Currency, p.IntervalDays)
		}
		return
	}

	seed := []struct {
		ID    string
		Name  string
		Price int64
		Days  int
	}{
		{"basic", "ViralizaAI Basic", 4_990, 30},
		{"pro", "ViralizaAI Pro", 9_990, 30},
		{"agency", "ViralizaAI Agency", 29_990, 30},
	}

	for _, s := range seed {
		p, err := model.NewPlan(s.ID, s.Name, s.Price, "brl", s.Days)
		if err != nil {
			log.Fatalf("plan %q: %v", s.ID, err)
		}
		if err := planRepo.Save(ctx, repository.NoTX, p); err != nil {
			log.Fatalf("save plan %q: %v", s.ID, err)
		}
		fmt.Printf("seeded: %s (%s, %d centavos / %dd)\n", p.ID, p.Name, p.PriceCents, p.IntervalDays)
	}

	fmt.Println("Seeding complete.")
}
