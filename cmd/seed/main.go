package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"medcontent-subscription/internal/config"
	"medcontent-subscription/internal/domain"
	pg "medcontent-subscription/internal/infra/db/postgres"
	"medcontent-subscription/internal/infra/logging"
	"medcontent-subscription/internal/usecase"
)

func main() {
	// ---- Config ----
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatalf("seed needs database.url")
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Connect Postgres
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	if err := pg.Migrate(ctx, pool, logger); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	planUC := usecase.NewPlanUseCase(pg.NewPostgresPlanRepo(pool))
	discountUC := usecase.NewDiscountUseCase(pg.NewDiscountRepo(pool), logger)

	// If plans already exist, do nothing
	plans, err := planUC.List(ctx)
	if err != nil {
		log.Fatalf("list plans: %v", err)
	}
	if len(plans) > 0 {
		fmt.Printf("%d plans already present. No changes.\n", len(plans))
		for _, p := range plans {
			fmt.Printf("  - #%d %s (days=%d, price=%d IRR)\n", p.ID, p.Name, p.DurationDays, p.Price)
		}
	} else {
		membership, err := planUC.CreateMembership(ctx, "Premium")
		if err != nil {
			log.Fatalf("membership: %v", err)
		}
		seed := []struct {
			Name  string
			Days  int
			Price int64
		}{
			{"Monthly", 30, 1_500_000},
			{"Quarterly", 90, 4_000_000},
			{"Yearly", 365, 14_000_000},
		}
		for _, s := range seed {
			p, err := planUC.Create(ctx, membership.ID, s.Name, s.Days, s.Price)
			if err != nil {
				log.Fatalf("create plan %s: %v", s.Name, err)
			}
			fmt.Printf("created plan #%d %s\n", p.ID, p.Name)
		}
	}

	// Sample discount for manual checkout tests
	const code = "WELCOME10"
	if _, err := discountUC.Get(ctx, code); errors.Is(err, domain.ErrDiscountNotFound) {
		d, err := discountUC.Create(ctx, usecase.DiscountInput{Code: code, Percent: 10, MaxUsage: 100})
		if err != nil {
			log.Fatalf("create discount: %v", err)
		}
		fmt.Printf("created discount %s (%d%%, max %d uses)\n", d.Code, d.Percent, d.MaxUsage)
	} else if err != nil {
		log.Fatalf("lookup discount: %v", err)
	} else {
		fmt.Printf("discount %s already present\n", code)
	}
}
