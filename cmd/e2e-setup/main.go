package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"medcontent-subscription/internal/config"
	"medcontent-subscription/internal/infra/api"
	"medcontent-subscription/internal/infra/db/postgres"
	"medcontent-subscription/internal/infra/logging"
	"medcontent-subscription/internal/infra/redis"
)

// Resets Postgres and Redis to an empty state for manual end-to-end testing
// and prints bearer tokens for a regular user and an admin.
//
//	go run ./cmd/e2e-setup -user 1001 -- -config config.yaml -dev
func main() {
	userID := flag.Int64("user", 1001, "user id for the regular token")
	adminID := flag.Int64("admin", 1, "user id for the admin token")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.Load(flag.Args())
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	log.Println("--- Starting E2E Environment Setup ---")

	if cfg.Redis.URL != "" {
		log.Println("[1/3] Wiping Redis...")
		redisClient, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisClient.Close()
		if err := redisClient.FlushDB(ctx); err != nil {
			log.Fatalf("failed to flush redis: %v", err)
		}
	} else {
		log.Println("[1/3] No Redis configured, skipping")
	}

	if cfg.Database.URL != "" {
		log.Println("[2/3] Wiping database data...")
		pool, err := postgres.NewPgxPool(ctx, cfg.Database.URL, 2)
		if err != nil {
			log.Fatalf("postgres connection failed: %v", err)
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool, logger); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		if _, err := pool.Exec(ctx, `
			TRUNCATE payments, subscriptions, profiles, discount_codes, plans, memberships
			RESTART IDENTITY CASCADE;
		`); err != nil {
			log.Fatalf("failed to truncate tables: %v", err)
		}
	} else {
		log.Println("[2/3] No database configured, skipping")
	}

	log.Println("[3/3] Minting tokens...")
	auth := api.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	userTok, err := auth.Mint(*userID, "", *ttl)
	if err != nil {
		log.Fatalf("mint user token: %v", err)
	}
	adminTok, err := auth.Mint(*adminID, api.RoleAdmin, *ttl)
	if err != nil {
		log.Fatalf("mint admin token: %v", err)
	}
	fmt.Printf("USER_TOKEN=%s\n", userTok)
	fmt.Printf("ADMIN_TOKEN=%s\n", adminTok)

	log.Println("--- E2E Environment Setup Complete (run cmd/seed next) ---")
}
