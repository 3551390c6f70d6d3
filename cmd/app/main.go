// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"medcontent-subscription/internal/config"
	"medcontent-subscription/internal/domain/ports/adapter"
	"medcontent-subscription/internal/domain/ports/repository"
	"medcontent-subscription/internal/infra/adapters/notify"
	payAdapters "medcontent-subscription/internal/infra/adapters/payment"
	"medcontent-subscription/internal/infra/api"
	pg "medcontent-subscription/internal/infra/db/postgres"
	"medcontent-subscription/internal/infra/i18n"
	"medcontent-subscription/internal/infra/logging"
	"medcontent-subscription/internal/infra/memory"
	"medcontent-subscription/internal/infra/metrics"
	red "medcontent-subscription/internal/infra/redis"
	"medcontent-subscription/internal/usecase"
)

// backend groups the storage ports; Postgres+Redis in production, memory in -dev.
type backend struct {
	tm        repository.TransactionManager
	plans     repository.PlanRepository
	discounts repository.DiscountRepository
	payments  repository.PaymentRepository
	subs      repository.SubscriptionRepository
	profiles  repository.ProfileRepository
	quotes    repository.QuoteStore
	locker    adapter.Locker
	limiter   api.Limiter
	closers   []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("service stopped")
	}
}

func run(cfg *config.Config, logger *zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] enabled; missing infrastructure falls back to in-process adapters")
	}
	metrics.MustRegister(nil)

	be, err := buildBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer be.Close()

	registry, err := buildGateways(cfg, logger)
	if err != nil {
		return err
	}

	publisher, err := buildPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	// ---- Use cases ----
	planUC := usecase.NewPlanUseCase(be.plans)
	pricingUC := usecase.NewPricingUseCase(be.plans, be.discounts, be.profiles, be.quotes, cfg.Checkout.QuoteTTL, logger)
	checkoutUC := usecase.NewCheckoutUseCase(be.tm, be.plans, be.payments, be.subs, be.quotes, registry, be.locker,
		usecase.CheckoutConfig{
			CallbackBaseURL: cfg.HTTP.PublicURL,
			GatewayTimeout:  cfg.Payment.Timeout,
			LockTTL:         cfg.Checkout.CheckoutLockTTL,
		}, logger)
	verificationUC := usecase.NewVerificationUseCase(be.tm, be.plans, be.payments, be.subs, be.profiles, registry, be.locker, publisher,
		usecase.VerificationConfig{
			GatewayTimeout: cfg.Payment.Timeout,
			LockTTL:        cfg.Checkout.VerifyLockTTL,
		}, logger)
	discountUC := usecase.NewDiscountUseCase(be.discounts, logger)

	// ---- HTTP ----
	srv := api.NewServer(api.Deps{
		Pricing:      pricingUC,
		Checkout:     checkoutUC,
		Verification: verificationUC,
		Plans:        planUC,
		Discounts:    discountUC,
		Auth:         api.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Limiter:      be.limiter,
		Logger:       logger,
		Catalog:      i18n.MustCatalog(i18n.LocalesFS, "fa"),
	}, api.Options{
		RequestTimeout: cfg.HTTP.RequestTimeout,
		RateLimit:      cfg.RateLimit.Requests,
		RateWindow:     cfg.RateLimit.Window,
		AppURL:         cfg.HTTP.AppURL,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	})
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Router(),
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Strs("gateways", registry.Names()).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown requested")
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildBackend(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*backend, error) {
	be := &backend{}

	if cfg.Database.URL == "" {
		// only reachable in -dev; Validate requires a database otherwise
		logger.Warn().Msg("database.url empty; using in-memory storage")
		store := memory.NewStore()
		be.tm = store
		be.plans = memory.NewPlanRepo(store)
		be.discounts = memory.NewDiscountRepo(store)
		be.payments = memory.NewPaymentRepo(store)
		be.subs = memory.NewSubscriptionRepo(store)
		be.profiles = memory.NewProfileRepo(store)
	} else {
		pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		be.closers = append(be.closers, pool.Close)
		if err := pg.Migrate(ctx, pool, logger); err != nil {
			be.Close()
			return nil, err
		}
		go pg.ReportPoolStats(ctx, pool, 15*time.Second)

		be.tm = pg.NewTxManager(pool)
		be.plans = pg.NewPostgresPlanRepo(pool)
		be.discounts = pg.NewDiscountRepo(pool)
		be.payments = pg.NewPaymentRepo(pool)
		be.subs = pg.NewSubscriptionRepo(pool)
		be.profiles = pg.NewProfileRepo(pool)
	}

	if cfg.Redis.URL == "" {
		logger.Warn().Msg("redis.url empty; quotes, locks and rate limits are process-local")
		be.quotes = memory.NewQuoteStore(nil)
		be.locker = memory.NewLocker()
		be.limiter = memory.NewRateLimiter()
		return be, nil
	}

	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		be.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	be.closers = append(be.closers, func() { _ = redisClient.Close() })
	be.quotes = red.NewQuoteStore(redisClient)
	be.locker = red.NewLocker(redisClient)
	be.limiter = red.NewRateLimiter(redisClient)
	be.plans = pg.NewPlanRepoCacheDecorator(be.plans, redisClient, logger)
	return be, nil
}

func buildGateways(cfg *config.Config, logger *zerolog.Logger) (*payAdapters.Registry, error) {
	var gws []adapter.PaymentGateway

	if zp := cfg.Payment.ZarinPal; zp.MerchantID != "" {
		gw, err := payAdapters.NewZarinPalGateway(payAdapters.ZarinPalOptions{
			MerchantID:  zp.MerchantID,
			CallbackURL: cfg.HTTP.PublicURL + "/api/v1/payments/callback/" + payAdapters.ProviderZarinPal,
			Sandbox:     zp.Sandbox,
			Currency:    zp.Currency,
			Timeout:     cfg.Payment.Timeout,
			BaseURL:     zp.BaseURL,
			StartPayURL: zp.StartPayURL,
		})
		if err != nil {
			return nil, fmt.Errorf("zarinpal gateway: %w", err)
		}
		gws = append(gws, gw)
	}

	if pp := cfg.Payment.ParsPal; pp.APIKey != "" {
		gw, err := payAdapters.NewParsPalGateway(payAdapters.ParsPalOptions{
			APIKey:    pp.APIKey,
			ReturnURL: cfg.HTTP.PublicURL + "/api/v1/payments/callback/" + payAdapters.ProviderParsPal,
			Sandbox:   pp.Sandbox,
			Currency:  pp.Currency,
			Timeout:   cfg.Payment.Timeout,
			BaseURL:   pp.BaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("parspal gateway: %w", err)
		}
		gws = append(gws, gw)
	}

	if cfg.Runtime.Dev {
		logger.Warn().Msg("noop payment gateway enabled")
		gws = append(gws, payAdapters.NewNoopPaymentGateway())
	}
	return payAdapters.NewRegistry(gws...), nil
}

func buildPublisher(cfg *config.Config, logger *zerolog.Logger) (adapter.EventPublisher, error) {
	if cfg.RabbitMQ.URL == "" {
		logger.Warn().Msg("rabbitmq.url empty; payment events are only logged")
		return notify.NewNoopPublisher(logger), nil
	}
	p, err := notify.NewRabbitPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, logger)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: %w", err)
	}
	return p, nil
}
