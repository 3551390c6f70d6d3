package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"medcontent-subscription/internal/infra/i18n"
	"medcontent-subscription/internal/usecase"
)

// Deps are the use cases and collaborators behind the HTTP surface.
type Deps struct {
	Pricing      usecase.PricingUseCase
	Checkout     usecase.CheckoutUseCase
	Verification usecase.VerificationUseCase
	Plans        *usecase.PlanUseCase
	Discounts    usecase.DiscountUseCase
	Auth         *Authenticator
	Limiter      Limiter
	Logger       *zerolog.Logger

	// Catalog localises the gateway callback page; the embedded catalog is used when nil.
	Catalog *i18n.Catalog
}

type Options struct {
	RequestTimeout time.Duration
	RateLimit      int
	RateWindow     time.Duration

	// AppURL is linked from the callback result page when set.
	AppURL string

	// AllowedOrigins enables CORS for browser clients; empty disables it.
	AllowedOrigins []string
}

type Server struct {
	pricing      usecase.PricingUseCase
	checkout     usecase.CheckoutUseCase
	verification usecase.VerificationUseCase
	plans        *usecase.PlanUseCase
	discounts    usecase.DiscountUseCase
	auth         *Authenticator
	limiter      Limiter
	opts         Options
	log          *zerolog.Logger
	catalog      *i18n.Catalog
}

func NewServer(d Deps, opts Options) *Server {
	logger := d.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 25 * time.Second
	}
	catalog := d.Catalog
	if catalog == nil {
		catalog = i18n.MustCatalog(i18n.LocalesFS, "fa")
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = time.Minute
	}
	return &Server{
		pricing:      d.Pricing,
		checkout:     d.Checkout,
		verification: d.Verification,
		plans:        d.Plans,
		discounts:    d.Discounts,
		auth:         d.Auth,
		limiter:      d.Limiter,
		opts:         opts,
		log:          logger,
		catalog:      catalog,
	}
}

// Router builds the full route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log))
	if len(s.opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", traceHeader},
			ExposedHeaders: []string{traceHeader, "Retry-After"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Timeout(s.opts.RequestTimeout))

		r.Get("/plans", s.handleListPlans)
		r.Get("/plans/{planID}", s.handleGetPlan)

		// Gateways redirect the browser here; no bearer token is available.
		r.Get("/payments/callback/{provider}", s.handleCallback)
		r.Post("/payments/callback/{provider}", s.handleCallback)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequireUser)

			r.With(RateLimit(s.limiter, "quote", s.opts.RateLimit, s.opts.RateWindow, s.log)).
				Post("/plans/{planID}/quote", s.handleQuote)
			r.With(RateLimit(s.limiter, "create_payment", s.opts.RateLimit, s.opts.RateWindow, s.log)).
				Post("/payments", s.handleCreatePayment)
			r.Post("/payments/verify", s.handleVerify)

			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Post("/memberships", s.handleCreateMembership)
				r.Post("/plans", s.handleCreatePlan)
				r.Delete("/plans/{planID}", s.handleDeletePlan)
				r.Post("/discounts", s.handleCreateDiscount)
				r.Get("/discounts/{code}", s.handleGetDiscount)
			})
		})
	})
	return r
}
