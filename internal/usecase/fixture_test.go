//go:build !integration

package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"medcontent-subscription/internal/domain/model"
	"medcontent-subscription/internal/domain/ports/adapter"
	"medcontent-subscription/internal/domain/ports/repository"
	"medcontent-subscription/internal/infra/adapters/notify"
	"medcontent-subscription/internal/infra/adapters/payment"
	"medcontent-subscription/internal/infra/memory"
	"medcontent-subscription/internal/usecase"
)

const (
	testUserID   int64 = 42
	testPlanID   int64 = 3
	testPrice    int64 = 150000
	testDuration       = 30
)

// fixture wires the use cases over the in-memory backend and the scriptable gateway.
type fixture struct {
	store     *memory.Store
	plans     *memory.PlanRepo
	discounts *memory.DiscountRepo
	payments  *memory.PaymentRepo
	subs      *memory.SubscriptionRepo
	profiles  *memory.ProfileRepo
	quotes    *memory.QuoteStore
	locker    *memory.Locker
	gw        *payment.NoopPaymentGateway
	registry  *payment.Registry
	events    *notify.NoopPublisher

	pricing  usecase.PricingUseCase
	checkout usecase.CheckoutUseCase
	verify   usecase.VerificationUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{
		store:     store,
		plans:     memory.NewPlanRepo(store),
		discounts: memory.NewDiscountRepo(store),
		payments:  memory.NewPaymentRepo(store),
		subs:      memory.NewSubscriptionRepo(store),
		profiles:  memory.NewProfileRepo(store),
		quotes:    memory.NewQuoteStore(nil),
		locker:    memory.NewLocker(),
		gw:        payment.NewNoopPaymentGateway(),
		events:    notify.NewNoopPublisher(nil),
	}
	f.pricing = usecase.NewPricingUseCase(f.plans, f.discounts, f.profiles, f.quotes, 0, nil)
	f.useGateways(f.gw)
	f.seedPlans(t)
	return f
}

// useGateways rebuilds checkout and verification over the given gateways.
func (f *fixture) useGateways(gws ...adapter.PaymentGateway) {
	f.registry = payment.NewRegistry(gws...)
	f.checkout = usecase.NewCheckoutUseCase(f.store, f.plans, f.payments, f.subs, f.quotes, f.registry, f.locker,
		usecase.CheckoutConfig{CallbackBaseURL: "https://api.example.test"}, nil)
	f.verify = f.newVerifier(f.subs)
}

func (f *fixture) newVerifier(subs repository.SubscriptionRepository) usecase.VerificationUseCase {
	return usecase.NewVerificationUseCase(f.store, f.plans, f.payments, subs, f.profiles, f.registry, f.locker, f.events,
		usecase.VerificationConfig{GatewayTimeout: time.Second}, nil)
}

// seedPlans creates plans 1..3; plan 3 is the 30 day plan used by most tests.
func (f *fixture) seedPlans(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	uc := usecase.NewPlanUseCase(f.plans)
	m, err := uc.CreateMembership(ctx, "Premium")
	require.NoError(t, err)
	for _, spec := range []struct {
		name  string
		days  int
		price int64
	}{
		{"Weekly", 7, 50000},
		{"Quarterly", 90, 400000},
		{"Monthly", testDuration, testPrice},
	} {
		_, err := uc.Create(ctx, m.ID, spec.name, spec.days, spec.price)
		require.NoError(t, err)
	}
}

func (f *fixture) putQuote(t *testing.T, userID int64) {
	t.Helper()
	q := &model.Quote{
		PlanID:        testPlanID,
		PlanName:      "Monthly",
		DurationDays:  testDuration,
		OriginalPrice: testPrice,
		FinalPrice:    testPrice,
		CreatedAt:     time.Now(),
	}
	require.NoError(t, f.quotes.Put(context.Background(), userID, testPlanID, q, usecase.DefaultQuoteTTL))
}

// checkout stores a quote and creates a payment that the gateway will know as authority.
func (f *fixture) startCheckout(t *testing.T, userID int64, authority string) *usecase.CreatePaymentResult {
	t.Helper()
	f.putQuote(t, userID)
	f.gw.QueueAuthority(authority)
	res, err := f.checkout.CreatePayment(context.Background(), usecase.CreatePaymentInput{
		UserID:   userID,
		PlanID:   testPlanID,
		Provider: payment.ProviderNoop,
	})
	require.NoError(t, err)
	return res
}

func okCallback(authority string) usecase.VerifyInput {
	return usecase.VerifyInput{
		Provider: payment.ProviderNoop,
		Params:   map[string]string{"Authority": authority, "Status": "OK"},
	}
}

func userPtr(id int64) *int64 { return &id }
