package payment

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"medcontent-subscription/internal/domain"
	"medcontent-subscription/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopPaymentGateway)(nil)

const ProviderNoop = "noop"

// NoopPaymentGateway is an in-memory gateway for tests and dev mode. It
// behaves like the redirect-then-verify providers: amounts must match on
// verify and a second verify reports AlreadyVerified.
type NoopPaymentGateway struct {
	mu       sync.Mutex
	seq      int64
	intents  map[string]int64 // authority -> requested amount (IRR)
	verified map[string]string
	refs     map[string]string
	next     []string

	RequestErr  error
	VerifyErr   error
	VerifyCalls int
}

func NewNoopPaymentGateway() *NoopPaymentGateway {
	return &NoopPaymentGateway{
		intents:  make(map[string]int64),
		verified: make(map[string]string),
		refs:     make(map[string]string),
	}
}

func (g *NoopPaymentGateway) Name() string { return ProviderNoop }

// QueueAuthority makes the next RequestPayment calls hand out the given authorities.
func (g *NoopPaymentGateway) QueueAuthority(authorities ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next = append(g.next, authorities...)
}

// SetRefID fixes the ref id returned when authority is verified.
func (g *NoopPaymentGateway) SetRefID(authority, refID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refs[authority] = refID
}

// SetError replaces the injected request and verify errors.
func (g *NoopPaymentGateway) SetError(requestErr, verifyErr error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.RequestErr = requestErr
	g.VerifyErr = verifyErr
}

func (g *NoopPaymentGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.VerifyCalls
}

func (g *NoopPaymentGateway) nextAuthority() string {
	if len(g.next) > 0 {
		a := g.next[0]
		g.next = g.next[1:]
		return a
	}
	g.seq++
	return fmt.Sprintf("noop-%d", g.seq)
}

func (g *NoopPaymentGateway) RequestPayment(ctx context.Context, req adapter.PaymentRequest) (adapter.PaymentHandle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return adapter.PaymentHandle{}, unavailable(ProviderNoop, "request", "context done", err)
	}
	if g.RequestErr != nil {
		return adapter.PaymentHandle{}, g.RequestErr
	}
	if req.Amount <= 0 {
		return adapter.PaymentHandle{}, domain.ErrAmountTooLow
	}
	authority := g.nextAuthority()
	g.intents[authority] = req.Amount
	return adapter.PaymentHandle{Authority: authority, RedirectURL: "https://example.test/pay/" + authority}, nil
}

// ParseCallback accepts Authority/Status like ZarinPal; Status=FAIL reports a failure.
func (g *NoopPaymentGateway) ParseCallback(params map[string]string) (adapter.CallbackResult, error) {
	authority := strings.TrimSpace(params["Authority"])
	if authority == "" {
		return adapter.CallbackResult{}, fmt.Errorf("%w: missing Authority", domain.ErrInvalidArgument)
	}
	status := strings.TrimSpace(params["Status"])
	res := adapter.CallbackResult{Authority: authority, Status: status, Outcome: adapter.OutcomeCancelled}
	switch strings.ToUpper(status) {
	case "OK":
		res.Outcome = adapter.OutcomeSuccess
	case "FAIL":
		res.Outcome = adapter.OutcomeFailed
	}
	return res, nil
}

func (g *NoopPaymentGateway) VerifyPayment(ctx context.Context, req adapter.VerifyRequest) (adapter.VerifyResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.VerifyCalls++
	if g.VerifyErr != nil {
		return adapter.VerifyResult{}, g.VerifyErr
	}
	exp, ok := g.intents[req.Authority]
	if !ok {
		return adapter.VerifyResult{}, rejected(ProviderNoop, "verify", "-54", "authority not found")
	}
	if exp != req.Amount {
		return adapter.VerifyResult{}, rejected(ProviderNoop, "verify", "-50", fmt.Sprintf("amount mismatch: expected %d got %d", exp, req.Amount))
	}
	if ref, done := g.verified[req.Authority]; done {
		return adapter.VerifyResult{RefID: ref, AlreadyVerified: true}, nil
	}
	ref := g.refs[req.Authority]
	if ref == "" {
		ref = "ref-" + req.Authority
	}
	g.verified[req.Authority] = ref
	return adapter.VerifyResult{RefID: ref, CardInfo: "6037****0000"}, nil
}
