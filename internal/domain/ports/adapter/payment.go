package adapter

import (
	"context"
	"fmt"
	"strings"

	"medcontent-subscription/internal/domain"
)

type Payer struct {
	Name   string
	Mobile string
	Email  string
}

// PaymentRequest asks a provider for a payment handle. Amount is in rials;
// adapters convert to the provider's unit themselves.
type PaymentRequest struct {
	OrderID     string // local payment id
	Amount      int64
	Description string
	CallbackURL string
	Metadata    map[string]string
	Payer       Payer
}

type PaymentHandle struct {
	Authority   string // correlation token used for every later call
	RedirectURL string
}

type CallbackOutcome string

const (
	OutcomeSuccess   CallbackOutcome = "success"
	OutcomeCancelled CallbackOutcome = "cancelled"
	OutcomeFailed    CallbackOutcome = "failed"
	OutcomePending   CallbackOutcome = "pending"
)

// CallbackResult is a provider callback reduced to what the coordinator needs.
type CallbackResult struct {
	Authority string
	Outcome   CallbackOutcome
	Proof     string // receipt number for providers that verify by receipt
	Status    string // raw provider status, for logs
}

type VerifyRequest struct {
	Authority string
	Proof     string
	Amount    int64 // exactly the amount originally requested, in rials
}

type VerifyResult struct {
	RefID           string
	CardInfo        string
	AlreadyVerified bool // provider reported an earlier successful verify
}

// PaymentInquirer is implemented by gateways that can report the state of a
// payment without a callback. OutcomePending means the user has not paid yet.
type PaymentInquirer interface {
	Inquire(ctx context.Context, authority string) (CallbackResult, error)
}

// PaymentGateway is the hex port for payment providers. Implementations never
// retry and never touch local state.
type PaymentGateway interface {
	Name() string
	RequestPayment(ctx context.Context, req PaymentRequest) (PaymentHandle, error)
	ParseCallback(params map[string]string) (CallbackResult, error)
	VerifyPayment(ctx context.Context, req VerifyRequest) (VerifyResult, error)
}

// GatewayError carries a provider failure. It matches domain.ErrGatewayUnavailable
// when Temporary is set and domain.ErrGatewayRejected otherwise.
type GatewayError struct {
	Provider  string
	Op        string
	Code      string
	Message   string
	Temporary bool
	Err       error
}

func (e *GatewayError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Provider, e.Op)
	if e.Code != "" {
		fmt.Fprintf(&b, ": code=%s", e.Code)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *GatewayError) Unwrap() []error {
	kind := domain.ErrGatewayRejected
	if e.Temporary {
		kind = domain.ErrGatewayUnavailable
	}
	if e.Err == nil {
		return []error{kind}
	}
	return []error{kind, e.Err}
}
