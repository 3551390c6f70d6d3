package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"medcontent-subscription/internal/domain"
	"medcontent-subscription/internal/domain/ports/adapter"
)

var (
	_ adapter.PaymentGateway  = (*ParsPalGateway)(nil)
	_ adapter.PaymentInquirer = (*ParsPalGateway)(nil)
)

const (
	ProviderParsPal = "parspal"

	ppCallbackPaid      = "100"
	ppCallbackCancelled = "99"

	ppRequestAccepted  = "ACCEPTED"
	ppVerifySuccessful = "SUCCESSFUL"
	ppVerifyVerified   = "VERIFIED"
)

// Inquiry states; anything not listed is treated as still pending.
var (
	ppInquiryPaid      = []string{"PAID", "SUCCESSFUL", "VERIFIED"}
	ppInquiryCancelled = []string{"CANCELED", "CANCELLED"}
	ppInquiryFailed    = []string{"FAILED", "REJECTED", "EXPIRED"}
)

type ParsPalOptions struct {
	APIKey    string
	ReturnURL string
	Sandbox   bool
	Currency  string // IRR or IRT
	Timeout   time.Duration
	BaseURL   string // overrides the public endpoint
}

// ParsPalGateway implements the request-then-verify-by-receipt flow: the
// provider POSTs a callback with a receipt number and verify takes that
// receipt instead of the order id.
type ParsPalGateway struct {
	apiKey    string
	returnURL string
	currency  string
	baseURL   string
	client    *http.Client
}

func NewParsPalGateway(opts ParsPalOptions) (*ParsPalGateway, error) {
	if opts.APIKey == "" {
		return nil, errors.New("api key empty")
	}
	if _, err := url.Parse(opts.ReturnURL); err != nil {
		return nil, fmt.Errorf("invalid return url: %w", err)
	}
	if !validUnit(opts.Currency) {
		return nil, fmt.Errorf("invalid currency unit %q", opts.Currency)
	}
	p := &ParsPalGateway{
		apiKey:    opts.APIKey,
		returnURL: opts.ReturnURL,
		currency:  opts.Currency,
		baseURL:   "https://api.parspal.com/v1/payment",
		client:    newHTTPClient(opts.Timeout),
	}
	if p.currency == "" {
		p.currency = UnitRial
	}
	if opts.Sandbox {
		p.baseURL = "https://sandbox.api.parspal.com/v1/payment"
	}
	if opts.BaseURL != "" {
		p.baseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	return p, nil
}

func (p *ParsPalGateway) Name() string { return ProviderParsPal }

func (p *ParsPalGateway) headers() map[string]string {
	return map[string]string{"ApiKey": p.apiKey}
}

type ppResponse struct {
	PaymentID string `json:"payment_id"`
	Link      string `json:"link"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

func (p *ParsPalGateway) decode(op string, status int, raw []byte) (*ppResponse, error) {
	var out ppResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, unavailable(ProviderParsPal, op, fmt.Sprintf("malformed response (http %d)", status), err)
	}
	switch {
	case status >= 500:
		return nil, unavailable(ProviderParsPal, op, fmt.Sprintf("http %d", status), nil)
	case status >= 300 && out.Status == "":
		return nil, unavailable(ProviderParsPal, op, fmt.Sprintf("unexpected response (http %d)", status), nil)
	case status >= 300:
		return nil, rejected(ProviderParsPal, op, out.Status, out.Message)
	}
	return &out, nil
}

// RequestPayment registers the payment and returns the order id as authority.
func (p *ParsPalGateway) RequestPayment(ctx context.Context, req adapter.PaymentRequest) (h adapter.PaymentHandle, err error) {
	defer observe(ProviderParsPal, "request", time.Now(), &err)

	amount, err := toProviderAmount(p.currency, req.Amount)
	if err != nil {
		return adapter.PaymentHandle{}, err
	}
	returnURL := req.CallbackURL
	if returnURL == "" {
		returnURL = p.returnURL
	}
	orderID := ulid.Make().String()
	reserveID := req.OrderID
	if reserveID == "" {
		reserveID = ulid.Make().String()
	}
	payload := map[string]any{
		"amount":      amount,
		"currency":    p.currency,
		"return_url":  returnURL,
		"reserve_id":  reserveID,
		"order_id":    orderID,
		"description": req.Description,
		"payer": map[string]string{
			"name":   req.Payer.Name,
			"mobile": req.Payer.Mobile,
			"email":  req.Payer.Email,
		},
	}

	status, raw, err := postJSON(ctx, p.client, ProviderParsPal, "request", p.baseURL+"/request", p.headers(), payload)
	if err != nil {
		return adapter.PaymentHandle{}, err
	}
	out, err := p.decode("request", status, raw)
	if err != nil {
		return adapter.PaymentHandle{}, err
	}
	if !strings.EqualFold(out.Status, ppRequestAccepted) || out.Link == "" {
		return adapter.PaymentHandle{}, rejected(ProviderParsPal, "request", out.Status, out.Message)
	}
	return adapter.PaymentHandle{Authority: orderID, RedirectURL: out.Link}, nil
}

// ParseCallback reads status, order_id and receipt_number from the provider POST.
// Status 100 is a completed payment; 99 is a user abort; anything else failed.
func (p *ParsPalGateway) ParseCallback(params map[string]string) (adapter.CallbackResult, error) {
	orderID := strings.TrimSpace(params["order_id"])
	if orderID == "" {
		return adapter.CallbackResult{}, fmt.Errorf("%w: missing order_id", domain.ErrInvalidArgument)
	}
	status := strings.TrimSpace(params["status"])
	res := adapter.CallbackResult{
		Authority: orderID,
		Proof:     strings.TrimSpace(params["receipt_number"]),
		Status:    status,
	}
	switch status {
	case ppCallbackPaid:
		if res.Proof == "" {
			return adapter.CallbackResult{}, fmt.Errorf("%w: missing receipt_number", domain.ErrInvalidArgument)
		}
		res.Outcome = adapter.OutcomeSuccess
	case ppCallbackCancelled:
		res.Outcome = adapter.OutcomeCancelled
	default:
		res.Outcome = adapter.OutcomeFailed
	}
	return res, nil
}

// VerifyPayment settles the payment by receipt number.
func (p *ParsPalGateway) VerifyPayment(ctx context.Context, req adapter.VerifyRequest) (res adapter.VerifyResult, err error) {
	defer observe(ProviderParsPal, "verify", time.Now(), &err)

	if req.Proof == "" {
		return adapter.VerifyResult{}, fmt.Errorf("%w: receipt number required", domain.ErrInvalidArgument)
	}
	amount, err := toProviderAmount(p.currency, req.Amount)
	if err != nil {
		return adapter.VerifyResult{}, err
	}
	payload := map[string]any{
		"amount":         amount,
		"receipt_number": req.Proof,
	}
	status, raw, err := postJSON(ctx, p.client, ProviderParsPal, "verify", p.baseURL+"/verify", p.headers(), payload)
	if err != nil {
		return adapter.VerifyResult{}, err
	}
	out, err := p.decode("verify", status, raw)
	if err != nil {
		return adapter.VerifyResult{}, err
	}
	switch strings.ToUpper(out.Status) {
	case ppVerifySuccessful:
		return adapter.VerifyResult{RefID: req.Proof}, nil
	case ppVerifyVerified:
		return adapter.VerifyResult{RefID: req.Proof, AlreadyVerified: true}, nil
	default:
		return adapter.VerifyResult{}, rejected(ProviderParsPal, "verify", out.Status, out.Message)
	}
}

type ppInquiry struct {
	Status        string `json:"status"`
	ReceiptNumber string `json:"receipt_number"`
	Message       string `json:"message"`
}

// Inquire asks the provider for the state of an order. It lets a user confirm
// without a receipt recover the receipt the callback would have carried.
func (p *ParsPalGateway) Inquire(ctx context.Context, authority string) (res adapter.CallbackResult, err error) {
	defer observe(ProviderParsPal, "inquiry", time.Now(), &err)

	if authority == "" {
		return adapter.CallbackResult{}, fmt.Errorf("%w: order id required", domain.ErrInvalidArgument)
	}
	status, raw, err := postJSON(ctx, p.client, ProviderParsPal, "inquiry", p.baseURL+"/inquiry", p.headers(),
		map[string]string{"order_id": authority})
	if err != nil {
		return adapter.CallbackResult{}, err
	}
	if status >= 500 {
		return adapter.CallbackResult{}, unavailable(ProviderParsPal, "inquiry", fmt.Sprintf("http %d", status), nil)
	}
	var out ppInquiry
	if err := json.Unmarshal(raw, &out); err != nil {
		return adapter.CallbackResult{}, unavailable(ProviderParsPal, "inquiry", fmt.Sprintf("malformed response (http %d)", status), err)
	}
	if status >= 300 {
		return adapter.CallbackResult{}, rejected(ProviderParsPal, "inquiry", out.Status, out.Message)
	}

	res = adapter.CallbackResult{
		Authority: authority,
		Proof:     strings.TrimSpace(out.ReceiptNumber),
		Status:    out.Status,
		Outcome:   adapter.OutcomePending,
	}
	state := strings.ToUpper(strings.TrimSpace(out.Status))
	switch {
	case slices.Contains(ppInquiryPaid, state):
		if res.Proof == "" {
			return adapter.CallbackResult{}, unavailable(ProviderParsPal, "inquiry", "paid order without receipt number", nil)
		}
		res.Outcome = adapter.OutcomeSuccess
	case slices.Contains(ppInquiryCancelled, state):
		res.Outcome = adapter.OutcomeCancelled
	case slices.Contains(ppInquiryFailed, state):
		res.Outcome = adapter.OutcomeFailed
	}
	return res, nil
}
