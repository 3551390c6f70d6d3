package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"medcontent-subscription/internal/domain"
	"medcontent-subscription/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*ZarinPalGateway)(nil)

const (
	ProviderZarinPal = "zarinpal"

	zpCodeSuccess         = 100
	zpCodeAlreadyVerified = 101
)

type ZarinPalOptions struct {
	MerchantID  string
	CallbackURL string
	Sandbox     bool
	Currency    string // IRR or IRT
	Timeout     time.Duration
	// BaseURL and StartPayURL override the public endpoints.
	BaseURL     string
	StartPayURL string
}

// ZarinPalGateway implements the redirect-then-verify flow of the ZarinPal v4
// REST API. Verify is idempotent at the provider: code 101 reports an
// authority that was verified before.
type ZarinPalGateway struct {
	merchantID  string
	callback    string
	currency    string
	baseURL     string
	startPayURL string
	client      *http.Client
}

func NewZarinPalGateway(opts ZarinPalOptions) (*ZarinPalGateway, error) {
	if opts.MerchantID == "" {
		return nil, errors.New("merchant id empty")
	}
	if _, err := url.Parse(opts.CallbackURL); err != nil {
		return nil, fmt.Errorf("invalid callback url: %w", err)
	}
	if !validUnit(opts.Currency) {
		return nil, fmt.Errorf("invalid currency unit %q", opts.Currency)
	}
	z := &ZarinPalGateway{
		merchantID:  opts.MerchantID,
		callback:    opts.CallbackURL,
		currency:    opts.Currency,
		baseURL:     "https://api.zarinpal.com/pg/v4",
		startPayURL: "https://www.zarinpal.com/pg/StartPay",
		client:      newHTTPClient(opts.Timeout),
	}
	if z.currency == "" {
		z.currency = UnitRial
	}
	if opts.Sandbox {
		z.baseURL = "https://sandbox.zarinpal.com/pg/v4"
		z.startPayURL = "https://sandbox.zarinpal.com/pg/StartPay"
	}
	if opts.BaseURL != "" {
		z.baseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if opts.StartPayURL != "" {
		z.startPayURL = strings.TrimRight(opts.StartPayURL, "/")
	}
	return z, nil
}

func (z *ZarinPalGateway) Name() string { return ProviderZarinPal }

func (z *ZarinPalGateway) endpoint(path string) string { return z.baseURL + path }

// zpEnvelope is the v4 response shape. Either side may be an empty JSON array.
type zpEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

type zpError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (z *ZarinPalGateway) decode(op string, status int, raw []byte, data any) error {
	var env zpEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return unavailable(ProviderZarinPal, op, fmt.Sprintf("malformed response (http %d)", status), err)
	}
	if isJSONObject(env.Errors) {
		var e zpError
		if err := json.Unmarshal(env.Errors, &e); err == nil && e.Code != 0 {
			return rejected(ProviderZarinPal, op, strconv.Itoa(e.Code), e.Message)
		}
	}
	if status >= 300 || !isJSONObject(env.Data) {
		return unavailable(ProviderZarinPal, op, fmt.Sprintf("unexpected response (http %d)", status), nil)
	}
	if err := json.Unmarshal(env.Data, data); err != nil {
		return unavailable(ProviderZarinPal, op, "malformed data", err)
	}
	return nil
}

// RequestPayment calls /payment/request.json and returns the authority and StartPay URL.
func (z *ZarinPalGateway) RequestPayment(ctx context.Context, req adapter.PaymentRequest) (h adapter.PaymentHandle, err error) {
	defer observe(ProviderZarinPal, "request", time.Now(), &err)

	amount, err := toProviderAmount(z.currency, req.Amount)
	if err != nil {
		return adapter.PaymentHandle{}, err
	}
	callbackURL := req.CallbackURL
	if callbackURL == "" {
		callbackURL = z.callback
	}
	payload := map[string]any{
		"merchant_id":  z.merchantID,
		"amount":       amount,
		"currency":     z.currency,
		"description":  req.Description,
		"callback_url": callbackURL,
	}
	meta := map[string]string{}
	for k, v := range req.Metadata {
		meta[k] = v
	}
	if req.Payer.Mobile != "" {
		meta["mobile"] = req.Payer.Mobile
	}
	if req.Payer.Email != "" {
		meta["email"] = req.Payer.Email
	}
	if req.OrderID != "" {
		meta["order_id"] = req.OrderID
	}
	if len(meta) > 0 {
		payload["metadata"] = meta
	}

	status, raw, err := postJSON(ctx, z.client, ProviderZarinPal, "request", z.endpoint("/payment/request.json"), nil, payload)
	if err != nil {
		return adapter.PaymentHandle{}, err
	}
	var out struct {
		Code      int    `json:"code"`
		Message   string `json:"message"`
		Authority string `json:"authority"`
	}
	if err := z.decode("request", status, raw, &out); err != nil {
		return adapter.PaymentHandle{}, err
	}
	if out.Code != zpCodeSuccess || out.Authority == "" {
		return adapter.PaymentHandle{}, rejected(ProviderZarinPal, "request", strconv.Itoa(out.Code), out.Message)
	}
	return adapter.PaymentHandle{
		Authority:   out.Authority,
		RedirectURL: z.startPayURL + "/" + out.Authority,
	}, nil
}

// ParseCallback reads the Authority and Status query parameters.
// Any status other than OK means the user did not complete the payment.
func (z *ZarinPalGateway) ParseCallback(params map[string]string) (adapter.CallbackResult, error) {
	authority := strings.TrimSpace(params["Authority"])
	if authority == "" {
		return adapter.CallbackResult{}, fmt.Errorf("%w: missing Authority", domain.ErrInvalidArgument)
	}
	status := strings.TrimSpace(params["Status"])
	outcome := adapter.OutcomeCancelled
	if strings.EqualFold(status, "OK") {
		outcome = adapter.OutcomeSuccess
	}
	return adapter.CallbackResult{Authority: authority, Outcome: outcome, Status: status}, nil
}

// VerifyPayment calls /payment/verify.json with the amount that was requested.
func (z *ZarinPalGateway) VerifyPayment(ctx context.Context, req adapter.VerifyRequest) (res adapter.VerifyResult, err error) {
	defer observe(ProviderZarinPal, "verify", time.Now(), &err)

	amount, err := toProviderAmount(z.currency, req.Amount)
	if err != nil {
		return adapter.VerifyResult{}, err
	}
	payload := map[string]any{
		"merchant_id": z.merchantID,
		"amount":      amount,
		"authority":   req.Authority,
	}
	status, raw, err := postJSON(ctx, z.client, ProviderZarinPal, "verify", z.endpoint("/payment/verify.json"), nil, payload)
	if err != nil {
		return adapter.VerifyResult{}, err
	}
	var out struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		RefID   json.RawMessage `json:"ref_id"`
		CardPan string          `json:"card_pan"`
	}
	if err := z.decode("verify", status, raw, &out); err != nil {
		return adapter.VerifyResult{}, err
	}
	if out.Code != zpCodeSuccess && out.Code != zpCodeAlreadyVerified {
		return adapter.VerifyResult{}, rejected(ProviderZarinPal, "verify", strconv.Itoa(out.Code), out.Message)
	}
	refID := scalarString(out.RefID)
	if refID == "" || refID == "0" {
		return adapter.VerifyResult{}, unavailable(ProviderZarinPal, "verify", "success without ref_id", nil)
	}
	return adapter.VerifyResult{
		RefID:           refID,
		CardInfo:        out.CardPan,
		AlreadyVerified: out.Code == zpCodeAlreadyVerified,
	}, nil
}

func isJSONObject(raw json.RawMessage) bool {
	for _, c := range raw {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		case '{':
			return true
		default:
			return false
		}
	}
	return false
}

// scalarString renders a JSON number or string as text; null and objects give "".
func scalarString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
