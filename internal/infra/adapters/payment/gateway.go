package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"medcontent-subscription/internal/domain"
	"medcontent-subscription/internal/domain/ports/adapter"
	"medcontent-subscription/internal/infra/metrics"
)

const (
	// UnitRial and UnitToman name the amount unit a provider account is set up in.
	// Amounts inside the service are always rials.
	UnitRial  = "IRR"
	UnitToman = "IRT"

	DefaultTimeout = 10 * time.Second

	maxBodyBytes = 1 << 20
)

// toProviderAmount converts rials to the provider's configured unit.
// It is the only place a gateway amount is derived from a local one.
func toProviderAmount(unit string, rials int64) (int64, error) {
	if rials <= 0 {
		return 0, domain.ErrAmountTooLow
	}
	switch unit {
	case "", UnitRial:
		return rials, nil
	case UnitToman:
		if rials%10 != 0 {
			return 0, fmt.Errorf("%w: %d rials is not a whole toman amount", domain.ErrInvalidArgument, rials)
		}
		return rials / 10, nil
	default:
		return 0, fmt.Errorf("%w: unknown currency unit %q", domain.ErrInvalidArgument, unit)
	}
}

func validUnit(unit string) bool {
	return unit == "" || unit == UnitRial || unit == UnitToman
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// postJSON sends one request without retries and returns the status code and body.
// Transport failures come back as temporary gateway errors.
func postJSON(ctx context.Context, client *http.Client, provider, op, url string, headers map[string]string, body any) (int, []byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: encode request: %w", provider, op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: build request: %w", provider, op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, &adapter.GatewayError{Provider: provider, Op: op, Message: "transport error", Temporary: true, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, &adapter.GatewayError{Provider: provider, Op: op, Message: "read response", Temporary: true, Err: err}
	}
	return resp.StatusCode, raw, nil
}

func unavailable(provider, op, msg string, err error) error {
	return &adapter.GatewayError{Provider: provider, Op: op, Message: msg, Temporary: true, Err: err}
}

func rejected(provider, op, code, msg string) error {
	return &adapter.GatewayError{Provider: provider, Op: op, Code: code, Message: msg}
}

// observe records one gateway call; use as defer observe(name, op, time.Now(), &err).
func observe(provider, op string, start time.Time, errp *error) {
	outcome := "ok"
	switch {
	case *errp == nil:
	case errors.Is(*errp, domain.ErrGatewayUnavailable):
		outcome = "unavailable"
	default:
		outcome = "rejected"
	}
	metrics.ObserveGatewayCall(provider, op, outcome, time.Since(start))
}
