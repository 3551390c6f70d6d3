//go:build !integration

package payment_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medcontent-subscription/internal/domain"
	"medcontent-subscription/internal/domain/ports/adapter"
	"medcontent-subscription/internal/infra/adapters/payment"
)

func newParsPal(t *testing.T, h http.HandlerFunc) *payment.ParsPalGateway {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	gw, err := payment.NewParsPalGateway(payment.ParsPalOptions{
		APIKey:    "key-1",
		ReturnURL: "https://api.example.test/api/v1/payments/callback/parspal",
		Timeout:   200 * time.Millisecond,
		BaseURL:   srv.URL,
	})
	require.NoError(t, err)
	return gw
}

func TestParsPal_RequestPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("should send api key and return the order id as authority", func(t *testing.T) {
		// --- Arrange ---
		var got map[string]any
		gw := newParsPal(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/request", r.URL.Path)
			assert.Equal(t, "key-1", r.Header.Get("ApiKey"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_, _ = w.Write([]byte(`{"payment_id":"p-1","link":"https://gw.example.test/p-1","status":"ACCEPTED","message":"ok"}`))
		})

		// --- Act ---
		h, err := gw.RequestPayment(ctx, adapter.PaymentRequest{
			OrderID: "pay-1",
			Amount:  150000,
			Payer:   adapter.Payer{Name: "Sara", Mobile: "09120000000"},
		})

		// --- Assert ---
		require.NoError(t, err)
		assert.Equal(t, "https://gw.example.test/p-1", h.RedirectURL)
		assert.NotEmpty(t, h.Authority)
		assert.Equal(t, h.Authority, got["order_id"])
		assert.Equal(t, "pay-1", got["reserve_id"])
		assert.EqualValues(t, 150000, got["amount"])
		payer, ok := got["payer"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "09120000000", payer["mobile"])
	})

	t.Run("4xx with status is a rejection", func(t *testing.T) {
		gw := newParsPal(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status":"INVALID_API_KEY","message":"api key is not valid"}`))
		})

		_, err := gw.RequestPayment(ctx, adapter.PaymentRequest{Amount: 1000})

		assert.ErrorIs(t, err, domain.ErrGatewayRejected)
	})

	t.Run("5xx is transient", func(t *testing.T) {
		gw := newParsPal(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"ERROR"}`))
		})

		_, err := gw.RequestPayment(ctx, adapter.PaymentRequest{Amount: 1000})

		assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
	})
}

func TestParsPal_ParseCallback(t *testing.T) {
	gw, err := payment.NewParsPalGateway(payment.ParsPalOptions{APIKey: "k"})
	require.NoError(t, err)

	t.Run("status 100 carries the receipt", func(t *testing.T) {
		cb, err := gw.ParseCallback(map[string]string{"status": "100", "order_id": "O1", "receipt_number": "R99"})
		require.NoError(t, err)
		assert.Equal(t, adapter.OutcomeSuccess, cb.Outcome)
		assert.Equal(t, "O1", cb.Authority)
		assert.Equal(t, "R99", cb.Proof)
	})

	t.Run("status 99 is a user abort", func(t *testing.T) {
		cb, err := gw.ParseCallback(map[string]string{"status": "99", "order_id": "O1"})
		require.NoError(t, err)
		assert.Equal(t, adapter.OutcomeCancelled, cb.Outcome)
	})

	t.Run("other statuses are failures", func(t *testing.T) {
		cb, err := gw.ParseCallback(map[string]string{"status": "88", "order_id": "O1"})
		require.NoError(t, err)
		assert.Equal(t, adapter.OutcomeFailed, cb.Outcome)
	})

	t.Run("success without receipt is invalid", func(t *testing.T) {
		_, err := gw.ParseCallback(map[string]string{"status": "100", "order_id": "O1"})
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
}

func TestParsPal_VerifyPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("should verify by receipt number", func(t *testing.T) {
		var got map[string]any
		gw := newParsPal(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/verify", r.URL.Path)
			_ = json.NewDecoder(r.Body).Decode(&got)
			_, _ = w.Write([]byte(`{"status":"SUCCESSFUL","paid_amount":150000,"message":"done"}`))
		})

		res, err := gw.VerifyPayment(ctx, adapter.VerifyRequest{Authority: "O1", Proof: "R99", Amount: 150000})

		require.NoError(t, err)
		assert.Equal(t, "R99", res.RefID)
		assert.False(t, res.AlreadyVerified)
		assert.Equal(t, "R99", got["receipt_number"])
		assert.EqualValues(t, 150000, got["amount"])
	})

	t.Run("VERIFIED is a successful repeat", func(t *testing.T) {
		gw := newParsPal(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"VERIFIED"}`))
		})

		res, err := gw.VerifyPayment(ctx, adapter.VerifyRequest{Proof: "R99", Amount: 150000})

		require.NoError(t, err)
		assert.True(t, res.AlreadyVerified)
	})

	t.Run("unsuccessful status is a rejection", func(t *testing.T) {
		gw := newParsPal(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"UNSUCCESSFUL","message":"payment not completed"}`))
		})

		_, err := gw.VerifyPayment(ctx, adapter.VerifyRequest{Proof: "R99", Amount: 150000})

		assert.ErrorIs(t, err, domain.ErrGatewayRejected)
	})

	t.Run("missing receipt never reaches the provider", func(t *testing.T) {
		called := false
		gw := newParsPal(t, func(w http.ResponseWriter, r *http.Request) { called = true })

		_, err := gw.VerifyPayment(ctx, adapter.VerifyRequest{Authority: "O1", Amount: 150000})

		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		assert.False(t, called)
	})
}

func TestParsPal_Inquire(t *testing.T) {
	ctx := context.Background()

	t.Run("should look the order up and return its receipt", func(t *testing.T) {
		var got map[string]any
		gw := newParsPal(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/inquiry", r.URL.Path)
			assert.Equal(t, "key-1", r.Header.Get("ApiKey"))
			_ = json.NewDecoder(r.Body).Decode(&got)
			_, _ = w.Write([]byte(`{"status":"paid","receipt_number":" R42 "}`))
		})

		res, err := gw.Inquire(ctx, "O1")

		require.NoError(t, err)
		assert.Equal(t, "O1", got["order_id"])
		assert.Equal(t, adapter.OutcomeSuccess, res.Outcome)
		assert.Equal(t, "R42", res.Proof)
		assert.Equal(t, "O1", res.Authority)
	})

	t.Run("maps provider states to outcomes", func(t *testing.T) {
		cases := map[string]adapter.CallbackOutcome{
			`{"status":"CANCELED"}`: adapter.OutcomeCancelled,
			`{"status":"EXPIRED"}`:  adapter.OutcomeFailed,
			`{"status":"PENDING"}`:  adapter.OutcomePending,
			`{"status":"UNKNOWN"}`:  adapter.OutcomePending,
		}
		for body, want := range cases {
			gw := newParsPal(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})

			res, err := gw.Inquire(ctx, "O1")

			require.NoError(t, err, body)
			assert.Equal(t, want, res.Outcome, body)
		}
	})

	t.Run("paid without receipt is transient", func(t *testing.T) {
		gw := newParsPal(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"PAID"}`))
		})

		_, err := gw.Inquire(ctx, "O1")

		assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
	})

	t.Run("4xx is a rejection and 5xx is transient", func(t *testing.T) {
		bad := newParsPal(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status":"NOT_FOUND","message":"order not found"}`))
		})
		down := newParsPal(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := bad.Inquire(ctx, "O1")
		assert.ErrorIs(t, err, domain.ErrGatewayRejected)
		_, err = down.Inquire(ctx, "O1")
		assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
	})
}
