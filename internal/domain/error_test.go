//go:build !integration

package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"medcontent-subscription/internal/domain"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want domain.Kind
	}{
		{"expired quote is user recoverable", domain.ErrQuoteExpired, domain.KindUserRecoverable},
		{"wrapped exhausted discount", fmt.Errorf("quote: %w", domain.ErrDiscountExhausted), domain.KindUserRecoverable},
		{"closed payment re-verify", domain.ErrPaymentClosed, domain.KindUserRecoverable},
		{"gateway timeout is transient", fmt.Errorf("verify: %w", domain.ErrGatewayUnavailable), domain.KindTransient},
		{"gateway rejection", domain.ErrGatewayRejected, domain.KindGatewayFailure},
		{"invariant wins over other sentinels", errors.Join(domain.ErrInvariantViolation, domain.ErrNotFound), domain.KindInvariant},
		{"forbidden", domain.ErrForbidden, domain.KindForbidden},
		{"plan in use", domain.ErrPlanInUse, domain.KindConflict},
		{"unknown error is internal", errors.New("boom"), domain.KindInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, domain.Classify(tc.err))
		})
	}
}
