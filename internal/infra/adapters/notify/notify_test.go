//go:build !integration

package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medcontent-subscription/internal/domain/ports/adapter"
	"medcontent-subscription/internal/infra/adapters/notify"
)

func TestNoopPublisher(t *testing.T) {
	t.Run("should record published events in order", func(t *testing.T) {
		p := notify.NewNoopPublisher(nil)
		ctx := context.Background()

		require.NoError(t, p.PublishPaymentEvent(ctx, adapter.PaymentEvent{Type: adapter.EventPaymentCompleted, PaymentID: "p1", OccurredAt: time.Now()}))
		require.NoError(t, p.PublishPaymentEvent(ctx, adapter.PaymentEvent{Type: adapter.EventPaymentFailed, PaymentID: "p2", OccurredAt: time.Now()}))

		evs := p.Events()
		require.Len(t, evs, 2)
		assert.Equal(t, adapter.EventPaymentCompleted, evs[0].Type)
		assert.Equal(t, "p2", evs[1].PaymentID)
	})
}

func TestNewRabbitPublisher_RejectsBadURL(t *testing.T) {
	_, err := notify.NewRabbitPublisher("http://localhost:5672", "", nil)
	assert.Error(t, err)
}
