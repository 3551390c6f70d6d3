package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"medcontent-subscription/internal/domain/ports/adapter"
	"medcontent-subscription/internal/infra/metrics"
)

var _ adapter.EventPublisher = (*NoopPublisher)(nil)

// NoopPublisher logs events instead of sending them and keeps them for
// inspection. Used when no broker is configured.
type NoopPublisher struct {
	mu     sync.Mutex
	events []adapter.PaymentEvent
	logger *zerolog.Logger
}

func NewNoopPublisher(logger *zerolog.Logger) *NoopPublisher {
	if logger == nil {
		l := zerolog.Nop()
		logger = &l
	}
	return &NoopPublisher{logger: logger}
}

func (p *NoopPublisher) PublishPaymentEvent(_ context.Context, ev adapter.PaymentEvent) error {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()

	metrics.IncPaymentEvent(ev.Type, "noop")
	p.logger.Info().
		Str("event", ev.Type).
		Str("payment_id", ev.PaymentID).
		Int64("user_id", ev.UserID).
		Msg("payment event (noop publisher)")
	return nil
}

func (p *NoopPublisher) Events() []adapter.PaymentEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]adapter.PaymentEvent, len(p.events))
	copy(out, p.events)
	return out
}

func (p *NoopPublisher) Close() {}
