package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"medcontent-subscription/internal/domain/ports/adapter"
	"medcontent-subscription/internal/infra/metrics"
)

var _ adapter.EventPublisher = (*RabbitPublisher)(nil)

const DefaultExchange = "payments"

// RabbitPublisher sends payment events to a durable topic exchange. The
// routing key is the event type, e.g. payment.completed.
type RabbitPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *zerolog.Logger
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("amqp url must start with amqp:// or amqps://")
	}
	return clean, nil
}

func NewRabbitPublisher(amqpURL, exchange string, logger *zerolog.Logger) (*RabbitPublisher, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq url: %w", err)
	}
	if exchange == "" {
		exchange = DefaultExchange
	}
	if logger == nil {
		l := zerolog.Nop()
		logger = &l
	}

	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq declare exchange %q: %w", exchange, err)
	}

	return &RabbitPublisher{conn: conn, channel: ch, exchange: exchange, logger: logger}, nil
}

func (p *RabbitPublisher) PublishPaymentEvent(ctx context.Context, ev adapter.PaymentEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}

	// amqp channels are not safe for concurrent publishes.
	p.mu.Lock()
	err = p.channel.PublishWithContext(ctx, p.exchange, ev.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.PaymentID,
		Timestamp:    ev.OccurredAt,
		Body:         body,
	})
	p.mu.Unlock()
	if err != nil {
		metrics.IncPaymentEvent(ev.Type, "error")
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}

	metrics.IncPaymentEvent(ev.Type, "ok")
	p.logger.Debug().Str("exchange", p.exchange).Str("routing_key", ev.Type).Str("payment_id", ev.PaymentID).Msg("payment event published")
	return nil
}

func (p *RabbitPublisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
