package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"medcontent-subscription/internal/domain/ports/adapter"
)

const (
	DefaultQuoteTTL       = 15 * time.Minute
	DefaultGatewayTimeout = 10 * time.Second
	DefaultVerifyLockTTL  = 30 * time.Second
	DefaultCheckoutTTL    = 30 * time.Second

	unlockTimeout  = 2 * time.Second
	verifyLockPoll = 50 * time.Millisecond
	staleDraftScan = 20
)

// GatewayResolver hands out the gateway registered under a provider name.
type GatewayResolver interface {
	Get(provider string) (adapter.PaymentGateway, error)
}

func nopIfNil(l *zerolog.Logger) *zerolog.Logger {
	if l != nil {
		return l
	}
	nop := zerolog.Nop()
	return &nop
}

// release drops a lease even when the request context is already done.
func release(ctx context.Context, locker adapter.Locker, key, token string, log *zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), unlockTimeout)
	defer cancel()
	if err := locker.Unlock(ctx, key, token); err != nil {
		log.Warn().Err(err).Str("lock", key).Msg("failed to release lock")
	}
}
