// Package memory is an in-process storage backend with real rollback
// semantics. Transactions are serialized; statements outside a transaction
// are individually atomic.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/jackc/pgx/v4"

	"medcontent-subscription/internal/domain/model"
	"medcontent-subscription/internal/domain/ports/repository"
)

var _ repository.TransactionManager = (*Store)(nil)

type Store struct {
	mu sync.Mutex

	seq tables
}

type tables struct {
	nextMembershipID int64
	nextPlanID       int64
	nextDiscountID   int64

	memberships map[int64]model.Membership
	plans       map[int64]model.Plan
	discounts   map[string]model.DiscountCode
	payments    map[string]model.Payment
	subs        map[string]model.Subscription
	profiles    map[int64]model.Profile
}

func NewStore() *Store {
	return &Store{seq: tables{
		memberships: map[int64]model.Membership{},
		plans:       map[int64]model.Plan{},
		discounts:   map[string]model.DiscountCode{},
		payments:    map[string]model.Payment{},
		subs:        map[string]model.Subscription{},
		profiles:    map[int64]model.Profile{},
	}}
}

// txHandle is the tx value handed to repositories inside WithTx.
type txHandle struct{ s *Store }

// WithTx runs fn with the store locked and restores every table if fn fails.
func (s *Store) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.seq.clone()
	if err := fn(ctx, &txHandle{s: s}); err != nil {
		s.seq = snap
		return err
	}
	return nil
}

// acquire locks the store unless tx already holds it.
func (s *Store) acquire(tx repository.Tx) func() {
	if h, ok := tx.(*txHandle); ok && h.s == s {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (t tables) clone() tables {
	t.memberships = maps.Clone(t.memberships)
	t.plans = maps.Clone(t.plans)
	t.discounts = maps.Clone(t.discounts)
	t.payments = maps.Clone(t.payments)
	t.subs = maps.Clone(t.subs)
	t.profiles = maps.Clone(t.profiles)
	return t
}
