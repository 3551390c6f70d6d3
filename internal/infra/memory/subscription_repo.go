package memory

import (
	"context"
	"time"

	"medcontent-subscription/internal/domain"
	"medcontent-subscription/internal/domain/model"
	"medcontent-subscription/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*SubscriptionRepo)(nil)

type SubscriptionRepo struct{ s *Store }

func NewSubscriptionRepo(s *Store) *SubscriptionRepo { return &SubscriptionRepo{s: s} }

func (r *SubscriptionRepo) Save(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	defer r.s.acquire(tx)()
	if sub.ID == "" || !sub.EndDate.After(sub.StartDate) {
		return domain.ErrInvalidArgument
	}
	if _, ok := r.s.seq.plans[sub.PlanID]; !ok {
		return domain.ErrPlanNotFound
	}
	r.s.seq.subs[sub.ID] = *sub
	return nil
}

func (r *SubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	defer r.s.acquire(tx)()
	sub, ok := r.s.seq.subs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &sub, nil
}

func (r *SubscriptionRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID int64, now time.Time) (*model.Subscription, error) {
	defer r.s.acquire(tx)()
	var best *model.Subscription
	for _, sub := range r.s.seq.subs {
		if sub.UserID != userID || !sub.IsActive(now) {
			continue
		}
		if best == nil || sub.EndDate.After(best.EndDate) {
			cp := sub
			best = &cp
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	return best, nil
}

func (r *SubscriptionRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	defer r.s.acquire(tx)()
	delete(r.s.seq.subs, id)
	return nil
}

// LockUser is a no-op: transactions on the store are already serialized.
func (r *SubscriptionRepo) LockUser(ctx context.Context, tx repository.Tx, userID int64) error {
	return nil
}
