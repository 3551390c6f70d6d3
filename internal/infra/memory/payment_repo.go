package memory

import (
	"context"
	"sort"

	"medcontent-subscription/internal/domain"
	"medcontent-subscription/internal/domain/model"
	"medcontent-subscription/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*PaymentRepo)(nil)

type PaymentRepo struct{ s *Store }

func NewPaymentRepo(s *Store) *PaymentRepo { return &PaymentRepo{s: s} }

func (r *PaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	defer r.s.acquire(tx)()
	if p.ID == "" {
		return domain.ErrInvalidArgument
	}
	if p.Authority != "" {
		for id, other := range r.s.seq.payments {
			if id != p.ID && other.Authority == p.Authority {
				return domain.ErrAlreadyExists
			}
		}
	}
	r.s.seq.payments[p.ID] = *p
	return nil
}

func (r *PaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	defer r.s.acquire(tx)()
	p, ok := r.s.seq.payments[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	return &p, nil
}

func (r *PaymentRepo) FindByAuthority(ctx context.Context, tx repository.Tx, authority string) (*model.Payment, error) {
	defer r.s.acquire(tx)()
	if authority == "" {
		return nil, domain.ErrPaymentNotFound
	}
	for _, p := range r.s.seq.payments {
		if p.Authority == authority {
			cp := p
			return &cp, nil
		}
	}
	return nil, domain.ErrPaymentNotFound
}

func (r *PaymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID int64, limit int) ([]*model.Payment, error) {
	defer r.s.acquire(tx)()
	var out []*model.Payment
	for _, p := range r.s.seq.payments {
		if p.UserID == userID {
			cp := p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *PaymentRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	defer r.s.acquire(tx)()
	delete(r.s.seq.payments, id)
	return nil
}
