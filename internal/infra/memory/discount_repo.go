package memory

import (
	"context"

	"medcontent-subscription/internal/domain"
	"medcontent-subscription/internal/domain/model"
	"medcontent-subscription/internal/domain/ports/repository"
)

var _ repository.DiscountRepository = (*DiscountRepo)(nil)

type DiscountRepo struct{ s *Store }

func NewDiscountRepo(s *Store) *DiscountRepo { return &DiscountRepo{s: s} }

func (r *DiscountRepo) Save(ctx context.Context, tx repository.Tx, d *model.DiscountCode) error {
	defer r.s.acquire(tx)()
	existing, ok := r.s.seq.discounts[d.Code]
	if d.ID == 0 {
		if ok {
			return domain.ErrAlreadyExists
		}
		r.s.seq.nextDiscountID++
		d.ID = r.s.seq.nextDiscountID
	} else if ok && existing.ID != d.ID {
		return domain.ErrAlreadyExists
	}
	r.s.seq.discounts[d.Code] = *d
	return nil
}

func (r *DiscountRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.DiscountCode, error) {
	defer r.s.acquire(tx)()
	d, ok := r.s.seq.discounts[model.NormalizeCode(code)]
	if !ok {
		return nil, domain.ErrDiscountNotFound
	}
	return &d, nil
}

func (r *DiscountRepo) TryIncrementUsage(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	defer r.s.acquire(tx)()
	d, ok := r.s.seq.discounts[model.NormalizeCode(code)]
	if !ok {
		return false, domain.ErrDiscountNotFound
	}
	if d.UsageCount >= d.MaxUsage {
		return false, nil
	}
	d.UsageCount++
	r.s.seq.discounts[d.Code] = d
	return true, nil
}
