package memory

import (
	"context"

	"medcontent-subscription/internal/domain"
	"medcontent-subscription/internal/domain/model"
	"medcontent-subscription/internal/domain/ports/repository"
)

var _ repository.ProfileRepository = (*ProfileRepo)(nil)

type ProfileRepo struct{ s *Store }

func NewProfileRepo(s *Store) *ProfileRepo { return &ProfileRepo{s: s} }

func (r *ProfileRepo) Save(ctx context.Context, tx repository.Tx, p *model.Profile) error {
	defer r.s.acquire(tx)()
	if p.UserID <= 0 {
		return domain.ErrInvalidArgument
	}
	for id, other := range r.s.seq.profiles {
		if id != p.UserID && p.ReferralCode != "" && other.ReferralCode == p.ReferralCode {
			return domain.ErrAlreadyExists
		}
	}
	r.s.seq.profiles[p.UserID] = *p
	return nil
}

func (r *ProfileRepo) FindByUserID(ctx context.Context, tx repository.Tx, userID int64) (*model.Profile, error) {
	defer r.s.acquire(tx)()
	p, ok := r.s.seq.profiles[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r *ProfileRepo) FindByReferralCode(ctx context.Context, tx repository.Tx, code string) (*model.Profile, error) {
	defer r.s.acquire(tx)()
	code = model.NormalizeCode(code)
	for _, p := range r.s.seq.profiles {
		if p.ReferralCode == code {
			cp := p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}
