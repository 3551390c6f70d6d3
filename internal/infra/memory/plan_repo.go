package memory

import (
	"context"
	"sort"

	"medcontent-subscription/internal/domain"
	"medcontent-subscription/internal/domain/model"
	"medcontent-subscription/internal/domain/ports/repository"
)

var _ repository.PlanRepository = (*PlanRepo)(nil)

type PlanRepo struct{ s *Store }

func NewPlanRepo(s *Store) *PlanRepo { return &PlanRepo{s: s} }

func (r *PlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	defer r.s.acquire(tx)()
	if _, ok := r.s.seq.memberships[p.MembershipID]; !ok {
		return domain.ErrInvalidArgument
	}
	if p.ID == 0 {
		r.s.seq.nextPlanID++
		p.ID = r.s.seq.nextPlanID
	}
	r.s.seq.plans[p.ID] = *p
	return nil
}

func (r *PlanRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Plan, error) {
	defer r.s.acquire(tx)()
	p, ok := r.s.seq.plans[id]
	if !ok {
		return nil, domain.ErrPlanNotFound
	}
	return &p, nil
}

func (r *PlanRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	defer r.s.acquire(tx)()
	out := make([]*model.Plan, 0, len(r.s.seq.plans))
	for _, p := range r.s.seq.plans {
		if p.IsActive {
			cp := p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *PlanRepo) Delete(ctx context.Context, tx repository.Tx, id int64) error {
	defer r.s.acquire(tx)()
	if _, ok := r.s.seq.plans[id]; !ok {
		return domain.ErrPlanNotFound
	}
	for _, sub := range r.s.seq.subs {
		if sub.PlanID == id {
			return domain.ErrPlanInUse
		}
	}
	delete(r.s.seq.plans, id)
	return nil
}

func (r *PlanRepo) SaveMembership(ctx context.Context, tx repository.Tx, m *model.Membership) error {
	defer r.s.acquire(tx)()
	if m.ID == 0 {
		r.s.seq.nextMembershipID++
		m.ID = r.s.seq.nextMembershipID
	}
	r.s.seq.memberships[m.ID] = *m
	return nil
}
