package usecase

import (
	"context"
	"strings"
	"time"

	"medcontent-subscription/internal/domain/model"
	"medcontent-subscription/internal/domain/ports/repository"
)

// PlanUseCase manages membership tiers and their plans.
type PlanUseCase struct {
	repo repository.PlanRepository
}

func NewPlanUseCase(repo repository.PlanRepository) *PlanUseCase {
	return &PlanUseCase{repo: repo}
}

// CreateMembership stores a tier and assigns its ID.
func (uc *PlanUseCase) CreateMembership(ctx context.Context, name string) (*model.Membership, error) {
	m := &model.Membership{Name: strings.TrimSpace(name), CreatedAt: time.Now()}
	if err := uc.repo.SaveMembership(ctx, repository.NoTX, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Create validates and stores a new plan.
func (uc *PlanUseCase) Create(ctx context.Context, membershipID int64, name string, durationDays int, price int64) (*model.Plan, error) {
	p, err := model.NewPlan(membershipID, name, durationDays, price)
	if err != nil {
		return nil, err
	}
	if err := uc.repo.Save(ctx, repository.NoTX, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (uc *PlanUseCase) Get(ctx context.Context, id int64) (*model.Plan, error) {
	return uc.repo.FindByID(ctx, repository.NoTX, id)
}

// List returns the plans that can be bought.
func (uc *PlanUseCase) List(ctx context.Context) ([]*model.Plan, error) {
	return uc.repo.ListActive(ctx, repository.NoTX)
}

// Delete refuses with domain.ErrPlanInUse while subscriptions reference the plan.
func (uc *PlanUseCase) Delete(ctx context.Context, id int64) error {
	return uc.repo.Delete(ctx, repository.NoTX, id)
}
