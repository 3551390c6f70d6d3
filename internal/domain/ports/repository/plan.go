package repository

import (
	"context"

	"medcontent-subscription/internal/domain/model"
)

type PlanRepository interface {
	// Save inserts when p.ID is zero (assigning the new ID) and updates otherwise.
	Save(ctx context.Context, tx Tx, p *model.Plan) error
	FindByID(ctx context.Context, tx Tx, id int64) (*model.Plan, error)
	ListActive(ctx context.Context, tx Tx) ([]*model.Plan, error)
	// Delete returns domain.ErrPlanInUse while any subscription references the plan.
	Delete(ctx context.Context, tx Tx, id int64) error

	SaveMembership(ctx context.Context, tx Tx, m *model.Membership) error
}
