package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"medcontent-subscription/internal/domain"
	"medcontent-subscription/internal/domain/model"
	"medcontent-subscription/internal/domain/ports/repository"
)

// Ensure interface compliance
var _ repository.PlanRepository = (*PostgresPlanRepo)(nil)

type PostgresPlanRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPlanRepo(pool *pgxpool.Pool) *PostgresPlanRepo {
	return &PostgresPlanRepo{pool: pool}
}

func (r *PostgresPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	if p.ID == 0 {
		const insert = `
INSERT INTO plans (membership_id, name, duration_days, price, is_active, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id;`
		row, err := pickRow(ctx, r.pool, tx, insert, p.MembershipID, p.Name, p.DurationDays, p.Price, p.IsActive, p.CreatedAt)
		if err != nil {
			return err
		}
		if err := row.Scan(&p.ID); err != nil {
			return mapError("insert plan", err)
		}
		return nil
	}

	const update = `
UPDATE plans
   SET membership_id = $2,
       name          = $3,
       duration_days = $4,
       price         = $5,
       is_active     = $6
 WHERE id = $1;`
	tag, err := execSQL(ctx, r.pool, tx, update, p.ID, p.MembershipID, p.Name, p.DurationDays, p.Price, p.IsActive)
	if err != nil {
		return mapError("update plan", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPlanNotFound
	}
	return nil
}

func (r *PostgresPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Plan, error) {
	const q = `
SELECT id, membership_id, name, duration_days, price, is_active, created_at
  FROM plans
 WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPlan(row)
}

func (r *PostgresPlanRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	const q = `
SELECT id, membership_id, name, duration_days, price, is_active, created_at
  FROM plans
 WHERE is_active
 ORDER BY id;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, mapError("list plans", err)
	}
	defer rows.Close()
	var out []*model.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Delete relies on ON DELETE RESTRICT from subscriptions and payments.
func (r *PostgresPlanRepo) Delete(ctx context.Context, tx repository.Tx, id int64) error {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM plans WHERE id = $1;`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return domain.ErrPlanInUse
		}
		return mapError("delete plan", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPlanNotFound
	}
	return nil
}

func (r *PostgresPlanRepo) SaveMembership(ctx context.Context, tx repository.Tx, m *model.Membership) error {
	const q = `
INSERT INTO memberships (name, created_at)
VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
RETURNING id, created_at;`
	row, err := pickRow(ctx, r.pool, tx, q, m.Name, m.CreatedAt)
	if err != nil {
		return err
	}
	if err := row.Scan(&m.ID, &m.CreatedAt); err != nil {
		return mapError("save membership", err)
	}
	return nil
}

func scanPlan(row pgx.Row) (*model.Plan, error) {
	var p model.Plan
	if err := row.Scan(&p.ID, &p.MembershipID, &p.Name, &p.DurationDays, &p.Price, &p.IsActive, &p.CreatedAt); err != nil {
		return nil, scanError("scan plan", err, domain.ErrPlanNotFound)
	}
	return &p, nil
}
