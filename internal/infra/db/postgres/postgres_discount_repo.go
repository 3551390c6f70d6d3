package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"medcontent-subscription/internal/domain"
	"medcontent-subscription/internal/domain/model"
	"medcontent-subscription/internal/domain/ports/repository"
)

var _ repository.DiscountRepository = (*discountRepo)(nil)

type discountRepo struct{ pool *pgxpool.Pool }

func NewDiscountRepo(pool *pgxpool.Pool) *discountRepo {
	return &discountRepo{pool: pool}
}

func (r *discountRepo) Save(ctx context.Context, tx repository.Tx, d *model.DiscountCode) error {
	if d.ID == 0 {
		const insert = `
INSERT INTO discount_codes (code, discount_percent, max_usage, usage_count, start_at, end_at, is_active, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING id;`
		row, err := pickRow(ctx, r.pool, tx, insert,
			d.Code, d.Percent, d.MaxUsage, d.UsageCount, d.StartAt, d.EndAt, d.IsActive, d.CreatedAt)
		if err != nil {
			return err
		}
		if err := row.Scan(&d.ID); err != nil {
			return mapError("insert discount", err)
		}
		return nil
	}

	const update = `
UPDATE discount_codes
   SET code=$2, discount_percent=$3, max_usage=$4, start_at=$5, end_at=$6, is_active=$7
 WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, update, d.ID, d.Code, d.Percent, d.MaxUsage, d.StartAt, d.EndAt, d.IsActive)
	if err != nil {
		return mapError("update discount", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDiscountNotFound
	}
	return nil
}

func (r *discountRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.DiscountCode, error) {
	const q = `
SELECT id, code, discount_percent, max_usage, usage_count, start_at, end_at, is_active, created_at
  FROM discount_codes
 WHERE code=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, model.NormalizeCode(code))
	if err != nil {
		return nil, err
	}
	return scanDiscount(row)
}

// TryIncrementUsage never reads before writing; the WHERE clause is the bound check.
func (r *discountRepo) TryIncrementUsage(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	code = model.NormalizeCode(code)
	const q = `UPDATE discount_codes SET usage_count = usage_count + 1 WHERE code=$1 AND usage_count < max_usage;`
	tag, err := execSQL(ctx, r.pool, tx, q, code)
	if err != nil {
		return false, mapError("increment discount usage", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	if _, err := r.FindByCode(ctx, tx, code); err != nil {
		return false, err
	}
	return false, nil
}

func scanDiscount(row pgx.Row) (*model.DiscountCode, error) {
	var d model.DiscountCode
	err := row.Scan(&d.ID, &d.Code, &d.Percent, &d.MaxUsage, &d.UsageCount, &d.StartAt, &d.EndAt, &d.IsActive, &d.CreatedAt)
	if err != nil {
		return nil, scanError("scan discount", err, domain.ErrDiscountNotFound)
	}
	return &d, nil
}
