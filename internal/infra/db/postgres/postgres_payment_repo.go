package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"medcontent-subscription/internal/domain"
	"medcontent-subscription/internal/domain/model"
	"medcontent-subscription/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, user_id, plan_id, subscription_id, provider, amount, discount_amount, final_amount, currency, status,
  authority, ref_id, card_info, discount_code, referral_code, description, user_ip, user_agent, failure_reason,
  created_at, updated_at, paid_at`

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (` + paymentColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
ON CONFLICT (id) DO UPDATE SET
  subscription_id=EXCLUDED.subscription_id, status=EXCLUDED.status, authority=EXCLUDED.authority,
  ref_id=EXCLUDED.ref_id, card_info=EXCLUDED.card_info, failure_reason=EXCLUDED.failure_reason,
  updated_at=EXCLUDED.updated_at, paid_at=EXCLUDED.paid_at
WHERE payments.status <> 'COMPLETED';`

	tag, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.UserID, p.PlanID, p.SubscriptionID, p.Provider, p.Amount, p.DiscountAmount, p.FinalAmount, p.Currency, string(p.Status),
		p.Authority, p.RefID, p.CardInfo, p.DiscountCode, p.ReferralCode, p.Description, p.UserIP, p.UserAgent, p.FailureReason,
		p.CreatedAt, p.UpdatedAt, p.PaidAt)
	if err != nil {
		return mapError("save payment", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvariantViolation
	}
	return nil
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	q := lockable(tx, `SELECT `+paymentColumns+` FROM payments WHERE id=$1`)
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) FindByAuthority(ctx context.Context, tx repository.Tx, authority string) (*model.Payment, error) {
	if authority == "" {
		return nil, domain.ErrPaymentNotFound
	}
	q := lockable(tx, `SELECT `+paymentColumns+` FROM payments WHERE authority=$1`)
	row, err := pickRow(ctx, r.pool, tx, q, authority)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID int64, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, limit)
	if err != nil {
		return nil, mapError("list payments", err)
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list payments", err)
	}
	return out, nil
}

func (r *paymentRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	const q = `DELETE FROM payments WHERE id=$1 AND status <> 'COMPLETED';`
	if _, err := execSQL(ctx, r.pool, tx, q, id); err != nil {
		return mapError("delete payment", err)
	}
	return nil
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var (
		p      model.Payment
		status string
	)
	err := row.Scan(&p.ID, &p.UserID, &p.PlanID, &p.SubscriptionID, &p.Provider, &p.Amount, &p.DiscountAmount, &p.FinalAmount, &p.Currency, &status,
		&p.Authority, &p.RefID, &p.CardInfo, &p.DiscountCode, &p.ReferralCode, &p.Description, &p.UserIP, &p.UserAgent, &p.FailureReason,
		&p.CreatedAt, &p.UpdatedAt, &p.PaidAt)
	if err != nil {
		return nil, scanError("scan payment", err, domain.ErrPaymentNotFound)
	}
	p.Status = model.PaymentStatus(status)
	return &p, nil
}
