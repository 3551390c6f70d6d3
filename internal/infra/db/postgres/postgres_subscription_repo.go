package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"medcontent-subscription/internal/domain"
	"medcontent-subscription/internal/domain/model"
	"medcontent-subscription/internal/domain/ports/repository"
)

// Ensure subscriptionRepo implements repository.SubscriptionRepository
var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `id, user_id, plan_id, payment_amount, status, start_date, end_date, created_at, updated_at`

func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (` + subscriptionColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET
  plan_id=$3, payment_amount=$4, status=$5, start_date=$6, end_date=$7, updated_at=$9;`

	_, err := execSQL(ctx, r.pool, tx, q,
		s.ID, s.UserID, s.PlanID, s.PaymentAmount, string(s.Status), s.StartDate, s.EndDate, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return mapError("save subscription", err)
	}
	return nil
}

func (r *subscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	q := lockable(tx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id=$1`)
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func (r *subscriptionRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID int64, now time.Time) (*model.Subscription, error) {
	q := lockable(tx, `
SELECT `+subscriptionColumns+`
  FROM subscriptions
 WHERE user_id=$1 AND status='ACTIVE' AND end_date > $2
 ORDER BY end_date DESC
 LIMIT 1`)
	row, err := pickRow(ctx, r.pool, tx, q, userID, now)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func (r *subscriptionRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	if _, err := execSQL(ctx, r.pool, tx, `DELETE FROM subscriptions WHERE id=$1;`, id); err != nil {
		return mapError("delete subscription", err)
	}
	return nil
}

// LockUser takes a transaction-scoped advisory lock keyed by the user.
func (r *subscriptionRepo) LockUser(ctx context.Context, tx repository.Tx, userID int64) error {
	if _, ok := tx.(pgx.Tx); !ok {
		return domain.ErrInvalidExecContext
	}
	key := hashToInt64("subscription_user:" + formatID(userID))
	if _, err := execSQL(ctx, r.pool, tx, `SELECT pg_advisory_xact_lock($1);`, key); err != nil {
		return mapError("lock user", err)
	}
	return nil
}

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	var (
		s      model.Subscription
		status string
	)
	err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.PaymentAmount, &status, &s.StartDate, &s.EndDate, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, scanError("scan subscription", err, domain.ErrNotFound)
	}
	s.Status = model.SubscriptionStatus(status)
	return &s, nil
}
