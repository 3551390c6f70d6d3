package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"medcontent-subscription/internal/domain"
	"medcontent-subscription/internal/domain/model"
	"medcontent-subscription/internal/domain/ports/repository"
)

var _ repository.ProfileRepository = (*profileRepo)(nil)

type profileRepo struct{ pool *pgxpool.Pool }

func NewProfileRepo(pool *pgxpool.Pool) *profileRepo {
	return &profileRepo{pool: pool}
}

const profileColumns = `user_id, role, subscription_end_date, referral_code, referred_by, created_at, updated_at`

func (r *profileRepo) Save(ctx context.Context, tx repository.Tx, p *model.Profile) error {
	const q = `
INSERT INTO profiles (` + profileColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (user_id) DO UPDATE SET
  role=$2, subscription_end_date=$3, referral_code=$4, referred_by=$5, updated_at=$7;`
	_, err := execSQL(ctx, r.pool, tx, q,
		p.UserID, string(p.Role), p.SubscriptionEndDate, p.ReferralCode, p.ReferredBy, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return mapError("save profile", err)
	}
	return nil
}

func (r *profileRepo) FindByUserID(ctx context.Context, tx repository.Tx, userID int64) (*model.Profile, error) {
	q := lockable(tx, `SELECT `+profileColumns+` FROM profiles WHERE user_id=$1`)
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	return scanProfile(row)
}

func (r *profileRepo) FindByReferralCode(ctx context.Context, tx repository.Tx, code string) (*model.Profile, error) {
	q := `SELECT ` + profileColumns + ` FROM profiles WHERE referral_code=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, model.NormalizeCode(code))
	if err != nil {
		return nil, err
	}
	return scanProfile(row)
}

func scanProfile(row pgx.Row) (*model.Profile, error) {
	var (
		p    model.Profile
		role string
	)
	err := row.Scan(&p.UserID, &role, &p.SubscriptionEndDate, &p.ReferralCode, &p.ReferredBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, scanError("scan profile", err, domain.ErrNotFound)
	}
	p.Role = model.Role(role)
	return &p, nil
}
