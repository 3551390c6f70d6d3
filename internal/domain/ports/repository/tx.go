package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager runs fn inside one storage transaction and hands the
// backend-specific handle to fn as tx. Repositories receiving that handle run
// their statements on it and lock rows they read (SELECT ... FOR UPDATE).
// Repositories MUST accept a nil tx as the non-transactional path.
//
// fn returning an error rolls back every write made through tx.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
