package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle. Repositories accept nil (run against
// the pool) or an infra-defined handle such as pgx.Tx.
type Tx interface{}

// NoTX marks call sites that deliberately run outside a transaction.
var NoTX Tx

// TransactionManager executes fn inside one database transaction, passing
// the handle through so repositories can share it. The webhook pipeline
// depends on this: the idempotency claim, every handler mutation and the
// processed mark must commit or roll back together.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
