package pgdb

import (
	"context"
	"database/sql"
	"errors"
	"tender-marketplace-api/internal/common"
	"tender-marketplace-api/internal/entity"
	"tender-marketplace-api/internal/repo/repo_errors"
	"tender-marketplace-api/pkg/postgres"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type UnlockRepo struct {
	*postgres.Postgres
}

func NewUnlockRepo(pgdb *postgres.Postgres) *UnlockRepo {
	return &UnlockRepo{pgdb}
}

func (r *UnlockRepo) HasUnlock(ctx context.Context, userId uuid.UUID, tenderId uuid.UUID) (bool, error) {
	sqlReq, args, _ := r.SqlBuilder.
		Select().
		Column(squirrel.Expr("EXISTS (SELECT 1 FROM tender_unlock WHERE user_id = ? AND tender_id = ?)", userId, tenderId)).
		ToSql()

	var unlocked bool
	if err := r.Database.GetContext(ctx, &unlocked, sqlReq, args...); err != nil {
		return false, err
	}

	return unlocked, nil
}

// CreateUnlock claims the (user, tender) pair, debits cost and writes the
// ledger entry in one transaction. A pair that is already claimed, including
// one claimed by a concurrent writer, yields ErrAlreadyExists and no charge.
func (r *UnlockRepo) CreateUnlock(ctx context.Context, userId uuid.UUID, tenderId uuid.UUID, cost int64, description string) (*entity.TenderUnlock, int64, error) {
	var (
		unlock  entity.TenderUnlock
		balance int64
	)
	err := r.WithinTx(ctx, nil, func(tx *sqlx.Tx) error {
		claimSql, args, _ := r.SqlBuilder.
			Insert("tender_unlock").
			Columns("user_id", "tender_id", "credits_spent").
			Values(userId, tenderId, cost).
			Suffix("ON CONFLICT (user_id, tender_id) DO NOTHING RETURNING user_id, tender_id, credits_spent, created_at").
			ToSql()

		if err := tx.GetContext(ctx, &unlock, claimSql, args...); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repo_errors.ErrAlreadyExists
			}

			return err
		}

		var err error
		_, balance, err = adjustBalanceTx(ctx, tx, r.SqlBuilder, userId, -cost, &entity.TransactionInput{
			Type:        common.TxnUnlock,
			Description: description,
			Status:      common.TxnCompleted,
		})
		return err
	})
	if err != nil {
		return nil, 0, repo_errors.Map(err)
	}

	return &unlock, balance, nil
}
