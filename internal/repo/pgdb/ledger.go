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

var transactionColumns = []string{
	"id", "user_id", "type", "amount", "cash_amount", "description", "status", "created_at",
}

type LedgerRepo struct {
	*postgres.Postgres
}

func NewLedgerRepo(pgdb *postgres.Postgres) *LedgerRepo {
	return &LedgerRepo{pgdb}
}

func (r *LedgerRepo) GetOrCreateCredit(ctx context.Context, userId uuid.UUID) (*entity.Credit, error) {
	var credit entity.Credit
	err := r.WithinTx(ctx, nil, func(tx *sqlx.Tx) error {
		if err := ensureCreditTx(ctx, tx, r.SqlBuilder, userId); err != nil {
			return err
		}

		selectSql, args, _ := r.SqlBuilder.
			Select("user_id", "balance", "updated_at").
			From("credit").
			Where("user_id = ?", userId).
			ToSql()

		return tx.GetContext(ctx, &credit, selectSql, args...)
	})
	if err != nil {
		return nil, repo_errors.Map(err)
	}

	return &credit, nil
}

// AdjustBalance applies delta and records the paired transaction atomically.
func (r *LedgerRepo) AdjustBalance(ctx context.Context, userId uuid.UUID, delta int64, input *entity.TransactionInput) (*entity.Transaction, int64, error) {
	var (
		txn     *entity.Transaction
		balance int64
	)
	err := r.WithinTx(ctx, nil, func(tx *sqlx.Tx) error {
		var err error
		txn, balance, err = adjustBalanceTx(ctx, tx, r.SqlBuilder, userId, delta, input)
		return err
	})
	if err != nil {
		return nil, 0, repo_errors.Map(err)
	}

	return txn, balance, nil
}

func (r *LedgerRepo) GetTransactions(ctx context.Context, userId uuid.UUID, limit int) ([]entity.Transaction, error) {
	query := r.SqlBuilder.
		Select(transactionColumns...).
		From("credit_transaction").
		Where("user_id = ?", userId).
		OrderBy("created_at DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	sqlReq, args, _ := query.ToSql()

	txns := make([]entity.Transaction, 0)
	if err := r.Database.SelectContext(ctx, &txns, sqlReq, args...); err != nil {
		return nil, err
	}

	return txns, nil
}

func ensureCreditTx(ctx context.Context, tx *sqlx.Tx, sb squirrel.StatementBuilderType, userId uuid.UUID) error {
	insertSql, args, _ := sb.
		Insert("credit").
		Columns("user_id", "balance").
		Values(userId, 0).
		Suffix("ON CONFLICT (user_id) DO NOTHING").
		ToSql()

	_, err := tx.ExecContext(ctx, insertSql, args...)
	return err
}

// adjustBalanceTx is the only place a balance changes. A debit that would take
// the balance below zero touches no row and yields ErrInsufficientFunds.
func adjustBalanceTx(ctx context.Context, tx *sqlx.Tx, sb squirrel.StatementBuilderType, userId uuid.UUID, delta int64, input *entity.TransactionInput) (*entity.Transaction, int64, error) {
	if err := ensureCreditTx(ctx, tx, sb, userId); err != nil {
		return nil, 0, err
	}

	update := sb.
		Update("credit").
		Set("balance", squirrel.Expr("balance + ?", delta)).
		Set("updated_at", squirrel.Expr("CURRENT_TIMESTAMP")).
		Where("user_id = ?", userId)
	if delta < 0 {
		update = update.Where("balance >= ?", -delta)
	}

	updateSql, args, _ := update.
		Suffix("RETURNING balance").
		ToSql()

	var balance int64
	if err := tx.GetContext(ctx, &balance, updateSql, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, repo_errors.ErrInsufficientFunds
		}

		return nil, 0, err
	}

	status := input.Status
	if status == "" {
		status = common.TxnCompleted
	}

	insertSql, args, _ := sb.
		Insert("credit_transaction").
		Columns("user_id", "type", "amount", "cash_amount", "description", "status").
		Values(userId, input.Type, delta, input.CashAmount, input.Description, status).
		Suffix("RETURNING " + joinColumns(transactionColumns)).
		ToSql()

	var txn entity.Transaction
	if err := tx.GetContext(ctx, &txn, insertSql, args...); err != nil {
		return nil, 0, err
	}

	return &txn, balance, nil
}
