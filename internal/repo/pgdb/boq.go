package pgdb

import (
	"context"
	"tender-marketplace-api/internal/common"
	"tender-marketplace-api/internal/entity"
	"tender-marketplace-api/internal/repo/repo_errors"
	"tender-marketplace-api/pkg/postgres"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var boqColumns = []string{
	"id", "tender_id", "description", "unit", "quantity", "item_type",
	"option_group_id", "is_optional", "display_order", "created_at",
}

type BoqRepo struct {
	*postgres.Postgres
}

func NewBoqRepo(pgdb *postgres.Postgres) *BoqRepo {
	return &BoqRepo{pgdb}
}

func (r *BoqRepo) GetItemsByTenderId(ctx context.Context, tenderId uuid.UUID) ([]entity.BoqItem, error) {
	sqlReq, args, _ := r.SqlBuilder.
		Select(boqColumns...).
		From("boq_item").
		Where("tender_id = ?", tenderId).
		OrderBy("display_order", "created_at").
		ToSql()

	items := make([]entity.BoqItem, 0)
	if err := r.Database.SelectContext(ctx, &items, sqlReq, args...); err != nil {
		return nil, err
	}

	return items, nil
}

// ReplaceItems swaps the whole catalog of a tender. Bid lines pointing at the
// old items go with them and the totals of the affected bids are recomputed.
func (r *BoqRepo) ReplaceItems(ctx context.Context, tenderId uuid.UUID, items []entity.BoqItemInput) error {
	return r.WithinTx(ctx, nil, func(tx *sqlx.Tx) error {
		return replaceBoqItemsTx(ctx, tx, r.SqlBuilder, tenderId, items)
	})
}

// AppendItems adds items after the current last display position.
func (r *BoqRepo) AppendItems(ctx context.Context, tenderId uuid.UUID, items []entity.BoqItemInput) error {
	return r.WithinTx(ctx, nil, func(tx *sqlx.Tx) error {
		return appendBoqItemsTx(ctx, tx, r.SqlBuilder, tenderId, items)
	})
}

func replaceBoqItemsTx(ctx context.Context, tx *sqlx.Tx, sb squirrel.StatementBuilderType, tenderId uuid.UUID, items []entity.BoqItemInput) error {
	status, err := lockTenderTx(ctx, tx, sb, tenderId)
	if err != nil {
		return err
	}
	if status == common.Awarded {
		return repo_errors.ErrConflict
	}

	deleteSql, args, _ := sb.
		Delete("boq_item").
		Where("tender_id = ?", tenderId).
		ToSql()

	if _, err := tx.ExecContext(ctx, deleteSql, args...); err != nil {
		return err
	}

	if err := insertBoqItemsTx(ctx, tx, sb, tenderId, items, 1); err != nil {
		return err
	}

	return recomputeTenderBidTotalsTx(ctx, tx, sb, tenderId)
}

func appendBoqItemsTx(ctx context.Context, tx *sqlx.Tx, sb squirrel.StatementBuilderType, tenderId uuid.UUID, items []entity.BoqItemInput) error {
	if len(items) == 0 {
		return nil
	}

	status, err := lockTenderTx(ctx, tx, sb, tenderId)
	if err != nil {
		return err
	}
	if status == common.Awarded {
		return repo_errors.ErrCatalogFrozen
	}

	nextSql, args, _ := sb.
		Select("COALESCE(MAX(display_order) + 1, 1)").
		From("boq_item").
		Where("tender_id = ?", tenderId).
		ToSql()

	var next int
	if err := tx.GetContext(ctx, &next, nextSql, args...); err != nil {
		return err
	}

	return insertBoqItemsTx(ctx, tx, sb, tenderId, items, next)
}

func insertBoqItemsTx(ctx context.Context, tx *sqlx.Tx, sb squirrel.StatementBuilderType, tenderId uuid.UUID, items []entity.BoqItemInput, startOrder int) error {
	if len(items) == 0 {
		return nil
	}

	insert := sb.
		Insert("boq_item").
		Columns("tender_id", "description", "unit", "quantity", "item_type", "option_group_id", "is_optional", "display_order")

	for i, item := range items {
		insert = insert.Values(tenderId, item.Description, item.Unit, item.Quantity, item.ItemType,
			item.OptionGroupId, item.IsOptional, startOrder+i)
	}

	insertSql, args, err := insert.ToSql()
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, insertSql, args...)
	return err
}

// lockTenderTx takes a row lock on the tender and returns its status.
func lockTenderTx(ctx context.Context, tx *sqlx.Tx, sb squirrel.StatementBuilderType, tenderId uuid.UUID) (string, error) {
	lockSql, args, _ := sb.
		Select("status").
		From("tender").
		Where("id = ?", tenderId).
		Suffix("FOR UPDATE").
		ToSql()

	var status string
	if err := tx.GetContext(ctx, &status, lockSql, args...); err != nil {
		return "", repo_errors.Map(err)
	}

	return status, nil
}

func recomputeTenderBidTotalsTx(ctx context.Context, tx *sqlx.Tx, sb squirrel.StatementBuilderType, tenderId uuid.UUID) error {
	updateSql, args, _ := sb.
		Update("bid").
		Set("total_amount", squirrel.Expr("(SELECT COALESCE(SUM(bi.amount), 0) FROM bid_item bi WHERE bi.bid_id = bid.id)")).
		Set("updated_at", squirrel.Expr("CURRENT_TIMESTAMP")).
		Where("tender_id = ?", tenderId).
		ToSql()

	_, err := tx.ExecContext(ctx, updateSql, args...)
	return err
}
