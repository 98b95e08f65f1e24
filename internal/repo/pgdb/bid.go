package pgdb

import (
	"context"
	"tender-marketplace-api/internal/common"
	"tender-marketplace-api/internal/entity"
	"tender-marketplace-api/internal/repo/repo_errors"
	"tender-marketplace-api/pkg/postgres"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var bidColumns = []string{
	"id", "tender_id", "contractor_id", "status", "total_amount", "submitted_at",
	"offer_file_path", "offer_file_name", "proposal", "created_at", "updated_at",
}

const bidTotalExpr = "(SELECT COALESCE(SUM(bi.amount), 0) FROM bid_item bi WHERE bi.bid_id = bid.id)"

type BidRepo struct {
	*postgres.Postgres
}

func NewBidRepo(pgdb *postgres.Postgres) *BidRepo {
	return &BidRepo{pgdb}
}

func (r *BidRepo) GetBidById(ctx context.Context, id uuid.UUID) (*entity.Bid, error) {
	sqlReq, args, _ := r.SqlBuilder.
		Select(bidColumns...).
		From("bid").
		Where("id = ?", id).
		ToSql()

	var bid entity.Bid
	if err := r.Database.GetContext(ctx, &bid, sqlReq, args...); err != nil {
		return nil, repo_errors.Map(err)
	}

	return &bid, nil
}

func (r *BidRepo) GetBidByTenderAndContractor(ctx context.Context, tenderId uuid.UUID, contractorId uuid.UUID) (*entity.Bid, error) {
	sqlReq, args, _ := r.SqlBuilder.
		Select(bidColumns...).
		From("bid").
		Where("tender_id = ?", tenderId).
		Where("contractor_id = ?", contractorId).
		ToSql()

	var bid entity.Bid
	if err := r.Database.GetContext(ctx, &bid, sqlReq, args...); err != nil {
		return nil, repo_errors.Map(err)
	}

	return &bid, nil
}

func (r *BidRepo) GetBidItems(ctx context.Context, bidId uuid.UUID) ([]entity.BidItemRow, error) {
	sqlReq, args, _ := r.SqlBuilder.
		Select("bi.id", "bi.bid_id", "bi.boq_item_id", "bi.unit_price", "bi.quantity", "bi.amount",
			"boq.description", "boq.unit", "boq.item_type", "boq.display_order").
		From("bid_item bi").
		InnerJoin("boq_item boq ON boq.id = bi.boq_item_id").
		Where("bi.bid_id = ?", bidId).
		OrderBy("boq.display_order").
		ToSql()

	items := make([]entity.BidItemRow, 0)
	if err := r.Database.SelectContext(ctx, &items, sqlReq, args...); err != nil {
		return nil, err
	}

	return items, nil
}

// UpsertBid finds or creates the contractor's draft for the tender, replaces
// every line item and recomputes the total as the last statement of the
// transaction. Only draft bids can be edited.
func (r *BidRepo) UpsertBid(ctx context.Context, input *entity.UpsertBidRecord) (*entity.Bid, error) {
	var bid entity.Bid
	err := r.WithinTx(ctx, nil, func(tx *sqlx.Tx) error {
		upsertSql, args, _ := r.SqlBuilder.
			Insert("bid").
			Columns("tender_id", "contractor_id", "status", "total_amount").
			Values(input.TenderId, input.ContractorId, common.BidDraft, 0).
			Suffix("ON CONFLICT (tender_id, contractor_id) DO UPDATE SET updated_at = CURRENT_TIMESTAMP RETURNING id, status").
			ToSql()

		var head struct {
			Id     uuid.UUID `db:"id"`
			Status string    `db:"status"`
		}
		if err := tx.GetContext(ctx, &head, upsertSql, args...); err != nil {
			return err
		}
		if head.Status != common.BidDraft {
			return repo_errors.ErrConflict
		}

		if input.Proposal != nil || input.OfferFilePath != nil {
			update := r.SqlBuilder.
				Update("bid").
				Where("id = ?", head.Id)
			if input.Proposal != nil {
				update = update.Set("proposal", *input.Proposal)
			}
			if input.OfferFilePath != nil {
				update = update.
					Set("offer_file_path", *input.OfferFilePath).
					Set("offer_file_name", input.OfferFileName)
			}

			updateSql, args, _ := update.ToSql()
			if _, err := tx.ExecContext(ctx, updateSql, args...); err != nil {
				return err
			}
		}

		deleteSql, args, _ := r.SqlBuilder.
			Delete("bid_item").
			Where("bid_id = ?", head.Id).
			ToSql()

		if _, err := tx.ExecContext(ctx, deleteSql, args...); err != nil {
			return err
		}

		if len(input.Items) > 0 {
			insert := r.SqlBuilder.
				Insert("bid_item").
				Columns("bid_id", "boq_item_id", "unit_price", "quantity", "amount")
			for _, item := range input.Items {
				insert = insert.Values(head.Id, item.BoqItemId, item.UnitPrice, item.Quantity, item.Amount)
			}

			insertSql, args, err := insert.ToSql()
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, insertSql, args...); err != nil {
				return err
			}
		}

		totalSql, args, _ := r.SqlBuilder.
			Update("bid").
			Set("total_amount", squirrel.Expr(bidTotalExpr)).
			Set("updated_at", squirrel.Expr("CURRENT_TIMESTAMP")).
			Where("id = ?", head.Id).
			Suffix("RETURNING " + joinColumns(bidColumns)).
			ToSql()

		return tx.GetContext(ctx, &bid, totalSql, args...)
	})
	if err != nil {
		return nil, repo_errors.Map(err)
	}

	return &bid, nil
}

// SubmitBid re-derives the total one final time and freezes the bid.
func (r *BidRepo) SubmitBid(ctx context.Context, bidId uuid.UUID, submittedAt time.Time) (*entity.Bid, error) {
	var bid entity.Bid
	err := r.WithinTx(ctx, nil, func(tx *sqlx.Tx) error {
		lockSql, args, _ := r.SqlBuilder.
			Select("status").
			From("bid").
			Where("id = ?", bidId).
			Suffix("FOR UPDATE").
			ToSql()

		var status string
		if err := tx.GetContext(ctx, &status, lockSql, args...); err != nil {
			return err
		}
		if status != common.BidDraft {
			return repo_errors.ErrConflict
		}

		submitSql, args, _ := r.SqlBuilder.
			Update("bid").
			Set("total_amount", squirrel.Expr(bidTotalExpr)).
			Set("status", common.BidSubmitted).
			Set("submitted_at", submittedAt).
			Set("updated_at", submittedAt).
			Where("id = ?", bidId).
			Suffix("RETURNING " + joinColumns(bidColumns)).
			ToSql()

		return tx.GetContext(ctx, &bid, submitSql, args...)
	})
	if err != nil {
		return nil, repo_errors.Map(err)
	}

	return &bid, nil
}

func (r *BidRepo) GetTenderBids(ctx context.Context, tenderId uuid.UUID) ([]entity.Bid, error) {
	sqlReq, args, _ := r.SqlBuilder.
		Select(bidColumns...).
		From("bid").
		Where("tender_id = ?", tenderId).
		OrderBy("created_at DESC").
		ToSql()

	bids := make([]entity.Bid, 0)
	if err := r.Database.SelectContext(ctx, &bids, sqlReq, args...); err != nil {
		return nil, err
	}

	return bids, nil
}

func (r *BidRepo) GetContractorBids(ctx context.Context, contractorId uuid.UUID, pg *entity.PaginationInput) ([]entity.Bid, error) {
	query := r.SqlBuilder.
		Select(bidColumns...).
		From("bid").
		Where("contractor_id = ?", contractorId).
		OrderBy("created_at DESC")

	if pg != nil {
		if pg.Limit > 0 {
			query = query.Limit(uint64(pg.Limit))
		}
		if pg.Offset > 0 {
			query = query.Offset(uint64(pg.Offset))
		}
	}

	sqlReq, args, _ := query.ToSql()

	bids := make([]entity.Bid, 0)
	if err := r.Database.SelectContext(ctx, &bids, sqlReq, args...); err != nil {
		return nil, err
	}

	return bids, nil
}
