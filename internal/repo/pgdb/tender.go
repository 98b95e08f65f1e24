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

var tenderColumns = []string{
	"tender.id", "tender.title", "tender.description", "tender.location", "tender.deadline",
	"tender.status", "tender.budget", "tender.created_by", "tender.awarded_bid_id",
	"tender.awarded_date", "tender.created_at", "tender.updated_at",
}

const urgentWindow = 7 * 24 * time.Hour

type TenderRepo struct {
	*postgres.Postgres
}

func NewTenderRepo(pgdb *postgres.Postgres) *TenderRepo {
	return &TenderRepo{pgdb}
}

// CreateTender inserts the tender and its BOQ in one transaction.
func (r *TenderRepo) CreateTender(ctx context.Context, input *entity.CreateTenderInput) (uuid.UUID, error) {
	var tenderId uuid.UUID
	err := r.WithinTx(ctx, nil, func(tx *sqlx.Tx) error {
		createTenderSql, args, _ := r.SqlBuilder.
			Insert("tender").
			Columns("title", "description", "location", "deadline", "status", "budget", "created_by").
			Values(input.Title, input.Description, input.Location, input.Deadline, input.Status, input.Budget, input.CreatedBy).
			Suffix("RETURNING id").
			ToSql()

		if err := tx.GetContext(ctx, &tenderId, createTenderSql, args...); err != nil {
			return err
		}

		return insertBoqItemsTx(ctx, tx, r.SqlBuilder, tenderId, input.BoqItems, 1)
	})
	if err != nil {
		return uuid.Nil, repo_errors.Map(err)
	}

	return tenderId, nil
}

func (r *TenderRepo) GetTenderById(ctx context.Context, id uuid.UUID) (*entity.Tender, error) {
	sqlReq, args, _ := r.SqlBuilder.
		Select(tenderColumns...).
		From("tender").
		Where("tender.id = ?", id).
		ToSql()

	var tender entity.Tender
	if err := r.Database.GetContext(ctx, &tender, sqlReq, args...); err != nil {
		return nil, repo_errors.Map(err)
	}

	return &tender, nil
}

// UpdateTender applies the non-nil fields and, when requested, replaces the
// BOQ in the same transaction. Awarded tenders are not editable.
func (r *TenderRepo) UpdateTender(ctx context.Context, id uuid.UUID, input *entity.UpdateTenderInput) error {
	return r.WithinTx(ctx, nil, func(tx *sqlx.Tx) error {
		status, err := lockTenderTx(ctx, tx, r.SqlBuilder, id)
		if err != nil {
			return err
		}
		if status == common.Awarded {
			return repo_errors.ErrConflict
		}

		update := r.SqlBuilder.
			Update("tender").
			Set("updated_at", squirrel.Expr("CURRENT_TIMESTAMP")).
			Where("id = ?", id)

		if input.Title != nil {
			update = update.Set("title", *input.Title)
		}
		if input.Description != nil {
			update = update.Set("description", *input.Description)
		}
		if input.Location != nil {
			update = update.Set("location", *input.Location)
		}
		if input.Deadline != nil {
			update = update.Set("deadline", *input.Deadline)
		}
		if input.Budget != nil {
			update = update.Set("budget", *input.Budget)
		}

		updateSql, args, _ := update.ToSql()
		if _, err := tx.ExecContext(ctx, updateSql, args...); err != nil {
			return err
		}

		if !input.ReplaceBoq {
			return nil
		}

		return replaceBoqItemsTx(ctx, tx, r.SqlBuilder, id, input.BoqItems)
	})
}

// PublishTender moves a draft tender to published. Publishing an already
// published tender is a no-op, any other state is a conflict.
func (r *TenderRepo) PublishTender(ctx context.Context, id uuid.UUID) error {
	return r.WithinTx(ctx, nil, func(tx *sqlx.Tx) error {
		status, err := lockTenderTx(ctx, tx, r.SqlBuilder, id)
		if err != nil {
			return err
		}

		switch status {
		case common.Published:
			return nil
		case common.Draft:
		default:
			return repo_errors.ErrConflict
		}

		publishSql, args, _ := r.SqlBuilder.
			Update("tender").
			Set("status", common.Published).
			Set("updated_at", squirrel.Expr("CURRENT_TIMESTAMP")).
			Where("id = ?", id).
			ToSql()

		_, err = tx.ExecContext(ctx, publishSql, args...)
		return err
	})
}

// AwardTender marks the winning bid accepted, every sibling rejected and the
// tender awarded. Nothing is written unless all three updates succeed.
func (r *TenderRepo) AwardTender(ctx context.Context, tenderId uuid.UUID, bidId uuid.UUID, awardedAt time.Time) error {
	return r.WithinTx(ctx, nil, func(tx *sqlx.Tx) error {
		status, err := lockTenderTx(ctx, tx, r.SqlBuilder, tenderId)
		if err != nil {
			return err
		}
		if status != common.Published {
			return repo_errors.ErrConflict
		}

		acceptSql, args, _ := r.SqlBuilder.
			Update("bid").
			Set("status", common.BidAccepted).
			Set("updated_at", awardedAt).
			Where("id = ?", bidId).
			Where("tender_id = ?", tenderId).
			Where(squirrel.Eq{"status": []string{common.BidDraft, common.BidSubmitted}}).
			Suffix("RETURNING id").
			ToSql()

		var acceptedId uuid.UUID
		if err := tx.GetContext(ctx, &acceptedId, acceptSql, args...); err != nil {
			return repo_errors.Map(err)
		}

		rejectSql, args, _ := r.SqlBuilder.
			Update("bid").
			Set("status", common.BidRejected).
			Set("updated_at", awardedAt).
			Where("tender_id = ?", tenderId).
			Where("id <> ?", bidId).
			ToSql()

		if _, err := tx.ExecContext(ctx, rejectSql, args...); err != nil {
			return err
		}

		awardSql, args, _ := r.SqlBuilder.
			Update("tender").
			Set("status", common.Awarded).
			Set("awarded_bid_id", bidId).
			Set("awarded_date", awardedAt).
			Set("updated_at", awardedAt).
			Where("id = ?", tenderId).
			ToSql()

		_, err = tx.ExecContext(ctx, awardSql, args...)
		return err
	})
}

func (r *TenderRepo) ListTenders(ctx context.Context, filter *entity.TenderFilter, pg *entity.PaginationInput) ([]entity.TenderListRow, error) {
	columns := append([]string{}, tenderColumns...)
	columns = append(columns, "(SELECT COUNT(*) FROM bid WHERE bid.tender_id = tender.id) AS bids_count")

	query := r.SqlBuilder.
		Select(columns...).
		Column(squirrel.Expr("EXISTS (SELECT 1 FROM saved_tender st WHERE st.tender_id = tender.id AND st.user_id = ?) AS is_saved", filter.Viewer)).
		From("tender")

	if filter.ActiveOnly {
		query = query.
			Where(squirrel.Eq{"tender.status": common.Published}).
			Where("tender.deadline > ?", filter.Now)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where(squirrel.Or{
			squirrel.ILike{"tender.title": pattern},
			squirrel.ILike{"tender.description": pattern},
		})
	}
	if filter.Location != "" {
		query = query.Where(squirrel.ILike{"tender.location": "%" + filter.Location + "%"})
	}
	if filter.Urgent {
		query = query.
			Where("tender.deadline > ?", filter.Now).
			Where("tender.deadline < ?", filter.Now.Add(urgentWindow))
	}
	if filter.SavedOnly {
		query = query.Where("EXISTS (SELECT 1 FROM saved_tender st WHERE st.tender_id = tender.id AND st.user_id = ?)", filter.Viewer)
	}

	query = query.OrderBy("tender.created_at DESC")
	if pg != nil {
		if pg.Limit > 0 {
			query = query.Limit(uint64(pg.Limit))
		}
		if pg.Offset > 0 {
			query = query.Offset(uint64(pg.Offset))
		}
	}

	sqlReq, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows := make([]entity.TenderListRow, 0)
	if err := r.Database.SelectContext(ctx, &rows, sqlReq, args...); err != nil {
		return nil, err
	}

	return rows, nil
}

func (r *TenderRepo) SaveTender(ctx context.Context, userId uuid.UUID, tenderId uuid.UUID) error {
	sqlReq, args, _ := r.SqlBuilder.
		Insert("saved_tender").
		Columns("user_id", "tender_id").
		Values(userId, tenderId).
		Suffix("ON CONFLICT (user_id, tender_id) DO NOTHING").
		ToSql()

	_, err := r.Database.ExecContext(ctx, sqlReq, args...)
	return repo_errors.Map(err)
}

func (r *TenderRepo) UnsaveTender(ctx context.Context, userId uuid.UUID, tenderId uuid.UUID) error {
	sqlReq, args, _ := r.SqlBuilder.
		Delete("saved_tender").
		Where("user_id = ?", userId).
		Where("tender_id = ?", tenderId).
		ToSql()

	_, err := r.Database.ExecContext(ctx, sqlReq, args...)
	return err
}

func (r *TenderRepo) IsSaved(ctx context.Context, userId uuid.UUID, tenderId uuid.UUID) (bool, error) {
	sqlReq, args, _ := r.SqlBuilder.
		Select().
		Column(squirrel.Expr("EXISTS (SELECT 1 FROM saved_tender WHERE user_id = ? AND tender_id = ?)", userId, tenderId)).
		ToSql()

	var saved bool
	if err := r.Database.GetContext(ctx, &saved, sqlReq, args...); err != nil {
		return false, err
	}

	return saved, nil
}
