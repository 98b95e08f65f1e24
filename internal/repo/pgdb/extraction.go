package pgdb

import (
	"context"
	"tender-marketplace-api/internal/common"
	"tender-marketplace-api/internal/entity"
	"tender-marketplace-api/internal/repo/repo_errors"
	"tender-marketplace-api/pkg/postgres"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var extractionColumns = []string{
	"id", "document_id", "tender_id", "extraction_type", "status", "ai_response",
	"confidence_score", "error_message", "processed_at", "created_at",
}

type ExtractionRepo struct {
	*postgres.Postgres
}

func NewExtractionRepo(pgdb *postgres.Postgres) *ExtractionRepo {
	return &ExtractionRepo{pgdb}
}

func (r *ExtractionRepo) CreateExtraction(ctx context.Context, input *entity.CreateExtractionInput) (uuid.UUID, error) {
	sqlReq, args, _ := r.SqlBuilder.
		Insert("pdf_extraction").
		Columns("document_id", "tender_id", "extraction_type", "status").
		Values(input.DocumentId, input.TenderId, input.ExtractionType, common.ExtractionProcessing).
		Suffix("RETURNING id").
		ToSql()

	var id uuid.UUID
	if err := r.Database.GetContext(ctx, &id, sqlReq, args...); err != nil {
		return uuid.Nil, repo_errors.Map(err)
	}

	return id, nil
}

func (r *ExtractionRepo) GetExtractionById(ctx context.Context, id uuid.UUID) (*entity.PdfExtraction, error) {
	sqlReq, args, _ := r.SqlBuilder.
		Select(extractionColumns...).
		From("pdf_extraction").
		Where("id = ?", id).
		ToSql()

	var extraction entity.PdfExtraction
	if err := r.Database.GetContext(ctx, &extraction, sqlReq, args...); err != nil {
		return nil, repo_errors.Map(err)
	}

	return &extraction, nil
}

// CompleteExtraction stores the payload and appends the extracted items to
// the tender catalog. A record that already left processing is a conflict.
func (r *ExtractionRepo) CompleteExtraction(ctx context.Context, input *entity.CompleteExtractionInput) error {
	return r.WithinTx(ctx, nil, func(tx *sqlx.Tx) error {
		completeSql, args, _ := r.SqlBuilder.
			Update("pdf_extraction").
			Set("status", common.ExtractionCompleted).
			Set("ai_response", string(input.Payload)).
			Set("confidence_score", input.Confidence).
			Set("processed_at", input.ProcessedAt).
			Where("id = ?", input.Id).
			Where("status = ?", common.ExtractionProcessing).
			ToSql()

		res, err := tx.ExecContext(ctx, completeSql, args...)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return repo_errors.ErrConflict
		}

		return appendBoqItemsTx(ctx, tx, r.SqlBuilder, input.TenderId, input.AppendItems)
	})
}

func (r *ExtractionRepo) FailExtraction(ctx context.Context, id uuid.UUID, message string, processedAt time.Time) error {
	sqlReq, args, _ := r.SqlBuilder.
		Update("pdf_extraction").
		Set("status", common.ExtractionFailed).
		Set("error_message", message).
		Set("processed_at", processedAt).
		Where("id = ?", id).
		Where("status = ?", common.ExtractionProcessing).
		ToSql()

	res, err := r.Database.ExecContext(ctx, sqlReq, args...)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repo_errors.ErrConflict
	}

	return nil
}

func (r *ExtractionRepo) GetTenderExtractions(ctx context.Context, tenderId uuid.UUID) ([]entity.PdfExtraction, error) {
	sqlReq, args, _ := r.SqlBuilder.
		Select(extractionColumns...).
		From("pdf_extraction").
		Where("tender_id = ?", tenderId).
		OrderBy("created_at DESC").
		ToSql()

	extractions := make([]entity.PdfExtraction, 0)
	if err := r.Database.SelectContext(ctx, &extractions, sqlReq, args...); err != nil {
		return nil, err
	}

	return extractions, nil
}
