package pgdb

import (
	"context"
	"tender-marketplace-api/internal/common"
	"tender-marketplace-api/internal/entity"
	"tender-marketplace-api/internal/repo/repo_errors"
	"tender-marketplace-api/pkg/postgres"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

var documentColumns = []string{
	"id", "tender_id", "user_id", "document_type", "file_name", "original_filename",
	"file_path", "file_size", "mime_type", "created_at",
}

type DocumentRepo struct {
	*postgres.Postgres
}

func NewDocumentRepo(pgdb *postgres.Postgres) *DocumentRepo {
	return &DocumentRepo{pgdb}
}

func (r *DocumentRepo) CreateDocument(ctx context.Context, input *entity.CreateDocumentInput) (uuid.UUID, error) {
	sqlReq, args, _ := r.SqlBuilder.
		Insert("document").
		Columns("tender_id", "user_id", "document_type", "file_name", "original_filename", "file_path", "file_size", "mime_type").
		Values(input.TenderId, input.UserId, input.DocumentType, input.FileName, input.OriginalFilename,
			input.FilePath, input.FileSize, input.MimeType).
		Suffix("RETURNING id").
		ToSql()

	var id uuid.UUID
	if err := r.Database.GetContext(ctx, &id, sqlReq, args...); err != nil {
		return uuid.Nil, repo_errors.Map(err)
	}

	return id, nil
}

func (r *DocumentRepo) GetDocumentById(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	sqlReq, args, _ := r.SqlBuilder.
		Select(documentColumns...).
		From("document").
		Where("id = ?", id).
		ToSql()

	var doc entity.Document
	if err := r.Database.GetContext(ctx, &doc, sqlReq, args...); err != nil {
		return nil, repo_errors.Map(err)
	}

	return &doc, nil
}

func (r *DocumentRepo) ListTenderDocuments(ctx context.Context, tenderId uuid.UUID) ([]entity.Document, error) {
	return r.list(ctx, r.SqlBuilder.
		Select(documentColumns...).
		From("document").
		Where("tender_id = ?", tenderId).
		OrderBy("created_at DESC"))
}

func (r *DocumentRepo) ListDocuments(ctx context.Context, pg *entity.PaginationInput) ([]entity.Document, error) {
	query := r.SqlBuilder.
		Select(documentColumns...).
		From("document").
		OrderBy("created_at DESC")
	if pg != nil {
		if pg.Limit > 0 {
			query = query.Limit(uint64(pg.Limit))
		}
		query = query.Offset(uint64(pg.Offset))
	}

	return r.list(ctx, query)
}

func (r *DocumentRepo) ListDocumentHistory(ctx context.Context, userId uuid.UUID) ([]entity.Document, error) {
	return r.list(ctx, r.SqlBuilder.
		Select(documentColumns...).
		From("document").
		Where(squirrel.Or{
			squirrel.Eq{"user_id": userId},
			squirrel.And{
				squirrel.Eq{"document_type": common.DocBoqPdf},
				squirrel.Expr("tender_id IN (SELECT tender_id FROM bid WHERE contractor_id = ?)", userId),
			},
		}).
		OrderBy("created_at DESC"))
}

// DeleteDocument removes the row and returns it so the caller can drop the
// stored file. Extractions of the document go with it.
func (r *DocumentRepo) DeleteDocument(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	sqlReq, args, _ := r.SqlBuilder.
		Delete("document").
		Where("id = ?", id).
		Suffix("RETURNING " + joinColumns(documentColumns)).
		ToSql()

	var doc entity.Document
	if err := r.Database.GetContext(ctx, &doc, sqlReq, args...); err != nil {
		return nil, repo_errors.Map(err)
	}

	return &doc, nil
}

func (r *DocumentRepo) list(ctx context.Context, query squirrel.SelectBuilder) ([]entity.Document, error) {
	sqlReq, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	docs := make([]entity.Document, 0)
	if err := r.Database.SelectContext(ctx, &docs, sqlReq, args...); err != nil {
		return nil, err
	}

	return docs, nil
}
