package service

import (
	"context"
	"errors"
	"fmt"
	"tender-marketplace-api/internal/common"
	"tender-marketplace-api/internal/entity"
	"tender-marketplace-api/internal/logger"
	"tender-marketplace-api/internal/repo"
	"tender-marketplace-api/internal/repo/repo_errors"
	"tender-marketplace-api/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type DocumentService struct {
	documentRepo repo.Document
	tenderRepo   repo.Tender
	storage      storage.Storage
	log          zerolog.Logger
}

func NewDocumentService(deps Dependencies) *DocumentService {
	return &DocumentService{
		documentRepo: deps.Repos.Document,
		tenderRepo:   deps.Repos.Tender,
		storage:      deps.Storage,
		log:          logger.Get().With().Str("component", "document").Logger(),
	}
}

// ListForTender lists the documents of a tender, newest first. Contractors
// only see documents of published or awarded tenders.
func (s *DocumentService) ListForTender(ctx context.Context, actor *entity.Actor, tenderId uuid.UUID) ([]entity.DocumentOutputModel, error) {
	if err := authorize(ActionDocumentView, actor, nil); err != nil {
		return nil, err
	}
	if err := s.checkTenderAccess(ctx, actor, tenderId); err != nil {
		return nil, err
	}

	docs, err := s.documentRepo.ListTenderDocuments(ctx, tenderId)
	if err != nil {
		return nil, err
	}

	return mapDocuments(docs, s.storage), nil
}

func (s *DocumentService) ListAll(ctx context.Context, actor *entity.Actor, pg *entity.PaginationInput) ([]entity.DocumentOutputModel, error) {
	if err := authorize(ActionDocumentListAll, actor, nil); err != nil {
		return nil, err
	}

	docs, err := s.documentRepo.ListDocuments(ctx, pg)
	if err != nil {
		return nil, err
	}

	return mapDocuments(docs, s.storage), nil
}

// History returns the documents a contractor uploaded together with the BOQ
// documents of the tenders they bid on.
func (s *DocumentService) History(ctx context.Context, actor *entity.Actor) ([]entity.DocumentOutputModel, error) {
	if err := authorize(ActionDocumentHistory, actor, nil); err != nil {
		return nil, err
	}

	docs, err := s.documentRepo.ListDocumentHistory(ctx, actor.Id)
	if err != nil {
		return nil, err
	}

	return mapDocuments(docs, s.storage), nil
}

func (s *DocumentService) GetDocument(ctx context.Context, actor *entity.Actor, documentId uuid.UUID) (*entity.DocumentOutputModel, error) {
	doc, err := s.visibleDocument(ctx, actor, documentId)
	if err != nil {
		return nil, err
	}

	return mapDocument(doc, s.storage), nil
}

// Download opens the stored file. A row whose file is gone is reported as a
// missing document. The caller closes Body.
func (s *DocumentService) Download(ctx context.Context, actor *entity.Actor, documentId uuid.UUID) (*entity.DocumentDownload, error) {
	doc, err := s.visibleDocument(ctx, actor, documentId)
	if err != nil {
		return nil, err
	}

	ok, err := s.storage.Exists(ctx, doc.FilePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: file not found", ErrDocumentNotFound)
	}

	body, err := s.storage.Get(ctx, doc.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: file not found", ErrDocumentNotFound)
		}

		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	return &entity.DocumentDownload{
		FileName: doc.OriginalFilename,
		MimeType: doc.MimeType,
		Size:     doc.FileSize,
		Body:     body,
	}, nil
}

// Delete removes the document row, then its stored file. A file that cannot
// be removed is logged and left behind.
func (s *DocumentService) Delete(ctx context.Context, actor *entity.Actor, documentId uuid.UUID) error {
	if err := authorize(ActionDocumentDelete, actor, nil); err != nil {
		return err
	}

	doc, err := s.documentRepo.DeleteDocument(ctx, documentId)
	if err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return ErrDocumentNotFound
		}

		return err
	}

	log := s.log.With().Str("document_id", doc.Id.String()).Str("tender_id", doc.TenderId.String()).Logger()
	if err := s.storage.Delete(ctx, doc.FilePath); err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Error().Err(err).Str("key", doc.FilePath).Msg("Failed to delete stored document file")
	}
	log.Info().Msg("Document deleted")

	return nil
}

func (s *DocumentService) visibleDocument(ctx context.Context, actor *entity.Actor, documentId uuid.UUID) (*entity.Document, error) {
	if err := authorize(ActionDocumentView, actor, nil); err != nil {
		return nil, err
	}

	doc, err := s.documentRepo.GetDocumentById(ctx, documentId)
	if err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}

		return nil, err
	}
	// a contractor always sees what they uploaded
	if actor.Role == common.RoleContractor && doc.UserId == actor.Id {
		return doc, nil
	}
	if err := s.checkTenderAccess(ctx, actor, doc.TenderId); err != nil {
		return nil, err
	}

	return doc, nil
}

func (s *DocumentService) checkTenderAccess(ctx context.Context, actor *entity.Actor, tenderId uuid.UUID) error {
	tender, err := s.tenderRepo.GetTenderById(ctx, tenderId)
	if err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return ErrTenderNotFound
		}

		return err
	}
	if isPrivileged(actor) {
		return nil
	}
	if tender.Status != common.Published && tender.Status != common.Awarded {
		return fmt.Errorf("%w: documents of a %s tender are not public", ErrUnauthorized, tender.Status)
	}

	return nil
}
