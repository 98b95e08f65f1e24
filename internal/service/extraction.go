package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"tender-marketplace-api/internal/ai"
	"tender-marketplace-api/internal/common"
	"tender-marketplace-api/internal/entity"
	"tender-marketplace-api/internal/logger"
	"tender-marketplace-api/internal/metrics"
	"tender-marketplace-api/internal/repo"
	"tender-marketplace-api/internal/repo/repo_errors"
	"tender-marketplace-api/internal/storage"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// writes of the terminal state outlive an expired attempt context
const recordWriteTimeout = 10 * time.Second

var uploadExtractionTypes = map[string]struct{}{
	common.ExtractionStandard: {},
	common.ExtractionDetailed: {},
	common.ExtractionQuick:    {},
}

type ExtractionService struct {
	extractionRepo repo.Extraction
	documentRepo   repo.Document
	tenderRepo     repo.Tender
	storage        storage.Storage
	provider       ai.Provider
	queue          ExtractionQueue
	inline         bool
	metrics        *metrics.Metrics
	validate       *validator.Validate
	maxUpload      int64
	now            func() time.Time
	log            zerolog.Logger
}

func NewExtractionService(deps Dependencies) *ExtractionService {
	return &ExtractionService{
		extractionRepo: deps.Repos.Extraction,
		documentRepo:   deps.Repos.Document,
		tenderRepo:     deps.Repos.Tender,
		storage:        deps.Storage,
		provider:       deps.Provider,
		queue:          deps.Queue,
		inline:         deps.Workers.Inline || deps.Queue == nil,
		metrics:        deps.Metrics,
		validate:       deps.Validator,
		maxUpload:      deps.MaxUploadSize,
		now:            deps.Now,
		log:            logger.Get().With().Str("component", "extraction").Logger(),
	}
}

func (s *ExtractionService) StartExtraction(ctx context.Context, documentId uuid.UUID, tenderId uuid.UUID, extractionType string) (uuid.UUID, error) {
	return s.extractionRepo.CreateExtraction(ctx, &entity.CreateExtractionInput{
		DocumentId:     documentId,
		TenderId:       tenderId,
		ExtractionType: extractionType,
	})
}

// ProcessExtraction runs the provider once and records the terminal state.
// Failures are both recorded and returned. Permanent ones are wrapped with
// Permanent so that queued jobs are not retried.
func (s *ExtractionService) ProcessExtraction(ctx context.Context, extractionId uuid.UUID, filePath string) error {
	log := s.log.With().Str("extraction_id", extractionId.String()).Logger()

	record, err := s.extractionRepo.GetExtractionById(ctx, extractionId)
	if err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return Permanent(ErrExtractionNotFound)
		}

		return err
	}
	if record.Status != common.ExtractionProcessing {
		return Permanent(fmt.Errorf("%w: extraction is already %s", ErrConflict, record.Status))
	}

	if s.provider == nil || !s.provider.IsConfigured() {
		s.fail(ctx, record, ai.ErrNotConfigured)
		return Permanent(fmt.Errorf("%w: %w", ErrExternalProviderFailure, ai.ErrNotConfigured))
	}

	log.Info().Str("provider", s.provider.Name()).Str("extraction_type", record.ExtractionType).Msg("Extraction started")

	result, err := s.provider.ExtractBoqFromPdf(ctx, filePath, record.ExtractionType)
	if err != nil {
		s.fail(ctx, record, err)
		wrapped := fmt.Errorf("%w: %w", ErrExternalProviderFailure, err)
		if errors.Is(err, ai.ErrNotConfigured) || errors.Is(err, ai.ErrUnsupportedFormat) || errors.Is(err, ai.ErrNoExtractableText) {
			return Permanent(wrapped)
		}

		return wrapped
	}

	input := &entity.CompleteExtractionInput{
		Id:          record.Id,
		TenderId:    record.TenderId,
		Payload:     result.Payload,
		Confidence:  result.Confidence,
		ProcessedAt: s.now(),
	}
	// bid imports only pre-fill the contractor's form
	if record.ExtractionType != common.ExtractionBidImport {
		input.AppendItems = s.catalogItems(result.Boq.BoqItems, log)
	}

	writeCtx, cancel := detached(ctx)
	defer cancel()

	if err := s.extractionRepo.CompleteExtraction(writeCtx, input); err != nil {
		switch {
		case errors.Is(err, repo_errors.ErrConflict):
			return Permanent(fmt.Errorf("%w: extraction is no longer processing", ErrConflict))
		case errors.Is(err, repo_errors.ErrCatalogFrozen):
			cause := fmt.Errorf("%w: tender was awarded, extracted items were not added", ErrConflict)
			s.fail(ctx, record, cause)
			return Permanent(cause)
		}

		s.fail(ctx, record, fmt.Errorf("storing extraction result: %w", err))
		return fmt.Errorf("complete extraction: %w", err)
	}

	s.metrics.ExtractionFinished(common.ExtractionCompleted)
	log.Info().
		Float64("confidence", result.Confidence).
		Int("boq_items", len(input.AppendItems)).
		Msg("Extraction completed")

	return nil
}

// catalogItems keeps the extracted lines that are valid catalog items.
func (s *ExtractionService) catalogItems(extracted []entity.ExtractedBoqItem, log zerolog.Logger) []entity.BoqItemInput {
	items := make([]entity.BoqItemInput, 0, len(extracted))
	for _, e := range extracted {
		item := entity.BoqItemInput{
			Description: strings.TrimSpace(e.Description),
			Unit:        strings.TrimSpace(e.Unit),
			Quantity:    e.Quantity,
			ItemType:    e.ItemType,
		}
		if item.ItemType == "" {
			item.ItemType = ai.InferItemType(item.Unit)
		}
		if err := s.validate.Struct(item); err != nil {
			log.Warn().Str("description", item.Description).Msg("Skipping invalid extracted item")
			continue
		}
		items = append(items, item)
	}

	return items
}

func (s *ExtractionService) fail(ctx context.Context, record *entity.PdfExtraction, cause error) {
	writeCtx, cancel := detached(ctx)
	defer cancel()

	log := s.log.With().Str("extraction_id", record.Id.String()).Logger()
	if err := s.extractionRepo.FailExtraction(writeCtx, record.Id, cause.Error(), s.now()); err != nil {
		log.Error().Err(err).Msg("Failed to record extraction failure")
		return
	}

	s.metrics.ExtractionFinished(common.ExtractionFailed)
	log.Warn().Err(cause).Msg("Extraction failed")
}

func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), recordWriteTimeout)
}

// ProcessStored makes the stored object available on disk and processes it.
func (s *ExtractionService) ProcessStored(ctx context.Context, extractionId uuid.UUID, storageKey string) error {
	path, cleanup, err := storage.LocalPath(ctx, s.storage, storageKey)
	if err != nil {
		cause := fmt.Errorf("%w: %v", ErrStorageFailure, err)
		record, getErr := s.extractionRepo.GetExtractionById(ctx, extractionId)
		if getErr != nil {
			if errors.Is(getErr, repo_errors.ErrNotFound) {
				return Permanent(ErrExtractionNotFound)
			}

			return cause
		}
		if record.Status == common.ExtractionProcessing {
			s.fail(ctx, record, cause)
		}
		if errors.Is(err, storage.ErrNotFound) {
			return Permanent(cause)
		}

		return cause
	}
	defer cleanup()

	return s.ProcessExtraction(ctx, extractionId, path)
}

// RetryExtraction opens a fresh processing record for the same document.
func (s *ExtractionService) RetryExtraction(ctx context.Context, extractionId uuid.UUID) (uuid.UUID, error) {
	record, err := s.extractionRepo.GetExtractionById(ctx, extractionId)
	if err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return uuid.Nil, ErrExtractionNotFound
		}

		return uuid.Nil, err
	}

	return s.StartExtraction(ctx, record.DocumentId, record.TenderId, record.ExtractionType)
}

// UploadAndExtract stores a tender document and queues its extraction, or
// runs it right away in inline mode.
func (s *ExtractionService) UploadAndExtract(ctx context.Context, actor *entity.Actor, tenderId uuid.UUID, file *entity.UploadedFile, extractionType string) (*entity.ExtractionStartedOutputModel, error) {
	if err := authorize(ActionExtractionStart, actor, nil); err != nil {
		return nil, err
	}
	if extractionType == "" {
		extractionType = common.ExtractionStandard
	}
	if _, ok := uploadExtractionTypes[extractionType]; !ok {
		return nil, &ValidationError{Fields: []FieldError{{Field: "extractionType", Message: "should have value in: standard detailed quick"}}}
	}
	if err := checkUpload(file, s.maxUpload); err != nil {
		return nil, err
	}
	if !isExtractable(file.OriginalName) {
		return nil, ErrUnsupportedFile
	}

	if _, err := s.tenderRepo.GetTenderById(ctx, tenderId); err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return nil, ErrTenderNotFound
		}

		return nil, err
	}

	key := fmt.Sprintf("pdfs/%d_%s", s.now().UnixNano(), sanitizeFileName(file.OriginalName))
	extractionId, documentId, err := s.register(ctx, actor, tenderId, file, key, common.DocBoqPdf, extractionType)
	if err != nil {
		return nil, err
	}

	out := &entity.ExtractionStartedOutputModel{
		ExtractionId: extractionId.String(),
		DocumentId:   documentId.String(),
		Status:       common.ExtractionProcessing,
	}

	if s.inline {
		if err := s.ProcessStored(ctx, extractionId, key); err != nil {
			s.log.Warn().Err(err).Str("extraction_id", extractionId.String()).Msg("Inline extraction failed")
		}
		record, err := s.extractionRepo.GetExtractionById(ctx, extractionId)
		if err != nil {
			return nil, err
		}
		out.Status = record.Status

		return out, nil
	}

	job := entity.ExtractionJob{ExtractionId: extractionId, StorageKey: key, Attempt: 1}
	if err := s.queue.EnqueueExtraction(ctx, job); err != nil {
		record, getErr := s.extractionRepo.GetExtractionById(ctx, extractionId)
		if getErr == nil {
			s.fail(ctx, record, fmt.Errorf("failed to queue extraction: %w", err))
		}

		return nil, fmt.Errorf("enqueue extraction: %w", err)
	}

	s.log.Info().Str("extraction_id", extractionId.String()).Str("tender_id", tenderId.String()).Msg("Extraction queued")

	return out, nil
}

// ScanBid extracts a contractor's priced document inline. The catalog is
// never touched.
func (s *ExtractionService) ScanBid(ctx context.Context, actor *entity.Actor, tenderId uuid.UUID, file *entity.UploadedFile) (*entity.ScanOutputModel, error) {
	if err := authorize(ActionScanBidImport, actor, nil); err != nil {
		return nil, err
	}
	if err := checkUpload(file, s.maxUpload); err != nil {
		return nil, err
	}
	if !isExtractable(file.OriginalName) {
		return nil, ErrUnsupportedFile
	}

	tender, err := s.tenderRepo.GetTenderById(ctx, tenderId)
	if err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return nil, ErrTenderNotFound
		}

		return nil, err
	}
	if tender.Status != common.Published {
		return nil, ErrTenderNotPublished
	}

	key := fmt.Sprintf("contractor_scans/%s/%d_%s", actor.Id, s.now().UnixNano(), sanitizeFileName(file.OriginalName))
	extractionId, _, err := s.register(ctx, actor, tenderId, file, key, common.DocBidScan, common.ExtractionBidImport)
	if err != nil {
		return nil, err
	}

	processErr := s.ProcessStored(ctx, extractionId, key)

	record, err := s.extractionRepo.GetExtractionById(ctx, extractionId)
	if err != nil {
		return nil, err
	}
	if record.Status != common.ExtractionCompleted {
		if record.ErrorMessage != nil {
			return nil, fmt.Errorf("%w: %s", ErrExternalProviderFailure, *record.ErrorMessage)
		}
		if processErr != nil {
			return nil, processErr
		}

		return nil, ErrExternalProviderFailure
	}

	out := mapExtraction(record)

	return &entity.ScanOutputModel{
		ExtractionId: out.Id,
		Data:         out.Data,
		Confidence:   out.ConfidenceScore,
	}, nil
}

func (s *ExtractionService) register(ctx context.Context, actor *entity.Actor, tenderId uuid.UUID, file *entity.UploadedFile, key string, documentType string, extractionType string) (uuid.UUID, uuid.UUID, error) {
	if err := putFile(ctx, s.storage, key, file.Data); err != nil {
		return uuid.Nil, uuid.Nil, err
	}

	documentId, err := s.documentRepo.CreateDocument(ctx, &entity.CreateDocumentInput{
		TenderId:         tenderId,
		UserId:           actor.Id,
		DocumentType:     documentType,
		FileName:         key[strings.LastIndex(key, "/")+1:],
		OriginalFilename: file.OriginalName,
		FilePath:         key,
		FileSize:         int64(len(file.Data)),
		MimeType:         file.MimeType,
	})
	if err != nil {
		_ = s.storage.Delete(ctx, key)
		return uuid.Nil, uuid.Nil, err
	}

	extractionId, err := s.StartExtraction(ctx, documentId, tenderId, extractionType)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}

	return extractionId, documentId, nil
}

func (s *ExtractionService) GetStatus(ctx context.Context, actor *entity.Actor, extractionId uuid.UUID) (*entity.ExtractionOutputModel, error) {
	if err := authorize(ActionExtractionView, actor, nil); err != nil {
		return nil, err
	}

	record, err := s.extractionRepo.GetExtractionById(ctx, extractionId)
	if err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return nil, ErrExtractionNotFound
		}

		return nil, err
	}

	return mapExtraction(record), nil
}

// ListForTender returns the tender's extractions, newest first.
func (s *ExtractionService) ListForTender(ctx context.Context, actor *entity.Actor, tenderId uuid.UUID) ([]entity.ExtractionOutputModel, error) {
	if err := authorize(ActionExtractionView, actor, nil); err != nil {
		return nil, err
	}

	records, err := s.extractionRepo.GetTenderExtractions(ctx, tenderId)
	if err != nil {
		return nil, err
	}

	return mapExtractions(records), nil
}
