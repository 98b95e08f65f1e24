package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"tender-marketplace-api/internal/common"
	"tender-marketplace-api/internal/entity"
	"tender-marketplace-api/internal/logger"
	"tender-marketplace-api/internal/repo"
	"tender-marketplace-api/internal/repo/repo_errors"
	"tender-marketplace-api/internal/storage"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var documentTypes = map[string]struct{}{
	common.DocSpecifications: {},
	common.DocDrawing:        {},
	common.DocContract:       {},
	common.DocOther:          {},
}

type TenderService struct {
	tenderRepo   repo.Tender
	boqRepo      repo.Boq
	bidRepo      repo.Bid
	documentRepo repo.Document
	unlock       Unlock
	storage      storage.Storage
	validate     *validator.Validate
	maxUpload    int64
	now          func() time.Time
	log          zerolog.Logger
}

func NewTenderService(deps Dependencies, unlock Unlock) *TenderService {
	return &TenderService{
		tenderRepo:   deps.Repos.Tender,
		boqRepo:      deps.Repos.Boq,
		bidRepo:      deps.Repos.Bid,
		documentRepo: deps.Repos.Document,
		unlock:       unlock,
		storage:      deps.Storage,
		validate:     deps.Validator,
		maxUpload:    deps.MaxUploadSize,
		now:          deps.Now,
		log:          logger.Get().With().Str("component", "tender").Logger(),
	}
}

func (s *TenderService) CreateTender(ctx context.Context, actor *entity.Actor, input *entity.CreateTenderInput) (*entity.TenderOutputModel, error) {
	if err := authorize(ActionTenderCreate, actor, nil); err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	if !input.Deadline.After(s.now()) {
		verr.add("deadline", "should be in the future")
	}
	if input.Budget.IsNegative() {
		verr.add("budget", "should be greater or equal than 0")
	}
	if err := validateBoqItems(s.validate, input.BoqItems); err != nil {
		var itemsErr *ValidationError
		if errors.As(err, &itemsErr) {
			verr.Fields = append(verr.Fields, itemsErr.Fields...)
		}
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	switch input.Status {
	case "":
		input.Status = common.Published
	case common.Draft, common.Published:
	default:
		return nil, &ValidationError{Fields: []FieldError{{Field: "status", Message: "should have value in: draft published"}}}
	}
	input.CreatedBy = actor.Id
	trimBoqItems(input.BoqItems)

	id, err := s.tenderRepo.CreateTender(ctx, input)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("tender_id", id.String()).Str("status", input.Status).Int("boq_items", len(input.BoqItems)).Msg("Tender created")

	return s.detail(ctx, actor, id)
}

func (s *TenderService) UpdateTender(ctx context.Context, actor *entity.Actor, tenderId uuid.UUID, input *entity.UpdateTenderInput) (*entity.TenderOutputModel, error) {
	if err := authorize(ActionTenderUpdate, actor, nil); err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	if input.Deadline != nil && !input.Deadline.After(s.now()) {
		verr.add("deadline", "should be in the future")
	}
	if input.Budget != nil && input.Budget.IsNegative() {
		verr.add("budget", "should be greater or equal than 0")
	}
	if input.ReplaceBoq {
		if err := validateBoqItems(s.validate, input.BoqItems); err != nil {
			var itemsErr *ValidationError
			if errors.As(err, &itemsErr) {
				verr.Fields = append(verr.Fields, itemsErr.Fields...)
			}
		}
		trimBoqItems(input.BoqItems)
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	if err := s.tenderRepo.UpdateTender(ctx, tenderId, input); err != nil {
		return nil, mapTenderWriteError(err)
	}

	return s.detail(ctx, actor, tenderId)
}

func (s *TenderService) PublishTender(ctx context.Context, actor *entity.Actor, tenderId uuid.UUID) (*entity.TenderOutputModel, error) {
	if err := authorize(ActionTenderPublish, actor, nil); err != nil {
		return nil, err
	}

	if err := s.tenderRepo.PublishTender(ctx, tenderId); err != nil {
		return nil, mapTenderWriteError(err)
	}

	s.log.Info().Str("tender_id", tenderId.String()).Msg("Tender published")

	return s.detail(ctx, actor, tenderId)
}

// ReplaceBoq swaps the whole catalog. Bid items priced against removed
// lines are deleted with them and the affected bid totals recomputed.
func (s *TenderService) ReplaceBoq(ctx context.Context, actor *entity.Actor, tenderId uuid.UUID, items []entity.BoqItemInput) ([]entity.BoqItemOutputModel, error) {
	if err := authorize(ActionTenderReplaceBoq, actor, nil); err != nil {
		return nil, err
	}
	if err := validateBoqItems(s.validate, items); err != nil {
		return nil, err
	}
	trimBoqItems(items)

	if err := s.boqRepo.ReplaceItems(ctx, tenderId, items); err != nil {
		return nil, mapTenderWriteError(err)
	}

	stored, err := s.boqRepo.GetItemsByTenderId(ctx, tenderId)
	if err != nil {
		return nil, err
	}

	return mapBoqItems(stored), nil
}

// GetTender shows the BOQ to contractors only once they unlocked the tender,
// and only their own bid.
func (s *TenderService) GetTender(ctx context.Context, actor *entity.Actor, tenderId uuid.UUID) (*entity.TenderOutputModel, error) {
	if err := authorize(ActionTenderView, actor, nil); err != nil {
		return nil, err
	}

	return s.detail(ctx, actor, tenderId)
}

func (s *TenderService) detail(ctx context.Context, actor *entity.Actor, tenderId uuid.UUID) (*entity.TenderOutputModel, error) {
	tender, err := s.tenderRepo.GetTenderById(ctx, tenderId)
	if err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return nil, ErrTenderNotFound
		}

		return nil, err
	}

	contractor := actor.Role == common.RoleContractor
	if contractor && tender.Status != common.Published && tender.Status != common.Awarded {
		return nil, ErrTenderNotFound
	}

	out := mapTender(tender, s.now())

	unlocked, err := s.unlock.IsUnlocked(ctx, actor, tenderId)
	if err != nil {
		return nil, err
	}
	out.IsUnlocked = unlocked

	if unlocked {
		items, err := s.boqRepo.GetItemsByTenderId(ctx, tenderId)
		if err != nil {
			return nil, err
		}
		out.BoqItems = mapBoqItems(items)
	}

	if contractor {
		saved, err := s.tenderRepo.IsSaved(ctx, actor.Id, tenderId)
		if err != nil {
			return nil, err
		}
		out.IsSaved = saved

		bid, err := s.bidRepo.GetBidByTenderAndContractor(ctx, tenderId, actor.Id)
		switch {
		case err == nil:
			out.Bids = []entity.BidOutputModel{*mapBid(bid, s.storage)}
			out.BidsCount = 1
		case !errors.Is(err, repo_errors.ErrNotFound):
			return nil, err
		}

		return out, nil
	}

	bids, err := s.bidRepo.GetTenderBids(ctx, tenderId)
	if err != nil {
		return nil, err
	}
	out.Bids = mapBids(bids, s.storage)
	out.BidsCount = len(bids)

	return out, nil
}

// ListTenders shows contractors the open published tenders only.
func (s *TenderService) ListTenders(ctx context.Context, actor *entity.Actor, filter *entity.TenderFilter, pg *entity.PaginationInput) ([]entity.TenderOutputModel, error) {
	if err := authorize(ActionTenderView, actor, nil); err != nil {
		return nil, err
	}

	if filter == nil {
		filter = &entity.TenderFilter{}
	}
	filter.Viewer = actor.Id
	filter.Now = s.now()
	filter.Search = strings.TrimSpace(filter.Search)
	filter.Location = strings.TrimSpace(filter.Location)
	if actor.Role == common.RoleContractor {
		filter.ActiveOnly = true
	} else {
		filter.SavedOnly = false
	}

	rows, err := s.tenderRepo.ListTenders(ctx, filter, pg)
	if err != nil {
		return nil, err
	}

	unlocked := make(map[string]bool, len(rows))
	for _, row := range rows {
		ok, err := s.unlock.IsUnlocked(ctx, actor, row.Id)
		if err != nil {
			return nil, err
		}
		unlocked[row.Id.String()] = ok
	}

	return mapTenderRows(rows, filter.Now, unlocked), nil
}

func (s *TenderService) SaveTender(ctx context.Context, actor *entity.Actor, tenderId uuid.UUID) error {
	if err := authorize(ActionTenderSave, actor, nil); err != nil {
		return err
	}
	if err := s.ensureVisible(ctx, tenderId); err != nil {
		return err
	}

	return s.tenderRepo.SaveTender(ctx, actor.Id, tenderId)
}

func (s *TenderService) UnsaveTender(ctx context.Context, actor *entity.Actor, tenderId uuid.UUID) error {
	if err := authorize(ActionTenderSave, actor, nil); err != nil {
		return err
	}

	return s.tenderRepo.UnsaveTender(ctx, actor.Id, tenderId)
}

func (s *TenderService) UploadDocument(ctx context.Context, actor *entity.Actor, tenderId uuid.UUID, documentType string, file *entity.UploadedFile) (*entity.DocumentOutputModel, error) {
	if err := authorize(ActionDocumentUpload, actor, nil); err != nil {
		return nil, err
	}
	if documentType == "" {
		documentType = common.DocOther
	}
	if _, ok := documentTypes[documentType]; !ok {
		return nil, &ValidationError{Fields: []FieldError{{Field: "documentType", Message: "should have value in: specifications drawing contract other"}}}
	}
	if err := checkUpload(file, s.maxUpload); err != nil {
		return nil, err
	}

	if _, err := s.tenderRepo.GetTenderById(ctx, tenderId); err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return nil, ErrTenderNotFound
		}

		return nil, err
	}

	name := sanitizeFileName(file.OriginalName)
	key := fmt.Sprintf("documents/%s/%d_%s", tenderId, s.now().UnixNano(), name)
	if err := putFile(ctx, s.storage, key, file.Data); err != nil {
		return nil, err
	}

	input := &entity.CreateDocumentInput{
		TenderId:         tenderId,
		UserId:           actor.Id,
		DocumentType:     documentType,
		FileName:         name,
		OriginalFilename: file.OriginalName,
		FilePath:         key,
		FileSize:         int64(len(file.Data)),
		MimeType:         file.MimeType,
	}
	id, err := s.documentRepo.CreateDocument(ctx, input)
	if err != nil {
		_ = s.storage.Delete(ctx, key)
		return nil, err
	}

	doc, err := s.documentRepo.GetDocumentById(ctx, id)
	if err != nil {
		return nil, err
	}

	return mapDocument(doc, s.storage), nil
}

func (s *TenderService) ensureVisible(ctx context.Context, tenderId uuid.UUID) error {
	tender, err := s.tenderRepo.GetTenderById(ctx, tenderId)
	if err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return ErrTenderNotFound
		}

		return err
	}
	if tender.Status == common.Draft {
		return ErrTenderNotFound
	}

	return nil
}

func mapTenderWriteError(err error) error {
	switch {
	case errors.Is(err, repo_errors.ErrNotFound):
		return ErrTenderNotFound
	case errors.Is(err, repo_errors.ErrConflict):
		return fmt.Errorf("%w: tender is awarded or closed", ErrConflict)
	}

	return err
}

func trimBoqItems(items []entity.BoqItemInput) {
	for i := range items {
		items[i].Description = strings.TrimSpace(items[i].Description)
		items[i].Unit = strings.TrimSpace(items[i].Unit)
	}
}
