package service

import (
	"context"
	"errors"
	"fmt"
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

type BidService struct {
	bidRepo    repo.Bid
	tenderRepo repo.Tender
	boqRepo    repo.Boq
	storage    storage.Storage
	notifier   Notifier
	metrics    *metrics.Metrics
	validate   *validator.Validate
	maxUpload  int64
	now        func() time.Time
	log        zerolog.Logger
}

func NewBidService(deps Dependencies) *BidService {
	return &BidService{
		bidRepo:    deps.Repos.Bid,
		tenderRepo: deps.Repos.Tender,
		boqRepo:    deps.Repos.Boq,
		storage:    deps.Storage,
		notifier:   deps.Notifier,
		metrics:    deps.Metrics,
		validate:   deps.Validator,
		maxUpload:  deps.MaxUploadSize,
		now:        deps.Now,
		log:        logger.Get().With().Str("component", "bid").Logger(),
	}
}

// UpsertBid creates the contractor's draft bid on first save and otherwise
// replaces all of its lines. Quantities are copied from the catalog and the
// total is re-derived from the stored lines.
func (s *BidService) UpsertBid(ctx context.Context, actor *entity.Actor, input *entity.UpsertBidInput) (*entity.BidOutputModel, error) {
	if err := authorize(ActionBidUpsert, actor, nil); err != nil {
		return nil, err
	}
	if err := validateBidItems(s.validate, input.Items); err != nil {
		return nil, err
	}
	if input.OfferFile != nil {
		if err := checkUpload(&entity.UploadedFile{OriginalName: input.OfferFile.Name, Data: input.OfferFile.Data}, s.maxUpload); err != nil {
			return nil, err
		}
	}

	tender, err := s.tenderRepo.GetTenderById(ctx, input.TenderId)
	if err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return nil, ErrTenderNotFound
		}

		return nil, err
	}
	if tender.Status != common.Published {
		return nil, ErrTenderNotPublished
	}
	if !tender.Deadline.After(s.now()) {
		return nil, ErrDeadlinePassed
	}

	catalog, err := s.boqRepo.GetItemsByTenderId(ctx, tender.Id)
	if err != nil {
		return nil, err
	}
	byId := make(map[uuid.UUID]entity.BoqItem, len(catalog))
	for _, item := range catalog {
		byId[item.Id] = item
	}

	lines := make([]entity.NewBidItem, 0, len(input.Items))
	for _, in := range input.Items {
		boqItem, ok := byId[in.BoqItemId]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrBoqItemNotFound, in.BoqItemId)
		}
		lines = append(lines, entity.NewBidItem{
			BoqItemId: boqItem.Id,
			UnitPrice: in.UnitPrice,
			Quantity:  boqItem.Quantity,
			Amount:    in.UnitPrice.Mul(boqItem.Quantity),
		})
	}

	existing, err := s.bidRepo.GetBidByTenderAndContractor(ctx, tender.Id, actor.Id)
	if err != nil && !errors.Is(err, repo_errors.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.Status != common.BidDraft {
		return nil, ErrBidNotOpen
	}

	record := &entity.UpsertBidRecord{
		TenderId:     tender.Id,
		ContractorId: actor.Id,
		Items:        lines,
		Proposal:     input.Proposal,
	}

	var storedKey string
	if input.OfferFile != nil {
		if existing != nil && existing.OfferFilePath != nil {
			if err := s.storage.Delete(ctx, *existing.OfferFilePath); err != nil && !errors.Is(err, storage.ErrNotFound) {
				return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
			}
		}

		name := sanitizeFileName(input.OfferFile.Name)
		storedKey = fmt.Sprintf("bids/%s/%d_offer_%s", actor.Id, s.now().Unix(), name)
		if err := putFile(ctx, s.storage, storedKey, input.OfferFile.Data); err != nil {
			return nil, err
		}
		record.OfferFilePath = &storedKey
		record.OfferFileName = &input.OfferFile.Name
	}

	bid, err := s.bidRepo.UpsertBid(ctx, record)
	if err != nil {
		if storedKey != "" {
			_ = s.storage.Delete(ctx, storedKey)
		}
		switch {
		case errors.Is(err, repo_errors.ErrConflict):
			return nil, ErrBidNotOpen
		case errors.Is(err, repo_errors.ErrMissingReference):
			// the catalog was replaced after it was read
			return nil, fmt.Errorf("%w: the bill of quantities changed, reload the tender", ErrBoqItemNotFound)
		}

		return nil, err
	}

	s.log.Info().
		Str("bid_id", bid.Id.String()).
		Str("tender_id", tender.Id.String()).
		Int("items", len(lines)).
		Str("total", bid.TotalAmount.String()).
		Msg("Bid saved")

	return s.withItems(ctx, bid)
}

func (s *BidService) SubmitBid(ctx context.Context, actor *entity.Actor, bidId uuid.UUID) (*entity.BidOutputModel, error) {
	bid, err := s.getBid(ctx, bidId)
	if err != nil {
		return nil, err
	}
	if err := authorize(ActionBidSubmit, actor, &Resource{OwnerId: bid.ContractorId}); err != nil {
		return nil, err
	}
	if bid.Status != common.BidDraft {
		return nil, ErrBidNotOpen
	}

	tender, err := s.tenderRepo.GetTenderById(ctx, bid.TenderId)
	if err != nil {
		return nil, err
	}
	if tender.Status != common.Published {
		return nil, ErrTenderNotPublished
	}

	submitted, err := s.bidRepo.SubmitBid(ctx, bidId, s.now())
	if err != nil {
		switch {
		case errors.Is(err, repo_errors.ErrConflict):
			return nil, ErrBidNotOpen
		case errors.Is(err, repo_errors.ErrNotFound):
			return nil, ErrBidNotFound
		}

		return nil, err
	}

	s.metrics.BidSubmitted()
	s.log.Info().Str("bid_id", bidId.String()).Str("total", submitted.TotalAmount.String()).Msg("Bid submitted")

	amount := submitted.TotalAmount.StringFixed(moneyPlaces)
	s.notifier.Notify(ctx, tender.CreatedBy, common.NotifyBidSubmitted, map[string]any{
		"bid_id":          submitted.Id.String(),
		"tender_id":       tender.Id.String(),
		"tender_title":    tender.Title,
		"contractor_name": actor.Name,
		"amount":          amount,
		"message":         fmt.Sprintf("%s submitted a bid of €%s for %q", actor.Name, amount, tender.Title),
	})

	return s.withItems(ctx, submitted)
}

// AwardBid awards the bid's tender to it. Re-awarding is refused.
func (s *BidService) AwardBid(ctx context.Context, actor *entity.Actor, bidId uuid.UUID) (*entity.TenderOutputModel, error) {
	if err := authorize(ActionBidAward, actor, nil); err != nil {
		return nil, err
	}

	bid, err := s.getBid(ctx, bidId)
	if err != nil {
		return nil, err
	}

	tender, err := s.tenderRepo.GetTenderById(ctx, bid.TenderId)
	if err != nil {
		return nil, err
	}
	if err := awardPrecondition(tender.Status); err != nil {
		return nil, err
	}
	if bid.Status != common.BidDraft && bid.Status != common.BidSubmitted {
		return nil, ErrBidNotOpen
	}

	if err := s.tenderRepo.AwardTender(ctx, tender.Id, bid.Id, s.now()); err != nil {
		switch {
		case errors.Is(err, repo_errors.ErrConflict):
			// status moved under us, report what it moved to
			current, getErr := s.tenderRepo.GetTenderById(ctx, tender.Id)
			if getErr == nil {
				if perr := awardPrecondition(current.Status); perr != nil {
					return nil, perr
				}
			}
			return nil, ErrConflict
		case errors.Is(err, repo_errors.ErrNotFound):
			return nil, ErrBidNotOpen
		}

		return nil, err
	}

	s.metrics.TenderAwarded()
	s.log.Info().Str("tender_id", tender.Id.String()).Str("bid_id", bid.Id.String()).Msg("Tender awarded")

	amount := bid.TotalAmount.StringFixed(moneyPlaces)
	s.notifier.Notify(ctx, bid.ContractorId, common.NotifyBidAwarded, map[string]any{
		"bid_id":       bid.Id.String(),
		"tender_id":    tender.Id.String(),
		"tender_title": tender.Title,
		"amount":       amount,
		"message":      fmt.Sprintf("Congratulations! Your bid of €%s for %q has been awarded!", amount, tender.Title),
	})

	awarded, err := s.tenderRepo.GetTenderById(ctx, tender.Id)
	if err != nil {
		return nil, err
	}

	return mapTender(awarded, s.now()), nil
}

func awardPrecondition(status string) error {
	switch status {
	case common.Published:
		return nil
	case common.Awarded:
		return ErrTenderAlreadyAwarded
	}

	return ErrTenderNotPublished
}

func (s *BidService) GetBid(ctx context.Context, actor *entity.Actor, bidId uuid.UUID) (*entity.BidOutputModel, error) {
	bid, err := s.getBid(ctx, bidId)
	if err != nil {
		return nil, err
	}
	if err := authorize(ActionBidView, actor, &Resource{OwnerId: bid.ContractorId}); err != nil {
		return nil, err
	}

	return s.withItems(ctx, bid)
}

func (s *BidService) ListBidsForTender(ctx context.Context, actor *entity.Actor, tenderId uuid.UUID) ([]entity.BidOutputModel, error) {
	if err := authorize(ActionTenderListBids, actor, nil); err != nil {
		return nil, err
	}

	if _, err := s.tenderRepo.GetTenderById(ctx, tenderId); err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return nil, ErrTenderNotFound
		}

		return nil, err
	}

	bids, err := s.bidRepo.GetTenderBids(ctx, tenderId)
	if err != nil {
		return nil, err
	}

	out := make([]entity.BidOutputModel, 0, len(bids))
	for i := range bids {
		m, err := s.withItems(ctx, &bids[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}

	return out, nil
}

func (s *BidService) ListMyBids(ctx context.Context, actor *entity.Actor, pg *entity.PaginationInput) ([]entity.BidOutputModel, error) {
	if actor == nil {
		return nil, authorize(ActionBidView, actor, nil)
	}
	if err := authorize(ActionBidView, actor, &Resource{OwnerId: actor.Id}); err != nil {
		return nil, err
	}

	bids, err := s.bidRepo.GetContractorBids(ctx, actor.Id, pg)
	if err != nil {
		return nil, err
	}

	return mapBids(bids, s.storage), nil
}

func (s *BidService) getBid(ctx context.Context, bidId uuid.UUID) (*entity.Bid, error) {
	bid, err := s.bidRepo.GetBidById(ctx, bidId)
	if err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return nil, ErrBidNotFound
		}

		return nil, err
	}

	return bid, nil
}

func (s *BidService) withItems(ctx context.Context, bid *entity.Bid) (*entity.BidOutputModel, error) {
	rows, err := s.bidRepo.GetBidItems(ctx, bid.Id)
	if err != nil {
		return nil, err
	}

	out := mapBid(bid, s.storage)
	out.Items = mapBidItems(rows)

	return out, nil
}
