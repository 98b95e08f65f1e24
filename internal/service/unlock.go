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

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// unlock metric results
const (
	unlockInsufficient = "insufficient_credits"
)

type UnlockService struct {
	tenderRepo repo.Tender
	unlockRepo repo.Unlock
	ledgerRepo repo.Ledger
	cost       int64
	metrics    *metrics.Metrics
	log        zerolog.Logger
}

func NewUnlockService(deps Dependencies) *UnlockService {
	return &UnlockService{
		tenderRepo: deps.Repos.Tender,
		unlockRepo: deps.Repos.Unlock,
		ledgerRepo: deps.Repos.Ledger,
		cost:       deps.Billing.UnlockCost,
		metrics:    deps.Metrics,
		log:        logger.Get().With().Str("component", "unlock").Logger(),
	}
}

// Unlock charges the unlock cost once per (contractor, tender). Repeated and
// concurrent calls for an unlocked pair succeed without charging.
func (s *UnlockService) Unlock(ctx context.Context, actor *entity.Actor, tenderId uuid.UUID) (*entity.UnlockResult, error) {
	if isPrivileged(actor) {
		s.metrics.UnlockRecorded(entity.UnlockPrivileged)
		return &entity.UnlockResult{Status: entity.UnlockPrivileged}, nil
	}
	if err := authorize(ActionTenderUnlock, actor, nil); err != nil {
		return nil, err
	}

	tender, err := s.tenderRepo.GetTenderById(ctx, tenderId)
	if err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return nil, ErrTenderNotFound
		}

		return nil, err
	}
	if tender.Status == common.Draft {
		return nil, ErrTenderNotFound
	}

	log := s.log.With().Str("user_id", actor.Id.String()).Str("tender_id", tenderId.String()).Logger()

	unlocked, err := s.unlockRepo.HasUnlock(ctx, actor.Id, tenderId)
	if err != nil {
		return nil, err
	}
	if unlocked {
		return s.alreadyUnlocked(ctx, actor.Id)
	}

	credit, err := s.ledgerRepo.GetOrCreateCredit(ctx, actor.Id)
	if err != nil {
		return nil, err
	}
	if credit.Balance < s.cost {
		s.metrics.UnlockRecorded(unlockInsufficient)
		return nil, ErrInsufficientCredits
	}

	unlock, balance, err := s.unlockRepo.CreateUnlock(ctx, actor.Id, tenderId, s.cost, fmt.Sprintf("Unlocked Tender: %s", tender.Title))
	if err != nil {
		switch {
		case errors.Is(err, repo_errors.ErrAlreadyExists):
			// lost the race to a concurrent unlock of the same pair
			return s.alreadyUnlocked(ctx, actor.Id)
		case errors.Is(err, repo_errors.ErrInsufficientFunds):
			s.metrics.UnlockRecorded(unlockInsufficient)
			return nil, ErrInsufficientCredits
		}

		log.Error().Err(err).Msg("Unlock failed")
		return nil, err
	}

	s.metrics.UnlockRecorded(entity.UnlockGranted)
	log.Info().Int64("credits_spent", unlock.CreditsSpent).Int64("balance", balance).Msg("Tender unlocked")

	return &entity.UnlockResult{
		Status:       entity.UnlockGranted,
		CreditsSpent: unlock.CreditsSpent,
		Balance:      balance,
	}, nil
}

func (s *UnlockService) alreadyUnlocked(ctx context.Context, userId uuid.UUID) (*entity.UnlockResult, error) {
	s.metrics.UnlockRecorded(entity.UnlockAlready)

	credit, err := s.ledgerRepo.GetOrCreateCredit(ctx, userId)
	if err != nil {
		return nil, err
	}

	return &entity.UnlockResult{Status: entity.UnlockAlready, Balance: credit.Balance}, nil
}

func (s *UnlockService) IsUnlocked(ctx context.Context, actor *entity.Actor, tenderId uuid.UUID) (bool, error) {
	if isPrivileged(actor) {
		return true, nil
	}
	if actor == nil {
		return false, nil
	}

	return s.unlockRepo.HasUnlock(ctx, actor.Id, tenderId)
}
