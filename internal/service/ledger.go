package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"tender-marketplace-api/internal/common"
	"tender-marketplace-api/internal/config"
	"tender-marketplace-api/internal/entity"
	"tender-marketplace-api/internal/logger"
	"tender-marketplace-api/internal/repo"
	"tender-marketplace-api/internal/repo/repo_errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const billingHistoryLimit = 20

type LedgerService struct {
	ledgerRepo repo.Ledger
	packs      []config.PackConfig
	log        zerolog.Logger
}

func NewLedgerService(deps Dependencies) *LedgerService {
	return &LedgerService{
		ledgerRepo: deps.Repos.Ledger,
		packs:      deps.Billing.Packs,
		log:        logger.Get().With().Str("component", "ledger").Logger(),
	}
}

func (s *LedgerService) GetOrCreateBalance(ctx context.Context, userId uuid.UUID) (*entity.Credit, error) {
	return s.ledgerRepo.GetOrCreateCredit(ctx, userId)
}

// AdjustBalance applies delta together with its transaction row. A debit
// below zero is refused with ErrInsufficientCredits.
func (s *LedgerService) AdjustBalance(ctx context.Context, userId uuid.UUID, delta int64, input *entity.TransactionInput) (*entity.Transaction, int64, error) {
	txn, balance, err := s.ledgerRepo.AdjustBalance(ctx, userId, delta, input)
	if err != nil {
		if errors.Is(err, repo_errors.ErrInsufficientFunds) {
			return nil, 0, ErrInsufficientCredits
		}

		return nil, 0, err
	}

	return txn, balance, nil
}

func (s *LedgerService) GetBilling(ctx context.Context, actor *entity.Actor) (*entity.BillingOutputModel, error) {
	if err := authorize(ActionBillingView, actor, nil); err != nil {
		return nil, err
	}

	credit, err := s.ledgerRepo.GetOrCreateCredit(ctx, actor.Id)
	if err != nil {
		return nil, err
	}

	txns, err := s.ledgerRepo.GetTransactions(ctx, actor.Id, billingHistoryLimit)
	if err != nil {
		return nil, err
	}

	return &entity.BillingOutputModel{
		Balance:      credit.Balance,
		Transactions: mapTransactions(txns),
	}, nil
}

// PurchaseCredits books a credit pack. Payment is not collected.
func (s *LedgerService) PurchaseCredits(ctx context.Context, actor *entity.Actor, pack string) (*entity.PurchaseOutputModel, error) {
	if err := authorize(ActionBillingPurchase, actor, nil); err != nil {
		return nil, err
	}

	selected, ok := s.findPack(pack)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCreditPack, pack)
	}

	txn, balance, err := s.AdjustBalance(ctx, actor.Id, selected.Credits, &entity.TransactionInput{
		Type:        common.TxnPurchase,
		CashAmount:  decimal.NullDecimal{Decimal: selected.Price, Valid: true},
		Description: fmt.Sprintf("Credit Pack (%s)", titleCase(selected.Name)),
		Status:      common.TxnCompleted,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("user_id", actor.Id.String()).
		Str("pack", selected.Name).
		Int64("credits", selected.Credits).
		Msg("Credit pack purchased")

	return &entity.PurchaseOutputModel{
		Balance:     balance,
		Transaction: mapTransaction(txn),
	}, nil
}

func (s *LedgerService) findPack(name string) (config.PackConfig, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range s.packs {
		if p.Name == name {
			return p, true
		}
	}

	return config.PackConfig{}, false
}

func titleCase(s string) string {
	if s == "" {
		return s
	}

	return strings.ToUpper(s[:1]) + s[1:]
}
