package service

import (
	"context"
	"tender-marketplace-api/internal/ai"
	"tender-marketplace-api/internal/config"
	"tender-marketplace-api/internal/entity"
	"tender-marketplace-api/internal/metrics"
	"tender-marketplace-api/internal/repo"
	"tender-marketplace-api/internal/storage"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Diagnostics interface {
	Ping(ctx context.Context) error
}

type Users interface {
	ResolveActor(ctx context.Context, username string) (*entity.Actor, error)
}

type Ledger interface {
	GetOrCreateBalance(ctx context.Context, userId uuid.UUID) (*entity.Credit, error)
	AdjustBalance(ctx context.Context, userId uuid.UUID, delta int64, input *entity.TransactionInput) (*entity.Transaction, int64, error)
	GetBilling(ctx context.Context, actor *entity.Actor) (*entity.BillingOutputModel, error)
	PurchaseCredits(ctx context.Context, actor *entity.Actor, pack string) (*entity.PurchaseOutputModel, error)
}

type Unlock interface {
	Unlock(ctx context.Context, actor *entity.Actor, tenderId uuid.UUID) (*entity.UnlockResult, error)
	IsUnlocked(ctx context.Context, actor *entity.Actor, tenderId uuid.UUID) (bool, error)
}

type Tender interface {
	CreateTender(ctx context.Context, actor *entity.Actor, input *entity.CreateTenderInput) (*entity.TenderOutputModel, error)
	UpdateTender(ctx context.Context, actor *entity.Actor, tenderId uuid.UUID, input *entity.UpdateTenderInput) (*entity.TenderOutputModel, error)
	PublishTender(ctx context.Context, actor *entity.Actor, tenderId uuid.UUID) (*entity.TenderOutputModel, error)
	ReplaceBoq(ctx context.Context, actor *entity.Actor, tenderId uuid.UUID, items []entity.BoqItemInput) ([]entity.BoqItemOutputModel, error)
	GetTender(ctx context.Context, actor *entity.Actor, tenderId uuid.UUID) (*entity.TenderOutputModel, error)
	ListTenders(ctx context.Context, actor *entity.Actor, filter *entity.TenderFilter, pg *entity.PaginationInput) ([]entity.TenderOutputModel, error)
	SaveTender(ctx context.Context, actor *entity.Actor, tenderId uuid.UUID) error
	UnsaveTender(ctx context.Context, actor *entity.Actor, tenderId uuid.UUID) error
	UploadDocument(ctx context.Context, actor *entity.Actor, tenderId uuid.UUID, documentType string, file *entity.UploadedFile) (*entity.DocumentOutputModel, error)
}

type Bid interface {
	UpsertBid(ctx context.Context, actor *entity.Actor, input *entity.UpsertBidInput) (*entity.BidOutputModel, error)
	SubmitBid(ctx context.Context, actor *entity.Actor, bidId uuid.UUID) (*entity.BidOutputModel, error)
	AwardBid(ctx context.Context, actor *entity.Actor, bidId uuid.UUID) (*entity.TenderOutputModel, error)
	GetBid(ctx context.Context, actor *entity.Actor, bidId uuid.UUID) (*entity.BidOutputModel, error)
	ListBidsForTender(ctx context.Context, actor *entity.Actor, tenderId uuid.UUID) ([]entity.BidOutputModel, error)
	ListMyBids(ctx context.Context, actor *entity.Actor, pg *entity.PaginationInput) ([]entity.BidOutputModel, error)
}

type Extraction interface {
	StartExtraction(ctx context.Context, documentId uuid.UUID, tenderId uuid.UUID, extractionType string) (uuid.UUID, error)
	ProcessExtraction(ctx context.Context, extractionId uuid.UUID, filePath string) error
	ProcessStored(ctx context.Context, extractionId uuid.UUID, storageKey string) error
	RetryExtraction(ctx context.Context, extractionId uuid.UUID) (uuid.UUID, error)
	UploadAndExtract(ctx context.Context, actor *entity.Actor, tenderId uuid.UUID, file *entity.UploadedFile, extractionType string) (*entity.ExtractionStartedOutputModel, error)
	ScanBid(ctx context.Context, actor *entity.Actor, tenderId uuid.UUID, file *entity.UploadedFile) (*entity.ScanOutputModel, error)
	GetStatus(ctx context.Context, actor *entity.Actor, extractionId uuid.UUID) (*entity.ExtractionOutputModel, error)
	ListForTender(ctx context.Context, actor *entity.Actor, tenderId uuid.UUID) ([]entity.ExtractionOutputModel, error)
}

type Document interface {
	ListForTender(ctx context.Context, actor *entity.Actor, tenderId uuid.UUID) ([]entity.DocumentOutputModel, error)
	ListAll(ctx context.Context, actor *entity.Actor, pg *entity.PaginationInput) ([]entity.DocumentOutputModel, error)
	History(ctx context.Context, actor *entity.Actor) ([]entity.DocumentOutputModel, error)
	GetDocument(ctx context.Context, actor *entity.Actor, documentId uuid.UUID) (*entity.DocumentOutputModel, error)
	Download(ctx context.Context, actor *entity.Actor, documentId uuid.UUID) (*entity.DocumentDownload, error)
	Delete(ctx context.Context, actor *entity.Actor, documentId uuid.UUID) error
}

// ExtractionQueue hands extraction jobs to the background worker.
type ExtractionQueue interface {
	EnqueueExtraction(ctx context.Context, job entity.ExtractionJob) error
}

// Notifier delivers events without reporting failures.
type Notifier interface {
	Notify(ctx context.Context, userId uuid.UUID, kind string, payload map[string]any)
}

type Dependencies struct {
	Repos     *repo.Repositories
	Storage   storage.Storage
	Provider  ai.Provider
	Queue     ExtractionQueue
	Notifier  Notifier
	Metrics   *metrics.Metrics
	Validator *validator.Validate
	Billing   config.BillingConfig
	Workers   config.ExtractionWorkerConfig
	// upload limit in bytes, zero disables the check
	MaxUploadSize int64
	Now           func() time.Time
}

type Services struct {
	Diagnostics Diagnostics
	Users       Users
	Ledger      Ledger
	Unlock      Unlock
	Tender      Tender
	Bid         Bid
	Extraction  Extraction
	Document    Document
}

func NewServices(deps Dependencies) *Services {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Validator == nil {
		deps.Validator = NewValidator()
	}
	if deps.Notifier == nil {
		deps.Notifier = noopNotifier{}
	}

	ledger := NewLedgerService(deps)
	unlock := NewUnlockService(deps)

	return &Services{
		Diagnostics: NewDiagnosticsService(deps),
		Users:       NewUserService(deps.Repos),
		Ledger:      ledger,
		Unlock:      unlock,
		Tender:      NewTenderService(deps, unlock),
		Bid:         NewBidService(deps),
		Extraction:  NewExtractionService(deps),
		Document:    NewDocumentService(deps),
	}
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, uuid.UUID, string, map[string]any) {}
