package repo

import (
	"context"
	"tender-marketplace-api/internal/entity"
	"tender-marketplace-api/internal/repo/pgdb"
	"tender-marketplace-api/pkg/postgres"
	"time"

	"github.com/google/uuid"
)

type Diagnostics interface {
	Ping(ctx context.Context) error
}

type User interface {
	GetUserByUsername(ctx context.Context, username string) (*entity.User, error)
	GetUserById(ctx context.Context, id uuid.UUID) (*entity.User, error)
}

type Tender interface {
	CreateTender(ctx context.Context, input *entity.CreateTenderInput) (uuid.UUID, error)
	GetTenderById(ctx context.Context, id uuid.UUID) (*entity.Tender, error)
	UpdateTender(ctx context.Context, id uuid.UUID, input *entity.UpdateTenderInput) error
	PublishTender(ctx context.Context, id uuid.UUID) error
	AwardTender(ctx context.Context, tenderId uuid.UUID, bidId uuid.UUID, awardedAt time.Time) error
	ListTenders(ctx context.Context, filter *entity.TenderFilter, pg *entity.PaginationInput) ([]entity.TenderListRow, error)
	SaveTender(ctx context.Context, userId uuid.UUID, tenderId uuid.UUID) error
	UnsaveTender(ctx context.Context, userId uuid.UUID, tenderId uuid.UUID) error
	IsSaved(ctx context.Context, userId uuid.UUID, tenderId uuid.UUID) (bool, error)
}

type Boq interface {
	GetItemsByTenderId(ctx context.Context, tenderId uuid.UUID) ([]entity.BoqItem, error)
	ReplaceItems(ctx context.Context, tenderId uuid.UUID, items []entity.BoqItemInput) error
	AppendItems(ctx context.Context, tenderId uuid.UUID, items []entity.BoqItemInput) error
}

type Bid interface {
	GetBidById(ctx context.Context, id uuid.UUID) (*entity.Bid, error)
	GetBidByTenderAndContractor(ctx context.Context, tenderId uuid.UUID, contractorId uuid.UUID) (*entity.Bid, error)
	GetBidItems(ctx context.Context, bidId uuid.UUID) ([]entity.BidItemRow, error)
	UpsertBid(ctx context.Context, input *entity.UpsertBidRecord) (*entity.Bid, error)
	SubmitBid(ctx context.Context, bidId uuid.UUID, submittedAt time.Time) (*entity.Bid, error)
	GetTenderBids(ctx context.Context, tenderId uuid.UUID) ([]entity.Bid, error)
	GetContractorBids(ctx context.Context, contractorId uuid.UUID, pg *entity.PaginationInput) ([]entity.Bid, error)
}

type Ledger interface {
	GetOrCreateCredit(ctx context.Context, userId uuid.UUID) (*entity.Credit, error)
	AdjustBalance(ctx context.Context, userId uuid.UUID, delta int64, input *entity.TransactionInput) (*entity.Transaction, int64, error)
	GetTransactions(ctx context.Context, userId uuid.UUID, limit int) ([]entity.Transaction, error)
}

type Unlock interface {
	HasUnlock(ctx context.Context, userId uuid.UUID, tenderId uuid.UUID) (bool, error)
	CreateUnlock(ctx context.Context, userId uuid.UUID, tenderId uuid.UUID, cost int64, description string) (*entity.TenderUnlock, int64, error)
}

type Document interface {
	CreateDocument(ctx context.Context, input *entity.CreateDocumentInput) (uuid.UUID, error)
	GetDocumentById(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	ListTenderDocuments(ctx context.Context, tenderId uuid.UUID) ([]entity.Document, error)
	ListDocuments(ctx context.Context, pg *entity.PaginationInput) ([]entity.Document, error)
	// ListDocumentHistory returns what the user uploaded plus the BOQ documents
	// of tenders the user bid on.
	ListDocumentHistory(ctx context.Context, userId uuid.UUID) ([]entity.Document, error)
	DeleteDocument(ctx context.Context, id uuid.UUID) (*entity.Document, error)
}

type Extraction interface {
	CreateExtraction(ctx context.Context, input *entity.CreateExtractionInput) (uuid.UUID, error)
	GetExtractionById(ctx context.Context, id uuid.UUID) (*entity.PdfExtraction, error)
	CompleteExtraction(ctx context.Context, input *entity.CompleteExtractionInput) error
	FailExtraction(ctx context.Context, id uuid.UUID, message string, processedAt time.Time) error
	GetTenderExtractions(ctx context.Context, tenderId uuid.UUID) ([]entity.PdfExtraction, error)
}

type Notification interface {
	CreateNotification(ctx context.Context, userId uuid.UUID, kind string, data []byte) (uuid.UUID, error)
}

type Repositories struct {
	Diagnostics
	User
	Tender
	Boq
	Bid
	Ledger
	Unlock
	Document
	Extraction
	Notification
}

func NewRepositories(p *postgres.Postgres) *Repositories {
	return &Repositories{
		Diagnostics:  pgdb.NewDiagnosticsRepo(p),
		User:         pgdb.NewUserRepo(p),
		Tender:       pgdb.NewTenderRepo(p),
		Boq:          pgdb.NewBoqRepo(p),
		Bid:          pgdb.NewBidRepo(p),
		Ledger:       pgdb.NewLedgerRepo(p),
		Unlock:       pgdb.NewUnlockRepo(p),
		Document:     pgdb.NewDocumentRepo(p),
		Extraction:   pgdb.NewExtractionRepo(p),
		Notification: pgdb.NewNotificationRepo(p),
	}
}
