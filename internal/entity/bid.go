package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// db model
type Bid struct {
	Id            uuid.UUID       `json:"id" db:"id"`
	TenderId      uuid.UUID       `json:"tenderId" db:"tender_id"`
	ContractorId  uuid.UUID       `json:"contractorId" db:"contractor_id"`
	Status        string          `json:"status" db:"status"`
	TotalAmount   decimal.Decimal `json:"totalAmount" db:"total_amount"`
	SubmittedAt   *time.Time      `json:"submittedAt" db:"submitted_at"`
	OfferFilePath *string         `json:"offerFilePath" db:"offer_file_path"`
	OfferFileName *string         `json:"offerFileName" db:"offer_file_name"`
	Proposal      *string         `json:"proposal" db:"proposal"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time       `json:"updatedAt" db:"updated_at"`
}

// db model
type BidItem struct {
	Id        uuid.UUID       `json:"id" db:"id"`
	BidId     uuid.UUID       `json:"bidId" db:"bid_id"`
	BoqItemId uuid.UUID       `json:"boqItemId" db:"boq_item_id"`
	UnitPrice decimal.Decimal `json:"unitPrice" db:"unit_price"`
	Quantity  decimal.Decimal `json:"quantity" db:"quantity"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
}

// bid item joined with the BOQ line it prices
type BidItemRow struct {
	BidItem
	Description  string `db:"description"`
	Unit         string `db:"unit"`
	ItemType     string `db:"item_type"`
	DisplayOrder int    `db:"display_order"`
}

type BidItemInput struct {
	BoqItemId uuid.UUID       `json:"boqItemId" validate:"required"`
	UnitPrice decimal.Decimal `json:"unitPrice" validate:"gte=0"`
}

type OfferFile struct {
	Name string
	Data []byte
}

// service input model
type UpsertBidInput struct {
	TenderId     uuid.UUID
	ContractorId uuid.UUID
	Items        []BidItemInput
	Proposal     *string
	OfferFile    *OfferFile
}

// priced line ready to be stored, quantity is copied from the BOQ item
type NewBidItem struct {
	BoqItemId uuid.UUID
	UnitPrice decimal.Decimal
	Quantity  decimal.Decimal
	Amount    decimal.Decimal
}

// repo input model
type UpsertBidRecord struct {
	TenderId      uuid.UUID
	ContractorId  uuid.UUID
	Items         []NewBidItem
	Proposal      *string
	OfferFilePath *string
	OfferFileName *string
}

// controller model
type BidOutputModel struct {
	Id            string               `json:"id"`
	TenderId      string               `json:"tenderId"`
	ContractorId  string               `json:"contractorId"`
	Status        string               `json:"status"`
	TotalAmount   string               `json:"totalAmount"`
	SubmittedAt   *string              `json:"submittedAt"`
	OfferFileName *string              `json:"offerFileName"`
	OfferFileUrl  *string              `json:"offerFileUrl"`
	Proposal      *string              `json:"proposal"`
	Items         []BidItemOutputModel `json:"items,omitempty"`
	CreatedAt     string               `json:"createdAt"`
}

type BidItemOutputModel struct {
	Id          string `json:"id"`
	BoqItemId   string `json:"boqItemId"`
	Description string `json:"description"`
	Unit        string `json:"unit"`
	ItemType    string `json:"itemType"`
	UnitPrice   string `json:"unitPrice"`
	Quantity    string `json:"quantity"`
	Amount      string `json:"amount"`
}
