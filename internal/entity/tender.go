package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// db model
type Tender struct {
	Id           uuid.UUID       `json:"id" db:"id"`
	Title        string          `json:"title" db:"title"`
	Description  string          `json:"description" db:"description"`
	Location     string          `json:"location" db:"location"`
	Deadline     time.Time       `json:"deadline" db:"deadline"`
	Status       string          `json:"status" db:"status"`
	Budget       decimal.Decimal `json:"budget" db:"budget"`
	CreatedBy    uuid.UUID       `json:"createdBy" db:"created_by"`
	AwardedBidId *uuid.UUID      `json:"awardedBidId" db:"awarded_bid_id"`
	AwardedDate  *time.Time      `json:"awardedDate" db:"awarded_date"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time       `json:"updatedAt" db:"updated_at"`
}

// IsUrgent reports whether the deadline falls within the next seven days.
func (t *Tender) IsUrgent(now time.Time) bool {
	return t.Deadline.After(now) && t.Deadline.Before(now.Add(7*24*time.Hour))
}

// list row with per-viewer flags
type TenderListRow struct {
	Tender
	BidsCount int  `db:"bids_count"`
	IsSaved   bool `db:"is_saved"`
}

// service + repo input model
type CreateTenderInput struct {
	Title       string
	Description string
	Location    string
	Deadline    time.Time
	Budget      decimal.Decimal
	Status      string // draft or published
	CreatedBy   uuid.UUID
	BoqItems    []BoqItemInput
}

// nil fields are left untouched; BoqItems replaces the catalog only when ReplaceBoq is set
type UpdateTenderInput struct {
	Title       *string
	Description *string
	Location    *string
	Deadline    *time.Time
	Budget      *decimal.Decimal
	ReplaceBoq  bool
	BoqItems    []BoqItemInput
}

type TenderFilter struct {
	Viewer     uuid.UUID
	ActiveOnly bool
	Search     string
	Location   string
	Urgent     bool
	SavedOnly  bool
	Now        time.Time
}

// controller model
type TenderOutputModel struct {
	Id           string               `json:"id"`
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	Location     string               `json:"location"`
	Deadline     string               `json:"deadline"`
	Status       string               `json:"status"`
	Budget       string               `json:"budget"`
	CreatedBy    string               `json:"createdBy"`
	AwardedBidId *string              `json:"awardedBidId"`
	AwardedDate  *string              `json:"awardedDate"`
	IsUrgent     bool                 `json:"isUrgent"`
	IsUnlocked   bool                 `json:"isUnlocked"`
	IsSaved      bool                 `json:"isSaved"`
	BidsCount    int                  `json:"bidsCount"`
	BoqItems     []BoqItemOutputModel `json:"boqItems,omitempty"`
	Bids         []BidOutputModel     `json:"bids,omitempty"`
	CreatedAt    string               `json:"createdAt"`
}
