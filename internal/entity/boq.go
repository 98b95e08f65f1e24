package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// db model
type BoqItem struct {
	Id            uuid.UUID       `json:"id" db:"id"`
	TenderId      uuid.UUID       `json:"tenderId" db:"tender_id"`
	Description   string          `json:"description" db:"description"`
	Unit          string          `json:"unit" db:"unit"`
	Quantity      decimal.Decimal `json:"quantity" db:"quantity"`
	ItemType      string          `json:"itemType" db:"item_type"`
	OptionGroupId *int64          `json:"optionGroupId" db:"option_group_id"`
	IsOptional    bool            `json:"isOptional" db:"is_optional"`
	DisplayOrder  int             `json:"displayOrder" db:"display_order"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
}

// service + repo input model, display order is assigned from the slice position
type BoqItemInput struct {
	Description   string          `json:"description" validate:"required"`
	Unit          string          `json:"unit" validate:"required,max=50"`
	Quantity      decimal.Decimal `json:"quantity" validate:"gte=0"`
	ItemType      string          `json:"itemType" validate:"required,oneof=unit_priced lump_sum"`
	OptionGroupId *int64          `json:"optionGroupId"`
	IsOptional    bool            `json:"isOptional"`
}

// controller model
type BoqItemOutputModel struct {
	Id            string `json:"id"`
	Description   string `json:"description"`
	Unit          string `json:"unit"`
	Quantity      string `json:"quantity"`
	ItemType      string `json:"itemType"`
	OptionGroupId *int64 `json:"optionGroupId"`
	IsOptional    bool   `json:"isOptional"`
	DisplayOrder  int    `json:"displayOrder"`
}
