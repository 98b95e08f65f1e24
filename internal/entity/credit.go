package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// db model
type Credit struct {
	UserId    uuid.UUID `json:"userId" db:"user_id"`
	Balance   int64     `json:"balance" db:"balance"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// db model, Amount is signed credit units
type Transaction struct {
	Id          uuid.UUID           `json:"id" db:"id"`
	UserId      uuid.UUID           `json:"userId" db:"user_id"`
	Type        string              `json:"type" db:"type"`
	Amount      int64               `json:"amount" db:"amount"`
	CashAmount  decimal.NullDecimal `json:"cashAmount" db:"cash_amount"`
	Description string              `json:"description" db:"description"`
	Status      string              `json:"status" db:"status"`
	CreatedAt   time.Time           `json:"createdAt" db:"created_at"`
}

// metadata recorded with a balance mutation
type TransactionInput struct {
	Type        string
	CashAmount  decimal.NullDecimal
	Description string
	Status      string
}

// db model
type TenderUnlock struct {
	UserId       uuid.UUID `json:"userId" db:"user_id"`
	TenderId     uuid.UUID `json:"tenderId" db:"tender_id"`
	CreditsSpent int64     `json:"creditsSpent" db:"credits_spent"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

const (
	UnlockGranted    = "unlocked"
	UnlockAlready    = "already_unlocked"
	UnlockPrivileged = "privileged"
)

type UnlockResult struct {
	Status       string `json:"status"`
	CreditsSpent int64  `json:"creditsSpent"`
	Balance      int64  `json:"balance"`
}

type CreditPack struct {
	Name    string
	Credits int64
	Price   decimal.Decimal
}

// controller models
type TransactionOutputModel struct {
	Id          string  `json:"id"`
	Type        string  `json:"type"`
	Amount      int64   `json:"amount"`
	CashAmount  *string `json:"cashAmount"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"createdAt"`
}

type BillingOutputModel struct {
	Balance      int64                    `json:"balance"`
	Transactions []TransactionOutputModel `json:"transactions"`
}

type PurchaseOutputModel struct {
	Balance     int64                  `json:"balance"`
	Transaction TransactionOutputModel `json:"transaction"`
}
