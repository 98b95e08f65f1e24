package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
)

// db model
type PdfExtraction struct {
	Id              uuid.UUID       `json:"id" db:"id"`
	DocumentId      uuid.UUID       `json:"documentId" db:"document_id"`
	TenderId        uuid.UUID       `json:"tenderId" db:"tender_id"`
	ExtractionType  string          `json:"extractionType" db:"extraction_type"`
	Status          string          `json:"status" db:"status"`
	AiResponse      *types.JSONText `json:"aiResponse" db:"ai_response"`
	ConfidenceScore *float64        `json:"confidenceScore" db:"confidence_score"`
	ErrorMessage    *string         `json:"errorMessage" db:"error_message"`
	ProcessedAt     *time.Time      `json:"processedAt" db:"processed_at"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
}

type CreateExtractionInput struct {
	DocumentId     uuid.UUID
	TenderId       uuid.UUID
	ExtractionType string
}

// repo input model for the processing -> completed transition
type CompleteExtractionInput struct {
	Id          uuid.UUID
	TenderId    uuid.UUID
	Payload     json.RawMessage
	Confidence  float64
	ProcessedAt time.Time
	// appended to the tender's catalog in the same transaction
	AppendItems []BoqItemInput
}

// ExtractedBoq is the payload shape every AI provider must return.
type ExtractedBoq struct {
	TenderInfo ExtractedTenderInfo `json:"tender_info"`
	BoqItems   []ExtractedBoqItem  `json:"boq_items"`
}

type ExtractedTenderInfo struct {
	Title           string           `json:"title"`
	Location        string           `json:"location"`
	EstimatedBudget *decimal.Decimal `json:"estimated_budget,omitempty"`
}

type ExtractedBoqItem struct {
	Description string          `json:"description"`
	Unit        string          `json:"unit"`
	Quantity    decimal.Decimal `json:"quantity"`
	ItemType    string          `json:"item_type"`
}

// queued unit of work for the extraction worker
type ExtractionJob struct {
	ExtractionId uuid.UUID `json:"extraction_id"`
	StorageKey   string    `json:"storage_key"`
	Attempt      int       `json:"attempt"`
}

// controller models
type ExtractionOutputModel struct {
	Id              string          `json:"id"`
	DocumentId      string          `json:"documentId"`
	Status          string          `json:"status"`
	ExtractionType  string          `json:"extractionType"`
	CreatedAt       string          `json:"createdAt"`
	ProcessedAt     *string         `json:"processedAt"`
	Data            json.RawMessage `json:"data,omitempty"`
	ConfidenceScore *float64        `json:"confidenceScore,omitempty"`
	Error           *string         `json:"error,omitempty"`
}

type ExtractionStartedOutputModel struct {
	ExtractionId string `json:"extractionId"`
	DocumentId   string `json:"documentId"`
	Status       string `json:"status"`
}

type ScanOutputModel struct {
	ExtractionId string          `json:"extractionId"`
	Data         json.RawMessage `json:"data"`
	Confidence   *float64        `json:"confidence"`
}
