package entity

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// db model
type Document struct {
	Id               uuid.UUID `json:"id" db:"id"`
	TenderId         uuid.UUID `json:"tenderId" db:"tender_id"`
	UserId           uuid.UUID `json:"userId" db:"user_id"`
	DocumentType     string    `json:"documentType" db:"document_type"`
	FileName         string    `json:"fileName" db:"file_name"`
	OriginalFilename string    `json:"originalFilename" db:"original_filename"`
	FilePath         string    `json:"filePath" db:"file_path"`
	FileSize         int64     `json:"fileSize" db:"file_size"`
	MimeType         string    `json:"mimeType" db:"mime_type"`
	CreatedAt        time.Time `json:"createdAt" db:"created_at"`
}

type CreateDocumentInput struct {
	TenderId         uuid.UUID
	UserId           uuid.UUID
	DocumentType     string
	FileName         string
	OriginalFilename string
	FilePath         string
	FileSize         int64
	MimeType         string
}

// uploaded file handed over by the transport layer
type UploadedFile struct {
	OriginalName string
	MimeType     string
	Data         []byte
}

// controller model
type DocumentOutputModel struct {
	Id               string `json:"id"`
	TenderId         string `json:"tenderId"`
	DocumentType     string `json:"documentType"`
	OriginalFilename string `json:"originalFilename"`
	FileSize         int64  `json:"fileSize"`
	MimeType         string `json:"mimeType"`
	Url              string `json:"url"`
	CreatedAt        string `json:"createdAt"`
}

// stored document streamed back to the caller
type DocumentDownload struct {
	FileName string
	MimeType string
	Size     int64
	Body     io.ReadCloser
}
