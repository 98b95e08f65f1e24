package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
)

// db model
type Notification struct {
	Id        uuid.UUID      `json:"id" db:"id"`
	UserId    uuid.UUID      `json:"userId" db:"user_id"`
	Kind      string         `json:"kind" db:"kind"`
	Data      types.JSONText `json:"data" db:"data"`
	ReadAt    *time.Time     `json:"readAt" db:"read_at"`
	CreatedAt time.Time      `json:"createdAt" db:"created_at"`
}
