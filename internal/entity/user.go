package entity

import (
	"time"

	"github.com/google/uuid"
)

// db model
type User struct {
	Id        uuid.UUID `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Role      string    `json:"role" db:"role"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Actor is the resolved caller of a service operation.
type Actor struct {
	Id       uuid.UUID
	Username string
	Name     string
	Role     string
}
