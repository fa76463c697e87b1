package entity

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account owner for data transfer between layers.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
