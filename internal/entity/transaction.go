package entity

import (
	"time"

	"github.com/google/uuid"
)

// Transaction represents a transaction for data transfer between layers.
type Transaction struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	ReceiptID     *uuid.UUID `json:"receipt_id,omitempty"`
	CategoryID    *uuid.UUID `json:"category_id,omitempty"`
	MerchantName  string     `json:"merchant_name"`
	Amount        float64    `json:"amount"`
	TxDate        time.Time  `json:"transaction_date"`
	Description   string     `json:"description,omitempty"`
	PaymentMethod *string    `json:"payment_method,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}
