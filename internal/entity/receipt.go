package entity

import (
	"time"

	"github.com/google/uuid"
)

// Receipt represents one uploaded document and its processing state.
// OCRText stays nil until the background run completes; Processed flips to
// true exactly once, even when extraction fails.
type Receipt struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	ImagePath  string    `json:"image_path"`
	OCRText    *string   `json:"ocr_text,omitempty"`
	Processed  bool      `json:"processed"`
	UploadDate time.Time `json:"upload_date"`
	CreatedAt  time.Time `json:"created_at"`
}
