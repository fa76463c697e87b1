package async

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job is one receipt waiting for background processing.
type Job struct {
	ReceiptID   uuid.UUID
	UserID      uuid.UUID
	FilePath    string
	SubmittedAt time.Time
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
