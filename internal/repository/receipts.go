package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rico-rbls/smart-budget-tracker/internal/common"
	"github.com/rico-rbls/smart-budget-tracker/internal/entity"
)

type ReceiptRepository interface {
	Create(ctx context.Context, userID uuid.UUID, imagePath string) (*entity.Receipt, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Receipt, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Receipt, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
	// MarkProcessed is the receipt's single post-upload mutation. ocrText
	// stays nil when extraction failed; processed flips to true either way.
	MarkProcessed(ctx context.Context, id uuid.UUID, ocrText *string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type receiptRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewReceiptRepository(db *sql.DB, logger *slog.Logger) ReceiptRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &receiptRepository{db: db, logger: logger}
}

func (r *receiptRepository) Create(ctx context.Context, userID uuid.UUID, imagePath string) (*entity.Receipt, error) {
	now := time.Now().UTC()
	rec := &entity.Receipt{
		ID:         uuid.New(),
		UserID:     userID,
		ImagePath:  imagePath,
		Processed:  false,
		UploadDate: now,
		CreatedAt:  now,
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO receipts (id, user_id, image_path, ocr_text, processed, upload_date, created_at)
		 VALUES ($1, $2, $3, NULL, FALSE, $4, $5)`,
		rec.ID, rec.UserID, rec.ImagePath, rec.UploadDate, rec.CreatedAt)
	if err != nil {
		r.logger.Error("failed to create receipt", "user_id", userID, "error", err)
		return nil, fmt.Errorf("create receipt: %w", err)
	}
	return rec, nil
}

func (r *receiptRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Receipt, error) {
	var rec entity.Receipt
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, image_path, ocr_text, processed, upload_date, created_at
		 FROM receipts WHERE id = $1`, id).
		Scan(&rec.ID, &rec.UserID, &rec.ImagePath, &rec.OCRText, &rec.Processed, &rec.UploadDate, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query receipt: %w", err)
	}
	return &rec, nil
}

func (r *receiptRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Receipt, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, image_path, ocr_text, processed, upload_date, created_at
		 FROM receipts WHERE user_id = $1
		 ORDER BY upload_date DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		r.logger.Error("failed to list receipts", "user_id", userID, "error", err)
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	defer rows.Close()

	var recs []*entity.Receipt
	for rows.Next() {
		var rec entity.Receipt
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.ImagePath, &rec.OCRText, &rec.Processed, &rec.UploadDate, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

func (r *receiptRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM receipts WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count receipts: %w", err)
	}
	return n, nil
}

func (r *receiptRepository) MarkProcessed(ctx context.Context, id uuid.UUID, ocrText *string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE receipts SET ocr_text = $1, processed = TRUE WHERE id = $2`, ocrText, id)
	if err != nil {
		r.logger.Error("failed to mark receipt processed", "receipt_id", id, "error", err)
		return fmt.Errorf("mark processed: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *receiptRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM receipts WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("failed to delete receipt", "receipt_id", id, "error", err)
		return fmt.Errorf("delete receipt: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}
