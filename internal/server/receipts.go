package server

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/rico-rbls/smart-budget-tracker/internal/async"
	"github.com/rico-rbls/smart-budget-tracker/internal/common"
	"github.com/rico-rbls/smart-budget-tracker/internal/entity"
)

type receiptView struct {
	ID         string  `json:"id"`
	ImagePath  string  `json:"image_path"`
	OCRText    *string `json:"ocr_text"`
	Processed  bool    `json:"processed"`
	UploadDate string  `json:"upload_date"`
}

func toReceiptView(r *entity.Receipt) receiptView {
	return receiptView{
		ID:         r.ID.String(),
		ImagePath:  r.ImagePath,
		OCRText:    r.OCRText,
		Processed:  r.Processed,
		UploadDate: r.UploadDate.Format(time.RFC3339),
	}
}

// handleUploadReceipt stores the file, records the receipt and queues it for
// background processing. The response never waits for OCR.
func (s *Server) handleUploadReceipt(c *fiber.Ctx) error {
	userID := currentUserID(c)

	file, err := c.FormFile("receipt")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "multipart field 'receipt' is required")
	}
	if err := s.store.Validate(file.Filename, file.Header.Get(fiber.HeaderContentType), file.Size); err != nil {
		return err
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	path, err := s.store.Save(userID, file.Filename, src)
	if err != nil {
		return err
	}

	receipt, err := s.receipts.Create(c.Context(), userID, path)
	if err != nil {
		// Orphaned files are worse than a failed request.
		_ = s.store.Remove(path)
		return err
	}

	if err := s.queue.Enqueue(c.Context(), async.Job{
		ReceiptID:   receipt.ID,
		UserID:      userID,
		FilePath:    path,
		SubmittedAt: time.Now(),
	}); err != nil {
		s.logger.Error("failed to enqueue receipt", "receipt_id", receipt.ID, "error", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"receipt": toReceiptView(receipt),
		"message": "receipt uploaded, processing started",
	})
}

func (s *Server) handleListReceipts(c *fiber.Ctx) error {
	userID := currentUserID(c)

	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}

	rows, err := s.receipts.ListByUser(c.Context(), userID, limit, (page-1)*limit)
	if err != nil {
		return err
	}
	total, err := s.receipts.CountByUser(c.Context(), userID)
	if err != nil {
		return err
	}

	views := make([]receiptView, 0, len(rows))
	for _, r := range rows {
		views = append(views, toReceiptView(r))
	}
	return c.JSON(fiber.Map{
		"receipts": views,
		"pagination": fiber.Map{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

func (s *Server) handleGetReceipt(c *fiber.Ctx) error {
	receipt, err := s.userReceipt(c)
	if err != nil {
		return err
	}
	return c.JSON(toReceiptView(receipt))
}

// handleDeleteReceipt removes the row (cascading its transaction) and then
// the stored file.
func (s *Server) handleDeleteReceipt(c *fiber.Ctx) error {
	receipt, err := s.userReceipt(c)
	if err != nil {
		return err
	}
	if err := s.receipts.Delete(c.Context(), receipt.ID); err != nil {
		return err
	}
	if err := s.store.Remove(receipt.ImagePath); err != nil {
		s.logger.Warn("failed to remove receipt file", "path", receipt.ImagePath, "error", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// userReceipt loads the :id receipt and enforces ownership. Foreign
// receipts come back as not-found, not forbidden.
func (s *Server) userReceipt(c *fiber.Ctx) (*entity.Receipt, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid receipt id")
	}
	receipt, err := s.receipts.GetByID(c.Context(), id)
	if err != nil {
		return nil, err
	}
	if receipt.UserID != currentUserID(c) {
		return nil, common.ErrNotFound
	}
	return receipt, nil
}
