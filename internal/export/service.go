// Package export produces XLSX workbooks from a user's transaction history.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/rico-rbls/smart-budget-tracker/internal/repository"
)

// Service is a tiny façade over repositories that produces XLSX bytes for exports.
type Service struct {
	transactions repository.TransactionRepository
	categories   repository.CategoryRepository
	receipts     repository.ReceiptRepository
	logger       *slog.Logger
}

func NewService(
	transactions repository.TransactionRepository,
	categories repository.CategoryRepository,
	receipts repository.ReceiptRepository,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{transactions: transactions, categories: categories, receipts: receipts, logger: logger}
}

// ExportTransactionsXLSX returns an XLSX workbook for the user's
// transactions in a date window.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> every transaction for the user.
func (s *Service) ExportTransactionsXLSX(ctx context.Context, userID uuid.UUID, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	// Normalize dates (date-only, UTC)
	var fromDate, toDate *time.Time
	if from != nil {
		f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		fromDate = &f
	}
	if to != nil {
		t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
		toDate = &t
	}
	if fromDate != nil && toDate == nil {
		today := time.Now().UTC()
		t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
		toDate = &t
	}

	txs, err := s.transactions.ListByUser(ctx, userID, repository.TransactionFilter{
		FromDate: fromDate,
		ToDate:   toDate,
	})
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}

	// Category names resolved once up front.
	categoryNames := map[uuid.UUID]string{}
	cats, err := s.categories.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	for _, c := range cats {
		categoryNames[c.ID] = c.Name
	}

	f := excelize.NewFile()
	const sheet = "Transactions"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Date",
		"Merchant",
		"Category",
		"Amount",
		"Description",
		"Payment Method",
		"Receipt File",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, tx := range txs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, tx.TxDate.Format("2006-01-02"))
		write(2, tx.MerchantName)

		categoryName := ""
		if tx.CategoryID != nil {
			categoryName = categoryNames[*tx.CategoryID]
		}
		write(3, categoryName)

		write(4, tx.Amount)
		write(5, truncate(tx.Description, 140))

		paymentMethod := ""
		if tx.PaymentMethod != nil {
			paymentMethod = *tx.PaymentMethod
		}
		write(6, paymentMethod)

		receiptPath := ""
		if tx.ReceiptID != nil {
			if rec, err := s.receipts.GetByID(ctx, *tx.ReceiptID); err == nil {
				receiptPath = rec.ImagePath
			}
		}
		write(7, receiptPath)

		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 12) // date
	_ = f.SetColWidth(sheet, "B", "B", 28) // merchant
	_ = f.SetColWidth(sheet, "C", "C", 18) // category
	_ = f.SetColWidth(sheet, "D", "D", 12) // amount
	_ = f.SetColWidth(sheet, "E", "E", 48) // description
	_ = f.SetColWidth(sheet, "F", "F", 16) // payment method
	_ = f.SetColWidth(sheet, "G", "G", 60) // path

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"user_id", userID.String(),
		"rows", len(txs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
