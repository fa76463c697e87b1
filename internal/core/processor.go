// Package core drives a receipt from uploaded file to finished transaction:
// extract text, parse fields, categorize, persist.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rico-rbls/smart-budget-tracker/internal/categorize"
	"github.com/rico-rbls/smart-budget-tracker/internal/ocr"
	"github.com/rico-rbls/smart-budget-tracker/internal/parser"
	"github.com/rico-rbls/smart-budget-tracker/internal/repository"
)

// Processor coordinates OCR, field parsing and transaction creation for one
// receipt. Every receipt ends up marked processed exactly once, whatever
// goes wrong along the way.
type Processor struct {
	logger       *slog.Logger
	extractor    ocr.TextExtractor
	categorizer  *categorize.Categorizer
	receipts     repository.ReceiptRepository
	transactions repository.TransactionRepository
	categories   repository.CategoryRepository
}

func NewProcessor(
	logger *slog.Logger,
	extractor ocr.TextExtractor,
	categorizer *categorize.Categorizer,
	receipts repository.ReceiptRepository,
	transactions repository.TransactionRepository,
	categories repository.CategoryRepository,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:       logger,
		extractor:    extractor,
		categorizer:  categorizer,
		receipts:     receipts,
		transactions: transactions,
		categories:   categories,
	}
}

// Process runs the full pipeline for one uploaded receipt. Extraction
// failure is terminal but handled: the receipt is marked processed with no
// text and no transaction, and nothing retries it. Parse and transaction
// errors are logged and swallowed so the final mark still happens. The only
// error returned is a failed processed-mark, which leaves the receipt
// eligible for nothing; there is no retry path.
func (p *Processor) Process(ctx context.Context, receiptID, userID uuid.UUID, filePath string) error {
	res, err := p.extractor.Extract(ctx, filePath)
	if err != nil {
		p.logger.Warn("text extraction failed, marking receipt processed without text",
			"receipt_id", receiptID, "path", filePath, "error", err)
		return p.markProcessed(ctx, receiptID, nil)
	}

	parsed := parser.Parse(res.Text)
	p.logger.Debug("receipt parsed",
		"receipt_id", receiptID,
		"merchant_found", parsed.Merchant != nil,
		"total_found", parsed.Total != nil,
		"date", parsed.Date,
		"items", len(parsed.Items),
		"ocr_confidence", res.Confidence,
	)

	if parsed.Total != nil && *parsed.Total > 0 {
		if txErr := p.createTransaction(ctx, receiptID, userID, parsed); txErr != nil {
			// A broken transaction never blocks marking the receipt done.
			p.logger.Error("transaction creation failed",
				"receipt_id", receiptID, "error", txErr)
		}
	} else {
		p.logger.Info("no positive total parsed, skipping transaction",
			"receipt_id", receiptID)
	}

	return p.markProcessed(ctx, receiptID, &res.Text)
}

func (p *Processor) markProcessed(ctx context.Context, receiptID uuid.UUID, ocrText *string) error {
	if err := p.receipts.MarkProcessed(ctx, receiptID, ocrText); err != nil {
		p.logger.Error("failed to mark receipt processed", "receipt_id", receiptID, "error", err)
		return fmt.Errorf("mark receipt processed: %w", err)
	}
	p.logger.Info("receipt processed", "receipt_id", receiptID, "has_text", ocrText != nil)
	return nil
}

func (p *Processor) createTransaction(ctx context.Context, receiptID, userID uuid.UUID, parsed parser.ParsedReceiptData) error {
	merchant := "Unknown Merchant"
	if parsed.Merchant != nil && *parsed.Merchant != "" {
		merchant = *parsed.Merchant
	}

	category := p.categorizer.Categorize(merchant)

	// A missing category row only means the transaction stays uncategorized.
	var categoryID *uuid.UUID
	row, err := p.categories.FindByName(ctx, userID, string(category))
	if err != nil {
		p.logger.Warn("category lookup failed, transaction will be uncategorized",
			"receipt_id", receiptID, "category", category, "error", err)
	} else {
		categoryID = &row.ID
	}

	txDate, err := time.Parse("2006-01-02", parsed.Date)
	if err != nil {
		txDate = time.Now()
	}

	tx, err := p.transactions.Create(ctx, repository.CreateTransactionRequest{
		UserID:       userID,
		ReceiptID:    &receiptID,
		CategoryID:   categoryID,
		MerchantName: merchant,
		Amount:       *parsed.Total,
		TxDate:       txDate,
		Description:  fmt.Sprintf("Auto-created from receipt (%d items)", len(parsed.Items)),
	})
	if err != nil {
		return err
	}

	p.logger.Info("transaction created from receipt",
		"receipt_id", receiptID,
		"transaction_id", tx.ID,
		"merchant", merchant,
		"amount", tx.Amount,
		"category", category,
	)
	return nil
}
