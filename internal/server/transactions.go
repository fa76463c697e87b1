package server

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/rico-rbls/smart-budget-tracker/internal/common"
	"github.com/rico-rbls/smart-budget-tracker/internal/entity"
	"github.com/rico-rbls/smart-budget-tracker/internal/repository"
)

type transactionView struct {
	ID            string  `json:"id"`
	ReceiptID     *string `json:"receipt_id"`
	CategoryID    *string `json:"category_id"`
	MerchantName  string  `json:"merchant_name"`
	Amount        float64 `json:"amount"`
	TxDate        string  `json:"date"`
	Description   string  `json:"description"`
	PaymentMethod *string `json:"payment_method"`
}

func toTransactionView(t *entity.Transaction) transactionView {
	v := transactionView{
		ID:            t.ID.String(),
		MerchantName:  t.MerchantName,
		Amount:        t.Amount,
		TxDate:        t.TxDate.Format("2006-01-02"),
		Description:   t.Description,
		PaymentMethod: t.PaymentMethod,
	}
	if t.ReceiptID != nil {
		id := t.ReceiptID.String()
		v.ReceiptID = &id
	}
	if t.CategoryID != nil {
		id := t.CategoryID.String()
		v.CategoryID = &id
	}
	return v
}

type createTransactionRequest struct {
	CategoryID    *string `json:"category_id" validate:"omitempty,uuid"`
	MerchantName  string  `json:"merchant_name" validate:"required,max=255"`
	Amount        float64 `json:"amount" validate:"required,gt=0,lte=999999999.99"`
	Date          string  `json:"date" validate:"required,datetime=2006-01-02"`
	Description   *string `json:"description" validate:"omitempty,max=1000"`
	PaymentMethod *string `json:"payment_method" validate:"omitempty,oneof=cash credit_card debit_card bank_transfer paypal venmo apple_pay google_pay other"`
}

type updateTransactionRequest struct {
	CategoryID    *string  `json:"category_id" validate:"omitempty,uuid"`
	MerchantName  *string  `json:"merchant_name" validate:"omitempty,min=1,max=255"`
	Amount        *float64 `json:"amount" validate:"omitempty,gt=0,lte=999999999.99"`
	Date          *string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Description   *string  `json:"description" validate:"omitempty,max=1000"`
	PaymentMethod *string  `json:"payment_method" validate:"omitempty,oneof=cash credit_card debit_card bank_transfer paypal venmo apple_pay google_pay other"`
}

// parseTxDate enforces the accepted transaction date window: nothing in the
// future, nothing more than ten years back.
func parseTxDate(value string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if d.After(today) {
		return time.Time{}, common.NewAppError("INVALID_DATE", "date cannot be in the future", common.ErrInvalidInput)
	}
	if d.Before(today.AddDate(-10, 0, 0)) {
		return time.Time{}, common.NewAppError("INVALID_DATE", "date cannot be more than 10 years in the past", common.ErrInvalidInput)
	}
	return d, nil
}

// userCategory resolves a category id string and checks ownership. Foreign
// categories read as missing.
func (s *Server) userCategory(c *fiber.Ctx, raw string) (*entity.Category, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid category id")
	}
	cat, err := s.categories.GetByID(c.Context(), id)
	if err != nil {
		return nil, err
	}
	if cat.UserID != currentUserID(c) {
		return nil, common.ErrNotFound
	}
	return cat, nil
}

func (s *Server) handleCreateTransaction(c *fiber.Ctx) error {
	req := new(createTransactionRequest)
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}
	if err := s.validator.Struct(req); err != nil {
		return common.NewAppError("VALIDATION", err.Error(), common.ErrInvalidInput)
	}

	txDate, err := parseTxDate(req.Date)
	if err != nil {
		return err
	}

	var categoryID *uuid.UUID
	if req.CategoryID != nil {
		cat, err := s.userCategory(c, *req.CategoryID)
		if err != nil {
			return err
		}
		categoryID = &cat.ID
	}

	description := ""
	if req.Description != nil {
		description = *req.Description
	}
	tx, err := s.transactions.Create(c.Context(), repository.CreateTransactionRequest{
		UserID:        currentUserID(c),
		CategoryID:    categoryID,
		MerchantName:  req.MerchantName,
		Amount:        req.Amount,
		TxDate:        txDate,
		Description:   description,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toTransactionView(tx))
}

func (s *Server) handleUpdateTransaction(c *fiber.Ctx) error {
	tx, err := s.userTransaction(c)
	if err != nil {
		return err
	}

	req := new(updateTransactionRequest)
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}
	if err := s.validator.Struct(req); err != nil {
		return common.NewAppError("VALIDATION", err.Error(), common.ErrInvalidInput)
	}

	update := repository.UpdateTransactionRequest{
		MerchantName:  req.MerchantName,
		Amount:        req.Amount,
		Description:   req.Description,
		PaymentMethod: req.PaymentMethod,
	}
	if req.CategoryID != nil {
		cat, err := s.userCategory(c, *req.CategoryID)
		if err != nil {
			return err
		}
		update.CategoryID = &cat.ID
	}
	if req.Date != nil {
		txDate, err := parseTxDate(*req.Date)
		if err != nil {
			return err
		}
		update.TxDate = &txDate
	}

	if err := s.transactions.Update(c.Context(), tx.ID, update); err != nil {
		return err
	}
	updated, err := s.transactions.GetByID(c.Context(), tx.ID)
	if err != nil {
		return err
	}
	return c.JSON(toTransactionView(updated))
}

// handleTransactionStats reports spending for the requested period along
// with a comparison against the equally long period before it.
func (s *Server) handleTransactionStats(c *fiber.Ctx) error {
	userID := currentUserID(c)
	period := c.Query("period", "month")

	now := time.Now().UTC()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var from time.Time
	switch period {
	case "week":
		from = to.AddDate(0, 0, -7)
	case "year":
		from = time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	default:
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	if startStr, endStr := c.Query("start_date"), c.Query("end_date"); startStr != "" && endStr != "" {
		start, err := time.Parse("2006-01-02", startStr)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "start_date must be YYYY-MM-DD")
		}
		end, err := time.Parse("2006-01-02", endStr)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "end_date must be YYYY-MM-DD")
		}
		from, to = start, end
	}

	stats, err := s.transactions.Stats(c.Context(), userID, from, to)
	if err != nil {
		return err
	}

	days := int(to.Sub(from).Hours() / 24)
	if days < 1 {
		days = 1
	}
	prev, err := s.transactions.Stats(c.Context(), userID, from.AddDate(0, 0, -days), from.AddDate(0, 0, -1))
	if err != nil {
		return err
	}

	average := 0.0
	if stats.TransactionCount > 0 {
		average = stats.TotalSpending / float64(stats.TransactionCount)
	}
	changePct := 0.0
	if prev.TotalSpending > 0 {
		changePct = (stats.TotalSpending - prev.TotalSpending) / prev.TotalSpending * 100
	}

	type dailyView struct {
		Date  string  `json:"date"`
		Total float64 `json:"total"`
		Count int     `json:"count"`
	}
	daily := make([]dailyView, 0, len(stats.Daily))
	for _, d := range stats.Daily {
		daily = append(daily, dailyView{Date: d.Date.Format("2006-01-02"), Total: d.Total, Count: d.Count})
	}

	return c.JSON(fiber.Map{
		"period": fiber.Map{
			"start_date": from.Format("2006-01-02"),
			"end_date":   to.Format("2006-01-02"),
			"type":       period,
		},
		"summary": fiber.Map{
			"total_spending":    stats.TotalSpending,
			"transaction_count": stats.TransactionCount,
			"average_amount":    average,
		},
		"spending_by_category": stats.ByCategory,
		"top_merchants":        stats.TopMerchants,
		"daily_spending":       daily,
		"comparison": fiber.Map{
			"previous_period_total": prev.TotalSpending,
			"change_amount":         stats.TotalSpending - prev.TotalSpending,
			"change_percentage":     changePct,
		},
	})
}

func (s *Server) handleListTransactions(c *fiber.Ctx) error {
	userID := currentUserID(c)

	filter := repository.TransactionFilter{Limit: 50}
	if v, err := strconv.Atoi(c.Query("limit", "50")); err == nil && v > 0 && v <= 500 {
		filter.Limit = v
	}
	if v, err := strconv.Atoi(c.Query("offset", "0")); err == nil && v > 0 {
		filter.Offset = v
	}
	if from := c.Query("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "from must be YYYY-MM-DD")
		}
		filter.FromDate = &t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "to must be YYYY-MM-DD")
		}
		filter.ToDate = &t
	}

	rows, err := s.transactions.ListByUser(c.Context(), userID, filter)
	if err != nil {
		return err
	}
	views := make([]transactionView, 0, len(rows))
	for _, t := range rows {
		views = append(views, toTransactionView(t))
	}
	return c.JSON(fiber.Map{"transactions": views})
}

func (s *Server) handleGetTransaction(c *fiber.Ctx) error {
	tx, err := s.userTransaction(c)
	if err != nil {
		return err
	}
	return c.JSON(toTransactionView(tx))
}

func (s *Server) handleDeleteTransaction(c *fiber.Ctx) error {
	tx, err := s.userTransaction(c)
	if err != nil {
		return err
	}
	if err := s.transactions.Delete(c.Context(), tx.ID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleExportTransactions(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var from, to *time.Time
	if v := c.Query("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "from must be YYYY-MM-DD")
		}
		from = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "to must be YYYY-MM-DD")
		}
		to = &t
	}

	data, err := s.exporter.ExportTransactionsXLSX(c.Context(), userID, from, to)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="transactions.xlsx"`)
	return c.Send(data)
}

func (s *Server) userTransaction(c *fiber.Ctx) (*entity.Transaction, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid transaction id")
	}
	tx, err := s.transactions.GetByID(c.Context(), id)
	if err != nil {
		return nil, err
	}
	if tx.UserID != currentUserID(c) {
		return nil, common.ErrNotFound
	}
	return tx, nil
}
