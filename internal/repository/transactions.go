package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rico-rbls/smart-budget-tracker/internal/common"
	"github.com/rico-rbls/smart-budget-tracker/internal/entity"
)

// CreateTransactionRequest wraps parameters for creating a transaction.
type CreateTransactionRequest struct {
	UserID        uuid.UUID
	ReceiptID     *uuid.UUID
	CategoryID    *uuid.UUID
	MerchantName  string
	Amount        float64
	TxDate        time.Time
	Description   string
	PaymentMethod *string
}

// UpdateTransactionRequest carries a partial update; nil fields are left
// untouched.
type UpdateTransactionRequest struct {
	CategoryID    *uuid.UUID
	MerchantName  *string
	Amount        *float64
	TxDate        *time.Time
	Description   *string
	PaymentMethod *string
}

// TransactionFilter narrows ListByUser; zero values mean no constraint.
type TransactionFilter struct {
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}

// CategorySpending is one row of the per-category stats breakdown. Rows
// cover every user category, including those with no spending in range.
type CategorySpending struct {
	CategoryID   uuid.UUID `json:"category_id"`
	CategoryName string    `json:"category_name"`
	Total        float64   `json:"total"`
	Count        int       `json:"count"`
	Percentage   float64   `json:"percentage"`
}

// MerchantSpending aggregates spending for one merchant.
type MerchantSpending struct {
	MerchantName string  `json:"merchant_name"`
	Total        float64 `json:"total"`
	Count        int     `json:"count"`
}

// DailySpending aggregates spending for one calendar date.
type DailySpending struct {
	Date  time.Time `json:"date"`
	Total float64   `json:"total"`
	Count int       `json:"count"`
}

// TransactionStats summarizes a user's spending over a date range.
type TransactionStats struct {
	TotalSpending    float64
	TransactionCount int
	ByCategory       []CategorySpending
	TopMerchants     []MerchantSpending
	Daily            []DailySpending
}

type TransactionRepository interface {
	Create(ctx context.Context, req CreateTransactionRequest) (*entity.Transaction, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Transaction, error)
	ListByUser(ctx context.Context, userID uuid.UUID, filter TransactionFilter) ([]*entity.Transaction, error)
	FindByReceipt(ctx context.Context, receiptID uuid.UUID) (*entity.Transaction, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateTransactionRequest) error
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context, userID uuid.UUID, from, to time.Time) (*TransactionStats, error)
}

type transactionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewTransactionRepository(db *sql.DB, logger *slog.Logger) TransactionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &transactionRepository{db: db, logger: logger}
}

func (r *transactionRepository) Create(ctx context.Context, req CreateTransactionRequest) (*entity.Transaction, error) {
	if req.Amount <= 0 {
		return nil, common.NewAppError("INVALID_AMOUNT", "transaction amount must be positive", common.ErrInvalidInput)
	}
	t := &entity.Transaction{
		ID:            uuid.New(),
		UserID:        req.UserID,
		ReceiptID:     req.ReceiptID,
		CategoryID:    req.CategoryID,
		MerchantName:  req.MerchantName,
		Amount:        req.Amount,
		TxDate:        req.TxDate,
		Description:   req.Description,
		PaymentMethod: req.PaymentMethod,
		CreatedAt:     time.Now().UTC(),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, user_id, receipt_id, category_id, merchant_name, amount, transaction_date, description, payment_method, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.UserID, t.ReceiptID, t.CategoryID, t.MerchantName, t.Amount, t.TxDate, t.Description, t.PaymentMethod, t.CreatedAt)
	if err != nil {
		r.logger.Error("failed to create transaction", "user_id", req.UserID, "error", err)
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	return t, nil
}

func (r *transactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Transaction, error) {
	row := r.db.QueryRowContext(ctx, selectTransaction+` WHERE id = $1`, id)
	return scanTransaction(row)
}

func (r *transactionRepository) ListByUser(ctx context.Context, userID uuid.UUID, filter TransactionFilter) ([]*entity.Transaction, error) {
	query := selectTransaction + ` WHERE user_id = $1`
	args := []any{userID}
	if filter.FromDate != nil {
		args = append(args, *filter.FromDate)
		query += fmt.Sprintf(` AND transaction_date >= $%d`, len(args))
	}
	if filter.ToDate != nil {
		args = append(args, *filter.ToDate)
		query += fmt.Sprintf(` AND transaction_date <= $%d`, len(args))
	}
	query += ` ORDER BY transaction_date DESC, created_at DESC`
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(` LIMIT $%d`, len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list transactions", "user_id", userID, "error", err)
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []*entity.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func (r *transactionRepository) FindByReceipt(ctx context.Context, receiptID uuid.UUID) (*entity.Transaction, error) {
	row := r.db.QueryRowContext(ctx, selectTransaction+` WHERE receipt_id = $1`, receiptID)
	return scanTransaction(row)
}

func (r *transactionRepository) Update(ctx context.Context, id uuid.UUID, req UpdateTransactionRequest) error {
	if req.Amount != nil && *req.Amount <= 0 {
		return common.NewAppError("INVALID_AMOUNT", "transaction amount must be positive", common.ErrInvalidInput)
	}

	var sets []string
	var args []any
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if req.CategoryID != nil {
		set("category_id", *req.CategoryID)
	}
	if req.MerchantName != nil {
		set("merchant_name", *req.MerchantName)
	}
	if req.Amount != nil {
		set("amount", *req.Amount)
	}
	if req.TxDate != nil {
		set("transaction_date", *req.TxDate)
	}
	if req.Description != nil {
		set("description", *req.Description)
	}
	if req.PaymentMethod != nil {
		set("payment_method", *req.PaymentMethod)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE transactions SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to update transaction", "transaction_id", id, "error", err)
		return fmt.Errorf("update transaction: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *transactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("failed to delete transaction", "transaction_id", id, "error", err)
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// Stats aggregates spending between from and to inclusive: the range total,
// a per-category breakdown (every user category, zero rows included), the
// top five merchants by spend, and per-day totals.
func (r *transactionRepository) Stats(ctx context.Context, userID uuid.UUID, from, to time.Time) (*TransactionStats, error) {
	stats := &TransactionStats{}

	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0), COUNT(*) FROM transactions
		 WHERE user_id = $1 AND transaction_date >= $2 AND transaction_date <= $3`,
		userID, from, to).Scan(&stats.TotalSpending, &stats.TransactionCount)
	if err != nil {
		r.logger.Error("failed to aggregate spending", "user_id", userID, "error", err)
		return nil, fmt.Errorf("spending total: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.name, COALESCE(SUM(t.amount), 0), COUNT(t.id)
		 FROM categories c
		 LEFT JOIN transactions t ON c.id = t.category_id
		   AND t.user_id = $1
		   AND t.transaction_date >= $2
		   AND t.transaction_date <= $3
		 WHERE c.user_id = $1
		 GROUP BY c.id, c.name
		 ORDER BY COALESCE(SUM(t.amount), 0) DESC`,
		userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("spending by category: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cs CategorySpending
		if err := rows.Scan(&cs.CategoryID, &cs.CategoryName, &cs.Total, &cs.Count); err != nil {
			return nil, fmt.Errorf("scan category spending: %w", err)
		}
		if stats.TotalSpending > 0 {
			cs.Percentage = cs.Total / stats.TotalSpending * 100
		}
		stats.ByCategory = append(stats.ByCategory, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	merchants, err := r.db.QueryContext(ctx,
		`SELECT merchant_name, COALESCE(SUM(amount), 0), COUNT(*)
		 FROM transactions
		 WHERE user_id = $1 AND transaction_date >= $2 AND transaction_date <= $3
		 GROUP BY merchant_name
		 ORDER BY COALESCE(SUM(amount), 0) DESC
		 LIMIT 5`,
		userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("top merchants: %w", err)
	}
	defer merchants.Close()
	for merchants.Next() {
		var ms MerchantSpending
		if err := merchants.Scan(&ms.MerchantName, &ms.Total, &ms.Count); err != nil {
			return nil, fmt.Errorf("scan merchant spending: %w", err)
		}
		stats.TopMerchants = append(stats.TopMerchants, ms)
	}
	if err := merchants.Err(); err != nil {
		return nil, err
	}

	daily, err := r.db.QueryContext(ctx,
		`SELECT transaction_date, COALESCE(SUM(amount), 0), COUNT(*)
		 FROM transactions
		 WHERE user_id = $1 AND transaction_date >= $2 AND transaction_date <= $3
		 GROUP BY transaction_date
		 ORDER BY transaction_date ASC`,
		userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("daily spending: %w", err)
	}
	defer daily.Close()
	for daily.Next() {
		var ds DailySpending
		if err := daily.Scan(&ds.Date, &ds.Total, &ds.Count); err != nil {
			return nil, fmt.Errorf("scan daily spending: %w", err)
		}
		stats.Daily = append(stats.Daily, ds)
	}
	return stats, daily.Err()
}

const selectTransaction = `SELECT id, user_id, receipt_id, category_id, merchant_name, amount, transaction_date, description, payment_method, created_at FROM transactions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*entity.Transaction, error) {
	var t entity.Transaction
	var desc sql.NullString
	err := row.Scan(&t.ID, &t.UserID, &t.ReceiptID, &t.CategoryID, &t.MerchantName, &t.Amount, &t.TxDate, &desc, &t.PaymentMethod, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	t.Description = desc.String
	return &t, nil
}
