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

type CreateBudgetRequest struct {
	UserID     uuid.UUID
	CategoryID uuid.UUID
	Amount     float64
	Period     string
	StartDate  time.Time
}

type BudgetRepository interface {
	Create(ctx context.Context, req CreateBudgetRequest) (*entity.Budget, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Budget, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Budget, error)
	UpdateAmount(ctx context.Context, id uuid.UUID, amount float64) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type budgetRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewBudgetRepository(db *sql.DB, logger *slog.Logger) BudgetRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &budgetRepository{db: db, logger: logger}
}

func (r *budgetRepository) Create(ctx context.Context, req CreateBudgetRequest) (*entity.Budget, error) {
	if req.Amount <= 0 {
		return nil, common.NewAppError("INVALID_AMOUNT", "budget amount must be positive", common.ErrInvalidInput)
	}
	b := &entity.Budget{
		ID:         uuid.New(),
		UserID:     req.UserID,
		CategoryID: req.CategoryID,
		Amount:     req.Amount,
		Period:     req.Period,
		StartDate:  req.StartDate,
		CreatedAt:  time.Now().UTC(),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (id, user_id, category_id, amount, period, start_date, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		b.ID, b.UserID, b.CategoryID, b.Amount, b.Period, b.StartDate, b.CreatedAt)
	if err != nil {
		r.logger.Error("failed to create budget", "user_id", req.UserID, "error", err)
		return nil, fmt.Errorf("create budget: %w", err)
	}
	return b, nil
}

func (r *budgetRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Budget, error) {
	var b entity.Budget
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, category_id, amount, period, start_date, created_at
		 FROM budgets WHERE id = $1`, id).
		Scan(&b.ID, &b.UserID, &b.CategoryID, &b.Amount, &b.Period, &b.StartDate, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query budget: %w", err)
	}
	return &b, nil
}

func (r *budgetRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, category_id, amount, period, start_date, created_at
		 FROM budgets WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		r.logger.Error("failed to list budgets", "user_id", userID, "error", err)
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []*entity.Budget
	for rows.Next() {
		var b entity.Budget
		if err := rows.Scan(&b.ID, &b.UserID, &b.CategoryID, &b.Amount, &b.Period, &b.StartDate, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, &b)
	}
	return budgets, rows.Err()
}

func (r *budgetRepository) UpdateAmount(ctx context.Context, id uuid.UUID, amount float64) error {
	if amount <= 0 {
		return common.NewAppError("INVALID_AMOUNT", "budget amount must be positive", common.ErrInvalidInput)
	}
	res, err := r.db.ExecContext(ctx, `UPDATE budgets SET amount = $1 WHERE id = $2`, amount, id)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *budgetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}
