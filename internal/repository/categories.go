package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rico-rbls/smart-budget-tracker/constants"
	"github.com/rico-rbls/smart-budget-tracker/internal/common"
	"github.com/rico-rbls/smart-budget-tracker/internal/entity"
)

type CategoryRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Category, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Category, error)
	FindByName(ctx context.Context, userID uuid.UUID, name string) (*entity.Category, error)
	Create(ctx context.Context, userID uuid.UUID, name string) (*entity.Category, error)
	// CreateDefaults seeds the category enum for a new user in one transaction.
	CreateDefaults(ctx context.Context, userID uuid.UUID) error
}

type categoryRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewCategoryRepository(db *sql.DB, logger *slog.Logger) CategoryRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &categoryRepository{db: db, logger: logger}
}

func (r *categoryRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, created_at FROM categories WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		r.logger.Error("failed to list categories", "user_id", userID, "error", err)
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []*entity.Category
	for rows.Next() {
		var c entity.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, &c)
	}
	return cats, rows.Err()
}

func (r *categoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Category, error) {
	var c entity.Category
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, created_at FROM categories WHERE id = $1`, id).
		Scan(&c.ID, &c.UserID, &c.Name, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

func (r *categoryRepository) FindByName(ctx context.Context, userID uuid.UUID, name string) (*entity.Category, error) {
	var c entity.Category
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, created_at FROM categories WHERE user_id = $1 AND name = $2`,
		userID, name).
		Scan(&c.ID, &c.UserID, &c.Name, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find category: %w", err)
	}
	return &c, nil
}

func (r *categoryRepository) Create(ctx context.Context, userID uuid.UUID, name string) (*entity.Category, error) {
	c := &entity.Category{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, user_id, name, created_at) VALUES ($1, $2, $3, $4)`,
		c.ID, c.UserID, c.Name, c.CreatedAt)
	if err != nil {
		r.logger.Error("failed to create category", "user_id", userID, "name", name, "error", err)
		return nil, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (r *categoryRepository) CreateDefaults(ctx context.Context, userID uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for _, cat := range constants.AllCategories() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO categories (id, user_id, name, created_at) VALUES ($1, $2, $3, $4)`,
			uuid.New(), userID, string(cat), now); err != nil {
			return fmt.Errorf("seed category %q: %w", cat, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit defaults: %w", err)
	}
	r.logger.Debug("seeded default categories", "user_id", userID)
	return nil
}
