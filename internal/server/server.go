// Package server exposes the HTTP API: auth, receipt upload, transactions,
// categories, budgets and export.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/rico-rbls/smart-budget-tracker/internal/async"
	"github.com/rico-rbls/smart-budget-tracker/internal/categorize"
	"github.com/rico-rbls/smart-budget-tracker/internal/common"
	"github.com/rico-rbls/smart-budget-tracker/internal/export"
	"github.com/rico-rbls/smart-budget-tracker/internal/repository"
	"github.com/rico-rbls/smart-budget-tracker/internal/uploads"
)

type Server struct {
	app       *fiber.App
	logger    *slog.Logger
	validator *validator.Validate
	tokens    *TokenService

	users        repository.UserRepository
	receipts     repository.ReceiptRepository
	transactions repository.TransactionRepository
	categories   repository.CategoryRepository
	budgets      repository.BudgetRepository

	store       *uploads.Store
	queue       async.Queue
	categorizer *categorize.Categorizer
	exporter    *export.Service
}

type Deps struct {
	Logger       *slog.Logger
	Tokens       *TokenService
	Users        repository.UserRepository
	Receipts     repository.ReceiptRepository
	Transactions repository.TransactionRepository
	Categories   repository.CategoryRepository
	Budgets      repository.BudgetRepository
	Store        *uploads.Store
	Queue        async.Queue
	Categorizer  *categorize.Categorizer
	Exporter     *export.Service
}

func New(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		logger:       logger,
		validator:    validator.New(),
		tokens:       d.Tokens,
		users:        d.Users,
		receipts:     d.Receipts,
		transactions: d.Transactions,
		categories:   d.Categories,
		budgets:      d.Budgets,
		store:        d.Store,
		queue:        d.Queue,
		categorizer:  d.Categorizer,
		exporter:     d.Exporter,
	}

	s.app = fiber.New(fiber.Config{
		AppName:      "smart-budget-tracker",
		ErrorHandler: s.errorHandler,
		BodyLimit:    12 << 20, // multipart envelope headroom above the file cap
	})
	s.app.Use(s.requestLogger())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := s.app.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Post("/register", s.handleRegister)
	auth.Post("/login", s.handleLogin)
	auth.Get("/me", s.requireAuth, s.handleMe)

	receipts := api.Group("/receipts", s.requireAuth)
	receipts.Post("", s.handleUploadReceipt)
	receipts.Get("", s.handleListReceipts)
	receipts.Get("/:id", s.handleGetReceipt)
	receipts.Delete("/:id", s.handleDeleteReceipt)

	transactions := api.Group("/transactions", s.requireAuth)
	transactions.Post("", s.handleCreateTransaction)
	transactions.Get("", s.handleListTransactions)
	transactions.Get("/export", s.handleExportTransactions)
	transactions.Get("/stats", s.handleTransactionStats)
	transactions.Get("/:id", s.handleGetTransaction)
	transactions.Put("/:id", s.handleUpdateTransaction)
	transactions.Delete("/:id", s.handleDeleteTransaction)

	categories := api.Group("/categories", s.requireAuth)
	categories.Get("", s.handleListCategories)
	categories.Get("/suggestions", s.handleCategorySuggestions)
	categories.Post("/keywords", s.handleAddKeyword)

	budgets := api.Group("/budgets", s.requireAuth)
	budgets.Post("", s.handleCreateBudget)
	budgets.Get("", s.handleListBudgets)
	budgets.Patch("/:id", s.handleUpdateBudget)
	budgets.Delete("/:id", s.handleDeleteBudget)
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen(addr string) error {
	s.logger.Info("http server listening", "addr", addr)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		s.logger.Info("http request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration", time.Since(start).Round(time.Microsecond),
		)
		return err
	}
}

// errorHandler maps application errors onto HTTP statuses so handlers can
// just return them.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
	}

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, common.ErrInvalidInput):
		status = fiber.StatusBadRequest
	case errors.Is(err, common.ErrUnauthorized):
		status = fiber.StatusUnauthorized
	case errors.Is(err, common.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, common.ErrDuplicate):
		status = fiber.StatusConflict
	}

	msg := err.Error()
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	if status == fiber.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "error", err)
		msg = "internal server error"
	}
	return c.Status(status).JSON(fiber.Map{"error": msg})
}
