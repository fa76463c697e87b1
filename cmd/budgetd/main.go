package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rico-rbls/smart-budget-tracker/internal/categorize"
	"github.com/rico-rbls/smart-budget-tracker/internal/common"
	"github.com/rico-rbls/smart-budget-tracker/internal/core"
	coreasync "github.com/rico-rbls/smart-budget-tracker/internal/core/async"
	"github.com/rico-rbls/smart-budget-tracker/internal/export"
	"github.com/rico-rbls/smart-budget-tracker/internal/ocr"
	repo "github.com/rico-rbls/smart-budget-tracker/internal/repository"
	"github.com/rico-rbls/smart-budget-tracker/internal/server"
	"github.com/rico-rbls/smart-budget-tracker/internal/uploads"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, pool, err := repo.Open(ctx, repo.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer repo.Close(db, pool, logger)

	if err := repo.HealthCheck(ctx, pool, 5*time.Second, logger); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	store, err := uploads.NewStore(cfg.Uploads.Dir, logger)
	if err != nil {
		logger.Error("failed to prepare upload directory", "dir", cfg.Uploads.Dir, "error", err)
		os.Exit(1)
	}

	usersRepo := repo.NewUserRepository(db, logger)
	receiptsRepo := repo.NewReceiptRepository(db, logger)
	transactionsRepo := repo.NewTransactionRepository(db, logger)
	categoriesRepo := repo.NewCategoryRepository(db, logger)
	budgetsRepo := repo.NewBudgetRepository(db, logger)

	extractor := ocr.NewExtractor(ocr.Config{
		Tesseract:     cfg.OCR.Tesseract,
		Pdftotext:     cfg.OCR.Pdftotext,
		Pdftoppm:      cfg.OCR.Pdftoppm,
		TesseractLang: cfg.OCR.TesseractLang,
		TessdataDir:   cfg.OCR.TessdataDir,
		DPI:           cfg.OCR.DPI,
		MaxPages:      cfg.OCR.MaxPages,
	}, logger)

	categorizer, err := loadCategorizer(logger)
	if err != nil {
		logger.Error("failed to load keyword table", "error", err)
		os.Exit(1)
	}

	processor := core.NewProcessor(logger, extractor, categorizer,
		receiptsRepo, transactionsRepo, categoriesRepo)
	queue := coreasync.NewProcessorQueue(processor, logger,
		coreasync.WithWorkers(cfg.Server.Workers),
		coreasync.WithQueueSize(cfg.Server.QueueSize),
		coreasync.WithProcessTimeout(cfg.Server.ProcessTimeout),
	)

	srv := server.New(server.Deps{
		Logger:       logger,
		Tokens:       server.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL),
		Users:        usersRepo,
		Receipts:     receiptsRepo,
		Transactions: transactionsRepo,
		Categories:   categoriesRepo,
		Budgets:      budgetsRepo,
		Store:        store,
		Queue:        queue,
		Categorizer:  categorizer,
		Exporter:     export.NewService(transactionsRepo, categoriesRepo, receiptsRepo, logger),
	})

	go func() {
		if err := srv.Listen(cfg.Server.Addr); err != nil {
			logger.Error("http serve error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	// Drain in-flight receipt jobs before the DB goes away.
	queue.Shutdown(shutdownCtx)
}

// loadCategorizer uses the optional KEYWORDS_FILE override, falling back to
// the built-in table.
func loadCategorizer(logger *slog.Logger) (*categorize.Categorizer, error) {
	if path := os.Getenv("KEYWORDS_FILE"); path != "" {
		return categorize.NewFromConfigFile(path, logger)
	}
	return categorize.NewCategorizer(logger), nil
}
