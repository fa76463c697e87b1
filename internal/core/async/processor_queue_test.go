package async

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rico-rbls/smart-budget-tracker/internal/async"
	"github.com/rico-rbls/smart-budget-tracker/internal/categorize"
	"github.com/rico-rbls/smart-budget-tracker/internal/common"
	"github.com/rico-rbls/smart-budget-tracker/internal/core"
	"github.com/rico-rbls/smart-budget-tracker/internal/entity"
	"github.com/rico-rbls/smart-budget-tracker/internal/ocr"
	"github.com/rico-rbls/smart-budget-tracker/internal/repository"
)

type stubExtractor struct{}

func (stubExtractor) Extract(context.Context, string) (ocr.Result, error) {
	return ocr.Result{Text: "CORNER MARKET\nTotal: $4.00\n", Confidence: 95}, nil
}

// countingReceipts records which receipts were marked, across workers.
type countingReceipts struct {
	repository.ReceiptRepository
	mu     sync.Mutex
	marked map[uuid.UUID]int
}

func (f *countingReceipts) MarkProcessed(_ context.Context, id uuid.UUID, _ *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.marked == nil {
		f.marked = make(map[uuid.UUID]int)
	}
	f.marked[id]++
	return nil
}

type nopTransactions struct {
	repository.TransactionRepository
}

func (nopTransactions) Create(_ context.Context, req repository.CreateTransactionRequest) (*entity.Transaction, error) {
	return &entity.Transaction{ID: uuid.New(), Amount: req.Amount}, nil
}

type emptyCategories struct {
	repository.CategoryRepository
}

func (emptyCategories) FindByName(context.Context, uuid.UUID, string) (*entity.Category, error) {
	return nil, common.ErrNotFound
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newQueueUnderTest(rec *countingReceipts, opts ...Option) *ProcessorQueue {
	logger := quietLogger()
	proc := core.NewProcessor(logger, stubExtractor{}, categorize.NewCategorizer(logger),
		rec, nopTransactions{}, emptyCategories{})
	return NewProcessorQueue(proc, logger, opts...)
}

func TestProcessorQueue_DrainsAllJobs(t *testing.T) {
	rec := &countingReceipts{}
	q := newQueueUnderTest(rec, WithWorkers(3), WithQueueSize(32))

	ids := make([]uuid.UUID, 10)
	for i := range ids {
		ids[i] = uuid.New()
		require.NoError(t, q.Enqueue(context.Background(), async.Job{
			ReceiptID:   ids[i],
			UserID:      uuid.New(),
			FilePath:    "/tmp/receipt.jpg",
			SubmittedAt: time.Now(),
		}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, id := range ids {
		assert.Equal(t, 1, rec.marked[id], "receipt %s marked exactly once", id)
	}
}

func TestProcessorQueue_EnqueueAfterShutdownIsDropped(t *testing.T) {
	rec := &countingReceipts{}
	q := newQueueUnderTest(rec, WithWorkers(1))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	q.Shutdown(ctx)

	id := uuid.New()
	require.NoError(t, q.Enqueue(context.Background(), async.Job{ReceiptID: id}))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Zero(t, rec.marked[id])
}

func TestProcessorQueue_ShutdownTwiceIsSafe(t *testing.T) {
	q := newQueueUnderTest(&countingReceipts{}, WithWorkers(1))
	ctx := context.Background()
	q.Shutdown(ctx)
	q.Shutdown(ctx)
}
