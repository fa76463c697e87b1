package export

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/rico-rbls/smart-budget-tracker/internal/entity"
	"github.com/rico-rbls/smart-budget-tracker/internal/repository"
)

type fakeTransactions struct {
	repository.TransactionRepository
	rows       []*entity.Transaction
	lastFilter repository.TransactionFilter
}

func (f *fakeTransactions) ListByUser(_ context.Context, _ uuid.UUID, filter repository.TransactionFilter) ([]*entity.Transaction, error) {
	f.lastFilter = filter
	return f.rows, nil
}

type fakeCategories struct {
	repository.CategoryRepository
	rows []*entity.Category
}

func (f *fakeCategories) ListByUser(context.Context, uuid.UUID) ([]*entity.Category, error) {
	return f.rows, nil
}

type fakeReceipts struct {
	repository.ReceiptRepository
	byID map[uuid.UUID]*entity.Receipt
}

func (f *fakeReceipts) GetByID(_ context.Context, id uuid.UUID) (*entity.Receipt, error) {
	if r, ok := f.byID[id]; ok {
		return r, nil
	}
	return nil, os.ErrNotExist
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestExportTransactionsXLSX(t *testing.T) {
	userID := uuid.New()
	catID := uuid.New()
	receiptID := uuid.New()

	txs := &fakeTransactions{rows: []*entity.Transaction{
		{
			ID:           uuid.New(),
			UserID:       userID,
			ReceiptID:    &receiptID,
			CategoryID:   &catID,
			MerchantName: "WALMART",
			Amount:       6.21,
			TxDate:       time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			Description:  "Auto-created from receipt (2 items)",
		},
		{
			ID:           uuid.New(),
			UserID:       userID,
			MerchantName: "Unknown Merchant",
			Amount:       10,
			TxDate:       time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC),
		},
	}}
	cats := &fakeCategories{rows: []*entity.Category{{ID: catID, UserID: userID, Name: "Groceries"}}}
	recs := &fakeReceipts{byID: map[uuid.UUID]*entity.Receipt{
		receiptID: {ID: receiptID, UserID: userID, ImagePath: "/srv/uploads/r.jpg"},
	}}

	svc := NewService(txs, cats, recs, testLogger())
	data, err := svc.ExportTransactionsXLSX(context.Background(), userID, nil, nil)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()

	rows, err := wb.GetRows("Transactions")
	require.NoError(t, err)
	require.Len(t, rows, 3) // header + 2 transactions

	assert.Equal(t, "Date", rows[0][0])
	assert.Equal(t, "2024-03-15", rows[1][0])
	assert.Equal(t, "WALMART", rows[1][1])
	assert.Equal(t, "Groceries", rows[1][2])
	assert.Equal(t, "/srv/uploads/r.jpg", rows[1][6])

	assert.Equal(t, "Unknown Merchant", rows[2][1])
	// No category and no receipt resolve to blanks.
	if len(rows[2]) > 2 {
		assert.Equal(t, "", rows[2][2])
	}
}

func TestExportTransactionsXLSX_FromImpliesToToday(t *testing.T) {
	txs := &fakeTransactions{}
	svc := NewService(txs, &fakeCategories{}, &fakeReceipts{}, testLogger())

	from := time.Date(2024, 1, 5, 13, 30, 0, 0, time.Local)
	_, err := svc.ExportTransactionsXLSX(context.Background(), uuid.New(), &from, nil)
	require.NoError(t, err)

	require.NotNil(t, txs.lastFilter.FromDate)
	assert.Equal(t, "2024-01-05", txs.lastFilter.FromDate.Format("2006-01-02"))
	require.NotNil(t, txs.lastFilter.ToDate, "open-ended from must clamp to today")
}
