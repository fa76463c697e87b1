package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rico-rbls/smart-budget-tracker/internal/common"
)

func TestTransactionRepository_Create(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	txns := NewTransactionRepository(db, testLogger())
	ctx := context.Background()

	txDate := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	created, err := txns.Create(ctx, CreateTransactionRequest{
		UserID:       user.ID,
		MerchantName: "WALMART",
		Amount:       5.70,
		TxDate:       txDate,
		Description:  "Auto-created from receipt (2 items)",
	})
	require.NoError(t, err)

	got, err := txns.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "WALMART", got.MerchantName)
	assert.InDelta(t, 5.70, got.Amount, 1e-9)
	assert.Equal(t, "Auto-created from receipt (2 items)", got.Description)
	assert.Nil(t, got.PaymentMethod)
	assert.Nil(t, got.CategoryID)
	assert.Nil(t, got.ReceiptID)
}

func TestTransactionRepository_RejectsNonPositiveAmount(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	txns := NewTransactionRepository(db, testLogger())

	for _, amount := range []float64{0, -3.50} {
		_, err := txns.Create(context.Background(), CreateTransactionRequest{
			UserID:       user.ID,
			MerchantName: "X",
			Amount:       amount,
			TxDate:       time.Now(),
		})
		assert.True(t, errors.Is(err, common.ErrInvalidInput), "amount %v", amount)
	}
}

func TestTransactionRepository_ListByUserDateFilter(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	txns := NewTransactionRepository(db, testLogger())
	ctx := context.Background()

	dates := []string{"2024-01-10", "2024-02-10", "2024-03-10"}
	for _, d := range dates {
		txDate, err := time.Parse("2006-01-02", d)
		require.NoError(t, err)
		_, err = txns.Create(ctx, CreateTransactionRequest{
			UserID:       user.ID,
			MerchantName: "M",
			Amount:       1.00,
			TxDate:       txDate,
		})
		require.NoError(t, err)
	}

	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	listed, err := txns.ListByUser(ctx, user.ID, TransactionFilter{FromDate: &from})
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	listed, err = txns.ListByUser(ctx, user.ID, TransactionFilter{ToDate: &to})
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestTransactionRepository_Update(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	txns := NewTransactionRepository(db, testLogger())
	ctx := context.Background()

	created, err := txns.Create(ctx, CreateTransactionRequest{
		UserID:       user.ID,
		MerchantName: "STARBUCKS",
		Amount:       4.25,
		TxDate:       time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	merchant := "DUNKIN"
	amount := 9.99
	require.NoError(t, txns.Update(ctx, created.ID, UpdateTransactionRequest{
		MerchantName: &merchant,
		Amount:       &amount,
	}))

	got, err := txns.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "DUNKIN", got.MerchantName)
	assert.InDelta(t, 9.99, got.Amount, 1e-9)
	// Untouched fields keep their values.
	assert.Equal(t, created.TxDate, got.TxDate)

	bad := -1.0
	err = txns.Update(ctx, created.ID, UpdateTransactionRequest{Amount: &bad})
	assert.True(t, errors.Is(err, common.ErrInvalidInput))

	err = txns.Update(ctx, uuid.New(), UpdateTransactionRequest{MerchantName: &merchant})
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestTransactionRepository_Stats(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	cats := NewCategoryRepository(db, testLogger())
	txns := NewTransactionRepository(db, testLogger())
	ctx := context.Background()

	require.NoError(t, cats.CreateDefaults(ctx, user.ID))
	dining, err := cats.FindByName(ctx, user.ID, "Dining")
	require.NoError(t, err)

	d1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	seed := []CreateTransactionRequest{
		{UserID: user.ID, CategoryID: &dining.ID, MerchantName: "STARBUCKS", Amount: 4.00, TxDate: d1},
		{UserID: user.ID, CategoryID: &dining.ID, MerchantName: "STARBUCKS", Amount: 6.00, TxDate: d2},
		{UserID: user.ID, MerchantName: "WALMART", Amount: 12.00, TxDate: d1},
	}
	for _, req := range seed {
		_, err := txns.Create(ctx, req)
		require.NoError(t, err)
	}

	stats, err := txns.Stats(ctx, user.ID, d1, d2)
	require.NoError(t, err)
	assert.InDelta(t, 22.00, stats.TotalSpending, 1e-9)
	assert.Equal(t, 3, stats.TransactionCount)

	// Every seeded category shows up, biggest spender first.
	require.NotEmpty(t, stats.ByCategory)
	assert.Len(t, stats.ByCategory, 8)
	assert.Equal(t, "Dining", stats.ByCategory[0].CategoryName)
	assert.InDelta(t, 10.00, stats.ByCategory[0].Total, 1e-9)
	assert.Equal(t, 2, stats.ByCategory[0].Count)
	assert.InDelta(t, 10.0/22.0*100, stats.ByCategory[0].Percentage, 0.01)

	require.Len(t, stats.TopMerchants, 2)
	assert.Equal(t, "WALMART", stats.TopMerchants[0].MerchantName)
	assert.Equal(t, "STARBUCKS", stats.TopMerchants[1].MerchantName)

	require.Len(t, stats.Daily, 2)
	assert.InDelta(t, 16.00, stats.Daily[0].Total, 1e-9)
	assert.Equal(t, 2, stats.Daily[0].Count)
	assert.InDelta(t, 6.00, stats.Daily[1].Total, 1e-9)

	// The range bounds the aggregation.
	day2, err := txns.Stats(ctx, user.ID, d2, d2)
	require.NoError(t, err)
	assert.InDelta(t, 6.00, day2.TotalSpending, 1e-9)
	assert.Equal(t, 1, day2.TransactionCount)
}

func TestTransactionRepository_FindByReceipt(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	receipts := NewReceiptRepository(db, testLogger())
	txns := NewTransactionRepository(db, testLogger())
	ctx := context.Background()

	rec, err := receipts.Create(ctx, user.ID, "/uploads/r.png")
	require.NoError(t, err)

	created, err := txns.Create(ctx, CreateTransactionRequest{
		UserID:       user.ID,
		ReceiptID:    &rec.ID,
		MerchantName: "STARBUCKS",
		Amount:       4.25,
		TxDate:       time.Now(),
	})
	require.NoError(t, err)

	got, err := txns.FindByReceipt(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	require.NotNil(t, got.ReceiptID)
	assert.Equal(t, rec.ID, *got.ReceiptID)
}
