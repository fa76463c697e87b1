package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rico-rbls/smart-budget-tracker/constants"
	"github.com/rico-rbls/smart-budget-tracker/internal/common"
)

func TestCategoryRepository_CreateDefaults(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	cats := NewCategoryRepository(db, testLogger())
	ctx := context.Background()

	require.NoError(t, cats.CreateDefaults(ctx, user.ID))

	listed, err := cats.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, listed, len(constants.AllCategories()))

	got, err := cats.FindByName(ctx, user.ID, string(constants.Groceries))
	require.NoError(t, err)
	assert.Equal(t, "Groceries", got.Name)
	assert.Equal(t, user.ID, got.UserID)
}

func TestCategoryRepository_GetByID(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	cats := NewCategoryRepository(db, testLogger())
	ctx := context.Background()

	created, err := cats.Create(ctx, user.ID, "Travel")
	require.NoError(t, err)

	got, err := cats.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Travel", got.Name)
	assert.Equal(t, user.ID, got.UserID)

	_, err = cats.GetByID(ctx, uuid.New())
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestCategoryRepository_FindByNameScopedToUser(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db)
	bob := createTestUser(t, db)
	cats := NewCategoryRepository(db, testLogger())
	ctx := context.Background()

	_, err := cats.Create(ctx, alice.ID, "Dining")
	require.NoError(t, err)

	_, err = cats.FindByName(ctx, bob.ID, "Dining")
	assert.True(t, errors.Is(err, common.ErrNotFound))

	got, err := cats.FindByName(ctx, alice.ID, "Dining")
	require.NoError(t, err)
	assert.Equal(t, "Dining", got.Name)
}

func TestCategoryRepository_DuplicateName(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	cats := NewCategoryRepository(db, testLogger())
	ctx := context.Background()

	_, err := cats.Create(ctx, user.ID, "Travel")
	require.NoError(t, err)
	_, err = cats.Create(ctx, user.ID, "Travel")
	assert.Error(t, err)
}
