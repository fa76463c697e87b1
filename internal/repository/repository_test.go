package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/rico-rbls/smart-budget-tracker/internal/entity"
)

// testSchema mirrors db/migrations/001_init.sql in sqlite dialect so the
// repositories can be exercised without a Postgres instance.
const testSchema = `
CREATE TABLE users (
    id            TEXT PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    name          TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at    TIMESTAMP NOT NULL
);
CREATE TABLE categories (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
    name       TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    UNIQUE (user_id, name)
);
CREATE TABLE receipts (
    id          TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
    image_path  TEXT NOT NULL,
    ocr_text    TEXT,
    processed   BOOLEAN NOT NULL DEFAULT FALSE,
    upload_date TIMESTAMP NOT NULL,
    created_at  TIMESTAMP NOT NULL
);
CREATE TABLE transactions (
    id               TEXT PRIMARY KEY,
    user_id          TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
    receipt_id       TEXT REFERENCES receipts (id) ON DELETE CASCADE,
    category_id      TEXT REFERENCES categories (id) ON DELETE SET NULL,
    merchant_name    TEXT NOT NULL,
    amount           REAL NOT NULL CHECK (amount > 0),
    transaction_date TIMESTAMP NOT NULL,
    description      TEXT,
    payment_method   TEXT,
    created_at       TIMESTAMP NOT NULL
);
CREATE TABLE budgets (
    id          TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
    category_id TEXT NOT NULL REFERENCES categories (id) ON DELETE CASCADE,
    amount      REAL NOT NULL CHECK (amount > 0),
    period      TEXT NOT NULL CHECK (period IN ('weekly', 'monthly', 'yearly')),
    start_date  TIMESTAMP NOT NULL,
    created_at  TIMESTAMP NOT NULL,
    UNIQUE (user_id, category_id, period)
);
`

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)
	_, err = db.Exec(testSchema)
	require.NoError(t, err)
	return db
}

func testLogger() *slog.Logger {
	return slog.Default()
}

func createTestUser(t *testing.T, db *sql.DB) *entity.User {
	t.Helper()
	users := NewUserRepository(db, testLogger())
	u, err := users.Create(context.Background(), CreateUserRequest{
		Email:        uuid.NewString() + "@example.com",
		Name:         "Test User",
		PasswordHash: "x",
	})
	require.NoError(t, err)
	return u
}
