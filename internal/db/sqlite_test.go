package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSqlite(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sqlite")
	db, err := OpenSqlite(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenSqliteRunsMigrations(t *testing.T) {
	db := openTestSqlite(t)

	var name string
	err := db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type='table' AND name='announced_sales'`,
	).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "announced_sales", name)
}

func TestTxRunnerCommits(t *testing.T) {
	db := openTestSqlite(t)

	_, err := TxRunner(context.Background(), db, func(tx *sql.Tx) (struct{}, error) {
		_, err := tx.Exec(
			`INSERT INTO announced_sales (tx_hash, token_id, buyer, seller, price, currency, marketplace, announced_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			"0xabc", "42", "0xbuyer", "0xseller", "1.5", "ETH", "Blur", 1700000000)
		return struct{}{}, err
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM announced_sales`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestTxRunnerRollsBackOnError(t *testing.T) {
	db := openTestSqlite(t)

	boom := errors.New("boom")
	_, err := TxRunner(context.Background(), db, func(tx *sql.Tx) (struct{}, error) {
		_, execErr := tx.Exec(
			`INSERT INTO announced_sales (tx_hash, token_id, buyer, seller, price, currency, marketplace, announced_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			"0xabc", "42", "0xbuyer", "0xseller", "1.5", "ETH", "Blur", 1700000000)
		require.NoError(t, execErr)
		return struct{}{}, boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM announced_sales`).Scan(&count))
	assert.Equal(t, 0, count)
}
