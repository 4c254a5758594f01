package db

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countRecords(t *testing.T, conn *sql.DB) int {
	t.Helper()
	var count int
	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM records").Scan(&count))
	return count
}

const insertRecord = "INSERT INTO records (created_at) VALUES (1)"

func TestRunInTransaction_Commit(t *testing.T) {
	conn, err := Open(":memory:")
	require.NoError(t, err)
	defer conn.Close()

	err = RunInTransaction(context.Background(), conn, func(ctx context.Context) error {
		_, ok := TxFrom(ctx)
		assert.True(t, ok)
		_, err := ExecutorFor(ctx, conn).ExecContext(ctx, insertRecord)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countRecords(t, conn))
}

func TestRunInTransaction_NestedRollback(t *testing.T) {
	conn, err := Open(":memory:")
	require.NoError(t, err)
	defer conn.Close()

	err = RunInTransaction(context.Background(), conn, func(outer context.Context) error {
		if _, err := ExecutorFor(outer, conn).ExecContext(outer, insertRecord); err != nil {
			return err
		}
		return RunInTransaction(outer, conn, func(inner context.Context) error {
			outerTx, _ := TxFrom(outer)
			innerTx, _ := TxFrom(inner)
			assert.Same(t, outerTx, innerTx)
			return sql.ErrTxDone
		})
	})
	assert.ErrorIs(t, err, sql.ErrTxDone)
	assert.Equal(t, 0, countRecords(t, conn))
}

func TestExecutorFor_WithoutTransaction(t *testing.T) {
	conn, err := Open(":memory:")
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, Executor(conn), ExecutorFor(context.Background(), conn))
}
