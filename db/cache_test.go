package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/require"
)

func TestAcquireLock(t *testing.T) {
	client, mock := redismock.NewClientMock()
	queries := &Queries{Cache: client}
	ctx := context.Background()

	mock.ExpectSetNX("lock:payment:order_1", "owner-a", 30*time.Second).SetVal(true)
	acquired, err := queries.AcquireLock(ctx, "payment:order_1", "owner-a", 30*time.Second)
	require.NoError(t, err)
	require.True(t, acquired)

	// Held by owner-a
	mock.ExpectSetNX("lock:payment:order_1", "owner-b", 30*time.Second).SetVal(false)
	acquired, err = queries.AcquireLock(ctx, "payment:order_1", "owner-b", 30*time.Second)
	require.NoError(t, err)
	require.False(t, acquired)

	mock.ExpectSetNX("lock:payment:order_2", "owner-a", 30*time.Second).SetErr(errors.New("connection refused"))
	_, err = queries.AcquireLock(ctx, "payment:order_2", "owner-a", 30*time.Second)
	require.Error(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseLock(t *testing.T) {
	client, mock := redismock.NewClientMock()
	queries := &Queries{Cache: client}
	ctx := context.Background()

	mock.ExpectEvalSha(releaseLockScript.Hash(), []string{"lock:refund:1"}, "owner-a").SetVal(int64(1))
	require.NoError(t, queries.ReleaseLock(ctx, "refund:1", "owner-a"))

	// Not the owner anymore: the script deletes nothing
	mock.ExpectEvalSha(releaseLockScript.Hash(), []string{"lock:refund:1"}, "owner-b").SetVal(int64(0))
	require.NoError(t, queries.ReleaseLock(ctx, "refund:1", "owner-b"))

	require.NoError(t, mock.ExpectationsWereMet())
}
