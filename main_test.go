package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"zestpass/db/memdb"
	"zestpass/util"

	"github.com/stretchr/testify/require"
)

func TestOpenStoreMemoryWarnsAboutExpiry(t *testing.T) {
	var logs bytes.Buffer
	logger := util.LOGGER
	util.LOGGER = slog.New(slog.NewTextHandler(&logs, nil))
	t.Cleanup(func() { util.LOGGER = logger })

	store, withWorkers, err := OpenStore(context.Background(), &util.Config{Storage: "memory"})
	require.NoError(t, err)
	require.False(t, withWorkers)
	require.IsType(t, &memdb.Store{}, store)

	require.Contains(t, logs.String(), "level=WARN")
	require.Contains(t, logs.String(), "expiry scheduler")
	require.Contains(t, logs.String(), "/api/maintenance/expire-tickets")
}
