package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dwnlabs/dwn-core/store"
)

func rec(recordID, dateModified, cid string) store.Record {
	return store.Record{IndexTags: store.IndexTags{RecordID: recordID, DateModified: dateModified, MessageCID: cid}}
}

func TestMemStoreLaterDateModifiedWins(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()

	require.NoError(t, s.Put(ctx, "alice", rec("r1", "2026-01-01T00:00:00.000000Z", "bafkaaa")))
	require.NoError(t, s.Put(ctx, "alice", rec("r1", "2026-01-02T00:00:00.000000Z", "bafkbbb")))

	got, ok, err := s.Get(ctx, "alice", "r1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2026-01-02T00:00:00.000000Z", got.IndexTags.DateModified)
}

func TestMemStoreTiesBrokenByCID(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()

	same := "2026-01-01T00:00:00.000000Z"
	require.NoError(t, s.Put(ctx, "alice", rec("r1", same, "bafkaaa")))
	require.NoError(t, s.Put(ctx, "alice", rec("r1", same, "bafkzzz")))

	got, ok, err := s.Get(ctx, "alice", "r1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "bafkzzz", got.IndexTags.MessageCID)
}

func TestMemStoreOutOfOrderArrivalKeepsLatestTip(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()

	require.NoError(t, s.Put(ctx, "alice", rec("r1", "2026-01-02T00:00:00.000000Z", "bafkbbb")))
	require.NoError(t, s.Put(ctx, "alice", rec("r1", "2026-01-01T00:00:00.000000Z", "bafkaaa")))

	got, ok, err := s.Get(ctx, "alice", "r1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2026-01-02T00:00:00.000000Z", got.IndexTags.DateModified)
}

func TestMemStoreTenantIsolation(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()

	require.NoError(t, s.Put(ctx, "alice", rec("r1", "2026-01-01T00:00:00.000000Z", "bafkaaa")))

	_, ok, err := s.Get(ctx, "bob", "r1")
	require.NoError(t, err)
	require.False(t, ok)
}
