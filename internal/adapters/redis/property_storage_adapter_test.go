package redis

import (
	"context"
	"hemnet-images/internal/core/domain"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T) (*PropertyStorageAdapter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewPropertyStorageAdapter(rdb), mr
}

func TestPropertyStorageAdapter_RoundTrip(t *testing.T) {
	adapter, mr := newTestAdapter(t)
	ctx := context.Background()
	record := domain.PropertyRecord{PropertyID: "abc123", ListingID: 42, StreetAddress: "Storgatan 1", ImageIDs: []string{"b", "a"}}

	require.NoError(t, adapter.Save(ctx, record))
	assert.True(t, mr.Exists("hemnet:property:abc123"))

	got, err := adapter.Get(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, record, *got)

	existing, err := adapter.ExistingPropertyIDs(ctx, []string{"zzz", "abc123"})
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"abc123": {}}, existing)
}

func TestPropertyStorageAdapter_Errors(t *testing.T) {
	adapter, mr := newTestAdapter(t)
	ctx := context.Background()

	_, err := adapter.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrPropertyNotFound)

	require.NoError(t, mr.Set("hemnet:property:broken", "{not json"))
	_, err = adapter.Get(ctx, "broken")
	assert.True(t, domain.IsKind(err, domain.KindStoreRead))

	mr.Close()
	_, err = adapter.ExistingPropertyIDs(ctx, []string{"abc123"})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindStoreQuery))
}
