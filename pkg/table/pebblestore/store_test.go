package pebblestore

import (
	"context"
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ssargent/minewatch/pkg/codec"
	"github.com/ssargent/minewatch/pkg/table"
	"github.com/ssargent/minewatch/pkg/table/tabletest"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{InMemory: true}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_Conformance(t *testing.T) {
	tabletest.Run(t, func(t *testing.T) table.Store {
		return openTestStore(t)
	})
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(Config{DataDir: dir, Sync: true}, nil)
	require.NoError(t, err)
	require.NoError(t, s.CreateTable(ctx, tabletest.Spec))
	item := tabletest.Item("ABC_123_4567", "0001", "10")
	require.NoError(t, s.PutItem(ctx, tabletest.Spec.Name, item))
	require.NoError(t, s.Close())

	s, err = Open(Config{DataDir: dir}, nil)
	require.NoError(t, err)
	defer s.Close()

	names, err := s.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{tabletest.Spec.Name}, names)

	items, err := s.Scan(ctx, tabletest.Spec.Name)
	require.NoError(t, err)
	assert.Equal(t, []codec.AttributeMap{item}, items)
}

func TestStore_RequiresDataDir(t *testing.T) {
	_, err := Open(Config{}, nil)
	assert.Error(t, err)
}

func TestStore_DetectsCorruptItems(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.CreateTable(ctx, tabletest.Spec))

	item := tabletest.Item("ABC_123_4567", "0001", "10")
	require.NoError(t, s.PutItem(ctx, tabletest.Spec.Name, item))

	key := itemKey(tabletest.Spec.Name, "ABC_123_45670001", "ABC_123_4567")
	value, closer, err := s.db.Get(key)
	require.NoError(t, err)
	corrupted := append([]byte(nil), value...)
	require.NoError(t, closer.Close())

	corrupted[len(corrupted)-2] ^= 0xFF
	require.NoError(t, s.db.Set(key, corrupted, pebble.Sync))

	_, err = s.Scan(ctx, tabletest.Spec.Name)
	assert.ErrorIs(t, err, ErrCorruptItem)

	_, err = s.Query(ctx, tabletest.Spec.Name, "PrimKey", "ABC_123_45670001")
	assert.ErrorIs(t, err, ErrCorruptItem)
}

func TestStore_ScanHonoursCancellation(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateTable(context.Background(), tabletest.Spec))
	require.NoError(t, s.PutItem(context.Background(), tabletest.Spec.Name, tabletest.Item("ABC_123_4567", "0001", "1")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Scan(ctx, tabletest.Spec.Name)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUpperBound(t *testing.T) {
	assert.Equal(t, []byte("items/t0"), upperBound([]byte("items/t/")))
	assert.Equal(t, []byte("a\x01"), upperBound([]byte("a\x00")))
	assert.Equal(t, []byte("b"), upperBound([]byte("a\xff")))
	assert.Nil(t, upperBound([]byte("\xff\xff")))
}
