package table_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/minewatch/pkg/codec"
	"github.com/ssargent/minewatch/pkg/pattern"
	"github.com/ssargent/minewatch/pkg/table"
	"github.com/ssargent/minewatch/pkg/table/pebblestore"
)

func newReadings(t *testing.T, opts ...table.ReadingsOption) (*table.Readings, table.Store) {
	t.Helper()

	store, err := pebblestore.Open(pebblestore.Config{InMemory: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	c := codec.NewReadingCodec(pattern.NewSeeded(7))
	return table.NewReadings(store, c, "Readings", opts...), store
}

func TestReadingsEnsureTable(t *testing.T) {
	ctx := context.Background()
	r, store := newReadings(t)

	require.NoError(t, r.EnsureTable(ctx))
	require.NoError(t, r.EnsureTable(ctx), "second call is a no-op")

	names, err := store.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Readings"}, names)
	assert.Equal(t, table.TableSpec{Name: "Readings", PartitionKey: "PrimKey", SortKey: "GroundNum"}, r.Spec())
}

func TestReadingsInsertStoresPartitionKey(t *testing.T) {
	ctx := context.Background()
	r, store := newReadings(t)
	require.NoError(t, r.EnsureTable(ctx))

	reading := codec.WorkerReading{GroundNum: "ABC_123_4567", HelmetNum: "0001", Spo2Level: 95, Temperature: 37, GasLevel: 120, HeartRate: 72}
	require.NoError(t, r.Insert(ctx, reading))

	items, err := store.Scan(ctx, "Readings")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, codec.StringValue("ABC_123_45670001"), items[0]["PrimKey"])
	assert.Equal(t, codec.NumberValue("120"), items[0]["GasLevel"])
}

func TestReadingsAllFindDelete(t *testing.T) {
	ctx := context.Background()
	r, _ := newReadings(t)
	require.NoError(t, r.EnsureTable(ctx))

	a := codec.WorkerReading{GroundNum: "ABC_123_4567", HelmetNum: "0001", Spo2Level: 95}
	b := codec.WorkerReading{GroundNum: "XYZ_987_6543", HelmetNum: "0002", GasLevel: 65000}
	require.NoError(t, r.Insert(ctx, a))
	require.NoError(t, r.Insert(ctx, b))

	all, err := r.All(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []codec.WorkerReading{a, b}, all)

	found, err := r.Find(ctx, b.UniqueKey())
	require.NoError(t, err)
	assert.Equal(t, []codec.WorkerReading{b}, found)

	found, err = r.Find(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, found)

	require.NoError(t, r.Delete(ctx, a.UniqueKey(), a.GroundNum))
	all, err = r.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []codec.WorkerReading{b}, all)
}

func TestReadingsMissingTable(t *testing.T) {
	ctx := context.Background()
	r, _ := newReadings(t)

	_, err := r.All(ctx)
	assert.ErrorIs(t, err, table.ErrTableNotFound)

	err = r.Insert(ctx, codec.WorkerReading{GroundNum: "ABC_123_4567", HelmetNum: "0001"})
	assert.ErrorIs(t, err, table.ErrTableNotFound)
}

func TestReadingsCustomPartitionKey(t *testing.T) {
	ctx := context.Background()
	r, store := newReadings(t, table.WithPartitionKey("WorkerKey"))
	require.NoError(t, r.EnsureTable(ctx))

	reading := codec.WorkerReading{GroundNum: "ABC_123_4567", HelmetNum: "0001"}
	require.NoError(t, r.Insert(ctx, reading))

	items, err := store.Query(ctx, "Readings", "WorkerKey", reading.UniqueKey())
	require.NoError(t, err)
	require.Len(t, items, 1)

	found, err := r.Find(ctx, reading.UniqueKey())
	require.NoError(t, err)
	assert.Equal(t, []codec.WorkerReading{reading}, found)
}

func TestReadingsRejectsUndecodableItems(t *testing.T) {
	ctx := context.Background()
	r, store := newReadings(t)
	require.NoError(t, r.EnsureTable(ctx))

	require.NoError(t, store.PutItem(ctx, "Readings", codec.AttributeMap{
		"PrimKey":   codec.StringValue("ABC_123_45670001"),
		"GroundNum": codec.StringValue("ABC_123_4567"),
		"GasLevel":  codec.NumberValue("70000"),
	}))

	_, err := r.All(ctx)
	var malformed *codec.MalformedAttributeError
	assert.ErrorAs(t, err, &malformed)
}
