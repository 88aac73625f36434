// Package tabletest holds the behaviour every table.Store backend must share
package tabletest

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/minewatch/pkg/codec"
	"github.com/ssargent/minewatch/pkg/table"
)

// NewStoreFunc returns a fresh, empty store; cleanup is the caller's t.Cleanup business
type NewStoreFunc func(t *testing.T) table.Store

// Spec is the schema the suite creates its tables with
var Spec = table.TableSpec{Name: "Readings", PartitionKey: "PrimKey", SortKey: "GroundNum"}

// Item builds a stored reading item keyed like the readings repository keys it
func Item(groundNum, helmetNum, gas string) codec.AttributeMap {
	return codec.AttributeMap{
		"PrimKey":   codec.StringValue(groundNum + helmetNum),
		"GroundNum": codec.StringValue(groundNum),
		"HelmetNum": codec.StringValue(helmetNum),
		"GasLevel":  codec.NumberValue(gas),
	}
}

// Run exercises a Store implementation
func Run(t *testing.T, newStore NewStoreFunc) {
	ctx := context.Background()

	t.Run("create and list tables", func(t *testing.T) {
		s := newStore(t)

		exists, err := s.TableExists(ctx, Spec.Name)
		require.NoError(t, err)
		assert.False(t, exists)

		require.NoError(t, s.CreateTable(ctx, Spec))
		require.NoError(t, s.CreateTable(ctx, table.TableSpec{Name: "Archive", PartitionKey: "id"}))

		exists, err = s.TableExists(ctx, Spec.Name)
		require.NoError(t, err)
		assert.True(t, exists)

		names, err := s.ListTables(ctx)
		require.NoError(t, err)
		sort.Strings(names)
		assert.Equal(t, []string{"Archive", "Readings"}, names)

		err = s.CreateTable(ctx, Spec)
		assert.ErrorIs(t, err, table.ErrTableExists)
	})

	t.Run("invalid table specs", func(t *testing.T) {
		s := newStore(t)

		assert.ErrorIs(t, s.CreateTable(ctx, table.TableSpec{Name: "x", PartitionKey: "pk"}), table.ErrInvalidTableName)
		assert.ErrorIs(t, s.CreateTable(ctx, table.TableSpec{Name: "bad/name", PartitionKey: "pk"}), table.ErrInvalidTableName)
		assert.ErrorIs(t, s.CreateTable(ctx, table.TableSpec{Name: "Readings"}), table.ErrInvalidPrimaryKey)
	})

	t.Run("put scan and query", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateTable(ctx, Spec))

		a := Item("ABC_123_4567", "0001", "10")
		b := Item("XYZ_999_0000", "0002", "20")
		c := Item("ABC_123_4567", "0003", "30")
		for _, item := range []codec.AttributeMap{a, b, c} {
			require.NoError(t, s.PutItem(ctx, Spec.Name, item))
		}

		items, err := s.Scan(ctx, Spec.Name)
		require.NoError(t, err)
		assert.ElementsMatch(t, []codec.AttributeMap{a, b, c}, items)

		found, err := s.Query(ctx, Spec.Name, "PrimKey", "ABC_123_45670003")
		require.NoError(t, err)
		assert.Equal(t, []codec.AttributeMap{c}, found)

		found, err = s.Query(ctx, Spec.Name, "PrimKey", "nothing-here")
		require.NoError(t, err)
		assert.Empty(t, found)

		_, err = s.Query(ctx, Spec.Name, "HelmetNum", "0001")
		assert.ErrorIs(t, err, table.ErrUnsupportedQuery)
	})

	t.Run("query does not match key prefixes", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateTable(ctx, Spec))

		short := Item("ABC_123_4567", "0001", "1")
		long := Item("ABC_123_4567", "00011", "2")
		require.NoError(t, s.PutItem(ctx, Spec.Name, short))
		require.NoError(t, s.PutItem(ctx, Spec.Name, long))

		found, err := s.Query(ctx, Spec.Name, "PrimKey", "ABC_123_45670001")
		require.NoError(t, err)
		assert.Equal(t, []codec.AttributeMap{short}, found)
	})

	t.Run("put replaces item with same key", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateTable(ctx, Spec))

		require.NoError(t, s.PutItem(ctx, Spec.Name, Item("ABC_123_4567", "0001", "10")))
		updated := Item("ABC_123_4567", "0001", "99")
		require.NoError(t, s.PutItem(ctx, Spec.Name, updated))

		items, err := s.Scan(ctx, Spec.Name)
		require.NoError(t, err)
		assert.Equal(t, []codec.AttributeMap{updated}, items)
	})

	t.Run("put requires key attributes", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateTable(ctx, Spec))

		item := Item("ABC_123_4567", "0001", "10")
		delete(item, "GroundNum")
		assert.ErrorIs(t, s.PutItem(ctx, Spec.Name, item), table.ErrMissingKey)

		item = Item("ABC_123_4567", "0001", "10")
		item["PrimKey"] = codec.NumberValue("1")
		assert.ErrorIs(t, s.PutItem(ctx, Spec.Name, item), table.ErrMissingKey)
	})

	t.Run("delete item", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateTable(ctx, Spec))

		a := Item("ABC_123_4567", "0001", "10")
		b := Item("XYZ_999_0000", "0002", "20")
		require.NoError(t, s.PutItem(ctx, Spec.Name, a))
		require.NoError(t, s.PutItem(ctx, Spec.Name, b))

		key := codec.AttributeMap{"PrimKey": a["PrimKey"], "GroundNum": a["GroundNum"]}
		require.NoError(t, s.DeleteItem(ctx, Spec.Name, key))
		require.NoError(t, s.DeleteItem(ctx, Spec.Name, key), "deleting a missing item is not an error")

		items, err := s.Scan(ctx, Spec.Name)
		require.NoError(t, err)
		assert.Equal(t, []codec.AttributeMap{b}, items)

		assert.ErrorIs(t, s.DeleteItem(ctx, Spec.Name, codec.AttributeMap{"PrimKey": a["PrimKey"]}), table.ErrMissingKey)
	})

	t.Run("delete table drops items", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateTable(ctx, Spec))
		require.NoError(t, s.PutItem(ctx, Spec.Name, Item("ABC_123_4567", "0001", "10")))

		require.NoError(t, s.DeleteTable(ctx, Spec.Name))

		exists, err := s.TableExists(ctx, Spec.Name)
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = s.Scan(ctx, Spec.Name)
		assert.ErrorIs(t, err, table.ErrTableNotFound)

		require.NoError(t, s.CreateTable(ctx, Spec))
		items, err := s.Scan(ctx, Spec.Name)
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("missing table", func(t *testing.T) {
		s := newStore(t)

		assert.ErrorIs(t, s.DeleteTable(ctx, "Missing"), table.ErrTableNotFound)
		assert.ErrorIs(t, s.PutItem(ctx, "Missing", Item("ABC_123_4567", "0001", "1")), table.ErrTableNotFound)
		_, err := s.Scan(ctx, "Missing")
		assert.ErrorIs(t, err, table.ErrTableNotFound)
		_, err = s.Query(ctx, "Missing", "PrimKey", "x")
		assert.ErrorIs(t, err, table.ErrTableNotFound)
	})

	t.Run("tables are isolated", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateTable(ctx, Spec))
		other := table.TableSpec{Name: "Readings2", PartitionKey: "PrimKey", SortKey: "GroundNum"}
		require.NoError(t, s.CreateTable(ctx, other))

		require.NoError(t, s.PutItem(ctx, other.Name, Item("ABC_123_4567", "0001", "1")))

		items, err := s.Scan(ctx, Spec.Name)
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}
