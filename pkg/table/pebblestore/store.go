// Package pebblestore implements table.Store on a local pebble database.
//
// Table schemas live under "tables/<name>" and items under
// "items/<name>/<partition>\x00<sort>", so a partition query is a single
// prefix scan. Item values are CRC32-framed JSON attribute maps.
package pebblestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"go.uber.org/zap"

	"github.com/ssargent/minewatch/pkg/codec"
	"github.com/ssargent/minewatch/pkg/table"
)

// ErrCorruptItem is returned when a stored item fails its integrity check
var ErrCorruptItem = errors.New("corrupt item")

const (
	tablesPrefix = "tables/"
	itemsPrefix  = "items/"
)

// Config holds configuration for the pebble store
type Config struct {
	DataDir  string // Directory for pebble files, ignored when InMemory is set
	InMemory bool   // Keep everything in memory (tests, dry runs)
	Sync     bool   // fsync every write
}

// Store is a table.Store backed by pebble
type Store struct {
	db        *pebble.DB
	writeOpts *pebble.WriteOptions
	logger    *zap.Logger

	// ddl serializes table creation/deletion against item operations
	ddl sync.RWMutex
}

var _ table.Store = (*Store)(nil)

// Open opens or creates a pebble store
func Open(cfg Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := &pebble.Options{}
	dir := cfg.DataDir
	if cfg.InMemory {
		opts.FS = vfs.NewMem()
		dir = ""
	} else if dir == "" {
		return nil, errors.New("pebble store requires a data directory")
	}

	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %q: %w", dir, err)
	}

	writeOpts := pebble.NoSync
	if cfg.Sync {
		writeOpts = pebble.Sync
	}

	logger.Info("opened pebble table store", zap.String("data_dir", dir), zap.Bool("in_memory", cfg.InMemory))
	return &Store{db: db, writeOpts: writeOpts, logger: logger}, nil
}

// CreateTable registers a table schema
func (s *Store) CreateTable(ctx context.Context, spec table.TableSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	s.ddl.Lock()
	defer s.ddl.Unlock()

	if _, err := s.loadSpec(spec.Name); err == nil {
		return fmt.Errorf("%w: %s", table.ErrTableExists, spec.Name)
	} else if !errors.Is(err, table.ErrTableNotFound) {
		return err
	}

	data, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("failed to marshal table spec: %w", err)
	}
	if err := s.db.Set(tableKey(spec.Name), data, s.writeOpts); err != nil {
		return fmt.Errorf("failed to store table spec: %w", err)
	}

	s.logger.Info("created table", zap.String("table", spec.Name))
	return nil
}

// DeleteTable drops a table and all of its items
func (s *Store) DeleteTable(ctx context.Context, name string) error {
	if err := table.ValidateTableName(name); err != nil {
		return err
	}

	s.ddl.Lock()
	defer s.ddl.Unlock()

	if _, err := s.loadSpec(name); err != nil {
		return err
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	prefix := itemPrefix(name)
	if err := batch.DeleteRange(prefix, upperBound(prefix), nil); err != nil {
		return fmt.Errorf("failed to delete items of %s: %w", name, err)
	}
	if err := batch.Delete(tableKey(name), nil); err != nil {
		return fmt.Errorf("failed to delete table spec %s: %w", name, err)
	}
	if err := batch.Commit(s.writeOpts); err != nil {
		return fmt.Errorf("failed to commit table deletion: %w", err)
	}

	s.logger.Info("deleted table", zap.String("table", name))
	return nil
}

// ListTables returns the table names in lexical order
func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	s.ddl.RLock()
	defer s.ddl.RUnlock()

	var names []string
	err := s.scanPrefix([]byte(tablesPrefix), func(key, _ []byte) error {
		names = append(names, string(key[len(tablesPrefix):]))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// TableExists reports whether a table has been created
func (s *Store) TableExists(ctx context.Context, name string) (bool, error) {
	s.ddl.RLock()
	defer s.ddl.RUnlock()

	_, err := s.loadSpec(name)
	if errors.Is(err, table.ErrTableNotFound) {
		return false, nil
	}
	return err == nil, err
}

// PutItem stores an item, replacing any item with the same key
func (s *Store) PutItem(ctx context.Context, tableName string, item codec.AttributeMap) error {
	s.ddl.RLock()
	defer s.ddl.RUnlock()

	spec, err := s.loadSpec(tableName)
	if err != nil {
		return err
	}
	pk, sk, err := spec.KeyOf(item)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}
	return s.db.Set(itemKey(tableName, pk, sk), encodeEnvelope(payload), s.writeOpts)
}

// Scan returns every item in the table, ordered by key
func (s *Store) Scan(ctx context.Context, tableName string) ([]codec.AttributeMap, error) {
	s.ddl.RLock()
	defer s.ddl.RUnlock()

	if _, err := s.loadSpec(tableName); err != nil {
		return nil, err
	}
	return s.collect(ctx, itemPrefix(tableName))
}

// Query returns the items whose partition key equals keyValue
func (s *Store) Query(ctx context.Context, tableName, keyField, keyValue string) ([]codec.AttributeMap, error) {
	s.ddl.RLock()
	defer s.ddl.RUnlock()

	spec, err := s.loadSpec(tableName)
	if err != nil {
		return nil, err
	}
	if keyField != spec.PartitionKey {
		return nil, fmt.Errorf("%w: %s is not the partition key of %s", table.ErrUnsupportedQuery, keyField, tableName)
	}
	return s.collect(ctx, partitionPrefix(tableName, keyValue))
}

// DeleteItem removes the item with the given key. Deleting a missing item is not an error.
func (s *Store) DeleteItem(ctx context.Context, tableName string, key codec.AttributeMap) error {
	s.ddl.RLock()
	defer s.ddl.RUnlock()

	spec, err := s.loadSpec(tableName)
	if err != nil {
		return err
	}
	pk, sk, err := spec.KeyOf(key)
	if err != nil {
		return err
	}
	return s.db.Delete(itemKey(tableName, pk, sk), s.writeOpts)
}

// Close flushes and closes the database
func (s *Store) Close() error {
	s.logger.Info("closing pebble table store")
	return s.db.Close()
}

func (s *Store) loadSpec(name string) (table.TableSpec, error) {
	var spec table.TableSpec
	if err := table.ValidateTableName(name); err != nil {
		return spec, err
	}

	data, closer, err := s.db.Get(tableKey(name))
	if errors.Is(err, pebble.ErrNotFound) {
		return spec, fmt.Errorf("%w: %s", table.ErrTableNotFound, name)
	}
	if err != nil {
		return spec, fmt.Errorf("failed to read table spec %s: %w", name, err)
	}
	defer closer.Close()

	if err := json.Unmarshal(data, &spec); err != nil {
		return spec, fmt.Errorf("%w: table spec %s: %v", ErrCorruptItem, name, err)
	}
	return spec, nil
}

func (s *Store) collect(ctx context.Context, prefix []byte) ([]codec.AttributeMap, error) {
	items := []codec.AttributeMap{}
	err := s.scanPrefix(prefix, func(key, value []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		env, err := decodeEnvelope(value)
		if err != nil {
			return fmt.Errorf("item %q: %w", key, err)
		}
		var item codec.AttributeMap
		if err := json.Unmarshal(env.Payload, &item); err != nil {
			return fmt.Errorf("%w: item %q: %v", ErrCorruptItem, key, err)
		}
		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) scanPrefix(prefix []byte, fn func(key, value []byte) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return fmt.Errorf("failed to open iterator: %w", err)
	}

	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			iter.Close()
			return err
		}
	}
	if err := iter.Error(); err != nil {
		iter.Close()
		return err
	}
	return iter.Close()
}

func tableKey(name string) []byte {
	return []byte(tablesPrefix + name)
}

func itemPrefix(tableName string) []byte {
	return []byte(itemsPrefix + tableName + "/")
}

func partitionPrefix(tableName, pk string) []byte {
	return []byte(itemsPrefix + tableName + "/" + pk + "\x00")
}

func itemKey(tableName, pk, sk string) []byte {
	return []byte(itemsPrefix + tableName + "/" + pk + "\x00" + sk)
}

// upperBound returns the smallest key greater than every key with the prefix
func upperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
