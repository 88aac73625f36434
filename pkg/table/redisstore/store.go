// Package redisstore implements table.Store on Redis.
//
// Layout, under a configurable key prefix:
//
//	<prefix>:tables              hash  table name -> JSON table spec
//	<prefix>:items:<table>       hash  item key -> JSON attribute map
//	<prefix>:pk:<table>:<pk>     set   item keys in one partition
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/ssargent/minewatch/pkg/codec"
	"github.com/ssargent/minewatch/pkg/table"
)

// DefaultPrefix namespaces all keys written by the store
const DefaultPrefix = "minewatch"

// Config holds configuration for the Redis store
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Store is a table.Store backed by Redis
type Store struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

var _ table.Store = (*Store)(nil)

// New connects to Redis and verifies the connection
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return NewWithClient(client, cfg.Prefix, logger), nil
}

// NewWithClient wraps an existing client
func NewWithClient(client *redis.Client, prefix string, logger *zap.Logger) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{client: client, prefix: prefix, logger: logger}
}

// CreateTable registers a table schema
func (s *Store) CreateTable(ctx context.Context, spec table.TableSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("failed to marshal table spec: %w", err)
	}

	created, err := s.client.HSetNX(ctx, s.tablesKey(), spec.Name, data).Result()
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", spec.Name, err)
	}
	if !created {
		return fmt.Errorf("%w: %s", table.ErrTableExists, spec.Name)
	}

	s.logger.Info("created table", zap.String("table", spec.Name))
	return nil
}

// DeleteTable drops a table, its items and its partition indexes
func (s *Store) DeleteTable(ctx context.Context, name string) error {
	spec, err := s.loadSpec(ctx, name)
	if err != nil {
		return err
	}

	fields, err := s.client.HKeys(ctx, s.itemsKey(name)).Result()
	if err != nil {
		return fmt.Errorf("failed to list items of %s: %w", name, err)
	}

	partitions := make(map[string]struct{})
	for _, field := range fields {
		pk, _ := splitItemKey(field)
		partitions[pk] = struct{}{}
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for pk := range partitions {
			pipe.Del(ctx, s.partitionKey(spec.Name, pk))
		}
		pipe.Del(ctx, s.itemsKey(spec.Name))
		pipe.HDel(ctx, s.tablesKey(), spec.Name)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete table %s: %w", name, err)
	}

	s.logger.Info("deleted table", zap.String("table", name), zap.Int("items", len(fields)))
	return nil
}

// ListTables returns the table names in lexical order
func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	names, err := s.client.HKeys(ctx, s.tablesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// TableExists reports whether a table has been created
func (s *Store) TableExists(ctx context.Context, name string) (bool, error) {
	if err := table.ValidateTableName(name); err != nil {
		return false, err
	}
	return s.client.HExists(ctx, s.tablesKey(), name).Result()
}

// PutItem stores an item, replacing any item with the same key
func (s *Store) PutItem(ctx context.Context, tableName string, item codec.AttributeMap) error {
	spec, err := s.loadSpec(ctx, tableName)
	if err != nil {
		return err
	}
	pk, sk, err := spec.KeyOf(item)
	if err != nil {
		return err
	}

	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	field := itemKey(pk, sk)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.itemsKey(tableName), field, data)
		pipe.SAdd(ctx, s.partitionKey(tableName, pk), field)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to put item into %s: %w", tableName, err)
	}
	return nil
}

// Scan returns every item in the table, ordered by key
func (s *Store) Scan(ctx context.Context, tableName string) ([]codec.AttributeMap, error) {
	if _, err := s.loadSpec(ctx, tableName); err != nil {
		return nil, err
	}

	raw, err := s.client.HGetAll(ctx, s.itemsKey(tableName)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", tableName, err)
	}

	fields := make([]string, 0, len(raw))
	for field := range raw {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	items := make([]codec.AttributeMap, 0, len(fields))
	for _, field := range fields {
		item, err := decodeItem(field, raw[field])
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Query returns the items whose partition key equals keyValue
func (s *Store) Query(ctx context.Context, tableName, keyField, keyValue string) ([]codec.AttributeMap, error) {
	spec, err := s.loadSpec(ctx, tableName)
	if err != nil {
		return nil, err
	}
	if keyField != spec.PartitionKey {
		return nil, fmt.Errorf("%w: %s is not the partition key of %s", table.ErrUnsupportedQuery, keyField, tableName)
	}

	fields, err := s.client.SMembers(ctx, s.partitionKey(tableName, keyValue)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read partition %s: %w", keyValue, err)
	}
	items := []codec.AttributeMap{}
	if len(fields) == 0 {
		return items, nil
	}
	sort.Strings(fields)

	values, err := s.client.HMGet(ctx, s.itemsKey(tableName), fields...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read items of partition %s: %w", keyValue, err)
	}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// index entry outlived its item
			continue
		}
		item, err := decodeItem(fields[i], raw)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// DeleteItem removes the item with the given key. Deleting a missing item is not an error.
func (s *Store) DeleteItem(ctx context.Context, tableName string, key codec.AttributeMap) error {
	spec, err := s.loadSpec(ctx, tableName)
	if err != nil {
		return err
	}
	pk, sk, err := spec.KeyOf(key)
	if err != nil {
		return err
	}

	field := itemKey(pk, sk)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, s.itemsKey(tableName), field)
		pipe.SRem(ctx, s.partitionKey(tableName, pk), field)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete item from %s: %w", tableName, err)
	}
	return nil
}

// Close closes the Redis client
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) loadSpec(ctx context.Context, name string) (table.TableSpec, error) {
	var spec table.TableSpec
	if err := table.ValidateTableName(name); err != nil {
		return spec, err
	}

	data, err := s.client.HGet(ctx, s.tablesKey(), name).Bytes()
	if errors.Is(err, redis.Nil) {
		return spec, fmt.Errorf("%w: %s", table.ErrTableNotFound, name)
	}
	if err != nil {
		return spec, fmt.Errorf("failed to read table spec %s: %w", name, err)
	}
	if err := json.Unmarshal(data, &spec); err != nil {
		return spec, fmt.Errorf("invalid table spec %s: %w", name, err)
	}
	return spec, nil
}

func (s *Store) tablesKey() string {
	return s.prefix + ":tables"
}

func (s *Store) itemsKey(tableName string) string {
	return s.prefix + ":items:" + tableName
}

func (s *Store) partitionKey(tableName, pk string) string {
	return s.prefix + ":pk:" + tableName + ":" + pk
}

func itemKey(pk, sk string) string {
	return pk + "\x00" + sk
}

func splitItemKey(field string) (pk, sk string) {
	for i := 0; i < len(field); i++ {
		if field[i] == 0 {
			return field[:i], field[i+1:]
		}
	}
	return field, ""
}

func decodeItem(field, raw string) (codec.AttributeMap, error) {
	var item codec.AttributeMap
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return nil, fmt.Errorf("invalid item %q: %w", field, err)
	}
	return item, nil
}
