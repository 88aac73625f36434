package table

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ssargent/minewatch/pkg/codec"
)

// DefaultPartitionKey is the attribute holding a reading's unique key
const DefaultPartitionKey = "PrimKey"

// Readings stores WorkerReadings in one table of a Store
type Readings struct {
	store  Store
	codec  *codec.ReadingCodec
	spec   TableSpec
	logger *zap.Logger
}

// ReadingsOption configures a Readings repository
type ReadingsOption func(*Readings)

// WithPartitionKey overrides the partition key attribute name
func WithPartitionKey(name string) ReadingsOption {
	return func(r *Readings) {
		r.spec.PartitionKey = name
	}
}

// WithLogger sets the repository logger
func WithLogger(logger *zap.Logger) ReadingsOption {
	return func(r *Readings) {
		r.logger = logger
	}
}

// NewReadings creates a repository over the named table. The table is keyed by
// the reading's unique key and sorted by GroundNum.
func NewReadings(store Store, c *codec.ReadingCodec, tableName string, opts ...ReadingsOption) *Readings {
	r := &Readings{
		store: store,
		codec: c,
		spec: TableSpec{
			Name:         tableName,
			PartitionKey: DefaultPartitionKey,
			SortKey:      codec.FieldGroundNum,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Spec returns the table schema the repository expects
func (r *Readings) Spec() TableSpec {
	return r.spec
}

// EnsureTable creates the table if it does not exist yet
func (r *Readings) EnsureTable(ctx context.Context) error {
	exists, err := r.store.TableExists(ctx, r.spec.Name)
	if err != nil {
		return fmt.Errorf("failed to check table %s: %w", r.spec.Name, err)
	}
	if exists {
		return nil
	}

	if err := r.store.CreateTable(ctx, r.spec); err != nil && !errors.Is(err, ErrTableExists) {
		return fmt.Errorf("failed to create table %s: %w", r.spec.Name, err)
	}
	r.logger.Info("created table",
		zap.String("table", r.spec.Name),
		zap.String("partition_key", r.spec.PartitionKey),
		zap.String("sort_key", r.spec.SortKey))
	return nil
}

// Insert stores a reading together with its partition key attribute
func (r *Readings) Insert(ctx context.Context, reading codec.WorkerReading) error {
	item := r.codec.EncodeAttributes(reading)
	item[r.spec.PartitionKey] = codec.StringValue(reading.UniqueKey())

	if err := r.store.PutItem(ctx, r.spec.Name, item); err != nil {
		return fmt.Errorf("failed to insert reading %s: %w", reading.UniqueKey(), err)
	}
	r.logger.Debug("inserted reading", zap.String("table", r.spec.Name), zap.String("key", reading.UniqueKey()))
	return nil
}

// All returns every reading in the table
func (r *Readings) All(ctx context.Context) ([]codec.WorkerReading, error) {
	items, err := r.store.Scan(ctx, r.spec.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", r.spec.Name, err)
	}
	return r.decode(items)
}

// Find returns the readings stored under a unique key
func (r *Readings) Find(ctx context.Context, uniqueKey string) ([]codec.WorkerReading, error) {
	items, err := r.store.Query(ctx, r.spec.Name, r.spec.PartitionKey, uniqueKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s for %s: %w", r.spec.Name, uniqueKey, err)
	}
	return r.decode(items)
}

// Delete removes the item stored for the given unique key and ground number
func (r *Readings) Delete(ctx context.Context, uniqueKey, groundNum string) error {
	key := codec.AttributeMap{
		r.spec.PartitionKey: codec.StringValue(uniqueKey),
	}
	if r.spec.SortKey != "" {
		key[r.spec.SortKey] = codec.StringValue(groundNum)
	}

	if err := r.store.DeleteItem(ctx, r.spec.Name, key); err != nil {
		return fmt.Errorf("failed to delete reading %s: %w", uniqueKey, err)
	}
	r.logger.Debug("deleted reading", zap.String("table", r.spec.Name), zap.String("key", uniqueKey))
	return nil
}

func (r *Readings) decode(items []codec.AttributeMap) ([]codec.WorkerReading, error) {
	readings := make([]codec.WorkerReading, 0, len(items))
	for _, item := range items {
		reading, err := r.codec.DecodeAttributes(item)
		if err != nil {
			return nil, err
		}
		readings = append(readings, reading)
	}
	return readings, nil
}
