// Package table defines the key-value table store readings are persisted in,
// and the repository that maps readings onto it.
package table

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ssargent/minewatch/pkg/codec"
)

// Errors
var (
	ErrTableNotFound     = errors.New("table not found")
	ErrTableExists       = errors.New("table already exists")
	ErrInvalidTableName  = errors.New("invalid table name")
	ErrMissingKey        = errors.New("item is missing a key attribute")
	ErrUnsupportedQuery  = errors.New("query is only supported on the partition key")
	ErrInvalidPrimaryKey = errors.New("invalid primary key")
)

// TableSpec describes a table's key schema. SortKey is optional.
type TableSpec struct {
	Name         string `json:"name"`
	PartitionKey string `json:"partition_key"`
	SortKey      string `json:"sort_key,omitempty"`
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,255}$`)

// Validate checks the table name and key attribute names
func (s TableSpec) Validate() error {
	if err := ValidateTableName(s.Name); err != nil {
		return err
	}
	if s.PartitionKey == "" {
		return fmt.Errorf("%w: partition key name is required", ErrInvalidPrimaryKey)
	}
	if s.SortKey == s.PartitionKey {
		return fmt.Errorf("%w: sort key must differ from partition key", ErrInvalidPrimaryKey)
	}
	return nil
}

// KeyOf extracts the partition and sort key values from an item.
// Key values must be non-empty strings without NUL bytes.
func (s TableSpec) KeyOf(item codec.AttributeMap) (pk, sk string, err error) {
	pk, err = keyAttr(item, s.PartitionKey)
	if err != nil {
		return "", "", err
	}
	if s.SortKey != "" {
		sk, err = keyAttr(item, s.SortKey)
		if err != nil {
			return "", "", err
		}
	}
	return pk, sk, nil
}

func keyAttr(item codec.AttributeMap, name string) (string, error) {
	v, ok := item.StringAttr(name)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingKey, name)
	}
	if strings.ContainsRune(v, 0) {
		return "", fmt.Errorf("%w: %s contains a NUL byte", ErrInvalidPrimaryKey, name)
	}
	return v, nil
}

// ValidateTableName applies DynamoDB naming rules so every backend accepts the same names
func ValidateTableName(name string) error {
	if !tableNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidTableName, name)
	}
	return nil
}

// Store is a key-value table store holding attribute-map items
type Store interface {
	CreateTable(ctx context.Context, spec TableSpec) error
	DeleteTable(ctx context.Context, name string) error
	ListTables(ctx context.Context) ([]string, error)
	TableExists(ctx context.Context, name string) (bool, error)

	PutItem(ctx context.Context, table string, item codec.AttributeMap) error
	Scan(ctx context.Context, table string) ([]codec.AttributeMap, error)
	Query(ctx context.Context, table, keyField, keyValue string) ([]codec.AttributeMap, error)
	DeleteItem(ctx context.Context, table string, key codec.AttributeMap) error

	Close() error
}
