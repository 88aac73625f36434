// Package dynamo implements table.Store on Amazon DynamoDB.
//
// Table schemas are not stored separately; they are read back from the
// table's key schema with DescribeTable.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/ssargent/minewatch/pkg/codec"
	"github.com/ssargent/minewatch/pkg/table"
)

// Provisioned throughput for tables created by the store
const (
	ReadCapacityUnits  = 10
	WriteCapacityUnits = 5
)

// API is the subset of the DynamoDB client the store uses
type API interface {
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DeleteTable(ctx context.Context, in *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	ListTables(ctx context.Context, in *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Config holds configuration for the DynamoDB store
type Config struct {
	Region   string
	Endpoint string // DynamoDB Local or another compatible endpoint

	// WaitForActive bounds how long CreateTable waits for the table to become
	// ACTIVE. Zero returns as soon as the table is requested.
	WaitForActive time.Duration
}

// Store is a table.Store backed by DynamoDB
type Store struct {
	api           API
	waitForActive time.Duration
	logger        *zap.Logger
}

var _ table.Store = (*Store)(nil)

// New loads the default AWS configuration and builds a store on it
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewWithAPI(client, cfg, logger), nil
}

// NewWithAPI builds a store on an existing client
func NewWithAPI(api API, cfg Config, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{api: api, waitForActive: cfg.WaitForActive, logger: logger}
}

// CreateTable creates a table keyed on the spec's partition and sort keys
func (s *Store) CreateTable(ctx context.Context, spec table.TableSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	attrs := []types.AttributeDefinition{
		{AttributeName: aws.String(spec.PartitionKey), AttributeType: types.ScalarAttributeTypeS},
	}
	schema := []types.KeySchemaElement{
		{AttributeName: aws.String(spec.PartitionKey), KeyType: types.KeyTypeHash},
	}
	if spec.SortKey != "" {
		attrs = append(attrs, types.AttributeDefinition{AttributeName: aws.String(spec.SortKey), AttributeType: types.ScalarAttributeTypeS})
		schema = append(schema, types.KeySchemaElement{AttributeName: aws.String(spec.SortKey), KeyType: types.KeyTypeRange})
	}

	_, err := s.api.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:            aws.String(spec.Name),
		AttributeDefinitions: attrs,
		KeySchema:            schema,
		ProvisionedThroughput: &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(ReadCapacityUnits),
			WriteCapacityUnits: aws.Int64(WriteCapacityUnits),
		},
	})
	var inUse *types.ResourceInUseException
	if errors.As(err, &inUse) {
		return fmt.Errorf("%w: %s", table.ErrTableExists, spec.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", spec.Name, err)
	}

	if s.waitForActive > 0 {
		waiter := dynamodb.NewTableExistsWaiter(s.api)
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(spec.Name)}, s.waitForActive); err != nil {
			return fmt.Errorf("table %s did not become active: %w", spec.Name, err)
		}
	}

	s.logger.Info("created table", zap.String("table", spec.Name))
	return nil
}

// DeleteTable drops a table
func (s *Store) DeleteTable(ctx context.Context, name string) error {
	if err := table.ValidateTableName(name); err != nil {
		return err
	}

	_, err := s.api.DeleteTable(ctx, &dynamodb.DeleteTableInput{TableName: aws.String(name)})
	if err != nil {
		return mapTableError(name, err)
	}

	s.logger.Info("deleted table", zap.String("table", name))
	return nil
}

// ListTables returns the table names in lexical order
func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	var names []string
	pager := dynamodb.NewListTablesPaginator(s.api, &dynamodb.ListTablesInput{})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list tables: %w", err)
		}
		names = append(names, page.TableNames...)
	}
	sort.Strings(names)
	return names, nil
}

// TableExists reports whether a table has been created
func (s *Store) TableExists(ctx context.Context, name string) (bool, error) {
	_, err := s.describe(ctx, name)
	if errors.Is(err, table.ErrTableNotFound) {
		return false, nil
	}
	return err == nil, err
}

// PutItem stores an item, replacing any item with the same key
func (s *Store) PutItem(ctx context.Context, tableName string, item codec.AttributeMap) error {
	spec, err := s.describe(ctx, tableName)
	if err != nil {
		return err
	}
	if _, _, err := spec.KeyOf(item); err != nil {
		return err
	}

	av, err := toDynamo(item)
	if err != nil {
		return err
	}
	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(tableName),
		Item:      av,
	})
	if err != nil {
		return mapTableError(tableName, err)
	}
	return nil
}

// Scan returns every item in the table. DynamoDB does not order scans.
func (s *Store) Scan(ctx context.Context, tableName string) ([]codec.AttributeMap, error) {
	spec, err := s.describe(ctx, tableName)
	if err != nil {
		return nil, err
	}

	items := []codec.AttributeMap{}
	pager := dynamodb.NewScanPaginator(s.api, &dynamodb.ScanInput{TableName: aws.String(tableName)})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, mapTableError(tableName, err)
		}
		for _, raw := range page.Items {
			item, err := fromDynamo(spec, raw, s.logger)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
	}
	return items, nil
}

// Query returns the items whose partition key equals keyValue, ordered by sort key
func (s *Store) Query(ctx context.Context, tableName, keyField, keyValue string) ([]codec.AttributeMap, error) {
	spec, err := s.describe(ctx, tableName)
	if err != nil {
		return nil, err
	}
	if keyField != spec.PartitionKey {
		return nil, fmt.Errorf("%w: %s is not the partition key of %s", table.ErrUnsupportedQuery, keyField, tableName)
	}

	items := []codec.AttributeMap{}
	pager := dynamodb.NewQueryPaginator(s.api, &dynamodb.QueryInput{
		TableName:              aws.String(tableName),
		KeyConditionExpression: aws.String("#pk = :pk"),
		ExpressionAttributeNames: map[string]string{
			"#pk": keyField,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: keyValue},
		},
	})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, mapTableError(tableName, err)
		}
		for _, raw := range page.Items {
			item, err := fromDynamo(spec, raw, s.logger)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
	}
	return items, nil
}

// DeleteItem removes the item with the given key. Deleting a missing item is not an error.
func (s *Store) DeleteItem(ctx context.Context, tableName string, key codec.AttributeMap) error {
	spec, err := s.describe(ctx, tableName)
	if err != nil {
		return err
	}
	pk, sk, err := spec.KeyOf(key)
	if err != nil {
		return err
	}

	dk := map[string]types.AttributeValue{
		spec.PartitionKey: &types.AttributeValueMemberS{Value: pk},
	}
	if spec.SortKey != "" {
		dk[spec.SortKey] = &types.AttributeValueMemberS{Value: sk}
	}
	_, err = s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(tableName),
		Key:       dk,
	})
	if err != nil {
		return mapTableError(tableName, err)
	}
	return nil
}

// Close is a no-op; the AWS client holds no resources that need releasing
func (s *Store) Close() error {
	return nil
}

func (s *Store) describe(ctx context.Context, name string) (table.TableSpec, error) {
	spec := table.TableSpec{Name: name}
	if err := table.ValidateTableName(name); err != nil {
		return spec, err
	}

	out, err := s.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
	if err != nil {
		return spec, mapTableError(name, err)
	}
	if out.Table == nil {
		return spec, fmt.Errorf("%w: %s", table.ErrTableNotFound, name)
	}

	for _, el := range out.Table.KeySchema {
		switch el.KeyType {
		case types.KeyTypeHash:
			spec.PartitionKey = aws.ToString(el.AttributeName)
		case types.KeyTypeRange:
			spec.SortKey = aws.ToString(el.AttributeName)
		}
	}
	if spec.PartitionKey == "" {
		return spec, fmt.Errorf("%w: table %s has no hash key", table.ErrInvalidPrimaryKey, name)
	}
	return spec, nil
}

func mapTableError(name string, err error) error {
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %s", table.ErrTableNotFound, name)
	}
	return fmt.Errorf("dynamodb request on %s failed: %w", name, err)
}
