package dynamo

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/ssargent/minewatch/pkg/codec"
	"github.com/ssargent/minewatch/pkg/table"
)

// ErrUnsupportedAttribute is returned for DynamoDB attribute types other than S and N
// where the store cannot do without the value
var ErrUnsupportedAttribute = errors.New("unsupported attribute type")

func toDynamo(item codec.AttributeMap) (map[string]types.AttributeValue, error) {
	out := make(map[string]types.AttributeValue, len(item))
	for name, v := range item {
		switch v := v.(type) {
		case codec.StringValue:
			out[name] = &types.AttributeValueMemberS{Value: string(v)}
		case codec.NumberValue:
			out[name] = &types.AttributeValueMemberN{Value: string(v)}
		default:
			return nil, fmt.Errorf("%w: %s is %T", ErrUnsupportedAttribute, name, v)
		}
	}
	return out, nil
}

// fromDynamo keeps the S and N attributes of an item. Other attribute types
// written by newer producers are skipped, unless they hold a key of spec.
func fromDynamo(spec table.TableSpec, item map[string]types.AttributeValue, logger *zap.Logger) (codec.AttributeMap, error) {
	out := make(codec.AttributeMap, len(item))
	for name, v := range item {
		switch v := v.(type) {
		case *types.AttributeValueMemberS:
			out[name] = codec.StringValue(v.Value)
		case *types.AttributeValueMemberN:
			out[name] = codec.NumberValue(v.Value)
		default:
			if name == spec.PartitionKey || (spec.SortKey != "" && name == spec.SortKey) {
				return nil, fmt.Errorf("%w: key %s is %T", ErrUnsupportedAttribute, name, v)
			}
			logger.Debug("skipping attribute",
				zap.String("table", spec.Name),
				zap.String("attribute", name),
				zap.String("type", fmt.Sprintf("%T", v)))
		}
	}
	return out, nil
}
