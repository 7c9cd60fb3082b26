package table

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type PrimaryKeyDefinition struct {
	PartitionKey KeyDef
	SortKey      KeyDef // zero value means the key has no sort key
}

// HasSortKey reports whether the key definition declares a sort key.
func (k PrimaryKeyDefinition) HasSortKey() bool {
	return !k.SortKey.IsZero()
}

// KeySchema returns the HASH/RANGE key schema elements for this definition.
func (k PrimaryKeyDefinition) KeySchema() []types.KeySchemaElement {
	elems := []types.KeySchemaElement{{
		AttributeName: aws.String(k.PartitionKey.Name),
		KeyType:       types.KeyTypeHash,
	}}
	if k.HasSortKey() {
		elems = append(elems, types.KeySchemaElement{
			AttributeName: aws.String(k.SortKey.Name),
			KeyType:       types.KeyTypeRange,
		})
	}
	return elems
}

type KeyDef struct {
	Name string
	Kind KeyKind
}

func (k KeyDef) IsZero() bool {
	return k.Name == ""
}

type KeyKind string

const (
	KeyKindS KeyKind = "S"
	KeyKindN KeyKind = "N"
	KeyKindB KeyKind = "B"
)

// ScalarAttributeType converts the kind to its DynamoDB attribute definition type.
func (k KeyKind) ScalarAttributeType() types.ScalarAttributeType {
	switch k {
	case KeyKindN:
		return types.ScalarAttributeTypeN
	case KeyKindB:
		return types.ScalarAttributeTypeB
	default:
		return types.ScalarAttributeTypeS
	}
}

type PrimaryKeyValues struct {
	PartitionKey any
	SortKey      any
}

type PrimaryKey struct {
	Definition PrimaryKeyDefinition
	Values     PrimaryKeyValues
}

// DDB marshals the key into the attribute map used by GetItem and DeleteItem.
func (k PrimaryKey) DDB() (map[string]types.AttributeValue, error) {
	pk, err := marshalKey(k.Definition.PartitionKey.Kind, k.Values.PartitionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal partition key of type %T with value %v: %w", k.Values.PartitionKey, k.Values.PartitionKey, err)
	}
	if err := attributeMatchesDefinition(k.Definition.PartitionKey.Kind, pk); err != nil {
		return nil, fmt.Errorf("partition key kind does not match dynamo value: %w", err)
	}
	if !k.Definition.HasSortKey() {
		return map[string]types.AttributeValue{
			k.Definition.PartitionKey.Name: pk,
		}, nil
	}
	if k.Values.SortKey == nil {
		return nil, fmt.Errorf("sort key %q is required but got nil", k.Definition.SortKey.Name)
	}
	sk, err := marshalKey(k.Definition.SortKey.Kind, k.Values.SortKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sort key of type %T with value %v: %w", k.Values.SortKey, k.Values.SortKey, err)
	}
	if err := attributeMatchesDefinition(k.Definition.SortKey.Kind, sk); err != nil {
		return nil, fmt.Errorf("sort key %q kind does not match dynamo value: %w", k.Definition.SortKey.Name, err)
	}
	return map[string]types.AttributeValue{
		k.Definition.PartitionKey.Name: pk,
		k.Definition.SortKey.Name:      sk,
	}, nil
}

// marshalKey keeps numeric strings numeric, since extracted N values are held as
// their string form.
func marshalKey(kind KeyKind, v any) (types.AttributeValue, error) {
	if s, ok := v.(string); ok && kind == KeyKindN {
		return &types.AttributeValueMemberN{Value: s}, nil
	}
	return attributevalue.Marshal(v)
}

func attributeMatchesDefinition(want KeyKind, v types.AttributeValue) error {
	var got KeyKind
	switch v.(type) {
	case *types.AttributeValueMemberS:
		got = KeyKindS
	case *types.AttributeValueMemberN:
		got = KeyKindN
	case *types.AttributeValueMemberB:
		got = KeyKindB
	default:
		return fmt.Errorf("unexpected key attribute type %T", v)
	}
	if got != want {
		return fmt.Errorf("got KeyKind %q want %q", got, want)
	}
	return nil
}
