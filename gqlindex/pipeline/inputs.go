package pipeline

import (
	"fmt"
	"maps"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/acksell/ddbkeys/dynamodb/keycond"
	"github.com/acksell/ddbkeys/gqlindex/deltasync"
)

// QueryInput renders a Query stash as a DynamoDB query.
func QueryInput(tableName string, s *Stash, limit int32) (*dynamodb.QueryInput, error) {
	if s.Query == nil || s.Query.Operation != deltasync.OperationQuery {
		return nil, fmt.Errorf("stash of %q holds no key condition", tableName)
	}
	filter, err := keycond.Filter(s.Filter)
	if err != nil {
		return nil, err
	}
	q := keycond.Query{
		TableName:      tableName,
		IndexName:      s.Query.IndexName,
		PartitionKey:   s.Query.PartitionKey,
		PartitionValue: s.Query.PartitionValue,
		SortKey:        s.Query.SortKey,
		Filter:         filter,
		Descending:     s.Query.Descending,
		Limit:          limit,
	}
	if s.Query.Sort != nil {
		q.Sort, err = s.Query.Sort.Strategy()
		if err != nil {
			return nil, err
		}
	}
	return q.Input()
}

// ScanInput renders a Scan stash, or a request that never set a key
// condition, as a DynamoDB scan.
func ScanInput(tableName string, s *Stash, limit int32) (*dynamodb.ScanInput, error) {
	if s.Query != nil && s.Query.Operation != deltasync.OperationScan {
		return nil, fmt.Errorf("stash of %q holds a key condition", tableName)
	}
	filter, err := keycond.Filter(s.Filter)
	if err != nil {
		return nil, err
	}
	scan := keycond.Scan{TableName: tableName, Filter: filter, Limit: limit}
	if s.Query != nil {
		scan.IndexName = s.Query.IndexName
	}
	return scan.Input()
}

func GetItemInput(tableName string, s *Stash) (*dynamodb.GetItemInput, error) {
	if s.Metadata.ModelObjectKey == nil {
		return nil, fmt.Errorf("stash of %q holds no model object key", tableName)
	}
	return &dynamodb.GetItemInput{
		TableName: aws.String(tableName),
		Key:       s.Metadata.ModelObjectKey,
	}, nil
}

func DeleteItemInput(tableName string, s *Stash) (*dynamodb.DeleteItemInput, error) {
	if s.Metadata.ModelObjectKey == nil {
		return nil, fmt.Errorf("stash of %q holds no model object key", tableName)
	}
	return &dynamodb.DeleteItemInput{
		TableName: aws.String(tableName),
		Key:       s.Metadata.ModelObjectKey,
	}, nil
}

// PutItemInput writes the create input as a new item. The put fails when an
// item with the same key already exists.
func PutItemInput(tableName string, req *Request) (*dynamodb.PutItemInput, error) {
	if req.Stash.Metadata.ModelObjectKey == nil {
		return nil, fmt.Errorf("stash of %q holds no model object key", tableName)
	}
	in, err := input(req)
	if err != nil {
		return nil, err
	}
	item, err := attributevalue.MarshalMap(in)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item: %w", err)
	}
	// key attributes come from the keyers
	maps.Copy(item, req.Stash.Metadata.ModelObjectKey)
	var cond expression.ConditionBuilder
	for i, k := range keycond.SortedKeys(req.Stash.Metadata.ModelObjectKey) {
		c := expression.AttributeNotExists(expression.Name(k))
		if i == 0 {
			cond = c
			continue
		}
		cond = cond.And(c)
	}
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build put condition: %w", err)
	}
	return &dynamodb.PutItemInput{
		TableName:                aws.String(tableName),
		Item:                     item,
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	}, nil
}
