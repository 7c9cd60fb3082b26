package keycond

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// Query describes a key-condition query against a table or one of its indexes.
type Query struct {
	TableName      string
	IndexName      string // empty for the base table
	PartitionKey   string
	PartitionValue any
	SortKey        string
	Sort           SortKeyStrategy // nil queries the whole partition
	Filter         *expression.ConditionBuilder
	Descending     bool
	Limit          int32
}

// KeyCondition builds the key condition for the query.
func (q Query) KeyCondition() expression.KeyConditionBuilder {
	cond := expression.KeyEqual(expression.Key(q.PartitionKey), expression.Value(q.PartitionValue))
	if q.Sort != nil {
		cond = expression.KeyAnd(cond, q.Sort(q.SortKey))
	}
	return cond
}

// Input renders the query as a QueryInput.
func (q Query) Input() (*dynamodb.QueryInput, error) {
	if q.PartitionKey == "" {
		return nil, fmt.Errorf("query on %q requires a partition key", q.TableName)
	}
	if q.Sort != nil && q.SortKey == "" {
		return nil, fmt.Errorf("query on %q has a sort condition but no sort key", q.TableName)
	}
	builder := expression.NewBuilder().WithKeyCondition(q.KeyCondition())
	if q.Filter != nil {
		builder = builder.WithFilter(*q.Filter)
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query expression: %w", err)
	}
	in := &dynamodb.QueryInput{
		TableName:                 aws.String(q.TableName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(!q.Descending),
	}
	if q.IndexName != "" {
		in.IndexName = aws.String(q.IndexName)
	}
	if q.Limit > 0 {
		in.Limit = aws.Int32(q.Limit)
	}
	return in, nil
}

// Scan describes a full scan of a table or index with an optional filter.
type Scan struct {
	TableName string
	IndexName string
	Filter    *expression.ConditionBuilder
	Limit     int32
}

// Input renders the scan as a ScanInput.
func (s Scan) Input() (*dynamodb.ScanInput, error) {
	in := &dynamodb.ScanInput{
		TableName: aws.String(s.TableName),
	}
	if s.IndexName != "" {
		in.IndexName = aws.String(s.IndexName)
	}
	if s.Limit > 0 {
		in.Limit = aws.Int32(s.Limit)
	}
	if s.Filter == nil {
		return in, nil
	}
	expr, err := expression.NewBuilder().WithFilter(*s.Filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build scan expression: %w", err)
	}
	in.FilterExpression = expr.Filter()
	in.ExpressionAttributeNames = expr.Names()
	in.ExpressionAttributeValues = expr.Values()
	return in, nil
}
