// Package ddbiface provides the interfaces for the DynamoDB client operations
// used by this module. They are satisfied by the AWS SDK v2 *dynamodb.Client,
// and by in-memory fakes in tests.
package ddbiface

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// TableAdmin is the subset of *dynamodb.Client needed to provision tables.
// It mirrors the method signatures of the AWS SDK v2 client.
type TableAdmin interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

var _ TableAdmin = (*dynamodb.Client)(nil)
