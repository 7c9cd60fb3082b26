package table

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/acksell/ddbkeys/dynamodb/ddbiface"
)

// Ensure creates the table unless a table with the same name already exists.
// It reports whether the table was created. Existing tables are not compared
// against the definition.
func Ensure(ctx context.Context, client ddbiface.TableAdmin, def TableDefinition) (bool, error) {
	_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(def.Name)})
	if err == nil {
		return false, nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return false, fmt.Errorf("describe table %q: %w", def.Name, err)
	}
	if _, err := client.CreateTable(ctx, def.CreateTableInput()); err != nil {
		return false, fmt.Errorf("create table %q: %w", def.Name, err)
	}
	return true, nil
}
