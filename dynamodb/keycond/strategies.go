// Package keycond builds DynamoDB key conditions and filters from the
// comparison inputs accepted by generated query fields.
package keycond

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
)

// SortKeyStrategy defines how to filter on the sort key in a range query.
type SortKeyStrategy func(skName string) expression.KeyConditionBuilder

// Equals returns items where the sort key equals the provided value.
func Equals[T any](v T) SortKeyStrategy {
	return func(skName string) expression.KeyConditionBuilder {
		return expression.KeyEqual(expression.Key(skName), expression.Value(v))
	}
}

// BeginsWith returns items where the sort key starts with the provided prefix.
func BeginsWith(prefix string) SortKeyStrategy {
	return func(skName string) expression.KeyConditionBuilder {
		return expression.KeyBeginsWith(expression.Key(skName), prefix)
	}
}

// Between returns items where the sort key is between start and end (inclusive).
func Between[T any](start, end T) SortKeyStrategy {
	return func(skName string) expression.KeyConditionBuilder {
		return expression.KeyBetween(
			expression.Key(skName),
			expression.Value(start),
			expression.Value(end),
		)
	}
}

// GreaterThan returns items where the sort key is greater than the provided value.
func GreaterThan[T any](v T) SortKeyStrategy {
	return func(skName string) expression.KeyConditionBuilder {
		return expression.KeyGreaterThan(expression.Key(skName), expression.Value(v))
	}
}

// GreaterThanOrEqual returns items where the sort key is greater than or equal to the provided value.
func GreaterThanOrEqual[T any](v T) SortKeyStrategy {
	return func(skName string) expression.KeyConditionBuilder {
		return expression.KeyGreaterThanEqual(expression.Key(skName), expression.Value(v))
	}
}

// LessThan returns items where the sort key is less than the provided value.
func LessThan[T any](v T) SortKeyStrategy {
	return func(skName string) expression.KeyConditionBuilder {
		return expression.KeyLessThan(expression.Key(skName), expression.Value(v))
	}
}

// LessThanOrEqual returns items where the sort key is less than or equal to the provided value.
func LessThanOrEqual[T any](v T) SortKeyStrategy {
	return func(skName string) expression.KeyConditionBuilder {
		return expression.KeyLessThanEqual(expression.Key(skName), expression.Value(v))
	}
}

// Op is a comparison operator of a key-condition input.
type Op string

const (
	OpEq         Op = "eq"
	OpLe         Op = "le"
	OpLt         Op = "lt"
	OpGe         Op = "ge"
	OpGt         Op = "gt"
	OpBetween    Op = "between"
	OpBeginsWith Op = "beginsWith"
)

// Ops lists the key-condition operators in the order their input fields are declared.
var Ops = []Op{OpEq, OpLe, OpLt, OpGe, OpGt, OpBetween, OpBeginsWith}

// FromOp returns the strategy for op applied to v. Between expects a two-element slice.
func FromOp(op Op, v any) (SortKeyStrategy, error) {
	switch op {
	case OpEq:
		return Equals(v), nil
	case OpLe:
		return LessThanOrEqual(v), nil
	case OpLt:
		return LessThan(v), nil
	case OpGe:
		return GreaterThanOrEqual(v), nil
	case OpGt:
		return GreaterThan(v), nil
	case OpBeginsWith:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("beginsWith expects a string, got %T", v)
		}
		return BeginsWith(s), nil
	case OpBetween:
		bounds, ok := v.([]any)
		if !ok || len(bounds) != 2 {
			return nil, fmt.Errorf("between expects two values, got %v", v)
		}
		return Between(bounds[0], bounds[1]), nil
	default:
		return nil, fmt.Errorf("unknown key condition operator %q", op)
	}
}

// Condition is a single operator/value pair taken from a key-condition input.
type Condition struct {
	Op    Op
	Value any
}

// ParseCondition reads a key-condition input object such as {"between": [1, 5]}.
// Exactly one operator must be set.
func ParseCondition(input map[string]any) (Condition, error) {
	var found []Condition
	for _, op := range Ops {
		if v, ok := input[string(op)]; ok && v != nil {
			found = append(found, Condition{Op: op, Value: v})
		}
	}
	switch len(found) {
	case 0:
		return Condition{}, fmt.Errorf("key condition has no operator")
	case 1:
		return found[0], nil
	default:
		return Condition{}, fmt.Errorf("key condition has %d operators, expected exactly one", len(found))
	}
}

// Strategy converts the condition to a sort key strategy.
func (c Condition) Strategy() (SortKeyStrategy, error) {
	return FromOp(c.Op, c.Value)
}
