package keycond

import (
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"golang.org/x/exp/constraints"
)

// Filter translates a model filter input, e.g.
//
//	{"and": [{"status": {"eq": "open"}}, {"priority": {"gt": 2}}]}
//
// into a condition. Keys are visited in sorted order so the same input always
// yields the same expression. It returns nil for an empty filter.
func Filter(input map[string]any) (*expression.ConditionBuilder, error) {
	conds, err := filterConditions(input)
	if err != nil {
		return nil, err
	}
	if len(conds) == 0 {
		return nil, nil
	}
	c := and(conds)
	return &c, nil
}

func filterConditions(input map[string]any) ([]expression.ConditionBuilder, error) {
	var conds []expression.ConditionBuilder
	for _, key := range SortedKeys(input) {
		v := input[key]
		if v == nil {
			continue
		}
		switch key {
		case "and", "or":
			list, ok := v.([]any)
			if !ok {
				return nil, fmt.Errorf("filter %q expects a list, got %T", key, v)
			}
			var group []expression.ConditionBuilder
			for _, item := range list {
				m, ok := item.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("filter %q entries must be objects, got %T", key, item)
				}
				sub, err := filterConditions(m)
				if err != nil {
					return nil, err
				}
				if len(sub) > 0 {
					group = append(group, and(sub))
				}
			}
			if len(group) == 0 {
				continue
			}
			if key == "and" {
				conds = append(conds, and(group))
			} else {
				conds = append(conds, or(group))
			}
		case "not":
			m, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("filter \"not\" expects an object, got %T", v)
			}
			sub, err := filterConditions(m)
			if err != nil {
				return nil, err
			}
			if len(sub) > 0 {
				conds = append(conds, expression.Not(and(sub)))
			}
		default:
			ops, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("filter on %q expects an object of operators, got %T", key, v)
			}
			fieldConds, err := fieldConditions(key, ops)
			if err != nil {
				return nil, err
			}
			conds = append(conds, fieldConds...)
		}
	}
	return conds, nil
}

func fieldConditions(field string, ops map[string]any) ([]expression.ConditionBuilder, error) {
	name := expression.Name(field)
	var conds []expression.ConditionBuilder
	for _, op := range SortedKeys(ops) {
		v := ops[op]
		switch op {
		case "eq":
			conds = append(conds, name.Equal(expression.Value(v)))
		case "ne":
			conds = append(conds, name.NotEqual(expression.Value(v)))
		case "le":
			conds = append(conds, name.LessThanEqual(expression.Value(v)))
		case "lt":
			conds = append(conds, name.LessThan(expression.Value(v)))
		case "ge":
			conds = append(conds, name.GreaterThanEqual(expression.Value(v)))
		case "gt":
			conds = append(conds, name.GreaterThan(expression.Value(v)))
		case "contains":
			conds = append(conds, name.Contains(FormatValue(v)))
		case "notContains":
			conds = append(conds, expression.Not(name.Contains(FormatValue(v))))
		case "beginsWith":
			conds = append(conds, name.BeginsWith(FormatValue(v)))
		case "between":
			bounds, ok := v.([]any)
			if !ok || len(bounds) != 2 {
				return nil, fmt.Errorf("filter %q between expects two values, got %v", field, v)
			}
			conds = append(conds, name.Between(expression.Value(bounds[0]), expression.Value(bounds[1])))
		case "attributeExists":
			exists, ok := v.(bool)
			if !ok {
				return nil, fmt.Errorf("filter %q attributeExists expects a boolean, got %T", field, v)
			}
			if exists {
				conds = append(conds, name.AttributeExists())
			} else {
				conds = append(conds, name.AttributeNotExists())
			}
		default:
			return nil, fmt.Errorf("unsupported filter operator %q on %q", op, field)
		}
	}
	return conds, nil
}

func and(conds []expression.ConditionBuilder) expression.ConditionBuilder {
	if len(conds) == 1 {
		return conds[0]
	}
	return expression.And(conds[0], conds[1], conds[2:]...)
}

func or(conds []expression.ConditionBuilder) expression.ConditionBuilder {
	if len(conds) == 1 {
		return conds[0]
	}
	return expression.Or(conds[0], conds[1], conds[2:]...)
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[K constraints.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
