package keycond

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"
)

// Separator joins the values of a composite sort key.
const Separator = "#"

// AttributeName is the physical attribute holding a composite sort key.
func AttributeName(fields []string) string {
	return strings.Join(fields, Separator)
}

// Join encodes values as a composite key in the order given.
func Join(values ...any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = FormatValue(v)
	}
	return strings.Join(parts, Separator)
}

// FormatValue renders a key value the way it appears inside a composite key.
func FormatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return formatFloat(x)
	case float32:
		return formatFloat(float64(x))
	case int:
		return formatInt(x)
	case int32:
		return formatInt(x)
	case int64:
		return formatInt(x)
	case uint64:
		return strconv.FormatUint(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}

func formatInt[T constraints.Signed](v T) string {
	return strconv.FormatInt(int64(v), 10)
}

func formatFloat(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CompositeCondition turns a composite key-condition input into a condition on
// the composite attribute. Field values are read in declaration order and
// joined up to the first missing one. An eq on a strict prefix of the fields
// becomes a begins_with on the prefix followed by the separator, so that it
// matches every item sharing the leading values.
func CompositeCondition(fields []string, input map[string]any) (Condition, error) {
	cond, err := ParseCondition(input)
	if err != nil {
		return Condition{}, err
	}
	switch cond.Op {
	case OpBetween:
		bounds, ok := cond.Value.([]any)
		if !ok || len(bounds) != 2 {
			return Condition{}, fmt.Errorf("between expects two composite values, got %v", cond.Value)
		}
		lo, _, err := joinPrefix(fields, bounds[0])
		if err != nil {
			return Condition{}, err
		}
		hi, _, err := joinPrefix(fields, bounds[1])
		if err != nil {
			return Condition{}, err
		}
		return Condition{Op: OpBetween, Value: []any{lo, hi}}, nil
	default:
		joined, complete, err := joinPrefix(fields, cond.Value)
		if err != nil {
			return Condition{}, err
		}
		if cond.Op == OpEq && !complete {
			return Condition{Op: OpBeginsWith, Value: joined + Separator}, nil
		}
		return Condition{Op: cond.Op, Value: joined}, nil
	}
}

func joinPrefix(fields []string, v any) (string, bool, error) {
	values, ok := v.(map[string]any)
	if !ok {
		return "", false, fmt.Errorf("composite key value must be an object, got %T", v)
	}
	var parts []any
	for _, f := range fields {
		fv, ok := values[f]
		if !ok || fv == nil {
			break
		}
		parts = append(parts, fv)
	}
	if len(parts) == 0 {
		return "", false, fmt.Errorf("composite key value sets none of %v", fields)
	}
	return Join(parts...), len(parts) == len(fields), nil
}
