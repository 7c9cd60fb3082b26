// Package deltasync routes the incremental sync query of a model. Every key
// of the model registers its key fields; at request time the dispatcher
// either scans the table or, when the leading filter clauses name an index's
// keys, queries that index instead.
//
// Clause matching is positional: only the first two entries of the filter's
// "and" list are considered, in that order. Existing clients depend on this.
package deltasync

import (
	"errors"
	"fmt"
	"time"

	"github.com/acksell/ddbkeys/dynamodb/keycond"
)

// DefaultWindow is the freshness window used when none is configured.
const DefaultWindow = 30 * time.Minute

var ErrRegistryFrozen = errors.New("delta sync routes already emitted")

// Routes are the lookup tables of one model.
type Routes struct {
	// KeyIndexes maps "partition+firstSortField" to an index name.
	KeyIndexes map[string]string
	// PartitionIndexes maps a partition field to an index name.
	PartitionIndexes map[string]string
	// SortFields maps an index name to its sort key fields. The base table is "".
	SortFields map[string][]string
}

func newRoutes() Routes {
	return Routes{
		KeyIndexes:       make(map[string]string),
		PartitionIndexes: make(map[string]string),
		SortFields:       make(map[string][]string),
	}
}

// KeyIndexKey is the KeyIndexes key of a partition and sort field pair.
func KeyIndexKey(partition, sortField string) string {
	return partition + "+" + sortField
}

func (r Routes) clone() Routes {
	c := newRoutes()
	for k, v := range r.KeyIndexes {
		c.KeyIndexes[k] = v
	}
	for k, v := range r.PartitionIndexes {
		c.PartitionIndexes[k] = v
	}
	for k, v := range r.SortFields {
		c.SortFields[k] = append([]string(nil), v...)
	}
	return c
}

// Registry accumulates routes per model. A model's routes are frozen once its
// dispatcher has been emitted.
type Registry struct {
	models map[string]*modelRoutes
}

type modelRoutes struct {
	routes Routes
	frozen bool
}

func NewRegistry() *Registry {
	return &Registry{models: make(map[string]*modelRoutes)}
}

// Register records one key of model. The primary key registers under the
// empty index name and must come first. Later registrations overwrite earlier
// ones that share a lookup key.
func (r *Registry) Register(model, indexName, partition string, sortFields []string) error {
	m, ok := r.models[model]
	if !ok {
		m = &modelRoutes{routes: newRoutes()}
		r.models[model] = m
	}
	if m.frozen {
		return fmt.Errorf("model %s index %q: %w", model, indexName, ErrRegistryFrozen)
	}
	if len(sortFields) > 0 {
		m.routes.KeyIndexes[KeyIndexKey(partition, sortFields[0])] = indexName
	}
	m.routes.PartitionIndexes[partition] = indexName
	m.routes.SortFields[indexName] = append([]string(nil), sortFields...)
	return nil
}

// Freeze returns a copy of the model's routes and rejects further registration.
func (r *Registry) Freeze(model string) Routes {
	m, ok := r.models[model]
	if !ok {
		m = &modelRoutes{routes: newRoutes()}
		r.models[model] = m
	}
	m.frozen = true
	return m.routes.clone()
}

type Operation string

const (
	OperationScan  Operation = "Scan"
	OperationQuery Operation = "Query"
)

// Decision is the outcome of dispatching one sync request.
type Decision struct {
	Operation      Operation
	IndexName      string
	PartitionKey   string
	PartitionValue any
	// SortKey is empty when the query covers the whole partition.
	SortKey string
	Sort    keycond.Condition
	// Filter is applied after the fetch. Nil when nothing remains.
	Filter map[string]any
}

// Request is the input of one sync request.
type Request struct {
	// LastSync is the client's last sync time in epoch milliseconds, or nil.
	LastSync *int64
	Now      time.Time
	Filter   map[string]any
	Window   time.Duration
}

// Dispatch picks between a scan and an index query.
func Dispatch(routes Routes, req Request) (Decision, error) {
	window := req.Window
	if window <= 0 {
		window = DefaultWindow
	}
	scan := Decision{Operation: OperationScan, Filter: req.Filter}
	if req.LastSync != nil && req.Now.Sub(time.UnixMilli(*req.LastSync)) <= window {
		return scan, nil
	}

	clauses, ok := req.Filter["and"].([]any)
	if !ok || len(clauses) < 2 {
		return scan, nil
	}
	pkField, pkOps, ok := singleField(clauses[0])
	if !ok {
		return scan, nil
	}
	pkValue, isEq := pkOps[string(keycond.OpEq)]
	_, partitioned := routes.PartitionIndexes[pkField]
	if !isEq || len(pkOps) != 1 || !partitioned {
		return scan, nil
	}
	skField, skOps, ok := singleField(clauses[1])
	if !ok {
		return scan, nil
	}
	index, ok := routes.KeyIndexes[KeyIndexKey(pkField, skField)]
	if !ok {
		return scan, nil
	}

	sortCond, err := keycond.ParseCondition(skOps)
	if err != nil {
		return Decision{}, fmt.Errorf("sync filter on %q: %w", skField, err)
	}
	d := Decision{
		Operation:      OperationQuery,
		IndexName:      index,
		PartitionKey:   pkField,
		PartitionValue: pkValue,
	}
	rest := clauses[2:]
	sortFields := routes.SortFields[index]
	switch {
	case len(sortFields) == 1:
		d.SortKey, d.Sort = skField, sortCond
	case sortCond.Op == keycond.OpEq:
		// the clause names the leading field of a composite key
		d.SortKey = keycond.AttributeName(sortFields)
		d.Sort = keycond.Condition{Op: keycond.OpBeginsWith, Value: keycond.FormatValue(sortCond.Value) + keycond.Separator}
	default:
		rest = append([]any{clauses[1]}, rest...)
	}
	d.Filter = remainingFilter(req.Filter, rest)
	return d, nil
}

// singleField unpacks a clause of the form {"field": {"op": value}}.
func singleField(clause any) (string, map[string]any, bool) {
	m, ok := clause.(map[string]any)
	if !ok || len(m) != 1 {
		return "", nil, false
	}
	for field, v := range m {
		ops, ok := v.(map[string]any)
		return field, ops, ok
	}
	return "", nil, false
}

func remainingFilter(filter map[string]any, rest []any) map[string]any {
	out := make(map[string]any, len(filter))
	for _, k := range keycond.SortedKeys(filter) {
		if k != "and" {
			out[k] = filter[k]
		}
	}
	if len(rest) > 0 {
		out["and"] = rest
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
