// Package pipeline executes emitted fragments against a single request. It is
// the in-process counterpart of the rendered VTL and produces the same stash
// a resolver would see, plus the DynamoDB inputs that follow from it.
package pipeline

import (
	"fmt"
	"maps"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/acksell/ddbkeys/dynamodb/keycond"
	"github.com/acksell/ddbkeys/dynamodb/table"
	"github.com/acksell/ddbkeys/gqlindex/deltasync"
	"github.com/acksell/ddbkeys/gqlindex/resolvers"
)

// TimestampLayout formats generated createdAt and updatedAt values.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// RequestError is a validation failure reported to the client.
type RequestError struct {
	Type    string
	Message string
}

func (e *RequestError) Error() string {
	return e.Type + ": " + e.Message
}

func invalidArguments(format string, args ...any) *RequestError {
	return &RequestError{Type: resolvers.ErrorTypeInvalidArguments, Message: fmt.Sprintf(format, args...)}
}

type Request struct {
	// Args are the field arguments as decoded from JSON.
	Args  map[string]any
	Stash *Stash
	Now   time.Time
}

// NewRequest returns a request with an empty stash.
func NewRequest(args map[string]any, now time.Time) *Request {
	if args == nil {
		args = make(map[string]any)
	}
	return &Request{Args: args, Stash: &Stash{}, Now: now}
}

type Stash struct {
	DefaultValues map[string]any
	// ClientInput is the mutation input as sent, before defaults were merged.
	ClientInput map[string]any
	Metadata    Metadata
	// Query is nil until a key condition or sync dispatch ran.
	Query  *Query
	Filter map[string]any
}

type Metadata struct {
	ModelObjectKey map[string]types.AttributeValue
	NameOverrides  map[string]string
	KeyFilter      map[string]any
}

// Query is the fetch a list, index or sync operation resolves to.
type Query struct {
	IndexName      string
	Operation      deltasync.Operation
	PartitionKey   string
	PartitionValue any
	SortKey        string
	// Sort is nil when the whole partition is read.
	Sort       *keycond.Condition
	Descending bool
}

// Execute runs the statements of every fragment in order. It stops at the
// first failing statement.
func Execute(fragments []*resolvers.Fragment, req *Request) error {
	if req.Stash == nil {
		req.Stash = &Stash{}
	}
	for _, f := range fragments {
		for _, s := range f.Statements {
			if err := execute(s, req); err != nil {
				return fmt.Errorf("%s: %w", f.Name, err)
			}
		}
	}
	return nil
}

func execute(s resolvers.Statement, req *Request) error {
	switch s := s.(type) {
	case resolvers.RejectSortDirection:
		if req.Args["sortDirection"] != nil {
			return invalidArguments(resolvers.MsgSortDirectionWithoutSortKey)
		}
	case resolvers.RequireArgForSortDirection:
		if req.Args["sortDirection"] != nil && req.Args[s.Arg] == nil {
			return invalidArguments(resolvers.MsgSortDirectionRequiresArg, s.Arg)
		}
	case resolvers.SetKeyCondition:
		return setKeyCondition(s, req)
	case resolvers.SetModelObjectKey:
		return setModelObjectKey(s, req)
	case resolvers.MergeDefaults:
		mergeDefaults(s, req)
	case resolvers.PopulateCompositeKey:
		populateCompositeKey(s, req)
	case resolvers.RequireCompositeKey:
		return requireCompositeKey(s, req)
	case resolvers.SetNameOverrides:
		req.Stash.Metadata.NameOverrides = maps.Clone(s.Overrides)
	case resolvers.SetSQLKeyFilter:
		src, err := source(s.Source, req)
		if err != nil {
			return err
		}
		filter := make(map[string]any)
		for _, f := range s.Fields {
			if v, ok := src[f]; ok && v != nil {
				filter[f] = map[string]any{"eq": v}
			}
		}
		req.Stash.Metadata.KeyFilter = filter
	case resolvers.SyncDispatch:
		return syncDispatch(s, req)
	default:
		return fmt.Errorf("unsupported statement %s", s.Kind())
	}
	return nil
}

func source(src resolvers.Source, req *Request) (map[string]any, error) {
	if src != resolvers.SourceInput {
		return req.Args, nil
	}
	return input(req)
}

func input(req *Request) (map[string]any, error) {
	v, ok := req.Args["input"]
	if !ok || v == nil {
		in := make(map[string]any)
		req.Args["input"] = in
		return in, nil
	}
	in, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("argument input must be an object, got %T", v)
	}
	return in, nil
}

func setKeyCondition(s resolvers.SetKeyCondition, req *Request) error {
	q := &Query{
		IndexName:  s.IndexName,
		Operation:  deltasync.OperationScan,
		Descending: req.Args["sortDirection"] == "DESC",
	}
	if pv := req.Args[s.PartitionArg]; pv != nil {
		q.Operation = deltasync.OperationQuery
		q.PartitionKey = s.Key.PartitionKeyName
		q.PartitionValue = pv
	}
	if raw := req.Args[s.SortArg]; s.SortArg != "" && raw != nil && q.Operation == deltasync.OperationQuery {
		input, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("argument %s must be an object, got %T", s.SortArg, raw)
		}
		var cond keycond.Condition
		var err error
		if s.Key.IsComposite() {
			cond, err = keycond.CompositeCondition(s.Key.SortKeyFields, input)
		} else {
			cond, err = keycond.ParseCondition(input)
		}
		if err != nil {
			return fmt.Errorf("argument %s: %w", s.SortArg, err)
		}
		q.SortKey = s.Key.SortKeyName
		q.Sort = &cond
	}
	req.Stash.Query = q
	req.Stash.Filter = objectArg(req.Args["filter"])
	return nil
}

func setModelObjectKey(s resolvers.SetModelObjectKey, req *Request) error {
	src, err := source(s.Source, req)
	if err != nil {
		return err
	}
	item, err := attributevalue.MarshalMap(src)
	if err != nil {
		return fmt.Errorf("failed to marshal key source: %w", err)
	}
	partition, sort := s.Key.Keyers()
	index := table.PrimaryIndexDefinition{
		Table:          table.TableDefinition{KeyDefinitions: s.Key.KeyDefinitions()},
		PartitionKeyer: partition,
		SortKeyer:      sort,
	}
	pk, err := index.PrimaryKey(item)
	if err != nil {
		return err
	}
	key, err := pk.DDB()
	if err != nil {
		return err
	}
	req.Stash.Metadata.ModelObjectKey = key
	return nil
}

func mergeDefaults(s resolvers.MergeDefaults, req *Request) {
	if req.Stash.DefaultValues == nil {
		req.Stash.DefaultValues = make(map[string]any)
	}
	now := req.Now.UTC().Format(TimestampLayout)
	for _, f := range s.Fields {
		switch f.Value {
		case resolvers.DefaultAutoID:
			req.Stash.DefaultValues[f.Name] = uuid.NewString()
		case resolvers.DefaultTimestamp:
			req.Stash.DefaultValues[f.Name] = now
		}
	}
	merged := maps.Clone(req.Stash.DefaultValues)
	in, _ := req.Args["input"].(map[string]any)
	if req.Stash.ClientInput == nil {
		req.Stash.ClientInput = make(map[string]any, len(in))
		maps.Copy(req.Stash.ClientInput, in)
	}
	maps.Copy(merged, in)
	req.Args["input"] = merged
}

func populateCompositeKey(s resolvers.PopulateCompositeKey, req *Request) {
	in, ok := req.Args["input"].(map[string]any)
	if !ok {
		return
	}
	values := make([]any, 0, len(s.Fields))
	for _, f := range s.Fields {
		v, ok := in[f]
		if !ok || v == nil {
			return
		}
		values = append(values, v)
	}
	in[s.Attribute] = keycond.Join(values...)
}

// requireCompositeKey only looks at fields the client sent; generated
// defaults such as updatedAt do not count as supplying part of the key.
func requireCompositeKey(s resolvers.RequireCompositeKey, req *Request) error {
	in := req.Stash.ClientInput
	if in == nil {
		in, _ = req.Args["input"].(map[string]any)
	}
	if in == nil {
		return nil
	}
	supplied := false
	for _, f := range s.Fields {
		if _, ok := in[f]; ok {
			supplied = true
			break
		}
	}
	if !supplied {
		return nil
	}
	for _, f := range s.Fields {
		if _, ok := in[f]; !ok {
			return invalidArguments(resolvers.MsgPartialCompositeKey, s.IndexName, f)
		}
	}
	return nil
}

func syncDispatch(s resolvers.SyncDispatch, req *Request) error {
	lastSync, err := epochMillis(req.Args["lastSync"])
	if err != nil {
		return err
	}
	d, err := deltasync.Dispatch(s.Routes, deltasync.Request{
		LastSync: lastSync,
		Now:      req.Now,
		Filter:   objectArg(req.Args["filter"]),
		Window:   time.Duration(s.WindowMinutes) * time.Minute,
	})
	if err != nil {
		return err
	}
	q := &Query{
		IndexName:      d.IndexName,
		Operation:      d.Operation,
		PartitionKey:   d.PartitionKey,
		PartitionValue: d.PartitionValue,
		SortKey:        d.SortKey,
	}
	if d.SortKey != "" {
		sort := d.Sort
		q.Sort = &sort
	}
	req.Stash.Query = q
	req.Stash.Filter = d.Filter
	return nil
}

func objectArg(v any) map[string]any {
	m, _ := v.(map[string]any)
	if len(m) == 0 {
		return nil
	}
	return m
}

func epochMillis(v any) (*int64, error) {
	var ms int64
	switch x := v.(type) {
	case nil:
		return nil, nil
	case int64:
		ms = x
	case int:
		ms = int64(x)
	case float64:
		ms = int64(x)
	default:
		return nil, fmt.Errorf("argument lastSync must be a number, got %T", v)
	}
	return &ms, nil
}
