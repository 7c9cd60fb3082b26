// Package resolvers emits the typed logic fragments that run in the
// pre-validation slot of each model operation. Fragments are plain data; they
// are rendered to VTL only when written out, and interpreted directly by the
// pipeline package.
package resolvers

import (
	"fmt"

	"github.com/acksell/ddbkeys/gqlindex/deltasync"
	"github.com/acksell/ddbkeys/gqlindex/keyschema"
)

// SlotPreValidation runs before the operation validates and executes its request.
const SlotPreValidation = "preValidation"

// Request-time errors. The messages are a documented contract.
const (
	ErrorTypeInvalidArguments = "InvalidArgumentsError"

	MsgSortDirectionWithoutSortKey = "sortDirection is not supported for List operations without a Sort key defined."
	MsgSortDirectionRequiresArg    = "When providing argument 'sortDirection' you must also provide argument '%s'."
	MsgPartialCompositeKey         = "When updating any part of the composite sort key for @index '%s', you must provide all fields for the key. Missing key: '%s'."
)

// Variables read and written by statements.
const (
	VarArgs           = "ctx.args"
	VarInput          = "ctx.args.input"
	VarSortDirection  = "ctx.args.sortDirection"
	VarLastSync       = "ctx.args.lastSync"
	VarFilter         = "ctx.args.filter"
	VarDefaultValues  = "ctx.stash.defaultValues"
	VarClientInput    = "ctx.stash.clientInput"
	VarModelObjectKey = "ctx.stash.metadata.modelObjectKey"
	VarNameOverrides  = "ctx.stash.metadata.nameOverrides"
	VarKeyFilter      = "ctx.stash.metadata.keyFilter"
	VarQuery          = "ctx.stash.query"
	VarStashFilter    = "ctx.stash.filter"
)

// Fragment is an ordered list of statements injected into one slot of a
// (type, field) resolver.
type Fragment struct {
	TypeName   string
	FieldName  string
	Slot       string
	Name       string
	Statements []Statement
	Reads      []string
	Writes     []string
}

// FileName is the name the rendered fragment is written under.
func (f *Fragment) FileName() string {
	return f.Name + ".req.vtl"
}

func (f *Fragment) String() string {
	return fmt.Sprintf("%s.%s[%s]", f.TypeName, f.FieldName, f.Slot)
}

type StatementKind string

const (
	KindRejectSortDirection        StatementKind = "RejectSortDirection"
	KindRequireArgForSortDirection StatementKind = "RequireArgForSortDirection"
	KindSetKeyCondition            StatementKind = "SetKeyCondition"
	KindSetModelObjectKey          StatementKind = "SetModelObjectKey"
	KindMergeDefaults              StatementKind = "MergeDefaults"
	KindPopulateCompositeKey       StatementKind = "PopulateCompositeKey"
	KindRequireCompositeKey        StatementKind = "RequireCompositeKey"
	KindSetNameOverrides           StatementKind = "SetNameOverrides"
	KindSetSQLKeyFilter            StatementKind = "SetSQLKeyFilter"
	KindSyncDispatch               StatementKind = "SyncDispatch"
)

// Statement is one step of a fragment.
type Statement interface {
	Kind() StatementKind
	Reads() []string
	Writes() []string
}

// RejectSortDirection fails the request when sortDirection is supplied for a
// key without a sort key.
type RejectSortDirection struct{}

// RequireArgForSortDirection fails the request when sortDirection is supplied
// without Arg.
type RequireArgForSortDirection struct {
	Arg string
}

// Source names where key values are read from.
type Source string

const (
	SourceArgs  Source = "args"
	SourceInput Source = "input"
)

func (s Source) variable() string {
	if s == SourceInput {
		return VarInput
	}
	return VarArgs
}

// SetKeyCondition builds the key condition of a query. PartitionArg and
// SortArg name the arguments holding the partition value and the sort key
// condition input.
type SetKeyCondition struct {
	IndexName    string
	Key          keyschema.PhysicalKeySchema
	PartitionArg string
	SortArg      string
}

// SetModelObjectKey writes the item key to request metadata.
type SetModelObjectKey struct {
	Key    keyschema.PhysicalKeySchema
	Source Source
}

// DefaultValue is a value generated when the client omits a field.
type DefaultValue string

const (
	DefaultAutoID    DefaultValue = "autoId"
	DefaultTimestamp DefaultValue = "timestamp"
)

// DefaultField pairs an input field with its generated default.
type DefaultField struct {
	Name  string
	Value DefaultValue
}

// MergeDefaults fills omitted input fields with generated defaults. Client
// values always win. The input as sent is kept in the stash first.
type MergeDefaults struct {
	Fields []DefaultField
}

// PopulateCompositeKey writes Attribute into the input when every field of
// the composite key is present.
type PopulateCompositeKey struct {
	Attribute string
	Fields    []string
}

// RequireCompositeKey fails an update whose client input supplies some but not
// all fields of the composite sort key of IndexName. Merged defaults are not
// client input.
type RequireCompositeKey struct {
	IndexName string
	Fields    []string
}

// SetNameOverrides records the argument names under which composite
// attributes are exposed.
type SetNameOverrides struct {
	Overrides map[string]string
}

// SetSQLKeyFilter writes an equality filter over the key fields for
// relational backends.
type SetSQLKeyFilter struct {
	Fields []string
	Source Source
}

// SyncDispatch selects between a scan and an index query for a sync request.
type SyncDispatch struct {
	Routes        deltasync.Routes
	WindowMinutes int
}

func (RejectSortDirection) Kind() StatementKind        { return KindRejectSortDirection }
func (RequireArgForSortDirection) Kind() StatementKind { return KindRequireArgForSortDirection }
func (SetKeyCondition) Kind() StatementKind            { return KindSetKeyCondition }
func (SetModelObjectKey) Kind() StatementKind          { return KindSetModelObjectKey }
func (MergeDefaults) Kind() StatementKind              { return KindMergeDefaults }
func (PopulateCompositeKey) Kind() StatementKind       { return KindPopulateCompositeKey }
func (RequireCompositeKey) Kind() StatementKind        { return KindRequireCompositeKey }
func (SetNameOverrides) Kind() StatementKind           { return KindSetNameOverrides }
func (SetSQLKeyFilter) Kind() StatementKind            { return KindSetSQLKeyFilter }
func (SyncDispatch) Kind() StatementKind               { return KindSyncDispatch }

func (RejectSortDirection) Reads() []string  { return []string{VarSortDirection} }
func (RejectSortDirection) Writes() []string { return nil }

func (s RequireArgForSortDirection) Reads() []string {
	return []string{VarSortDirection, VarArgs + "." + s.Arg}
}
func (RequireArgForSortDirection) Writes() []string { return nil }

func (s SetKeyCondition) Reads() []string {
	reads := []string{VarArgs + "." + s.PartitionArg, VarSortDirection, VarFilter}
	if s.SortArg != "" {
		reads = append(reads, VarArgs+"."+s.SortArg)
	}
	return reads
}
func (SetKeyCondition) Writes() []string { return []string{VarQuery, VarStashFilter} }

func (s SetModelObjectKey) Reads() []string { return []string{s.Source.variable()} }
func (SetModelObjectKey) Writes() []string  { return []string{VarModelObjectKey} }

func (MergeDefaults) Reads() []string  { return []string{VarInput, VarDefaultValues} }
func (MergeDefaults) Writes() []string { return []string{VarDefaultValues, VarClientInput, VarInput} }

func (PopulateCompositeKey) Reads() []string  { return []string{VarInput} }
func (PopulateCompositeKey) Writes() []string { return []string{VarInput} }

func (RequireCompositeKey) Reads() []string  { return []string{VarClientInput, VarInput} }
func (RequireCompositeKey) Writes() []string { return nil }

func (SetNameOverrides) Reads() []string  { return nil }
func (SetNameOverrides) Writes() []string { return []string{VarNameOverrides} }

func (s SetSQLKeyFilter) Reads() []string { return []string{s.Source.variable()} }
func (SetSQLKeyFilter) Writes() []string  { return []string{VarKeyFilter} }

func (SyncDispatch) Reads() []string  { return []string{VarLastSync, VarFilter} }
func (SyncDispatch) Writes() []string { return []string{VarQuery, VarStashFilter} }
