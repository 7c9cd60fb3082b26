// Package directive decodes @primaryKey and @index occurrences into typed
// configurations and validates them against the model they annotate.
package directive

import (
	"github.com/vektah/gqlparser/v2/ast"
)

const (
	Model      = "model"
	PrimaryKey = "primaryKey"
	Index      = "index"
)

// DefaultPrimaryKeyField is the partition key of a model without @primaryKey.
const DefaultPrimaryKeyField = "id"

// KeyField references a scalar or enum field used as part of a key.
type KeyField struct {
	Name string
	Type *ast.Type
	// Base is the named type after unwrapping non-null.
	Base   string
	IsEnum bool
}

// PrimaryKeyConfig is a decoded @primaryKey, or the implicit id key of a
// model that declares none.
type PrimaryKeyConfig struct {
	Object         *ast.Definition
	Field          KeyField
	SortKeyFields  []string
	SortKey        []KeyField // filled by validation, in SortKeyFields order
	ModelDirective *ast.Directive
	Directive      *ast.Directive // nil when Implicit
	Implicit       bool
}

// HasSortKey reports whether the key declares at least one sort field.
func (c *PrimaryKeyConfig) HasSortKey() bool {
	return len(c.SortKeyFields) > 0
}

// IsComposite reports whether the sort key is encoded from several fields.
func (c *PrimaryKeyConfig) IsComposite() bool {
	return len(c.SortKeyFields) > 1
}

// IndexConfig is a decoded @index after default filling. Name is always set.
// QueryField is empty when query generation is suppressed.
type IndexConfig struct {
	PrimaryKeyConfig
	Name       string
	QueryField string
	// PrimaryKeyField is the partition key field of the model's primary key.
	PrimaryKeyField KeyField
}

// Options are the feature flags read while resolving and validating.
type Options struct {
	EnableAutoIndexQueryNames bool
	SecondaryKeyAsGSI         bool
}

// ModelKeys holds every key directive of one model, primary key first.
type ModelKeys struct {
	Model   *ast.Definition
	Primary *PrimaryKeyConfig
	Indexes []*IndexConfig
}

// SharesPartition reports whether the index is keyed on the primary partition field.
func (c *IndexConfig) SharesPartition() bool {
	return c.Field.Name == c.PrimaryKeyField.Name
}
