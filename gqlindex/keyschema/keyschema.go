// Package keyschema derives the physical key attributes of a table or index
// from a resolved key directive.
package keyschema

import (
	"github.com/acksell/ddbkeys/dynamodb/table"
	"github.com/acksell/ddbkeys/gqlindex/directive"
	"github.com/acksell/ddbkeys/gqlindex/naming"
)

// PhysicalKeySchema is the storage view of one key. SortKeyName is empty when
// the key has no sort key.
type PhysicalKeySchema struct {
	PartitionKeyName string
	PartitionKeyType table.KeyKind
	SortKeyName      string
	SortKeyType      table.KeyKind
	// SortKeyFields are the model fields encoded into the sort key, in order.
	SortKeyFields []string
	// NameOverrides maps a composite attribute to the argument name clients use.
	NameOverrides map[string]string
}

// Derive computes the physical key schema of a primary key or index config.
func Derive(cfg *directive.PrimaryKeyConfig) PhysicalKeySchema {
	ks := PhysicalKeySchema{
		PartitionKeyName: cfg.Field.Name,
		PartitionKeyType: AttributeType(cfg.Field),
		SortKeyFields:    cfg.SortKeyFields,
	}
	switch len(cfg.SortKey) {
	case 0:
	case 1:
		ks.SortKeyName = cfg.SortKey[0].Name
		ks.SortKeyType = AttributeType(cfg.SortKey[0])
	default:
		ks.SortKeyName = naming.CompositeAttribute(cfg.SortKeyFields)
		ks.SortKeyType = table.KeyKindS
		ks.NameOverrides = map[string]string{
			ks.SortKeyName: naming.CompositeArgument(cfg.SortKeyFields),
		}
	}
	return ks
}

func (k PhysicalKeySchema) HasSortKey() bool {
	return k.SortKeyName != ""
}

func (k PhysicalKeySchema) IsComposite() bool {
	return len(k.SortKeyFields) > 1
}

// KeyDefinitions converts the schema to the table package's key definition.
func (k PhysicalKeySchema) KeyDefinitions() table.PrimaryKeyDefinition {
	def := table.PrimaryKeyDefinition{
		PartitionKey: table.KeyDef{Name: k.PartitionKeyName, Kind: k.PartitionKeyType},
	}
	if k.HasSortKey() {
		def.SortKey = table.KeyDef{Name: k.SortKeyName, Kind: k.SortKeyType}
	}
	return def
}

// Keyers returns keyers that build this key from an item carrying the model's
// fields. A composite sort key is joined from its constituent fields.
func (k PhysicalKeySchema) Keyers() (partition, sort table.Keyer) {
	partition = table.CopyKeyer(k.PartitionKeyName)
	switch {
	case !k.HasSortKey():
	case k.IsComposite():
		sort = table.JoinKeyer(naming.CompositeSeparator, k.SortKeyFields...)
	default:
		sort = table.CopyKeyer(k.SortKeyName)
	}
	return partition, sort
}

var numericScalars = map[string]bool{
	"Int":          true,
	"Float":        true,
	"AWSTimestamp": true,
}

// AttributeType maps a key field to its storage type. Numeric scalars are
// stored as numbers; strings, IDs, enums and date scalars as strings.
func AttributeType(f directive.KeyField) table.KeyKind {
	if f.IsEnum {
		return table.KeyKindS
	}
	return ScalarKind(f.Base)
}

// ScalarKind maps a scalar name to its storage type.
func ScalarKind(scalar string) table.KeyKind {
	if numericScalars[scalar] {
		return table.KeyKindN
	}
	return table.KeyKindS
}
