// Package placement decides whether a secondary index is local or global and
// declares it on the model's table.
package placement

import (
	"fmt"

	"github.com/acksell/ddbkeys/dynamodb/table"
	"github.com/acksell/ddbkeys/gqlindex/directive"
	"github.com/acksell/ddbkeys/gqlindex/keyschema"
)

type Kind string

const (
	Local  Kind = "local"
	Global Kind = "global"
)

type Options struct {
	SecondaryKeyAsGSI bool
	// Provisioning applies to global indexes of provisioned tables.
	Provisioning table.Provisioning
}

// Decide places an index. An index is local when it shares the primary
// partition key and both keys declare a sort key, unless global placement is
// forced. A local index must define its own range key, so a shared-partition
// index without one is global.
func Decide(idx *directive.IndexConfig, primary *directive.PrimaryKeyConfig, opts Options) Kind {
	if opts.SecondaryKeyAsGSI {
		return Global
	}
	if idx.SharesPartition() && idx.HasSortKey() && primary.HasSortKey() {
		return Local
	}
	return Global
}

// ApplyPrimaryKey replaces the table's key with the derived primary key. It
// must run before any index is placed.
func ApplyPrimaryKey(def *table.TableDefinition, ks keyschema.PhysicalKeySchema) error {
	if len(def.LSIs) > 0 || len(def.GSIs) > 0 {
		return fmt.Errorf("table %q: primary key changed after indexes were declared", def.Name)
	}
	def.KeyDefinitions = ks.KeyDefinitions()
	return nil
}

// Place declares the index on def and returns where it went.
func Place(def *table.TableDefinition, idx *directive.IndexConfig, primary *directive.PrimaryKeyConfig, opts Options) (Kind, error) {
	keys := keyschema.Derive(&idx.PrimaryKeyConfig).KeyDefinitions()
	kind := Decide(idx, primary, opts)
	switch kind {
	case Local:
		err := def.AddLSI(table.LSIDefinition{Name: idx.Name, KeyDefinitions: keys})
		if err != nil {
			return "", fmt.Errorf("index %q on %s: %w", idx.Name, idx.Object.Name, err)
		}
	default:
		gsi := table.GSIDefinition{Name: idx.Name, KeyDefinitions: keys}
		if def.BillingMode != table.BillingPayPerRequest && opts.Provisioning != (table.Provisioning{}) {
			p := opts.Provisioning
			gsi.Provisioning = &p
		}
		if err := def.AddGSI(gsi); err != nil {
			return "", fmt.Errorf("index %q on %s: %w", idx.Name, idx.Object.Name, err)
		}
	}
	return kind, nil
}
