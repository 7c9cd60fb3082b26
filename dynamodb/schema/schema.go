// Package schema defines the serialized form of the physical DynamoDB schema
// produced by the compiler. It maps directly to schema_dynamodb.yaml files and
// is always derived from table definitions, never edited by hand.
package schema

import (
	"github.com/acksell/ddbkeys/dynamodb/table"
)

// Schema is the root type containing all table definitions.
type Schema struct {
	Tables []Table `yaml:"tables" json:"tables"`
}

// Table describes a DynamoDB table structure with its indexes.
type Table struct {
	Name          string            `yaml:"name" json:"name"`
	PartitionKey  KeyDef            `yaml:"partitionKey" json:"partitionKey"`
	SortKey       *KeyDef           `yaml:"sortKey,omitempty" json:"sortKey,omitempty"`
	BillingMode   string            `yaml:"billingMode" json:"billingMode"`
	Provisioning  *Provisioning     `yaml:"provisioning,omitempty" json:"provisioning,omitempty"`
	LSIs          []Index           `yaml:"lsis,omitempty" json:"lsis,omitempty"`
	GSIs          []Index           `yaml:"gsis,omitempty" json:"gsis,omitempty"`
	NameOverrides map[string]string `yaml:"nameOverrides,omitempty" json:"nameOverrides,omitempty"`
}

// KeyDef describes a key attribute definition.
type KeyDef struct {
	Name string `yaml:"name" json:"name"`
	Kind string `yaml:"kind" json:"kind"` // "S", "N", or "B"
}

// Index describes a local or global secondary index.
type Index struct {
	Name         string        `yaml:"name" json:"name"`
	PartitionKey KeyDef        `yaml:"partitionKey" json:"partitionKey"`
	SortKey      *KeyDef       `yaml:"sortKey,omitempty" json:"sortKey,omitempty"`
	Projection   string        `yaml:"projection" json:"projection"`
	Provisioning *Provisioning `yaml:"provisioning,omitempty" json:"provisioning,omitempty"`
}

type Provisioning struct {
	Read  int64 `yaml:"read" json:"read"`
	Write int64 `yaml:"write" json:"write"`
}

const projectionAll = "ALL"

// FromTable derives the serialized table from its definition. Provisioning is
// only emitted for provisioned tables, mirroring CreateTableInput.
func FromTable(def table.TableDefinition, overrides map[string]string) Table {
	mode := def.BillingMode
	if mode == "" {
		mode = table.BillingProvisioned
	}
	provisioned := mode == table.BillingProvisioned
	t := Table{
		Name:         def.Name,
		PartitionKey: keyDef(def.KeyDefinitions.PartitionKey),
		SortKey:      optionalKeyDef(def.KeyDefinitions.SortKey),
		BillingMode:  string(mode),
	}
	if provisioned {
		t.Provisioning = provisioning(def.Provisioning)
	}
	for _, lsi := range def.LSIs {
		t.LSIs = append(t.LSIs, Index{
			Name:         lsi.Name,
			PartitionKey: keyDef(lsi.KeyDefinitions.PartitionKey),
			SortKey:      optionalKeyDef(lsi.KeyDefinitions.SortKey),
			Projection:   projectionAll,
		})
	}
	for _, gsi := range def.GSIs {
		idx := Index{
			Name:         gsi.Name,
			PartitionKey: keyDef(gsi.KeyDefinitions.PartitionKey),
			SortKey:      optionalKeyDef(gsi.KeyDefinitions.SortKey),
			Projection:   projectionAll,
		}
		if provisioned {
			idx.Provisioning = provisioning(gsi.Provisioning)
		}
		t.GSIs = append(t.GSIs, idx)
	}
	if len(overrides) > 0 {
		t.NameOverrides = overrides
	}
	return t
}

func keyDef(k table.KeyDef) KeyDef {
	return KeyDef{Name: k.Name, Kind: string(k.Kind)}
}

func optionalKeyDef(k table.KeyDef) *KeyDef {
	if k.IsZero() {
		return nil
	}
	kd := keyDef(k)
	return &kd
}

func provisioning(p *table.Provisioning) *Provisioning {
	if p == nil {
		p = &table.DefaultProvisioning
	}
	return &Provisioning{Read: p.Read, Write: p.Write}
}

// Definition converts the serialized table back into a table definition.
// Name overrides are not part of the physical table and are dropped.
func (t Table) Definition() table.TableDefinition {
	def := table.TableDefinition{
		Name: t.Name,
		KeyDefinitions: table.PrimaryKeyDefinition{
			PartitionKey: t.PartitionKey.def(),
			SortKey:      t.SortKey.def(),
		},
		BillingMode:  table.BillingMode(t.BillingMode),
		Provisioning: t.Provisioning.def(),
	}
	for _, lsi := range t.LSIs {
		def.LSIs = append(def.LSIs, table.LSIDefinition{
			Name: lsi.Name,
			KeyDefinitions: table.PrimaryKeyDefinition{
				PartitionKey: lsi.PartitionKey.def(),
				SortKey:      lsi.SortKey.def(),
			},
		})
	}
	for _, gsi := range t.GSIs {
		def.GSIs = append(def.GSIs, table.GSIDefinition{
			Name: gsi.Name,
			KeyDefinitions: table.PrimaryKeyDefinition{
				PartitionKey: gsi.PartitionKey.def(),
				SortKey:      gsi.SortKey.def(),
			},
			Provisioning: gsi.Provisioning.def(),
		})
	}
	return def
}

func (k *KeyDef) def() table.KeyDef {
	if k == nil {
		return table.KeyDef{}
	}
	return table.KeyDef{Name: k.Name, Kind: table.KeyKind(k.Kind)}
}

func (p *Provisioning) def() *table.Provisioning {
	if p == nil {
		return nil
	}
	return &table.Provisioning{Read: p.Read, Write: p.Write}
}
