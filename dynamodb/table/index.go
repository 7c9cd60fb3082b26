package table

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// PrimaryIndexDefinition derives a table's primary key from documents that do
// not carry the key attributes verbatim, such as a mutation input whose sort
// key is a composite of several input fields.
type PrimaryIndexDefinition struct {
	Table          TableDefinition
	PartitionKeyer Keyer
	SortKeyer      Keyer
}

// PrimaryKey runs the keyers over doc and checks each value against the kind
// declared by the table.
func (i *PrimaryIndexDefinition) PrimaryKey(doc map[string]types.AttributeValue) (PrimaryKey, error) {
	keys := i.Table.KeyDefinitions
	pk := PrimaryKey{Definition: keys}

	part, err := deriveKey("partition", keys.PartitionKey, i.PartitionKeyer, doc)
	if err != nil {
		return PrimaryKey{}, fmt.Errorf("table %q: %w", i.Table.Name, err)
	}
	pk.Values.PartitionKey = part
	if !keys.HasSortKey() {
		return pk, nil
	}
	sort, err := deriveKey("sort", keys.SortKey, i.SortKeyer, doc)
	if err != nil {
		return PrimaryKey{}, fmt.Errorf("table %q: %w", i.Table.Name, err)
	}
	pk.Values.SortKey = sort
	return pk, nil
}

func deriveKey(role string, def KeyDef, keyer Keyer, doc map[string]types.AttributeValue) (any, error) {
	if keyer == nil {
		return nil, fmt.Errorf("no keyer for %s key %q", role, def.Name)
	}
	av, err := keyer.Key(doc)
	if err != nil {
		return nil, fmt.Errorf("%s key %q: %w", role, def.Name, err)
	}
	if err := attributeMatchesDefinition(def.Kind, av); err != nil {
		return nil, fmt.Errorf("%s key %q: %w", role, def.Name, err)
	}
	return keyValueFromAV(av), nil
}
