package keyschema

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acksell/ddbkeys/dynamodb/table"
	"github.com/acksell/ddbkeys/gqlindex/directive"
	"github.com/acksell/ddbkeys/graphql/sdl"
)

func index(t *testing.T, src string) *directive.IndexConfig {
	t.Helper()
	doc, err := sdl.Parse("schema.graphql", src)
	require.NoError(t, err)
	keys, err := directive.Collect(doc, directive.Options{EnableAutoIndexQueryNames: true})
	require.NoError(t, err)
	require.Len(t, keys, 1)
	require.Len(t, keys[0].Indexes, 1)
	return keys[0].Indexes[0]
}

func TestDerive(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want PhysicalKeySchema
	}{
		{
			name: "partition only",
			src:  `type Moss @model { id: ID! treeId: ID! @index }`,
			want: PhysicalKeySchema{PartitionKeyName: "treeId", PartitionKeyType: table.KeyKindS, SortKeyFields: []string{}},
		},
		{
			name: "numeric sort key",
			src:  `type Post @model { id: ID! blogId: ID! @index(sortKeyFields: ["rating"]) rating: Int }`,
			want: PhysicalKeySchema{
				PartitionKeyName: "blogId", PartitionKeyType: table.KeyKindS,
				SortKeyName: "rating", SortKeyType: table.KeyKindN,
				SortKeyFields: []string{"rating"},
			},
		},
		{
			name: "enum sort key is a string",
			src:  `enum Status { OPEN DONE } type Task @model { id: ID! owner: String @index(sortKeyFields: "status") status: Status }`,
			want: PhysicalKeySchema{
				PartitionKeyName: "owner", PartitionKeyType: table.KeyKindS,
				SortKeyName: "status", SortKeyType: table.KeyKindS,
				SortKeyFields: []string{"status"},
			},
		},
		{
			name: "timestamp partition is numeric",
			src:  `type Ping @model { id: ID! at: AWSTimestamp! @index }`,
			want: PhysicalKeySchema{PartitionKeyName: "at", PartitionKeyType: table.KeyKindN, SortKeyFields: []string{}},
		},
		{
			name: "composite",
			src: `type Test @model {
  id: ID!
  email: String! @index(name: "GSI", sortKeyFields: ["kind", "date"])
  kind: Int!
  date: AWSDateTime!
}`,
			want: PhysicalKeySchema{
				PartitionKeyName: "email", PartitionKeyType: table.KeyKindS,
				SortKeyName: "kind#date", SortKeyType: table.KeyKindS,
				SortKeyFields: []string{"kind", "date"},
				NameOverrides: map[string]string{"kind#date": "kindDate"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := index(t, tt.src)
			got := Derive(&cfg.PrimaryKeyConfig)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Derive(&cfg.PrimaryKeyConfig), "derivation is deterministic")
		})
	}
}

func TestKeyDefinitions(t *testing.T) {
	ks := PhysicalKeySchema{PartitionKeyName: "email", PartitionKeyType: table.KeyKindS}
	assert.False(t, ks.KeyDefinitions().HasSortKey())

	ks.SortKeyName, ks.SortKeyType = "rating", table.KeyKindN
	def := ks.KeyDefinitions()
	assert.Equal(t, table.KeyDef{Name: "rating", Kind: table.KeyKindN}, def.SortKey)
}

func TestKeyers(t *testing.T) {
	ks := PhysicalKeySchema{
		PartitionKeyName: "email", PartitionKeyType: table.KeyKindS,
		SortKeyName: "kind#date", SortKeyType: table.KeyKindS,
		SortKeyFields: []string{"kind", "date"},
	}
	part, sort := ks.Keyers()
	idx := table.PrimaryIndexDefinition{
		Table:          table.TableDefinition{Name: "Test", KeyDefinitions: ks.KeyDefinitions()},
		PartitionKeyer: part,
		SortKeyer:      sort,
	}
	pk, err := idx.PrimaryKey(map[string]types.AttributeValue{
		"email": &types.AttributeValueMemberS{Value: "a@b.c"},
		"kind":  &types.AttributeValueMemberN{Value: "3"},
		"date":  &types.AttributeValueMemberS{Value: "2024-01-01"},
	})
	require.NoError(t, err)
	assert.Equal(t, "3#2024-01-01", pk.Values.SortKey)

	single := PhysicalKeySchema{PartitionKeyName: "id", PartitionKeyType: table.KeyKindS}
	_, sort = single.Keyers()
	assert.Nil(t, sort)
}
