package table

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"
)

var errAny = errors.New("any error")

var pkOnlyTable = TableDefinition{
	Name: "Todo",
	KeyDefinitions: PrimaryKeyDefinition{
		PartitionKey: KeyDef{Name: "id", Kind: KeyKindS},
	},
}

var pkAndSKTable = TableDefinition{
	Name: "Test",
	KeyDefinitions: PrimaryKeyDefinition{
		PartitionKey: KeyDef{Name: "email", Kind: KeyKindS},
		SortKey:      KeyDef{Name: "kind#date", Kind: KeyKindS},
	},
}

func avS(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }
func avN(v string) types.AttributeValue { return &types.AttributeValueMemberN{Value: v} }

func TestIndexPrimaryKey(t *testing.T) {
	byID := PrimaryIndexDefinition{Table: pkOnlyTable, PartitionKeyer: CopyKeyer("id")}
	byEmail := PrimaryIndexDefinition{
		Table:          pkAndSKTable,
		PartitionKeyer: CopyKeyer("email"),
		SortKeyer:      JoinKeyer("#", "kind", "meta.date"),
	}

	tests := []struct {
		name     string
		index    PrimaryIndexDefinition
		doc      map[string]types.AttributeValue
		wantPart any
		wantSort any
		wantErr  error
	}{
		{
			name:     "copied partition ignores other attributes",
			index:    byID,
			doc:      map[string]types.AttributeValue{"id": avS("123"), "title": avS("x")},
			wantPart: "123",
		},
		{
			name:  "composite sort key joins nested values",
			index: byEmail,
			doc: map[string]types.AttributeValue{
				"email": avS("a@b.c"),
				"kind":  avN("3"),
				"meta":  &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{"date": avS("2024-01-01")}},
			},
			wantPart: "a@b.c",
			wantSort: "3#2024-01-01",
		},
		{
			name:    "missing composite field",
			index:   byEmail,
			doc:     map[string]types.AttributeValue{"email": avS("a@b.c"), "kind": avN("3")},
			wantErr: ErrMissingKeyField,
		},
		{
			name:    "partition kind mismatch",
			index:   byID,
			doc:     map[string]types.AttributeValue{"id": avN("1")},
			wantErr: errAny,
		},
		{
			name:    "sort key without keyer",
			index:   PrimaryIndexDefinition{Table: pkAndSKTable, PartitionKeyer: CopyKeyer("email")},
			doc:     map[string]types.AttributeValue{"email": avS("a@b.c")},
			wantErr: errAny,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pk, err := tt.index.PrimaryKey(tt.doc)
			if tt.wantErr != nil {
				require.Error(t, err)
				if tt.wantErr != errAny {
					require.ErrorIs(t, err, tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.index.Table.KeyDefinitions, pk.Definition)
			require.Equal(t, tt.wantPart, pk.Values.PartitionKey)
			require.Equal(t, tt.wantSort, pk.Values.SortKey)
		})
	}
}

func TestPrimaryKeyDDB(t *testing.T) {
	key := PrimaryKey{
		Definition: pkAndSKTable.KeyDefinitions,
		Values:     PrimaryKeyValues{PartitionKey: "a@b.c", SortKey: "3#2024"},
	}
	av, err := key.DDB()
	require.NoError(t, err)
	require.Equal(t, map[string]types.AttributeValue{
		"email":     &types.AttributeValueMemberS{Value: "a@b.c"},
		"kind#date": &types.AttributeValueMemberS{Value: "3#2024"},
	}, av)

	numeric := PrimaryKey{
		Definition: PrimaryKeyDefinition{PartitionKey: KeyDef{Name: "n", Kind: KeyKindN}},
		Values:     PrimaryKeyValues{PartitionKey: "42"},
	}
	av, err = numeric.DDB()
	require.NoError(t, err)
	require.Equal(t, &types.AttributeValueMemberN{Value: "42"}, av["n"])

	_, err = PrimaryKey{Definition: pkAndSKTable.KeyDefinitions, Values: PrimaryKeyValues{PartitionKey: "a"}}.DDB()
	require.Error(t, err, "missing sort key value")
}
