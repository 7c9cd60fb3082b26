package directive

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acksell/ddbkeys/graphql/sdl"
)

var defaultOpts = Options{EnableAutoIndexQueryNames: true}

func collect(t *testing.T, src string, opts Options) ([]*ModelKeys, error) {
	t.Helper()
	doc, err := sdl.Parse("schema.graphql", src)
	require.NoError(t, err)
	return Collect(doc, opts)
}

func TestResolveIndexDefaults(t *testing.T) {
	keys, err := collect(t, `
type Test @model {
  id: ID!
  email: String! @index(name: "GSI", sortKeyFields: ["kind", "date"], queryField: "listByEmailKindDate")
  kind: Int!
  date: AWSDateTime!
}
type Moss @model {
  id: ID!
  treeId: ID! @index
  name: String @index(sortKeyFields: "treeId", queryField: null)
}`, defaultOpts)
	require.NoError(t, err)
	require.Len(t, keys, 2)

	test := keys[0]
	assert.True(t, test.Primary.Implicit)
	assert.Equal(t, "id", test.Primary.Field.Name)
	require.Len(t, test.Indexes, 1)
	gsi := test.Indexes[0]
	assert.Equal(t, "GSI", gsi.Name)
	assert.Equal(t, "listByEmailKindDate", gsi.QueryField)
	assert.Equal(t, []string{"kind", "date"}, gsi.SortKeyFields)
	require.Len(t, gsi.SortKey, 2)
	assert.Equal(t, "Int", gsi.SortKey[0].Base)
	assert.Equal(t, "AWSDateTime", gsi.SortKey[1].Base)
	assert.Equal(t, "id", gsi.PrimaryKeyField.Name)
	assert.False(t, gsi.SharesPartition())

	moss := keys[1]
	require.Len(t, moss.Indexes, 2)
	assert.Equal(t, "mossesByTreeId", moss.Indexes[0].Name)
	assert.Equal(t, "mossesByTreeId", moss.Indexes[0].QueryField)
	assert.Equal(t, []string{}, moss.Indexes[0].SortKeyFields)
	assert.Equal(t, "mossesByNameAndTreeId", moss.Indexes[1].Name)
	assert.Empty(t, moss.Indexes[1].QueryField, "explicit null suppresses the query field")
	assert.Equal(t, []string{"treeId"}, moss.Indexes[1].SortKeyFields, "scalar sortKeyFields becomes a list")
}

func TestQueryFieldToggle(t *testing.T) {
	src := `
type Post @model {
  id: ID!
  blogId: ID! @index
  authorId: ID! @index(queryField: "postsByAuthor")
}`
	keys, err := collect(t, src, Options{})
	require.NoError(t, err)
	assert.Empty(t, keys[0].Indexes[0].QueryField, "omitted with toggle off")
	assert.Equal(t, "postsByAuthor", keys[0].Indexes[1].QueryField, "explicit value kept")
	assert.Equal(t, "postsByBlogId", keys[0].Indexes[0].Name, "name is generated regardless")
}

func TestPrimaryKey(t *testing.T) {
	keys, err := collect(t, `
enum Kind { A B }
type Order @model {
  customerId: ID! @primaryKey(sortKeyFields: ["kind", "createdAt"])
  kind: Kind!
  createdAt: AWSDateTime!
  total: Float @index(sortKeyFields: ["createdAt"])
}`, defaultOpts)
	require.NoError(t, err)
	pk := keys[0].Primary
	assert.False(t, pk.Implicit)
	assert.Equal(t, "customerId", pk.Field.Name)
	assert.True(t, pk.IsComposite())
	assert.True(t, pk.SortKey[0].IsEnum)
	assert.Equal(t, "customerId", keys[0].Indexes[0].PrimaryKeyField.Name)
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		opts     Options
		wantErr  error
		wantKind ErrorKind
	}{
		{
			name:     "invalid name format",
			src:      `type T @model { id: ID! email: String @index(name: "Canary/$") }`,
			wantErr:  ErrInvalidIndexName,
			wantKind: KindStructural,
		},
		{
			name:    "invalid name on non-model is still a name error",
			src:     `type T { email: String @index(name: "Canary/$") }`,
			wantErr: ErrInvalidIndexName,
		},
		{
			name:    "explicit null name",
			src:     `type T @model { id: ID! email: String @index(name: null) }`,
			wantErr: ErrNullIndexName,
		},
		{
			name:    "not a model",
			src:     `type T { id: ID! email: String @index }`,
			wantErr: ErrNotModel,
		},
		{
			name:    "primary key not a model",
			src:     `type T { id: ID! @primaryKey }`,
			wantErr: ErrNotModel,
		},
		{
			name:    "unknown sort field",
			src:     `type T @model { id: ID! email: String @index(sortKeyFields: ["nope"]) }`,
			wantErr: ErrUnknownField,
		},
		{
			name:    "self reference",
			src:     `type T @model { id: ID! email: String @index(sortKeyFields: ["email"]) }`,
			wantErr: ErrSelfReference,
		},
		{
			name:    "list key",
			src:     `type T @model { id: ID! tags: [String] @index }`,
			wantErr: ErrListKey,
		},
		{
			name:    "list sort key",
			src:     `type T @model { id: ID! email: String @index(sortKeyFields: ["tags"]) tags: [String] }`,
			wantErr: ErrListKey,
		},
		{
			name:    "object key",
			src:     `type U { id: ID! } type T @model { id: ID! owner: U @index }`,
			wantErr: ErrNonScalarKey,
		},
		{
			name:    "nullable primary key",
			src:     `type T @model { id: ID @primaryKey }`,
			wantErr: ErrNullablePartitionKey,
		},
		{
			name:    "duplicate index name",
			src:     `type T @model { id: ID! a: String @index(name: "byX") b: String @index(name: "byX") }`,
			wantErr: ErrDuplicateIndexName,
		},
		{
			name:    "duplicate primary key",
			src:     `type T @model { id: ID! @primaryKey other: ID! @primaryKey }`,
			wantErr: ErrDuplicatePrimaryKey,
		},
		{
			name:    "unknown argument",
			src:     `type T @model { id: ID! a: String @index(foo: "bar") }`,
			wantErr: ErrInvalidArgument,
		},
		{
			name:    "sortKeyFields of wrong type",
			src:     `type T @model { id: ID! a: String @index(sortKeyFields: 3) }`,
			wantErr: ErrInvalidArgument,
		},
		{
			name:    "duplicate sort field",
			src:     `type T @model { id: ID! a: String @index(sortKeyFields: ["b", "b"]) b: String }`,
			wantErr: ErrDuplicateSortKeyField,
		},
		{
			name:     "local index without any sort key",
			src:      `type T @model { id: ID! @primaryKey @index(name: "index1") }`,
			wantErr:  ErrLocalIndexWithoutSortKey,
			wantKind: KindEligibility,
		},
		{
			name:     "implicit id key shared without sort key",
			src:      `type T @model { id: ID! @index(name: "byId") }`,
			wantErr:  ErrLocalIndexWithoutSortKey,
			wantKind: KindEligibility,
		},
		{
			name:     "local index on a table without sort key",
			src:      `type T @model { id: ID! @primaryKey @index(name: "byTitle", sortKeyFields: ["title"]) title: String }`,
			wantErr:  ErrLocalIndexWithoutSortKey,
			wantKind: KindEligibility,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := collect(t, tt.src, tt.opts)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			var de *Error
			require.True(t, errors.As(err, &de))
			assert.Equal(t, "T", de.Type)
			assert.Contains(t, err.Error(), "schema.graphql:")
			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, de.Kind)
			}
		})
	}
}

func TestEligibility(t *testing.T) {
	t.Run("shared partition with primary sort key is allowed", func(t *testing.T) {
		keys, err := collect(t, `
type Post @model {
  blogId: ID! @primaryKey(sortKeyFields: ["createdAt"]) @index(name: "byRating", sortKeyFields: ["rating"]) @index(name: "byBlog")
  createdAt: AWSDateTime!
  rating: Int
}`, defaultOpts)
		require.NoError(t, err)
		require.Len(t, keys[0].Indexes, 2)
		assert.True(t, keys[0].Indexes[0].SharesPartition())
	})
	t.Run("global placement allows a sort key on a partition-only table", func(t *testing.T) {
		_, err := collect(t, `
type T @model { id: ID! @primaryKey @index(name: "byTitle", sortKeyFields: ["title"]) title: String }`,
			Options{SecondaryKeyAsGSI: true})
		require.NoError(t, err)
	})
	t.Run("no sort key anywhere is rejected even with global placement", func(t *testing.T) {
		_, err := collect(t, `type T @model { id: ID! @primaryKey @index(name: "index1") }`, Options{SecondaryKeyAsGSI: true})
		require.ErrorIs(t, err, ErrLocalIndexWithoutSortKey)
		assert.True(t, IsEligibility(err))
	})
}

func TestResolveIsIdempotent(t *testing.T) {
	src := `type Moss @model { id: ID! treeId: ID! @index(sortKeyFields: ["name", "size"]) name: String size: Int }`
	first, err := collect(t, src, defaultOpts)
	require.NoError(t, err)
	second, err := collect(t, src, defaultOpts)
	require.NoError(t, err)
	assert.Equal(t, first[0].Indexes[0].Name, second[0].Indexes[0].Name)
	assert.Equal(t, first[0].Indexes[0].QueryField, second[0].Indexes[0].QueryField)
	assert.Equal(t, "mossesByTreeIdAndNameAndSize", first[0].Indexes[0].Name)
}
