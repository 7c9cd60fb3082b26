package placement

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acksell/ddbkeys/dynamodb/table"
	"github.com/acksell/ddbkeys/gqlindex/directive"
	"github.com/acksell/ddbkeys/gqlindex/keyschema"
	"github.com/acksell/ddbkeys/graphql/sdl"
)

func keys(t *testing.T, src string, opts directive.Options) *directive.ModelKeys {
	t.Helper()
	doc, err := sdl.Parse("schema.graphql", src)
	require.NoError(t, err)
	all, err := directive.Collect(doc, opts)
	require.NoError(t, err)
	require.Len(t, all, 1)
	return all[0]
}

func place(t *testing.T, mk *directive.ModelKeys, opts Options) (*table.TableDefinition, []Kind) {
	t.Helper()
	def := &table.TableDefinition{Name: mk.Model.Name, BillingMode: table.BillingProvisioned}
	require.NoError(t, ApplyPrimaryKey(def, keyschema.Derive(mk.Primary)))
	var kinds []Kind
	for _, idx := range mk.Indexes {
		kind, err := Place(def, idx, mk.Primary, opts)
		require.NoError(t, err)
		kinds = append(kinds, kind)
	}
	return def, kinds
}

const postSchema = `
type Post @model {
  blogId: ID! @primaryKey(sortKeyFields: ["createdAt"]) @index(name: "byRating", sortKeyFields: ["rating"]) @index(name: "byBlog")
  createdAt: AWSDateTime!
  rating: Int
  authorId: ID! @index(name: "byAuthor", sortKeyFields: ["createdAt"])
}`

func TestPlace(t *testing.T) {
	mk := keys(t, postSchema, directive.Options{})
	def, kinds := place(t, mk, Options{Provisioning: table.Provisioning{Read: 2, Write: 3}})
	assert.Equal(t, []Kind{Local, Global, Global}, kinds)

	require.Len(t, def.LSIs, 1)
	assert.Equal(t, "byRating", def.LSIs[0].Name)
	assert.Equal(t, "blogId", def.LSIs[0].KeyDefinitions.PartitionKey.Name)
	assert.Equal(t, table.KeyDef{Name: "rating", Kind: table.KeyKindN}, def.LSIs[0].KeyDefinitions.SortKey)

	require.Len(t, def.GSIs, 2)
	assert.Equal(t, "byBlog", def.GSIs[0].Name)
	assert.False(t, def.GSIs[0].KeyDefinitions.HasSortKey())
	assert.Equal(t, &table.Provisioning{Read: 2, Write: 3}, def.GSIs[1].Provisioning)

	in := def.CreateTableInput()
	require.Len(t, in.GlobalSecondaryIndexes, 2)
	assert.Equal(t, int64(2), aws.ToInt64(in.GlobalSecondaryIndexes[1].ProvisionedThroughput.ReadCapacityUnits))
	require.Len(t, in.LocalSecondaryIndexes, 1)
	assert.Nil(t, in.LocalSecondaryIndexes[0].ProvisionedThroughput)
}

func TestForceGlobal(t *testing.T) {
	mk := keys(t, postSchema, directive.Options{SecondaryKeyAsGSI: true})
	def, kinds := place(t, mk, Options{SecondaryKeyAsGSI: true})
	assert.Equal(t, []Kind{Global, Global, Global}, kinds)
	assert.Empty(t, def.LSIs)
}

func TestCompositeGlobalIndex(t *testing.T) {
	mk := keys(t, `
type Test @model {
  id: ID!
  email: String! @index(name: "GSI", sortKeyFields: ["kind", "date"])
  kind: Int!
  date: AWSDateTime!
}`, directive.Options{})
	def, kinds := place(t, mk, Options{})
	assert.Equal(t, []Kind{Global}, kinds)
	assert.Equal(t, "kind#date", def.GSIs[0].KeyDefinitions.SortKey.Name)
	assert.Nil(t, def.GSIs[0].Provisioning, "zero provisioning falls back to the table default")

	var attrs []string
	for _, a := range def.AttributeDefinitions() {
		attrs = append(attrs, aws.ToString(a.AttributeName))
	}
	assert.Equal(t, []string{"id", "email", "kind#date"}, attrs)
}

func TestPayPerRequestDropsProvisioning(t *testing.T) {
	mk := keys(t, `type Moss @model { id: ID! treeId: ID! @index }`, directive.Options{})
	def := &table.TableDefinition{Name: "Moss", BillingMode: table.BillingPayPerRequest}
	require.NoError(t, ApplyPrimaryKey(def, keyschema.Derive(mk.Primary)))
	_, err := Place(def, mk.Indexes[0], mk.Primary, Options{Provisioning: table.Provisioning{Read: 1, Write: 1}})
	require.NoError(t, err)
	assert.Nil(t, def.GSIs[0].Provisioning)
	assert.Equal(t, "mossesByTreeId", def.GSIs[0].Name)

	require.Error(t, ApplyPrimaryKey(def, keyschema.Derive(mk.Primary)), "key is fixed once indexes exist")
}

func TestLocalIndexLimit(t *testing.T) {
	src := `type T @model {
  pk: ID! @primaryKey(sortKeyFields: ["s0"])
    @index(name: "i1", sortKeyFields: ["s1"]) @index(name: "i2", sortKeyFields: ["s2"])
    @index(name: "i3", sortKeyFields: ["s3"]) @index(name: "i4", sortKeyFields: ["s4"])
    @index(name: "i5", sortKeyFields: ["s5"]) @index(name: "i6", sortKeyFields: ["s6"])
  s0: String s1: String s2: String s3: String s4: String s5: String s6: String
}`
	mk := keys(t, src, directive.Options{})
	def := &table.TableDefinition{Name: "T"}
	require.NoError(t, ApplyPrimaryKey(def, keyschema.Derive(mk.Primary)))
	var err error
	for _, idx := range mk.Indexes {
		if _, err = Place(def, idx, mk.Primary, Options{}); err != nil {
			break
		}
	}
	require.ErrorIs(t, err, table.ErrIndexLimit)
	assert.Len(t, def.LSIs, table.MaxLSIs)
}
