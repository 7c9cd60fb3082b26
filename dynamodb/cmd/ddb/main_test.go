package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acksell/ddbkeys/dynamodb/schema"
	"github.com/acksell/ddbkeys/dynamodb/table"
)

const todoSchema = `
type Todo @model {
  owner: ID! @primaryKey(sortKeyFields: ["createdAt"])
  createdAt: AWSDateTime!
  projectId: ID! @index(name: "byProject", queryField: "todosByProject")
  title: String
}
`

func init() {
	color.NoColor = true
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestFindConfigFile(t *testing.T) {
	root := t.TempDir()
	want := writeFile(t, filepath.Join(root, configFileName), "schema: schema.graphql\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	assert.Equal(t, want, findConfigFile(nested))
	assert.Equal(t, want, findConfigFile(root))
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, filepath.Join(dir, configFileName), `
schema: api/schema.graphql
out: build
region: eu-north-1
compiler:
  billingMode: PAY_PER_REQUEST
  deltaSync:
    enabled: true
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "api", "schema.graphql"), cfg.Schema)
	assert.Equal(t, filepath.Join(dir, "build"), cfg.Out)
	assert.Equal(t, "eu-north-1", cfg.Region)
	assert.Equal(t, "PAY_PER_REQUEST", cfg.Compiler.BillingMode)
	assert.True(t, cfg.Compiler.DeltaSync.Enabled)
	assert.Equal(t, 30, cfg.Compiler.DeltaSync.WindowMinutes)
	assert.True(t, cfg.Compiler.EnableAutoIndexQueryNames)

	t.Run("defaults without a file", func(t *testing.T) {
		t.Setenv("DDB_ENDPOINT", "http://localhost:8000")
		cfg, err := LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, ".", cfg.Out)
		assert.Equal(t, "http://localhost:8000", cfg.Endpoint)
	})

	t.Run("invalid compiler settings", func(t *testing.T) {
		bad := writeFile(t, filepath.Join(t.TempDir(), configFileName), "compiler:\n  billingMode: ON_DEMAND\n")
		_, err := LoadConfig(bad)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "BillingMode")
	})
}

func TestGen(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, filepath.Join(dir, configFileName), "schema: schema.graphql\nout: build\n")
	writeFile(t, filepath.Join(dir, "schema.graphql"), todoSchema)
	out := filepath.Join(dir, "build")

	t.Run("dry run writes nothing", func(t *testing.T) {
		stdout, err := run(t, "gen", "--config", cfgPath, "--dry-run", "--log-level", "error")
		require.NoError(t, err)
		assert.Contains(t, stdout, "would write "+filepath.Join(out, schema.FileName))
		assert.NoDirExists(t, out)
	})

	t.Run("writes schema and resolvers", func(t *testing.T) {
		stdout, err := run(t, "gen", "--config", cfgPath, "--log-level", "error")
		require.NoError(t, err)
		assert.Contains(t, stdout, "wrote "+filepath.Join(out, graphqlFileName))

		sdl, err := os.ReadFile(filepath.Join(out, graphqlFileName))
		require.NoError(t, err)
		assert.Contains(t, string(sdl), "todosByProject")

		s, err := schema.Load(filepath.Join(out, schema.FileName))
		require.NoError(t, err)
		require.Len(t, s.Tables, 1)
		assert.Equal(t, "Todo", s.Tables[0].Name)
		require.Len(t, s.Tables[0].GSIs, 1)
		assert.Equal(t, "byProject", s.Tables[0].GSIs[0].Name)

		templates, err := filepath.Glob(filepath.Join(out, resolverDir, "*.req.vtl"))
		require.NoError(t, err)
		assert.NotEmpty(t, templates)
	})

	t.Run("flag overrides config", func(t *testing.T) {
		other := filepath.Join(t.TempDir(), "elsewhere")
		_, err := run(t, "gen", "--config", cfgPath, "--out", other, "--log-level", "error")
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(other, schema.FileName))
	})

	t.Run("invalid schema", func(t *testing.T) {
		bad := writeFile(t, filepath.Join(t.TempDir(), "bad.graphql"), `
type Test @model {
  id: ID!
  email: String! @index(name: "Canary/$")
}`)
		_, err := run(t, "gen", "--config", cfgPath, "--schema", bad, "--dry-run", "--log-level", "error")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "transform stage")
	})
}

type fakeAdmin struct {
	tables map[string]*dynamodb.CreateTableInput
}

func (f *fakeAdmin) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.tables[aws.ToString(in.TableName)] = in
	return &dynamodb.CreateTableOutput{}, nil
}

func (f *fakeAdmin) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if _, ok := f.tables[aws.ToString(in.TableName)]; !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("not found")}
	}
	return &dynamodb.DescribeTableOutput{}, nil
}

func TestApplyTables(t *testing.T) {
	dir := t.TempDir()
	a := &app{cfg: defaultFileConfig(), log: zerolog.Nop()}
	defs, err := a.tableDefinitions(writeFile(t, filepath.Join(dir, "schema.graphql"), todoSchema))
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, table.KeyDef{Name: "createdAt", Kind: table.KeyKindS}, defs[0].KeyDefinitions.SortKey)

	admin := &fakeAdmin{tables: map[string]*dynamodb.CreateTableInput{}}
	var out bytes.Buffer
	require.NoError(t, a.ensureTables(context.Background(), &out, admin, defs))
	assert.Contains(t, out.String(), "created Todo")
	in := admin.tables["Todo"]
	require.NotNil(t, in)
	require.Len(t, in.GlobalSecondaryIndexes, 1)
	assert.Equal(t, "byProject", aws.ToString(in.GlobalSecondaryIndexes[0].IndexName))

	out.Reset()
	require.NoError(t, a.ensureTables(context.Background(), &out, admin, defs))
	assert.Contains(t, out.String(), "exists")
	assert.NotContains(t, out.String(), "created")
}

func TestApplyDiscoversSchemaFiles(t *testing.T) {
	dir := t.TempDir()
	a := &app{cfg: defaultFileConfig(), log: zerolog.Nop()}
	defs, err := a.tableDefinitions(writeFile(t, filepath.Join(dir, "schema.graphql"), todoSchema))
	require.NoError(t, err)

	s := schema.Schema{Tables: []schema.Table{schema.FromTable(defs[0], nil)}}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "svc", "todo"), 0o755))
	require.NoError(t, schema.Write(filepath.Join(dir, "svc", "todo", schema.FileName), s))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules", "x"), 0o755))
	require.NoError(t, schema.Write(filepath.Join(dir, "node_modules", "x", schema.FileName), s))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	found, err := a.tableDefinitions("")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Todo", found[0].Name)
	require.Len(t, found[0].GSIs, 1)
	assert.Equal(t, "byProject", found[0].GSIs[0].Name)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version", "--config", writeFile(t, filepath.Join(t.TempDir(), configFileName), "{}\n"))
	require.NoError(t, err)
	assert.Equal(t, "ddb version 0.1.0\n", out)
}
