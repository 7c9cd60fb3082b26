// Package model is a small model compiler that runs before the key
// directives. For every @model type it adds the CRUD root fields, their input
// types and a base table keyed on id. The key directive compiler then rewrites
// what it produced.
package model

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/acksell/ddbkeys/dynamodb/table"
	"github.com/acksell/ddbkeys/gqlindex/naming"
	"github.com/acksell/ddbkeys/graphql/sdl"
)

// Backend is the storage a model's resolvers talk to.
type Backend string

const (
	BackendDynamoDB Backend = "dynamodb"
	BackendSQL      Backend = "sql"
)

// Root field operations generated per model.
const (
	OpGet    = "get"
	OpList   = "list"
	OpSync   = "sync"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

const (
	idField        = "id"
	createdAtField = "createdAt"
	updatedAtField = "updatedAt"
)

type Options struct {
	BillingMode  table.BillingMode
	Provisioning table.Provisioning
	TableSuffix  string
	SyncEnabled  bool
	// Backends maps model names to their backend. Unlisted models use DynamoDB.
	Backends map[string]Backend
}

// Model is one compiled @model type.
type Model struct {
	Name    string
	Def     *ast.Definition
	Backend Backend
	Sync    bool
	// Generated lists the fields this compiler added to the type.
	Generated []string
	// Table is nil until Materialize runs, and stays nil for SQL models.
	Table *table.TableDefinition
}

// Field returns the root type and field name of one of the model's operations.
func (m *Model) Field(op string) (typeName, fieldName string) {
	switch op {
	case OpGet:
		return sdl.QueryType, naming.GetQuery(m.Name)
	case OpList:
		return sdl.QueryType, naming.ListQuery(m.Name)
	case OpSync:
		return sdl.QueryType, naming.SyncQuery(m.Name)
	case OpCreate:
		return sdl.MutationType, naming.CreateMutation(m.Name)
	case OpUpdate:
		return sdl.MutationType, naming.UpdateMutation(m.Name)
	case OpDelete:
		return sdl.MutationType, naming.DeleteMutation(m.Name)
	}
	panic(fmt.Sprintf("unknown model operation %q", op))
}

// Operations lists the root operations generated for the model, in emission order.
func (m *Model) Operations() []string {
	ops := []string{OpGet, OpList, OpCreate, OpUpdate, OpDelete}
	if m.Sync {
		ops = append(ops, OpSync)
	}
	return ops
}

// IsGenerated reports whether field was added by the model compiler.
func (m *Model) IsGenerated(field string) bool {
	for _, f := range m.Generated {
		if f == field {
			return true
		}
	}
	return false
}

type Compiler struct {
	opts Options
}

func NewCompiler(opts Options) *Compiler {
	return &Compiler{opts: opts}
}

// Transform adds the model fields, root fields and input types of every @model
// type to doc.
func (c *Compiler) Transform(doc *sdl.Document) ([]*Model, error) {
	if err := addSortDirection(doc); err != nil {
		return nil, err
	}
	var models []*Model
	for _, obj := range doc.Objects() {
		if !sdl.HasDirective(obj, "model") {
			continue
		}
		m := &Model{
			Name:    obj.Name,
			Def:     obj,
			Backend: c.backend(obj.Name),
			Sync:    c.opts.SyncEnabled,
		}
		addModelFields(m)
		if err := c.addInputs(doc, m); err != nil {
			return nil, fmt.Errorf("model %s: %w", m.Name, err)
		}
		if err := c.addRootFields(doc, m); err != nil {
			return nil, fmt.Errorf("model %s: %w", m.Name, err)
		}
		models = append(models, m)
	}
	return models, nil
}

func (c *Compiler) backend(model string) Backend {
	if b, ok := c.opts.Backends[model]; ok && b != "" {
		return b
	}
	return BackendDynamoDB
}

// Materialize creates the model's base table, keyed on id. SQL models have no
// table.
func (c *Compiler) Materialize(m *Model) *table.TableDefinition {
	if m.Backend == BackendSQL {
		return nil
	}
	name := m.Name
	if c.opts.TableSuffix != "" {
		name += "-" + c.opts.TableSuffix
	}
	def := &table.TableDefinition{
		Name: name,
		KeyDefinitions: table.PrimaryKeyDefinition{
			PartitionKey: table.KeyDef{Name: idField, Kind: table.KeyKindS},
		},
		BillingMode: c.opts.BillingMode,
	}
	if def.BillingMode == "" {
		def.BillingMode = table.BillingProvisioned
	}
	if def.BillingMode == table.BillingProvisioned {
		p := c.opts.Provisioning
		def.Provisioning = &p
	}
	m.Table = def
	return def
}

// addModelFields adds id and the timestamps to the type when it does not
// declare them. id is skipped when another field is the primary key.
func addModelFields(m *Model) {
	if m.Def.Fields.ForName(idField) == nil && !hasPrimaryKey(m.Def) {
		m.Def.Fields = append([]*ast.FieldDefinition{{Name: idField, Type: sdl.NonNullNamed("ID")}}, m.Def.Fields...)
		m.Generated = append(m.Generated, idField)
	}
	for _, name := range []string{createdAtField, updatedAtField} {
		if m.Def.Fields.ForName(name) == nil {
			m.Def.Fields = append(m.Def.Fields, &ast.FieldDefinition{Name: name, Type: sdl.NonNullNamed("AWSDateTime")})
			m.Generated = append(m.Generated, name)
		}
	}
}

func hasPrimaryKey(def *ast.Definition) bool {
	for _, f := range def.Fields {
		if f.Directives.ForName("primaryKey") != nil {
			return true
		}
	}
	return false
}

func addSortDirection(doc *sdl.Document) error {
	if doc.HasType(naming.SortDirectionEnum) {
		return nil
	}
	return doc.AddEnum(&ast.Definition{
		Kind: ast.Enum,
		Name: naming.SortDirectionEnum,
		EnumValues: ast.EnumValueList{
			{Name: "ASC"},
			{Name: "DESC"},
		},
	})
}

func (c *Compiler) addRootFields(doc *sdl.Document, m *Model) error {
	conn := naming.Connection(m.Name)
	if err := doc.AddObject(connection(m)); err != nil {
		return err
	}
	listArgs := ast.ArgumentDefinitionList{
		sdl.Arg("filter", sdl.Named(naming.FilterInput(m.Name))),
		sdl.Arg("limit", sdl.Named("Int")),
		sdl.Arg("nextToken", sdl.Named("String")),
	}
	queries := []*ast.FieldDefinition{
		{
			Name:      naming.GetQuery(m.Name),
			Arguments: ast.ArgumentDefinitionList{sdl.Arg(idField, sdl.NonNullNamed("ID"))},
			Type:      sdl.Named(m.Name),
		},
		{
			Name:      naming.ListQuery(m.Name),
			Arguments: listArgs,
			Type:      sdl.Named(conn),
		},
	}
	if m.Sync {
		syncArgs := append(append(ast.ArgumentDefinitionList{}, listArgs...), sdl.Arg("lastSync", sdl.Named("AWSTimestamp")))
		queries = append(queries, &ast.FieldDefinition{
			Name:      naming.SyncQuery(m.Name),
			Arguments: syncArgs,
			Type:      sdl.Named(conn),
		})
	}
	if err := doc.AddQueryFields(queries...); err != nil {
		return err
	}

	mutation := func(name, input string) *ast.FieldDefinition {
		return &ast.FieldDefinition{
			Name: name,
			Arguments: ast.ArgumentDefinitionList{
				sdl.Arg("input", sdl.NonNullNamed(input)),
				sdl.Arg("condition", sdl.Named(naming.ConditionInput(m.Name))),
			},
			Type: sdl.Named(m.Name),
		}
	}
	return doc.AddMutationFields(
		mutation(naming.CreateMutation(m.Name), naming.CreateInput(m.Name)),
		mutation(naming.UpdateMutation(m.Name), naming.UpdateInput(m.Name)),
		mutation(naming.DeleteMutation(m.Name), naming.DeleteInput(m.Name)),
	)
}

func connection(m *Model) *ast.Definition {
	def := &ast.Definition{
		Kind: ast.Object,
		Name: naming.Connection(m.Name),
		Fields: ast.FieldList{
			{Name: "items", Type: sdl.NonNull(sdl.ListOf(sdl.Named(m.Name)))},
			{Name: "nextToken", Type: sdl.Named("String")},
		},
	}
	if m.Sync {
		def.Fields = append(def.Fields, &ast.FieldDefinition{Name: "startedAt", Type: sdl.Named("AWSTimestamp")})
	}
	return def
}
