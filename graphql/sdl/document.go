// Package sdl wraps a parsed GraphQL schema document with the read and write
// operations the directive compilers need. Compilers share one Document per
// run and mutate it in place; it is not safe for concurrent use.
package sdl

import (
	"bytes"
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/parser"
)

const (
	QueryType    = "Query"
	MutationType = "Mutation"
)

// Document is the working schema of one compilation run.
type Document struct {
	doc *ast.SchemaDocument
}

// Parse parses SDL source. name is used in error positions.
func Parse(name, src string) (*Document, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: name, Input: src})
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return &Document{doc: doc}, nil
}

// New returns an empty document.
func New() *Document {
	return &Document{doc: &ast.SchemaDocument{}}
}

// GetType returns the named definition, or nil.
func (d *Document) GetType(name string) *ast.Definition {
	return d.doc.Definitions.ForName(name)
}

func (d *Document) HasType(name string) bool {
	return d.GetType(name) != nil
}

// PutType adds def, replacing any existing definition of the same name in place.
func (d *Document) PutType(def *ast.Definition) {
	for i, existing := range d.doc.Definitions {
		if existing.Name == def.Name {
			d.doc.Definitions[i] = def
			return
		}
	}
	d.doc.Definitions = append(d.doc.Definitions, def)
}

// UpdateObject replaces an existing object or input object.
func (d *Document) UpdateObject(def *ast.Definition) error {
	existing := d.GetType(def.Name)
	if existing == nil {
		return fmt.Errorf("type %q does not exist", def.Name)
	}
	if existing.Kind != def.Kind {
		return fmt.Errorf("type %q is %s, cannot update as %s", def.Name, existing.Kind, def.Kind)
	}
	d.PutType(def)
	return nil
}

func (d *Document) add(kind ast.DefinitionKind, def *ast.Definition) error {
	if def.Kind != kind {
		return fmt.Errorf("type %q is %s, expected %s", def.Name, def.Kind, kind)
	}
	if d.HasType(def.Name) {
		return fmt.Errorf("type %q already exists", def.Name)
	}
	d.doc.Definitions = append(d.doc.Definitions, def)
	return nil
}

func (d *Document) AddInput(def *ast.Definition) error  { return d.add(ast.InputObject, def) }
func (d *Document) AddObject(def *ast.Definition) error { return d.add(ast.Object, def) }
func (d *Document) AddEnum(def *ast.Definition) error   { return d.add(ast.Enum, def) }

// AddQueryFields adds fields to the Query type, creating it if needed.
func (d *Document) AddQueryFields(fields ...*ast.FieldDefinition) error {
	return d.addRootFields(QueryType, fields)
}

// AddMutationFields adds fields to the Mutation type, creating it if needed.
func (d *Document) AddMutationFields(fields ...*ast.FieldDefinition) error {
	return d.addRootFields(MutationType, fields)
}

func (d *Document) addRootFields(root string, fields []*ast.FieldDefinition) error {
	def := d.GetType(root)
	if def == nil {
		def = &ast.Definition{Kind: ast.Object, Name: root}
		d.doc.Definitions = append(d.doc.Definitions, def)
	}
	for _, f := range fields {
		if def.Fields.ForName(f.Name) != nil {
			return fmt.Errorf("field %s.%s already exists", root, f.Name)
		}
		def.Fields = append(def.Fields, f)
	}
	return nil
}

// Field returns typeName.fieldName, or nil.
func (d *Document) Field(typeName, fieldName string) *ast.FieldDefinition {
	def := d.GetType(typeName)
	if def == nil {
		return nil
	}
	return def.Fields.ForName(fieldName)
}

// Objects returns the object type definitions in document order.
func (d *Document) Objects() []*ast.Definition {
	var objs []*ast.Definition
	for _, def := range d.doc.Definitions {
		if def.Kind == ast.Object {
			objs = append(objs, def)
		}
	}
	return objs
}

// Print formats the document as SDL.
func (d *Document) Print() string {
	var buf bytes.Buffer
	formatter.NewFormatter(&buf, formatter.WithIndent("  ")).FormatSchemaDocument(d.doc)
	return buf.String()
}
