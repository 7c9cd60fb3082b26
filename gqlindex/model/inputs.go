package model

import (
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/acksell/ddbkeys/gqlindex/naming"
	"github.com/acksell/ddbkeys/graphql/sdl"
)

func (c *Compiler) addInputs(doc *sdl.Document, m *Model) error {
	fields := dataFields(doc, m.Def)

	create := &ast.Definition{Kind: ast.InputObject, Name: naming.CreateInput(m.Name)}
	update := &ast.Definition{Kind: ast.InputObject, Name: naming.UpdateInput(m.Name)}
	for _, f := range fields {
		if f.Name == idField {
			continue
		}
		if m.IsGenerated(f.Name) {
			continue
		}
		create.Fields = append(create.Fields, sdl.InputField(f.Name, f.Type))
		update.Fields = append(update.Fields, sdl.InputField(f.Name, sdl.Nullable(f.Type)))
	}
	// id is generated on create when omitted.
	create.Fields = append(ast.FieldList{sdl.InputField(idField, sdl.Named("ID"))}, create.Fields...)
	update.Fields = append(ast.FieldList{sdl.InputField(idField, sdl.NonNullNamed("ID"))}, update.Fields...)
	del := &ast.Definition{
		Kind:   ast.InputObject,
		Name:   naming.DeleteInput(m.Name),
		Fields: ast.FieldList{sdl.InputField(idField, sdl.NonNullNamed("ID"))},
	}

	for _, def := range []*ast.Definition{create, update, del} {
		if err := doc.AddInput(def); err != nil {
			return err
		}
	}
	if err := doc.AddInput(predicateInput(doc, naming.FilterInput(m.Name), fields)); err != nil {
		return err
	}
	return doc.AddInput(predicateInput(doc, naming.ConditionInput(m.Name), fields))
}

// dataFields returns the fields of def whose type is a scalar or enum, or a
// list of them. Relation fields belong to other compilers.
func dataFields(doc *sdl.Document, def *ast.Definition) []*ast.FieldDefinition {
	var out []*ast.FieldDefinition
	for _, f := range def.Fields {
		base := f.Type.Name()
		if doc.IsScalar(base) || doc.IsEnum(base) {
			out = append(out, f)
		}
	}
	return out
}

// predicateInput builds a filter or condition input: one operator input per
// non-list field plus and/or/not combinators.
func predicateInput(doc *sdl.Document, name string, fields []*ast.FieldDefinition) *ast.Definition {
	def := &ast.Definition{Kind: ast.InputObject, Name: name}
	for _, f := range fields {
		if sdl.IsList(f.Type) {
			continue
		}
		def.Fields = append(def.Fields, sdl.InputField(f.Name, sdl.Named(scalarInput(doc, f.Type.Name()))))
	}
	def.Fields = append(def.Fields,
		sdl.InputField("and", sdl.ListOf(sdl.Named(name))),
		sdl.InputField("or", sdl.ListOf(sdl.Named(name))),
		sdl.InputField("not", sdl.Named(name)),
	)
	return def
}

var numericScalars = map[string]bool{"Int": true, "Float": true, "AWSTimestamp": true}

// scalarInput returns the operator input for base, adding it on first use.
func scalarInput(doc *sdl.Document, base string) string {
	name := "Model" + base + "Input"
	if doc.HasType(name) {
		return name
	}
	t := sdl.Named(base)
	def := &ast.Definition{Kind: ast.InputObject, Name: name}
	add := func(names ...string) {
		for _, n := range names {
			def.Fields = append(def.Fields, sdl.InputField(n, t))
		}
	}
	switch {
	case doc.IsEnum(base):
		add("eq", "ne")
	case base == "Boolean":
		add("ne", "eq")
		def.Fields = append(def.Fields, sdl.InputField("attributeExists", sdl.Named("Boolean")))
	case numericScalars[base]:
		add("ne", "eq", "le", "lt", "ge", "gt")
		def.Fields = append(def.Fields,
			sdl.InputField("between", sdl.ListOf(t)),
			sdl.InputField("attributeExists", sdl.Named("Boolean")),
		)
	default:
		add("ne", "eq", "le", "lt", "ge", "gt", "contains", "notContains")
		def.Fields = append(def.Fields,
			sdl.InputField("between", sdl.ListOf(t)),
			sdl.InputField("beginsWith", t),
			sdl.InputField("attributeExists", sdl.Named("Boolean")),
		)
	}
	doc.PutType(def)
	return name
}
