// Package augment rewrites the working schema for resolved key directives:
// key-condition inputs, get/list arguments, secondary index query fields and
// the key requirements of mutation inputs.
package augment

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/acksell/ddbkeys/dynamodb/keycond"
	"github.com/acksell/ddbkeys/dynamodb/table"
	"github.com/acksell/ddbkeys/gqlindex/directive"
	"github.com/acksell/ddbkeys/gqlindex/keyschema"
	"github.com/acksell/ddbkeys/gqlindex/model"
	"github.com/acksell/ddbkeys/gqlindex/naming"
	"github.com/acksell/ddbkeys/graphql/sdl"
)

// Primary applies an explicit @primaryKey to the model's generated fields
// and inputs. The implicit id key needs no rewrite beyond the condition input.
func Primary(doc *sdl.Document, m *model.Model, cfg *directive.PrimaryKeyConfig) error {
	if err := removeFromCondition(doc, m, cfg); err != nil {
		return err
	}
	if cfg.Implicit {
		return nil
	}
	sortArg, err := SortKeyCondition(doc, m.Name, "", cfg)
	if err != nil {
		return err
	}
	if err := rewriteGet(doc, m, cfg); err != nil {
		return err
	}
	if err := rewriteList(doc, m, cfg, sortArg); err != nil {
		return err
	}
	return rewriteMutationInputs(doc, m, cfg)
}

// Index adds the key-condition inputs of a secondary index and, unless it was
// suppressed, its query field.
func Index(doc *sdl.Document, m *model.Model, cfg *directive.IndexConfig) error {
	sortArg, err := SortKeyCondition(doc, m.Name, cfg.Name, &cfg.PrimaryKeyConfig)
	if err != nil {
		return err
	}
	if cfg.QueryField == "" {
		return nil
	}
	args := ast.ArgumentDefinitionList{sdl.Arg(cfg.Field.Name, sdl.NonNull(cfg.Field.Type))}
	if sortArg != nil {
		args = append(args, sortArg)
	}
	args = append(args,
		sdl.Arg("sortDirection", sdl.Named(naming.SortDirectionEnum)),
		sdl.Arg("filter", sdl.Named(naming.FilterInput(m.Name))),
		sdl.Arg("limit", sdl.Named("Int")),
		sdl.Arg("nextToken", sdl.Named("String")),
	)
	return doc.AddQueryFields(&ast.FieldDefinition{
		Name:      cfg.QueryField,
		Arguments: args,
		Type:      sdl.Named(naming.Connection(m.Name)),
	})
}

// SortKeyCondition ensures the condition input for the key's sort key exists
// and returns the argument that accepts it, or nil when the key has no sort key.
// Single sort keys share one input per scalar; composite keys get inputs
// namespaced by model and index.
func SortKeyCondition(doc *sdl.Document, modelName, indexName string, cfg *directive.PrimaryKeyConfig) (*ast.ArgumentDefinition, error) {
	switch len(cfg.SortKey) {
	case 0:
		return nil, nil
	case 1:
		name, err := keyConditionInput(doc, cfg.SortKey[0])
		if err != nil {
			return nil, err
		}
		return sdl.Arg(cfg.SortKey[0].Name, sdl.Named(name)), nil
	default:
		name, err := compositeKeyInputs(doc, modelName, indexName, cfg.SortKey)
		if err != nil {
			return nil, err
		}
		return sdl.Arg(naming.CompositeArgument(cfg.SortKeyFields), sdl.Named(name)), nil
	}
}

func keyConditionInput(doc *sdl.Document, sort directive.KeyField) (string, error) {
	base := sort.Base
	if sort.IsEnum {
		base = "String"
	}
	name := naming.KeyConditionInput(base)
	if doc.HasType(name) {
		return name, nil
	}
	t := sdl.Named(base)
	def := &ast.Definition{Kind: ast.InputObject, Name: name}
	for _, op := range keycond.Ops {
		switch op {
		case keycond.OpBetween:
			def.Fields = append(def.Fields, sdl.InputField(string(op), sdl.ListOf(t)))
		case keycond.OpBeginsWith:
			if keyschema.ScalarKind(base) == table.KeyKindS {
				def.Fields = append(def.Fields, sdl.InputField(string(op), t))
			}
		default:
			def.Fields = append(def.Fields, sdl.InputField(string(op), t))
		}
	}
	return name, doc.AddInput(def)
}

func compositeKeyInputs(doc *sdl.Document, modelName, indexName string, sortKey []directive.KeyField) (string, error) {
	keyInput := naming.CompositeKeyInput(modelName, indexName)
	condInput := naming.CompositeKeyConditionInput(modelName, indexName)
	if doc.HasType(condInput) {
		return condInput, nil
	}
	key := &ast.Definition{Kind: ast.InputObject, Name: keyInput}
	for _, f := range sortKey {
		key.Fields = append(key.Fields, sdl.InputField(f.Name, sdl.Named(f.Base)))
	}
	if err := doc.AddInput(key); err != nil {
		return "", err
	}
	cond := &ast.Definition{Kind: ast.InputObject, Name: condInput}
	for _, op := range keycond.Ops {
		t := sdl.Named(keyInput)
		if op == keycond.OpBetween {
			t = sdl.ListOf(t)
		}
		cond.Fields = append(cond.Fields, sdl.InputField(string(op), t))
	}
	return condInput, doc.AddInput(cond)
}

func rewriteGet(doc *sdl.Document, m *model.Model, cfg *directive.PrimaryKeyConfig) error {
	typ, name := m.Field(model.OpGet)
	get := doc.Field(typ, name)
	if get == nil {
		return fmt.Errorf("model %s has no %s query", m.Name, name)
	}
	args := ast.ArgumentDefinitionList{sdl.Arg(cfg.Field.Name, sdl.NonNull(cfg.Field.Type))}
	for _, f := range cfg.SortKey {
		args = append(args, sdl.Arg(f.Name, sdl.NonNull(f.Type)))
	}
	get.Arguments = args
	return nil
}

func rewriteList(doc *sdl.Document, m *model.Model, cfg *directive.PrimaryKeyConfig, sortArg *ast.ArgumentDefinition) error {
	typ, name := m.Field(model.OpList)
	list := doc.Field(typ, name)
	if list == nil {
		return fmt.Errorf("model %s has no %s query", m.Name, name)
	}
	args := ast.ArgumentDefinitionList{sdl.Arg(cfg.Field.Name, sdl.Nullable(cfg.Field.Type))}
	if sortArg != nil {
		args = append(args, sortArg)
	}
	for _, a := range list.Arguments {
		if args.ForName(a.Name) == nil {
			args = append(args, a)
		}
	}
	if args.ForName("sortDirection") == nil {
		args = append(args, sdl.Arg("sortDirection", sdl.Named(naming.SortDirectionEnum)))
	}
	list.Arguments = args
	return nil
}

// rewriteMutationInputs makes the key fields required on update and delete.
// A model without its own id field loses the generated id input.
func rewriteMutationInputs(doc *sdl.Document, m *model.Model, cfg *directive.PrimaryKeyConfig) error {
	keyFields := append([]directive.KeyField{cfg.Field}, cfg.SortKey...)
	dropID := m.Def.Fields.ForName("id") == nil

	create := doc.GetType(naming.CreateInput(m.Name))
	if create == nil {
		return fmt.Errorf("model %s has no create input", m.Name)
	}
	if dropID {
		create.Fields = without(create.Fields, "id")
	}

	for _, name := range []string{naming.UpdateInput(m.Name), naming.DeleteInput(m.Name)} {
		input := doc.GetType(name)
		if input == nil {
			return fmt.Errorf("model %s has no input %s", m.Name, name)
		}
		rest := input.Fields
		if dropID {
			rest = without(rest, "id")
		}
		var fields ast.FieldList
		for _, k := range keyFields {
			fields = append(fields, sdl.InputField(k.Name, sdl.NonNull(k.Type)))
			rest = without(rest, k.Name)
		}
		input.Fields = append(fields, rest...)
	}
	return nil
}

// removeFromCondition drops the key fields from the model's condition input.
// Keys address the item and cannot be re-asserted as a condition.
func removeFromCondition(doc *sdl.Document, m *model.Model, cfg *directive.PrimaryKeyConfig) error {
	cond := doc.GetType(naming.ConditionInput(m.Name))
	if cond == nil {
		return fmt.Errorf("model %s has no condition input", m.Name)
	}
	cond.Fields = without(cond.Fields, cfg.Field.Name)
	for _, f := range cfg.SortKeyFields {
		cond.Fields = without(cond.Fields, f)
	}
	return nil
}

func without(fields ast.FieldList, name string) ast.FieldList {
	out := fields[:0:0]
	for _, f := range fields {
		if f.Name != name {
			out = append(out, f)
		}
	}
	return out
}
