package directive

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/acksell/ddbkeys/gqlindex/naming"
	"github.com/acksell/ddbkeys/graphql/sdl"
)

// ResolvePrimaryKey decodes a @primaryKey occurrence. It does not touch the document.
func ResolvePrimaryKey(doc *sdl.Document, obj *ast.Definition, field *ast.FieldDefinition, dir *ast.Directive) (*PrimaryKeyConfig, error) {
	cfg := &PrimaryKeyConfig{
		Object:         obj,
		Field:          keyField(doc, field),
		ModelDirective: obj.Directives.ForName(Model),
		Directive:      dir,
	}
	for _, arg := range dir.Arguments {
		switch arg.Name {
		case "sortKeyFields":
			fields, err := sdl.StringList(arg.Value)
			if err != nil {
				return nil, structural(dir, obj.Name, field.Name, fmt.Errorf("%w: sortKeyFields: %v", ErrInvalidArgument, err))
			}
			cfg.SortKeyFields = fields
		default:
			return nil, structural(dir, obj.Name, field.Name, fmt.Errorf("%w: unknown argument %q", ErrInvalidArgument, arg.Name))
		}
	}
	if cfg.SortKeyFields == nil {
		cfg.SortKeyFields = []string{}
	}
	return cfg, nil
}

// ImplicitPrimaryKey is the key of a model without @primaryKey: its id field.
func ImplicitPrimaryKey(doc *sdl.Document, obj *ast.Definition) *PrimaryKeyConfig {
	field := obj.Fields.ForName(DefaultPrimaryKeyField)
	if field == nil {
		field = &ast.FieldDefinition{Name: DefaultPrimaryKeyField, Type: sdl.NonNullNamed("ID")}
	}
	return &PrimaryKeyConfig{
		Object:         obj,
		Field:          keyField(doc, field),
		SortKeyFields:  []string{},
		ModelDirective: obj.Directives.ForName(Model),
		Implicit:       true,
	}
}

// ResolveIndex decodes an @index occurrence and fills its defaults. The order
// matters: sortKeyFields first, since the generated name and query field are
// derived from them.
func ResolveIndex(doc *sdl.Document, obj *ast.Definition, field *ast.FieldDefinition, dir *ast.Directive, opts Options) (*IndexConfig, error) {
	cfg := &IndexConfig{
		PrimaryKeyConfig: PrimaryKeyConfig{
			Object:         obj,
			Field:          keyField(doc, field),
			ModelDirective: obj.Directives.ForName(Model),
			Directive:      dir,
		},
	}
	fail := func(err error) (*IndexConfig, error) {
		return nil, structural(dir, obj.Name, field.Name, err)
	}

	var nameArg, queryFieldArg *ast.Value
	for _, arg := range dir.Arguments {
		switch arg.Name {
		case "sortKeyFields":
			fields, err := sdl.StringList(arg.Value)
			if err != nil {
				return fail(fmt.Errorf("%w: sortKeyFields: %v", ErrInvalidArgument, err))
			}
			cfg.SortKeyFields = fields
		case "name":
			nameArg = arg.Value
		case "queryField":
			queryFieldArg = arg.Value
		default:
			return fail(fmt.Errorf("%w: unknown argument %q", ErrInvalidArgument, arg.Name))
		}
	}
	if cfg.SortKeyFields == nil {
		cfg.SortKeyFields = []string{}
	}

	switch {
	case nameArg == nil:
		cfg.Name = naming.QueryName(obj.Name, field.Name, cfg.SortKeyFields)
	case nameArg.Kind == ast.NullValue:
		return fail(ErrNullIndexName)
	case nameArg.Kind != ast.StringValue:
		return fail(fmt.Errorf("%w: name must be a string, got %s", ErrInvalidArgument, nameArg.String()))
	case !naming.ValidIndexName(nameArg.Raw):
		return fail(fmt.Errorf("%w: %q", ErrInvalidIndexName, nameArg.Raw))
	default:
		cfg.Name = nameArg.Raw
	}

	switch {
	case queryFieldArg == nil:
		if opts.EnableAutoIndexQueryNames {
			cfg.QueryField = naming.QueryName(obj.Name, field.Name, cfg.SortKeyFields)
		}
	case queryFieldArg.Kind == ast.NullValue:
		// explicit null suppresses the query field regardless of the flag
	case queryFieldArg.Kind != ast.StringValue || queryFieldArg.Raw == "":
		return fail(fmt.Errorf("%w: queryField must be a non-empty string or null, got %s", ErrInvalidArgument, queryFieldArg.String()))
	default:
		cfg.QueryField = queryFieldArg.Raw
	}
	return cfg, nil
}

func keyField(doc *sdl.Document, field *ast.FieldDefinition) KeyField {
	kf := KeyField{Name: field.Name, Type: field.Type}
	if field.Type != nil {
		kf.Base = field.Type.Name()
		kf.IsEnum = doc.IsEnum(kf.Base)
	}
	return kf
}
