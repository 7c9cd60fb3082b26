package sdl

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
)

// Scalars known without a declaration: the GraphQL built-ins plus the AWS
// scalars AppSync provides.
var builtinScalars = map[string]bool{
	"ID": true, "String": true, "Int": true, "Float": true, "Boolean": true,
	"AWSDate": true, "AWSTime": true, "AWSDateTime": true, "AWSTimestamp": true,
	"AWSEmail": true, "AWSJSON": true, "AWSURL": true, "AWSPhone": true, "AWSIPAddress": true,
}

func IsBuiltinScalar(name string) bool {
	return builtinScalars[name]
}

// IsScalar reports whether name is a built-in scalar or a declared scalar.
func (d *Document) IsScalar(name string) bool {
	if builtinScalars[name] {
		return true
	}
	def := d.GetType(name)
	return def != nil && def.Kind == ast.Scalar
}

func (d *Document) IsEnum(name string) bool {
	def := d.GetType(name)
	return def != nil && def.Kind == ast.Enum
}

// IsList reports whether t is a list at any wrapping level.
func IsList(t *ast.Type) bool {
	return t != nil && t.Elem != nil
}

// NonNull returns a copy of t marked non-null.
func NonNull(t *ast.Type) *ast.Type {
	c := *t
	c.NonNull = true
	return &c
}

// Nullable returns a copy of t with the outer non-null marker removed.
func Nullable(t *ast.Type) *ast.Type {
	c := *t
	c.NonNull = false
	return &c
}

// Named builds a nullable named type.
func Named(name string) *ast.Type {
	return ast.NamedType(name, nil)
}

// NonNullNamed builds a non-null named type.
func NonNullNamed(name string) *ast.Type {
	return ast.NonNullNamedType(name, nil)
}

// ListOf builds a nullable list of elem.
func ListOf(elem *ast.Type) *ast.Type {
	return ast.ListType(elem, nil)
}

// Arg builds an argument definition.
func Arg(name string, t *ast.Type) *ast.ArgumentDefinition {
	return &ast.ArgumentDefinition{Name: name, Type: t}
}

// InputField builds an input object field.
func InputField(name string, t *ast.Type) *ast.FieldDefinition {
	return &ast.FieldDefinition{Name: name, Type: t}
}

// Directives returns every directive with the given name on the field.
func Directives(f *ast.FieldDefinition, name string) []*ast.Directive {
	return f.Directives.ForNames(name)
}

// HasDirective reports whether def carries the named directive.
func HasDirective(def *ast.Definition, name string) bool {
	return def.Directives.ForName(name) != nil
}

// StringList decodes a directive argument that may be a single string or a
// list of strings. A missing or null argument decodes to nil.
func StringList(v *ast.Value) ([]string, error) {
	if v == nil || v.Kind == ast.NullValue {
		return nil, nil
	}
	switch v.Kind {
	case ast.StringValue, ast.BlockValue:
		return []string{v.Raw}, nil
	case ast.ListValue:
		out := make([]string, 0, len(v.Children))
		for _, c := range v.Children {
			if c.Value.Kind != ast.StringValue && c.Value.Kind != ast.BlockValue {
				return nil, fmt.Errorf("expected string list element, got %s", c.Value.String())
			}
			out = append(out, c.Value.Raw)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected string or list of strings, got %s", v.String())
	}
}
