package directive

import (
	"github.com/acksell/ddbkeys/graphql/sdl"
)

// Collect resolves and validates every key directive in the document. Within
// a model the primary key is handled before any index, since index
// eligibility depends on it. The first error aborts collection. Types without
// key directives that are not models are skipped.
func Collect(doc *sdl.Document, opts Options) ([]*ModelKeys, error) {
	var out []*ModelKeys
	for _, obj := range doc.Objects() {
		var primary *PrimaryKeyConfig
		for _, field := range obj.Fields {
			for _, dir := range sdl.Directives(field, PrimaryKey) {
				cfg, err := ResolvePrimaryKey(doc, obj, field, dir)
				if err != nil {
					return nil, err
				}
				if err := ValidatePrimaryKey(doc, cfg); err != nil {
					return nil, err
				}
				if primary != nil {
					return nil, structural(dir, obj.Name, field.Name, ErrDuplicatePrimaryKey)
				}
				primary = cfg
			}
		}

		isModel := sdl.HasDirective(obj, Model)
		if primary == nil && isModel {
			primary = ImplicitPrimaryKey(doc, obj)
		}
		var indexes []*IndexConfig
		seen := make(map[string]bool)
		for _, field := range obj.Fields {
			for _, dir := range sdl.Directives(field, Index) {
				cfg, err := ResolveIndex(doc, obj, field, dir, opts)
				if err != nil {
					return nil, err
				}
				if primary == nil {
					return nil, structural(dir, obj.Name, field.Name, ErrNotModel)
				}
				if err := ValidateIndex(doc, cfg, primary, seen, opts); err != nil {
					return nil, err
				}
				indexes = append(indexes, cfg)
			}
		}
		if isModel {
			out = append(out, &ModelKeys{Model: obj, Primary: primary, Indexes: indexes})
		}
	}
	return out, nil
}
