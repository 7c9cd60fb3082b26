package directive

import (
	"fmt"

	"github.com/acksell/ddbkeys/graphql/sdl"
)

// ValidatePrimaryKey checks a @primaryKey config and fills its SortKey refs.
func ValidatePrimaryKey(doc *sdl.Document, cfg *PrimaryKeyConfig) error {
	if err := validateKey(doc, cfg); err != nil {
		return err
	}
	if cfg.Field.Type != nil && !cfg.Field.Type.NonNull {
		return structural(cfg.Directive, cfg.Object.Name, cfg.Field.Name, ErrNullablePartitionKey)
	}
	return nil
}

// ValidateIndex checks an @index config against the model's primary key and
// the index names already seen on the same type, and fills its SortKey refs.
// The primary key must have been validated first.
func ValidateIndex(doc *sdl.Document, cfg *IndexConfig, primary *PrimaryKeyConfig, seen map[string]bool, opts Options) error {
	if err := validateKey(doc, &cfg.PrimaryKeyConfig); err != nil {
		return err
	}
	if seen[cfg.Name] {
		return structural(cfg.Directive, cfg.Object.Name, cfg.Field.Name, fmt.Errorf("%w %q", ErrDuplicateIndexName, cfg.Name))
	}
	seen[cfg.Name] = true

	cfg.PrimaryKeyField = primary.Field
	if !cfg.SharesPartition() {
		return nil
	}
	switch {
	case !primary.HasSortKey() && !cfg.HasSortKey():
		return eligibility(cfg.Directive, cfg.Object.Name, cfg.Field.Name,
			fmt.Errorf("%w: index %q and the primary key of %s share partition key %q", ErrLocalIndexWithoutSortKey, cfg.Name, cfg.Object.Name, cfg.Field.Name))
	case !primary.HasSortKey() && !opts.SecondaryKeyAsGSI:
		return eligibility(cfg.Directive, cfg.Object.Name, cfg.Field.Name,
			fmt.Errorf("%w: the primary key of %s declares no sort key for index %q to share", ErrLocalIndexWithoutSortKey, cfg.Object.Name, cfg.Name))
	}
	return nil
}

func validateKey(doc *sdl.Document, cfg *PrimaryKeyConfig) error {
	fail := func(field string, err error) error {
		return structural(cfg.Directive, cfg.Object.Name, field, err)
	}
	if cfg.ModelDirective == nil {
		return fail(cfg.Field.Name, ErrNotModel)
	}
	if err := checkKeyType(doc, cfg.Field); err != nil {
		return fail(cfg.Field.Name, err)
	}

	cfg.SortKey = cfg.SortKey[:0]
	listed := make(map[string]bool, len(cfg.SortKeyFields))
	for _, name := range cfg.SortKeyFields {
		if name == cfg.Field.Name {
			return fail(cfg.Field.Name, fmt.Errorf("%w: %q", ErrSelfReference, name))
		}
		if listed[name] {
			return fail(cfg.Field.Name, fmt.Errorf("%w: %q", ErrDuplicateSortKeyField, name))
		}
		listed[name] = true
		field := cfg.Object.Fields.ForName(name)
		if field == nil {
			return fail(cfg.Field.Name, fmt.Errorf("%w: sort key field %q", ErrUnknownField, name))
		}
		kf := keyField(doc, field)
		if err := checkKeyType(doc, kf); err != nil {
			return fail(cfg.Field.Name, fmt.Errorf("sort key field %q: %w", name, err))
		}
		cfg.SortKey = append(cfg.SortKey, kf)
	}
	return nil
}

func checkKeyType(doc *sdl.Document, kf KeyField) error {
	if kf.Type == nil {
		return ErrNonScalarKey
	}
	if sdl.IsList(kf.Type) {
		return fmt.Errorf("%w: %s is %s", ErrListKey, kf.Name, kf.Type.String())
	}
	if !doc.IsScalar(kf.Base) && !kf.IsEnum {
		return fmt.Errorf("%w: %s is %s", ErrNonScalarKey, kf.Name, kf.Base)
	}
	return nil
}
