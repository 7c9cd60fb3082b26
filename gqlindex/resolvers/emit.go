package resolvers

import (
	"fmt"
	"slices"

	"github.com/acksell/ddbkeys/gqlindex/deltasync"
	"github.com/acksell/ddbkeys/gqlindex/directive"
	"github.com/acksell/ddbkeys/gqlindex/keyschema"
	"github.com/acksell/ddbkeys/gqlindex/model"
	"github.com/acksell/ddbkeys/gqlindex/naming"
	"github.com/acksell/ddbkeys/graphql/sdl"
)

// Emitter collects fragments for every model operation. Fragments added to
// the same (type, field, slot) run in the order they were added.
type Emitter struct {
	fragments     []*Fragment
	counts        map[string]int
	registry      *deltasync.Registry
	windowMinutes int
}

// NewEmitter returns an emitter that registers sync routes in registry.
func NewEmitter(registry *deltasync.Registry, windowMinutes int) *Emitter {
	return &Emitter{
		counts:        make(map[string]int),
		registry:      registry,
		windowMinutes: windowMinutes,
	}
}

// Add appends a fragment to a slot of typeName.fieldName.
func (e *Emitter) Add(typeName, fieldName, slot string, stmts ...Statement) *Fragment {
	key := typeName + "." + fieldName + "." + slot
	e.counts[key]++
	f := &Fragment{
		TypeName:   typeName,
		FieldName:  fieldName,
		Slot:       slot,
		Name:       fmt.Sprintf("%s.%d", key, e.counts[key]),
		Statements: stmts,
	}
	for _, s := range stmts {
		f.Reads = appendUnique(f.Reads, s.Reads()...)
		f.Writes = appendUnique(f.Writes, s.Writes()...)
	}
	e.fragments = append(e.fragments, f)
	return f
}

// Fragments returns every fragment in emission order.
func (e *Emitter) Fragments() []*Fragment {
	return e.fragments
}

// FieldFragments returns the fragments of one field in execution order.
func FieldFragments(fragments []*Fragment, typeName, fieldName string) []*Fragment {
	var out []*Fragment
	for _, f := range fragments {
		if f.TypeName == typeName && f.FieldName == fieldName {
			out = append(out, f)
		}
	}
	return out
}

func (e *Emitter) add(m *model.Model, op string, stmts ...Statement) {
	if len(stmts) == 0 {
		return
	}
	typ, field := m.Field(op)
	e.Add(typ, field, SlotPreValidation, stmts...)
}

// Primary emits the fragments of a model's primary key. It must run before
// any of the model's indexes.
func (e *Emitter) Primary(m *model.Model, cfg *directive.PrimaryKeyConfig) error {
	ks := keyschema.Derive(cfg)
	if m.Sync {
		if err := e.registry.Register(m.Name, "", cfg.Field.Name, cfg.SortKeyFields); err != nil {
			return err
		}
	}
	keyFields := append([]string{cfg.Field.Name}, cfg.SortKeyFields...)
	sql := m.Backend == model.BackendSQL

	if sql {
		e.add(m, model.OpGet, SetSQLKeyFilter{Fields: keyFields, Source: SourceArgs})
	} else {
		e.add(m, model.OpGet, SetModelObjectKey{Key: ks, Source: SourceArgs})
	}

	if !cfg.Implicit {
		list := []Statement{sortDirectionCheck(ks, cfg.Field.Name)}
		if sql {
			list = append(list, SetSQLKeyFilter{Fields: []string{cfg.Field.Name}, Source: SourceArgs})
		} else {
			list = append(list, SetKeyCondition{
				Key:          ks,
				PartitionArg: cfg.Field.Name,
				SortArg:      sortArg(ks),
			})
			if ks.IsComposite() {
				list = append(list, SetNameOverrides{Overrides: ks.NameOverrides})
			}
		}
		e.add(m, model.OpList, list...)
	}

	create := []Statement{MergeDefaults{Fields: createDefaults(m)}}
	update := []Statement{MergeDefaults{Fields: updateDefaults(m)}}
	var del []Statement
	if sql {
		create = append(create, SetSQLKeyFilter{Fields: keyFields, Source: SourceInput})
		update = append(update, SetSQLKeyFilter{Fields: keyFields, Source: SourceInput})
		del = append(del, SetSQLKeyFilter{Fields: keyFields, Source: SourceInput})
	} else {
		if ks.IsComposite() {
			populate := PopulateCompositeKey{Attribute: ks.SortKeyName, Fields: ks.SortKeyFields}
			create = append(create, populate)
			update = append(update, populate)
		}
		create = append(create, SetModelObjectKey{Key: ks, Source: SourceInput})
		update = append(update, SetModelObjectKey{Key: ks, Source: SourceInput})
		del = append(del, SetModelObjectKey{Key: ks, Source: SourceInput})
	}
	e.add(m, model.OpCreate, create...)
	e.add(m, model.OpUpdate, update...)
	e.add(m, model.OpDelete, del...)
	return nil
}

// Index emits the query fragment of a secondary index and keeps its composite
// sort key consistent on create and update.
func (e *Emitter) Index(m *model.Model, cfg *directive.IndexConfig) error {
	ks := keyschema.Derive(&cfg.PrimaryKeyConfig)
	if m.Sync {
		if err := e.registry.Register(m.Name, cfg.Name, cfg.Field.Name, cfg.SortKeyFields); err != nil {
			return err
		}
	}
	sql := m.Backend == model.BackendSQL

	if cfg.QueryField != "" {
		var query []Statement
		if !ks.HasSortKey() {
			query = append(query, RejectSortDirection{})
		}
		if sql {
			query = append(query, SetSQLKeyFilter{Fields: []string{cfg.Field.Name}, Source: SourceArgs})
		} else {
			query = append(query, SetKeyCondition{
				IndexName:    cfg.Name,
				Key:          ks,
				PartitionArg: cfg.Field.Name,
				SortArg:      sortArg(ks),
			})
			if ks.IsComposite() {
				query = append(query, SetNameOverrides{Overrides: ks.NameOverrides})
			}
		}
		e.Add(sdl.QueryType, cfg.QueryField, SlotPreValidation, query...)
	}

	if sql || !ks.IsComposite() {
		return nil
	}
	populate := PopulateCompositeKey{Attribute: ks.SortKeyName, Fields: ks.SortKeyFields}
	e.add(m, model.OpCreate, populate)
	e.add(m, model.OpUpdate, RequireCompositeKey{IndexName: cfg.Name, Fields: ks.SortKeyFields}, populate)
	return nil
}

// Sync emits the model's sync dispatcher. Every key of the model must have
// been emitted first; the model's routes are frozen afterwards.
func (e *Emitter) Sync(m *model.Model) {
	if !m.Sync || m.Backend == model.BackendSQL {
		return
	}
	routes := e.registry.Freeze(m.Name)
	e.add(m, model.OpSync, SyncDispatch{Routes: routes, WindowMinutes: e.windowMinutes})
}

func sortDirectionCheck(ks keyschema.PhysicalKeySchema, partitionArg string) Statement {
	if !ks.HasSortKey() {
		return RejectSortDirection{}
	}
	return RequireArgForSortDirection{Arg: partitionArg}
}

func sortArg(ks keyschema.PhysicalKeySchema) string {
	if !ks.HasSortKey() {
		return ""
	}
	return naming.SortKeyArgument(ks.SortKeyFields)
}

func createDefaults(m *model.Model) []DefaultField {
	var fields []DefaultField
	if m.Def.Fields.ForName("id") != nil {
		fields = append(fields, DefaultField{Name: "id", Value: DefaultAutoID})
	}
	for _, name := range []string{"createdAt", "updatedAt"} {
		if m.Def.Fields.ForName(name) != nil {
			fields = append(fields, DefaultField{Name: name, Value: DefaultTimestamp})
		}
	}
	return fields
}

func updateDefaults(m *model.Model) []DefaultField {
	if m.Def.Fields.ForName("updatedAt") == nil {
		return nil
	}
	return []DefaultField{{Name: "updatedAt", Value: DefaultTimestamp}}
}

func appendUnique(dst []string, vals ...string) []string {
	for _, v := range vals {
		if !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}
