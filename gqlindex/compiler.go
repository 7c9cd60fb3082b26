// Package gqlindex compiles @primaryKey and @index directives on @model types
// into a DynamoDB key schema, the query fields and inputs that expose it, and
// the resolver fragments that enforce it at request time.
//
// Compilation runs in two stages. The transform stage resolves and validates
// every key directive before touching the schema, then rewrites the schema.
// The resolvers stage declares each model's table and indexes and emits the
// resolver fragments.
package gqlindex

import (
	"fmt"
	"maps"

	"github.com/rs/zerolog"

	"github.com/acksell/ddbkeys/dynamodb/schema"
	"github.com/acksell/ddbkeys/dynamodb/table"
	"github.com/acksell/ddbkeys/gqlindex/augment"
	"github.com/acksell/ddbkeys/gqlindex/deltasync"
	"github.com/acksell/ddbkeys/gqlindex/directive"
	"github.com/acksell/ddbkeys/gqlindex/keyschema"
	"github.com/acksell/ddbkeys/gqlindex/model"
	"github.com/acksell/ddbkeys/gqlindex/placement"
	"github.com/acksell/ddbkeys/gqlindex/resolvers"
	"github.com/acksell/ddbkeys/graphql/sdl"
)

type Compiler struct {
	cfg Config
	log zerolog.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger that receives debug events for each resolved
// directive, placed index and emitted fragment. The default discards them.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Compiler) {
		c.log = l
	}
}

// New validates cfg and returns a compiler.
func New(cfg Config, opts ...Option) (*Compiler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Compiler{cfg: cfg, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Result is the output of one compilation.
type Result struct {
	Document  *sdl.Document
	Models    []*model.Model
	Tables    []*table.TableDefinition
	Fragments []*resolvers.Fragment
	Schema    schema.Schema
}

// Table returns the table of a model, or nil for models without one.
func (r *Result) Table(modelName string) *table.TableDefinition {
	for _, m := range r.Models {
		if m.Name == modelName {
			return m.Table
		}
	}
	return nil
}

// FragmentsFor returns the fragments of one root field in execution order.
func (r *Result) FragmentsFor(typeName, fieldName string) []*resolvers.Fragment {
	return resolvers.FieldFragments(r.Fragments, typeName, fieldName)
}

// RenderFragments renders every fragment, keyed by file name.
func (r *Result) RenderFragments() (map[string]string, error) {
	files := make(map[string]string, len(r.Fragments))
	for _, f := range r.Fragments {
		out, err := resolvers.Render(f)
		if err != nil {
			return nil, err
		}
		files[f.FileName()] = out
	}
	return files, nil
}

// CompileSource parses src and compiles it.
func (c *Compiler) CompileSource(name, src string) (*Result, error) {
	doc, err := sdl.Parse(name, src)
	if err != nil {
		return nil, err
	}
	return c.Compile(doc)
}

// Compile runs both stages over doc, which is rewritten in place. On error
// the result is nil.
func (c *Compiler) Compile(doc *sdl.Document) (*Result, error) {
	mc := model.NewCompiler(c.cfg.modelOptions())
	keys, models, err := c.transform(doc, mc)
	if err != nil {
		return nil, stageError(StageTransform, err)
	}
	res := &Result{Document: doc, Models: models}
	if err := c.emit(res, mc, keys); err != nil {
		return nil, stageError(StageResolvers, err)
	}
	return res, nil
}

func (c *Compiler) transform(doc *sdl.Document, mc *model.Compiler) ([]*directive.ModelKeys, []*model.Model, error) {
	keys, err := directive.Collect(doc, c.cfg.directiveOptions())
	if err != nil {
		return nil, nil, err
	}
	for _, mk := range keys {
		for _, idx := range mk.Indexes {
			c.log.Debug().
				Str("type", mk.Model.Name).
				Str("field", idx.Field.Name).
				Str("index", idx.Name).
				Str("queryField", idx.QueryField).
				Strs("sortKeyFields", idx.SortKeyFields).
				Msg("index resolved")
		}
	}

	models, err := mc.Transform(doc)
	if err != nil {
		return nil, nil, err
	}
	if len(models) != len(keys) {
		return nil, nil, fmt.Errorf("found %d models but %d key sets", len(models), len(keys))
	}
	for i, mk := range keys {
		m := models[i]
		if m.Name != mk.Model.Name {
			return nil, nil, fmt.Errorf("model %s compiled out of order with %s", m.Name, mk.Model.Name)
		}
		if err := augment.Primary(doc, m, mk.Primary); err != nil {
			return nil, nil, fmt.Errorf("model %s: %w", m.Name, err)
		}
		for _, idx := range mk.Indexes {
			if err := augment.Index(doc, m, idx); err != nil {
				return nil, nil, fmt.Errorf("model %s index %q: %w", m.Name, idx.Name, err)
			}
		}
	}
	return keys, models, nil
}

func (c *Compiler) emit(res *Result, mc *model.Compiler, keys []*directive.ModelKeys) error {
	emitter := resolvers.NewEmitter(deltasync.NewRegistry(), c.cfg.DeltaSync.WindowMinutes)
	for i, mk := range keys {
		m := res.Models[i]
		if err := c.declareTable(res, mc, m, mk); err != nil {
			return err
		}
		if err := emitter.Primary(m, mk.Primary); err != nil {
			return fmt.Errorf("model %s: %w", m.Name, err)
		}
		for _, idx := range mk.Indexes {
			if err := emitter.Index(m, idx); err != nil {
				return fmt.Errorf("model %s index %q: %w", m.Name, idx.Name, err)
			}
		}
		emitter.Sync(m)
	}
	res.Fragments = emitter.Fragments()
	for _, f := range res.Fragments {
		c.log.Debug().
			Str("type", f.TypeName).
			Str("field", f.FieldName).
			Str("slot", f.Slot).
			Str("fragment", f.Name).
			Int("statements", len(f.Statements)).
			Msg("fragment emitted")
	}
	return nil
}

func (c *Compiler) declareTable(res *Result, mc *model.Compiler, m *model.Model, mk *directive.ModelKeys) error {
	def := mc.Materialize(m)
	if def == nil {
		return nil
	}
	ks := keyschema.Derive(mk.Primary)
	if err := placement.ApplyPrimaryKey(def, ks); err != nil {
		return err
	}
	c.log.Debug().
		Str("table", def.Name).
		Str("partitionKey", ks.PartitionKeyName).
		Str("sortKey", ks.SortKeyName).
		Msg("key schema derived")

	overrides := make(map[string]string)
	maps.Copy(overrides, ks.NameOverrides)
	for _, idx := range mk.Indexes {
		kind, err := placement.Place(def, idx, mk.Primary, c.cfg.placementOptions())
		if err != nil {
			return err
		}
		c.log.Debug().
			Str("table", def.Name).
			Str("index", idx.Name).
			Str("placement", string(kind)).
			Msg("index placed")
		maps.Copy(overrides, keyschema.Derive(&idx.PrimaryKeyConfig).NameOverrides)
	}
	res.Tables = append(res.Tables, def)
	res.Schema.Tables = append(res.Schema.Tables, schema.FromTable(*def, overrides))
	return nil
}
