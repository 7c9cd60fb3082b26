package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/acksell/ddbkeys/dynamodb/schema"
	"github.com/acksell/ddbkeys/gqlindex"
)

const (
	graphqlFileName = "schema.graphql"
	resolverDir     = "resolvers"
)

func newGenCmd(a *app) *cobra.Command {
	var (
		schemaPath string
		outDir     string
		dryRun     bool
	)
	cmd := &cobra.Command{
		Use:     "gen",
		Aliases: []string{"generate"},
		Short:   "Write the augmented schema, schema_dynamodb.yaml and resolver templates",
		Long: `Compile the @primaryKey and @index directives of a GraphQL schema and write:

  schema.graphql          the schema with key arguments, inputs and query fields
  schema_dynamodb.yaml    the physical tables and indexes
  resolvers/*.req.vtl     one template per resolver fragment

Examples:
  ddb gen --schema api/schema.graphql --out build
  ddb gen --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if schemaPath == "" {
				schemaPath = a.cfg.Schema
			}
			if outDir == "" {
				outDir = a.cfg.Out
			}
			res, err := a.compile(schemaPath)
			if err != nil {
				return err
			}
			files, err := outputs(res)
			if err != nil {
				return err
			}
			return writeOutputs(cmd.OutOrStdout(), outDir, files, dryRun)
		},
	}
	cmd.Flags().StringVarP(&schemaPath, "schema", "s", "", "GraphQL schema to compile (default: schema from ddb.yaml)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default: out from ddb.yaml)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list the files that would be written without writing them")
	return cmd
}

// compile reads and compiles the GraphQL schema at path.
func (a *app) compile(path string) (*gqlindex.Result, error) {
	if path == "" {
		return nil, fmt.Errorf("no schema given: pass --schema or set schema in %s", configFileName)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	c, err := gqlindex.New(a.cfg.Compiler, gqlindex.WithLogger(a.log))
	if err != nil {
		return nil, err
	}
	res, err := c.CompileSource(path, string(src))
	if err != nil {
		return nil, err
	}
	a.log.Info().
		Str("schema", path).
		Int("models", len(res.Models)).
		Int("tables", len(res.Tables)).
		Int("fragments", len(res.Fragments)).
		Msg("schema compiled")
	return res, nil
}

// outputs renders every generated file, keyed by its path relative to the
// output directory.
func outputs(res *gqlindex.Result) (map[string][]byte, error) {
	files := map[string][]byte{
		graphqlFileName: []byte(res.Document.Print()),
	}
	data, err := schema.Marshal(res.Schema)
	if err != nil {
		return nil, err
	}
	files[schema.FileName] = data

	templates, err := res.RenderFragments()
	if err != nil {
		return nil, err
	}
	for name, vtl := range templates {
		files[filepath.Join(resolverDir, name)] = []byte(vtl)
	}
	return files, nil
}

func writeOutputs(w io.Writer, outDir string, files map[string][]byte, dryRun bool) error {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	slices.Sort(names)

	verb := color.New(color.FgGreen, color.Bold).Sprint("wrote")
	if dryRun {
		verb = color.New(color.FgYellow, color.Bold).Sprint("would write")
	}
	for _, name := range names {
		path := filepath.Join(outDir, name)
		if !dryRun {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
			}
			if err := os.WriteFile(path, files[name], 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
		}
		fmt.Fprintf(w, "%s %s\n", verb, path)
	}
	return nil
}
