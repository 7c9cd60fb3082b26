package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/acksell/ddbkeys/dynamodb/ddbiface"
	"github.com/acksell/ddbkeys/dynamodb/schema"
	"github.com/acksell/ddbkeys/dynamodb/table"
)

func newApplyCmd(a *app) *cobra.Command {
	var (
		schemaPath string
		endpoint   string
		region     string
	)
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Create the derived tables that do not exist yet",
		Long: `Create every table derived from the GraphQL schema. Tables that already
exist are left untouched.

Without a GraphQL schema, apply creates the tables listed in every
schema_dynamodb.yaml found below the current directory.

Examples:
  ddb apply --schema schema.graphql --endpoint http://localhost:8000
  ddb apply --region eu-north-1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if schemaPath == "" {
				schemaPath = a.cfg.Schema
			}
			if endpoint == "" {
				endpoint = a.cfg.Endpoint
			}
			if region == "" {
				region = a.cfg.Region
			}
			defs, err := a.tableDefinitions(schemaPath)
			if err != nil {
				return err
			}
			if len(defs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no tables to apply")
				return nil
			}
			client, err := newClient(cmd.Context(), endpoint, region)
			if err != nil {
				return err
			}
			return a.ensureTables(cmd.Context(), cmd.OutOrStdout(), client, defs)
		},
	}
	cmd.Flags().StringVarP(&schemaPath, "schema", "s", "", "GraphQL schema to compile (default: schema from ddb.yaml)")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "DynamoDB endpoint, e.g. http://localhost:8000")
	cmd.Flags().StringVar(&region, "region", "", "AWS region (default: from the AWS environment)")
	return cmd
}

// tableDefinitions compiles the GraphQL schema at path, or loads the
// generated schema files below the working directory when path is empty.
func (a *app) tableDefinitions(path string) ([]table.TableDefinition, error) {
	if path != "" {
		res, err := a.compile(path)
		if err != nil {
			return nil, err
		}
		defs := make([]table.TableDefinition, 0, len(res.Tables))
		for _, def := range res.Tables {
			defs = append(defs, *def)
		}
		return defs, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	files, err := discoverSchemaFiles(wd)
	if err != nil {
		return nil, fmt.Errorf("discovering %s files: %w", schema.FileName, err)
	}
	var defs []table.TableDefinition
	for _, file := range files {
		s, err := schema.Load(file)
		if err != nil {
			return nil, err
		}
		a.log.Debug().Str("path", file).Int("tables", len(s.Tables)).Msg("schema file loaded")
		for _, t := range s.Tables {
			defs = append(defs, t.Definition())
		}
	}
	return defs, nil
}

func newClient(ctx context.Context, endpoint, region string) (*dynamodb.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

func (a *app) ensureTables(ctx context.Context, w io.Writer, client ddbiface.TableAdmin, defs []table.TableDefinition) error {
	created := color.New(color.FgGreen, color.Bold).Sprint("created")
	skipped := color.New(color.FgYellow).Sprint("exists ")
	for _, def := range defs {
		ok, err := table.Ensure(ctx, client, def)
		if err != nil {
			return err
		}
		a.log.Debug().Str("table", def.Name).Bool("created", ok).Msg("table ensured")
		if ok {
			fmt.Fprintf(w, "%s %s\n", created, def.Name)
		} else {
			fmt.Fprintf(w, "%s %s\n", skipped, def.Name)
		}
	}
	return nil
}
