// ddb compiles @primaryKey and @index directives in a GraphQL schema into
// DynamoDB tables and resolver templates.
//
// # Installation
//
//	go install github.com/acksell/ddbkeys/dynamodb/cmd/ddb@latest
//
// # Commands
//
//	ddb gen      Write the augmented schema, schema_dynamodb.yaml and resolvers
//	ddb apply    Create the derived tables that do not exist yet
//	ddb version  Print the version
//
// # Quick Start
//
//	ddb gen --schema schema.graphql --out build
//	ddb apply --endpoint http://localhost:8000
//
// # Configuration
//
// ddb reads ddb.yaml from the current directory or the nearest parent, and
// loads a .env file when one exists. Flags override both.
//
//	schema: schema.graphql
//	out: build
//	endpoint: http://localhost:8000
//	region: eu-north-1
//	compiler:
//	  secondaryKeyAsGSI: false
//	  billingMode: PAY_PER_REQUEST
//	  deltaSync:
//	    enabled: true
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ddb: %v\n", err)
		os.Exit(1)
	}
}

// app carries state resolved once by the root command for its subcommands.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg FileConfig
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{log: zerolog.Nop()}
	root := &cobra.Command{
		Use:           "ddb",
		Short:         "Compile GraphQL key directives into DynamoDB tables and resolvers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default: nearest ddb.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "console", "log format (console or json)")

	root.AddCommand(newGenCmd(a), newApplyCmd(a), newVersionCmd())
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	if err := loadEnv(".env"); err != nil {
		return err
	}
	path := a.configPath
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		path = findConfigFile(wd)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = newLogger(cmd.ErrOrStderr(), a.logLevel, a.logFormat)
	if path != "" {
		a.log.Debug().Str("path", path).Msg("config loaded")
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ddb version %s\n", version)
		},
	}
}
