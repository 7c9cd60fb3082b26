package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/acksell/ddbkeys/gqlindex"
)

const configFileName = "ddb.yaml"

// FileConfig holds the settings of ddb.yaml.
type FileConfig struct {
	// Schema is the GraphQL schema compiled by gen and apply.
	Schema string `yaml:"schema"`

	// Out is the directory gen writes to.
	Out string `yaml:"out"`

	// Endpoint overrides the DynamoDB endpoint, e.g. DynamoDB Local.
	// DDB_ENDPOINT is used when unset.
	Endpoint string `yaml:"endpoint"`

	Region string `yaml:"region"`

	Compiler gqlindex.Config `yaml:"compiler"`
}

func defaultFileConfig() FileConfig {
	return FileConfig{
		Out:      ".",
		Compiler: gqlindex.DefaultConfig(),
	}
}

// LoadConfig reads the config file at path on top of the defaults. An empty
// path yields the defaults.
func LoadConfig(path string) (FileConfig, error) {
	cfg := defaultFileConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
		if cfg.Schema != "" && !filepath.IsAbs(cfg.Schema) {
			cfg.Schema = filepath.Join(filepath.Dir(path), cfg.Schema)
		}
		if !filepath.IsAbs(cfg.Out) {
			cfg.Out = filepath.Join(filepath.Dir(path), cfg.Out)
		}
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = os.Getenv("DDB_ENDPOINT")
	}
	if err := cfg.Compiler.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// findConfigFile searches for ddb.yaml walking up from dir. It returns an
// empty string if no file is found.
func findConfigFile(dir string) string {
	for {
		path := filepath.Join(dir, configFileName)
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadEnv loads path into the environment without overriding variables that
// are already set. A missing file is not an error.
func loadEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading %s: %w", path, err)
}
