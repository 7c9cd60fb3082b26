package gqlindex

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/acksell/ddbkeys/dynamodb/table"
	"github.com/acksell/ddbkeys/gqlindex/deltasync"
	"github.com/acksell/ddbkeys/gqlindex/directive"
	"github.com/acksell/ddbkeys/gqlindex/model"
	"github.com/acksell/ddbkeys/gqlindex/placement"
)

// Config holds the feature flags of one compilation.
type Config struct {
	EnableAutoIndexQueryNames bool              `yaml:"enableAutoIndexQueryNames"`
	SecondaryKeyAsGSI         bool              `yaml:"secondaryKeyAsGSI"`
	BillingMode               string            `yaml:"billingMode" validate:"oneof=PROVISIONED PAY_PER_REQUEST"`
	ReadCapacity              int64             `yaml:"readCapacity" validate:"gte=1"`
	WriteCapacity             int64             `yaml:"writeCapacity" validate:"gte=1"`
	DeltaSync                 DeltaSyncConfig   `yaml:"deltaSync"`
	Backends                  map[string]string `yaml:"backends" validate:"dive,keys,required,endkeys,oneof=dynamodb sql"`
	TableSuffix               string            `yaml:"tableSuffix" validate:"omitempty,max=64,excludesall=#"`
}

type DeltaSyncConfig struct {
	Enabled       bool `yaml:"enabled"`
	WindowMinutes int  `yaml:"windowMinutes" validate:"gte=1"`
}

// DefaultConfig returns the configuration used for keys missing from a
// config file.
func DefaultConfig() Config {
	return Config{
		EnableAutoIndexQueryNames: true,
		BillingMode:               string(table.BillingProvisioned),
		ReadCapacity:              5,
		WriteCapacity:             5,
		DeltaSync: DeltaSyncConfig{
			WindowMinutes: int(deltasync.DefaultWindow.Minutes()),
		},
	}
}

// ParseConfig decodes YAML on top of DefaultConfig and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, cfg.Validate()
}

var validate = validator.New()

// Validate checks field constraints and reports every violation at once.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s fails %q (got %v)", e.Namespace(), e.Tag(), e.Value()))
	}
	return fmt.Errorf("invalid config:\n- %s", strings.Join(msgs, "\n- "))
}

func (c Config) directiveOptions() directive.Options {
	return directive.Options{
		EnableAutoIndexQueryNames: c.EnableAutoIndexQueryNames,
		SecondaryKeyAsGSI:         c.SecondaryKeyAsGSI,
	}
}

func (c Config) provisioning() table.Provisioning {
	return table.Provisioning{Read: c.ReadCapacity, Write: c.WriteCapacity}
}

func (c Config) modelOptions() model.Options {
	backends := make(map[string]model.Backend, len(c.Backends))
	for name, b := range c.Backends {
		backends[name] = model.Backend(b)
	}
	return model.Options{
		BillingMode:  table.BillingMode(c.BillingMode),
		Provisioning: c.provisioning(),
		TableSuffix:  c.TableSuffix,
		SyncEnabled:  c.DeltaSync.Enabled,
		Backends:     backends,
	}
}

func (c Config) placementOptions() placement.Options {
	return placement.Options{
		SecondaryKeyAsGSI: c.SecondaryKeyAsGSI,
		Provisioning:      c.provisioning(),
	}
}
