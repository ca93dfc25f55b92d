// Package config loads the application configuration: a YAML file
// overlaid by SALESFACTOR_* environment variables, with a .env file
// feeding the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"github.com/tunogya/salesfactor/pkg/decompose"
	"github.com/tunogya/salesfactor/pkg/queue/nats"
	"github.com/tunogya/salesfactor/pkg/store/milvus"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "SALESFACTOR"

// Config represents the complete application configuration
type Config struct {
	Env     string        `yaml:"env" split_words:"true"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Inputs  InputsConfig  `yaml:"inputs" envconfig:"INPUTS"`
	DuckDB  DuckDBConfig  `yaml:"duckdb" envconfig:"DUCKDB"`
	NATS    nats.Config   `yaml:"nats" envconfig:"NATS"`
	Milvus  MilvusConfig  `yaml:"milvus" envconfig:"MILVUS"`
	Metrics MetricsConfig `yaml:"metrics" envconfig:"METRICS"`

	// The engine section comes from the file only
	Engine decompose.Config `yaml:"engine" ignored:"true"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" split_words:"true"`
}

// InputsConfig locates the input files
type InputsConfig struct {
	Train    string `yaml:"train" split_words:"true"`
	Test     string `yaml:"test" split_words:"true"`
	GDP      string `yaml:"gdp" split_words:"true"`
	Holidays string `yaml:"holidays" split_words:"true"`
}

// DuckDBConfig contains storage configuration
type DuckDBConfig struct {
	Path      string `yaml:"path" split_words:"true"`
	BatchSize int    `yaml:"batch_size" split_words:"true"`
}

// MilvusConfig contains the vector index configuration
type MilvusConfig struct {
	milvus.Config `yaml:",inline"`
	Collection    milvus.CollectionConfig `yaml:"collection" envconfig:"COLLECTION"`
}

// MetricsConfig contains Pushgateway configuration
type MetricsConfig struct {
	PushURL string `yaml:"push_url" split_words:"true"`
	Job     string `yaml:"job" split_words:"true"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Env:     "development",
		Logging: LoggingConfig{Level: "info"},
		DuckDB:  DuckDBConfig{Path: "data/salesfactor.duckdb", BatchSize: 10000},
		NATS:    nats.DefaultConfig(),
		Milvus: MilvusConfig{
			Config:     milvus.DefaultConfig(),
			Collection: milvus.DefaultCollectionConfig(),
		},
		Metrics: MetricsConfig{Job: "salesfactor"},
		Engine:  decompose.DefaultConfig(),
	}
}

// Load builds the configuration. Precedence, lowest first: defaults, the
// YAML file at path (skipped when path is empty), the environment. A
// .env file in the working directory is loaded into the environment
// first if present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFile overlays the YAML file onto c. Keys missing from the file
// keep their current value.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if c.DuckDB.BatchSize < 0 {
		return fmt.Errorf("duckdb.batch_size must not be negative, got %d", c.DuckDB.BatchSize)
	}
	if c.NATS.BatchSize < 0 {
		return fmt.Errorf("nats.batch_size must not be negative, got %d", c.NATS.BatchSize)
	}
	if c.Milvus.Collection.Dimension <= 0 {
		return fmt.Errorf("milvus.collection.dimension must be positive, got %d", c.Milvus.Collection.Dimension)
	}
	return nil
}

// ValidateInputs checks that the files a decomposition run needs are set
func (c *Config) ValidateInputs() error {
	switch {
	case c.Inputs.Train == "":
		return errors.New("inputs.train is required")
	case c.Inputs.GDP == "":
		return errors.New("inputs.gdp is required")
	case c.Inputs.Holidays == "":
		return errors.New("inputs.holidays is required")
	}
	return nil
}
