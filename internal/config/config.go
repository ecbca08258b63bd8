package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"bioclas/internal/fuzzy"
)

// Config holds all bioclas configuration.
type Config struct {
	// Declarative variable and rule-set definitions
	Knowledge KnowledgeConfig `yaml:"knowledge" toml:"knowledge"`

	// Inference and defuzzification
	Inference InferenceConfig `yaml:"inference" toml:"inference"`

	// Batch evaluation
	Batch BatchConfig `yaml:"batch" toml:"batch"`

	// Result persistence
	Store StoreConfig `yaml:"store" toml:"store"`

	// Metrics export
	Metrics MetricsConfig `yaml:"metrics" toml:"metrics"`

	// Logging
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// KnowledgeConfig points at the definition files.
type KnowledgeConfig struct {
	VariablesPath string `yaml:"variables_path" toml:"variables_path"`
	RulesPath     string `yaml:"rules_path" toml:"rules_path"`
}

// InferenceConfig selects how the rule base is evaluated.
type InferenceConfig struct {
	Mode   string  `yaml:"mode" toml:"mode"`     // mamdani, larsen
	Method string  `yaml:"method" toml:"method"` // centroid, averageMax
	Step   float64 `yaml:"step" toml:"step"`     // domain sampling step for defuzzification
}

// BatchConfig configures batch evaluation.
type BatchConfig struct {
	Parallelism int  `yaml:"parallelism" toml:"parallelism"`
	FailFast    bool `yaml:"fail_fast" toml:"fail_fast"`
	// FloorColor, when set, replaces the colour of rows that fail to
	// classify. Format: [r, g, b].
	FloorColor []int `yaml:"floor_color,omitempty" toml:"floor_color,omitempty"`
}

// StoreConfig configures the SQLite result store.
type StoreConfig struct {
	Enabled      bool   `yaml:"enabled" toml:"enabled"`
	DatabasePath string `yaml:"database_path" toml:"database_path"`
}

// MetricsConfig configures the node-exporter textfile.
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path" toml:"textfile_path"` // empty disables export
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Knowledge: KnowledgeConfig{
			VariablesPath: "configs/variables.json",
			RulesPath:     "configs/FIS-Zonify.json",
		},
		Inference: InferenceConfig{
			Mode:   "mamdani",
			Method: "centroid",
			Step:   0.01,
		},
		Batch: BatchConfig{
			Parallelism: 4,
		},
		Store: StoreConfig{
			Enabled:      false,
			DatabasePath: "data/bioclas.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Categories: map[string]bool{
				"boot":  true,
				"kb":    true,
				"batch": true,
				"watch": true,
			},
		},
	}
}

// Load loads configuration from a YAML file, or TOML when the file has a
// .toml extension. A missing file yields the defaults. Environment
// overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if isTOML(path) {
		err = toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration as YAML, or TOML for a .toml path.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	var err error
	if isTOML(path) {
		data, err = toml.Marshal(c)
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("BIOCLAS_VARIABLES"); path != "" {
		c.Knowledge.VariablesPath = path
	}
	if path := os.Getenv("BIOCLAS_RULES"); path != "" {
		c.Knowledge.RulesPath = path
	}
	if mode := os.Getenv("BIOCLAS_MODE"); mode != "" {
		c.Inference.Mode = mode
	}
	if path := os.Getenv("BIOCLAS_DB"); path != "" {
		c.Store.DatabasePath = path
		c.Store.Enabled = true
	}
	if p := os.Getenv("BIOCLAS_PARALLELISM"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			c.Batch.Parallelism = n
		}
	}
}

// Mode returns the parsed inference mode.
func (c *Config) Mode() (fuzzy.Mode, error) {
	return fuzzy.ParseMode(c.Inference.Mode)
}

// Method returns the parsed defuzzification method.
func (c *Config) Method() (fuzzy.Method, error) {
	return fuzzy.ParseMethod(c.Inference.Method)
}

// FloorColor returns the configured floor colour, if any.
func (c *Config) FloorColor() (*fuzzy.RGB, error) {
	fc := c.Batch.FloorColor
	if len(fc) == 0 {
		return nil, nil
	}
	if len(fc) != 3 {
		return nil, fmt.Errorf("floor_color needs 3 channels, got %d", len(fc))
	}
	for _, ch := range fc {
		if ch < 0 || ch > 255 {
			return nil, fmt.Errorf("floor_color channel %d outside [0,255]", ch)
		}
	}
	return &fuzzy.RGB{R: uint8(fc[0]), G: uint8(fc[1]), B: uint8(fc[2])}, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Knowledge.VariablesPath == "" || c.Knowledge.RulesPath == "" {
		return fmt.Errorf("knowledge.variables_path and knowledge.rules_path are required")
	}
	if _, err := c.Mode(); err != nil {
		return err
	}
	if _, err := c.Method(); err != nil {
		return err
	}
	if !(c.Inference.Step > 0) {
		return fmt.Errorf("inference.step must be positive, got %v", c.Inference.Step)
	}
	if c.Batch.Parallelism < 1 {
		return fmt.Errorf("batch.parallelism must be at least 1, got %d", c.Batch.Parallelism)
	}
	if _, err := c.FloorColor(); err != nil {
		return err
	}
	if c.Store.Enabled && c.Store.DatabasePath == "" {
		return fmt.Errorf("store.database_path is required when the store is enabled")
	}
	return c.Logging.Validate()
}
