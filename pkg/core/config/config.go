// Package config loads the service configuration from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

var ErrUnknownTier = errors.New("unknown subscription tier")

// Storage drivers
const (
	StoragePostgres = "postgres"
	StorageFile     = "file"
	StorageMemory   = "memory"
)

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	AllowOrigin string `yaml:"allow_origin"`
}

type StorageConfig struct {
	Driver      string `yaml:"driver"` // postgres, file, memory
	DatabaseURL string `yaml:"database_url"`
	Dir         string `yaml:"dir"`
}

type ProjectionConfig struct {
	DefaultYears int            `yaml:"default_years"`
	TierCeilings map[string]int `yaml:"tier_ceilings"`
}

type NarrativeConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	Language string `yaml:"language"`
}

type Config struct {
	Server          ServerConfig     `yaml:"server"`
	Storage         StorageConfig    `yaml:"storage"`
	Projection      ProjectionConfig `yaml:"projection"`
	Narrative       NarrativeConfig  `yaml:"narrative"`
	AssumptionsFile string           `yaml:"assumptions_file"`
	KnowledgeFile   string           `yaml:"knowledge_file"`
	PromptDir       string           `yaml:"prompt_dir"`
}

// Default returns the configuration used when no file is present
func Default() Config {
	return Config{
		Server:  ServerConfig{Addr: ":8080", AllowOrigin: "*"},
		Storage: StorageConfig{Driver: StorageMemory},
		Projection: ProjectionConfig{
			DefaultYears: 3,
			TierCeilings: map[string]int{"standard": 5, "premium": 10},
		},
		Narrative: NarrativeConfig{Provider: "gemini", Language: "English"},
	}
}

// Load reads a YAML file over the defaults, then applies environment
// overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			fmt.Printf("[CONFIG] %s not found, using defaults\n", path)
		default:
			return Config{}, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Addr = ":" + strings.TrimPrefix(port, ":")
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		c.Storage.DatabaseURL = url
		c.Storage.Driver = StoragePostgres
	}
	if f := os.Getenv("DPR_ASSUMPTIONS_FILE"); f != "" {
		c.AssumptionsFile = f
	}
	if p := os.Getenv("DPR_LLM_PROVIDER"); p != "" {
		c.Narrative.Provider = p
	}
	if y := os.Getenv("DPR_DEFAULT_YEARS"); y != "" {
		if n, err := strconv.Atoi(y); err == nil {
			c.Projection.DefaultYears = n
		} else {
			fmt.Printf("[WARNING] Ignoring DPR_DEFAULT_YEARS=%q: %v\n", y, err)
		}
	}
}

// Validate checks the projection limits and storage driver
func (c Config) Validate() error {
	if c.Projection.DefaultYears < 1 {
		return fmt.Errorf("projection.default_years must be at least 1, got %d", c.Projection.DefaultYears)
	}
	tiers := make([]string, 0, len(c.Projection.TierCeilings))
	for tier := range c.Projection.TierCeilings {
		tiers = append(tiers, tier)
	}
	sort.Strings(tiers)
	for _, tier := range tiers {
		if ceiling := c.Projection.TierCeilings[tier]; ceiling < 1 {
			return fmt.Errorf("projection.tier_ceilings.%s must be at least 1, got %d", tier, ceiling)
		}
	}
	// requests without a tier use the standard ceiling with the default horizon
	standard, err := c.Ceiling("")
	if err != nil {
		return fmt.Errorf("projection.tier_ceilings: %w", err)
	}
	if c.Projection.DefaultYears > standard {
		return fmt.Errorf("projection.default_years %d exceeds the standard tier ceiling of %d", c.Projection.DefaultYears, standard)
	}
	switch c.Storage.Driver {
	case StorageMemory, StorageFile:
	case StoragePostgres:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("storage.database_url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

// Ceiling returns the maximum projection years for a subscription tier.
// An empty tier means "standard".
func (c Config) Ceiling(tier string) (int, error) {
	if tier == "" {
		tier = "standard"
	}
	n, ok := c.Projection.TierCeilings[strings.ToLower(tier)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}
	return n, nil
}
