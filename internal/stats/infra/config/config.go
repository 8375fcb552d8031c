// Package config loads engine configuration from defaults, an optional YAML
// file, and environment variables, in that order of precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ProviderLimit sizes one provider's token bucket.
type ProviderLimit struct {
	Capacity   float64 `koanf:"capacity" validate:"gt=0"`
	RefillRate float64 `koanf:"refill_rate" validate:"gt=0"`
}

// SourceConfig registers one provider adapter for a (dataset, league) pair.
type SourceConfig struct {
	Provider string `koanf:"provider" validate:"required"`
	Dataset  string `koanf:"dataset" validate:"required"`
	League   string `koanf:"league" validate:"required"`
	URL      string `koanf:"url" validate:"required,url"`

	// Kind selects the adapter: "json" for JSON APIs, "html" for scraped
	// HTML tables.
	Kind string `koanf:"kind" validate:"required,oneof=json html"`

	RequiresGameID bool `koanf:"requires_game_id"`

	// Capabilities lists the filter concerns the source honors server-side.
	Capabilities []string `koanf:"capabilities" validate:"dive,oneof=date_range season season_type team_id player_id game_id home_away"`
}

// AppConfig holds configuration values for the query engine.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// CacheSize is the in-process tier's entry capacity.
	CacheSize int `koanf:"cache_size" validate:"required,gte=1"`

	// MemoryTTLSeconds bounds the hot tier's entry lifetime.
	MemoryTTLSeconds int `koanf:"memory_ttl_seconds" validate:"required,gte=1"`

	// PersistTTLSeconds bounds the columnar tier's entry lifetime.
	PersistTTLSeconds int `koanf:"persist_ttl_seconds" validate:"required,gte=1"`

	// DataDir is the persistent cache directory. Empty disables the
	// columnar tier.
	DataDir string `koanf:"data_dir"`

	// AliasDBPath is the name-alias database file. Empty disables name
	// resolution.
	AliasDBPath string `koanf:"alias_db_path"`

	// FanOutWorkers bounds concurrent per-game fetches.
	FanOutWorkers int `koanf:"fanout_workers" validate:"required,gte=1,lte=64"`

	// Providers maps provider id to its rate limit; unlisted providers get
	// a conservative default bucket.
	Providers map[string]ProviderLimit `koanf:"providers" validate:"dive"`

	// Sources declares the provider adapters to register at startup.
	Sources []SourceConfig `koanf:"sources" validate:"dive"`
}

// envLoader loads environment variables with the prefix "STATLINE_",
// lowercasing keys and stripping the prefix. Swappable in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "STATLINE_",
		TransformFunc: func(key, value string) (string, any) {
			return strings.ToLower(strings.TrimPrefix(key, "STATLINE_")), value
		},
	}), nil)
}

// Load builds an AppConfig from defaults, the YAML file at path (skipped
// when path is empty), and the environment. Validation runs on the merged
// result.
func Load(path string) (*AppConfig, error) {
	k := koanf.New(".")

	k.Load(structs.Provider(AppConfig{
		Env:               "prod",
		LogLevel:          "info",
		CacheSize:         1024,
		MemoryTTLSeconds:  120,
		PersistTTLSeconds: 86400,
		FanOutWorkers:     6,
	}, "koanf"), nil)

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config file %s: %w", path, err)
		}
	}

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
