package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Default configuration values.
const (
	DefaultCatalogPath = ".tidemark/catalog.db"
	DefaultTargetType  = "duckdb"

	// ConfigFileName and ConfigFileNameAlt are the recognized config
	// file names, checked in order.
	ConfigFileName    = "tidemark.yaml"
	ConfigFileNameAlt = "tidemark.yml"
)

// findConfigFile picks the config file to use.
// Priority: explicit path > tidemark.yaml > tidemark.yml.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load reads configuration with the usual layering.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"catalog_path":                  DefaultCatalogPath,
		"verbose":                       false,
		"target.type":                   DefaultTargetType,
		"defaults.finalized":            true,
		"defaults.materialized_only":    false,
		"defaults.create_group_indexes": true,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(cfgFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	} else if cfgFile != "" {
		return nil, fmt.Errorf("config file %s not found", cfgFile)
	}

	// TIDEMARK_CATALOG_PATH -> catalog_path,
	// TIDEMARK_TARGET_HOST -> target.host.
	if err := k.Load(env.Provider("TIDEMARK_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "TIDEMARK_"))
		for _, section := range []string{"target", "defaults"} {
			if rest, ok := strings.CutPrefix(key, section+"_"); ok {
				return section + "." + rest
			}
		}
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			// --catalog-path maps to catalog_path, --verbose to verbose.
			key := strings.ReplaceAll(f.Name, "-", "_")
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if cfg.Target == nil {
		cfg.Target = &TargetConfig{Type: DefaultTargetType}
	}
	applyTargetDefaults(cfg.Target)
	return &cfg, nil
}

func applyTargetDefaults(t *TargetConfig) {
	if t.Type == "" {
		t.Type = DefaultTargetType
	}
	if t.Type == "postgres" && t.Port == 0 {
		t.Port = 5432
	}
}
