// Package config provides configuration types, defaults and validation for registrar.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/zjrosen/registrar/internal/catalog"
	"github.com/zjrosen/registrar/internal/flags"
	"github.com/zjrosen/registrar/internal/hotbar"
	"github.com/zjrosen/registrar/internal/log"
	"github.com/zjrosen/registrar/internal/registry"
	"github.com/zjrosen/registrar/internal/tracing"
)

// HostVersion is the registrar version extension engine constraints are
// checked against unless host_version overrides it.
const HostVersion = "0.4.0"

// Config holds all configuration options for registrar.
type Config struct {
	// DataDir holds the SQLite database. Default: ~/.config/registrar
	DataDir string `mapstructure:"data_dir"`

	// ExtensionsDir holds one directory per extension. Default: <data_dir>/extensions
	ExtensionsDir string `mapstructure:"extensions_dir"`

	// EntitiesDir holds *.yaml entity manifests. Default: <data_dir>/entities
	EntitiesDir string `mapstructure:"entities_dir"`

	// HostVersion overrides the version checked by extension engine constraints.
	HostVersion string `mapstructure:"host_version"`

	LogLevel string          `mapstructure:"log_level"`
	Registry RegistryConfig  `mapstructure:"registry"`
	Catalog  CatalogConfig   `mapstructure:"catalog"`
	Hotbar   HotbarConfig    `mapstructure:"hotbar"`
	Watch    WatchConfig     `mapstructure:"watch"`
	UI       UIConfig        `mapstructure:"ui"`
	Tracing  tracing.Config  `mapstructure:"tracing"`
	Flags    map[string]bool `mapstructure:"flags"`
}

// RegistryConfig configures the contribution stores.
type RegistryConfig struct {
	// CollisionPolicy decides what happens when two producers register the
	// same id: "overwrite" (default, logged) or "reject".
	CollisionPolicy string `mapstructure:"collision_policy"`
}

// CatalogConfig configures the entity catalog.
type CatalogConfig struct {
	// Filters are CEL expressions over `entity`. Entities must pass all of them.
	Filters []string `mapstructure:"filters"`
}

// HotbarConfig configures hotbars.
type HotbarConfig struct {
	Slots int `mapstructure:"slots"`
}

// WatchConfig configures the manifest directory watchers.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// UIConfig holds catalog browser options.
type UIConfig struct {
	ShowStatusBar bool `mapstructure:"show_status_bar"`
	ShowSidebar   bool `mapstructure:"show_sidebar"`
}

// DefaultDataDir returns ~/.config/registrar, or empty if the home directory
// cannot be determined.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "registrar")
}

// Defaults returns a Config with default values. Directories derived from
// DataDir are resolved by Resolve.
func Defaults() Config {
	return Config{
		DataDir:     DefaultDataDir(),
		HostVersion: HostVersion,
		LogLevel:    "info",
		Registry:    RegistryConfig{CollisionPolicy: registry.CollisionOverwrite.String()},
		Hotbar:      HotbarConfig{Slots: hotbar.DefaultSlots},
		Watch:       WatchConfig{Debounce: 300 * time.Millisecond},
		UI:          UIConfig{ShowStatusBar: true, ShowSidebar: true},
		Tracing:     tracing.DefaultConfig(),
		Flags:       flags.Defaults(),
	}
}

// Resolve fills directories left empty from DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir()
	}
	if c.ExtensionsDir == "" && c.DataDir != "" {
		c.ExtensionsDir = filepath.Join(c.DataDir, "extensions")
	}
	if c.EntitiesDir == "" && c.DataDir != "" {
		c.EntitiesDir = filepath.Join(c.DataDir, "entities")
	}
	if c.Tracing.FilePath == "" && c.DataDir != "" {
		c.Tracing.FilePath = filepath.Join(c.DataDir, "traces", "traces.jsonl")
	}
	if c.HostVersion == "" {
		c.HostVersion = HostVersion
	}
}

// DatabasePath returns the SQLite file inside DataDir.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "registrar.db")
}

// CollisionPolicy returns the parsed registry collision policy.
func (c Config) CollisionPolicy() registry.CollisionPolicy {
	p, err := registry.ParseCollisionPolicy(c.Registry.CollisionPolicy)
	if err != nil {
		return registry.CollisionOverwrite
	}
	return p
}

// Validate checks the configuration for errors. All problems are reported.
func Validate(c Config) error {
	var errs []error

	if _, err := registry.ParseCollisionPolicy(c.Registry.CollisionPolicy); err != nil {
		errs = append(errs, fmt.Errorf("registry.collision_policy: %w", err))
	}
	if c.HostVersion != "" {
		if _, err := semver.NewVersion(c.HostVersion); err != nil {
			errs = append(errs, fmt.Errorf("host_version %q: %w", c.HostVersion, err))
		}
	}
	if c.Hotbar.Slots < 1 || c.Hotbar.Slots > 99 {
		errs = append(errs, fmt.Errorf("hotbar.slots must be between 1 and 99, got %d", c.Hotbar.Slots))
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce must not be negative, got %s", c.Watch.Debounce))
	}
	for i, expr := range c.Catalog.Filters {
		if _, err := catalog.CompileFilter(expr); err != nil {
			errs = append(errs, fmt.Errorf("catalog.filters[%d]: %w", i, err))
		}
	}
	if err := ValidateTracing(c.Tracing); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(cfg tracing.Config) error {
	if cfg.SampleRate < 0.0 || cfg.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", cfg.SampleRate)
	}

	switch cfg.Exporter {
	case "", tracing.ExporterNone, tracing.ExporterFile, tracing.ExporterStdout, tracing.ExporterOTLP:
	default:
		return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", cfg.Exporter)
	}

	if cfg.Enabled {
		if cfg.Exporter == tracing.ExporterFile && cfg.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if cfg.Exporter == tracing.ExporterOTLP && cfg.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}
	return nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# Registrar Configuration

# Where the database lives (default: ~/.config/registrar)
# data_dir: ~/.config/registrar

# One directory per extension, each with an extension.yaml
# extensions_dir: ~/.config/registrar/extensions

# Entity manifests (*.yaml), one or more entities per file
# entities_dir: ~/.config/registrar/entities

# Log level when --debug is set: debug, info, warn, error
log_level: info

registry:
  # What happens when two extensions contribute the same id:
  #   overwrite - the later registration wins (logged)
  #   reject    - the later registration is refused
  collision_policy: overwrite

catalog:
  # CEL expressions over "entity"; an entity is shown when all are true.
  # Examples:
  #   entity.kind == "KubernetesCluster"
  #   "env" in entity.metadata.labels && entity.metadata.labels.env != "dev"
  filters: []

hotbar:
  slots: 12

watch:
  debounce: 300ms

ui:
  show_status_bar: true
  show_sidebar: true

# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: file                 # none, file, stdout, otlp (default: file)
#   file_path: ~/.config/registrar/traces/traces.jsonl
#   otlp_endpoint: localhost:4317
#   sample_rate: 1.0

flags:
  extension-hot-reload: false
  catalog-persistence: true
  cel-filters: true
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
