// Package flags gates optional behaviour behind named switches read from the
// config file. Flags are read-only once the registry is built.
package flags

import (
	"maps"
	"slices"
	"sort"

	"github.com/zjrosen/registrar/internal/log"
)

const (
	// FlagExtensionHotReload watches the extensions directory and reloads an
	// extension whenever its files change.
	FlagExtensionHotReload = "extension-hot-reload"

	// FlagCatalogPersistence stores hotbars, local entities and preferences in
	// SQLite. When disabled, state lives only for the process lifetime.
	FlagCatalogPersistence = "catalog-persistence"

	// FlagCELFilters compiles catalog.filters from the config into entity filters.
	FlagCELFilters = "cel-filters"
)

// Defaults returns the value of every known flag when the config is silent.
func Defaults() map[string]bool {
	return map[string]bool{
		FlagExtensionHotReload: false,
		FlagCatalogPersistence: true,
		FlagCELFilters:         true,
	}
}

// Known lists the known flag names in order.
func Known() []string {
	names := slices.Collect(maps.Keys(Defaults()))
	sort.Strings(names)
	return names
}

// Registry holds feature flag state.
type Registry struct {
	flags map[string]bool
}

// New creates a registry holding exactly values.
func New(values map[string]bool) *Registry {
	r := &Registry{flags: maps.Clone(values)}
	if r.flags == nil {
		r.flags = make(map[string]bool)
	}
	log.Debug(log.CatConfig, "Feature flags initialized", "count", len(r.flags), "flags", r.flags)
	return r
}

// WithDefaults creates a registry from Defaults overridden by values.
// Unknown names in values are kept and logged.
func WithDefaults(values map[string]bool) *Registry {
	merged := Defaults()
	for name, v := range values {
		if _, known := merged[name]; !known {
			log.Warn(log.CatConfig, "Unknown feature flag in config", "flag", name)
		}
		merged[name] = v
	}
	return New(merged)
}

// Enabled reports whether name is on. Unknown flags and a nil registry report false.
func (r *Registry) Enabled(name string) bool {
	if r == nil {
		return false
	}
	return r.flags[name]
}

// All returns a copy of the flag values.
func (r *Registry) All() map[string]bool {
	if r == nil {
		return make(map[string]bool)
	}
	return maps.Clone(r.flags)
}
