package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// SetDefaults registers every default on v so unset keys unmarshal to Defaults().
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("host_version", d.HostVersion)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("registry.collision_policy", d.Registry.CollisionPolicy)
	v.SetDefault("catalog.filters", []string{})
	v.SetDefault("hotbar.slots", d.Hotbar.Slots)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
	v.SetDefault("ui.show_status_bar", d.UI.ShowStatusBar)
	v.SetDefault("ui.show_sidebar", d.UI.ShowSidebar)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	for name, enabled := range d.Flags {
		v.SetDefault("flags."+name, enabled)
	}
}

// Load unmarshals v into a resolved Config.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Resolve()
	return cfg, nil
}
