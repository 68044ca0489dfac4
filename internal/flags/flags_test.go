package flags

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_Enabled(t *testing.T) {
	tests := []struct {
		name     string
		registry *Registry
		flag     string
		expected bool
	}{
		{"set true", New(map[string]bool{"a": true}), "a", true},
		{"set false", New(map[string]bool{"a": false}), "a", false},
		{"unknown", New(map[string]bool{"a": true}), "b", false},
		{"nil registry", nil, "a", false},
		{"nil map", New(nil), "a", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.registry.Enabled(tt.flag))
		})
	}
}

func TestWithDefaults(t *testing.T) {
	r := WithDefaults(nil)
	require.False(t, r.Enabled(FlagExtensionHotReload))
	require.True(t, r.Enabled(FlagCatalogPersistence))
	require.True(t, r.Enabled(FlagCELFilters))

	r = WithDefaults(map[string]bool{FlagExtensionHotReload: true, FlagCELFilters: false, "custom": true})
	require.True(t, r.Enabled(FlagExtensionHotReload))
	require.False(t, r.Enabled(FlagCELFilters))
	require.True(t, r.Enabled(FlagCatalogPersistence))
	require.True(t, r.Enabled("custom"))
}

func TestKnown(t *testing.T) {
	require.Equal(t, []string{FlagCatalogPersistence, FlagCELFilters, FlagExtensionHotReload}, Known())
}

func TestRegistry_IsolatedFromCallerMaps(t *testing.T) {
	values := map[string]bool{"a": true}
	r := New(values)
	values["a"] = false
	require.True(t, r.Enabled("a"))

	all := r.All()
	all["a"] = false
	all["b"] = true
	require.True(t, r.Enabled("a"))
	require.False(t, r.Enabled("b"))

	require.Empty(t, (*Registry)(nil).All())
}
