package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/registrar/internal/flags"
)

func readViper(t *testing.T, path string) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	return v
}

func TestSaveCatalogFilters_CreatesNewFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	err := SaveCatalogFilters(configPath, []string{`entity.kind == "General"`})
	require.NoError(t, err)

	cfg, err := Load(readViper(t, configPath))
	require.NoError(t, err)
	assert.Equal(t, []string{`entity.kind == "General"`}, cfg.Catalog.Filters)
}

func TestSaveCatalogFilters_PreservesCommentsAndOtherKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteDefaultConfig(configPath))

	filters := []string{
		`entity.kind == "KubernetesCluster"`,
		`"env" in entity.metadata.labels`,
	}
	require.NoError(t, SaveCatalogFilters(configPath, filters))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "# CEL expressions over \"entity\"")
	assert.Contains(t, content, "collision_policy: overwrite")
	assert.Contains(t, content, "debounce: 300ms")

	cfg, err := Load(readViper(t, configPath))
	require.NoError(t, err)
	assert.Equal(t, filters, cfg.Catalog.Filters)
	assert.Equal(t, 12, cfg.Hotbar.Slots)
}

func TestSaveCatalogFilters_EmptyUsesFlowStyle(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, SaveCatalogFilters(configPath, []string{"true"}))
	require.NoError(t, SaveCatalogFilters(configPath, nil))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "filters: []")
}

func TestSaveCollisionPolicy(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	initial := `# top comment
registry:
  collision_policy: overwrite # trailing
hotbar:
  slots: 4
`
	require.NoError(t, os.WriteFile(configPath, []byte(initial), 0o600))

	require.NoError(t, SaveCollisionPolicy(configPath, "reject"))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "# top comment")
	assert.Contains(t, content, "collision_policy: reject # trailing")
	assert.Contains(t, content, "slots: 4")
}

func TestSaveFlag_CreatesMissingSection(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("log_level: debug\n"), 0o600))

	require.NoError(t, SaveFlag(configPath, flags.FlagExtensionHotReload, true))

	cfg, err := Load(readViper(t, configPath))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Flags[flags.FlagExtensionHotReload])

	require.NoError(t, SaveFlag(configPath, flags.FlagExtensionHotReload, false))
	cfg, err = Load(readViper(t, configPath))
	require.NoError(t, err)
	assert.False(t, cfg.Flags[flags.FlagExtensionHotReload])
}

func TestSave_ReplacesScalarSection(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("flags: off\n"), 0o600))

	require.NoError(t, SaveFlag(configPath, flags.FlagCELFilters, false))

	cfg, err := Load(readViper(t, configPath))
	require.NoError(t, err)
	assert.False(t, cfg.Flags[flags.FlagCELFilters])
}

func TestSave_RejectsNonMappingDocument(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("- a\n- b\n"), 0o600))

	err := SaveCollisionPolicy(configPath, "reject")
	require.ErrorContains(t, err, "not a mapping")
}

func TestSave_AtomicWrite(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")

	require.NoError(t, SaveCollisionPolicy(configPath, "reject"))
	require.NoError(t, SaveCollisionPolicy(configPath, "overwrite"))

	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	for _, entry := range entries {
		assert.False(t, strings.Contains(entry.Name(), ".tmp."), "temp file left behind: %s", entry.Name())
	}
}

func TestSave_CreatesDirectory(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "dir", "config.yaml")
	require.NoError(t, SaveFlag(configPath, flags.FlagCELFilters, true))

	_, err := os.Stat(configPath)
	require.NoError(t, err)
}
