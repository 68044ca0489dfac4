package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/registrar/internal/catalog"
	"github.com/zjrosen/registrar/internal/catalog/filesource"
	"github.com/zjrosen/registrar/internal/config"
	"github.com/zjrosen/registrar/internal/contrib"
	"github.com/zjrosen/registrar/internal/extension"
	"github.com/zjrosen/registrar/internal/flags"
	"github.com/zjrosen/registrar/internal/log"
	"github.com/zjrosen/registrar/internal/pubsub"
	"github.com/zjrosen/registrar/internal/reactive"
	"github.com/zjrosen/registrar/internal/registry"
)

const clusters = `
apiVersion: entity.registrar.dev/v1alpha1
kind: KubernetesCluster
metadata:
  uid: prod
  name: prod
---
apiVersion: catalog.registrar.dev/v1alpha1
kind: General
metadata:
  uid: notes
  name: notes
`

const toolsManifest = `
name: tools
version: 1.0.0
engine: ">= 0.1.0"
contributes:
  commands:
    - id: tools.refresh
      title: Refresh from tools
      action: catalog.refresh
`

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.DataDir = t.TempDir()
	cfg.Watch.Debounce = 20 * time.Millisecond
	cfg.Resolve()
	require.NoError(t, os.MkdirAll(cfg.EntitiesDir, 0o750))
	require.NoError(t, os.MkdirAll(cfg.ExtensionsDir, 0o750))
	return cfg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func newApp(t *testing.T, cfg config.Config) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, "0.4.0")
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestNew_LoadsSourcesAndExtensions(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, filepath.Join(cfg.EntitiesDir, "clusters.yaml"), clusters)
	writeFile(t, filepath.Join(cfg.ExtensionsDir, "tools", extension.ManifestFile), toolsManifest)

	a := newApp(t, cfg)

	require.Len(t, a.Entities.Entities(), 2)
	require.ElementsMatch(t, []string{extension.CoreName, extension.CatalogNavName, "tools"}, a.Hub.Producers())
	_, ok := a.Stores.Commands.Get("tools.refresh")
	require.True(t, ok)
	require.NotNil(t, a.DB, "persistence is on by default")
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Registry.CollisionPolicy = "sometimes"
	_, err := New(context.Background(), cfg, "0.4.0")
	require.ErrorContains(t, err, "registry.collision_policy")
}

func TestNew_CatalogFilters(t *testing.T) {
	cfg := testConfig(t)
	cfg.Catalog.Filters = []string{`entity.kind == "KubernetesCluster"`}
	writeFile(t, filepath.Join(cfg.EntitiesDir, "clusters.yaml"), clusters)

	a := newApp(t, cfg)
	got := a.Entities.Entities()
	require.Len(t, got, 1)
	require.Equal(t, "prod", got[0].UID())
	require.Len(t, a.Entities.AllEntities(), 2)
}

func TestNew_CatalogFiltersFlagOff(t *testing.T) {
	cfg := testConfig(t)
	cfg.Catalog.Filters = []string{`entity.kind == "KubernetesCluster"`}
	cfg.Flags = map[string]bool{flags.FlagCELFilters: false}
	writeFile(t, filepath.Join(cfg.EntitiesDir, "clusters.yaml"), clusters)

	a := newApp(t, cfg)
	require.Len(t, a.Entities.Entities(), 2)
}

func TestPersistence_RestoresHotbarLocalAndActive(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, filepath.Join(cfg.EntitiesDir, "clusters.yaml"), clusters)
	ctx := context.Background()

	first, err := New(ctx, cfg, "0.4.0")
	require.NoError(t, err)
	err = first.Do(ctx, func(ctx context.Context) error {
		prod, _ := first.Entities.GetByID("prod")
		if _, err := first.Entities.Run(ctx, prod); err != nil {
			return err
		}
		if err := first.Hotbar.AddToHotbar(prod); err != nil {
			return err
		}
		_, err := first.Local.Add(&catalog.Entity{
			APIVersion: catalog.General.APIVersion,
			Kind:       catalog.General.Kind,
			Metadata:   catalog.Metadata{UID: "scratch", Name: "scratch"},
		})
		return err
	})
	require.NoError(t, err)
	first.Close()

	second := newApp(t, cfg)
	require.Equal(t, "prod", second.Hotbar.Items()[0].UID)
	require.Equal(t, "prod", second.Entities.ActiveEntity().UID())
	_, ok := second.Entities.GetByID("scratch")
	require.True(t, ok)

	names, err := second.DB.Names(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{DocHotbars, DocLocal, DocPreferences}, names)
}

// activateAndClose starts an app over cfg, makes uid active and closes it.
func activateAndClose(t *testing.T, cfg config.Config, uid string) {
	t.Helper()
	ctx := context.Background()
	a, err := New(ctx, cfg, "0.4.0")
	require.NoError(t, err)
	defer a.Close()
	require.NoError(t, a.Do(ctx, func(ctx context.Context) error {
		e, ok := a.Entities.GetByID(uid)
		require.True(t, ok)
		_, err := a.Entities.Run(ctx, e)
		return err
	}))
}

func TestPersistence_ActiveEntityRestoredWhenItReappears(t *testing.T) {
	cfg := testConfig(t)
	manifest := filepath.Join(cfg.EntitiesDir, "clusters.yaml")
	writeFile(t, manifest, clusters)
	activateAndClose(t, cfg, "prod")
	require.NoError(t, os.Remove(manifest))

	a := newApp(t, cfg)
	require.Nil(t, a.Entities.ActiveEntity())

	writeFile(t, manifest, clusters)
	ctx := context.Background()
	require.NoError(t, a.Do(ctx, a.Refresh))

	_, ok := a.Entities.GetByID("prod")
	require.True(t, ok)
	require.NotNil(t, a.Entities.ActiveEntity())
	require.Equal(t, "prod", a.Entities.ActiveEntity().UID())
}

func TestPersistence_PendingActiveEntitySurvivesRestart(t *testing.T) {
	cfg := testConfig(t)
	manifest := filepath.Join(cfg.EntitiesDir, "clusters.yaml")
	writeFile(t, manifest, clusters)
	activateAndClose(t, cfg, "prod")
	require.NoError(t, os.Remove(manifest))

	ctx := context.Background()
	waiting, err := New(ctx, cfg, "0.4.0")
	require.NoError(t, err)
	require.NoError(t, waiting.Do(ctx, func(context.Context) error {
		return waiting.Hotbar.Move(0, 1)
	}))
	waiting.Close()

	writeFile(t, manifest, clusters)
	a := newApp(t, cfg)
	require.NotNil(t, a.Entities.ActiveEntity())
	require.Equal(t, "prod", a.Entities.ActiveEntity().UID())
}

func TestPersistence_ActivatingAnotherEntityDropsPendingRestore(t *testing.T) {
	cfg := testConfig(t)
	manifest := filepath.Join(cfg.EntitiesDir, "clusters.yaml")
	writeFile(t, manifest, clusters)
	activateAndClose(t, cfg, "prod")
	require.NoError(t, os.Remove(manifest))

	a := newApp(t, cfg)
	ctx := context.Background()
	require.NoError(t, a.Do(ctx, func(ctx context.Context) error {
		_, err := a.Local.Add(&catalog.Entity{
			APIVersion: catalog.General.APIVersion,
			Kind:       catalog.General.Kind,
			Metadata:   catalog.Metadata{UID: "scratch", Name: "scratch"},
		})
		if err != nil {
			return err
		}
		scratch, _ := a.Entities.GetByID("scratch")
		_, err = a.Entities.Run(ctx, scratch)
		return err
	}))

	writeFile(t, manifest, clusters)
	require.NoError(t, a.Do(ctx, a.Refresh))
	require.Equal(t, "scratch", a.Entities.ActiveEntity().UID())
}

func TestPersistence_Disabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Flags = map[string]bool{flags.FlagCatalogPersistence: false}

	a := newApp(t, cfg)
	require.Nil(t, a.DB)
	_, err := os.Stat(cfg.DatabasePath())
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestActions_QuitClosesDone(t *testing.T) {
	a := newApp(t, testConfig(t))

	require.NoError(t, a.Actions.Run(context.Background(), extension.ActionQuit, nil))
	select {
	case <-a.Done():
	default:
		t.Fatal("done not closed")
	}
	a.Quit()
}

func TestActions_RefreshRereadsDirectories(t *testing.T) {
	cfg := testConfig(t)
	a := newApp(t, cfg)
	require.Empty(t, a.Entities.Entities())

	writeFile(t, filepath.Join(cfg.EntitiesDir, "clusters.yaml"), clusters)
	writeFile(t, filepath.Join(cfg.ExtensionsDir, "tools", extension.ManifestFile), toolsManifest)

	ctx := context.Background()
	require.NoError(t, a.Do(ctx, func(ctx context.Context) error {
		return a.Actions.Run(ctx, extension.ActionRefresh, nil)
	}))
	require.Len(t, a.Entities.Entities(), 2)
	require.NotNil(t, a.Extensions.Extension("tools"))

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	events := a.Changes().Subscribe(subCtx)

	require.NoError(t, a.Do(ctx, a.Refresh), "refreshing twice reloads the same extensions")
	require.NotNil(t, a.Extensions.Extension("tools"))

	var reloaded bool
	for len(events) > 0 {
		if ev := <-events; ev.Type == pubsub.ReloadedEvent {
			require.Equal(t, ChangeCatalog, ev.Payload)
			reloaded = true
		}
	}
	require.True(t, reloaded)
}

func TestChanges_PublishesAfterWrites(t *testing.T) {
	a := newApp(t, testConfig(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := a.Changes().Subscribe(ctx)

	require.NoError(t, a.Do(ctx, func(context.Context) error {
		_, err := a.Hotbar.Add("work")
		return err
	}))

	select {
	case ev := <-events:
		require.Equal(t, pubsub.UpdatedEvent, ev.Type)
		require.Equal(t, ChangeHotbar, ev.Payload)
	case <-time.After(time.Second):
		t.Fatal("no change event")
	}
}

func TestChanges_PublishesReactiveContributionUpdates(t *testing.T) {
	a := newApp(t, testConfig(t))
	ctx := context.Background()

	items := reactive.NewValue([]*registry.Contribution[contrib.Command]{
		registry.New("ops.one", contrib.Command{Title: "One"}),
	})
	require.NoError(t, a.Do(ctx, func(ctx context.Context) error {
		_, err := a.Hub.Load(ctx, registry.NewProducer("ops", registry.Reactive(contrib.Commands, items)))
		return err
	}))

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	events := a.Changes().Subscribe(subCtx)

	require.NoError(t, a.Do(ctx, func(context.Context) error {
		items.Set([]*registry.Contribution[contrib.Command]{
			registry.New("ops.one", contrib.Command{Title: "One"}),
			registry.New("ops.two", contrib.Command{Title: "Two"}),
		})
		return nil
	}))

	select {
	case ev := <-events:
		require.Equal(t, pubsub.UpdatedEvent, ev.Type)
		require.Equal(t, ChangeContributions, ev.Payload)
	case <-time.After(time.Second):
		t.Fatal("no change event for a reactive contribution update")
	}
	require.Empty(t, events, "one event for the batch")
	_, ok := a.Stores.Commands.Get("ops.two")
	require.True(t, ok)
}

func TestDo_AfterClose(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), "0.4.0")
	require.NoError(t, err)
	a.Close()
	a.Close()

	err = a.Do(context.Background(), func(context.Context) error { return nil })
	require.ErrorIs(t, err, ErrClosed)
}

func TestWatch_ReloadsEntityManifests(t *testing.T) {
	cfg := testConfig(t)
	a := newApp(t, cfg)
	require.NoError(t, a.Watch())

	writeFile(t, filepath.Join(cfg.EntitiesDir, "clusters.yaml"), clusters)
	require.Eventually(t, func() bool {
		return len(a.Entities.Entities()) == 2
	}, 3*time.Second, 20*time.Millisecond)

	for _, e := range a.Entities.Entities() {
		require.Equal(t, filesource.Name, e.Metadata.Source)
	}
}

func TestWatch_HotReloadsExtensions(t *testing.T) {
	cfg := testConfig(t)
	cfg.Flags = map[string]bool{flags.FlagExtensionHotReload: true}
	toolsDir := filepath.Join(cfg.ExtensionsDir, "tools")
	require.NoError(t, os.MkdirAll(toolsDir, 0o750))
	a := newApp(t, cfg)
	require.NoError(t, a.Watch())

	writeFile(t, filepath.Join(toolsDir, extension.ManifestFile), toolsManifest)
	require.Eventually(t, func() bool {
		_, ok := a.Stores.Commands.Get("tools.refresh")
		return ok
	}, 3*time.Second, 20*time.Millisecond)
}

func TestModel_LogOverlay(t *testing.T) {
	a := newApp(t, testConfig(t))
	m := NewModel(a, true)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(Model)
	require.NotEmpty(t, m.View())

	next, _ = m.Update(log.LogEvent{Type: pubsub.CreatedEvent, Payload: "2026-01-02T15:04:05 [INFO] [app] hello overlay\n"})
	m = next.(Model)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlX})
	m = next.(Model)
	require.Contains(t, m.View(), "hello overlay")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	m = next.(Model)
	require.Contains(t, m.View(), "hello overlay", "keys go to the overlay while it is open")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(Model)
	require.NotContains(t, m.View(), "hello overlay")
}

func TestModel_ForwardsToBrowser(t *testing.T) {
	a := newApp(t, testConfig(t))
	m := NewModel(a, false)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(Model)
	require.Equal(t, []string{"All (0)", "General (0)", "Kubernetes Clusters (0)"}, m.Browser().SidebarTitles())

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlX})
	m = next.(Model)
	require.NotContains(t, m.View(), "Logs", "overlay is debug only")
}
