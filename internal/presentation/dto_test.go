package presentation

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/registrar/internal/catalog"
	"github.com/zjrosen/registrar/internal/contrib"
	"github.com/zjrosen/registrar/internal/extension"
	"github.com/zjrosen/registrar/internal/hotbar"
	"github.com/zjrosen/registrar/internal/reactive"
	"github.com/zjrosen/registrar/internal/registry"
)

func TestFromStores(t *testing.T) {
	hub := registry.NewHub()
	_, err := hub.Load(context.Background(), registry.NewProducer("tools",
		registry.Static(contrib.Commands, registry.New("tools.open", contrib.Command{Title: "Open", Scope: contrib.ScopeGlobal})),
		registry.Static(contrib.MenuItems,
			registry.New("tools.menu", contrib.MenuItem{Label: "Tools"}),
			registry.NewChild("tools.menu.run", "tools.menu", contrib.MenuItem{Label: "Run", Accelerator: "ctrl+r"}),
		),
		registry.Static(contrib.EntityMenuItems, registry.New("tools.shell", contrib.EntityMenuItem{
			Title: "Shell", Kinds: []string{"KubernetesCluster", "General"},
		})),
	))
	require.NoError(t, err)

	dtos := FromStores(contrib.StoresOf(hub))
	require.Len(t, dtos, 4)
	require.Equal(t, ContributionDTO{Token: "commands", ID: "tools.open", Owner: "tools", Title: "Open", Detail: "global"}, dtos[0])
	require.Equal(t, "tools.menu", dtos[2].ParentID)
	require.Equal(t, "General,KubernetesCluster", dtos[3].Detail)

	menus := FilterByToken(dtos, contrib.MenuItems.Name())
	require.Len(t, menus, 2)
	require.Len(t, FilterByToken(dtos, ""), 4)
}

func TestFromStores_EmptyIsNotNull(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(&buf).FormatContributions(FromStores(contrib.StoresOf(registry.NewHub()))))
	require.JSONEq(t, `[]`, buf.String())
}

func TestFromEntitiesAndCategories(t *testing.T) {
	entities := catalog.NewEntityRegistry()
	prod := &catalog.Entity{
		APIVersion: catalog.KubernetesCluster.APIVersion,
		Kind:       catalog.KubernetesCluster.Kind,
		Metadata:   catalog.Metadata{UID: "c1", Name: "prod", Labels: map[string]string{"env": "prod"}},
		Status:     catalog.Status{Phase: catalog.PhaseConnected},
	}
	notes := &catalog.Entity{
		APIVersion: catalog.General.APIVersion,
		Kind:       catalog.General.Kind,
		Metadata:   catalog.Metadata{UID: "g1", Name: "notes"},
	}
	entities.AddComputedSource("test", reactive.Static([]*catalog.Entity{prod, notes}))
	entities.SetActiveEntity(prod)

	dtos := FromEntities(entities)
	require.Len(t, dtos, 2)
	require.True(t, dtos[0].Active)
	require.False(t, dtos[1].Active)
	require.Equal(t, "prod", dtos[0].Labels["env"])

	cats := catalog.NewCategoryRegistry(catalog.General, catalog.KubernetesCluster)
	cats.AddCatalogCategoryFilter(func(c catalog.Category) bool { return c.Kind != "General" })

	catDTOs := FromCategories(cats, entities)
	require.Equal(t, []CategoryDTO{
		{ID: catalog.General.ID(), Name: "General", Icon: "◆", Entities: 1, Visible: false},
		{ID: catalog.KubernetesCluster.ID(), Name: "Kubernetes Clusters", Icon: "⎈", Entities: 1, Visible: true},
	}, catDTOs)
}

func TestFromHotbarsAndExtensions(t *testing.T) {
	s := hotbar.NewStore(3)
	require.NoError(t, s.AddToHotbar(&catalog.Entity{Metadata: catalog.Metadata{UID: "u1", Name: "prod"}}, 1))

	var buf bytes.Buffer
	f := NewFormatter(&buf)
	require.NoError(t, f.FormatHotbars(FromHotbars(s)))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	require.Equal(t, true, decoded[0]["active"])
	slots := decoded[0]["slots"].([]any)
	require.Len(t, slots, 3)
	require.Nil(t, slots[0])
	require.Equal(t, "u1", slots[1].(map[string]any)["uid"])

	exts := FromExtensions([]extension.Info{{Name: "core", Version: "0.4.0", Builtin: true, Bindings: 5}})
	require.Equal(t, []ExtensionDTO{{Name: "core", Version: "0.4.0", Builtin: true, Bindings: 5}}, exts)
}
