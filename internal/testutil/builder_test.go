package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/registrar/internal/catalog"
)

type note struct{ body string }

func (n *note) Load(data []byte) error  { n.body = string(data); return nil }
func (n *note) ToJSON() ([]byte, error) { return []byte(n.body), nil }

func TestBuilder_WithEntity_Defaults(t *testing.T) {
	c := NewBuilder(t).WithEntity("e1").Build()

	e, ok := c.Entities.GetByID("e1")
	require.True(t, ok)
	require.Equal(t, "e1", e.Metadata.Name)
	require.Equal(t, catalog.General.Kind, e.Kind)
	require.Equal(t, SourceName, e.Metadata.Source)
	require.Equal(t, catalog.PhaseAvailable, e.Status.Phase)
}

func TestBuilder_StandardCatalog(t *testing.T) {
	c := NewBuilder(t).WithStandardCatalog().WithActive("cluster-prod").Build()

	require.Len(t, c.Entities.Entities(), 5)
	require.Len(t, c.Entities.GetItemsForCategory(catalog.KubernetesCluster), 3)
	require.Equal(t, "prod", c.Entities.ActiveEntity().Metadata.Name)
	require.Equal(t, "eu-west-1", c.Entities.ActiveEntity().Label("region"))
}

func TestBuilder_Databases(t *testing.T) {
	c := NewBuilder(t).WithDatabases().Build()

	require.True(t, c.Categories.HasCategoryForEntity(Database.KindData()))
	require.Len(t, c.Categories.Items(), 3)
	require.Len(t, c.Entities.GetItemsForCategory(Database), 2)
}

func TestBuilder_SourceIsLive(t *testing.T) {
	c := NewBuilder(t).WithEntity("e1").Build()
	c.Source.Set(append(c.Source.Get(), NewEntity("e2", Cluster())))
	require.Len(t, c.Entities.Entities(), 2)
}

func TestNewTestStore(t *testing.T) {
	db := NewTestStore(t)
	require.NoError(t, db.Save(context.Background(), "n", &note{body: `{"x":1}`}))

	var got note
	ok, err := db.Restore(context.Background(), "n", &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"x":1}`, got.body)
}
