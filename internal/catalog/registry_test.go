package catalog

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/registrar/internal/reactive"
)

func cluster(uid, name string) *Entity {
	return &Entity{
		APIVersion: KubernetesCluster.APIVersion,
		Kind:       KubernetesCluster.Kind,
		Metadata:   Metadata{UID: uid, Name: name, Labels: map[string]string{}},
		Status:     Status{Phase: PhaseDisconnected},
	}
}

func general(uid string) *Entity {
	return &Entity{APIVersion: General.APIVersion, Kind: General.Kind, Metadata: Metadata{UID: uid, Name: uid}}
}

func uids(list []*Entity) []string {
	out := make([]string, 0, len(list))
	for _, e := range list {
		out = append(out, e.UID())
	}
	return out
}

func TestEntityRegistry_UnionAcrossSources(t *testing.T) {
	r := NewEntityRegistry()
	a := reactive.NewValue([]*Entity{cluster("a", "A"), cluster("b", "B")})
	b := reactive.NewValue([]*Entity{general("c")})

	defer r.AddComputedSource("kubeconfig", a)()
	defer r.AddComputedSource("general", b)()

	require.Equal(t, []string{"a", "b", "c"}, uids(r.Entities()))

	a.Set([]*Entity{cluster("b", "B")})
	require.Equal(t, []string{"b", "c"}, uids(r.Entities()))
	_, ok := r.GetByID("a")
	require.False(t, ok)
}

func TestEntityRegistry_LaterSourceWins(t *testing.T) {
	for run := 0; run < 5; run++ {
		r := NewEntityRegistry()
		first := cluster("x", "from first")
		second := cluster("x", "from second")

		r.AddComputedSource("first", reactive.Static([]*Entity{first}))
		r.AddComputedSource("second", reactive.Static([]*Entity{second}))

		got, ok := r.GetByID("x")
		require.True(t, ok)
		require.Same(t, second, got, "run %d", run)
		require.Len(t, r.Entities(), 1)
		require.Equal(t, []string{"first", "second"}, r.SourceIDs())
	}
}

func TestEntityRegistry_ReAddingSourceMovesItToTheEnd(t *testing.T) {
	r := NewEntityRegistry()
	first := cluster("x", "first")
	second := cluster("x", "second")
	again := cluster("x", "first again")

	disposeOld := r.AddComputedSource("first", reactive.Static([]*Entity{first}))
	r.AddComputedSource("second", reactive.Static([]*Entity{second}))
	r.AddComputedSource("first", reactive.Static([]*Entity{again}))

	got, _ := r.GetByID("x")
	require.Same(t, again, got)
	require.Equal(t, []string{"second", "first"}, r.SourceIDs())

	disposeOld()
	require.Equal(t, []string{"second", "first"}, r.SourceIDs(), "stale disposer leaves the replacement")
}

func TestEntityRegistry_DisposedSourceRetracts(t *testing.T) {
	r := NewEntityRegistry()
	src := reactive.NewValue([]*Entity{cluster("a", "A")})
	dispose := r.AddComputedSource("s", src)

	dispose()
	require.Empty(t, r.Entities())

	src.Set([]*Entity{cluster("z", "Z")})
	require.Empty(t, r.Entities(), "no resurrection after disposal")
}

type explodingSource struct {
	*reactive.Value[int]
}

func (explodingSource) Get() []*Entity { panic("kubeconfig unreadable") }

func (s explodingSource) Observe(fn func([]*Entity), opts ...reactive.ObserveOption) reactive.Disposer {
	return reactive.Observe[[]*Entity](s, s.Get, fn, opts...)
}

func TestEntityRegistry_PanickingSourceIsEmpty(t *testing.T) {
	r := NewEntityRegistry()
	r.AddComputedSource("broken", explodingSource{reactive.NewValue(0)})
	r.AddComputedSource("fine", reactive.Static([]*Entity{general("g")}))

	require.Equal(t, []string{"g"}, uids(r.Entities()))
}

func TestEntityRegistry_SkipsEntitiesWithoutUID(t *testing.T) {
	r := NewEntityRegistry()
	r.AddComputedSource("s", reactive.Static([]*Entity{nil, general(""), general("ok")}))
	require.Equal(t, []string{"ok"}, uids(r.AllEntities()))
}

func TestEntityRegistry_OneNotificationPerSourceChange(t *testing.T) {
	r := NewEntityRegistry()
	src := reactive.NewValue([]*Entity{general("a")})
	r.AddComputedSource("s", src)

	var seen [][]string
	defer r.Observe(func(list []*Entity) { seen = append(seen, uids(list)) })()

	reactive.RunAtomically(func() {
		src.Set([]*Entity{general("a"), general("b")})
		r.AddCatalogFilter(func(e *Entity) bool { return e.UID() != "a" })
	})
	require.Equal(t, [][]string{{"b"}}, seen)
}

func TestEntityRegistry_FiltersComposeAndRestore(t *testing.T) {
	r := NewEntityRegistry()
	prod := cluster("prod", "prod")
	prod.Metadata.Labels["env"] = "prod"
	staging := cluster("staging", "staging")
	staging.Metadata.Labels["env"] = "staging"
	r.AddComputedSource("s", reactive.Static([]*Entity{prod, staging, general("notes")}))

	onlyClusters := r.AddCatalogFilter(func(e *Entity) bool { return e.Kind == KubernetesCluster.Kind })
	noStaging := r.AddCatalogFilter(func(e *Entity) bool { return e.Label("env") != "staging" })
	require.Equal(t, []string{"prod"}, uids(r.Entities()))
	require.Equal(t, 2, r.FilterCount())

	onlyClusters()
	require.Equal(t, []string{"prod", "notes"}, uids(r.Entities()), "only what that filter excluded comes back")

	noStaging()
	noStaging()
	require.Equal(t, []string{"prod", "staging", "notes"}, uids(r.Entities()))
	require.Len(t, r.AllEntities(), 3)
}

func TestEntityRegistry_PanickingFilterLetsEntitiesThrough(t *testing.T) {
	r := NewEntityRegistry()
	r.AddComputedSource("s", reactive.Static([]*Entity{general("a")}))
	r.AddCatalogFilter(func(*Entity) bool { panic("bad filter") })
	require.Equal(t, []string{"a"}, uids(r.Entities()))
}

func TestEntityRegistry_QueriesByKindAndCategory(t *testing.T) {
	r := NewEntityRegistry()
	r.AddComputedSource("s", reactive.Static([]*Entity{cluster("c1", "one"), general("g"), cluster("c2", "two")}))

	require.Equal(t, []string{"c1", "c2"}, uids(r.GetItemsForCategory(KubernetesCluster)))
	require.Equal(t, []string{"g"}, uids(r.GetItemsForAPIKind(General.APIVersion, General.Kind)))
	require.Empty(t, r.GetItemsForAPIKind("v1", "Nope"))
	require.Len(t, r.EntityMap(), 3)
}

func TestEntityRegistry_ActiveEntityIsIndependent(t *testing.T) {
	r := NewEntityRegistry()
	src := reactive.NewValue([]*Entity{cluster("a", "A")})
	r.AddComputedSource("s", src)

	future := cluster("future", "not yet in the catalog")
	r.SetActiveEntity(future)
	require.Same(t, future, r.ActiveEntity())

	a, _ := r.GetByID("a")
	r.SetActiveEntity(a)
	src.Set(nil)
	require.Same(t, a, r.ActiveEntity(), "active entity survives its disappearance")

	var seen []*Entity
	defer r.Active().Observe(func(e *Entity) { seen = append(seen, e) })()
	r.ClearActiveEntity()
	require.Nil(t, r.ActiveEntity())
	require.Equal(t, []*Entity{nil}, seen)
}

func TestEntityRegistry_FilterCompositionProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 12).Draw(t, "entities")
		var list []*Entity
		for i := 0; i < n; i++ {
			e := general(fmt.Sprintf("e%d", i))
			e.Metadata.Labels = map[string]string{"bucket": fmt.Sprint(rapid.IntRange(0, 3).Draw(t, "bucket"))}
			list = append(list, e)
		}

		r := NewEntityRegistry()
		r.AddComputedSource("s", reactive.Static(list))

		type installed struct {
			excluded string
			dispose  reactive.Disposer
		}
		var filters []installed
		k := rapid.IntRange(0, 4).Draw(t, "filters")
		for i := 0; i < k; i++ {
			bucket := fmt.Sprint(rapid.IntRange(0, 3).Draw(t, "exclude"))
			filters = append(filters, installed{
				excluded: bucket,
				dispose:  r.AddCatalogFilter(func(e *Entity) bool { return e.Label("bucket") != bucket }),
			})
		}

		check := func() {
			var want []string
			for _, e := range list {
				keep := true
				for _, f := range filters {
					if e.Label("bucket") == f.excluded {
						keep = false
					}
				}
				if keep {
					want = append(want, e.UID())
				}
			}
			got := uids(r.Entities())
			if !slices.Equal(want, got) && !(len(want) == 0 && len(got) == 0) {
				t.Fatalf("visible %v, want intersection %v", got, want)
			}
		}
		check()

		for len(filters) > 0 {
			i := rapid.IntRange(0, len(filters)-1).Draw(t, "remove")
			filters[i].dispose()
			filters = slices.Delete(filters, i, i+1)
			check()
		}
	})
}
