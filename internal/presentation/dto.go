package presentation

import (
	"slices"
	"strings"

	"github.com/zjrosen/registrar/internal/catalog"
	"github.com/zjrosen/registrar/internal/contrib"
	"github.com/zjrosen/registrar/internal/extension"
	"github.com/zjrosen/registrar/internal/hotbar"
	"github.com/zjrosen/registrar/internal/registry"
)

// ContributionDTO represents one contribution in a store
type ContributionDTO struct {
	Token    string `json:"token"`
	ID       string `json:"id"`
	ParentID string `json:"parent_id,omitempty"`
	Owner    string `json:"owner"`
	Title    string `json:"title"`
	Detail   string `json:"detail,omitempty"`
}

// EntityDTO represents a catalog entity
type EntityDTO struct {
	UID         string            `json:"uid"`
	Name        string            `json:"name"`
	APIVersion  string            `json:"api_version"`
	Kind        string            `json:"kind"`
	Source      string            `json:"source,omitempty"`
	Phase       string            `json:"phase"`
	Labels      map[string]string `json:"labels,omitempty"`
	Description string            `json:"description,omitempty"`
	Active      bool              `json:"active"`
}

// CategoryDTO represents a category with the number of visible entities it classifies
type CategoryDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Icon     string `json:"icon,omitempty"`
	Entities int    `json:"entities"`
	Visible  bool   `json:"visible"`
}

// ExtensionDTO represents a loaded extension
type ExtensionDTO struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	Builtin     bool   `json:"builtin"`
	Dir         string `json:"dir,omitempty"`
	Bindings    int    `json:"bindings"`
}

// HotbarDTO represents a hotbar; empty slots are null
type HotbarDTO struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Active bool           `json:"active"`
	Slots  []*hotbar.Item `json:"slots"`
}

func contributions[T any](store *registry.Store[T], describe func(T) (string, string)) []ContributionDTO {
	items := store.GetAll()
	dtos := make([]ContributionDTO, 0, len(items))
	for _, c := range items {
		owner, _ := store.Owner(c.ID)
		title, detail := describe(c.Payload)
		dtos = append(dtos, ContributionDTO{
			Token:    store.Token().Name(),
			ID:       c.ID,
			ParentID: c.ParentID,
			Owner:    owner,
			Title:    title,
			Detail:   detail,
		})
	}
	return dtos
}

// FromStores converts every contribution in the closed token set, in token
// display order and registration order within a token.
func FromStores(s contrib.Stores) []ContributionDTO {
	var dtos []ContributionDTO
	dtos = append(dtos, contributions(s.Commands, func(c contrib.Command) (string, string) {
		return c.Title, c.Scope
	})...)
	dtos = append(dtos, contributions(s.SidebarItems, func(i contrib.SidebarItem) (string, string) {
		return i.Title, i.Target
	})...)
	dtos = append(dtos, contributions(s.MenuItems, func(i contrib.MenuItem) (string, string) {
		return i.Label, i.Accelerator
	})...)
	dtos = append(dtos, contributions(s.StatusBarItems, func(i contrib.StatusBarItem) (string, string) {
		return i.Text, i.Align
	})...)
	dtos = append(dtos, contributions(s.EntityMenuItems, func(i contrib.EntityMenuItem) (string, string) {
		kinds := "*"
		if len(i.Kinds) > 0 {
			kinds = joinSorted(i.Kinds)
		}
		return i.Title, kinds
	})...)
	if dtos == nil {
		dtos = make([]ContributionDTO, 0)
	}
	return dtos
}

// FilterByToken keeps contributions of one token. An empty token keeps everything.
func FilterByToken(dtos []ContributionDTO, token string) []ContributionDTO {
	if token == "" {
		return dtos
	}
	out := make([]ContributionDTO, 0, len(dtos))
	for _, d := range dtos {
		if d.Token == token {
			out = append(out, d)
		}
	}
	return out
}

// FromEntity converts a catalog entity
func FromEntity(e *catalog.Entity, activeUID string) EntityDTO {
	return EntityDTO{
		UID:         e.UID(),
		Name:        e.Metadata.Name,
		APIVersion:  e.APIVersion,
		Kind:        e.Kind,
		Source:      e.Metadata.Source,
		Phase:       e.Status.Phase,
		Labels:      e.Metadata.Labels,
		Description: e.Metadata.Description,
		Active:      activeUID != "" && e.UID() == activeUID,
	}
}

// FromEntities converts the visible entities of r
func FromEntities(r *catalog.EntityRegistry) []EntityDTO {
	activeUID := ""
	if a := r.ActiveEntity(); a != nil {
		activeUID = a.UID()
	}
	entities := r.Entities()
	dtos := make([]EntityDTO, len(entities))
	for i, e := range entities {
		dtos[i] = FromEntity(e, activeUID)
	}
	return dtos
}

// FromCategories converts every registered category, marking the ones that
// pass the category filters.
func FromCategories(cats *catalog.CategoryRegistry, entities *catalog.EntityRegistry) []CategoryDTO {
	visible := make(map[string]bool)
	for _, c := range cats.FilteredItems() {
		visible[c.ID()] = true
	}
	items := cats.Items()
	dtos := make([]CategoryDTO, len(items))
	for i, c := range items {
		dtos[i] = CategoryDTO{
			ID:       c.ID(),
			Name:     c.Metadata.Name,
			Icon:     c.Metadata.Icon,
			Entities: len(entities.GetItemsForCategory(c)),
			Visible:  visible[c.ID()],
		}
	}
	return dtos
}

// FromExtensions converts extension infos
func FromExtensions(infos []extension.Info) []ExtensionDTO {
	dtos := make([]ExtensionDTO, len(infos))
	for i, info := range infos {
		dtos[i] = ExtensionDTO{
			Name:        info.Name,
			Version:     info.Version,
			Description: info.Description,
			Builtin:     info.Builtin,
			Dir:         info.Dir,
			Bindings:    info.Bindings,
		}
	}
	return dtos
}

// FromHotbars converts every hotbar in s
func FromHotbars(s *hotbar.Store) []HotbarDTO {
	active := s.Active()
	hotbars := s.Hotbars()
	dtos := make([]HotbarDTO, len(hotbars))
	for i, h := range hotbars {
		dtos[i] = HotbarDTO{
			ID:     h.ID,
			Name:   h.Name,
			Active: active != nil && h.ID == active.ID,
			Slots:  h.Items,
		}
	}
	return dtos
}

func joinSorted(kinds []string) string {
	return strings.Join(slices.Sorted(slices.Values(kinds)), ",")
}
