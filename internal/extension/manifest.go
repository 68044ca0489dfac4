// Package extension turns extension manifests and built-in extensions into
// registry producers.
package extension

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/zjrosen/registrar/internal/catalog"
)

// ManifestFile is the manifest file name inside an extension directory.
const ManifestFile = "extension.yaml"

var (
	ErrInvalidManifest = errors.New("invalid extension manifest")
	ErrIncompatible    = errors.New("extension is not compatible with this host")
)

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// Manifest is the parsed extension.yaml.
type Manifest struct {
	Name        string      `yaml:"name"`
	Version     string      `yaml:"version"`
	Description string      `yaml:"description"`
	Engine      string      `yaml:"engine"`
	Contributes Contributes `yaml:"contributes"`

	// Dir is the directory the manifest was read from; empty for built-ins.
	Dir string `yaml:"-"`
}

// Contributes lists what an extension adds.
type Contributes struct {
	Commands        []CommandDef        `yaml:"commands"`
	SidebarItems    []SidebarItemDef    `yaml:"sidebarItems"`
	MenuItems       []MenuItemDef       `yaml:"menuItems"`
	StatusBarItems  []StatusBarItemDef  `yaml:"statusBarItems"`
	EntityMenuItems []EntityMenuItemDef `yaml:"entityMenuItems"`
	Categories      []catalog.Category  `yaml:"categories"`
	Entities        []*catalog.Entity   `yaml:"entities"`
}

// CommandDef declares a command. Action names a host action run by the command.
type CommandDef struct {
	ID     string `yaml:"id"`
	Parent string `yaml:"parent"`
	Title  string `yaml:"title"`
	Scope  string `yaml:"scope"`
	Action string `yaml:"action"`
}

type SidebarItemDef struct {
	ID     string `yaml:"id"`
	Title  string `yaml:"title"`
	Icon   string `yaml:"icon"`
	Order  int    `yaml:"order"`
	Target string `yaml:"target"`
}

type MenuItemDef struct {
	ID          string `yaml:"id"`
	Parent      string `yaml:"parent"`
	Label       string `yaml:"label"`
	Accelerator string `yaml:"accelerator"`
	Action      string `yaml:"action"`
}

type StatusBarItemDef struct {
	ID      string `yaml:"id"`
	Text    string `yaml:"text"`
	Align   string `yaml:"align"`
	Tooltip string `yaml:"tooltip"`
}

type EntityMenuItemDef struct {
	ID     string   `yaml:"id"`
	Title  string   `yaml:"title"`
	Icon   string   `yaml:"icon"`
	Kinds  []string `yaml:"kinds"`
	Action string   `yaml:"action"`
}

// ParseManifest decodes and validates a manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks required fields, version syntax and id uniqueness per kind.
func (m *Manifest) Validate() error {
	if !namePattern.MatchString(m.Name) {
		return fmt.Errorf("%w: name %q must match %s", ErrInvalidManifest, m.Name, namePattern)
	}
	if _, err := semver.StrictNewVersion(m.Version); err != nil {
		return fmt.Errorf("%w: %s: version %q: %w", ErrInvalidManifest, m.Name, m.Version, err)
	}
	if m.Engine != "" {
		if _, err := semver.NewConstraint(m.Engine); err != nil {
			return fmt.Errorf("%w: %s: engine %q: %w", ErrInvalidManifest, m.Name, m.Engine, err)
		}
	}

	c := m.Contributes
	checks := []struct {
		kind string
		ids  []string
	}{
		{"commands", ids(c.Commands, func(d CommandDef) string { return d.ID })},
		{"sidebarItems", ids(c.SidebarItems, func(d SidebarItemDef) string { return d.ID })},
		{"menuItems", ids(c.MenuItems, func(d MenuItemDef) string { return d.ID })},
		{"statusBarItems", ids(c.StatusBarItems, func(d StatusBarItemDef) string { return d.ID })},
		{"entityMenuItems", ids(c.EntityMenuItems, func(d EntityMenuItemDef) string { return d.ID })},
	}
	for _, chk := range checks {
		seen := make(map[string]bool, len(chk.ids))
		for _, id := range chk.ids {
			if id == "" {
				return fmt.Errorf("%w: %s: %s entry without id", ErrInvalidManifest, m.Name, chk.kind)
			}
			if seen[id] {
				return fmt.Errorf("%w: %s: duplicate %s id %q", ErrInvalidManifest, m.Name, chk.kind, id)
			}
			seen[id] = true
		}
	}

	for _, cat := range c.Categories {
		if cat.APIVersion == "" || cat.Kind == "" {
			return fmt.Errorf("%w: %s: category needs apiVersion and kind", ErrInvalidManifest, m.Name)
		}
	}
	for _, e := range c.Entities {
		if e == nil || e.APIVersion == "" || e.Kind == "" || e.Metadata.Name == "" {
			return fmt.Errorf("%w: %s: entity needs apiVersion, kind and metadata.name", ErrInvalidManifest, m.Name)
		}
	}
	return nil
}

func ids[T any](defs []T, id func(T) string) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = id(d)
	}
	return out
}

// CompatibleWith reports whether the engine constraint admits host. A manifest
// without an engine constraint is compatible with every host.
func (m *Manifest) CompatibleWith(host *semver.Version) error {
	if m.Engine == "" {
		return nil
	}
	c, err := semver.NewConstraint(m.Engine)
	if err != nil {
		return fmt.Errorf("%w: %s: engine %q: %w", ErrInvalidManifest, m.Name, m.Engine, err)
	}
	if ok, errs := c.Validate(host); !ok {
		return fmt.Errorf("%w: %s requires %s, host is %s: %w", ErrIncompatible, m.Name, m.Engine, host, errors.Join(errs...))
	}
	return nil
}
