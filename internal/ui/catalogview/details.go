package catalogview

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/registrar/internal/catalog"
	"github.com/zjrosen/registrar/internal/ui/styles"
)

// minDetailsWidth is the narrowest entity pane that still gets a details pane.
const minDetailsWidth = 60

// detailsMarkdown describes e for the details pane.
func detailsMarkdown(e *catalog.Entity, category string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", e.Metadata.Name)
	if d := strings.TrimSpace(e.Metadata.Description); d != "" {
		b.WriteString(d)
		b.WriteString("\n\n")
	}

	if category == "" {
		category = e.KindData().String()
	}
	fmt.Fprintf(&b, "- **Category:** %s\n", category)
	fmt.Fprintf(&b, "- **UID:** `%s`\n", e.UID())
	if e.Metadata.Source != "" {
		fmt.Fprintf(&b, "- **Source:** %s\n", e.Metadata.Source)
	}
	phase := e.Status.Phase
	if e.Status.Reason != "" {
		phase += " (" + e.Status.Reason + ")"
	}
	fmt.Fprintf(&b, "- **Phase:** %s\n", phase)
	if e.Status.Message != "" {
		fmt.Fprintf(&b, "- **Message:** %s\n", e.Status.Message)
	}

	if len(e.Metadata.Labels) > 0 {
		b.WriteString("\n## Labels\n\n")
		keys := make([]string, 0, len(e.Metadata.Labels))
		for k := range e.Metadata.Labels {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- `%s=%s`\n", k, e.Metadata.Labels[k])
		}
	}

	if len(e.Spec) > 0 {
		if spec, err := yaml.Marshal(e.Spec); err == nil {
			b.WriteString("\n## Spec\n\n```yaml\n")
			b.Write(spec)
			b.WriteString("```\n")
		}
	}
	return b.String()
}

func (m Model) renderDetails(width int) string {
	e := m.SelectedEntity()
	if e == nil {
		return styles.MutedStyle.Render("No entity selected")
	}
	category := ""
	if c, ok := m.deps.Categories.GetCategoryForEntity(e.KindData()); ok {
		category = c.Metadata.Name
	}
	m.md.SetWidth(width)
	return m.md.Render(detailsMarkdown(e, category))
}
