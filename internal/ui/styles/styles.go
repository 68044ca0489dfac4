// Package styles contains Lip Gloss style definitions.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/registrar/internal/catalog"
)

var (
	// Text hierarchy
	TextPrimaryColor     = lipgloss.AdaptiveColor{Light: "#2D3436", Dark: "#CCCCCC"}
	TextSecondaryColor   = lipgloss.AdaptiveColor{Light: "#636E72", Dark: "#BBBBBB"}
	TextMutedColor       = lipgloss.AdaptiveColor{Light: "#959595", Dark: "#696969"}
	TextDescriptionColor = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#999999"}

	// Borders
	BorderDefaultColor = lipgloss.AdaptiveColor{Light: "#C8C8C8", Dark: "#696969"}
	BorderFocusColor   = lipgloss.AdaptiveColor{Light: "#3498DB", Dark: "#54A0FF"}
	OverlayBorderColor = lipgloss.AdaptiveColor{Light: "#A0A0A0", Dark: "#8C8C8C"}
	OverlayTitleColor  = lipgloss.AdaptiveColor{Light: "#2D3436", Dark: "#C9C9C9"}

	// Status
	StatusSuccessColor = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	StatusWarningColor = lipgloss.AdaptiveColor{Light: "#E1A100", Dark: "#FECA57"}
	StatusErrorColor   = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF8787"}

	// Accent is used for the active entity and the active hotbar.
	AccentColor = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}

	SelectionIndicatorStyle = lipgloss.NewStyle().Bold(true).Foreground(BorderFocusColor)
	SelectedRowStyle        = lipgloss.NewStyle().Bold(true)
	MutedStyle              = lipgloss.NewStyle().Foreground(TextMutedColor)
	DescriptionStyle        = lipgloss.NewStyle().Foreground(TextDescriptionColor)
	ActiveStyle             = lipgloss.NewStyle().Foreground(AccentColor).Bold(true)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(TextSecondaryColor).
			Padding(0, 1)

	HotbarSlotStyle = lipgloss.NewStyle().
			Foreground(TextSecondaryColor).
			Padding(0, 1)

	HotbarEmptySlotStyle = lipgloss.NewStyle().
				Foreground(TextMutedColor).
				Padding(0, 1)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(StatusErrorColor).
			Bold(true)

	NoticeStyle = lipgloss.NewStyle().
			Foreground(StatusSuccessColor)
)

// PhaseStyle returns the style for an entity status phase.
func PhaseStyle(phase string) lipgloss.Style {
	switch phase {
	case catalog.PhaseConnected:
		return lipgloss.NewStyle().Foreground(StatusSuccessColor)
	case catalog.PhaseDisconnected:
		return lipgloss.NewStyle().Foreground(StatusWarningColor)
	case catalog.PhaseDeleting:
		return lipgloss.NewStyle().Foreground(StatusErrorColor)
	default:
		return MutedStyle
	}
}
