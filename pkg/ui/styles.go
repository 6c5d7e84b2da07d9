package ui

import (
	"github.com/charmbracelet/lipgloss"

	gasDomain "github.com/fd1az/transfer-dashboard/business/gas/domain"
)

// Palette
var (
	colorAccent = lipgloss.Color("#0EA5E9")
	colorOK     = lipgloss.Color("#22C55E")
	colorErr    = lipgloss.Color("#F43F5E")
	colorWarn   = lipgloss.Color("#EAB308")
	colorLink   = lipgloss.Color("#818CF8")
	colorDim    = lipgloss.Color("#71717A")
	colorFrame  = lipgloss.Color("#3F3F46")
)

var (
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorFrame).
			Padding(0, 1)

	// FocusedBoxStyle frames the panel that receives keystrokes.
	FocusedBoxStyle = BoxStyle.BorderForeground(colorAccent)

	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F8FAFC")).
			Background(colorAccent).
			Padding(0, 2)

	// LabelStyle pads field names into a column.
	LabelStyle = lipgloss.NewStyle().Foreground(colorDim).Width(12)

	HelpStyle = lipgloss.NewStyle().Foreground(colorDim).Padding(0, 1)

	OkText   = lipgloss.NewStyle().Foreground(colorOK)
	ErrText  = lipgloss.NewStyle().Foreground(colorErr)
	WarnText = lipgloss.NewStyle().Foreground(colorWarn)
	DimText  = lipgloss.NewStyle().Foreground(colorDim)
	LinkText = lipgloss.NewStyle().Foreground(colorLink).Underline(true)

	NodeUp   = OkText.Bold(true)
	NodeDown = ErrText.Bold(true)
)

func congestionStyle(level gasDomain.CongestionLevel) lipgloss.Style {
	switch level {
	case gasDomain.CongestionLow:
		return OkText
	case gasDomain.CongestionMedium:
		return WarnText
	default:
		return ErrText
	}
}

// tierStyle colors a fee tier by how fast it lands.
func tierStyle(t gasDomain.Tier) lipgloss.Style {
	switch t {
	case gasDomain.TierHigh:
		return OkText
	case gasDomain.TierMedium:
		return WarnText
	default:
		return DimText
	}
}
