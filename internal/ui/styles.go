// internal/ui/styles.go
package ui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	Cyan     = lipgloss.Color("#00FFFF")
	Green    = lipgloss.Color("#00FF00")
	Yellow   = lipgloss.Color("#FFD700")
	Orange   = lipgloss.Color("#FFA500")
	Red      = lipgloss.Color("#FF6B6B")
	Magenta  = lipgloss.Color("#FF00FF")
	SkyBlue  = lipgloss.Color("#87CEEB")
	Dim      = lipgloss.Color("#555555")
	White    = lipgloss.Color("#FFFFFF")
	DarkGray = lipgloss.Color("#333333")

	UserColor      = SkyBlue
	AssistantColor = Green

	// Box styles
	ActiveBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Cyan)

	InactiveBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Dim)

	// Text styles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Cyan)

	UserStyle = lipgloss.NewStyle().
			Foreground(UserColor).
			Bold(true)

	AssistantStyle = lipgloss.NewStyle().
			Foreground(AssistantColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(Dim)

	// Banner shown while Session.LastError is set
	BannerStyle = lipgloss.NewStyle().
			Foreground(White).
			Background(lipgloss.Color("#8B0000")).
			Bold(true).
			Padding(0, 1)

	ToastStyle = lipgloss.NewStyle().
			Foreground(Green).
			Bold(true)

	ImageBadgeStyle = lipgloss.NewStyle().
			Foreground(Magenta)

	// Model list
	SelectedModelStyle = lipgloss.NewStyle().
				Foreground(Cyan).
				Bold(true)

	CursorModelStyle = lipgloss.NewStyle().
				Foreground(White).
				Background(DarkGray)

	VisionBadgeStyle = lipgloss.NewStyle().
				Foreground(Yellow)
)

// RoleStyle returns the header style for a transcript role
func RoleStyle(role string) lipgloss.Style {
	switch role {
	case "user":
		return UserStyle
	case "assistant":
		return AssistantStyle
	default:
		return lipgloss.NewStyle().Foreground(White)
	}
}

func formatRole(role string) string {
	switch role {
	case "user":
		return "You"
	case "assistant":
		return "Assistant"
	default:
		return role
	}
}
