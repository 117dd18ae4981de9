// internal/ui/help.go
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Help overlay content and rendering

var (
	helpTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Cyan).
			MarginBottom(1)

	helpSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(Yellow).
				MarginTop(1)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(Green).
			Bold(true)

	helpCmdStyle = lipgloss.NewStyle().
			Foreground(Magenta)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(White)

	helpDimStyle = lipgloss.NewStyle().
			Foreground(Dim)
)

// HelpContent returns the formatted help overlay content
func HelpContent(width, height int) string {
	var content strings.Builder

	content.WriteString(helpTitleStyle.Render("MADLEN HELP"))
	content.WriteString("\n\n")

	content.WriteString(helpSectionStyle.Render("KEYBINDINGS"))
	content.WriteString("\n\n")

	keybindings := []struct {
		key  string
		desc string
	}{
		{"Enter / Ctrl+S", "Send the message"},
		{"Alt+Enter", "Insert a new line"},
		{"Tab", "Cycle focus (Composer -> Search -> Models)"},
		{"Shift+Tab", "Cycle focus backward"},
		{"Up/Down, Enter", "Move in the model list and select"},
		{"PgUp / PgDn", "Scroll the transcript"},
		{"Ctrl+O", "Attach an image"},
		{"Ctrl+X", "Discard the attached image"},
		{"Ctrl+Y", "Copy the last message"},
		{"Ctrl+L", "Clear all history (asks first)"},
		{"F1", "Toggle this help overlay"},
		{"Esc", "Dismiss error / return to composer"},
		{"Ctrl+C", "Quit"},
	}

	for _, kb := range keybindings {
		key := helpKeyStyle.Width(16).Render(kb.key)
		desc := helpDescStyle.Render(kb.desc)
		content.WriteString("  " + key + "  " + desc + "\n")
	}

	content.WriteString("\n")
	content.WriteString(helpSectionStyle.Render("SLASH COMMANDS"))
	content.WriteString("\n\n")

	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help", "Show this help overlay"},
		{"/model <id|name>", "Select a model"},
		{"/search [term]", "Filter the model list"},
		{"/image <path>", "Attach an image to the next message"},
		{"/discard", "Drop the attached image"},
		{"/clear", "Delete all chat history"},
		{"/copy [n]", "Copy message n (default: last)"},
		{"/export [dir]", "Save the transcript as markdown"},
		{"/quit", "Exit"},
		{"//text", "Send a message starting with /"},
	}

	for _, cmd := range commands {
		cmdStr := helpCmdStyle.Width(18).Render(cmd.cmd)
		desc := helpDescStyle.Render(cmd.desc)
		content.WriteString("  " + cmdStr + "  " + desc + "\n")
	}

	content.WriteString("\n")
	content.WriteString("  " + helpDimStyle.Render("📷 marks models that accept images.") + "\n")

	content.WriteString("\n")
	footer := helpDimStyle.Render("Press F1 or Esc to close this help")
	content.WriteString(lipgloss.PlaceHorizontal(max(width-8, 0), lipgloss.Center, footer))

	return overlay(content.String(), width, height)
}

func confirmClearContent(width, height int) string {
	var content strings.Builder
	content.WriteString(ErrorStyle.Render("Clear history?"))
	content.WriteString("\n\n")
	content.WriteString("All chat history will be deleted. Are you sure?")
	content.WriteString("\n\n")
	content.WriteString(helpKeyStyle.Render("y") + helpDimStyle.Render(" yes   ") +
		helpKeyStyle.Render("n") + helpDimStyle.Render(" no"))
	return overlay(content.String(), width, height)
}

func imagePromptContent(input string, width, height int) string {
	var content strings.Builder
	content.WriteString(TitleStyle.Render("Attach image"))
	content.WriteString("\n\n")
	content.WriteString(input)
	content.WriteString("\n\n")
	content.WriteString(helpDimStyle.Render("Enter to attach, Esc to cancel"))
	return overlay(content.String(), width, height)
}

func overlay(content string, width, height int) string {
	overlayStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Cyan).
		Padding(1, 3).
		MaxWidth(max(width-10, 20)).
		MaxHeight(max(height-4, 5))

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		overlayStyle.Render(content),
	)
}
