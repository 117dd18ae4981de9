package ui

import (
	"fmt"
	"log"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"madlen/internal/attach"
	"madlen/internal/chat"
	"madlen/internal/export"
)

const noModelLabel = "Select a model"

func newRenderer(width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(max(width, 20)),
	)
	if err != nil {
		log.Printf("[ui] markdown renderer unavailable: %v", err)
		return nil
	}
	return r
}

// refreshTranscript re-renders the transcript and jumps to the bottom
func (m *Model) refreshTranscript() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

func (m *Model) renderMessages() string {
	messages := m.session.Messages
	if len(messages) == 0 && !m.session.Loading {
		return DimStyle.Render("No messages yet. Pick a model and say hello.")
	}

	// Messages only grow between resets, so earlier renders stay valid
	if len(m.rendered) > len(messages) {
		m.rendered = nil
	}

	var sb strings.Builder
	for i, msg := range messages {
		if i >= len(m.rendered) {
			m.rendered = append(m.rendered, m.renderMessage(i, msg))
		}
		sb.WriteString(m.rendered[i])
	}

	if m.session.Loading {
		sb.WriteString(AssistantStyle.Render("Assistant"))
		sb.WriteString("\n  ")
		sb.WriteString(DimStyle.Render("thinking..."))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m *Model) renderMessage(i int, msg chat.Message) string {
	var sb strings.Builder

	header := fmt.Sprintf("%s %s", RoleStyle(msg.Role).Render(formatRole(msg.Role)), DimStyle.Render(fmt.Sprintf("#%d", i+1)))
	sb.WriteString(header)
	sb.WriteString("\n")

	if msg.Image != "" {
		sb.WriteString("  ")
		sb.WriteString(imageBadge(msg.Image))
		sb.WriteString("\n")
	}

	if msg.Role == chat.RoleAssistant && m.renderer != nil {
		out, err := m.renderer.Render(msg.Content)
		if err == nil {
			sb.WriteString(strings.TrimRight(out, "\n"))
			sb.WriteString("\n\n")
			return sb.String()
		}
		log.Printf("[ui] markdown render: %v", err)
	}

	for _, line := range strings.Split(msg.Content, "\n") {
		sb.WriteString("  ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	return sb.String()
}

func imageBadge(dataURI string) string {
	mime := attach.DataURIMime(dataURI)
	if mime == "" {
		mime = "image"
	}
	return ImageBadgeStyle.Render(fmt.Sprintf("[📷 %s, %s]", mime, export.FormatBytes(attach.DataURISize(dataURI))))
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	switch m.overlay {
	case overlayHelp:
		return HelpContent(m.width, m.height)
	case overlayConfirmClear:
		return confirmClearContent(m.width, m.height)
	case overlayImagePrompt:
		return imagePromptContent(m.imagePrompt.View(), m.width, m.height)
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.boxed(m.viewport.View(), false),
		m.renderStatus(),
		m.boxed(m.composer.View(), m.focus == focusComposer),
		m.help.ShortHelpView(m.keys.ShortHelp()),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), body)
}

func (m Model) boxed(content string, active bool) string {
	style := InactiveBox
	if active {
		style = ActiveBox
	}
	return style.Render(content)
}

func (m Model) renderHeader() string {
	name := noModelLabel
	if model, ok := m.session.SelectedModel(); ok {
		name = model.Name
	}
	return TitleStyle.Render("MADLEN") + "  " + DimStyle.Render(name)
}

// renderStatus shows, in priority order, the error banner, the spinner,
// the toast, the pending image and the last notice
func (m Model) renderStatus() string {
	var parts []string

	if m.session.LastError != "" {
		parts = append(parts, BannerStyle.Render(m.session.LastError)+DimStyle.Render(" esc to dismiss"))
	}
	if m.session.Loading {
		parts = append(parts, m.spinner.View()+" waiting for reply")
	}
	if m.toast != "" {
		parts = append(parts, ToastStyle.Render(m.toast))
	}
	if m.session.PendingImage != "" {
		parts = append(parts, imageBadge(m.session.PendingImage)+DimStyle.Render(" ctrl+x to discard"))
	}
	if m.notice != "" {
		parts = append(parts, DimStyle.Render(m.notice))
	}

	return strings.Join(parts, "  ")
}

func (m Model) renderSidebar() string {
	var sb strings.Builder

	sb.WriteString(TitleStyle.Render("MODELS"))
	sb.WriteString("\n\n")
	sb.WriteString(m.search.View())
	sb.WriteString("\n\n")

	filtered := m.session.FilteredModels()
	if len(m.session.Models) == 0 {
		sb.WriteString(DimStyle.Render("No models"))
	} else if len(filtered) == 0 {
		sb.WriteString(DimStyle.Render("No matches"))
	}

	for i, model := range filtered {
		label := truncate(model.Name, sidebarWidth-8)
		if model.SupportsVision {
			label += " " + VisionBadgeStyle.Render("📷")
		}

		marker := "  "
		style := lipgloss.NewStyle()
		if model.ID == m.session.SelectedModelID {
			marker = "● "
			style = SelectedModelStyle
		}
		if m.focus == focusModels && i == m.cursor {
			style = CursorModelStyle
		}

		sb.WriteString(marker)
		sb.WriteString(style.Render(label))
		sb.WriteString("\n")
	}

	box := InactiveBox
	if m.focus == focusSearch || m.focus == focusModels {
		box = ActiveBox
	}
	return box.
		Width(sidebarWidth - 2).
		Height(max(m.height-2, 5)).
		Render(sb.String())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-2]) + ".."
}
