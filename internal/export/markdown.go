// internal/export/markdown.go
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"madlen/internal/attach"
	"madlen/internal/chat"
)

// Transcript contains the data needed to export a conversation
type Transcript struct {
	Title      string
	Model      string // display name of the selected model, may be empty
	ExportedAt time.Time
	Messages   []chat.Message
}

// Markdown renders a transcript. Images are not embedded; each becomes a
// note with its media type and size.
func Markdown(t *Transcript) string {
	var sb strings.Builder

	title := t.Title
	if title == "" {
		title = "Madlen conversation"
	}
	sb.WriteString("# ")
	sb.WriteString(title)
	sb.WriteString("\n\n")

	sb.WriteString("---\n\n")
	sb.WriteString(fmt.Sprintf("**Exported:** %s\n\n", t.ExportedAt.Format("2006-01-02 15:04:05")))
	if t.Model != "" {
		sb.WriteString(fmt.Sprintf("**Model:** %s\n\n", t.Model))
	}
	sb.WriteString(fmt.Sprintf("**Messages:** %d\n\n", len(t.Messages)))
	sb.WriteString("---\n\n")

	if len(t.Messages) == 0 {
		sb.WriteString("_No messages._\n")
		return sb.String()
	}

	sb.WriteString("## Transcript\n\n")

	for i, msg := range t.Messages {
		sb.WriteString(fmt.Sprintf("### %d. %s\n\n", i+1, formatRole(msg.Role)))

		if msg.Image != "" {
			sb.WriteString(fmt.Sprintf("*[image: %s, %s]*\n\n",
				attach.DataURIMime(msg.Image), FormatBytes(attach.DataURISize(msg.Image))))
		}

		content := strings.TrimSpace(msg.Content)
		switch {
		case content == "":
		case msg.Role == chat.RoleAssistant || containsCodeBlock(content):
			// Assistant replies are already markdown
			sb.WriteString(content)
			sb.WriteString("\n")
		default:
			for _, line := range strings.Split(content, "\n") {
				sb.WriteString("> ")
				sb.WriteString(line)
				sb.WriteString("\n")
			}
		}
		sb.WriteString("\n")

		if i < len(t.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	return sb.String()
}

// Write exports a transcript to a markdown file in dir and returns its path
func Write(t *Transcript, dir string) (string, error) {
	filename := fmt.Sprintf("%s-%s.md",
		t.ExportedAt.Format("2006-01-02-150405"), sanitizeFilename(t.Title))

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(Markdown(t)), 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	return path, nil
}

func formatRole(role string) string {
	switch role {
	case chat.RoleUser:
		return "You"
	case chat.RoleAssistant:
		return "Assistant"
	default:
		return role
	}
}

// FormatBytes renders a byte count as B, KB or MB
func FormatBytes(n int) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}

// sanitizeFilename removes/replaces characters unsuitable for filenames
func sanitizeFilename(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "-")

	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
			sb.WriteRune(r)
		case r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '-' || r == '_':
			sb.WriteRune(r)
		}
	}

	result := sb.String()
	for strings.Contains(result, "--") {
		result = strings.ReplaceAll(result, "--", "-")
	}
	result = strings.Trim(result, "-")

	if result == "" {
		result = "chat"
	}
	if len(result) > 50 {
		result = result[:50]
	}
	return result
}

// containsCodeBlock checks if content already has markdown code blocks
func containsCodeBlock(content string) bool {
	return strings.Contains(content, "```")
}
