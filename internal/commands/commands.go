// Package commands handles slash command parsing for the chat composer.
package commands

import (
	"strconv"
	"strings"
)

// Command interface for all command types
type Command interface {
	Type() string
}

// Help opens the help overlay
type Help struct{}

func (Help) Type() string { return "help" }

// SelectModel picks a model by id or display name
type SelectModel struct {
	Ref string
}

func (SelectModel) Type() string { return "model" }

// Search sets the model search term. An empty term clears it.
type Search struct {
	Term string
}

func (Search) Type() string { return "search" }

// AttachImage loads an image file into the pending slot
type AttachImage struct {
	Path string
}

func (AttachImage) Type() string { return "image" }

type DiscardImage struct{}

func (DiscardImage) Type() string { return "discard" }

// ClearHistory asks for confirmation, then clears the shared history
type ClearHistory struct{}

func (ClearHistory) Type() string { return "clear" }

// Copy copies message Index (1-based) to the clipboard. Index 0 means the
// last message.
type Copy struct {
	Index int
}

func (Copy) Type() string { return "copy" }

// Export writes the transcript as markdown into Dir (empty for default)
type Export struct {
	Dir string
}

func (Export) Type() string { return "export" }

type Quit struct{}

func (Quit) Type() string { return "quit" }

// ParseError represents a command parsing error
type ParseError struct {
	Message string
}

func (ParseError) Type() string { return "error" }

// Parse parses user input and returns the appropriate Command.
// Returns nil if the input is not a known slash command, so text such as
// "/etc/hosts" goes out as a message.
func Parse(input string) Command {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return nil
	}

	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]
	// rest keeps inner spacing so paths with spaces survive
	rest := strings.TrimSpace(input[len(parts[0]):])

	switch cmd {
	case "/help", "/?":
		return Help{}

	case "/model":
		if rest == "" {
			return ParseError{Message: "/model requires a model id or name"}
		}
		return SelectModel{Ref: rest}

	case "/search":
		return Search{Term: rest}

	case "/image":
		if rest == "" {
			return ParseError{Message: "/image requires a path"}
		}
		return AttachImage{Path: rest}

	case "/discard":
		return DiscardImage{}

	case "/clear":
		return ClearHistory{}

	case "/copy":
		if len(args) == 0 {
			return Copy{}
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return ParseError{Message: "/copy takes a message number starting at 1"}
		}
		return Copy{Index: n}

	case "/export":
		return Export{Dir: rest}

	case "/quit", "/exit":
		return Quit{}

	default:
		return nil
	}
}

// Unescape drops the leading slash of "//text", which lets a message start
// with something Parse would treat as a command.
func Unescape(input string) string {
	trimmed := strings.TrimLeft(input, " \t\n")
	if strings.HasPrefix(trimmed, "//") {
		return trimmed[1:]
	}
	return input
}

// HelpText returns the help text for all available commands.
func HelpText() string {
	return `Commands:
  /help             - Show this help
  /model <id|name>  - Select a model
  /search [term]    - Filter the model list (no term clears it)
  /image <path>     - Attach an image to the next message
  /discard          - Drop the attached image
  /clear            - Delete all chat history (asks first)
  /copy [n]         - Copy message n, or the last one
  /export [dir]     - Save the transcript as markdown
  /quit             - Exit
  //text            - Send text that starts with a slash

Keys:
  Tab               - Cycle focus: composer, search, models
  Enter / Ctrl+S    - Send
  Alt+Enter         - New line
  PgUp/PgDn         - Scroll transcript
  Ctrl+O            - Attach image
  Ctrl+X            - Discard image
  Ctrl+L            - Clear history
  Ctrl+Y            - Copy last message
  Esc               - Dismiss error or close overlay
  F1                - Help
  Ctrl+C            - Quit`
}
