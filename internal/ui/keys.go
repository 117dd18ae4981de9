package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds every global binding of the chat view
type KeyMap struct {
	Send         key.Binding
	Newline      key.Binding
	NextFocus    key.Binding
	PrevFocus    key.Binding
	Up           key.Binding
	Down         key.Binding
	Select       key.Binding
	PageUp       key.Binding
	PageDown     key.Binding
	AttachImage  key.Binding
	DiscardImage key.Binding
	ClearHistory key.Binding
	Copy         key.Binding
	Help         key.Binding
	Escape       key.Binding
	Confirm      key.Binding
	Deny         key.Binding
	Quit         key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Send: key.NewBinding(
			key.WithKeys("enter", "ctrl+s"),
			key.WithHelp("enter", "send"),
		),
		Newline: key.NewBinding(
			key.WithKeys("alt+enter", "ctrl+j"),
			key.WithHelp("alt+enter", "new line"),
		),
		NextFocus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next pane"),
		),
		PrevFocus: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "previous pane"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "select model"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
		),
		AttachImage: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("ctrl+o", "attach image"),
		),
		DiscardImage: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "discard image"),
		),
		ClearHistory: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "clear history"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("ctrl+y", "copy last"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("f1", "help"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y", "Y"),
		),
		Deny: key.NewBinding(
			key.WithKeys("n", "N", "esc"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// ShortHelp is the one-line hint under the composer
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.NextFocus, k.AttachImage, k.Copy, k.ClearHistory, k.Help, k.Quit}
}
