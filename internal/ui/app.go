package ui

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"madlen/internal/chat"
	"madlen/internal/commands"
	"madlen/internal/export"
)

const (
	sidebarWidth  = 32
	composerLines = 3

	copiedToast = "✓ Copied!"
)

type focusArea int

const (
	focusComposer focusArea = iota
	focusSearch
	focusModels
	focusCount
)

type overlayKind int

const (
	overlayNone overlayKind = iota
	overlayHelp
	overlayConfirmClear
	overlayImagePrompt
)

// Options configures the chat view
type Options struct {
	Backend       chat.Backend
	SingleFlight  bool
	ToastDuration time.Duration
	ExportDir     string
	Clipboard     func(string) error // defaults to the system clipboard
	Context       context.Context
}

// Model is the Bubble Tea model of the chat view. All chat state lives in
// session; the rest is presentation.
type Model struct {
	ctx     context.Context
	backend chat.Backend
	session *chat.Session
	keys    KeyMap

	width, height int
	ready         bool

	focus   focusArea
	overlay overlayKind

	viewport    viewport.Model
	composer    textarea.Model
	search      textinput.Model
	imagePrompt textinput.Model
	spinner     spinner.Model
	help        help.Model

	renderer *glamour.TermRenderer
	rendered []string // glamour output per message, reset on resize or clear

	cursor int // index into the filtered model list

	notice        string // transient info line, replaced by the next one
	toast         string
	toastSeq      int
	toastDuration time.Duration

	exportDir string
	copyFn    func(string) error
}

func New(opts Options) Model {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.ToastDuration <= 0 {
		opts.ToastDuration = 2 * time.Second
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}

	session := chat.NewSession()
	session.SingleFlight = opts.SingleFlight

	keys := DefaultKeyMap()

	ta := textarea.New()
	ta.Placeholder = "Type a message... (/help for commands)"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(composerLines)
	ta.KeyMap.InsertNewline = keys.Newline
	ta.Focus()

	search := textinput.New()
	search.Prompt = "Search: "
	search.Placeholder = "filter models"
	search.CharLimit = 64

	imagePrompt := textinput.New()
	imagePrompt.Prompt = "Image path: "
	imagePrompt.Placeholder = "~/Pictures/cat.png"

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = AssistantStyle

	vp := viewport.New(80, 20)
	vp.MouseWheelEnabled = true

	return Model{
		ctx:           opts.Context,
		backend:       opts.Backend,
		session:       session,
		keys:          keys,
		viewport:      vp,
		composer:      ta,
		search:        search,
		imagePrompt:   imagePrompt,
		spinner:       sp,
		help:          help.New(),
		toastDuration: opts.ToastDuration,
		exportDir:     opts.ExportDir,
		copyFn:        opts.Clipboard,
	}
}

// Session exposes the chat state, mainly for tests and the CLI
func (m Model) Session() *chat.Session {
	return m.session
}

// Init issues the model and history fetches concurrently
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		loadModelsCmd(m.ctx, m.backend),
		loadHistoryCmd(m.ctx, m.backend),
		textarea.Blink,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case modelsLoadedMsg:
		m.session.ApplyModels(msg.models, msg.err)
		m.cursor = m.selectedIndex()
		return m, nil

	case historyLoadedMsg:
		m.session.ApplyHistory(msg.messages, msg.err)
		m.rendered = nil
		m.refreshTranscript()
		return m, nil

	case chatReplyMsg:
		m.session.CompleteSend(msg.reply, msg.err)
		m.refreshTranscript()
		return m, nil

	case historyClearedMsg:
		m.session.ApplyClear(msg.err)
		if msg.err == nil {
			m.rendered = nil
			m.notice = "History cleared"
		}
		m.refreshTranscript()
		return m, nil

	case imageLoadedMsg:
		if msg.err != nil {
			log.Printf("[ui] attach %s: %v", msg.path, msg.err)
			m.notice = "Could not attach image: " + msg.err.Error()
			return m, nil
		}
		m.session.AttachImage(msg.dataURI)
		m.notice = ""
		return m, nil

	case copiedMsg:
		// The acknowledgement shows either way; failures only reach the log
		if msg.err != nil {
			log.Printf("[ui] clipboard: %v", msg.err)
		}
		m.toastSeq++
		m.toast = copiedToast
		return m, toastExpireCmd(m.toastDuration, m.toastSeq)

	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = ""
		}
		return m, nil

	case exportedMsg:
		if msg.err != nil {
			log.Printf("[ui] export: %v", msg.err)
			m.notice = "Export failed: " + msg.err.Error()
		} else {
			m.notice = "Exported to " + msg.path
		}
		return m, nil

	case spinner.TickMsg:
		if !m.session.Loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m.updateFocused(msg)
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true

	mainWidth := max(m.width-sidebarWidth-2, 20)
	// header, banner/status line, help line, composer with border
	chrome := 1 + 1 + 1 + composerLines + 2
	m.viewport.Width = mainWidth - 2
	m.viewport.Height = max(m.height-chrome-2, 3)

	m.composer.SetWidth(mainWidth - 2)
	m.search.Width = sidebarWidth - 12
	m.imagePrompt.Width = min(60, max(m.width-20, 10))
	m.help.Width = mainWidth

	m.renderer = newRenderer(m.viewport.Width - 2)
	m.rendered = nil
	m.refreshTranscript()
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	switch m.overlay {
	case overlayHelp:
		if key.Matches(msg, m.keys.Help, m.keys.Escape) || msg.String() == "q" {
			m.overlay = overlayNone
		}
		return m, nil

	case overlayConfirmClear:
		switch {
		case key.Matches(msg, m.keys.Confirm):
			m.overlay = overlayNone
			return m, clearHistoryCmd(m.ctx, m.backend)
		case key.Matches(msg, m.keys.Deny):
			m.overlay = overlayNone
		}
		return m, nil

	case overlayImagePrompt:
		switch msg.Type {
		case tea.KeyEsc:
			m.overlay = overlayNone
			m.imagePrompt.Blur()
			return m, nil
		case tea.KeyEnter:
			path := m.imagePrompt.Value()
			m.overlay = overlayNone
			m.imagePrompt.Blur()
			m.imagePrompt.Reset()
			if path == "" {
				return m, nil
			}
			return m, loadImageCmd(path)
		}
		var cmd tea.Cmd
		m.imagePrompt, cmd = m.imagePrompt.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Help):
		m.overlay = overlayHelp
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		if m.session.LastError != "" {
			m.session.DismissError()
		} else {
			m.notice = ""
			m.setFocus(focusComposer)
		}
		return m, nil

	case key.Matches(msg, m.keys.NextFocus):
		m.setFocus((m.focus + 1) % focusCount)
		return m, nil

	case key.Matches(msg, m.keys.PrevFocus):
		m.setFocus((m.focus + focusCount - 1) % focusCount)
		return m, nil

	case key.Matches(msg, m.keys.AttachImage):
		return m.openImagePrompt()

	case key.Matches(msg, m.keys.DiscardImage):
		m.session.DiscardImage()
		return m, nil

	case key.Matches(msg, m.keys.ClearHistory):
		m.overlay = overlayConfirmClear
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		return m.copyMessage(0)

	case key.Matches(msg, m.keys.PageUp, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	switch m.focus {
	case focusModels:
		return m.handleModelListKey(msg)
	case focusComposer:
		if key.Matches(msg, m.keys.Send) {
			return m.submit()
		}
	case focusSearch:
		if msg.Type == tea.KeyEnter {
			m.setFocus(focusModels)
			m.cursor = 0
			return m, nil
		}
	}

	return m.updateFocused(msg)
}

// updateFocused forwards msg to the focused input and mirrors its value
// into the session buffer
func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case focusComposer:
		m.composer, cmd = m.composer.Update(msg)
		m.session.SetInput(m.composer.Value())
	case focusSearch:
		m.search, cmd = m.search.Update(msg)
		m.applySearch(m.search.Value())
	}
	return m, cmd
}

func (m Model) handleModelListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	filtered := m.session.FilteredModels()
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(filtered)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Select):
		if m.cursor >= 0 && m.cursor < len(filtered) {
			m.session.SelectModel(filtered[m.cursor].ID)
		}
	}
	return m, nil
}

func (m *Model) setFocus(f focusArea) {
	m.focus = f
	m.composer.Blur()
	m.search.Blur()
	switch f {
	case focusComposer:
		m.composer.Focus()
	case focusSearch:
		m.search.Focus()
	case focusModels:
		m.cursor = m.selectedIndex()
	}
}

func (m *Model) applySearch(term string) {
	m.session.SetSearchTerm(term)
	n := len(m.session.FilteredModels())
	if m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}

// selectedIndex is the position of the selected model in the filtered list
func (m Model) selectedIndex() int {
	for i, model := range m.session.FilteredModels() {
		if model.ID == m.session.SelectedModelID {
			return i
		}
	}
	return 0
}

// submit runs a slash command or starts a send
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.composer.Value()

	if cmd := commands.Parse(text); cmd != nil {
		m.composer.Reset()
		m.session.SetInput("")
		return m.runCommand(cmd)
	}
	text = commands.Unescape(text)

	m.session.SetInput(text)
	req, ok := m.session.BeginSend()
	if !ok {
		return m, nil
	}

	m.composer.Reset()
	m.notice = ""
	m.refreshTranscript()
	return m, tea.Batch(sendChatCmd(m.ctx, m.backend, req), m.spinner.Tick)
}

func (m Model) runCommand(cmd commands.Command) (tea.Model, tea.Cmd) {
	switch c := cmd.(type) {
	case commands.Help:
		m.overlay = overlayHelp

	case commands.SelectModel:
		model, ok := chat.FindModel(m.session.Models, c.Ref)
		if !ok {
			m.notice = "No model matches " + c.Ref
			return m, nil
		}
		m.session.SelectModel(model.ID)
		m.cursor = m.selectedIndex()
		m.notice = "Model: " + model.Name

	case commands.Search:
		m.search.SetValue(c.Term)
		m.applySearch(c.Term)

	case commands.AttachImage:
		return m, loadImageCmd(c.Path)

	case commands.DiscardImage:
		m.session.DiscardImage()

	case commands.ClearHistory:
		m.overlay = overlayConfirmClear

	case commands.Copy:
		return m.copyMessage(c.Index)

	case commands.Export:
		dir := c.Dir
		if dir == "" {
			dir = m.exportDir
		}
		return m, exportCmd(m.transcript(), dir)

	case commands.Quit:
		return m, tea.Quit

	case commands.ParseError:
		m.notice = c.Message
	}
	return m, nil
}

func (m Model) openImagePrompt() (tea.Model, tea.Cmd) {
	m.overlay = overlayImagePrompt
	m.imagePrompt.Reset()
	return m, m.imagePrompt.Focus()
}

// copyMessage copies message n (1-based), or the last one when n is 0
func (m Model) copyMessage(n int) (tea.Model, tea.Cmd) {
	idx := n - 1
	if n == 0 {
		idx = len(m.session.Messages) - 1
	}
	text, ok := m.session.MessageText(idx)
	if !ok {
		if n == 0 {
			m.notice = "Nothing to copy"
		} else {
			m.notice = fmt.Sprintf("No message %d", n)
		}
		return m, nil
	}
	return m, copyCmd(m.copyFn, text)
}

func (m Model) transcript() *export.Transcript {
	t := &export.Transcript{
		ExportedAt: time.Now(),
		Messages:   append([]chat.Message(nil), m.session.Messages...),
	}
	if model, ok := m.session.SelectedModel(); ok {
		t.Model = model.Name
	}
	return t
}
