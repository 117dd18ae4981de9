package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"madlen/internal/attach"
	"madlen/internal/chat"
	"madlen/internal/export"
)

type modelsLoadedMsg struct {
	models []chat.Model
	err    error
}

type historyLoadedMsg struct {
	messages []chat.Message
	err      error
}

type chatReplyMsg struct {
	reply chat.Message
	err   error
}

type historyClearedMsg struct {
	err error
}

type imageLoadedMsg struct {
	path    string
	dataURI string
	err     error
}

type copiedMsg struct {
	err error
}

// toastExpiredMsg hides the toast it was scheduled for. A newer toast has
// a higher seq and survives older expiries.
type toastExpiredMsg struct {
	seq int
}

type exportedMsg struct {
	path string
	err  error
}

func loadModelsCmd(ctx context.Context, b chat.Backend) tea.Cmd {
	return func() tea.Msg {
		models, err := b.ListModels(ctx)
		return modelsLoadedMsg{models: models, err: err}
	}
}

func loadHistoryCmd(ctx context.Context, b chat.Backend) tea.Cmd {
	return func() tea.Msg {
		messages, err := b.GetHistory(ctx)
		return historyLoadedMsg{messages: messages, err: err}
	}
}

func sendChatCmd(ctx context.Context, b chat.Backend, req chat.ChatRequest) tea.Cmd {
	return func() tea.Msg {
		reply, err := b.SendChat(ctx, req)
		return chatReplyMsg{reply: reply, err: err}
	}
}

func clearHistoryCmd(ctx context.Context, b chat.Backend) tea.Cmd {
	return func() tea.Msg {
		return historyClearedMsg{err: b.ClearHistory(ctx)}
	}
}

func loadImageCmd(path string) tea.Cmd {
	return func() tea.Msg {
		uri, err := attach.LoadImage(path)
		return imageLoadedMsg{path: path, dataURI: uri, err: err}
	}
}

func copyCmd(write func(string) error, text string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{err: write(text)}
	}
}

func toastExpireCmd(d time.Duration, seq int) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return toastExpiredMsg{seq: seq}
	})
}

func exportCmd(t *export.Transcript, dir string) tea.Cmd {
	return func() tea.Msg {
		resolved, err := attach.ResolvePath(dir)
		if err != nil {
			return exportedMsg{err: err}
		}
		path, err := export.Write(t, resolved)
		return exportedMsg{path: path, err: err}
	}
}
