package session

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Zuo-Peng/ait/internal/history"
	"github.com/Zuo-Peng/ait/internal/input"
	"github.com/Zuo-Peng/ait/internal/provider"
	"github.com/Zuo-Peng/ait/internal/render"
	"github.com/Zuo-Peng/ait/internal/transcript"
)

// message types

type historyLoadedMsg struct {
	req   int
	items []history.Summary
	err   error
}

type previewMsg struct {
	id      string
	content string
	err     error
}

type conversationLoadedMsg struct {
	summary  history.Summary
	messages []transcript.Message
	err      error
}

type deletedMsg struct {
	id  string
	err error
}

type modelsMsg struct {
	models []provider.ModelConfig
	err    error
}

// loadHistory lists stored conversations. Each call supersedes the
// previous one; older results are dropped when they arrive.
func (m *Model) loadHistory() tea.Cmd {
	m.listReq++
	req := m.listReq
	db := m.opts.DB
	return func() tea.Msg {
		items, err := db.ListConversations(historyLimit)
		return historyLoadedMsg{req: req, items: items, err: err}
	}
}

func (m Model) historyLoaded(msg historyLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.req != m.listReq {
		return m, nil // stale list
	}
	if msg.err != nil {
		m.warn(msg.err)
		m.conversations = nil
		return m, nil
	}
	m.conversations = msg.items
	if m.listCursor >= len(m.conversations) {
		m.listCursor = len(m.conversations) - 1
	}
	if m.listCursor < 0 {
		m.listCursor = 0
	}
	if m.state.Mode != input.ModeHistory {
		return m, nil
	}
	return m, m.loadPreview()
}

func (m Model) selectedConversation() string {
	if m.listCursor < 0 || m.listCursor >= len(m.conversations) {
		return ""
	}
	return m.conversations[m.listCursor].ID
}

// loadPreview renders the selected conversation unless it is already shown.
func (m Model) loadPreview() tea.Cmd {
	id := m.selectedConversation()
	if id == "" || id == m.previewID {
		return nil
	}
	db := m.opts.DB
	return func() tea.Msg {
		content, _, err := render.Conversation(db, id, render.Options{HitSeq: -1})
		return previewMsg{id: id, content: content, err: err}
	}
}

func (m Model) loadConversation(id string) tea.Cmd {
	db := m.opts.DB
	return func() tea.Msg {
		s, err := db.GetConversation(id)
		if err != nil {
			return conversationLoadedMsg{err: err}
		}
		msgs, err := db.LoadConversation(id)
		return conversationLoadedMsg{summary: s, messages: msgs, err: err}
	}
}

func (m Model) deleteConversation(id string) tea.Cmd {
	db := m.opts.DB
	return func() tea.Msg {
		return deletedMsg{id: id, err: db.DeleteConversation(id)}
	}
}

func (m Model) discoverModels() tea.Cmd {
	if m.opts.Lister == nil {
		return nil
	}
	lister := m.opts.Lister
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), discoverTimeout)
		defer cancel()
		models, err := lister.ListModels(ctx)
		return modelsMsg{models: models, err: err}
	}
}
