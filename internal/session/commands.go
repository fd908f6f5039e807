package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/Zuo-Peng/ait/internal/input"
	"github.com/Zuo-Peng/ait/internal/provider"
	"github.com/Zuo-Peng/ait/internal/snippets"
	"github.com/Zuo-Peng/ait/internal/stream"
	"github.com/Zuo-Peng/ait/internal/transcript"
	"github.com/Zuo-Peng/ait/internal/ui"
)

const streamingNotice = "a response is still streaming"

func (m Model) execute(c input.Command) (tea.Model, tea.Cmd) {
	if c.IsEdit() {
		m.buf.Apply(c)
		return m, nil
	}

	switch c.Kind {
	case input.CmdSubmit:
		return m.submit()
	case input.CmdRetry:
		return m.retry()
	case input.CmdEditLast:
		last, ok := m.tr.LastOf(transcript.User)
		if !ok {
			m.setNotice("no query to edit")
			return m, nil
		}
		m.buf.SetValue(last.Content)
		m.state = input.State{Mode: input.ModeInsert}
		return m, nil
	case input.CmdCancel:
		if m.coord.Cancel() {
			m.writeLog()
			m.setNotice("response cancelled")
		}
		return m, nil
	case input.CmdQuit:
		m.shutdown()
		m.quitting = true
		return m, tea.Quit
	case input.CmdNewChat:
		return m.newChat()
	case input.CmdYank:
		last, ok := m.tr.LastOf(transcript.Assistant)
		if !ok || last.Content == "" {
			m.setNotice("no reply to copy")
			return m, nil
		}
		m.clip(last.Content, "reply copied")
		return m, nil
	case input.CmdCompose:
		return m, m.opts.Compose(m.buf.Value())

	case input.CmdShowHistory:
		if m.opts.DB == nil {
			m.state = input.State{Mode: input.ModeNormal}
			m.setNotice("history is disabled")
			return m, nil
		}
		m.conversations, m.preview, m.previewID = nil, "", ""
		m.listCursor = 0
		cmd := m.loadHistory()
		return m, cmd
	case input.CmdShowModels:
		m.listCursor = 0
		for i, mc := range m.models {
			if mc.Provider == m.model.Provider && mc.Model == m.model.Model {
				m.listCursor = i
			}
		}
		return m, nil
	case input.CmdShowSnippets:
		m.snips = snippets.Extract(m.tr.Messages())
		m.listCursor = 0
		if len(m.snips) == 0 {
			m.state = input.State{Mode: input.ModeNormal}
			m.setNotice("no code snippets")
		}
		return m, nil

	case input.CmdScrollUp:
		m.scrollBy(1)
	case input.CmdScrollDown:
		m.scrollBy(-1)
	case input.CmdHalfPageUp:
		m.scrollBy(m.halfPage())
	case input.CmdHalfPageDown:
		m.scrollBy(-m.halfPage())
	case input.CmdScrollTop:
		m.scroll = ui.MaxScroll(m.frame())
	case input.CmdScrollBottom:
		m.scroll = 0

	case input.CmdListUp, input.CmdListDown, input.CmdListFirst, input.CmdListLast:
		return m.moveCursor(c.Kind)
	case input.CmdListChoose:
		return m.choose()
	case input.CmdListDelete:
		return m.deleteSelected()
	}
	return m, nil
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.buf.Value())
	if text == "" {
		return m, nil
	}
	if m.coord.Active() {
		m.setNotice(streamingNotice)
		return m, nil
	}
	if _, err := m.tr.Append(transcript.User, text); err != nil {
		log.Warn().Err(err).Msg("append query")
		m.setNotice(streamingNotice)
		return m, nil
	}
	m.persist()
	m.writeLog()
	m.buf.Clear()
	m.state = input.State{Mode: input.ModeNormal}
	m.scroll = 0
	return m.startStream()
}

func (m Model) retry() (tea.Model, tea.Cmd) {
	if m.coord.Active() {
		m.setNotice(streamingNotice)
		return m, nil
	}
	if !m.tr.PendingQuery() {
		m.setNotice("nothing to resend")
		return m, nil
	}
	m.scroll = 0
	return m.startStream()
}

func (m Model) startStream() (tea.Model, tea.Cmd) {
	cmd, err := m.coord.Submit(context.Background(), m.model)
	if err != nil {
		var ase *stream.AlreadyStreamingError
		if errors.As(err, &ase) {
			log.Debug().Err(err).Msg("submit")
			m.setNotice(streamingNotice)
			return m, nil
		}
		m.setError(err.Error())
		return m, nil
	}
	return m, tea.Batch(cmd, m.view.spinner.Tick)
}

func (m Model) newChat() (tea.Model, tea.Cmd) {
	if m.coord.Active() {
		m.setNotice(streamingNotice)
		return m, nil
	}
	m.seal()
	m.tr.Load(m.opts.Seed)
	m.journal = m.newJournal(m.opts.SystemPrompt)
	m.coord.SetJournal(m.journal)
	m.scroll = 0
	m.writeLog()
	m.setNotice("new chat")
	return m, nil
}

// seal flushes anything unwritten and closes the current conversation.
// A conversation that never got a query is not stored.
func (m *Model) seal() {
	if m.journal.ID() == "" && !hasQuery(m.tr.Messages()) {
		return
	}
	m.persist()
	if err := m.journal.Seal(); err != nil {
		m.warn(err)
	}
}

func (m *Model) shutdown() {
	m.coord.Cancel()
	m.seal()
	m.writeLog()
}

func hasQuery(msgs []transcript.Message) bool {
	for _, msg := range msgs {
		if msg.Role == transcript.User {
			return true
		}
	}
	return false
}

func (m *Model) clip(text, done string) {
	if err := m.opts.Clipboard(text); err != nil {
		m.setError(fmt.Sprintf("clipboard: %v", err))
		return
	}
	m.setNotice(done)
}

func (m *Model) halfPage() int {
	h := ui.TranscriptHeight(m.frame()) / 2
	if h < 1 {
		h = 1
	}
	return h
}

func (m *Model) scrollBy(n int) {
	m.scroll += n
	m.clampScroll()
}

func (m *Model) clampScroll() {
	if limit := ui.MaxScroll(m.frame()); m.scroll > limit {
		m.scroll = limit
	}
	if m.scroll < 0 {
		m.scroll = 0
	}
}

func (m Model) listLen() int {
	switch m.state.Mode {
	case input.ModeHistory:
		return len(m.conversations)
	case input.ModeModels:
		return len(m.models)
	case input.ModeSnippets:
		return len(m.snips)
	}
	return 0
}

func (m Model) moveCursor(k input.CommandKind) (tea.Model, tea.Cmd) {
	n := m.listLen()
	if n == 0 {
		return m, nil
	}
	switch k {
	case input.CmdListUp:
		if m.listCursor > 0 {
			m.listCursor--
		}
	case input.CmdListDown:
		if m.listCursor < n-1 {
			m.listCursor++
		}
	case input.CmdListFirst:
		m.listCursor = 0
	case input.CmdListLast:
		m.listCursor = n - 1
	}
	if m.state.Mode == input.ModeHistory {
		return m, m.loadPreview()
	}
	return m, nil
}

func (m Model) choose() (tea.Model, tea.Cmd) {
	if m.listCursor >= m.listLen() {
		return m, nil
	}
	switch m.state.Mode {
	case input.ModeHistory:
		if m.coord.Active() {
			m.setNotice(streamingNotice)
			return m, nil
		}
		return m, m.loadConversation(m.conversations[m.listCursor].ID)

	case input.ModeModels:
		mc := m.models[m.listCursor]
		mc.Temperature = m.opts.Model.Temperature
		m.model = mc
		m.journal.SetModel(mc.String())
		m.state = input.State{Mode: input.ModeInsert}
		m.setNotice("model " + mc.String())

	case input.ModeSnippets:
		m.clip(m.snips[m.listCursor].Code, "snippet copied")
		m.state = input.State{Mode: input.ModeNormal}
	}
	return m, nil
}

func (m Model) deleteSelected() (tea.Model, tea.Cmd) {
	if m.state.Mode != input.ModeHistory || m.listCursor >= len(m.conversations) {
		return m, nil
	}
	id := m.conversations[m.listCursor].ID
	if id == m.journal.ID() {
		m.setNotice("cannot delete the current chat")
		return m, nil
	}
	return m, m.deleteConversation(id)
}

// recall swaps the live conversation for a stored one.
func (m Model) recall(msg conversationLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.warn(msg.err)
		return m, nil
	}
	if m.coord.Active() {
		m.setNotice(streamingNotice)
		return m, nil
	}
	m.seal()
	m.tr.Load(msg.messages)
	m.journal = m.newJournal(msg.summary.SystemPrompt)
	m.journal.Continue(msg.summary.ID, msg.messages)
	m.coord.SetJournal(m.journal)
	m.state = input.State{Mode: input.ModeNormal}
	m.scroll = 0
	m.writeLog()
	m.setNotice("loaded " + msg.summary.Title)
	return m, nil
}

func (m Model) historyItems() []ui.Item {
	items := make([]ui.Item, len(m.conversations))
	for i, s := range m.conversations {
		title := s.Title
		if title == "" {
			title = "(untitled)"
		}
		date := s.UpdatedAt
		if len(date) >= 16 {
			date = strings.Replace(date[:16], "T", " ", 1)
		}
		items[i] = ui.Item{
			Title:  title,
			Detail: fmt.Sprintf("%s  %d messages  %s", date, s.MessageCount, s.Model),
			Marked: s.ID == m.journal.ID(),
		}
	}
	return items
}

func (m Model) modelItems() []ui.Item {
	items := make([]ui.Item, len(m.models))
	for i, mc := range m.models {
		items[i] = ui.Item{
			Title:  mc.Model,
			Tag:    mc.Provider,
			Marked: mc.Provider == m.model.Provider && mc.Model == m.model.Model,
		}
	}
	return items
}

func (m Model) snippetItems() []ui.Item {
	items := make([]ui.Item, len(m.snips))
	for i, s := range m.snips {
		lines := strings.Count(s.Code, "\n") + 1
		items[i] = ui.Item{
			Title:  s.Title(),
			Tag:    s.Language,
			Detail: fmt.Sprintf("message #%d, %d lines", s.Seq, lines),
		}
	}
	return items
}

// mergeModels appends the models of extra not already in base, ignoring
// temperature.
func mergeModels(base, extra []provider.ModelConfig) []provider.ModelConfig {
	seen := make(map[string]bool, len(base))
	out := make([]provider.ModelConfig, 0, len(base)+len(extra))
	for _, mc := range append(append([]provider.ModelConfig(nil), base...), extra...) {
		key := mc.String()
		if mc.Model == "" || seen[key] {
			continue
		}
		seen[key] = true
		mc.Temperature = 0
		out = append(out, mc)
	}
	return out
}
