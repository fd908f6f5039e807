// Package session is the interactive chat loop. Every keyboard event,
// stream event, tick and async history result arrives in Update, which is
// the only place session state changes.
package session

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/Zuo-Peng/ait/internal/editor"
	"github.com/Zuo-Peng/ait/internal/history"
	"github.com/Zuo-Peng/ait/internal/input"
	"github.com/Zuo-Peng/ait/internal/provider"
	"github.com/Zuo-Peng/ait/internal/snippets"
	"github.com/Zuo-Peng/ait/internal/stream"
	"github.com/Zuo-Peng/ait/internal/transcript"
	"github.com/Zuo-Peng/ait/internal/ui"
)

const (
	blinkInterval   = 500 * time.Millisecond
	discoverTimeout = 5 * time.Second
	wheelLines      = 3
	historyLimit    = 200
)

// ModelLister discovers the models the configured providers offer.
type ModelLister interface {
	ListModels(ctx context.Context) ([]provider.ModelConfig, error)
}

type Options struct {
	DB            *history.DB // nil disables history
	Client        provider.Client
	Lister        ModelLister // nil disables discovery
	Model         provider.ModelConfig
	Models        []provider.ModelConfig
	SystemPrompt  string
	Seed          []transcript.Message
	LatestLogPath string
	IdleTimeout   time.Duration

	Clipboard func(string) error
	Compose   func(string) tea.Cmd
}

// view is state only the renderer cares about.
type view struct {
	width   int
	height  int
	blink   bool
	spinner spinner.Model
}

type Model struct {
	opts Options

	state   input.State
	buf     input.Buffer
	tr      *transcript.Transcript
	coord   *stream.Coordinator
	journal *history.Journal

	model  provider.ModelConfig
	models []provider.ModelConfig

	scroll    int
	notice    string
	noticeErr bool

	conversations []history.Summary
	snips         []snippets.Snippet
	listCursor    int
	listReq       int
	preview       string
	previewID     string

	view     view
	quitting bool
}

func New(opts Options) Model {
	if opts.Clipboard == nil {
		opts.Clipboard = snippets.Copy
	}
	if opts.Compose == nil {
		opts.Compose = editor.Compose
	}

	tr := transcript.New()
	tr.Load(opts.Seed)

	m := Model{
		opts:   opts,
		buf:    input.NewBuffer(),
		tr:     tr,
		model:  opts.Model,
		models: mergeModels(nil, append([]provider.ModelConfig{opts.Model}, opts.Models...)),
		view: view{
			blink:   true,
			spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		},
	}
	m.journal = m.newJournal(opts.SystemPrompt)
	m.coord = stream.New(opts.Client, tr, m.journal, opts.IdleTimeout)
	m.writeLog()
	return m
}

func (m Model) newJournal(systemPrompt string) *history.Journal {
	if m.opts.DB == nil {
		return nil
	}
	return history.NewJournal(m.opts.DB, systemPrompt, m.model.String())
}

// Transcript exposes the live transcript, mainly for tests.
func (m Model) Transcript() *transcript.Transcript { return m.tr }

// Mode is the current interaction mode.
func (m Model) Mode() input.Mode { return m.state.Mode }

// Notice is the message currently shown in the status bar.
func (m Model) Notice() string { return m.notice }

// ConversationID is the id of the conversation being recorded, if any.
func (m Model) ConversationID() string { return m.journal.ID() }

type blinkMsg struct{}

func blink() tea.Cmd {
	return tea.Tick(blinkInterval, func(time.Time) tea.Msg { return blinkMsg{} })
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(blink(), m.discoverModels())
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.view.width = msg.Width
		m.view.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		m.notice, m.noticeErr = "", false
		m.view.blink = true
		state, c := input.Interpret(m.state, msg)
		m.state = state
		return m.execute(c)

	case tea.MouseMsg:
		return m.mouse(msg)

	case stream.Event:
		return m.applyEvent(msg)

	case blinkMsg:
		m.view.blink = !m.view.blink
		return m, blink()

	case spinner.TickMsg:
		if !m.coord.Active() {
			return m, nil
		}
		var cmd tea.Cmd
		m.view.spinner, cmd = m.view.spinner.Update(msg)
		return m, cmd

	case historyLoadedMsg:
		return m.historyLoaded(msg)

	case previewMsg:
		if msg.id != m.selectedConversation() {
			return m, nil // stale preview
		}
		if msg.err != nil {
			m.preview = "Preview error: " + msg.err.Error()
		} else {
			m.preview = msg.content
		}
		m.previewID = msg.id
		return m, nil

	case conversationLoadedMsg:
		return m.recall(msg)

	case deletedMsg:
		if msg.err != nil {
			m.warn(msg.err)
			return m, nil
		}
		m.setNotice("chat deleted")
		cmd := m.loadHistory()
		return m, cmd

	case modelsMsg:
		if msg.err != nil {
			log.Info().Err(msg.err).Msg("model discovery")
		}
		m.models = mergeModels(m.models, msg.models)
		return m, nil

	case editor.ComposedMsg:
		if msg.Err != nil {
			m.warn(msg.Err)
		}
		m.buf.SetValue(msg.Text)
		m.state = input.State{Mode: input.ModeInsert}
		return m, nil
	}
	return m, nil
}

func (m Model) applyEvent(ev stream.Event) (tea.Model, tea.Cmd) {
	out, next := m.coord.Apply(ev)
	switch {
	case out.Err != nil:
		m.setError(out.Err.Error())
		m.writeLog()
	case out.Finished:
		m.writeLog()
		if out.Warning != nil {
			m.warn(out.Warning)
		}
	}
	return m, next
}

func (m Model) mouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	var delta int
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		delta = 1
	case tea.MouseButtonWheelDown:
		delta = -1
	default:
		return m, nil
	}
	if m.state.Mode.Overlay() {
		if delta > 0 {
			return m.execute(input.Command{Kind: input.CmdListUp})
		}
		return m.execute(input.Command{Kind: input.CmdListDown})
	}
	if m.state.Mode == input.ModeNormal || m.state.Mode == input.ModeInsert {
		m.scrollBy(delta * wheelLines)
	}
	return m, nil
}

// View renders the full TUI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return ui.Render(m.frame())
}

func (m Model) frame() ui.Frame {
	row, col := m.buf.Cursor()
	f := ui.Frame{
		Mode:          m.state.Mode,
		Messages:      m.tr.Messages(),
		Scroll:        m.scroll,
		Streaming:     m.coord.Active(),
		Spinner:       m.view.spinner.View(),
		Input:         m.buf.Lines(),
		CursorRow:     row,
		CursorCol:     col,
		CursorVisible: m.view.blink,
		ListCursor:    m.listCursor,
		Model:         m.model.String(),
		Conversation:  m.journal.ID(),
		Notice:        m.notice,
		NoticeError:   m.noticeErr,
		Width:         m.view.width,
		Height:        m.view.height,
	}
	// a resize may leave scroll past the top; it is clamped here, not stored
	if limit := ui.MaxScroll(f); f.Scroll > limit {
		f.Scroll = limit
	}
	switch m.state.Mode {
	case input.ModeHistory:
		f.ListTitle = "Previous chats"
		f.Items = m.historyItems()
		f.Preview = m.preview
	case input.ModeModels:
		f.ListTitle = "Models"
		f.Items = m.modelItems()
	case input.ModeSnippets:
		f.ListTitle = "Code snippets"
		f.Items = m.snippetItems()
	}
	return f
}

func (m *Model) setNotice(s string) {
	m.notice, m.noticeErr = s, false
}

func (m *Model) setError(s string) {
	m.notice, m.noticeErr = s, true
}

// warn shows a non-fatal failure, usually a persistence error.
func (m *Model) warn(err error) {
	log.Warn().Err(err).Msg("session")
	m.setError("warning: " + err.Error())
}

func (m *Model) writeLog() {
	if err := history.WriteLatestLog(m.opts.LatestLogPath, m.tr.Messages()); err != nil {
		m.warn(err)
	}
}

func (m *Model) persist() {
	if err := m.journal.Persist(m.tr.Messages()); err != nil {
		m.warn(err)
	}
}
