package session

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/ait/internal/editor"
	"github.com/Zuo-Peng/ait/internal/history"
	"github.com/Zuo-Peng/ait/internal/input"
	"github.com/Zuo-Peng/ait/internal/provider"
	"github.com/Zuo-Peng/ait/internal/transcript"
)

// fakeClient streams fixed chunks. With hang set it blocks after them
// until the request is cancelled.
type fakeClient struct {
	mu     sync.Mutex
	chunks []string
	err    error
	hang   bool
	sent   []provider.ModelConfig
}

func (c *fakeClient) Send(ctx context.Context, msgs []provider.Message, cfg provider.ModelConfig) (provider.Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, cfg)
	return &fakeStream{ctx: ctx, chunks: append([]string(nil), c.chunks...), err: c.err, hang: c.hang}, nil
}

func (c *fakeClient) set(chunks []string, err error, hang bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chunks, c.err, c.hang = chunks, err, hang
}

func (c *fakeClient) requests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

type fakeStream struct {
	ctx    context.Context
	chunks []string
	err    error
	hang   bool
}

func (s *fakeStream) Recv() (string, error) {
	if len(s.chunks) > 0 {
		c := s.chunks[0]
		s.chunks = s.chunks[1:]
		return c, nil
	}
	if s.hang {
		<-s.ctx.Done()
		return "", s.ctx.Err()
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

func (s *fakeStream) Close() error { return nil }

type fakeLister struct {
	models []provider.ModelConfig
}

func (l fakeLister) ListModels(ctx context.Context) ([]provider.ModelConfig, error) {
	return l.models, nil
}

type harness struct {
	db      *history.DB
	client  *fakeClient
	logPath string
	clip    []string
}

var defaultModel = provider.ModelConfig{Provider: "openai", Model: "gpt-4o-mini", Temperature: 0.3}

func newHarness(t *testing.T, chunks ...string) *harness {
	t.Helper()
	dir := t.TempDir()
	db, err := history.Open(filepath.Join(dir, "chats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &harness{
		db:      db,
		client:  &fakeClient{chunks: chunks},
		logPath: filepath.Join(dir, "latest-chat.log"),
	}
}

func (h *harness) options() Options {
	return Options{
		DB:            h.db,
		Client:        h.client,
		Model:         defaultModel,
		Models:        []provider.ModelConfig{{Provider: "openai", Model: "gpt-4o"}},
		SystemPrompt:  "sys",
		Seed:          []transcript.Message{{Role: transcript.System, Content: "sys", Seq: 0}},
		LatestLogPath: h.logPath,
		IdleTimeout:   5 * time.Second,
		Clipboard: func(s string) error {
			h.clip = append(h.clip, s)
			return nil
		},
		Compose: func(text string) tea.Cmd {
			return func() tea.Msg { return editor.ComposedMsg{Text: text + " (edited)"} }
		},
	}
}

func (h *harness) start(t *testing.T) Model {
	t.Helper()
	m := New(h.options())
	m, _ = update(m, tea.WindowSizeMsg{Width: 80, Height: 24})
	return m
}

func (h *harness) latestLog(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(h.logPath)
	require.NoError(t, err)
	return string(data)
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// run executes cmd and everything it leads to, feeding each message back
// into the model. Timers are skipped.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg := c()
		switch msg := msg.(type) {
		case nil, spinner.TickMsg, tea.QuitMsg:
			continue
		case tea.BatchMsg:
			queue = append(queue, msg...)
			continue
		}
		var next tea.Cmd
		m, next = update(m, msg)
		queue = append(queue, next)
	}
	return m
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	ctrlS = tea.KeyMsg{Type: tea.KeyCtrlS}
	ctrlC = tea.KeyMsg{Type: tea.KeyCtrlC}
	ctrlO = tea.KeyMsg{Type: tea.KeyCtrlO}
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
)

// press feeds keys and runs whatever they start.
func press(t *testing.T, m Model, keys ...tea.KeyMsg) Model {
	t.Helper()
	for _, k := range keys {
		var cmd tea.Cmd
		m, cmd = update(m, k)
		m = run(t, m, cmd)
	}
	return m
}

// ask submits a query and waits for the reply.
func ask(t *testing.T, m Model, query string) Model {
	t.Helper()
	return press(t, m, runes("i"), runes(query), ctrlS)
}

func contents(msgs []transcript.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = string(m.Role) + ":" + m.Content
	}
	return out
}

func TestSubmitStreamsReplyAndPersists(t *testing.T) {
	h := newHarness(t, "Hel", "lo")
	m := ask(t, h.start(t), "  hi  ")

	assert.Equal(t, input.ModeNormal, m.Mode())
	assert.Equal(t, []string{"system:sys", "user:hi", "assistant:Hello"}, contents(m.Transcript().Messages()))
	last, _ := m.Transcript().Last()
	assert.Equal(t, transcript.Complete, last.State)
	assert.Equal(t, 2, last.Seq)
	assert.True(t, m.buf.Empty())

	convs, err := h.db.ListConversations(0)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, 3, convs[0].MessageCount)
	assert.Equal(t, "hi", convs[0].Title)
	assert.Equal(t, "openai/gpt-4o-mini", convs[0].Model)
	assert.Equal(t, convs[0].ID, m.ConversationID())

	assert.Equal(t, "System: sys\n\nUser: hi\n\nAssistant: Hello\n", h.latestLog(t))
	assert.Equal(t, []provider.ModelConfig{defaultModel}, h.client.sent)
}

func TestEmptySubmitIsIgnored(t *testing.T) {
	h := newHarness(t, "x")
	m := press(t, h.start(t), runes("i"), runes("   "), ctrlS)

	assert.Equal(t, input.ModeInsert, m.Mode())
	assert.Equal(t, 1, m.Transcript().Len())
	assert.Equal(t, 0, h.client.requests())
}

func TestSubmitWhileStreamingKeepsDraft(t *testing.T) {
	h := newHarness(t, "part")
	h.client.hang = true
	m := h.start(t)

	m = press(t, m, runes("i"), runes("first"))
	m, stream := update(m, ctrlS) // not run: the reply never ends
	require.NotNil(t, stream)
	assert.True(t, m.Transcript().Streaming())

	m = press(t, m, runes("i"), runes("second"), ctrlS)
	assert.Equal(t, streamingNotice, m.Notice())
	assert.Equal(t, "second", m.buf.Value())
	assert.Equal(t, 1, m.Transcript().StreamingCount())
	assert.Equal(t, 1, h.client.requests())

	m = press(t, m, ctrlC)
	assert.False(t, m.Transcript().Streaming())
	last, _ := m.Transcript().Last()
	assert.Equal(t, transcript.Aborted, last.State)
	assert.Contains(t, h.latestLog(t), "User: first\n\nAssistant:  [cancelled]\n")

	// the aborted reply is never stored
	msgs, err := h.db.LoadConversation(m.ConversationID())
	require.NoError(t, err)
	assert.Equal(t, []string{"system:sys", "user:first"}, contents(msgs))
}

func TestCancelKeepsPartialReply(t *testing.T) {
	h := newHarness(t, "par")
	h.client.hang = true
	m := press(t, h.start(t), runes("i"), runes("q"))
	m, cmd := update(m, ctrlS)

	// apply the first chunk only
	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)
	var ev tea.Msg
	for _, c := range batch {
		if msg := c(); msg != nil {
			if _, tick := msg.(spinner.TickMsg); !tick {
				ev = msg
			}
		}
	}
	m, _ = update(m, ev)

	m = press(t, m, runes("x"))
	last, _ := m.Transcript().Last()
	assert.Equal(t, "par", last.Content)
	assert.Equal(t, transcript.Aborted, last.State)
	assert.Equal(t, "response cancelled", m.Notice())

	// nothing is pending, so retry resends the same query
	h.client.set([]string{"full"}, nil, false)
	m = press(t, m, runes("r"))
	assert.Equal(t, []string{"system:sys", "user:q", "assistant:par", "assistant:full"}, contents(m.Transcript().Messages()))
	msgs, err := h.db.LoadConversation(m.ConversationID())
	require.NoError(t, err)
	assert.Equal(t, []string{"system:sys", "user:q", "assistant:full"}, contents(msgs))
}

func TestProviderErrorDiscardsReply(t *testing.T) {
	h := newHarness(t, "oops")
	h.client.err = &provider.Error{Kind: provider.ErrRejected, Message: "invalid api key"}
	m := ask(t, h.start(t), "hi")

	assert.Contains(t, m.Notice(), "provider rejected request")
	assert.True(t, m.noticeErr)
	assert.Equal(t, []string{"system:sys", "user:hi"}, contents(m.Transcript().Messages()))
	assert.True(t, m.Transcript().PendingQuery())

	h.client.set([]string{"ok"}, nil, false)
	m = press(t, m, runes("r"))
	assert.Equal(t, []string{"system:sys", "user:hi", "assistant:ok"}, contents(m.Transcript().Messages()))

	m = press(t, m, runes("r"))
	assert.Equal(t, "nothing to resend", m.Notice())
	assert.Equal(t, 2, h.client.requests())
}

func TestEditLast(t *testing.T) {
	h := newHarness(t, "a")
	m := press(t, h.start(t), runes("e"))
	assert.Equal(t, "no query to edit", m.Notice())

	m = ask(t, m, "what is go")
	m = press(t, m, runes("e"))
	assert.Equal(t, input.ModeInsert, m.Mode())
	assert.Equal(t, "what is go", m.buf.Value())
}

func TestRecallConversation(t *testing.T) {
	h := newHarness(t, "sure")
	id, err := h.db.CreateConversation("old prompt", "ollama/llama3")
	require.NoError(t, err)
	stored := []transcript.Message{
		{Role: transcript.System, Content: "old prompt", Seq: 0},
		{Role: transcript.User, Content: "old question", Seq: 1},
		{Role: transcript.Assistant, Content: "old answer", Seq: 2},
	}
	for _, msg := range stored {
		require.NoError(t, h.db.AppendTurn(id, msg))
	}

	m := press(t, h.start(t), runes("h"))
	assert.Equal(t, input.ModeHistory, m.Mode())
	require.Len(t, m.conversations, 1)
	assert.Equal(t, id, m.previewID)
	assert.Contains(t, m.preview, "old question")

	m = press(t, m, enter)
	assert.Equal(t, input.ModeNormal, m.Mode())
	assert.Equal(t, id, m.ConversationID())
	assert.Equal(t, stored, m.Transcript().Messages())
	assert.Contains(t, h.latestLog(t), "User: old question")

	m = ask(t, m, "follow up")
	msgs, err := h.db.LoadConversation(id)
	require.NoError(t, err)
	require.Len(t, msgs, 5)
	assert.Equal(t, transcript.Message{Role: transcript.User, Content: "follow up", Seq: 3}, msgs[3])
	assert.Equal(t, transcript.Message{Role: transcript.Assistant, Content: "sure", Seq: 4}, msgs[4])

	// the untouched startup chat was never stored
	convs, err := h.db.ListConversations(0)
	require.NoError(t, err)
	assert.Len(t, convs, 1)
}

func TestRecallSealsCurrentConversation(t *testing.T) {
	h := newHarness(t, "r")
	m := ask(t, h.start(t), "first chat")
	first := m.ConversationID()
	m = press(t, m, runes("n"))
	m = ask(t, m, "second chat")

	m = press(t, m, runes("h"))
	require.Len(t, m.conversations, 2)
	m = press(t, m, runes("G"), enter)
	assert.Equal(t, first, m.ConversationID())

	convs, err := h.db.ListConversations(0)
	require.NoError(t, err)
	for _, c := range convs {
		if c.ID != first {
			assert.True(t, c.Sealed(), "second chat sealed")
		}
	}
}

func TestRecallRefusedWhileStreaming(t *testing.T) {
	h := newHarness(t, "x")
	id, err := h.db.CreateConversation("", "m")
	require.NoError(t, err)
	require.NoError(t, h.db.AppendTurn(id, transcript.Message{Role: transcript.User, Content: "stored", Seq: 0}))

	h.client.hang = true
	m := press(t, h.start(t), runes("i"), runes("live"))
	m, _ = update(m, ctrlS)

	m = press(t, m, runes("h"), enter)
	assert.Equal(t, streamingNotice, m.Notice())
	assert.NotEqual(t, id, m.ConversationID())
	assert.True(t, m.Transcript().Streaming())

	// a load that completes after streaming started is refused too
	s, err := h.db.GetConversation(id)
	require.NoError(t, err)
	m, _ = update(m, conversationLoadedMsg{summary: s})
	assert.NotEqual(t, id, m.ConversationID())

	m = press(t, m, esc, ctrlC)
	assert.False(t, m.Transcript().Streaming())
}

func TestDeleteFromHistory(t *testing.T) {
	h := newHarness(t, "x")
	for _, q := range []string{"one", "two"} {
		id, err := h.db.CreateConversation("", "m")
		require.NoError(t, err)
		require.NoError(t, h.db.AppendTurn(id, transcript.Message{Role: transcript.User, Content: q, Seq: 0}))
	}

	m := press(t, h.start(t), runes("h"), runes("j"))
	require.Len(t, m.conversations, 2)
	victim := m.conversations[1].ID
	assert.Equal(t, victim, m.previewID)

	m = press(t, m, runes("d"))
	assert.Equal(t, "chat deleted", m.Notice())
	require.Len(t, m.conversations, 1)
	assert.NotEqual(t, victim, m.conversations[0].ID)
	assert.Equal(t, 0, m.listCursor)
}

func TestCurrentChatCannotBeDeleted(t *testing.T) {
	h := newHarness(t, "x")
	m := ask(t, h.start(t), "keep me")
	m = press(t, m, runes("h"), runes("d"))
	assert.Equal(t, "cannot delete the current chat", m.Notice())
	assert.Len(t, m.conversations, 1)
}

func TestStaleHistoryResultIsDropped(t *testing.T) {
	h := newHarness(t)
	m := press(t, h.start(t), runes("h"))
	require.Equal(t, 1, m.listReq)

	m, _ = update(m, historyLoadedMsg{req: 0, items: []history.Summary{{ID: "old"}}})
	assert.Empty(t, m.conversations)

	m, _ = update(m, previewMsg{id: "old", content: "stale"})
	assert.Empty(t, m.preview)
}

func TestNewChat(t *testing.T) {
	h := newHarness(t, "x")
	m := ask(t, h.start(t), "hello")
	id := m.ConversationID()

	m = press(t, m, runes("n"))
	assert.Equal(t, "new chat", m.Notice())
	assert.Equal(t, []string{"system:sys"}, contents(m.Transcript().Messages()))
	assert.Equal(t, "", m.ConversationID())
	assert.Equal(t, "System: sys\n", h.latestLog(t))

	s, err := h.db.GetConversation(id)
	require.NoError(t, err)
	assert.True(t, s.Sealed())

	m = ask(t, m, "again")
	assert.NotEqual(t, id, m.ConversationID())
}

func TestNewChatRefusedWhileStreaming(t *testing.T) {
	h := newHarness(t, "x")
	h.client.hang = true
	m := press(t, h.start(t), runes("i"), runes("q"))
	m, _ = update(m, ctrlS)

	m = press(t, m, runes("n"))
	assert.Equal(t, streamingNotice, m.Notice())
	assert.True(t, m.Transcript().Streaming())
	press(t, m, runes("x"))
}

func TestQuitFlushesAndSeals(t *testing.T) {
	h := newHarness(t, "par")
	h.client.hang = true
	m := press(t, h.start(t), runes("i"), runes("bye"))
	m, _ = update(m, ctrlS)

	m, cmd := update(m, runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, "", m.View())
	assert.False(t, m.Transcript().Streaming())

	convs, err := h.db.ListConversations(0)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.True(t, convs[0].Sealed())
	assert.Equal(t, 2, convs[0].MessageCount)
	assert.True(t, strings.HasPrefix(h.latestLog(t), "System: sys\n\nUser: bye\n"))
}

func TestQuitWithoutQueryStoresNothing(t *testing.T) {
	h := newHarness(t)
	m, _ := update(h.start(t), runes("q"))
	assert.Equal(t, "", m.ConversationID())
	n, err := h.db.ConversationCount()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestModelSelection(t *testing.T) {
	h := newHarness(t, "hi")
	opts := h.options()
	opts.Lister = fakeLister{models: []provider.ModelConfig{
		{Provider: "openai", Model: "gpt-4o"},
		{Provider: "ollama", Model: "llama3"},
	}}
	m := New(opts)
	m = run(t, m, m.discoverModels())
	require.Len(t, m.models, 3)

	m = press(t, m, runes("m"))
	assert.Equal(t, input.ModeModels, m.Mode())
	assert.Equal(t, 0, m.listCursor)
	items := m.modelItems()
	assert.True(t, items[0].Marked)
	assert.Equal(t, "llama3", items[2].Title)

	m = press(t, m, runes("G"), enter)
	assert.Equal(t, input.ModeInsert, m.Mode())
	assert.Equal(t, provider.ModelConfig{Provider: "ollama", Model: "llama3", Temperature: 0.3}, m.model)

	m = press(t, m, runes("hey"), ctrlS)
	assert.Equal(t, "ollama", h.client.sent[0].Provider)
	s, err := h.db.GetConversation(m.ConversationID())
	require.NoError(t, err)
	assert.Equal(t, "ollama/llama3", s.Model)
}

func TestSnippetsAndYank(t *testing.T) {
	h := newHarness(t, "Use:\n```go\nx := 1\n```\n")
	m := press(t, h.start(t), runes("s"))
	assert.Equal(t, input.ModeNormal, m.Mode())
	assert.Equal(t, "no code snippets", m.Notice())

	m = press(t, m, runes("y"))
	assert.Equal(t, "no reply to copy", m.Notice())

	m = ask(t, m, "code please")
	m = press(t, m, runes("s"))
	assert.Equal(t, input.ModeSnippets, m.Mode())
	require.Len(t, m.snippetItems(), 1)
	assert.Equal(t, "go", m.snippetItems()[0].Tag)

	m = press(t, m, enter)
	assert.Equal(t, input.ModeNormal, m.Mode())
	assert.Equal(t, "snippet copied", m.Notice())

	m = press(t, m, runes("y"))
	assert.Equal(t, "reply copied", m.Notice())
	assert.Equal(t, []string{"x := 1", "Use:\n```go\nx := 1\n```\n"}, h.clip)
}

func TestComposeFillsBuffer(t *testing.T) {
	h := newHarness(t)
	m := press(t, h.start(t), runes("i"), runes("draft"), ctrlO)
	assert.Equal(t, input.ModeInsert, m.Mode())
	assert.Equal(t, "draft (edited)", m.buf.Value())
}

func TestHelpReturnsToPreviousMode(t *testing.T) {
	h := newHarness(t)
	m := press(t, h.start(t), runes("i"), tea.KeyMsg{Type: tea.KeyF1})
	assert.Equal(t, input.ModeHelp, m.Mode())
	assert.Contains(t, m.View(), "press any key to return")

	m = press(t, m, runes("z"))
	assert.Equal(t, input.ModeInsert, m.Mode())
	assert.Equal(t, "", m.buf.Value())
}

func TestScrolling(t *testing.T) {
	h := newHarness(t)
	opts := h.options()
	var lines []string
	for i := 0; i < 50; i++ {
		lines = append(lines, "line")
	}
	opts.Seed = []transcript.Message{{Role: transcript.User, Content: strings.Join(lines, "\n"), Seq: 0}}
	m := New(opts)
	m, _ = update(m, tea.WindowSizeMsg{Width: 80, Height: 20})

	// 51 lines in a 14 line pane
	m = press(t, m, runes("k"))
	assert.Equal(t, 1, m.scroll)
	m = press(t, m, runes("g"))
	assert.Equal(t, 37, m.scroll)
	m = press(t, m, runes("k"))
	assert.Equal(t, 37, m.scroll)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})
	assert.Equal(t, 30, m.scroll)
	m = press(t, m, runes("G"))
	assert.Equal(t, 0, m.scroll)
	m = press(t, m, runes("j"))
	assert.Equal(t, 0, m.scroll)

	m, _ = update(m, tea.MouseMsg{Button: tea.MouseButtonWheelUp})
	assert.Equal(t, 3, m.scroll)

	// a taller screen shows everything without touching the offset
	m, _ = update(m, tea.WindowSizeMsg{Width: 80, Height: 100})
	assert.Equal(t, 3, m.scroll)
	assert.Equal(t, 0, m.frame().Scroll)

	m, _ = update(m, tea.WindowSizeMsg{Width: 80, Height: 20})
	assert.Equal(t, 3, m.frame().Scroll)
}

func TestUnknownKeysChangeNothing(t *testing.T) {
	h := newHarness(t)
	m := press(t, h.start(t), runes("Z"), runes("?"), esc)
	assert.Equal(t, input.ModeNormal, m.Mode())
	assert.Equal(t, 1, m.Transcript().Len())
}

func TestViewRenders(t *testing.T) {
	h := newHarness(t, "pong")
	m := ask(t, h.start(t), "ping")
	out := m.View()
	assert.Contains(t, out, "ping")
	assert.Contains(t, out, "pong")
	assert.Contains(t, out, "openai/gpt-4o-mini")
}
