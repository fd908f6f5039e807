// Package stream runs one provider request at a time and feeds its chunks
// back into the session's update loop.
//
// The worker goroutine only ever sends events on a channel. All transcript
// mutations happen in Apply and Cancel, which the session calls from its
// single update loop.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/Zuo-Peng/ait/internal/provider"
	"github.com/Zuo-Peng/ait/internal/transcript"
)

const DefaultIdleTimeout = 60 * time.Second

// Journal receives every reply that completes.
type Journal interface {
	AppendTurn(m transcript.Message) error
}

type EventKind int

const (
	Chunk EventKind = iota
	Done
	Failed
)

func (k EventKind) String() string {
	switch k {
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return "chunk"
}

// Event is delivered to the session as a tea.Msg.
type Event struct {
	Handle transcript.Handle
	Kind   EventKind
	Delta  string
	Err    error
}

// ResponseError is a failed reply. The partial reply is discarded and the
// session continues; nothing is retried.
type ResponseError struct {
	Kind    provider.ErrorKind
	Message string
	Err     error
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}

type AlreadyStreamingError struct {
	Handle transcript.Handle
}

func (e *AlreadyStreamingError) Error() string {
	return "a response is already streaming"
}

// Outcome tells the session what an applied event did.
type Outcome struct {
	Changed  bool
	Finished bool
	Reply    transcript.Message
	Err      *ResponseError
	Warning  error
}

type run struct {
	handle transcript.Handle
	cancel context.CancelFunc
	events <-chan Event
}

type Coordinator struct {
	client      provider.Client
	tr          *transcript.Transcript
	journal     Journal
	idleTimeout time.Duration
	active      *run
}

func New(client provider.Client, tr *transcript.Transcript, journal Journal, idleTimeout time.Duration) *Coordinator {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Coordinator{client: client, tr: tr, journal: journal, idleTimeout: idleTimeout}
}

func (c *Coordinator) Active() bool { return c.active != nil }

// Handle is the handle of the in-flight reply, if any.
func (c *Coordinator) Handle() (transcript.Handle, bool) {
	if c.active == nil {
		return transcript.Handle{}, false
	}
	return c.active.handle, true
}

// SetJournal swaps the journal completed replies are written to.
func (c *Coordinator) SetJournal(j Journal) { c.journal = j }

// Submit sends the complete messages of the transcript to the provider and
// opens a streaming reply. The returned command yields the first event.
func (c *Coordinator) Submit(ctx context.Context, cfg provider.ModelConfig) (tea.Cmd, error) {
	if c.active != nil {
		return nil, &AlreadyStreamingError{Handle: c.active.handle}
	}
	if c.tr.Streaming() {
		return nil, &AlreadyStreamingError{}
	}

	view := c.tr.ProviderView()
	msgs := make([]provider.Message, len(view))
	for i, m := range view {
		msgs[i] = provider.Message{Role: string(m.Role), Content: m.Content}
	}

	h, err := c.tr.BeginStreamingReply()
	if err != nil {
		return nil, &AlreadyStreamingError{}
	}

	ctx, cancel := context.WithCancel(ctx)
	events := make(chan Event, 64)
	c.active = &run{handle: h, cancel: cancel, events: events}

	log.Debug().Int("seq", h.Seq()).Str("model", cfg.String()).Int("messages", len(msgs)).Msg("stream started")
	go c.pump(ctx, h, msgs, cfg, events)
	return waitFor(events), nil
}

func waitFor(events <-chan Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return ev
	}
}

// pump runs on its own goroutine and never touches the transcript.
func (c *Coordinator) pump(ctx context.Context, h transcript.Handle, msgs []provider.Message, cfg provider.ModelConfig, events chan<- Event) {
	defer close(events)

	send := func(ev Event) bool {
		ev.Handle = h
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	sctx, scancel := context.WithCancel(ctx)
	defer scancel()

	// the idle timer only runs while waiting on the provider, never while
	// a chunk waits for the update loop to take it
	var idle atomic.Bool
	timer := time.AfterFunc(c.idleTimeout, func() {
		idle.Store(true)
		scancel()
	})
	defer timer.Stop()

	timeout := func() {
		send(Event{Kind: Failed, Err: &ResponseError{
			Kind:    provider.ErrNetwork,
			Message: fmt.Sprintf("no response for %s", c.idleTimeout),
		}})
	}

	s, err := c.client.Send(sctx, msgs, cfg)
	timer.Stop()
	if err != nil {
		switch {
		case idle.Load():
			timeout()
		case ctx.Err() == nil:
			send(Event{Kind: Failed, Err: err})
		}
		return
	}
	defer s.Close()

	for {
		timer.Reset(c.idleTimeout)
		delta, err := s.Recv()
		timer.Stop()
		switch {
		case errors.Is(err, io.EOF):
			send(Event{Kind: Done})
			return
		case err == nil:
			// data that arrived wins over a timer that fired meanwhile
		case idle.Load():
			timeout()
			return
		default:
			if ctx.Err() == nil {
				send(Event{Kind: Failed, Err: err})
			}
			return
		}
		if delta == "" {
			continue
		}
		if !send(Event{Kind: Chunk, Delta: delta}) {
			return
		}
	}
}

// Apply folds one event into the transcript. Events for a reply that is no
// longer in flight are dropped without touching anything.
func (c *Coordinator) Apply(ev Event) (Outcome, tea.Cmd) {
	if c.active == nil || ev.Handle != c.active.handle {
		log.Debug().
			Err(&transcript.StaleHandleError{Handle: ev.Handle}).
			Stringer("kind", ev.Kind).
			Msg("dropping stream event")
		return Outcome{}, nil
	}
	h := c.active.handle

	switch ev.Kind {
	case Chunk:
		if err := c.tr.ExtendStreamingReply(h, ev.Delta); err != nil {
			log.Warn().Err(err).Msg("extend reply")
			return Outcome{}, nil
		}
		return Outcome{Changed: true}, waitFor(c.active.events)

	case Done:
		c.finish()
		m, err := c.tr.FinalizeStreamingReply(h)
		if err != nil {
			log.Warn().Err(err).Msg("finalize reply")
			return Outcome{}, nil
		}
		out := Outcome{Changed: true, Finished: true, Reply: m}
		if c.journal != nil {
			if err := c.journal.AppendTurn(m); err != nil {
				log.Warn().Err(err).Msg("persist reply")
				out.Warning = err
			}
		}
		log.Debug().Int("seq", m.Seq).Int("bytes", len(m.Content)).Msg("stream finished")
		return out, nil

	case Failed:
		c.finish()
		if err := c.tr.DiscardStreamingReply(h); err != nil {
			log.Warn().Err(err).Msg("discard reply")
		}
		re := toResponseError(ev.Err)
		log.Info().Err(re).Msg("stream failed")
		return Outcome{Changed: true, Err: re}, nil
	}
	return Outcome{}, nil
}

// Cancel stops the in-flight reply. The partial reply stays visible,
// marked aborted, and is not persisted. It reports whether anything was
// in flight.
func (c *Coordinator) Cancel() bool {
	if c.active == nil {
		return false
	}
	h := c.active.handle
	c.finish()
	if _, err := c.tr.AbortStreamingReply(h); err != nil {
		log.Warn().Err(err).Msg("abort reply")
	}
	log.Debug().Int("seq", h.Seq()).Msg("stream cancelled")
	return true
}

func (c *Coordinator) finish() {
	c.active.cancel()
	c.active = nil
}

func toResponseError(err error) *ResponseError {
	var re *ResponseError
	if errors.As(err, &re) {
		return re
	}
	if err == nil {
		err = errors.New("stream failed")
	}
	return &ResponseError{Kind: provider.KindOf(err), Message: err.Error(), Err: err}
}
