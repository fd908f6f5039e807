// Package transcript holds the ordered messages of one conversation,
// including the single assistant reply that may still be streaming.
package transcript

import (
	"errors"
	"fmt"
)

type Role string

const (
	System    Role = "system"
	User      Role = "user"
	Assistant Role = "assistant"
)

// Label is the prefix used in flat logs.
func (r Role) Label() string {
	switch r {
	case System:
		return "System"
	case User:
		return "User"
	case Assistant:
		return "Assistant"
	}
	return string(r)
}

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case System, User, Assistant:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

type State int

const (
	Complete State = iota
	Streaming
	Aborted
)

func (s State) String() string {
	switch s {
	case Streaming:
		return "streaming"
	case Aborted:
		return "aborted"
	}
	return "complete"
}

type Message struct {
	Role    Role
	Content string
	Seq     int
	State   State
}

// Handle identifies one streaming reply. The zero Handle is never valid.
type Handle struct {
	id  uint64
	seq int
}

func (h Handle) Valid() bool { return h.id != 0 }

// Seq is the sequence index of the reply the handle refers to.
func (h Handle) Seq() int { return h.seq }

var ErrAlreadyStreaming = errors.New("a reply is already streaming")

// StaleHandleError is returned when a handle no longer refers to the
// current streaming reply.
type StaleHandleError struct {
	Handle Handle
}

func (e *StaleHandleError) Error() string {
	return fmt.Sprintf("stale reply handle (seq %d)", e.Handle.seq)
}

// Transcript is not safe for concurrent use. It is owned by the session
// controller and only mutated from its update loop.
type Transcript struct {
	msgs     []Message
	nextSeq  int
	nextID   uint64
	current  Handle
	streamAt int // index of the streaming message, -1 if none
}

func New() *Transcript {
	return &Transcript{streamAt: -1}
}

// Append adds a complete message. It must not be called while a reply
// is streaming, since the streaming message always stays last.
func (t *Transcript) Append(role Role, content string) (Message, error) {
	if t.streamAt >= 0 {
		return Message{}, ErrAlreadyStreaming
	}
	m := Message{Role: role, Content: content, Seq: t.nextSeq}
	t.nextSeq++
	t.msgs = append(t.msgs, m)
	return m, nil
}

func (t *Transcript) BeginStreamingReply() (Handle, error) {
	if t.streamAt >= 0 {
		return Handle{}, ErrAlreadyStreaming
	}
	t.nextID++
	h := Handle{id: t.nextID, seq: t.nextSeq}
	t.msgs = append(t.msgs, Message{Role: Assistant, Seq: t.nextSeq, State: Streaming})
	t.nextSeq++
	t.streamAt = len(t.msgs) - 1
	t.current = h
	return h, nil
}

func (t *Transcript) check(h Handle) error {
	if !h.Valid() || t.streamAt < 0 || h != t.current {
		return &StaleHandleError{Handle: h}
	}
	return nil
}

func (t *Transcript) ExtendStreamingReply(h Handle, delta string) error {
	if err := t.check(h); err != nil {
		return err
	}
	t.msgs[t.streamAt].Content += delta
	return nil
}

func (t *Transcript) FinalizeStreamingReply(h Handle) (Message, error) {
	return t.settle(h, Complete)
}

// AbortStreamingReply keeps the partial reply visible, marked aborted.
func (t *Transcript) AbortStreamingReply(h Handle) (Message, error) {
	return t.settle(h, Aborted)
}

func (t *Transcript) settle(h Handle, state State) (Message, error) {
	if err := t.check(h); err != nil {
		return Message{}, err
	}
	t.msgs[t.streamAt].State = state
	m := t.msgs[t.streamAt]
	t.streamAt = -1
	t.current = Handle{}
	return m, nil
}

// DiscardStreamingReply removes the partial reply entirely. Its sequence
// index is reused by the next message.
func (t *Transcript) DiscardStreamingReply(h Handle) error {
	if err := t.check(h); err != nil {
		return err
	}
	t.msgs = t.msgs[:t.streamAt]
	t.nextSeq = h.seq
	t.streamAt = -1
	t.current = Handle{}
	return nil
}

func (t *Transcript) Streaming() bool { return t.streamAt >= 0 }

// StreamingCount reports how many messages are in the streaming state.
func (t *Transcript) StreamingCount() int {
	n := 0
	for _, m := range t.msgs {
		if m.State == Streaming {
			n++
		}
	}
	return n
}

func (t *Transcript) Len() int { return len(t.msgs) }

// Messages returns a copy of the transcript in conversation order.
func (t *Transcript) Messages() []Message {
	out := make([]Message, len(t.msgs))
	copy(out, t.msgs)
	return out
}

func (t *Transcript) Last() (Message, bool) {
	if len(t.msgs) == 0 {
		return Message{}, false
	}
	return t.msgs[len(t.msgs)-1], true
}

// LastOf returns the most recent message with the given role.
func (t *Transcript) LastOf(role Role) (Message, bool) {
	for i := len(t.msgs) - 1; i >= 0; i-- {
		if t.msgs[i].Role == role {
			return t.msgs[i], true
		}
	}
	return Message{}, false
}

// ProviderView is what gets sent to a provider: complete messages only.
func (t *Transcript) ProviderView() []Message {
	out := make([]Message, 0, len(t.msgs))
	for _, m := range t.msgs {
		if m.State == Complete {
			out = append(out, m)
		}
	}
	return out
}

// PendingQuery reports whether the conversation ends in a user query that
// never received a complete reply.
func (t *Transcript) PendingQuery() bool {
	if t.streamAt >= 0 {
		return false
	}
	for i := len(t.msgs) - 1; i >= 0; i-- {
		switch {
		case t.msgs[i].State == Aborted:
			continue
		case t.msgs[i].Role == User:
			return true
		default:
			return false
		}
	}
	return false
}

// Load replaces the contents with previously stored messages. Stored
// sequence indices are kept and new messages continue after the last one.
func (t *Transcript) Load(msgs []Message) {
	t.msgs = make([]Message, len(msgs))
	copy(t.msgs, msgs)
	t.streamAt = -1
	t.current = Handle{}
	t.nextSeq = 0
	for i := range t.msgs {
		if t.msgs[i].State == Streaming {
			t.msgs[i].State = Aborted
		}
		if t.msgs[i].Seq >= t.nextSeq {
			t.nextSeq = t.msgs[i].Seq + 1
		}
	}
}

func (t *Transcript) Reset() {
	t.Load(nil)
}
