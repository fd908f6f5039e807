package history

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Zuo-Peng/ait/internal/transcript"
)

// PersistenceError reports a failed write. It is never fatal to a session.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("history %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Journal records the messages of the live session into one conversation.
// The conversation row is created when the first message is written. A nil
// Journal records nothing.
type Journal struct {
	db           *DB
	systemPrompt string
	model        string
	id           string
	lastSeq      int
}

func NewJournal(db *DB, systemPrompt, model string) *Journal {
	return &Journal{db: db, systemPrompt: systemPrompt, model: model, lastSeq: -1}
}

// ID is the conversation id, or "" before anything was written.
func (j *Journal) ID() string {
	if j == nil {
		return ""
	}
	return j.id
}

func (j *Journal) SetModel(model string) {
	if j != nil {
		j.model = model
	}
}

func (j *Journal) ensure() error {
	if j.id != "" {
		return nil
	}
	id, err := j.db.CreateConversation(j.systemPrompt, j.model)
	if err != nil {
		return &PersistenceError{Op: "create", Err: err}
	}
	j.id = id
	log.Debug().Str("conversation", id).Msg("conversation created")
	return nil
}

// AppendTurn writes one complete message.
func (j *Journal) AppendTurn(m transcript.Message) error {
	if j == nil || m.State != transcript.Complete {
		return nil
	}
	if err := j.ensure(); err != nil {
		return err
	}
	if err := j.db.AppendTurn(j.id, m); err != nil {
		return &PersistenceError{Op: "append", Err: err}
	}
	if m.Seq > j.lastSeq {
		j.lastSeq = m.Seq
	}
	return nil
}

// Persist writes every complete message newer than the last one written.
func (j *Journal) Persist(msgs []transcript.Message) error {
	if j == nil {
		return nil
	}
	for _, m := range msgs {
		if m.State != transcript.Complete || m.Seq <= j.lastSeq {
			continue
		}
		if err := j.AppendTurn(m); err != nil {
			return err
		}
	}
	return nil
}

// Continue points the journal at an existing conversation whose messages
// are already stored.
func (j *Journal) Continue(id string, msgs []transcript.Message) {
	if j == nil {
		return
	}
	j.id = id
	j.lastSeq = -1
	for _, m := range msgs {
		if m.Seq > j.lastSeq {
			j.lastSeq = m.Seq
		}
	}
}

// Seal marks the conversation finished and detaches the journal from it.
func (j *Journal) Seal() error {
	if j == nil || j.id == "" {
		return nil
	}
	id := j.id
	j.id = ""
	j.lastSeq = -1
	if err := j.db.SealConversation(id); err != nil {
		return &PersistenceError{Op: "seal", Err: err}
	}
	log.Debug().Str("conversation", id).Msg("conversation sealed")
	return nil
}
