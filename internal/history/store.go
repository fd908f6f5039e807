package history

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-runewidth"

	"github.com/Zuo-Peng/ait/internal/transcript"
)

type Summary struct {
	ID           string
	Title        string
	Model        string
	SystemPrompt string
	CreatedAt    string
	UpdatedAt    string
	SealedAt     string
	MessageCount int
}

func (s Summary) Sealed() bool { return s.SealedAt != "" }

const titleWidth = 80

// titleFrom turns the first line of a query into a list title.
func titleFrom(content string) string {
	line := strings.TrimSpace(content)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	if runewidth.StringWidth(line) > titleWidth {
		line = runewidth.Truncate(line, titleWidth, "...")
	}
	return line
}

func (d *DB) CreateConversation(systemPrompt, model string) (string, error) {
	id := uuid.NewString()
	ts := d.timestamp()
	_, err := d.db.Exec(
		"INSERT INTO conversations (id, created_at, updated_at, system_prompt, model) VALUES (?, ?, ?, ?, ?)",
		id, ts, ts, systemPrompt, model,
	)
	if err != nil {
		return "", fmt.Errorf("create conversation: %w", err)
	}
	return id, nil
}

// AppendTurn stores one message. Storing the same sequence index twice
// replaces the earlier content.
func (d *DB) AppendTurn(conversationID string, m transcript.Message) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ts := d.timestamp()
	res, err := tx.Exec("UPDATE conversations SET updated_at = ? WHERE id = ?", ts, conversationID)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, conversationID)
	}

	if _, err := tx.Exec(`
		INSERT INTO messages (conversation_id, seq, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (conversation_id, seq) DO UPDATE SET role = excluded.role, content = excluded.content`,
		conversationID, m.Seq, string(m.Role), m.Content, ts,
	); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	if m.Role == transcript.User {
		if _, err := tx.Exec(
			"UPDATE conversations SET title = ? WHERE id = ? AND title = ''",
			titleFrom(m.Content), conversationID,
		); err != nil {
			return fmt.Errorf("set title: %w", err)
		}
	}
	return tx.Commit()
}

func (d *DB) SealConversation(id string) error {
	_, err := d.db.Exec(
		"UPDATE conversations SET sealed_at = ? WHERE id = ?",
		d.timestamp(), id,
	)
	return err
}

const summaryColumns = `
	c.id, c.title, c.model, c.system_prompt, c.created_at, c.updated_at, c.sealed_at,
	(SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id)`

func scanSummary(sc interface{ Scan(...any) error }) (Summary, error) {
	var s Summary
	err := sc.Scan(&s.ID, &s.Title, &s.Model, &s.SystemPrompt, &s.CreatedAt, &s.UpdatedAt, &s.SealedAt, &s.MessageCount)
	return s, err
}

// ListConversations returns conversations most recently updated first.
// limit <= 0 means no limit.
func (d *DB) ListConversations(limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.db.Query(
		"SELECT"+summaryColumns+" FROM conversations c ORDER BY c.updated_at DESC, c.rowid DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (d *DB) GetConversation(id string) (Summary, error) {
	s, err := scanSummary(d.db.QueryRow("SELECT"+summaryColumns+" FROM conversations c WHERE c.id = ?", id))
	if err == sql.ErrNoRows {
		return Summary{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, err
}

// Resolve expands an id prefix to the full conversation id.
func (d *DB) Resolve(prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", fmt.Errorf("%w: empty id", ErrNotFound)
	}
	rows, err := d.db.Query("SELECT id FROM conversations WHERE id LIKE ? || '%' LIMIT 2", prefix)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrNotFound, prefix)
	case 1:
		return ids[0], nil
	}
	return "", fmt.Errorf("id prefix %q is ambiguous", prefix)
}

// LoadConversation returns the stored messages in sequence order.
func (d *DB) LoadConversation(id string) ([]transcript.Message, error) {
	if _, err := d.GetConversation(id); err != nil {
		return nil, err
	}

	rows, err := d.db.Query(
		"SELECT seq, role, content FROM messages WHERE conversation_id = ? ORDER BY seq",
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	var msgs []transcript.Message
	for rows.Next() {
		var m transcript.Message
		var role string
		if err := rows.Scan(&m.Seq, &role, &m.Content); err != nil {
			return nil, err
		}
		r, err := transcript.ParseRole(role)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", m.Seq, err)
		}
		m.Role = r
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (d *DB) DeleteConversation(id string) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM messages WHERE conversation_id = ?", id); err != nil {
		return err
	}
	res, err := tx.Exec("DELETE FROM conversations WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return tx.Commit()
}

// Prune keeps the keep most recently updated conversations and deletes the
// rest, returning how many were removed. keep <= 0 disables pruning.
func (d *DB) Prune(keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	tx, err := d.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	const stale = `SELECT id FROM conversations ORDER BY updated_at DESC, rowid DESC LIMIT -1 OFFSET ?`
	if _, err := tx.Exec("DELETE FROM messages WHERE conversation_id IN ("+stale+")", keep); err != nil {
		return 0, fmt.Errorf("prune messages: %w", err)
	}
	res, err := tx.Exec("DELETE FROM conversations WHERE id IN ("+stale+")", keep)
	if err != nil {
		return 0, fmt.Errorf("prune conversations: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), tx.Commit()
}
