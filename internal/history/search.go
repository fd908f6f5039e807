package history

import (
	"database/sql"
	"fmt"
	"strings"
	"unicode"
)

type Result struct {
	ConversationID string
	Seq            int
	UpdatedAt      string
	Title          string
	Model          string
	Snippet        string
	Role           string
	Rank           float64
}

type SearchOptions struct {
	Query string
	Role  string // "" = all, "user", "assistant", "system"
	Since string // "" = no filter, e.g. "2024-01-01"
	Limit int
}

// containsCJK returns true if the string contains any CJK Unified Ideograph.
func containsCJK(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// makeSnippet extracts a snippet around the first occurrence of query in text.
func makeSnippet(text, query string, contextChars int) string {
	runes := []rune(text)
	lower, qLower := strings.ToLower(text), strings.ToLower(query)
	idx := strings.Index(lower, qLower)
	// lowering changed byte offsets, so only an exact match is usable
	if len(lower) != len(text) || len(qLower) != len(query) {
		idx = strings.Index(text, query)
	}
	if idx < 0 {
		if len(runes) > contextChars*2 {
			return string(runes[:contextChars*2]) + "..."
		}
		return text
	}
	qLen := len([]rune(query))
	runePos := len([]rune(text[:idx]))
	start := max(runePos-contextChars, 0)
	end := min(runePos+qLen+contextChars, len(runes))

	prefix, suffix := "", ""
	if start > 0 {
		prefix = "..."
	}
	if end < len(runes) {
		suffix = "..."
	}
	return prefix + string(runes[start:runePos]) +
		">>>" + string(runes[runePos:runePos+qLen]) + "<<<" +
		string(runes[runePos+qLen:end]) + suffix
}

// quoteFTS turns free text into a single FTS5 phrase, for queries that are
// not valid FTS5 syntax.
func quoteFTS(q string) string {
	return `"` + strings.ReplaceAll(q, `"`, `""`) + `"`
}

// Search finds messages matching the query and keeps the best hit per
// conversation.
func (d *DB) Search(opts SearchOptions) ([]Result, error) {
	if strings.TrimSpace(opts.Query) == "" {
		return nil, nil
	}
	if opts.Limit <= 0 {
		opts.Limit = 100
	}

	// fetch more rows before dedup so enough remain afterwards
	origLimit := opts.Limit
	opts.Limit = origLimit * 3

	var results []Result
	var err error
	if containsCJK(opts.Query) {
		results, err = d.searchLike(opts)
	} else {
		results, err = d.searchFTS(opts)
		if err != nil {
			opts.Query = quoteFTS(opts.Query)
			results, err = d.searchFTS(opts)
		}
	}
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var deduped []Result
	for _, r := range results {
		if seen[r.ConversationID] {
			continue
		}
		seen[r.ConversationID] = true
		deduped = append(deduped, r)
		if len(deduped) >= origLimit {
			break
		}
	}
	return deduped, nil
}

func filters(opts SearchOptions, conditions []string, args []any) ([]string, []any) {
	if opts.Role != "" {
		conditions = append(conditions, "m.role = ?")
		args = append(args, opts.Role)
	}
	if opts.Since != "" {
		conditions = append(conditions, "c.updated_at >= ?")
		args = append(args, opts.Since)
	}
	return conditions, args
}

func (d *DB) searchFTS(opts SearchOptions) ([]Result, error) {
	conditions, args := filters(opts,
		[]string{"messages_fts MATCH ?"},
		[]any{opts.Query},
	)

	query := fmt.Sprintf(`
		SELECT
			m.conversation_id,
			m.seq,
			c.updated_at,
			c.title,
			c.model,
			snippet(messages_fts, 0, '>>>', '<<<', '...', 40) AS snip,
			m.role,
			bm25(messages_fts, 1.0) AS rank
		FROM messages_fts
		JOIN messages m ON messages_fts.rowid = m.rowid
		JOIN conversations c ON m.conversation_id = c.id
		WHERE %s
		ORDER BY rank
		LIMIT ?
	`, strings.Join(conditions, " AND "))
	args = append(args, opts.Limit)

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

func (d *DB) searchLike(opts SearchOptions) ([]Result, error) {
	conditions, args := filters(opts,
		[]string{"m.content LIKE ?"},
		[]any{"%" + opts.Query + "%"},
	)

	query := fmt.Sprintf(`
		SELECT
			m.conversation_id,
			m.seq,
			c.updated_at,
			c.title,
			c.model,
			m.content,
			m.role
		FROM messages m
		JOIN conversations c ON m.conversation_id = c.id
		WHERE %s
		ORDER BY c.updated_at DESC
		LIMIT ?
	`, strings.Join(conditions, " AND "))
	args = append(args, opts.Limit)

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var content string
		if err := rows.Scan(&r.ConversationID, &r.Seq, &r.UpdatedAt, &r.Title, &r.Model, &content, &r.Role); err != nil {
			return nil, err
		}
		r.Snippet = makeSnippet(content, opts.Query, 30)
		results = append(results, r)
	}
	return results, rows.Err()
}

func scanResults(rows *sql.Rows) ([]Result, error) {
	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(
			&r.ConversationID, &r.Seq, &r.UpdatedAt,
			&r.Title, &r.Model,
			&r.Snippet, &r.Role, &r.Rank,
		); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
