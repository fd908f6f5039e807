package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"github.com/Zuo-Peng/ait/internal/history"
	"github.com/Zuo-Peng/ait/internal/transcript"
)

const (
	colorReset   = "\033[0m"
	colorUser    = "\033[1;34m" // bold blue
	colorAssist  = "\033[1;32m" // bold green
	colorSystem  = "\033[2;35m" // dim magenta
	colorDim     = "\033[2m"
	colorHit     = "\033[43m"   // yellow background
	colorBoldRed = "\033[1;31m" // bold red for keyword highlights
)

type Options struct {
	HitSeq     int    // message to mark, -1 for none
	Width      int    // wrap width (0 = no wrap)
	ShowSystem bool   // include system prompt and context messages
	Query      string // search query for keyword highlighting
	Plain      bool   // no ANSI escapes
}

// fts5Operators are FTS5 operators that should not be highlighted as keywords.
var fts5Operators = map[string]bool{
	"AND": true, "OR": true, "NOT": true, "NEAR": true,
	"and": true, "or": true, "not": true, "near": true,
}

// highlightKeywords wraps case-insensitive matches of query terms in bold red ANSI codes.
func highlightKeywords(text, query string) string {
	if query == "" {
		return text
	}
	var filtered []string
	for _, t := range strings.Fields(query) {
		t = strings.Trim(t, `"`)
		if t != "" && !fts5Operators[t] {
			filtered = append(filtered, t)
		}
	}
	for _, term := range filtered {
		lower := strings.ToLower(term)
		i := 0
		for i < len(text) {
			idx := strings.Index(strings.ToLower(text[i:]), lower)
			if idx < 0 {
				break
			}
			pos := i + idx
			if pos+len(term) > len(text) {
				break
			}
			orig := text[pos : pos+len(term)]
			replacement := colorBoldRed + orig + colorReset
			text = text[:pos] + replacement + text[pos+len(term):]
			i = pos + len(replacement)
		}
	}
	return text
}

// indentLines prepends each line of text with the given prefix.
func indentLines(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// wrapLine breaks a single line into multiple lines that fit within maxWidth
// visible columns, correctly skipping ANSI escape sequences when measuring width.
func wrapLine(line string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{line}
	}

	var result []string
	var cur strings.Builder
	visW := 0

	i := 0
	for i < len(line) {
		// ANSI escape sequence: ESC[ ... m
		if i+1 < len(line) && line[i] == '\033' && line[i+1] == '[' {
			j := i + 2
			for j < len(line) && line[j] != 'm' {
				j++
			}
			if j < len(line) {
				j++
			}
			cur.WriteString(line[i:j])
			i = j
			continue
		}

		r, size := utf8.DecodeRuneInString(line[i:])
		rw := runewidth.RuneWidth(r)

		if visW+rw > maxWidth {
			result = append(result, cur.String())
			cur.Reset()
			visW = 0
		}

		cur.WriteRune(r)
		visW += rw
		i += size
	}

	if cur.Len() > 0 {
		result = append(result, cur.String())
	}
	if len(result) == 0 {
		return []string{""}
	}
	return result
}

func roleStyle(m transcript.Message) (color, label string) {
	switch m.Role {
	case transcript.User:
		return colorUser, "USER"
	case transcript.Assistant:
		return colorAssist, "ASST"
	}
	return colorSystem, "SYS"
}

// Conversation renders a stored conversation and returns the content and
// the 0-based line of the hit message header (-1 if none).
func Conversation(db *history.DB, id string, opts Options) (string, int, error) {
	s, err := db.GetConversation(id)
	if err != nil {
		return "", -1, fmt.Errorf("get conversation: %w", err)
	}
	msgs, err := db.LoadConversation(id)
	if err != nil {
		return "", -1, fmt.Errorf("load conversation: %w", err)
	}
	header := fmt.Sprintf("--- %s [%s] %s ---", s.ID, s.Model, s.UpdatedAt)
	out, hit := Messages(header, msgs, opts)
	return out, hit, nil
}

// Messages renders msgs below a header line.
func Messages(header string, msgs []transcript.Message, opts Options) (string, int) {
	var b strings.Builder
	hitLine := -1
	lineCount := 0
	paint := func(color, s string) string {
		if opts.Plain {
			return s
		}
		return color + s + colorReset
	}

	writeLine := func(s string) {
		for _, wl := range wrapLine(s, opts.Width) {
			b.WriteString(wl)
			b.WriteString("\n")
			lineCount++
		}
	}

	writeLine(paint(colorDim, header))

	shown := 0
	for _, m := range msgs {
		if m.Role == transcript.System && !opts.ShowSystem {
			continue
		}
		if shown > 0 {
			writeLine(paint(colorDim, strings.Repeat("-", 50)))
		}
		shown++

		color, label := roleStyle(m)
		if m.Seq == opts.HitSeq {
			hitLine = lineCount
			writeLine(paint(colorHit, fmt.Sprintf(">> %s #%d <<", label, m.Seq)))
		} else {
			writeLine(paint(color, label+" >") + " " + paint(colorDim, fmt.Sprintf("#%d", m.Seq)))
		}

		text := m.Content
		if !opts.Plain {
			text = highlightKeywords(text, opts.Query)
		}
		if m.State == transcript.Aborted {
			text += " " + paint(colorDim, "[cancelled]")
		}
		for _, tl := range strings.Split(indentLines(text, "  "), "\n") {
			writeLine(tl)
		}
		writeLine("")
	}

	if shown == 0 {
		writeLine(paint(colorDim, "(empty conversation)"))
	}
	return b.String(), hitLine
}
