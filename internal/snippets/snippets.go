// Package snippets pulls fenced code blocks out of assistant replies.
package snippets

import (
	"strings"

	"github.com/atotto/clipboard"

	"github.com/Zuo-Peng/ait/internal/transcript"
)

type Snippet struct {
	Seq      int // message the block came from
	Language string
	Code     string
}

// Title is the first non-blank line of the code.
func (s Snippet) Title() string {
	for _, l := range strings.Split(s.Code, "\n") {
		if t := strings.TrimSpace(l); t != "" {
			return t
		}
	}
	return ""
}

// Extract returns the fenced blocks of every complete assistant message,
// newest message first. An unterminated fence runs to the end of the message.
func Extract(msgs []transcript.Message) []Snippet {
	var out []Snippet
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m.Role != transcript.Assistant || m.State == transcript.Streaming {
			continue
		}
		out = append(out, parse(m.Seq, m.Content)...)
	}
	return out
}

func parse(seq int, text string) []Snippet {
	var (
		out   []Snippet
		in    bool
		fence string
		lang  string
		body  []string
	)
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !in {
			f := fenceOf(trimmed)
			if f == "" {
				continue
			}
			in, fence, body = true, f, nil
			lang = strings.TrimSpace(strings.TrimLeft(trimmed, f[:1]))
			if i := strings.IndexAny(lang, " \t{"); i >= 0 {
				lang = lang[:i]
			}
			continue
		}
		if strings.HasPrefix(trimmed, fence) && strings.Trim(trimmed, fence[:1]) == "" {
			out = append(out, Snippet{Seq: seq, Language: lang, Code: strings.Join(body, "\n")})
			in = false
			continue
		}
		body = append(body, line)
	}
	if in && len(body) > 0 {
		out = append(out, Snippet{Seq: seq, Language: lang, Code: strings.Join(body, "\n")})
	}
	return out
}

// fenceOf returns the opening fence run (``` or ~~~, three or more).
func fenceOf(line string) string {
	for _, c := range []string{"`", "~"} {
		n := 0
		for n < len(line) && line[n:n+1] == c {
			n++
		}
		if n >= 3 {
			return line[:n]
		}
	}
	return ""
}

// Copy puts text on the system clipboard.
func Copy(text string) error {
	return clipboard.WriteAll(text)
}
