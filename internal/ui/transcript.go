package ui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"

	"github.com/Zuo-Peng/ait/internal/transcript"
)

// systemPreviewLines is how much of a system message is shown before it
// is folded.
const systemPreviewLines = 3

// wrapText word-wraps text to width and hard-wraps words longer than a line.
func wrapText(text string, width int) []string {
	if width < 1 {
		width = 1
	}
	text = strings.ReplaceAll(text, "\t", "    ")
	text = wrap.String(wordwrap.String(text, width), width)
	return strings.Split(text, "\n")
}

func label(m transcript.Message) string {
	switch m.Role {
	case transcript.User:
		return styleUserLabel.Render("You")
	case transcript.Assistant:
		return styleAssistantLabel.Render("Assistant")
	}
	return styleSystem.Render("System")
}

// transcriptLines lays out the whole conversation at width.
func transcriptLines(msgs []transcript.Message, width int, spinner string) []string {
	var lines []string
	shown := 0
	for _, m := range msgs {
		if shown > 0 {
			lines = append(lines, "")
		}
		shown++
		lines = append(lines, label(m))

		if m.Role == transcript.System {
			body := wrapText(m.Content, width)
			if len(body) > systemPreviewLines {
				more := len(body) - systemPreviewLines
				body = append(body[:systemPreviewLines], fmt.Sprintf("… %d more lines", more))
			}
			for _, l := range body {
				lines = append(lines, styleSystem.Render(l))
			}
			continue
		}

		body := m.Content
		if m.State == transcript.Streaming && body == "" {
			lines = append(lines, spinner)
			continue
		}
		lines = append(lines, wrapText(body, width)...)

		switch m.State {
		case transcript.Streaming:
			last := len(lines) - 1
			if spinner != "" && runewidth.StringWidth(lines[last])+2 <= width {
				lines[last] += " " + spinner
			}
		case transcript.Aborted:
			lines = append(lines, styleCancelled.Render("[cancelled]"))
		}
	}

	if !hasConversation(msgs) {
		if shown > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, styleHint.Render(runewidth.Truncate("No messages yet. Press i to write a query.", width, "")))
	}
	return lines
}

func hasConversation(msgs []transcript.Message) bool {
	for _, m := range msgs {
		if m.Role != transcript.System {
			return true
		}
	}
	return false
}
