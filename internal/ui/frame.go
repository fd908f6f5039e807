// Package ui draws session frames. It holds no state: everything it shows
// arrives in a Frame.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/Zuo-Peng/ait/internal/input"
	"github.com/Zuo-Peng/ait/internal/transcript"
)

const (
	inputMaxLines = 6
	statusHeight  = 1
	minWidth      = 20
	minHeight     = 8
)

// Item is one row of a list overlay.
type Item struct {
	Title  string
	Detail string
	Tag    string
	Marked bool
}

type Frame struct {
	Mode input.Mode

	Messages  []transcript.Message
	Scroll    int // lines above the bottom of the transcript
	Streaming bool
	Spinner   string

	Input         []string
	CursorRow     int
	CursorCol     int
	CursorVisible bool

	Items      []Item
	ListCursor int
	ListTitle  string
	Preview    string

	Model        string
	Conversation string
	Notice       string
	NoticeError  bool

	Width  int
	Height int
}

type layout struct {
	contentW    int
	transcriptH int
	inputLines  int
}

func (f Frame) layout() layout {
	w, h := f.Width, f.Height
	if w < minWidth {
		w = minWidth
	}
	if h < minHeight {
		h = minHeight
	}
	n := len(f.Input)
	if n < 1 {
		n = 1
	}
	if n > inputMaxLines {
		n = inputMaxLines
	}
	// two bordered panes plus the status bar
	th := h - (n + 2) - 2 - statusHeight
	if th < 1 {
		th = 1
	}
	return layout{contentW: w - 2, transcriptH: th, inputLines: n}
}

// MaxScroll is the largest useful Scroll value for f.
func MaxScroll(f Frame) int {
	l := f.layout()
	n := len(transcriptLines(f.Messages, l.contentW, f.Spinner)) - l.transcriptH
	if n < 0 {
		return 0
	}
	return n
}

// Render draws the whole screen.
func Render(f Frame) string {
	if f.Width <= 0 || f.Height <= 0 {
		return ""
	}
	l := f.layout()

	var top string
	switch {
	case f.Mode == input.ModeHelp:
		top = stylePanelBorder.Width(l.contentW).Height(l.transcriptH).
			Render(renderHelp(l.contentW, l.transcriptH))
	case f.Mode.Overlay():
		top = renderOverlay(f, l)
	default:
		top = stylePanelBorder.Width(l.contentW).Height(l.transcriptH).
			Render(renderTranscript(f, l))
	}

	inputStyle := stylePanelBorder
	if f.Mode == input.ModeInsert {
		inputStyle = styleActiveBorder
	}
	in := inputStyle.Width(l.contentW).Height(l.inputLines).
		Render(renderInput(f, l))

	return lipgloss.JoinVertical(lipgloss.Left, top, in, statusBar(f, l.contentW+2))
}

func renderTranscript(f Frame, l layout) string {
	lines := transcriptLines(f.Messages, l.contentW, f.Spinner)
	return strings.Join(window(lines, l.transcriptH, f.Scroll), "\n")
}

// window returns the height lines that end scroll lines above the bottom.
func window(lines []string, height, scroll int) []string {
	limit := len(lines) - height
	if limit < 0 {
		limit = 0
	}
	if scroll > limit {
		scroll = limit
	}
	if scroll < 0 {
		scroll = 0
	}
	end := len(lines) - scroll
	start := end - height
	if start < 0 {
		start = 0
	}
	out := append([]string(nil), lines[start:end]...)
	for len(out) < height {
		out = append(out, "")
	}
	return out
}

func renderInput(f Frame, l layout) string {
	lines := f.Input
	if len(lines) == 0 {
		lines = []string{""}
	}
	row := f.CursorRow
	if row >= len(lines) {
		row = len(lines) - 1
	}

	first := 0
	if row >= l.inputLines {
		first = row - l.inputLines + 1
	}
	last := first + l.inputLines
	if last > len(lines) {
		last = len(lines)
	}

	if f.Mode != input.ModeInsert && len(lines) == 1 && lines[0] == "" {
		return styleHint.Render(runewidth.Truncate("press i to write, ? for help", l.contentW, ""))
	}

	showCursor := f.Mode == input.ModeInsert && f.CursorVisible
	var out []string
	for i := first; i < last; i++ {
		line := strings.ReplaceAll(lines[i], "\t", " ")
		if i == row && f.Mode == input.ModeInsert {
			out = append(out, cursorLine(line, f.CursorCol, l.contentW, showCursor))
			continue
		}
		out = append(out, runewidth.Truncate(line, l.contentW, ""))
	}
	return strings.Join(out, "\n")
}

// cursorLine renders line with the cursor at rune col, scrolled
// horizontally so the cursor stays in view.
func cursorLine(line string, col, width int, visible bool) string {
	rs := []rune(line)
	if col > len(rs) {
		col = len(rs)
	}
	start := 0
	for start < col && runewidth.StringWidth(string(rs[start:col])) >= width {
		start++
	}
	before := string(rs[start:col])

	at, after := " ", ""
	if col < len(rs) {
		at = string(rs[col])
		after = string(rs[col+1:])
	}
	if visible {
		at = styleCursor.Render(at)
	}
	rest := width - runewidth.StringWidth(before) - 1
	if rest < 0 {
		rest = 0
	}
	return before + at + runewidth.Truncate(after, rest, "")
}

func statusBar(f Frame, width int) string {
	parts := []string{styleMode.Render(f.Mode.String())}
	if f.Model != "" {
		parts = append(parts, f.Model)
	}
	if f.Conversation != "" {
		parts = append(parts, "chat "+shortID(f.Conversation))
	}
	if f.Streaming {
		parts = append(parts, strings.TrimSpace(f.Spinner+" streaming, x to cancel"))
	} else if f.Scroll > 0 {
		parts = append(parts, fmt.Sprintf("scrolled %d", f.Scroll))
	}
	if f.Notice != "" {
		n := f.Notice
		if f.NoticeError {
			n = styleNoticeError.Render(n)
		}
		parts = append(parts, n)
	}
	bar := strings.Join(parts, " | ")
	return styleStatusBar.MaxWidth(width).Render(bar)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// TranscriptHeight is the number of transcript lines visible in f.
func TranscriptHeight(f Frame) int {
	return f.layout().transcriptH
}
