package input

import (
	"strings"
	"unicode"
)

// Buffer is the multi-line edit buffer of the input pane. The cursor is a
// (row, col) position in runes; col may equal the line length.
type Buffer struct {
	lines [][]rune
	row   int
	col   int
}

func NewBuffer() Buffer {
	return Buffer{lines: [][]rune{{}}}
}

func (b *Buffer) ensure() {
	if len(b.lines) == 0 {
		b.lines = [][]rune{{}}
	}
}

func (b Buffer) Value() string {
	if len(b.lines) == 0 {
		return ""
	}
	parts := make([]string, len(b.lines))
	for i, l := range b.lines {
		parts[i] = string(l)
	}
	return strings.Join(parts, "\n")
}

func (b Buffer) Lines() []string {
	if len(b.lines) == 0 {
		return []string{""}
	}
	out := make([]string, len(b.lines))
	for i, l := range b.lines {
		out[i] = string(l)
	}
	return out
}

func (b Buffer) Cursor() (row, col int) { return b.row, b.col }

func (b Buffer) Empty() bool { return strings.TrimSpace(b.Value()) == "" }

// SetValue replaces the contents and puts the cursor at the end.
func (b *Buffer) SetValue(s string) {
	b.lines = nil
	for _, l := range strings.Split(s, "\n") {
		b.lines = append(b.lines, []rune(l))
	}
	b.row = len(b.lines) - 1
	b.col = len(b.lines[b.row])
}

func (b *Buffer) Clear() {
	b.lines = [][]rune{{}}
	b.row, b.col = 0, 0
}

func (b *Buffer) Insert(rs []rune) {
	b.ensure()
	for _, r := range rs {
		if r == '\n' {
			b.Newline()
			continue
		}
		line := b.lines[b.row]
		line = append(line[:b.col], append([]rune{r}, line[b.col:]...)...)
		b.lines[b.row] = line
		b.col++
	}
}

func (b *Buffer) Newline() {
	b.ensure()
	line := b.lines[b.row]
	head := append([]rune{}, line[:b.col]...)
	tail := append([]rune{}, line[b.col:]...)
	b.lines[b.row] = head
	b.lines = append(b.lines[:b.row+1], append([][]rune{tail}, b.lines[b.row+1:]...)...)
	b.row++
	b.col = 0
}

func (b *Buffer) Backspace() {
	b.ensure()
	if b.col > 0 {
		line := b.lines[b.row]
		b.lines[b.row] = append(line[:b.col-1], line[b.col:]...)
		b.col--
		return
	}
	if b.row == 0 {
		return
	}
	prev := b.lines[b.row-1]
	b.col = len(prev)
	b.lines[b.row-1] = append(prev, b.lines[b.row]...)
	b.lines = append(b.lines[:b.row], b.lines[b.row+1:]...)
	b.row--
}

func (b *Buffer) DeleteForward() {
	b.ensure()
	line := b.lines[b.row]
	if b.col < len(line) {
		b.lines[b.row] = append(line[:b.col], line[b.col+1:]...)
		return
	}
	if b.row == len(b.lines)-1 {
		return
	}
	b.lines[b.row] = append(line, b.lines[b.row+1]...)
	b.lines = append(b.lines[:b.row+1], b.lines[b.row+2:]...)
}

// DeleteWord removes the word before the cursor, along with any spaces
// between it and the cursor.
func (b *Buffer) DeleteWord() {
	b.ensure()
	if b.col == 0 {
		b.Backspace()
		return
	}
	line := b.lines[b.row]
	i := b.col
	for i > 0 && unicode.IsSpace(line[i-1]) {
		i--
	}
	for i > 0 && !unicode.IsSpace(line[i-1]) {
		i--
	}
	b.lines[b.row] = append(line[:i], line[b.col:]...)
	b.col = i
}

func (b *Buffer) Left() {
	b.ensure()
	if b.col > 0 {
		b.col--
	} else if b.row > 0 {
		b.row--
		b.col = len(b.lines[b.row])
	}
}

func (b *Buffer) Right() {
	b.ensure()
	if b.col < len(b.lines[b.row]) {
		b.col++
	} else if b.row < len(b.lines)-1 {
		b.row++
		b.col = 0
	}
}

func (b *Buffer) Up() {
	b.ensure()
	if b.row > 0 {
		b.row--
		b.col = min(b.col, len(b.lines[b.row]))
	}
}

func (b *Buffer) Down() {
	b.ensure()
	if b.row < len(b.lines)-1 {
		b.row++
		b.col = min(b.col, len(b.lines[b.row]))
	}
}

func (b *Buffer) Home() { b.col = 0 }

func (b *Buffer) End() {
	b.ensure()
	b.col = len(b.lines[b.row])
}

// Apply performs an edit command. Commands that are not edits are ignored.
func (b *Buffer) Apply(c Command) {
	switch c.Kind {
	case CmdInsert:
		b.Insert(c.Runes)
	case CmdNewline:
		b.Newline()
	case CmdBackspace:
		b.Backspace()
	case CmdDelete:
		b.DeleteForward()
	case CmdDeleteWord:
		b.DeleteWord()
	case CmdCursorLeft:
		b.Left()
	case CmdCursorRight:
		b.Right()
	case CmdCursorUp:
		b.Up()
	case CmdCursorDown:
		b.Down()
	case CmdCursorHome:
		b.Home()
	case CmdCursorEnd:
		b.End()
	case CmdClearBuffer:
		b.Clear()
	}
}
