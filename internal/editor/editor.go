// Package editor hands files to the user's $EDITOR.
package editor

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Name returns $VISUAL, then $EDITOR, then fallback.
func Name(fallback string) string {
	if e := os.Getenv("VISUAL"); e != "" {
		return e
	}
	if e := os.Getenv("EDITOR"); e != "" {
		return e
	}
	return fallback
}

// Command builds the invocation that opens filePath at lineNum.
func Command(editor, filePath string, lineNum int) *exec.Cmd {
	fields := strings.Fields(editor)
	if len(fields) == 0 {
		fields = []string{"vi"}
	}
	bin, args := fields[0], fields[1:]
	if lineNum < 1 {
		lineNum = 1
	}

	switch {
	case strings.Contains(bin, "vim") || strings.Contains(bin, "nvim") || bin == "vi":
		args = append(args, fmt.Sprintf("+%d", lineNum), filePath)
	case strings.Contains(bin, "code"):
		args = append(args, "--wait", "--goto", filePath+":"+strconv.Itoa(lineNum))
	case strings.Contains(bin, "less"):
		args = append(args, "+"+strconv.Itoa(lineNum), filePath)
	default:
		args = append(args, filePath)
	}
	return exec.Command(bin, args...)
}

// Open runs the editor on filePath in the foreground, positioned at the
// last line.
func Open(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	cmd := Command(Name("less"), filePath, bytes.Count(data, []byte("\n")))
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// ComposedMsg carries the text saved in the editor back to the session.
type ComposedMsg struct {
	Text string
	Err  error
}

// Compose suspends the program, edits text in a temporary file and
// delivers the result as a ComposedMsg.
func Compose(text string) tea.Cmd {
	f, err := os.CreateTemp("", "ait-*.md")
	if err != nil {
		return func() tea.Msg { return ComposedMsg{Text: text, Err: err} }
	}
	path := f.Name()
	_, werr := f.WriteString(text)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(path)
		return func() tea.Msg { return ComposedMsg{Text: text, Err: werr} }
	}

	lines := strings.Count(text, "\n") + 1
	cmd := Command(Name("vi"), path, lines)
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		defer os.Remove(path)
		if err != nil {
			return ComposedMsg{Text: text, Err: fmt.Errorf("editor: %w", err)}
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return ComposedMsg{Text: text, Err: err}
		}
		return ComposedMsg{Text: strings.TrimRight(string(data), "\n")}
	})
}
