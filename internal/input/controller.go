// Package input maps key events to commands, depending on the current
// interaction mode. Interpret is pure: it never touches session state.
package input

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type Mode int

const (
	ModeNormal Mode = iota
	ModeInsert
	ModeHelp
	ModeHistory
	ModeModels
	ModeSnippets
)

func (m Mode) String() string {
	switch m {
	case ModeInsert:
		return "INSERT"
	case ModeHelp:
		return "HELP"
	case ModeHistory:
		return "HISTORY"
	case ModeModels:
		return "MODELS"
	case ModeSnippets:
		return "SNIPPETS"
	}
	return "NORMAL"
}

// Overlay reports whether the mode shows a selectable list.
func (m Mode) Overlay() bool {
	return m == ModeHistory || m == ModeModels || m == ModeSnippets
}

// State is the modal part of the session. Prev is the mode to return to
// when the help screen is dismissed.
type State struct {
	Mode Mode
	Prev Mode
}

type CommandKind int

const (
	CmdNone CommandKind = iota

	// edits
	CmdInsert
	CmdNewline
	CmdBackspace
	CmdDelete
	CmdDeleteWord
	CmdCursorLeft
	CmdCursorRight
	CmdCursorUp
	CmdCursorDown
	CmdCursorHome
	CmdCursorEnd
	CmdClearBuffer

	// session
	CmdSubmit
	CmdRetry
	CmdEditLast
	CmdCancel
	CmdQuit
	CmdNewChat
	CmdYank
	CmdCompose
	CmdShowHistory
	CmdShowModels
	CmdShowSnippets

	// transcript scrolling
	CmdScrollUp
	CmdScrollDown
	CmdHalfPageUp
	CmdHalfPageDown
	CmdScrollTop
	CmdScrollBottom

	// list overlays
	CmdListUp
	CmdListDown
	CmdListFirst
	CmdListLast
	CmdListChoose
	CmdListDelete
)

type Command struct {
	Kind  CommandKind
	Runes []rune
}

// IsEdit reports whether the command only changes the edit buffer.
func (c Command) IsEdit() bool {
	return c.Kind >= CmdInsert && c.Kind <= CmdClearBuffer
}

func cmd(k CommandKind) Command { return Command{Kind: k} }

// Interpret returns the next modal state and the command a key produces.
// Unrecognized keys yield CmdNone and leave the state unchanged.
func Interpret(s State, msg tea.KeyMsg) (State, Command) {
	switch s.Mode {
	case ModeInsert:
		return interpretInsert(s, msg)
	case ModeHelp:
		return State{Mode: s.Prev}, cmd(CmdNone)
	case ModeHistory, ModeModels, ModeSnippets:
		return interpretList(s, msg)
	}
	return interpretNormal(s, msg)
}

func interpretNormal(s State, msg tea.KeyMsg) (State, Command) {
	switch {
	case key.Matches(msg, Normal.Insert):
		return State{Mode: ModeInsert}, cmd(CmdNone)
	case key.Matches(msg, Normal.Help):
		return State{Mode: ModeHelp, Prev: ModeNormal}, cmd(CmdNone)
	case key.Matches(msg, Normal.Quit):
		return s, cmd(CmdQuit)
	case key.Matches(msg, Normal.ScrollUp):
		return s, cmd(CmdScrollUp)
	case key.Matches(msg, Normal.ScrollDown):
		return s, cmd(CmdScrollDown)
	case key.Matches(msg, Normal.HalfUp):
		return s, cmd(CmdHalfPageUp)
	case key.Matches(msg, Normal.HalfDown):
		return s, cmd(CmdHalfPageDown)
	case key.Matches(msg, Normal.Top):
		return s, cmd(CmdScrollTop)
	case key.Matches(msg, Normal.Bottom):
		return s, cmd(CmdScrollBottom)
	case key.Matches(msg, Normal.Retry):
		return s, cmd(CmdRetry)
	case key.Matches(msg, Normal.EditLast):
		return s, cmd(CmdEditLast)
	case key.Matches(msg, Normal.Cancel):
		return s, cmd(CmdCancel)
	case key.Matches(msg, Normal.History):
		return State{Mode: ModeHistory}, cmd(CmdShowHistory)
	case key.Matches(msg, Normal.Models):
		return State{Mode: ModeModels}, cmd(CmdShowModels)
	case key.Matches(msg, Normal.Snippets):
		return State{Mode: ModeSnippets}, cmd(CmdShowSnippets)
	case key.Matches(msg, Normal.NewChat):
		return s, cmd(CmdNewChat)
	case key.Matches(msg, Normal.Yank):
		return s, cmd(CmdYank)
	}
	return s, cmd(CmdNone)
}

func interpretInsert(s State, msg tea.KeyMsg) (State, Command) {
	switch msg.Type {
	case tea.KeyRunes:
		if msg.Alt {
			break
		}
		return s, Command{Kind: CmdInsert, Runes: append([]rune(nil), msg.Runes...)}
	case tea.KeySpace:
		return s, Command{Kind: CmdInsert, Runes: []rune{' '}}
	case tea.KeyTab:
		return s, Command{Kind: CmdInsert, Runes: []rune{'\t'}}
	}

	switch {
	case key.Matches(msg, Insert.Leave):
		return State{Mode: ModeNormal}, cmd(CmdNone)
	case key.Matches(msg, Insert.Help):
		return State{Mode: ModeHelp, Prev: ModeInsert}, cmd(CmdNone)
	case key.Matches(msg, Insert.Submit):
		return s, cmd(CmdSubmit)
	case key.Matches(msg, Insert.Newline):
		return s, cmd(CmdNewline)
	case key.Matches(msg, Insert.Backspace):
		return s, cmd(CmdBackspace)
	case key.Matches(msg, Insert.Delete):
		return s, cmd(CmdDelete)
	case key.Matches(msg, Insert.DeleteWord):
		return s, cmd(CmdDeleteWord)
	case key.Matches(msg, Insert.Left):
		return s, cmd(CmdCursorLeft)
	case key.Matches(msg, Insert.Right):
		return s, cmd(CmdCursorRight)
	case key.Matches(msg, Insert.Up):
		return s, cmd(CmdCursorUp)
	case key.Matches(msg, Insert.Down):
		return s, cmd(CmdCursorDown)
	case key.Matches(msg, Insert.Home):
		return s, cmd(CmdCursorHome)
	case key.Matches(msg, Insert.End):
		return s, cmd(CmdCursorEnd)
	case key.Matches(msg, Insert.Clear):
		return s, cmd(CmdClearBuffer)
	case key.Matches(msg, Insert.Compose):
		return s, cmd(CmdCompose)
	case key.Matches(msg, Insert.Cancel):
		return s, cmd(CmdCancel)
	}
	return s, cmd(CmdNone)
}

func interpretList(s State, msg tea.KeyMsg) (State, Command) {
	switch {
	case key.Matches(msg, List.Back):
		return State{Mode: ModeNormal}, cmd(CmdNone)
	case key.Matches(msg, List.Up):
		return s, cmd(CmdListUp)
	case key.Matches(msg, List.Down):
		return s, cmd(CmdListDown)
	case key.Matches(msg, List.First):
		return s, cmd(CmdListFirst)
	case key.Matches(msg, List.Last):
		return s, cmd(CmdListLast)
	case key.Matches(msg, List.Choose):
		return s, cmd(CmdListChoose)
	case s.Mode == ModeHistory && key.Matches(msg, List.Delete):
		return s, cmd(CmdListDelete)
	}
	return s, cmd(CmdNone)
}
