package input

import "github.com/charmbracelet/bubbles/key"

type normalKeys struct {
	Insert     key.Binding
	Help       key.Binding
	Quit       key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	HalfUp     key.Binding
	HalfDown   key.Binding
	Top        key.Binding
	Bottom     key.Binding
	Retry      key.Binding
	EditLast   key.Binding
	Cancel     key.Binding
	History    key.Binding
	Models     key.Binding
	Snippets   key.Binding
	NewChat    key.Binding
	Yank       key.Binding
}

type insertKeys struct {
	Leave      key.Binding
	Submit     key.Binding
	Newline    key.Binding
	Backspace  key.Binding
	Delete     key.Binding
	DeleteWord key.Binding
	Left       key.Binding
	Right      key.Binding
	Up         key.Binding
	Down       key.Binding
	Home       key.Binding
	End        key.Binding
	Clear      key.Binding
	Compose    key.Binding
	Cancel     key.Binding
	Help       key.Binding
}

type listKeys struct {
	Up     key.Binding
	Down   key.Binding
	First  key.Binding
	Last   key.Binding
	Choose key.Binding
	Delete key.Binding
	Back   key.Binding
}

var Normal = normalKeys{
	Insert:     key.NewBinding(key.WithKeys("i", "a"), key.WithHelp("i", "insert")),
	Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:       key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
	ScrollUp:   key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/up", "scroll up")),
	ScrollDown: key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/dn", "scroll down")),
	HalfUp:     key.NewBinding(key.WithKeys("ctrl+u", "pgup"), key.WithHelp("C-u", "half page up")),
	HalfDown:   key.NewBinding(key.WithKeys("ctrl+d", "pgdown"), key.WithHelp("C-d", "half page down")),
	Top:        key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
	Bottom:     key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
	Retry:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "resend last query")),
	EditLast:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit last query")),
	Cancel:     key.NewBinding(key.WithKeys("x", "ctrl+c"), key.WithHelp("x/C-c", "cancel response")),
	History:    key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "previous chats")),
	Models:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "choose model")),
	Snippets:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "code snippets")),
	NewChat:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new chat")),
	Yank:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy last reply")),
}

var Insert = insertKeys{
	Leave:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "normal mode")),
	Submit:     key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("C-s", "send")),
	Newline:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "newline")),
	Backspace:  key.NewBinding(key.WithKeys("backspace", "ctrl+h")),
	Delete:     key.NewBinding(key.WithKeys("delete")),
	DeleteWord: key.NewBinding(key.WithKeys("ctrl+w", "alt+backspace"), key.WithHelp("C-w", "delete word")),
	Left:       key.NewBinding(key.WithKeys("left")),
	Right:      key.NewBinding(key.WithKeys("right")),
	Up:         key.NewBinding(key.WithKeys("up")),
	Down:       key.NewBinding(key.WithKeys("down")),
	Home:       key.NewBinding(key.WithKeys("home", "ctrl+a")),
	End:        key.NewBinding(key.WithKeys("end", "ctrl+e")),
	Clear:      key.NewBinding(key.WithKeys("ctrl+u"), key.WithHelp("C-u", "clear input")),
	Compose:    key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("C-o", "edit in $EDITOR")),
	Cancel:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("C-c", "cancel response")),
	Help:       key.NewBinding(key.WithKeys("f1"), key.WithHelp("F1", "help")),
}

var List = listKeys{
	Up:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/up", "up")),
	Down:   key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/dn", "down")),
	First:  key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "first")),
	Last:   key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "last")),
	Choose: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "choose")),
	Delete: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Back:   key.NewBinding(key.WithKeys("esc", "q"), key.WithHelp("esc", "back")),
}

// HelpSections lists the bindings shown on the help screen, grouped by mode.
func HelpSections() []HelpSection {
	return []HelpSection{
		{Title: "Normal", Bindings: []key.Binding{
			Normal.Insert, Normal.ScrollDown, Normal.ScrollUp, Normal.HalfDown, Normal.HalfUp,
			Normal.Top, Normal.Bottom, Normal.Retry, Normal.EditLast, Normal.Cancel,
			Normal.History, Normal.Models, Normal.Snippets, Normal.NewChat, Normal.Yank,
			Normal.Help, Normal.Quit,
		}},
		{Title: "Insert", Bindings: []key.Binding{
			Insert.Submit, Insert.Newline, Insert.Leave, Insert.DeleteWord, Insert.Clear,
			Insert.Compose, Insert.Cancel, Insert.Help,
		}},
		{Title: "Lists", Bindings: []key.Binding{
			List.Down, List.Up, List.First, List.Last, List.Choose, List.Delete, List.Back,
		}},
	}
}

type HelpSection struct {
	Title    string
	Bindings []key.Binding
}
