// Package assemble builds the initial context of a chat from files and
// piped standard input.
package assemble

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/Zuo-Peng/ait/internal/scan"
	"github.com/Zuo-Peng/ait/internal/transcript"
)

type StdinMode int

const (
	StdinAuto StdinMode = iota
	StdinAlways
	StdinNever
)

func ParseStdinMode(s string) (StdinMode, error) {
	switch s {
	case "", "auto":
		return StdinAuto, nil
	case "always":
		return StdinAlways, nil
	case "never":
		return StdinNever, nil
	}
	return StdinAuto, fmt.Errorf("invalid stdin mode %q (want auto, always or never)", s)
}

const StdinName = "<stdin>"

const DefaultMaxBytes = 1 << 20

// ContextReadError means a context source could not be used. It aborts
// startup; no partial context is ever produced.
type ContextReadError struct {
	Path string
	Err  error
}

func (e *ContextReadError) Error() string {
	return fmt.Sprintf("read context %s: %v", e.Path, e.Err)
}

func (e *ContextReadError) Unwrap() error {
	return e.Err
}

type Options struct {
	Paths []string
	Stdin StdinMode

	// Reader is standard input. IsTerminal reports whether it is an
	// interactive terminal, in which case it is never read.
	Reader     io.Reader
	IsTerminal bool

	// MaxBytes bounds both stdin and each file.
	MaxBytes int64
}

type source struct {
	name string
	text string
}

// Assemble reads every source and returns the context payload. ok is false
// when no source contributed any text.
func Assemble(opts Options) (payload string, ok bool, err error) {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}

	var sources []source

	if len(opts.Paths) > 0 {
		files, err := scan.Files(opts.Paths)
		if err != nil {
			return "", false, &ContextReadError{Path: pathOf(err, opts.Paths), Err: err}
		}
		for _, f := range files {
			text, err := readFile(f.Path, opts.MaxBytes)
			if err != nil {
				return "", false, &ContextReadError{Path: f.Path, Err: err}
			}
			if strings.TrimSpace(text) != "" {
				sources = append(sources, source{name: f.Path, text: text})
			}
		}
	}

	if opts.Reader != nil && opts.Stdin != StdinNever && !opts.IsTerminal {
		text, err := readBounded(opts.Reader, opts.MaxBytes)
		if err != nil {
			return "", false, &ContextReadError{Path: StdinName, Err: err}
		}
		if strings.TrimSpace(text) != "" {
			sources = append(sources, source{name: StdinName, text: text})
		}
	}

	return join(sources)
}

func pathOf(err error, paths []string) string {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return pe.Path
	}
	return strings.Join(paths, ", ")
}

func readFile(path string, limit int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return readBounded(f, limit)
}

func readBounded(r io.Reader, limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("larger than %d bytes", limit)
	}
	if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
		return "", fmt.Errorf("not valid UTF-8 text")
	}
	return string(data), nil
}

// join formats the sources. A single source is used verbatim; several are
// each preceded by a delimiter line naming them.
func join(sources []source) (string, bool, error) {
	switch len(sources) {
	case 0:
		return "", false, nil
	case 1:
		return sources[0].text, true, nil
	}
	var b strings.Builder
	for i, s := range sources {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "--- %s ---\n", s.name)
		b.WriteString(s.text)
		if !strings.HasSuffix(s.text, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String(), true, nil
}

// Seed builds the opening messages of a session: the system prompt, then
// the context payload, each only when present.
func Seed(systemPrompt, payload string) []transcript.Message {
	var msgs []transcript.Message
	if strings.TrimSpace(systemPrompt) != "" {
		msgs = append(msgs, transcript.Message{Role: transcript.System, Content: systemPrompt})
	}
	if payload != "" {
		msgs = append(msgs, transcript.Message{Role: transcript.System, Content: payload})
	}
	for i := range msgs {
		msgs[i].Seq = i
	}
	return msgs
}
