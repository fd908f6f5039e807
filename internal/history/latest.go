package history

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Zuo-Peng/ait/internal/transcript"
)

// FormatLog renders messages as the flat role-prefixed log. Streaming
// messages are left out; aborted replies are marked.
func FormatLog(msgs []transcript.Message) string {
	var b strings.Builder
	first := true
	for _, m := range msgs {
		if m.State == transcript.Streaming {
			continue
		}
		if !first {
			b.WriteString("\n")
		}
		first = false
		b.WriteString(m.Role.Label())
		b.WriteString(": ")
		b.WriteString(m.Content)
		if m.State == transcript.Aborted {
			b.WriteString(" [cancelled]")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// WriteLatestLog overwrites path with the flat log. Readers see either the
// previous file or the new one, never a partial write.
func WriteLatestLog(path string, msgs []transcript.Message) error {
	if path == "" {
		return nil
	}
	if err := atomicWriteFile(path, []byte(FormatLog(msgs)), 0o644); err != nil {
		return &PersistenceError{Op: "write latest log", Err: err}
	}
	return nil
}

func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	f, err := os.CreateTemp(dir, ".latest-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	ok := false
	defer func() {
		if !ok {
			f.Close()
			os.Remove(tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	ok = true
	return nil
}
