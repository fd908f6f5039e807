package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommand(t *testing.T) {
	tests := []struct {
		editor string
		line   int
		want   []string
	}{
		{"nvim", 12, []string{"nvim", "+12", "/tmp/f"}},
		{"vi", 0, []string{"vi", "+1", "/tmp/f"}},
		{"code", 3, []string{"code", "--wait", "--goto", "/tmp/f:3"}},
		{"less -R", 7, []string{"less", "-R", "+7", "/tmp/f"}},
		{"nano", 5, []string{"nano", "/tmp/f"}},
		{"", 2, []string{"vi", "+2", "/tmp/f"}},
	}
	for _, tt := range tests {
		t.Run(tt.editor, func(t *testing.T) {
			cmd := Command(tt.editor, "/tmp/f", tt.line)
			assert.Equal(t, tt.want, cmd.Args)
		})
	}
}

func TestName(t *testing.T) {
	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", "")
	assert.Equal(t, "less", Name("less"))

	t.Setenv("EDITOR", "nano")
	assert.Equal(t, "nano", Name("less"))

	t.Setenv("VISUAL", "code")
	assert.Equal(t, "code", Name("less"))
}
