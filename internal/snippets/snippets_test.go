package snippets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/ait/internal/transcript"
)

func TestExtract(t *testing.T) {
	msgs := []transcript.Message{
		{Role: transcript.User, Content: "```go\nnot a reply\n```", Seq: 0},
		{Role: transcript.Assistant, Seq: 1, Content: "Try:\n```go\nfmt.Println(1)\n```\nand\n~~~~sh {.x}\nls -l\n\necho\n~~~~\n"},
		{Role: transcript.Assistant, Seq: 2, Content: "no code here"},
		{Role: transcript.Assistant, Seq: 3, Content: "```\nplain\n```"},
	}

	got := Extract(msgs)
	require.Len(t, got, 3)
	assert.Equal(t, Snippet{Seq: 3, Language: "", Code: "plain"}, got[0])
	assert.Equal(t, Snippet{Seq: 1, Language: "go", Code: "fmt.Println(1)"}, got[1])
	assert.Equal(t, Snippet{Seq: 1, Language: "sh", Code: "ls -l\n\necho"}, got[2])
}

func TestExtractNestedFenceAndUnterminated(t *testing.T) {
	msgs := []transcript.Message{
		{Role: transcript.Assistant, Seq: 1, Content: "````md\n```go\nx\n```\n````\n```py\nprint(1)"},
	}
	got := Extract(msgs)
	require.Len(t, got, 2)
	assert.Equal(t, "```go\nx\n```", got[0].Code)
	assert.Equal(t, "md", got[0].Language)
	assert.Equal(t, "print(1)", got[1].Code)
}

func TestExtractSkipsStreaming(t *testing.T) {
	msgs := []transcript.Message{
		{Role: transcript.Assistant, Seq: 1, Content: "```\nx\n```", State: transcript.Streaming},
	}
	assert.Empty(t, Extract(msgs))
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "ls -l", Snippet{Code: "\n  ls -l\necho"}.Title())
	assert.Equal(t, "", Snippet{Code: "\n\n"}.Title())
}
