package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/ait/internal/config"
)

func parseChatFlags(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	var f chatFlags
	cmd := &cobra.Command{Use: "ait"}
	f.register(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	cfg := config.Defaults(t.TempDir())
	return cfg, f.apply(cmd, cfg)
}

func TestChatFlagsOverrideConfig(t *testing.T) {
	cfg, err := parseChatFlags(t, "-p", "ollama", "-m", "llama3", "-t", "0.7", "-s", "be brief")
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.Provider)
	assert.Equal(t, "llama3", cfg.Model)
	assert.InDelta(t, 0.7, cfg.Temperature, 1e-6)
	assert.Equal(t, "be brief", cfg.SystemPrompt)
}

func TestChatFlagsUnsetKeepConfig(t *testing.T) {
	cfg, err := parseChatFlags(t)
	require.NoError(t, err)
	def := config.Defaults(t.TempDir())
	assert.Equal(t, def.Provider, cfg.Provider)
	assert.Equal(t, def.Model, cfg.Model)
	assert.Equal(t, def.SystemPrompt, cfg.SystemPrompt)
}

func TestChatFlagsEmptySystemPromptIsAllowed(t *testing.T) {
	cfg, err := parseChatFlags(t, "--system", "")
	require.NoError(t, err)
	assert.Empty(t, cfg.SystemPrompt)
}

func TestChatFlagsValidated(t *testing.T) {
	_, err := parseChatFlags(t, "-t", "3")
	assert.Error(t, err)

	_, err = parseChatFlags(t, "-p", "bard")
	assert.Error(t, err)
}

func TestColorizeSnippet(t *testing.T) {
	got := colorizeSnippet("a >>>hit<<< b")
	assert.Equal(t, "a "+sColorBoldRed+"hit"+sColorReset+" b", got)
}

func TestTSVField(t *testing.T) {
	assert.Equal(t, "a b c", tsvField("a\tb\nc"))
}
