package assemble

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/ait/internal/transcript"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestSingleFileIsVerbatim(t *testing.T) {
	p := writeFile(t, t.TempDir(), "notes.md", "some notes\n")

	payload, ok, err := Assemble(Options{Paths: []string{p}})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "some notes\n", payload)
}

func TestMultipleSourcesAreDelimited(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "alpha")
	b := writeFile(t, dir, "b.txt", "beta\n")

	payload, ok, err := Assemble(Options{
		Paths:  []string{a, b},
		Reader: strings.NewReader("piped"),
	})
	require.NoError(t, err)
	assert.True(t, ok)
	want := "--- " + a + " ---\nalpha\n\n--- " + b + " ---\nbeta\n\n--- <stdin> ---\npiped\n"
	assert.Equal(t, want, payload)
}

func TestStdinIgnoredWhenTerminalOrNever(t *testing.T) {
	_, ok, err := Assemble(Options{Reader: strings.NewReader("x"), IsTerminal: true})
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = Assemble(Options{Reader: strings.NewReader("x"), Stdin: StdinNever})
	require.NoError(t, err)
	assert.False(t, ok)

	payload, ok, err := Assemble(Options{Reader: strings.NewReader("x"), Stdin: StdinAlways})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "x", payload)
}

func TestNoSources(t *testing.T) {
	payload, ok, err := Assemble(Options{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, payload)

	_, ok, err = Assemble(Options{Reader: strings.NewReader("  \n")})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMissingFileFails(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.txt")
	_, _, err := Assemble(Options{Paths: []string{missing}})

	var cre *ContextReadError
	require.True(t, errors.As(err, &cre))
	assert.Equal(t, missing, cre.Path)
}

func TestBinaryFileFails(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.txt", "ok")
	bad := writeFile(t, dir, "bad.bin", "\xff\xfe\x00garbage")

	payload, _, err := Assemble(Options{Paths: []string{good, bad}})
	var cre *ContextReadError
	require.True(t, errors.As(err, &cre))
	assert.Equal(t, bad, cre.Path)
	assert.Empty(t, payload, "no partial context")
}

func TestStdinOverLimitFails(t *testing.T) {
	_, _, err := Assemble(Options{Reader: strings.NewReader(strings.Repeat("a", 11)), MaxBytes: 10})
	var cre *ContextReadError
	require.True(t, errors.As(err, &cre))
	assert.Equal(t, StdinName, cre.Path)

	payload, ok, err := Assemble(Options{Reader: strings.NewReader(strings.Repeat("a", 10)), MaxBytes: 10})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, payload, 10)
}

func TestDirectoryExpansion(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.go", "package one")
	writeFile(t, dir, "two.go", "package two")

	payload, ok, err := Assemble(Options{Paths: []string{dir}})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, payload, "--- "+filepath.Join(dir, "one.go")+" ---\npackage one\n")
	assert.Contains(t, payload, "--- "+filepath.Join(dir, "two.go")+" ---\npackage two\n")
}

func TestSeed(t *testing.T) {
	msgs := Seed("be brief", "ctx")
	require.Len(t, msgs, 2)
	assert.Equal(t, transcript.Message{Role: transcript.System, Content: "be brief", Seq: 0}, msgs[0])
	assert.Equal(t, transcript.Message{Role: transcript.System, Content: "ctx", Seq: 1}, msgs[1])

	msgs = Seed("", "ctx")
	require.Len(t, msgs, 1)
	assert.Equal(t, 0, msgs[0].Seq)

	assert.Empty(t, Seed(" ", ""))
}

func TestParseStdinMode(t *testing.T) {
	m, err := ParseStdinMode("never")
	require.NoError(t, err)
	assert.Equal(t, StdinNever, m)

	_, err = ParseStdinMode("sometimes")
	assert.Error(t, err)
}
