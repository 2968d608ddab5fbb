package logging

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var linePattern = regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] `)

func TestLogger_WritesTimestampedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.log")
	var console bytes.Buffer

	logger, err := New(path, &console)
	require.NoError(t, err)

	logger.Printf("  %s: OK", "alice")
	logger.Errorf("  %s: Error: %s", "bob", "boom")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Regexp(t, linePattern, line)
	}
	assert.True(t, strings.HasSuffix(lines[0], "  alice: OK"))
	assert.True(t, strings.HasSuffix(lines[1], "  bob: Error: boom"))

	assert.Equal(t, string(data), console.String(), "console and file should receive the same lines")
}

func TestLogger_FileMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "daemon.log")

	logger, err := New(path, &bytes.Buffer{})
	require.NoError(t, err)
	defer logger.Close()

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	assert.Equal(t, path, logger.LogPath())
}

func TestLogger_FallbackWhenFileUnavailable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	var console bytes.Buffer
	logger, err := New(filepath.Join(blocker, "daemon.log"), &console)
	require.Error(t, err)
	require.NotNil(t, logger)

	logger.Printf("still logging")
	assert.Contains(t, console.String(), "Failed to initialize file logging")
	assert.Contains(t, console.String(), "still logging")
	assert.Empty(t, logger.LogPath())
}

func TestLogger_TruncateIfLarger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.log")

	var seed strings.Builder
	for i := 0; i < 3000; i++ {
		fmt.Fprintf(&seed, "[2026-01-01 00:00:00] line %04d %s\n", i, strings.Repeat("x", 400))
	}
	require.NoError(t, os.WriteFile(path, []byte(seed.String()), 0600))

	logger, err := New(path, &bytes.Buffer{})
	require.NoError(t, err)

	truncated, err := logger.TruncateIfLarger(1024*1024, 500)
	require.NoError(t, err)
	assert.True(t, truncated)
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")

	require.Len(t, lines, 501, "last 500 lines plus the notice")
	assert.Contains(t, lines[0], "line 2500 ")
	assert.Contains(t, lines[499], "line 2999 ")
	assert.True(t, strings.HasSuffix(lines[500], "Log truncated to last 500 lines"))
}

func TestLogger_TruncateIfLarger_SmallFileUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.log")

	logger, err := New(path, &bytes.Buffer{})
	require.NoError(t, err)
	logger.Printf("hello")

	truncated, err := logger.TruncateIfLarger(1024*1024, 500)
	require.NoError(t, err)
	assert.False(t, truncated)
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "\n"))
}

func TestLogger_ConsoleOnlyNeverTruncates(t *testing.T) {
	logger, err := New("", &bytes.Buffer{})
	require.NoError(t, err)

	truncated, err := logger.TruncateIfLarger(0, 1)
	require.NoError(t, err)
	assert.False(t, truncated)
}

func TestLastLines(t *testing.T) {
	assert.Equal(t, "", lastLines("", 5))
	assert.Equal(t, "a\nb\n", lastLines("a\nb\n", 5))
	assert.Equal(t, "c\nd\n", lastLines("a\nb\nc\nd", 2))
}

func TestRunIDIsStable(t *testing.T) {
	logger := Nop()
	assert.NotEmpty(t, logger.RunID())
	assert.Equal(t, logger.RunID(), logger.RunID())
}
