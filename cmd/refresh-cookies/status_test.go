package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/cc-hotswap/pkg/store"
)

func TestRenderStatus(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	statuses := map[string]store.AccountStatus{
		"bob": {
			LastAttempt: now.Add(-5 * time.Minute),
			LastSuccess: now.Add(-3 * time.Hour),
			Result:      "SessionExpired",
		},
		"alice": {
			LastAttempt: now.Add(-30 * time.Second),
			LastSuccess: now.Add(-30 * time.Second),
			Result:      "OK",
		},
	}

	out := renderStatus(statuses, now)

	assert.Contains(t, out, "Sessions")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "OK")
	assert.Contains(t, out, "attempted just now")
	assert.Contains(t, out, "SessionExpired")
	assert.Contains(t, out, "attempted 5m ago")
	assert.Contains(t, out, "last OK 3h ago")
	assert.Less(t, bytes.Index([]byte(out), []byte("alice")), bytes.Index([]byte(out), []byte("bob")))
}

func TestRenderStatus_Empty(t *testing.T) {
	assert.Contains(t, renderStatus(nil, time.Now()), "No refresh recorded yet")
}

func TestPrintStatus(t *testing.T) {
	now := time.Now()
	status := store.NewStatusFile(filepath.Join(t.TempDir(), "status.yaml"))
	require.NoError(t, status.Record("alice", now, true, "OK", "run-1"))

	var buf bytes.Buffer
	require.NoError(t, printStatus(&buf, status, now))
	assert.Contains(t, buf.String(), "alice")
}

func TestSince(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "never", since(now, time.Time{}))
	assert.Equal(t, "just now", since(now, now.Add(-10*time.Second)))
	assert.Equal(t, "42m ago", since(now, now.Add(-42*time.Minute)))
	assert.Equal(t, "47h ago", since(now, now.Add(-47*time.Hour)))
	assert.Equal(t, "3d ago", since(now, now.Add(-72*time.Hour)))
}

func TestRootCommandFlags(t *testing.T) {
	cmd := newRootCommand()

	for _, name := range []string{"init", "only", "status", "headed", "no-install"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}

	cmd.SetArgs([]string{"--init", "alice", "--status"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.Error(t, cmd.Execute(), "init and status are exclusive")
}

func TestRootCommandUsageOnArgs(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"bogus"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "refresh-cookies --init <name>")
}

func TestRootCommandRejectsEmptyInit(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--init", ""})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, store.ValidateAccount("").Error(), err.Error())
}
