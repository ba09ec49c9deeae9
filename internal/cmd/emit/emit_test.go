package emit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ralph-loop/ralph/internal/cmdutil"
	"github.com/ralph-loop/ralph/internal/eventlog"
	"github.com/ralph-loop/ralph/internal/iostreams/iostreamstest"
)

func testFactory(t *testing.T) *cmdutil.Factory {
	t.Helper()
	tio := iostreamstest.New()
	return &cmdutil.Factory{WorkDir: t.TempDir(), IOStreams: tio.IOStreams}
}

func TestEmitAppendsParseableEvent(t *testing.T) {
	f := testFactory(t)
	path := filepath.Join(f.WorkDir, "events.jsonl")

	cmd := NewCmdEmit(f)
	cmd.SetArgs([]string{"build.done", "tests: pass\nlint: pass\ntypecheck: pass", "--file", path})
	require.NoError(t, cmd.Execute())

	events, malformed, err := eventlog.NewReader(path).ReadNew()
	require.NoError(t, err)
	require.Empty(t, malformed)
	require.Len(t, events, 1)
	assert.Equal(t, "build.done", string(events[0].Topic))
	assert.Contains(t, events[0].Payload, "tests: pass")
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestEmitJSONPayload(t *testing.T) {
	f := testFactory(t)
	path := filepath.Join(f.WorkDir, "events.jsonl")

	cmd := NewCmdEmit(f)
	cmd.SetArgs([]string{"build.done", `{"tests":"pass"}`, "--json", "--file", path})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"payload":{"tests":"pass"}`)

	events, malformed, err := eventlog.NewReader(path).ReadNew()
	require.NoError(t, err)
	assert.Empty(t, malformed)
	require.Len(t, events, 1)
}

func TestEmitRejectsInvalidJSONPayload(t *testing.T) {
	f := testFactory(t)
	cmd := NewCmdEmit(f)
	cmd.SetArgs([]string{"build.done", "not json", "--json"})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	require.Error(t, cmd.Execute())
}

func TestEmitTimestampOverride(t *testing.T) {
	f := testFactory(t)
	path := filepath.Join(f.WorkDir, "events.jsonl")

	cmd := NewCmdEmit(f)
	cmd.SetArgs([]string{"x.y", "p", "--ts", "2026-08-01T12:00:00Z", "--file", path})
	require.NoError(t, cmd.Execute())

	events, _, err := eventlog.NewReader(path).ReadNew()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "2026-08-01T12:00:00Z", events[0].Timestamp.UTC().Format("2006-01-02T15:04:05Z"))
}
