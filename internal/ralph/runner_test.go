package ralph

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ralph-loop/ralph/internal/bus"
	"github.com/ralph-loop/ralph/internal/config"
	"github.com/ralph-loop/ralph/internal/eventlog"
	"github.com/ralph-loop/ralph/internal/hat"
	"github.com/ralph-loop/ralph/internal/iostreams/iostreamstest"
	"github.com/ralph-loop/ralph/internal/loop"
	"github.com/ralph-loop/ralph/internal/loopctx"
	"github.com/ralph-loop/ralph/internal/stream"
)

func newTestRunner(t *testing.T, cfg *config.Config, opts Options) *Runner {
	t.Helper()
	registry, err := hat.New(nil)
	require.NoError(t, err)
	tio := iostreamstest.New()
	return New(cfg, registry, tio.IOStreams, t.TempDir(), opts)
}

func TestResolvePromptPrecedence(t *testing.T) {
	dir := t.TempDir()
	promptFile := filepath.Join(dir, "objective.md")
	require.NoError(t, os.WriteFile(promptFile, []byte("from file\n"), 0o644))

	cfg := &config.Config{}
	cfg.EventLoop.Prompt = "from config"

	// Inline text wins over everything.
	r := newTestRunner(t, cfg, Options{Prompt: "inline", PromptFile: promptFile})
	got, err := r.resolvePrompt()
	require.NoError(t, err)
	assert.Equal(t, "inline", got)

	// CLI file beats config.
	r = newTestRunner(t, cfg, Options{PromptFile: promptFile})
	got, err = r.resolvePrompt()
	require.NoError(t, err)
	assert.Equal(t, "from file", got)

	// Config inline beats config file.
	r = newTestRunner(t, cfg, Options{})
	got, err = r.resolvePrompt()
	require.NoError(t, err)
	assert.Equal(t, "from config", got)
}

func TestResolvePromptConfigFileAndDefault(t *testing.T) {
	cfg := &config.Config{}
	cfg.EventLoop.PromptFile = "TASK.md"

	r := newTestRunner(t, cfg, Options{})
	require.NoError(t, os.WriteFile(filepath.Join(r.ctx.Workspace, "TASK.md"), []byte("task prompt"), 0o644))
	got, err := r.resolvePrompt()
	require.NoError(t, err)
	assert.Equal(t, "task prompt", got)

	// With no sources at all, the default file is required.
	r = newTestRunner(t, &config.Config{}, Options{})
	_, err = r.resolvePrompt()
	require.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(r.ctx.Workspace, DefaultPromptFile), []byte("default prompt"), 0o644))
	got, err = r.resolvePrompt()
	require.NoError(t, err)
	assert.Equal(t, "default prompt", got)
}

func TestPromptSummary(t *testing.T) {
	assert.Equal(t, "short", promptSummary("short"))
	assert.Equal(t, "first line", promptSummary("first line\nsecond line"))

	long := strings.Repeat("x", 120)
	got := promptSummary(long)
	assert.Len(t, got, 80)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestWriteSummaryAndHandoff(t *testing.T) {
	ctx := loopctx.Primary(t.TempDir())
	state := loop.State{Iteration: 7, AbandonedTasks: []string{"Fix bug"}}
	start := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(42 * time.Minute)

	require.NoError(t, writeSummary(ctx, state, loop.MaxIterations, start, end))

	summary, err := os.ReadFile(ctx.SummaryFile())
	require.NoError(t, err)
	assert.Contains(t, string(summary), "MaxIterations")
	assert.Contains(t, string(summary), "Iterations: 7")
	assert.Contains(t, string(summary), "Exit code: 2")
	assert.Contains(t, string(summary), "Fix bug")

	handoff, err := os.ReadFile(ctx.HandoffFile())
	require.NoError(t, err)
	assert.Contains(t, string(handoff), "stopped early")
	assert.Contains(t, string(handoff), "Fix bug")
}

func TestCostTrackerAccrues(t *testing.T) {
	cfg := &config.Config{}
	registry, err := hat.New(nil)
	require.NoError(t, err)
	sched := loop.New(cfg, registry, bus.New(), eventlog.NewReader(filepath.Join(t.TempDir(), "events.jsonl")))

	tracker := &costTracker{Handler: stream.Quiet{}, sched: sched}
	tracker.OnComplete(stream.Summary{CostUSD: 0.25})
	tracker.OnComplete(stream.Summary{CostUSD: 0.50})

	assert.InDelta(t, 0.75, sched.State.CumulativeCost, 1e-9)
}

func TestHistoryLoopID(t *testing.T) {
	wt := loopctx.Worktree("ralph-x", "/w", "/r")
	assert.Equal(t, "ralph-x", historyLoopID(wt))
	assert.True(t, strings.HasPrefix(historyLoopID(loopctx.Primary("/r")), "primary-"))
}
