package memory

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ralph-loop/ralph/internal/config"
)

func writeMemories(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memories.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadParsesEntries(t *testing.T) {
	path := writeMemories(t, `# Memories

## [insight] 2026-07-30
tags: build, ci
The build script must run from the repo root.

## [decision] 2026-07-25
We use the merge queue for every worktree loop, no direct merges.
`)

	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	memories, err := Load(path, now)
	require.NoError(t, err)
	require.Len(t, memories, 2)

	assert.Equal(t, "insight", memories[0].Type)
	assert.Equal(t, []string{"build", "ci"}, memories[0].Tags)
	assert.Equal(t, "The build script must run from the repo root.", memories[0].Content)
	assert.Equal(t, 2, memories[0].AgeDays)

	assert.Equal(t, "decision", memories[1].Type)
	assert.Empty(t, memories[1].Tags)
	assert.Equal(t, 7, memories[1].AgeDays)
}

func TestLoadMissingFile(t *testing.T) {
	memories, err := Load(filepath.Join(t.TempDir(), "absent.md"), time.Now())
	require.NoError(t, err)
	assert.Empty(t, memories)
}

func TestLoadSkipsEmptyEntries(t *testing.T) {
	path := writeMemories(t, "## [insight] 2026-07-30\n\n## [insight] 2026-07-31\nreal content\n")
	memories, err := Load(path, time.Now())
	require.NoError(t, err)
	require.Len(t, memories, 1)
	assert.Equal(t, "real content", memories[0].Content)
}

func TestFilterByTypeAndTag(t *testing.T) {
	path := writeMemories(t, `## [insight] 2026-07-30
tags: go
A

## [decision] 2026-07-30
tags: go
B

## [insight] 2026-07-30
tags: rust
C
`)
	memories, err := Load(path, time.Now())
	require.NoError(t, err)
	require.Len(t, memories, 3)

	byType := Filter(memories, config.MemoriesFilter{Types: []string{"insight"}})
	require.Len(t, byType, 2)

	byBoth := Filter(memories, config.MemoriesFilter{Types: []string{"insight"}, Tags: []string{"go"}})
	require.Len(t, byBoth, 1)
	assert.Equal(t, "A", byBoth[0].Content)

	unfiltered := Filter(memories, config.MemoriesFilter{})
	assert.Len(t, unfiltered, 3)
}
