// Package loopctx resolves every on-disk path one loop uses. A primary
// loop's workspace is the repo root itself; a worktree loop's workspace
// is an isolated directory under .worktrees/<loop_id>, sharing
// memories, specs, and code tasks with the repo root via symlinks.
package loopctx

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ralph-loop/ralph/internal/config"
)

// Context identifies one loop and derives its state-file paths.
// Per-loop state (events, tasks, scratchpad) lives under the loop's
// own workspace; cross-loop state (lock, merge queue, registry) always
// lives under the repo root.
type Context struct {
	// LoopID is empty for the primary loop.
	LoopID string

	// Workspace is where the loop executes: the repo root for a
	// primary loop, the worktree directory otherwise.
	Workspace string

	// RepoRoot is the main repository root, used to locate shared
	// resources and as the symlink target for worktree loops.
	RepoRoot string

	// IsPrimary reports whether this loop holds (or would hold) the
	// loop lock.
	IsPrimary bool
}

// Primary returns the context for a loop running directly in the
// repository root.
func Primary(repoRoot string) Context {
	return Context{Workspace: repoRoot, RepoRoot: repoRoot, IsPrimary: true}
}

// Worktree returns the context for a parallel loop running in an
// isolated worktree.
func Worktree(loopID, worktreePath, repoRoot string) Context {
	return Context{LoopID: loopID, Workspace: worktreePath, RepoRoot: repoRoot}
}

// StateDir is <workspace>/.ralph, the root of all loop-local state.
func (c Context) StateDir() string {
	return filepath.Join(c.Workspace, config.StateDirName)
}

// AgentDir is <workspace>/.ralph/agent: memories, tasks, scratchpad,
// summary, and handoff files.
func (c Context) AgentDir() string {
	return filepath.Join(c.StateDir(), config.AgentSubdir)
}

// CurrentEventsMarker is the file holding the relative path of the
// active events file, written once at startup and read by peer CLIs
// (emit, events) so every process in a run targets the same file.
func (c Context) CurrentEventsMarker() string {
	return filepath.Join(c.StateDir(), "current-events")
}

// DefaultEventsFile is the events path used when no marker exists.
func (c Context) DefaultEventsFile() string {
	return filepath.Join(c.StateDir(), "events.jsonl")
}

// TasksFile is the loop-local runtime task store.
func (c Context) TasksFile() string {
	return filepath.Join(c.AgentDir(), "tasks.jsonl")
}

// Scratchpad is the loop-local scratchpad markdown file.
func (c Context) Scratchpad() string {
	return filepath.Join(c.AgentDir(), "scratchpad.md")
}

// MemoriesFile is the memories markdown file. In a worktree this is a
// symlink to MainMemoriesFile so concurrent loops share memory writes.
func (c Context) MemoriesFile() string {
	return filepath.Join(c.AgentDir(), "memories.md")
}

// MainMemoriesFile is the repo root's memories file, the symlink
// target for worktree loops.
func (c Context) MainMemoriesFile() string {
	return filepath.Join(c.RepoRoot, config.StateDirName, config.AgentSubdir, "memories.md")
}

// ContextFile describes a worktree loop (id, branch, workspace) for
// the agent's own orientation; only written in worktree loops.
func (c Context) ContextFile() string {
	return filepath.Join(c.AgentDir(), "context.md")
}

// SpecsDir is the loop-local specs directory, symlinked from the repo
// root in worktrees so untracked spec files stay visible.
func (c Context) SpecsDir() string {
	return filepath.Join(c.StateDir(), "specs")
}

// CodeTasksDir is the loop-local code-task directory, symlinked from
// the repo root in worktrees. Distinct from TasksFile, which tracks
// runtime task state.
func (c Context) CodeTasksDir() string {
	return filepath.Join(c.StateDir(), "tasks")
}

// MainSpecsDir is the repo root's specs directory.
func (c Context) MainSpecsDir() string {
	return filepath.Join(c.RepoRoot, config.StateDirName, "specs")
}

// MainCodeTasksDir is the repo root's code-task directory.
func (c Context) MainCodeTasksDir() string {
	return filepath.Join(c.RepoRoot, config.StateDirName, "tasks")
}

// SummaryFile is written on termination under the agent dir.
func (c Context) SummaryFile() string {
	return filepath.Join(c.AgentDir(), "summary.md")
}

// HandoffFile carries context for the next session, written alongside
// the summary.
func (c Context) HandoffFile() string {
	return filepath.Join(c.AgentDir(), "handoff.md")
}

// DiagnosticsDir holds per-loop diagnostics output.
func (c Context) DiagnosticsDir() string {
	return filepath.Join(c.StateDir(), "diagnostics")
}

// LockPath is the primary-loop lock, always under the repo root: only
// one primary loop may exist per repository regardless of how many
// worktree loops run beside it.
func (c Context) LockPath() string {
	return filepath.Join(c.RepoRoot, config.StateDirName, "loop.lock")
}

// MergeQueuePath is the shared merge-queue log under the repo root.
func (c Context) MergeQueuePath() string {
	return filepath.Join(c.RepoRoot, config.StateDirName, "merge-queue.jsonl")
}

// RegistryPath is the shared loop-registry file under the repo root.
func (c Context) RegistryPath() string {
	return filepath.Join(c.RepoRoot, config.StateDirName, "loops.json")
}

// EnsureDirs creates the state and agent directories.
func (c Context) EnsureDirs() error {
	if err := os.MkdirAll(c.StateDir(), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	if err := os.MkdirAll(c.AgentDir(), 0o755); err != nil {
		return fmt.Errorf("creating agent directory: %w", err)
	}
	return nil
}

// WriteEventsMarker generates a timestamped events file path for a
// fresh run, writes it to the current-events marker, and returns the
// absolute path. Stale events from a previous run can never pollute a
// new one because each run gets its own file.
func (c Context) WriteEventsMarker(now time.Time) (string, error) {
	if err := c.EnsureDirs(); err != nil {
		return "", err
	}
	rel := filepath.Join(config.StateDirName, fmt.Sprintf("events-%s.jsonl", now.Format("20060102-150405")))
	if err := config.WriteFileAtomic(c.CurrentEventsMarker(), []byte(rel+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("writing current-events marker: %w", err)
	}
	return filepath.Join(c.Workspace, rel), nil
}

// ResolveEventsFile returns the active events file: the marker's
// contents when present, the default path otherwise. Relative marker
// paths resolve against the workspace.
func (c Context) ResolveEventsFile() string {
	data, err := os.ReadFile(c.CurrentEventsMarker())
	if err != nil {
		return c.DefaultEventsFile()
	}
	rel := strings.TrimSpace(string(data))
	if rel == "" {
		return c.DefaultEventsFile()
	}
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(c.Workspace, rel)
}

// SetupSymlinks creates the memories, specs, and code-tasks symlinks
// pointing back at the repo root. A no-op for primary loops and for
// links that already exist.
func (c Context) SetupSymlinks() error {
	if c.IsPrimary {
		return nil
	}
	if err := c.EnsureDirs(); err != nil {
		return err
	}
	links := []struct{ target, link string }{
		{c.MainMemoriesFile(), c.MemoriesFile()},
		{c.MainSpecsDir(), c.SpecsDir()},
		{c.MainCodeTasksDir(), c.CodeTasksDir()},
	}
	for _, l := range links {
		if _, err := os.Lstat(l.link); err == nil {
			continue
		}
		if err := os.Symlink(l.target, l.link); err != nil {
			return fmt.Errorf("linking %s: %w", l.link, err)
		}
	}
	return nil
}

// WriteContextFile describes a worktree loop for the agent running
// inside it. A no-op for primary loops.
func (c Context) WriteContextFile(branch string) error {
	if c.IsPrimary {
		return nil
	}
	if err := c.EnsureDirs(); err != nil {
		return err
	}
	var b strings.Builder
	b.WriteString("# Loop Context\n\n")
	fmt.Fprintf(&b, "- Loop ID: %s\n", c.LoopID)
	fmt.Fprintf(&b, "- Branch: %s\n", branch)
	fmt.Fprintf(&b, "- Workspace: %s\n", c.Workspace)
	fmt.Fprintf(&b, "- Repo root: %s\n\n", c.RepoRoot)
	b.WriteString("This loop runs in an isolated git worktree. Commit to the branch above; merging back to main happens through the merge queue after the loop completes.\n")
	return config.WriteFileAtomic(c.ContextFile(), []byte(b.String()), 0o644)
}
