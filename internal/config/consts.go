package config

// StateDirName is the directory under a loop's workspace that holds
// every on-disk artifact the loop creates: events, scratchpad, lock,
// merge queue, and agent summaries. See loopctx.Context.
const StateDirName = ".ralph"

// AgentSubdir holds termination summaries and handoff files, written
// under <workspace>/.ralph/agent/.
const AgentSubdir = "agent"

// WorktreesSubdir is the directory, relative to the repo root, that
// holds one subdirectory per parallel worktree loop.
const WorktreesSubdir = ".worktrees"
