package ralph

import (
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/ralph-loop/ralph/internal/config"
	"github.com/ralph-loop/ralph/internal/loop"
	"github.com/ralph-loop/ralph/internal/loopctx"
)

// writeSummary renders the termination summary and handoff files under
// the loop's agent directory.
func writeSummary(ctx loopctx.Context, state loop.State, reason loop.TerminationReason, startedAt, endedAt time.Time) error {
	if err := ctx.EnsureDirs(); err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("# Loop Summary\n\n")
	fmt.Fprintf(&b, "- Terminated: %s\n", reason)
	fmt.Fprintf(&b, "- Iterations: %d\n", state.Iteration)
	fmt.Fprintf(&b, "- Started: %s\n", startedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Ended: %s\n", endedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Duration: %s\n", endedAt.Sub(startedAt).Round(time.Second))
	fmt.Fprintf(&b, "- Exit code: %d\n", reason.ExitCode())
	if state.CumulativeCost > 0 {
		fmt.Fprintf(&b, "- Cost: $%.4f\n", state.CumulativeCost)
	}
	if commit := lastCommitInfo(ctx.Workspace); commit != "" {
		fmt.Fprintf(&b, "- Final commit: %s\n", commit)
	}
	if len(state.AbandonedTasks) > 0 {
		b.WriteString("\n## Abandoned tasks\n\n")
		for _, task := range state.AbandonedTasks {
			fmt.Fprintf(&b, "- %s\n", task)
		}
	}

	if err := config.WriteFileAtomic(ctx.SummaryFile(), []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return writeHandoff(ctx, state, reason)
}

// writeHandoff gives the next session a ready-to-paste starting point.
func writeHandoff(ctx loopctx.Context, state loop.State, reason loop.TerminationReason) error {
	var b strings.Builder
	b.WriteString("# Handoff\n\n")
	switch reason {
	case loop.CompletionPromise:
		b.WriteString("The previous loop completed its objective.\n")
	case loop.Interrupted:
		b.WriteString("The previous loop was interrupted mid-run. Resume with `ralph run --continue`.\n")
	default:
		fmt.Fprintf(&b, "The previous loop stopped early (%s) after %d iteration(s). Review the scratchpad and events before resuming.\n", reason, state.Iteration)
	}
	if len(state.AbandonedTasks) > 0 {
		b.WriteString("\nAbandoned tasks that still need attention:\n")
		for _, task := range state.AbandonedTasks {
			fmt.Fprintf(&b, "- %s\n", task)
		}
	}
	if err := config.WriteFileAtomic(ctx.HandoffFile(), []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing handoff: %w", err)
	}
	return nil
}

// lastCommitInfo returns "sha subject" for the workspace's HEAD, or ""
// outside a repository.
func lastCommitInfo(workspace string) string {
	cmd := exec.Command("git", "log", "-1", "--format=%h %s")
	cmd.Dir = workspace
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
