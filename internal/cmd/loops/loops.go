// Package loops implements "ralph loops", the parallel-loop and
// merge-queue management group.
package loops

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ralph-loop/ralph/internal/cmdutil"
	"github.com/ralph-loop/ralph/internal/looplock"
	"github.com/ralph-loop/ralph/internal/mergequeue"
	"github.com/ralph-loop/ralph/internal/worktree"
)

// NewCmdLoops creates the loops command group.
func NewCmdLoops(f *cmdutil.Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loops",
		Short: "Manage parallel loops and the merge queue",
	}
	cmd.AddCommand(newCmdList(f))
	cmd.AddCommand(newCmdQueue(f))
	cmd.AddCommand(newCmdMerge(f))
	cmd.AddCommand(newCmdDiscard(f))
	return cmd
}

func newCmdList(f *cmdutil.Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List ralph worktree loops and the primary lock holder",
		Args:  cmdutil.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cs := f.IOStreams.ColorScheme()
			out := f.IOStreams.Out

			if rec, err := looplock.ReadExisting(f.WorkDir); err == nil {
				fmt.Fprintf(out, "primary: pid %d since %s — %s\n",
					rec.PID, rec.StartedAt.Format(time.RFC3339), cs.Muted(rec.PromptSummary))
			} else {
				fmt.Fprintln(out, "primary: none")
			}

			mgr, err := worktree.Open(f.WorkDir)
			if err != nil {
				return err
			}
			worktrees, err := mgr.ListRalphWorktrees()
			if err != nil {
				return err
			}
			if len(worktrees) == 0 {
				fmt.Fprintln(out, "no worktree loops")
				return nil
			}

			queue := mergequeue.New(mgr.RepoRoot())
			for _, wt := range worktrees {
				state := "running"
				if entry, ok, err := queue.Get(wt.LoopID); err == nil && ok {
					state = string(entry.State)
				}
				fmt.Fprintf(out, "%-36s %-14s %s\n", cs.Bold(wt.LoopID), state, cs.Muted(wt.Path))
			}
			return nil
		},
	}
}

func newCmdQueue(f *cmdutil.Factory) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Show the merge queue, oldest first",
		Args:  cmdutil.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmtSpec, err := cmdutil.ParseFormat(format)
			if err != nil {
				return err
			}
			entries, err := mergequeue.New(f.WorkDir).List()
			if err != nil {
				return err
			}
			if fmtSpec.IsJSON() {
				return cmdutil.OutputJSON(f.IOStreams, entries)
			}
			if fmtSpec.IsTemplate() {
				items := make([]any, len(entries))
				for i, e := range entries {
					items[i] = e
				}
				return cmdutil.ExecuteTemplate(f.IOStreams.Out, fmtSpec, items)
			}
			if len(entries) == 0 {
				fmt.Fprintln(f.IOStreams.Out, "merge queue is empty")
				return nil
			}
			cs := f.IOStreams.ColorScheme()
			for _, e := range entries {
				fmt.Fprintf(f.IOStreams.Out, "%-36s %-14s queued %s  %s\n",
					cs.Bold(e.LoopID), string(e.State),
					e.QueuedAt.Format("2006-01-02 15:04"), cs.Muted(e.Prompt))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", `Output format: "table", "json", or a Go template`)
	return cmd
}

func newCmdMerge(f *cmdutil.Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "merge LOOP_ID",
		Short: "Merge a queued loop's branch into the current branch",
		Args:  cmdutil.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loopID := args[0]
			queue := mergequeue.New(f.WorkDir)

			button, err := mergequeue.MergeButtonState(f.WorkDir, loopID)
			if err != nil {
				return err
			}
			if !button.Active {
				return fmt.Errorf("loop %s is not mergeable: %s", loopID, button.Reason)
			}

			steering, err := mergequeue.NeedsSteering(f.WorkDir, loopID)
			if err != nil {
				return err
			}
			if steering.NeedsInput {
				cmdutil.PrintWarning(f.IOStreams, "merge of %s has conflicts: %s", loopID, steering.Reason)
				if err := queue.MarkNeedsReview(loopID, steering.Reason); err != nil {
					return err
				}
				return &cmdutil.ExitError{Code: 1}
			}

			if err := queue.MarkMerging(loopID, os.Getpid()); err != nil {
				return err
			}
			commit, err := mergeBranch(f.WorkDir, loopID)
			if err != nil {
				reason := err.Error()
				if markErr := queue.MarkNeedsReview(loopID, reason); markErr != nil {
					return markErr
				}
				return fmt.Errorf("merge failed, queued for review: %w", err)
			}
			if err := queue.MarkMerged(loopID, commit); err != nil {
				return err
			}

			if mgr, err := worktree.Open(f.WorkDir); err == nil {
				if err := mgr.RemoveWorktree(loopID); err != nil {
					cmdutil.PrintWarning(f.IOStreams, "merged, but could not remove worktree: %v", err)
				}
			}

			cs := f.IOStreams.ColorScheme()
			fmt.Fprintf(f.IOStreams.ErrOut, "%s merged %s at %s\n", cs.SuccessIcon(), loopID, commit)
			return nil
		},
	}
}

// mergeBranch runs the actual merge commit and returns its sha.
func mergeBranch(repoRoot, loopID string) (string, error) {
	branch := worktree.BranchPrefix + loopID

	summary, err := mergequeue.SmartMergeSummary(repoRoot, loopID)
	if err != nil || summary == "" {
		summary = "merge parallel loop work"
	}
	message := fmt.Sprintf("merge(ralph): %s (loop %s)", summary, loopID)

	if out, err := gitRun(repoRoot, "merge", "--no-ff", "-m", message, branch); err != nil {
		// Leave the tree clean for the review pass.
		_, _ = gitRun(repoRoot, "merge", "--abort")
		return "", fmt.Errorf("git merge: %s", out)
	}
	sha, err := gitRun(repoRoot, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolving merge commit: %w", err)
	}
	return sha, nil
}

func gitRun(repoRoot string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = repoRoot
	out, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

func newCmdDiscard(f *cmdutil.Factory) *cobra.Command {
	var reason string
	var keepWorktree bool

	cmd := &cobra.Command{
		Use:   "discard LOOP_ID",
		Short: "Discard a queued loop without merging it",
		Args:  cmdutil.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loopID := args[0]
			if err := mergequeue.New(f.WorkDir).Discard(loopID, reason); err != nil {
				return err
			}
			if !keepWorktree {
				if mgr, err := worktree.Open(f.WorkDir); err == nil {
					if err := mgr.RemoveWorktree(loopID); err != nil {
						cmdutil.PrintWarning(f.IOStreams, "discarded, but could not remove worktree: %v", err)
					}
				}
			}
			fmt.Fprintf(f.IOStreams.ErrOut, "discarded %s\n", loopID)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Why the loop is being discarded")
	cmd.Flags().BoolVar(&keepWorktree, "keep-worktree", false, "Leave the worktree and branch in place")
	return cmd
}
