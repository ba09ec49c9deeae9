// Package clean implements "ralph clean", removing loop artifacts.
package clean

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ralph-loop/ralph/internal/cmdutil"
	"github.com/ralph-loop/ralph/internal/loopctx"
)

type options struct {
	diagnostics bool
	dryRun      bool
}

// NewCmdClean creates the clean command.
func NewCmdClean(f *cmdutil.Factory) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete the agent state directory (or diagnostics)",
		Args:  cmdutil.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := loopctx.Primary(f.WorkDir)
			target := ctx.AgentDir()
			if opts.diagnostics {
				target = ctx.DiagnosticsDir()
			}

			info, err := os.Stat(target)
			if os.IsNotExist(err) {
				fmt.Fprintf(f.IOStreams.ErrOut, "nothing to clean: %s\n", target)
				return nil
			}
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", target)
			}

			if opts.dryRun {
				fmt.Fprintf(f.IOStreams.Out, "would remove %s:\n", target)
				return filepath.WalkDir(target, func(path string, d os.DirEntry, err error) error {
					if err != nil {
						return err
					}
					if !d.IsDir() {
						fmt.Fprintf(f.IOStreams.Out, "  %s\n", path)
					}
					return nil
				})
			}

			if err := os.RemoveAll(target); err != nil {
				return fmt.Errorf("removing %s: %w", target, err)
			}
			fmt.Fprintf(f.IOStreams.ErrOut, "removed %s\n", target)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.diagnostics, "diagnostics", false, "Remove the diagnostics directory instead")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "List what would be removed without removing it")

	return cmd
}
