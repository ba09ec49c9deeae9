// Package root assembles the ralph command tree.
package root

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ralph-loop/ralph/internal/cmd/clean"
	"github.com/ralph-loop/ralph/internal/cmd/emit"
	"github.com/ralph-loop/ralph/internal/cmd/events"
	"github.com/ralph-loop/ralph/internal/cmd/hats"
	"github.com/ralph-loop/ralph/internal/cmd/initcmd"
	"github.com/ralph-loop/ralph/internal/cmd/loops"
	"github.com/ralph-loop/ralph/internal/cmd/oneshot"
	"github.com/ralph-loop/ralph/internal/cmd/run"
	"github.com/ralph-loop/ralph/internal/cmd/tools"
	"github.com/ralph-loop/ralph/internal/cmdutil"
	"github.com/ralph-loop/ralph/internal/config"
	"github.com/ralph-loop/ralph/internal/logger"
)

// NewCmdRoot creates the root command for the ralph CLI.
func NewCmdRoot(f *cmdutil.Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ralph",
		Short: "Drive AI coding CLIs in a bounded, event-driven loop",
		Long: `Ralph supervises an agent CLI (Claude, Gemini, Codex, and friends)
through a bounded iteration loop: it composes a prompt, runs the agent,
routes the events the agent publishes, and stops when the completion
promise appears or a safeguard fires.

Quick start:
  ralph init             # Scaffold ralph.yml in the current directory
  ralph run -p "..."     # Start a loop with an inline objective
  ralph events --last 20 # Inspect what the loop routed`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			initializeLogger()

			if f.WorkDir == "" {
				var err error
				f.WorkDir, err = os.Getwd()
				if err != nil {
					return fmt.Errorf("failed to get working directory: %w", err)
				}
			}

			logger.Debug().
				Str("version", f.Version).
				Str("workdir", f.WorkDir).
				Bool("debug", f.Debug).
				Msg("ralph starting")
			return nil
		},
		Version: f.Version,
	}

	// Accept the hyphenated spellings users reach for first.
	cmd.PersistentFlags().SetNormalizeFunc(func(fs *pflag.FlagSet, name string) pflag.NormalizedName {
		switch name {
		case "work-dir":
			name = "workdir"
		case "config-file":
			name = "config"
		}
		return pflag.NormalizedName(name)
	})

	cmd.PersistentFlags().BoolVarP(&f.Debug, "debug", "D", false, "Enable debug logging")
	cmd.PersistentFlags().StringVarP(&f.WorkDir, "workdir", "w", "", "Working directory (default: current directory)")
	cmd.PersistentFlags().StringVarP(&f.ConfigFile, "config", "c", "", "Config file path (default: ralph.yml in the working directory)")

	cmd.SetVersionTemplate(fmt.Sprintf("ralph %s (commit: %s)\n", f.Version, f.Commit))

	cmd.AddCommand(run.NewCmdRun(f))
	cmd.AddCommand(events.NewCmdEvents(f))
	cmd.AddCommand(initcmd.NewCmdInit(f))
	cmd.AddCommand(clean.NewCmdClean(f))
	cmd.AddCommand(emit.NewCmdEmit(f))
	cmd.AddCommand(oneshot.NewCmdPlan(f))
	cmd.AddCommand(oneshot.NewCmdTask(f))
	cmd.AddCommand(oneshot.NewCmdCodeTask(f))
	cmd.AddCommand(tools.NewCmdTools(f))
	cmd.AddCommand(loops.NewCmdLoops(f))
	cmd.AddCommand(hats.NewCmdHats(f))

	return cmd
}

// initializeLogger sets up file logging under $RALPH_HOME/logs, falling
// back to a nop logger when the home directory is unavailable (the
// loop still runs; it just doesn't leave a log file behind).
func initializeLogger() {
	home, err := config.Home()
	if err != nil {
		logger.Init()
		return
	}
	if err := logger.NewLogger(&logger.Options{
		LogsDir:    filepath.Join(home, "logs"),
		FileConfig: &logger.LoggingConfig{},
	}); err != nil {
		logger.Init()
	}
}
