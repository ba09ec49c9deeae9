// Package run implements "ralph run", the verb that starts a loop.
package run

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/ralph-loop/ralph/internal/cmdutil"
	"github.com/ralph-loop/ralph/internal/ralph"
)

type options struct {
	prompt        string
	promptFile    string
	backend       string
	continueRun   bool
	autonomous    bool
	noTUI         bool
	idleTimeout   int
	exclusive     bool
	noAutoMerge   bool
	recordSession string
	verbose       bool
	quiet         bool
}

// NewCmdRun creates the run command.
func NewCmdRun(f *cmdutil.Factory) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "run [-- BACKEND_ARGS...]",
		Short: "Start an orchestration loop",
		Long: `Run drives the configured agent CLI in a bounded, event-driven loop
until the completion promise appears in its output or a safeguard
fires.

Arguments after "--" are passed to the backend CLI verbatim.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.prompt != "" && opts.promptFile != "" {
				return cmdutil.FlagErrorf("-p and -P are mutually exclusive")
			}
			if opts.verbose && opts.quiet {
				return cmdutil.FlagErrorf("-v and -q are mutually exclusive")
			}

			cfg, err := f.Config()
			if err != nil {
				return err
			}
			registry, err := cfg.Validate()
			if err != nil {
				return err
			}

			runner := ralph.New(cfg, registry, f.IOStreams, f.WorkDir, ralph.Options{
				Prompt:        opts.prompt,
				PromptFile:    opts.promptFile,
				Backend:       opts.backend,
				ExtraArgs:     args,
				Continue:      opts.continueRun,
				Autonomous:    opts.autonomous || opts.noTUI,
				NoTUI:         opts.noTUI,
				IdleTimeout:   time.Duration(opts.idleTimeout) * time.Second,
				Exclusive:     opts.exclusive,
				NoAutoMerge:   opts.noAutoMerge,
				RecordSession: opts.recordSession,
				Verbose:       opts.verbose,
				Quiet:         opts.quiet,
			})

			reason, err := runner.Run(cmd.Context())
			if err != nil {
				return err
			}
			if code := reason.ExitCode(); code != 0 {
				return &cmdutil.ExitError{Code: code}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.prompt, "prompt", "p", "", "Inline prompt text")
	cmd.Flags().StringVarP(&opts.promptFile, "prompt-file", "P", "", "Prompt file path")
	cmd.Flags().StringVarP(&opts.backend, "backend", "b", "", "Backend CLI override (claude, kiro, gemini, codex, amp, copilot, opencode)")
	cmd.Flags().BoolVar(&opts.continueRun, "continue", false, "Resume the previous run instead of starting fresh")
	cmd.Flags().BoolVar(&opts.autonomous, "autonomous", false, "Force headless execution even on a terminal")
	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "Disable the dashboard (implies --autonomous)")
	cmd.Flags().IntVar(&opts.idleTimeout, "idle-timeout", 0, "Seconds of backend silence before the iteration is cut off")
	cmd.Flags().BoolVar(&opts.exclusive, "exclusive", false, "Wait for the primary-loop lock instead of spawning a worktree")
	cmd.Flags().BoolVar(&opts.noAutoMerge, "no-auto-merge", false, "Keep a completed worktree loop out of the merge queue")
	cmd.Flags().StringVar(&opts.recordSession, "record-session", "", "Record every published event to this JSONL file")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Print each iteration's full prompt")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress streaming output")

	return cmd
}
