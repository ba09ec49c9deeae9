// Package oneshot implements the plan, task, and code-task verbs:
// single backend invocations wrapped in a fixed standard operating
// procedure, outside the event loop.
package oneshot

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ralph-loop/ralph/internal/backend"
	"github.com/ralph-loop/ralph/internal/cmdutil"
	"github.com/ralph-loop/ralph/internal/loopctx"
	"github.com/ralph-loop/ralph/internal/ptyexec"
	"github.com/ralph-loop/ralph/internal/stream"
)

// sop is one verb's fixed operating procedure, prepended to the user's
// request.
type sop struct {
	use   string
	short string
	body  string
}

var planSOP = sop{
	use:   "plan REQUEST...",
	short: "Run a one-shot planning session",
	body: `Produce a concrete implementation plan for the request below.
Study the repository first. Write the plan as numbered steps with file
paths, then stop — do not implement anything.`,
}

var taskSOP = sop{
	use:   "task REQUEST...",
	short: "Run a single task to completion",
	body: `Complete the task below in one session: study the relevant code,
implement the change, run the tests, and commit. Keep the change
focused on the task as stated.`,
}

var codeTaskSOP = sop{
	use:   "code-task REQUEST...",
	short: "Generate code-task files from a description",
	body: `Break the request below into independent code tasks. Write one
markdown file per task into the .ralph/tasks directory, each with a
title, acceptance criteria, and the files it touches. Do not implement
any of them.`,
}

// NewCmdPlan creates the plan command.
func NewCmdPlan(f *cmdutil.Factory) *cobra.Command { return newOneshot(f, planSOP) }

// NewCmdTask creates the task command.
func NewCmdTask(f *cmdutil.Factory) *cobra.Command { return newOneshot(f, taskSOP) }

// NewCmdCodeTask creates the code-task command.
func NewCmdCodeTask(f *cmdutil.Factory) *cobra.Command { return newOneshot(f, codeTaskSOP) }

func newOneshot(f *cmdutil.Factory, s sop) *cobra.Command {
	var backendName string

	cmd := &cobra.Command{
		Use:   s.use + " [-- BACKEND_ARGS...]",
		Short: s.short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			request, extra := splitDashArgs(cmd, args)
			if request == "" {
				return cmdutil.FlagErrorf("a request is required")
			}

			cfg, err := f.Config()
			if err != nil {
				return err
			}

			name := backendName
			if name == "" {
				name = cfg.CLI.Backend
			}
			desc, err := backend.FromNameWithArgs(name, extra)
			if err != nil {
				return err
			}

			prompt := s.body + "\n\nREQUEST\n\n" + request
			built, err := backend.BuildCommand(desc, prompt, false)
			if err != nil {
				return err
			}
			if built.TempFile != "" {
				defer os.Remove(built.TempFile)
			}

			if s.use == codeTaskSOP.use {
				ctx := loopctx.Primary(f.WorkDir)
				if err := os.MkdirAll(ctx.CodeTasksDir(), 0o755); err != nil {
					return fmt.Errorf("creating code-tasks directory: %w", err)
				}
			}

			result, err := ptyexec.Run(context.Background(), ptyexec.Options{
				Command:      built.Command,
				Args:         built.Args,
				WorkingDir:   f.WorkDir,
				Stdin:        built.Stdin,
				UseStdin:     built.UseStdin,
				IdleTimeout:  cfg.CLI.IdleTimeout(),
				Handler:      stream.Console{Out: f.IOStreams.Out},
				IsJSONStream: desc.OutputFormat == backend.StreamJSON,
			})
			if err != nil {
				return err
			}
			if !result.Success {
				return &cmdutil.ExitError{Code: 1}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&backendName, "backend", "b", "", "Backend CLI override")
	return cmd
}

// splitDashArgs separates the request words from args passed after
// "--", which belong to the backend.
func splitDashArgs(cmd *cobra.Command, args []string) (request string, extra []string) {
	if at := cmd.ArgsLenAtDash(); at >= 0 {
		return strings.Join(args[:at], " "), args[at:]
	}
	return strings.Join(args, " "), nil
}
