// Package tools implements "ralph tools", the agent-facing runtime
// helpers: where the current events file lives, which backends are
// known, and the composed prompt's memory-usage guide.
package tools

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ralph-loop/ralph/internal/backend"
	"github.com/ralph-loop/ralph/internal/cmdutil"
	"github.com/ralph-loop/ralph/internal/loopctx"
	"github.com/ralph-loop/ralph/internal/memory"
)

// NewCmdTools creates the tools command group.
func NewCmdTools(f *cmdutil.Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Agent-facing runtime helpers",
	}
	cmd.AddCommand(newCmdEventsPath(f))
	cmd.AddCommand(newCmdBackends(f))
	cmd.AddCommand(newCmdMemorySkill(f))
	return cmd
}

func newCmdEventsPath(f *cmdutil.Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "events-path",
		Short: "Print the current run's events file path",
		Args:  cmdutil.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(f.IOStreams.Out, loopctx.Primary(f.WorkDir).ResolveEventsFile())
			return nil
		},
	}
}

var knownBackends = []string{"claude", "kiro", "gemini", "codex", "amp", "copilot", "opencode"}

func newCmdBackends(f *cmdutil.Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the known backend CLIs and their invocation shape",
		Args:  cmdutil.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cs := f.IOStreams.ColorScheme()
			for _, name := range knownBackends {
				d, err := backend.FromName(name)
				if err != nil {
					continue
				}
				format := "text"
				if d.OutputFormat == backend.StreamJSON {
					format = "stream-json"
				}
				fmt.Fprintf(f.IOStreams.Out, "%-10s %s %v (%s)\n", cs.Bold(name), d.Command, d.Args, format)
			}
			return nil
		},
	}
}

func newCmdMemorySkill(f *cmdutil.Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "memory-skill",
		Short: "Print the memory-usage guide injected into prompts",
		Args:  cmdutil.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(f.IOStreams.Out, memory.UsageSkill)
			return nil
		},
	}
}
