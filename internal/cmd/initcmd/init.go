// Package initcmd implements "ralph init", which scaffolds a ralph.yml
// configuration file.
package initcmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ralph-loop/ralph/internal/cmdutil"
	"github.com/ralph-loop/ralph/internal/config"
)

// ConfigFileName is the default scaffold target.
const ConfigFileName = "ralph.yml"

// preset is a named, ready-to-run configuration template.
type preset struct {
	description string
	content     string
}

var presets = map[string]preset{
	"solo": {
		description: "Single agent, no hats: study, implement, commit, repeat",
		content:     config.DefaultConfigYAML,
	},
	"tdd-red-green": {
		description: "Test-writer and implementer hats alternating red/green",
		content: `cli:
  backend: claude

event_loop:
  prompt_file: PROMPT.md
  starting_event: test.needed
  max_iterations: 100

hats:
  test_writer:
    name: Test Writer
    description: Writes one failing test per activation, never implementation code.
    triggers: [test.needed, implementation.done]
    publishes: [test.written]
    instructions: |
      Write exactly one failing test that pins down the next unmet
      requirement. Run it, confirm it fails, then publish test.written
      with the test's name and why it fails.
  implementer:
    name: Implementer
    description: Makes the newest failing test pass with the smallest change.
    triggers: [test.written]
    publishes: [implementation.done, build.done]
    instructions: |
      Make the failing test pass with the smallest change that could
      work. Run the full suite. Publish implementation.done, or
      build.done with evidence once everything is green.
`,
	},
	"review-loop": {
		description: "Executor and code-reviewer hats with bounded review rounds",
		content: `cli:
  backend: claude

event_loop:
  prompt_file: PROMPT.md
  starting_event: work.start
  max_iterations: 100

hats:
  executor:
    name: Executor
    description: Implements the objective and responds to review feedback.
    triggers: [work.start, review.changes_requested]
    publishes: [implementation.done]
    instructions: |
      Implement the next increment of the objective, or address the
      reviewer's requested changes. Commit, then publish
      implementation.done describing what changed.
  code_reviewer:
    name: Code Reviewer
    description: Reviews each increment and requests changes or approves.
    triggers: [implementation.done]
    publishes: [review.changes_requested, build.done]
    max_activations: 3
    instructions: |
      Review the latest commit critically. Either publish
      review.changes_requested with concrete findings, or run
      tests/lint/typecheck and publish build.done with the evidence.
`,
	},
}

type options struct {
	backend     string
	preset      string
	listPresets bool
	force       bool
}

// NewCmdInit creates the init command.
func NewCmdInit(f *cmdutil.Factory) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a ralph.yml configuration file",
		Args:  cmdutil.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.listPresets {
				printPresets(f)
				return nil
			}

			name := opts.preset
			if name == "" {
				name = "solo"
			}
			p, ok := presets[name]
			if !ok {
				return cmdutil.FlagErrorf("unknown preset %q (run --list-presets)", name)
			}

			content := p.content
			if opts.backend != "" {
				content = strings.Replace(content, "backend: claude", "backend: "+opts.backend, 1)
			}
			// Guard against a preset/backend combination producing a
			// file the loader would then reject.
			var probe map[string]any
			if err := yaml.Unmarshal([]byte(content), &probe); err != nil {
				return fmt.Errorf("preset %q produced invalid YAML: %w", name, err)
			}

			path := filepath.Join(f.WorkDir, ConfigFileName)
			if _, err := os.Stat(path); err == nil && !opts.force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}

			cs := f.IOStreams.ColorScheme()
			fmt.Fprintf(f.IOStreams.ErrOut, "%s wrote %s (preset: %s)\n", cs.SuccessIcon(), path, name)
			cmdutil.PrintNextSteps(f.IOStreams,
				"Write your objective to PROMPT.md",
				"Start the loop with `ralph run`",
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.backend, "backend", "", "Backend CLI to configure (default claude)")
	cmd.Flags().StringVar(&opts.preset, "preset", "", "Preset to scaffold from (default solo)")
	cmd.Flags().BoolVar(&opts.listPresets, "list-presets", false, "List available presets")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Overwrite an existing config file")

	return cmd
}

func printPresets(f *cmdutil.Factory) {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	cs := f.IOStreams.ColorScheme()
	for _, name := range names {
		fmt.Fprintf(f.IOStreams.Out, "%-16s %s\n", cs.Bold(name), presets[name].description)
	}
}
