// Package hats implements "ralph hats", the hat-topology inspection
// group.
package hats

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ralph-loop/ralph/internal/cmdutil"
	"github.com/ralph-loop/ralph/internal/topic"
)

// NewCmdHats creates the hats command group.
func NewCmdHats(f *cmdutil.Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hats",
		Short: "Inspect the configured hat topology",
	}
	cmd.AddCommand(newCmdList(f))
	cmd.AddCommand(newCmdShow(f))
	cmd.AddCommand(newCmdValidate(f))
	return cmd
}

func newCmdList(f *cmdutil.Factory) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every configured hat with its triggers and publishes",
		Args:  cmdutil.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.Config()
			if err != nil {
				return err
			}
			registry, err := cfg.Validate()
			if err != nil {
				return err
			}

			fmtSpec, err := cmdutil.ParseFormat(format)
			if err != nil {
				return err
			}
			hats := registry.CustomHats()
			if fmtSpec.IsJSON() {
				type row struct {
					ID        string   `json:"id"`
					Name      string   `json:"name"`
					Triggers  []string `json:"triggers"`
					Publishes []string `json:"publishes"`
				}
				rows := make([]row, 0, len(hats))
				for _, h := range hats {
					rows = append(rows, row{h.ID, h.Name, topicsToStrings(h.Subscriptions), topicsToStrings(h.Publishes)})
				}
				return cmdutil.OutputJSON(f.IOStreams, rows)
			}

			if len(hats) == 0 {
				fmt.Fprintln(f.IOStreams.Out, "no hats configured (solo mode)")
				return nil
			}
			cs := f.IOStreams.ColorScheme()
			for _, h := range hats {
				fmt.Fprintf(f.IOStreams.Out, "%-20s triggers: %-40s publishes: %s\n",
					cs.Bold(h.ID),
					strings.Join(topicsToStrings(h.Subscriptions), ", "),
					strings.Join(topicsToStrings(h.Publishes), ", "),
				)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", `Output format: "table" or "json"`)
	return cmd
}

func newCmdShow(f *cmdutil.Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "show HAT_ID",
		Short: "Show one hat's full configuration, including instructions",
		Args:  cmdutil.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.Config()
			if err != nil {
				return err
			}
			registry, err := cfg.Validate()
			if err != nil {
				return err
			}
			h, ok := registry.Get(args[0])
			if !ok {
				return fmt.Errorf("no hat %q configured", args[0])
			}
			cs := f.IOStreams.ColorScheme()
			out := f.IOStreams.Out
			fmt.Fprintf(out, "%s (%s)\n\n", cs.Bold(h.ID), h.Name)
			fmt.Fprintf(out, "%s\n\n", h.Description)
			fmt.Fprintf(out, "triggers:  %s\n", strings.Join(topicsToStrings(h.Subscriptions), ", "))
			fmt.Fprintf(out, "publishes: %s\n", strings.Join(topicsToStrings(h.Publishes), ", "))
			if h.Backend != "" {
				fmt.Fprintf(out, "backend:   %s\n", h.Backend)
			}
			if h.MaxActivations > 0 {
				fmt.Fprintf(out, "max activations: %d\n", h.MaxActivations)
			}
			if h.Instructions != "" {
				fmt.Fprintf(out, "\n%s\n", strings.TrimSpace(h.Instructions))
			}
			return nil
		},
	}
}

func newCmdValidate(f *cmdutil.Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the hat topology without starting a loop",
		Args:  cmdutil.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.Config()
			if err != nil {
				return err
			}
			registry, err := cfg.Validate()
			if err != nil {
				return err
			}
			cs := f.IOStreams.ColorScheme()
			fmt.Fprintf(f.IOStreams.ErrOut, "%s topology valid: %d hat(s)\n", cs.SuccessIcon(), len(registry.CustomHats()))
			return nil
		},
	}
}

func topicsToStrings(ts []topic.Topic) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = string(t)
	}
	return out
}
