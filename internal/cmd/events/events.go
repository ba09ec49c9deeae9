// Package events implements "ralph events", the event-history
// inspection verb.
package events

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ralph-loop/ralph/internal/cmdutil"
	"github.com/ralph-loop/ralph/internal/eventlog"
	"github.com/ralph-loop/ralph/internal/iostreams"
	"github.com/ralph-loop/ralph/internal/loopctx"
	"github.com/ralph-loop/ralph/internal/topic"
)

type options struct {
	last      int
	topic     string
	iteration int
	format    string
	clear     bool
	file      string
}

// NewCmdEvents creates the events command.
func NewCmdEvents(f *cmdutil.Factory) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect the current run's event history",
		Args:  cmdutil.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := loopctx.Primary(f.WorkDir)
			path := opts.file
			if path == "" {
				path = ctx.ResolveEventsFile()
			}

			if opts.clear {
				if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("clearing events file: %w", err)
				}
				fmt.Fprintf(f.IOStreams.ErrOut, "cleared %s\n", path)
				return nil
			}

			format, err := cmdutil.ParseFormat(opts.format)
			if err != nil {
				return err
			}

			reader := eventlog.NewReader(path)
			events, malformed, err := reader.ReadNew()
			if err != nil {
				return fmt.Errorf("reading events: %w", err)
			}

			events = filter(events, opts)
			if opts.last > 0 && len(events) > opts.last {
				events = events[len(events)-opts.last:]
			}

			if format.IsJSON() {
				return cmdutil.OutputJSON(f.IOStreams, events)
			}
			printTable(f.IOStreams, events)
			for _, m := range malformed {
				cmdutil.PrintWarning(f.IOStreams, "malformed %s", m.Error())
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.last, "last", 0, "Show only the last N events")
	cmd.Flags().StringVar(&opts.topic, "topic", "", "Show only events with this topic")
	cmd.Flags().IntVar(&opts.iteration, "iteration", 0, "Show only the Nth event (1-based)")
	cmd.Flags().StringVar(&opts.format, "format", "", `Output format: "table" or "json"`)
	cmd.Flags().BoolVar(&opts.clear, "clear", false, "Delete the current events file")
	cmd.Flags().StringVar(&opts.file, "file", "", "Read from this events file instead of the current run's")

	return cmd
}

func filter(events []topic.Event, opts *options) []topic.Event {
	if opts.iteration > 0 {
		if opts.iteration > len(events) {
			return nil
		}
		return events[opts.iteration-1 : opts.iteration]
	}
	if opts.topic == "" {
		return events
	}
	var out []topic.Event
	for _, e := range events {
		if string(e.Topic) == opts.topic {
			out = append(out, e)
		}
	}
	return out
}

func printTable(ios *iostreams.IOStreams, events []topic.Event) {
	if len(events) == 0 {
		fmt.Fprintln(ios.Out, "no events")
		return
	}
	cs := ios.ColorScheme()
	for i, e := range events {
		payload := e.Payload
		if len(payload) > 100 {
			payload = payload[:97] + "..."
		}
		fmt.Fprintf(ios.Out, "%3d  %s  %-28s %s\n",
			i+1,
			cs.Muted(e.Timestamp.Format("15:04:05")),
			cs.Bold(string(e.Topic)),
			payload,
		)
	}
}
