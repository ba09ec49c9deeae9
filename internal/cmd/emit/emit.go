// Package emit implements "ralph emit", the verb agents use to append
// one event to the current run's JSONL file.
package emit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ralph-loop/ralph/internal/cmdutil"
	"github.com/ralph-loop/ralph/internal/loopctx"
	"github.com/ralph-loop/ralph/internal/topic"
)

type options struct {
	jsonPayload bool
	ts          string
	file        string
}

// NewCmdEmit creates the emit command.
func NewCmdEmit(f *cmdutil.Factory) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "emit TOPIC [PAYLOAD]",
		Short: "Append one event to the current run's events file",
		Long: `Emit appends a correctly framed JSON event line to the events file
the running loop is tailing. Agents should always use this instead of
echoing JSON by hand; a malformed line counts against the loop's
validation limit.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := ""
			if len(args) == 2 {
				payload = args[1]
			}
			if opts.jsonPayload && payload != "" && !json.Valid([]byte(payload)) {
				return cmdutil.FlagErrorf("--json given but payload is not valid JSON")
			}

			ts := time.Now()
			if opts.ts != "" {
				parsed, err := time.Parse(time.RFC3339, opts.ts)
				if err != nil {
					return cmdutil.FlagErrorf("invalid --ts (want RFC3339): %v", err)
				}
				ts = parsed
			}

			path := opts.file
			if path == "" {
				path = loopctx.Primary(f.WorkDir).ResolveEventsFile()
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("creating events directory: %w", err)
			}

			var line []byte
			var err error
			if opts.jsonPayload && payload != "" {
				// Structured payload: write the object through raw so
				// consumers see JSON, not a quoted string.
				line, err = json.Marshal(struct {
					Topic   string          `json:"topic"`
					Payload json.RawMessage `json:"payload"`
					TS      time.Time       `json:"ts"`
				}{args[0], json.RawMessage(payload), ts})
			} else {
				line, err = json.Marshal(topic.Event{Topic: topic.Topic(args[0]), Payload: payload, Timestamp: ts})
			}
			if err != nil {
				return fmt.Errorf("encoding event: %w", err)
			}

			out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("opening events file: %w", err)
			}
			defer out.Close()
			if _, err := out.Write(append(line, '\n')); err != nil {
				return fmt.Errorf("appending event: %w", err)
			}

			fmt.Fprintf(f.IOStreams.ErrOut, "emitted %s to %s\n", args[0], path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.jsonPayload, "json", false, "Require the payload to be valid JSON")
	cmd.Flags().StringVar(&opts.ts, "ts", "", "Timestamp override (RFC3339)")
	cmd.Flags().StringVar(&opts.file, "file", "", "Append to this file instead of the current run's")

	return cmd
}
