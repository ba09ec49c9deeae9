// Package ralphcli is the entry point for the ralph CLI: it builds the
// factory, executes the command tree, and renders errors centrally so
// commands return typed errors rather than printing them directly.
package ralphcli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ralph-loop/ralph/internal/build"
	"github.com/ralph-loop/ralph/internal/cmd/root"
	"github.com/ralph-loop/ralph/internal/cmdutil"
	"github.com/ralph-loop/ralph/internal/iostreams"
	"github.com/ralph-loop/ralph/internal/logger"
)

// Main runs the CLI and returns the process exit code.
func Main() int {
	// Ensure logs and the OTEL provider are flushed on exit.
	defer logger.Close() //nolint:errcheck

	// A panic inside a PTY/TUI run can leave the terminal in raw mode,
	// on the alternate screen, or with the cursor hidden; restore it
	// before the panic message prints so the message is readable.
	defer func() {
		if r := recover(); r != nil {
			restoreTerminal()
			panic(r)
		}
	}()

	f := cmdutil.New(build.Version, build.Commit)

	rootCmd := root.NewCmdRoot(f)

	// Silence Cobra's built-in error printing — printError handles it.
	rootCmd.SilenceErrors = true

	cmd, err := rootCmd.ExecuteC()
	if err != nil {
		if !errors.Is(err, cmdutil.SilentError) {
			printError(f.IOStreams.ErrOut, f.IOStreams.ColorScheme(), err, cmd)
		}
		var exitErr *cmdutil.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}
		return 1
	}
	return 0
}

// restoreTerminal leaves the alternate screen, shows the cursor, and
// resets attributes. Writing the sequences unconditionally is harmless
// on a terminal that is already in a sane state.
func restoreTerminal() {
	fmt.Fprint(os.Stderr, "\x1b[?1049l\x1b[?25h\x1b[0m")
}

// userFormattedError is a duck-typed interface for errors that provide
// rich user-facing output.
type userFormattedError interface {
	FormatUserError() string
}

// printError renders an error to the given writer. It dispatches based
// on error type:
//   - FlagError: prints the error followed by usage
//   - userFormattedError: uses the error's own rich formatting
//   - default: prints failure icon + error message
func printError(out io.Writer, cs *iostreams.ColorScheme, err error, cmd *cobra.Command) {
	var flagErr *cmdutil.FlagError
	var ufErr userFormattedError

	switch {
	case errors.As(err, &flagErr):
		fmt.Fprintln(out, err)
		fmt.Fprintln(out)
		fmt.Fprintln(out, cmd.UsageString())
		fmt.Fprintf(out, "\nRun '%s --help' for more information.\n", cmd.CommandPath())
	case errors.As(err, &ufErr):
		fmt.Fprint(out, ufErr.FormatUserError())
	default:
		fmt.Fprintf(out, "%s %s\n", cs.FailureIcon(), err)
	}
}
