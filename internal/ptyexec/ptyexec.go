// Package ptyexec spawns a backend CLI subprocess inside a
// pseudo-terminal so that tools relying on terminal detection behave
// normally, streams its output through a stream.Handler, and enforces
// a reset-on-data idle timeout that races against an externally
// supplied interrupt channel.
package ptyexec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/creack/pty"

	"github.com/ralph-loop/ralph/internal/logger"
	"github.com/ralph-loop/ralph/internal/signals"
	"github.com/ralph-loop/ralph/internal/stream"
	"github.com/ralph-loop/ralph/internal/term"
)

// TerminationType classifies why a subprocess run ended.
type TerminationType int

const (
	// Exited means the subprocess ran to completion on its own.
	Exited TerminationType = iota
	// IdleTimeout means no output arrived for the configured window.
	// The driver interprets this differently in interactive vs.
	// autonomous mode; see IdleMeansStop.
	IdleTimeout
	// UserInterrupt means the interrupt channel fired mid-run.
	UserInterrupt
)

// killGrace is how long SIGTERM is given to land before SIGKILL, per
// the cancellation contract in the PTY executor's design.
const killGrace = 250 * time.Millisecond

// defaultIdleTimeout applies when Options.IdleTimeout is unset.
const defaultIdleTimeout = 30 * time.Second

// Result carries everything the driver needs out of one subprocess
// run: combined raw output, a stripped-of-control-codes text view, and
// (for NDJSON backends) the plain-text projection extracted from the
// stream.
type Result struct {
	RawOutput     string
	StrippedText  string
	ExtractedText string
	Success       bool
	Termination   TerminationType
}

// Options configures one PTY-backed subprocess run.
type Options struct {
	Command    string
	Args       []string
	WorkingDir string
	Stdin      string // written and closed immediately when UseStdin
	UseStdin   bool

	// IdleTimeout resets on every byte of output; firing it ends the
	// run with Termination = IdleTimeout. Zero means defaultIdleTimeout.
	IdleTimeout time.Duration

	// Interactive forwards the real terminal's stdin to the PTY and
	// puts it in raw mode for the run's duration.
	Interactive bool

	// Handler receives parsed output as it streams in. May be nil.
	Handler stream.Handler

	// IsJSONStream selects whether output is parsed as Claude's
	// NDJSON stream-json protocol (true) or treated as opaque text.
	IsJSONStream bool

	// Interrupt fires to cancel an in-flight run. The zero value
	// (nil) disables interrupt racing.
	Interrupt <-chan struct{}
}

// Run spawns Command/Args in a PTY under WorkingDir and streams its
// output until the process exits, the idle timeout fires, or
// Interrupt fires — whichever comes first.
func Run(ctx context.Context, opts Options) (Result, error) {
	cmd := exec.CommandContext(ctx, opts.Command, opts.Args...)
	cmd.Dir = opts.WorkingDir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	f, err := pty.Start(cmd)
	if err != nil {
		return Result{}, fmt.Errorf("starting %s in pty: %w", opts.Command, err)
	}
	defer f.Close()

	// Mirror the controlling terminal's size into the PTY, and keep it
	// mirrored across SIGWINCH, so full-screen backends lay out
	// correctly.
	if term.IsStdinTerminal() {
		resize := signals.NewResizeHandler(
			func(height, width uint) error {
				return pty.Setsize(f, &pty.Winsize{Rows: uint16(height), Cols: uint16(width)})
			},
			term.GetStdinSize,
		)
		resize.Start()
		resize.TriggerResize()
		defer resize.Stop()
	}

	if opts.Interactive {
		raw := term.NewRawModeStdin()
		if raw.IsTerminal() {
			if err := raw.Enable(); err == nil {
				defer func() {
					if err := raw.Restore(); err != nil {
						logger.Debug().Err(err).Msg("failed to restore terminal after pty run")
					}
				}()
			}
		}
		go io.Copy(f, os.Stdin) //nolint:errcheck // best-effort stdin forwarding
	} else if opts.UseStdin {
		go func() {
			io.Copy(f, strings.NewReader(opts.Stdin)) //nolint:errcheck
			f.Close()
		}()
	}

	collector := stream.NewCollector(opts.Handler, opts.IsJSONStream)
	readDone := make(chan error, 1)
	dataCh := make(chan []byte, 64)

	go func() {
		buf := make([]byte, 32*1024)
		for {
			n, err := f.Read(buf)
			if n > 0 {
				chunk := append([]byte(nil), buf[:n]...)
				dataCh <- chunk
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					readDone <- nil
				} else {
					readDone <- err
				}
				return
			}
		}
	}()

	idle := opts.IdleTimeout
	if idle <= 0 {
		idle = defaultIdleTimeout
	}
	timer := time.NewTimer(idle)
	defer timer.Stop()

	termType := Exited
	var readErr error

runLoop:
	for {
		select {
		case chunk := <-dataCh:
			collector.Write(chunk)
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(idle)
		case err := <-readDone:
			readErr = err
			break runLoop
		case <-timer.C:
			termType = IdleTimeout
			terminateProcessGroup(cmd)
			break runLoop
		case <-opts.Interrupt:
			termType = UserInterrupt
			terminateProcessGroup(cmd)
			break runLoop
		}
	}

	// Drain any output that arrived concurrently with the termination
	// decision, without blocking indefinitely.
drainLoop:
	for {
		select {
		case chunk := <-dataCh:
			collector.Write(chunk)
		default:
			break drainLoop
		}
	}

	waitErr := cmd.Wait()
	success := termType == Exited && readErr == nil && waitErr == nil

	collector.Finish(success)

	return Result{
		RawOutput:     collector.Raw(),
		StrippedText:  collector.Stripped(),
		ExtractedText: collector.Extracted(),
		Success:       success,
		Termination:   termType,
	}, nil
}

// terminateProcessGroup sends SIGTERM to the subprocess's process
// group, waits killGrace, then escalates to SIGKILL. Used for both the
// idle-timeout and user-interrupt paths.
func terminateProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil {
		_ = cmd.Process.Signal(syscall.SIGTERM)
		return
	}
	_ = syscall.Kill(-pgid, syscall.SIGTERM)
	time.Sleep(killGrace)
	_ = syscall.Kill(-pgid, syscall.SIGKILL)
}

// IdleMeansStop reports how the driver should interpret an
// IdleTimeout termination: in autonomous mode it means "stopped"; in
// interactive mode it means "iteration complete, continue" and the
// driver converts it to no termination at all.
func IdleMeansStop(interactive bool) bool {
	return !interactive
}
