// Package ralph is the top-level loop driver: it resolves the prompt,
// acquires the loop lock (or spawns into a worktree), wires the
// scheduler to the PTY executor, handles signals, and dispatches
// termination.
package ralph

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ralph-loop/ralph/internal/backend"
	"github.com/ralph-loop/ralph/internal/bus"
	"github.com/ralph-loop/ralph/internal/config"
	"github.com/ralph-loop/ralph/internal/eventlog"
	"github.com/ralph-loop/ralph/internal/hat"
	"github.com/ralph-loop/ralph/internal/iostreams"
	"github.com/ralph-loop/ralph/internal/logger"
	"github.com/ralph-loop/ralph/internal/loop"
	"github.com/ralph-loop/ralph/internal/loopctx"
	"github.com/ralph-loop/ralph/internal/looplock"
	"github.com/ralph-loop/ralph/internal/memory"
	"github.com/ralph-loop/ralph/internal/mergequeue"
	"github.com/ralph-loop/ralph/internal/prompt"
	"github.com/ralph-loop/ralph/internal/ptyexec"
	"github.com/ralph-loop/ralph/internal/stream"
	"github.com/ralph-loop/ralph/internal/worktree"
)

// maxFallbackAttempts caps consecutive fallback injections before the
// driver gives up and stops the loop.
const maxFallbackAttempts = 3

// DefaultPromptFile is the lowest-precedence prompt source.
const DefaultPromptFile = "PROMPT.md"

// Options carries everything the run command resolves from flags.
type Options struct {
	// Prompt precedence: Prompt > PromptFile > config prompt >
	// config prompt_file > DefaultPromptFile.
	Prompt     string
	PromptFile string

	// Backend overrides cli.backend for this run.
	Backend string
	// ExtraArgs are appended to the backend's argv verbatim
	// (everything after "--" on the command line).
	ExtraArgs []string

	// Continue resumes an interrupted loop: task.resume instead of
	// task.start, and the existing events file is kept.
	Continue bool

	// Autonomous forces headless execution even when stdout is a TTY.
	Autonomous bool
	// NoTUI disables the dashboard observer without forcing headless
	// backend flags.
	NoTUI bool

	// IdleTimeout overrides cli.idle_timeout_secs when positive.
	IdleTimeout time.Duration

	// Exclusive waits for the primary-loop lock instead of spawning a
	// worktree when the lock is contested.
	Exclusive bool
	// NoAutoMerge keeps a completed worktree loop out of the merge
	// queue for manual handling.
	NoAutoMerge bool

	// RecordSession, when set, appends every published event to this
	// JSONL file for later inspection.
	RecordSession string

	Verbose bool
	Quiet   bool
}

// Runner drives one loop from lock acquisition to termination.
type Runner struct {
	Cfg      *config.Config
	Registry *hat.Registry
	IOS      *iostreams.IOStreams
	Opts     Options

	ctx       loopctx.Context
	sched     *loop.Scheduler
	reader    *eventlog.Reader
	history   *loop.HistoryStore
	guard     *looplock.Guard
	recorder  *sessionRecorder
	dash      *dashboard
	startedAt time.Time
	promptSrc string
}

// New constructs a Runner for the given repo root.
func New(cfg *config.Config, registry *hat.Registry, ios *iostreams.IOStreams, repoRoot string, opts Options) *Runner {
	return &Runner{
		Cfg:      cfg,
		Registry: registry,
		IOS:      ios,
		Opts:     opts,
		ctx:      loopctx.Primary(repoRoot),
	}
}

// Context returns the loop context the runner resolved, which may be a
// worktree context after a contested lock.
func (r *Runner) Context() loopctx.Context { return r.ctx }

// Run executes the loop to termination and returns the reason. The
// returned error is non-nil only for failures before the loop started
// (prompt resolution, lock, worktree creation); once iterating, every
// outcome is a TerminationReason.
func (r *Runner) Run(ctx context.Context) (loop.TerminationReason, error) {
	becomeProcessGroupLeader()

	promptContent, err := r.resolvePrompt()
	if err != nil {
		return "", err
	}
	r.promptSrc = promptContent

	if err := r.acquireOrSpawn(promptContent); err != nil {
		return "", err
	}
	if r.guard != nil {
		defer r.guard.Release() //nolint:errcheck // lock release is best-effort at exit
	}

	logger.SetContext(r.ctx.LoopID, r.ctx.Workspace, "")
	defer logger.ClearContext()

	eventsPath, err := r.resolveEventsPath()
	if err != nil {
		return "", err
	}

	r.reader = eventlog.NewReader(eventsPath)
	r.history = loop.NewHistoryStore(r.ctx.Workspace)

	b := bus.New()
	r.sched = loop.New(r.Cfg, r.Registry, b, r.reader)

	if r.Opts.RecordSession != "" {
		rec, err := newSessionRecorder(r.Opts.RecordSession)
		if err != nil {
			return "", fmt.Errorf("opening session recording file: %w", err)
		}
		r.recorder = rec
		defer rec.Close() //nolint:errcheck
		b.AddObserver(rec.Observe)
	}

	if r.dashboardEnabled() {
		backendName := r.Cfg.CLI.Backend
		if r.Opts.Backend != "" {
			backendName = r.Opts.Backend
		}
		r.dash = startDashboard(r.IOS, backendName, r.ctx.Workspace, r.Cfg.EventLoop.MaxIterations)
	}

	interrupt := watchInterrupts(ctx)

	r.startedAt = time.Now()
	r.sched.Initialize(r.startedAt, promptContent, r.Opts.Continue)

	return r.iterate(ctx, interrupt), nil
}

// dashboardEnabled reports whether the observation dashboard runs for
// this invocation: autonomous execution on a real terminal, not
// explicitly disabled.
func (r *Runner) dashboardEnabled() bool {
	return !r.Opts.Autonomous && !r.Opts.NoTUI && !r.Opts.Quiet &&
		!r.interactive() && r.IOS.IsInteractive()
}

// resolvePrompt applies the five-level prompt-source precedence.
func (r *Runner) resolvePrompt() (string, error) {
	if r.Opts.Prompt != "" {
		return r.Opts.Prompt, nil
	}
	if r.Opts.PromptFile != "" {
		return readPromptFile(r.Opts.PromptFile)
	}
	if r.Cfg.EventLoop.Prompt != "" {
		return r.Cfg.EventLoop.Prompt, nil
	}
	if r.Cfg.EventLoop.PromptFile != "" {
		return readPromptFile(filepath.Join(r.ctx.Workspace, r.Cfg.EventLoop.PromptFile))
	}
	return readPromptFile(filepath.Join(r.ctx.Workspace, DefaultPromptFile))
}

func readPromptFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading prompt file: %w", err)
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return "", fmt.Errorf("prompt file %s is empty", path)
	}
	return content, nil
}

// acquireOrSpawn takes the primary-loop lock, or — when it is
// contested — either blocks for it (--exclusive), spawns this loop
// into a fresh worktree (features.parallel), or fails.
func (r *Runner) acquireOrSpawn(promptContent string) error {
	summary := promptSummary(promptContent)

	guard, err := looplock.TryAcquire(r.ctx.RepoRoot, summary)
	if err == nil {
		r.guard = guard
		return nil
	}

	var already *looplock.AlreadyLockedError
	if !errors.As(err, &already) {
		return err
	}

	if r.Opts.Exclusive {
		logger.Info().Int("holder_pid", already.Record.PID).Msg("loop lock held, waiting (--exclusive)")
		guard, err := looplock.Acquire(r.ctx.RepoRoot, summary)
		if err != nil {
			return fmt.Errorf("waiting for loop lock: %w", err)
		}
		r.guard = guard
		return nil
	}

	if !r.Cfg.Features.Parallel {
		return fmt.Errorf("%w; pass --exclusive to wait, or enable features.parallel to spawn a worktree loop", already)
	}

	return r.spawnWorktree(already)
}

// spawnWorktree switches this run into a freshly created worktree
// loop: new branch, synced files, shared-state symlinks, context file.
func (r *Runner) spawnWorktree(already *looplock.AlreadyLockedError) error {
	loopID := loop.GenerateLoopID(time.Now())
	logger.Info().
		Int("holder_pid", already.Record.PID).
		Str("loop_id", loopID).
		Msg("loop lock held, spawning parallel loop in worktree")

	mgr, err := worktree.Open(r.ctx.RepoRoot)
	if err != nil {
		return fmt.Errorf("opening repository for worktree loop: %w", err)
	}
	wt, err := mgr.CreateWorktree(loopID)
	if err != nil {
		return fmt.Errorf("creating worktree for parallel loop: %w", err)
	}

	r.ctx = loopctx.Worktree(loopID, wt.Path, mgr.RepoRoot())
	if err := r.ctx.SetupSymlinks(); err != nil {
		return fmt.Errorf("linking shared state into worktree: %w", err)
	}
	if err := r.ctx.WriteContextFile(wt.Branch); err != nil {
		return fmt.Errorf("writing worktree context file: %w", err)
	}
	return nil
}

// resolveEventsPath picks the run's events file: a fresh timestamped
// file (recorded in the current-events marker) for new runs, the
// marker's existing target in continue mode.
func (r *Runner) resolveEventsPath() (string, error) {
	if r.Opts.Continue {
		return r.ctx.ResolveEventsFile(), nil
	}
	return r.ctx.WriteEventsMarker(time.Now())
}

// interactive reports whether this run drives the backend's own TUI:
// requested via config, not overridden, and stdout is a real terminal.
func (r *Runner) interactive() bool {
	if r.Opts.Autonomous {
		return false
	}
	if r.Cfg.CLI.DefaultMode != "interactive" {
		return false
	}
	if !r.IOS.IsOutputTTY() {
		logger.Warn().Msg("interactive mode requested but stdout is not a TTY, falling back to autonomous")
		return false
	}
	return true
}

func (r *Runner) idleTimeout() time.Duration {
	if r.Opts.IdleTimeout > 0 {
		return r.Opts.IdleTimeout
	}
	return r.Cfg.CLI.IdleTimeout()
}

// iterate is the main orchestration loop.
func (r *Runner) iterate(ctx context.Context, interrupt <-chan struct{}) loop.TerminationReason {
	interactive := r.interactive()

	for {
		select {
		case <-interrupt:
			return r.terminate(loop.Interrupted)
		case <-ctx.Done():
			return r.terminate(loop.Interrupted)
		default:
		}
		if r.dash != nil && r.dash.interrupted() {
			return r.terminate(loop.Interrupted)
		}

		if reason, stop := r.sched.CheckTermination(time.Now()); stop {
			return r.terminate(reason)
		}

		hatID, ok := r.sched.NextHat()
		if !ok {
			if r.sched.State.ConsecutiveFallbacks >= maxFallbackAttempts {
				logger.Warn().Int("attempts", r.sched.State.ConsecutiveFallbacks).Msg("fallback recovery exhausted, stopping")
				return r.terminate(loop.Stopped)
			}
			if r.sched.InjectFallbackEvent(time.Now()) {
				continue
			}
			logger.Warn().Msg("no pending events and fallback unavailable, stopping")
			return r.terminate(loop.Stopped)
		}

		composed, ok := r.sched.BuildPrompt(hatID, r.buildPromptInput())
		if !ok {
			logger.Error().Str("hat", hatID).Msg("failed to build prompt")
			continue
		}

		display := hatID
		if active := r.sched.ActiveHatID(); active != "" {
			display = active
		}

		var handler stream.Handler
		if r.dash != nil && !r.dash.detached() {
			// The dashboard owns the terminal: the iteration's output
			// streams into its block buffer instead of stdout.
			handler = r.dash.iterStart(r.sched.State.Iteration+1, r.Cfg.EventLoop.MaxIterations, display)
		} else {
			r.printIterationSeparator(hatID)
			handler = r.consoleHandler()
		}
		handler = &costTracker{Handler: handler, sched: r.sched}
		if r.Opts.Verbose {
			fmt.Fprintf(r.IOS.ErrOut, "\n%s\nPROMPT FOR %s (iteration %d)\n%s\n%s\n%s\n\n",
				strings.Repeat("=", 80), hatID, r.sched.State.Iteration+1,
				strings.Repeat("-", 80), composed, strings.Repeat("=", 80))
		}

		desc, err := r.backendFor(hatID)
		if err != nil {
			logger.Error().Err(err).Msg("resolving backend")
			return r.terminate(loop.Stopped)
		}

		built, err := backend.BuildCommand(desc, composed, interactive)
		if err != nil {
			logger.Error().Err(err).Msg("building backend command")
			return r.terminate(loop.Stopped)
		}

		linesBefore, _ := r.reader.LineCount()
		iterStarted := time.Now()
		costBefore := r.sched.State.CumulativeCost

		result, runErr := ptyexec.Run(ctx, ptyexec.Options{
			Command:      built.Command,
			Args:         built.Args,
			WorkingDir:   r.ctx.Workspace,
			Stdin:        built.Stdin,
			UseStdin:     built.UseStdin,
			IdleTimeout:  r.idleTimeout(),
			Interactive:  interactive,
			Handler:      handler,
			IsJSONStream: desc.OutputFormat == backend.StreamJSON,
			Interrupt:    interrupt,
		})
		if built.TempFile != "" {
			os.Remove(built.TempFile)
		}
		if runErr != nil {
			logger.Error().Err(runErr).Msg("pty execution failed")
			result.Success = false
		}

		switch result.Termination {
		case ptyexec.UserInterrupt:
			return r.terminate(loop.Interrupted)
		case ptyexec.IdleTimeout:
			if ptyexec.IdleMeansStop(interactive) {
				return r.terminate(loop.Stopped)
			}
			// Interactive idle means the iteration finished; fall
			// through and process what we have.
		}

		output := result.StrippedText
		if result.ExtractedText != "" {
			output = result.ExtractedText
		}

		if reason, stop := r.sched.ProcessOutput(hatID, output, result.Success, time.Now()); stop {
			if reason == loop.CompletionPromise {
				logger.Info().Msgf("All done! %s detected.", r.Cfg.EventLoop.CompletionPromise)
				r.warnOpenWork()
			}
			return r.terminate(reason)
		}

		if _, err := r.sched.ProcessEventsFromJSONL(time.Now()); err != nil {
			logger.Warn().Err(err).Msg("failed to read events from JSONL")
		}

		if r.dash != nil {
			r.dash.iterEnd(r.sched.State.Iteration, display, time.Since(iterStarted),
				r.sched.State.CumulativeCost-costBefore, !result.Success)
		}

		if active, ok := r.Registry.Get(r.sched.ActiveHatID()); ok {
			linesAfter, _ := r.reader.LineCount()
			r.sched.ApplyDefaultPublish(active, linesBefore, linesAfter, time.Now())
		}

		if _, pending := r.sched.NextHat(); !pending {
			logger.Debug().Str("hat", hatID).Msg("no pending events after iteration; agent may have failed to publish")
		}
	}
}

// buildPromptInput gathers the composer's collaborator state: memories
// (when auto-injection is on) and scratchpad existence.
func (r *Runner) buildPromptInput() loop.BuildPromptInput {
	in := loop.BuildPromptInput{ScratchpadExists: fileExists(r.scratchpadPath())}

	mem := r.Cfg.Memories
	if mem.Enabled && mem.Inject == "auto" {
		memories, err := memory.Load(r.ctx.MemoriesFile(), time.Now())
		if err != nil {
			logger.Warn().Err(err).Msg("failed to read memories file")
		}
		in.Memories = memory.Filter(memories, mem.Filter)
		in.MemoryConfig = prompt.MemoryConfig{
			Enabled:      true,
			InjectAuto:   true,
			BudgetTokens: mem.Budget,
			RecentDays:   mem.Filter.Recent,
			Skill:        memory.UsageSkill,
		}
	}
	return in
}

func (r *Runner) scratchpadPath() string {
	if r.Cfg.Core.Scratchpad != "" {
		if filepath.IsAbs(r.Cfg.Core.Scratchpad) {
			return r.Cfg.Core.Scratchpad
		}
		return filepath.Join(r.ctx.Workspace, r.Cfg.Core.Scratchpad)
	}
	return r.ctx.Scratchpad()
}

// backendFor resolves the descriptor for an iteration. Precedence:
// the active hat's backend override, then the run-level -b override,
// then the configured default.
func (r *Runner) backendFor(hatID string) (backend.Descriptor, error) {
	name := r.Cfg.CLI.Backend
	if r.Opts.Backend != "" {
		name = r.Opts.Backend
	}
	override := hatID
	if active := r.sched.ActiveHatID(); active != "" {
		override = active
	}
	if h, ok := r.Registry.Get(override); ok && h.Backend != "" {
		name = h.Backend
	}

	var desc backend.Descriptor
	var err error
	if name == "custom" || name == "" && r.Cfg.CLI.Command != "" {
		desc, err = backend.Custom(backend.CustomConfig{
			Command:    r.Cfg.CLI.Command,
			Args:       r.Cfg.CLI.Args,
			PromptMode: r.Cfg.CLI.PromptMode,
		})
	} else if r.interactive() {
		desc, err = backend.ForInteractivePrompt(name)
	} else {
		desc, err = backend.FromName(name)
	}
	if err != nil {
		return backend.Descriptor{}, err
	}
	desc.Args = append(append([]string(nil), desc.Args...), r.Opts.ExtraArgs...)
	return desc, nil
}

// consoleHandler picks the stdout stream handler for runs without the
// dashboard: Quiet under -q, Pretty on a color terminal, Console
// otherwise.
func (r *Runner) consoleHandler() stream.Handler {
	switch {
	case r.Opts.Quiet:
		return stream.Quiet{}
	case r.IOS.ColorEnabled():
		return &stream.Pretty{Out: r.IOS.Out}
	default:
		return stream.Console{Out: r.IOS.Out}
	}
}

func (r *Runner) printIterationSeparator(hatID string) {
	display := hatID
	if active := r.sched.ActiveHatID(); hatID == hat.RalphID && active != "" {
		display = active
	}
	iteration := r.sched.State.Iteration + 1
	elapsed := time.Since(r.startedAt).Round(time.Second)
	cs := r.IOS.ColorScheme()
	fmt.Fprintf(r.IOS.Out, "\n%s\n", cs.Muted(fmt.Sprintf("── iteration %d/%d · %s · %s %s",
		iteration, r.Cfg.EventLoop.MaxIterations, display, elapsed, strings.Repeat("─", 20))))
}

// warnOpenWork logs (informationally, never blocking completion) when
// the completion promise arrived with open tasks or scratchpad content
// still present.
func (r *Runner) warnOpenWork() {
	if fileExists(r.ctx.TasksFile()) {
		logger.Warn().Str("tasks", r.ctx.TasksFile()).Msg("completion promised with a task file still present")
	}
	if fileExists(r.scratchpadPath()) {
		logger.Warn().Str("scratchpad", r.scratchpadPath()).Msg("completion promised with a scratchpad still present")
	}
}

// terminate publishes loop.terminate, writes the summary and handoff
// files, records history, and updates the merge queue, then returns
// reason unchanged so callers can `return r.terminate(x)`.
func (r *Runner) terminate(reason loop.TerminationReason) loop.TerminationReason {
	now := time.Now()
	r.sched.PublishTerminateEvent(reason, now)

	if r.dash != nil {
		r.dash.complete(reason)
	}

	if err := writeSummary(r.ctx, r.sched.State, reason, r.startedAt, now); err != nil {
		logger.Warn().Err(err).Msg("failed to write summary file")
	}

	if err := r.history.Append(loop.HistoryRecord{
		LoopID:         historyLoopID(r.ctx),
		StartedAt:      r.startedAt,
		EndedAt:        now,
		Termination:    string(reason),
		Iterations:     r.sched.State.Iteration,
		CumulativeCost: r.sched.State.CumulativeCost,
		ExitCode:       reason.ExitCode(),
	}); err != nil {
		logger.Warn().Err(err).Msg("failed to record loop history")
	}

	if !r.ctx.IsPrimary && reason == loop.CompletionPromise {
		if r.Opts.NoAutoMerge {
			logger.Info().Str("worktree", r.ctx.Workspace).Msg("loop complete; merge manually from the worktree branch")
		} else if err := mergequeue.New(r.ctx.RepoRoot).Enqueue(r.ctx.LoopID, promptSummary(r.promptSrc)); err != nil {
			logger.Warn().Err(err).Msg("failed to enqueue loop for merge")
		} else {
			logger.Info().Str("loop_id", r.ctx.LoopID).Msg("loop queued for merge")
		}
	}

	if r.ctx.IsPrimary && reason == loop.CompletionPromise {
		processPendingMerges(r.ctx.RepoRoot)
	}

	r.printTermination(reason)
	return reason
}

func (r *Runner) printTermination(reason loop.TerminationReason) {
	cs := r.IOS.ColorScheme()
	state := r.sched.State
	line := fmt.Sprintf("loop terminated: %s after %d iteration(s) in %s (exit %d)",
		reason, state.Iteration, time.Since(r.startedAt).Round(time.Second), reason.ExitCode())
	switch reason {
	case loop.CompletionPromise:
		fmt.Fprintln(r.IOS.ErrOut, cs.Green(line))
	case loop.Interrupted, loop.Stopped:
		fmt.Fprintln(r.IOS.ErrOut, cs.Yellow(line))
	default:
		fmt.Fprintln(r.IOS.ErrOut, cs.Red(line))
	}
}

// historyLoopID labels a primary loop's history record.
func historyLoopID(c loopctx.Context) string {
	if c.LoopID != "" {
		return c.LoopID
	}
	return "primary-" + time.Now().Format("20060102-150405")
}

// promptSummary truncates a prompt to a one-line lock/queue label.
func promptSummary(p string) string {
	line := strings.TrimSpace(p)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if len(line) > 80 {
		line = line[:77] + "..."
	}
	return line
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// becomeProcessGroupLeader puts this process at the head of its own
// group so SIGTERM/SIGKILL escalation reaches every spawned backend.
// Skipped when we already lead the foreground group (launched directly
// from a shell), where stealing the group would break job control.
func becomeProcessGroupLeader() {
	if syscall.Getpgrp() == os.Getpid() {
		return
	}
	if err := syscall.Setpgid(0, 0); err != nil {
		logger.Debug().Err(err).Msg("could not become process group leader")
	}
}

// watchInterrupts returns a channel closed on the first SIGINT,
// SIGTERM, or SIGHUP.
func watchInterrupts(ctx context.Context) <-chan struct{} {
	out := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	var once sync.Once
	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			logger.Warn().Str("signal", sig.String()).Msg("interrupt received, terminating")
			once.Do(func() { close(out) })
		case <-ctx.Done():
		}
	}()
	return out
}

// costTracker forwards to the wrapped handler and accrues each session
// summary's reported cost toward the scheduler's cumulative total.
type costTracker struct {
	stream.Handler
	sched *loop.Scheduler
}

func (c *costTracker) OnComplete(summary stream.Summary) {
	c.sched.AddCost(summary.CostUSD)
	c.Handler.OnComplete(summary)
}
