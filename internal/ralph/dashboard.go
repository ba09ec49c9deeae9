package ralph

import (
	"sync"
	"time"

	"github.com/ralph-loop/ralph/internal/iostreams"
	"github.com/ralph-loop/ralph/internal/loop"
	"github.com/ralph-loop/ralph/internal/stream"
	"github.com/ralph-loop/ralph/internal/tui"
)

// dashboard adapts the loop's iteration lifecycle onto the bubbletea
// loop dashboard. It is observation-only: the loop never blocks on it
// (sends drop when the UI lags), and a user detach downgrades the run
// to plain console output without stopping it. Each iteration's
// subprocess output streams through a stream.TUI handler whose block
// buffer the dashboard drains into its output feed.
type dashboard struct {
	ch   chan tui.LoopDashEvent
	once sync.Once

	mu      sync.Mutex
	handler *stream.TUI
	result  tui.LoopDashboardResult
	done    bool
}

// startDashboard launches the dashboard UI on its own goroutine.
func startDashboard(ios *iostreams.IOStreams, backendName, workspace string, maxIterations int) *dashboard {
	d := &dashboard{ch: make(chan tui.LoopDashEvent, 64)}
	cfg := tui.LoopDashboardConfig{Backend: backendName, Workspace: workspace, MaxIterations: maxIterations}
	go func() {
		res := tui.RunLoopDashboard(ios, cfg, d.ch)
		d.mu.Lock()
		d.result, d.done = res, true
		d.mu.Unlock()
	}()
	d.send(tui.LoopDashEvent{Kind: tui.LoopDashEventStart, Backend: backendName, Workspace: workspace, MaxIterations: maxIterations})
	return d
}

func (d *dashboard) send(ev tui.LoopDashEvent) {
	select {
	case d.ch <- ev:
	default:
	}
}

// iterStart announces a new iteration and returns the fresh stream
// handler its subprocess output should flow through.
func (d *dashboard) iterStart(iteration, maxIterations int, hatID string) *stream.TUI {
	h := &stream.TUI{}
	d.mu.Lock()
	d.handler = h
	d.mu.Unlock()

	d.send(tui.LoopDashEvent{
		Kind:          tui.LoopDashEventIterStart,
		Iteration:     iteration,
		MaxIterations: maxIterations,
		HatID:         hatID,
	})
	return h
}

// flushOutput drains the current iteration handler's block buffer into
// the dashboard's output feed.
func (d *dashboard) flushOutput() {
	d.mu.Lock()
	h := d.handler
	d.mu.Unlock()
	if h == nil {
		return
	}
	if lines := h.DrainLines(); len(lines) > 0 {
		d.send(tui.LoopDashEvent{Kind: tui.LoopDashEventOutput, OutputLines: lines})
	}
}

func (d *dashboard) iterEnd(iteration int, hatID string, duration time.Duration, costUSD float64, failed bool) {
	d.flushOutput()

	status := "ok"
	if failed {
		status = "failed"
	}
	d.send(tui.LoopDashEvent{
		Kind:         tui.LoopDashEventIterEnd,
		Iteration:    iteration,
		HatID:        hatID,
		StatusText:   status,
		IterDuration: duration,
		IterCostUSD:  costUSD,
		Failed:       failed,
	})
}

func (d *dashboard) complete(reason loop.TerminationReason) {
	d.flushOutput()
	d.send(tui.LoopDashEvent{Kind: tui.LoopDashEventComplete, ExitReason: string(reason)})
	d.close()
}

func (d *dashboard) close() {
	d.once.Do(func() { close(d.ch) })
}

// interrupted reports whether the user pressed Ctrl+C inside the UI.
func (d *dashboard) interrupted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done && d.result.Interrupted
}

// detached reports whether the user dismissed the UI to watch plain
// output instead.
func (d *dashboard) detached() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done && d.result.Detached
}
