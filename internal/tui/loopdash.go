package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ralph-loop/ralph/internal/iostreams"
	"github.com/ralph-loop/ralph/internal/text"
)

// LoopDashEventKind discriminates dashboard events.
type LoopDashEventKind int

const (
	// LoopDashEventStart is sent once when the loop begins.
	LoopDashEventStart LoopDashEventKind = iota

	// LoopDashEventIterStart is sent when an iteration begins.
	LoopDashEventIterStart

	// LoopDashEventIterEnd is sent when an iteration completes.
	LoopDashEventIterEnd

	// LoopDashEventOutput carries the iteration's rendered agent
	// output, one styled line per element.
	LoopDashEventOutput

	// LoopDashEventComplete is sent when the loop terminates.
	LoopDashEventComplete
)

// String returns a human-readable name for the event kind.
func (k LoopDashEventKind) String() string {
	switch k {
	case LoopDashEventStart:
		return "Start"
	case LoopDashEventIterStart:
		return "IterStart"
	case LoopDashEventIterEnd:
		return "IterEnd"
	case LoopDashEventOutput:
		return "Output"
	case LoopDashEventComplete:
		return "Complete"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// LoopDashEvent is sent on the channel to update the dashboard.
type LoopDashEvent struct {
	Kind          LoopDashEventKind
	Iteration     int
	MaxIterations int

	// Backend is the CLI being driven; Workspace the loop's directory.
	Backend   string
	Workspace string

	// HatID is the persona active this iteration.
	HatID string

	// Iteration result (populated on IterEnd).
	StatusText   string
	IterDuration time.Duration
	IterCostUSD  float64
	Failed       bool

	// OutputLines carries pre-styled lines from the iteration's stream
	// handler (populated on Output).
	OutputLines []string

	// Completion.
	ExitReason string
	Err        error
}

// LoopDashboardConfig configures the dashboard.
type LoopDashboardConfig struct {
	Backend       string
	Workspace     string
	MaxIterations int
}

// LoopDashboardResult is returned when the dashboard exits.
type LoopDashboardResult struct {
	Err         error // display error only
	Detached    bool  // user pressed q/Esc — loop continues, switch to minimal output
	Interrupted bool  // user pressed Ctrl+C — stop the loop
}

type loopDashEventMsg LoopDashEvent

type loopDashChannelClosedMsg struct{}

func waitForLoopEvent(ch <-chan LoopDashEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return loopDashChannelClosedMsg{}
		}
		return loopDashEventMsg(ev)
	}
}

type activityEntry struct {
	iteration int
	hatID     string
	status    string
	costUSD   float64
	duration  time.Duration
	failed    bool
	running   bool
}

const maxActivityEntries = 8

// maxOutputLines bounds the streamed-output feed to roughly one
// screenful; older lines scroll off.
const maxOutputLines = 12

type loopDashboardModel struct {
	ios *iostreams.IOStreams
	cs  *iostreams.ColorScheme
	cfg LoopDashboardConfig

	currentIter int
	maxIter     int
	backend     string
	workspace   string
	activeHat   string
	startTime   time.Time

	statusText   string
	totalCostUSD float64

	// Output feed: the most recent stream-handler lines, newest last.
	output []string

	// Activity log (ring buffer, newest last).
	activity []activityEntry

	exitReason string
	exitError  error

	finished    bool
	detached    bool // user pressed q/Esc — the view exits, the loop continues
	interrupted bool // user pressed Ctrl+C — stop the loop
	width       int

	// High-water mark for stable frame height (pointer for View value receiver).
	highWater *int

	eventCh <-chan LoopDashEvent
}

func newLoopDashboardModel(ios *iostreams.IOStreams, cfg LoopDashboardConfig, eventCh <-chan LoopDashEvent) loopDashboardModel {
	return loopDashboardModel{
		ios:       ios,
		cs:        ios.ColorScheme(),
		cfg:       cfg,
		backend:   cfg.Backend,
		workspace: cfg.Workspace,
		maxIter:   cfg.MaxIterations,
		startTime: time.Now(),
		highWater: new(int),
		width:     ios.TerminalWidth(),
		eventCh:   eventCh,
	}
}

func (m loopDashboardModel) Init() tea.Cmd {
	return waitForLoopEvent(m.eventCh)
}

func (m loopDashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case msg.Type == tea.KeyCtrlC:
			m.interrupted = true
			m.finished = true
			return m, tea.Quit
		case msg.Type == tea.KeyRunes && string(msg.Runes) == "q",
			msg.Type == tea.KeyEsc:
			m.detached = true
			m.finished = true
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case loopDashEventMsg:
		m.processEvent(LoopDashEvent(msg))
		return m, waitForLoopEvent(m.eventCh)

	case loopDashChannelClosedMsg:
		m.finished = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *loopDashboardModel) processEvent(ev LoopDashEvent) {
	switch ev.Kind {
	case LoopDashEventStart:
		m.backend = ev.Backend
		m.workspace = ev.Workspace
		m.maxIter = ev.MaxIterations

	case LoopDashEventIterStart:
		m.currentIter = ev.Iteration
		m.activeHat = ev.HatID
		m.addActivity(activityEntry{
			iteration: ev.Iteration,
			hatID:     ev.HatID,
			status:    "running",
			running:   true,
		})

	case LoopDashEventIterEnd:
		m.currentIter = ev.Iteration
		m.statusText = ev.StatusText
		m.totalCostUSD += ev.IterCostUSD
		m.updateRunningActivity(activityEntry{
			iteration: ev.Iteration,
			hatID:     ev.HatID,
			status:    ev.StatusText,
			costUSD:   ev.IterCostUSD,
			duration:  ev.IterDuration,
			failed:    ev.Failed,
		})

	case LoopDashEventOutput:
		m.output = append(m.output, ev.OutputLines...)
		if len(m.output) > maxOutputLines {
			m.output = m.output[len(m.output)-maxOutputLines:]
		}

	case LoopDashEventComplete:
		m.exitReason = ev.ExitReason
		m.exitError = ev.Err
	}
}

func (m *loopDashboardModel) addActivity(entry activityEntry) {
	if len(m.activity) >= maxActivityEntries {
		m.activity = m.activity[1:]
	}
	m.activity = append(m.activity, entry)
}

func (m *loopDashboardModel) updateRunningActivity(entry activityEntry) {
	for i := len(m.activity) - 1; i >= 0; i-- {
		if m.activity[i].running && m.activity[i].iteration == entry.iteration {
			m.activity[i] = entry
			return
		}
	}
	m.addActivity(entry)
}

func (m loopDashboardModel) View() string {
	cs := m.cs
	width := m.width
	if width < 40 {
		width = 40
	}

	var buf strings.Builder
	lines := 0

	renderLoopDashHeader(&buf, cs, m.backend, width)
	lines += 2 // header + blank
	buf.WriteByte('\n')

	elapsed := time.Since(m.startTime)
	fmt.Fprintf(&buf, "  Backend: %s    Workspace: %s    Elapsed: %s\n",
		m.backend, m.workspace, formatElapsed(elapsed))
	lines++

	hatStr := m.activeHat
	if hatStr == "" {
		hatStr = "—"
	}
	fmt.Fprintf(&buf, "  Iteration: %d/%d    Hat: %s\n", m.currentIter, m.maxIter, hatStr)
	lines++

	if m.totalCostUSD > 0 {
		buf.WriteString(cs.Muted(fmt.Sprintf("  Cost: %s", formatCostUSD(m.totalCostUSD))))
		buf.WriteByte('\n')
		lines++
	}

	buf.WriteByte('\n')
	lines++

	lines += renderLoopDashSection(&buf, cs, " Output ", width)
	if len(m.output) == 0 {
		buf.WriteString(cs.Muted("  Waiting for agent output..."))
		buf.WriteByte('\n')
		lines++
	} else {
		for _, line := range m.output {
			buf.WriteString("  " + text.Truncate(line, width-4))
			buf.WriteByte('\n')
			lines++
		}
	}

	buf.WriteByte('\n')
	lines++

	lines += renderLoopDashSection(&buf, cs, " Activity ", width)
	if len(m.activity) == 0 {
		buf.WriteString(cs.Muted("  Waiting for first iteration..."))
		buf.WriteByte('\n')
		lines++
	} else {
		// Newest first.
		for i := len(m.activity) - 1; i >= 0; i-- {
			renderActivityEntry(&buf, cs, m.activity[i])
			lines++
		}
	}

	if m.exitReason != "" {
		buf.WriteByte('\n')
		fmt.Fprintf(&buf, "  %s %s\n", cs.Bold("Terminated:"), m.exitReason)
		lines += 2
	}

	buf.WriteByte('\n')
	buf.WriteString(cs.Muted("  q detach  ctrl+c stop"))
	buf.WriteByte('\n')
	lines += 2

	if lines > *m.highWater {
		*m.highWater = lines
	}
	for range *m.highWater - lines {
		buf.WriteByte('\n')
	}

	return buf.String()
}

func renderLoopDashHeader(buf *strings.Builder, cs *iostreams.ColorScheme, backend string, width int) {
	title := "  ━━ Ralph Loop "
	subtitle := fmt.Sprintf(" %s ━━", backend)

	titleRendered := cs.Bold(cs.Blue(title))
	subtitleRendered := cs.Muted(subtitle)

	fillWidth := width - text.CountVisibleWidth(titleRendered) - text.CountVisibleWidth(subtitleRendered)
	if fillWidth < 3 {
		fillWidth = 3
	}

	buf.WriteString(titleRendered)
	buf.WriteString(cs.Muted(strings.Repeat("━", fillWidth)))
	buf.WriteString(subtitleRendered)
	buf.WriteByte('\n')
}

// renderLoopDashSection writes a labeled divider line and returns the
// number of lines written.
func renderLoopDashSection(buf *strings.Builder, cs *iostreams.ColorScheme, label string, width int) int {
	fill := width - text.CountVisibleWidth(label) - 5
	if fill < 3 {
		fill = 3
	}
	buf.WriteString("  ")
	buf.WriteString(cs.Muted("───" + label + strings.Repeat("─", fill)))
	buf.WriteByte('\n')
	return 1
}

func renderActivityEntry(buf *strings.Builder, cs *iostreams.ColorScheme, entry activityEntry) {
	if entry.running {
		fmt.Fprintf(buf, "  %s [%d] %s running...\n",
			cs.Muted("●"), entry.iteration, entry.hatID)
		return
	}

	icon := cs.Green("✓")
	if entry.failed {
		icon = cs.Red("✗")
	}

	detail := ""
	if entry.costUSD > 0 {
		detail = " — " + formatCostUSD(entry.costUSD)
	}
	durStr := ""
	if entry.duration > 0 {
		durStr = fmt.Sprintf(" (%s)", formatElapsed(entry.duration))
	}

	fmt.Fprintf(buf, "  %s [%d] %s %s%s%s\n",
		icon, entry.iteration, entry.hatID, entry.status, detail, durStr)
}

func formatCostUSD(cost float64) string {
	if cost < 0.01 {
		return fmt.Sprintf("$%.4f", cost)
	}
	return fmt.Sprintf("$%.2f", cost)
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d.Seconds())
	switch {
	case secs < 60:
		return fmt.Sprintf("%ds", secs)
	case secs < 3600:
		return fmt.Sprintf("%dm %ds", secs/60, secs%60)
	default:
		return fmt.Sprintf("%dh %dm", secs/3600, (secs%3600)/60)
	}
}

// RunLoopDashboard runs the loop dashboard display, consuming events
// from ch until the channel is closed. Returns when the bubbletea
// program exits.
func RunLoopDashboard(ios *iostreams.IOStreams, cfg LoopDashboardConfig, ch <-chan LoopDashEvent) LoopDashboardResult {
	model := newLoopDashboardModel(ios, cfg, ch)
	finalModel, err := RunProgram(ios, model)
	if err != nil {
		return LoopDashboardResult{Err: fmt.Errorf("display error: %w", err)}
	}

	m, ok := finalModel.(loopDashboardModel)
	if !ok {
		return LoopDashboardResult{Err: fmt.Errorf("unexpected model type")}
	}

	if m.detached {
		return LoopDashboardResult{Detached: true}
	}
	if m.interrupted {
		return LoopDashboardResult{Interrupted: true}
	}
	return LoopDashboardResult{}
}
