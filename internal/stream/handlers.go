package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ralph-loop/ralph/internal/tui"
)

// toolSummaryField maps a tool name to the input field whose value best
// summarizes the call for a one-line log: Read/Edit/Write report the
// file they touch, Grep/Glob report the pattern they search for. Tools
// absent from this table fall back to the raw input.
var toolSummaryField = map[string]string{
	"Read":  "file_path",
	"Edit":  "file_path",
	"Write": "file_path",
	"Grep":  "pattern",
	"Glob":  "pattern",
}

const bashCommandTruncateLen = 80

// summarizeToolCall renders a one-line human summary of a tool_use
// block's input, using toolSummaryField's per-tool field or, for Bash,
// a truncated command string.
func summarizeToolCall(name string, input json.RawMessage) string {
	if name == "Bash" {
		var args struct {
			Command string `json:"command"`
		}
		if json.Unmarshal(input, &args) == nil && args.Command != "" {
			cmd := args.Command
			if len(cmd) > bashCommandTruncateLen {
				cmd = cmd[:bashCommandTruncateLen] + "..."
			}
			return cmd
		}
	}
	if field, ok := toolSummaryField[name]; ok {
		var generic map[string]json.RawMessage
		if json.Unmarshal(input, &generic) == nil {
			if raw, ok := generic[field]; ok {
				var s string
				if json.Unmarshal(raw, &s) == nil {
					return s
				}
			}
		}
	}
	if len(input) > bashCommandTruncateLen {
		return string(input[:bashCommandTruncateLen]) + "..."
	}
	return string(input)
}

// Quiet discards everything. Used when a backend run's output is only
// needed for its final extracted text, never for display.
type Quiet struct{}

func (Quiet) OnText(string)                             {}
func (Quiet) OnToolCall(string, string, json.RawMessage) {}
func (Quiet) OnToolResult(string, string)               {}
func (Quiet) OnError(string)                            {}
func (Quiet) OnComplete(Summary)                        {}

// Console writes assistant text straight to an io.Writer and logs a
// one-line summary per tool call, matching a plain CLI's scrollback.
type Console struct {
	Out io.Writer
}

func (c Console) OnText(text string) {
	fmt.Fprint(c.Out, text)
}

func (c Console) OnToolCall(name, id string, input json.RawMessage) {
	fmt.Fprintf(c.Out, "\n→ %s: %s\n", name, summarizeToolCall(name, input))
}

func (c Console) OnToolResult(id, output string) {}

func (c Console) OnError(msg string) {
	fmt.Fprintf(c.Out, "\nerror: %s\n", msg)
}

func (c Console) OnComplete(summary Summary) {
	fmt.Fprintln(c.Out)
}

// Pretty buffers assistant text and flushes it with lipgloss styling at
// each tool call boundary and on completion, so text doesn't interleave
// awkwardly with tool-call banners.
type Pretty struct {
	Out io.Writer

	mu  sync.Mutex
	buf strings.Builder
}

func (p *Pretty) OnText(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buf.WriteString(text)
}

func (p *Pretty) flushLocked() {
	if p.buf.Len() == 0 {
		return
	}
	fmt.Fprintln(p.Out, p.buf.String())
	p.buf.Reset()
}

func (p *Pretty) OnToolCall(name, id string, input json.RawMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flushLocked()
	banner := tui.HighlightStyle.Render(fmt.Sprintf("▸ %s", name))
	fmt.Fprintf(p.Out, "%s %s\n", banner, tui.MutedStyle.Render(summarizeToolCall(name, input)))
}

func (p *Pretty) OnToolResult(id, output string) {}

func (p *Pretty) OnError(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flushLocked()
	fmt.Fprintln(p.Out, tui.ErrorStyle.Render("✗ "+msg))
}

func (p *Pretty) OnComplete(summary Summary) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flushLocked()
	status := tui.SuccessStyle.Render("done")
	if !summary.Success {
		status = tui.ErrorStyle.Render("failed")
	}
	fmt.Fprintf(p.Out, "%s (%d turns, $%.4f)\n", status, summary.NumTurns, summary.CostUSD)
}

// BlockKind discriminates the chronological entries a TUI handler
// buffers for display.
type BlockKind int

const (
	BlockText BlockKind = iota
	BlockToolCall
	BlockToolResult
	BlockError
)

// Block is one chronologically ordered unit of a run's transcript, as
// rendered by a TUI view.
type Block struct {
	Kind    BlockKind
	Text    string
	ToolID  string
	ToolName string
}

// TUI accumulates a mutex-protected, chronologically ordered block
// buffer for a bubbletea view to poll and render; unlike Console and
// Pretty it never writes directly to a stream.
type TUI struct {
	mu       sync.Mutex
	blocks   []Block
	rendered int // blocks already emitted by DrainLines
	done     bool
	final    Summary
}

func (t *TUI) OnText(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	// Coalesce into the trailing text block — unless DrainLines already
	// emitted it, in which case the new text opens a fresh block so it
	// is not lost from the feed.
	if n := len(t.blocks); n > t.rendered && t.blocks[n-1].Kind == BlockText {
		t.blocks[n-1].Text += text
		return
	}
	t.blocks = append(t.blocks, Block{Kind: BlockText, Text: text})
}

func (t *TUI) OnToolCall(name, id string, input json.RawMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.blocks = append(t.blocks, Block{
		Kind:     BlockToolCall,
		Text:     summarizeToolCall(name, input),
		ToolID:   id,
		ToolName: name,
	})
}

func (t *TUI) OnToolResult(id, output string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.blocks = append(t.blocks, Block{Kind: BlockToolResult, Text: output, ToolID: id})
}

func (t *TUI) OnError(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.blocks = append(t.blocks, Block{Kind: BlockError, Text: msg})
}

func (t *TUI) OnComplete(summary Summary) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
	t.final = summary
}

// Snapshot returns a copy of the current block buffer and completion
// state, safe to call from a bubbletea update loop on a different
// goroutine than the one feeding OnText/OnToolCall/etc.
func (t *TUI) Snapshot() ([]Block, bool, Summary) {
	t.mu.Lock()
	defer t.mu.Unlock()
	blocks := make([]Block, len(t.blocks))
	copy(blocks, t.blocks)
	return blocks, t.done, t.final
}

// DrainLines renders every block appended since the previous call as
// display lines, walking blocks in insertion order so text and tool
// calls interleave exactly as they arrived. Text already carrying ANSI
// sequences passes through untouched; plain text and tool/error blocks
// are styled here.
func (t *TUI) DrainLines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var lines []string
	for _, b := range t.blocks[t.rendered:] {
		lines = append(lines, renderBlock(b)...)
	}
	t.rendered = len(t.blocks)
	return lines
}

func renderBlock(b Block) []string {
	switch b.Kind {
	case BlockToolCall:
		return []string{tui.HighlightStyle.Render("▸ "+b.ToolName) + " " + tui.MutedStyle.Render(b.Text)}
	case BlockToolResult:
		// Results are usually bulky; the feed shows only their first line.
		if first := firstNonEmptyLine(b.Text); first != "" {
			return []string{tui.MutedStyle.Render("  " + first)}
		}
		return nil
	case BlockError:
		return []string{tui.ErrorStyle.Render("✗ " + b.Text)}
	default:
		var out []string
		for _, line := range strings.Split(strings.TrimRight(b.Text, "\n"), "\n") {
			if line == "" {
				continue
			}
			if strings.Contains(line, "\x1b[") {
				// Already styled by the producer; pass through.
				out = append(out, line)
				continue
			}
			if strings.HasPrefix(line, "#") {
				out = append(out, tui.HighlightStyle.Render(line))
				continue
			}
			out = append(out, line)
		}
		return out
	}
}

func firstNonEmptyLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
