package stream

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeToolCall(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Read", `{"file_path":"/src/main.go"}`, "/src/main.go"},
		{"Edit", `{"file_path":"/src/a.go","old_string":"x"}`, "/src/a.go"},
		{"Grep", `{"pattern":"func main"}`, "func main"},
		{"Bash", `{"command":"go test ./..."}`, "go test ./..."},
	}
	for _, tt := range tests {
		got := summarizeToolCall(tt.name, json.RawMessage(tt.input))
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestSummarizeToolCallTruncatesBash(t *testing.T) {
	long := strings.Repeat("x", 200)
	got := summarizeToolCall("Bash", json.RawMessage(`{"command":"`+long+`"}`))
	assert.Len(t, got, bashCommandTruncateLen+3)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestConsoleHandler(t *testing.T) {
	var buf bytes.Buffer
	c := Console{Out: &buf}

	c.OnText("hello ")
	c.OnText("world")
	c.OnToolCall("Read", "t1", json.RawMessage(`{"file_path":"a.go"}`))
	c.OnError("boom")
	c.OnComplete(Summary{Success: true})

	out := buf.String()
	assert.Contains(t, out, "hello world")
	assert.Contains(t, out, "Read: a.go")
	assert.Contains(t, out, "error: boom")
}

func TestPrettyFlushesAtToolBoundary(t *testing.T) {
	var buf bytes.Buffer
	p := &Pretty{Out: &buf}

	p.OnText("buffered text")
	assert.Empty(t, buf.String(), "text must stay buffered until a boundary")

	p.OnToolCall("Bash", "t1", json.RawMessage(`{"command":"ls"}`))
	assert.Contains(t, buf.String(), "buffered text")
	assert.Contains(t, buf.String(), "Bash")

	p.OnText("tail text")
	p.OnComplete(Summary{Success: true, NumTurns: 2})
	assert.Contains(t, buf.String(), "tail text")
	assert.Contains(t, buf.String(), "done")
}

func TestTUIChronologicalBlocks(t *testing.T) {
	h := &TUI{}

	h.OnText("first ")
	h.OnText("chunk")
	h.OnToolCall("Write", "t1", json.RawMessage(`{"file_path":"b.go"}`))
	h.OnText("after tool")
	h.OnError("oops")

	blocks, done, _ := h.Snapshot()
	require.Len(t, blocks, 4)
	assert.False(t, done)

	// Consecutive text coalesces into one block; a tool call freezes it.
	assert.Equal(t, BlockText, blocks[0].Kind)
	assert.Equal(t, "first chunk", blocks[0].Text)
	assert.Equal(t, BlockToolCall, blocks[1].Kind)
	assert.Equal(t, "Write", blocks[1].ToolName)
	assert.Equal(t, BlockText, blocks[2].Kind)
	assert.Equal(t, "after tool", blocks[2].Text)
	assert.Equal(t, BlockError, blocks[3].Kind)
}

func TestTUISnapshotIsACopy(t *testing.T) {
	h := &TUI{}
	h.OnText("a")
	blocks, _, _ := h.Snapshot()
	blocks[0].Text = "mutated"

	fresh, _, _ := h.Snapshot()
	assert.Equal(t, "a", fresh[0].Text)
}

func TestTUIDrainLinesIncremental(t *testing.T) {
	h := &TUI{}
	h.OnText("first\n")
	h.OnToolCall("Bash", "t1", json.RawMessage(`{"command":"ls"}`))

	lines := h.DrainLines()
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "first")
	assert.Contains(t, lines[1], "Bash")

	// Nothing new: nothing re-rendered.
	assert.Empty(t, h.DrainLines())

	// Text arriving after a drain opens a fresh block and is emitted
	// by the next drain, not silently merged into the drained one.
	h.OnText("second")
	lines = h.DrainLines()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "second")
}

func TestTUIDrainLinesStyling(t *testing.T) {
	h := &TUI{}
	h.OnText("plain prose\n# Heading\n\x1b[31malready styled\x1b[0m\n")
	h.OnToolResult("t1", "result line one\nline two")
	h.OnError("boom")

	lines := h.DrainLines()
	require.Len(t, lines, 5)
	assert.Equal(t, "plain prose", lines[0])
	assert.Contains(t, lines[1], "# Heading")
	assert.Equal(t, "\x1b[31malready styled\x1b[0m", lines[2])
	// Bulky tool results are summarized to their first line.
	assert.Contains(t, lines[3], "result line one")
	assert.NotContains(t, lines[3], "line two")
	assert.Contains(t, lines[4], "boom")
}

func TestTUICompletion(t *testing.T) {
	h := &TUI{}
	h.OnComplete(Summary{Success: true, CostUSD: 0.42})
	_, done, final := h.Snapshot()
	assert.True(t, done)
	assert.InDelta(t, 0.42, final.CostUSD, 1e-9)
}

func TestParseNDJSONDispatchesAndExtracts(t *testing.T) {
	lines := []string{
		`{"type":"system","subtype":"init"}`,
		`{"type":"assistant","message":{"content":[{"type":"text","text":"thinking..."}]}}`,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t1","name":"Bash","input":{"command":"ls"}}]}}`,
		`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"t1","content":"a.go\nb.go"}]}}`,
		`{"type":"result","subtype":"success","num_turns":3,"total_cost_usd":0.01,"result":"final answer"}`,
	}

	var buf bytes.Buffer
	text, err := ParseNDJSON(strings.NewReader(strings.Join(lines, "\n")), Console{Out: &buf})
	require.NoError(t, err)
	assert.Equal(t, "final answer", text)
	assert.Contains(t, buf.String(), "thinking...")
	assert.Contains(t, buf.String(), "Bash: ls")
}

func TestParseNDJSONSkipsMalformedLines(t *testing.T) {
	input := "not json at all\n" +
		`{"type":"result","subtype":"success","result":"ok"}` + "\n"
	text, err := ParseNDJSON(strings.NewReader(input), Quiet{})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}

func TestCollectorPlainText(t *testing.T) {
	var buf bytes.Buffer
	c := NewCollector(Console{Out: &buf}, false)

	c.Write([]byte("plain \x1b[31moutput\x1b[0m"))
	c.Finish(true)

	assert.Equal(t, "plain \x1b[31moutput\x1b[0m", c.Raw())
	assert.Equal(t, "plain output", c.Stripped())
	assert.Empty(t, c.Extracted())
}

func TestCollectorNDJSONExtraction(t *testing.T) {
	c := NewCollector(Quiet{}, true)
	c.Write([]byte(`{"type":"result","subtype":"success","result":"extracted text"}` + "\n"))
	c.Finish(true)

	assert.Equal(t, "extracted text", c.Extracted())
}
