package stream

import (
	"encoding/json"
	"io"
	"regexp"
	"strings"
	"sync"
)

// ansiEscape matches terminal control sequences (CSI and OSC forms) so
// Collector can produce a plain-text view of a PTY's raw output
// alongside the untouched bytes.
var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]|\x1b\][^\x07]*\x07|\x1b[()][AB012]`)

func stripANSI(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}

// Collector accumulates a PTY subprocess's raw output, feeding it
// either straight to Handler as plain text or through ParseNDJSON when
// the backend speaks Claude's stream-json protocol, and exposes the
// three views a run's Result needs: the untouched bytes, an
// ANSI-stripped text view, and (for NDJSON backends) the extracted
// final result text.
type Collector struct {
	handler Handler
	isJSON  bool

	mu         sync.Mutex
	raw        strings.Builder
	pipeW      *io.PipeWriter
	pipeDone   chan struct{}
	extracted  string
	gotComplete bool
}

// NewCollector builds a Collector that dispatches to handler (which may
// be nil) as bytes arrive via Write. When isJSON is true, bytes are fed
// through ParseNDJSON on a background goroutine; otherwise each Write
// is forwarded to handler.OnText directly after ANSI stripping.
func NewCollector(handler Handler, isJSON bool) *Collector {
	c := &Collector{handler: handler, isJSON: isJSON}
	if isJSON {
		r, w := io.Pipe()
		c.pipeW = w
		c.pipeDone = make(chan struct{})
		go func() {
			defer close(c.pipeDone)
			text, err := ParseNDJSON(r, completionTracker{inner: handler, done: &c.gotComplete})
			if err != nil && handler != nil {
				handler.OnError(err.Error())
			}
			c.mu.Lock()
			c.extracted = text
			c.mu.Unlock()
		}()
	}
	return c
}

// completionTracker wraps a Handler (which may be nil) to record
// whether OnComplete fired, so Finish can synthesize one for NDJSON
// streams that end (process exit, idle timeout, interrupt) before a
// result event arrives.
type completionTracker struct {
	inner Handler
	done  *bool
}

func (t completionTracker) OnText(text string) {
	if t.inner != nil {
		t.inner.OnText(text)
	}
}

func (t completionTracker) OnToolCall(name, id string, input json.RawMessage) {
	if t.inner != nil {
		t.inner.OnToolCall(name, id, input)
	}
}

func (t completionTracker) OnToolResult(id, output string) {
	if t.inner != nil {
		t.inner.OnToolResult(id, output)
	}
}

func (t completionTracker) OnError(msg string) {
	if t.inner != nil {
		t.inner.OnError(msg)
	}
}

func (t completionTracker) OnComplete(summary Summary) {
	*t.done = true
	if t.inner != nil {
		t.inner.OnComplete(summary)
	}
}

// Write records one chunk of raw PTY output.
func (c *Collector) Write(chunk []byte) {
	c.mu.Lock()
	c.raw.Write(chunk)
	c.mu.Unlock()

	if c.isJSON {
		// PipeWriter.Write blocks until ParseNDJSON's scanner consumes
		// it; safe here because the only caller (ptyexec's run loop)
		// does so from its own goroutine, not the PTY reader goroutine.
		_, _ = c.pipeW.Write(chunk)
		return
	}
	if c.handler != nil {
		c.handler.OnText(stripANSI(string(chunk)))
	}
}

// Finish closes out the run: for NDJSON backends it closes the pipe so
// ParseNDJSON reaches EOF and waits for it to drain, then (if no result
// event supplied a completion) synthesizes one from success so
// handler.OnComplete always fires exactly once.
func (c *Collector) Finish(success bool) {
	if c.isJSON {
		c.pipeW.Close()
		<-c.pipeDone
		if !c.gotComplete && c.handler != nil {
			c.handler.OnComplete(Summary{Success: success, Text: c.Stripped()})
		}
		return
	}
	if c.handler != nil {
		c.handler.OnComplete(Summary{Success: success, Text: c.Stripped()})
	}
}

// Raw returns the untouched bytes written so far, as a string.
func (c *Collector) Raw() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.raw.String()
}

// Stripped returns Raw with terminal control sequences removed.
func (c *Collector) Stripped() string {
	return stripANSI(c.Raw())
}

// Extracted returns the NDJSON result event's combined text, or "" for
// non-JSON runs or runs that never reached a result event.
func (c *Collector) Extracted() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.extracted
}
