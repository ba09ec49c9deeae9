// Package stream defines the Handler capability that the PTY executor
// drives as a backend subprocess's output arrives, plus the NDJSON
// wire-format parser for backends whose OutputFormat is StreamJSON
// (Claude's --output-format stream-json protocol) and four concrete
// handler implementations: Quiet, Console, Pretty, and TUI.
package stream

import "encoding/json"

// Summary is what a backend reports at the end of a run, surfaced to
// OnComplete.
type Summary struct {
	SessionID  string
	DurationMS int
	NumTurns   int
	CostUSD    float64
	Success    bool
	Text       string
}

// Handler receives a backend's streamed output as it is parsed. Every
// method is side-effect-only; implementations never return a value the
// executor depends on.
type Handler interface {
	OnText(text string)
	OnToolCall(name, id string, input json.RawMessage)
	OnToolResult(id, output string)
	OnError(msg string)
	OnComplete(summary Summary)
}
