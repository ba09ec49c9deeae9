package stream

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ralph-loop/ralph/internal/logger"
)

// eventType discriminates Claude's stream-json top-level events.
type eventType string

const (
	eventSystem    eventType = "system"
	eventAssistant eventType = "assistant"
	eventUser      eventType = "user"
	eventResult    eventType = "result"
)

const resultSubtypeSuccess = "success"

// maxScannerBuffer bounds one NDJSON line (10 MB): large tool results
// (file reads, search results) can produce very long lines.
const maxScannerBuffer = 10 * 1024 * 1024

type contentBlock struct {
	Type string `json:"type"`

	Text string `json:"text,omitempty"`

	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

func (b contentBlock) toolResultText() string {
	if b.Type != "tool_result" || len(b.Content) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(b.Content, &s); err == nil {
		return s
	}
	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(b.Content, &blocks); err == nil {
		var texts []string
		for _, bl := range blocks {
			if bl.Text != "" {
				texts = append(texts, bl.Text)
			}
		}
		return strings.Join(texts, "\n")
	}
	return string(b.Content)
}

type assistantMessage struct {
	Content []contentBlock `json:"content"`
}

type assistantEvent struct {
	Type    eventType        `json:"type"`
	Message assistantMessage `json:"message"`
}

type userEventMessage struct {
	Content []contentBlock `json:"content"`
}

type userEvent struct {
	Type    eventType        `json:"type"`
	Message userEventMessage `json:"message"`
}

type resultEvent struct {
	Type         eventType `json:"type"`
	Subtype      string    `json:"subtype"`
	SessionID    string    `json:"session_id"`
	IsError      bool      `json:"is_error"`
	DurationMS   int       `json:"duration_ms"`
	NumTurns     int       `json:"num_turns"`
	TotalCostUSD float64   `json:"total_cost_usd"`
	Result       string    `json:"result,omitempty"`
	Errors       []string  `json:"errors,omitempty"`
}

func (r resultEvent) combinedText() string {
	if r.Subtype == resultSubtypeSuccess {
		return r.Result
	}
	return strings.Join(r.Errors, "\n")
}

// ParseNDJSON reads Claude's stream-json protocol from r, dispatching
// text, tool_use, and tool_result content blocks to handler as they
// arrive, and returns the final result event's combined text. Malformed
// lines are debug-logged and skipped, matching the protocol's own
// tolerance for forward-incompatible lines; a malformed result event
// (the terminal line) is reported to the handler via OnError and ends
// parsing.
func ParseNDJSON(r io.Reader, handler Handler) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxScannerBuffer)

	var finalText string
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var envelope struct {
			Type eventType `json:"type"`
		}
		if err := json.Unmarshal(line, &envelope); err != nil {
			logger.Debug().Err(err).Int("line_len", len(line)).Msg("skipping malformed stream-json line")
			continue
		}

		switch envelope.Type {
		case eventAssistant:
			var e assistantEvent
			if err := json.Unmarshal(line, &e); err != nil {
				logger.Warn().Err(err).Msg("failed to parse assistant stream-json event")
				continue
			}
			dispatchAssistant(e, handler)

		case eventUser:
			var e userEvent
			if err := json.Unmarshal(line, &e); err != nil {
				logger.Warn().Err(err).Msg("failed to parse user stream-json event")
				continue
			}
			dispatchUser(e, handler)

		case eventResult:
			var e resultEvent
			if err := json.Unmarshal(line, &e); err != nil {
				if handler != nil {
					handler.OnError(fmt.Sprintf("malformed result event: %v", err))
				}
				return finalText, fmt.Errorf("parsing result event: %w", err)
			}
			finalText = e.combinedText()
			if handler != nil {
				handler.OnComplete(Summary{
					SessionID:  e.SessionID,
					DurationMS: e.DurationMS,
					NumTurns:   e.NumTurns,
					CostUSD:    e.TotalCostUSD,
					Success:    e.Subtype == resultSubtypeSuccess && !e.IsError,
					Text:       finalText,
				})
			}
			return finalText, nil

		case eventSystem:
			// init/compact_boundary carry no content to surface through
			// the handler interface.
		}
	}
	if err := scanner.Err(); err != nil {
		return finalText, fmt.Errorf("stream read error: %w", err)
	}
	return finalText, nil
}

func dispatchAssistant(e assistantEvent, handler Handler) {
	if handler == nil {
		return
	}
	for _, block := range e.Message.Content {
		switch block.Type {
		case "text":
			if block.Text != "" {
				handler.OnText(block.Text)
			}
		case "tool_use":
			handler.OnToolCall(block.Name, block.ID, block.Input)
		}
	}
}

func dispatchUser(e userEvent, handler Handler) {
	if handler == nil {
		return
	}
	for _, block := range e.Message.Content {
		if block.Type == "tool_result" {
			handler.OnToolResult(block.ToolUseID, block.toolResultText())
		}
	}
}
