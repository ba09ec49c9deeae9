// Package topic defines the event-routing vocabulary shared by the
// event bus, hat registry, and scheduler: topics, events, and the set
// of topics reserved for the orchestrator itself.
package topic

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var errMissingTopic = errors.New("event line has no topic")

// Topic is an opaque, dotted-segment string such as "build.done" or
// "review.changes_requested". The wildcard "*" matches every topic.
type Topic string

const (
	// TaskStart is published when a loop begins a fresh objective.
	TaskStart Topic = "task.start"
	// TaskResume is published when a loop resumes an existing objective,
	// or as the payload of an injected fallback event.
	TaskResume Topic = "task.resume"
	// LoopTerminate is an observer-only event; no hat may subscribe to it.
	LoopTerminate Topic = "loop.terminate"
	// EventMalformed is synthesized for each unparsable JSONL line.
	EventMalformed Topic = "event.malformed"
	// EventOrphaned is reserved for the orchestrator. Nothing publishes
	// it: the bus drops an event whose target names no registered hat.
	EventOrphaned Topic = "event.orphaned"

	// Wildcard matches every topic; only the "ralph" hat subscribes to it.
	Wildcard Topic = "*"

	// BuildDone and BuildBlocked drive the build.done backpressure rule.
	BuildDone    Topic = "build.done"
	BuildBlocked Topic = "build.blocked"
	// BuildTaskAbandoned is synthesized on the third build.blocked for one task id.
	BuildTaskAbandoned Topic = "build.task.abandoned"
)

// reserved holds topics a custom hat may never declare as a trigger.
// task.start and task.resume are the orchestrator's own entry points;
// the rest are synthesized by the scheduler and would create routing
// ambiguity if claimed.
var reserved = map[Topic]bool{
	TaskStart:      true,
	TaskResume:     true,
	LoopTerminate:  true,
	EventMalformed: true,
	EventOrphaned:  true,
}

// Reserved reports whether t is reserved for the orchestrator.
func Reserved(t Topic) bool {
	return reserved[t]
}

// IsExhaustedTopic reports whether t is a synthesized "<hat>.exhausted"
// topic for the given hat id.
func ExhaustedTopic(hatID string) Topic {
	return Topic(hatID + ".exhausted")
}

// Matches reports whether the subscription pattern p matches topic t.
// The only pattern supported beyond exact equality is the universal
// wildcard "*"; dotted segments are otherwise compared verbatim (the
// system has no need for "build.*"-style segment globs — hats declare
// the exact topics they care about).
func Matches(pattern, t Topic) bool {
	if pattern == Wildcard {
		return true
	}
	return pattern == t
}

// Event is the value object carried on the bus: a topic, a string
// payload, optional source/target hat ids, and a timestamp. Ownership
// passes from publisher to bus to consumer; nothing else retains a
// reference to a published Event.
type Event struct {
	Topic     Topic     `json:"topic"`
	Payload   string    `json:"payload"`
	Source    string    `json:"source,omitempty"`
	Target    string    `json:"target,omitempty"`
	Timestamp time.Time `json:"ts"`
}

// eventWire mirrors Event with the payload left raw: producers may
// write the payload as a string (the common case), an object, or null,
// and all three must parse. Object payloads are carried as their
// compact JSON text.
type eventWire struct {
	Topic     Topic           `json:"topic"`
	Payload   json.RawMessage `json:"payload"`
	Source    string          `json:"source,omitempty"`
	Target    string          `json:"target,omitempty"`
	Timestamp time.Time       `json:"ts"`
}

// UnmarshalJSON decodes one event line, tolerating string, object, and
// null payload forms.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w eventWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Topic == "" {
		return errMissingTopic
	}
	e.Topic = w.Topic
	e.Source = w.Source
	e.Target = w.Target
	e.Timestamp = w.Timestamp

	switch {
	case len(w.Payload) == 0 || string(w.Payload) == "null":
		e.Payload = ""
	case w.Payload[0] == '"':
		return json.Unmarshal(w.Payload, &e.Payload)
	default:
		e.Payload = string(w.Payload)
	}
	return nil
}

// FirstLine returns the first non-empty line of the payload, used to
// extract a task id from a build.blocked payload.
func (e Event) FirstLine() string {
	for _, line := range strings.Split(e.Payload, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}

// New constructs an Event stamped with the current time.
func New(t Topic, payload string) Event {
	return Event{Topic: t, Payload: payload, Timestamp: time.Now()}
}

// WithSource returns a copy of e with Source set.
func (e Event) WithSource(hatID string) Event {
	e.Source = hatID
	return e
}

// WithTarget returns a copy of e with Target set.
func (e Event) WithTarget(hatID string) Event {
	e.Target = hatID
	return e
}
