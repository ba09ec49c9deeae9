// Package prompt composes the single prompt string sent to the
// coordinator CLI each iteration, in either solo (no custom hats) or
// multi-hat coordination mode.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ralph-loop/ralph/internal/hat"
	"github.com/ralph-loop/ralph/internal/topic"
)

// DefaultCompletionToken is used when Input.CompletionToken is left
// empty; callers normally pass the configured completion_promise
// instead (see config.DefaultCompletionPromise).
const DefaultCompletionToken = "LOOP_COMPLETE"

// charsPerToken is the ecosystem's common token-length heuristic, used
// to approximate a character budget from a configured token budget.
const charsPerToken = 4

// Memory is one entry from the persistent memories file.
type Memory struct {
	Type    string
	Tags    []string
	Content string
	AgeDays int // days since this memory was written, relative to loop start
}

// MemoryConfig controls the memory-injection prelude.
type MemoryConfig struct {
	Enabled     bool
	InjectAuto  bool
	BudgetTokens int
	RecentDays  int // 0 means unfiltered
	Skill       string // the static "how to use memories" document
}

// Input is everything the composer needs to build one iteration's
// prompt.
type Input struct {
	Registry *hat.Registry

	// ActiveHatID is the hat selected for this iteration; empty in solo
	// mode or when no hat has pending events (topology-table mode).
	ActiveHatID string

	// PendingByHat is every hat's pending events, keyed by hat id;
	// Compose renders the hats in lexicographic id order (see
	// bus.Bus.PendingByHat).
	PendingByHat map[string][]topic.Event

	// Objective is the original user prompt extracted from the in-flight
	// task.start (or task.resume) event's payload, if any.
	Objective string

	// StartingEvent, when non-empty, enables the fast-path coordination
	// workflow: "publish <StartingEvent> immediately" instead of
	// plan→delegate→stop, but only when ScratchpadExists is false.
	StartingEvent    string
	ScratchpadExists bool

	MemoriesEnabled bool
	Memories        []Memory
	MemoryConfig    MemoryConfig

	// CompletionToken is the literal string the agent must emit once its
	// objective is complete. Defaults to DefaultCompletionToken when empty.
	CompletionToken string
}

// Compose builds the full prompt string for one iteration.
func Compose(in Input) string {
	if in.CompletionToken == "" {
		in.CompletionToken = DefaultCompletionToken
	}

	var b strings.Builder

	if in.MemoriesEnabled && in.MemoryConfig.Enabled && in.MemoryConfig.InjectAuto {
		writeMemoryPrelude(&b, in.MemoryConfig, in.Memories)
	}

	if in.Registry == nil || len(in.Registry.CustomHats()) == 0 {
		writeSolo(&b, in)
		return b.String()
	}

	writeMultiHat(&b, in)
	return b.String()
}

func writeMemoryPrelude(b *strings.Builder, cfg MemoryConfig, memories []Memory) {
	if cfg.Skill != "" {
		b.WriteString(cfg.Skill)
		b.WriteString("\n\n")
	}

	var filtered []Memory
	for _, m := range memories {
		if cfg.RecentDays > 0 && m.AgeDays > cfg.RecentDays {
			continue
		}
		filtered = append(filtered, m)
	}

	var content strings.Builder
	content.WriteString("## Memories\n\n")
	for _, m := range filtered {
		content.WriteString(fmt.Sprintf("- [%s] %s\n", m.Type, m.Content))
	}

	budget := cfg.BudgetTokens * charsPerToken
	text := content.String()
	if budget > 0 && len(text) > budget {
		text = text[:budget]
	}

	b.WriteString(text)
	b.WriteString("\n\n")
}

func writeSolo(b *strings.Builder, in Input) {
	b.WriteString("You are Ralph, an autonomous coding agent working in a single continuous loop.\n\n")

	b.WriteString("## Orientation\n\n")
	if in.MemoriesEnabled {
		b.WriteString("Consult your memories and task list before acting; they are your only continuity across iterations.\n\n")
	} else {
		b.WriteString("Consult the specs/ directory and your scratchpad before acting; they are your only continuity across iterations.\n\n")
	}

	b.WriteString("## Workflow\n\n")
	b.WriteString("1. Study the current state of the work.\n")
	b.WriteString("2. Plan the next concrete step.\n")
	b.WriteString("3. Implement it.\n")
	b.WriteString("4. Commit your progress.\n")
	b.WriteString("5. Repeat.\n\n")

	b.WriteString("## Guardrails\n\n")
	b.WriteString("Make one focused change per iteration. Never leave the working tree broken. Never delete work you don't understand.\n\n")

	writeEventWritingSection(b)

	b.WriteString("## Completion\n\n")
	b.WriteString(fmt.Sprintf("When the objective below is fully complete, emit exactly %q and stop.\n\n", in.CompletionToken))
	if in.Objective != "" {
		b.WriteString("OBJECTIVE\n\n")
		b.WriteString(in.Objective)
		b.WriteString("\n")
	}
}

func writeEventWritingSection(b *strings.Builder) {
	b.WriteString("## Emitting events\n\n")
	b.WriteString("Use the events tool CLI to emit events — never `echo` or `cat` to the events file directly. Keep payloads brief: a single sentence or a short list. Stop working immediately after publishing an event.\n\n")
}

func writeMultiHat(b *strings.Builder, in Input) {
	if in.Objective != "" {
		b.WriteString("OBJECTIVE\n\n")
		b.WriteString(in.Objective)
		b.WriteString("\n\n")
	}

	writePendingEvents(b, in.PendingByHat)

	if in.ActiveHatID != "" {
		writeActiveHatBlock(b, in)
	} else {
		writeTopologyTable(b, in.Registry)
	}

	writeCoordinationWorkflow(b, in)
	writeEventWritingSection(b)

	b.WriteString("## Completion\n\n")
	b.WriteString(fmt.Sprintf("Emit %q only once the overall objective is fully satisfied.\n\n", in.CompletionToken))
	if in.Objective != "" {
		b.WriteString("OBJECTIVE (restated)\n\n")
		b.WriteString(in.Objective)
		b.WriteString("\n")
	}
}

func writePendingEvents(b *strings.Builder, pendingByHat map[string][]topic.Event) {
	b.WriteString("PENDING EVENTS\n\n")

	ids := make([]string, 0, len(pendingByHat))
	for id := range pendingByHat {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if len(ids) == 0 {
		b.WriteString("(none)\n\n")
		return
	}

	for _, id := range ids {
		for _, e := range pendingByHat[id] {
			payload := e.Payload
			if e.Topic == topic.TaskStart || e.Topic == topic.TaskResume {
				payload = "<top-level-prompt>" + payload + "</top-level-prompt>"
			}
			b.WriteString(fmt.Sprintf("- [%s] %s: %s\n", id, e.Topic, payload))
		}
	}
	b.WriteString("\n")
}

func writeActiveHatBlock(b *strings.Builder, in Input) {
	active, ok := in.Registry.Get(in.ActiveHatID)
	if !ok {
		return
	}

	b.WriteString("ACTIVE HAT\n\n")
	b.WriteString(active.Instructions)
	b.WriteString("\n\n")

	b.WriteString("## Event Publishing Guide\n\n")
	for _, p := range active.Publishes {
		receivers := in.Registry.GetForTopic(p)
		var names []string
		for _, h := range receivers {
			names = append(names, h.ID)
		}
		if len(names) == 0 {
			names = []string{"(no subscriber)"}
		}
		b.WriteString(fmt.Sprintf("- %s -> %s\n", p, strings.Join(names, ", ")))
	}
	b.WriteString("\n")
}

func writeTopologyTable(b *strings.Builder, r *hat.Registry) {
	if r == nil {
		return
	}

	b.WriteString("## Hat Topology\n\n")
	b.WriteString("| Hat | Triggers | Publishes |\n")
	b.WriteString("|---|---|---|\n")
	for _, h := range r.CustomHats() {
		b.WriteString(fmt.Sprintf("| %s | %s | %s |\n", h.ID, joinTopics(h.Subscriptions), joinTopics(h.Publishes)))
	}
	b.WriteString(fmt.Sprintf("| Ralph | %s | %s |\n\n", joinTopics(r.DerivedTriggers()), joinTopics(r.DerivedPublishes())))

	b.WriteString("```mermaid\nflowchart LR\n")
	for _, h := range r.CustomHats() {
		for _, p := range h.Publishes {
			for _, receiver := range r.GetForTopic(p) {
				b.WriteString(fmt.Sprintf("  %s -->|%s| %s\n", h.ID, p, receiver.ID))
			}
		}
	}
	b.WriteString("```\n\n")
}

func joinTopics(ts []topic.Topic) string {
	strs := make([]string, len(ts))
	for i, t := range ts {
		strs[i] = string(t)
	}
	return strings.Join(strs, ", ")
}

func writeCoordinationWorkflow(b *strings.Builder, in Input) {
	b.WriteString("## Workflow\n\n")
	if in.StartingEvent != "" && !in.ScratchpadExists {
		b.WriteString(fmt.Sprintf("This is a fresh start: publish `%s` immediately and stop.\n\n", in.StartingEvent))
		return
	}
	b.WriteString("1. Plan which hat should act next.\n")
	b.WriteString("2. Delegate by publishing exactly one event.\n")
	b.WriteString("3. Stop. Do not implement the work yourself.\n\n")
}
