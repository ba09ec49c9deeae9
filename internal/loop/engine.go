// Package loop implements the event-loop scheduler: the state-bearing
// object that decides which hat runs next, builds its prompt, applies
// backpressure and thrashing detection to incoming events, and decides
// when the run terminates.
package loop

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ralph-loop/ralph/internal/bus"
	"github.com/ralph-loop/ralph/internal/config"
	"github.com/ralph-loop/ralph/internal/eventlog"
	"github.com/ralph-loop/ralph/internal/hat"
	"github.com/ralph-loop/ralph/internal/logger"
	"github.com/ralph-loop/ralph/internal/prompt"
	"github.com/ralph-loop/ralph/internal/topic"
)

// terminateObserversOnly is an unregistered target hat id: publishing
// with this target delivers to observers but is never enqueued for any
// hat, since no hat ever registers under this id.
const terminateObserversOnly = "__loop_terminate__"

// State is the scheduler's run-scoped counters. All fields are
// monotonic except the consecutive_* counters, which reset on
// unambiguous progress signals.
type State struct {
	Iteration                  int
	ConsecutiveFailures        int
	ConsecutiveBlocked         int
	ConsecutiveMalformedEvents int
	ConsecutiveFallbacks       int
	CumulativeCost             float64
	LastHat                    string
	HatActivationCounts        map[string]int
	ExhaustedHats              map[string]bool
	TaskBlockCounts            map[string]int
	AbandonedTasks             []string
	StartInstant               time.Time
}

// Scheduler is the event-loop's state-bearing coordinator. It owns no
// I/O of its own: the driver feeds it subprocess output and reads its
// decisions back out.
type Scheduler struct {
	cfg      *config.Config
	registry *hat.Registry
	bus      *bus.Bus
	reader   *eventlog.Reader

	solo      bool
	objective string

	// lastActiveHat is the custom hat selected by the most recent
	// BuildPrompt call, if any; the driver uses it for display and for
	// the default-publishes fallback.
	lastActiveHat string

	State State
}

// ActiveHatID returns the custom hat activated by the most recent
// BuildPrompt call, or "" when none was active (solo mode or
// topology-table mode).
func (s *Scheduler) ActiveHatID() string { return s.lastActiveHat }

// Solo reports whether the scheduler runs without custom hats.
func (s *Scheduler) Solo() bool { return s.solo }

// Registry exposes the hat registry the scheduler routes against.
func (s *Scheduler) Registry() *hat.Registry { return s.registry }

// Bus exposes the event bus, for observer registration by the driver.
func (s *Scheduler) Bus() *bus.Bus { return s.bus }

// Objective returns the persistent objective stored by Initialize.
func (s *Scheduler) Objective() string { return s.objective }

// New constructs a Scheduler, registering every hat in registry
// (including the synthetic "ralph" coordinator) with the bus.
func New(cfg *config.Config, registry *hat.Registry, b *bus.Bus, reader *eventlog.Reader) *Scheduler {
	for _, h := range registry.All() {
		b.Register(h)
	}
	return &Scheduler{
		cfg:      cfg,
		registry: registry,
		bus:      b,
		reader:   reader,
		solo:     len(registry.CustomHats()) == 0,
		State: State{
			HatActivationCounts: make(map[string]int),
			ExhaustedHats:       make(map[string]bool),
			TaskBlockCounts:     make(map[string]int),
		},
	}
}

// Initialize stores promptContent as the persistent objective and
// publishes the run's entry event: task.start for a fresh run,
// task.resume when resume is true, or the configured starting_event
// override when one is set.
func (s *Scheduler) Initialize(now time.Time, promptContent string, resume bool) {
	s.State.StartInstant = now
	s.objective = promptContent

	t := topic.TaskStart
	if resume {
		t = topic.TaskResume
	}
	if s.cfg.EventLoop.StartingEvent != "" {
		t = topic.Topic(s.cfg.EventLoop.StartingEvent)
	}
	s.bus.Publish(topic.Event{Topic: t, Payload: promptContent, Timestamp: now})
}

// CheckTermination reports whether any limit has been breached.
func (s *Scheduler) CheckTermination(now time.Time) (TerminationReason, bool) {
	el := s.cfg.EventLoop

	if el.MaxIterations > 0 && s.State.Iteration >= el.MaxIterations {
		return MaxIterations, true
	}
	if el.MaxRuntimeSeconds > 0 && now.Sub(s.State.StartInstant) >= el.MaxRuntime() {
		return MaxRuntime, true
	}
	if el.MaxCostUSD != nil && s.State.CumulativeCost >= *el.MaxCostUSD {
		return MaxCost, true
	}
	if el.MaxConsecutiveFailures > 0 && s.State.ConsecutiveFailures >= el.MaxConsecutiveFailures {
		return ConsecutiveFailures, true
	}
	if s.State.ConsecutiveMalformedEvents >= 3 {
		return ValidationFailure, true
	}
	for _, count := range s.State.TaskBlockCounts {
		if count >= 3 {
			return LoopThrashing, true
		}
	}
	return "", false
}

// NextHat returns the hat that should execute this iteration. In solo
// mode that is "ralph" whenever it has pending events; in multi-hat
// mode it is always "ralph" whenever ANY hat has pending events, since
// ralph is the sole executor. It returns ok=false only when every
// queue is empty.
func (s *Scheduler) NextHat() (string, bool) {
	if s.solo {
		if s.bus.HasPending(hat.RalphID) {
			return hat.RalphID, true
		}
		return "", false
	}
	if _, ok := s.bus.NextHatWithPending(); ok {
		return hat.RalphID, true
	}
	return "", false
}

// BuildPromptInput carries the collaborators BuildPrompt needs beyond
// the scheduler's own state: the memory-injection prelude inputs and
// whether the scratchpad file exists yet (for the fast-path workflow).
type BuildPromptInput struct {
	Memories         []prompt.Memory
	MemoryConfig     prompt.MemoryConfig
	ScratchpadExists bool
}

// BuildPrompt drains hatID's pending events (or every hat's, when
// hatID is "ralph"), computes the active-hat set, applies the
// max_activations exhaustion rule, and hands the result to the prompt
// composer. It returns ok=false when there is nothing to drain.
func (s *Scheduler) BuildPrompt(hatID string, in BuildPromptInput) (string, bool) {
	drained := s.drain(hatID)
	if len(drained) == 0 {
		return "", false
	}

	activeIDs := s.activeHats(drained)
	activeIDs = s.applyExhaustion(activeIDs, drained)

	var sorted []string
	for id := range activeIDs {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	var activeHatID string
	if len(sorted) > 0 {
		activeHatID = sorted[0]
	}
	s.lastActiveHat = activeHatID

	composed := prompt.Compose(prompt.Input{
		Registry:         s.registry,
		ActiveHatID:      activeHatID,
		PendingByHat:     drained,
		Objective:        s.objective,
		StartingEvent:    s.cfg.EventLoop.StartingEvent,
		ScratchpadExists: in.ScratchpadExists,
		MemoriesEnabled:  s.cfg.Memories.Enabled,
		Memories:         in.Memories,
		MemoryConfig:     in.MemoryConfig,
		CompletionToken:  s.cfg.EventLoop.CompletionPromise,
	})
	return composed, true
}

// drain removes and returns the pending events for hatID, or for every
// registered hat (in registration order) when hatID is the ralph id.
func (s *Scheduler) drain(hatID string) map[string][]topic.Event {
	drained := make(map[string][]topic.Event)
	if hatID == hat.RalphID {
		for _, h := range s.registry.All() {
			if evs := s.bus.TakePending(h.ID); len(evs) > 0 {
				drained[h.ID] = evs
			}
		}
		return drained
	}
	if evs := s.bus.TakePending(hatID); len(evs) > 0 {
		drained[hatID] = evs
	}
	return drained
}

// activeHats returns the set of custom hat ids whose subscriptions
// match at least one drained event.
func (s *Scheduler) activeHats(drained map[string][]topic.Event) map[string]bool {
	active := make(map[string]bool)
	for _, h := range s.registry.CustomHats() {
		for _, evs := range drained {
			for _, e := range evs {
				if h.Subscribes(e.Topic) {
					active[h.ID] = true
				}
			}
		}
	}
	return active
}

// applyExhaustion increments each active hat's activation count and,
// for any hat that exceeds its configured max_activations, drops the
// events that would have activated it, synthesizes a one-time
// "<hat>.exhausted" event listing the dropped topics, and removes the
// hat from the active set.
func (s *Scheduler) applyExhaustion(active map[string]bool, drained map[string][]topic.Event) map[string]bool {
	var ids []string
	for id := range active {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		h, _ := s.registry.Get(id)
		s.State.HatActivationCounts[id]++
		if h.MaxActivations <= 0 || s.State.HatActivationCounts[id] <= h.MaxActivations {
			continue
		}

		dropped := dropMatching(drained, h)
		if !s.State.ExhaustedHats[id] {
			s.State.ExhaustedHats[id] = true
			s.bus.Publish(topic.New(topic.ExhaustedTopic(id), renderDroppedTopics(dropped)))
		}
		delete(active, id)
	}
	return active
}

// dropMatching removes, from every hat's drained queue, the events
// matching h's subscriptions, and returns the topics that were
// dropped.
func dropMatching(drained map[string][]topic.Event, h hat.Hat) []topic.Topic {
	var dropped []topic.Topic
	for id, evs := range drained {
		var kept []topic.Event
		for _, e := range evs {
			if h.Subscribes(e.Topic) {
				dropped = append(dropped, e.Topic)
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(drained, id)
		} else {
			drained[id] = kept
		}
	}
	return dropped
}

func renderDroppedTopics(dropped []topic.Topic) string {
	strs := make([]string, len(dropped))
	for i, t := range dropped {
		strs[i] = string(t)
	}
	return "dropped (hat exhausted): " + strings.Join(strs, ", ")
}

// AddCost accrues one iteration's reported spend toward the
// max_cost_usd limit.
func (s *Scheduler) AddCost(usd float64) {
	if usd > 0 {
		s.State.CumulativeCost += usd
	}
}

// InjectFallbackEvent publishes a synthetic task.resume event when
// NextHat would otherwise return nothing, targeted at the last custom
// hat to preserve its context or at the coordinator if none. It caps
// consecutive fallbacks at 3 to avoid livelock.
func (s *Scheduler) InjectFallbackEvent(now time.Time) bool {
	if s.State.ConsecutiveFallbacks >= 3 {
		return false
	}
	e := topic.Event{
		Topic:     topic.TaskResume,
		Payload:   "No hat has pending work; resuming from the last known state.",
		Timestamp: now,
	}
	if s.State.LastHat != "" && s.State.LastHat != hat.RalphID {
		e = e.WithTarget(s.State.LastHat)
	}
	s.bus.Publish(e)
	s.State.ConsecutiveFallbacks++
	return true
}

// ProcessOutput records one completed iteration and reports whether it
// terminates the run: CompletionPromise when hatID is ralph and output
// contains the configured completion token, otherwise whatever
// CheckTermination reports.
func (s *Scheduler) ProcessOutput(hatID, output string, success bool, now time.Time) (TerminationReason, bool) {
	s.State.Iteration++
	s.State.LastHat = hatID

	if success {
		s.State.ConsecutiveFailures = 0
	} else {
		s.State.ConsecutiveFailures++
	}

	if hatID == hat.RalphID && strings.Contains(output, s.cfg.EventLoop.CompletionPromise) {
		return CompletionPromise, true
	}
	return s.CheckTermination(now)
}

// ProcessEventsFromJSONL consumes newly appended JSONL lines, applies
// the build.done backpressure rule and build.blocked thrashing
// detection to each parsed event, and surfaces malformed lines as
// event.malformed events. It returns whether anything new was read.
func (s *Scheduler) ProcessEventsFromJSONL(now time.Time) (bool, error) {
	events, malformed, err := s.reader.ReadNew()
	if err != nil {
		return false, err
	}

	for _, m := range malformed {
		s.State.ConsecutiveMalformedEvents++
		s.bus.Publish(topic.Event{Topic: topic.EventMalformed, Payload: m.Error(), Timestamp: now})
	}

	for _, e := range events {
		s.State.ConsecutiveMalformedEvents = 0
		s.State.ConsecutiveFallbacks = 0
		s.routeWithBackpressure(e)
	}

	return len(events) > 0 || len(malformed) > 0, nil
}

// routeWithBackpressure applies the build.done/build.blocked rules
// before handing e to the bus.
func (s *Scheduler) routeWithBackpressure(e topic.Event) {
	if e.Topic == topic.BuildDone && !hasPassingChecks(e.Payload) {
		s.routeWithBackpressure(topic.Event{
			Topic:     topic.BuildBlocked,
			Payload:   remedialMessage(e.Payload),
			Source:    e.Source,
			Timestamp: e.Timestamp,
		})
		return
	}

	if e.Topic != topic.BuildBlocked {
		s.State.ConsecutiveBlocked = 0
		s.bus.Publish(e)
		return
	}

	s.State.ConsecutiveBlocked++
	taskID := e.FirstLine()
	s.State.TaskBlockCounts[taskID]++
	if s.State.TaskBlockCounts[taskID] == 3 && !contains(s.State.AbandonedTasks, taskID) {
		s.State.AbandonedTasks = append(s.State.AbandonedTasks, taskID)
		s.bus.Publish(topic.Event{Topic: topic.BuildTaskAbandoned, Payload: taskID, Timestamp: e.Timestamp})
	}
	s.bus.Publish(e)
}

var passingTokens = []string{"tests: pass", "lint: pass", "typecheck: pass"}

func hasPassingChecks(payload string) bool {
	for _, tok := range passingTokens {
		if !strings.Contains(payload, tok) {
			return false
		}
	}
	return true
}

func remedialMessage(payload string) string {
	return fmt.Sprintf("build.done rejected: missing a passing tests/lint/typecheck token. Original payload: %s", payload)
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// ApplyDefaultPublish synthesizes h's configured default_publishes
// event when its subprocess run produced no new JSONL lines at all.
func (s *Scheduler) ApplyDefaultPublish(h hat.Hat, lineCountBefore, lineCountAfter int, now time.Time) {
	if lineCountAfter != lineCountBefore || h.DefaultPublish == "" {
		return
	}
	s.bus.Publish(topic.Event{Topic: h.DefaultPublish, Source: h.ID, Timestamp: now})
}

// PublishTerminateEvent emits an observer-only loop.terminate event;
// no hat is ever registered under its target id, so it is delivered to
// observers but never enqueued.
func (s *Scheduler) PublishTerminateEvent(reason TerminationReason, now time.Time) {
	duration := now.Sub(s.State.StartInstant)
	payload := fmt.Sprintf(
		"reason=%s iterations=%d duration=%s exit_code=%d",
		reason, s.State.Iteration, duration.Round(time.Second), reason.ExitCode(),
	)
	s.bus.Publish(topic.Event{
		Topic:     topic.LoopTerminate,
		Payload:   payload,
		Target:    terminateObserversOnly,
		Timestamp: now,
	})
	logger.Info().Str("reason", string(reason)).Int("iterations", s.State.Iteration).Msg("loop terminated")
}
