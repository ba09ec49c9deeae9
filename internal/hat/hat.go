// Package hat defines the persona ("hat") topology: the pub/sub graph
// of agent personas that shapes the coordinator's prompt, plus the
// registry that validates and queries it.
package hat

import (
	"fmt"
	"sort"

	"github.com/ralph-loop/ralph/internal/topic"
)

// RalphID is the constant coordinator hat id: the universal fallback
// subscriber that executes every iteration in multi-hat mode.
const RalphID = "ralph"

// Hat is a named persona: a set of subscriptions, publish topics, and
// instructions that shape the coordinator's prompt while its events
// are in flight.
type Hat struct {
	ID          string
	Name        string
	Description string

	// Subscriptions are the topic patterns that activate this hat.
	Subscriptions []topic.Topic
	// Publishes are the topics this hat is declared to emit, used to
	// derive the topology table and the per-hat publishing guide.
	Publishes []topic.Topic

	Instructions string

	// Backend overrides the loop's default CLI backend for this hat.
	Backend string

	// DefaultPublish is synthesized by the scheduler when this hat's
	// subprocess run produces no new events at all.
	DefaultPublish topic.Topic

	// MaxActivations caps how many times this hat may be activated in
	// one run; 0 means unbounded.
	MaxActivations int
}

// Subscribes reports whether h is activated by t.
func (h Hat) Subscribes(t topic.Topic) bool {
	for _, p := range h.Subscriptions {
		if topic.Matches(p, t) {
			return true
		}
	}
	return false
}

// Ralph returns the synthetic coordinator hat: a wildcard subscriber
// with no declared publishes of its own (its effective publishes are
// derived by the registry as the union of every custom hat's
// subscriptions).
func Ralph() Hat {
	return Hat{
		ID:            RalphID,
		Name:          "Ralph",
		Description:   "The coordinator: executes every iteration and routes events between hats.",
		Subscriptions: []topic.Topic{topic.Wildcard},
	}
}

// ValidationError reports a single hat-configuration defect.
type ValidationError struct {
	HatID   string
	Problem string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("hat %q: %s", e.HatID, e.Problem)
}

// Registry is the topic→hat routing table. It is immutable once
// constructed by New: validation runs before any hat is exposed to a
// caller.
type Registry struct {
	hats    map[string]Hat
	byOrder []string // registration order, for deterministic iteration
	trigger map[topic.Topic]string
}

// New validates and constructs a Registry from a set of custom hats.
// Validation enforces, in order: (a) every hat has a non-empty
// description, (b) no hat declares a reserved trigger, (c) no two hats
// share a trigger topic. The "ralph" coordinator hat is always
// registered in addition to the given hats and is exempt from trigger
// validation (it is a wildcard subscriber by construction).
func New(hats []Hat) (*Registry, error) {
	r := &Registry{
		hats:    make(map[string]Hat),
		trigger: make(map[topic.Topic]string),
	}

	for _, h := range hats {
		if h.Description == "" {
			return nil, &ValidationError{HatID: h.ID, Problem: "missing required description"}
		}
		for _, trig := range h.Subscriptions {
			if topic.Reserved(trig) {
				return nil, &ValidationError{HatID: h.ID, Problem: fmt.Sprintf("cannot subscribe to reserved topic %q", trig)}
			}
		}
	}

	for _, h := range hats {
		for _, trig := range h.Subscriptions {
			if owner, ok := r.trigger[trig]; ok && owner != h.ID {
				return nil, &ValidationError{HatID: h.ID, Problem: fmt.Sprintf("trigger %q already claimed by hat %q", trig, owner)}
			}
			r.trigger[trig] = h.ID
		}
		r.hats[h.ID] = h
		r.byOrder = append(r.byOrder, h.ID)
	}

	ralph := Ralph()
	r.hats[ralph.ID] = ralph
	r.byOrder = append(r.byOrder, ralph.ID)

	return r, nil
}

// Get returns the hat with the given id.
func (r *Registry) Get(id string) (Hat, bool) {
	h, ok := r.hats[id]
	return h, ok
}

// GetForTopic returns every hat (other than ralph) whose subscriptions
// match t.
func (r *Registry) GetForTopic(t topic.Topic) []Hat {
	var matches []Hat
	for _, id := range r.byOrder {
		if id == RalphID {
			continue
		}
		h := r.hats[id]
		if h.Subscribes(t) {
			matches = append(matches, h)
		}
	}
	return matches
}

// HasSubscriber reports whether any custom hat subscribes to t.
func (r *Registry) HasSubscriber(t topic.Topic) bool {
	return len(r.GetForTopic(t)) > 0
}

// FindByTrigger returns the id of the custom hat that owns t as a
// trigger, if any.
func (r *Registry) FindByTrigger(t topic.Topic) (string, bool) {
	id, ok := r.trigger[t]
	return id, ok
}

// All returns every registered hat, including ralph, in registration
// order.
func (r *Registry) All() []Hat {
	out := make([]Hat, 0, len(r.byOrder))
	for _, id := range r.byOrder {
		out = append(out, r.hats[id])
	}
	return out
}

// CustomHats returns every registered hat except ralph, sorted
// lexicographically by id — the deterministic order the prompt
// composer and scheduler use when iterating all hats.
func (r *Registry) CustomHats() []Hat {
	var out []Hat
	for _, id := range r.byOrder {
		if id == RalphID {
			continue
		}
		out = append(out, r.hats[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DerivedTriggers returns Ralph's effective trigger set: the union of
// every custom hat's Publishes, plus task.start.
func (r *Registry) DerivedTriggers() []topic.Topic {
	seen := map[topic.Topic]bool{topic.TaskStart: true}
	out := []topic.Topic{topic.TaskStart}
	for _, h := range r.CustomHats() {
		for _, p := range h.Publishes {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

// DerivedPublishes returns Ralph's effective publish set: the union of
// every custom hat's Subscriptions (excluding the wildcard).
func (r *Registry) DerivedPublishes() []topic.Topic {
	seen := map[topic.Topic]bool{}
	var out []topic.Topic
	for _, h := range r.CustomHats() {
		for _, s := range h.Subscriptions {
			if s == topic.Wildcard {
				continue
			}
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}
