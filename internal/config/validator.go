package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ralph-loop/ralph/internal/backend"
	"github.com/ralph-loop/ralph/internal/hat"
	"github.com/ralph-loop/ralph/internal/topic"
)

// ValidationError reports a single configuration defect. Config errors
// are surfaced verbatim and abort the run before any side effect runs.
type ValidationError struct {
	Field   string
	Problem string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Problem)
}

// Validate checks the mutually-exclusive-field and backend-shape rules
// that aren't already enforced by hat.New, and returns the built hat
// registry so callers don't re-parse the hats map.
func (c *Config) Validate() (*hat.Registry, error) {
	if c.EventLoop.Prompt != "" && c.EventLoop.PromptFile != "" {
		return nil, &ValidationError{Field: "event_loop.prompt", Problem: "mutually exclusive with event_loop.prompt_file"}
	}

	if c.CLI.Backend == "custom" && c.CLI.Command == "" {
		return nil, &ValidationError{Field: "cli.command", Problem: "required when cli.backend is \"custom\""}
	}
	if c.CLI.Backend != "" && c.CLI.Backend != "custom" {
		if _, err := backend.FromName(c.CLI.Backend); err != nil {
			return nil, &ValidationError{Field: "cli.backend", Problem: err.Error()}
		}
	}

	hats, err := buildHats(c.Hats)
	if err != nil {
		return nil, err
	}

	registry, err := hat.New(hats)
	if err != nil {
		var hatErr *hat.ValidationError
		if errors.As(err, &hatErr) {
			return nil, &ValidationError{Field: fmt.Sprintf("hats.%s", hatErr.HatID), Problem: hatErr.Problem}
		}
		return nil, err
	}

	return registry, nil
}

func buildHats(cfg map[string]HatConfig) ([]hat.Hat, error) {
	ids := make([]string, 0, len(cfg))
	for id := range cfg {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	hats := make([]hat.Hat, 0, len(cfg))
	for _, id := range ids {
		hc := cfg[id]
		h := hat.Hat{
			ID:             id,
			Name:           hc.Name,
			Description:    hc.Description,
			Instructions:   hc.Instructions,
			Backend:        hc.Backend,
			MaxActivations: hc.MaxActivations,
		}
		if hc.DefaultPublishes != "" {
			h.DefaultPublish = topic.Topic(hc.DefaultPublishes)
		}
		for _, t := range hc.Triggers {
			h.Subscriptions = append(h.Subscriptions, topic.Topic(t))
		}
		for _, t := range hc.Publishes {
			h.Publishes = append(h.Publishes, topic.Topic(t))
		}
		hats = append(hats, h)
	}
	return hats, nil
}
