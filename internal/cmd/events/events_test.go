package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ralph-loop/ralph/internal/topic"
)

func sampleEvents() []topic.Event {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return []topic.Event{
		{Topic: "task.start", Payload: "objective", Timestamp: ts},
		{Topic: "build.done", Payload: "tests: pass", Timestamp: ts},
		{Topic: "build.blocked", Payload: "Fix bug", Timestamp: ts},
		{Topic: "build.done", Payload: "lint: pass", Timestamp: ts},
	}
}

func TestFilterByTopic(t *testing.T) {
	got := filter(sampleEvents(), &options{topic: "build.done"})
	assert.Len(t, got, 2)
	for _, e := range got {
		assert.Equal(t, "build.done", string(e.Topic))
	}
}

func TestFilterByIteration(t *testing.T) {
	got := filter(sampleEvents(), &options{iteration: 3})
	assert.Len(t, got, 1)
	assert.Equal(t, "build.blocked", string(got[0].Topic))

	assert.Empty(t, filter(sampleEvents(), &options{iteration: 10}))
}

func TestFilterNoConstraints(t *testing.T) {
	assert.Len(t, filter(sampleEvents(), &options{}), 4)
}
