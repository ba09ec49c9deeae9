package topic

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserved(t *testing.T) {
	assert.True(t, Reserved(TaskStart))
	assert.True(t, Reserved(TaskResume))
	assert.True(t, Reserved(LoopTerminate))
	assert.False(t, Reserved(Topic("build.done")))
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches(Wildcard, Topic("anything.goes")))
	assert.True(t, Matches(Topic("build.done"), Topic("build.done")))
	assert.False(t, Matches(Topic("build.done"), Topic("build.blocked")))
}

func TestExhaustedTopic(t *testing.T) {
	assert.Equal(t, Topic("code_reviewer.exhausted"), ExhaustedTopic("code_reviewer"))
}

func TestFirstLine(t *testing.T) {
	e := Event{Payload: "\n\n  Fix bug\nmore detail\n"}
	require.Equal(t, "Fix bug", e.FirstLine())

	empty := Event{Payload: "   \n  "}
	require.Equal(t, "", empty.FirstLine())
}

func TestEventUnmarshalPayloadForms(t *testing.T) {
	var e Event
	require.NoError(t, json.Unmarshal([]byte(`{"topic":"build.done","payload":"tests: pass","ts":"2026-08-01T12:00:00Z"}`), &e))
	assert.Equal(t, BuildDone, e.Topic)
	assert.Equal(t, "tests: pass", e.Payload)

	// Object payloads are carried as their JSON text.
	require.NoError(t, json.Unmarshal([]byte(`{"topic":"build.done","payload":{"tests":"pass"},"ts":"2026-08-01T12:00:00Z"}`), &e))
	assert.JSONEq(t, `{"tests":"pass"}`, e.Payload)

	// Null and absent payloads both decode to empty.
	require.NoError(t, json.Unmarshal([]byte(`{"topic":"x.y","payload":null,"ts":"2026-08-01T12:00:00Z"}`), &e))
	assert.Equal(t, "", e.Payload)
	require.NoError(t, json.Unmarshal([]byte(`{"topic":"x.y","ts":"2026-08-01T12:00:00Z"}`), &e))
	assert.Equal(t, "", e.Payload)
}

func TestEventUnmarshalRejectsMissingTopic(t *testing.T) {
	var e Event
	err := json.Unmarshal([]byte(`{"payload":"p","ts":"2026-08-01T12:00:00Z"}`), &e)
	require.Error(t, err)
}

func TestEventDecorators(t *testing.T) {
	e := New(BuildDone, "tests: pass").WithSource("executor").WithTarget("reviewer")
	assert.Equal(t, "executor", e.Source)
	assert.Equal(t, "reviewer", e.Target)
	assert.False(t, e.Timestamp.IsZero())
}
