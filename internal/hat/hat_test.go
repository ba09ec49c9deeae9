package hat

import (
	"testing"

	"github.com/ralph-loop/ralph/internal/topic"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsMissingDescription(t *testing.T) {
	_, err := New([]Hat{{ID: "executor", Subscriptions: []topic.Topic{"work.start"}}})
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "executor", verr.HatID)
}

func TestNewRejectsReservedTrigger(t *testing.T) {
	_, err := New([]Hat{{
		ID: "executor", Description: "does work",
		Subscriptions: []topic.Topic{topic.TaskStart},
	}})
	require.Error(t, err)
}

func TestNewRejectsDuplicateTrigger(t *testing.T) {
	_, err := New([]Hat{
		{ID: "a", Description: "a", Subscriptions: []topic.Topic{"work.start"}},
		{ID: "b", Description: "b", Subscriptions: []topic.Topic{"work.start"}},
	})
	require.Error(t, err)
}

func TestRegistryAlwaysHasRalph(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)
	h, ok := r.Get(RalphID)
	require.True(t, ok)
	require.Equal(t, RalphID, h.ID)
	require.True(t, h.Subscribes("anything"))
}

func TestDerivedTriggersAndPublishes(t *testing.T) {
	hats := []Hat{
		{
			ID: "executor", Description: "implements work",
			Subscriptions: []topic.Topic{"work.start", "review.changes_requested"},
			Publishes:     []topic.Topic{"implementation.done"},
		},
		{
			ID: "code_reviewer", Description: "reviews diffs", MaxActivations: 3,
			Subscriptions: []topic.Topic{"implementation.done"},
			Publishes:     []topic.Topic{"review.changes_requested"},
		},
	}
	r, err := New(hats)
	require.NoError(t, err)

	require.ElementsMatch(t, []topic.Topic{topic.TaskStart, "implementation.done", "review.changes_requested"}, r.DerivedTriggers())
	require.ElementsMatch(t, []topic.Topic{"work.start", "review.changes_requested", "implementation.done"}, r.DerivedPublishes())

	custom := r.CustomHats()
	require.Len(t, custom, 2)
	require.Equal(t, "code_reviewer", custom[0].ID) // lexicographic order
	require.Equal(t, "executor", custom[1].ID)

	id, ok := r.FindByTrigger("work.start")
	require.True(t, ok)
	require.Equal(t, "executor", id)

	require.True(t, r.HasSubscriber("implementation.done"))
	require.False(t, r.HasSubscriber("nothing.subscribes"))
}
