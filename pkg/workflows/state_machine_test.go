package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certshield/coi-backend/pkg/apperrors"
)

func testMachine() *StateMachine {
	return NewStateMachine("ticket", map[string][]string{
		"open":    {"claimed", "closed"},
		"claimed": {"closed"},
	})
}

func TestCanTransition(t *testing.T) {
	sm := testMachine()

	assert.True(t, sm.CanTransition("open", "claimed"))
	assert.True(t, sm.CanTransition("claimed", "closed"))
	assert.False(t, sm.CanTransition("claimed", "open"))
	// Terminal states have no outgoing transitions.
	assert.False(t, sm.CanTransition("closed", "open"))
}

func TestGuardReturnsTypedError(t *testing.T) {
	sm := testMachine()

	require.NoError(t, sm.Guard("open", "closed"))

	err := sm.Guard("closed", "open")
	var transitionErr *apperrors.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, "ticket", transitionErr.Entity)
	assert.Equal(t, "closed", transitionErr.From)
	assert.Equal(t, "open", transitionErr.To)
}

func TestGetAllowedTransitions(t *testing.T) {
	sm := testMachine()

	assert.ElementsMatch(t, []string{"claimed", "closed"}, sm.GetAllowedTransitions("open"))
	assert.Empty(t, sm.GetAllowedTransitions("closed"))
}
