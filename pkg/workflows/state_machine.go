package workflows

import "certshield/coi-backend/pkg/apperrors"

// StateMachine enforces entity status transitions
type StateMachine struct {
	entity             string
	allowedTransitions map[string][]string
}

// NewStateMachine creates a state machine for the named entity with the given
// allowed transitions. States absent from the map are terminal.
func NewStateMachine(entity string, transitions map[string][]string) *StateMachine {
	return &StateMachine{
		entity:             entity,
		allowedTransitions: transitions,
	}
}

// CanTransition checks if a status transition is allowed
func (sm *StateMachine) CanTransition(from, to string) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// Guard returns an InvalidTransitionError when the transition is not allowed.
func (sm *StateMachine) Guard(from, to string) error {
	if !sm.CanTransition(from, to) {
		return &apperrors.InvalidTransitionError{Entity: sm.entity, From: from, To: to}
	}
	return nil
}

// GetAllowedTransitions returns the allowed next statuses for a given status
func (sm *StateMachine) GetAllowedTransitions(from string) []string {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []string{}
	}
	return allowed
}
