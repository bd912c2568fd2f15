package compliance

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestResolveExceptionOverridesEverything(t *testing.T) {
	failing := &VerdictRef{ID: uuid.New(), Status: "fail"}
	passing := &VerdictRef{ID: uuid.New(), Status: "pass"}

	assert.Equal(t, StatusException, Resolve(failing, true))
	assert.Equal(t, StatusException, Resolve(passing, true))
	assert.Equal(t, StatusException, Resolve(nil, true))
}

func TestResolveWithoutException(t *testing.T) {
	tests := []struct {
		name     string
		latest   *VerdictRef
		expected Status
	}{
		{"no verdict yet", nil, StatusPending},
		{"passing verdict", &VerdictRef{ID: uuid.New(), Status: "pass"}, StatusCompliant},
		{"failing verdict", &VerdictRef{ID: uuid.New(), Status: "fail"}, StatusNonCompliant},
		{"review verdict", &VerdictRef{ID: uuid.New(), Status: "review"}, StatusPending},
		{"unknown verdict value", &VerdictRef{ID: uuid.New(), Status: "garbage"}, StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Resolve(tt.latest, false))
		})
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	latest := &VerdictRef{ID: uuid.New(), Status: "fail"}
	first := Resolve(latest, false)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Resolve(latest, false))
	}
}
