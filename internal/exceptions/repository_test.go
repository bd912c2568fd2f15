package exceptions

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"certshield/coi-backend/pkg/apperrors"
)

func TestTranslateDuplicateMapsToConflict(t *testing.T) {
	err := translateDuplicate(gorm.ErrDuplicatedKey)

	var conflict *apperrors.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "exception", conflict.Resource)
	assert.Contains(t, conflict.Message, "active exception already exists")
}

func TestTranslateDuplicateUnwrapsWrappedError(t *testing.T) {
	err := translateDuplicate(fmt.Errorf("create exception: %w", gorm.ErrDuplicatedKey))

	var conflict *apperrors.ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestTranslateDuplicatePassesThroughOtherErrors(t *testing.T) {
	assert.Equal(t, gorm.ErrInvalidData, translateDuplicate(gorm.ErrInvalidData))
	assert.NoError(t, translateDuplicate(nil))
}
