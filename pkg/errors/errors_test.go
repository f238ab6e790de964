package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneMatchesSourceCode(t *testing.T) {
	err := Clone(ErrValidation, "priority must be positive")

	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, "priority must be positive", err.Message)
	assert.Equal(t, "validation failed", ErrValidation.Message)
}

func TestCloneDoesNotShareDetails(t *testing.T) {
	base := Invalid("action %d: %s", 1, "targetRole is required").WithDetail("action", 1)
	clone := Clone(base, "")
	clone.WithDetail("rule", "r1")

	assert.Equal(t, map[string]interface{}{"action": 1}, base.Details)
	assert.Equal(t, map[string]interface{}{"action": 1, "rule": "r1"}, clone.Details)
	assert.Equal(t, "action 1: targetRole is required", clone.Message)
}

func TestInternalKeepsCause(t *testing.T) {
	err := Internal(sql.ErrConnDone, "failed to load grievance")

	assert.True(t, errors.Is(err, sql.ErrConnDone))
	assert.True(t, errors.Is(err, ErrInternal))
	assert.Equal(t, "failed to load grievance: "+sql.ErrConnDone.Error(), err.Error())
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	wrapped := fmt.Errorf("apply: %w", ErrInvalidTransition)
	assert.Same(t, ErrInvalidTransition, FromError(wrapped))

	plain := FromError(errors.New("boom"))
	require.NotNil(t, plain)
	assert.Equal(t, ErrInternal.Code, plain.Code)
	assert.Equal(t, ErrInternal.Message, plain.Message)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusOK, StatusOf(nil))
	assert.Equal(t, http.StatusNotFound, StatusOf(ErrFeatureDisabled))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("boom")))
}
