package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatching(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapError(RetCBackendUnavailable, cause, "write %s", "root/index")

	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.True(t, IsBackendUnavailable(err))
	assert.Contains(t, err.Error(), "BackendUnavailable")
	assert.Contains(t, err.Error(), "root/index")

	wrapped := fmt.Errorf("create exam: %w", NewError(RetCNotFound, "owner %s", "7700"))
	assert.True(t, IsNotFound(wrapped))
	assert.ErrorIs(t, wrapped, ErrNotFound)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, RetCSuccess, CodeOf(nil))
	assert.Equal(t, RetCInternalError, CodeOf(errors.New("foreign")))
	assert.Equal(t, RetCConflict, CodeOf(NewError(RetCConflict, "dup")))
	assert.Equal(t, "ValidationFailed", RetCValidationFailed.String())
	assert.Equal(t, "Unknown", RetCode(99).String())
}
