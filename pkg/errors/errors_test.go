package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorWrapsUnknown(t *testing.T) {
	err := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Nil(t, FromError(nil))
}

func TestCloneKeepsCode(t *testing.T) {
	clone := Clone(ErrCapacityExceeded, "course full")
	assert.Equal(t, "CAPACITY_EXCEEDED", clone.Code)
	assert.Equal(t, "course full", clone.Message)
	assert.Equal(t, "course has reached maximum enrollment capacity", ErrCapacityExceeded.Message)
}

func TestIsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Clone(ErrConflict, "duplicate"))
	assert.True(t, Is(wrapped, ErrConflict))
	assert.False(t, Is(wrapped, ErrNotFound))
	assert.False(t, Is(errors.New("plain"), ErrConflict))
}
