package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	err := New(KindConflict, CodeDailyLimitExceeded, "you already have 5 appointments on 2025-03-10, please try another date")
	assert.True(t, errors.Is(err, ErrDailyLimitExceeded))
	assert.False(t, errors.Is(err, ErrSlotTaken))
}

func TestIsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("booking: %w", ErrSlotTaken)
	assert.True(t, errors.Is(wrapped, ErrSlotTaken))
	assert.Equal(t, CodeSlotTaken, CodeOf(wrapped))
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
}

func TestErrorString(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal("failed to load appointment", cause)
	assert.Equal(t, "Internal: failed to load appointment: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
}
