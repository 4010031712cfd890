package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUsageError(t *testing.T) {
	assert.Equal(t, "usage error in --output: bad", NewUsageError("output", "bad").Error())
	assert.Equal(t, "usage error: missing argument", NewUsageError("", "missing argument").Error())
}

func TestCommandError(t *testing.T) {
	inner := errors.New("boom")
	err := NewCommandError("vm cleanup", inner)

	assert.Equal(t, "command vm cleanup failed: boom", err.Error())
	assert.ErrorIs(t, err, inner)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitFailure, ExitCode(errors.New("boom")))
	assert.Equal(t, ExitUsage, ExitCode(NewUsageError("output", "bad")))
	assert.Equal(t, ExitUsage, ExitCode(fmt.Errorf("wrapped: %w", NewUsageError("", "bad"))))
	assert.Equal(t, ExitFailure, ExitCode(NewCommandError("validate", errors.New("x"))))
}
