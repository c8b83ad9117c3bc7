package bench

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFatalErrorUnwraps(t *testing.T) {
	underlying := errors.New("disk full")
	err := NewFatal(underlying)

	assert.Equal(t, Fatal, err.Kind)
	assert.ErrorIs(t, err, underlying)
	assert.Contains(t, err.Error(), "fatal")
}

func TestRecoverableErrorUnwraps(t *testing.T) {
	underlying := errors.New("judge was ambiguous")
	err := NewRecoverable(underlying)

	assert.Equal(t, Recoverable, err.Kind)
	assert.ErrorIs(t, err, underlying)
	assert.Contains(t, err.Error(), "recoverable")
}
