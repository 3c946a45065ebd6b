package errs

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestCodeErrorMessage(t *testing.T) {
	e := NewCodeError(1401, "invalid control command")
	assert.Equal(t, "1401 invalid control command", e.Error())
	assert.Equal(t, "1401 invalid control command missing field userId",
		e.WithDetail("missing field userId").Error())
}

func TestCodeErrorMatchByCode(t *testing.T) {
	err := ErrBadCommand.WrapMsg("missing field userId")
	assert.True(t, errors.Is(err, ErrBadCommand))
	assert.False(t, errors.Is(err, ErrAuthFailed))
}

func TestWithDetailDoesNotMutate(t *testing.T) {
	base := NewCodeError(1, "base")
	_ = base.WithDetail("extra")
	assert.Empty(t, base.Detail)
}

func TestWrapCarriesStack(t *testing.T) {
	err := ErrDupConn.Wrap()
	assert.True(t, errors.Is(err, ErrDupConn))
	// %+v renders the attached stack
	assert.Contains(t, err.Error(), "connection already registered")
}
