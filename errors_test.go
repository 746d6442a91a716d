package cms

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorChain(t *testing.T) {
	err := error(NewError("cannot open profile", io.ErrUnexpectedEOF))
	assert.Equal(t, "cannot open profile: unexpected EOF", err.Error())
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "cannot open profile", ce.msg)

	assert.Equal(t, "plain", NewError("plain", nil).Error())
	assert.Equal(t, "unexpected EOF", NewError("", io.ErrUnexpectedEOF).Error())
}

func TestSaveError(t *testing.T) {
	err := error(NewSaveError("unable to serialize profile", ErrInvalidProfile))
	assert.Equal(t, "unable to serialize profile: invalid profile data", err.Error())

	var se *SaveError
	require.ErrorAs(t, err, &se)
	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Same(t, se.Err, ce)
	assert.True(t, errors.Is(err, ErrInvalidProfile))
}
