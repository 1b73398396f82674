package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/dargueta/tfs/errors"
	"github.com/stretchr/testify/assert"
)

func TestDriverErrorWithMessage(t *testing.T) {
	newErr := errors.ErrExists.WithMessage("asdfqwerty")
	assert.Equal(t, "File exists: asdfqwerty", newErr.Error(), "error message is wrong")
	assert.ErrorIs(t, newErr, errors.ErrExists)
	assert.NotErrorIs(t, newErr, errors.ErrNotFound)
}

func TestDriverErrorWrap(t *testing.T) {
	originalErr := stderrors.New("original error")
	newErr := errors.ErrIOFailed.Wrap(originalErr)

	assert.Equal(t, "Input/output error: original error", newErr.Error(), "error message is wrong")
	assert.ErrorIs(t, newErr, originalErr, "original error not set as parent")
	assert.ErrorIs(t, newErr, errors.ErrIOFailed, "driver error not set as parent")
}

func TestDriverError__MatchesThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("opening /a: %w", errors.Errorf(errors.ENOENT, "no entry %q", "a"))
	assert.ErrorIs(t, err, errors.ErrNotFound)
	assert.Equal(t, errors.ENOENT, errors.ErrnoOf(err))
}

func TestErrnoOf(t *testing.T) {
	assert.Equal(t, errors.EOK, errors.ErrnoOf(nil))
	assert.Equal(t, errors.EIO, errors.ErrnoOf(stderrors.New("plain")))
	assert.Equal(t, errors.EUCLEAN, errors.ErrnoOf(errors.ErrInvalidBlock))
}

func TestIsExhausted(t *testing.T) {
	assert.True(t, errors.IsExhausted(errors.ErrNoSpaceOnDevice.WithMessage("blocks")))
	assert.True(t, errors.IsExhausted(errors.ErrTooManyOpenFiles))
	assert.False(t, errors.IsExhausted(errors.ErrExists))
	assert.False(t, errors.IsExhausted(nil))
}

func TestKinds__InvalidPathIsDistinct(t *testing.T) {
	pathErr := errors.Errorf(errors.EINVAL, "bad path")
	rangeErr := errors.Errorf(errors.ERANGE, "index 9 not in range")

	assert.ErrorIs(t, pathErr, errors.ErrInvalidPath)
	assert.NotErrorIs(t, pathErr, errors.ErrOutOfRange)
	assert.ErrorIs(t, rangeErr, errors.ErrOutOfRange)
	assert.NotErrorIs(t, rangeErr, errors.ErrInvalidPath)
}

func TestStrError__Unknown(t *testing.T) {
	assert.Equal(t, "error 999 not recognized.", errors.StrError(errors.Errno(999)))
}
