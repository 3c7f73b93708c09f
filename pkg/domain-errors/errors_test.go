package domainerrors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "idwallet/pkg/domain-errors"
)

func TestHasCode_SeesThroughWrapping(t *testing.T) {
	base := dErrors.New(dErrors.CodeNotFound, "credential not found")
	wrapped := fmt.Errorf("loading wallet: %w", base)

	assert.True(t, dErrors.HasCode(wrapped, dErrors.CodeNotFound))
	assert.False(t, dErrors.HasCode(wrapped, dErrors.CodeInternal))
	assert.False(t, dErrors.HasCode(errors.New("plain"), dErrors.CodeNotFound))
	assert.False(t, dErrors.HasCode(nil, dErrors.CodeNotFound))
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := dErrors.Wrap(cause, dErrors.CodeInternal, "persist credential")

	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "persist credential")
	assert.Contains(t, err.Error(), "disk full")
}

func TestCodeOf_DefaultsToInternal(t *testing.T) {
	assert.Equal(t, dErrors.CodeRateLimited, dErrors.CodeOf(dErrors.New(dErrors.CodeRateLimited, "slow down")))
	assert.Equal(t, dErrors.CodeInternal, dErrors.CodeOf(errors.New("untyped")))
}

func TestToHTTPStatus(t *testing.T) {
	tests := map[dErrors.Code]int{
		dErrors.CodeInvalidInput:  http.StatusBadRequest,
		dErrors.CodeNotFound:      http.StatusNotFound,
		dErrors.CodeUnauthorized:  http.StatusUnauthorized,
		dErrors.CodeRateLimited:   http.StatusTooManyRequests,
		dErrors.CodeExpired:       http.StatusGone,
		dErrors.CodeUninitialized: http.StatusServiceUnavailable,
		dErrors.CodeCryptoFailure: http.StatusUnprocessableEntity,
		dErrors.CodeInternal:      http.StatusInternalServerError,
	}
	for code, want := range tests {
		assert.Equal(t, want, dErrors.ToHTTPStatus(code), "code %s", code)
	}
}
