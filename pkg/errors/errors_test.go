package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCode_Category(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code     Code
		category string
	}{
		{CodeValidation, "VAL"},
		{CodeTokenExpired, "AUTH"},
		{CodeHandledByOther, "AUTHZ"},
		{CodeNotFoundTicket, "NF"},
		{CodeLifecycleViolation, "CONF"},
		{CodeConfigurationMissing, "INT"},
		{CodeRateLimited, "UNAVAIL"},
		{CodeTimeout, "TIMEOUT"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.category, tt.code.Category(), "category of %s", tt.code)
	}
}

func TestError_HTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		code   Code
		status int
	}{
		{"validation maps to 400", CodeValidation, http.StatusBadRequest},
		{"expired token maps to 401", CodeTokenExpired, http.StatusUnauthorized},
		{"invalid signature maps to 401", CodeTokenSignature, http.StatusUnauthorized},
		{"missing email maps to 401", CodeIdentityMissingEmail, http.StatusUnauthorized},
		{"unknown principal maps to 403", CodePrincipalUnknown, http.StatusForbidden},
		{"not owner maps to 403", CodeNotOwner, http.StatusForbidden},
		{"handled by other maps to 403", CodeHandledByOther, http.StatusForbidden},
		{"missing ticket maps to 404", CodeNotFoundTicket, http.StatusNotFound},
		{"lifecycle violation maps to 409", CodeLifecycleViolation, http.StatusConflict},
		{"missing configuration maps to 500", CodeConfigurationMissing, http.StatusInternalServerError},
		{"key fetch failure maps to 503", CodeKeyFetchFailed, http.StatusServiceUnavailable},
		{"rate limited maps to 503", CodeRateLimited, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := New(tt.code, "test message")
			assert.Equal(t, tt.status, err.HTTPStatus())
		})
	}
}

func TestError_ErrorAndUnwrap(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("connection refused")
	err := Wrap(cause, CodeKeyFetchFailed, "auth: key-set fetch failed")

	assert.Equal(t, "UNAVAIL_002: auth: key-set fetch failed: connection refused", err.Error())
	assert.Equal(t, cause, err.Unwrap())

	plain := New(CodeTokenExpired, "auth: token has expired")
	assert.Equal(t, "AUTH_005: auth: token has expired", plain.Error())
	assert.Nil(t, plain.Unwrap())
}

func TestWrap_NilReturnsNil(t *testing.T) {
	t.Parallel()
	assert.Nil(t, Wrap(nil, CodeInternal, "unused"))
	assert.Nil(t, Wrapf(nil, CodeInternal, "unused %d", 1))
}

func TestError_WithDetail(t *testing.T) {
	t.Parallel()

	base := New(CodeKeyFetchFailed, "auth: key-set fetch failed")
	detailed := base.WithDetail("source", "local-v2")

	assert.Nil(t, base.Details, "original error must not be mutated")
	assert.Equal(t, "local-v2", detailed.Details["source"])
	assert.Equal(t, base.Code, detailed.Code)
}

func TestAsError_TraversesChain(t *testing.T) {
	t.Parallel()

	inner := New(CodeTokenSignature, "auth: token signature is invalid")
	wrapped := fmt.Errorf("verifying token: %w", inner)

	e, ok := AsError(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeTokenSignature, e.Code)
	assert.Equal(t, CodeTokenSignature, GetCode(wrapped))
	assert.True(t, HasCode(wrapped, CodeTokenSignature))
}

func TestCategoryChecks(t *testing.T) {
	t.Parallel()

	assert.True(t, IsAuthentication(New(CodeTokenMalformed, "m")))
	assert.True(t, IsAuthorization(New(CodeHandledByOther, "m")))
	assert.True(t, IsNotFound(New(CodeNotFoundUser, "m")))
	assert.True(t, IsConflict(New(CodeLifecycleViolation, "m")))
	assert.True(t, IsInternal(New(CodeConfigurationMissing, "m")))
	assert.True(t, IsUnavailable(New(CodeRateLimited, "m")))

	assert.False(t, IsAuthentication(New(CodeAuthorization, "m")),
		"AUTHZ must not be classified as AUTH")
	assert.False(t, IsAuthentication(fmt.Errorf("plain error")))
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	assert.True(t, IsRetryable(New(CodeRateLimited, "m")))
	assert.True(t, IsRetryable(New(CodeKeyFetchFailed, "m")))
	assert.True(t, IsRetryable(New(CodeTimeout, "m")))
	assert.False(t, IsRetryable(New(CodeTokenSignature, "m")),
		"a signature failure is an identity rejection, not a retryable fault")
	assert.False(t, IsRetryable(nil))
}

func TestFromError(t *testing.T) {
	t.Parallel()

	existing := New(CodeNotOwner, "not the creator")
	assert.Same(t, existing, FromError(existing))

	converted := FromError(fmt.Errorf("boom"))
	require.NotNil(t, converted)
	assert.Equal(t, CodeInternal, converted.Code)

	assert.Nil(t, FromError(nil))
}
