package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tkerr "github.com/TikettiLabs/tiketti-core/pkg/errors"
)

func TestPrincipalContext_RoundTrip(t *testing.T) {
	t.Parallel()

	principal := &Principal{Email: "a@x.fi", DisplayName: "Anna"}
	ctx := ContextWithPrincipal(context.Background(), principal)

	got, ok := PrincipalFromContext(ctx)
	require.True(t, ok)
	assert.Same(t, principal, got)
}

func TestPrincipalFromContext_Absent(t *testing.T) {
	t.Parallel()

	_, ok := PrincipalFromContext(context.Background())
	assert.False(t, ok)
}

func TestMustPrincipalFromContext(t *testing.T) {
	t.Parallel()

	principal := &Principal{Email: "a@x.fi"}
	ctx := ContextWithPrincipal(context.Background(), principal)

	got, err := MustPrincipalFromContext(ctx)
	require.NoError(t, err)
	assert.Same(t, principal, got)

	_, err = MustPrincipalFromContext(context.Background())
	require.Error(t, err)
	assert.True(t, tkerr.IsAuthentication(err))
}

func TestCorrelationIDContext(t *testing.T) {
	t.Parallel()

	assert.Empty(t, CorrelationIDFromContext(context.Background()))

	ctx := ContextWithCorrelationID(context.Background(), "corr-1")
	assert.Equal(t, "corr-1", CorrelationIDFromContext(ctx))
}

func TestCallerServiceContext(t *testing.T) {
	t.Parallel()

	assert.Empty(t, CallerServiceFromContext(context.Background()))

	ctx := ContextWithCallerService(context.Background(), "tiketti-api")
	assert.Equal(t, "tiketti-api", CallerServiceFromContext(ctx))
}

func TestTraceIDFromContext_NoSpan(t *testing.T) {
	t.Parallel()

	assert.Empty(t, TraceIDFromContext(context.Background()))
	assert.Empty(t, SpanIDFromContext(context.Background()))
}
