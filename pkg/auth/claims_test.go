package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tkerr "github.com/TikettiLabs/tiketti-core/pkg/errors"
)

// ---------------------------------------------------------------------------
// classifyToken
// ---------------------------------------------------------------------------

func TestClassifyToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		alg      string
		issuer   string
		expected TokenKind
	}{
		{name: "HS256 is symmetric", alg: "HS256", issuer: "", expected: KindSymmetric},
		{name: "HS512 is symmetric", alg: "HS512", issuer: "", expected: KindSymmetric},
		{
			name:     "RS256 with legacy issuer",
			alg:      "RS256",
			issuer:   "https://sts.windows.net/tenant-1/",
			expected: KindAsymmetricV1,
		},
		{
			name:     "RS256 with modern issuer",
			alg:      "RS256",
			issuer:   "https://login.microsoftonline.com/tenant-1/v2.0",
			expected: KindAsymmetricV2,
		},
		{name: "ES256 with unknown issuer", alg: "ES256", issuer: "https://elsewhere.example", expected: KindAsymmetricV2},
		{name: "PS256 with legacy issuer", alg: "PS256", issuer: "https://sts.windows.net/t/", expected: KindAsymmetricV1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			kind, err := classifyToken(tt.alg, tt.issuer)
			require.Nil(t, err)
			assert.Equal(t, tt.expected, kind)
		})
	}
}

func TestClassifyToken_UnsupportedAlgorithm(t *testing.T) {
	t.Parallel()

	for _, alg := range []string{"none", "EdDSA", "XX256", ""} {
		_, err := classifyToken(alg, "")
		require.NotNil(t, err, "alg %q should be rejected", alg)
		assert.Equal(t, tkerr.CodeTokenAlgorithm, err.Code)
	}
}

// ---------------------------------------------------------------------------
// decodeUnverified
// ---------------------------------------------------------------------------

func TestDecodeUnverified(t *testing.T) {
	t.Parallel()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": "a@x.fi",
		"exp":   float64(time.Now().Add(time.Hour).Unix()),
	})
	token.Header["kid"] = "k1"
	tokenStr, err := token.SignedString([]byte("this-is-a-32-byte-test-signing-k"))
	require.NoError(t, err)

	ut, derr := decodeUnverified(tokenStr)
	require.Nil(t, derr)
	assert.Equal(t, "HS256", ut.alg)
	assert.Equal(t, "k1", ut.kid)
	assert.Equal(t, "a@x.fi", ut.claims.Email())
}

func TestDecodeUnverified_Malformed(t *testing.T) {
	t.Parallel()

	for _, tokenStr := range []string{"not-a-token", "a.b", "a.b.c.d", "!!!.@@@.###"} {
		_, err := decodeUnverified(tokenStr)
		require.NotNil(t, err, "token %q should be rejected", tokenStr)
		assert.Equal(t, tkerr.CodeTokenMalformed, err.Code)
	}
}

func TestDecodeUnverified_AlgorithmNone(t *testing.T) {
	t.Parallel()

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"email": "a@x.fi"})
	tokenStr, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, derr := decodeUnverified(tokenStr)
	require.NotNil(t, derr)
	assert.Equal(t, tkerr.CodeTokenAlgorithm, derr.Code)
}

// ---------------------------------------------------------------------------
// tokenClaims accessors
// ---------------------------------------------------------------------------

func TestTokenClaims_EmailAliasChain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		claims   tokenClaims
		expected string
	}{
		{
			name: "preferred_username wins",
			claims: tokenClaims{
				"preferred_username": "First@X.fi",
				"upn":                "second@x.fi",
				"email":              "third@x.fi",
			},
			expected: "first@x.fi",
		},
		{
			name:     "upn before email",
			claims:   tokenClaims{"upn": "UPN@x.fi", "email": "e@x.fi"},
			expected: "upn@x.fi",
		},
		{
			name:     "email before unique_name",
			claims:   tokenClaims{"email": "e@x.fi", "unique_name": "u@x.fi"},
			expected: "e@x.fi",
		},
		{
			name:     "unique_name as last resort",
			claims:   tokenClaims{"unique_name": "Legacy@X.fi"},
			expected: "legacy@x.fi",
		},
		{
			name:     "whitespace-only alias is skipped",
			claims:   tokenClaims{"preferred_username": "  ", "email": "e@x.fi"},
			expected: "e@x.fi",
		},
		{name: "no aliases", claims: tokenClaims{"sub": "s"}, expected: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.claims.Email())
		})
	}
}

func TestTokenClaims_DisplayName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Anna Virtanen",
		tokenClaims{"name": "Anna Virtanen", "email": "a@x.fi"}.DisplayName())
	assert.Equal(t, "Anna",
		tokenClaims{"given_name": "Anna", "email": "a@x.fi"}.DisplayName())
	assert.Equal(t, "anna.virtanen",
		tokenClaims{"email": "Anna.Virtanen@x.fi"}.DisplayName(),
		"display name falls back to the email local part")
	assert.Equal(t, "", tokenClaims{}.DisplayName())
}

func TestTokenClaims_SubjectID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "oid-1", tokenClaims{"oid": "oid-1", "sub": "sub-1", "email": "a@x.fi"}.SubjectID())
	assert.Equal(t, "sub-1", tokenClaims{"sub": "sub-1", "email": "a@x.fi"}.SubjectID())
	assert.Equal(t, "a@x.fi", tokenClaims{"email": "a@x.fi"}.SubjectID(),
		"subject falls back to the email")
}

func TestTokenClaims_Audiences(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"client-1"}, tokenClaims{"aud": "client-1"}.Audiences())
	assert.Equal(t, []string{"a", "b"}, tokenClaims{"aud": []any{"a", "b"}}.Audiences())
	assert.Nil(t, tokenClaims{}.Audiences())

	assert.True(t, tokenClaims{"aud": []any{"a", "client-1"}}.HasAudience("client-1"))
	assert.False(t, tokenClaims{"aud": "other"}.HasAudience("client-1"))
}

func TestTokenClaims_ExpiresAt(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(time.Hour).Unix()
	got, ok := tokenClaims{"exp": float64(exp)}.ExpiresAt()
	require.True(t, ok)
	assert.Equal(t, exp, got.Unix())

	_, ok = tokenClaims{"exp": "not-a-number"}.ExpiresAt()
	assert.False(t, ok)
	_, ok = tokenClaims{}.ExpiresAt()
	assert.False(t, ok)
}
