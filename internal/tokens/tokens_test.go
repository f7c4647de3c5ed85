package tokens

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testAccessSecret  = []byte("test-jwt-secret")
	testRefreshSecret = []byte("test-refresh-secret")
)

func TestNewAccessToken_RoundTrip(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(15 * time.Minute).UTC()
	token, err := NewAccessToken("joao", "USER", testAccessSecret, exp)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := AccessClaimsFromToken(token, testAccessSecret)
	require.NoError(t, err)

	assert.Equal(t, "joao", claims.Subject)
	assert.Equal(t, "USER", claims.Role)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, exp, claims.ExpiresAt.Time, time.Second)
}

func TestNewRefreshToken_RoundTrip_SetsJTI(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(24 * time.Hour).UTC()
	token, err := NewRefreshToken("joao", testRefreshSecret, exp)
	require.NoError(t, err)

	claims, err := RefreshClaimsFromToken(token, testRefreshSecret)
	require.NoError(t, err)

	assert.Equal(t, "joao", claims.Subject)
	assert.NotEmpty(t, claims.ID)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, exp, claims.ExpiresAt.Time, time.Second)
}

func TestAccessClaimsFromToken_WrongSecret(t *testing.T) {
	t.Parallel()

	token, err := NewAccessToken("joao", "USER", testAccessSecret, time.Now().Add(time.Hour))
	require.NoError(t, err)

	claims, err := AccessClaimsFromToken(token, []byte("another-secret"))
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshToken_NotAcceptedAsAccessToken(t *testing.T) {
	t.Parallel()

	refresh, err := NewRefreshToken("joao", testRefreshSecret, time.Now().Add(time.Hour))
	require.NoError(t, err)

	claims, err := AccessClaimsFromToken(refresh, testAccessSecret)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessClaimsFromToken_Expired(t *testing.T) {
	t.Parallel()

	token, err := NewAccessToken("joao", "USER", testAccessSecret, time.Now().Add(-time.Second))
	require.NoError(t, err)

	claims, err := AccessClaimsFromToken(token, testAccessSecret)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessClaimsFromToken_Tampered(t *testing.T) {
	t.Parallel()

	token, err := NewAccessToken("joao", "USER", testAccessSecret, time.Now().Add(time.Hour))
	require.NoError(t, err)

	for _, pos := range []int{0, len(token) / 2, len(token) - 1} {
		flipped := []byte(token)
		if flipped[pos] == 'A' {
			flipped[pos] = 'B'
		} else {
			flipped[pos] = 'A'
		}

		claims, err := AccessClaimsFromToken(string(flipped), testAccessSecret)
		assert.Nil(t, claims, "byte %d", pos)
		assert.ErrorIs(t, err, ErrInvalidToken, "byte %d", pos)
	}
}

func TestAccessClaimsFromToken_Garbage(t *testing.T) {
	t.Parallel()

	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		claims, err := AccessClaimsFromToken(tok, testAccessSecret)
		assert.Nil(t, claims)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestSha256Hex_Deterministic(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Sha256Hex("abc"), Sha256Hex("abc"))
	assert.NotEqual(t, Sha256Hex("abc"), Sha256Hex("abd"))
	assert.Len(t, Sha256Hex("abc"), 64)
}
