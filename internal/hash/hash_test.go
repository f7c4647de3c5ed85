package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_VerifyRoundTrip(t *testing.T) {
	t.Parallel()

	h, err := HashPassword("secret123")
	require.NoError(t, err)
	require.NotEmpty(t, h)
	assert.NotEqual(t, "secret123", h)

	assert.True(t, CheckPassword(h, "secret123"))
	assert.False(t, CheckPassword(h, "secret124"))
	assert.False(t, CheckPassword(h, ""))
}

func TestCheckPassword_MalformedHash(t *testing.T) {
	t.Parallel()

	assert.False(t, CheckPassword("not-a-bcrypt-hash", "secret123"))
}
