package security_test

import (
	"testing"

	"accounts_api/internal/common/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := security.HashPassword("Str0ngP@ss")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "Str0ngP@ss", hash)

	assert.True(t, security.CheckPasswordHash("Str0ngP@ss", hash))
	assert.False(t, security.CheckPasswordHash("wrong-password", hash))
	assert.False(t, security.CheckPasswordHash("Str0ngP@ss", "not-a-hash"))
}

func TestHashPasswordSalts(t *testing.T) {
	first, err := security.HashPassword("Str0ngP@ss")
	require.NoError(t, err)
	second, err := security.HashPassword("Str0ngP@ss")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}
