package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptPasswordHasher(t *testing.T) {
	hasher := NewBcryptPasswordHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("secret123")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "secret123", hash)

	assert.NoError(t, hasher.Verify(hash, "secret123"))
	assert.Error(t, hasher.Verify(hash, "wrong"))
	assert.Error(t, hasher.Verify("not-a-hash", "secret123"))
}

func TestBcryptPasswordHasherSalts(t *testing.T) {
	hasher := NewBcryptPasswordHasher(bcrypt.MinCost)

	first, err := hasher.Hash("secret123")
	require.NoError(t, err)
	second, err := hasher.Hash("secret123")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.NoError(t, hasher.Verify(first, "secret123"))
	assert.NoError(t, hasher.Verify(second, "secret123"))
}
