package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHashAndCompare(t *testing.T) {
	hash, err := GetHash("try-me-123")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "try-me-123", hash)

	assert.NoError(t, CompareHash(hash, "try-me-123"))
	assert.Error(t, CompareHash(hash, "wrong-password"))
}

func TestGetHash_UniqueSalts(t *testing.T) {
	h1, err := GetHash("same-password")
	require.NoError(t, err)
	h2, err := GetHash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}
