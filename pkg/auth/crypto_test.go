package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("secret")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
	assert.True(t, VerifyPassword("secret", hash))
	assert.False(t, VerifyPassword("wrong", hash))
	assert.False(t, VerifyPassword("", hash))
}

func TestHashPassword_SaltsDiffer(t *testing.T) {
	h1, err := HashPassword("secret")
	require.NoError(t, err)
	h2, err := HashPassword("secret")
	require.NoError(t, err)

	// Same password, different salts, different encodings.
	assert.NotEqual(t, h1, h2)
	assert.True(t, VerifyPassword("secret", h1))
	assert.True(t, VerifyPassword("secret", h2))
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{name: "empty", encoded: ""},
		{name: "not argon2", encoded: "$bcrypt$something"},
		{name: "missing sections", encoded: "$argon2id$v=19"},
		{name: "bad salt encoding", encoded: "$argon2id$v=19$m=65536,t=1,p=4$!!!$aGFzaA"},
		{name: "bad version", encoded: "$argon2id$v=12$m=65536,t=1,p=4$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, VerifyPassword("secret", tt.encoded))
		})
	}
}
