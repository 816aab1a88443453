package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("Clinica2024!")
	require.NoError(t, err)
	assert.NotEqual(t, "Clinica2024!", hash)
	assert.NoError(t, h.Compare(hash, "Clinica2024!"))
	assert.Error(t, h.Compare(hash, "wrong-password"))
}

func TestBcryptHasherRejectsShortPasswords(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	_, err := h.Hash("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}
