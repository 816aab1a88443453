package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/vet-portal/internal/model"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewJWTService("secret", "vet-portal", time.Hour)

	token, err := svc.GenerateAccessToken(model.Identity{PersonID: "vet-1", Name: "Dr. Ruiz", Role: model.RoleVeterinarian})
	require.NoError(t, err)

	identity, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, model.Identity{PersonID: "vet-1", Name: "Dr. Ruiz", Role: model.RoleVeterinarian}, identity)
}

func TestValidateTokenRejectsOtherSecretAndExpiry(t *testing.T) {
	issuer := NewJWTService("secret", "vet-portal", time.Hour)
	token, err := issuer.GenerateAccessToken(model.Identity{PersonID: "c1", Role: model.RoleClient})
	require.NoError(t, err)

	_, err = NewJWTService("other", "vet-portal", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	late := issuer.(*hmacService)
	late.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = late.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGenerateRejectsUnknownRole(t *testing.T) {
	svc := NewJWTService("secret", "vet-portal", time.Hour)
	_, err := svc.GenerateAccessToken(model.Identity{PersonID: "x", Role: "root"})
	assert.ErrorIs(t, err, ErrInvalidToken)
}
