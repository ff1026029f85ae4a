package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sahihnews/sahihnews/internal/models"
	"github.com/stretchr/testify/require"
)

func newTestVerifier(t *testing.T) *Verifier {
	v, err := NewVerifier(&models.EnvConfig{
		JWTKey:      "test-secret",
		JWTIssuer:   "sahihnews-identity",
		JWTAudience: "sahihnews",
	})
	require.Nil(t, err)
	return v
}

func TestVerifyRoundTrip(t *testing.T) {
	require := require.New(t)
	v := newTestVerifier(t)

	id := models.Identity{UserID: 42, Username: "amina", DisplayName: "Amina", AvatarURL: "https://example.com/a.png"}
	token, err := v.Sign(id, time.Hour)
	require.Nil(err)

	got, err := v.Verify(token)
	require.Nil(err)
	require.Equal(id, got)

	got, err = v.Verify("  " + token + "\n")
	require.Nil(err)
	require.Equal(42, got.UserID)
}

func TestVerifyRejects(t *testing.T) {
	v := newTestVerifier(t)
	valid, err := v.Sign(models.Identity{UserID: 1}, time.Hour)
	require.Nil(t, err)

	expired, err := v.Sign(models.Identity{UserID: 1}, -time.Minute)
	require.Nil(t, err)

	other := newTestVerifier(t)
	other.key = []byte("another-secret")
	forged, err := other.Sign(models.Identity{UserID: 1}, time.Hour)
	require.Nil(t, err)

	foreign := newTestVerifier(t)
	foreign.issuer = "someone-else"
	wrongIssuer, err := foreign.Sign(models.Identity{UserID: 1}, time.Hour)
	require.Nil(t, err)

	foreign = newTestVerifier(t)
	foreign.audience = "another-app"
	wrongAudience, err := foreign.Sign(models.Identity{UserID: 1}, time.Hour)
	require.Nil(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "amina",
			Issuer:    "sahihnews-identity",
			Audience:  jwt.ClaimStrings{"sahihnews"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("test-secret"))
	require.Nil(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  "1",
			Issuer:   "sahihnews-identity",
			Audience: jwt.ClaimStrings{"sahihnews"},
		},
	}).SignedString([]byte("test-secret"))
	require.Nil(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"tampered", valid + "x"},
		{"expired", expired},
		{"forged", forged},
		{"wrong issuer", wrongIssuer},
		{"wrong audience", wrongAudience},
		{"non numeric subject", badSubject},
		{"no expiry", noExpiry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token)
			require.True(t, errors.Is(err, models.ErrUnauthorized), "got %v", err)
		})
	}
}

func TestNewVerifierRequiresKey(t *testing.T) {
	_, err := NewVerifier(&models.EnvConfig{})
	require.NotNil(t, err)
}
