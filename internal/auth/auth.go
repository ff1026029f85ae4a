// Package auth verifies the bearer tokens issued by the external identity
// provider. SahihNews never stores credentials.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sahihnews/sahihnews/internal/models"
)

type Verifier struct {
	key      []byte
	issuer   string
	audience string
	now      func() time.Time
}

// claims are the identity provider claims SahihNews reads. sub carries the
// numeric user id.
type claims struct {
	jwt.RegisteredClaims
	PreferredUsername string `json:"preferred_username"`
	Name              string `json:"name"`
	Picture           string `json:"picture"`
}

func NewVerifier(envConfig *models.EnvConfig) (*Verifier, error) {
	if envConfig.JWTKey == "" {
		return nil, errors.New("SAHIHNEWS_JWT_KEY is required")
	}
	return &Verifier{
		key:      []byte(envConfig.JWTKey),
		issuer:   envConfig.JWTIssuer,
		audience: envConfig.JWTAudience,
		now:      time.Now,
	}, nil
}

// Verify checks the signature, issuer, audience and expiry of a token and
// returns the identity it carries.
func (v *Verifier) Verify(token string) (models.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.Identity{}, fmt.Errorf("%w: missing token", models.ErrUnauthorized)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var parsed claims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return v.key, nil
	}, opts...)
	if err != nil {
		return models.Identity{}, mapJWTError(err)
	}

	userID, err := strconv.Atoi(parsed.Subject)
	if err != nil || userID <= 0 {
		return models.Identity{}, fmt.Errorf("%w: invalid subject %q", models.ErrUnauthorized, parsed.Subject)
	}
	return models.Identity{
		UserID:      userID,
		Username:    parsed.PreferredUsername,
		DisplayName: parsed.Name,
		AvatarURL:   parsed.Picture,
	}, nil
}

// Sign issues a token for id. Used by tests and local tooling, the
// production issuer is the identity provider.
func (v *Verifier) Sign(id models.Identity, ttl time.Duration) (string, error) {
	now := v.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(id.UserID),
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		PreferredUsername: id.Username,
		Name:              id.DisplayName,
		Picture:           id.AvatarURL,
	}
	if v.audience != "" {
		c.Audience = jwt.ClaimStrings{v.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(v.key)
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: token expired", models.ErrUnauthorized)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: invalid signature", models.ErrUnauthorized)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer), errors.Is(err, jwt.ErrTokenInvalidAudience):
		return fmt.Errorf("%w: token not issued for this service", models.ErrUnauthorized)
	}
	return fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
}
