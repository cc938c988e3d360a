// Package auth issues and verifies the HS256 bearer tokens of the HTTP API.
package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const (
	// Issuer is the iss claim of every access token.
	Issuer = "askbox"
	// AccessTokenAudienceName is the aud claim of every access token.
	AccessTokenAudienceName = "user.access-token"
)

// ErrInvalidToken is returned for malformed, expired or badly signed tokens.
var ErrInvalidToken = errors.New("invalid access token")

// UserClaims identifies the caller of a request.
type UserClaims struct {
	UserID int32
}

type contextKey int

const userClaimsKey contextKey = iota

// SetUserClaims stores claims in ctx.
func SetUserClaims(ctx context.Context, claims *UserClaims) context.Context {
	return context.WithValue(ctx, userClaimsKey, claims)
}

// GetUserClaims returns the claims stored by SetUserClaims, or nil.
func GetUserClaims(ctx context.Context) *UserClaims {
	claims, _ := ctx.Value(userClaimsKey).(*UserClaims)
	return claims
}

// GenerateAccessToken signs a token whose subject is userID. A zero
// expiresAt produces a token without expiry.
func GenerateAccessToken(userID int32, secret []byte, now, expiresAt time.Time) (string, error) {
	registered := jwt.RegisteredClaims{
		Issuer:   Issuer,
		Subject:  strconv.FormatInt(int64(userID), 10),
		Audience: jwt.ClaimStrings{AccessTokenAudienceName},
		IssuedAt: jwt.NewNumericDate(now),
	}
	if !expiresAt.IsZero() {
		registered.ExpiresAt = jwt.NewNumericDate(expiresAt)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, registered)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign access token")
	}
	return signed, nil
}

// ParseAccessToken verifies token and returns its subject as a user id.
func ParseAccessToken(token string, secret []byte) (*UserClaims, error) {
	registered := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, registered, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(AccessTokenAudienceName),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	id, err := strconv.ParseInt(registered.Subject, 10, 32)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, registered.Subject)
	}
	return &UserClaims{UserID: int32(id)}, nil
}
