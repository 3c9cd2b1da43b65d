package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const (
	// Issuer is the issuer of the access token.
	Issuer = "taskdeck"
	// KeyID is the kid stamped into token headers.
	KeyID = "v1"
	// AccessTokenDuration is the lifetime of an access token.
	AccessTokenDuration = 60 * time.Minute
	// CookieName is the name of the HTTP-only cookie carrying the token.
	CookieName = "taskdeck.access-token"
)

// GenerateAccessToken signs a token whose subject is the user's UID.
func GenerateAccessToken(userUID string, expirationTime time.Time, secret []byte) (string, error) {
	registeredClaims := jwt.RegisteredClaims{
		Issuer:   Issuer,
		IssuedAt: jwt.NewNumericDate(time.Now()),
		Subject:  userUID,
	}
	if !expirationTime.IsZero() {
		registeredClaims.ExpiresAt = jwt.NewNumericDate(expirationTime)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, registeredClaims)
	token.Header["kid"] = KeyID
	return token.SignedString(secret)
}

// VerifyAccessToken parses and validates a token, returning the subject
// user UID.
func VerifyAccessToken(tokenString string, secret []byte) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Name {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		if kid, ok := t.Header["kid"].(string); !ok || kid != KeyID {
			return nil, errors.Errorf("unexpected kid: %v", t.Header["kid"])
		}
		return secret, nil
	})
	if err != nil {
		return "", errors.Wrap(err, "invalid or expired access token")
	}
	if claims.Subject == "" {
		return "", errors.New("access token has no subject")
	}
	return claims.Subject, nil
}
