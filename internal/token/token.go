package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a token is malformed, unsigned, forged,
// or past its expiry. Expiry is the only invalidation mechanism; there is
// no revocation list.
var ErrInvalidToken = errors.New("invalid token")

// Service issues and verifies signed, time-bounded bearer tokens carrying a
// subject identity. The signing key is fixed at construction for the
// lifetime of the process.
type Service struct {
	secret []byte
}

func NewService(secret string) *Service {
	return &Service{secret: []byte(secret)}
}

// Issue produces an HS256 JWT embedding subject and an absolute expiry of
// now + ttl. Once issued, a token outlives the session that produced it.
func (s *Service) Issue(subject string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// Verify parses and validates a token (signature, exp) and returns its
// subject. Any failure maps to ErrInvalidToken.
func (s *Service) Verify(tokenString string) (string, error) {
	t, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return "", ErrInvalidToken
	}
	claims, ok := t.Claims.(*jwt.RegisteredClaims)
	if !ok || !t.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
