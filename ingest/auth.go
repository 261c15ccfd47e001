package ingest

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrUnauthorized is returned for any token that does not verify.
	ErrUnauthorized = errors.New("unauthorized")

	ErrTokenExpired     = fmt.Errorf("%w: token expired", ErrUnauthorized)
	ErrInvalidSignature = fmt.Errorf("%w: invalid signature", ErrUnauthorized)
	ErrInvalidToken     = fmt.Errorf("%w: invalid token", ErrUnauthorized)
	// ErrUsernameMismatch is returned when a job names a player its token does not cover.
	ErrUsernameMismatch = fmt.Errorf("%w: username does not match token", ErrUnauthorized)
)

// Claims carried by a job token. Username, when set, names the player whose
// game the job refers to.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
}

// Authorizer verifies and issues HS256 job tokens.
type Authorizer struct {
	secret []byte
	now    func() time.Time
}

func NewAuthorizer(secret string) *Authorizer {
	return &Authorizer{secret: []byte(secret), now: time.Now}
}

// Authorize verifies a token's signature and expiry.
func (a *Authorizer) Authorize(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSignature
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, ErrInvalidSignature):
			return nil, ErrInvalidSignature
		}
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IssueToken signs a token for subject, valid for ttl. A zero ttl never expires.
func (a *Authorizer) IssueToken(subject, username string, ttl time.Duration) (string, error) {
	now := a.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
		},
		Username: username,
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
