package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the identity carried by a bearer token.
type TokenClaims struct {
	UserID    int64
	Email     string
	Role      Role
	SessionID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// jwtClaims is the wire form: {sub, email, role, session_id, iat, exp}.
type jwtClaims struct {
	jwt.RegisteredClaims
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	SessionID string `json:"session_id"`
}

// TokenCodec issues and parses HS256-signed bearer tokens. The key is fixed
// at construction; Issue and Parse are pure and safe for concurrent use.
//
// Parse only checks the token itself. Whether the referenced session is
// still active is a separate question answered by SessionManager.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

// NewTokenCodec returns a codec signing with secret.
func NewTokenCodec(secret string) *TokenCodec {
	return &TokenCodec{secret: []byte(secret), now: time.Now}
}

// Issue signs claims with the given lifetime. IssuedAt and ExpiresAt on the
// argument are ignored and set from the codec's clock.
func (c *TokenCodec) Issue(claims TokenClaims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("issuing token: ttl must be positive")
	}
	if claims.SessionID == "" {
		return "", fmt.Errorf("issuing token: session id is required")
	}

	now := c.now()
	wire := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(claims.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:     claims.Email,
		Role:      claims.Role,
		SessionID: claims.SessionID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, wire).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature, algorithm and expiry of token and returns its
// claims. Every failure wraps ErrTokenInvalid.
func (c *TokenCodec) Parse(token string) (*TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwtClaims{}, func(_ *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	wire, ok := parsed.Claims.(*jwtClaims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	userID, err := strconv.ParseInt(wire.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a user id", ErrTokenInvalid)
	}
	if wire.SessionID == "" {
		return nil, fmt.Errorf("%w: missing session_id", ErrTokenInvalid)
	}

	claims := &TokenClaims{
		UserID:    userID,
		Email:     wire.Email,
		Role:      wire.Role,
		SessionID: wire.SessionID,
	}
	if wire.IssuedAt != nil {
		claims.IssuedAt = wire.IssuedAt.Time
	}
	if wire.ExpiresAt != nil {
		claims.ExpiresAt = wire.ExpiresAt.Time
	}
	return claims, nil
}

// IsExpired reports whether err came from an expired token.
func IsExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}
