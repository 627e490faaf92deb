package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/decksmith/deck-api/internal/core/domain"
	"github.com/decksmith/deck-api/internal/core/ports"
)

const tokenType = "JWT"

var errUnsupportedAlg = errors.New("unsupported signing method")

// sessionClaims is the wire form of domain.TokenClaims.
type sessionClaims struct {
	UserID string        `json:"id"`
	Email  string        `json:"email"`
	Roles  []domain.Role `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// JWTCodec signs session tokens with HMAC-SHA256.
type JWTCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

var _ ports.TokenCodec = (*JWTCodec)(nil)

// NewJWTCodec returns a codec for secret issuing tokens valid for ttl.
func NewJWTCodec(secret string, ttl time.Duration) (*JWTCodec, error) {
	if secret == "" {
		return nil, errors.New("token: signing secret must not be empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token: ttl must be positive, got %s", ttl)
	}
	return &JWTCodec{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// WithClock replaces the time source. Used by tests.
func (c *JWTCodec) WithClock(now func() time.Time) *JWTCodec {
	cp := *c
	cp.now = now
	return &cp
}

// Issue signs claims. IssuedAt and ExpiresAt are overwritten and truncated to
// the second precision of the wire format.
func (c *JWTCodec) Issue(claims domain.TokenClaims) (string, domain.TokenClaims, error) {
	iat := c.now().UTC().Truncate(time.Second)
	exp := iat.Add(c.ttl).Truncate(time.Second)
	claims.IssuedAt = iat
	claims.ExpiresAt = exp

	wire := sessionClaims{
		UserID: claims.ID,
		Email:  claims.Email,
		Roles:  claims.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, wire).SignedString(c.secret)
	if err != nil {
		return "", domain.TokenClaims{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Parse verifies the signature and expiry of raw and returns its claims. A
// token is expired once now is strictly after its exp claim, and an expired
// token reports ErrTokenExpired even when its signature does not verify.
func (c *JWTCodec) Parse(raw string) (domain.TokenClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.TokenClaims{}, domain.ErrTokenInvalidArgument
	}

	parser := jwt.NewParser(
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		// exp is whole seconds; the parser otherwise rejects now == exp.
		jwt.WithLeeway(time.Nanosecond),
	)

	var wire sessionClaims
	_, err := parser.ParseWithClaims(raw, &wire, c.keyFunc)
	if err != nil {
		if !errors.Is(err, jwt.ErrTokenMalformed) && c.expired(raw) {
			return domain.TokenClaims{}, domain.ErrTokenExpired
		}
		return domain.TokenClaims{}, classify(err)
	}

	claims := domain.TokenClaims{
		Subject: wire.Subject,
		ID:      wire.UserID,
		Email:   wire.Email,
		Roles:   wire.Roles,
	}
	if wire.IssuedAt != nil {
		claims.IssuedAt = wire.IssuedAt.Time.UTC()
	}
	if wire.ExpiresAt != nil {
		claims.ExpiresAt = wire.ExpiresAt.Time.UTC()
	}
	return claims, nil
}

// Validate reports whether raw would parse.
func (c *JWTCodec) Validate(raw string) bool {
	_, err := c.Parse(raw)
	return err == nil
}

// expired reads exp without verifying the signature.
func (c *JWTCodec) expired(raw string) bool {
	var wire sessionClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &wire); err != nil || wire.ExpiresAt == nil {
		return false
	}
	return c.now().After(wire.ExpiresAt.Time)
}

func (c *JWTCodec) keyFunc(t *jwt.Token) (any, error) {
	if t.Method == nil || t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, fmt.Errorf("%w: %v", errUnsupportedAlg, t.Header["alg"])
	}
	if typ, ok := t.Header["typ"]; ok && typ != tokenType {
		return nil, fmt.Errorf("%w: typ %v", errUnsupportedAlg, typ)
	}
	return c.secret, nil
}

// classify maps jwt parser errors onto the domain token errors.
func classify(err error) error {
	switch {
	case errors.Is(err, errUnsupportedAlg):
		return fmt.Errorf("%w: %v", domain.ErrTokenUnsupported, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", domain.ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return domain.ErrTokenSignatureInvalid
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", domain.ErrTokenUnsupported, err)
	default:
		return fmt.Errorf("%w: %v", domain.ErrTokenMalformed, err)
	}
}
