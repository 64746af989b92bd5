package tokens

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrSignatureInvalid = errors.New("token signature invalid")
	ErrMalformed        = errors.New("token malformed")
)

// Claims is the signed payload embedded in every issued token.
type Claims struct {
	jwt.RegisteredClaims
}

func (c *Claims) Username() string { return c.Subject }

// Expired reports whether the claims-encoded expiry has passed. Revocation
// state is tracked separately in the ledger; both checks are required.
func (c *Claims) Expired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return true
	}
	return !now.Before(c.ExpiresAt.Time)
}

// Codec signs and verifies token strings with a single process-wide HMAC
// key. The key is set at construction and never mutated, so a Codec is safe
// for unbounded concurrent use.
type Codec struct {
	key        []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewCodec(key []byte, accessTTL, refreshTTL time.Duration) *Codec {
	return &Codec{key: key, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

func (c *Codec) AccessTTL() time.Duration  { return c.accessTTL }
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// IssueAccess signs a short-lived token for the given username.
func (c *Codec) IssueAccess(username string) (string, error) {
	return c.issue(username, c.accessTTL)
}

// IssueRefresh signs a long-lived token for the given username.
func (c *Codec) IssueRefresh(username string) (string, error) {
	return c.issue(username, c.refreshTTL)
}

func (c *Codec) issue(username string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.key)
}

// Decode verifies the signature and structure of tokenStr and returns its
// claims. Expiry and revocation are deliberately not checked here; callers
// layer those on so the codec stays free of persistence and clock policy.
func (c *Codec) Decode(tokenStr string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrSignatureInvalid
		}
		return c.key, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, ErrSignatureInvalid
		}
		return nil, ErrMalformed
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrMalformed
	}
	return &claims, nil
}

// FromBearer extracts the token from an "Authorization: Bearer <token>"
// header value. Returns "" if the header is absent or not bearer-shaped.
func FromBearer(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
