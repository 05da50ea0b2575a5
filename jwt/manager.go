package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

// MinSecretLength is the shortest HS256 secret NewManager accepts.
const MinSecretLength = 32

var (
	// ErrSecretRequired is returned by NewManager when no signing secret is configured.
	ErrSecretRequired = errors.New("jwt signing secret is required")
	// ErrSecretTooShort is returned by NewManager for secrets under MinSecretLength bytes.
	ErrSecretTooShort = errors.New("jwt signing secret is too short")
	// ErrInvalidConfig is returned by NewManager for out-of-range TTL or leeway values.
	ErrInvalidConfig = errors.New("invalid jwt configuration")
	// ErrEmptySubject is returned by Issue when no subject is given.
	ErrEmptySubject = errors.New("token subject is empty")

	// ErrTokenInvalid covers malformed tokens, bad signatures, unexpected
	// algorithms and claims that fail issuer, audience or presence checks.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired is returned only for correctly signed tokens whose exp has passed.
	ErrTokenExpired = errors.New("token expired")
)

// Config configures a Manager. Secret is the HS256 key; it is copied and
// never read from the environment by this package.
type Config struct {
	Secret   []byte
	TTL      time.Duration
	Issuer   string
	Audience string
	Leeway   time.Duration
}

// Claims is the token payload: sub, iat, exp and jti. Nothing else about
// the account is embedded.
type Claims struct {
	jwt.RegisteredClaims
}

// IssueTime returns the issue time to the millisecond. Tokens from Issue
// carry it in the jti ULID; any other jti, or one whose time disagrees with
// iat, falls back to the second-precision iat.
func (c *Claims) IssueTime() time.Time {
	var iat time.Time
	if c.IssuedAt != nil {
		iat = c.IssuedAt.Time
	}
	id, err := ulid.ParseStrict(c.ID)
	if err != nil {
		return iat
	}
	t := ulid.Time(id.Time())
	if iat.IsZero() || t.Truncate(time.Second).Unix() != iat.Unix() {
		return iat
	}
	return t
}

// Token is an issued bearer credential with the values the caller needs
// without parsing it again.
type Token struct {
	Value     string
	ID        string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Manager issues and parses HS256 session tokens.
type Manager struct {
	secret   []byte
	ttl      time.Duration
	issuer   string
	audience string
	parser   *jwt.Parser
	now      func() time.Time
}

// NewManager validates cfg and returns a Manager. A missing or short secret
// is a configuration error.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrSecretRequired
	}
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: need at least %d bytes", ErrSecretTooShort, MinSecretLength)
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("%w: ttl must be positive", ErrInvalidConfig)
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, fmt.Errorf("%w: leeway must be within [0, 2m]", ErrInvalidConfig)
	}

	m := &Manager{
		secret:   append([]byte(nil), cfg.Secret...),
		ttl:      cfg.TTL,
		issuer:   strings.TrimSpace(cfg.Issuer),
		audience: strings.TrimSpace(cfg.Audience),
		now:      time.Now,
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return m.now() }),
	}
	if cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(cfg.Leeway))
	}
	if m.issuer != "" {
		options = append(options, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		options = append(options, jwt.WithAudience(m.audience))
	}
	m.parser = jwt.NewParser(options...)

	return m, nil
}

// TTL returns the lifetime given to issued tokens.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for subject with a fresh jti.
func (m *Manager) Issue(subject string) (Token, error) {
	if strings.TrimSpace(subject) == "" {
		return Token{}, ErrEmptySubject
	}

	issued := m.now()
	id, err := ulid.New(ulid.Timestamp(issued), ulid.DefaultEntropy())
	if err != nil {
		return Token{}, fmt.Errorf("generate token id: %w", err)
	}

	// Second precision matches what survives the NumericDate round trip.
	// The jti keeps the millisecond; see Claims.IssueTime.
	now := issued.Truncate(time.Second)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        id.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			Issuer:    m.issuer,
		},
	}
	if m.audience != "" {
		claims.Audience = jwt.ClaimStrings{m.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}

	return Token{
		Value:     signed,
		ID:        claims.ID,
		Subject:   subject,
		IssuedAt:  now,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Parse verifies the signature and time claims of token. Errors wrap
// ErrTokenInvalid or ErrTokenExpired; the signature is checked first, so a
// forged token never reports ErrTokenExpired.
func (m *Manager) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := m.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: missing sub or jti", ErrTokenInvalid)
	}

	return claims, nil
}
