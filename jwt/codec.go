package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	minSecretLength = 32

	typeAccess  = "access"
	typeRefresh = "refresh"

	accessAudienceSuffix  = ":access"
	refreshAudienceSuffix = ":refresh"
)

// ErrInvalidToken is matched by every verification failure.
var ErrInvalidToken = errors.New("invalid or expired token")

// VerifyKind tells expired tokens apart from everything else. Callers that
// answer clients must not branch on it.
type VerifyKind int

const (
	KindInvalid VerifyKind = iota
	KindExpired
)

// VerifyError is returned by VerifyAccess and VerifyRefresh.
type VerifyError struct {
	Kind  VerifyKind
	cause error
}

func (e *VerifyError) Error() string { return ErrInvalidToken.Error() }

// Unwrap exposes ErrInvalidToken and the underlying parser error.
func (e *VerifyError) Unwrap() []error {
	if e.cause == nil {
		return []error{ErrInvalidToken}
	}
	return []error{ErrInvalidToken, e.cause}
}

// Config holds the codec secrets and lifetimes.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	// Audience is suffixed with ":access" / ":refresh" per token kind.
	Audience string
	Leeway   time.Duration
	// Now overrides the clock used for verification; nil means time.Now.
	Now func() time.Time
}

// AccessClaims authorize a request without a store lookup.
type AccessClaims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

// RefreshClaims identify the session a refresh token belongs to.
type RefreshClaims struct {
	UserID    string `json:"uid"`
	SessionID string `json:"sid"`
	Type      string `json:"typ"`
	jwt.RegisteredClaims
}

// Codec signs and verifies access and refresh tokens with HS256.
type Codec struct {
	config Config
}

// NewCodec validates cfg and returns a ready codec.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.AccessSecret) < minSecretLength {
		return nil, fmt.Errorf("access secret must be at least %d bytes", minSecretLength)
	}
	if len(cfg.RefreshSecret) < minSecretLength {
		return nil, fmt.Errorf("refresh secret must be at least %d bytes", minSecretLength)
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.AccessTTL >= cfg.RefreshTTL {
		return nil, errors.New("access TTL must be shorter than refresh TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	cfg.Audience = strings.TrimSpace(cfg.Audience)
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	cfg.AccessSecret = append([]byte(nil), cfg.AccessSecret...)
	cfg.RefreshSecret = append([]byte(nil), cfg.RefreshSecret...)
	return &Codec{config: cfg}, nil
}

// AccessTTL returns the configured access lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.config.AccessTTL }

// RefreshTTL returns the configured refresh lifetime.
func (c *Codec) RefreshTTL() time.Duration { return c.config.RefreshTTL }

// IssueAccess signs an access token valid from now for AccessTTL.
func (c *Codec) IssueAccess(claims AccessClaims, now time.Time) (string, time.Time, error) {
	if claims.UserID == "" {
		return "", time.Time{}, errors.New("access claims require a user id")
	}
	expires := now.Add(c.config.AccessTTL)
	claims.Type = typeAccess
	claims.RegisteredClaims = c.registered(claims.UserID, "", accessAudienceSuffix, now, expires)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.config.AccessSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// IssueRefresh signs a refresh token valid from now for RefreshTTL. The
// session id doubles as the token id so two tokens never collide.
func (c *Codec) IssueRefresh(claims RefreshClaims, now time.Time) (string, time.Time, error) {
	if claims.UserID == "" || claims.SessionID == "" {
		return "", time.Time{}, errors.New("refresh claims require user and session ids")
	}
	expires := now.Add(c.config.RefreshTTL)
	claims.Type = typeRefresh
	claims.RegisteredClaims = c.registered(claims.UserID, claims.SessionID, refreshAudienceSuffix, now, expires)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.config.RefreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// VerifyAccess parses an access token. Any failure is a *VerifyError.
func (c *Codec) VerifyAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := c.parse(token, claims, c.config.AccessSecret, accessAudienceSuffix); err != nil {
		return nil, err
	}
	if claims.Type != typeAccess || claims.UserID == "" {
		return nil, &VerifyError{Kind: KindInvalid, cause: jwt.ErrTokenInvalidClaims}
	}
	return claims, nil
}

// VerifyRefresh parses a refresh token. Any failure is a *VerifyError.
func (c *Codec) VerifyRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := c.parse(token, claims, c.config.RefreshSecret, refreshAudienceSuffix); err != nil {
		return nil, err
	}
	if claims.Type != typeRefresh || claims.UserID == "" || claims.SessionID == "" {
		return nil, &VerifyError{Kind: KindInvalid, cause: jwt.ErrTokenInvalidClaims}
	}
	return claims, nil
}

func (c *Codec) registered(subject, id, audSuffix string, now, expires time.Time) jwt.RegisteredClaims {
	rc := jwt.RegisteredClaims{
		Subject:   subject,
		ID:        id,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
		Issuer:    c.config.Issuer,
	}
	if c.config.Audience != "" {
		rc.Audience = jwt.ClaimStrings{c.config.Audience + audSuffix}
	}
	return rc
}

func (c *Codec) parse(token string, claims jwt.Claims, secret []byte, audSuffix string) error {
	if strings.TrimSpace(token) == "" {
		return &VerifyError{Kind: KindInvalid, cause: jwt.ErrTokenMalformed}
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.config.Now),
	}
	if c.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.config.Leeway))
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}
	if c.config.Audience != "" {
		options = append(options, jwt.WithAudience(c.config.Audience+audSuffix))
	}

	parsed, err := jwt.NewParser(options...).ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return secret, nil
	})
	if err != nil {
		kind := KindInvalid
		if errors.Is(err, jwt.ErrTokenExpired) {
			kind = KindExpired
		}
		return &VerifyError{Kind: kind, cause: err}
	}
	if !parsed.Valid {
		return &VerifyError{Kind: KindInvalid, cause: jwt.ErrTokenInvalidClaims}
	}
	return nil
}
