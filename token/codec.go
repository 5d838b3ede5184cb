package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Type tags a token as belonging to exactly one credential class. A token
// presented as the wrong class fails verification as malformed.
type Type string

const (
	// TypeAccess marks short-lived tokens presented on API calls.
	TypeAccess Type = "access"
	// TypeRefresh marks rotation-chain tokens redeemed for new pairs.
	TypeRefresh Type = "refresh"
)

// Reason classifies why verification rejected a token.
type Reason int

const (
	// ReasonMalformed covers undecodable tokens, wrong token types, and any
	// claim-shape defect that is not a signature or expiry failure.
	ReasonMalformed Reason = iota
	// ReasonBadSignature means the token decoded but was not signed with the
	// process secret.
	ReasonBadSignature
	// ReasonExpired means the signature checked out but the token is outside
	// its validity window (beyond leeway).
	ReasonExpired
)

// String returns the stable wire name for the reason.
func (r Reason) String() string {
	switch r {
	case ReasonBadSignature:
		return "bad_signature"
	case ReasonExpired:
		return "expired"
	default:
		return "malformed"
	}
}

// VerifyError is the typed failure returned by [Codec.Verify]. Callers
// branch on Reason rather than matching error strings.
type VerifyError struct {
	Reason Reason
	err    error
}

func (e *VerifyError) Error() string {
	if e.err == nil {
		return "token " + e.Reason.String()
	}
	return fmt.Sprintf("token %s: %v", e.Reason, e.err)
}

func (e *VerifyError) Unwrap() error { return e.err }

// Claims is the signed claim set shared by both token classes. Access tokens
// carry Scopes; refresh tokens carry FamilyID and SequenceID.
type Claims struct {
	Type       Type     `json:"type"`
	Scopes     []string `json:"scopes,omitempty"`
	FamilyID   string   `json:"fid,omitempty"`
	SequenceID string   `json:"seq,omitempty"`
	jwt.RegisteredClaims
}

// Config holds the process-wide signing material and validation knobs.
type Config struct {
	Secret []byte
	Issuer string
	Leeway time.Duration
}

// Codec issues and verifies signed claim sets. It is a pure function of its
// config and the clock; it holds no mutable state and is safe for concurrent
// use.
type Codec struct {
	config Config
}

const minSecretLen = 32

// NewCodec validates the config and returns a Codec. The secret must be at
// least 32 bytes; leeway is capped at two minutes.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) < minSecretLen {
		return nil, errors.New("signing secret must be at least 32 bytes")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Codec{config: cfg}, nil
}

// Issue embeds issued-at and expiry around the caller claims and signs the
// set with the process secret.
func (c *Codec) Issue(claims Claims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("invalid token ttl")
	}
	if claims.Type != TypeAccess && claims.Type != TypeRefresh {
		return "", errors.New("invalid token type")
	}

	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	if c.config.Issuer != "" {
		claims.Issuer = c.config.Issuer
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.config.Secret)
}

// Verify parses and validates a token of the expected class. Failures are
// always a *VerifyError carrying a [Reason].
func (c *Codec) Verify(tokenStr string, typ Type) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if c.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.config.Leeway))
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return c.config.Secret, nil
	})
	if err != nil {
		return nil, classify(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, &VerifyError{Reason: ReasonMalformed, err: jwt.ErrTokenInvalidClaims}
	}
	if claims.Type != typ {
		return nil, &VerifyError{Reason: ReasonMalformed, err: errors.New("unexpected token type")}
	}

	return claims, nil
}

func classify(err error) *VerifyError {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return &VerifyError{Reason: ReasonExpired, err: err}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return &VerifyError{Reason: ReasonBadSignature, err: err}
	default:
		return &VerifyError{Reason: ReasonMalformed, err: err}
	}
}
