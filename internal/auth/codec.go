package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrMalformed reports a token that is not structurally a signed JWT.
	ErrMalformed = errors.New("token malformed")
	// ErrInvalidSignature reports a token that was tampered with or signed
	// by a different key or algorithm.
	ErrInvalidSignature = errors.New("token signature invalid")
	// ErrExpired reports a correctly signed token past its expiry.
	ErrExpired = errors.New("token expired")
)

// registeredClaims are owned by the codec and cannot be supplied by callers.
var registeredClaims = map[string]struct{}{
	"sub": {}, "iat": {}, "exp": {}, "jti": {}, "nbf": {}, "iss": {}, "aud": {},
}

// Clock returns the current time.
type Clock func() time.Time

// DecodedToken is the verified content of a token. Expiry has not been checked.
type DecodedToken struct {
	Subject   string
	Claims    map[string]any
	IssuedAt  time.Time
	ExpiresAt time.Time
	TokenID   string
}

// Codec signs and verifies compact JWS tokens with a fixed KeyMaterial.
type Codec struct {
	keys   KeyMaterial
	now    Clock
	parser *jwt.Parser
}

// NewCodec builds a codec. A nil clock defaults to time.Now.
func NewCodec(keys KeyMaterial, now Clock) (*Codec, error) {
	if !keys.valid() {
		return nil, errors.New("key material is not initialized")
	}
	if now == nil {
		now = time.Now
	}
	return &Codec{
		keys: keys,
		now:  now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{keys.Algorithm()}),
			jwt.WithoutClaimsValidation(),
			jwt.WithStrictDecoding(),
		),
	}, nil
}

// Issue signs subject and claims into a token valid for ttl.
func (c *Codec) Issue(subject string, claims map[string]any, ttl time.Duration) (string, time.Time, error) {
	if strings.TrimSpace(subject) == "" {
		return "", time.Time{}, errors.New("subject is required")
	}
	if ttl <= 0 {
		return "", time.Time{}, errors.New("ttl must be positive")
	}

	issuedAt := c.now()
	expiresAt := ceilToSecond(issuedAt.Add(ttl))

	payload := make(jwt.MapClaims, len(claims)+4)
	for name, value := range claims {
		if _, reserved := registeredClaims[name]; reserved {
			continue
		}
		payload[name] = value
	}
	payload["sub"] = subject
	payload["iat"] = jwt.NewNumericDate(issuedAt)
	payload["exp"] = jwt.NewNumericDate(expiresAt)
	payload["jti"] = uuid.NewString()

	signed, err := jwt.NewWithClaims(c.keys.method, payload).SignedString(c.keys.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Decode verifies structure and signature of token and returns its content.
func (c *Codec) Decode(token string) (*DecodedToken, error) {
	payload := jwt.MapClaims{}
	if _, err := c.parser.ParseWithClaims(token, payload, c.keyFunc); err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) && nonCanonicalSignature(token) {
			return nil, fmt.Errorf("%w: signature encoding altered", ErrInvalidSignature)
		}
		return nil, classify(err)
	}

	subject, err := payload.GetSubject()
	if err != nil || subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrMalformed)
	}
	exp, err := payload.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: missing expiry", ErrMalformed)
	}
	iat, err := payload.GetIssuedAt()
	if err != nil {
		return nil, fmt.Errorf("%w: bad issued-at", ErrMalformed)
	}

	decoded := &DecodedToken{
		Subject:   subject,
		Claims:    make(map[string]any, len(payload)),
		ExpiresAt: exp.Time,
	}
	if iat != nil {
		decoded.IssuedAt = iat.Time
	}
	if jti, ok := payload["jti"].(string); ok {
		decoded.TokenID = jti
	}
	for name, value := range payload {
		if _, reserved := registeredClaims[name]; reserved {
			continue
		}
		decoded.Claims[name] = value
	}
	return decoded, nil
}

func (c *Codec) keyFunc(token *jwt.Token) (any, error) {
	if token.Method.Alg() != c.keys.Algorithm() {
		return nil, fmt.Errorf("unexpected signing method %s", token.Method.Alg())
	}
	return c.keys.secret, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

// nonCanonicalSignature reports a token whose header and payload decode
// strictly but whose signature only decodes once its unused trailing bits are
// ignored. Such a signature was altered after signing.
func nonCanonicalSignature(token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}
	strict := base64.RawURLEncoding.Strict()
	for _, segment := range parts[:2] {
		if _, err := strict.DecodeString(segment); err != nil {
			return false
		}
	}
	if _, err := strict.DecodeString(parts[2]); err == nil {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(parts[2])
	return err == nil
}

// ceilToSecond matches NumericDate precision so exp never precedes the
// instant the token was issued.
func ceilToSecond(t time.Time) time.Time {
	truncated := t.Truncate(time.Second)
	if truncated.Equal(t) {
		return t
	}
	return truncated.Add(time.Second)
}
