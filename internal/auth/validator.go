package auth

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Reason classifies why a credential was rejected.
type Reason string

const (
	ReasonMalformed        Reason = "malformed"
	ReasonInvalidSignature Reason = "invalid_signature"
	ReasonExpired          Reason = "expired"
)

// Rejection is the only error Validate returns.
type Rejection struct {
	Reason Reason
	Err    error
}

func (r *Rejection) Error() string {
	if r.Err != nil {
		return fmt.Sprintf("credential rejected (%s): %v", r.Reason, r.Err)
	}
	return fmt.Sprintf("credential rejected (%s)", r.Reason)
}

func (r *Rejection) Unwrap() error {
	return r.Err
}

// ReasonOf extracts the rejection reason from err, defaulting to malformed.
func ReasonOf(err error) Reason {
	var rejection *Rejection
	if errors.As(err, &rejection) {
		return rejection.Reason
	}
	switch {
	case errors.Is(err, ErrExpired):
		return ReasonExpired
	case errors.Is(err, ErrInvalidSignature):
		return ReasonInvalidSignature
	}
	return ReasonMalformed
}

// Identity is the principal resolved from a valid token. It lives for one request.
type Identity struct {
	Subject   string
	Roles     []string
	Claims    map[string]any
	IssuedAt  time.Time
	ExpiresAt time.Time
	TokenID   string
}

// HasRole reports whether the identity carries any of roles.
func (i *Identity) HasRole(roles ...string) bool {
	if i == nil {
		return false
	}
	for _, role := range roles {
		if slices.Contains(i.Roles, role) {
			return true
		}
	}
	return false
}

// StringClaim returns a custom string claim or "".
func (i *Identity) StringClaim(name string) string {
	if i == nil {
		return ""
	}
	value, _ := i.Claims[name].(string)
	return value
}

// ValidatorConfig carries the expiry and claim policy.
type ValidatorConfig struct {
	Leeway     time.Duration
	RolesClaim string
	Now        Clock
}

// Validator decides authenticity and currency of a token.
type Validator struct {
	codec      *Codec
	leeway     time.Duration
	rolesClaim string
	now        Clock
}

// NewValidator builds a validator over codec.
func NewValidator(codec *Codec, cfg ValidatorConfig) *Validator {
	if cfg.RolesClaim == "" {
		cfg.RolesClaim = "roles"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Leeway < 0 {
		cfg.Leeway = 0
	}
	return &Validator{codec: codec, leeway: cfg.Leeway, rolesClaim: cfg.RolesClaim, now: cfg.Now}
}

// Validate verifies the signature first and the expiry second.
func (v *Validator) Validate(token string) (*Identity, error) {
	decoded, err := v.codec.Decode(token)
	if err != nil {
		return nil, &Rejection{Reason: ReasonOf(err), Err: err}
	}

	if !v.now().Before(decoded.ExpiresAt.Add(v.leeway)) {
		return nil, &Rejection{
			Reason: ReasonExpired,
			Err:    fmt.Errorf("%w at %s", ErrExpired, decoded.ExpiresAt.UTC().Format(time.RFC3339)),
		}
	}

	roles, ok := rolesFrom(decoded.Claims[v.rolesClaim])
	if !ok {
		return nil, &Rejection{
			Reason: ReasonMalformed,
			Err:    fmt.Errorf("%w: claim %q has unexpected type", ErrMalformed, v.rolesClaim),
		}
	}

	return &Identity{
		Subject:   decoded.Subject,
		Roles:     roles,
		Claims:    decoded.Claims,
		IssuedAt:  decoded.IssuedAt,
		ExpiresAt: decoded.ExpiresAt,
		TokenID:   decoded.TokenID,
	}, nil
}

// RolesClaim is the claim name roles are stored under.
func (v *Validator) RolesClaim() string {
	return v.rolesClaim
}

func rolesFrom(raw any) ([]string, bool) {
	switch value := raw.(type) {
	case nil:
		return nil, true
	case string:
		if value == "" {
			return nil, true
		}
		return []string{value}, true
	case []string:
		return value, true
	case []any:
		roles := make([]string, 0, len(value))
		for _, item := range value {
			role, ok := item.(string)
			if !ok {
				return nil, false
			}
			roles = append(roles, role)
		}
		return roles, true
	default:
		return nil, false
	}
}
