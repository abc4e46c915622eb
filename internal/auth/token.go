package auth

import (
	"maps"
	"time"
)

// Recorder observes credential outcomes. observability.Metrics implements it.
type Recorder interface {
	RecordTokenIssued()
	RecordAuthRejection(reason string)
}

type nopRecorder struct{}

func (nopRecorder) RecordTokenIssued()         {}
func (nopRecorder) RecordAuthRejection(string) {}

// TokenManager issues tokens with the configured default lifetime and role claim.
type TokenManager struct {
	codec     *Codec
	validator *Validator
	ttl       time.Duration
	recorder  Recorder
}

// NewTokenManager builds a new manager.
func NewTokenManager(codec *Codec, validator *Validator, ttl time.Duration, recorder Recorder) *TokenManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &TokenManager{codec: codec, validator: validator, ttl: ttl, recorder: recorder}
}

// GenerateToken signs a token for subject carrying roles and extra claims.
func (tm *TokenManager) GenerateToken(subject string, roles []string, claims map[string]any) (string, time.Time, error) {
	payload := make(map[string]any, len(claims)+1)
	maps.Copy(payload, claims)
	if len(roles) > 0 {
		payload[tm.validator.RolesClaim()] = roles
	}

	token, expiresAt, err := tm.codec.Issue(subject, payload, tm.ttl)
	if err != nil {
		return "", time.Time{}, err
	}
	tm.recorder.RecordTokenIssued()
	return token, expiresAt, nil
}

// Validator exposes the validator for the access gate.
func (tm *TokenManager) Validator() *Validator {
	return tm.validator
}

// TTL returns the default token lifetime.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}
