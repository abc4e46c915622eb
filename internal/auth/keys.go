package auth

import (
	"errors"
	"fmt"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the shortest HMAC secret accepted outside of development.
const MinSecretLength = 32

// KeyMaterial is the process-wide signing key. It is built once at startup
// and never mutated, so it is safe to share across goroutines.
type KeyMaterial struct {
	secret []byte
	method *jwt.SigningMethodHMAC
}

// NewKeyMaterial validates the secret and algorithm and returns an immutable key.
func NewKeyMaterial(secret, algorithm string, allowWeak bool) (KeyMaterial, error) {
	if secret == "" {
		return KeyMaterial{}, errors.New("signing secret is empty")
	}
	if !allowWeak && len(secret) < MinSecretLength {
		return KeyMaterial{}, fmt.Errorf("signing secret must be at least %d bytes", MinSecretLength)
	}

	var method *jwt.SigningMethodHMAC
	switch strings.ToUpper(algorithm) {
	case "", "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return KeyMaterial{}, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}

	return KeyMaterial{secret: []byte(secret), method: method}, nil
}

// Algorithm returns the JWS algorithm identifier, e.g. HS256.
func (k KeyMaterial) Algorithm() string {
	if k.method == nil {
		return ""
	}
	return k.method.Alg()
}

func (k KeyMaterial) valid() bool {
	return k.method != nil && len(k.secret) > 0
}
