package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/library-service/pkg/util"
)

const identityKey = "auth_identity"

const bearerChallenge = `Bearer error="invalid_token"`

// AuthMiddleware is the access gate. It resolves the bearer token into an
// Identity without touching the request body or any datastore.
type AuthMiddleware struct {
	validator *Validator
	logger    *zap.Logger
	recorder  Recorder
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(validator *Validator, logger *zap.Logger, recorder Recorder) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &AuthMiddleware{validator: validator, logger: logger, recorder: recorder}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
		return apperrors.NewUnauthorized("missing authorization header")
	}
	return m.authenticate(c, authHeader)
}

// Attach resolves an identity when Bearer credentials are present and
// otherwise lets the request through untouched. Other schemes are not ours
// to judge and pass as anonymous.
func (m *AuthMiddleware) Attach(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" || !isBearer(authHeader) {
		return c.Next()
	}
	return m.authenticate(c, authHeader)
}

func isBearer(authHeader string) bool {
	scheme, _, _ := strings.Cut(strings.TrimSpace(authHeader), " ")
	return strings.EqualFold(scheme, "Bearer")
}

func (m *AuthMiddleware) authenticate(c *fiber.Ctx, authHeader string) error {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return m.reject(c, ReasonMalformed, "invalid authorization header", nil)
	}

	identity, err := m.validator.Validate(strings.TrimSpace(parts[1]))
	if err != nil {
		return m.reject(c, ReasonOf(err), "invalid token", err)
	}

	c.Locals(identityKey, identity)
	return c.Next()
}

func (m *AuthMiddleware) reject(c *fiber.Ctx, reason Reason, message string, cause error) error {
	m.recorder.RecordAuthRejection(string(reason))
	m.logger.Debug("credential rejected",
		zap.String("reason", string(reason)),
		zap.String("path", c.Path()),
		zap.Error(cause))
	c.Set(fiber.HeaderWWWAuthenticate, bearerChallenge)
	return apperrors.NewUnauthorizedWithReason(message, string(reason))
}

// IdentityFromContext retrieves the authenticated caller.
func IdentityFromContext(c *fiber.Ctx) (*Identity, bool) {
	val := c.Locals(identityKey)
	if val == nil {
		return nil, false
	}
	identity, ok := val.(*Identity)
	return identity, ok
}
