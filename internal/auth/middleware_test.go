package auth

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/library-service/internal/domain"
	apperrors "github.com/spec-kit/library-service/pkg/util"
)

type countingRecorder struct {
	mu         sync.Mutex
	issued     int
	rejections map[string]int
}

func (r *countingRecorder) RecordTokenIssued() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.issued++
}

func (r *countingRecorder) RecordAuthRejection(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rejections == nil {
		r.rejections = map[string]int{}
	}
	r.rejections[reason]++
}

type gateFixture struct {
	app      *fiber.App
	tokens   *TokenManager
	clock    *mutableClock
	recorder *countingRecorder
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()
	clock := &mutableClock{now: time.Now()}
	codec := newTestCodec(t, clock.Now)
	validator := NewValidator(codec, ValidatorConfig{Now: clock.Now})
	recorder := &countingRecorder{}
	tokens := NewTokenManager(codec, validator, time.Minute, recorder)
	gate := NewAuthMiddleware(validator, zap.NewNop(), recorder)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{
				"code":    domainErr.Code,
				"message": domainErr.Message,
				"details": domainErr.Details,
			}})
		},
	})

	echo := func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return c.JSON(fiber.Map{"subject": "", "body": string(c.Body())})
		}
		return c.JSON(fiber.Map{"subject": identity.Subject, "body": string(c.Body())})
	}

	app.Get("/public", gate.Attach, echo)
	app.Post("/public", gate.Attach, echo)
	app.Get("/private", gate.Handle, echo)
	app.Get("/admin", gate.Handle, RequireRoles(domain.RoleAdmin), echo)
	app.Get("/any", gate.Attach, RequireAuthenticated(), echo)

	return &gateFixture{app: app, tokens: tokens, clock: clock, recorder: recorder}
}

func (f *gateFixture) do(t *testing.T, method, path, authorization string, body io.Reader) (*http.Response, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp, payload
}

func stringsReader(s string) io.Reader {
	return strings.NewReader(s)
}

func errorReason(payload map[string]any) string {
	errBody, _ := payload["error"].(map[string]any)
	details, _ := errBody["details"].(map[string]any)
	reason, _ := details["reason"].(string)
	return reason
}

func TestGateRequired(t *testing.T) {
	f := newGateFixture(t)
	token, _, err := f.tokens.GenerateToken("7", []string{"USER"}, map[string]any{"email": "a@example.com"})
	require.NoError(t, err)

	t.Run("valid token is authenticated", func(t *testing.T) {
		resp, payload := f.do(t, http.MethodGet, "/private", "Bearer "+token, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "7", payload["subject"])
	})

	t.Run("scheme is case insensitive", func(t *testing.T) {
		resp, _ := f.do(t, http.MethodGet, "/private", "bearer "+token, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("missing header", func(t *testing.T) {
		resp, payload := f.do(t, http.MethodGet, "/private", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
		assert.Equal(t, "UNAUTHORIZED", payload["error"].(map[string]any)["code"])
	})

	t.Run("wrong scheme", func(t *testing.T) {
		resp, payload := f.do(t, http.MethodGet, "/private", "Basic dXNlcjpwdw==", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, string(ReasonMalformed), errorReason(payload))
	})

	t.Run("tampered signature", func(t *testing.T) {
		resp, payload := f.do(t, http.MethodGet, "/private", "Bearer "+tamperSignature(token), nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, string(ReasonInvalidSignature), errorReason(payload))
		assert.Contains(t, resp.Header.Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("garbage token", func(t *testing.T) {
		resp, payload := f.do(t, http.MethodGet, "/private", "Bearer not-a-token", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, string(ReasonMalformed), errorReason(payload))
	})
}

func TestGateExpiredToken(t *testing.T) {
	f := newGateFixture(t)
	token, _, err := f.tokens.GenerateToken("7", nil, nil)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Minute)
	resp, payload := f.do(t, http.MethodGet, "/private", "Bearer "+token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, string(ReasonExpired), errorReason(payload))
	assert.Equal(t, 1, f.recorder.rejections[string(ReasonExpired)])
}

func TestGateOptional(t *testing.T) {
	f := newGateFixture(t)
	token, _, err := f.tokens.GenerateToken("9", []string{"USER"}, nil)
	require.NoError(t, err)

	t.Run("anonymous passes through unchanged", func(t *testing.T) {
		resp, payload := f.do(t, http.MethodPost, "/public", "", stringsReader(`{"title":"Dune"}`))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "", payload["subject"])
		assert.Equal(t, `{"title":"Dune"}`, payload["body"])
	})

	t.Run("valid token attaches identity", func(t *testing.T) {
		resp, payload := f.do(t, http.MethodPost, "/public", "Bearer "+token, stringsReader(`{"title":"Dune"}`))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "9", payload["subject"])
		assert.Equal(t, `{"title":"Dune"}`, payload["body"])
	})

	t.Run("foreign scheme passes as anonymous", func(t *testing.T) {
		resp, payload := f.do(t, http.MethodGet, "/public", "Basic dXNlcjpwdw==", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "", payload["subject"])
	})

	t.Run("empty bearer credentials are rejected", func(t *testing.T) {
		resp, payload := f.do(t, http.MethodGet, "/public", "Bearer ", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, string(ReasonMalformed), errorReason(payload))
	})

	t.Run("invalid token is still rejected", func(t *testing.T) {
		resp, _ := f.do(t, http.MethodGet, "/public", "Bearer "+tamperSignature(token), nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("require authenticated after attach", func(t *testing.T) {
		resp, _ := f.do(t, http.MethodGet, "/any", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		resp, _ = f.do(t, http.MethodGet, "/any", "Bearer "+token, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestRequireRoles(t *testing.T) {
	f := newGateFixture(t)
	userToken, _, err := f.tokens.GenerateToken("1", []string{string(domain.RoleUser)}, nil)
	require.NoError(t, err)
	adminToken, _, err := f.tokens.GenerateToken("2", []string{string(domain.RoleAdmin)}, nil)
	require.NoError(t, err)

	resp, payload := f.do(t, http.MethodGet, "/admin", "Bearer "+userToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", payload["error"].(map[string]any)["code"])

	resp, payload = f.do(t, http.MethodGet, "/admin", "Bearer "+adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2", payload["subject"])

	assert.Equal(t, 2, f.recorder.issued)
}
