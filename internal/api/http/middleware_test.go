package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/library-service/internal/observability"
	apperrors "github.com/spec-kit/library-service/pkg/util"
)

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func newMiddlewareApp(logger *zap.Logger, metrics *observability.Metrics) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger)})
	RegisterMiddlewares(app, logger, metrics, time.Second)
	return app
}

func doJSON(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, errorEnvelope) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope errorEnvelope
	_ = json.NewDecoder(resp.Body).Decode(&envelope)
	return resp, envelope
}

func TestErrorMiddlewareRendersDomainErrors(t *testing.T) {
	metrics := observability.NewMetrics()
	app := newMiddlewareApp(zap.NewNop(), metrics)
	app.Get("/books/:id", func(c *fiber.Ctx) error {
		return apperrors.NewValidationError("invalid payload", map[string]any{"title": "required"})
	})

	resp, envelope := doJSON(t, app, httptest.NewRequest(http.MethodGet, "/books/3", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", envelope.Error.Code)
	assert.Equal(t, "invalid payload", envelope.Error.Message)
	assert.Equal(t, "required", envelope.Error.Details["title"])
	series, err := testutil.GatherAndCount(metrics.Registry(), "library_http_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series)
}

func TestErrorMiddlewareHidesInternalErrors(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	app := newMiddlewareApp(zap.New(core), nil)
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("connection refused by 10.0.0.3")
	})

	resp, envelope := doJSON(t, app, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "INTERNAL_ERROR", envelope.Error.Code)
	assert.Equal(t, "internal server error", envelope.Error.Message)
	assert.Equal(t, 1, logs.FilterMessage("request failed").Len())
}

func TestErrorMiddlewareRecoversPanics(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	app := newMiddlewareApp(zap.New(core), nil)
	app.Get("/panic", func(c *fiber.Ctx) error {
		panic("nil map")
	})

	resp, envelope := doJSON(t, app, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "INTERNAL_ERROR", envelope.Error.Code)
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	app := newMiddlewareApp(zap.NewNop(), nil)

	resp, envelope := doJSON(t, app, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", envelope.Error.Code)
}

func TestRequestLoggerSeesErrorStatus(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	app := newMiddlewareApp(zap.New(core), nil)
	app.Get("/missing/:id", func(c *fiber.Ctx) error {
		return apperrors.NewNotFound("Book", nil)
	})

	resp, _ := doJSON(t, app, httptest.NewRequest(http.MethodGet, "/missing/9", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(http.StatusNotFound), entries[0].ContextMap()["status"])
	assert.Equal(t, "/missing/:id", entries[0].ContextMap()["route"])
}

func TestRequestTimeoutSetsDeadline(t *testing.T) {
	app := newMiddlewareApp(zap.NewNop(), nil)
	app.Get("/deadline", func(c *fiber.Ctx) error {
		_, ok := c.UserContext().Deadline()
		return c.JSON(fiber.Map{"deadline": ok})
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/deadline", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body["deadline"])
}
