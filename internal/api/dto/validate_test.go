package dto

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/library-service/pkg/util"
)

func intPtr(v int) *int { return &v }

func TestValidateRegister(t *testing.T) {
	require.NoError(t, Validate(RegisterRequest{Name: "Alice", Email: "alice@example.com", Password: "secret1"}))

	err := Validate(RegisterRequest{Email: "nope", Password: "123"})
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
	assert.Equal(t, map[string]any{
		"name":     "is required",
		"email":    "must be a valid email",
		"password": "must be at least 6",
	}, domainErr.Details)

	err = Validate(RegisterRequest{Name: "A", Email: "a@example.com", Password: strings.Repeat("x", 73)})
	assert.Equal(t, "must be at most 72", apperrors.ToDomainError(err).Details["password"])
}

func TestValidateBook(t *testing.T) {
	valid := BookRequest{Title: "Dune", AuthorID: 1, CategoryID: 2, ReleaseYear: intPtr(0)}
	require.NoError(t, Validate(valid))

	err := Validate(BookRequest{Title: "Dune", AuthorID: 1, CategoryID: 2})
	assert.Equal(t, "is required", apperrors.ToDomainError(err).Details["release_year"])

	err = Validate(BookRequest{Title: "Dune", AuthorID: 1, CategoryID: 2, ReleaseYear: intPtr(3000)})
	assert.Equal(t, "must be at most 2026", apperrors.ToDomainError(err).Details["release_year"])

	err = Validate(BookRequest{Title: "", AuthorID: -1, CategoryID: 2, ReleaseYear: intPtr(2000)})
	details := apperrors.ToDomainError(err).Details
	assert.Equal(t, "is required", details["title"])
	assert.Equal(t, "must be greater than 0", details["author_id"])
}

func TestValidateSearchQuery(t *testing.T) {
	require.NoError(t, Validate(BookSearchQuery{}))
	err := Validate(BookSearchQuery{ReleaseYear: intPtr(-5)})
	assert.Equal(t, "must be at least 0", apperrors.ToDomainError(err).Details["release_year"])
}
