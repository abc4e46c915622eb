package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/library-service/internal/auth"
	"github.com/spec-kit/library-service/internal/domain"
	"github.com/spec-kit/library-service/internal/events"
	"github.com/spec-kit/library-service/internal/repository"
	apperrors "github.com/spec-kit/library-service/pkg/util"
)

const (
	claimEmail = "email"
	claimName  = "name"
)

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// Profile is the caller as described by their token.
type Profile struct {
	ID    int64
	Name  string
	Email string
	Role  domain.Role
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenManager
	hasher     *auth.PasswordHasher
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	Users      repository.UserRepository
	Tokens     *auth.TokenManager
	Hasher     *auth.PasswordHasher
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.Users,
		tokens:     deps.Tokens,
		hasher:     deps.Hasher,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Register creates a USER account and signs it in.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("Email is already in use", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return nil, apperrors.NewValidationError("invalid payload", map[string]any{"password": "must be at most 72 bytes"})
	}
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("Email is already in use", map[string]any{"email": email})
		}
		return nil, err
	}

	publish(ctx, s.dispatcher, s.logger, events.New(events.EventUserRegistered, subjectOf(user), user.ID,
		events.UserRegisteredPayload{Email: user.Email}))

	return s.issue(user)
}

// Login verifies credentials and signs the account in.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, pgx.ErrNoRows) {
		s.hasher.VerifyMissing(password)
		return nil, apperrors.NewBadRequest("Invalid email or password")
	}
	if err != nil {
		return nil, err
	}
	if !s.hasher.Verify(user.PasswordHash, password) {
		return nil, apperrors.NewBadRequest("Invalid email or password")
	}
	if !user.Active {
		return nil, apperrors.NewBadRequest("Account is deactivated")
	}
	return s.issue(user)
}

// EnsureAdmin creates the bootstrap administrator, or promotes and
// reactivates an existing account with that email.
func (s *AuthService) EnsureAdmin(ctx context.Context, name, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		hash, err := s.hasher.Hash(password)
		if err != nil {
			return nil, err
		}
		user = &domain.User{
			Name:         name,
			Email:        email,
			PasswordHash: hash,
			Role:         domain.RoleAdmin,
			Active:       true,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
		s.logger.Info("bootstrap admin created", zap.Int64("user_id", user.ID), zap.String("email", email))
		publish(ctx, s.dispatcher, s.logger, events.New(events.EventUserRegistered, "", user.ID,
			events.UserRegisteredPayload{Email: user.Email}))
		return user, nil
	case err != nil:
		return nil, err
	}

	if user.Role == domain.RoleAdmin && user.Active {
		return user, nil
	}
	user.Role = domain.RoleAdmin
	user.Active = true
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("bootstrap admin promoted", zap.Int64("user_id", user.ID), zap.String("email", email))
	return user, nil
}

// Me describes the caller from their token claims alone.
func (s *AuthService) Me(identity *auth.Identity) (*Profile, error) {
	id, err := userIDOf(identity)
	if err != nil {
		return nil, err
	}
	profile := &Profile{
		ID:    id,
		Name:  identity.StringClaim(claimName),
		Email: identity.StringClaim(claimEmail),
	}
	if len(identity.Roles) > 0 {
		profile.Role = domain.Role(identity.Roles[0])
	}
	return profile, nil
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, exp, err := s.tokens.GenerateToken(subjectOf(user), []string{string(user.Role)}, map[string]any{
		claimEmail: user.Email,
		claimName:  user.Name,
	})
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: exp}, nil
}

func subjectOf(user *domain.User) string {
	return strconv.FormatInt(user.ID, 10)
}

// userIDOf reads the numeric user id carried as the token subject.
func userIDOf(identity *auth.Identity) (int64, error) {
	if identity == nil {
		return 0, apperrors.NewUnauthorized("authentication required")
	}
	id, err := strconv.ParseInt(identity.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewUnauthorized("token subject is not a user id")
	}
	return id, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// publish delivers an event and logs handler failures. Side effects never
// fail the originating request.
func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
