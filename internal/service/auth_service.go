package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"familyphotos/api/internal/config"
	"familyphotos/api/internal/models"
	"familyphotos/api/internal/repository"
	"familyphotos/api/internal/security"
)

type AuthService struct {
	users   *repository.UserRepository
	hasher  *security.PasswordHasher
	limiter *LoginLimiter
	cfg     *config.AppConfig
	log     zerolog.Logger
	now     func() time.Time
}

func NewAuthService(
	users *repository.UserRepository,
	hasher *security.PasswordHasher,
	limiter *LoginLimiter,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:   users,
		hasher:  hasher,
		limiter: limiter,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
	}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (models.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	if input.Username == "" || input.Email == "" || input.Password == "" {
		return models.User{}, fmt.Errorf("%w: username, email and password required", ErrInvalidArgument)
	}
	if !strings.Contains(input.Email, "@") {
		return models.User{}, fmt.Errorf("%w: invalid email", ErrInvalidArgument)
	}

	taken, err := s.users.ExistsByUsernameOrEmail(ctx, input.Username, input.Email)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: lookup user: %v", ErrInternal, err)
	}
	if taken {
		return models.User{}, fmt.Errorf("%w: username or email already registered", ErrConflict)
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	user := models.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: passwordHash,
		CreatedAt:    s.now().UTC(),
	}

	id, err := s.users.Create(ctx, user)
	if err != nil {
		// a concurrent registration can still win the unique index
		if errors.Is(err, repository.ErrDuplicate) {
			return models.User{}, fmt.Errorf("%w: username or email already registered", ErrConflict)
		}
		return models.User{}, fmt.Errorf("%w: create user: %v", ErrInternal, err)
	}
	user.ID = id

	s.log.Info().Int64("user_id", id).Str("username", user.Username).Msg("user registered")
	return user, nil
}

type LoginInput struct {
	Identifier string
	Password   string
}

type AuthResult struct {
	Token string
	User  models.User
}

// Login issues a fresh session token and replaces any previous one, so only
// the most recent login stays valid.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	input.Identifier = strings.TrimSpace(input.Identifier)
	if input.Identifier == "" || input.Password == "" {
		return AuthResult{}, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}

	allowed, err := s.limiter.Allow(ctx, input.Identifier)
	if err != nil {
		s.log.Warn().Err(err).Msg("login limiter unavailable")
	} else if !allowed {
		return AuthResult{}, fmt.Errorf("%w: too many failed login attempts", ErrTooManyRequests)
	}

	user, err := s.users.FindByLogin(ctx, input.Identifier)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.recordFailure(ctx, input.Identifier)
			return AuthResult{}, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
		}
		return AuthResult{}, fmt.Errorf("%w: lookup user: %v", ErrInternal, err)
	}

	ok, err := s.hasher.Verify(input.Password, user.PasswordHash)
	if err != nil || !ok {
		if err != nil {
			s.log.Error().Err(err).Int64("user_id", user.ID).Msg("stored password hash unreadable")
		}
		s.recordFailure(ctx, input.Identifier)
		return AuthResult{}, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}

	token, tokenHash, err := security.GenerateSessionToken(s.cfg.Security.TokenBytes)
	if err != nil {
		return AuthResult{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if err := s.users.SetSessionToken(ctx, user.ID, &tokenHash); err != nil {
		return AuthResult{}, fmt.Errorf("%w: store session: %v", ErrInternal, err)
	}
	user.SessionToken = &tokenHash

	if err := s.limiter.Reset(ctx, input.Identifier); err != nil {
		s.log.Warn().Err(err).Msg("reset login limiter failed")
	}

	return AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) recordFailure(ctx context.Context, identifier string) {
	if err := s.limiter.Fail(ctx, identifier); err != nil {
		s.log.Warn().Err(err).Msg("record failed login")
	}
}

func (s *AuthService) Authenticate(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, ErrUnauthorized
	}

	user, err := s.users.FindBySessionToken(ctx, security.HashSessionToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, ErrUnauthorized
		}
		return models.User{}, fmt.Errorf("%w: lookup session: %v", ErrInternal, err)
	}
	return user, nil
}

func (s *AuthService) Logout(ctx context.Context, userID int64) error {
	if err := s.users.SetSessionToken(ctx, userID, nil); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUnauthorized
		}
		return fmt.Errorf("%w: clear session: %v", ErrInternal, err)
	}
	return nil
}
