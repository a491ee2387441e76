package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"debt-ledger/internal/pkg/apperrors"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// TokenTTL is how long an issued access token stays valid.
const TokenTTL = 30 * time.Minute

type AuthService interface {
	Register(ctx context.Context, username, email, fullName, password string) (*User, error)
	Login(ctx context.Context, username, password string) (token string, user *User, err error)
}

var _ AuthService = (*authServiceImpl)(nil)

type authServiceImpl struct {
	repo      UserRepository
	jwtSecret []byte
	logger    *slog.Logger
}

func NewAuthService(repo UserRepository, jwtSecret string, logger *slog.Logger) AuthService {
	if repo == nil {
		panic("user repository cannot be nil")
	}
	if jwtSecret == "" {
		panic("jwt secret cannot be empty")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &authServiceImpl{
		repo:      repo,
		jwtSecret: []byte(jwtSecret),
		logger:    logger.With(slog.String("component", "authService")),
	}
}

func (s *authServiceImpl) Register(ctx context.Context, username, email, fullName, password string) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	fullName = strings.TrimSpace(fullName)

	s.logger.InfoContext(ctx, "Attempting to register user", slog.String("username", username))

	if username == "" {
		return nil, apperrors.NewValidationError("username", "cannot be empty")
	}
	if email == "" {
		return nil, apperrors.NewValidationError("email", "cannot be empty")
	}
	if len(password) < 6 {
		return nil, apperrors.NewValidationError("password", "must be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to hash password", slog.Any("error", err))
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := NewUser(username, email, fullName, string(hash))

	if err := s.repo.Save(ctx, u); err != nil {
		switch {
		case errors.Is(err, ErrUsernameTaken):
			s.logger.WarnContext(ctx, "Registration rejected: username taken", slog.String("username", username))
			return nil, fmt.Errorf("%w: %w", apperrors.ErrAlreadyExists, ErrUsernameTaken)
		case errors.Is(err, ErrEmailTaken):
			s.logger.WarnContext(ctx, "Registration rejected: email taken", slog.String("email", email))
			return nil, fmt.Errorf("%w: %w", apperrors.ErrAlreadyExists, ErrEmailTaken)
		}
		s.logger.ErrorContext(ctx, "Repository failed to save user", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	s.logger.InfoContext(ctx, "Successfully registered user", slog.String("userID", u.UserID.String()))
	return u, nil
}

func (s *authServiceImpl) Login(ctx context.Context, username, password string) (string, *User, error) {
	username = strings.TrimSpace(username)
	s.logger.InfoContext(ctx, "Attempting login", slog.String("username", username))

	u, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, "Login failed: unknown username", slog.String("username", username))
			return "", nil, apperrors.ErrUnauthorized
		}
		s.logger.ErrorContext(ctx, "Repository error finding user", slog.Any("error", err))
		return "", nil, fmt.Errorf("failed to find user %s: %w", username, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.logger.WarnContext(ctx, "Login failed: wrong password", slog.String("username", username))
		return "", nil, apperrors.ErrUnauthorized
	}

	token, err := s.generateToken(u)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to sign access token", slog.Any("error", err))
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	s.logger.InfoContext(ctx, "Login succeeded", slog.String("userID", u.UserID.String()))
	return token, u, nil
}

func (s *authServiceImpl) generateToken(u *User) (string, error) {
	claims := jwt.MapClaims{
		"sub":      u.UserID.String(),
		"username": u.Username,
		"exp":      time.Now().Add(TokenTTL).Unix(),
		"iat":      time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
