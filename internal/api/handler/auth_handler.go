package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"debt-ledger/internal/api/handler/dto"
	"debt-ledger/internal/domain/user"
	"debt-ledger/internal/pkg/apperrors"
)

type AuthHandler struct {
	service user.AuthService
	logger  *slog.Logger
}

func NewAuthHandler(s user.AuthService, l *slog.Logger) *AuthHandler {
	if s == nil {
		panic("auth service cannot be nil")
	}
	if l == nil {
		panic("logger cannot be nil")
	}
	return &AuthHandler{
		service: s,
		logger:  l.With("component", "AuthHandler"),
	}
}

// Register handles POST /auth/register
// @Summary Register a new user
// @Description Creates a user account and returns an access token so the client is signed in immediately.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Registration request"
// @Success 200 {object} dto.TokenResponse "User registered and signed in"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 409 {object} dto.ErrorResponse "Username or email already taken"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	h.logger.DebugContext(r.Context(), "Received register request")

	var req dto.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		h.logger.WarnContext(r.Context(), "Request validation failed", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	created, err := h.service.Register(r.Context(), req.Username, req.Email, req.FullName, req.Password)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Service failed to register user", slog.Any("error", err))
		respondError(w, err)
		return
	}

	// Sign the new user in right away so the client gets a usable token
	// from a single request.
	token, _, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "User registered, but token issuance failed", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "User registered successfully", slog.String("userID", created.UserID.String()))
	respondJSON(w, http.StatusOK, dto.NewTokenResponse(token, created))
}

// Login handles POST /auth/login
// @Summary Authenticate a user
// @Description Verifies credentials and returns a signed access token.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login request"
// @Success 200 {object} dto.TokenResponse "Authentication succeeded"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 401 {object} dto.ErrorResponse "Invalid credentials"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.logger.DebugContext(r.Context(), "Received login request")

	var req dto.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		h.logger.WarnContext(r.Context(), "Request validation failed", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	token, u, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Login failed", slog.String("username", req.Username), slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Login succeeded", slog.String("userID", u.UserID.String()))
	respondJSON(w, http.StatusOK, dto.NewTokenResponse(token, u))
}
