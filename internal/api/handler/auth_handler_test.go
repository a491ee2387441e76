package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"debt-ledger/internal/api/handler/dto"
	"debt-ledger/internal/domain/user"
	"debt-ledger/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, username, email, fullName, password string) (*user.User, error) {
	args := m.Called(ctx, username, email, fullName, password)
	if u, ok := args.Get(0).(*user.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, username, password string) (string, *user.User, error) {
	args := m.Called(ctx, username, password)
	u, _ := args.Get(1).(*user.User)
	return args.String(0), u, args.Error(2)
}

func newUser() *user.User {
	return &user.User{
		UserID:    uuid.New(),
		Username:  "owner",
		Email:     "owner@example.com",
		CreatedAt: time.Now().UTC(),
	}
}

func TestAuthHandlerRegister(t *testing.T) {
	mockService := new(MockAuthService)
	handler := NewAuthHandler(mockService, logger)

	t.Run("registers and signs in", func(t *testing.T) {
		u := newUser()
		mockService.On("Register", mock.Anything, "owner", "owner@example.com", "", "secret1").Return(u, nil).Once()
		mockService.On("Login", mock.Anything, "owner", "secret1").Return("signed-token", u, nil).Once()

		reqBody := dto.RegisterRequest{Username: "owner", Email: "owner@example.com", Password: "secret1"}
		body, _ := json.Marshal(reqBody)
		req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body))
		w := httptest.NewRecorder()

		handler.Register(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp dto.TokenResponse
		assert.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "signed-token", resp.AccessToken)
		assert.Equal(t, "bearer", resp.TokenType)
		assert.Equal(t, "owner", resp.User.Username)
		mockService.AssertExpectations(t)
	})

	t.Run("rejects short password", func(t *testing.T) {
		reqBody := dto.RegisterRequest{Username: "owner", Email: "owner@example.com", Password: "abc"}
		body, _ := json.Marshal(reqBody)
		req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body))
		w := httptest.NewRecorder()

		handler.Register(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp dto.ErrorResponse
		assert.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Contains(t, resp.Error.Message, "at least 6 characters")
	})

	t.Run("returns conflict for taken username", func(t *testing.T) {
		mockService.On("Register", mock.Anything, "owner", "owner@example.com", "", "secret1").
			Return(nil, apperrors.ErrAlreadyExists).Once()

		reqBody := dto.RegisterRequest{Username: "owner", Email: "owner@example.com", Password: "secret1"}
		body, _ := json.Marshal(reqBody)
		req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body))
		w := httptest.NewRecorder()

		handler.Register(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		mockService.AssertExpectations(t)
	})
}

func TestAuthHandlerLogin(t *testing.T) {
	mockService := new(MockAuthService)
	handler := NewAuthHandler(mockService, logger)

	t.Run("successfully logs in", func(t *testing.T) {
		u := newUser()
		mockService.On("Login", mock.Anything, "owner", "secret1").Return("signed-token", u, nil).Once()

		reqBody := dto.LoginRequest{Username: "owner", Password: "secret1"}
		body, _ := json.Marshal(reqBody)
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
		w := httptest.NewRecorder()

		handler.Login(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp dto.TokenResponse
		assert.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "signed-token", resp.AccessToken)
		mockService.AssertExpectations(t)
	})

	t.Run("returns unauthorized for bad credentials", func(t *testing.T) {
		mockService.On("Login", mock.Anything, "owner", "wrong-pass").Return("", nil, apperrors.ErrUnauthorized).Once()

		reqBody := dto.LoginRequest{Username: "owner", Password: "wrong-pass"}
		body, _ := json.Marshal(reqBody)
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
		w := httptest.NewRecorder()

		handler.Login(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		var resp dto.ErrorResponse
		assert.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "Authentication required.", resp.Error.Message)
		mockService.AssertExpectations(t)
	})

	t.Run("fails with invalid request body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader([]byte("{")))
		w := httptest.NewRecorder()

		handler.Login(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
