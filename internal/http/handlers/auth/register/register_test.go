package register

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/creatorhub-kr/entitlement-engine/internal/models"
)

// MockService реализует интерфейс register.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Register(ctx context.Context, req models.RegisterRequest, now time.Time) (string, error) {
	args := m.Called(ctx, req, now)
	return args.String(0), args.Error(1)
}

func TestRegisterHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешная регистрация",
			body: `{"email":"user@example.com","password":"secret-pass","nickname":"minsu"}`,
			setupMock: func(m *MockService) {
				m.On("Register", mock.Anything, mock.MatchedBy(func(req models.RegisterRequest) bool {
					return req.Email == "user@example.com" && req.Nickname == "minsu"
				}), mock.Anything).Return("uid-1", nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"account_uid":"uid-1"`,
		},
		{
			name: "регистрация с реферальным кодом",
			body: `{"email":"user@example.com","password":"secret-pass","nickname":"minsu","referral_code":"AB23CD"}`,
			setupMock: func(m *MockService) {
				m.On("Register", mock.Anything, mock.MatchedBy(func(req models.RegisterRequest) bool {
					return req.ReferralCode == "AB23CD"
				}), mock.Anything).Return("uid-1", nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"account created successfully"`,
		},
		{
			name:           "некорректный JSON",
			body:           `{`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"invalid request body"`,
		},
		{
			name:           "короткий пароль",
			body:           `{"email":"user@example.com","password":"short","nickname":"minsu"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field Password is too short`,
		},
		{
			name:           "реферальный код неверной длины",
			body:           `{"email":"user@example.com","password":"secret-pass","nickname":"minsu","referral_code":"ABC"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field ReferralCode has invalid length`,
		},
		{
			name: "email уже занят",
			body: `{"email":"taken@example.com","password":"secret-pass","nickname":"minsu"}`,
			setupMock: func(m *MockService) {
				m.On("Register", mock.Anything, mock.Anything, mock.Anything).
					Return("", models.ErrConflict)
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `"email already registered"`,
		},
		{
			name: "ошибка сервиса",
			body: `{"email":"user@example.com","password":"secret-pass","nickname":"minsu"}`,
			setupMock: func(m *MockService) {
				m.On("Register", mock.Anything, mock.Anything, mock.Anything).
					Return("", errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"failed to register account"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}
